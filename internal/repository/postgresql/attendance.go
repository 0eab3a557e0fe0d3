package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type attendanceRepositoryImpl struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepositoryImpl{db: db}
}

// ========== CLOCK EVENTS ==========

func (r *attendanceRepositoryImpl) AppendEvent(ctx context.Context, event attendance.ClockingEvent) (attendance.ClockingEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO clocking_events (id, employee_id, event_timestamp, event_type, source, created_at_utc, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.Exec(ctx, query,
		event.ID, event.EmployeeID, event.Timestamp.UTC(), event.EventType, event.Source, event.CreatedAtUtc, event.CreatedBy,
	)
	if err != nil {
		return attendance.ClockingEvent{}, fmt.Errorf("failed to append clock event: %w", err)
	}
	event.Timestamp = event.Timestamp.UTC()
	return event, nil
}

func (r *attendanceRepositoryImpl) ListEvents(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.ClockingEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, employee_id, event_timestamp, event_type, source, created_at_utc, created_by
		FROM clocking_events
		WHERE employee_id = $1 AND event_timestamp >= $2 AND event_timestamp < $3
		ORDER BY event_timestamp, created_at_utc
	`
	rows, err := q.Query(ctx, query, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list clock events: %w", err)
	}
	defer rows.Close()

	var events []attendance.ClockingEvent
	for rows.Next() {
		var e attendance.ClockingEvent
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.Timestamp, &e.EventType, &e.Source, &e.CreatedAtUtc, &e.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan clock event: %w", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

// ========== TIMESHEETS ==========

const timesheetColumns = `
	id, employee_id, work_date, first_in_time, last_out_time, calculated_hours, leave_hours,
	wage_estimated, status, has_missing_clock_out, is_manual_override, event_count, issues,
	created_at_utc, created_by, updated_at_utc, updated_by, is_active, row_version`

func scanTimesheet(row pgx.Row) (attendance.DailyTimesheet, error) {
	var ts attendance.DailyTimesheet
	err := row.Scan(
		&ts.ID, &ts.EmployeeID, &ts.Date, &ts.FirstInTime, &ts.LastOutTime, &ts.CalculatedHours, &ts.LeaveHours,
		&ts.WageEstimated, &ts.Status, &ts.HasMissingClockOut, &ts.IsManualOverride, &ts.EventCount, &ts.Issues,
		&ts.CreatedAtUtc, &ts.CreatedBy, &ts.UpdatedAtUtc, &ts.UpdatedBy, &ts.IsActive, &ts.RowVersion,
	)
	if err != nil {
		return attendance.DailyTimesheet{}, err
	}
	ts.Date = base.Date(ts.Date)
	if len(ts.Issues) == 0 {
		ts.Issues = nil
	}
	return ts, nil
}

func (r *attendanceRepositoryImpl) GetTimesheet(ctx context.Context, employeeID string, date time.Time) (attendance.DailyTimesheet, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + timesheetColumns + `
		FROM daily_timesheets
		WHERE employee_id = $1 AND work_date = $2 AND is_active = true
	`
	ts, err := scanTimesheet(q.QueryRow(ctx, query, employeeID, base.Date(date)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.DailyTimesheet{}, attendance.ErrTimesheetNotFound
		}
		return attendance.DailyTimesheet{}, fmt.Errorf("failed to get timesheet: %w", err)
	}
	return ts, nil
}

func (r *attendanceRepositoryImpl) ListTimesheets(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.DailyTimesheet, error) {
	query := `SELECT ` + timesheetColumns + `
		FROM daily_timesheets
		WHERE employee_id = $1 AND work_date BETWEEN $2 AND $3 AND is_active = true
		ORDER BY work_date
	`
	return r.queryTimesheets(ctx, query, employeeID, base.Date(from), base.Date(to))
}

func (r *attendanceRepositoryImpl) ListTimesheetsNeedingReview(ctx context.Context, from, to time.Time) ([]attendance.DailyTimesheet, error) {
	query := `SELECT ` + timesheetColumns + `
		FROM daily_timesheets
		WHERE work_date BETWEEN $1 AND $2 AND is_active = true
			AND (status = $3 OR has_missing_clock_out = true)
		ORDER BY work_date, employee_id
	`
	return r.queryTimesheets(ctx, query, base.Date(from), base.Date(to), attendance.TimesheetFlagged)
}

func (r *attendanceRepositoryImpl) queryTimesheets(ctx context.Context, query string, args ...interface{}) ([]attendance.DailyTimesheet, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list timesheets: %w", err)
	}
	defer rows.Close()

	var result []attendance.DailyTimesheet
	for rows.Next() {
		ts, err := scanTimesheet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timesheet: %w", err)
		}
		result = append(result, ts)
	}
	return result, rows.Err()
}

func (r *attendanceRepositoryImpl) CreateTimesheet(ctx context.Context, ts attendance.DailyTimesheet) (attendance.DailyTimesheet, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO daily_timesheets (
			id, employee_id, work_date, first_in_time, last_out_time, calculated_hours, leave_hours,
			wage_estimated, status, has_missing_clock_out, is_manual_override, event_count, issues,
			created_at_utc, created_by, updated_at_utc, updated_by, is_active, row_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, true, 1)
	`
	_, err := q.Exec(ctx, query,
		ts.ID, ts.EmployeeID, base.Date(ts.Date), ts.FirstInTime, ts.LastOutTime, ts.CalculatedHours, ts.LeaveHours,
		ts.WageEstimated, ts.Status, ts.HasMissingClockOut, ts.IsManualOverride, ts.EventCount, issuesOrEmpty(ts.Issues),
		ts.CreatedAtUtc, ts.CreatedBy, ts.UpdatedAtUtc, ts.UpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err, "uk_daily_timesheets_employee_date") {
			return attendance.DailyTimesheet{}, &base.StaleVersionError{Entity: "timesheet", ID: ts.EmployeeID + "/" + ts.Date.Format("2006-01-02")}
		}
		return attendance.DailyTimesheet{}, fmt.Errorf("failed to create timesheet: %w", err)
	}
	ts.Date = base.Date(ts.Date)
	ts.IsActive = true
	ts.RowVersion = 1
	return ts, nil
}

func (r *attendanceRepositoryImpl) UpdateTimesheet(ctx context.Context, ts attendance.DailyTimesheet) (attendance.DailyTimesheet, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE daily_timesheets SET
			first_in_time = $3, last_out_time = $4, calculated_hours = $5, leave_hours = $6,
			wage_estimated = $7, status = $8, has_missing_clock_out = $9, is_manual_override = $10,
			event_count = $11, issues = $12, updated_at_utc = $13, updated_by = $14,
			row_version = row_version + 1
		WHERE id = $1 AND row_version = $2 AND is_active = true
		RETURNING row_version
	`
	var version int64
	err := q.QueryRow(ctx, query,
		ts.ID, ts.RowVersion,
		ts.FirstInTime, ts.LastOutTime, ts.CalculatedHours, ts.LeaveHours,
		ts.WageEstimated, ts.Status, ts.HasMissingClockOut, ts.IsManualOverride,
		ts.EventCount, issuesOrEmpty(ts.Issues), ts.UpdatedAtUtc, ts.UpdatedBy,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.DailyTimesheet{}, staleOrMissing(ctx, q, "daily_timesheets", "timesheet", ts.ID, ts.RowVersion, attendance.ErrTimesheetNotFound)
		}
		return attendance.DailyTimesheet{}, fmt.Errorf("failed to update timesheet: %w", err)
	}
	ts.RowVersion = version
	return ts, nil
}

func issuesOrEmpty(issues []string) []string {
	if issues == nil {
		return []string{}
	}
	return issues
}
