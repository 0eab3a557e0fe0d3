package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/calendar"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/shopspring/decimal"
)

type Options struct {
	MissingClockOutPolicy attendance.MissingClockOutPolicy
	// Now is the clock used to decide whether a day's window has closed. Defaults to time.Now.
	Now func() time.Time
}

type AttendanceServiceImpl struct {
	tx database.Transactor
	attendance.AttendanceRepository
	employee.EmployeeRepository
	calendar calendar.Provider
	policy   attendance.MissingClockOutPolicy
	now      func() time.Time
}

func NewAttendanceService(
	tx database.Transactor,
	attendanceRepository attendance.AttendanceRepository,
	employeeRepository employee.EmployeeRepository,
	calendarProvider calendar.Provider,
	opts Options,
) attendance.AttendanceService {
	if !opts.MissingClockOutPolicy.IsValid() {
		opts.MissingClockOutPolicy = attendance.MissingClockOutCapShiftEnd
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AttendanceServiceImpl{
		tx:                   tx,
		AttendanceRepository: attendanceRepository,
		EmployeeRepository:   employeeRepository,
		calendar:             calendarProvider,
		policy:               opts.MissingClockOutPolicy,
		now:                  opts.Now,
	}
}

// RecordClockEvent implements attendance.AttendanceService.
// The punch is stored even when the day it lands on fails reconciliation; the timesheet carries the issue.
func (s *AttendanceServiceImpl) RecordClockEvent(ctx context.Context, req attendance.RecordClockEventRequest) (attendance.DailyTimesheet, error) {
	if err := req.Validate(); err != nil {
		return attendance.DailyTimesheet{}, err
	}

	emp, err := s.EmployeeRepository.GetByID(ctx, req.EmployeeID)
	if err != nil {
		return attendance.DailyTimesheet{}, err
	}
	if !emp.IsActive || emp.EmploymentStatus != employee.EmploymentStatusActive {
		return attendance.DailyTimesheet{}, employee.ErrEmployeeInactive
	}

	now := s.now().UTC()
	source := req.Source
	if source == "" {
		source = "api"
	}
	event := attendance.ClockingEvent{
		ID:           base.NewID(),
		EmployeeID:   emp.ID,
		Timestamp:    req.Timestamp.UTC(),
		EventType:    req.EventType,
		Source:       source,
		CreatedAtUtc: now,
		CreatedBy:    base.ActorFrom(ctx),
	}
	if _, err := s.AttendanceRepository.AppendEvent(ctx, event); err != nil {
		return attendance.DailyTimesheet{}, fmt.Errorf("failed to append clock event: %w", err)
	}

	date := workDateFor(emp, event.Timestamp)
	ts, err := s.Reconcile(ctx, emp.ID, date)
	if err != nil {
		var dq *attendance.DataQualityError
		if errors.As(err, &dq) {
			slog.Warn("Clock event left timesheet flagged", "employee_id", emp.ID, "date", date.Format("2006-01-02"), "issues", dq.Issues)
			return ts, nil
		}
		return attendance.DailyTimesheet{}, err
	}
	return ts, nil
}

// Reconcile implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Reconcile(ctx context.Context, employeeID string, date time.Time) (attendance.DailyTimesheet, error) {
	date = base.Date(date)

	emp, err := s.EmployeeRepository.GetByID(ctx, employeeID)
	if err != nil {
		return attendance.DailyTimesheet{}, err
	}

	existing, err := s.AttendanceRepository.GetTimesheet(ctx, employeeID, date)
	found := err == nil
	if err != nil && !errors.Is(err, attendance.ErrTimesheetNotFound) {
		return attendance.DailyTimesheet{}, fmt.Errorf("failed to get timesheet: %w", err)
	}
	if found && existing.IsManualOverride {
		return existing, nil
	}

	from, to := emp.DayWindow(date)
	events, err := s.AttendanceRepository.ListEvents(ctx, employeeID, from, to)
	if err != nil {
		return attendance.DailyTimesheet{}, fmt.Errorf("failed to list clock events: %w", err)
	}
	facts, err := calendar.LoadFacts(ctx, s.calendar, employeeID, date, date)
	if err != nil {
		return attendance.DailyTimesheet{}, err
	}

	computed, dq := reconcileDay(dayInput{
		Employee: emp,
		Date:     date,
		Events:   events,
		Facts:    facts,
		Policy:   s.policy,
		Now:      s.now(),
	})

	var saved attendance.DailyTimesheet
	switch {
	case found && existing.Equivalent(computed):
		saved = existing
	case found:
		computed.ID = existing.ID
		computed.Record = existing.Record
		computed.Touch(base.ActorFrom(ctx), s.now())
		saved, err = s.AttendanceRepository.UpdateTimesheet(ctx, computed)
		if err != nil {
			return attendance.DailyTimesheet{}, fmt.Errorf("failed to update timesheet: %w", err)
		}
	case computed.Status == attendance.TimesheetPending && computed.EventCount == 0:
		// nothing to record for an empty day
		return computed, nil
	default:
		computed.ID = base.NewID()
		computed.Record = base.NewRecord(base.ActorFrom(ctx), s.now())
		saved, err = s.AttendanceRepository.CreateTimesheet(ctx, computed)
		if err != nil {
			return attendance.DailyTimesheet{}, fmt.Errorf("failed to create timesheet: %w", err)
		}
	}

	if dq != nil {
		return saved, dq
	}
	return saved, nil
}

// ReconcileRange implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ReconcileRange(ctx context.Context, employeeID string, from, to time.Time) (attendance.ReconcileReport, error) {
	from, to = base.Date(from), base.Date(to)
	if to.Before(from) {
		return attendance.ReconcileReport{}, attendance.ErrInvalidDateRange
	}

	report := attendance.ReconcileReport{EmployeeID: employeeID, From: from, To: to}
	for _, day := range base.DaysBetween(from, to) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		ts, err := s.Reconcile(ctx, employeeID, day)
		if err != nil {
			var dq *attendance.DataQualityError
			if !errors.As(err, &dq) {
				return report, err
			}
			report.Issues = append(report.Issues, dq)
		}
		if ts.ID != "" {
			report.Timesheets = append(report.Timesheets, ts)
		}
	}
	return report, nil
}

// SetManualOverride implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) SetManualOverride(ctx context.Context, req attendance.ManualOverrideRequest) (attendance.DailyTimesheet, error) {
	if err := req.Validate(); err != nil {
		return attendance.DailyTimesheet{}, err
	}
	date, _ := time.Parse("2006-01-02", req.Date)

	emp, err := s.EmployeeRepository.GetByID(ctx, req.EmployeeID)
	if err != nil {
		return attendance.DailyTimesheet{}, err
	}

	actor := base.ActorFrom(ctx)
	hours := req.Hours.Round(2)
	note := "manual override: " + req.Reason

	existing, err := s.AttendanceRepository.GetTimesheet(ctx, emp.ID, date)
	if err != nil {
		if !errors.Is(err, attendance.ErrTimesheetNotFound) {
			return attendance.DailyTimesheet{}, fmt.Errorf("failed to get timesheet: %w", err)
		}
		if req.RowVersion != 0 {
			return attendance.DailyTimesheet{}, &base.StaleVersionError{Entity: "timesheet", ID: emp.ID + "/" + req.Date, Expected: req.RowVersion}
		}
		ts := attendance.DailyTimesheet{
			ID:               base.NewID(),
			EmployeeID:       emp.ID,
			Date:             date,
			CalculatedHours:  hours,
			LeaveHours:       decimal.Zero,
			WageEstimated:    wageEstimate(hours, emp),
			Status:           attendance.TimesheetManuallyOverridden,
			IsManualOverride: true,
			Issues:           []string{note},
			Record:           base.NewRecord(actor, s.now()),
		}
		return s.AttendanceRepository.CreateTimesheet(ctx, ts)
	}

	if err := base.CheckVersion("timesheet", existing.ID, existing.RowVersion, req.RowVersion); err != nil {
		return attendance.DailyTimesheet{}, err
	}
	existing.CalculatedHours = hours
	existing.WageEstimated = wageEstimate(hours, emp)
	existing.Status = attendance.TimesheetManuallyOverridden
	existing.IsManualOverride = true
	existing.HasMissingClockOut = false
	existing.Issues = append(existing.Issues, note)
	existing.Touch(actor, s.now())

	updated, err := s.AttendanceRepository.UpdateTimesheet(ctx, existing)
	if err != nil {
		return attendance.DailyTimesheet{}, fmt.Errorf("failed to apply manual override: %w", err)
	}
	slog.Info("Timesheet manually overridden", "employee_id", emp.ID, "date", req.Date, "hours", hours.String(), "by", actor)
	return updated, nil
}

// ClearManualOverride implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ClearManualOverride(ctx context.Context, req attendance.ClearOverrideRequest) (attendance.DailyTimesheet, error) {
	if err := req.Validate(); err != nil {
		return attendance.DailyTimesheet{}, err
	}
	date, _ := time.Parse("2006-01-02", req.Date)

	var result attendance.DailyTimesheet
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.AttendanceRepository.GetTimesheet(ctx, req.EmployeeID, date)
		if err != nil {
			return err
		}
		if !existing.IsManualOverride {
			return attendance.ErrManualOverrideNotActive
		}
		if err := base.CheckVersion("timesheet", existing.ID, existing.RowVersion, req.RowVersion); err != nil {
			return err
		}

		existing.IsManualOverride = false
		existing.Status = attendance.TimesheetPending
		existing.Issues = nil
		existing.Touch(base.ActorFrom(ctx), s.now())
		if _, err := s.AttendanceRepository.UpdateTimesheet(ctx, existing); err != nil {
			return fmt.Errorf("failed to clear manual override: %w", err)
		}

		result, err = s.Reconcile(ctx, req.EmployeeID, date)
		var dq *attendance.DataQualityError
		if errors.As(err, &dq) {
			return nil
		}
		return err
	})
	if err != nil {
		return attendance.DailyTimesheet{}, err
	}
	return result, nil
}

// ListTimesheets implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListTimesheets(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.DailyTimesheet, error) {
	from, to = base.Date(from), base.Date(to)
	if to.Before(from) {
		return nil, attendance.ErrInvalidDateRange
	}
	return s.AttendanceRepository.ListTimesheets(ctx, employeeID, from, to)
}

// workDateFor picks the calendar date whose punch window contains ts.
func workDateFor(emp employee.Employee, ts time.Time) time.Time {
	local := ts.In(emp.Location())
	date := base.Date(time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC))
	for _, candidate := range []time.Time{date, date.AddDate(0, 0, -1), date.AddDate(0, 0, 1)} {
		from, to := emp.DayWindow(candidate)
		if !ts.Before(from) && ts.Before(to) {
			return candidate
		}
	}
	return date
}
