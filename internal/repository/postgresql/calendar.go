package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/calendar"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
)

type calendarProvider struct {
	db *database.DB
}

// NewCalendarProvider reads holidays and approvals owned by the leave and overtime modules.
func NewCalendarProvider(db *database.DB) calendar.Provider {
	return &calendarProvider{db: db}
}

func (p *calendarProvider) HolidaysBetween(ctx context.Context, from, to time.Time) ([]calendar.PublicHoliday, error) {
	q := GetQuerier(ctx, p.db)

	rows, err := q.Query(ctx, `
		SELECT holiday_date, name
		FROM public_holidays
		WHERE holiday_date BETWEEN $1 AND $2
		ORDER BY holiday_date
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list public holidays: %w", err)
	}
	defer rows.Close()

	var holidays []calendar.PublicHoliday
	for rows.Next() {
		var h calendar.PublicHoliday
		if err := rows.Scan(&h.Date, &h.Name); err != nil {
			return nil, fmt.Errorf("failed to scan public holiday: %w", err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func (p *calendarProvider) ApprovedLeave(ctx context.Context, employeeID string, from, to time.Time) ([]calendar.LeaveRequest, error) {
	q := GetQuerier(ctx, p.db)

	rows, err := q.Query(ctx, `
		SELECT id, employee_id, start_date, end_date, is_half_day, is_paid, status
		FROM leave_requests
		WHERE employee_id = $1 AND status = $2 AND start_date <= $4 AND end_date >= $3
		ORDER BY start_date
	`, employeeID, calendar.StatusApproved, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved leave: %w", err)
	}
	defer rows.Close()

	var requests []calendar.LeaveRequest
	for rows.Next() {
		var l calendar.LeaveRequest
		if err := rows.Scan(&l.ID, &l.EmployeeID, &l.StartDate, &l.EndDate, &l.IsHalfDay, &l.IsPaid, &l.Status); err != nil {
			return nil, fmt.Errorf("failed to scan leave request: %w", err)
		}
		requests = append(requests, l)
	}
	return requests, rows.Err()
}

func (p *calendarProvider) ApprovedOvertime(ctx context.Context, employeeID string, from, to time.Time) ([]calendar.OvertimeRequest, error) {
	q := GetQuerier(ctx, p.db)

	rows, err := q.Query(ctx, `
		SELECT id, employee_id, overtime_date, hours, status
		FROM overtime_requests
		WHERE employee_id = $1 AND status = $2 AND overtime_date BETWEEN $3 AND $4
		ORDER BY overtime_date
	`, employeeID, calendar.StatusApproved, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved overtime: %w", err)
	}
	defer rows.Close()

	var requests []calendar.OvertimeRequest
	for rows.Next() {
		var o calendar.OvertimeRequest
		if err := rows.Scan(&o.ID, &o.EmployeeID, &o.Date, &o.Hours, &o.Status); err != nil {
			return nil, fmt.Errorf("failed to scan overtime request: %w", err)
		}
		requests = append(requests, o)
	}
	return requests, rows.Err()
}
