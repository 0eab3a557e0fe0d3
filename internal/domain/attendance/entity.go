package attendance

import (
	"slices"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventClockIn  EventType = "clock_in"
	EventClockOut EventType = "clock_out"
)

// ClockingEvent is an immutable punch. Events are only ever appended.
type ClockingEvent struct {
	ID           string    `json:"id"`
	EmployeeID   string    `json:"employee_id"`
	Timestamp    time.Time `json:"timestamp"`
	EventType    EventType `json:"event_type"`
	Source       string    `json:"source"`
	CreatedAtUtc time.Time `json:"created_at_utc"`
	CreatedBy    string    `json:"created_by"`
}

type TimesheetStatus string

const (
	TimesheetPending            TimesheetStatus = "pending"
	TimesheetReconciled         TimesheetStatus = "reconciled"
	TimesheetFlagged            TimesheetStatus = "flagged"
	TimesheetManuallyOverridden TimesheetStatus = "manually_overridden"
)

// MissingClockOutPolicy decides the hours credited to an unmatched trailing clock-in.
type MissingClockOutPolicy string

const (
	MissingClockOutZero        MissingClockOutPolicy = "zero"
	MissingClockOutCapShiftEnd MissingClockOutPolicy = "cap_at_shift_end"
)

func (p MissingClockOutPolicy) IsValid() bool {
	return p == MissingClockOutZero || p == MissingClockOutCapShiftEnd
}

// DailyTimesheet is the reconciled summary of one employee's worked time on one date.
type DailyTimesheet struct {
	ID                 string          `json:"id"`
	EmployeeID         string          `json:"employee_id"`
	Date               time.Time       `json:"date"`
	FirstInTime        *time.Time      `json:"first_in_time,omitempty"`
	LastOutTime        *time.Time      `json:"last_out_time,omitempty"`
	CalculatedHours    decimal.Decimal `json:"calculated_hours"`
	LeaveHours         decimal.Decimal `json:"leave_hours"`
	WageEstimated      decimal.Decimal `json:"wage_estimated"`
	Status             TimesheetStatus `json:"status"`
	HasMissingClockOut bool            `json:"has_missing_clock_out"`
	IsManualOverride   bool            `json:"is_manual_override"`
	EventCount         int             `json:"event_count"`
	Issues             []string        `json:"issues,omitempty"`
	base.Record
}

// NeedsReview reports whether a human has to look at the day before it is paid.
func (t DailyTimesheet) NeedsReview() bool {
	return t.Status == TimesheetFlagged || t.HasMissingClockOut
}

// Equivalent compares the derived fields, ignoring identity and audit columns.
func (t DailyTimesheet) Equivalent(o DailyTimesheet) bool {
	return equalTime(t.FirstInTime, o.FirstInTime) &&
		equalTime(t.LastOutTime, o.LastOutTime) &&
		t.CalculatedHours.Equal(o.CalculatedHours) &&
		t.LeaveHours.Equal(o.LeaveHours) &&
		t.WageEstimated.Equal(o.WageEstimated) &&
		t.Status == o.Status &&
		t.HasMissingClockOut == o.HasMissingClockOut &&
		t.IsManualOverride == o.IsManualOverride &&
		t.EventCount == o.EventCount &&
		slices.Equal(t.Issues, o.Issues)
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
