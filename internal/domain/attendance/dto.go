package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type RecordClockEventRequest struct {
	EmployeeID string    `json:"employee_id"`
	Timestamp  time.Time `json:"timestamp"`
	EventType  EventType `json:"event_type"`
	Source     string    `json:"source"`
}

func (r *RecordClockEventRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if r.Timestamp.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "timestamp", Message: "is required"})
	}
	if r.EventType != EventClockIn && r.EventType != EventClockOut {
		errs = append(errs, validator.ValidationError{Field: "event_type", Message: "must be 'clock_in' or 'clock_out'"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ReconcileRequest struct {
	EmployeeID string `json:"employee_id"`
	From       string `json:"from"`
	To         string `json:"to"`
}

func (r *ReconcileRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	from, okFrom := validator.IsValidDate(r.From)
	if !okFrom {
		errs = append(errs, validator.ValidationError{Field: "from", Message: "must be a YYYY-MM-DD date"})
	}
	to, okTo := validator.IsValidDate(r.To)
	if !okTo {
		errs = append(errs, validator.ValidationError{Field: "to", Message: "must be a YYYY-MM-DD date"})
	}
	if okFrom && okTo && to.Before(from) {
		errs = append(errs, validator.ValidationError{Field: "to", Message: "must not be before from"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ReconcileReport is the outcome of reconciling a date range. Issues hold one entry per day that failed.
type ReconcileReport struct {
	EmployeeID string              `json:"employee_id"`
	From       time.Time           `json:"from"`
	To         time.Time           `json:"to"`
	Timesheets []DailyTimesheet    `json:"timesheets"`
	Issues     []*DataQualityError `json:"issues,omitempty"`
}

type ManualOverrideRequest struct {
	EmployeeID string          `json:"employee_id"`
	Date       string          `json:"date"`
	Hours      decimal.Decimal `json:"hours"`
	Reason     string          `json:"reason"`
	// RowVersion of the timesheet as read by the caller. Zero when no timesheet exists yet.
	RowVersion int64 `json:"row_version"`
}

func (r *ManualOverrideRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "must be a YYYY-MM-DD date"})
	}
	if r.Hours.IsNegative() || r.Hours.GreaterThan(decimal.NewFromInt(24)) {
		errs = append(errs, validator.ValidationError{Field: "hours", Message: "must be between 0 and 24"})
	}
	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{Field: "reason", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ClearOverrideRequest struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
	RowVersion int64  `json:"row_version"`
}

func (r *ClearOverrideRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "must be a YYYY-MM-DD date"})
	}
	if r.RowVersion <= 0 {
		errs = append(errs, validator.ValidationError{Field: "row_version", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
