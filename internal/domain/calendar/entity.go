package calendar

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/shopspring/decimal"
)

type PublicHoliday struct {
	Date time.Time
	Name string
}

type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

// LeaveRequest is owned by the leave module; payroll only consumes approved requests.
type LeaveRequest struct {
	ID         string
	EmployeeID string
	StartDate  time.Time
	EndDate    time.Time
	IsHalfDay  bool
	IsPaid     bool
	Status     ApprovalStatus
}

// Covers reports whether the request spans the calendar date.
func (l LeaveRequest) Covers(date time.Time) bool {
	d := base.Date(date)
	return !d.Before(base.Date(l.StartDate)) && !d.After(base.Date(l.EndDate))
}

// Hours is the leave credited against a shift of the given length.
func (l LeaveRequest) Hours(shift decimal.Decimal) decimal.Decimal {
	if l.IsHalfDay {
		return shift.Div(decimal.NewFromInt(2)).Round(2)
	}
	return shift
}

// OvertimeRequest authorizes overtime hours on one date.
type OvertimeRequest struct {
	ID         string
	EmployeeID string
	Date       time.Time
	Hours      decimal.Decimal
	Status     ApprovalStatus
}
