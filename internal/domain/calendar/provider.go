package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/shopspring/decimal"
)

// Provider supplies calendar facts owned by other modules. Date ranges are inclusive.
type Provider interface {
	HolidaysBetween(ctx context.Context, from, to time.Time) ([]PublicHoliday, error)
	ApprovedLeave(ctx context.Context, employeeID string, from, to time.Time) ([]LeaveRequest, error)
	ApprovedOvertime(ctx context.Context, employeeID string, from, to time.Time) ([]OvertimeRequest, error)
}

// Facts is a per-employee snapshot of holidays, leave and overtime approvals over a date range.
type Facts struct {
	holidays map[time.Time]PublicHoliday
	leave    []LeaveRequest
	overtime map[time.Time]decimal.Decimal
}

// LoadFacts reads everything the reconciler and calculator need for one employee and period.
func LoadFacts(ctx context.Context, p Provider, employeeID string, from, to time.Time) (Facts, error) {
	holidays, err := p.HolidaysBetween(ctx, from, to)
	if err != nil {
		return Facts{}, fmt.Errorf("failed to load public holidays: %w", err)
	}
	leave, err := p.ApprovedLeave(ctx, employeeID, from, to)
	if err != nil {
		return Facts{}, fmt.Errorf("failed to load approved leave: %w", err)
	}
	overtime, err := p.ApprovedOvertime(ctx, employeeID, from, to)
	if err != nil {
		return Facts{}, fmt.Errorf("failed to load approved overtime: %w", err)
	}
	return NewFacts(holidays, leave, overtime), nil
}

// NewFacts indexes raw calendar rows. Requests that are not approved are ignored.
func NewFacts(holidays []PublicHoliday, leave []LeaveRequest, overtime []OvertimeRequest) Facts {
	f := Facts{
		holidays: make(map[time.Time]PublicHoliday, len(holidays)),
		overtime: make(map[time.Time]decimal.Decimal),
	}
	for _, h := range holidays {
		f.holidays[base.Date(h.Date)] = h
	}
	for _, l := range leave {
		if l.Status == StatusApproved {
			f.leave = append(f.leave, l)
		}
	}
	for _, o := range overtime {
		if o.Status != StatusApproved {
			continue
		}
		d := base.Date(o.Date)
		f.overtime[d] = f.overtime[d].Add(o.Hours)
	}
	return f
}

func (f Facts) Holiday(date time.Time) (PublicHoliday, bool) {
	h, ok := f.holidays[base.Date(date)]
	return h, ok
}

func (f Facts) IsHoliday(date time.Time) bool {
	_, ok := f.holidays[base.Date(date)]
	return ok
}

// Leave returns the approved leave covering date. A full-day request wins over a half-day one.
func (f Facts) Leave(date time.Time) (LeaveRequest, bool) {
	var found LeaveRequest
	ok := false
	for _, l := range f.leave {
		if !l.Covers(date) {
			continue
		}
		if !ok || (found.IsHalfDay && !l.IsHalfDay) {
			found, ok = l, true
		}
	}
	return found, ok
}

// ApprovedOvertimeHours sums approved overtime for the date.
func (f Facts) ApprovedOvertimeHours(date time.Time) decimal.Decimal {
	return f.overtime[base.Date(date)]
}
