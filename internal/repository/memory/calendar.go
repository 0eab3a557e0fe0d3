package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/calendar"
)

// CalendarProvider serves holidays and approvals recorded with its Add methods.
type CalendarProvider struct {
	store *Store
}

func NewCalendarProvider(store *Store) *CalendarProvider {
	return &CalendarProvider{store: store}
}

func (p *CalendarProvider) AddHoliday(ctx context.Context, h calendar.PublicHoliday) error {
	h.Date = base.Date(h.Date)
	return p.store.write(ctx, func(t *tables) error {
		t.holidays = append(t.holidays, h)
		return nil
	})
}

func (p *CalendarProvider) AddLeave(ctx context.Context, l calendar.LeaveRequest) error {
	return p.store.write(ctx, func(t *tables) error {
		t.leave = append(t.leave, l)
		return nil
	})
}

func (p *CalendarProvider) AddOvertime(ctx context.Context, o calendar.OvertimeRequest) error {
	return p.store.write(ctx, func(t *tables) error {
		t.overtime = append(t.overtime, o)
		return nil
	})
}

func (p *CalendarProvider) HolidaysBetween(ctx context.Context, from, to time.Time) ([]calendar.PublicHoliday, error) {
	from, to = base.Date(from), base.Date(to)
	var result []calendar.PublicHoliday
	err := p.store.read(ctx, func(t *tables) error {
		for _, h := range t.holidays {
			if !h.Date.Before(from) && !h.Date.After(to) {
				result = append(result, h)
			}
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, err
}

func (p *CalendarProvider) ApprovedLeave(ctx context.Context, employeeID string, from, to time.Time) ([]calendar.LeaveRequest, error) {
	from, to = base.Date(from), base.Date(to)
	var result []calendar.LeaveRequest
	err := p.store.read(ctx, func(t *tables) error {
		for _, l := range t.leave {
			if l.EmployeeID != employeeID || l.Status != calendar.StatusApproved {
				continue
			}
			end := base.Date(l.EndDate)
			if overlaps(base.Date(l.StartDate), &end, from, to) {
				result = append(result, l)
			}
		}
		return nil
	})
	return result, err
}

func (p *CalendarProvider) ApprovedOvertime(ctx context.Context, employeeID string, from, to time.Time) ([]calendar.OvertimeRequest, error) {
	from, to = base.Date(from), base.Date(to)
	var result []calendar.OvertimeRequest
	err := p.store.read(ctx, func(t *tables) error {
		for _, o := range t.overtime {
			d := base.Date(o.Date)
			if o.EmployeeID == employeeID && o.Status == calendar.StatusApproved && !d.Before(from) && !d.After(to) {
				result = append(result, o)
			}
		}
		return nil
	})
	return result, err
}
