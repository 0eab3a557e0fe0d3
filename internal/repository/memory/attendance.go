package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
)

type AttendanceRepository struct {
	store *Store
}

func NewAttendanceRepository(store *Store) *AttendanceRepository {
	return &AttendanceRepository{store: store}
}

func (r *AttendanceRepository) AppendEvent(ctx context.Context, event attendance.ClockingEvent) (attendance.ClockingEvent, error) {
	event.Timestamp = event.Timestamp.UTC()
	err := r.store.write(ctx, func(t *tables) error {
		t.events = append(t.events, event)
		return nil
	})
	return event, err
}

func (r *AttendanceRepository) ListEvents(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.ClockingEvent, error) {
	var result []attendance.ClockingEvent
	err := r.store.read(ctx, func(t *tables) error {
		for _, e := range t.events {
			if e.EmployeeID == employeeID && !e.Timestamp.Before(from) && e.Timestamp.Before(to) {
				result = append(result, e)
			}
		}
		return nil
	})
	sort.SliceStable(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	return result, err
}

func (r *AttendanceRepository) GetTimesheet(ctx context.Context, employeeID string, date time.Time) (attendance.DailyTimesheet, error) {
	var ts attendance.DailyTimesheet
	err := r.store.read(ctx, func(t *tables) error {
		found, ok := t.timesheets[dateKey(employeeID, base.Date(date))]
		if !ok || !found.IsActive {
			return attendance.ErrTimesheetNotFound
		}
		ts = cloneTimesheet(found)
		return nil
	})
	return ts, err
}

func (r *AttendanceRepository) ListTimesheets(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.DailyTimesheet, error) {
	return r.list(ctx, from, to, func(ts attendance.DailyTimesheet) bool { return ts.EmployeeID == employeeID })
}

func (r *AttendanceRepository) ListTimesheetsNeedingReview(ctx context.Context, from, to time.Time) ([]attendance.DailyTimesheet, error) {
	return r.list(ctx, from, to, attendance.DailyTimesheet.NeedsReview)
}

func (r *AttendanceRepository) list(ctx context.Context, from, to time.Time, keep func(attendance.DailyTimesheet) bool) ([]attendance.DailyTimesheet, error) {
	from, to = base.Date(from), base.Date(to)
	var result []attendance.DailyTimesheet
	err := r.store.read(ctx, func(t *tables) error {
		for _, ts := range t.timesheets {
			if !ts.IsActive || ts.Date.Before(from) || ts.Date.After(to) || !keep(ts) {
				continue
			}
			result = append(result, cloneTimesheet(ts))
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].EmployeeID < result[j].EmployeeID
	})
	return result, err
}

func (r *AttendanceRepository) CreateTimesheet(ctx context.Context, ts attendance.DailyTimesheet) (attendance.DailyTimesheet, error) {
	ts.Date = base.Date(ts.Date)
	ts.RowVersion = 1
	ts = cloneTimesheet(ts)
	err := r.store.write(ctx, func(t *tables) error {
		key := dateKey(ts.EmployeeID, ts.Date)
		if existing, ok := t.timesheets[key]; ok && existing.IsActive {
			return &base.StaleVersionError{Entity: "timesheet", ID: existing.ID, Expected: 0, Actual: existing.RowVersion}
		}
		t.timesheets[key] = ts
		return nil
	})
	if err != nil {
		return attendance.DailyTimesheet{}, err
	}
	return cloneTimesheet(ts), nil
}

func (r *AttendanceRepository) UpdateTimesheet(ctx context.Context, ts attendance.DailyTimesheet) (attendance.DailyTimesheet, error) {
	ts.Date = base.Date(ts.Date)
	ts = cloneTimesheet(ts)
	err := r.store.write(ctx, func(t *tables) error {
		key := dateKey(ts.EmployeeID, ts.Date)
		existing, ok := t.timesheets[key]
		if !ok || !existing.IsActive {
			return attendance.ErrTimesheetNotFound
		}
		if err := base.CheckVersion("timesheet", existing.ID, existing.RowVersion, ts.RowVersion); err != nil {
			return err
		}
		ts.ID = existing.ID
		ts.CreatedAtUtc, ts.CreatedBy = existing.CreatedAtUtc, existing.CreatedBy
		ts.RowVersion++
		t.timesheets[key] = ts
		return nil
	})
	if err != nil {
		return attendance.DailyTimesheet{}, err
	}
	return cloneTimesheet(ts), nil
}

func cloneTimesheet(ts attendance.DailyTimesheet) attendance.DailyTimesheet {
	ts.Issues = slices.Clone(ts.Issues)
	if ts.FirstInTime != nil {
		v := *ts.FirstInTime
		ts.FirstInTime = &v
	}
	if ts.LastOutTime != nil {
		v := *ts.LastOutTime
		ts.LastOutTime = &v
	}
	return ts
}
