package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/repository/memory"
	attendancesvc "github.com/cmlabs-hris/hris-payroll-go/internal/service/attendance"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunOnceJoinsErrors(t *testing.T) {
	s := NewScheduler(context.Background())
	var ran []string
	s.AddJob("ok", time.Hour, func(ctx context.Context) error {
		ran = append(ran, "ok")
		return nil
	})
	s.AddJob("fails", time.Hour, func(ctx context.Context) error {
		ran = append(ran, "fails")
		return errors.New("boom")
	})
	s.AddJob("panics", time.Hour, func(ctx context.Context) error {
		ran = append(ran, "panics")
		panic("unexpected")
	})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "boom")
	assert.ErrorContains(t, err, "panicked")
	assert.Equal(t, []string{"ok", "fails", "panics"}, ran)
}

func TestScheduler_RunsImmediatelyAndStops(t *testing.T) {
	s := NewScheduler(context.Background())
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	s.AddJob("tick", time.Hour, func(ctx context.Context) error {
		calls.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		return nil
	})

	s.Start()
	s.Start()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}
	s.Stop()
	assert.Equal(t, int32(1), calls.Load())
}

func TestReconcileRecentTimesheets(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	attRepo := memory.NewAttendanceRepository(store)
	empRepo := memory.NewEmployeeRepository(store)
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	for _, id := range []string{"emp-1", "emp-2"} {
		require.NoError(t, empRepo.Save(ctx, employee.Employee{
			ID:               id,
			EmployeeCode:     "C-" + id,
			Timezone:         "UTC",
			RateType:         employee.RateTypeHourly,
			HourlyRate:       decimal.NewFromInt(20),
			ShiftStart:       8 * time.Hour,
			ShiftEnd:         17 * time.Hour,
			EmploymentStatus: employee.EmploymentStatusActive,
			Record:           base.NewRecord(base.SystemActor, now),
		}))
	}
	punch := func(empID string, ts time.Time, typ attendance.EventType) {
		_, err := attRepo.AppendEvent(ctx, attendance.ClockingEvent{
			ID: base.NewID(), EmployeeID: empID, Timestamp: ts, EventType: typ, Source: "device",
		})
		require.NoError(t, err)
	}
	punch("emp-1", monday.Add(8*time.Hour), attendance.EventClockIn)
	punch("emp-1", monday.Add(17*time.Hour), attendance.EventClockOut)
	// a clock-out with nothing to close is a data-quality issue, not a job failure
	punch("emp-2", monday.Add(17*time.Hour), attendance.EventClockOut)

	svc := attendancesvc.NewAttendanceService(store, attRepo, empRepo, memory.NewCalendarProvider(store), attendancesvc.Options{
		Now: func() time.Time { return now },
	})
	jobs := NewReconcileJobs(svc, empRepo, 1, func() time.Time { return now })

	require.NoError(t, jobs.ReconcileRecentTimesheets(ctx))

	ts, err := attRepo.GetTimesheet(ctx, "emp-1", monday)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(9).Equal(ts.CalculatedHours))
	assert.Equal(t, attendance.TimesheetReconciled, ts.Status)
}

func TestReconcileRecentTimesheets_UsesEmployeeLocalDate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	attRepo := memory.NewAttendanceRepository(store)
	empRepo := memory.NewEmployeeRepository(store)
	// 01:00 on Wednesday in Jakarta, still Tuesday in UTC
	now := time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC)

	require.NoError(t, empRepo.Save(ctx, employee.Employee{
		ID:               "emp-jkt",
		EmployeeCode:     "C-jkt",
		Timezone:         "Asia/Jakarta",
		RateType:         employee.RateTypeHourly,
		HourlyRate:       decimal.NewFromInt(20),
		ShiftStart:       8 * time.Hour,
		ShiftEnd:         17 * time.Hour,
		EmploymentStatus: employee.EmploymentStatusActive,
		Record:           base.NewRecord(base.SystemActor, now),
	}))
	for _, p := range []struct {
		at  time.Time
		typ attendance.EventType
	}{
		{time.Date(2024, 3, 5, 17, 5, 0, 0, time.UTC), attendance.EventClockIn},
		{time.Date(2024, 3, 5, 17, 35, 0, 0, time.UTC), attendance.EventClockOut},
	} {
		_, err := attRepo.AppendEvent(ctx, attendance.ClockingEvent{
			ID: base.NewID(), EmployeeID: "emp-jkt", Timestamp: p.at, EventType: p.typ, Source: "device",
		})
		require.NoError(t, err)
	}

	svc := attendancesvc.NewAttendanceService(store, attRepo, empRepo, memory.NewCalendarProvider(store), attendancesvc.Options{
		Now: func() time.Time { return now },
	})
	jobs := NewReconcileJobs(svc, empRepo, 0, func() time.Time { return now })
	require.NoError(t, jobs.ReconcileRecentTimesheets(ctx))

	ts, err := attRepo.GetTimesheet(ctx, "emp-jkt", time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, ts.EventCount)

	_, err = attRepo.GetTimesheet(ctx, "emp-jkt", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, attendance.ErrTimesheetNotFound)
}

func TestReconcileRecentTimesheets_StopsOnCancel(t *testing.T) {
	store := memory.NewStore()
	empRepo := memory.NewEmployeeRepository(store)
	attRepo := memory.NewAttendanceRepository(store)
	svc := attendancesvc.NewAttendanceService(store, attRepo, empRepo, memory.NewCalendarProvider(store), attendancesvc.Options{})
	jobs := NewReconcileJobs(svc, empRepo, 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, jobs.ReconcileRecentTimesheets(ctx), context.Canceled)
}
