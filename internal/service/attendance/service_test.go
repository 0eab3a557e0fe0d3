package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/calendar"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *memory.Store
	attRepo  *memory.AttendanceRepository
	empRepo  *memory.EmployeeRepository
	calendar *memory.CalendarProvider
	service  attendance.AttendanceService
	employee employee.Employee
}

// monday is 2024-03-04.
func monday() time.Time {
	return time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
}

func at(date time.Time, hh, mm int) time.Time {
	return date.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		store:    store,
		attRepo:  memory.NewAttendanceRepository(store),
		empRepo:  memory.NewEmployeeRepository(store),
		calendar: memory.NewCalendarProvider(store),
		employee: employee.Employee{
			ID:               "emp-1",
			EmployeeCode:     "E001",
			FullName:         "Sari Wulandari",
			Branch:           "jakarta",
			Timezone:         "UTC",
			RateType:         employee.RateTypeHourly,
			HourlyRate:       dec("20"),
			ShiftStart:       8 * time.Hour,
			ShiftEnd:         17 * time.Hour,
			EmploymentStatus: employee.EmploymentStatusActive,
			Record:           base.NewRecord(base.SystemActor, monday()),
		},
	}
	require.NoError(t, f.empRepo.Save(context.Background(), f.employee))
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC) }
	}
	f.service = NewAttendanceService(store, f.attRepo, f.empRepo, f.calendar, opts)
	return f
}

func (f *fixture) punch(t *testing.T, ts time.Time, typ attendance.EventType) {
	t.Helper()
	_, err := f.attRepo.AppendEvent(context.Background(), attendance.ClockingEvent{
		ID:         base.NewID(),
		EmployeeID: f.employee.ID,
		Timestamp:  ts,
		EventType:  typ,
		Source:     "test",
	})
	require.NoError(t, err)
}

func TestReconcile_WeekdayShift(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.punch(t, at(monday(), 8, 2), attendance.EventClockIn)
	f.punch(t, at(monday(), 17, 10), attendance.EventClockOut)

	ts, err := f.service.Reconcile(ctx, f.employee.ID, monday())
	require.NoError(t, err)

	assert.True(t, dec("9.13").Equal(ts.CalculatedHours), "got %s", ts.CalculatedHours)
	assert.Equal(t, attendance.TimesheetReconciled, ts.Status)
	assert.False(t, ts.HasMissingClockOut)
	assert.True(t, dec("182.60").Equal(ts.WageEstimated))
	assert.Equal(t, 2, ts.EventCount)
	require.NotNil(t, ts.FirstInTime)
	assert.True(t, ts.FirstInTime.Equal(at(monday(), 8, 2)))
}

func TestReconcile_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.punch(t, at(monday(), 8, 0), attendance.EventClockIn)
	f.punch(t, at(monday(), 12, 0), attendance.EventClockOut)
	f.punch(t, at(monday(), 13, 0), attendance.EventClockIn)
	f.punch(t, at(monday(), 17, 0), attendance.EventClockOut)

	first, err := f.service.Reconcile(ctx, f.employee.ID, monday())
	require.NoError(t, err)
	second, err := f.service.Reconcile(ctx, f.employee.ID, monday())
	require.NoError(t, err)

	assert.True(t, dec("8").Equal(first.CalculatedHours))
	assert.Equal(t, first.RowVersion, second.RowVersion, "an unchanged day must not be rewritten")
	assert.True(t, first.Equivalent(second))
}

func TestReconcile_MissingClockOutCappedAtShiftEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.punch(t, at(monday(), 8, 0), attendance.EventClockIn)

	ts, err := f.service.Reconcile(ctx, f.employee.ID, monday())
	require.NoError(t, err)

	assert.True(t, ts.HasMissingClockOut)
	assert.Equal(t, attendance.TimesheetFlagged, ts.Status)
	assert.True(t, dec("9").Equal(ts.CalculatedHours), "got %s", ts.CalculatedHours)
	assert.True(t, ts.NeedsReview())
}

func TestReconcile_MissingClockOutAfterShiftEndCountsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.punch(t, at(monday(), 18, 30), attendance.EventClockIn)

	ts, err := f.service.Reconcile(ctx, f.employee.ID, monday())
	require.NoError(t, err)
	assert.True(t, ts.HasMissingClockOut)
	assert.True(t, ts.CalculatedHours.IsZero())
}

func TestReconcile_MissingClockOutZeroPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{MissingClockOutPolicy: attendance.MissingClockOutZero})
	f.punch(t, at(monday(), 8, 0), attendance.EventClockIn)

	ts, err := f.service.Reconcile(ctx, f.employee.ID, monday())
	require.NoError(t, err)
	assert.True(t, ts.HasMissingClockOut)
	assert.True(t, ts.CalculatedHours.IsZero())
}

func TestReconcile_OpenSessionInProgressIsPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{Now: func() time.Time { return at(monday(), 12, 0) }})
	f.punch(t, at(monday(), 8, 0), attendance.EventClockIn)

	ts, err := f.service.Reconcile(ctx, f.employee.ID, monday())
	require.NoError(t, err)
	assert.False(t, ts.HasMissingClockOut)
	assert.Equal(t, attendance.TimesheetPending, ts.Status)
	assert.True(t, ts.CalculatedHours.IsZero())
}

func TestReconcile_ClockOutWithoutClockInIsDataQualityError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.punch(t, at(monday(), 17, 0), attendance.EventClockOut)

	ts, err := f.service.Reconcile(ctx, f.employee.ID, monday())
	require.Error(t, err)
	assert.True(t, errors.Is(err, attendance.ErrClockOutWithoutClockIn))

	var dq *attendance.DataQualityError
	require.True(t, errors.As(err, &dq))
	assert.Equal(t, f.employee.ID, dq.EmployeeID)
	assert.Equal(t, attendance.TimesheetFlagged, ts.Status)

	stored, err := f.attRepo.GetTimesheet(ctx, f.employee.ID, monday())
	require.NoError(t, err)
	assert.Equal(t, attendance.TimesheetFlagged, stored.Status)
	assert.NotEmpty(t, stored.Issues)
}

func TestReconcile_DuplicateClockInIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.punch(t, at(monday(), 8, 0), attendance.EventClockIn)
	f.punch(t, at(monday(), 8, 5), attendance.EventClockIn)
	f.punch(t, at(monday(), 17, 0), attendance.EventClockOut)

	ts, err := f.service.Reconcile(ctx, f.employee.ID, monday())
	require.NoError(t, err)
	assert.True(t, dec("9").Equal(ts.CalculatedHours))
	assert.Equal(t, attendance.TimesheetReconciled, ts.Status)
	assert.Len(t, ts.Issues, 1)
}

func TestReconcile_EmptyDayIsNotStored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	ts, err := f.service.Reconcile(ctx, f.employee.ID, monday())
	require.NoError(t, err)
	assert.Equal(t, attendance.TimesheetPending, ts.Status)
	assert.Empty(t, ts.ID)

	_, err = f.attRepo.GetTimesheet(ctx, f.employee.ID, monday())
	assert.ErrorIs(t, err, attendance.ErrTimesheetNotFound)
}

func TestReconcile_Leave(t *testing.T) {
	ctx := context.Background()

	t.Run("paid full day", func(t *testing.T) {
		f := newFixture(t, Options{})
		require.NoError(t, f.calendar.AddLeave(ctx, calendar.LeaveRequest{
			ID: "l1", EmployeeID: f.employee.ID, StartDate: monday(), EndDate: monday(),
			IsPaid: true, Status: calendar.StatusApproved,
		}))
		ts, err := f.service.Reconcile(ctx, f.employee.ID, monday())
		require.NoError(t, err)
		assert.True(t, dec("9").Equal(ts.CalculatedHours))
		assert.True(t, dec("9").Equal(ts.LeaveHours))
		assert.Equal(t, attendance.TimesheetReconciled, ts.Status)
	})

	t.Run("unpaid full day", func(t *testing.T) {
		f := newFixture(t, Options{})
		require.NoError(t, f.calendar.AddLeave(ctx, calendar.LeaveRequest{
			ID: "l1", EmployeeID: f.employee.ID, StartDate: monday(), EndDate: monday(),
			Status: calendar.StatusApproved,
		}))
		ts, err := f.service.Reconcile(ctx, f.employee.ID, monday())
		require.NoError(t, err)
		assert.True(t, ts.CalculatedHours.IsZero())
		assert.Equal(t, attendance.TimesheetReconciled, ts.Status)
	})

	t.Run("paid half day with work", func(t *testing.T) {
		f := newFixture(t, Options{})
		require.NoError(t, f.calendar.AddLeave(ctx, calendar.LeaveRequest{
			ID: "l1", EmployeeID: f.employee.ID, StartDate: monday(), EndDate: monday(),
			IsHalfDay: true, IsPaid: true, Status: calendar.StatusApproved,
		}))
		f.punch(t, at(monday(), 12, 30), attendance.EventClockIn)
		f.punch(t, at(monday(), 17, 0), attendance.EventClockOut)

		ts, err := f.service.Reconcile(ctx, f.employee.ID, monday())
		require.NoError(t, err)
		assert.True(t, dec("9").Equal(ts.CalculatedHours), "got %s", ts.CalculatedHours)
		assert.True(t, dec("4.5").Equal(ts.LeaveHours))
	})
}

func TestManualOverride_FreezesReconciliation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.punch(t, at(monday(), 8, 0), attendance.EventClockIn)
	f.punch(t, at(monday(), 17, 0), attendance.EventClockOut)

	ts, err := f.service.Reconcile(ctx, f.employee.ID, monday())
	require.NoError(t, err)

	overridden, err := f.service.SetManualOverride(ctx, attendance.ManualOverrideRequest{
		EmployeeID: f.employee.ID,
		Date:       "2024-03-04",
		Hours:      dec("7"),
		Reason:     "badge reader outage",
		RowVersion: ts.RowVersion,
	})
	require.NoError(t, err)
	assert.Equal(t, attendance.TimesheetManuallyOverridden, overridden.Status)

	f.punch(t, at(monday(), 18, 0), attendance.EventClockIn)
	f.punch(t, at(monday(), 20, 0), attendance.EventClockOut)

	again, err := f.service.Reconcile(ctx, f.employee.ID, monday())
	require.NoError(t, err)
	assert.True(t, dec("7").Equal(again.CalculatedHours))
	assert.Equal(t, overridden.RowVersion, again.RowVersion)

	cleared, err := f.service.ClearManualOverride(ctx, attendance.ClearOverrideRequest{
		EmployeeID: f.employee.ID,
		Date:       "2024-03-04",
		RowVersion: again.RowVersion,
	})
	require.NoError(t, err)
	assert.False(t, cleared.IsManualOverride)
	assert.True(t, dec("11").Equal(cleared.CalculatedHours), "got %s", cleared.CalculatedHours)
}

func TestManualOverride_StaleVersionRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.punch(t, at(monday(), 8, 0), attendance.EventClockIn)
	f.punch(t, at(monday(), 17, 0), attendance.EventClockOut)
	ts, err := f.service.Reconcile(ctx, f.employee.ID, monday())
	require.NoError(t, err)

	_, err = f.service.SetManualOverride(ctx, attendance.ManualOverrideRequest{
		EmployeeID: f.employee.ID,
		Date:       "2024-03-04",
		Hours:      dec("8"),
		Reason:     "correction",
		RowVersion: ts.RowVersion + 1,
	})
	require.Error(t, err)
	assert.True(t, base.IsRetryable(err))
}

func TestClearManualOverride_RequiresActiveOverride(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.punch(t, at(monday(), 8, 0), attendance.EventClockIn)
	f.punch(t, at(monday(), 17, 0), attendance.EventClockOut)
	ts, err := f.service.Reconcile(ctx, f.employee.ID, monday())
	require.NoError(t, err)

	_, err = f.service.ClearManualOverride(ctx, attendance.ClearOverrideRequest{
		EmployeeID: f.employee.ID, Date: "2024-03-04", RowVersion: ts.RowVersion,
	})
	assert.ErrorIs(t, err, attendance.ErrManualOverrideNotActive)
}

func TestReconcileRange_ContinuesPastDataQualityErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	tuesday := monday().AddDate(0, 0, 1)
	f.punch(t, at(monday(), 17, 0), attendance.EventClockOut)
	f.punch(t, at(tuesday, 8, 0), attendance.EventClockIn)
	f.punch(t, at(tuesday, 17, 0), attendance.EventClockOut)

	report, err := f.service.ReconcileRange(ctx, f.employee.ID, monday(), monday().AddDate(0, 0, 2))
	require.NoError(t, err)

	require.Len(t, report.Timesheets, 2)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, monday(), report.Issues[0].Date)
	assert.Equal(t, attendance.TimesheetReconciled, report.Timesheets[1].Status)
}

func TestReconcileRange_RejectsInvertedRange(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.service.ReconcileRange(context.Background(), f.employee.ID, monday(), monday().AddDate(0, 0, -1))
	assert.ErrorIs(t, err, attendance.ErrInvalidDateRange)
}

func TestRecordClockEvent_OvernightShiftLandsOnStartDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	night := f.employee
	night.ID = "emp-night"
	night.EmployeeCode = "E002"
	night.ShiftStart = 22 * time.Hour
	night.ShiftEnd = 6 * time.Hour
	require.NoError(t, f.empRepo.Save(ctx, night))

	_, err := f.service.RecordClockEvent(ctx, attendance.RecordClockEventRequest{
		EmployeeID: night.ID, Timestamp: at(monday(), 21, 55), EventType: attendance.EventClockIn,
	})
	require.NoError(t, err)
	ts, err := f.service.RecordClockEvent(ctx, attendance.RecordClockEventRequest{
		EmployeeID: night.ID, Timestamp: at(monday().AddDate(0, 0, 1), 6, 5), EventType: attendance.EventClockOut,
	})
	require.NoError(t, err)

	assert.Equal(t, monday(), ts.Date)
	assert.True(t, dec("8.17").Equal(ts.CalculatedHours), "got %s", ts.CalculatedHours)
	assert.Equal(t, attendance.TimesheetReconciled, ts.Status)
}

func TestRecordClockEvent_RejectsInactiveEmployee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	gone := f.employee
	gone.ID = "emp-gone"
	gone.EmploymentStatus = employee.EmploymentStatusResigned
	require.NoError(t, f.empRepo.Save(ctx, gone))

	_, err := f.service.RecordClockEvent(ctx, attendance.RecordClockEventRequest{
		EmployeeID: gone.ID, Timestamp: at(monday(), 8, 0), EventType: attendance.EventClockIn,
	})
	assert.ErrorIs(t, err, employee.ErrEmployeeInactive)
}
