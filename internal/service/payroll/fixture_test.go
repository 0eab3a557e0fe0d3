package payroll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/calendar"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/lock"
	"github.com/cmlabs-hris/hris-payroll-go/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC)

// week1 is Monday 2024-03-04 through Sunday 2024-03-10.
func week1() (time.Time, time.Time) {
	return time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

type payrollFixture struct {
	store    *memory.Store
	emps     *memory.EmployeeRepository
	att      *memory.AttendanceRepository
	cal      *memory.CalendarProvider
	repo     payroll.PayrollRepository
	locker   lock.Locker
	service  payroll.PayrollService
	policy   CalcPolicy
	wrapRepo func(payroll.PayrollRepository) payroll.PayrollRepository
	wrapCal  func(calendar.Provider) calendar.Provider
}

type fixtureOption func(*payrollFixture)

func withPolicy(p CalcPolicy) fixtureOption {
	return func(f *payrollFixture) { f.policy = p }
}

func withRepo(wrap func(payroll.PayrollRepository) payroll.PayrollRepository) fixtureOption {
	return func(f *payrollFixture) { f.wrapRepo = wrap }
}

func withCalendar(wrap func(calendar.Provider) calendar.Provider) fixtureOption {
	return func(f *payrollFixture) { f.wrapCal = wrap }
}

func newPayrollFixture(t *testing.T, opts ...fixtureOption) *payrollFixture {
	t.Helper()
	store := memory.NewStore()
	f := &payrollFixture{
		store:  store,
		emps:   memory.NewEmployeeRepository(store),
		att:    memory.NewAttendanceRepository(store),
		cal:    memory.NewCalendarProvider(store),
		locker: lock.NewLocalLocker(),
		policy: CalcPolicy{TaxRate: decimal.Zero, RequireOvertimeApproval: true},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.repo = memory.NewPayrollRepository(store)
	if f.wrapRepo != nil {
		f.repo = f.wrapRepo(f.repo)
	}

	var cal calendar.Provider = f.cal
	if f.wrapCal != nil {
		cal = f.wrapCal(cal)
	}
	rates := NewRateResolver(f.repo, f.emps, cal)
	calc := NewCalculator(f.att, f.repo, cal, rates, f.policy)
	f.service = NewPayrollService(store, f.repo, f.emps, f.att, calc, f.locker, Options{
		Workers:           4,
		LoanRetryAttempts: 3,
		LoanRetryDelay:    time.Millisecond,
		Now:               func() time.Time { return fixedNow },
	})
	return f
}

func (f *payrollFixture) addEmployee(t *testing.T, id string, mutate ...func(*employee.Employee)) employee.Employee {
	t.Helper()
	emp := employee.Employee{
		ID:                  id,
		EmployeeCode:        "C-" + id,
		FullName:            "Employee " + id,
		Branch:              "jakarta",
		Timezone:            "UTC",
		RateType:            employee.RateTypeHourly,
		HourlyRate:          dec("20"),
		StdOvertimeRate:     decPtr("30"),
		SatOvertimeRate:     decPtr("35"),
		SunOvertimeRate:     decPtr("40"),
		HolidayOvertimeRate: decPtr("50"),
		ShiftStart:          8 * time.Hour,
		ShiftEnd:            17 * time.Hour,
		EmploymentStatus:    employee.EmploymentStatusActive,
		Record:              base.NewRecord(base.SystemActor, fixedNow),
	}
	for _, m := range mutate {
		m(&emp)
	}
	require.NoError(t, f.emps.Save(context.Background(), emp))
	return emp
}

func (f *payrollFixture) addTimesheet(t *testing.T, employeeID string, date time.Time, hours string) {
	t.Helper()
	_, err := f.att.CreateTimesheet(context.Background(), attendance.DailyTimesheet{
		ID:              base.NewID(),
		EmployeeID:      employeeID,
		Date:            date,
		CalculatedHours: dec(hours),
		LeaveHours:      decimal.Zero,
		Status:          attendance.TimesheetReconciled,
		EventCount:      2,
		Record:          base.NewRecord(base.SystemActor, fixedNow),
	})
	require.NoError(t, err)
}

// workWeek books a full 9h shift Monday through Friday of the week starting at monday.
func (f *payrollFixture) workWeek(t *testing.T, employeeID string, monday time.Time) {
	t.Helper()
	for i := 0; i < 5; i++ {
		f.addTimesheet(t, employeeID, monday.AddDate(0, 0, i), "9")
	}
}

func (f *payrollFixture) addLoan(t *testing.T, id, employeeID, balance, installment string) {
	t.Helper()
	_, err := f.repo.CreateLoan(context.Background(), payroll.EmployeeLoan{
		ID:                 id,
		EmployeeID:         employeeID,
		PrincipalAmount:    dec("5000"),
		MonthlyInstallment: dec(installment),
		OutstandingBalance: dec(balance),
		StartDate:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		LoanType:           "cash_advance",
		Record:             base.NewRecord(base.SystemActor, fixedNow),
	})
	require.NoError(t, err)
}

func (f *payrollFixture) createRun(t *testing.T, start, end time.Time) payroll.WageRun {
	t.Helper()
	run, err := f.service.CreateRun(context.Background(), payroll.CreateWageRunRequest{
		StartDate: start.Format("2006-01-02"),
		EndDate:   end.Format("2006-01-02"),
	})
	require.NoError(t, err)
	return run
}

// toReview calculates the run and submits it, returning the run under review.
func (f *payrollFixture) toReview(t *testing.T, run payroll.WageRun) payroll.WageRun {
	t.Helper()
	ctx := context.Background()
	res, err := f.service.Calculate(ctx, payroll.TransitionRequest{RunID: run.ID, RowVersion: run.RowVersion})
	require.NoError(t, err)
	reviewed, err := f.service.SubmitForReview(ctx, payroll.TransitionRequest{RunID: run.ID, RowVersion: res.Run.RowVersion})
	require.NoError(t, err)
	return reviewed
}

func (f *payrollFixture) lineFor(t *testing.T, runID, employeeID string) payroll.WageRunLine {
	t.Helper()
	lines, err := f.repo.ListLines(context.Background(), runID)
	require.NoError(t, err)
	for _, l := range lines {
		if l.EmployeeID == employeeID {
			return l
		}
	}
	t.Fatalf("no line for employee %s in run %s", employeeID, runID)
	return payroll.WageRunLine{}
}

// faultyRepo injects failures into selected repository calls.
type faultyRepo struct {
	payroll.PayrollRepository

	mu               sync.Mutex
	staleLoanUpdates int
	loanUpdateCalls  int
	failFinalize     bool
	afterCreateLine  func()
}

func (r *faultyRepo) UpdateLoan(ctx context.Context, loan payroll.EmployeeLoan) (payroll.EmployeeLoan, error) {
	r.mu.Lock()
	r.loanUpdateCalls++
	if r.staleLoanUpdates > 0 {
		r.staleLoanUpdates--
		r.mu.Unlock()
		return payroll.EmployeeLoan{}, &base.StaleVersionError{Entity: "employee loan", ID: loan.ID, Expected: loan.RowVersion, Actual: loan.RowVersion + 1}
	}
	r.mu.Unlock()
	return r.PayrollRepository.UpdateLoan(ctx, loan)
}

func (r *faultyRepo) UpdateRun(ctx context.Context, run payroll.WageRun) (payroll.WageRun, error) {
	if r.failFinalize && run.Status == payroll.RunStatusFinalized {
		return payroll.WageRun{}, errors.New("connection reset")
	}
	return r.PayrollRepository.UpdateRun(ctx, run)
}

func (r *faultyRepo) CreateLine(ctx context.Context, line payroll.WageRunLine) (payroll.WageRunLine, error) {
	saved, err := r.PayrollRepository.CreateLine(ctx, line)
	if err == nil && r.afterCreateLine != nil {
		r.afterCreateLine()
	}
	return saved, err
}

func (r *faultyRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loanUpdateCalls
}

func empID(i int) string {
	return fmt.Sprintf("emp-%02d", i)
}

// blockingCalendar parks the first overtime lookup until release is closed.
type blockingCalendar struct {
	calendar.Provider

	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newBlockingCalendar() *blockingCalendar {
	return &blockingCalendar{entered: make(chan struct{}), release: make(chan struct{})}
}

func (c *blockingCalendar) wrap(inner calendar.Provider) calendar.Provider {
	c.Provider = inner
	return c
}

func (c *blockingCalendar) ApprovedOvertime(ctx context.Context, employeeID string, from, to time.Time) ([]calendar.OvertimeRequest, error) {
	c.once.Do(func() { close(c.entered) })
	select {
	case <-c.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c.Provider.ApprovedOvertime(ctx, employeeID, from, to)
}
