// Package memory keeps every repository in process memory. It backs the service tests and
// DB_DRIVER=memory local runs.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/calendar"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
)

// Store owns the tables shared by the memory repositories.
// Writes outside a transaction and whole transactions are serialized by txMu;
// a failed transaction restores the snapshot taken when it began.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *tables
}

type tables struct {
	employees  map[string]employee.Employee
	events     []attendance.ClockingEvent
	timesheets map[string]attendance.DailyTimesheet
	runs       map[string]payroll.WageRun
	lines      map[string]payroll.WageRunLine
	overrides  map[string]payroll.RateOverride
	loans      map[string]payroll.EmployeeLoan
	deductions map[string]payroll.EmployeeDeduction
	holidays   []calendar.PublicHoliday
	leave      []calendar.LeaveRequest
	overtime   []calendar.OvertimeRequest
}

func NewStore() *Store {
	return &Store{data: &tables{
		employees:  make(map[string]employee.Employee),
		timesheets: make(map[string]attendance.DailyTimesheet),
		runs:       make(map[string]payroll.WageRun),
		lines:      make(map[string]payroll.WageRunLine),
		overrides:  make(map[string]payroll.RateOverride),
		loans:      make(map[string]payroll.EmployeeLoan),
		deductions: make(map[string]payroll.EmployeeDeduction),
	}}
}

// Stored rows are never mutated in place, so copying the maps is enough for a snapshot.
func (t *tables) clone() *tables {
	return &tables{
		employees:  maps.Clone(t.employees),
		events:     slices.Clone(t.events),
		timesheets: maps.Clone(t.timesheets),
		runs:       maps.Clone(t.runs),
		lines:      maps.Clone(t.lines),
		overrides:  maps.Clone(t.overrides),
		loans:      maps.Clone(t.loans),
		deductions: maps.Clone(t.deductions),
		holidays:   slices.Clone(t.holidays),
		leave:      slices.Clone(t.leave),
		overtime:   slices.Clone(t.overtime),
	}
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// WithinTx implements database.Transactor.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, true))
}

func (s *Store) restore(snapshot *tables) {
	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
}

func (s *Store) write(ctx context.Context, fn func(t *tables) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) read(ctx context.Context, fn func(t *tables) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

func dateKey(employeeID string, date time.Time) string {
	return employeeID + "|" + date.Format("2006-01-02")
}

func overlaps(start time.Time, end *time.Time, from, to time.Time) bool {
	if start.After(to) {
		return false
	}
	return end == nil || !end.Before(from)
}
