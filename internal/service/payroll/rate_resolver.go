package payroll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/calendar"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

const (
	sourceRunOverride = "run_override"
	sourceEmployee    = "employee"
)

// rateTable is the effective rate per tier for one employee within one run.
type rateTable struct {
	employeeID string
	rates      map[payroll.Tier]payroll.Rate
}

// RateResolver maps a (employee, date, bucket) triple to a tier and amount.
// A resolver bound to a run prefers the run's overrides and caches each employee's table.
type RateResolver struct {
	payrollRepo  payroll.PayrollRepository
	employeeRepo employee.EmployeeRepository
	calendar     calendar.Provider
	runID        string

	mu     sync.Mutex
	tables map[string]rateTable
}

func NewRateResolver(payrollRepo payroll.PayrollRepository, employeeRepo employee.EmployeeRepository, cal calendar.Provider) *RateResolver {
	return &RateResolver{
		payrollRepo:  payrollRepo,
		employeeRepo: employeeRepo,
		calendar:     cal,
		tables:       make(map[string]rateTable),
	}
}

// ForRun returns a resolver with an empty cache that consults runID's overrides.
func (r *RateResolver) ForRun(runID string) *RateResolver {
	bound := NewRateResolver(r.payrollRepo, r.employeeRepo, r.calendar)
	bound.runID = runID
	return bound
}

// RateFor resolves a single (employee, date, bucket) lookup.
// The calculator prices whole lines from the same cached rateTable through overtimeTier and rate,
// the two steps resolve combines.
func (r *RateResolver) RateFor(ctx context.Context, employeeID string, date time.Time, bucket payroll.Bucket) (payroll.Rate, error) {
	table, err := r.table(ctx, employeeID)
	if err != nil {
		return payroll.Rate{}, err
	}
	holidays, err := r.calendar.HolidaysBetween(ctx, date, date)
	if err != nil {
		return payroll.Rate{}, fmt.Errorf("failed to load public holidays: %w", err)
	}
	return table.resolve(date, len(holidays) > 0, bucket)
}

func (r *RateResolver) table(ctx context.Context, employeeID string) (rateTable, error) {
	r.mu.Lock()
	cached, ok := r.tables[employeeID]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	emp, err := r.employeeRepo.GetByID(ctx, employeeID)
	if err != nil {
		return rateTable{}, err
	}

	var override *payroll.RateOverride
	if r.runID != "" {
		o, err := r.payrollRepo.GetRateOverride(ctx, r.runID, employeeID)
		switch {
		case err == nil:
			override = &o
		case !errors.Is(err, payroll.ErrRateOverrideNotFound):
			return rateTable{}, fmt.Errorf("failed to get rate override: %w", err)
		}
	}

	table := buildRateTable(emp, override)
	r.mu.Lock()
	r.tables[employeeID] = table
	r.mu.Unlock()
	return table, nil
}

func buildRateTable(emp employee.Employee, override *payroll.RateOverride) rateTable {
	t := rateTable{employeeID: emp.ID, rates: make(map[payroll.Tier]payroll.Rate)}

	set := func(tier payroll.Tier, base *decimal.Decimal, over func(payroll.RateOverride) *decimal.Decimal) {
		if override != nil {
			if v := over(*override); v != nil {
				t.rates[tier] = payroll.Rate{Tier: tier, Amount: *v, Source: sourceRunOverride}
				return
			}
		}
		if base != nil {
			t.rates[tier] = payroll.Rate{Tier: tier, Amount: *base, Source: sourceEmployee}
		}
	}

	hourly := emp.HourlyRate
	set(payroll.TierNormal, &hourly, func(o payroll.RateOverride) *decimal.Decimal { return o.HourlyRate })
	set(payroll.TierStandardOT, emp.StdOvertimeRate, func(o payroll.RateOverride) *decimal.Decimal { return o.StdOvertimeRate })
	set(payroll.TierSaturdayOT, emp.SatOvertimeRate, func(o payroll.RateOverride) *decimal.Decimal { return o.SatOvertimeRate })
	set(payroll.TierSundayOT, emp.SunOvertimeRate, func(o payroll.RateOverride) *decimal.Decimal { return o.SunOvertimeRate })
	set(payroll.TierHolidayOT, emp.HolidayOvertimeRate, func(o payroll.RateOverride) *decimal.Decimal { return o.HolidayOvertimeRate })
	set(payroll.TierDecimalRate, emp.DecRate, func(o payroll.RateOverride) *decimal.Decimal { return o.DecRate })
	return t
}

// overtimeTier picks the tier for overtime hours on date. A configured decimal rate wins over every calendar tier.
func (t rateTable) overtimeTier(date time.Time, holiday bool) payroll.Tier {
	if r, ok := t.rates[payroll.TierDecimalRate]; ok && r.Amount.IsPositive() {
		return payroll.TierDecimalRate
	}
	switch {
	case holiday:
		return payroll.TierHolidayOT
	case date.Weekday() == time.Sunday:
		return payroll.TierSundayOT
	case date.Weekday() == time.Saturday:
		return payroll.TierSaturdayOT
	default:
		return payroll.TierStandardOT
	}
}

func (t rateTable) resolve(date time.Time, holiday bool, bucket payroll.Bucket) (payroll.Rate, error) {
	tier := payroll.TierNormal
	if bucket == payroll.BucketOvertime {
		tier = t.overtimeTier(date, holiday)
	}
	return t.rate(tier, date)
}

func (t rateTable) rate(tier payroll.Tier, date time.Time) (payroll.Rate, error) {
	r, ok := t.rates[tier]
	if !ok || !r.Amount.IsPositive() {
		return payroll.Rate{}, &payroll.RateResolutionError{EmployeeID: t.employeeID, Date: date, Tier: tier}
	}
	return r, nil
}
