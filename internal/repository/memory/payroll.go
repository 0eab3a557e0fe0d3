package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

type PayrollRepository struct {
	store *Store
}

func NewPayrollRepository(store *Store) *PayrollRepository {
	return &PayrollRepository{store: store}
}

// ========== RUNS ==========

func (r *PayrollRepository) CreateRun(ctx context.Context, run payroll.WageRun) (payroll.WageRun, error) {
	run.RowVersion = 1
	err := r.store.write(ctx, func(t *tables) error {
		t.runs[run.ID] = run
		return nil
	})
	return run, err
}

func (r *PayrollRepository) GetRun(ctx context.Context, id string) (payroll.WageRun, error) {
	var run payroll.WageRun
	err := r.store.read(ctx, func(t *tables) error {
		found, ok := t.runs[id]
		if !ok || !found.IsActive {
			return payroll.ErrWageRunNotFound
		}
		run = found
		return nil
	})
	return run, err
}

func (r *PayrollRepository) ListRuns(ctx context.Context, filter payroll.RunFilter) ([]payroll.WageRun, error) {
	var result []payroll.WageRun
	err := r.store.read(ctx, func(t *tables) error {
		for _, run := range t.runs {
			if !run.IsActive {
				continue
			}
			if filter.Status != nil && run.Status != *filter.Status {
				continue
			}
			if filter.Branch != nil && (run.Branch == nil || *run.Branch != *filter.Branch) {
				continue
			}
			result = append(result, run)
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartDate.Equal(result[j].StartDate) {
			return result[i].StartDate.After(result[j].StartDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, err
}

func (r *PayrollRepository) UpdateRun(ctx context.Context, run payroll.WageRun) (payroll.WageRun, error) {
	err := r.store.write(ctx, func(t *tables) error {
		existing, ok := t.runs[run.ID]
		if !ok || !existing.IsActive {
			return payroll.ErrWageRunNotFound
		}
		if err := base.CheckVersion("wage run", run.ID, existing.RowVersion, run.RowVersion); err != nil {
			return err
		}
		run.RowVersion++
		t.runs[run.ID] = run
		return nil
	})
	if err != nil {
		return payroll.WageRun{}, err
	}
	return run, nil
}

func (r *PayrollRepository) DeleteRun(ctx context.Context, run payroll.WageRun) error {
	return r.store.write(ctx, func(t *tables) error {
		existing, ok := t.runs[run.ID]
		if !ok || !existing.IsActive {
			return payroll.ErrWageRunNotFound
		}
		if err := base.CheckVersion("wage run", run.ID, existing.RowVersion, run.RowVersion); err != nil {
			return err
		}
		run.IsActive = false
		run.RowVersion++
		t.runs[run.ID] = run
		return nil
	})
}

// ========== LINES ==========

func (r *PayrollRepository) CreateLine(ctx context.Context, line payroll.WageRunLine) (payroll.WageRunLine, error) {
	line.RowVersion = 1
	line = cloneLine(line)
	err := r.store.write(ctx, func(t *tables) error {
		for _, existing := range t.lines {
			if existing.IsActive && existing.WageRunID == line.WageRunID && existing.EmployeeID == line.EmployeeID {
				return &base.StaleVersionError{Entity: "wage run line", ID: existing.ID, Actual: existing.RowVersion}
			}
		}
		t.lines[line.ID] = line
		return nil
	})
	if err != nil {
		return payroll.WageRunLine{}, err
	}
	return cloneLine(line), nil
}

func (r *PayrollRepository) GetLine(ctx context.Context, id string) (payroll.WageRunLine, error) {
	var line payroll.WageRunLine
	err := r.store.read(ctx, func(t *tables) error {
		found, ok := t.lines[id]
		if !ok || !found.IsActive {
			return payroll.ErrWageRunLineNotFound
		}
		line = cloneLine(found)
		return nil
	})
	return line, err
}

func (r *PayrollRepository) ListLines(ctx context.Context, runID string) ([]payroll.WageRunLine, error) {
	var result []payroll.WageRunLine
	err := r.store.read(ctx, func(t *tables) error {
		for _, l := range t.lines {
			if l.IsActive && l.WageRunID == runID {
				result = append(result, cloneLine(l))
			}
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].EmployeeID < result[j].EmployeeID })
	return result, err
}

func (r *PayrollRepository) UpdateLine(ctx context.Context, line payroll.WageRunLine) (payroll.WageRunLine, error) {
	line = cloneLine(line)
	err := r.store.write(ctx, func(t *tables) error {
		existing, ok := t.lines[line.ID]
		if !ok || !existing.IsActive {
			return payroll.ErrWageRunLineNotFound
		}
		if err := base.CheckVersion("wage run line", line.ID, existing.RowVersion, line.RowVersion); err != nil {
			return err
		}
		line.RowVersion++
		t.lines[line.ID] = line
		return nil
	})
	if err != nil {
		return payroll.WageRunLine{}, err
	}
	return cloneLine(line), nil
}

func (r *PayrollRepository) DeleteLines(ctx context.Context, runID string, employeeIDs []string) error {
	return r.store.write(ctx, func(t *tables) error {
		for id, l := range t.lines {
			if !l.IsActive || l.WageRunID != runID {
				continue
			}
			if employeeIDs != nil && !slices.Contains(employeeIDs, l.EmployeeID) {
				continue
			}
			l.IsActive = false
			l.RowVersion++
			t.lines[id] = l
		}
		return nil
	})
}

func (r *PayrollRepository) LockLines(ctx context.Context, runID string) error {
	return r.store.write(ctx, func(t *tables) error {
		for id, l := range t.lines {
			if l.IsActive && l.WageRunID == runID {
				l.IsLocked = true
				l.RowVersion++
				t.lines[id] = l
			}
		}
		return nil
	})
}

// ========== RATE OVERRIDES ==========

func (r *PayrollRepository) UpsertRateOverride(ctx context.Context, override payroll.RateOverride) (payroll.RateOverride, error) {
	err := r.store.write(ctx, func(t *tables) error {
		for id, existing := range t.overrides {
			if existing.IsActive && existing.WageRunID == override.WageRunID && existing.EmployeeID == override.EmployeeID {
				override.ID = id
				override.CreatedAtUtc, override.CreatedBy = existing.CreatedAtUtc, existing.CreatedBy
				override.RowVersion = existing.RowVersion + 1
				t.overrides[id] = override
				return nil
			}
		}
		override.RowVersion = 1
		t.overrides[override.ID] = override
		return nil
	})
	return override, err
}

func (r *PayrollRepository) GetRateOverride(ctx context.Context, runID, employeeID string) (payroll.RateOverride, error) {
	var result payroll.RateOverride
	err := r.store.read(ctx, func(t *tables) error {
		for _, o := range t.overrides {
			if o.IsActive && o.WageRunID == runID && o.EmployeeID == employeeID {
				result = o
				return nil
			}
		}
		return payroll.ErrRateOverrideNotFound
	})
	return result, err
}

func (r *PayrollRepository) DeleteRateOverrides(ctx context.Context, runID string) error {
	return r.store.write(ctx, func(t *tables) error {
		for id, o := range t.overrides {
			if o.IsActive && o.WageRunID == runID {
				o.IsActive = false
				o.RowVersion++
				t.overrides[id] = o
			}
		}
		return nil
	})
}

// ========== LOANS ==========

func (r *PayrollRepository) CreateLoan(ctx context.Context, loan payroll.EmployeeLoan) (payroll.EmployeeLoan, error) {
	loan.RowVersion = 1
	err := r.store.write(ctx, func(t *tables) error {
		t.loans[loan.ID] = loan
		return nil
	})
	return loan, err
}

func (r *PayrollRepository) GetLoan(ctx context.Context, id string) (payroll.EmployeeLoan, error) {
	var loan payroll.EmployeeLoan
	err := r.store.read(ctx, func(t *tables) error {
		found, ok := t.loans[id]
		if !ok {
			return payroll.ErrLoanNotFound
		}
		loan = found
		return nil
	})
	return loan, err
}

func (r *PayrollRepository) ListActiveLoans(ctx context.Context, employeeID string, asOf time.Time) ([]payroll.EmployeeLoan, error) {
	var result []payroll.EmployeeLoan
	err := r.store.read(ctx, func(t *tables) error {
		for _, l := range t.loans {
			if l.EmployeeID == employeeID && l.IsActive && l.OutstandingBalance.GreaterThan(decimal.Zero) && !l.StartDate.After(asOf) {
				result = append(result, l)
			}
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, err
}

func (r *PayrollRepository) UpdateLoan(ctx context.Context, loan payroll.EmployeeLoan) (payroll.EmployeeLoan, error) {
	err := r.store.write(ctx, func(t *tables) error {
		existing, ok := t.loans[loan.ID]
		if !ok {
			return payroll.ErrLoanNotFound
		}
		if err := base.CheckVersion("employee loan", loan.ID, existing.RowVersion, loan.RowVersion); err != nil {
			return err
		}
		loan.RowVersion++
		t.loans[loan.ID] = loan
		return nil
	})
	if err != nil {
		return payroll.EmployeeLoan{}, err
	}
	return loan, nil
}

// ========== DEDUCTIONS ==========

func (r *PayrollRepository) CreateDeduction(ctx context.Context, deduction payroll.EmployeeDeduction) (payroll.EmployeeDeduction, error) {
	deduction.RowVersion = 1
	err := r.store.write(ctx, func(t *tables) error {
		t.deductions[deduction.ID] = deduction
		return nil
	})
	return deduction, err
}

func (r *PayrollRepository) ListDeductions(ctx context.Context, employeeID string, from, to time.Time) ([]payroll.EmployeeDeduction, error) {
	var result []payroll.EmployeeDeduction
	err := r.store.read(ctx, func(t *tables) error {
		for _, d := range t.deductions {
			if d.EmployeeID == employeeID && d.IsActive && overlaps(d.EffectiveDate, d.EndDate, from, to) {
				result = append(result, d)
			}
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, err
}

func cloneLine(l payroll.WageRunLine) payroll.WageRunLine {
	l.DeductionsDetail = maps.Clone(l.DeductionsDetail)
	l.LoanDeductions = slices.Clone(l.LoanDeductions)
	return l
}
