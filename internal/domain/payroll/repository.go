package payroll

import (
	"context"
	"time"
)

// PayrollRepository is the persistence contract for wage runs and the loan and deduction
// records they consume. Every update is conditioned on the entity's RowVersion.
type PayrollRepository interface {
	// Runs
	CreateRun(ctx context.Context, run WageRun) (WageRun, error)
	GetRun(ctx context.Context, id string) (WageRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]WageRun, error)
	UpdateRun(ctx context.Context, run WageRun) (WageRun, error)
	// DeleteRun soft-deletes the run row only. Callers delete lines and overrides explicitly.
	DeleteRun(ctx context.Context, run WageRun) error

	// Lines
	CreateLine(ctx context.Context, line WageRunLine) (WageRunLine, error)
	GetLine(ctx context.Context, id string) (WageRunLine, error)
	ListLines(ctx context.Context, runID string) ([]WageRunLine, error)
	UpdateLine(ctx context.Context, line WageRunLine) (WageRunLine, error)
	// DeleteLines soft-deletes the run's lines for the given employees, or all lines when employeeIDs is nil.
	DeleteLines(ctx context.Context, runID string, employeeIDs []string) error
	LockLines(ctx context.Context, runID string) error

	// Rate overrides
	UpsertRateOverride(ctx context.Context, override RateOverride) (RateOverride, error)
	GetRateOverride(ctx context.Context, runID, employeeID string) (RateOverride, error)
	DeleteRateOverrides(ctx context.Context, runID string) error

	// Loans
	CreateLoan(ctx context.Context, loan EmployeeLoan) (EmployeeLoan, error)
	GetLoan(ctx context.Context, id string) (EmployeeLoan, error)
	// ListActiveLoans returns active loans with a positive balance that started on or before asOf.
	ListActiveLoans(ctx context.Context, employeeID string, asOf time.Time) ([]EmployeeLoan, error)
	UpdateLoan(ctx context.Context, loan EmployeeLoan) (EmployeeLoan, error)

	// Deductions
	CreateDeduction(ctx context.Context, deduction EmployeeDeduction) (EmployeeDeduction, error)
	// ListDeductions returns active deductions whose effective range overlaps [from, to].
	ListDeductions(ctx context.Context, employeeID string, from, to time.Time) ([]EmployeeDeduction, error)
}
