package payroll

import "context"

type PayrollService interface {
	// Runs
	CreateRun(ctx context.Context, req CreateWageRunRequest) (WageRun, error)
	GetRun(ctx context.Context, id string) (WageRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]WageRun, error)
	DeleteRun(ctx context.Context, req TransitionRequest) error

	// Lifecycle
	Calculate(ctx context.Context, req TransitionRequest) (CalculationResult, error)
	SubmitForReview(ctx context.Context, req TransitionRequest) (WageRun, error)
	Reopen(ctx context.Context, req TransitionRequest) (WageRun, error)
	Finalize(ctx context.Context, req TransitionRequest) (WageRun, error)
	Cancel(ctx context.Context, req TransitionRequest) (WageRun, error)

	// Lines
	ListLines(ctx context.Context, runID string) ([]WageRunLine, error)
	PreviewLine(ctx context.Context, runID, employeeID string) (WageRunLine, error)
	UpdateLine(ctx context.Context, req UpdateLineRequest) (WageRunLine, error)
	SetRateOverride(ctx context.Context, req SetRateOverrideRequest) (RateOverride, error)
	ReviewItems(ctx context.Context, runID string) (ReviewReport, error)
}
