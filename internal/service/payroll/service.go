package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/lock"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Workers           int
	LoanRetryAttempts int
	LoanRetryDelay    time.Duration
	// LockTTL bounds how long a crashed holder can block a run.
	LockTTL time.Duration
	Now     func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 8
	}
	if o.LoanRetryAttempts <= 0 {
		o.LoanRetryAttempts = 3
	}
	if o.LoanRetryDelay <= 0 {
		o.LoanRetryDelay = 50 * time.Millisecond
	}
	if o.LockTTL <= 0 {
		o.LockTTL = 5 * time.Minute
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type PayrollServiceImpl struct {
	tx             database.Transactor
	payrollRepo    payroll.PayrollRepository
	employeeRepo   employee.EmployeeRepository
	attendanceRepo attendance.AttendanceRepository
	calculator     *Calculator
	locker         lock.Locker
	opts           Options
}

func NewPayrollService(
	tx database.Transactor,
	payrollRepo payroll.PayrollRepository,
	employeeRepo employee.EmployeeRepository,
	attendanceRepo attendance.AttendanceRepository,
	calculator *Calculator,
	locker lock.Locker,
	opts Options,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		tx:             tx,
		payrollRepo:    payrollRepo,
		employeeRepo:   employeeRepo,
		attendanceRepo: attendanceRepo,
		calculator:     calculator,
		locker:         locker,
		opts:           opts.withDefaults(),
	}
}

// ========== RUNS ==========

func (s *PayrollServiceImpl) CreateRun(ctx context.Context, req payroll.CreateWageRunRequest) (payroll.WageRun, error) {
	if err := req.Validate(); err != nil {
		return payroll.WageRun{}, err
	}
	start, _ := time.Parse("2006-01-02", req.StartDate)
	end, _ := time.Parse("2006-01-02", req.EndDate)

	run := payroll.WageRun{
		ID:        base.NewID(),
		StartDate: base.Date(start),
		EndDate:   base.Date(end),
		Status:    payroll.RunStatusDraft,
		Branch:    req.Branch,
		Notes:     req.Notes,
		Record:    base.NewRecord(base.ActorFrom(ctx), s.opts.Now()),
	}
	created, err := s.payrollRepo.CreateRun(ctx, run)
	if err != nil {
		return payroll.WageRun{}, err
	}
	slog.Info("Wage run created", "run_id", created.ID, "start", req.StartDate, "end", req.EndDate)
	return created, nil
}

func (s *PayrollServiceImpl) GetRun(ctx context.Context, id string) (payroll.WageRun, error) {
	return s.payrollRepo.GetRun(ctx, id)
}

func (s *PayrollServiceImpl) ListRuns(ctx context.Context, filter payroll.RunFilter) ([]payroll.WageRun, error) {
	return s.payrollRepo.ListRuns(ctx, filter)
}

// DeleteRun soft-deletes a run that never produced pay, along with its lines and overrides.
func (s *PayrollServiceImpl) DeleteRun(ctx context.Context, req payroll.TransitionRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	release, err := s.obtainRunLock(ctx, req.RunID)
	if err != nil {
		return err
	}
	defer release()
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		run, err := s.loadForTransition(ctx, req, "delete",
			payroll.RunStatusDraft, payroll.RunStatusCalculated, payroll.RunStatusCancelled)
		if err != nil {
			return err
		}
		if err := s.payrollRepo.DeleteLines(ctx, run.ID, nil); err != nil {
			return err
		}
		if err := s.payrollRepo.DeleteRateOverrides(ctx, run.ID); err != nil {
			return err
		}
		run.Touch(base.ActorFrom(ctx), s.opts.Now())
		return s.payrollRepo.DeleteRun(ctx, run)
	})
}

// ========== LIFECYCLE ==========

// Calculate recomputes every in-scope line. Each line is replaced in its own transaction, so a
// cancelled or failed batch keeps the lines already written and leaves the run status untouched.
func (s *PayrollServiceImpl) Calculate(ctx context.Context, req payroll.TransitionRequest) (payroll.CalculationResult, error) {
	if err := req.Validate(); err != nil {
		return payroll.CalculationResult{}, err
	}

	release, err := s.obtainRunLock(ctx, req.RunID)
	if err != nil {
		return payroll.CalculationResult{}, err
	}
	defer release()

	run, err := s.loadForTransition(ctx, req, "calculate", payroll.RunStatusDraft, payroll.RunStatusCalculated)
	if err != nil {
		return payroll.CalculationResult{}, err
	}

	employees, err := s.employeeRepo.ListActive(ctx, run.Branch)
	if err != nil {
		return payroll.CalculationResult{}, fmt.Errorf("failed to list employees in scope: %w", err)
	}
	inScope := make(map[string]bool, len(employees))
	for _, emp := range employees {
		inScope[emp.ID] = true
	}

	existing, err := s.payrollRepo.ListLines(ctx, run.ID)
	if err != nil {
		return payroll.CalculationResult{}, fmt.Errorf("failed to list wage run lines: %w", err)
	}
	var stale []string
	for _, l := range existing {
		if !inScope[l.EmployeeID] {
			stale = append(stale, l.EmployeeID)
		}
	}
	result := payroll.CalculationResult{LinesRemoved: len(stale)}
	if len(stale) > 0 {
		if err := s.payrollRepo.DeleteLines(ctx, run.ID, stale); err != nil {
			return payroll.CalculationResult{}, fmt.Errorf("failed to remove out-of-scope lines: %w", err)
		}
	}

	calc := s.calculator.ForRun(run.ID)
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for _, emp := range employees {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			line, err := s.replaceLine(gCtx, calc, run, emp)
			if err != nil {
				return fmt.Errorf("employee %s: %w", emp.ID, err)
			}
			mu.Lock()
			result.LinesWritten++
			if line.Status == payroll.LineStatusFlagged {
				result.FlaggedLines++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("Wage run calculation aborted", "run_id", run.ID, "lines_written", result.LinesWritten, "error", err)
		return payroll.CalculationResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return payroll.CalculationResult{}, err
	}

	run.Status = payroll.RunStatusCalculated
	run.Touch(base.ActorFrom(ctx), s.opts.Now())
	updated, err := s.payrollRepo.UpdateRun(ctx, run)
	if err != nil {
		return payroll.CalculationResult{}, err
	}
	result.Run = updated

	slog.Info("Wage run calculated", "run_id", run.ID, "lines", result.LinesWritten, "flagged", result.FlaggedLines, "removed", result.LinesRemoved)
	return result, nil
}

func (s *PayrollServiceImpl) replaceLine(ctx context.Context, calc *Calculator, run payroll.WageRun, emp employee.Employee) (payroll.WageRunLine, error) {
	line, err := calc.ComputeLine(ctx, run, emp)
	if err != nil {
		return payroll.WageRunLine{}, err
	}
	line.ID = base.NewID()
	line.Record = base.NewRecord(base.ActorFrom(ctx), s.opts.Now())
	if line.Status == payroll.LineStatusFlagged {
		slog.Warn("Wage run line flagged", "run_id", run.ID, "employee_id", emp.ID, "reason", line.FlagReason)
	}

	var saved payroll.WageRunLine
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.payrollRepo.GetRun(ctx, run.ID)
		if err != nil {
			return err
		}
		if current.Status != payroll.RunStatusDraft && current.Status != payroll.RunStatusCalculated {
			return &payroll.TransitionError{RunID: run.ID, From: current.Status, Action: "write lines of"}
		}
		if err := s.payrollRepo.DeleteLines(ctx, run.ID, []string{emp.ID}); err != nil {
			return err
		}
		saved, err = s.payrollRepo.CreateLine(ctx, line)
		return err
	})
	return saved, err
}

func (s *PayrollServiceImpl) SubmitForReview(ctx context.Context, req payroll.TransitionRequest) (payroll.WageRun, error) {
	return s.simpleTransition(ctx, req, "submit for review", payroll.RunStatusUnderReview, payroll.RunStatusCalculated)
}

// Reopen sends a run under review back to calculated so it can be recalculated or edited.
func (s *PayrollServiceImpl) Reopen(ctx context.Context, req payroll.TransitionRequest) (payroll.WageRun, error) {
	return s.simpleTransition(ctx, req, "reopen", payroll.RunStatusCalculated, payroll.RunStatusUnderReview)
}

// Finalize locks the run's lines and amortizes loans in one transaction. Any failure leaves the run under review.
func (s *PayrollServiceImpl) Finalize(ctx context.Context, req payroll.TransitionRequest) (payroll.WageRun, error) {
	if err := req.Validate(); err != nil {
		return payroll.WageRun{}, err
	}

	release, err := s.obtainRunLock(ctx, req.RunID)
	if err != nil {
		return payroll.WageRun{}, err
	}
	defer release()

	var finalized payroll.WageRun
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		run, err := s.loadForTransition(ctx, req, "finalize", payroll.RunStatusUnderReview)
		if err != nil {
			return err
		}

		lines, err := s.payrollRepo.ListLines(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("failed to list wage run lines: %w", err)
		}
		for _, l := range lines {
			if l.Status == payroll.LineStatusFlagged {
				return payroll.ErrRunHasFlaggedLines
			}
		}

		if err := s.payrollRepo.LockLines(ctx, run.ID); err != nil {
			return err
		}
		lines, err = s.payrollRepo.ListLines(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("failed to list wage run lines: %w", err)
		}

		for _, line := range lines {
			if len(line.LoanDeductions) == 0 {
				continue
			}
			if err := s.settleLoans(ctx, line); err != nil {
				return err
			}
		}

		now := s.opts.Now().UTC()
		run.RunDate = &now
		run.Status = payroll.RunStatusFinalized
		run.Touch(base.ActorFrom(ctx), now)
		finalized, err = s.payrollRepo.UpdateRun(ctx, run)
		return err
	})
	if err != nil {
		return payroll.WageRun{}, err
	}

	slog.Info("Wage run finalized", "run_id", finalized.ID)
	return finalized, nil
}

// settleLoans decrements each loan the line deducts from, re-capping the deduction to the balance
// left at finalization. A stale loan version is reloaded and retried a bounded number of times.
func (s *PayrollServiceImpl) settleLoans(ctx context.Context, line payroll.WageRunLine) error {
	changed := false
	for i, ld := range line.LoanDeductions {
		var applied decimal.Decimal
		backoff := retry.WithMaxRetries(uint64(s.opts.LoanRetryAttempts-1), retry.NewConstant(s.opts.LoanRetryDelay))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			loan, err := s.payrollRepo.GetLoan(ctx, ld.LoanID)
			if err != nil {
				return err
			}
			applied = decimal.Max(decimal.Zero, decimal.Min(ld.Amount, loan.OutstandingBalance))
			loan.OutstandingBalance = loan.OutstandingBalance.Sub(applied)
			if !loan.OutstandingBalance.IsPositive() {
				loan.OutstandingBalance = decimal.Zero
				loan.IsActive = false
			}
			loan.Touch(base.ActorFrom(ctx), s.opts.Now())
			if _, err := s.payrollRepo.UpdateLoan(ctx, loan); err != nil {
				if base.IsRetryable(err) {
					slog.Warn("Loan balance changed concurrently, retrying", "loan_id", loan.ID, "run_id", line.WageRunID)
					return retry.RetryableError(err)
				}
				return err
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to settle loan %s: %w", ld.LoanID, err)
		}
		if !applied.Equal(ld.Amount) {
			line.LoanDeductions[i].Amount = applied
			changed = true
		}
	}
	if !changed {
		return nil
	}

	line.DeductionLoan = decimal.Zero
	for _, ld := range line.LoanDeductions {
		line.DeductionLoan = line.DeductionLoan.Add(ld.Amount)
	}
	line.TotalWage = line.ComputeTotal()
	mustBalance(line)
	line.Touch(base.ActorFrom(ctx), s.opts.Now())
	if _, err := s.payrollRepo.UpdateLine(ctx, line); err != nil {
		return fmt.Errorf("failed to re-cap loan deduction: %w", err)
	}
	return nil
}

// Cancel abandons a run from any non-terminal status. Lines and overrides are removed with it.
func (s *PayrollServiceImpl) Cancel(ctx context.Context, req payroll.TransitionRequest) (payroll.WageRun, error) {
	if err := req.Validate(); err != nil {
		return payroll.WageRun{}, err
	}
	release, err := s.obtainRunLock(ctx, req.RunID)
	if err != nil {
		return payroll.WageRun{}, err
	}
	defer release()
	var cancelled payroll.WageRun
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		run, err := s.loadForTransition(ctx, req, "cancel",
			payroll.RunStatusDraft, payroll.RunStatusCalculated, payroll.RunStatusUnderReview)
		if err != nil {
			return err
		}
		if err := s.payrollRepo.DeleteLines(ctx, run.ID, nil); err != nil {
			return err
		}
		if err := s.payrollRepo.DeleteRateOverrides(ctx, run.ID); err != nil {
			return err
		}
		run.Status = payroll.RunStatusCancelled
		run.Touch(base.ActorFrom(ctx), s.opts.Now())
		cancelled, err = s.payrollRepo.UpdateRun(ctx, run)
		return err
	})
	if err != nil {
		return payroll.WageRun{}, err
	}
	slog.Info("Wage run cancelled", "run_id", cancelled.ID)
	return cancelled, nil
}

// ========== LINES ==========

func (s *PayrollServiceImpl) ListLines(ctx context.Context, runID string) ([]payroll.WageRunLine, error) {
	if _, err := s.payrollRepo.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.payrollRepo.ListLines(ctx, runID)
}

// PreviewLine computes an employee's line for the run without writing it.
func (s *PayrollServiceImpl) PreviewLine(ctx context.Context, runID, employeeID string) (payroll.WageRunLine, error) {
	run, err := s.payrollRepo.GetRun(ctx, runID)
	if err != nil {
		return payroll.WageRunLine{}, err
	}
	emp, err := s.employeeRepo.GetByID(ctx, employeeID)
	if err != nil {
		return payroll.WageRunLine{}, err
	}
	if emp.EmploymentStatus != employee.EmploymentStatusActive || (run.Branch != nil && emp.Branch != *run.Branch) {
		return payroll.WageRunLine{}, payroll.ErrEmployeeNotInRunScope
	}
	return s.calculator.ForRun(run.ID).ComputeLine(ctx, run, emp)
}

// UpdateLine applies a reviewer's manual edit. Every tier carrying hours must end up with a positive rate.
// A flagged line is priced on the way out of the flagged state, and its total is recomputed.
func (s *PayrollServiceImpl) UpdateLine(ctx context.Context, req payroll.UpdateLineRequest) (payroll.WageRunLine, error) {
	if err := req.Validate(); err != nil {
		return payroll.WageRunLine{}, err
	}

	var updated payroll.WageRunLine
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		line, err := s.payrollRepo.GetLine(ctx, req.LineID)
		if err != nil {
			return err
		}
		if err := base.CheckVersion("wage run line", line.ID, line.RowVersion, req.RowVersion); err != nil {
			return err
		}
		run, err := s.payrollRepo.GetRun(ctx, line.WageRunID)
		if err != nil {
			return err
		}
		if run.Status != payroll.RunStatusCalculated && run.Status != payroll.RunStatusUnderReview {
			return &payroll.TransitionError{RunID: run.ID, From: run.Status, Action: "adjust a line of"}
		}
		if line.IsLocked {
			return payroll.ErrLineLocked
		}

		wasFlagged := line.Status == payroll.LineStatusFlagged
		applyLineEdits(&line, req)
		if missing := unpricedTiers(line); len(missing) > 0 {
			return unpricedError(line.EmployeeID, run.StartDate, missing)
		}
		if wasFlagged {
			// flagged lines carry no incentive or deductions yet; explicit amounts in the edit still win
			emp, err := s.employeeRepo.GetByID(ctx, line.EmployeeID)
			if err != nil {
				return err
			}
			if err := s.calculator.Reprice(ctx, run, emp, &line); err != nil {
				return err
			}
			applyLineEdits(&line, req)
		}
		line.Status = payroll.LineStatusManuallyAdjusted
		line.FlagReason = ""
		line.OvertimeHours = line.SumOvertime()
		line.VarianceHours = line.NormalHours.Add(line.OvertimeHours).Sub(line.ProjectedHours)
		note := "manual adjustment: " + req.Note
		if line.VarianceNotes == "" {
			line.VarianceNotes = note
		} else {
			line.VarianceNotes += "; " + note
		}
		line.TotalWage = line.ComputeTotal()
		mustBalance(line)
		line.Touch(base.ActorFrom(ctx), s.opts.Now())

		updated, err = s.payrollRepo.UpdateLine(ctx, line)
		return err
	})
	if err != nil {
		return payroll.WageRunLine{}, err
	}
	slog.Info("Wage run line adjusted", "run_id", updated.WageRunID, "employee_id", updated.EmployeeID, "by", updated.UpdatedBy)
	return updated, nil
}

func applyLineEdits(line *payroll.WageRunLine, req payroll.UpdateLineRequest) {
	set := func(dst *decimal.Decimal, v *decimal.Decimal) {
		if v != nil {
			*dst = *v
		}
	}
	setMoney := func(dst *decimal.Decimal, v *decimal.Decimal) {
		if v != nil {
			*dst = payroll.Money(*v)
		}
	}
	set(&line.NormalHours, req.NormalHours)
	set(&line.OvertimeStdHours, req.OvertimeStdHours)
	set(&line.OvertimeSatHours, req.OvertimeSatHours)
	set(&line.OvertimeSunHours, req.OvertimeSunHours)
	set(&line.OvertimeHolidayHours, req.OvertimeHolidayHours)
	set(&line.OvertimeDecHours, req.OvertimeDecHours)
	set(&line.HourlyRate, req.HourlyRate)
	set(&line.StdOvertimeRate, req.StdOvertimeRate)
	set(&line.SatOvertimeRate, req.SatOvertimeRate)
	set(&line.SunOvertimeRate, req.SunOvertimeRate)
	set(&line.HolidayOvertimeRate, req.HolidayOvertimeRate)
	set(&line.DecRate, req.DecRate)
	setMoney(&line.DeductionTax, req.DeductionTax)
	setMoney(&line.DeductionOther, req.DeductionOther)
	setMoney(&line.IncentiveSupervisor, req.IncentiveSupervisor)
	if req.DeductionOther != nil {
		// a hand-entered total replaces the itemized breakdown
		line.DeductionsDetail = nil
	}
}

// SetRateOverride stores run-specific rates for one employee. They apply from the next calculation.
func (s *PayrollServiceImpl) SetRateOverride(ctx context.Context, req payroll.SetRateOverrideRequest) (payroll.RateOverride, error) {
	if err := req.Validate(); err != nil {
		return payroll.RateOverride{}, err
	}
	run, err := s.payrollRepo.GetRun(ctx, req.RunID)
	if err != nil {
		return payroll.RateOverride{}, err
	}
	if run.Status != payroll.RunStatusDraft && run.Status != payroll.RunStatusCalculated {
		return payroll.RateOverride{}, &payroll.TransitionError{RunID: run.ID, From: run.Status, Action: "override rates of"}
	}
	if _, err := s.employeeRepo.GetByID(ctx, req.EmployeeID); err != nil {
		return payroll.RateOverride{}, err
	}

	override := payroll.RateOverride{
		ID:                  base.NewID(),
		WageRunID:           run.ID,
		EmployeeID:          req.EmployeeID,
		HourlyRate:          req.HourlyRate,
		StdOvertimeRate:     req.StdOvertimeRate,
		SatOvertimeRate:     req.SatOvertimeRate,
		SunOvertimeRate:     req.SunOvertimeRate,
		HolidayOvertimeRate: req.HolidayOvertimeRate,
		DecRate:             req.DecRate,
		Record:              base.NewRecord(base.ActorFrom(ctx), s.opts.Now()),
	}
	return s.payrollRepo.UpsertRateOverride(ctx, override)
}

// ReviewItems lists what a reviewer has to look at before the run can be finalized.
func (s *PayrollServiceImpl) ReviewItems(ctx context.Context, runID string) (payroll.ReviewReport, error) {
	run, err := s.payrollRepo.GetRun(ctx, runID)
	if err != nil {
		return payroll.ReviewReport{}, err
	}
	lines, err := s.payrollRepo.ListLines(ctx, runID)
	if err != nil {
		return payroll.ReviewReport{}, fmt.Errorf("failed to list wage run lines: %w", err)
	}

	report := payroll.ReviewReport{
		RunID:         run.ID,
		Status:        run.Status,
		FlaggedLines:  []payroll.WageRunLine{},
		VarianceLines: []payroll.WageRunLine{},
		Timesheets:    []attendance.DailyTimesheet{},
	}
	inRun := make([]string, 0, len(lines))
	for _, l := range lines {
		inRun = append(inRun, l.EmployeeID)
		if l.Status == payroll.LineStatusFlagged {
			report.FlaggedLines = append(report.FlaggedLines, l)
		}
		if !l.VarianceHours.IsZero() {
			report.VarianceLines = append(report.VarianceLines, l)
		}
	}

	timesheets, err := s.attendanceRepo.ListTimesheetsNeedingReview(ctx, run.StartDate, run.EndDate)
	if err != nil {
		return payroll.ReviewReport{}, fmt.Errorf("failed to list timesheets needing review: %w", err)
	}
	for _, ts := range timesheets {
		if slices.Contains(inRun, ts.EmployeeID) {
			report.Timesheets = append(report.Timesheets, ts)
		}
	}

	report.CanFinalize = run.Status == payroll.RunStatusUnderReview && len(report.FlaggedLines) == 0
	return report, nil
}

// ========== HELPERS ==========

func (s *PayrollServiceImpl) simpleTransition(ctx context.Context, req payroll.TransitionRequest, action string, to payroll.RunStatus, from ...payroll.RunStatus) (payroll.WageRun, error) {
	if err := req.Validate(); err != nil {
		return payroll.WageRun{}, err
	}
	release, err := s.obtainRunLock(ctx, req.RunID)
	if err != nil {
		return payroll.WageRun{}, err
	}
	defer release()
	run, err := s.loadForTransition(ctx, req, action, from...)
	if err != nil {
		return payroll.WageRun{}, err
	}
	run.Status = to
	run.Touch(base.ActorFrom(ctx), s.opts.Now())
	updated, err := s.payrollRepo.UpdateRun(ctx, run)
	if err != nil {
		return payroll.WageRun{}, err
	}
	slog.Info("Wage run status changed", "run_id", run.ID, "action", action, "status", to)
	return updated, nil
}

// loadForTransition fetches the run and checks both the caller's version and the allowed source statuses.
func (s *PayrollServiceImpl) loadForTransition(ctx context.Context, req payroll.TransitionRequest, action string, allowed ...payroll.RunStatus) (payroll.WageRun, error) {
	run, err := s.payrollRepo.GetRun(ctx, req.RunID)
	if err != nil {
		return payroll.WageRun{}, err
	}
	if err := base.CheckVersion("wage run", run.ID, run.RowVersion, req.RowVersion); err != nil {
		return payroll.WageRun{}, err
	}
	if !slices.Contains(allowed, run.Status) {
		return payroll.WageRun{}, &payroll.TransitionError{RunID: run.ID, From: run.Status, Action: action}
	}
	return run, nil
}

func (s *PayrollServiceImpl) obtainRunLock(ctx context.Context, runID string) (func(), error) {
	lk, err := s.locker.Obtain(ctx, "wage-run:"+runID, s.opts.LockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotObtained) {
			return nil, payroll.ErrRunBusy
		}
		return nil, err
	}
	return func() {
		// the request context may already be cancelled
		if err := lk.Release(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Failed to release wage run lock", "run_id", runID, "error", err)
		}
	}, nil
}
