package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
)

// ReconcileJobs re-reconciles recent days so late punches and sessions left open are picked up
// without anyone asking.
type ReconcileJobs struct {
	attendanceService attendance.AttendanceService
	employeeRepo      employee.EmployeeRepository
	lookbackDays      int
	now               func() time.Time
}

func NewReconcileJobs(
	attendanceService attendance.AttendanceService,
	employeeRepo employee.EmployeeRepository,
	lookbackDays int,
	now func() time.Time,
) *ReconcileJobs {
	if now == nil {
		now = time.Now
	}
	return &ReconcileJobs{
		attendanceService: attendanceService,
		employeeRepo:      employeeRepo,
		lookbackDays:      lookbackDays,
		now:               now,
	}
}

func (j *ReconcileJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob("reconcile_recent_timesheets", interval, j.ReconcileRecentTimesheets)
}

// ReconcileRecentTimesheets walks today and the previous lookbackDays for every active employee,
// where today is the employee's local date.
// Data-quality issues are logged and do not stop the sweep.
func (j *ReconcileJobs) ReconcileRecentTimesheets(ctx context.Context) error {
	employees, err := j.employeeRepo.ListActive(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to list active employees: %w", err)
	}

	now := j.now()
	slog.Info("Cron: Reconciling recent timesheets", "employees", len(employees), "lookback_days", j.lookbackDays)

	reconciled, issues, failed := 0, 0, 0
	for _, emp := range employees {
		if err := ctx.Err(); err != nil {
			return err
		}
		// timesheet dates are local to the employee
		today := base.Date(now.In(emp.Location()))
		from := today.AddDate(0, 0, -j.lookbackDays)
		report, err := j.attendanceService.ReconcileRange(ctx, emp.ID, from, today)
		if err != nil {
			failed++
			slog.Error("Cron: Failed to reconcile employee", "employee_id", emp.ID, "error", err)
			continue
		}
		reconciled += len(report.Timesheets)
		issues += len(report.Issues)
		for _, issue := range report.Issues {
			slog.Warn("Cron: Timesheet needs review", "employee_id", emp.ID, "error", issue)
		}
	}

	slog.Info("Cron: Reconcile sweep finished", "timesheets", reconciled, "issues", issues, "failed_employees", failed)
	if failed > 0 {
		return fmt.Errorf("failed to reconcile %d of %d employees", failed, len(employees))
	}
	return nil
}
