package payroll

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/calendar"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// CalcPolicy holds the company-wide knobs of line computation.
type CalcPolicy struct {
	// TaxRate is a flat rate applied to gross pay plus incentive, e.g. 0.05.
	TaxRate                 decimal.Decimal
	RequireOvertimeApproval bool
}

var overtimeTiers = []payroll.Tier{
	payroll.TierStandardOT,
	payroll.TierSaturdayOT,
	payroll.TierSundayOT,
	payroll.TierHolidayOT,
	payroll.TierDecimalRate,
}

type Calculator struct {
	attendanceRepo attendance.AttendanceRepository
	payrollRepo    payroll.PayrollRepository
	calendar       calendar.Provider
	rates          *RateResolver
	policy         CalcPolicy
}

func NewCalculator(
	attendanceRepo attendance.AttendanceRepository,
	payrollRepo payroll.PayrollRepository,
	cal calendar.Provider,
	rates *RateResolver,
	policy CalcPolicy,
) *Calculator {
	return &Calculator{
		attendanceRepo: attendanceRepo,
		payrollRepo:    payrollRepo,
		calendar:       cal,
		rates:          rates,
		policy:         policy,
	}
}

// ForRun returns a calculator whose rate lookups are cached for the run.
func (c *Calculator) ForRun(runID string) *Calculator {
	bound := *c
	bound.rates = c.rates.ForRun(runID)
	return &bound
}

// ComputeLine gathers one employee's inputs for the run period and computes the line without persisting it.
// A rate that cannot be resolved yields a flagged line, not an error.
func (c *Calculator) ComputeLine(ctx context.Context, run payroll.WageRun, emp employee.Employee) (payroll.WageRunLine, error) {
	rates := c.rates
	if rates.runID != run.ID {
		rates = rates.ForRun(run.ID)
	}
	table, err := rates.table(ctx, emp.ID)
	if err != nil {
		return payroll.WageRunLine{}, err
	}

	timesheets, err := c.attendanceRepo.ListTimesheets(ctx, emp.ID, run.StartDate, run.EndDate)
	if err != nil {
		return payroll.WageRunLine{}, fmt.Errorf("failed to list timesheets: %w", err)
	}
	facts, err := calendar.LoadFacts(ctx, c.calendar, emp.ID, run.StartDate, run.EndDate)
	if err != nil {
		return payroll.WageRunLine{}, err
	}
	loans, err := c.payrollRepo.ListActiveLoans(ctx, emp.ID, run.EndDate)
	if err != nil {
		return payroll.WageRunLine{}, fmt.Errorf("failed to list employee loans: %w", err)
	}
	deductions, err := c.payrollRepo.ListDeductions(ctx, emp.ID, run.StartDate, run.EndDate)
	if err != nil {
		return payroll.WageRunLine{}, fmt.Errorf("failed to list employee deductions: %w", err)
	}

	return computeLine(lineInput{
		Run:        run,
		Employee:   emp,
		Timesheets: timesheets,
		Facts:      facts,
		Rates:      table,
		Loans:      loans,
		Deductions: deductions,
		Policy:     c.policy,
	}), nil
}

type lineInput struct {
	Run        payroll.WageRun
	Employee   employee.Employee
	Timesheets []attendance.DailyTimesheet
	Facts      calendar.Facts
	Rates      rateTable
	Loans      []payroll.EmployeeLoan
	Deductions []payroll.EmployeeDeduction
	Policy     CalcPolicy
}

// varianceBreakdown splits VarianceHours into named contributions that sum to it.
type varianceBreakdown struct {
	paidLeave       decimal.Decimal
	overtime        decimal.Decimal
	unscheduled     decimal.Decimal
	absence         decimal.Decimal
	absentDays      int
	short           decimal.Decimal
	workDuringLeave decimal.Decimal
	// informational, not part of the sum
	unapproved  decimal.Decimal
	reviewDays  int
	approvalReq bool
}

// computeLine is deterministic: days are walked in order and every amount is decimal.
func computeLine(in lineInput) payroll.WageRunLine {
	emp := in.Employee
	shift := emp.ShiftHours()

	byDate := make(map[time.Time]attendance.DailyTimesheet, len(in.Timesheets))
	for _, ts := range in.Timesheets {
		byDate[base.Date(ts.Date)] = ts
	}

	var (
		normal    = decimal.Zero
		projected = decimal.Zero
		leaveSum  = decimal.Zero
		tierHours = make(map[payroll.Tier]decimal.Decimal)
		firstDay  = make(map[payroll.Tier]time.Time)
		v         = varianceBreakdown{approvalReq: in.Policy.RequireOvertimeApproval}
	)

	for _, day := range base.DaysBetween(in.Run.StartDate, in.Run.EndDate) {
		ts, has := byDate[day]
		hours, leaveHours := decimal.Zero, decimal.Zero
		if has {
			hours, leaveHours = ts.CalculatedHours, ts.LeaveHours
			if ts.NeedsReview() {
				v.reviewDays++
			}
		}
		leaveSum = leaveSum.Add(leaveHours)

		holiday := in.Facts.IsHoliday(day)
		scheduled := emp.WorksOn(day.Weekday()) && !holiday

		dayNormal, dayOT, projectedDay := decimal.Zero, hours, decimal.Zero
		if scheduled {
			dayNormal = decimal.Min(hours, shift)
			dayOT = hours.Sub(dayNormal)
			projectedDay = shift
			if l, ok := in.Facts.Leave(day); ok {
				projectedDay = decimal.Max(decimal.Zero, shift.Sub(l.Hours(shift)))
			}
		}

		paidOT := dayOT
		if in.Policy.RequireOvertimeApproval {
			paidOT = decimal.Min(dayOT, in.Facts.ApprovedOvertimeHours(day))
		}
		v.unapproved = v.unapproved.Add(dayOT.Sub(paidOT))

		if paidOT.IsPositive() {
			tier := in.Rates.overtimeTier(day, holiday)
			tierHours[tier] = tierHours[tier].Add(paidOT)
			if _, seen := firstDay[tier]; !seen {
				firstDay[tier] = day
			}
		}

		normal = normal.Add(dayNormal)
		projected = projected.Add(projectedDay)

		if !scheduled {
			v.unscheduled = v.unscheduled.Add(paidOT)
			continue
		}
		v.paidLeave = v.paidLeave.Add(leaveHours)
		v.overtime = v.overtime.Add(paidOT)
		if emp.IsSalaried() {
			continue
		}
		rest := dayNormal.Sub(projectedDay).Sub(leaveHours)
		switch {
		case rest.IsNegative() && hours.Sub(leaveHours).IsZero():
			v.absence = v.absence.Add(rest)
			v.absentDays++
		case rest.IsNegative():
			v.short = v.short.Add(rest)
		case rest.IsPositive():
			v.workDuringLeave = v.workDuringLeave.Add(rest)
		}
	}

	if emp.IsSalaried() {
		normal = projected.Add(leaveSum)
	}

	line := payroll.WageRunLine{
		WageRunID:            in.Run.ID,
		EmployeeID:           emp.ID,
		Status:               payroll.LineStatusComputed,
		NormalHours:          normal,
		OvertimeStdHours:     tierHours[payroll.TierStandardOT],
		OvertimeSatHours:     tierHours[payroll.TierSaturdayOT],
		OvertimeSunHours:     tierHours[payroll.TierSundayOT],
		OvertimeHolidayHours: tierHours[payroll.TierHolidayOT],
		OvertimeDecHours:     tierHours[payroll.TierDecimalRate],
		ProjectedHours:       projected,
	}
	line.OvertimeHours = line.SumOvertime()
	line.VarianceHours = line.NormalHours.Add(line.OvertimeHours).Sub(projected)
	line.VarianceNotes = v.notes()

	if err := resolveLineRates(&line, in.Rates, firstDay, in.Run.StartDate); err != nil {
		line.Status = payroll.LineStatusFlagged
		line.FlagReason = err.Error()
		line.TotalWage = decimal.Zero
		mustBalance(line)
		return line
	}

	applyPay(&line, emp, in.Loans, in.Deductions, in.Policy)
	mustBalance(line)
	return line
}

// applyPay derives incentive, tax, loan installments and other deductions from the line's priced hours,
// then sets the total.
func applyPay(line *payroll.WageRunLine, emp employee.Employee, loans []payroll.EmployeeLoan, deductions []payroll.EmployeeDeduction, policy CalcPolicy) {
	line.IncentiveSupervisor = decimal.Zero
	if emp.SupervisorIncentive != nil {
		line.IncentiveSupervisor = payroll.Money(*emp.SupervisorIncentive)
	}
	line.DeductionTax = payroll.Money(policy.TaxRate.Mul(line.GrossPay().Add(line.IncentiveSupervisor)))

	line.DeductionLoan = decimal.Zero
	line.LoanDeductions = nil
	for _, loan := range loans {
		due := payroll.Money(loan.DueInstallment())
		if !due.IsPositive() {
			continue
		}
		line.LoanDeductions = append(line.LoanDeductions, payroll.LoanDeduction{LoanID: loan.ID, Amount: due})
		line.DeductionLoan = line.DeductionLoan.Add(due)
	}

	line.DeductionOther = decimal.Zero
	line.DeductionsDetail = nil
	for _, d := range deductions {
		if line.DeductionsDetail == nil {
			line.DeductionsDetail = make(map[string]decimal.Decimal)
		}
		amount := payroll.Money(d.Amount)
		line.DeductionsDetail[d.Name] = line.DeductionsDetail[d.Name].Add(amount)
		line.DeductionOther = line.DeductionOther.Add(amount)
	}

	line.TotalWage = line.ComputeTotal()
}

// Reprice re-derives the money of a line whose rates were supplied by hand, using the employee's
// loans and deductions for the run period.
func (c *Calculator) Reprice(ctx context.Context, run payroll.WageRun, emp employee.Employee, line *payroll.WageRunLine) error {
	if missing := unpricedTiers(*line); len(missing) > 0 {
		return unpricedError(emp.ID, run.StartDate, missing)
	}
	loans, err := c.payrollRepo.ListActiveLoans(ctx, emp.ID, run.EndDate)
	if err != nil {
		return fmt.Errorf("failed to list employee loans: %w", err)
	}
	deductions, err := c.payrollRepo.ListDeductions(ctx, emp.ID, run.StartDate, run.EndDate)
	if err != nil {
		return fmt.Errorf("failed to list employee deductions: %w", err)
	}
	applyPay(line, emp, loans, deductions, c.policy)
	return nil
}

// unpricedTiers lists the tiers that carry hours but no positive rate.
func unpricedTiers(line payroll.WageRunLine) []payroll.Tier {
	pairs := []struct {
		tier        payroll.Tier
		hours, rate decimal.Decimal
	}{
		{payroll.TierNormal, line.NormalHours, line.HourlyRate},
		{payroll.TierStandardOT, line.OvertimeStdHours, line.StdOvertimeRate},
		{payroll.TierSaturdayOT, line.OvertimeSatHours, line.SatOvertimeRate},
		{payroll.TierSundayOT, line.OvertimeSunHours, line.SunOvertimeRate},
		{payroll.TierHolidayOT, line.OvertimeHolidayHours, line.HolidayOvertimeRate},
		{payroll.TierDecimalRate, line.OvertimeDecHours, line.DecRate},
	}
	var missing []payroll.Tier
	for _, p := range pairs {
		if p.hours.IsPositive() && !p.rate.IsPositive() {
			missing = append(missing, p.tier)
		}
	}
	return missing
}

func unpricedError(employeeID string, date time.Time, tiers []payroll.Tier) error {
	errs := make([]error, 0, len(tiers))
	for _, tier := range tiers {
		errs = append(errs, &payroll.RateResolutionError{EmployeeID: employeeID, Date: date, Tier: tier})
	}
	return errors.Join(errs...)
}

// resolveLineRates snapshots the rate of every tier carrying hours. The first unresolvable tier fails the line.
func resolveLineRates(line *payroll.WageRunLine, table rateTable, firstDay map[payroll.Tier]time.Time, periodStart time.Time) error {
	hoursByTier := map[payroll.Tier]decimal.Decimal{
		payroll.TierNormal:      line.NormalHours,
		payroll.TierStandardOT:  line.OvertimeStdHours,
		payroll.TierSaturdayOT:  line.OvertimeSatHours,
		payroll.TierSundayOT:    line.OvertimeSunHours,
		payroll.TierHolidayOT:   line.OvertimeHolidayHours,
		payroll.TierDecimalRate: line.OvertimeDecHours,
	}

	amounts := make(map[payroll.Tier]decimal.Decimal)
	var errs []error
	for _, tier := range append([]payroll.Tier{payroll.TierNormal}, overtimeTiers...) {
		if !hoursByTier[tier].IsPositive() {
			continue
		}
		date, ok := firstDay[tier]
		if !ok {
			date = periodStart
		}
		r, err := table.rate(tier, date)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		amounts[tier] = r.Amount
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	line.HourlyRate = amounts[payroll.TierNormal]
	line.StdOvertimeRate = amounts[payroll.TierStandardOT]
	line.SatOvertimeRate = amounts[payroll.TierSaturdayOT]
	line.SunOvertimeRate = amounts[payroll.TierSundayOT]
	line.HolidayOvertimeRate = amounts[payroll.TierHolidayOT]
	line.DecRate = amounts[payroll.TierDecimalRate]
	return nil
}

func (v varianceBreakdown) notes() string {
	var parts []string
	add := func(label string, hours decimal.Decimal) {
		if !hours.IsZero() {
			parts = append(parts, fmt.Sprintf("%s %sh", label, signedHours(hours)))
		}
	}

	add("paid leave", v.paidLeave)
	if v.approvalReq {
		add("approved overtime", v.overtime)
	} else {
		add("overtime", v.overtime)
	}
	add("unscheduled work", v.unscheduled)
	if !v.absence.IsZero() {
		parts = append(parts, fmt.Sprintf("absence %sh (%d day(s))", signedHours(v.absence), v.absentDays))
	}
	add("short days", v.short)
	add("work during leave", v.workDuringLeave)

	if v.unapproved.IsPositive() {
		parts = append(parts, fmt.Sprintf("unapproved overtime not paid %sh", v.unapproved.StringFixed(2)))
	}
	if v.reviewDays > 0 {
		parts = append(parts, fmt.Sprintf("%d day(s) flagged or missing clock-out need manual review", v.reviewDays))
	}
	return strings.Join(parts, "; ")
}

func signedHours(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}

// mustBalance panics when a line violates its own arithmetic. It runs before any line is persisted.
func mustBalance(line payroll.WageRunLine) {
	if !line.OvertimeHours.Equal(line.SumOvertime()) {
		panic(fmt.Sprintf("wage run line %s/%s: overtime hours %s != tier sum %s",
			line.WageRunID, line.EmployeeID, line.OvertimeHours, line.SumOvertime()))
	}
	if line.Status == payroll.LineStatusFlagged {
		if !line.TotalWage.IsZero() {
			panic(fmt.Sprintf("wage run line %s/%s: flagged line carries total %s", line.WageRunID, line.EmployeeID, line.TotalWage))
		}
		return
	}
	if expected := line.ComputeTotal(); !line.TotalWage.Equal(expected) {
		panic(fmt.Sprintf("wage run line %s/%s: total wage %s != %s",
			line.WageRunID, line.EmployeeID, line.TotalWage, expected))
	}
}
