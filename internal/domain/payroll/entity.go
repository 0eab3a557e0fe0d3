package payroll

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/shopspring/decimal"
)

type RunStatus string

const (
	RunStatusDraft       RunStatus = "draft"
	RunStatusCalculated  RunStatus = "calculated"
	RunStatusUnderReview RunStatus = "under_review"
	RunStatusFinalized   RunStatus = "finalized"
	RunStatusCancelled   RunStatus = "cancelled"
)

// IsTerminal reports whether no transition leaves the status.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusFinalized || s == RunStatusCancelled
}

// WageRun is one pay period. Branch restricts the run to a single branch when set.
type WageRun struct {
	ID        string     `json:"id"`
	StartDate time.Time  `json:"start_date"`
	EndDate   time.Time  `json:"end_date"`
	RunDate   *time.Time `json:"run_date,omitempty"`
	Status    RunStatus  `json:"status"`
	Branch    *string    `json:"branch,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	base.Record
}

type LineStatus string

const (
	LineStatusComputed         LineStatus = "computed"
	LineStatusFlagged          LineStatus = "flagged"
	LineStatusManuallyAdjusted LineStatus = "manually_adjusted"
)

// Tier names the rate applied to a block of hours.
type Tier string

const (
	TierNormal      Tier = "normal"
	TierStandardOT  Tier = "standard_overtime"
	TierSaturdayOT  Tier = "saturday_overtime"
	TierSundayOT    Tier = "sunday_overtime"
	TierHolidayOT   Tier = "holiday_overtime"
	TierDecimalRate Tier = "decimal_rate"
)

// Bucket is the coarse split of a day's hours before tier resolution.
type Bucket string

const (
	BucketNormal   Bucket = "normal"
	BucketOvertime Bucket = "overtime"
)

// Rate is a resolved pay rate. Source is "run_override" or "employee".
type Rate struct {
	Tier   Tier            `json:"tier"`
	Amount decimal.Decimal `json:"amount"`
	Source string          `json:"source"`
}

type LoanDeduction struct {
	LoanID string          `json:"loan_id"`
	Amount decimal.Decimal `json:"amount"`
}

// WageRunLine is one employee's pay for a run. Hours and rates are snapshots taken at calculation time.
type WageRunLine struct {
	ID                   string                     `json:"id"`
	WageRunID            string                     `json:"wage_run_id"`
	EmployeeID           string                     `json:"employee_id"`
	Status               LineStatus                 `json:"status"`
	FlagReason           string                     `json:"flag_reason,omitempty"`
	NormalHours          decimal.Decimal            `json:"normal_hours"`
	OvertimeHours        decimal.Decimal            `json:"overtime_hours"`
	OvertimeStdHours     decimal.Decimal            `json:"overtime_std_hours"`
	OvertimeSatHours     decimal.Decimal            `json:"overtime_sat_hours"`
	OvertimeSunHours     decimal.Decimal            `json:"overtime_sun_hours"`
	OvertimeHolidayHours decimal.Decimal            `json:"overtime_holiday_hours"`
	OvertimeDecHours     decimal.Decimal            `json:"overtime_dec_hours"`
	ProjectedHours       decimal.Decimal            `json:"projected_hours"`
	VarianceHours        decimal.Decimal            `json:"variance_hours"`
	VarianceNotes        string                     `json:"variance_notes,omitempty"`
	HourlyRate           decimal.Decimal            `json:"hourly_rate"`
	StdOvertimeRate      decimal.Decimal            `json:"std_overtime_rate"`
	SatOvertimeRate      decimal.Decimal            `json:"sat_overtime_rate"`
	SunOvertimeRate      decimal.Decimal            `json:"sun_overtime_rate"`
	HolidayOvertimeRate  decimal.Decimal            `json:"holiday_overtime_rate"`
	DecRate              decimal.Decimal            `json:"dec_rate"`
	DeductionTax         decimal.Decimal            `json:"deduction_tax"`
	DeductionLoan        decimal.Decimal            `json:"deduction_loan"`
	DeductionOther       decimal.Decimal            `json:"deduction_other"`
	DeductionsDetail     map[string]decimal.Decimal `json:"deductions_detail,omitempty"`
	LoanDeductions       []LoanDeduction            `json:"loan_deductions,omitempty"`
	IncentiveSupervisor  decimal.Decimal            `json:"incentive_supervisor"`
	TotalWage            decimal.Decimal            `json:"total_wage"`
	IsLocked             bool                       `json:"is_locked"`
	base.Record
}

// Money rounds an amount to the cent.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// GrossPay is the sum of every hours-times-rate product, each rounded to the cent.
func (l WageRunLine) GrossPay() decimal.Decimal {
	return Money(l.NormalHours.Mul(l.HourlyRate)).
		Add(Money(l.OvertimeStdHours.Mul(l.StdOvertimeRate))).
		Add(Money(l.OvertimeSatHours.Mul(l.SatOvertimeRate))).
		Add(Money(l.OvertimeSunHours.Mul(l.SunOvertimeRate))).
		Add(Money(l.OvertimeHolidayHours.Mul(l.HolidayOvertimeRate))).
		Add(Money(l.OvertimeDecHours.Mul(l.DecRate)))
}

func (l WageRunLine) TotalDeductions() decimal.Decimal {
	return l.DeductionTax.Add(l.DeductionLoan).Add(l.DeductionOther)
}

// ComputeTotal evaluates the TotalWage identity from the line's own components.
func (l WageRunLine) ComputeTotal() decimal.Decimal {
	return l.GrossPay().Add(l.IncentiveSupervisor).Sub(l.TotalDeductions())
}

// SumOvertime recomputes OvertimeHours from the per-tier breakdown.
func (l WageRunLine) SumOvertime() decimal.Decimal {
	return l.OvertimeStdHours.Add(l.OvertimeSatHours).Add(l.OvertimeSunHours).
		Add(l.OvertimeHolidayHours).Add(l.OvertimeDecHours)
}

// EmployeeLoan is amortized by finalized wage runs. OutstandingBalance only ever decreases.
type EmployeeLoan struct {
	ID                 string          `json:"id"`
	EmployeeID         string          `json:"employee_id"`
	PrincipalAmount    decimal.Decimal `json:"principal_amount"`
	MonthlyInstallment decimal.Decimal `json:"monthly_installment"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            *time.Time      `json:"end_date,omitempty"`
	LoanType           string          `json:"loan_type"`
	base.Record
}

// DueInstallment is the installment capped at the remaining balance.
func (l EmployeeLoan) DueInstallment() decimal.Decimal {
	due := decimal.Min(l.MonthlyInstallment, l.OutstandingBalance)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// EmployeeDeduction is an ad-hoc or recurring deduction effective over a date range.
type EmployeeDeduction struct {
	ID            string          `json:"id"`
	EmployeeID    string          `json:"employee_id"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
	EffectiveDate time.Time       `json:"effective_date"`
	EndDate       *time.Time      `json:"end_date,omitempty"`
	base.Record
}

// RateOverride replaces an employee's base rates for one run. Nil fields fall back to the employee.
type RateOverride struct {
	ID                  string           `json:"id"`
	WageRunID           string           `json:"wage_run_id"`
	EmployeeID          string           `json:"employee_id"`
	HourlyRate          *decimal.Decimal `json:"hourly_rate,omitempty"`
	StdOvertimeRate     *decimal.Decimal `json:"std_overtime_rate,omitempty"`
	SatOvertimeRate     *decimal.Decimal `json:"sat_overtime_rate,omitempty"`
	SunOvertimeRate     *decimal.Decimal `json:"sun_overtime_rate,omitempty"`
	HolidayOvertimeRate *decimal.Decimal `json:"holiday_overtime_rate,omitempty"`
	DecRate             *decimal.Decimal `json:"dec_rate,omitempty"`
	base.Record
}
