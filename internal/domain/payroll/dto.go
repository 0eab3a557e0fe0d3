package payroll

import (
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== RUN DTOs ==========

type CreateWageRunRequest struct {
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Branch    *string `json:"branch,omitempty"`
	Notes     string  `json:"notes,omitempty"`
}

func (r *CreateWageRunRequest) Validate() error {
	var errs validator.ValidationErrors

	start, okStart := validator.IsValidDate(r.StartDate)
	if !okStart {
		errs = append(errs, validator.ValidationError{Field: "start_date", Message: "must be a YYYY-MM-DD date"})
	}
	end, okEnd := validator.IsValidDate(r.EndDate)
	if !okEnd {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must be a YYYY-MM-DD date"})
	}
	if okStart && okEnd {
		if end.Before(start) {
			errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must not be before start_date"})
		} else if end.Sub(start).Hours() > 31*24 {
			errs = append(errs, validator.ValidationError{Field: "end_date", Message: "period must not exceed 32 days"})
		}
	}
	if r.Branch != nil && validator.IsEmpty(*r.Branch) {
		errs = append(errs, validator.ValidationError{Field: "branch", Message: "must not be blank"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// TransitionRequest carries the run version the caller last read. Every lifecycle action is conditioned on it.
type TransitionRequest struct {
	RunID      string `json:"-"`
	RowVersion int64  `json:"row_version"`
}

func (r *TransitionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.RunID) {
		errs = append(errs, validator.ValidationError{Field: "run_id", Message: "is required"})
	}
	if r.RowVersion <= 0 {
		errs = append(errs, validator.ValidationError{Field: "row_version", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RunFilter struct {
	Status *RunStatus
	Branch *string
}

type CalculationResult struct {
	Run          WageRun `json:"run"`
	LinesWritten int     `json:"lines_written"`
	FlaggedLines int     `json:"flagged_lines"`
	LinesRemoved int     `json:"lines_removed"`
}

// ========== LINE DTOs ==========

// UpdateLineRequest edits a line by hand. Nil fields are left unchanged.
type UpdateLineRequest struct {
	LineID               string           `json:"-"`
	RowVersion           int64            `json:"row_version"`
	NormalHours          *decimal.Decimal `json:"normal_hours,omitempty"`
	OvertimeStdHours     *decimal.Decimal `json:"overtime_std_hours,omitempty"`
	OvertimeSatHours     *decimal.Decimal `json:"overtime_sat_hours,omitempty"`
	OvertimeSunHours     *decimal.Decimal `json:"overtime_sun_hours,omitempty"`
	OvertimeHolidayHours *decimal.Decimal `json:"overtime_holiday_hours,omitempty"`
	OvertimeDecHours     *decimal.Decimal `json:"overtime_dec_hours,omitempty"`
	HourlyRate           *decimal.Decimal `json:"hourly_rate,omitempty"`
	StdOvertimeRate      *decimal.Decimal `json:"std_overtime_rate,omitempty"`
	SatOvertimeRate      *decimal.Decimal `json:"sat_overtime_rate,omitempty"`
	SunOvertimeRate      *decimal.Decimal `json:"sun_overtime_rate,omitempty"`
	HolidayOvertimeRate  *decimal.Decimal `json:"holiday_overtime_rate,omitempty"`
	DecRate              *decimal.Decimal `json:"dec_rate,omitempty"`
	DeductionTax         *decimal.Decimal `json:"deduction_tax,omitempty"`
	DeductionOther       *decimal.Decimal `json:"deduction_other,omitempty"`
	IncentiveSupervisor  *decimal.Decimal `json:"incentive_supervisor,omitempty"`
	Note                 string           `json:"note"`
}

func (r *UpdateLineRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.LineID) {
		errs = append(errs, validator.ValidationError{Field: "line_id", Message: "is required"})
	}
	if r.RowVersion <= 0 {
		errs = append(errs, validator.ValidationError{Field: "row_version", Message: "is required"})
	}
	if validator.IsEmpty(r.Note) {
		errs = append(errs, validator.ValidationError{Field: "note", Message: "is required"})
	}

	amounts := map[string]*decimal.Decimal{
		"normal_hours":           r.NormalHours,
		"overtime_std_hours":     r.OvertimeStdHours,
		"overtime_sat_hours":     r.OvertimeSatHours,
		"overtime_sun_hours":     r.OvertimeSunHours,
		"overtime_holiday_hours": r.OvertimeHolidayHours,
		"overtime_dec_hours":     r.OvertimeDecHours,
		"hourly_rate":            r.HourlyRate,
		"std_overtime_rate":      r.StdOvertimeRate,
		"sat_overtime_rate":      r.SatOvertimeRate,
		"sun_overtime_rate":      r.SunOvertimeRate,
		"holiday_overtime_rate":  r.HolidayOvertimeRate,
		"dec_rate":               r.DecRate,
		"deduction_tax":          r.DeductionTax,
		"deduction_other":        r.DeductionOther,
		"incentive_supervisor":   r.IncentiveSupervisor,
	}
	for field, v := range amounts {
		if v != nil && v.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: field, Message: "must be non-negative"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type SetRateOverrideRequest struct {
	RunID               string           `json:"-"`
	EmployeeID          string           `json:"employee_id"`
	HourlyRate          *decimal.Decimal `json:"hourly_rate,omitempty"`
	StdOvertimeRate     *decimal.Decimal `json:"std_overtime_rate,omitempty"`
	SatOvertimeRate     *decimal.Decimal `json:"sat_overtime_rate,omitempty"`
	SunOvertimeRate     *decimal.Decimal `json:"sun_overtime_rate,omitempty"`
	HolidayOvertimeRate *decimal.Decimal `json:"holiday_overtime_rate,omitempty"`
	DecRate             *decimal.Decimal `json:"dec_rate,omitempty"`
}

func (r *SetRateOverrideRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.RunID) {
		errs = append(errs, validator.ValidationError{Field: "run_id", Message: "is required"})
	}
	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}

	rates := []*decimal.Decimal{r.HourlyRate, r.StdOvertimeRate, r.SatOvertimeRate, r.SunOvertimeRate, r.HolidayOvertimeRate, r.DecRate}
	set := 0
	for _, v := range rates {
		if v == nil {
			continue
		}
		set++
		if !v.IsPositive() {
			errs = append(errs, validator.ValidationError{Field: "rates", Message: "must be positive"})
			break
		}
	}
	if set == 0 {
		errs = append(errs, validator.ValidationError{Field: "rates", Message: "at least one rate is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========== REVIEW DTOs ==========

// ReviewReport gathers everything in a run that needs a human decision.
type ReviewReport struct {
	RunID         string                      `json:"run_id"`
	Status        RunStatus                   `json:"status"`
	FlaggedLines  []WageRunLine               `json:"flagged_lines"`
	VarianceLines []WageRunLine               `json:"variance_lines"`
	Timesheets    []attendance.DailyTimesheet `json:"timesheets"`
	CanFinalize   bool                        `json:"can_finalize"`
}
