package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

// ========== RUNS ==========

const runColumns = `
	id, start_date, end_date, run_date, status, branch, notes,
	created_at_utc, created_by, updated_at_utc, updated_by, is_active, row_version`

func scanRun(row pgx.Row) (payroll.WageRun, error) {
	var run payroll.WageRun
	err := row.Scan(
		&run.ID, &run.StartDate, &run.EndDate, &run.RunDate, &run.Status, &run.Branch, &run.Notes,
		&run.CreatedAtUtc, &run.CreatedBy, &run.UpdatedAtUtc, &run.UpdatedBy, &run.IsActive, &run.RowVersion,
	)
	if err != nil {
		return payroll.WageRun{}, err
	}
	run.StartDate, run.EndDate = base.Date(run.StartDate), base.Date(run.EndDate)
	return run, nil
}

func (r *payrollRepository) CreateRun(ctx context.Context, run payroll.WageRun) (payroll.WageRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO wage_runs (
			id, start_date, end_date, run_date, status, branch, notes,
			created_at_utc, created_by, updated_at_utc, updated_by, is_active, row_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, true, 1)
	`
	_, err := q.Exec(ctx, query,
		run.ID, run.StartDate, run.EndDate, run.RunDate, run.Status, run.Branch, run.Notes,
		run.CreatedAtUtc, run.CreatedBy, run.UpdatedAtUtc, run.UpdatedBy,
	)
	if err != nil {
		return payroll.WageRun{}, fmt.Errorf("failed to create wage run: %w", err)
	}
	run.IsActive = true
	run.RowVersion = 1
	return run, nil
}

func (r *payrollRepository) GetRun(ctx context.Context, id string) (payroll.WageRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + runColumns + ` FROM wage_runs WHERE id = $1 AND is_active = true`
	run, err := scanRun(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.WageRun{}, payroll.ErrWageRunNotFound
		}
		return payroll.WageRun{}, fmt.Errorf("failed to get wage run: %w", err)
	}
	return run, nil
}

func (r *payrollRepository) ListRuns(ctx context.Context, filter payroll.RunFilter) ([]payroll.WageRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + runColumns + `
		FROM wage_runs
		WHERE is_active = true
			AND ($1::text IS NULL OR status = $1)
			AND ($2::text IS NULL OR branch = $2)
		ORDER BY start_date DESC, id
	`
	rows, err := q.Query(ctx, query, filter.Status, filter.Branch)
	if err != nil {
		return nil, fmt.Errorf("failed to list wage runs: %w", err)
	}
	defer rows.Close()

	var runs []payroll.WageRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wage run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *payrollRepository) UpdateRun(ctx context.Context, run payroll.WageRun) (payroll.WageRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE wage_runs SET
			run_date = $3, status = $4, notes = $5, updated_at_utc = $6, updated_by = $7,
			row_version = row_version + 1
		WHERE id = $1 AND row_version = $2 AND is_active = true
		RETURNING row_version
	`
	var version int64
	err := q.QueryRow(ctx, query,
		run.ID, run.RowVersion, run.RunDate, run.Status, run.Notes, run.UpdatedAtUtc, run.UpdatedBy,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.WageRun{}, staleOrMissing(ctx, q, "wage_runs", "wage run", run.ID, run.RowVersion, payroll.ErrWageRunNotFound)
		}
		return payroll.WageRun{}, fmt.Errorf("failed to update wage run: %w", err)
	}
	run.RowVersion = version
	return run, nil
}

func (r *payrollRepository) DeleteRun(ctx context.Context, run payroll.WageRun) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE wage_runs SET
			is_active = false, updated_at_utc = $3, updated_by = $4, row_version = row_version + 1
		WHERE id = $1 AND row_version = $2 AND is_active = true
	`
	tag, err := q.Exec(ctx, query, run.ID, run.RowVersion, run.UpdatedAtUtc, run.UpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to delete wage run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return staleOrMissing(ctx, q, "wage_runs", "wage run", run.ID, run.RowVersion, payroll.ErrWageRunNotFound)
	}
	return nil
}

// ========== LINES ==========

const lineColumns = `
	id, wage_run_id, employee_id, status, flag_reason,
	normal_hours, overtime_hours, overtime_std_hours, overtime_sat_hours, overtime_sun_hours,
	overtime_holiday_hours, overtime_dec_hours, projected_hours, variance_hours, variance_notes,
	hourly_rate, std_overtime_rate, sat_overtime_rate, sun_overtime_rate, holiday_overtime_rate, dec_rate,
	deduction_tax, deduction_loan, deduction_other, deductions_detail, loan_deductions,
	incentive_supervisor, total_wage, is_locked,
	created_at_utc, created_by, updated_at_utc, updated_by, is_active, row_version`

func scanLine(row pgx.Row) (payroll.WageRunLine, error) {
	var (
		l      payroll.WageRunLine
		detail []byte
		loans  []byte
	)
	err := row.Scan(
		&l.ID, &l.WageRunID, &l.EmployeeID, &l.Status, &l.FlagReason,
		&l.NormalHours, &l.OvertimeHours, &l.OvertimeStdHours, &l.OvertimeSatHours, &l.OvertimeSunHours,
		&l.OvertimeHolidayHours, &l.OvertimeDecHours, &l.ProjectedHours, &l.VarianceHours, &l.VarianceNotes,
		&l.HourlyRate, &l.StdOvertimeRate, &l.SatOvertimeRate, &l.SunOvertimeRate, &l.HolidayOvertimeRate, &l.DecRate,
		&l.DeductionTax, &l.DeductionLoan, &l.DeductionOther, &detail, &loans,
		&l.IncentiveSupervisor, &l.TotalWage, &l.IsLocked,
		&l.CreatedAtUtc, &l.CreatedBy, &l.UpdatedAtUtc, &l.UpdatedBy, &l.IsActive, &l.RowVersion,
	)
	if err != nil {
		return payroll.WageRunLine{}, err
	}
	if len(detail) > 0 {
		if err := json.Unmarshal(detail, &l.DeductionsDetail); err != nil {
			return payroll.WageRunLine{}, fmt.Errorf("decode deductions_detail: %w", err)
		}
	}
	if len(loans) > 0 {
		if err := json.Unmarshal(loans, &l.LoanDeductions); err != nil {
			return payroll.WageRunLine{}, fmt.Errorf("decode loan_deductions: %w", err)
		}
	}
	if len(l.DeductionsDetail) == 0 {
		l.DeductionsDetail = nil
	}
	if len(l.LoanDeductions) == 0 {
		l.LoanDeductions = nil
	}
	return l, nil
}

func encodeLineJSON(l payroll.WageRunLine) ([]byte, []byte, error) {
	detail := l.DeductionsDetail
	if detail == nil {
		detail = map[string]decimal.Decimal{}
	}
	loans := l.LoanDeductions
	if loans == nil {
		loans = []payroll.LoanDeduction{}
	}
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return nil, nil, fmt.Errorf("encode deductions_detail: %w", err)
	}
	loansJSON, err := json.Marshal(loans)
	if err != nil {
		return nil, nil, fmt.Errorf("encode loan_deductions: %w", err)
	}
	return detailJSON, loansJSON, nil
}

func (r *payrollRepository) CreateLine(ctx context.Context, line payroll.WageRunLine) (payroll.WageRunLine, error) {
	q := GetQuerier(ctx, r.db)

	detail, loans, err := encodeLineJSON(line)
	if err != nil {
		return payroll.WageRunLine{}, err
	}

	query := `
		INSERT INTO wage_run_lines (
			id, wage_run_id, employee_id, status, flag_reason,
			normal_hours, overtime_hours, overtime_std_hours, overtime_sat_hours, overtime_sun_hours,
			overtime_holiday_hours, overtime_dec_hours, projected_hours, variance_hours, variance_notes,
			hourly_rate, std_overtime_rate, sat_overtime_rate, sun_overtime_rate, holiday_overtime_rate, dec_rate,
			deduction_tax, deduction_loan, deduction_other, deductions_detail, loan_deductions,
			incentive_supervisor, total_wage, is_locked,
			created_at_utc, created_by, updated_at_utc, updated_by, is_active, row_version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21,
			$22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, true, 1
		)
	`
	_, err = q.Exec(ctx, query,
		line.ID, line.WageRunID, line.EmployeeID, line.Status, line.FlagReason,
		line.NormalHours, line.OvertimeHours, line.OvertimeStdHours, line.OvertimeSatHours, line.OvertimeSunHours,
		line.OvertimeHolidayHours, line.OvertimeDecHours, line.ProjectedHours, line.VarianceHours, line.VarianceNotes,
		line.HourlyRate, line.StdOvertimeRate, line.SatOvertimeRate, line.SunOvertimeRate, line.HolidayOvertimeRate, line.DecRate,
		line.DeductionTax, line.DeductionLoan, line.DeductionOther, detail, loans,
		line.IncentiveSupervisor, line.TotalWage, line.IsLocked,
		line.CreatedAtUtc, line.CreatedBy, line.UpdatedAtUtc, line.UpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err, "uk_wage_run_lines_run_employee") {
			return payroll.WageRunLine{}, &base.StaleVersionError{Entity: "wage run line", ID: line.WageRunID + "/" + line.EmployeeID}
		}
		return payroll.WageRunLine{}, fmt.Errorf("failed to create wage run line: %w", err)
	}
	line.IsActive = true
	line.RowVersion = 1
	return line, nil
}

func (r *payrollRepository) GetLine(ctx context.Context, id string) (payroll.WageRunLine, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + lineColumns + ` FROM wage_run_lines WHERE id = $1 AND is_active = true`
	line, err := scanLine(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.WageRunLine{}, payroll.ErrWageRunLineNotFound
		}
		return payroll.WageRunLine{}, fmt.Errorf("failed to get wage run line: %w", err)
	}
	return line, nil
}

func (r *payrollRepository) ListLines(ctx context.Context, runID string) ([]payroll.WageRunLine, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + lineColumns + `
		FROM wage_run_lines
		WHERE wage_run_id = $1 AND is_active = true
		ORDER BY employee_id
	`
	rows, err := q.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wage run lines: %w", err)
	}
	defer rows.Close()

	var lines []payroll.WageRunLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wage run line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *payrollRepository) UpdateLine(ctx context.Context, line payroll.WageRunLine) (payroll.WageRunLine, error) {
	q := GetQuerier(ctx, r.db)

	detail, loans, err := encodeLineJSON(line)
	if err != nil {
		return payroll.WageRunLine{}, err
	}

	query := `
		UPDATE wage_run_lines SET
			status = $3, flag_reason = $4,
			normal_hours = $5, overtime_hours = $6, overtime_std_hours = $7, overtime_sat_hours = $8,
			overtime_sun_hours = $9, overtime_holiday_hours = $10, overtime_dec_hours = $11,
			projected_hours = $12, variance_hours = $13, variance_notes = $14,
			hourly_rate = $15, std_overtime_rate = $16, sat_overtime_rate = $17, sun_overtime_rate = $18,
			holiday_overtime_rate = $19, dec_rate = $20,
			deduction_tax = $21, deduction_loan = $22, deduction_other = $23,
			deductions_detail = $24, loan_deductions = $25,
			incentive_supervisor = $26, total_wage = $27, is_locked = $28,
			updated_at_utc = $29, updated_by = $30, row_version = row_version + 1
		WHERE id = $1 AND row_version = $2 AND is_active = true
		RETURNING row_version
	`
	var version int64
	err = q.QueryRow(ctx, query,
		line.ID, line.RowVersion, line.Status, line.FlagReason,
		line.NormalHours, line.OvertimeHours, line.OvertimeStdHours, line.OvertimeSatHours,
		line.OvertimeSunHours, line.OvertimeHolidayHours, line.OvertimeDecHours,
		line.ProjectedHours, line.VarianceHours, line.VarianceNotes,
		line.HourlyRate, line.StdOvertimeRate, line.SatOvertimeRate, line.SunOvertimeRate,
		line.HolidayOvertimeRate, line.DecRate,
		line.DeductionTax, line.DeductionLoan, line.DeductionOther,
		detail, loans,
		line.IncentiveSupervisor, line.TotalWage, line.IsLocked,
		line.UpdatedAtUtc, line.UpdatedBy,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.WageRunLine{}, staleOrMissing(ctx, q, "wage_run_lines", "wage run line", line.ID, line.RowVersion, payroll.ErrWageRunLineNotFound)
		}
		return payroll.WageRunLine{}, fmt.Errorf("failed to update wage run line: %w", err)
	}
	line.RowVersion = version
	return line, nil
}

func (r *payrollRepository) DeleteLines(ctx context.Context, runID string, employeeIDs []string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE wage_run_lines SET
			is_active = false, updated_at_utc = $3, updated_by = $4, row_version = row_version + 1
		WHERE wage_run_id = $1 AND is_active = true AND ($2::uuid[] IS NULL OR employee_id = ANY($2))
	`
	if _, err := q.Exec(ctx, query, runID, employeeIDs, time.Now().UTC(), base.ActorFrom(ctx)); err != nil {
		return fmt.Errorf("failed to delete wage run lines: %w", err)
	}
	return nil
}

func (r *payrollRepository) LockLines(ctx context.Context, runID string) error {
	q := GetQuerier(ctx, r.db)

	// Row locks are held until the surrounding transaction ends.
	query := `
		UPDATE wage_run_lines SET
			is_locked = true, updated_at_utc = $2, updated_by = $3, row_version = row_version + 1
		WHERE wage_run_id = $1 AND is_active = true
	`
	if _, err := q.Exec(ctx, query, runID, time.Now().UTC(), base.ActorFrom(ctx)); err != nil {
		return fmt.Errorf("failed to lock wage run lines: %w", err)
	}
	return nil
}

// ========== RATE OVERRIDES ==========

const overrideColumns = `
	id, wage_run_id, employee_id, hourly_rate, std_overtime_rate, sat_overtime_rate,
	sun_overtime_rate, holiday_overtime_rate, dec_rate,
	created_at_utc, created_by, updated_at_utc, updated_by, is_active, row_version`

func (r *payrollRepository) UpsertRateOverride(ctx context.Context, o payroll.RateOverride) (payroll.RateOverride, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO wage_run_rate_overrides (
			id, wage_run_id, employee_id, hourly_rate, std_overtime_rate, sat_overtime_rate,
			sun_overtime_rate, holiday_overtime_rate, dec_rate,
			created_at_utc, created_by, updated_at_utc, updated_by, is_active, row_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, true, 1)
		ON CONFLICT (wage_run_id, employee_id) WHERE is_active DO UPDATE SET
			hourly_rate = EXCLUDED.hourly_rate,
			std_overtime_rate = EXCLUDED.std_overtime_rate,
			sat_overtime_rate = EXCLUDED.sat_overtime_rate,
			sun_overtime_rate = EXCLUDED.sun_overtime_rate,
			holiday_overtime_rate = EXCLUDED.holiday_overtime_rate,
			dec_rate = EXCLUDED.dec_rate,
			updated_at_utc = EXCLUDED.updated_at_utc,
			updated_by = EXCLUDED.updated_by,
			row_version = wage_run_rate_overrides.row_version + 1
		RETURNING ` + overrideColumns

	var result payroll.RateOverride
	err := q.QueryRow(ctx, query,
		o.ID, o.WageRunID, o.EmployeeID, o.HourlyRate, o.StdOvertimeRate, o.SatOvertimeRate,
		o.SunOvertimeRate, o.HolidayOvertimeRate, o.DecRate,
		o.CreatedAtUtc, o.CreatedBy, o.UpdatedAtUtc, o.UpdatedBy,
	).Scan(
		&result.ID, &result.WageRunID, &result.EmployeeID, &result.HourlyRate, &result.StdOvertimeRate, &result.SatOvertimeRate,
		&result.SunOvertimeRate, &result.HolidayOvertimeRate, &result.DecRate,
		&result.CreatedAtUtc, &result.CreatedBy, &result.UpdatedAtUtc, &result.UpdatedBy, &result.IsActive, &result.RowVersion,
	)
	if err != nil {
		return payroll.RateOverride{}, fmt.Errorf("failed to upsert rate override: %w", err)
	}
	return result, nil
}

func (r *payrollRepository) GetRateOverride(ctx context.Context, runID, employeeID string) (payroll.RateOverride, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + overrideColumns + `
		FROM wage_run_rate_overrides
		WHERE wage_run_id = $1 AND employee_id = $2 AND is_active = true
	`
	var o payroll.RateOverride
	err := q.QueryRow(ctx, query, runID, employeeID).Scan(
		&o.ID, &o.WageRunID, &o.EmployeeID, &o.HourlyRate, &o.StdOvertimeRate, &o.SatOvertimeRate,
		&o.SunOvertimeRate, &o.HolidayOvertimeRate, &o.DecRate,
		&o.CreatedAtUtc, &o.CreatedBy, &o.UpdatedAtUtc, &o.UpdatedBy, &o.IsActive, &o.RowVersion,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.RateOverride{}, payroll.ErrRateOverrideNotFound
		}
		return payroll.RateOverride{}, fmt.Errorf("failed to get rate override: %w", err)
	}
	return o, nil
}

func (r *payrollRepository) DeleteRateOverrides(ctx context.Context, runID string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE wage_run_rate_overrides SET
			is_active = false, updated_at_utc = $2, updated_by = $3, row_version = row_version + 1
		WHERE wage_run_id = $1 AND is_active = true
	`
	if _, err := q.Exec(ctx, query, runID, time.Now().UTC(), base.ActorFrom(ctx)); err != nil {
		return fmt.Errorf("failed to delete rate overrides: %w", err)
	}
	return nil
}

// ========== LOANS ==========

const loanColumns = `
	id, employee_id, principal_amount, monthly_installment, outstanding_balance, start_date, end_date, loan_type,
	created_at_utc, created_by, updated_at_utc, updated_by, is_active, row_version`

func scanLoan(row pgx.Row) (payroll.EmployeeLoan, error) {
	var l payroll.EmployeeLoan
	err := row.Scan(
		&l.ID, &l.EmployeeID, &l.PrincipalAmount, &l.MonthlyInstallment, &l.OutstandingBalance, &l.StartDate, &l.EndDate, &l.LoanType,
		&l.CreatedAtUtc, &l.CreatedBy, &l.UpdatedAtUtc, &l.UpdatedBy, &l.IsActive, &l.RowVersion,
	)
	return l, err
}

func (r *payrollRepository) CreateLoan(ctx context.Context, loan payroll.EmployeeLoan) (payroll.EmployeeLoan, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO employee_loans (
			id, employee_id, principal_amount, monthly_installment, outstanding_balance, start_date, end_date, loan_type,
			created_at_utc, created_by, updated_at_utc, updated_by, is_active, row_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)
	`
	_, err := q.Exec(ctx, query,
		loan.ID, loan.EmployeeID, loan.PrincipalAmount, loan.MonthlyInstallment, loan.OutstandingBalance,
		loan.StartDate, loan.EndDate, loan.LoanType,
		loan.CreatedAtUtc, loan.CreatedBy, loan.UpdatedAtUtc, loan.UpdatedBy, loan.IsActive,
	)
	if err != nil {
		return payroll.EmployeeLoan{}, fmt.Errorf("failed to create employee loan: %w", err)
	}
	loan.RowVersion = 1
	return loan, nil
}

func (r *payrollRepository) GetLoan(ctx context.Context, id string) (payroll.EmployeeLoan, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + loanColumns + ` FROM employee_loans WHERE id = $1`
	loan, err := scanLoan(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.EmployeeLoan{}, payroll.ErrLoanNotFound
		}
		return payroll.EmployeeLoan{}, fmt.Errorf("failed to get employee loan: %w", err)
	}
	return loan, nil
}

func (r *payrollRepository) ListActiveLoans(ctx context.Context, employeeID string, asOf time.Time) ([]payroll.EmployeeLoan, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + loanColumns + `
		FROM employee_loans
		WHERE employee_id = $1 AND is_active = true AND outstanding_balance > 0 AND start_date <= $2
		ORDER BY id
	`
	rows, err := q.Query(ctx, query, employeeID, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list employee loans: %w", err)
	}
	defer rows.Close()

	var loans []payroll.EmployeeLoan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee loan: %w", err)
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

func (r *payrollRepository) UpdateLoan(ctx context.Context, loan payroll.EmployeeLoan) (payroll.EmployeeLoan, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE employee_loans SET
			outstanding_balance = $3, is_active = $4, updated_at_utc = $5, updated_by = $6,
			row_version = row_version + 1
		WHERE id = $1 AND row_version = $2
		RETURNING row_version
	`
	var version int64
	err := q.QueryRow(ctx, query,
		loan.ID, loan.RowVersion, loan.OutstandingBalance, loan.IsActive, loan.UpdatedAtUtc, loan.UpdatedBy,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var current int64
			if err := q.QueryRow(ctx, `SELECT row_version FROM employee_loans WHERE id = $1`, loan.ID).Scan(&current); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return payroll.EmployeeLoan{}, payroll.ErrLoanNotFound
				}
				return payroll.EmployeeLoan{}, fmt.Errorf("failed to check employee loan version: %w", err)
			}
			return payroll.EmployeeLoan{}, &base.StaleVersionError{Entity: "employee loan", ID: loan.ID, Expected: loan.RowVersion, Actual: current}
		}
		return payroll.EmployeeLoan{}, fmt.Errorf("failed to update employee loan: %w", err)
	}
	loan.RowVersion = version
	return loan, nil
}

// ========== DEDUCTIONS ==========

func (r *payrollRepository) CreateDeduction(ctx context.Context, d payroll.EmployeeDeduction) (payroll.EmployeeDeduction, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO employee_deductions (
			id, employee_id, name, amount, effective_date, end_date,
			created_at_utc, created_by, updated_at_utc, updated_by, is_active, row_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
	`
	_, err := q.Exec(ctx, query,
		d.ID, d.EmployeeID, d.Name, d.Amount, d.EffectiveDate, d.EndDate,
		d.CreatedAtUtc, d.CreatedBy, d.UpdatedAtUtc, d.UpdatedBy, d.IsActive,
	)
	if err != nil {
		return payroll.EmployeeDeduction{}, fmt.Errorf("failed to create employee deduction: %w", err)
	}
	d.RowVersion = 1
	return d, nil
}

func (r *payrollRepository) ListDeductions(ctx context.Context, employeeID string, from, to time.Time) ([]payroll.EmployeeDeduction, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, employee_id, name, amount, effective_date, end_date,
			created_at_utc, created_by, updated_at_utc, updated_by, is_active, row_version
		FROM employee_deductions
		WHERE employee_id = $1 AND is_active = true
			AND effective_date <= $3 AND (end_date IS NULL OR end_date >= $2)
		ORDER BY id
	`
	rows, err := q.Query(ctx, query, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list employee deductions: %w", err)
	}
	defer rows.Close()

	var deductions []payroll.EmployeeDeduction
	for rows.Next() {
		var d payroll.EmployeeDeduction
		if err := rows.Scan(
			&d.ID, &d.EmployeeID, &d.Name, &d.Amount, &d.EffectiveDate, &d.EndDate,
			&d.CreatedAtUtc, &d.CreatedBy, &d.UpdatedAtUtc, &d.UpdatedBy, &d.IsActive, &d.RowVersion,
		); err != nil {
			return nil, fmt.Errorf("failed to scan employee deduction: %w", err)
		}
		deductions = append(deductions, d)
	}
	return deductions, rows.Err()
}
