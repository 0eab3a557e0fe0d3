package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

const employeeColumns = `
	id, employee_code, full_name, branch, timezone, rate_type,
	hourly_rate, std_overtime_rate, sat_overtime_rate, sun_overtime_rate, holiday_overtime_rate,
	dec_rate, supervisor_incentive,
	EXTRACT(EPOCH FROM shift_start_time)::bigint, EXTRACT(EPOCH FROM shift_end_time)::bigint,
	work_days, employment_status,
	created_at_utc, created_by, updated_at_utc, updated_by, is_active, row_version`

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var (
		emp        employee.Employee
		shiftStart int64
		shiftEnd   int64
		workDays   []int16
	)
	err := row.Scan(
		&emp.ID, &emp.EmployeeCode, &emp.FullName, &emp.Branch, &emp.Timezone, &emp.RateType,
		&emp.HourlyRate, &emp.StdOvertimeRate, &emp.SatOvertimeRate, &emp.SunOvertimeRate, &emp.HolidayOvertimeRate,
		&emp.DecRate, &emp.SupervisorIncentive,
		&shiftStart, &shiftEnd,
		&workDays, &emp.EmploymentStatus,
		&emp.CreatedAtUtc, &emp.CreatedBy, &emp.UpdatedAtUtc, &emp.UpdatedBy, &emp.IsActive, &emp.RowVersion,
	)
	if err != nil {
		return employee.Employee{}, err
	}
	emp.ShiftStart = time.Duration(shiftStart) * time.Second
	emp.ShiftEnd = time.Duration(shiftEnd) * time.Second
	for _, d := range workDays {
		emp.WorkDays = append(emp.WorkDays, time.Weekday(d))
	}
	return emp, nil
}

func (e *employeeRepositoryImpl) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1 AND is_active = true`

	emp, err := scanEmployee(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee %s: %w", id, err)
	}
	return emp, nil
}

func (e *employeeRepositoryImpl) ListActive(ctx context.Context, branch *string) ([]employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `SELECT ` + employeeColumns + `
		FROM employees
		WHERE is_active = true AND employment_status = $1 AND ($2::text IS NULL OR branch = $2)
		ORDER BY employee_code, id
	`

	rows, err := q.Query(ctx, query, employee.EmploymentStatusActive, branch)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}

	return employees, nil
}
