package fixtures

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/calendar"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// ==========================================
// HELPER FUNCTIONS
// ==========================================

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// ==========================================
// TARGETS
// ==========================================

// EmployeeWriter stores HR master records. Only in-process stores implement it.
type EmployeeWriter interface {
	Save(ctx context.Context, emp employee.Employee) error
}

// HolidayWriter stores public holidays.
type HolidayWriter interface {
	AddHoliday(ctx context.Context, h calendar.PublicHoliday) error
}

// LoanWriter stores loans and recurring deductions.
type LoanWriter interface {
	CreateLoan(ctx context.Context, loan payroll.EmployeeLoan) (payroll.EmployeeLoan, error)
	CreateDeduction(ctx context.Context, deduction payroll.EmployeeDeduction) (payroll.EmployeeDeduction, error)
}

// ==========================================
// SEEDED DATA RESULT
// ==========================================

// SeededDataIDs holds IDs of the seeded demo data
type SeededDataIDs struct {
	// Employee IDs by code, e.g. "E001" -> "uuid"
	EmployeeIDs map[string]string
	LoanIDs     []string
}

func NewSeededDataIDs() *SeededDataIDs {
	return &SeededDataIDs{EmployeeIDs: make(map[string]string)}
}

// ==========================================
// DEFAULT EMPLOYEES
// ==========================================

// GetDefaultEmployees returns a small workforce for one branch: two day-shift hourly workers,
// one night-shift worker whose shift crosses midnight, and a salaried supervisor.
func GetDefaultEmployees(branch, timezone string) []employee.Employee {
	employees := []employee.Employee{
		{
			EmployeeCode:    "E001",
			FullName:        "Budi Santoso",
			RateType:        employee.RateTypeHourly,
			HourlyRate:      decimal.NewFromInt(20),
			StdOvertimeRate: decPtr(30),
			SatOvertimeRate: decPtr(35),
			SunOvertimeRate: decPtr(40),
			ShiftStart:      8 * time.Hour,
			ShiftEnd:        17 * time.Hour,
		},
		{
			EmployeeCode:        "E002",
			FullName:            "Siti Rahayu",
			RateType:            employee.RateTypeHourly,
			HourlyRate:          decimal.NewFromInt(22),
			StdOvertimeRate:     decPtr(33),
			SatOvertimeRate:     decPtr(38),
			SunOvertimeRate:     decPtr(44),
			HolidayOvertimeRate: decPtr(50),
			ShiftStart:          8 * time.Hour,
			ShiftEnd:            17 * time.Hour,
		},
		{
			EmployeeCode:    "E003",
			FullName:        "Agus Wijaya",
			RateType:        employee.RateTypeHourly,
			HourlyRate:      decimal.NewFromInt(24),
			StdOvertimeRate: decPtr(36),
			ShiftStart:      22 * time.Hour,
			ShiftEnd:        6 * time.Hour,
		},
		{
			EmployeeCode:        "E004",
			FullName:            "Dewi Lestari",
			RateType:            employee.RateTypeSalaried,
			HourlyRate:          decimal.NewFromInt(30),
			SupervisorIncentive: decPtr(100),
			ShiftStart:          8 * time.Hour,
			ShiftEnd:            17 * time.Hour,
		},
	}
	for i := range employees {
		employees[i].Branch = branch
		employees[i].Timezone = timezone
		employees[i].EmploymentStatus = employee.EmploymentStatusActive
	}
	return employees
}

// ==========================================
// DEFAULT HOLIDAYS
// ==========================================

// GetDefaultHolidays returns national holidays for the given year
func GetDefaultHolidays(year int) []calendar.PublicHoliday {
	return []calendar.PublicHoliday{
		{Date: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), Name: "Tahun Baru"},
		{Date: time.Date(year, time.May, 1, 0, 0, 0, 0, time.UTC), Name: "Hari Buruh"},
		{Date: time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC), Name: "Hari Lahir Pancasila"},
		{Date: time.Date(year, time.August, 17, 0, 0, 0, 0, time.UTC), Name: "Hari Kemerdekaan"},
		{Date: time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC), Name: "Hari Natal"},
	}
}

// ==========================================
// SEEDING
// ==========================================

// SeedDefaults writes the demo workforce, this year's holidays and one loan plus one
// recurring deduction for the first employee.
func SeedDefaults(ctx context.Context, employees EmployeeWriter, holidays HolidayWriter, loans LoanWriter, now time.Time) (*SeededDataIDs, error) {
	ids := NewSeededDataIDs()
	now = now.UTC()
	record := base.NewRecord(base.SystemActor, now)

	for _, emp := range GetDefaultEmployees("Headquarters", "Asia/Jakarta") {
		emp.ID = base.NewID()
		emp.Record = record
		if err := employees.Save(ctx, emp); err != nil {
			return nil, fmt.Errorf("seed employee %s: %w", emp.EmployeeCode, err)
		}
		ids.EmployeeIDs[emp.EmployeeCode] = emp.ID
	}

	for _, h := range GetDefaultHolidays(now.Year()) {
		if err := holidays.AddHoliday(ctx, h); err != nil {
			return nil, fmt.Errorf("seed holiday %s: %w", h.Name, err)
		}
	}

	firstDayOfYear := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	loan, err := loans.CreateLoan(ctx, payroll.EmployeeLoan{
		ID:                 base.NewID(),
		EmployeeID:         ids.EmployeeIDs["E001"],
		PrincipalAmount:    decimal.NewFromInt(600),
		MonthlyInstallment: decimal.NewFromInt(50),
		OutstandingBalance: decimal.NewFromInt(600),
		StartDate:          firstDayOfYear,
		LoanType:           "salary_advance",
		Record:             record,
	})
	if err != nil {
		return nil, fmt.Errorf("seed loan: %w", err)
	}
	ids.LoanIDs = append(ids.LoanIDs, loan.ID)

	if _, err := loans.CreateDeduction(ctx, payroll.EmployeeDeduction{
		ID:            base.NewID(),
		EmployeeID:    ids.EmployeeIDs["E001"],
		Name:          "uniform",
		Amount:        decimal.NewFromInt(5),
		EffectiveDate: firstDayOfYear,
		Record:        record,
	}); err != nil {
		return nil, fmt.Errorf("seed deduction: %w", err)
	}

	return ids, nil
}
