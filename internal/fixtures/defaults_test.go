package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDefaults_MemoryStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	emps := memory.NewEmployeeRepository(store)
	cal := memory.NewCalendarProvider(store)
	pay := memory.NewPayrollRepository(store)
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	ids, err := SeedDefaults(ctx, emps, cal, pay, now)
	require.NoError(t, err)
	require.Len(t, ids.EmployeeIDs, 4)
	require.Len(t, ids.LoanIDs, 1)

	active, err := emps.ListActive(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, active, 4)

	night, err := emps.GetByID(ctx, ids.EmployeeIDs["E003"])
	require.NoError(t, err)
	assert.True(t, night.IsOvernight())
	assert.Equal(t, "Asia/Jakarta", night.Timezone)

	holidays, err := cal.HolidaysBetween(ctx, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, holidays, 1)
	assert.Equal(t, 17, holidays[0].Date.Day())

	loans, err := pay.ListActiveLoans(ctx, ids.EmployeeIDs["E001"], now)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.True(t, decimal.NewFromInt(600).Equal(loans[0].OutstandingBalance))

	deductions, err := pay.ListDeductions(ctx, ids.EmployeeIDs["E001"], now, now.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.Len(t, deductions, 1)
}

func TestGetDefaultEmployees_StampsBranch(t *testing.T) {
	for _, emp := range GetDefaultEmployees("Surabaya", "Asia/Jakarta") {
		assert.Equal(t, "Surabaya", emp.Branch)
		assert.Equal(t, "Asia/Jakarta", emp.Timezone)
		assert.NotEmpty(t, emp.EmployeeCode)
	}
}
