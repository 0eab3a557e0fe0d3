package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", DriverMemory)
	t.Setenv("JWT_SECRET_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, 8, cfg.Payroll.Workers)
	assert.Equal(t, 3, cfg.Payroll.LoanRetryAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Payroll.LoanRetryDelay)
	assert.Equal(t, attendance.MissingClockOutCapShiftEnd, cfg.Payroll.MissingClockOutPolicy)
	assert.True(t, cfg.Payroll.RequireOvertimeApproval)
	assert.True(t, cfg.Payroll.TaxRate.IsZero())
	assert.Equal(t, 15*time.Minute, cfg.Payroll.ReconcileInterval)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.App.AllowedOrigins)
	assert.False(t, cfg.App.SeedDemoData)
}

func TestLoad_AllowedOriginsList(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", DriverMemory)
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://payroll.example.com, ,https://hr.example.com")
	t.Setenv("APP_SEED_DEMO_DATA", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://payroll.example.com", "https://hr.example.com"}, cfg.App.AllowedOrigins)
	assert.True(t, cfg.App.SeedDemoData)
}

func TestLoad_PayrollOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", DriverMemory)
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("PAYROLL_WORKERS", "2")
	t.Setenv("PAYROLL_TAX_RATE", "0.05")
	t.Setenv("PAYROLL_MISSING_CLOCK_OUT_POLICY", "zero")
	t.Setenv("PAYROLL_REQUIRE_OVERTIME_APPROVAL", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Payroll.Workers)
	assert.Equal(t, "0.05", cfg.Payroll.TaxRate.String())
	assert.Equal(t, attendance.MissingClockOutZero, cfg.Payroll.MissingClockOutPolicy)
	assert.False(t, cfg.Payroll.RequireOvertimeApproval)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad port", "APP_PORT", "http"},
		{"bad workers", "PAYROLL_WORKERS", "0"},
		{"bad policy", "PAYROLL_MISSING_CLOCK_OUT_POLICY", "guess"},
		{"tax out of range", "PAYROLL_TAX_RATE", "1.5"},
		{"unknown driver", "DB_DRIVER", "sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("DB_DRIVER", DriverMemory)
			t.Setenv("JWT_SECRET_KEY", "secret")
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate_PostgresNeedsPassword(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{Driver: DriverPostgres},
		JWT:      JWTConfig{Secret: "secret"},
		Payroll: PayrollConfig{
			Workers:               1,
			LoanRetryAttempts:     1,
			MissingClockOutPolicy: attendance.MissingClockOutZero,
		},
	}
	assert.ErrorContains(t, cfg.Validate(), "DB_PASSWORD")

	cfg.Database.Password = "pw"
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseURL(t *testing.T) {
	cfg := Config{Database: DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5433, Name: "payroll", SSLMode: "disable"}}
	assert.Equal(t, "postgres://u:p@db:5433/payroll?sslmode=disable", cfg.DatabaseURL())
}
