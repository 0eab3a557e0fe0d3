package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Redis    RedisConfig
	Payroll  PayrollConfig
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
	// SeedDemoData fills the memory driver with a demo workforce on start.
	SeedDemoData bool
}

// RedisConfig holds the connection used for wage run locks. An empty Addr keeps locks in process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PayrollConfig struct {
	Workers                 int
	LoanRetryAttempts       int
	LoanRetryDelay          time.Duration
	MissingClockOutPolicy   attendance.MissingClockOutPolicy
	TaxRate                 decimal.Decimal
	RequireOvertimeApproval bool
	ReconcileInterval       time.Duration
	ReconcileLookbackDays   int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
		slog.Debug("No .env file found, using process environment")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Driver:   getEnv("DB_DRIVER", DriverPostgres),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "cmlabs-payroll"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Redis configuration
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	seedDemo, err := strconv.ParseBool(getEnv("APP_SEED_DEMO_DATA", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_SEED_DEMO_DATA: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		SeedDemoData:   seedDemo,
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret: getEnv("JWT_SECRET_KEY", ""),
	}

	// Payroll configuration
	payroll, err := loadPayroll()
	if err != nil {
		return nil, err
	}
	config.Payroll = payroll

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadPayroll() (PayrollConfig, error) {
	workers, err := strconv.Atoi(getEnv("PAYROLL_WORKERS", "8"))
	if err != nil {
		return PayrollConfig{}, fmt.Errorf("invalid PAYROLL_WORKERS: %w", err)
	}
	attempts, err := strconv.Atoi(getEnv("PAYROLL_LOAN_RETRY_ATTEMPTS", "3"))
	if err != nil {
		return PayrollConfig{}, fmt.Errorf("invalid PAYROLL_LOAN_RETRY_ATTEMPTS: %w", err)
	}
	retryDelay, err := time.ParseDuration(getEnv("PAYROLL_LOAN_RETRY_DELAY", "50ms"))
	if err != nil {
		return PayrollConfig{}, fmt.Errorf("invalid PAYROLL_LOAN_RETRY_DELAY: %w", err)
	}
	taxRate, err := decimal.NewFromString(getEnv("PAYROLL_TAX_RATE", "0"))
	if err != nil {
		return PayrollConfig{}, fmt.Errorf("invalid PAYROLL_TAX_RATE: %w", err)
	}
	requireApproval, err := strconv.ParseBool(getEnv("PAYROLL_REQUIRE_OVERTIME_APPROVAL", "true"))
	if err != nil {
		return PayrollConfig{}, fmt.Errorf("invalid PAYROLL_REQUIRE_OVERTIME_APPROVAL: %w", err)
	}
	interval, err := time.ParseDuration(getEnv("PAYROLL_RECONCILE_INTERVAL", "15m"))
	if err != nil {
		return PayrollConfig{}, fmt.Errorf("invalid PAYROLL_RECONCILE_INTERVAL: %w", err)
	}
	lookback, err := strconv.Atoi(getEnv("PAYROLL_RECONCILE_LOOKBACK_DAYS", "2"))
	if err != nil {
		return PayrollConfig{}, fmt.Errorf("invalid PAYROLL_RECONCILE_LOOKBACK_DAYS: %w", err)
	}

	return PayrollConfig{
		Workers:                 workers,
		LoanRetryAttempts:       attempts,
		LoanRetryDelay:          retryDelay,
		MissingClockOutPolicy:   attendance.MissingClockOutPolicy(getEnv("PAYROLL_MISSING_CLOCK_OUT_POLICY", string(attendance.MissingClockOutCapShiftEnd))),
		TaxRate:                 taxRate,
		RequireOvertimeApproval: requireApproval,
		ReconcileInterval:       interval,
		ReconcileLookbackDays:   lookback,
	}, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Payroll.Workers < 1 {
		return fmt.Errorf("PAYROLL_WORKERS must be at least 1")
	}
	if c.Payroll.LoanRetryAttempts < 1 {
		return fmt.Errorf("PAYROLL_LOAN_RETRY_ATTEMPTS must be at least 1")
	}
	if !c.Payroll.MissingClockOutPolicy.IsValid() {
		return fmt.Errorf("PAYROLL_MISSING_CLOCK_OUT_POLICY must be %q or %q",
			attendance.MissingClockOutZero, attendance.MissingClockOutCapShiftEnd)
	}
	if c.Payroll.TaxRate.IsNegative() || c.Payroll.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("PAYROLL_TAX_RATE must be in [0, 1)")
	}
	if c.Payroll.ReconcileLookbackDays < 0 {
		return fmt.Errorf("PAYROLL_RECONCILE_LOOKBACK_DAYS must not be negative")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// LogLevel maps LOG_LEVEL onto slog, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
