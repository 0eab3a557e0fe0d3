package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/config"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/calendar"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/fixtures"
	appHTTP "github.com/cmlabs-hris/hris-payroll-go/internal/handler/http"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/lock"
	"github.com/cmlabs-hris/hris-payroll-go/internal/repository/memory"
	"github.com/cmlabs-hris/hris-payroll-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/hris-payroll-go/internal/service/attendance"
	payrollService "github.com/cmlabs-hris/hris-payroll-go/internal/service/payroll"
	"github.com/go-chi/httplog/v3"
	"github.com/redis/go-redis/v9"
)

// repositories is the storage the services run against, either Postgres or the in-process store.
type repositories struct {
	tx         database.Transactor
	employee   employee.EmployeeRepository
	attendance attendance.AttendanceRepository
	payroll    payroll.PayrollRepository
	calendar   calendar.Provider
	close      func()
}

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.LogLevel(),
		ReplaceAttr: httplog.SchemaECS.Concise(cfg.App.Env != "production").ReplaceAttr,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	locker, closeLocker, err := newLocker(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeLocker()

	attendanceSvc := attendanceService.NewAttendanceService(
		repos.tx,
		repos.attendance,
		repos.employee,
		repos.calendar,
		attendanceService.Options{MissingClockOutPolicy: cfg.Payroll.MissingClockOutPolicy},
	)
	rates := payrollService.NewRateResolver(repos.payroll, repos.employee, repos.calendar)
	calculator := payrollService.NewCalculator(
		repos.attendance,
		repos.payroll,
		repos.calendar,
		rates,
		payrollService.CalcPolicy{
			TaxRate:                 cfg.Payroll.TaxRate,
			RequireOvertimeApproval: cfg.Payroll.RequireOvertimeApproval,
		},
	)
	payrollSvc := payrollService.NewPayrollService(
		repos.tx,
		repos.payroll,
		repos.employee,
		repos.attendance,
		calculator,
		locker,
		payrollService.Options{
			Workers:           cfg.Payroll.Workers,
			LoanRetryAttempts: cfg.Payroll.LoanRetryAttempts,
			LoanRetryDelay:    cfg.Payroll.LoanRetryDelay,
		},
	)

	scheduler := cron.NewScheduler(ctx)
	cron.NewReconcileJobs(attendanceSvc, repos.employee, cfg.Payroll.ReconcileLookbackDays, nil).
		RegisterJobs(scheduler, cfg.Payroll.ReconcileInterval)
	scheduler.Start()
	defer scheduler.Stop()

	JWTService := jwt.NewJWTService(cfg.JWT.Secret)
	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{AllowedOrigins: cfg.App.AllowedOrigins, LogLevel: slog.LevelInfo},
		logger,
		JWTService,
		appHTTP.NewAttendanceHandler(attendanceSvc),
		appHTTP.NewPayrollHandler(payrollSvc),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "driver", cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		employees := memory.NewEmployeeRepository(store)
		calendarProvider := memory.NewCalendarProvider(store)
		payrollRepo := memory.NewPayrollRepository(store)
		if cfg.App.SeedDemoData {
			ids, err := fixtures.SeedDefaults(ctx, employees, calendarProvider, payrollRepo, time.Now())
			if err != nil {
				return nil, fmt.Errorf("seed demo data: %w", err)
			}
			slog.Info("Seeded demo data", "employees", len(ids.EmployeeIDs))
		}
		return &repositories{
			tx:         store,
			employee:   employees,
			attendance: memory.NewAttendanceRepository(store),
			payroll:    payrollRepo,
			calendar:   calendarProvider,
			close:      func() {},
		}, nil
	default:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{})
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		return &repositories{
			tx:         postgresql.NewTransactor(db),
			employee:   postgresql.NewEmployeeRepository(db),
			attendance: postgresql.NewAttendanceRepository(db),
			payroll:    postgresql.NewPayrollRepository(db),
			calendar:   postgresql.NewCalendarProvider(db),
			close:      db.Close,
		}, nil
	}
}

// newLocker shares wage run locks through Redis when configured, otherwise keeps them in process.
func newLocker(ctx context.Context, cfg config.RedisConfig) (lock.Locker, func(), error) {
	if cfg.Addr == "" {
		slog.Warn("REDIS_ADDR not set, wage run locks are local to this instance")
		return lock.NewLocalLocker(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return lock.NewRedisLocker(client), func() { client.Close() }, nil
}
