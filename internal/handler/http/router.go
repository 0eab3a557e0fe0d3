package http

import (
	"log/slog"

	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	AllowedOrigins []string
	// LogLevel is the level access logs are written at.
	LogLevel slog.Level
}

func NewRouter(opts RouterOptions, logger *slog.Logger, JWTService jwt.Service, attendanceHandler AttendanceHandler, payrollHandler PayrollHandler) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Route("/attendance", func(r chi.Router) {
				r.Post("/events", attendanceHandler.RecordClockEvent)
				r.Get("/timesheets", attendanceHandler.ListTimesheets)

				// Reviewers only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireReviewer)
					r.Post("/reconcile", attendanceHandler.Reconcile)
					r.Put("/timesheets/override", attendanceHandler.SetManualOverride)
					r.Delete("/timesheets/override", attendanceHandler.ClearManualOverride)
				})
			})

			r.Route("/wage-runs", func(r chi.Router) {
				r.Use(middleware.RequireReviewer)

				r.Get("/", payrollHandler.ListRuns)
				r.Post("/", payrollHandler.CreateRun)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", payrollHandler.GetRun)
					r.Delete("/", payrollHandler.DeleteRun)

					r.Post("/calculate", payrollHandler.Calculate)
					r.Post("/submit", payrollHandler.SubmitForReview)
					r.Post("/reopen", payrollHandler.Reopen)
					r.Post("/finalize", payrollHandler.Finalize)
					r.Post("/cancel", payrollHandler.Cancel)

					r.Get("/review", payrollHandler.ReviewItems)
					r.Put("/rate-overrides", payrollHandler.SetRateOverride)

					r.Get("/lines", payrollHandler.ListLines)
					r.Put("/lines/{lineID}", payrollHandler.UpdateLine)
					r.Get("/employees/{employeeID}/preview", payrollHandler.PreviewLine)
				})
			})
		})
	})
	return r
}
