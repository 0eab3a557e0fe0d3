package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var dataQuality *attendance.DataQualityError
	if errors.As(err, &dataQuality) {
		DataQuality(w, dataQuality.Error())
		return
	}

	var transition *payroll.TransitionError
	if errors.As(err, &transition) {
		ConflictWithCode(w, CodeInvalidState, transition.Error())
		return
	}

	switch {
	// Concurrency
	case errors.Is(err, base.ErrStaleVersion):
		ConflictWithCode(w, CodeStaleVersion, "The record was changed by someone else, reload and retry")

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrEmployeeInactive):
		Conflict(w, "Employee is not active")

	// Attendance domain errors
	case errors.Is(err, attendance.ErrTimesheetNotFound):
		NotFound(w, "Timesheet not found")
	case errors.Is(err, attendance.ErrManualOverrideNotActive):
		Conflict(w, "Timesheet has no manual override")
	case errors.Is(err, attendance.ErrInvalidDateRange):
		BadRequest(w, "Invalid date range", nil)

	// Payroll domain errors
	case errors.Is(err, payroll.ErrWageRunNotFound):
		NotFound(w, "Wage run not found")
	case errors.Is(err, payroll.ErrWageRunLineNotFound):
		NotFound(w, "Wage run line not found")
	case errors.Is(err, payroll.ErrRateOverrideNotFound):
		NotFound(w, "Rate override not found")
	case errors.Is(err, payroll.ErrInvalidTransition):
		ConflictWithCode(w, CodeInvalidState, err.Error())
	case errors.Is(err, payroll.ErrRunHasFlaggedLines):
		ConflictWithCode(w, CodeFlaggedLines, "Wage run has flagged lines that must be resolved first")
	case errors.Is(err, payroll.ErrRunBusy):
		ConflictWithCode(w, CodeRunBusy, "Wage run is being processed, retry shortly")
	case errors.Is(err, payroll.ErrRateNotResolved):
		writeError(w, http.StatusUnprocessableEntity, CodeUnpricedHours, err.Error(), nil)
	case errors.Is(err, payroll.ErrLineLocked):
		Conflict(w, "Wage run line is locked")
	case errors.Is(err, payroll.ErrEmployeeNotInRunScope):
		BadRequest(w, "Employee is not in the wage run scope", nil)
	case errors.Is(err, payroll.ErrInvalidPeriod):
		BadRequest(w, "Invalid payroll period", nil)

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
