package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/response"
)

type AttendanceHandler interface {
	RecordClockEvent(w http.ResponseWriter, r *http.Request)
	Reconcile(w http.ResponseWriter, r *http.Request)
	ListTimesheets(w http.ResponseWriter, r *http.Request)
	SetManualOverride(w http.ResponseWriter, r *http.Request)
	ClearManualOverride(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

// RecordClockEvent implements AttendanceHandler.
func (h *attendanceHandlerImpl) RecordClockEvent(w http.ResponseWriter, r *http.Request) {
	var req attendance.RecordClockEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	timesheet, err := h.attendanceService.RecordClockEvent(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Clock event recorded", timesheet)
}

// Reconcile implements AttendanceHandler.
func (h *attendanceHandlerImpl) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req attendance.ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}
	from, _ := time.Parse("2006-01-02", req.From)
	to, _ := time.Parse("2006-01-02", req.To)

	report, err := h.attendanceService.ReconcileRange(r.Context(), req.EmployeeID, from, to)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, report)
}

// ListTimesheets implements AttendanceHandler.
func (h *attendanceHandlerImpl) ListTimesheets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := attendance.ReconcileRequest{
		EmployeeID: q.Get("employee_id"),
		From:       q.Get("from"),
		To:         q.Get("to"),
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}
	from, _ := time.Parse("2006-01-02", req.From)
	to, _ := time.Parse("2006-01-02", req.To)

	timesheets, err := h.attendanceService.ListTimesheets(r.Context(), req.EmployeeID, from, to)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, timesheets)
}

// SetManualOverride implements AttendanceHandler.
func (h *attendanceHandlerImpl) SetManualOverride(w http.ResponseWriter, r *http.Request) {
	var req attendance.ManualOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	timesheet, err := h.attendanceService.SetManualOverride(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Timesheet overridden", timesheet)
}

// ClearManualOverride implements AttendanceHandler.
func (h *attendanceHandlerImpl) ClearManualOverride(w http.ResponseWriter, r *http.Request) {
	var req attendance.ClearOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	timesheet, err := h.attendanceService.ClearManualOverride(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Manual override cleared", timesheet)
}
