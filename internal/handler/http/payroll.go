package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	// Runs
	CreateRun(w http.ResponseWriter, r *http.Request)
	ListRuns(w http.ResponseWriter, r *http.Request)
	GetRun(w http.ResponseWriter, r *http.Request)
	DeleteRun(w http.ResponseWriter, r *http.Request)

	// Lifecycle
	Calculate(w http.ResponseWriter, r *http.Request)
	SubmitForReview(w http.ResponseWriter, r *http.Request)
	Reopen(w http.ResponseWriter, r *http.Request)
	Finalize(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)

	// Lines
	ListLines(w http.ResponseWriter, r *http.Request)
	PreviewLine(w http.ResponseWriter, r *http.Request)
	UpdateLine(w http.ResponseWriter, r *http.Request)
	SetRateOverride(w http.ResponseWriter, r *http.Request)
	ReviewItems(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

// ========== RUNS ==========

func (h *payrollHandlerImpl) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreateWageRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	run, err := h.payrollService.CreateRun(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Wage run created", run)
}

func (h *payrollHandlerImpl) ListRuns(w http.ResponseWriter, r *http.Request) {
	var filter payroll.RunFilter
	if status := r.URL.Query().Get("status"); status != "" {
		s := payroll.RunStatus(status)
		filter.Status = &s
	}
	if branch := r.URL.Query().Get("branch"); branch != "" {
		filter.Branch = &branch
	}

	runs, err := h.payrollService.ListRuns(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if runs == nil {
		runs = []payroll.WageRun{}
	}

	response.SuccessWithMeta(w, runs, &response.Meta{TotalItems: int64(len(runs))})
}

func (h *payrollHandlerImpl) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.payrollService.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, run)
}

func (h *payrollHandlerImpl) DeleteRun(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTransition(w, r)
	if !ok {
		return
	}

	if err := h.payrollService.DeleteRun(r.Context(), req); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Wage run deleted", nil)
}

// ========== LIFECYCLE ==========

func (h *payrollHandlerImpl) Calculate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTransition(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.Calculate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Wage run calculated", result)
}

func (h *payrollHandlerImpl) SubmitForReview(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Wage run submitted for review", h.payrollService.SubmitForReview)
}

func (h *payrollHandlerImpl) Reopen(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Wage run reopened", h.payrollService.Reopen)
}

func (h *payrollHandlerImpl) Finalize(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Wage run finalized", h.payrollService.Finalize)
}

func (h *payrollHandlerImpl) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Wage run cancelled", h.payrollService.Cancel)
}

// ========== LINES ==========

func (h *payrollHandlerImpl) ListLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.payrollService.ListLines(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if lines == nil {
		lines = []payroll.WageRunLine{}
	}

	response.Success(w, lines)
}

func (h *payrollHandlerImpl) PreviewLine(w http.ResponseWriter, r *http.Request) {
	line, err := h.payrollService.PreviewLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "employeeID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, line)
}

func (h *payrollHandlerImpl) UpdateLine(w http.ResponseWriter, r *http.Request) {
	var req payroll.UpdateLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.LineID = chi.URLParam(r, "lineID")

	line, err := h.payrollService.UpdateLine(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Wage run line adjusted", line)
}

func (h *payrollHandlerImpl) SetRateOverride(w http.ResponseWriter, r *http.Request) {
	var req payroll.SetRateOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.RunID = chi.URLParam(r, "id")

	override, err := h.payrollService.SetRateOverride(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Rate override saved", override)
}

func (h *payrollHandlerImpl) ReviewItems(w http.ResponseWriter, r *http.Request) {
	report, err := h.payrollService.ReviewItems(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, report)
}

// ========== HELPERS ==========

func (h *payrollHandlerImpl) transition(w http.ResponseWriter, r *http.Request, message string, fn func(ctx context.Context, req payroll.TransitionRequest) (payroll.WageRun, error)) {
	req, ok := decodeTransition(w, r)
	if !ok {
		return
	}

	run, err := fn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, message, run)
}

func decodeTransition(w http.ResponseWriter, r *http.Request) (payroll.TransitionRequest, bool) {
	var req payroll.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return req, false
	}
	req.RunID = chi.URLParam(r, "id")
	return req, true
}
