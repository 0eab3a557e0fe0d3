package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleError_Mapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"stale version", &base.StaleVersionError{Entity: "wage run", ID: "r1", Expected: 1, Actual: 2}, http.StatusConflict, CodeStaleVersion},
		{"wrapped not found", fmt.Errorf("load: %w", payroll.ErrWageRunNotFound), http.StatusNotFound, CodeNotFound},
		{"transition", &payroll.TransitionError{RunID: "r1", From: payroll.RunStatusFinalized, Action: "cancel"}, http.StatusConflict, CodeInvalidState},
		{"busy", payroll.ErrRunBusy, http.StatusConflict, CodeRunBusy},
		{"flagged", payroll.ErrRunHasFlaggedLines, http.StatusConflict, CodeFlaggedLines},
		{"unpriced hours", errors.Join(&payroll.RateResolutionError{EmployeeID: "e1", Tier: payroll.TierNormal}), http.StatusUnprocessableEntity, CodeUnpricedHours},
		{"bad range", attendance.ErrInvalidDateRange, http.StatusBadRequest, CodeBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestSuccessWithMeta_ReportsZeroTotal(t *testing.T) {
	rec := httptest.NewRecorder()
	SuccessWithMeta(rec, []string{}, &Meta{TotalItems: 0})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"total_items":0`)
}

func TestWriteJSON_EncodingFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeEncodingFailed, resp.Error.Code)
}
