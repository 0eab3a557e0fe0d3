package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/lock"
	"github.com/cmlabs-hris/hris-payroll-go/internal/repository/memory"
	attendanceService "github.com/cmlabs-hris/hris-payroll-go/internal/service/attendance"
	payrollService "github.com/cmlabs-hris/hris-payroll-go/internal/service/payroll"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

type apiFixture struct {
	server *httptest.Server
	jwt    jwt.Service
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	emps := memory.NewEmployeeRepository(store)
	att := memory.NewAttendanceRepository(store)
	cal := memory.NewCalendarProvider(store)
	pay := memory.NewPayrollRepository(store)

	require.NoError(t, emps.Save(context.Background(), employee.Employee{
		ID:               "emp-1",
		EmployeeCode:     "E001",
		Timezone:         "UTC",
		RateType:         employee.RateTypeHourly,
		HourlyRate:       decimal.NewFromInt(20),
		ShiftStart:       8 * time.Hour,
		ShiftEnd:         17 * time.Hour,
		EmploymentStatus: employee.EmploymentStatusActive,
		Record:           base.NewRecord(base.SystemActor, time.Now()),
	}))

	attSvc := attendanceService.NewAttendanceService(store, att, emps, cal, attendanceService.Options{})
	rates := payrollService.NewRateResolver(pay, emps, cal)
	calc := payrollService.NewCalculator(att, pay, cal, rates, payrollService.CalcPolicy{TaxRate: decimal.Zero, RequireOvertimeApproval: true})
	paySvc := payrollService.NewPayrollService(store, pay, emps, att, calc, lock.NewLocalLocker(), payrollService.Options{})

	jwtSvc := jwt.NewJWTService(handlerTestSecret)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	router := NewRouter(RouterOptions{}, logger, jwtSvc, NewAttendanceHandler(attSvc), NewPayrollHandler(paySvc))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &apiFixture{server: srv, jwt: jwtSvc}
}

func (f *apiFixture) token(t *testing.T, userID string, role jwt.Role) string {
	t.Helper()
	token, _, err := f.jwt.GenerateAccessToken(userID, role, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}
	return resp.StatusCode, env
}

func TestRouter_RequiresToken(t *testing.T) {
	f := newAPIFixture(t)

	status, _ := f.do(t, http.MethodGet, "/api/v1/wage-runs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = f.do(t, http.MethodGet, "/api/v1/wage-runs", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRouter_WageRunsNeedReviewerRole(t *testing.T) {
	f := newAPIFixture(t)

	status, env := f.do(t, http.MethodGet, "/api/v1/wage-runs", f.token(t, "u-1", jwt.RoleEmployee), nil)
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, _ = f.do(t, http.MethodGet, "/api/v1/wage-runs", f.token(t, "u-2", jwt.RoleManager), nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRouter_ClockToFinalizedRun(t *testing.T) {
	f := newAPIFixture(t)
	employeeToken := f.token(t, "emp-1", jwt.RoleEmployee)
	managerToken := f.token(t, "mgr-1", jwt.RoleManager)
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	for _, ev := range []struct {
		at  time.Time
		typ string
	}{
		{monday.Add(8 * time.Hour), "clock_in"},
		{monday.Add(17 * time.Hour), "clock_out"},
	} {
		status, env := f.do(t, http.MethodPost, "/api/v1/attendance/events", employeeToken, map[string]any{
			"employee_id": "emp-1", "timestamp": ev.at, "event_type": ev.typ, "source": "device-7",
		})
		require.Equal(t, http.StatusCreated, status, env.Message)
	}

	status, env := f.do(t, http.MethodPost, "/api/v1/wage-runs", managerToken, map[string]any{
		"start_date": "2024-03-04", "end_date": "2024-03-10",
	})
	require.Equal(t, http.StatusCreated, status)
	var run payroll.WageRun
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, "mgr-1", run.CreatedBy)

	runPath := "/api/v1/wage-runs/" + run.ID
	status, env = f.do(t, http.MethodPost, runPath+"/calculate", managerToken, map[string]any{"row_version": run.RowVersion})
	require.Equal(t, http.StatusOK, status)
	var result payroll.CalculationResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 1, result.LinesWritten)

	status, env = f.do(t, http.MethodGet, runPath+"/lines", managerToken, nil)
	require.Equal(t, http.StatusOK, status)
	var lines []payroll.WageRunLine
	require.NoError(t, json.Unmarshal(env.Data, &lines))
	require.Len(t, lines, 1)
	assert.True(t, decimal.NewFromInt(180).Equal(lines[0].TotalWage))

	status, env = f.do(t, http.MethodPost, runPath+"/submit", managerToken, map[string]any{"row_version": result.Run.RowVersion})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &run))

	status, env = f.do(t, http.MethodPost, runPath+"/finalize", managerToken, map[string]any{"row_version": run.RowVersion - 1})
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.CodeStaleVersion, env.Error.Code)

	status, env = f.do(t, http.MethodPost, runPath+"/finalize", managerToken, map[string]any{"row_version": run.RowVersion})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, payroll.RunStatusFinalized, run.Status)

	status, env = f.do(t, http.MethodPost, runPath+"/cancel", managerToken, map[string]any{"row_version": run.RowVersion})
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.CodeInvalidState, env.Error.Code)
}

func TestRouter_ErrorMapping(t *testing.T) {
	f := newAPIFixture(t)
	managerToken := f.token(t, "mgr-1", jwt.RoleManager)

	status, env := f.do(t, http.MethodPost, "/api/v1/wage-runs", managerToken, map[string]any{
		"start_date": "2024-03-10", "end_date": "2024-03-01",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "end_date")

	status, _ = f.do(t, http.MethodGet, "/api/v1/wage-runs/does-not-exist", managerToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodPost, "/api/v1/wage-runs", managerToken, "{not json")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.do(t, http.MethodPut, "/api/v1/attendance/timesheets/override", f.token(t, "emp-1", jwt.RoleEmployee), map[string]any{})
	assert.Equal(t, http.StatusForbidden, status)
}
