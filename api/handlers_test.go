package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/syntaxone/leave-engine/api"
	"github.com/syntaxone/leave-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := api.NewHandler(store, zap.NewNop())
	server := httptest.NewServer(api.NewRouter(handler, zap.NewNop()))
	t.Cleanup(server.Close)
	return server
}

type identity struct {
	tenant   string
	employee string
	admin    bool
}

var (
	asAdmin    = identity{tenant: "acme", employee: "mgr-1", admin: true}
	asEmployee = identity{tenant: "acme", employee: "emp-1", admin: false}
)

func do(t *testing.T, server *httptest.Server, method, path string, id identity, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if id.tenant != "" {
		req.Header.Set("X-Tenant-ID", id.tenant)
	}
	if id.employee != "" {
		req.Header.Set("X-Employee-ID", id.employee)
	}
	if id.admin {
		req.Header.Set("X-Admin-Role", "true")
	}

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func createEmployee(t *testing.T, server *httptest.Server, id, name string) {
	t.Helper()
	resp := do(t, server, http.MethodPost, "/api/employees", asAdmin, map[string]any{
		"id":        id,
		"name":      name,
		"email":     name + "@example.com",
		"hire_date": "2024-01-15",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func createLeaveType(t *testing.T, server *httptest.Server, name, defaultBalance string, requiresApproval bool) string {
	t.Helper()
	resp := do(t, server, http.MethodPost, "/api/leave-types", asAdmin, map[string]any{
		"name":              name,
		"requires_approval": requiresApproval,
		"default_balance":   defaultBalance,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)
	require.NotEmpty(t, created.ID)
	return created.ID
}

// =============================================================================
// IDENTITY & AUTHORIZATION TESTS
// =============================================================================

func TestAPI_MissingTenantHeaderIsBadRequest(t *testing.T) {
	server := newTestServer(t)

	resp := do(t, server, http.MethodGet, "/api/leave-types", identity{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "tenant_context_missing", body.Code)
}

func TestAPI_NonAdminCannotCreateLeaveType(t *testing.T) {
	server := newTestServer(t)

	resp := do(t, server, http.MethodPost, "/api/leave-types", asEmployee, map[string]any{
		"name": "Annual Leave",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_ValidationErrorsAreBadRequest(t *testing.T) {
	server := newTestServer(t)

	// Missing required name.
	resp := do(t, server, http.MethodPost, "/api/leave-types", asAdmin, map[string]any{
		"default_balance": "20",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "validation", body.Code)
}

// =============================================================================
// LEAVE TYPE ENDPOINT TESTS
// =============================================================================

func TestAPI_LeaveTypeLifecycle(t *testing.T) {
	server := newTestServer(t)

	typeID := createLeaveType(t, server, "Annual Leave", "20", true)

	// List shows it with decimals as strings.
	resp := do(t, server, http.MethodGet, "/api/leave-types", asEmployee, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]any
	decodeBody(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Annual Leave", list[0]["name"])
	assert.Equal(t, "20", list[0]["default_balance"])

	// Rename it.
	resp = do(t, server, http.MethodPut, "/api/leave-types/"+typeID, asAdmin, map[string]any{
		"name": "Vacation",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Delete it (no employees, so no balance rows reference it).
	resp = do(t, server, http.MethodDelete, "/api/leave-types/"+typeID, asAdmin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAPI_DeleteReferencedLeaveTypeConflicts(t *testing.T) {
	server := newTestServer(t)

	createEmployee(t, server, "emp-1", "Alice")
	typeID := createLeaveType(t, server, "Annual Leave", "20", true)

	resp := do(t, server, http.MethodDelete, "/api/leave-types/"+typeID, asAdmin, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "in_use", body.Code)
}

// =============================================================================
// REQUEST FLOW TESTS
// =============================================================================

func TestAPI_SubmitApproveAndReadBalance(t *testing.T) {
	server := newTestServer(t)

	createEmployee(t, server, "emp-1", "Alice")
	typeID := createLeaveType(t, server, "Annual Leave", "20", true)

	// Employee submits a 5-day request.
	resp := do(t, server, http.MethodPost, "/api/requests", asEmployee, map[string]any{
		"leave_type_id": typeID,
		"start_date":    "2025-03-10",
		"end_date":      "2025-03-14",
		"reason":        "vacation",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var submitted struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Days   string `json:"days"`
	}
	decodeBody(t, resp, &submitted)
	assert.Equal(t, "pending", submitted.Status)
	assert.Equal(t, "5", submitted.Days)

	// It shows up on the approver queue.
	resp = do(t, server, http.MethodGet, "/api/requests/pending", asAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pending []map[string]any
	decodeBody(t, resp, &pending)
	require.Len(t, pending, 1)

	// Admin approves.
	resp = do(t, server, http.MethodPost, "/api/requests/"+submitted.ID+"/approve", asAdmin, map[string]any{
		"comments": "enjoy",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var approved struct {
		Status   string `json:"status"`
		Approver string `json:"approver_id"`
	}
	decodeBody(t, resp, &approved)
	assert.Equal(t, "approved", approved.Status)
	assert.Equal(t, "mgr-1", approved.Approver)

	// Balance reflects the debit.
	resp = do(t, server, http.MethodGet, "/api/employees/emp-1/balances", asEmployee, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var balances []map[string]any
	decodeBody(t, resp, &balances)
	require.Len(t, balances, 1)
	assert.Equal(t, "15", balances[0]["balance"])

	// And the audit trail records it.
	resp = do(t, server, http.MethodGet, "/api/employees/emp-1/balances/"+typeID+"/entries", asEmployee, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []map[string]any
	decodeBody(t, resp, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "debit", entries[0]["kind"])
}

func TestAPI_SecondApprovalConflicts(t *testing.T) {
	server := newTestServer(t)

	createEmployee(t, server, "emp-1", "Alice")
	typeID := createLeaveType(t, server, "Annual Leave", "20", true)

	resp := do(t, server, http.MethodPost, "/api/requests", asEmployee, map[string]any{
		"leave_type_id": typeID,
		"start_date":    "2025-03-10",
		"end_date":      "2025-03-14",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var submitted struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &submitted)

	resp = do(t, server, http.MethodPost, "/api/requests/"+submitted.ID+"/approve", asAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, server, http.MethodPost, "/api/requests/"+submitted.ID+"/approve", asAdmin, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "invalid_transition", body.Code)
}

func TestAPI_CancelOwnPendingRequest(t *testing.T) {
	server := newTestServer(t)

	createEmployee(t, server, "emp-1", "Alice")
	typeID := createLeaveType(t, server, "Annual Leave", "20", true)

	resp := do(t, server, http.MethodPost, "/api/requests", asEmployee, map[string]any{
		"leave_type_id": typeID,
		"start_date":    "2025-03-10",
		"end_date":      "2025-03-12",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var submitted struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &submitted)

	resp = do(t, server, http.MethodPost, "/api/requests/"+submitted.ID+"/cancel", asEmployee, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Someone else's cancel attempt would have been forbidden; the owner's
	// second cancel is a conflict.
	resp = do(t, server, http.MethodPost, "/api/requests/"+submitted.ID+"/cancel", asEmployee, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_InsufficientBalanceConflicts(t *testing.T) {
	server := newTestServer(t)

	createEmployee(t, server, "emp-1", "Alice")
	typeID := createLeaveType(t, server, "Annual Leave", "2", true)

	resp := do(t, server, http.MethodPost, "/api/requests", asEmployee, map[string]any{
		"leave_type_id": typeID,
		"start_date":    "2025-03-10",
		"end_date":      "2025-03-14",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "insufficient_balance", body.Code)
}

// =============================================================================
// ACCRUAL ENDPOINT TESTS
// =============================================================================

func TestAPI_ManualAccrualRun(t *testing.T) {
	server := newTestServer(t)

	createEmployee(t, server, "emp-1", "Alice")
	resp := do(t, server, http.MethodPost, "/api/leave-types", asAdmin, map[string]any{
		"name":            "Annual Leave",
		"default_balance": "20",
		"accrual_rate":    "1.5",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, server, http.MethodPost, "/api/admin/accrual/run", asAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report struct {
		Employees int    `json:"employees"`
		Credited  string `json:"credited"`
	}
	decodeBody(t, resp, &report)
	assert.Equal(t, 1, report.Employees)
	assert.Equal(t, "1.5", report.Credited)

	resp = do(t, server, http.MethodGet, "/api/employees/emp-1/balances", asEmployee, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var balances []map[string]any
	decodeBody(t, resp, &balances)
	require.Len(t, balances, 1)
	assert.Equal(t, "21.5", balances[0]["balance"])
}

func TestAPI_AccrualRequiresAdmin(t *testing.T) {
	server := newTestServer(t)

	resp := do(t, server, http.MethodPost, "/api/admin/accrual/run", asEmployee, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// =============================================================================
// HOLIDAY ENDPOINT TESTS
// =============================================================================

func TestAPI_HolidayLifecycle(t *testing.T) {
	server := newTestServer(t)

	resp := do(t, server, http.MethodPost, "/api/holidays", asAdmin, map[string]any{
		"name": "Founding Day",
		"date": "2025-07-04",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)

	// Duplicate date is a validation failure.
	resp = do(t, server, http.MethodPost, "/api/holidays", asAdmin, map[string]any{
		"name": "Same Day Again",
		"date": "2025-07-04",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, server, http.MethodGet, "/api/holidays", asEmployee, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]any
	decodeBody(t, resp, &list)
	require.Len(t, list, 1)

	resp = do(t, server, http.MethodDelete, "/api/holidays/"+created.ID, asAdmin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

// =============================================================================
// HEALTH
// =============================================================================

func TestAPI_HealthzNeedsNoIdentity(t *testing.T) {
	server := newTestServer(t)

	resp, err := server.Client().Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
