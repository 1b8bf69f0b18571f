/*
handlers.go - HTTP handlers for the leave engine

PURPOSE:
  Exposes the leave engine as a JSON API. Handlers do three things only:
  pull identity from the request context, call the engine with explicit
  parameters, and translate results or typed errors to HTTP.

ENDPOINTS:
  Leave types:
    GET    /api/leave-types                 List types
    POST   /api/leave-types                 Create type (admin)
    PUT    /api/leave-types/{id}            Update type (admin)
    DELETE /api/leave-types/{id}            Delete type (admin)

  Employees:
    GET    /api/employees                   List employees
    POST   /api/employees                   Upsert employee (admin)
    GET    /api/employees/{id}              Get employee
    POST   /api/employees/{id}/deactivate   Deactivate (admin)
    GET    /api/employees/{id}/balances     Balance summary
    GET    /api/employees/{id}/balances/{typeID}/entries  Audit trail
    GET    /api/employees/{id}/requests     Request history

  Requests:
    POST   /api/requests                    Submit request (acting employee)
    GET    /api/requests/pending            Approver queue (admin)
    POST   /api/requests/{id}/approve       Approve (admin)
    POST   /api/requests/{id}/reject        Reject (admin)
    POST   /api/requests/{id}/cancel        Cancel own pending request

  Holidays:
    GET    /api/holidays                    List holidays
    POST   /api/holidays                    Create holiday (admin)
    DELETE /api/holidays/{id}               Delete holiday (admin)

  Admin:
    POST   /api/admin/accrual/run           Trigger accrual sweep (admin)

ERROR MAPPING:
  400  validation, missing tenant context
  403  unauthorized (role or ownership)
  404  not found
  409  in-use, invalid transition, lost race, insufficient balance
  500  everything else
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/syntaxone/leave-engine/leave"
)

// Handler holds the engine services.
type Handler struct {
	Registry  *leave.Registry
	Ledger    *leave.Ledger
	Requests  *leave.Requests
	Accrual   *leave.Accrual
	Holidays  *leave.Holidays
	Directory *leave.Directory

	log *zap.Logger
}

// NewHandler wires all services over one store.
func NewHandler(store leave.Store, log *zap.Logger) *Handler {
	return &Handler{
		Registry:  leave.NewRegistry(store),
		Ledger:    leave.NewLedger(store),
		Requests:  leave.NewRequests(store),
		Accrual:   leave.NewAccrual(store),
		Holidays:  leave.NewHolidays(store),
		Directory: leave.NewDirectory(store),
		log:       log,
	}
}

// =============================================================================
// LEAVE TYPE HANDLERS
// =============================================================================

func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Registry.ListTypes(r.Context(), tenantFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]LeaveTypeDTO, 0, len(types))
	for _, lt := range types {
		dtos = append(dtos, toLeaveTypeDTO(lt))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateLeaveType(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var req CreateLeaveTypeRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	in := leave.LeaveTypeInput{
		Name:             &req.Name,
		Description:      &req.Description,
		RequiresApproval: &req.RequiresApproval,
	}
	var err error
	if in.DefaultBalance, err = parseDecimal(req.DefaultBalance, "default_balance"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if in.AccrualRate, err = parseDecimal(req.AccrualRate, "accrual_rate"); err != nil {
		h.writeError(w, r, err)
		return
	}

	lt, err := h.Registry.CreateType(r.Context(), tenantFrom(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveTypeDTO(*lt))
}

func (h *Handler) UpdateLeaveType(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var req UpdateLeaveTypeRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	in := leave.LeaveTypeInput{
		Name:             req.Name,
		Description:      req.Description,
		RequiresApproval: req.RequiresApproval,
	}
	if req.DefaultBalance != nil {
		d, err := parseDecimal(*req.DefaultBalance, "default_balance")
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		in.DefaultBalance = d
	}
	if req.AccrualRate != nil {
		d, err := parseDecimal(*req.AccrualRate, "accrual_rate")
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		in.AccrualRate = d
	}

	lt, err := h.Registry.UpdateType(r.Context(), tenantFrom(r),
		leave.LeaveTypeID(chi.URLParam(r, "id")), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveTypeDTO(*lt))
}

func (h *Handler) DeleteLeaveType(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	err := h.Registry.DeleteType(r.Context(), tenantFrom(r),
		leave.LeaveTypeID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Directory.List(r.Context(), tenantFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]EmployeeDTO, 0, len(employees))
	for _, e := range employees {
		dtos = append(dtos, toEmployeeDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Directory.Get(r.Context(), tenantFrom(r),
		leave.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

func (h *Handler) SaveEmployee(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var req SaveEmployeeRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	hireDate, _ := leave.ParseDate(req.HireDate) // validated by the datetime tag
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	emp := leave.Employee{
		ID:       leave.EmployeeID(req.ID),
		TenantID: tenantFrom(r),
		Name:     req.Name,
		Email:    req.Email,
		Active:   active,
		HireDate: hireDate,
	}
	if err := h.Directory.Save(r.Context(), emp); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

func (h *Handler) DeactivateEmployee(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	err := h.Directory.Deactivate(r.Context(), tenantFrom(r),
		leave.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.Ledger.Balances(r.Context(), tenantFrom(r),
		leave.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]BalanceDTO, 0, len(balances))
	for _, b := range balances {
		dtos = append(dtos, toBalanceDTO(b))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetBalanceEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Ledger.Entries(r.Context(), tenantFrom(r),
		leave.EmployeeID(chi.URLParam(r, "id")),
		leave.LeaveTypeID(chi.URLParam(r, "typeID")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequestRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	start, _ := leave.ParseDate(req.StartDate)
	end, _ := leave.ParseDate(req.EndDate)

	created, err := h.Requests.Create(r.Context(), tenantFrom(r),
		actorFrom(r).EmployeeID, leave.LeaveTypeID(req.LeaveTypeID),
		start, end, req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(*created))
}

func (h *Handler) ListEmployeeRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Requests.ListByEmployee(r.Context(), tenantFrom(r),
		leave.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	requests, err := h.Requests.ListPending(r.Context(), tenantFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decideRequest(w, r, leave.StatusApproved)
}

func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decideRequest(w, r, leave.StatusRejected)
}

func (h *Handler) decideRequest(w http.ResponseWriter, r *http.Request, to leave.RequestStatus) {
	var req DecideRequestRequest
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	updated, err := h.Requests.SetStatus(r.Context(), tenantFrom(r),
		leave.RequestID(chi.URLParam(r, "id")), to, actorFrom(r), req.Comments)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*updated))
}

func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	updated, err := h.Requests.Cancel(r.Context(), tenantFrom(r),
		leave.RequestID(chi.URLParam(r, "id")), actorFrom(r).EmployeeID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*updated))
}

func toRequestDTOs(requests []leave.Request) []RequestDTO {
	dtos := make([]RequestDTO, 0, len(requests))
	for _, req := range requests {
		dtos = append(dtos, toRequestDTO(req))
	}
	return dtos
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Holidays.List(r.Context(), tenantFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, toHolidayDTO(hol))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var req CreateHolidayRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	date, _ := leave.ParseDate(req.Date)
	hol, err := h.Holidays.Create(r.Context(), tenantFrom(r), req.Name, date, req.Description)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(*hol))
}

func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	err := h.Holidays.Delete(r.Context(), tenantFrom(r),
		leave.HolidayID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// RunAccrual triggers the sweep for the caller's tenant. There is no
// period guard in the engine: calling this twice credits twice.
func (h *Handler) RunAccrual(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	report, err := h.Accrual.RunMonthly(r.Context(), tenantFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info("manual accrual sweep",
		zap.String("tenant", string(report.TenantID)),
		zap.Int("employees", report.Employees),
		zap.String("credited", report.Credited.String()))
	writeJSON(w, http.StatusOK, toAccrualReportDTO(*report))
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !actorFrom(r).Admin {
		h.writeError(w, r, leave.ErrUnauthorized)
		return false
	}
	return true
}

func parseDecimal(s, field string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, &leave.ValidationError{Field: field, Message: "must be a decimal number"}
	}
	return &d, nil
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the engine's typed errors onto HTTP statuses and a
// stable machine-readable code.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, leave.ErrTenantContextMissing):
		status, code = http.StatusBadRequest, "tenant_context_missing"
	case errors.Is(err, leave.ErrValidation):
		status, code = http.StatusBadRequest, "validation"
	case errors.Is(err, leave.ErrUnauthorized):
		status, code = http.StatusForbidden, "unauthorized"
	case errors.Is(err, leave.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, leave.ErrInsufficientBalance):
		status, code = http.StatusConflict, "insufficient_balance"
	case errors.Is(err, leave.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, leave.ErrConcurrentModification):
		status, code = http.StatusConflict, "concurrent_modification"
	case errors.Is(err, leave.ErrInUse):
		status, code = http.StatusConflict, "in_use"
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}
