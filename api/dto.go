/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the domain model from
  the wire contract. Request bodies carry validator tags; decode() runs
  them and maps failures to the domain's field-level ValidationError so
  handlers surface one error shape regardless of where validation ran.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
*/
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/syntaxone/leave-engine/leave"
)

var validate = validator.New()

// decode parses and validates a JSON request body. Validator failures come
// back as the domain ValidationError on the first offending field.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &leave.ValidationError{Field: "body", Message: "invalid JSON"}
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok && len(verrs) > 0 {
			f := verrs[0]
			return &leave.ValidationError{
				Field:   strings.ToLower(f.Field()[:1]) + f.Field()[1:],
				Message: "failed validation rule '" + f.Tag() + "'",
			}
		}
		return &leave.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}

func asValidationErrors(err error, dst *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*dst = verrs
	}
	return ok
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

type LeaveTypeDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	RequiresApproval bool   `json:"requires_approval"`
	DefaultBalance   string `json:"default_balance"`
	AccrualRate      string `json:"accrual_rate"`
	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
}

func toLeaveTypeDTO(lt leave.LeaveType) LeaveTypeDTO {
	return LeaveTypeDTO{
		ID:               string(lt.ID),
		Name:             lt.Name,
		Description:      lt.Description,
		RequiresApproval: lt.RequiresApproval,
		DefaultBalance:   lt.DefaultBalance.String(),
		AccrualRate:      lt.AccrualRate.String(),
		CreatedAt:        lt.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        lt.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateLeaveTypeRequest creates a leave type. Numeric fields arrive as
// strings so decimals survive the wire untouched.
type CreateLeaveTypeRequest struct {
	Name             string `json:"name" validate:"required"`
	Description      string `json:"description"`
	RequiresApproval bool   `json:"requires_approval"`
	DefaultBalance   string `json:"default_balance" validate:"omitempty,numeric"`
	AccrualRate      string `json:"accrual_rate" validate:"omitempty,numeric"`
}

// UpdateLeaveTypeRequest is a partial update; absent fields are unchanged.
type UpdateLeaveTypeRequest struct {
	Name             *string `json:"name" validate:"omitempty,min=1"`
	Description      *string `json:"description"`
	RequiresApproval *bool   `json:"requires_approval"`
	DefaultBalance   *string `json:"default_balance" validate:"omitempty,numeric"`
	AccrualRate      *string `json:"accrual_rate" validate:"omitempty,numeric"`
}

// =============================================================================
// BALANCES
// =============================================================================

type BalanceDTO struct {
	LeaveTypeID string `json:"leave_type_id"`
	TypeName    string `json:"type_name"`
	Balance     string `json:"balance"`
	LastUpdated string `json:"last_updated"`
}

func toBalanceDTO(b leave.Balance) BalanceDTO {
	return BalanceDTO{
		LeaveTypeID: string(b.LeaveTypeID),
		TypeName:    b.TypeName,
		Balance:     b.Balance.String(),
		LastUpdated: b.LastUpdated.Format(time.RFC3339),
	}
}

type EntryDTO struct {
	ID          string `json:"id"`
	Delta       string `json:"delta"`
	Kind        string `json:"kind"`
	ReferenceID string `json:"reference_id,omitempty"`
	ActorID     string `json:"actor_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toEntryDTO(e leave.Entry) EntryDTO {
	return EntryDTO{
		ID:          e.ID,
		Delta:       e.Delta.String(),
		Kind:        string(e.Kind),
		ReferenceID: e.ReferenceID,
		ActorID:     e.ActorID,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// REQUESTS
// =============================================================================

type RequestDTO struct {
	ID           string `json:"id"`
	EmployeeID   string `json:"employee_id"`
	LeaveTypeID  string `json:"leave_type_id"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Days         string `json:"days"`
	Reason       string `json:"reason,omitempty"`
	Status       string `json:"status"`
	RequestDate  string `json:"request_date"`
	ApproverID   string `json:"approver_id,omitempty"`
	ApprovalDate string `json:"approval_date,omitempty"`
	Comments     string `json:"comments,omitempty"`
}

func toRequestDTO(r leave.Request) RequestDTO {
	dto := RequestDTO{
		ID:          string(r.ID),
		EmployeeID:  string(r.EmployeeID),
		LeaveTypeID: string(r.LeaveTypeID),
		StartDate:   r.StartDate.String(),
		EndDate:     r.EndDate.String(),
		Days:        r.RequestedDays().String(),
		Reason:      r.Reason,
		Status:      string(r.Status),
		RequestDate: r.RequestDate.Format(time.RFC3339),
		Comments:    r.Comments,
	}
	if r.ApproverID != nil {
		dto.ApproverID = string(*r.ApproverID)
	}
	if r.ApprovalDate != nil {
		dto.ApprovalDate = r.ApprovalDate.Format(time.RFC3339)
	}
	return dto
}

type SubmitRequestRequest struct {
	LeaveTypeID string `json:"leave_type_id" validate:"required"`
	StartDate   string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason      string `json:"reason"`
}

type DecideRequestRequest struct {
	Comments string `json:"comments"`
}

// =============================================================================
// HOLIDAYS
// =============================================================================

type HolidayDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
}

func toHolidayDTO(h leave.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:          string(h.ID),
		Name:        h.Name,
		Date:        h.Date.String(),
		Description: h.Description,
	}
}

type CreateHolidayRequest struct {
	Name        string `json:"name" validate:"required"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Description string `json:"description"`
}

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Active   bool   `json:"active"`
	HireDate string `json:"hire_date"`
}

func toEmployeeDTO(e leave.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:       string(e.ID),
		Name:     e.Name,
		Email:    e.Email,
		Active:   e.Active,
		HireDate: e.HireDate.String(),
	}
}

type SaveEmployeeRequest struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Active   *bool  `json:"active"`
	HireDate string `json:"hire_date" validate:"required,datetime=2006-01-02"`
}

// =============================================================================
// ACCRUAL
// =============================================================================

type AccrualReportDTO struct {
	RunID     string `json:"run_id"`
	TenantID  string `json:"tenant_id"`
	Employees int    `json:"employees"`
	Types     int    `json:"types"`
	Credited  string `json:"credited"`
}

func toAccrualReportDTO(r leave.AccrualReport) AccrualReportDTO {
	return AccrualReportDTO{
		RunID:     r.RunID,
		TenantID:  string(r.TenantID),
		Employees: r.Employees,
		Types:     r.Types,
		Credited:  r.Credited.String(),
	}
}
