/*
Package leave is the core leave-management engine.

PURPOSE:
  This package contains the tenant-partitioned domain model and services
  for leave types, balances, requests, and accrual. It is a library: the
  HTTP layer (api/) translates transport concerns into explicit parameters
  and calls the services defined here.

KEY CONCEPTS IN THIS FILE (types.go):
  - LeaveType: A per-tenant leave category with policy attributes
  - Balance: The materialized remaining allotment for (employee, type)
  - Request: A leave request with a one-directional status lifecycle
  - Holiday: A tenant calendar date (registry only; not yet consumed by
    day counting, see RequestedDays)
  - Employee: The minimal directory record the engine needs

DESIGN PRINCIPLES:
  1. Explicit tenancy: every operation takes a TenantID parameter. There is
     no ambient "current tenant" anywhere in this package.
  2. Precision: decimal.Decimal for balances and rates, never float64.
  3. Materialized balances: the balance is a row mutated only through the
     Ledger's atomic adjustment, with an append-only audit entry alongside.
  4. Type safety: distinct ID types prevent mixing tenant/employee/type ids.

SEE ALSO:
  - errors.go: Error taxonomy
  - store.go: Persistence interface
  - registry.go, ledger.go, request.go, accrual.go: Services
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TenantID string
type EmployeeID string
type LeaveTypeID string
type RequestID string
type HolidayID string

// Actor identifies the caller of an operation, as resolved by the external
// authentication layer. The engine never resolves identity itself.
type Actor struct {
	EmployeeID EmployeeID
	Admin      bool
}

// =============================================================================
// LEAVE TYPE - Per-tenant leave category
// =============================================================================

type LeaveType struct {
	ID               LeaveTypeID
	TenantID         TenantID
	Name             string // unique within tenant
	Description      string
	RequiresApproval bool
	DefaultBalance   decimal.Decimal // >= 0, in days
	AccrualRate      decimal.Decimal // >= 0, days added per accrual run
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LeaveTypeInput carries the writable fields for create/update.
// Nil pointers on update mean "leave unchanged".
type LeaveTypeInput struct {
	Name             *string
	Description      *string
	RequiresApproval *bool
	DefaultBalance   *decimal.Decimal
	AccrualRate      *decimal.Decimal
}

// =============================================================================
// BALANCE - Materialized (tenant, employee, type) allotment
// =============================================================================

// Balance is one row of the balance ledger. Composite identity is
// (TenantID, EmployeeID, LeaveTypeID). Rows are created lazily at the
// type's DefaultBalance and mutated only via Ledger.Adjust.
type Balance struct {
	TenantID    TenantID
	EmployeeID  EmployeeID
	LeaveTypeID LeaveTypeID
	TypeName    string // joined from the type registry on reads
	Balance     decimal.Decimal
	LastUpdated time.Time
}

// EntryKind classifies an audit entry on the balance ledger.
type EntryKind string

const (
	EntryDebit   EntryKind = "debit"   // request approval
	EntryAccrual EntryKind = "accrual" // accrual sweep
)

// Entry is an immutable audit record written alongside every balance
// mutation, in the same transaction. Entries are never updated or deleted.
type Entry struct {
	ID          string
	TenantID    TenantID
	EmployeeID  EmployeeID
	LeaveTypeID LeaveTypeID
	Delta       decimal.Decimal
	Kind        EntryKind
	ReferenceID string // request id for debits, run id for accruals
	ActorID     string
	CreatedAt   time.Time
}

// =============================================================================
// REQUEST - Leave request with one-directional lifecycle
// =============================================================================

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s RequestStatus) Terminal() bool { return s != StatusPending }

type Request struct {
	ID          RequestID
	TenantID    TenantID
	EmployeeID  EmployeeID
	LeaveTypeID LeaveTypeID
	StartDate   Date
	EndDate     Date // >= StartDate
	Reason      string
	Status      RequestStatus
	RequestDate time.Time

	// Set when an approver acts on the request.
	ApproverID   *EmployeeID
	ApprovalDate *time.Time
	Comments     string
}

// RequestedDays returns the inclusive calendar-day span of the request.
// Both endpoints count as leave days. Weekends and registered holidays are
// deliberately NOT excluded; the holiday registry exists but is not wired
// into day counting in the current design.
func (r *Request) RequestedDays() decimal.Decimal {
	return decimal.NewFromInt(int64(DaysInclusive(r.StartDate, r.EndDate)))
}

// =============================================================================
// HOLIDAY - Tenant calendar date
// =============================================================================

type Holiday struct {
	ID          HolidayID
	TenantID    TenantID
	Name        string
	Date        Date // unique per tenant
	Description string
}

// =============================================================================
// EMPLOYEE - Minimal directory record
// =============================================================================

// Employee is the slice of the external employee module this engine needs:
// enough identity to fan balance rows out at type creation and to select
// the active population for the accrual sweep.
type Employee struct {
	ID        EmployeeID
	TenantID  TenantID
	Name      string
	Email     string
	Active    bool
	HireDate  Date
	CreatedAt time.Time
}
