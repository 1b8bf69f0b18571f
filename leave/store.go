/*
store.go - Persistence interface for the leave engine

PURPOSE:
  Defines what the engine needs from a relational datastore. The services
  in this package contain the business rules; the Store contains the SQL.
  store/sqlite implements this interface.

TRANSACTIONS:
  WithTx runs a function against a transaction-scoped Store. Every
  multi-statement operation (request creation, approval, accrual sweep,
  type creation with balance fan-out) runs inside WithTx so that a failure
  anywhere rolls the whole operation back. Calling WithTx on an already
  transaction-scoped Store joins the surrounding transaction.

CRITICAL STORE CONTRACTS:
  - EnsureBalances* must be a database-level upsert-ignore (unique key on
    (tenant, employee, type) + insert-on-conflict-do-nothing), never an
    application-level check-then-insert.
  - AddToBalance must be a single atomic statement of the form
    UPDATE ... SET balance = balance + ?, relying on the database's
    row-level locking. No read-then-write.
  - UpdateRequestStatus must condition on status = 'pending' in the same
    statement and report rows affected, so services can distinguish a lost
    race from success.

SEE ALSO:
  - store/sqlite/sqlite.go: The SQLite implementation
*/
package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the persistence boundary. All reads and writes are scoped by
// tenant; implementations must never return rows from another tenant.
type Store interface {
	// WithTx executes fn against a transaction-scoped Store. Any error
	// from fn rolls back every statement issued through it.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// ListTenants enumerates every tenant known to the store (any tenant
	// with at least one employee or leave type). Used by the accrual
	// scheduler to iterate sweeps.
	ListTenants(ctx context.Context) ([]TenantID, error)

	// --- Leave types -------------------------------------------------------

	// ListTypes returns the tenant's leave types ordered by name.
	ListTypes(ctx context.Context, tenantID TenantID) ([]LeaveType, error)

	// GetType returns nil if the type does not exist in the tenant.
	GetType(ctx context.Context, tenantID TenantID, id LeaveTypeID) (*LeaveType, error)

	// InsertType persists a new type. A (tenant, name) collision surfaces
	// as a ValidationError on the name field.
	InsertType(ctx context.Context, lt LeaveType) error

	// UpdateType persists the full row. Returns rows affected.
	UpdateType(ctx context.Context, lt LeaveType) (int64, error)

	// DeleteType removes the type row. Usage checks are the caller's job.
	DeleteType(ctx context.Context, tenantID TenantID, id LeaveTypeID) error

	// TypeUsage counts requests and balance rows referencing the type.
	TypeUsage(ctx context.Context, tenantID TenantID, id LeaveTypeID) (requests, balances int, err error)

	// --- Balances ----------------------------------------------------------

	// EnsureBalancesForEmployee inserts a balance row at the type's default
	// balance for every tenant leave type the employee lacks. Idempotent.
	EnsureBalancesForEmployee(ctx context.Context, tenantID TenantID, employeeID EmployeeID) error

	// EnsureBalancesForType inserts a balance row at the type's default
	// balance for every tenant employee lacking one. Idempotent.
	EnsureBalancesForType(ctx context.Context, tenantID TenantID, typeID LeaveTypeID) error

	// ListBalances returns the employee's balances joined with type names,
	// ordered by type name. Callers ensure rows exist first.
	ListBalances(ctx context.Context, tenantID TenantID, employeeID EmployeeID) ([]Balance, error)

	// GetBalance returns the balance value and whether the row exists.
	GetBalance(ctx context.Context, tenantID TenantID, employeeID EmployeeID, typeID LeaveTypeID) (decimal.Decimal, bool, error)

	// AddToBalance atomically adds delta (positive or negative) to the
	// balance row and returns rows affected (0 when the row is missing).
	AddToBalance(ctx context.Context, tenantID TenantID, employeeID EmployeeID, typeID LeaveTypeID, delta decimal.Decimal) (int64, error)

	// AppendEntry writes an immutable audit entry.
	AppendEntry(ctx context.Context, e Entry) error

	// ListEntries returns audit entries for (employee, type), newest first.
	ListEntries(ctx context.Context, tenantID TenantID, employeeID EmployeeID, typeID LeaveTypeID) ([]Entry, error)

	// --- Requests ----------------------------------------------------------

	InsertRequest(ctx context.Context, r Request) error

	// GetRequest returns nil if the request does not exist in the tenant.
	GetRequest(ctx context.Context, tenantID TenantID, id RequestID) (*Request, error)

	// ListRequestsByEmployee returns the employee's requests, newest first.
	ListRequestsByEmployee(ctx context.Context, tenantID TenantID, employeeID EmployeeID) ([]Request, error)

	// ListPendingRequests returns the tenant's pending requests, oldest
	// first (approver work queue order).
	ListPendingRequests(ctx context.Context, tenantID TenantID) ([]Request, error)

	// UpdateRequestStatus sets status/approver/approvalDate/comments in one
	// statement conditioned on the current status still being pending, and
	// returns rows affected. Zero rows means the optimistic guard tripped.
	UpdateRequestStatus(ctx context.Context, tenantID TenantID, id RequestID, to RequestStatus, approverID *EmployeeID, approvalAt *time.Time, comments string) (int64, error)

	// --- Holidays ----------------------------------------------------------

	// ListHolidays returns the tenant's holidays ordered by date.
	ListHolidays(ctx context.Context, tenantID TenantID) ([]Holiday, error)

	// GetHoliday returns nil if the holiday does not exist in the tenant.
	GetHoliday(ctx context.Context, tenantID TenantID, id HolidayID) (*Holiday, error)

	// InsertHoliday persists a holiday. A (tenant, date) collision surfaces
	// as a ValidationError on the date field.
	InsertHoliday(ctx context.Context, h Holiday) error

	DeleteHoliday(ctx context.Context, tenantID TenantID, id HolidayID) error

	// --- Employees ---------------------------------------------------------

	// ListEmployees returns all tenant employees ordered by name.
	ListEmployees(ctx context.Context, tenantID TenantID) ([]Employee, error)

	// ListActiveEmployees returns only active employees (accrual population).
	ListActiveEmployees(ctx context.Context, tenantID TenantID) ([]Employee, error)

	// GetEmployee returns nil if the employee does not exist in the tenant.
	GetEmployee(ctx context.Context, tenantID TenantID, id EmployeeID) (*Employee, error)

	// SaveEmployee upserts the employee record.
	SaveEmployee(ctx context.Context, e Employee) error
}
