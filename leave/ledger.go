/*
ledger.go - Balance ledger

PURPOSE:
  Owns the materialized (tenant, employee, type) balance rows. Rows are
  created lazily at the type's default balance and mutated only through
  Adjust, which couples the atomic in-database increment with an immutable
  audit entry in the same transaction.

LAZY ROW CREATION:
  A balance row may be missing for two reasons: the employee predates the
  type (covered by the registry's fan-out) or the type predates the
  employee. EnsureRows closes the second gap and is called before every
  read, so "balance row missing" is not an error class callers see. The
  ensure is a database-level insert-on-conflict-do-nothing, not a
  check-then-insert, so concurrent ensures are safe.

ADJUST:
  Adjust runs inside a caller-supplied transaction-scoped Store. It does
  not clamp at zero; sufficiency is the request state machine's check.
  If the row is missing it ensures and retries once in the same
  transaction; a second miss is an internal-consistency failure.

SEE ALSO:
  - request.go: The only debit caller
  - accrual.go: The only credit caller
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger manages balance rows and their audit trail.
type Ledger struct {
	Store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{Store: store}
}

// EnsureRows inserts a balance row at the type's default balance for every
// tenant leave type the employee lacks. Idempotent; calling it twice leaves
// exactly one row per type.
func (l *Ledger) EnsureRows(ctx context.Context, tenantID TenantID, employeeID EmployeeID) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	return l.Store.EnsureBalancesForEmployee(ctx, tenantID, employeeID)
}

// Balances returns all balance rows for the employee joined with type
// names, ordered by type name. Rows are ensured first.
func (l *Ledger) Balances(ctx context.Context, tenantID TenantID, employeeID EmployeeID) ([]Balance, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := l.Store.EnsureBalancesForEmployee(ctx, tenantID, employeeID); err != nil {
		return nil, err
	}
	return l.Store.ListBalances(ctx, tenantID, employeeID)
}

// Balance returns the employee's balance for one type, ensuring the row
// first. ErrNotFound means the leave type itself does not exist.
func (l *Ledger) Balance(ctx context.Context, tenantID TenantID, employeeID EmployeeID, typeID LeaveTypeID) (decimal.Decimal, error) {
	if err := requireTenant(tenantID); err != nil {
		return decimal.Zero, err
	}
	return l.balanceIn(ctx, l.Store, tenantID, employeeID, typeID)
}

// balanceIn is Balance against an explicit store (possibly tx-scoped).
func (l *Ledger) balanceIn(ctx context.Context, s Store, tenantID TenantID, employeeID EmployeeID, typeID LeaveTypeID) (decimal.Decimal, error) {
	if err := s.EnsureBalancesForEmployee(ctx, tenantID, employeeID); err != nil {
		return decimal.Zero, err
	}
	bal, ok, err := s.GetBalance(ctx, tenantID, employeeID, typeID)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		// Ensure ran, so the only way the row is absent is a missing type.
		return decimal.Zero, fmt.Errorf("leave type %s: %w", typeID, ErrNotFound)
	}
	return bal, nil
}

// Adjust atomically adds delta to the balance row inside the supplied
// transaction-scoped Store, and appends the audit entry in the same
// transaction. Positive delta credits, negative debits. Must only be
// called from within Store.WithTx.
func (l *Ledger) Adjust(ctx context.Context, tx Store, tenantID TenantID, employeeID EmployeeID, typeID LeaveTypeID, delta decimal.Decimal, kind EntryKind, referenceID, actorID string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}

	rows, err := tx.AddToBalance(ctx, tenantID, employeeID, typeID, delta)
	if err != nil {
		return err
	}
	if rows == 0 {
		// Row missing: ensure and retry once inside the same transaction.
		if err := tx.EnsureBalancesForEmployee(ctx, tenantID, employeeID); err != nil {
			return err
		}
		rows, err = tx.AddToBalance(ctx, tenantID, employeeID, typeID, delta)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("adjust %s/%s/%s: %w", tenantID, employeeID, typeID, ErrBalanceRowMissing)
		}
	}

	return tx.AppendEntry(ctx, Entry{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		EmployeeID:  employeeID,
		LeaveTypeID: typeID,
		Delta:       delta,
		Kind:        kind,
		ReferenceID: referenceID,
		ActorID:     actorID,
		CreatedAt:   time.Now().UTC(),
	})
}

// Entries returns the audit trail for (employee, type), newest first.
func (l *Ledger) Entries(ctx context.Context, tenantID TenantID, employeeID EmployeeID, typeID LeaveTypeID) ([]Entry, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	return l.Store.ListEntries(ctx, tenantID, employeeID, typeID)
}
