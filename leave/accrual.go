/*
accrual.go - Monthly accrual sweep

PURPOSE:
  Credits accrualRate days to every (active employee × accruable type)
  pair of a tenant, in one transaction per run: the whole sweep lands or
  none of it does.

IDEMPOTENCY WARNING:
  The sweep has no "already accrued this period" guard. Running it twice
  in the same month credits everyone twice. The external scheduler owns
  at-most-once-per-period invocation (see api/scheduler.go, which keeps a
  per-process last-run marker). This gap is documented rather than fixed;
  adding a period guard is an open product decision.
*/
package leave

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Accrual runs the periodic balance credit for a tenant.
type Accrual struct {
	Store  Store
	Ledger *Ledger
}

func NewAccrual(store Store) *Accrual {
	return &Accrual{Store: store, Ledger: NewLedger(store)}
}

// AccrualReport summarizes one sweep.
type AccrualReport struct {
	RunID     string
	TenantID  TenantID
	Employees int
	Types     int
	Credited  decimal.Decimal // total days credited across all pairs
}

// RunMonthly credits every active employee's balance for every leave type
// with a positive accrual rate. All credits for the tenant run in a single
// transaction. Repeated invocations in the same period credit again; see
// the package comment.
func (a *Accrual) RunMonthly(ctx context.Context, tenantID TenantID) (*AccrualReport, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	report := &AccrualReport{
		RunID:    uuid.NewString(),
		TenantID: tenantID,
		Credited: decimal.Zero,
	}

	err := a.Store.WithTx(ctx, func(tx Store) error {
		types, err := tx.ListTypes(ctx, tenantID)
		if err != nil {
			return err
		}
		var accruable []LeaveType
		for _, lt := range types {
			if lt.AccrualRate.IsPositive() {
				accruable = append(accruable, lt)
			}
		}
		report.Types = len(accruable)
		if len(accruable) == 0 {
			return nil
		}

		employees, err := tx.ListActiveEmployees(ctx, tenantID)
		if err != nil {
			return err
		}
		report.Employees = len(employees)

		for _, emp := range employees {
			if err := tx.EnsureBalancesForEmployee(ctx, tenantID, emp.ID); err != nil {
				return err
			}
			for _, lt := range accruable {
				if err := a.Ledger.Adjust(ctx, tx, tenantID, emp.ID, lt.ID,
					lt.AccrualRate, EntryAccrual, report.RunID, "system"); err != nil {
					return err
				}
				report.Credited = report.Credited.Add(lt.AccrualRate)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
