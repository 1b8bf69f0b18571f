/*
registry.go - Leave type registry

PURPOSE:
  CRUD over per-tenant leave categories, plus the balance fan-out that
  must accompany type creation: every existing employee of the tenant gets
  a balance row at the new type's default balance, in the same transaction
  as the insert, so the fan-out cannot partially succeed.

DELETE SEMANTICS:
  A type referenced by any request or balance row cannot be deleted; the
  caller receives an InUseError and must surface it as a user error, not a
  system failure.

SEE ALSO:
  - ledger.go: Lazy balance-row creation for the other direction
    (new employee, existing types)
*/
package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Registry manages the tenant's leave types.
type Registry struct {
	Store Store
}

func NewRegistry(store Store) *Registry {
	return &Registry{Store: store}
}

// ListTypes returns the tenant's leave types ordered by name.
func (rg *Registry) ListTypes(ctx context.Context, tenantID TenantID) ([]LeaveType, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	return rg.Store.ListTypes(ctx, tenantID)
}

// GetType returns a single leave type or ErrNotFound.
func (rg *Registry) GetType(ctx context.Context, tenantID TenantID, id LeaveTypeID) (*LeaveType, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	lt, err := rg.Store.GetType(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if lt == nil {
		return nil, fmt.Errorf("leave type %s: %w", id, ErrNotFound)
	}
	return lt, nil
}

// CreateType validates and persists a new leave type, then ensures a
// balance row at DefaultBalance for every existing employee of the tenant.
// Both steps run in one transaction.
func (rg *Registry) CreateType(ctx context.Context, tenantID TenantID, in LeaveTypeInput) (*LeaveType, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	lt := LeaveType{
		ID:             LeaveTypeID(uuid.NewString()),
		TenantID:       tenantID,
		DefaultBalance: decimal.Zero,
		AccrualRate:    decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := applyTypeInput(&lt, in); err != nil {
		return nil, err
	}
	if lt.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "must not be empty"}
	}

	err := rg.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.InsertType(ctx, lt); err != nil {
			return err
		}
		return tx.EnsureBalancesForType(ctx, tenantID, lt.ID)
	})
	if err != nil {
		return nil, err
	}
	return &lt, nil
}

// UpdateType applies the provided fields to an existing type. Fields left
// nil in the input are unchanged.
func (rg *Registry) UpdateType(ctx context.Context, tenantID TenantID, id LeaveTypeID, in LeaveTypeInput) (*LeaveType, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	var updated *LeaveType
	err := rg.Store.WithTx(ctx, func(tx Store) error {
		lt, err := tx.GetType(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if lt == nil {
			return fmt.Errorf("leave type %s: %w", id, ErrNotFound)
		}
		if err := applyTypeInput(lt, in); err != nil {
			return err
		}
		if lt.Name == "" {
			return &ValidationError{Field: "name", Message: "must not be empty"}
		}
		lt.UpdatedAt = time.Now().UTC()

		rows, err := tx.UpdateType(ctx, *lt)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("leave type %s: %w", id, ErrNotFound)
		}
		updated = lt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteType removes a leave type, failing with InUseError while any
// request or balance row still references it. The usage check and the
// delete share a transaction so a reference created in between cannot be
// orphaned.
func (rg *Registry) DeleteType(ctx context.Context, tenantID TenantID, id LeaveTypeID) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}

	return rg.Store.WithTx(ctx, func(tx Store) error {
		lt, err := tx.GetType(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if lt == nil {
			return fmt.Errorf("leave type %s: %w", id, ErrNotFound)
		}
		requests, balances, err := tx.TypeUsage(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if requests > 0 || balances > 0 {
			return &InUseError{LeaveTypeID: id, Requests: requests, Balances: balances}
		}
		return tx.DeleteType(ctx, tenantID, id)
	})
}

// applyTypeInput merges input fields into lt, validating each provided
// field the same way on create and update.
func applyTypeInput(lt *LeaveType, in LeaveTypeInput) error {
	if in.Name != nil {
		lt.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		lt.Description = *in.Description
	}
	if in.RequiresApproval != nil {
		lt.RequiresApproval = *in.RequiresApproval
	}
	if in.DefaultBalance != nil {
		if in.DefaultBalance.IsNegative() {
			return &ValidationError{Field: "defaultBalance", Message: "must not be negative"}
		}
		lt.DefaultBalance = *in.DefaultBalance
	}
	if in.AccrualRate != nil {
		if in.AccrualRate.IsNegative() {
			return &ValidationError{Field: "accrualRate", Message: "must not be negative"}
		}
		lt.AccrualRate = *in.AccrualRate
	}
	return nil
}
