/*
directory.go - Minimal employee directory

The employee entity is owned by an external module; this engine keeps only
the slice it needs: identity for balance fan-out and the active flag that
selects the accrual population. Deactivation, not deletion, is how an
employee leaves the sweep.
*/
package leave

import (
	"context"
	"fmt"
	"time"
)

// Directory manages the engine's view of the tenant's employees.
type Directory struct {
	Store Store
}

func NewDirectory(store Store) *Directory {
	return &Directory{Store: store}
}

// List returns all tenant employees ordered by name.
func (d *Directory) List(ctx context.Context, tenantID TenantID) ([]Employee, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	return d.Store.ListEmployees(ctx, tenantID)
}

// Get returns a single employee or ErrNotFound.
func (d *Directory) Get(ctx context.Context, tenantID TenantID, id EmployeeID) (*Employee, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	emp, err := d.Store.GetEmployee(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, fmt.Errorf("employee %s: %w", id, ErrNotFound)
	}
	return emp, nil
}

// Save upserts an employee record. Balance rows are NOT created here;
// they appear lazily on first balance read or mutation.
func (d *Directory) Save(ctx context.Context, e Employee) error {
	if err := requireTenant(e.TenantID); err != nil {
		return err
	}
	if e.ID == "" {
		return &ValidationError{Field: "id", Message: "must not be empty"}
	}
	if e.Name == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return d.Store.SaveEmployee(ctx, e)
}

// Deactivate marks an employee inactive, removing them from the accrual
// population while preserving their balances and request history.
func (d *Directory) Deactivate(ctx context.Context, tenantID TenantID, id EmployeeID) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	emp, err := d.Store.GetEmployee(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if emp == nil {
		return fmt.Errorf("employee %s: %w", id, ErrNotFound)
	}
	emp.Active = false
	return d.Store.SaveEmployee(ctx, *emp)
}
