/*
holiday.go - Tenant holiday registry

Holidays are a standalone calendar today: the request day count does not
exclude them (see Request.RequestedDays). The registry exists so tenants
can maintain the calendar ahead of that integration.
*/
package leave

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Holidays manages the tenant's holiday calendar.
type Holidays struct {
	Store Store
}

func NewHolidays(store Store) *Holidays {
	return &Holidays{Store: store}
}

// List returns the tenant's holidays ordered by date.
func (h *Holidays) List(ctx context.Context, tenantID TenantID) ([]Holiday, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	return h.Store.ListHolidays(ctx, tenantID)
}

// Create persists a holiday. Dates are unique per tenant; a collision
// surfaces as a ValidationError on the date field.
func (h *Holidays) Create(ctx context.Context, tenantID TenantID, name string, date Date, description string) (*Holiday, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if date.IsZero() {
		return nil, &ValidationError{Field: "date", Message: "is required"}
	}

	hol := Holiday{
		ID:          HolidayID(uuid.NewString()),
		TenantID:    tenantID,
		Name:        name,
		Date:        date,
		Description: description,
	}
	if err := h.Store.InsertHoliday(ctx, hol); err != nil {
		return nil, err
	}
	return &hol, nil
}

// Delete removes a holiday or returns ErrNotFound.
func (h *Holidays) Delete(ctx context.Context, tenantID TenantID, id HolidayID) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	hol, err := h.Store.GetHoliday(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if hol == nil {
		return fmt.Errorf("holiday %s: %w", id, ErrNotFound)
	}
	return h.Store.DeleteHoliday(ctx, tenantID, id)
}
