package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syntaxone/leave-engine/leave"
	"github.com/syntaxone/leave-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS (shared across the package's tests)
// =============================================================================

const (
	tenantAcme  = leave.TenantID("acme")
	tenantGlobe = leave.TenantID("globe")
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedEmployee(t *testing.T, store leave.Store, tenantID leave.TenantID, id, name string) {
	t.Helper()
	err := store.SaveEmployee(context.Background(), leave.Employee{
		ID:        leave.EmployeeID(id),
		TenantID:  tenantID,
		Name:      name,
		Email:     name + "@example.com",
		Active:    true,
		HireDate:  leave.NewDate(2024, time.January, 15),
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func seedType(t *testing.T, store leave.Store, tenantID leave.TenantID, name string, defaultBalance, accrualRate string, requiresApproval bool) leave.LeaveType {
	t.Helper()
	registry := leave.NewRegistry(store)
	def := decimal.RequireFromString(defaultBalance)
	rate := decimal.RequireFromString(accrualRate)
	lt, err := registry.CreateType(context.Background(), tenantID, leave.LeaveTypeInput{
		Name:             &name,
		RequiresApproval: &requiresApproval,
		DefaultBalance:   &def,
		AccrualRate:      &rate,
	})
	require.NoError(t, err)
	return *lt
}

func balanceOf(t *testing.T, store leave.Store, tenantID leave.TenantID, employeeID, typeID string) decimal.Decimal {
	t.Helper()
	ledger := leave.NewLedger(store)
	bal, err := ledger.Balance(context.Background(), tenantID,
		leave.EmployeeID(employeeID), leave.LeaveTypeID(typeID))
	require.NoError(t, err)
	return bal
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// CREATE TESTS
// =============================================================================

func TestRegistry_CreateType_FansOutBalanceRows(t *testing.T) {
	// GIVEN: Two employees already exist in the tenant
	// WHEN: A new leave type with default balance 20 is created
	// THEN: Both employees immediately have a balance row at 20

	store := newTestStore(t)
	ctx := context.Background()

	seedEmployee(t, store, tenantAcme, "emp-1", "Alice")
	seedEmployee(t, store, tenantAcme, "emp-2", "Bob")

	lt := seedType(t, store, tenantAcme, "Annual Leave", "20", "0", true)

	for _, emp := range []string{"emp-1", "emp-2"} {
		balances, err := store.ListBalances(ctx, tenantAcme, leave.EmployeeID(emp))
		require.NoError(t, err)
		require.Len(t, balances, 1)
		assert.Equal(t, lt.ID, balances[0].LeaveTypeID)
		assert.True(t, balances[0].Balance.Equal(dec("20")),
			"expected 20, got %s", balances[0].Balance)
	}
}

func TestRegistry_CreateType_DuplicateNameRejected(t *testing.T) {
	// GIVEN: A leave type named "Annual Leave" exists
	// WHEN: Creating a second type with the same name in the same tenant
	// THEN: The create fails with a ValidationError on name

	store := newTestStore(t)
	ctx := context.Background()
	registry := leave.NewRegistry(store)

	seedType(t, store, tenantAcme, "Annual Leave", "20", "0", true)

	name := "Annual Leave"
	_, err := registry.CreateType(ctx, tenantAcme, leave.LeaveTypeInput{Name: &name})
	require.Error(t, err)
	var verr *leave.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestRegistry_CreateType_SameNameDifferentTenant(t *testing.T) {
	// Names are unique per tenant, not globally.

	store := newTestStore(t)

	seedType(t, store, tenantAcme, "Annual Leave", "20", "0", true)
	seedType(t, store, tenantGlobe, "Annual Leave", "25", "0", true)

	types, err := store.ListTypes(context.Background(), tenantGlobe)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.True(t, types[0].DefaultBalance.Equal(dec("25")))
}

func TestRegistry_CreateType_NegativeDefaultRejected(t *testing.T) {
	store := newTestStore(t)
	registry := leave.NewRegistry(store)

	name := "Broken"
	neg := dec("-1")
	_, err := registry.CreateType(context.Background(), tenantAcme, leave.LeaveTypeInput{
		Name:           &name,
		DefaultBalance: &neg,
	})
	assert.ErrorIs(t, err, leave.ErrValidation)
}

func TestRegistry_CreateType_EmptyNameRejected(t *testing.T) {
	store := newTestStore(t)
	registry := leave.NewRegistry(store)

	name := "   "
	_, err := registry.CreateType(context.Background(), tenantAcme, leave.LeaveTypeInput{Name: &name})
	assert.ErrorIs(t, err, leave.ErrValidation)
}

func TestRegistry_MissingTenantRejectedBeforeStore(t *testing.T) {
	store := newTestStore(t)
	registry := leave.NewRegistry(store)

	_, err := registry.ListTypes(context.Background(), "")
	assert.ErrorIs(t, err, leave.ErrTenantContextMissing)
}

// =============================================================================
// UPDATE TESTS
// =============================================================================

func TestRegistry_UpdateType_PartialFields(t *testing.T) {
	// GIVEN: An existing type
	// WHEN: Updating only the accrual rate
	// THEN: The rate changes and every other field is untouched

	store := newTestStore(t)
	ctx := context.Background()
	registry := leave.NewRegistry(store)

	lt := seedType(t, store, tenantAcme, "Annual Leave", "20", "0", true)

	rate := dec("1.5")
	updated, err := registry.UpdateType(ctx, tenantAcme, lt.ID, leave.LeaveTypeInput{
		AccrualRate: &rate,
	})
	require.NoError(t, err)

	assert.Equal(t, "Annual Leave", updated.Name)
	assert.True(t, updated.RequiresApproval)
	assert.True(t, updated.DefaultBalance.Equal(dec("20")))
	assert.True(t, updated.AccrualRate.Equal(dec("1.5")))
}

func TestRegistry_UpdateType_NotFound(t *testing.T) {
	store := newTestStore(t)
	registry := leave.NewRegistry(store)

	name := "whatever"
	_, err := registry.UpdateType(context.Background(), tenantAcme, "missing", leave.LeaveTypeInput{Name: &name})
	assert.ErrorIs(t, err, leave.ErrNotFound)
}

func TestRegistry_UpdateType_WrongTenantIsNotFound(t *testing.T) {
	// A type id from one tenant must be invisible to another.

	store := newTestStore(t)
	registry := leave.NewRegistry(store)

	lt := seedType(t, store, tenantAcme, "Annual Leave", "20", "0", true)

	name := "Hijacked"
	_, err := registry.UpdateType(context.Background(), tenantGlobe, lt.ID, leave.LeaveTypeInput{Name: &name})
	assert.ErrorIs(t, err, leave.ErrNotFound)
}

// =============================================================================
// DELETE TESTS
// =============================================================================

func TestRegistry_DeleteType_UnusedSucceeds(t *testing.T) {
	// No employees yet, so the fan-out created no balance rows.

	store := newTestStore(t)
	ctx := context.Background()
	registry := leave.NewRegistry(store)

	lt := seedType(t, store, tenantAcme, "Annual Leave", "20", "0", true)

	require.NoError(t, registry.DeleteType(ctx, tenantAcme, lt.ID))

	types, err := registry.ListTypes(ctx, tenantAcme)
	require.NoError(t, err)
	assert.Empty(t, types)
}

func TestRegistry_DeleteType_BlockedByBalanceRows(t *testing.T) {
	// GIVEN: A type whose creation fanned out a balance row
	// WHEN: Deleting it
	// THEN: InUseError naming the reference counts

	store := newTestStore(t)
	registry := leave.NewRegistry(store)

	seedEmployee(t, store, tenantAcme, "emp-1", "Alice")
	lt := seedType(t, store, tenantAcme, "Annual Leave", "20", "0", true)

	err := registry.DeleteType(context.Background(), tenantAcme, lt.ID)
	require.Error(t, err)
	var inUse *leave.InUseError
	require.ErrorAs(t, err, &inUse)
	assert.Equal(t, 0, inUse.Requests)
	assert.Equal(t, 1, inUse.Balances)
}

func TestRegistry_DeleteType_NotFound(t *testing.T) {
	store := newTestStore(t)
	registry := leave.NewRegistry(store)

	err := registry.DeleteType(context.Background(), tenantAcme, "missing")
	assert.ErrorIs(t, err, leave.ErrNotFound)
}
