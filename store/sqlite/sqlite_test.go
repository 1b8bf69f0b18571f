package sqlite_test

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
// TEST SETUP
// =============================================================================

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func insertEmployee(t *testing.T, s *sqlite.Store, tenantID leave.TenantID, id string) {
	t.Helper()
	require.NoError(t, s.SaveEmployee(context.Background(), leave.Employee{
		ID:        leave.EmployeeID(id),
		TenantID:  tenantID,
		Name:      id,
		Active:    true,
		HireDate:  leave.NewDate(2024, time.June, 1),
		CreatedAt: time.Now().UTC(),
	}))
}

func insertType(t *testing.T, s *sqlite.Store, tenantID leave.TenantID, id, name, defaultBalance string) leave.LeaveType {
	t.Helper()
	now := time.Now().UTC()
	lt := leave.LeaveType{
		ID:             leave.LeaveTypeID(id),
		TenantID:       tenantID,
		Name:           name,
		DefaultBalance: decimal.RequireFromString(defaultBalance),
		AccrualRate:    decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, s.InsertType(context.Background(), lt))
	return lt
}

func insertPendingRequest(t *testing.T, s *sqlite.Store, tenantID leave.TenantID, id, employeeID, typeID string) {
	t.Helper()
	require.NoError(t, s.InsertRequest(context.Background(), leave.Request{
		ID:          leave.RequestID(id),
		TenantID:    tenantID,
		EmployeeID:  leave.EmployeeID(employeeID),
		LeaveTypeID: leave.LeaveTypeID(typeID),
		StartDate:   leave.NewDate(2025, time.March, 10),
		EndDate:     leave.NewDate(2025, time.March, 14),
		Status:      leave.StatusPending,
		RequestDate: time.Now().UTC(),
	}))
}

// =============================================================================
// ENSURE (UPSERT-IGNORE) TESTS
// =============================================================================

func TestEnsureBalances_InsertOnConflictDoNothing(t *testing.T) {
	// GIVEN: A balance row already mutated away from the default
	// WHEN: Ensure runs again for the same (employee, type)
	// THEN: The mutation survives; the conflict clause ignores the insert

	s := newStore(t)
	ctx := context.Background()

	insertEmployee(t, s, "acme", "emp-1")
	insertType(t, s, "acme", "type-1", "Annual Leave", "20")

	require.NoError(t, s.EnsureBalancesForEmployee(ctx, "acme", "emp-1"))

	rows, err := s.AddToBalance(ctx, "acme", "emp-1", "type-1", decimal.RequireFromString("-4"))
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	require.NoError(t, s.EnsureBalancesForEmployee(ctx, "acme", "emp-1"))

	bal, ok, err := s.GetBalance(ctx, "acme", "emp-1", "type-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, bal.Equal(decimal.RequireFromString("16")), "expected 16, got %s", bal)
}

func TestEnsureBalancesForType_CoversAllEmployees(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	insertEmployee(t, s, "acme", "emp-1")
	insertEmployee(t, s, "acme", "emp-2")
	insertEmployee(t, s, "globe", "emp-other")
	insertType(t, s, "acme", "type-1", "Annual Leave", "20")

	require.NoError(t, s.EnsureBalancesForType(ctx, "acme", "type-1"))

	for _, emp := range []leave.EmployeeID{"emp-1", "emp-2"} {
		_, ok, err := s.GetBalance(ctx, "acme", emp, "type-1")
		require.NoError(t, err)
		assert.True(t, ok, "row for %s", emp)
	}

	// The other tenant's employee gets nothing.
	_, ok, err := s.GetBalance(ctx, "globe", "emp-other", "type-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

// =============================================================================
// ATOMIC INCREMENT TESTS
// =============================================================================

func TestAddToBalance_MissingRowReportsZeroRows(t *testing.T) {
	s := newStore(t)

	rows, err := s.AddToBalance(context.Background(), "acme", "ghost", "type-1", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows)
}

func TestAddToBalance_FractionalDeltas(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	insertEmployee(t, s, "acme", "emp-1")
	insertType(t, s, "acme", "type-1", "Annual Leave", "20")
	require.NoError(t, s.EnsureBalancesForEmployee(ctx, "acme", "emp-1"))

	for i := 0; i < 3; i++ {
		rows, err := s.AddToBalance(ctx, "acme", "emp-1", "type-1", decimal.RequireFromString("1.5"))
		require.NoError(t, err)
		require.EqualValues(t, 1, rows)
	}

	bal, _, err := s.GetBalance(ctx, "acme", "emp-1", "type-1")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("24.5")), "expected 24.5, got %s", bal)
}

// =============================================================================
// OPTIMISTIC STATUS GUARD TESTS
// =============================================================================

func TestUpdateRequestStatus_GuardAllowsExactlyOneWinner(t *testing.T) {
	// GIVEN: A pending request
	// WHEN: Two status updates run one after the other
	// THEN: The first reports one row, the second zero

	s := newStore(t)
	ctx := context.Background()

	insertEmployee(t, s, "acme", "emp-1")
	insertType(t, s, "acme", "type-1", "Annual Leave", "20")
	insertPendingRequest(t, s, "acme", "req-1", "emp-1", "type-1")

	approver := leave.EmployeeID("mgr-1")
	now := time.Now().UTC()

	rows, err := s.UpdateRequestStatus(ctx, "acme", "req-1", leave.StatusApproved, &approver, &now, "ok")
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	rows, err = s.UpdateRequestStatus(ctx, "acme", "req-1", leave.StatusRejected, &approver, &now, "late")
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows, "the guard must reject the loser")

	req, err := s.GetRequest(ctx, "acme", "req-1")
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, leave.StatusApproved, req.Status)
	require.NotNil(t, req.ApproverID)
	assert.Equal(t, approver, *req.ApproverID)
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	insertEmployee(t, s, "acme", "emp-1")

	err := s.WithTx(ctx, func(tx leave.Store) error {
		now := time.Now().UTC()
		if err := tx.InsertType(ctx, leave.LeaveType{
			ID: "type-1", TenantID: "acme", Name: "Annual Leave",
			DefaultBalance: decimal.NewFromInt(20), AccrualRate: decimal.Zero,
			CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	lt, err := s.GetType(ctx, "acme", "type-1")
	require.NoError(t, err)
	assert.Nil(t, lt, "insert must be rolled back")
}

func TestWithTx_NestedJoinsSurroundingTransaction(t *testing.T) {
	// Services call WithTx uniformly; a nested call inside a transaction
	// must not try to open a second one.

	s := newStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx leave.Store) error {
		return tx.WithTx(ctx, func(inner leave.Store) error {
			return inner.SaveEmployee(ctx, leave.Employee{
				ID: "emp-1", TenantID: "acme", Name: "Alice", Active: true,
				HireDate: leave.NewDate(2024, time.June, 1), CreatedAt: time.Now().UTC(),
			})
		})
	})
	require.NoError(t, err)

	emp, err := s.GetEmployee(ctx, "acme", "emp-1")
	require.NoError(t, err)
	assert.NotNil(t, emp)
}

// =============================================================================
// CONSTRAINT MAPPING TESTS
// =============================================================================

func TestInsertType_DuplicateNameIsValidationError(t *testing.T) {
	s := newStore(t)

	insertType(t, s, "acme", "type-1", "Annual Leave", "20")

	now := time.Now().UTC()
	err := s.InsertType(context.Background(), leave.LeaveType{
		ID: "type-2", TenantID: "acme", Name: "Annual Leave",
		DefaultBalance: decimal.Zero, AccrualRate: decimal.Zero,
		CreatedAt: now, UpdatedAt: now,
	})
	assert.ErrorIs(t, err, leave.ErrValidation)
}

func TestInsertHoliday_DuplicateDateIsValidationError(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	holiday := leave.Holiday{
		ID: "hol-1", TenantID: "acme", Name: "Founding Day",
		Date: leave.NewDate(2025, time.July, 4),
	}
	require.NoError(t, s.InsertHoliday(ctx, holiday))

	holiday.ID = "hol-2"
	holiday.Name = "Independence Day"
	err := s.InsertHoliday(ctx, holiday)
	assert.ErrorIs(t, err, leave.ErrValidation)

	// Same date in another tenant is fine.
	holiday.ID = "hol-3"
	holiday.TenantID = "globe"
	assert.NoError(t, s.InsertHoliday(ctx, holiday))
}

// =============================================================================
// TENANT ENUMERATION TESTS
// =============================================================================

func TestListTenants_UnionOfEmployeesAndTypes(t *testing.T) {
	s := newStore(t)

	insertEmployee(t, s, "acme", "emp-1")
	insertType(t, s, "globe", "type-1", "Annual Leave", "20")
	insertEmployee(t, s, "globe", "emp-2")

	tenants, err := s.ListTenants(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []leave.TenantID{"acme", "globe"}, tenants)
}
