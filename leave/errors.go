/*
errors.go - Centralized error taxonomy for the leave engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every service failure maps to exactly one of the sentinels below, so
  callers (the HTTP layer in particular) can classify with errors.Is/As.

ERROR CATEGORIES:
  1. Not-found errors - Missing type/request/holiday/employee
  2. Business-rule errors - Insufficient balance, in-use, bad transition
  3. Concurrency errors - Optimistic guard tripped
  4. Caller errors - Missing tenant context, missing authorization, bad input

USAGE:
  if errors.Is(err, leave.ErrInsufficientBalance) { ... }

  var ib *leave.InsufficientBalanceError
  if errors.As(err, &ib) { ... ib.Shortfall ... }

SEE ALSO:
  - request.go, registry.go, ledger.go: Producers of these errors
  - api/handlers.go: Maps each sentinel to an HTTP status
*/
package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced type, request, holiday, or
	// employee does not exist within the caller's tenant.
	ErrNotFound = errors.New("not found")

	// ErrInUse is returned when a leave type cannot be deleted because
	// requests or balance rows still reference it. Non-retryable user error.
	ErrInUse = errors.New("leave type in use")

	// ErrInsufficientBalance is returned when a debit would exceed the
	// available balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidTransition is returned when a status mutation is attempted
	// on a request that is no longer pending.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConcurrentModification is returned when the conditional status
	// update affects zero rows: another caller won the race.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrUnauthorized is returned when the acting identity lacks the
	// required role or ownership.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTenantContextMissing is returned before any database access when
	// an operation is invoked without a resolved tenant.
	ErrTenantContextMissing = errors.New("tenant context missing")

	// ErrValidation is the root of all field-level validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrBalanceRowMissing indicates an internal consistency failure: a
	// balance row was still absent after ensure-and-retry. Should not occur.
	ErrBalanceRowMissing = errors.New("balance row missing after ensure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError details a balance shortage.
type InsufficientBalanceError struct {
	EmployeeID  EmployeeID
	LeaveTypeID LeaveTypeID
	Available   decimal.Decimal
	Requested   decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %s, requested %s",
		e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// InvalidTransitionError details a rejected status mutation.
type InvalidTransitionError struct {
	RequestID RequestID
	From      RequestStatus
	To        RequestStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition request %s from %s to %s", e.RequestID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// InUseError details why a leave type deletion was blocked.
type InUseError struct {
	LeaveTypeID LeaveTypeID
	Requests    int
	Balances    int
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("leave type %s is referenced by %d request(s) and %d balance row(s)",
		e.LeaveTypeID, e.Requests, e.Balances)
}

func (e *InUseError) Unwrap() error { return ErrInUse }

// ValidationError is a field-level input failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is the caller's fault and safe to
// surface as a 4xx rather than a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInUse) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrTenantContextMissing)
}

// IsConflict reports whether the error is a lost race that may succeed on a
// fresh read-then-retry by the caller.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// requireTenant is the fail-fast guard every public service method runs
// before touching the store.
func requireTenant(id TenantID) error {
	if id == "" {
		return ErrTenantContextMissing
	}
	return nil
}
