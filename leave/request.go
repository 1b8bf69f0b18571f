/*
request.go - Leave request state machine

PURPOSE:
  Lifecycle of a single leave request:

      Pending ──▶ Approved
         │  ╲
         │   ╲──▶ Rejected
         ▼
      Cancelled

  All three outcomes are terminal. Approval debits the balance; rejection
  and cancellation do not touch it because a pending request never debited
  anything.

TRANSACTIONAL GUARANTEE:
  Request creation (type lookup, sufficiency check, insert, auto-approve
  debit) runs in one database transaction: either the request row and its
  debit both land, or neither does. The same holds for approval.

CONCURRENCY:
  Two approvers acting on the same request race. The status update is a
  single conditional statement (WHERE status = 'pending'); the loser sees
  zero rows affected and gets ErrConcurrentModification, never a double
  debit.

AUTHORIZATION:
  The caller context comes from the external auth layer as an Actor.
  SetStatus requires Actor.Admin; Cancel requires ownership. Any employee
  may create requests for themselves.
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Requests orchestrates the leave request lifecycle.
type Requests struct {
	Store  Store
	Ledger *Ledger
}

func NewRequests(store Store) *Requests {
	return &Requests{Store: store, Ledger: NewLedger(store)}
}

// Create validates and persists a new leave request for the acting
// employee. Types that do not require approval are auto-approved and
// debited immediately, in the same transaction as the insert.
func (rq *Requests) Create(ctx context.Context, tenantID TenantID, employeeID EmployeeID, typeID LeaveTypeID, start, end Date, reason string) (*Request, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if start.IsZero() || end.IsZero() {
		return nil, &ValidationError{Field: "startDate", Message: "start and end dates are required"}
	}
	if end.Before(start) {
		return nil, &ValidationError{Field: "endDate", Message: "must not be before start date"}
	}

	req := Request{
		ID:          RequestID(uuid.NewString()),
		TenantID:    tenantID,
		EmployeeID:  employeeID,
		LeaveTypeID: typeID,
		StartDate:   start,
		EndDate:     end,
		Reason:      reason,
		RequestDate: time.Now().UTC(),
	}
	requestedDays := req.RequestedDays()

	err := rq.Store.WithTx(ctx, func(tx Store) error {
		lt, err := tx.GetType(ctx, tenantID, typeID)
		if err != nil {
			return err
		}
		if lt == nil {
			return fmt.Errorf("leave type %s: %w", typeID, ErrNotFound)
		}

		if lt.RequiresApproval {
			available, err := rq.Ledger.balanceIn(ctx, tx, tenantID, employeeID, typeID)
			if err != nil {
				return err
			}
			if available.LessThan(requestedDays) {
				return &InsufficientBalanceError{
					EmployeeID:  employeeID,
					LeaveTypeID: typeID,
					Available:   available,
					Requested:   requestedDays,
				}
			}
			req.Status = StatusPending
		} else {
			req.Status = StatusApproved
		}

		if err := tx.InsertRequest(ctx, req); err != nil {
			return err
		}

		if req.Status == StatusApproved {
			// Auto-approved: debit in the same transaction as the insert.
			return rq.Ledger.Adjust(ctx, tx, tenantID, employeeID, typeID,
				requestedDays.Neg(), EntryDebit, string(req.ID), string(employeeID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// SetStatus moves a pending request to Approved or Rejected. Only
// administrators may call it. Approval recomputes the day count from the
// stored dates and debits the balance in the same transaction as the
// status update.
func (rq *Requests) SetStatus(ctx context.Context, tenantID TenantID, id RequestID, to RequestStatus, actor Actor, comments string) (*Request, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if !actor.Admin {
		return nil, fmt.Errorf("set status requires an administrator: %w", ErrUnauthorized)
	}
	if to != StatusApproved && to != StatusRejected {
		return nil, &ValidationError{Field: "status", Message: "must be approved or rejected"}
	}

	var updated *Request
	err := rq.Store.WithTx(ctx, func(tx Store) error {
		req, err := tx.GetRequest(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("request %s: %w", id, ErrNotFound)
		}
		if req.Status.Terminal() {
			return &InvalidTransitionError{RequestID: id, From: req.Status, To: to}
		}

		now := time.Now().UTC()
		approver := actor.EmployeeID
		rows, err := tx.UpdateRequestStatus(ctx, tenantID, id, to, &approver, &now, comments)
		if err != nil {
			return err
		}
		if rows == 0 {
			// Another approver won between our read and this statement.
			return fmt.Errorf("request %s: %w", id, ErrConcurrentModification)
		}

		if to == StatusApproved {
			days := req.RequestedDays()
			if err := rq.Ledger.Adjust(ctx, tx, tenantID, req.EmployeeID, req.LeaveTypeID,
				days.Neg(), EntryDebit, string(id), string(actor.EmployeeID)); err != nil {
				return err
			}
		}

		req.Status = to
		req.ApproverID = &approver
		req.ApprovalDate = &now
		req.Comments = comments
		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Cancel cancels a still-pending request. Only the owning employee may
// cancel; there is no admin override. Cancelling an already-approved
// request (with a balance refund) is an open product question and is
// deliberately not implemented.
func (rq *Requests) Cancel(ctx context.Context, tenantID TenantID, id RequestID, caller EmployeeID) (*Request, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	var updated *Request
	err := rq.Store.WithTx(ctx, func(tx Store) error {
		req, err := tx.GetRequest(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("request %s: %w", id, ErrNotFound)
		}
		if req.EmployeeID != caller {
			return fmt.Errorf("request %s belongs to another employee: %w", id, ErrUnauthorized)
		}
		if req.Status.Terminal() {
			return &InvalidTransitionError{RequestID: id, From: req.Status, To: StatusCancelled}
		}

		// No balance adjustment: a pending request never debited anything.
		rows, err := tx.UpdateRequestStatus(ctx, tenantID, id, StatusCancelled, nil, nil, "")
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("request %s: %w", id, ErrConcurrentModification)
		}

		req.Status = StatusCancelled
		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListByEmployee returns the employee's requests, newest first.
func (rq *Requests) ListByEmployee(ctx context.Context, tenantID TenantID, employeeID EmployeeID) ([]Request, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	return rq.Store.ListRequestsByEmployee(ctx, tenantID, employeeID)
}

// ListPending returns the tenant's approver work queue, oldest first.
func (rq *Requests) ListPending(ctx context.Context, tenantID TenantID) ([]Request, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	return rq.Store.ListPendingRequests(ctx, tenantID)
}

// Get returns a single request or ErrNotFound.
func (rq *Requests) Get(ctx context.Context, tenantID TenantID, id RequestID) (*Request, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	req, err := rq.Store.GetRequest(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
	}
	return req, nil
}
