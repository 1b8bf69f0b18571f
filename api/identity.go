/*
identity.go - Tenant and actor resolution

PURPOSE:
  Authentication, session handling, and tenant-by-subdomain resolution are
  owned by the upstream gateway. By the time a request reaches this
  service, identity has been reduced to three trusted headers:

      X-Tenant-ID    resolved tenant identifier (required)
      X-Employee-ID  acting employee (required for employee operations)
      X-Admin-Role   "true" when the caller has administrative privilege

  This middleware copies them into the request context; handlers pass them
  to the engine as explicit parameters. A missing tenant is not rejected
  here - the engine's own fail-fast check produces the typed
  ErrTenantContextMissing so the error surface is uniform.
*/
package api

import (
	"context"
	"net/http"

	"github.com/syntaxone/leave-engine/leave"
)

const (
	headerTenantID   = "X-Tenant-ID"
	headerEmployeeID = "X-Employee-ID"
	headerAdminRole  = "X-Admin-Role"
)

type contextKey string

const (
	tenantKey contextKey = "tenant"
	actorKey  contextKey = "actor"
)

// Identity extracts the gateway-supplied identity headers.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = context.WithValue(ctx, tenantKey, leave.TenantID(r.Header.Get(headerTenantID)))
		ctx = context.WithValue(ctx, actorKey, leave.Actor{
			EmployeeID: leave.EmployeeID(r.Header.Get(headerEmployeeID)),
			Admin:      r.Header.Get(headerAdminRole) == "true",
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func tenantFrom(r *http.Request) leave.TenantID {
	id, _ := r.Context().Value(tenantKey).(leave.TenantID)
	return id
}

func actorFrom(r *http.Request) leave.Actor {
	actor, _ := r.Context().Value(actorKey).(leave.Actor)
	return actor
}
