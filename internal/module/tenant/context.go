package tenant

import (
	"context"

	"github.com/google/uuid"
)

type tenantKey struct{}

// WithTenant returns a context carrying the current tenant id.
// It is set at request boundaries only, never mid-operation.
func WithTenant(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, tenantKey{}, id)
}

// WithoutTenant returns a context with any current tenant cleared.
// Queries made with such a context run unrestricted; this is a privileged
// capability reserved for system-level operations (schedulers, admin tooling).
func WithoutTenant(ctx context.Context) context.Context {
	return context.WithValue(ctx, tenantKey{}, uuid.Nil)
}

// TenantID returns the current tenant id and whether one is set.
func TenantID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(tenantKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// HasTenant reports whether the context carries a tenant.
func HasTenant(ctx context.Context) bool {
	_, ok := TenantID(ctx)
	return ok
}

// Assign populates dst from the context tenant when dst is unset.
// Used by repositories on entity creation.
func Assign(ctx context.Context, dst *uuid.UUID) {
	if *dst != uuid.Nil {
		return
	}
	if id, ok := TenantID(ctx); ok {
		*dst = id
	}
}
