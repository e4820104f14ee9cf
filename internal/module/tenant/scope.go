package tenant

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Scoped returns a gorm scope that restricts queries to the context tenant.
// When the context carries no tenant the query runs unrestricted; callers
// reach that state only through WithoutTenant, which keeps the bypass
// explicit and auditable at the call site.
func Scoped(ctx context.Context) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if id, ok := TenantID(ctx); ok {
			return db.Where("tenant_id = ?", id)
		}
		return db
	}
}

// ScopedTo returns a gorm scope pinned to an explicit tenant, regardless of
// what the context carries. Used for cross-boundary lookups where the tenant
// is supplied by the caller (e.g. public booking lookups).
func ScopedTo(id uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", id)
	}
}
