package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/salonhub/server/internal/module/tenant"
	"gorm.io/gorm"
)

// Repository defines the interface for catalog data access.
type Repository interface {
	// Service operations (scoped)
	CreateService(ctx context.Context, svc *Service) error
	GetService(ctx context.Context, id uuid.UUID) (*Service, error)
	ListServices(ctx context.Context) ([]*Service, error)
	UpdateService(ctx context.Context, svc *Service) error
	ReorderServices(ctx context.Context, orderedIDs []uuid.UUID) error
	CountActiveServices(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// Staff operations (scoped)
	CreateStaff(ctx context.Context, st *Staff) error
	GetStaff(ctx context.Context, id uuid.UUID) (*Staff, error)
	ListStaff(ctx context.Context) ([]*Staff, error)
	UpdateStaff(ctx context.Context, st *Staff) error
	ReorderStaff(ctx context.Context, orderedIDs []uuid.UUID) error
	CountActiveStaff(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// --- Service Operations ---

func (r *repository) CreateService(ctx context.Context, svc *Service) error {
	if svc.ID == uuid.Nil {
		svc.ID = uuid.New()
	}
	tenant.Assign(ctx, &svc.TenantID)
	if err := r.db.WithContext(ctx).Create(svc).Error; err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

func (r *repository) GetService(ctx context.Context, id uuid.UUID) (*Service, error) {
	var svc Service
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scoped(ctx)).
		First(&svc, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service: %w", err)
	}
	return &svc, nil
}

func (r *repository) ListServices(ctx context.Context) ([]*Service, error) {
	var services []*Service
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scoped(ctx)).
		Order("sort_order ASC, name ASC").
		Find(&services).Error
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

func (r *repository) UpdateService(ctx context.Context, svc *Service) error {
	if err := r.db.WithContext(ctx).Save(svc).Error; err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	return nil
}

// ReorderServices rewrites sort_order from the caller-supplied position list
// inside one transaction. Concurrent reorders for the same tenant race to
// last-write-wins; there is no optimistic-concurrency check.
func (r *repository) ReorderServices(ctx context.Context, orderedIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for position, id := range orderedIDs {
			err := tx.Model(&Service{}).
				Scopes(tenant.Scoped(ctx)).
				Where("id = ?", id).
				Update("sort_order", position).Error
			if err != nil {
				return fmt.Errorf("reorder service %s: %w", id, err)
			}
		}
		return nil
	})
}

func (r *repository) CountActiveServices(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Service{}).
		Scopes(tenant.ScopedTo(tenantID)).
		Where("active = ?", true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count active services: %w", err)
	}
	return count, nil
}

// --- Staff Operations ---

func (r *repository) CreateStaff(ctx context.Context, st *Staff) error {
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	tenant.Assign(ctx, &st.TenantID)
	if err := r.db.WithContext(ctx).Create(st).Error; err != nil {
		return fmt.Errorf("create staff: %w", err)
	}
	return nil
}

func (r *repository) GetStaff(ctx context.Context, id uuid.UUID) (*Staff, error) {
	var st Staff
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scoped(ctx)).
		First(&st, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, fmt.Errorf("get staff: %w", err)
	}
	return &st, nil
}

func (r *repository) ListStaff(ctx context.Context) ([]*Staff, error) {
	var staff []*Staff
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scoped(ctx)).
		Order("sort_order ASC, name ASC").
		Find(&staff).Error
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return staff, nil
}

func (r *repository) UpdateStaff(ctx context.Context, st *Staff) error {
	if err := r.db.WithContext(ctx).Save(st).Error; err != nil {
		return fmt.Errorf("update staff: %w", err)
	}
	return nil
}

// ReorderStaff mirrors ReorderServices for staff rows.
func (r *repository) ReorderStaff(ctx context.Context, orderedIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for position, id := range orderedIDs {
			err := tx.Model(&Staff{}).
				Scopes(tenant.Scoped(ctx)).
				Where("id = ?", id).
				Update("sort_order", position).Error
			if err != nil {
				return fmt.Errorf("reorder staff %s: %w", id, err)
			}
		}
		return nil
	})
}

func (r *repository) CountActiveStaff(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Staff{}).
		Scopes(tenant.ScopedTo(tenantID)).
		Where("active = ?", true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count active staff: %w", err)
	}
	return count, nil
}
