package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for tenant data access.
// Reads on tenant-owned entities (users, clients) are scoped to the context
// tenant; operations taking an explicit tenant id are the auditable opt-outs.
type Repository interface {
	// Tenant operations (tenants are the aggregate root, not scoped)
	CreateTenant(ctx context.Context, t *Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error)
	UpdateTenant(ctx context.Context, t *Tenant) error
	SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error

	// User operations (scoped)
	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CountUsers(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// Client operations (scoped)
	CreateClient(ctx context.Context, c *Client) error
	GetClient(ctx context.Context, id uuid.UUID) (*Client, error)
	ListClients(ctx context.Context) ([]*Client, error)
	FindClientByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*Client, error)
	CountClients(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new tenant repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// --- Tenant Operations ---

func (r *repository) CreateTenant(ctx context.Context, t *Tenant) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrSlugTaken
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

func (r *repository) GetTenant(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	var t Tenant
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

func (r *repository) GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	var t Tenant
	err := r.db.WithContext(ctx).First(&t, "slug = ?", slug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("get tenant by slug: %w", err)
	}
	return &t, nil
}

func (r *repository) UpdateTenant(ctx context.Context, t *Tenant) error {
	if err := r.db.WithContext(ctx).Save(t).Error; err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	return nil
}

func (r *repository) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	err := r.db.WithContext(ctx).
		Model(&Tenant{}).
		Where("id = ?", id).
		Update("stripe_customer_id", customerID).Error
	if err != nil {
		return fmt.Errorf("set stripe customer id: %w", err)
	}
	return nil
}

// --- User Operations ---

func (r *repository) CreateUser(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	Assign(ctx, &u.TenantID)
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).
		Scopes(Scoped(ctx)).
		Where("email = ?", email).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (r *repository) CountUsers(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&User{}).
		Scopes(ScopedTo(tenantID)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// --- Client Operations ---

func (r *repository) CreateClient(ctx context.Context, c *Client) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	Assign(ctx, &c.TenantID)
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

func (r *repository) GetClient(ctx context.Context, id uuid.UUID) (*Client, error) {
	var c Client
	err := r.db.WithContext(ctx).
		Scopes(Scoped(ctx)).
		First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &c, nil
}

func (r *repository) ListClients(ctx context.Context) ([]*Client, error) {
	var clients []*Client
	err := r.db.WithContext(ctx).
		Scopes(Scoped(ctx)).
		Order("name ASC").
		Find(&clients).Error
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

// FindClientByPhone looks a client up by phone within one explicitly supplied
// tenant. Used by public booking where no tenant context is established yet.
func (r *repository) FindClientByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*Client, error) {
	var c Client
	err := r.db.WithContext(ctx).
		Scopes(ScopedTo(tenantID)).
		Where("phone = ?", phone).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("find client by phone: %w", err)
	}
	return &c, nil
}

func (r *repository) CountClients(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Client{}).
		Scopes(ScopedTo(tenantID)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count clients: %w", err)
	}
	return count, nil
}
