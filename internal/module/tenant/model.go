package tenant

import (
	"time"

	"github.com/google/uuid"
)

// BusinessType categorizes a tenant's trade.
type BusinessType string

const (
	BusinessTypeSalon      BusinessType = "salon"
	BusinessTypeBarbershop BusinessType = "barbershop"
	BusinessTypeSpa        BusinessType = "spa"
	BusinessTypeClinic     BusinessType = "clinic"
	BusinessTypeOther      BusinessType = "other"
)

// IsValid checks if the business type is valid.
func (b BusinessType) IsValid() bool {
	switch b {
	case BusinessTypeSalon, BusinessTypeBarbershop, BusinessTypeSpa, BusinessTypeClinic, BusinessTypeOther:
		return true
	}
	return false
}

// Settings is an opaque per-tenant key-value map.
type Settings map[string]any

// Tenant represents a business account, the unit of data isolation.
// Tenants are never hard-deleted.
type Tenant struct {
	ID               uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	Name             string       `json:"name" gorm:"not null"`
	Slug             string       `json:"slug" gorm:"uniqueIndex;not null"`
	BusinessType     BusinessType `json:"business_type" gorm:"default:salon"`
	Address          string       `json:"address"`
	Phone            string       `json:"phone"`
	Email            string       `json:"email"`
	Timezone         string       `json:"timezone" gorm:"default:UTC"`
	StripeCustomerID *string      `json:"-"`
	Settings         Settings     `json:"settings" gorm:"serializer:json"`

	// Reservation policy
	BookingLeadTimeMinutes  int `json:"booking_lead_time_minutes" gorm:"default:60"`
	CancellationWindowHours int `json:"cancellation_window_hours" gorm:"default:24"`
	SlotGranularityMinutes  int `json:"slot_granularity_minutes" gorm:"default:15"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Tenant) TableName() string {
	return "tenants"
}

// HasStripeCustomer reports whether a billing-processor customer was provisioned.
func (t *Tenant) HasStripeCustomer() bool {
	return t.StripeCustomerID != nil && *t.StripeCustomerID != ""
}

// Setting returns a settings value and whether it was present.
func (t *Tenant) Setting(key string) (any, bool) {
	if t.Settings == nil {
		return nil, false
	}
	v, ok := t.Settings[key]
	return v, ok
}

// UserRole represents a tenant user's role.
type UserRole string

const (
	UserRoleOwner UserRole = "owner"
	UserRoleStaff UserRole = "staff"
)

// User represents a tenant-scoped account able to sign in.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID     uuid.UUID `json:"tenant_id" gorm:"type:uuid;index;not null;uniqueIndex:idx_users_tenant_email"`
	Email        string    `json:"email" gorm:"not null;uniqueIndex:idx_users_tenant_email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         UserRole  `json:"role" gorm:"default:staff"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (User) TableName() string {
	return "users"
}

// IsOwner reports whether the user owns the tenant.
func (u *User) IsOwner() bool {
	return u.Role == UserRoleOwner
}

// Client represents a tenant-scoped customer record.
type Client struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `json:"tenant_id" gorm:"type:uuid;index;not null"`
	Name      string    `json:"name" gorm:"not null"`
	Phone     string    `json:"phone" gorm:"index"`
	Email     string    `json:"email"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Client) TableName() string {
	return "clients"
}
