package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Service represents a bookable offering (haircut, massage, ...), scoped to a tenant.
type Service struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID `json:"tenant_id" gorm:"type:uuid;index;not null"`
	Name            string    `json:"name" gorm:"not null"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes" gorm:"not null"`
	PriceCents      int64     `json:"price_cents" gorm:"not null"`
	Active          bool      `json:"active" gorm:"default:true"`
	SortOrder       int       `json:"sort_order" gorm:"default:0"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Service) TableName() string {
	return "services"
}

// Staff represents a tenant-scoped staff member who performs services.
type Staff struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID      `json:"tenant_id" gorm:"type:uuid;index;not null"`
	Name        string         `json:"name" gorm:"not null"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone"`
	Specialties pq.StringArray `json:"specialties" gorm:"type:text[]"`
	Active      bool           `json:"active" gorm:"default:true"`
	SortOrder   int            `json:"sort_order" gorm:"default:0"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName returns the database table name.
func (Staff) TableName() string {
	return "staff"
}
