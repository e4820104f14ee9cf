package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// WorkingHours represents one weekly opening interval. A nil StaffID marks a
// business-wide default; staff rows are intersected with the defaults at read
// time, never merged at write time.
type WorkingHours struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID  `json:"tenant_id" gorm:"type:uuid;index;not null"`
	StaffID     *uuid.UUID `json:"staff_id,omitempty" gorm:"type:uuid;index"`
	DayOfWeek   int        `json:"day_of_week" gorm:"not null"` // 0 = Sunday .. 6 = Saturday
	StartMinute int        `json:"start_minute" gorm:"not null"`
	EndMinute   int        `json:"end_minute" gorm:"not null"`
	IsActive    bool       `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName returns the database table name.
func (WorkingHours) TableName() string {
	return "working_hours"
}

// IsBusinessWide reports whether the row is a business-wide default.
func (w *WorkingHours) IsBusinessWide() bool {
	return w.StaffID == nil
}

// AppointmentStatus represents the status of an appointment.
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCanceled  AppointmentStatus = "canceled"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// Appointment represents a tenant-scoped booking.
type Appointment struct {
	ID        uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID         `json:"tenant_id" gorm:"type:uuid;index;not null"`
	ClientID  uuid.UUID         `json:"client_id" gorm:"type:uuid;not null"`
	StaffID   uuid.UUID         `json:"staff_id" gorm:"type:uuid;not null"`
	ServiceID uuid.UUID         `json:"service_id" gorm:"type:uuid;not null"`
	StartsAt  time.Time         `json:"starts_at" gorm:"index;not null"`
	EndsAt    time.Time         `json:"ends_at" gorm:"not null"`
	Status    AppointmentStatus `json:"status" gorm:"default:scheduled"`
	Notes     string            `json:"notes"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// TableName returns the database table name.
func (Appointment) TableName() string {
	return "appointments"
}
