package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/salonhub/server/internal/module/tenant"
	"gorm.io/gorm"
)

// Repository defines the interface for scheduling data access.
type Repository interface {
	// Working hours (scoped)
	ListWorkingHours(ctx context.Context, staffID *uuid.UUID) ([]*WorkingHours, error)
	ReplaceWorkingHours(ctx context.Context, staffID *uuid.UUID, hours []*WorkingHours) error
	EffectiveHoursForDay(ctx context.Context, staffID uuid.UUID, day int) ([]Interval, error)

	// Appointments (scoped)
	CreateAppointment(ctx context.Context, a *Appointment) error
	ListAppointmentsBetween(ctx context.Context, start, end time.Time) ([]*Appointment, error)
	CountAppointmentsInPeriod(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new scheduling repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// --- Working Hours ---

func (r *repository) ListWorkingHours(ctx context.Context, staffID *uuid.UUID) ([]*WorkingHours, error) {
	q := r.db.WithContext(ctx).Scopes(tenant.Scoped(ctx))
	if staffID == nil {
		q = q.Where("staff_id IS NULL")
	} else {
		q = q.Where("staff_id = ?", *staffID)
	}

	var hours []*WorkingHours
	if err := q.Order("day_of_week ASC, start_minute ASC").Find(&hours).Error; err != nil {
		return nil, fmt.Errorf("list working hours: %w", err)
	}
	return hours, nil
}

// ReplaceWorkingHours swaps the full weekly set for one staff member (or the
// business defaults when staffID is nil) in a single transaction.
func (r *repository) ReplaceWorkingHours(ctx context.Context, staffID *uuid.UUID, hours []*WorkingHours) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Scopes(tenant.Scoped(ctx))
		if staffID == nil {
			del = del.Where("staff_id IS NULL")
		} else {
			del = del.Where("staff_id = ?", *staffID)
		}
		if err := del.Delete(&WorkingHours{}).Error; err != nil {
			return fmt.Errorf("clear working hours: %w", err)
		}

		for _, w := range hours {
			if w.ID == uuid.Nil {
				w.ID = uuid.New()
			}
			w.StaffID = staffID
			tenant.Assign(ctx, &w.TenantID)
			if err := tx.Create(w).Error; err != nil {
				return fmt.Errorf("insert working hours: %w", err)
			}
		}
		return nil
	})
}

// EffectiveHoursForDay intersects a staff member's hours with the business
// defaults for one weekday.
func (r *repository) EffectiveHoursForDay(ctx context.Context, staffID uuid.UUID, day int) ([]Interval, error) {
	business, err := r.ListWorkingHours(ctx, nil)
	if err != nil {
		return nil, err
	}
	staff, err := r.ListWorkingHours(ctx, &staffID)
	if err != nil {
		return nil, err
	}
	return EffectiveHours(business, staff, day), nil
}

// --- Appointments ---

func (r *repository) CreateAppointment(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	tenant.Assign(ctx, &a.TenantID)
	if a.Status == "" {
		a.Status = AppointmentStatusScheduled
	}
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

func (r *repository) ListAppointmentsBetween(ctx context.Context, start, end time.Time) ([]*Appointment, error) {
	var appts []*Appointment
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scoped(ctx)).
		Where("starts_at >= ? AND starts_at < ?", start, end).
		Order("starts_at ASC").
		Find(&appts).Error
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

func (r *repository) CountAppointmentsInPeriod(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Appointment{}).
		Scopes(tenant.ScopedTo(tenantID)).
		Where("starts_at >= ? AND starts_at < ?", periodStart, periodEnd).
		Where("status <> ?", AppointmentStatusCanceled).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count appointments: %w", err)
	}
	return count, nil
}
