package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the status of a subscription, mirroring the
// payment processor's subscription statuses.
type SubscriptionStatus string

const (
	StatusTrialing   SubscriptionStatus = "trialing"
	StatusActive     SubscriptionStatus = "active"
	StatusPastDue    SubscriptionStatus = "past_due"
	StatusCanceled   SubscriptionStatus = "canceled"
	StatusIncomplete SubscriptionStatus = "incomplete"
)

// IsValid checks if the status is valid.
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case StatusTrialing, StatusActive, StatusPastDue, StatusCanceled, StatusIncomplete:
		return true
	}
	return false
}

// freeExternalIDPrefix prefixes external ids of free-tier subscriptions,
// which never exist on the payment processor.
const freeExternalIDPrefix = "free_"

// FreeExternalID builds the synthetic external id of a free subscription.
func FreeExternalID(tenantID uuid.UUID) string {
	return freeExternalIDPrefix + tenantID.String()
}

// Subscription links a tenant to a plan and its billing state.
// Exactly one subscription is current per tenant at a time; superseded rows
// keep Current=false as history.
type Subscription struct {
	ID              uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID          `json:"tenant_id" gorm:"type:uuid;index;not null"`
	PlanID          uuid.UUID          `json:"plan_id" gorm:"type:uuid;not null"`
	ExternalID      string             `json:"-" gorm:"index"`
	Status          SubscriptionStatus `json:"status" gorm:"not null;default:active"`
	BillingCycle    BillingCycle       `json:"billing_cycle" gorm:"default:monthly"`
	TrialEndsAt     *time.Time         `json:"trial_ends_at,omitempty"`
	EndsAt          *time.Time         `json:"ends_at,omitempty"` // non-nil marks scheduled or actual cancellation
	ScheduledPlanID *uuid.UUID         `json:"scheduled_plan_id,omitempty" gorm:"type:uuid"`
	Current         bool               `json:"current" gorm:"index;default:true"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`

	// Relations
	Plan *Plan `json:"plan,omitempty" gorm:"foreignKey:PlanID"`
}

// TableName returns the database table name.
func (Subscription) TableName() string {
	return "subscriptions"
}

// IsFree reports whether this is a free-tier subscription.
func (s *Subscription) IsFree() bool {
	return strings.HasPrefix(s.ExternalID, freeExternalIDPrefix)
}

// IsActive returns true if the subscription is active or trialing.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive || s.Status == StatusTrialing
}

// IsCanceled returns true if the subscription is canceled.
func (s *Subscription) IsCanceled() bool {
	return s.Status == StatusCanceled
}

// OnTrial reports whether a trial is currently running.
func (s *Subscription) OnTrial(now time.Time) bool {
	return s.TrialEndsAt != nil && now.Before(*s.TrialEndsAt)
}

// TrialDaysRemaining returns whole days left on the trial, rounded up, zero
// when no trial is running.
func (s *Subscription) TrialDaysRemaining(now time.Time) int {
	if !s.OnTrial(now) {
		return 0
	}
	remaining := s.TrialEndsAt.Sub(now)
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// CancellationScheduled reports whether the subscription will end but has
// not ended yet.
func (s *Subscription) CancellationScheduled(now time.Time) bool {
	return s.EndsAt != nil && now.Before(*s.EndsAt) && !s.IsCanceled()
}

// PendingChange describes a plan change scheduled for the end of the period.
type PendingChange struct {
	PlanID      uuid.UUID `json:"plan_id"`
	PlanSlug    string    `json:"plan_slug"`
	EffectiveAt time.Time `json:"effective_at"`
}

// PeriodKey formats a time as a usage period key (YYYY-MM).
func PeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// PeriodBounds returns the UTC start and end of the period containing t.
func PeriodBounds(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// UsageRecord is the per-tenant, per-period usage audit row. One row exists
// per tenant per billing period, created lazily; past periods are never
// rewritten.
type UsageRecord struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	TenantID       uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;uniqueIndex:idx_usage_tenant_period"`
	Period         string    `json:"period" gorm:"size:7;not null;uniqueIndex:idx_usage_tenant_period"` // YYYY-MM
	Appointments   int64     `json:"appointments" gorm:"default:0"`
	ActiveStaff    int64     `json:"active_staff" gorm:"default:0"`
	ActiveServices int64     `json:"active_services" gorm:"default:0"`
	Clients        int64     `json:"clients" gorm:"default:0"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (UsageRecord) TableName() string {
	return "usage_records"
}
