package billing

import (
	"time"

	"github.com/google/uuid"
)

// PlanSlugFree is the sentinel slug of the lowest tier.
const PlanSlugFree = "free"

// Well-known limit resources.
const (
	ResourceStaff        = "staff"
	ResourceServices     = "services"
	ResourceClients      = "clients"
	ResourceAppointments = "appointments_per_month"
)

// Unlimited marks a resource without a cap.
const Unlimited int64 = -1

// BillingCycle represents the billing period.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

// IsValid checks if the billing cycle is valid.
func (b BillingCycle) IsValid() bool {
	switch b {
	case BillingCycleMonthly, BillingCycleYearly:
		return true
	}
	return false
}

// FeatureMap maps a feature key to its enabled flag.
type FeatureMap map[string]bool

// LimitMap maps a resource to its numeric cap. -1 means unlimited.
type LimitMap map[string]int64

// Plan represents a pricing tier with feature and limit entitlements.
// SortOrder ranks tiers ascending; "free" is the sentinel lowest tier.
type Plan struct {
	ID                   uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Slug                 string     `json:"slug" gorm:"uniqueIndex;not null"`
	Name                 string     `json:"name" gorm:"not null"`
	MonthlyPriceCents    int64      `json:"monthly_price_cents"`
	YearlyPriceCents     int64      `json:"yearly_price_cents"`
	Features             FeatureMap `json:"features" gorm:"serializer:json"`
	Limits               LimitMap   `json:"limits" gorm:"serializer:json"`
	IsActive             bool       `json:"is_active" gorm:"default:true"`
	IsPublic             bool       `json:"is_public" gorm:"default:true"`
	SortOrder            int        `json:"sort_order" gorm:"default:0"`
	StripeMonthlyPriceID string     `json:"-"`
	StripeYearlyPriceID  string     `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// TableName returns the database table name.
func (Plan) TableName() string {
	return "plans"
}

// IsFree reports whether this is the free tier.
func (p *Plan) IsFree() bool {
	return p.Slug == PlanSlugFree
}

// StripePriceID returns the processor price id for the given cycle.
func (p *Plan) StripePriceID(cycle BillingCycle) string {
	if cycle == BillingCycleYearly {
		return p.StripeYearlyPriceID
	}
	return p.StripeMonthlyPriceID
}

// Limit returns the cap for a resource and whether one is configured.
func (p *Plan) Limit(resource string) (int64, bool) {
	if p.Limits == nil {
		return 0, false
	}
	limit, ok := p.Limits[resource]
	return limit, ok
}

// HasFeature reports whether the plan enables a feature key.
func (p *Plan) HasFeature(key string) bool {
	return p.Features != nil && p.Features[key]
}

// IsUpgradeFrom reports whether moving from other to p raises the tier.
func (p *Plan) IsUpgradeFrom(other *Plan) bool {
	return p.SortOrder > other.SortOrder
}

// IsDowngradeFrom reports whether moving from other to p lowers the tier.
func (p *Plan) IsDowngradeFrom(other *Plan) bool {
	return p.SortOrder < other.SortOrder
}

// Feature represents a gated product capability.
type Feature string

const (
	FeatureOnlineBooking     Feature = "online_booking"
	FeatureSMSReminders      Feature = "sms_reminders"
	FeatureCalendarSync      Feature = "calendar_sync"
	FeatureAdvancedReports   Feature = "advanced_reports"
	FeatureMultipleLocations Feature = "multiple_locations"
)

// featureMinimumPlan maps each feature to the slug of the lowest tier
// entitled to it.
var featureMinimumPlan = map[Feature]string{
	FeatureOnlineBooking:     PlanSlugFree,
	FeatureSMSReminders:      "easy",
	FeatureCalendarSync:      "smart",
	FeatureAdvancedReports:   "smart",
	FeatureMultipleLocations: "premium",
}

// MinimumPlan returns the slug of the lowest tier entitled to the feature.
func (f Feature) MinimumPlan() string {
	if slug, ok := featureMinimumPlan[f]; ok {
		return slug
	}
	return PlanSlugFree
}
