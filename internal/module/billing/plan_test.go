package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanTierComparison(t *testing.T) {
	free := &Plan{Slug: "free", SortOrder: 0}
	easy := &Plan{Slug: "easy", SortOrder: 1}
	premium := &Plan{Slug: "premium", SortOrder: 3}

	assert.True(t, easy.IsUpgradeFrom(free))
	assert.True(t, premium.IsUpgradeFrom(easy))
	assert.False(t, free.IsUpgradeFrom(easy))
	assert.False(t, easy.IsUpgradeFrom(easy))

	assert.True(t, free.IsDowngradeFrom(easy))
	assert.False(t, premium.IsDowngradeFrom(easy))

	assert.True(t, free.IsFree())
	assert.False(t, premium.IsFree())
}

func TestPlanStripePriceID(t *testing.T) {
	p := &Plan{StripeMonthlyPriceID: "price_m", StripeYearlyPriceID: "price_y"}
	assert.Equal(t, "price_m", p.StripePriceID(BillingCycleMonthly))
	assert.Equal(t, "price_y", p.StripePriceID(BillingCycleYearly))

	monthlyOnly := &Plan{StripeMonthlyPriceID: "price_m"}
	assert.Empty(t, monthlyOnly.StripePriceID(BillingCycleYearly))
}

func TestPlanLimits(t *testing.T) {
	p := &Plan{Limits: LimitMap{ResourceStaff: 5, ResourceClients: Unlimited}}

	limit, ok := p.Limit(ResourceStaff)
	assert.True(t, ok)
	assert.Equal(t, int64(5), limit)

	limit, ok = p.Limit(ResourceClients)
	assert.True(t, ok)
	assert.Equal(t, Unlimited, limit)

	_, ok = p.Limit(ResourceAppointments)
	assert.False(t, ok)

	_, ok = (&Plan{}).Limit(ResourceStaff)
	assert.False(t, ok)
}

func TestFeatureMinimumPlan(t *testing.T) {
	assert.Equal(t, "free", FeatureOnlineBooking.MinimumPlan())
	assert.Equal(t, "easy", FeatureSMSReminders.MinimumPlan())
	assert.Equal(t, "smart", FeatureCalendarSync.MinimumPlan())
	assert.Equal(t, "premium", FeatureMultipleLocations.MinimumPlan())
	assert.Equal(t, "free", Feature("unknown").MinimumPlan())
}
