package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/salonhub/server/internal/module/tenant"
)

func TestStrategyResolver(t *testing.T) {
	env := newTestEnv(t, Counts{})
	free := NewFreeStrategy(env.repo, nil, zap.NewNop())
	paid := NewPaidStrategy(env.repo, env.tenants, env.gateway, 14, nil, zap.NewNop())
	resolver := NewStrategyResolver(free, paid)

	s, err := resolver.Resolve(env.plans["free"])
	require.NoError(t, err)
	assert.IsType(t, &FreeStrategy{}, s)

	s, err = resolver.Resolve(env.plans["premium"])
	require.NoError(t, err)
	assert.IsType(t, &PaidStrategy{}, s)

	_, err = NewStrategyResolver().Resolve(env.plans["easy"])
	assert.ErrorIs(t, err, ErrNoStrategyForPlan)
}

func TestFreeStrategy(t *testing.T) {
	env := newTestEnv(t, Counts{})
	tn := seedTenantRow(t, env.db, "free-rider")
	ctx := tenant.WithTenant(context.Background(), tn.ID)

	strategy := NewFreeStrategy(env.repo, nil, zap.NewNop())
	sub, err := strategy.Create(ctx, CreateRequest{Tenant: tn, Plan: env.plans["free"]})
	require.NoError(t, err)

	assert.Equal(t, FreeExternalID(tn.ID), sub.ExternalID)
	assert.Equal(t, StatusActive, sub.Status)
	assert.Nil(t, sub.TrialEndsAt)
	assert.True(t, sub.IsFree())
	assert.True(t, sub.Current)

	t.Run("never touches the payment gateway", func(t *testing.T) {
		assert.Empty(t, env.gateway.Calls())
	})

	t.Run("is readable as the current subscription", func(t *testing.T) {
		got, err := env.repo.GetCurrentSubscription(ctx)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)
		assert.Equal(t, "free", got.Plan.Slug)
	})
}

func TestPaidStrategy(t *testing.T) {
	env := newTestEnv(t, Counts{})
	tn := seedTenantRow(t, env.db, "payer")
	ctx := tenant.WithTenant(context.Background(), tn.ID)

	strategy := NewPaidStrategy(env.repo, env.tenants, env.gateway, 14, nil, zap.NewNop())

	t.Run("creates customer and subscription with trial", func(t *testing.T) {
		before := time.Now()
		sub, err := strategy.Create(ctx, CreateRequest{
			Tenant: tn, Plan: env.plans["easy"], Cycle: BillingCycleMonthly, WithTrial: true,
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"create_customer", "create_subscription"}, env.gateway.Calls())
		assert.Equal(t, StatusTrialing, sub.Status)
		require.NotNil(t, sub.TrialEndsAt)

		expected := before.AddDate(0, 0, 14)
		assert.WithinDuration(t, expected, *sub.TrialEndsAt, time.Minute)

		// Customer id persisted on the tenant for subsequent operations.
		fresh, err := env.tenants.GetTenant(ctx, tn.ID)
		require.NoError(t, err)
		assert.True(t, fresh.HasStripeCustomer())
	})

	t.Run("no trial when not requested", func(t *testing.T) {
		tn2 := seedTenantRow(t, env.db, "payer-no-trial")
		ctx2 := tenant.WithTenant(context.Background(), tn2.ID)
		sub, err := strategy.Create(ctx2, CreateRequest{
			Tenant: tn2, Plan: env.plans["easy"], Cycle: BillingCycleMonthly,
		})
		require.NoError(t, err)
		assert.Equal(t, StatusActive, sub.Status)
		assert.Nil(t, sub.TrialEndsAt)
	})

	t.Run("reuses an existing customer", func(t *testing.T) {
		calls := len(env.gateway.Calls())
		_, err := strategy.Create(ctx, CreateRequest{
			Tenant: tn, Plan: env.plans["smart"], Cycle: BillingCycleMonthly,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"create_subscription"}, env.gateway.Calls()[calls:])
	})

	t.Run("missing price configuration", func(t *testing.T) {
		_, err := strategy.Create(ctx, CreateRequest{
			Tenant: tn, Plan: env.plans["smart"], Cycle: BillingCycleYearly,
		})
		assert.ErrorIs(t, err, ErrStripePriceNotConfigured)
	})

	t.Run("new subscription supersedes the previous one", func(t *testing.T) {
		got, err := env.repo.GetCurrentSubscription(ctx)
		require.NoError(t, err)
		assert.Equal(t, "smart", got.Plan.Slug)

		var count int64
		require.NoError(t, env.db.Model(&Subscription{}).
			Where("tenant_id = ? AND current = ?", tn.ID, true).
			Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestPaidStrategyProcessorFailure(t *testing.T) {
	env := newTestEnv(t, Counts{})
	tn := seedTenantRow(t, env.db, "unlucky-salon")
	ctx := tenant.WithTenant(context.Background(), tn.ID)
	strategy := NewPaidStrategy(env.repo, env.tenants, env.gateway, 14, nil, zap.NewNop())

	env.gateway.createErr = errors.New("processor unavailable")
	_, err := strategy.Create(ctx, CreateRequest{
		Tenant: tn, Plan: env.plans["easy"], Cycle: BillingCycleMonthly,
	})
	require.Error(t, err)

	t.Run("no local row is written", func(t *testing.T) {
		_, err := env.repo.GetCurrentSubscription(ctx)
		assert.ErrorIs(t, err, ErrSubscriptionNotFound)
	})

	t.Run("the customer id survives for retry", func(t *testing.T) {
		got, err := env.tenants.GetTenant(ctx, tn.ID)
		require.NoError(t, err)
		assert.True(t, got.HasStripeCustomer())
	})

	t.Run("retry reuses the customer and succeeds", func(t *testing.T) {
		env.gateway.createErr = nil
		calls := len(env.gateway.Calls())
		sub, err := strategy.Create(ctx, CreateRequest{
			Tenant: tn, Plan: env.plans["easy"], Cycle: BillingCycleMonthly,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"create_subscription"}, env.gateway.Calls()[calls:])
		assert.True(t, sub.Current)
	})
}
