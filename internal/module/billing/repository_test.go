package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonhub/server/internal/module/tenant"
)

func TestReplaceCurrentSubscription(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	plans := seedPlans(t, repo)
	tn := seedTenantRow(t, db, "replace-me")
	ctx := tenant.WithTenant(context.Background(), tn.ID)

	first := &Subscription{PlanID: plans["free"].ID, ExternalID: FreeExternalID(tn.ID), Status: StatusActive}
	require.NoError(t, repo.ReplaceCurrentSubscription(ctx, tn.ID, first))

	second := &Subscription{PlanID: plans["easy"].ID, ExternalID: "sub_live", Status: StatusActive}
	require.NoError(t, repo.ReplaceCurrentSubscription(ctx, tn.ID, second))

	got, err := repo.GetCurrentSubscription(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	t.Run("superseded row is kept as history", func(t *testing.T) {
		var old Subscription
		require.NoError(t, db.First(&old, "id = ?", first.ID).Error)
		assert.False(t, old.Current)
	})

	t.Run("other tenants are untouched", func(t *testing.T) {
		other := seedTenantRow(t, db, "bystander")
		otherCtx := tenant.WithTenant(context.Background(), other.ID)
		sub := &Subscription{PlanID: plans["free"].ID, ExternalID: FreeExternalID(other.ID), Status: StatusActive}
		require.NoError(t, repo.ReplaceCurrentSubscription(otherCtx, other.ID, sub))

		require.NoError(t, repo.ReplaceCurrentSubscription(ctx, tn.ID,
			&Subscription{PlanID: plans["smart"].ID, ExternalID: "sub_live2", Status: StatusActive}))

		got, err := repo.GetCurrentSubscription(otherCtx)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)
	})
}

func TestGetCurrentSubscriptionScoping(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	plans := seedPlans(t, repo)

	alpha := seedTenantRow(t, db, "alpha")
	beta := seedTenantRow(t, db, "beta")
	ctxAlpha := tenant.WithTenant(context.Background(), alpha.ID)

	require.NoError(t, repo.ReplaceCurrentSubscription(ctxAlpha, alpha.ID,
		&Subscription{PlanID: plans["easy"].ID, ExternalID: "sub_a", Status: StatusActive}))

	_, err := repo.GetCurrentSubscriptionForTenant(context.Background(), beta.ID)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	got, err := repo.GetCurrentSubscriptionForTenant(context.Background(), alpha.ID)
	require.NoError(t, err)
	assert.Equal(t, "easy", got.Plan.Slug)
}

func TestEnsureUsageRecord(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	tn := seedTenantRow(t, db, "usage-rows")
	ctx := tenant.WithTenant(context.Background(), tn.ID)

	period := PeriodKey(time.Now())
	rec, err := repo.EnsureUsageRecord(ctx, period)
	require.NoError(t, err)
	assert.Equal(t, tn.ID, rec.TenantID)

	t.Run("idempotent per period", func(t *testing.T) {
		again, err := repo.EnsureUsageRecord(ctx, period)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, again.ID)
	})

	t.Run("distinct periods get distinct rows", func(t *testing.T) {
		other, err := repo.EnsureUsageRecord(ctx, "2026-01")
		require.NoError(t, err)
		assert.NotEqual(t, rec.ID, other.ID)
	})

	t.Run("tenants never share a row", func(t *testing.T) {
		other := seedTenantRow(t, db, "usage-rows-2")
		otherCtx := tenant.WithTenant(context.Background(), other.ID)
		theirs, err := repo.EnsureUsageRecord(otherCtx, period)
		require.NoError(t, err)
		assert.NotEqual(t, rec.ID, theirs.ID)
	})
}

func TestSweepQueries(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	plans := seedPlans(t, repo)
	now := time.Now()
	past := now.AddDate(0, 0, -1)
	future := now.AddDate(0, 0, 7)

	seed := func(slug string, mutate func(*Subscription)) *Subscription {
		tn := seedTenantRow(t, db, slug)
		sub := &Subscription{
			TenantID:   tn.ID,
			PlanID:     plans["easy"].ID,
			ExternalID: "sub_" + slug,
			Status:     StatusActive,
			Current:    true,
		}
		mutate(sub)
		require.NoError(t, repo.CreateSubscription(context.Background(), sub))
		return sub
	}

	lapsed := seed("lapsed-trial", func(s *Subscription) {
		s.Status = StatusTrialing
		s.TrialEndsAt = &past
	})
	seed("running-trial", func(s *Subscription) {
		s.Status = StatusTrialing
		s.TrialEndsAt = &future
	})
	dueChange := seed("due-downgrade", func(s *Subscription) {
		s.ScheduledPlanID = &plans["free"].ID
		s.EndsAt = &past
	})
	seed("future-downgrade", func(s *Subscription) {
		s.ScheduledPlanID = &plans["free"].ID
		s.EndsAt = &future
	})
	ended := seed("ended", func(s *Subscription) {
		s.EndsAt = &past
	})

	sysCtx := tenant.WithoutTenant(context.Background())

	trials, err := repo.ListExpiredTrials(sysCtx, now)
	require.NoError(t, err)
	require.Len(t, trials, 1)
	assert.Equal(t, lapsed.ID, trials[0].ID)

	changes, err := repo.ListDueScheduledChanges(sysCtx, now)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, dueChange.ID, changes[0].ID)

	endedSubs, err := repo.ListEndedSubscriptions(sysCtx, now)
	require.NoError(t, err)
	require.Len(t, endedSubs, 1)
	assert.Equal(t, ended.ID, endedSubs[0].ID)
}

func TestCountActiveSubscribersForPlan(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	plans := seedPlans(t, repo)
	ctx := context.Background()

	for i, status := range []SubscriptionStatus{StatusActive, StatusTrialing, StatusCanceled} {
		tn := seedTenantRow(t, db, "counted-"+string(rune('a'+i)))
		require.NoError(t, repo.CreateSubscription(ctx, &Subscription{
			TenantID:   tn.ID,
			PlanID:     plans["easy"].ID,
			ExternalID: uuid.NewString(),
			Status:     status,
			Current:    status != StatusCanceled,
		}))
	}

	count, err := repo.CountActiveSubscribersForPlan(ctx, plans["easy"].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
