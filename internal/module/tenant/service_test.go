package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/salonhub/server/internal/shared/metrics"
)

type fakeStarter struct {
	started []*Tenant
	err     error
}

func (f *fakeStarter) StartDefault(_ context.Context, t *Tenant) error {
	if f.err != nil {
		return f.err
	}
	f.started = append(f.started, t)
	return nil
}

func newTestService(t *testing.T, starter *fakeStarter) (*Service, Repository) {
	t.Helper()
	db := newTestDB(t)
	repo := NewRepository(db)
	m := metrics.NewWith("test", prometheus.NewRegistry())
	return NewService(repo, db, starter, m, zap.NewNop()), repo
}

func TestOnboard(t *testing.T) {
	starter := &fakeStarter{}
	svc, repo := newTestService(t, starter)
	ctx := context.Background()

	tn, err := svc.Onboard(ctx, OnboardRequest{
		Name:          "Shear Genius",
		Slug:          "Shear Genius",
		OwnerName:     "Pat",
		OwnerEmail:    "Pat@Example.com",
		OwnerPassword: "s3cret-pass",
	})
	require.NoError(t, err)

	t.Run("tenant persisted with normalized slug and defaults", func(t *testing.T) {
		got, err := repo.GetTenantBySlug(ctx, "shear-genius")
		require.NoError(t, err)
		assert.Equal(t, tn.ID, got.ID)
		assert.Equal(t, BusinessTypeSalon, got.BusinessType)
		assert.Equal(t, "UTC", got.Timezone)
	})

	t.Run("owner user created with hashed password", func(t *testing.T) {
		u, err := repo.GetUserByEmail(WithTenant(ctx, tn.ID), "pat@example.com")
		require.NoError(t, err)
		assert.True(t, u.IsOwner())
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")))
	})

	t.Run("default subscription started", func(t *testing.T) {
		require.Len(t, starter.started, 1)
		assert.Equal(t, tn.ID, starter.started[0].ID)
	})
}

func TestOnboard_InvalidBusinessType(t *testing.T) {
	svc, _ := newTestService(t, &fakeStarter{})
	_, err := svc.Onboard(context.Background(), OnboardRequest{
		Name:         "Bad",
		Slug:         "bad",
		BusinessType: BusinessType("gym"),
	})
	assert.Error(t, err)
}

func TestOnboard_StarterFailureSurfaces(t *testing.T) {
	starter := &fakeStarter{err: errors.New("billing down")}
	svc, repo := newTestService(t, starter)

	_, err := svc.Onboard(context.Background(), OnboardRequest{
		Name:          "Luckless",
		Slug:          "luckless",
		OwnerEmail:    "o@example.com",
		OwnerPassword: "pw",
	})
	require.Error(t, err)

	// Tenant and owner survive; the subscription attach is retryable.
	_, err = repo.GetTenantBySlug(context.Background(), "luckless")
	assert.NoError(t, err)
}

func TestUpdateSettings(t *testing.T) {
	svc, repo := newTestService(t, &fakeStarter{})
	ctx := context.Background()
	tn := seedTenant(t, repo, "settings-salon")

	updated, err := svc.UpdateSettings(ctx, tn.ID, Settings{"sms_reminders": true})
	require.NoError(t, err)
	v, ok := updated.Setting("sms_reminders")
	assert.True(t, ok)
	assert.Equal(t, true, v)

	// Merge keeps existing keys.
	updated, err = svc.UpdateSettings(ctx, tn.ID, Settings{"locale": "en"})
	require.NoError(t, err)
	_, ok = updated.Setting("sms_reminders")
	assert.True(t, ok)
}
