package tenant

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Tenant{}, &User{}, &Client{}))
	return db
}

func seedTenant(t *testing.T, repo Repository, slug string) *Tenant {
	t.Helper()
	tn := &Tenant{ID: uuid.New(), Name: slug, Slug: slug}
	require.NoError(t, repo.CreateTenant(context.Background(), tn))
	return tn
}

func TestScopedQueriesNeverLeakAcrossTenants(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	alpha := seedTenant(t, repo, "alpha-salon")
	beta := seedTenant(t, repo, "beta-spa")

	ctxAlpha := WithTenant(context.Background(), alpha.ID)
	ctxBeta := WithTenant(context.Background(), beta.ID)

	require.NoError(t, repo.CreateClient(ctxAlpha, &Client{Name: "Ada", Phone: "111"}))
	require.NoError(t, repo.CreateClient(ctxAlpha, &Client{Name: "Bob", Phone: "222"}))
	require.NoError(t, repo.CreateClient(ctxBeta, &Client{Name: "Cleo", Phone: "333"}))

	t.Run("list returns only rows of the context tenant", func(t *testing.T) {
		clients, err := repo.ListClients(ctxAlpha)
		require.NoError(t, err)
		require.Len(t, clients, 2)
		for _, c := range clients {
			assert.Equal(t, alpha.ID, c.TenantID)
		}

		clients, err = repo.ListClients(ctxBeta)
		require.NoError(t, err)
		require.Len(t, clients, 1)
		assert.Equal(t, "Cleo", clients[0].Name)
	})

	t.Run("get by id under the wrong tenant is not found", func(t *testing.T) {
		cleo, err := repo.FindClientByPhone(context.Background(), beta.ID, "333")
		require.NoError(t, err)

		_, err = repo.GetClient(ctxAlpha, cleo.ID)
		assert.ErrorIs(t, err, ErrClientNotFound)

		got, err := repo.GetClient(ctxBeta, cleo.ID)
		require.NoError(t, err)
		assert.Equal(t, cleo.ID, got.ID)
	})

	t.Run("system context sees every tenant", func(t *testing.T) {
		sysCtx := WithoutTenant(ctxAlpha)
		clients, err := repo.ListClients(sysCtx)
		require.NoError(t, err)
		assert.Len(t, clients, 3)
	})

	t.Run("explicit tenant scope overrides the context tenant", func(t *testing.T) {
		// Caller supplies beta explicitly while the context carries alpha.
		c, err := repo.FindClientByPhone(ctxAlpha, beta.ID, "333")
		require.NoError(t, err)
		assert.Equal(t, beta.ID, c.TenantID)
	})
}

func TestCreateAssignsTenantFromContext(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	tn := seedTenant(t, repo, "gamma")
	ctx := WithTenant(context.Background(), tn.ID)

	c := &Client{Name: "Dora", Phone: "444"}
	require.NoError(t, repo.CreateClient(ctx, c))
	assert.Equal(t, tn.ID, c.TenantID)

	t.Run("explicit tenant id wins over context", func(t *testing.T) {
		other := seedTenant(t, repo, "delta")
		c := &Client{TenantID: other.ID, Name: "Eve", Phone: "555"}
		require.NoError(t, repo.CreateClient(ctx, c))
		assert.Equal(t, other.ID, c.TenantID)
	})

	t.Run("no tenant anywhere creates an unowned row", func(t *testing.T) {
		c := &Client{Name: "Fay", Phone: "666"}
		require.NoError(t, repo.CreateClient(context.Background(), c))
		assert.Equal(t, uuid.Nil, c.TenantID)
	})
}

func TestTenantUniqueSlug(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	seedTenant(t, repo, "unique-slug")

	err := repo.CreateTenant(context.Background(), &Tenant{ID: uuid.New(), Name: "dup", Slug: "unique-slug"})
	assert.ErrorIs(t, err, ErrSlugTaken)
}
