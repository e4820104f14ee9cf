package app

import (
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/salonhub/server/internal/module/billing"
	"github.com/salonhub/server/internal/module/catalog"
	"github.com/salonhub/server/internal/module/scheduling"
	"github.com/salonhub/server/internal/module/tenant"
	"github.com/salonhub/server/internal/shared/config"
	"github.com/salonhub/server/internal/shared/database"
	"github.com/salonhub/server/internal/shared/metrics"
)

// App holds the wired application.
type App struct {
	Config  *config.Config
	DB      *gorm.DB
	Redis   goredis.UniversalClient
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	TenantRepo     tenant.Repository
	CatalogRepo    catalog.Repository
	SchedulingRepo scheduling.Repository
	BillingRepo    billing.Repository

	TenantService  *tenant.Service
	BillingService *billing.Service
	Usage          *billing.UsageService
	Scheduler      *billing.Scheduler
}

// Start runs migrations, seeds the plan catalog and starts background
// workers.
func (a *App) Start() error {
	if err := a.Migrate(); err != nil {
		return err
	}
	if err := a.SeedPlans(); err != nil {
		return err
	}
	return a.Scheduler.Start()
}

// Shutdown stops background workers and closes connections.
func (a *App) Shutdown() {
	a.Scheduler.Stop()
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if err := database.Close(a.DB); err != nil {
		a.Logger.Warn("database close failed", zap.Error(err))
	}
	_ = a.Logger.Sync()
}
