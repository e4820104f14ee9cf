package app

import (
	"github.com/google/wire"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/salonhub/server/internal/module/billing"
	"github.com/salonhub/server/internal/module/billing/gateway"
	"github.com/salonhub/server/internal/module/catalog"
	"github.com/salonhub/server/internal/module/scheduling"
	"github.com/salonhub/server/internal/module/tenant"
	"github.com/salonhub/server/internal/shared/cache"
	"github.com/salonhub/server/internal/shared/config"
	"github.com/salonhub/server/internal/shared/database"
	"github.com/salonhub/server/internal/shared/logger"
	"github.com/salonhub/server/internal/shared/metrics"
)

// InfraSet provides infrastructure dependencies.
var InfraSet = wire.NewSet(
	ProvideDatabase,
	ProvideRedisClient,
	ProvideZapLogger,
	ProvideMetrics,
)

// ModuleSet provides the domain services.
var ModuleSet = wire.NewSet(
	tenant.NewRepository,
	catalog.NewRepository,
	scheduling.NewRepository,
	billing.NewRepository,
	ProvideGateway,
	ProvideUsageService,
	ProvideStrategyResolver,
	ProvideNotifier,
	ProvideBillingService,
	ProvideBillingScheduler,
	ProvideTenantService,
)

// ProvideDatabase creates a database connection.
func ProvideDatabase(cfg *config.Config) (*gorm.DB, error) {
	return database.New(&cfg.Database)
}

// ProvideRedisClient creates a Redis client. A missing address disables
// caching rather than failing startup.
func ProvideRedisClient(cfg *config.Config, log *zap.Logger) goredis.UniversalClient {
	if cfg.Redis.Address == "" {
		return nil
	}
	client, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, running without cache", zap.Error(err))
		return nil
	}
	return client
}

// ProvideZapLogger creates the application logger.
func ProvideZapLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

// ProvideMetrics creates the Prometheus metric set.
func ProvideMetrics() *metrics.Metrics {
	return metrics.New("salonhub")
}

// ProvideGateway builds the Stripe gateway wrapped with a circuit breaker.
func ProvideGateway(cfg *config.Config, m *metrics.Metrics) gateway.Gateway {
	stripe := gateway.NewStripeGateway(&gateway.StripeConfig{
		APIKey:        cfg.Stripe.APIKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
	})
	return gateway.NewBreakerGateway(stripe, gateway.DefaultBreakerConfig(), m)
}

// ProvideUsageService wires usage counting over the domain repositories.
func ProvideUsageService(
	repo billing.Repository,
	catalogRepo catalog.Repository,
	tenantRepo tenant.Repository,
	schedulingRepo scheduling.Repository,
	rdb goredis.UniversalClient,
	m *metrics.Metrics,
	log *zap.Logger,
) *billing.UsageService {
	return billing.NewUsageService(repo, catalogRepo, tenantRepo, schedulingRepo, rdb, m, log)
}

// ProvideStrategyResolver assembles the subscription creation strategies.
func ProvideStrategyResolver(
	repo billing.Repository,
	tenants tenant.Repository,
	gw gateway.Gateway,
	cfg *config.Config,
	m *metrics.Metrics,
	log *zap.Logger,
) *billing.StrategyResolver {
	return billing.NewStrategyResolver(
		billing.NewFreeStrategy(repo, m, log),
		billing.NewPaidStrategy(repo, tenants, gw, cfg.Billing.TrialDays, m, log),
	)
}

// ProvideNotifier creates the billing notifier.
func ProvideNotifier(log *zap.Logger) billing.Notifier {
	return billing.NewLogNotifier(log)
}

// ProvideBillingService creates the billing service.
func ProvideBillingService(
	repo billing.Repository,
	tenants tenant.Repository,
	usage *billing.UsageService,
	resolver *billing.StrategyResolver,
	gw gateway.Gateway,
	notifier billing.Notifier,
	cfg *config.Config,
	m *metrics.Metrics,
	log *zap.Logger,
) *billing.Service {
	return billing.NewService(repo, tenants, usage, resolver, gw, notifier, billing.Config{
		TrialDays:    cfg.Billing.TrialDays,
		FreePlanSlug: cfg.Billing.FreePlanSlug,
	}, m, log)
}

// ProvideBillingScheduler creates the background sweep scheduler.
func ProvideBillingScheduler(svc *billing.Service, cfg *config.Config, log *zap.Logger) *billing.Scheduler {
	return billing.NewScheduler(svc, billing.SchedulerConfig{
		Enabled:       cfg.Scheduler.Enabled,
		SweepSchedule: cfg.Scheduler.SweepSchedule,
	}, log)
}

// ProvideTenantService creates the tenant service with billing as the
// subscription starter.
func ProvideTenantService(
	repo tenant.Repository,
	db *gorm.DB,
	billingSvc *billing.Service,
	m *metrics.Metrics,
	log *zap.Logger,
) *tenant.Service {
	return tenant.NewService(repo, db, billingSvc, m, log)
}
