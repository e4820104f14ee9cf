package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/salonhub/server/internal/module/tenant"
	"github.com/salonhub/server/internal/shared/metrics"
)

// countCacheTTL bounds how stale a cached resource count may be. Limit
// checks tolerate short staleness; writes that change counts are rare
// relative to reads.
const countCacheTTL = 30 * time.Second

// CatalogCounter counts billable catalog resources for a tenant.
type CatalogCounter interface {
	CountActiveServices(ctx context.Context, tenantID uuid.UUID) (int64, error)
	CountActiveStaff(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// ClientCounter counts a tenant's client records.
type ClientCounter interface {
	CountClients(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// AppointmentCounter counts appointments inside a billing period.
type AppointmentCounter interface {
	CountAppointmentsInPeriod(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time) (int64, error)
}

// UsageService computes a tenant's live resource usage and checks it
// against plan limits. Counts are cached in Redis with a short TTL; on
// cache errors it falls through to the database.
type UsageService struct {
	repo         Repository
	catalog      CatalogCounter
	clients      ClientCounter
	appointments AppointmentCounter
	redis        redis.UniversalClient
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// NewUsageService creates a usage service.
func NewUsageService(
	repo Repository,
	catalog CatalogCounter,
	clients ClientCounter,
	appointments AppointmentCounter,
	rdb redis.UniversalClient,
	m *metrics.Metrics,
	logger *zap.Logger,
) *UsageService {
	return &UsageService{
		repo:         repo,
		catalog:      catalog,
		clients:      clients,
		appointments: appointments,
		redis:        rdb,
		metrics:      m,
		logger:       logger,
	}
}

// Counts is a snapshot of a tenant's live resource usage.
type Counts struct {
	Staff        int64
	Services     int64
	Clients      int64
	Appointments int64
}

// Resource returns the count for a resource key.
func (c Counts) Resource(resource string) int64 {
	switch resource {
	case ResourceStaff:
		return c.Staff
	case ResourceServices:
		return c.Services
	case ResourceClients:
		return c.Clients
	case ResourceAppointments:
		return c.Appointments
	}
	return 0
}

// LiveCounts returns current usage for the context tenant. Appointment
// counts cover the current billing period.
func (s *UsageService) LiveCounts(ctx context.Context) (Counts, error) {
	tenantID, ok := tenant.TenantID(ctx)
	if !ok {
		return Counts{}, tenant.ErrTenantNotFound
	}
	now := time.Now()
	periodStart, periodEnd := PeriodBounds(now)

	var counts Counts
	var err error
	counts.Staff, err = s.cachedCount(ctx, tenantID, ResourceStaff, func() (int64, error) {
		return s.catalog.CountActiveStaff(ctx, tenantID)
	})
	if err != nil {
		return Counts{}, err
	}
	counts.Services, err = s.cachedCount(ctx, tenantID, ResourceServices, func() (int64, error) {
		return s.catalog.CountActiveServices(ctx, tenantID)
	})
	if err != nil {
		return Counts{}, err
	}
	counts.Clients, err = s.cachedCount(ctx, tenantID, ResourceClients, func() (int64, error) {
		return s.clients.CountClients(ctx, tenantID)
	})
	if err != nil {
		return Counts{}, err
	}
	counts.Appointments, err = s.cachedCount(ctx, tenantID, ResourceAppointments, func() (int64, error) {
		return s.appointments.CountAppointmentsInPeriod(ctx, tenantID, periodStart, periodEnd)
	})
	if err != nil {
		return Counts{}, err
	}
	return counts, nil
}

// CheckLimitViolations compares live usage against a plan's limits. The
// returned map is empty when everything fits.
func (s *UsageService) CheckLimitViolations(ctx context.Context, plan *Plan) (map[string]LimitViolation, error) {
	counts, err := s.LiveCounts(ctx)
	if err != nil {
		return nil, err
	}

	violations := make(map[string]LimitViolation)
	for _, resource := range []string{ResourceStaff, ResourceServices, ResourceClients, ResourceAppointments} {
		limit, ok := plan.Limit(resource)
		if !ok || limit == Unlimited {
			continue
		}
		current := counts.Resource(resource)
		if current > limit {
			violations[resource] = LimitViolation{
				Resource: resource,
				Current:  current,
				Limit:    limit,
			}
			if s.metrics != nil {
				s.metrics.UsageLimitViolationsTotal.WithLabelValues(resource).Inc()
			}
		}
	}
	return violations, nil
}

// WithinLimit reports whether adding one more of a resource stays inside the
// plan's cap. Used at creation points (new staff member, new appointment).
func (s *UsageService) WithinLimit(ctx context.Context, plan *Plan, resource string) (bool, error) {
	limit, ok := plan.Limit(resource)
	if !ok || limit == Unlimited {
		return true, nil
	}
	counts, err := s.LiveCounts(ctx)
	if err != nil {
		return false, err
	}
	return counts.Resource(resource) < limit, nil
}

// SnapshotUsage persists current live counts into this period's usage
// record. Past periods are left untouched.
func (s *UsageService) SnapshotUsage(ctx context.Context) (*UsageRecord, error) {
	counts, err := s.LiveCounts(ctx)
	if err != nil {
		return nil, err
	}
	period := PeriodKey(time.Now())
	rec, err := s.repo.EnsureUsageRecord(ctx, period)
	if err != nil {
		return nil, err
	}
	rec.ActiveStaff = counts.Staff
	rec.ActiveServices = counts.Services
	rec.Clients = counts.Clients
	rec.Appointments = counts.Appointments
	if err := s.repo.UpdateUsageRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// UsageForPeriod returns the recorded usage for a period key (YYYY-MM),
// snapshotting first when the period is the current one.
func (s *UsageService) UsageForPeriod(ctx context.Context, period string) (*UsageRecord, error) {
	if period == PeriodKey(time.Now()) {
		return s.SnapshotUsage(ctx)
	}
	rec, err := s.repo.GetUsageRecord(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("usage for period %s: %w", period, err)
	}
	return rec, nil
}

// InvalidateCounts drops cached counts for a tenant after a write that
// changes usage.
func (s *UsageService) InvalidateCounts(ctx context.Context, tenantID uuid.UUID) {
	if s.redis == nil {
		return
	}
	keys := make([]string, 0, 4)
	for _, resource := range []string{ResourceStaff, ResourceServices, ResourceClients, ResourceAppointments} {
		keys = append(keys, countKey(tenantID, resource))
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("failed to invalidate usage counts", zap.Error(err))
	}
}

// cachedCount reads a counter through Redis, falling back to the loader on
// miss or on any cache error.
func (s *UsageService) cachedCount(ctx context.Context, tenantID uuid.UUID, resource string, load func() (int64, error)) (int64, error) {
	if s.redis == nil {
		return load()
	}
	key := countKey(tenantID, resource)
	val, err := s.redis.Get(ctx, key).Int64()
	if err == nil {
		return val, nil
	}
	if err != redis.Nil {
		s.logger.Warn("usage count cache read failed", zap.Error(err), zap.String("key", key))
	}
	val, err = load()
	if err != nil {
		return 0, err
	}
	if err := s.redis.Set(ctx, key, val, countCacheTTL).Err(); err != nil {
		s.logger.Warn("usage count cache write failed", zap.Error(err), zap.String("key", key))
	}
	return val, nil
}

func countKey(tenantID uuid.UUID, resource string) string {
	return fmt.Sprintf("usage:count:%s:%s", tenantID.String(), resource)
}
