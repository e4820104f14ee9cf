package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/salonhub/server/internal/module/tenant"
)

// Repository defines the interface for billing data access. Subscriptions
// and usage records are tenant-scoped; plans are shared catalog data.
type Repository interface {
	// Plan operations (global)
	CreatePlan(ctx context.Context, p *Plan) error
	GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error)
	GetPlanBySlug(ctx context.Context, slug string) (*Plan, error)
	ListActivePlans(ctx context.Context) ([]*Plan, error)
	UpdatePlan(ctx context.Context, p *Plan) error
	CountActiveSubscribersForPlan(ctx context.Context, planID uuid.UUID) (int64, error)

	// Subscription operations (scoped)
	CreateSubscription(ctx context.Context, s *Subscription) error
	GetCurrentSubscription(ctx context.Context) (*Subscription, error)
	GetCurrentSubscriptionForTenant(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)
	UpdateSubscription(ctx context.Context, s *Subscription) error
	ReplaceCurrentSubscription(ctx context.Context, tenantID uuid.UUID, s *Subscription) error

	// Sweep queries (system-wide, run without tenant context)
	ListExpiredTrials(ctx context.Context, now time.Time) ([]*Subscription, error)
	ListDueScheduledChanges(ctx context.Context, now time.Time) ([]*Subscription, error)
	ListEndedSubscriptions(ctx context.Context, now time.Time) ([]*Subscription, error)

	// Usage operations (scoped)
	EnsureUsageRecord(ctx context.Context, period string) (*UsageRecord, error)
	GetUsageRecord(ctx context.Context, period string) (*UsageRecord, error)
	UpdateUsageRecord(ctx context.Context, u *UsageRecord) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new billing repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// --- Plan Operations ---

func (r *repository) CreatePlan(ctx context.Context, p *Plan) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

func (r *repository) GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error) {
	var p Plan
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return &p, nil
}

func (r *repository) GetPlanBySlug(ctx context.Context, slug string) (*Plan, error) {
	var p Plan
	err := r.db.WithContext(ctx).First(&p, "slug = ?", slug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, slug)
		}
		return nil, fmt.Errorf("get plan by slug: %w", err)
	}
	return &p, nil
}

func (r *repository) ListActivePlans(ctx context.Context) ([]*Plan, error) {
	var plans []*Plan
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC").
		Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("list active plans: %w", err)
	}
	return plans, nil
}

func (r *repository) UpdatePlan(ctx context.Context, p *Plan) error {
	if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	return nil
}

func (r *repository) CountActiveSubscribersForPlan(ctx context.Context, planID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Subscription{}).
		Where("plan_id = ? AND current = ? AND status IN ?",
			planID, true, []SubscriptionStatus{StatusActive, StatusTrialing, StatusPastDue}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count active subscribers: %w", err)
	}
	return count, nil
}

// --- Subscription Operations ---

func (r *repository) CreateSubscription(ctx context.Context, s *Subscription) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	tenant.Assign(ctx, &s.TenantID)
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (r *repository) GetCurrentSubscription(ctx context.Context) (*Subscription, error) {
	var s Subscription
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scoped(ctx)).
		Preload("Plan").
		Where("current = ?", true).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if id, ok := tenant.TenantID(ctx); ok {
				return nil, fmt.Errorf("%w: tenant %s", ErrSubscriptionNotFound, id)
			}
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("get current subscription: %w", err)
	}
	return &s, nil
}

func (r *repository) GetCurrentSubscriptionForTenant(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	var s Subscription
	err := r.db.WithContext(ctx).
		Scopes(tenant.ScopedTo(tenantID)).
		Preload("Plan").
		Where("current = ?", true).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: tenant %s", ErrSubscriptionNotFound, tenantID)
		}
		return nil, fmt.Errorf("get current subscription for tenant: %w", err)
	}
	return &s, nil
}

func (r *repository) UpdateSubscription(ctx context.Context, s *Subscription) error {
	if err := r.db.WithContext(ctx).Omit("Plan").Save(s).Error; err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return nil
}

// ReplaceCurrentSubscription demotes the tenant's current subscription and
// inserts the new one as current, in one transaction.
func (r *repository) ReplaceCurrentSubscription(ctx context.Context, tenantID uuid.UUID, s *Subscription) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&Subscription{}).
			Scopes(tenant.ScopedTo(tenantID)).
			Where("current = ?", true).
			Update("current", false).Error
		if err != nil {
			return fmt.Errorf("demote current subscription: %w", err)
		}
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		s.TenantID = tenantID
		s.Current = true
		if err := tx.Create(s).Error; err != nil {
			return fmt.Errorf("create replacement subscription: %w", err)
		}
		return nil
	})
}

// --- Sweep Queries ---

func (r *repository) ListExpiredTrials(ctx context.Context, now time.Time) ([]*Subscription, error) {
	var subs []*Subscription
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("current = ? AND status = ? AND trial_ends_at IS NOT NULL AND trial_ends_at <= ?",
			true, StatusTrialing, now).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("list expired trials: %w", err)
	}
	return subs, nil
}

func (r *repository) ListDueScheduledChanges(ctx context.Context, now time.Time) ([]*Subscription, error) {
	var subs []*Subscription
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("current = ? AND scheduled_plan_id IS NOT NULL AND ends_at IS NOT NULL AND ends_at <= ?",
			true, now).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("list due scheduled changes: %w", err)
	}
	return subs, nil
}

func (r *repository) ListEndedSubscriptions(ctx context.Context, now time.Time) ([]*Subscription, error) {
	var subs []*Subscription
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("current = ? AND scheduled_plan_id IS NULL AND ends_at IS NOT NULL AND ends_at <= ? AND status <> ?",
			true, now, StatusCanceled).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("list ended subscriptions: %w", err)
	}
	return subs, nil
}

// --- Usage Operations ---

func (r *repository) EnsureUsageRecord(ctx context.Context, period string) (*UsageRecord, error) {
	rec, err := r.GetUsageRecord(ctx, period)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	rec = &UsageRecord{Period: period}
	tenant.Assign(ctx, &rec.TenantID)
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		// Another request may have created it concurrently.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.GetUsageRecord(ctx, period)
		}
		return nil, fmt.Errorf("create usage record: %w", err)
	}
	return rec, nil
}

func (r *repository) GetUsageRecord(ctx context.Context, period string) (*UsageRecord, error) {
	var rec UsageRecord
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scoped(ctx)).
		Where("period = ?", period).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get usage record: %w", err)
	}
	return &rec, nil
}

func (r *repository) UpdateUsageRecord(ctx context.Context, u *UsageRecord) error {
	if err := r.db.WithContext(ctx).Save(u).Error; err != nil {
		return fmt.Errorf("update usage record: %w", err)
	}
	return nil
}
