package billing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/salonhub/server/internal/module/billing/gateway"
	"github.com/salonhub/server/internal/module/tenant"
	"github.com/salonhub/server/internal/shared/metrics"
)

// CreateRequest describes a subscription to create for a tenant.
// PaymentMethodID is optional; when empty the processor falls back to the
// customer's default payment method.
type CreateRequest struct {
	Tenant          *tenant.Tenant
	Plan            *Plan
	Cycle           BillingCycle
	WithTrial       bool
	PaymentMethodID string
}

// CreationStrategy creates a subscription for plans it supports. The free
// tier and paid tiers differ enough (no processor object, no trial, no
// payment state) that each gets its own implementation.
type CreationStrategy interface {
	Supports(plan *Plan) bool
	Create(ctx context.Context, req CreateRequest) (*Subscription, error)
}

// StrategyResolver picks the strategy for a plan.
type StrategyResolver struct {
	strategies []CreationStrategy
}

// NewStrategyResolver builds a resolver. Order matters: the first strategy
// that supports the plan wins.
func NewStrategyResolver(strategies ...CreationStrategy) *StrategyResolver {
	return &StrategyResolver{strategies: strategies}
}

// Resolve returns the strategy for a plan.
func (r *StrategyResolver) Resolve(plan *Plan) (CreationStrategy, error) {
	for _, s := range r.strategies {
		if s.Supports(plan) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoStrategyForPlan, plan.Slug)
}

// --- Free Strategy ---

// FreeStrategy creates free-tier subscriptions. It never talks to the
// payment processor: the subscription exists only in our database with a
// synthetic external id, is immediately active, and carries no trial.
type FreeStrategy struct {
	repo    Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewFreeStrategy creates the free-tier strategy.
func NewFreeStrategy(repo Repository, m *metrics.Metrics, logger *zap.Logger) *FreeStrategy {
	return &FreeStrategy{repo: repo, metrics: m, logger: logger}
}

func (s *FreeStrategy) Supports(plan *Plan) bool {
	return plan.IsFree()
}

func (s *FreeStrategy) Create(ctx context.Context, req CreateRequest) (*Subscription, error) {
	sub := &Subscription{
		TenantID:     req.Tenant.ID,
		PlanID:       req.Plan.ID,
		ExternalID:   FreeExternalID(req.Tenant.ID),
		Status:       StatusActive,
		BillingCycle: BillingCycleMonthly,
		Current:      true,
	}
	if err := s.repo.ReplaceCurrentSubscription(ctx, req.Tenant.ID, sub); err != nil {
		return nil, err
	}
	sub.Plan = req.Plan

	if s.metrics != nil {
		s.metrics.SubscriptionsCreatedTotal.WithLabelValues(req.Plan.Slug, "free").Inc()
	}
	s.logger.Info("free subscription created",
		zap.String("tenant_id", req.Tenant.ID.String()),
		zap.String("plan", req.Plan.Slug))
	return sub, nil
}

// --- Paid Strategy ---

// PaidStrategy creates processor-backed subscriptions. It ensures the
// tenant has a processor customer, creates the subscription there, then
// persists our row mirroring the processor state.
type PaidStrategy struct {
	repo      Repository
	tenants   tenant.Repository
	gateway   gateway.Gateway
	trialDays int
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewPaidStrategy creates the paid-tier strategy.
func NewPaidStrategy(
	repo Repository,
	tenants tenant.Repository,
	gw gateway.Gateway,
	trialDays int,
	m *metrics.Metrics,
	logger *zap.Logger,
) *PaidStrategy {
	return &PaidStrategy{
		repo:      repo,
		tenants:   tenants,
		gateway:   gw,
		trialDays: trialDays,
		metrics:   m,
		logger:    logger,
	}
}

func (s *PaidStrategy) Supports(plan *Plan) bool {
	return !plan.IsFree()
}

func (s *PaidStrategy) Create(ctx context.Context, req CreateRequest) (*Subscription, error) {
	cycle := req.Cycle
	if cycle == "" {
		cycle = BillingCycleMonthly
	}
	priceID := req.Plan.StripePriceID(cycle)
	if priceID == "" {
		return nil, fmt.Errorf("%w: %s (%s)", ErrStripePriceNotConfigured, req.Plan.Slug, cycle)
	}

	customerID, err := s.ensureCustomer(ctx, req.Tenant)
	if err != nil {
		return nil, err
	}

	trialDays := 0
	if req.WithTrial && s.trialDays > 0 {
		trialDays = s.trialDays
	}

	ext, err := s.gateway.CreateSubscription(ctx, gateway.CreateSubscriptionParams{
		CustomerID:      customerID,
		PriceID:         priceID,
		PaymentMethodID: req.PaymentMethodID,
		TrialDays:       trialDays,
		Metadata: map[string]string{
			"tenant_id": req.Tenant.ID.String(),
			"plan":      req.Plan.Slug,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create processor subscription: %w", err)
	}

	sub := &Subscription{
		TenantID:     req.Tenant.ID,
		PlanID:       req.Plan.ID,
		ExternalID:   ext.ID,
		Status:       mapGatewayStatus(ext.Status),
		BillingCycle: cycle,
		Current:      true,
	}
	if trialDays > 0 {
		trialEnd := time.Now().AddDate(0, 0, trialDays)
		if ext.TrialEnd != nil {
			trialEnd = *ext.TrialEnd
		}
		sub.TrialEndsAt = &trialEnd
	}

	if err := s.repo.ReplaceCurrentSubscription(ctx, req.Tenant.ID, sub); err != nil {
		// The processor subscription now dangles; cancel it so the tenant
		// is not billed for a subscription we failed to record.
		if _, cancelErr := s.gateway.CancelSubscription(ctx, ext.ID, true); cancelErr != nil {
			s.logger.Error("failed to cancel orphaned processor subscription",
				zap.String("external_id", ext.ID),
				zap.Error(cancelErr))
		}
		return nil, err
	}
	sub.Plan = req.Plan

	if s.metrics != nil {
		s.metrics.SubscriptionsCreatedTotal.WithLabelValues(req.Plan.Slug, "paid").Inc()
	}
	s.logger.Info("paid subscription created",
		zap.String("tenant_id", req.Tenant.ID.String()),
		zap.String("plan", req.Plan.Slug),
		zap.String("external_id", ext.ID),
		zap.Int("trial_days", trialDays))
	return sub, nil
}

func (s *PaidStrategy) ensureCustomer(ctx context.Context, t *tenant.Tenant) (string, error) {
	if t.HasStripeCustomer() {
		return *t.StripeCustomerID, nil
	}
	c, err := s.gateway.CreateCustomer(ctx, t.Email, t.Name)
	if err != nil {
		return "", fmt.Errorf("create processor customer: %w", err)
	}
	if err := s.tenants.SetStripeCustomerID(ctx, t.ID, c.ID); err != nil {
		return "", err
	}
	t.StripeCustomerID = &c.ID
	return c.ID, nil
}

// mapGatewayStatus converts a processor status string to ours. Unknown
// statuses land on incomplete so they surface rather than pass as active.
func mapGatewayStatus(status string) SubscriptionStatus {
	s := SubscriptionStatus(status)
	if s.IsValid() {
		return s
	}
	return StatusIncomplete
}
