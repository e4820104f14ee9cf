package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salonhub/server/internal/module/billing/gateway"
	"github.com/salonhub/server/internal/module/tenant"
	"github.com/salonhub/server/internal/shared/metrics"
)

// Config holds billing service settings.
type Config struct {
	TrialDays    int
	FreePlanSlug string
}

// Service orchestrates plans, subscriptions and usage enforcement.
type Service struct {
	repo      Repository
	tenants   tenant.Repository
	usage     *UsageService
	resolver  *StrategyResolver
	gateway   gateway.Gateway
	upgrade   *Chain
	downgrade *Chain
	notifier  Notifier
	config    Config
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewService creates the billing service.
func NewService(
	repo Repository,
	tenants tenant.Repository,
	usage *UsageService,
	resolver *StrategyResolver,
	gw gateway.Gateway,
	notifier Notifier,
	config Config,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		tenants:   tenants,
		usage:     usage,
		resolver:  resolver,
		gateway:   gw,
		upgrade:   NewUpgradeChain(m, logger),
		downgrade: NewDowngradeChain(usage, m, logger),
		notifier:  notifier,
		config:    config,
		metrics:   m,
		logger:    logger,
	}
}

// --- Subscription Creation ---

// StartDefault puts a freshly onboarded tenant on the free plan. Called
// after tenant creation commits; safe to retry.
func (s *Service) StartDefault(ctx context.Context, t *tenant.Tenant) error {
	plan, err := s.repo.GetPlanBySlug(ctx, s.config.FreePlanSlug)
	if err != nil {
		return fmt.Errorf("default plan: %w", err)
	}
	_, err = s.Subscribe(ctx, t, plan.Slug, BillingCycleMonthly, false)
	return err
}

// Subscribe creates a subscription for a tenant on the named plan,
// dispatching to the strategy that supports it.
func (s *Service) Subscribe(ctx context.Context, t *tenant.Tenant, planSlug string, cycle BillingCycle, withTrial bool) (*Subscription, error) {
	plan, err := s.repo.GetPlanBySlug(ctx, planSlug)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, ErrPlanNotActive
	}
	strategy, err := s.resolver.Resolve(plan)
	if err != nil {
		return nil, err
	}
	sub, err := strategy.Create(ctx, CreateRequest{
		Tenant:    t,
		Plan:      plan,
		Cycle:     cycle,
		WithTrial: withTrial,
	})
	if err != nil {
		return nil, err
	}
	if withTrial && sub.TrialEndsAt != nil {
		s.notifyTrialStarted(ctx, t, sub)
	}
	return sub, nil
}

// --- Queries ---

// GetCurrentSubscription returns the context tenant's current subscription.
func (s *Service) GetCurrentSubscription(ctx context.Context) (*Subscription, error) {
	return s.repo.GetCurrentSubscription(ctx)
}

// GetCurrentPlan returns the plan of the current subscription.
func (s *Service) GetCurrentPlan(ctx context.Context) (*Plan, error) {
	sub, err := s.repo.GetCurrentSubscription(ctx)
	if err != nil {
		return nil, err
	}
	if sub.Plan == nil {
		return s.repo.GetPlan(ctx, sub.PlanID)
	}
	return sub.Plan, nil
}

// ListPlans returns all active plans in tier order.
func (s *Service) ListPlans(ctx context.Context) ([]*Plan, error) {
	return s.repo.ListActivePlans(ctx)
}

// GetUpgradeOptions returns the active plans above the current one, in tier
// order.
func (s *Service) GetUpgradeOptions(ctx context.Context) ([]*Plan, error) {
	current, err := s.GetCurrentPlan(ctx)
	if err != nil {
		return nil, err
	}
	plans, err := s.repo.ListActivePlans(ctx)
	if err != nil {
		return nil, err
	}
	options := make([]*Plan, 0, len(plans))
	for _, p := range plans {
		if p.SortOrder > current.SortOrder {
			options = append(options, p)
		}
	}
	return options, nil
}

// IsOnTrial reports whether the current subscription is inside its trial.
func (s *Service) IsOnTrial(ctx context.Context) (bool, error) {
	sub, err := s.repo.GetCurrentSubscription(ctx)
	if err != nil {
		return false, err
	}
	return sub.OnTrial(time.Now()), nil
}

// GetTrialDaysRemaining returns whole days left on the trial, zero when no
// trial is running.
func (s *Service) GetTrialDaysRemaining(ctx context.Context) (int, error) {
	sub, err := s.repo.GetCurrentSubscription(ctx)
	if err != nil {
		return 0, err
	}
	return sub.TrialDaysRemaining(time.Now()), nil
}

// GetPendingChange returns the scheduled plan change, if any.
func (s *Service) GetPendingChange(ctx context.Context) (*PendingChange, error) {
	sub, err := s.repo.GetCurrentSubscription(ctx)
	if err != nil {
		return nil, err
	}
	if sub.ScheduledPlanID == nil || sub.EndsAt == nil {
		return nil, ErrNoPendingChange
	}
	plan, err := s.repo.GetPlan(ctx, *sub.ScheduledPlanID)
	if err != nil {
		return nil, err
	}
	return &PendingChange{
		PlanID:      plan.ID,
		PlanSlug:    plan.Slug,
		EffectiveAt: *sub.EndsAt,
	}, nil
}

// CurrentUsage returns live resource counts for the context tenant.
func (s *Service) CurrentUsage(ctx context.Context) (Counts, error) {
	return s.usage.LiveCounts(ctx)
}

// HasFeature reports whether the current plan enables a feature.
func (s *Service) HasFeature(ctx context.Context, feature string) (bool, error) {
	plan, err := s.GetCurrentPlan(ctx)
	if err != nil {
		return false, err
	}
	return plan.HasFeature(feature), nil
}

// IsEntitled reports whether the current plan's tier reaches the feature's
// minimum plan. Unlike HasFeature it ranks tiers by sort order, so a plan
// above the minimum is entitled even when its feature map omits the key.
func (s *Service) IsEntitled(ctx context.Context, feature Feature) (bool, error) {
	current, err := s.GetCurrentPlan(ctx)
	if err != nil {
		return false, err
	}
	minimum, err := s.repo.GetPlanBySlug(ctx, feature.MinimumPlan())
	if err != nil {
		return false, err
	}
	return current.SortOrder >= minimum.SortOrder, nil
}

// State returns the lifecycle capabilities of the current subscription.
func (s *Service) State(ctx context.Context) (State, error) {
	sub, err := s.repo.GetCurrentSubscription(ctx)
	if err != nil {
		return State{}, err
	}
	return StateOf(sub), nil
}

// --- Plan Changes ---

// CanUpgradeTo runs the upgrade validation pipeline without changing
// anything.
func (s *Service) CanUpgradeTo(ctx context.Context, planSlug string) error {
	vc, err := s.buildValidationContext(ctx, planSlug)
	if err != nil {
		return err
	}
	return s.upgrade.Validate(ctx, vc)
}

// CanDowngradeTo runs the downgrade validation pipeline, including usage
// limit checks, without changing anything.
func (s *Service) CanDowngradeTo(ctx context.Context, planSlug string) error {
	vc, err := s.buildValidationContext(ctx, planSlug)
	if err != nil {
		return err
	}
	return s.downgrade.Validate(ctx, vc)
}

// Upgrade moves the tenant to a higher plan, effective immediately.
func (s *Service) Upgrade(ctx context.Context, planSlug string, cycle BillingCycle) (*Subscription, error) {
	vc, err := s.buildValidationContext(ctx, planSlug)
	if err != nil {
		return nil, err
	}
	if err := s.upgrade.Validate(ctx, vc); err != nil {
		s.recordChange("upgrade", "rejected")
		return nil, err
	}

	sub := vc.Subscription
	target := vc.TargetPlan

	var result *Subscription
	if sub.IsFree() {
		// Free to paid goes through the paid creation strategy, which
		// supersedes the free row.
		t, err := s.tenants.GetTenant(ctx, sub.TenantID)
		if err != nil {
			return nil, err
		}
		result, err = s.Subscribe(ctx, t, target.Slug, cycle, true)
		if err != nil {
			s.recordChange("upgrade", "failed")
			return nil, err
		}
	} else {
		targetCycle := cycle
		if targetCycle == "" {
			targetCycle = sub.BillingCycle
		}
		priceID := target.StripePriceID(targetCycle)
		if priceID == "" {
			return nil, fmt.Errorf("%w: %s (%s)", ErrStripePriceNotConfigured, target.Slug, targetCycle)
		}
		if _, err := s.gateway.ChangeSubscriptionPrice(ctx, sub.ExternalID, priceID); err != nil {
			s.recordChange("upgrade", "failed")
			return nil, fmt.Errorf("change processor price: %w", err)
		}
		sub.PlanID = target.ID
		sub.Plan = target
		sub.BillingCycle = targetCycle
		// An upgrade clears any scheduled downgrade or cancellation.
		sub.ScheduledPlanID = nil
		sub.EndsAt = nil
		if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
			return nil, err
		}
		result = sub
	}

	s.recordChange("upgrade", "applied")
	s.logger.Info("subscription upgraded",
		zap.String("tenant_id", result.TenantID.String()),
		zap.String("from", planSlugOf(vc.CurrentPlan)),
		zap.String("to", target.Slug))
	return result, nil
}

// Downgrade schedules a move to a lower plan at the end of the current
// billing period. Usage must already fit the target plan's limits.
func (s *Service) Downgrade(ctx context.Context, planSlug string) (*PendingChange, error) {
	vc, err := s.buildValidationContext(ctx, planSlug)
	if err != nil {
		return nil, err
	}
	if err := s.downgrade.Validate(ctx, vc); err != nil {
		s.recordChange("downgrade", "rejected")
		return nil, err
	}

	sub := vc.Subscription
	target := vc.TargetPlan

	effectiveAt, err := s.periodEnd(ctx, sub)
	if err != nil {
		return nil, err
	}
	sub.ScheduledPlanID = &target.ID
	sub.EndsAt = &effectiveAt
	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	s.recordChange("downgrade", "scheduled")
	s.logger.Info("subscription downgrade scheduled",
		zap.String("tenant_id", sub.TenantID.String()),
		zap.String("from", planSlugOf(vc.CurrentPlan)),
		zap.String("to", target.Slug),
		zap.Time("effective_at", effectiveAt))
	return &PendingChange{
		PlanID:      target.ID,
		PlanSlug:    target.Slug,
		EffectiveAt: effectiveAt,
	}, nil
}

// CancelPendingChange drops a scheduled downgrade before it takes effect.
func (s *Service) CancelPendingChange(ctx context.Context) error {
	sub, err := s.repo.GetCurrentSubscription(ctx)
	if err != nil {
		return err
	}
	if sub.ScheduledPlanID == nil {
		return ErrNoPendingChange
	}
	sub.ScheduledPlanID = nil
	sub.EndsAt = nil
	return s.repo.UpdateSubscription(ctx, sub)
}

// Cancel schedules the current subscription to end at the period boundary.
// The tenant keeps paid access until then.
func (s *Service) Cancel(ctx context.Context) (*Subscription, error) {
	sub, err := s.repo.GetCurrentSubscription(ctx)
	if err != nil {
		return nil, err
	}
	if sub.Status == StatusCanceled {
		return nil, ErrSubscriptionCanceled
	}
	if !StateOf(sub).CanCancel {
		return nil, ErrCannotCancel
	}

	ext, err := s.gateway.CancelSubscription(ctx, sub.ExternalID, false)
	if err != nil {
		return nil, fmt.Errorf("cancel processor subscription: %w", err)
	}
	endsAt := ext.CurrentPeriodEnd
	sub.EndsAt = &endsAt
	sub.ScheduledPlanID = nil
	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("subscription cancellation scheduled",
		zap.String("tenant_id", sub.TenantID.String()),
		zap.Time("ends_at", endsAt))
	return sub, nil
}

// Resume reverses a scheduled cancellation before the period ends.
func (s *Service) Resume(ctx context.Context) (*Subscription, error) {
	sub, err := s.repo.GetCurrentSubscription(ctx)
	if err != nil {
		return nil, err
	}
	if sub.Status == StatusCanceled {
		return nil, ErrSubscriptionCanceled
	}
	if !StateOf(sub).CanResume {
		return nil, ErrCannotResume
	}

	if _, err := s.gateway.ResumeSubscription(ctx, sub.ExternalID); err != nil {
		return nil, fmt.Errorf("resume processor subscription: %w", err)
	}
	sub.EndsAt = nil
	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("subscription resumed",
		zap.String("tenant_id", sub.TenantID.String()))
	return sub, nil
}

// CreateSetupIntent returns a client secret for collecting a payment method
// for the context tenant.
func (s *Service) CreateSetupIntent(ctx context.Context) (*gateway.SetupIntent, error) {
	customerID, err := s.ensureContextCustomer(ctx)
	if err != nil {
		return nil, err
	}
	return s.gateway.CreateSetupIntent(ctx, customerID)
}

// AttachPaymentMethod attaches a collected payment method to the context
// tenant's processor customer and makes it the invoice default.
func (s *Service) AttachPaymentMethod(ctx context.Context, paymentMethodID string) (*gateway.PaymentMethod, error) {
	customerID, err := s.ensureContextCustomer(ctx)
	if err != nil {
		return nil, err
	}
	pm, err := s.gateway.AttachPaymentMethod(ctx, customerID, paymentMethodID)
	if err != nil {
		return nil, err
	}
	if err := s.gateway.SetDefaultPaymentMethod(ctx, customerID, paymentMethodID); err != nil {
		return nil, err
	}
	return pm, nil
}

// DetachPaymentMethod removes a stored payment method from the processor.
func (s *Service) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	return s.gateway.DetachPaymentMethod(ctx, paymentMethodID)
}

// GetPaymentMethod returns a stored payment method's details.
func (s *Service) GetPaymentMethod(ctx context.Context, paymentMethodID string) (*gateway.PaymentMethod, error) {
	return s.gateway.GetPaymentMethod(ctx, paymentMethodID)
}

// ensureContextCustomer returns the context tenant's processor customer id,
// creating the customer on first use.
func (s *Service) ensureContextCustomer(ctx context.Context) (string, error) {
	tenantID, ok := tenant.TenantID(ctx)
	if !ok {
		return "", tenant.ErrTenantNotFound
	}
	t, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return "", err
	}
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

// --- Plan Administration ---

// DeactivatePlan hides a plan from new subscribers. Plans with active
// subscribers cannot be deactivated.
func (s *Service) DeactivatePlan(ctx context.Context, planSlug string) error {
	plan, err := s.repo.GetPlanBySlug(ctx, planSlug)
	if err != nil {
		return err
	}
	count, err := s.repo.CountActiveSubscribersForPlan(ctx, plan.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s has %d", ErrPlanHasActiveSubscribers, plan.Slug, count)
	}
	plan.IsActive = false
	return s.repo.UpdatePlan(ctx, plan)
}

// --- Sweeps ---

// ExpireTrials downgrades subscriptions whose trial lapsed without a
// payment method to past_due. Run system-wide without tenant context.
func (s *Service) ExpireTrials(ctx context.Context, now time.Time) (int, error) {
	subs, err := s.repo.ListExpiredTrials(ctx, now)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, sub := range subs {
		ext, err := s.gateway.GetSubscription(ctx, sub.ExternalID)
		if err != nil {
			s.logger.Error("trial sweep: processor lookup failed",
				zap.String("external_id", sub.ExternalID), zap.Error(err))
			continue
		}
		sub.Status = mapGatewayStatus(ext.Status)
		if sub.Status == StatusTrialing {
			// Processor has not rolled the subscription over yet.
			continue
		}
		if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
			s.logger.Error("trial sweep: update failed",
				zap.String("subscription_id", sub.ID.String()), zap.Error(err))
			continue
		}
		expired++
		s.notifyTrialEnded(ctx, sub)
	}
	return expired, nil
}

// ApplyDueChanges applies scheduled downgrades whose effective time has
// passed and finalizes ended cancellations.
func (s *Service) ApplyDueChanges(ctx context.Context, now time.Time) (int, error) {
	applied := 0

	due, err := s.repo.ListDueScheduledChanges(ctx, now)
	if err != nil {
		return 0, err
	}
	for _, sub := range due {
		if err := s.applyScheduledChange(ctx, sub); err != nil {
			s.logger.Error("downgrade sweep: apply failed",
				zap.String("subscription_id", sub.ID.String()), zap.Error(err))
			continue
		}
		applied++
	}

	ended, err := s.repo.ListEndedSubscriptions(ctx, now)
	if err != nil {
		return applied, err
	}
	for _, sub := range ended {
		sub.Status = StatusCanceled
		if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
			s.logger.Error("cancellation sweep: finalize failed",
				zap.String("subscription_id", sub.ID.String()), zap.Error(err))
			continue
		}
		if err := s.startFreeFor(ctx, sub.TenantID); err != nil {
			s.logger.Error("cancellation sweep: free fallback failed",
				zap.String("tenant_id", sub.TenantID.String()), zap.Error(err))
		}
		applied++
	}
	return applied, nil
}

// applyScheduledChange moves a subscription to its scheduled plan. Paid
// targets get the processor price swapped; the free target cancels the
// processor subscription and falls back to a free row.
func (s *Service) applyScheduledChange(ctx context.Context, sub *Subscription) error {
	target, err := s.repo.GetPlan(ctx, *sub.ScheduledPlanID)
	if err != nil {
		return err
	}
	if target.IsFree() {
		if _, err := s.gateway.CancelSubscription(ctx, sub.ExternalID, true); err != nil {
			return fmt.Errorf("cancel processor subscription: %w", err)
		}
		sub.Status = StatusCanceled
		sub.ScheduledPlanID = nil
		if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
		return s.startFreeFor(ctx, sub.TenantID)
	}

	priceID := target.StripePriceID(sub.BillingCycle)
	if priceID == "" {
		return fmt.Errorf("%w: %s (%s)", ErrStripePriceNotConfigured, target.Slug, sub.BillingCycle)
	}
	if _, err := s.gateway.ChangeSubscriptionPrice(ctx, sub.ExternalID, priceID); err != nil {
		return fmt.Errorf("change processor price: %w", err)
	}
	sub.PlanID = target.ID
	sub.ScheduledPlanID = nil
	sub.EndsAt = nil
	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return err
	}

	s.recordChange("downgrade", "applied")
	s.logger.Info("scheduled downgrade applied",
		zap.String("tenant_id", sub.TenantID.String()),
		zap.String("to", target.Slug))
	return nil
}

func (s *Service) startFreeFor(ctx context.Context, tenantID uuid.UUID) error {
	t, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	return s.StartDefault(ctx, t)
}

// --- Helpers ---

// buildValidationContext loads everything the validator chains inspect.
// Not-found lookups leave the field nil so the chain reports the absence in
// pipeline order; any other repository error surfaces immediately.
func (s *Service) buildValidationContext(ctx context.Context, planSlug string) (*ValidationContext, error) {
	vc := &ValidationContext{TargetSlug: planSlug}

	sub, err := s.repo.GetCurrentSubscription(ctx)
	switch {
	case err == nil:
		vc.Subscription = sub
		if sub.Plan != nil {
			vc.CurrentPlan = sub.Plan
		} else {
			plan, err := s.repo.GetPlan(ctx, sub.PlanID)
			if err != nil && !errors.Is(err, ErrPlanNotFound) {
				return nil, err
			}
			vc.CurrentPlan = plan
		}
	case errors.Is(err, ErrSubscriptionNotFound):
	default:
		return nil, err
	}

	plan, err := s.repo.GetPlanBySlug(ctx, planSlug)
	if err != nil && !errors.Is(err, ErrPlanNotFound) {
		return nil, err
	}
	vc.TargetPlan = plan
	return vc, nil
}

// periodEnd resolves when the current billing period closes. Free
// subscriptions have no processor period, so the calendar month is used.
func (s *Service) periodEnd(ctx context.Context, sub *Subscription) (time.Time, error) {
	if sub.IsFree() {
		_, end := PeriodBounds(time.Now())
		return end, nil
	}
	ext, err := s.gateway.GetSubscription(ctx, sub.ExternalID)
	if err != nil {
		return time.Time{}, fmt.Errorf("get processor subscription: %w", err)
	}
	return ext.CurrentPeriodEnd, nil
}

func (s *Service) recordChange(direction, status string) {
	if s.metrics != nil {
		s.metrics.RecordSubscriptionChange(direction, status)
	}
}

func (s *Service) notifyTrialStarted(ctx context.Context, t *tenant.Tenant, sub *Subscription) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.TrialStarted(ctx, t, sub); err != nil {
		s.logger.Warn("trial started notification failed",
			zap.String("tenant_id", t.ID.String()), zap.Error(err))
	}
}

func (s *Service) notifyTrialEnded(ctx context.Context, sub *Subscription) {
	if s.notifier == nil {
		return
	}
	t, err := s.tenants.GetTenant(ctx, sub.TenantID)
	if err != nil {
		return
	}
	if err := s.notifier.TrialEnded(ctx, t, sub); err != nil {
		s.logger.Warn("trial ended notification failed",
			zap.String("tenant_id", t.ID.String()), zap.Error(err))
	}
}

func planSlugOf(p *Plan) string {
	if p == nil {
		return ""
	}
	return p.Slug
}
