package billing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/salonhub/server/internal/module/tenant"
	"github.com/salonhub/server/internal/shared/metrics"
)

// ValidationContext carries everything a plan-change validator may inspect.
// Loaded once by the service before the chain runs so individual validators
// stay free of repository access. TargetSlug is the requested plan slug,
// kept even when no plan matched it.
type ValidationContext struct {
	Subscription *Subscription
	CurrentPlan  *Plan
	TargetPlan   *Plan
	TargetSlug   string
}

// Validator checks one rule of a plan change. Implementations return a
// typed billing error on violation and nil when the rule passes.
type Validator interface {
	Name() string
	Validate(ctx context.Context, vc *ValidationContext) error
}

// Chain runs validators in order and stops at the first failure.
type Chain struct {
	validators []Validator
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewChain(m *metrics.Metrics, logger *zap.Logger, validators ...Validator) *Chain {
	return &Chain{validators: validators, metrics: m, logger: logger}
}

// Validate runs each validator in sequence, returning the first error.
func (c *Chain) Validate(ctx context.Context, vc *ValidationContext) error {
	for _, v := range c.validators {
		if err := v.Validate(ctx, vc); err != nil {
			if c.metrics != nil {
				c.metrics.ValidationFailuresTotal.WithLabelValues(v.Name()).Inc()
			}
			if c.logger != nil {
				c.logger.Debug("plan change validation failed",
					zap.String("rule", v.Name()),
					zap.Error(err))
			}
			return err
		}
	}
	return nil
}

// NewUpgradeChain builds the validator pipeline for upgrades.
func NewUpgradeChain(m *metrics.Metrics, logger *zap.Logger) *Chain {
	return NewChain(m, logger,
		subscriptionExists{},
		planExists{},
		canUpgrade{},
	)
}

// NewDowngradeChain builds the validator pipeline for downgrades. Downgrades
// additionally verify current usage fits inside the target plan's limits.
func NewDowngradeChain(usage UsageChecker, m *metrics.Metrics, logger *zap.Logger) *Chain {
	return NewChain(m, logger,
		subscriptionExists{},
		planExists{},
		canDowngrade{},
		usageLimits{checker: usage},
	)
}

// UsageChecker reports which resources exceed a plan's limits. An empty map
// means the plan can accommodate current usage.
type UsageChecker interface {
	CheckLimitViolations(ctx context.Context, plan *Plan) (map[string]LimitViolation, error)
}

type subscriptionExists struct{}

func (subscriptionExists) Name() string { return "subscription_exists" }

func (subscriptionExists) Validate(ctx context.Context, vc *ValidationContext) error {
	if vc.Subscription == nil {
		if id, ok := tenant.TenantID(ctx); ok {
			return fmt.Errorf("%w: tenant %s", ErrSubscriptionNotFound, id)
		}
		return ErrSubscriptionNotFound
	}
	return nil
}

type planExists struct{}

func (planExists) Name() string { return "plan_exists" }

func (planExists) Validate(_ context.Context, vc *ValidationContext) error {
	if vc.TargetPlan == nil {
		if vc.TargetSlug != "" {
			return fmt.Errorf("%w: %s", ErrPlanNotFound, vc.TargetSlug)
		}
		return ErrPlanNotFound
	}
	if !vc.TargetPlan.IsActive {
		return ErrPlanNotActive
	}
	return nil
}

type canUpgrade struct{}

func (canUpgrade) Name() string { return "can_upgrade" }

func (canUpgrade) Validate(_ context.Context, vc *ValidationContext) error {
	st := StateOf(vc.Subscription)
	if !st.CanUpgrade {
		return &CannotUpgradeError{FromPlan: planSlug(vc.CurrentPlan), ToPlan: vc.TargetPlan.Slug}
	}
	if vc.CurrentPlan != nil {
		if vc.CurrentPlan.ID == vc.TargetPlan.ID {
			return ErrSamePlan
		}
		if !vc.TargetPlan.IsUpgradeFrom(vc.CurrentPlan) {
			return &CannotUpgradeError{FromPlan: vc.CurrentPlan.Slug, ToPlan: vc.TargetPlan.Slug}
		}
	}
	return nil
}

type canDowngrade struct{}

func (canDowngrade) Name() string { return "can_downgrade" }

func (canDowngrade) Validate(_ context.Context, vc *ValidationContext) error {
	st := StateOf(vc.Subscription)
	if !st.CanDowngrade {
		return &CannotDowngradeError{FromPlan: planSlug(vc.CurrentPlan), ToPlan: vc.TargetPlan.Slug}
	}
	if vc.CurrentPlan != nil {
		if vc.CurrentPlan.ID == vc.TargetPlan.ID {
			return ErrSamePlan
		}
		if !vc.TargetPlan.IsDowngradeFrom(vc.CurrentPlan) {
			return &CannotDowngradeError{FromPlan: vc.CurrentPlan.Slug, ToPlan: vc.TargetPlan.Slug}
		}
	}
	return nil
}

type usageLimits struct {
	checker UsageChecker
}

func (usageLimits) Name() string { return "usage_limits" }

func (v usageLimits) Validate(ctx context.Context, vc *ValidationContext) error {
	violations, err := v.checker.CheckLimitViolations(ctx, vc.TargetPlan)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return &UsageLimitError{Violations: violations}
	}
	return nil
}

func planSlug(p *Plan) string {
	if p == nil {
		return ""
	}
	return p.Slug
}
