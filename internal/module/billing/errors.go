package billing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Module errors.
var (
	ErrSubscriptionNotFound     = errors.New("subscription not found")
	ErrPlanNotFound             = errors.New("plan not found")
	ErrPlanNotActive            = errors.New("plan is not active")
	ErrSamePlan                 = errors.New("already subscribed to this plan")
	ErrCannotUpgrade            = errors.New("cannot upgrade to plan")
	ErrCannotDowngrade          = errors.New("cannot downgrade to plan")
	ErrCannotCancel             = errors.New("subscription cannot be canceled in its current state")
	ErrCannotResume             = errors.New("subscription cannot be resumed in its current state")
	ErrSubscriptionCanceled     = errors.New("subscription is canceled")
	ErrUsageExceedsLimits       = errors.New("usage exceeds plan limits")
	ErrStripePriceNotConfigured = errors.New("stripe price not configured for plan")
	ErrPlanHasActiveSubscribers = errors.New("plan has active subscribers")
	ErrNoPendingChange          = errors.New("no pending plan change")
	ErrNoStrategyForPlan        = errors.New("no creation strategy supports plan")
)

// CannotUpgradeError reports a rejected upgrade with its tier context.
type CannotUpgradeError struct {
	FromPlan string
	ToPlan   string
}

func (e *CannotUpgradeError) Error() string {
	return fmt.Sprintf("cannot upgrade from %q to %q", e.FromPlan, e.ToPlan)
}

// Unwrap makes errors.Is(err, ErrCannotUpgrade) hold.
func (e *CannotUpgradeError) Unwrap() error {
	return ErrCannotUpgrade
}

// CannotDowngradeError reports a rejected downgrade with its tier context.
type CannotDowngradeError struct {
	FromPlan string
	ToPlan   string
}

func (e *CannotDowngradeError) Error() string {
	return fmt.Sprintf("cannot downgrade from %q to %q", e.FromPlan, e.ToPlan)
}

// Unwrap makes errors.Is(err, ErrCannotDowngrade) hold.
func (e *CannotDowngradeError) Unwrap() error {
	return ErrCannotDowngrade
}

// LimitViolation describes one resource exceeding a plan cap.
type LimitViolation struct {
	Resource string `json:"resource"`
	Current  int64  `json:"current"`
	Limit    int64  `json:"limit"`
}

// UsageLimitError reports every resource that exceeds the target plan's caps.
type UsageLimitError struct {
	Violations map[string]LimitViolation
}

func (e *UsageLimitError) Error() string {
	resources := make([]string, 0, len(e.Violations))
	for r := range e.Violations {
		resources = append(resources, r)
	}
	sort.Strings(resources)

	parts := make([]string, 0, len(resources))
	for _, r := range resources {
		v := e.Violations[r]
		parts = append(parts, fmt.Sprintf("%s %d/%d", r, v.Current, v.Limit))
	}
	return "usage exceeds plan limits: " + strings.Join(parts, ", ")
}

// Unwrap makes errors.Is(err, ErrUsageExceedsLimits) hold.
func (e *UsageLimitError) Unwrap() error {
	return ErrUsageExceedsLimits
}
