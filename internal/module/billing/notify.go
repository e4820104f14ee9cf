package billing

import (
	"context"

	"go.uber.org/zap"

	"github.com/salonhub/server/internal/module/tenant"
)

// Notifier delivers billing lifecycle notifications. Delivery is best
// effort; failures are logged by the caller and never block the billing
// operation.
type Notifier interface {
	TrialStarted(ctx context.Context, t *tenant.Tenant, sub *Subscription) error
	TrialEnded(ctx context.Context, t *tenant.Tenant, sub *Subscription) error
}

// LogNotifier writes notifications to the log. Stands in until a mail or
// SMS channel is wired up.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) TrialStarted(ctx context.Context, t *tenant.Tenant, sub *Subscription) error {
	n.logger.Info("notify: trial started",
		zap.String("tenant", t.Slug),
		zap.String("email", t.Email),
		zap.Timep("trial_ends_at", sub.TrialEndsAt))
	return nil
}

func (n *LogNotifier) TrialEnded(ctx context.Context, t *tenant.Tenant, sub *Subscription) error {
	n.logger.Info("notify: trial ended",
		zap.String("tenant", t.Slug),
		zap.String("email", t.Email),
		zap.String("status", string(sub.Status)))
	return nil
}
