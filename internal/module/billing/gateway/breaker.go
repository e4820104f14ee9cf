package gateway

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/salonhub/server/internal/shared/metrics"
)

// BreakerConfig tunes the circuit breaker around the payment processor.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig returns the default breaker configuration.
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerGateway wraps a Gateway with a circuit breaker and per-operation
// metrics. When the processor misbehaves repeatedly the breaker opens and
// calls fail fast instead of stacking up timeouts.
type BreakerGateway struct {
	inner   Gateway
	breaker *gobreaker.CircuitBreaker[any]
	metrics *metrics.Metrics
}

// NewBreakerGateway wraps inner with circuit breaking.
func NewBreakerGateway(inner Gateway, config *BreakerConfig, m *metrics.Metrics) *BreakerGateway {
	if config == nil {
		config = DefaultBreakerConfig()
	}
	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
	}
	return &BreakerGateway{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
		metrics: m,
	}
}

func (g *BreakerGateway) Name() string {
	return g.inner.Name()
}

// State returns the current breaker state.
func (g *BreakerGateway) State() gobreaker.State {
	return g.breaker.State()
}

func execute[T any](g *BreakerGateway, operation string, fn func() (T, error)) (T, error) {
	start := time.Now()
	result, err := g.breaker.Execute(func() (any, error) {
		return fn()
	})
	if g.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		g.metrics.RecordGatewayRequest(operation, status, time.Since(start))
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func (g *BreakerGateway) CreateCustomer(ctx context.Context, email, name string) (*Customer, error) {
	return execute(g, "create_customer", func() (*Customer, error) {
		return g.inner.CreateCustomer(ctx, email, name)
	})
}

func (g *BreakerGateway) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error) {
	return execute(g, "create_subscription", func() (*Subscription, error) {
		return g.inner.CreateSubscription(ctx, params)
	})
}

func (g *BreakerGateway) ChangeSubscriptionPrice(ctx context.Context, subscriptionID, priceID string) (*Subscription, error) {
	return execute(g, "change_subscription_price", func() (*Subscription, error) {
		return g.inner.ChangeSubscriptionPrice(ctx, subscriptionID, priceID)
	})
}

func (g *BreakerGateway) CancelSubscription(ctx context.Context, subscriptionID string, immediately bool) (*Subscription, error) {
	return execute(g, "cancel_subscription", func() (*Subscription, error) {
		return g.inner.CancelSubscription(ctx, subscriptionID, immediately)
	})
}

func (g *BreakerGateway) ResumeSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	return execute(g, "resume_subscription", func() (*Subscription, error) {
		return g.inner.ResumeSubscription(ctx, subscriptionID)
	})
}

func (g *BreakerGateway) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	return execute(g, "get_subscription", func() (*Subscription, error) {
		return g.inner.GetSubscription(ctx, subscriptionID)
	})
}

func (g *BreakerGateway) CreateSetupIntent(ctx context.Context, customerID string) (*SetupIntent, error) {
	return execute(g, "create_setup_intent", func() (*SetupIntent, error) {
		return g.inner.CreateSetupIntent(ctx, customerID)
	})
}

func (g *BreakerGateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (*PaymentMethod, error) {
	return execute(g, "attach_payment_method", func() (*PaymentMethod, error) {
		return g.inner.AttachPaymentMethod(ctx, customerID, paymentMethodID)
	})
}

func (g *BreakerGateway) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	_, err := execute(g, "detach_payment_method", func() (struct{}, error) {
		return struct{}{}, g.inner.DetachPaymentMethod(ctx, paymentMethodID)
	})
	return err
}

func (g *BreakerGateway) GetPaymentMethod(ctx context.Context, paymentMethodID string) (*PaymentMethod, error) {
	return execute(g, "get_payment_method", func() (*PaymentMethod, error) {
		return g.inner.GetPaymentMethod(ctx, paymentMethodID)
	})
}

func (g *BreakerGateway) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	_, err := execute(g, "set_default_payment_method", func() (struct{}, error) {
		return struct{}{}, g.inner.SetDefaultPaymentMethod(ctx, customerID, paymentMethodID)
	})
	return err
}

func (g *BreakerGateway) GetPrice(ctx context.Context, priceID string) (*Price, error) {
	return execute(g, "get_price", func() (*Price, error) {
		return g.inner.GetPrice(ctx, priceID)
	})
}

func (g *BreakerGateway) GetProduct(ctx context.Context, productID string) (*Product, error) {
	return execute(g, "get_product", func() (*Product, error) {
		return g.inner.GetProduct(ctx, productID)
	})
}

func (g *BreakerGateway) VerifyWebhookSignature(payload []byte, signature string) error {
	return g.inner.VerifyWebhookSignature(payload, signature)
}
