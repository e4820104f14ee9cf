package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Subscription lifecycle metrics
	SubscriptionsCreatedTotal  *prometheus.CounterVec
	SubscriptionChangesTotal   *prometheus.CounterVec
	ValidationFailuresTotal    *prometheus.CounterVec
	UsageLimitViolationsTotal  *prometheus.CounterVec

	// Billing gateway metrics
	GatewayRequestsTotal   *prometheus.CounterVec
	GatewayRequestDuration *prometheus.HistogramVec

	// Tenant metrics
	TenantsOnboardedTotal prometheus.Counter
}

// New creates a new Metrics instance registered on the default registry.
func New(namespace string) *Metrics {
	return NewWith(namespace, prometheus.DefaultRegisterer)
}

// NewWith creates a new Metrics instance registered on the given registerer.
func NewWith(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "salonhub"
	}
	factory := promauto.With(reg)

	return &Metrics{
		SubscriptionsCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "billing",
				Name:      "subscriptions_created_total",
				Help:      "Total number of subscriptions created",
			},
			[]string{"plan", "kind"}, // kind: free, paid
		),
		SubscriptionChangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "billing",
				Name:      "subscription_changes_total",
				Help:      "Total number of subscription plan changes",
			},
			[]string{"direction", "status"}, // direction: upgrade, downgrade, cancel, resume
		),
		ValidationFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "billing",
				Name:      "validation_failures_total",
				Help:      "Total number of plan-change validation failures",
			},
			[]string{"rule"},
		),
		UsageLimitViolationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "billing",
				Name:      "usage_limit_violations_total",
				Help:      "Total number of usage limit violations detected",
			},
			[]string{"resource"},
		),
		GatewayRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total number of billing gateway requests",
			},
			[]string{"operation", "status"},
		),
		GatewayRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Billing gateway request duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
		TenantsOnboardedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tenant",
				Name:      "onboarded_total",
				Help:      "Total number of tenants onboarded",
			},
		),
	}
}

// RecordGatewayRequest records a billing gateway call.
func (m *Metrics) RecordGatewayRequest(operation, status string, duration time.Duration) {
	m.GatewayRequestsTotal.WithLabelValues(operation, status).Inc()
	m.GatewayRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSubscriptionChange records a plan change outcome.
func (m *Metrics) RecordSubscriptionChange(direction, status string) {
	m.SubscriptionChangesTotal.WithLabelValues(direction, status).Inc()
}
