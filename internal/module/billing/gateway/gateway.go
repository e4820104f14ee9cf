package gateway

import (
	"context"
	"time"
)

// Customer is a processor-side billing customer.
type Customer struct {
	ID    string
	Email string
}

// Subscription is a processor-side subscription.
type Subscription struct {
	ID                 string
	CustomerID         string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	TrialEnd           *time.Time
	CancelAtPeriodEnd  bool
}

// SetupIntent carries the client secret the frontend needs to collect a
// payment method.
type SetupIntent struct {
	ID           string
	ClientSecret string
}

// PaymentMethod is a stored payment instrument on the processor side.
type PaymentMethod struct {
	ID         string
	CustomerID string
	Type       string
	CardBrand  string
	CardLast4  string
	ExpMonth   int64
	ExpYear    int64
}

// Price is a processor-side recurring price.
type Price struct {
	ID         string
	ProductID  string
	UnitAmount int64
	Currency   string
	Interval   string
	Active     bool
}

// Product is a processor-side product a price belongs to.
type Product struct {
	ID     string
	Name   string
	Active bool
}

// CreateSubscriptionParams describes a new paid subscription. PaymentMethodID
// is optional; when set it becomes the subscription's default payment method.
type CreateSubscriptionParams struct {
	CustomerID      string
	PriceID         string
	PaymentMethodID string
	TrialDays       int
	Metadata        map[string]string
}

// Gateway abstracts the payment processor. Free-tier subscriptions never
// touch it.
type Gateway interface {
	Name() string

	CreateCustomer(ctx context.Context, email, name string) (*Customer, error)
	CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error)
	ChangeSubscriptionPrice(ctx context.Context, subscriptionID, priceID string) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string, immediately bool) (*Subscription, error)
	ResumeSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	CreateSetupIntent(ctx context.Context, customerID string) (*SetupIntent, error)

	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (*PaymentMethod, error)
	DetachPaymentMethod(ctx context.Context, paymentMethodID string) error
	GetPaymentMethod(ctx context.Context, paymentMethodID string) (*PaymentMethod, error)
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error

	GetPrice(ctx context.Context, priceID string) (*Price, error)
	GetProduct(ctx context.Context, productID string) (*Product, error)

	VerifyWebhookSignature(payload []byte, signature string) error
}
