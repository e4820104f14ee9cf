package billing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/salonhub/server/internal/module/billing/gateway"
	"github.com/salonhub/server/internal/module/tenant"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tenant.Tenant{}, &Plan{}, &Subscription{}, &UsageRecord{}))
	return db
}

func seedTenantRow(t *testing.T, db *gorm.DB, slug string) *tenant.Tenant {
	t.Helper()
	tn := &tenant.Tenant{ID: uuid.New(), Name: slug, Slug: slug, Email: slug + "@example.com"}
	require.NoError(t, db.Create(tn).Error)
	return tn
}

// seedPlans inserts the standard four-tier ladder and returns the plans
// keyed by slug.
func seedPlans(t *testing.T, repo Repository) map[string]*Plan {
	t.Helper()
	ctx := context.Background()
	plans := []*Plan{
		{
			Slug: "free", Name: "Free", SortOrder: 0, IsActive: true,
			Limits:   LimitMap{ResourceStaff: 1, ResourceServices: 5, ResourceClients: 50, ResourceAppointments: 20},
			Features: FeatureMap{"online_booking": true},
		},
		{
			Slug: "easy", Name: "Easy", SortOrder: 1, IsActive: true,
			MonthlyPriceCents: 1900, StripeMonthlyPriceID: "price_easy_m", StripeYearlyPriceID: "price_easy_y",
			Limits:   LimitMap{ResourceStaff: 5, ResourceServices: 25, ResourceClients: 500, ResourceAppointments: 200},
			Features: FeatureMap{"online_booking": true, "sms_reminders": true},
		},
		{
			Slug: "smart", Name: "Smart", SortOrder: 2, IsActive: true,
			MonthlyPriceCents: 4900, StripeMonthlyPriceID: "price_smart_m",
			Limits:   LimitMap{ResourceStaff: 15, ResourceServices: Unlimited, ResourceClients: Unlimited, ResourceAppointments: 1000},
			Features: FeatureMap{"online_booking": true, "sms_reminders": true, "calendar_sync": true, "advanced_reports": true},
		},
		{
			Slug: "premium", Name: "Premium", SortOrder: 3, IsActive: true,
			MonthlyPriceCents: 9900, StripeMonthlyPriceID: "price_premium_m", StripeYearlyPriceID: "price_premium_y",
			Limits:   LimitMap{ResourceStaff: Unlimited, ResourceServices: Unlimited, ResourceClients: Unlimited, ResourceAppointments: Unlimited},
			Features: FeatureMap{"online_booking": true, "sms_reminders": true, "calendar_sync": true, "advanced_reports": true, "multiple_locations": true},
		},
	}
	out := make(map[string]*Plan, len(plans))
	for _, p := range plans {
		require.NoError(t, repo.CreatePlan(ctx, p))
		out[p.Slug] = p
	}
	return out
}

// fakeGateway records every call and returns canned subscriptions. The
// zero value behaves like a healthy processor.
type fakeGateway struct {
	mu    sync.Mutex
	calls []string

	createErr error
	changeErr error

	periodEnd time.Time
	status    string

	defaultPM string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		periodEnd: time.Now().AddDate(0, 1, 0),
		status:    "active",
	}
}

func (g *fakeGateway) record(call string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
}

func (g *fakeGateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) CreateCustomer(ctx context.Context, email, name string) (*gateway.Customer, error) {
	g.record("create_customer")
	return &gateway.Customer{ID: "cus_" + uuid.NewString()[:8], Email: email}, nil
}

func (g *fakeGateway) CreateSubscription(ctx context.Context, p gateway.CreateSubscriptionParams) (*gateway.Subscription, error) {
	g.record("create_subscription")
	if g.createErr != nil {
		return nil, g.createErr
	}
	sub := &gateway.Subscription{
		ID:               "sub_" + uuid.NewString()[:8],
		CustomerID:       p.CustomerID,
		Status:           g.status,
		CurrentPeriodEnd: g.periodEnd,
	}
	if p.TrialDays > 0 {
		sub.Status = "trialing"
		te := time.Now().AddDate(0, 0, p.TrialDays)
		sub.TrialEnd = &te
	}
	return sub, nil
}

func (g *fakeGateway) ChangeSubscriptionPrice(ctx context.Context, subscriptionID, priceID string) (*gateway.Subscription, error) {
	g.record("change_price")
	if g.changeErr != nil {
		return nil, g.changeErr
	}
	return &gateway.Subscription{ID: subscriptionID, Status: g.status, CurrentPeriodEnd: g.periodEnd}, nil
}

func (g *fakeGateway) CancelSubscription(ctx context.Context, subscriptionID string, immediately bool) (*gateway.Subscription, error) {
	if immediately {
		g.record("cancel_now")
		return &gateway.Subscription{ID: subscriptionID, Status: "canceled"}, nil
	}
	g.record("cancel_at_period_end")
	return &gateway.Subscription{ID: subscriptionID, Status: g.status, CurrentPeriodEnd: g.periodEnd, CancelAtPeriodEnd: true}, nil
}

func (g *fakeGateway) ResumeSubscription(ctx context.Context, subscriptionID string) (*gateway.Subscription, error) {
	g.record("resume")
	return &gateway.Subscription{ID: subscriptionID, Status: g.status, CurrentPeriodEnd: g.periodEnd}, nil
}

func (g *fakeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*gateway.Subscription, error) {
	g.record("get_subscription")
	return &gateway.Subscription{ID: subscriptionID, Status: g.status, CurrentPeriodEnd: g.periodEnd}, nil
}

func (g *fakeGateway) CreateSetupIntent(ctx context.Context, customerID string) (*gateway.SetupIntent, error) {
	g.record("create_setup_intent")
	return &gateway.SetupIntent{ID: "seti_test", ClientSecret: "secret_test"}, nil
}

func (g *fakeGateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (*gateway.PaymentMethod, error) {
	g.record("attach_payment_method")
	return &gateway.PaymentMethod{ID: paymentMethodID, CustomerID: customerID, Type: "card", CardBrand: "visa", CardLast4: "4242"}, nil
}

func (g *fakeGateway) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	g.record("detach_payment_method")
	return nil
}

func (g *fakeGateway) GetPaymentMethod(ctx context.Context, paymentMethodID string) (*gateway.PaymentMethod, error) {
	g.record("get_payment_method")
	return &gateway.PaymentMethod{ID: paymentMethodID, Type: "card", CardBrand: "visa", CardLast4: "4242"}, nil
}

func (g *fakeGateway) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	g.record("set_default_payment_method")
	g.mu.Lock()
	g.defaultPM = paymentMethodID
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) GetPrice(ctx context.Context, priceID string) (*gateway.Price, error) {
	g.record("get_price")
	return &gateway.Price{ID: priceID, UnitAmount: 1900, Currency: "usd", Interval: "month", Active: true}, nil
}

func (g *fakeGateway) GetProduct(ctx context.Context, productID string) (*gateway.Product, error) {
	g.record("get_product")
	return &gateway.Product{ID: productID, Name: "Salon Plan", Active: true}, nil
}

func (g *fakeGateway) VerifyWebhookSignature(payload []byte, signature string) error { return nil }

// fixedCounts is a canned usage source for validator and service tests.
type fixedCounts struct {
	counts Counts
}

func (f fixedCounts) CountActiveServices(ctx context.Context, id uuid.UUID) (int64, error) {
	return f.counts.Services, nil
}

func (f fixedCounts) CountActiveStaff(ctx context.Context, id uuid.UUID) (int64, error) {
	return f.counts.Staff, nil
}

func (f fixedCounts) CountClients(ctx context.Context, id uuid.UUID) (int64, error) {
	return f.counts.Clients, nil
}

func (f fixedCounts) CountAppointmentsInPeriod(ctx context.Context, id uuid.UUID, start, end time.Time) (int64, error) {
	return f.counts.Appointments, nil
}

type testEnv struct {
	db      *gorm.DB
	repo    Repository
	tenants tenant.Repository
	gateway *fakeGateway
	service *Service
	usage   *UsageService
	plans   map[string]*Plan
}

// newTestEnv wires a service over sqlite with a fake gateway and the
// standard plan ladder.
func newTestEnv(t *testing.T, counts Counts) *testEnv {
	t.Helper()
	db := newTestDB(t)
	repo := NewRepository(db)
	tenants := tenant.NewRepository(db)
	gw := newFakeGateway()
	logger := zap.NewNop()

	src := fixedCounts{counts: counts}
	usage := NewUsageService(repo, src, src, src, nil, nil, logger)

	free := NewFreeStrategy(repo, nil, logger)
	paid := NewPaidStrategy(repo, tenants, gw, 14, nil, logger)
	resolver := NewStrategyResolver(free, paid)

	svc := NewService(repo, tenants, usage, resolver, gw, NewLogNotifier(logger),
		Config{TrialDays: 14, FreePlanSlug: "free"}, nil, logger)

	return &testEnv{
		db:      db,
		repo:    repo,
		tenants: tenants,
		gateway: gw,
		service: svc,
		usage:   usage,
		plans:   seedPlans(t, repo),
	}
}
