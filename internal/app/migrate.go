package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/salonhub/server/internal/module/billing"
	"github.com/salonhub/server/internal/module/catalog"
	"github.com/salonhub/server/internal/module/scheduling"
	"github.com/salonhub/server/internal/module/tenant"
)

// Migrate applies the schema for every module.
func (a *App) Migrate() error {
	err := a.DB.AutoMigrate(
		&tenant.Tenant{},
		&tenant.User{},
		&tenant.Client{},
		&catalog.Service{},
		&catalog.Staff{},
		&scheduling.WorkingHours{},
		&scheduling.Appointment{},
		&billing.Plan{},
		&billing.Subscription{},
		&billing.UsageRecord{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// defaultPlans is the standard pricing ladder. Stripe price ids come from
// configuration of the Stripe account, attached out of band.
var defaultPlans = []*billing.Plan{
	{
		Slug:      billing.PlanSlugFree,
		Name:      "Free",
		SortOrder: 0,
		IsActive:  true,
		Limits: billing.LimitMap{
			billing.ResourceStaff:        1,
			billing.ResourceServices:     5,
			billing.ResourceClients:      50,
			billing.ResourceAppointments: 20,
		},
		Features: billing.FeatureMap{
			string(billing.FeatureOnlineBooking): true,
		},
	},
	{
		Slug:              "easy",
		Name:              "Easy",
		SortOrder:         1,
		IsActive:          true,
		MonthlyPriceCents: 1900,
		YearlyPriceCents:  19000,
		Limits: billing.LimitMap{
			billing.ResourceStaff:        5,
			billing.ResourceServices:     25,
			billing.ResourceClients:      500,
			billing.ResourceAppointments: 200,
		},
		Features: billing.FeatureMap{
			string(billing.FeatureOnlineBooking): true,
			string(billing.FeatureSMSReminders):  true,
		},
	},
	{
		Slug:              "smart",
		Name:              "Smart",
		SortOrder:         2,
		IsActive:          true,
		MonthlyPriceCents: 4900,
		YearlyPriceCents:  49000,
		Limits: billing.LimitMap{
			billing.ResourceStaff:        15,
			billing.ResourceServices:     billing.Unlimited,
			billing.ResourceClients:      billing.Unlimited,
			billing.ResourceAppointments: 1000,
		},
		Features: billing.FeatureMap{
			string(billing.FeatureOnlineBooking):   true,
			string(billing.FeatureSMSReminders):    true,
			string(billing.FeatureCalendarSync):    true,
			string(billing.FeatureAdvancedReports): true,
		},
	},
	{
		Slug:              "premium",
		Name:              "Premium",
		SortOrder:         3,
		IsActive:          true,
		MonthlyPriceCents: 9900,
		YearlyPriceCents:  99000,
		Limits: billing.LimitMap{
			billing.ResourceStaff:        billing.Unlimited,
			billing.ResourceServices:     billing.Unlimited,
			billing.ResourceClients:      billing.Unlimited,
			billing.ResourceAppointments: billing.Unlimited,
		},
		Features: billing.FeatureMap{
			string(billing.FeatureOnlineBooking):     true,
			string(billing.FeatureSMSReminders):      true,
			string(billing.FeatureCalendarSync):      true,
			string(billing.FeatureAdvancedReports):   true,
			string(billing.FeatureMultipleLocations): true,
		},
	},
}

// SeedPlans inserts any missing default plans. Existing plans are left
// untouched so operator edits survive restarts.
func (a *App) SeedPlans() error {
	ctx := tenant.WithoutTenant(context.Background())
	for _, p := range defaultPlans {
		_, err := a.BillingRepo.GetPlanBySlug(ctx, p.Slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, billing.ErrPlanNotFound) {
			return err
		}
		if err := a.BillingRepo.CreatePlan(ctx, p); err != nil {
			return err
		}
		a.Logger.Info("seeded plan", zap.String("slug", p.Slug))
	}
	return nil
}
