package tenant

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/salonhub/server/internal/shared/metrics"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SubscriptionStarter attaches the default (free) subscription to a freshly
// onboarded tenant. Implemented by the billing module.
type SubscriptionStarter interface {
	StartDefault(ctx context.Context, t *Tenant) error
}

// OnboardRequest carries everything needed to register a new business.
type OnboardRequest struct {
	Name          string
	Slug          string
	BusinessType  BusinessType
	Address       string
	Phone         string
	Timezone      string
	OwnerName     string
	OwnerEmail    string
	OwnerPassword string
}

// Service implements tenant operations.
type Service struct {
	repo    Repository
	db      *gorm.DB
	starter SubscriptionStarter
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService creates a new tenant service.
func NewService(repo Repository, db *gorm.DB, starter SubscriptionStarter, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		db:      db,
		starter: starter,
		metrics: m,
		logger:  logger,
	}
}

// Onboard registers a new tenant with its owner user, then attaches the
// default free subscription. Tenant and owner are created atomically; the
// subscription attach runs after commit and is retryable on failure.
func (s *Service) Onboard(ctx context.Context, req OnboardRequest) (*Tenant, error) {
	if req.BusinessType == "" {
		req.BusinessType = BusinessTypeSalon
	}
	if !req.BusinessType.IsValid() {
		return nil, fmt.Errorf("invalid business type %q", req.BusinessType)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.OwnerPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	t := &Tenant{
		ID:           uuid.New(),
		Name:         req.Name,
		Slug:         normalizeSlug(req.Slug),
		BusinessType: req.BusinessType,
		Address:      req.Address,
		Phone:        req.Phone,
		Email:        strings.ToLower(req.OwnerEmail),
		Timezone:     req.Timezone,
		Settings:     Settings{},
	}
	if t.Timezone == "" {
		t.Timezone = "UTC"
	}

	owner := &User{
		ID:           uuid.New(),
		TenantID:     t.ID,
		Email:        strings.ToLower(req.OwnerEmail),
		Name:         req.OwnerName,
		PasswordHash: string(hash),
		Role:         UserRoleOwner,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := NewRepository(tx)
		if err := txRepo.CreateTenant(ctx, t); err != nil {
			return err
		}
		return txRepo.CreateUser(ctx, owner)
	})
	if err != nil {
		return nil, err
	}

	if err := s.starter.StartDefault(ctx, t); err != nil {
		s.logger.Error("failed to attach default subscription",
			zap.String("tenant_id", t.ID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("attach default subscription: %w", err)
	}

	s.metrics.TenantsOnboardedTotal.Inc()
	s.logger.Info("tenant onboarded",
		zap.String("tenant_id", t.ID.String()),
		zap.String("slug", t.Slug),
	)

	return t, nil
}

// UpdateSettings merges the given settings into the tenant's settings map.
func (s *Service) UpdateSettings(ctx context.Context, tenantID uuid.UUID, settings Settings) (*Tenant, error) {
	t, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t.Settings == nil {
		t.Settings = Settings{}
	}
	for k, v := range settings {
		t.Settings[k] = v
	}
	if err := s.repo.UpdateTenant(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// LookupClientByPhone resolves a client by phone for a caller-supplied tenant.
func (s *Service) LookupClientByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*Client, error) {
	return s.repo.FindClientByPhone(ctx, tenantID, phone)
}

func normalizeSlug(slug string) string {
	slug = strings.ToLower(strings.TrimSpace(slug))
	return strings.ReplaceAll(slug, " ", "-")
}
