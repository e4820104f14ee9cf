package billing

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/salonhub/server/internal/module/tenant"
)

// SchedulerConfig controls the background billing sweeps.
type SchedulerConfig struct {
	Enabled       bool
	SweepSchedule string
}

// Scheduler runs periodic billing maintenance: expiring lapsed trials,
// applying scheduled downgrades and finalizing ended cancellations. Sweeps
// operate across all tenants, so they run without a tenant context.
type Scheduler struct {
	service *Service
	cron    *cron.Cron
	config  SchedulerConfig
	logger  *zap.Logger
}

// NewScheduler creates the billing sweep scheduler.
func NewScheduler(service *Service, config SchedulerConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		service: service,
		cron:    cron.New(),
		config:  config,
		logger:  logger,
	}
}

// Start registers the sweep jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		s.logger.Info("billing scheduler disabled")
		return nil
	}
	schedule := s.config.SweepSchedule
	if schedule == "" {
		schedule = "@hourly"
	}
	if _, err := s.cron.AddFunc(schedule, s.Sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("billing scheduler started", zap.String("schedule", schedule))
	return nil
}

// Stop stops the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep runs one maintenance pass.
func (s *Scheduler) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = tenant.WithoutTenant(ctx)

	now := time.Now()

	expired, err := s.service.ExpireTrials(ctx, now)
	if err != nil {
		s.logger.Error("trial expiry sweep failed", zap.Error(err))
	} else if expired > 0 {
		s.logger.Info("trial expiry sweep", zap.Int("expired", expired))
	}

	applied, err := s.service.ApplyDueChanges(ctx, now)
	if err != nil {
		s.logger.Error("scheduled change sweep failed", zap.Error(err))
	} else if applied > 0 {
		s.logger.Info("scheduled change sweep", zap.Int("applied", applied))
	}
}
