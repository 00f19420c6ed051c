package spending

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lumastudio/server/internal/infra/events"
	"github.com/lumastudio/server/internal/model"
	"github.com/lumastudio/server/internal/shared/metrics"
	"go.uber.org/zap"
)

// Publisher publishes domain events.
type Publisher interface {
	Publish(event events.Event)
}

// ServiceInterface defines the spending service operations.
type ServiceInterface interface {
	GetConfig(ctx context.Context, userID string) (*model.SpendingLimitsConfig, error)
	CreateLimit(ctx context.Context, userID string, amount int64, period model.LimitPeriod, blockOnExceed bool) (*model.SpendingLimit, error)
	SetLimitEnabled(ctx context.Context, userID string, limitID uuid.UUID, enabled bool) error
	AddAlert(ctx context.Context, userID string, limitID *uuid.UUID, alert model.SpendingAlert) (*model.SpendingAlert, error)
	AddTransaction(ctx context.Context, userID string, amount int64, description string, category model.SpendCategory) (*model.SpendingLimitsConfig, []model.SpendingAlert, error)
	CanSpend(ctx context.Context, userID string, amount int64) (SpendCheck, error)
	SetNotificationsEnabled(ctx context.Context, userID string, enabled bool) error
}

// Service orchestrates the spending limit engine over the aggregate store.
// Every operation loads the full config, runs the lazy window reset, applies
// the mutation, and saves the whole aggregate back.
type Service struct {
	repo   Repository
	bus    Publisher
	logger *zap.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewService creates a new spending service.
func NewService(repo Repository, bus Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// Compile-time interface check.
var _ ServiceInterface = (*Service)(nil)

// loadConfig fetches the user's config, creating an empty one on first use,
// and expires any stale windows before the caller reads or mutates it.
func (s *Service) loadConfig(ctx context.Context, userID string, now time.Time) (*model.SpendingLimitsConfig, error) {
	cfg, err := s.repo.GetConfig(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = model.NewSpendingLimitsConfig(now)
	}
	CheckAndResetAll(cfg, now)
	return cfg, nil
}

// GetConfig returns the user's spending config with fresh windows.
func (s *Service) GetConfig(ctx context.Context, userID string) (*model.SpendingLimitsConfig, error) {
	now := s.now()
	cfg, err := s.loadConfig(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveConfig(ctx, userID, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CreateLimit adds a new limit to the user's config.
func (s *Service) CreateLimit(ctx context.Context, userID string, amount int64, period model.LimitPeriod, blockOnExceed bool) (*model.SpendingLimit, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !period.IsValid() {
		return nil, ErrInvalidPeriod
	}

	now := s.now()
	cfg, err := s.loadConfig(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	limit := NewLimit(amount, period, blockOnExceed, now)
	cfg.Limits = append(cfg.Limits, limit)
	cfg.UpdatedAt = now

	if err := s.repo.SaveConfig(ctx, userID, cfg); err != nil {
		return nil, err
	}

	s.logger.Info("spending limit created",
		zap.String("user_id", userID),
		zap.String("limit_id", limit.ID.String()),
		zap.Int64("amount", amount),
		zap.String("period", period.String()),
		zap.Bool("block_on_exceed", blockOnExceed),
	)

	return &limit, nil
}

// SetLimitEnabled enables or disables a limit.
func (s *Service) SetLimitEnabled(ctx context.Context, userID string, limitID uuid.UUID, enabled bool) error {
	now := s.now()
	cfg, err := s.loadConfig(ctx, userID, now)
	if err != nil {
		return err
	}

	found := false
	for i := range cfg.Limits {
		if cfg.Limits[i].ID == limitID {
			cfg.Limits[i].Enabled = enabled
			found = true
			break
		}
	}
	if !found {
		return ErrLimitNotFound
	}

	cfg.UpdatedAt = now
	return s.repo.SaveConfig(ctx, userID, cfg)
}

// AddAlert attaches an alert to a limit, or to the config globally when
// limitID is nil.
func (s *Service) AddAlert(ctx context.Context, userID string, limitID *uuid.UUID, alert model.SpendingAlert) (*model.SpendingAlert, error) {
	now := s.now()
	cfg, err := s.loadConfig(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	alert.ID = uuid.New()
	alert.LastTriggered = nil
	alert.TriggerCount = 0
	if !alert.Frequency.IsValid() {
		alert.Frequency = model.AlertFrequencyAlways
	}

	if limitID == nil {
		cfg.GlobalAlerts = append(cfg.GlobalAlerts, alert)
	} else {
		found := false
		for i := range cfg.Limits {
			if cfg.Limits[i].ID == *limitID {
				cfg.Limits[i].Alerts = append(cfg.Limits[i].Alerts, alert)
				found = true
				break
			}
		}
		if !found {
			return nil, ErrLimitNotFound
		}
	}

	cfg.UpdatedAt = now
	if err := s.repo.SaveConfig(ctx, userID, cfg); err != nil {
		return nil, err
	}
	return &alert, nil
}

// AddTransaction records a spend event. The attempt is rejected wholesale
// with ErrLimitBlocked when a blocking limit would be pushed past its cap;
// otherwise the config is updated and the alerts that fired are returned and
// published.
func (s *Service) AddTransaction(ctx context.Context, userID string, amount int64, description string, category model.SpendCategory) (*model.SpendingLimitsConfig, []model.SpendingAlert, error) {
	if amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	if !category.IsValid() {
		return nil, nil, ErrInvalidCategory
	}

	now := s.now()
	cfg, err := s.loadConfig(ctx, userID, now)
	if err != nil {
		return nil, nil, err
	}

	if check := CanSpend(cfg.Limits, amount); !check.Allowed {
		metrics.RecordSpendingBlocked()
		return nil, nil, fmt.Errorf("%w: %s", ErrLimitBlocked, check.Reason)
	}

	fired := AddTransaction(cfg, amount, description, category, now)
	metrics.RecordSpend(string(category), amount)

	if err := s.repo.SaveConfig(ctx, userID, cfg); err != nil {
		return nil, nil, err
	}

	if cfg.NotificationsEnabled {
		for _, alert := range fired {
			metrics.RecordSpendingAlert(alert.Frequency.String())
			s.bus.Publish(events.NewSpendingAlertFiredEvent(userID, alert, amount))
		}
	}

	s.logger.Info("spending transaction recorded",
		zap.String("user_id", userID),
		zap.Int64("amount", amount),
		zap.String("category", string(category)),
		zap.Int("alerts_fired", len(fired)),
	)

	return cfg, fired, nil
}

// CanSpend checks whether the given amount would pass every enabled
// blocking limit, without recording anything.
func (s *Service) CanSpend(ctx context.Context, userID string, amount int64) (SpendCheck, error) {
	now := s.now()
	cfg, err := s.loadConfig(ctx, userID, now)
	if err != nil {
		return SpendCheck{}, err
	}
	return CanSpend(cfg.Limits, amount), nil
}

// SetNotificationsEnabled flips the config-wide notification switch.
func (s *Service) SetNotificationsEnabled(ctx context.Context, userID string, enabled bool) error {
	now := s.now()
	cfg, err := s.loadConfig(ctx, userID, now)
	if err != nil {
		return err
	}
	cfg.NotificationsEnabled = enabled
	cfg.UpdatedAt = now
	return s.repo.SaveConfig(ctx, userID, cfg)
}
