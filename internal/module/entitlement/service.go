package entitlement

import (
	"context"
	"time"

	"github.com/lumastudio/server/internal/model"
	"github.com/lumastudio/server/internal/shared/metrics"
	"go.uber.org/zap"
)

// ServiceInterface defines the entitlement service operations.
type ServiceInterface interface {
	GetStatus(ctx context.Context, userID string) (*model.SubscriptionStatus, error)
	ConsumeGeneration(ctx context.Context, userID string) (*model.SubscriptionStatus, error)
	SetTier(ctx context.Context, userID string, tier model.Tier) error
}

// Service owns the usage-facing subscription state. Every read runs the lazy
// monthly rollover first, so callers never see a stale cycle.
type Service struct {
	repo   Repository
	logger *zap.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewService creates a new entitlement service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Compile-time interface check.
var _ ServiceInterface = (*Service)(nil)

// loadStatus fetches the user's status, creating a free-tier one on first
// use, and rolls the cycle over when due.
func (s *Service) loadStatus(ctx context.Context, userID string, now time.Time) (*model.SubscriptionStatus, bool, error) {
	st, err := s.repo.GetStatus(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	created := false
	if st == nil {
		st = NewStatusForTier(model.TierFree, now)
		created = true
	}
	rolled := ResetMonthlyUsage(st, now)
	return st, created || rolled, nil
}

// GetStatus returns the user's current subscription status.
func (s *Service) GetStatus(ctx context.Context, userID string) (*model.SubscriptionStatus, error) {
	st, dirty, err := s.loadStatus(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	if dirty {
		if err := s.repo.SaveStatus(ctx, userID, st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// ConsumeGeneration records one generation against the user's quota.
func (s *Service) ConsumeGeneration(ctx context.Context, userID string) (*model.SubscriptionStatus, error) {
	st, _, err := s.loadStatus(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}

	if !CanGenerate(st) {
		return nil, ErrGenerationLimitReached
	}

	st.GenerationsUsed++
	if err := s.repo.SaveStatus(ctx, userID, st); err != nil {
		return nil, err
	}
	metrics.RecordGeneration(st.Tier.String())

	s.logger.Debug("generation consumed",
		zap.String("user_id", userID),
		zap.String("tier", st.Tier.String()),
		zap.Int("generations_used", st.GenerationsUsed),
	)

	return st, nil
}

// SetTier rewrites the status for a new tier. Usage carries over so a
// downgrade cannot be used to dodge the free quota mid-cycle.
func (s *Service) SetTier(ctx context.Context, userID string, tier model.Tier) error {
	now := s.now()
	st, _, err := s.loadStatus(ctx, userID, now)
	if err != nil {
		return err
	}
	if st.Tier == tier {
		return nil
	}

	st.Tier = tier
	if tier == model.TierPro {
		st.GenerationsLimit = nil
	} else {
		limit := FreeGenerationsPerMonth
		st.GenerationsLimit = &limit
	}

	if err := s.repo.SaveStatus(ctx, userID, st); err != nil {
		return err
	}

	s.logger.Info("subscription tier changed",
		zap.String("user_id", userID),
		zap.String("tier", tier.String()),
	)
	return nil
}
