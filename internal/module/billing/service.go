package billing

import (
	"context"
	"errors"
	"time"

	"github.com/lumastudio/server/internal/infra/events"
	"github.com/lumastudio/server/internal/model"
	"github.com/lumastudio/server/internal/shared/metrics"
	"go.uber.org/zap"
)

// Publisher publishes domain events.
type Publisher interface {
	Publish(event events.Event)
}

// ServiceInterface defines the billing service operations.
type ServiceInterface interface {
	ProcessEvent(ctx context.Context, evt *model.BillingEvent) error
	GetSubscription(ctx context.Context, userID string) (*model.Subscription, error)

	WebhookEventExists(ctx context.Context, eventID string) (bool, error)
	RecordWebhookEvent(ctx context.Context, eventID, eventType, payload string) error
	MarkWebhookEventProcessed(ctx context.Context, eventID string, processErr error) error
}

// Service applies billing event decisions to stored subscription state and
// announces tier changes on the event bus.
type Service struct {
	repo      Repository
	processor *Processor
	bus       Publisher
	logger    *zap.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewService creates a new billing service.
func NewService(repo Repository, processor *Processor, bus Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		processor: processor,
		bus:       bus,
		logger:    logger,
		now:       time.Now,
	}
}

// Compile-time interface check.
var _ ServiceInterface = (*Service)(nil)

// ProcessEvent runs one billing event through the processor and applies the
// resulting patch. Replaying the same event converges on the same stored
// subscription record.
func (s *Service) ProcessEvent(ctx context.Context, evt *model.BillingEvent) error {
	decision, err := s.processor.Process(evt)
	if err != nil {
		metrics.RecordBillingEvent(evt.Type.String(), false)
		if errors.Is(err, ErrMissingUserID) {
			s.logger.Warn("billing event skipped",
				zap.String("event_id", evt.ID),
				zap.String("type", evt.Type.String()),
				zap.Error(err),
			)
		}
		return err
	}

	if decision.Patch == nil {
		metrics.RecordBillingEvent(evt.Type.String(), true)
		return nil
	}

	if err := s.apply(ctx, decision.UserID, decision.Patch); err != nil {
		metrics.RecordBillingEvent(evt.Type.String(), false)
		return err
	}

	metrics.RecordBillingEvent(evt.Type.String(), true)
	return nil
}

// apply supersedes the stored subscription with the patch and publishes a
// tier change when the derived tier moved. Zero-valued patch fields carry the
// stored values forward: invoice-driven patches only know the new status.
func (s *Service) apply(ctx context.Context, userID string, patch *model.SubscriptionPatch) error {
	existing, err := s.repo.GetSubscription(ctx, userID)
	if err != nil {
		return err
	}

	sub := &model.Subscription{
		ID:                patch.SubscriptionID,
		Status:            patch.Status,
		CurrentPeriodEnd:  patch.CurrentPeriodEnd,
		CancelAtPeriodEnd: patch.CancelAtPeriodEnd,
		PriceID:           patch.PriceID,
		UpdatedAt:         s.now(),
	}
	if existing != nil {
		if sub.ID == "" {
			sub.ID = existing.ID
		}
		if sub.CurrentPeriodEnd.IsZero() {
			sub.CurrentPeriodEnd = existing.CurrentPeriodEnd
		}
		if sub.PriceID == "" {
			sub.PriceID = existing.PriceID
		}
	}

	if err := s.repo.SaveSubscription(ctx, userID, sub); err != nil {
		return err
	}

	oldTier := tierOf(existing)
	newTier := tierOf(sub)
	s.logger.Info("subscription updated",
		zap.String("user_id", userID),
		zap.String("subscription_id", sub.ID),
		zap.String("status", sub.Status.String()),
		zap.Time("current_period_end", sub.CurrentPeriodEnd),
	)

	if oldTier != newTier {
		s.bus.Publish(events.NewSubscriptionTierChangedEvent(userID, oldTier, newTier))
	}
	return nil
}

// GetSubscription returns the user's billing-provider subscription record.
func (s *Service) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	return s.repo.GetSubscription(ctx, userID)
}

func (s *Service) WebhookEventExists(ctx context.Context, eventID string) (bool, error) {
	return s.repo.WebhookEventExists(ctx, eventID)
}

func (s *Service) RecordWebhookEvent(ctx context.Context, eventID, eventType, payload string) error {
	return s.repo.CreateWebhookEvent(ctx, eventID, eventType, payload)
}

func (s *Service) MarkWebhookEventProcessed(ctx context.Context, eventID string, processErr error) error {
	return s.repo.MarkWebhookEventProcessed(ctx, eventID, processErr)
}

// tierOf derives the entitlement tier from a stored subscription. Only an
// entitled status with a price attached counts as paid.
func tierOf(sub *model.Subscription) model.Tier {
	if sub == nil {
		return model.TierFree
	}
	if sub.Status.IsEntitled() && sub.PriceID != "" {
		return model.TierPro
	}
	return model.TierFree
}
