package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lumastudio/server/internal/model"
	"github.com/lumastudio/server/internal/shared/kvstore"
	"gorm.io/gorm"
)

// Repository persists the per-customer subscription record plus the webhook
// event log used for idempotency.
type Repository interface {
	// GetSubscription returns the user's subscription, or nil when the user
	// has never checked out.
	GetSubscription(ctx context.Context, userID string) (*model.Subscription, error)

	// SaveSubscription replaces the user's subscription record wholesale.
	SaveSubscription(ctx context.Context, userID string, sub *model.Subscription) error

	WebhookEventExists(ctx context.Context, eventID string) (bool, error)
	CreateWebhookEvent(ctx context.Context, eventID, eventType, payload string) error
	MarkWebhookEventProcessed(ctx context.Context, eventID string, processErr error) error
}

type repository struct {
	store kvstore.Store
	db    *gorm.DB
}

// NewRepository creates a billing repository over the key-value store and the
// relational webhook event log.
func NewRepository(store kvstore.Store, db *gorm.DB) Repository {
	return &repository{store: store, db: db}
}

func subscriptionKey(userID string) string {
	return "billing:subscription:" + userID
}

func (r *repository) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	raw, ok, err := r.store.Get(ctx, subscriptionKey(userID))
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var sub model.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}
	return &sub, nil
}

func (r *repository) SaveSubscription(ctx context.Context, userID string, sub *model.Subscription) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode subscription: %w", err)
	}
	if err := r.store.Set(ctx, subscriptionKey(userID), raw); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

func (r *repository) WebhookEventExists(ctx context.Context, eventID string) (bool, error) {
	var event model.WebhookEvent
	err := r.db.WithContext(ctx).Where("id = ?", eventID).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check webhook event: %w", err)
	}
	return true, nil
}

func (r *repository) CreateWebhookEvent(ctx context.Context, eventID, eventType, payload string) error {
	event := model.WebhookEvent{
		ID:        eventID,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("create webhook event: %w", err)
	}
	return nil
}

func (r *repository) MarkWebhookEventProcessed(ctx context.Context, eventID string, processErr error) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at": &now,
	}
	if processErr != nil {
		updates["error"] = processErr.Error()
	}
	if err := r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("id = ?", eventID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}
	return nil
}
