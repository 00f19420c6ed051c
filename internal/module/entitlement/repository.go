package entitlement

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lumastudio/server/internal/model"
	"github.com/lumastudio/server/internal/shared/kvstore"
)

// Repository persists the subscription status as a whole aggregate.
type Repository interface {
	// GetStatus returns the user's status, or nil when none exists yet.
	GetStatus(ctx context.Context, userID string) (*model.SubscriptionStatus, error)

	// SaveStatus replaces the user's full status.
	SaveStatus(ctx context.Context, userID string, st *model.SubscriptionStatus) error
}

type kvRepository struct {
	store kvstore.Store
}

// NewRepository creates a key-value backed entitlement repository.
func NewRepository(store kvstore.Store) Repository {
	return &kvRepository{store: store}
}

func statusKey(userID string) string {
	return "subscription:status:" + userID
}

func (r *kvRepository) GetStatus(ctx context.Context, userID string) (*model.SubscriptionStatus, error) {
	raw, ok, err := r.store.Get(ctx, statusKey(userID))
	if err != nil {
		return nil, fmt.Errorf("load subscription status: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var st model.SubscriptionStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode subscription status: %w", err)
	}
	return &st, nil
}

func (r *kvRepository) SaveStatus(ctx context.Context, userID string, st *model.SubscriptionStatus) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode subscription status: %w", err)
	}
	if err := r.store.Set(ctx, statusKey(userID), raw); err != nil {
		return fmt.Errorf("save subscription status: %w", err)
	}
	return nil
}
