package spending

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lumastudio/server/internal/model"
	"github.com/lumastudio/server/internal/shared/kvstore"
)

// Repository persists the spending config as a whole aggregate.
type Repository interface {
	// GetConfig returns the user's config, or nil when none exists yet.
	GetConfig(ctx context.Context, userID string) (*model.SpendingLimitsConfig, error)

	// SaveConfig replaces the user's full config.
	SaveConfig(ctx context.Context, userID string, cfg *model.SpendingLimitsConfig) error
}

type kvRepository struct {
	store kvstore.Store
}

// NewRepository creates a key-value backed spending repository.
func NewRepository(store kvstore.Store) Repository {
	return &kvRepository{store: store}
}

func configKey(userID string) string {
	return "spending:config:" + userID
}

func (r *kvRepository) GetConfig(ctx context.Context, userID string) (*model.SpendingLimitsConfig, error) {
	raw, ok, err := r.store.Get(ctx, configKey(userID))
	if err != nil {
		return nil, fmt.Errorf("load spending config: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var cfg model.SpendingLimitsConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode spending config: %w", err)
	}
	return &cfg, nil
}

func (r *kvRepository) SaveConfig(ctx context.Context, userID string, cfg *model.SpendingLimitsConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode spending config: %w", err)
	}
	if err := r.store.Set(ctx, configKey(userID), raw); err != nil {
		return fmt.Errorf("save spending config: %w", err)
	}
	return nil
}
