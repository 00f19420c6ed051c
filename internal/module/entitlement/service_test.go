package entitlement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumastudio/server/internal/infra/events"
	"github.com/lumastudio/server/internal/model"
	"github.com/lumastudio/server/internal/shared/kvstore"
)

func newTestEntitlementService(t *testing.T, now time.Time) *Service {
	t.Helper()
	svc := NewService(NewRepository(kvstore.NewMemoryStore()), zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc
}

func TestGetStatusCreatesFreeStatusOnFirstUse(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	svc := newTestEntitlementService(t, now)

	st, err := svc.GetStatus(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.TierFree, st.Tier)
	assert.Equal(t, 0, st.GenerationsUsed)
	require.NotNil(t, st.GenerationsLimit)
	assert.Equal(t, FreeGenerationsPerMonth, *st.GenerationsLimit)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), st.ResetDate)
}

func TestConsumeGeneration(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	svc := newTestEntitlementService(t, now)
	ctx := context.Background()

	for i := 1; i <= FreeGenerationsPerMonth; i++ {
		st, err := svc.ConsumeGeneration(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, i, st.GenerationsUsed)
	}

	_, err := svc.ConsumeGeneration(ctx, "user-1")
	assert.ErrorIs(t, err, ErrGenerationLimitReached)

	// The failed attempt did not consume anything.
	st, err := svc.GetStatus(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, FreeGenerationsPerMonth, st.GenerationsUsed)
}

func TestConsumeGenerationAfterCycleRollover(t *testing.T) {
	march := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	svc := newTestEntitlementService(t, march)
	ctx := context.Background()

	for i := 0; i < FreeGenerationsPerMonth; i++ {
		_, err := svc.ConsumeGeneration(ctx, "user-1")
		require.NoError(t, err)
	}
	_, err := svc.ConsumeGeneration(ctx, "user-1")
	require.ErrorIs(t, err, ErrGenerationLimitReached)

	// The next month's first read rolls the cycle over lazily.
	svc.now = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 1, 0, time.UTC) }

	st, err := svc.ConsumeGeneration(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.GenerationsUsed)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), st.ResetDate)
}

func TestSetTier(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	svc := newTestEntitlementService(t, now)
	ctx := context.Background()

	// Burn some free quota, then upgrade.
	for i := 0; i < 5; i++ {
		_, err := svc.ConsumeGeneration(ctx, "user-1")
		require.NoError(t, err)
	}

	require.NoError(t, svc.SetTier(ctx, "user-1", model.TierPro))

	st, err := svc.GetStatus(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.TierPro, st.Tier)
	assert.Nil(t, st.GenerationsLimit)
	assert.True(t, CanGenerate(st))

	// Downgrade restores the free limit but keeps the cycle's usage, so
	// flapping tiers cannot mint extra quota.
	require.NoError(t, svc.SetTier(ctx, "user-1", model.TierFree))

	st, err = svc.GetStatus(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.TierFree, st.Tier)
	require.NotNil(t, st.GenerationsLimit)
	assert.Equal(t, FreeGenerationsPerMonth, *st.GenerationsLimit)
	assert.Equal(t, 5, st.GenerationsUsed)
}

func TestSetTierSameTierIsNoop(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	svc := newTestEntitlementService(t, now)
	ctx := context.Background()

	require.NoError(t, svc.SetTier(ctx, "user-1", model.TierFree))
	st, err := svc.GetStatus(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.TierFree, st.Tier)
}

func TestEventHandlerAppliesTierChange(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	svc := newTestEntitlementService(t, now)
	handler := NewEventHandler(svc, zap.NewNop())

	assert.Equal(t, []string{events.SubscriptionTierChangedType}, handler.Handles())

	evt := events.NewSubscriptionTierChangedEvent("user-1", model.TierFree, model.TierPro)
	require.NoError(t, handler.Handle(evt))

	st, err := svc.GetStatus(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.TierPro, st.Tier)
}
