package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumastudio/server/internal/model"
)

func TestNewStatusForTier(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

	free := NewStatusForTier(model.TierFree, now)
	require.NotNil(t, free.GenerationsLimit)
	assert.Equal(t, FreeGenerationsPerMonth, *free.GenerationsLimit)
	assert.Equal(t, 0, free.GenerationsUsed)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), free.ResetDate)

	pro := NewStatusForTier(model.TierPro, now)
	assert.Nil(t, pro.GenerationsLimit)
}

// Scenario: a free user at the quota cannot generate; once the reset date
// passes, usage zeroes and generation is allowed again.
func TestQuotaExhaustionAndMonthlyReset(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	st := NewStatusForTier(model.TierFree, now)
	st.GenerationsUsed = FreeGenerationsPerMonth

	assert.False(t, CanGenerate(st))

	// Before the reset instant nothing changes.
	assert.False(t, ResetMonthlyUsage(st, st.ResetDate.Add(-time.Second)))
	assert.Equal(t, FreeGenerationsPerMonth, st.GenerationsUsed)

	// At the reset instant the cycle rolls over.
	atReset := st.ResetDate
	require.True(t, ResetMonthlyUsage(st, atReset))
	assert.Equal(t, 0, st.GenerationsUsed)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), st.ResetDate)
	assert.True(t, CanGenerate(st))

	// Idempotent within the new cycle.
	assert.False(t, ResetMonthlyUsage(st, atReset))
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), st.ResetDate)
}

func TestResetMonthlyUsageAfterLongGap(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	st := NewStatusForTier(model.TierFree, now)
	st.GenerationsUsed = 7

	// First read months later lands in the then-current cycle.
	later := time.Date(2024, 9, 20, 8, 0, 0, 0, time.UTC)
	require.True(t, ResetMonthlyUsage(st, later))
	assert.Equal(t, 0, st.GenerationsUsed)
	assert.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), st.ResetDate)
}

func TestCanGenerate(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

	t.Run("free under quota", func(t *testing.T) {
		st := NewStatusForTier(model.TierFree, now)
		st.GenerationsUsed = FreeGenerationsPerMonth - 1
		assert.True(t, CanGenerate(st))
	})

	t.Run("pro ignores any stored limit", func(t *testing.T) {
		st := NewStatusForTier(model.TierPro, now)
		limit := 5
		st.GenerationsLimit = &limit
		st.GenerationsUsed = 1000
		assert.True(t, CanGenerate(st))
	})

	t.Run("free with missing limit defaults to the free quota", func(t *testing.T) {
		st := &model.SubscriptionStatus{Tier: model.TierFree, GenerationsUsed: 9}
		assert.True(t, CanGenerate(st))
		st.GenerationsUsed = 10
		assert.False(t, CanGenerate(st))
	})
}

func TestRemaining(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

	st := NewStatusForTier(model.TierFree, now)
	st.GenerationsUsed = 4
	left := Remaining(st)
	require.NotNil(t, left)
	assert.Equal(t, 6, *left)

	// Never negative, even if usage overshot the limit somehow.
	st.GenerationsUsed = 15
	left = Remaining(st)
	require.NotNil(t, left)
	assert.Equal(t, 0, *left)

	assert.Nil(t, Remaining(NewStatusForTier(model.TierPro, now)))
}

func TestShouldPromptUpgrade(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	st := NewStatusForTier(model.TierFree, now)

	st.GenerationsUsed = 7
	assert.False(t, ShouldPromptUpgrade(st))
	st.GenerationsUsed = 8
	assert.True(t, ShouldPromptUpgrade(st))
	st.GenerationsUsed = 10
	assert.True(t, ShouldPromptUpgrade(st))

	pro := NewStatusForTier(model.TierPro, now)
	pro.GenerationsUsed = 1000
	assert.False(t, ShouldPromptUpgrade(pro))
}

func TestUsagePercentage(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	st := NewStatusForTier(model.TierFree, now)

	st.GenerationsUsed = 0
	assert.Equal(t, 0, UsagePercentage(st))
	st.GenerationsUsed = 5
	assert.Equal(t, 50, UsagePercentage(st))
	st.GenerationsUsed = 25
	assert.Equal(t, 100, UsagePercentage(st))

	assert.Equal(t, 0, UsagePercentage(NewStatusForTier(model.TierPro, now)))
}

func TestForTier(t *testing.T) {
	free := ForTier(model.TierFree)
	assert.Equal(t, FreeGenerationsPerMonth, free.GenerationsPerMonth)
	assert.Equal(t, FreeReferenceImages, free.MaxReferenceImages)
	assert.False(t, free.VideoGeneration)
	assert.False(t, free.IsUnlimitedGenerations())

	pro := ForTier(model.TierPro)
	assert.True(t, pro.IsUnlimitedGenerations())
	assert.Equal(t, ProReferenceImages, pro.MaxReferenceImages)
	assert.True(t, pro.VideoGeneration)
	assert.True(t, pro.HDExport)

	// Unknown tiers degrade to free.
	assert.Equal(t, free, ForTier(model.Tier("enterprise")))
}
