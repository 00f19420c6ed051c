package entitlement

import (
	"math"
	"time"

	"github.com/lumastudio/server/internal/model"
)

// upgradePromptThreshold is the usage percentage at which free users are
// nudged to upgrade.
const upgradePromptThreshold = 80

// NewStatusForTier returns a fresh subscription status for the tier, with
// usage zeroed and the reset date at the first instant of next month.
func NewStatusForTier(tier model.Tier, now time.Time) *model.SubscriptionStatus {
	st := &model.SubscriptionStatus{
		Tier:      tier,
		ResetDate: nextMonthStart(now),
	}
	if tier != model.TierPro {
		limit := FreeGenerationsPerMonth
		st.GenerationsLimit = &limit
	}
	return st
}

// CanGenerate reports whether the user may start another generation.
// Pro is always unlimited regardless of the stored limit.
func CanGenerate(st *model.SubscriptionStatus) bool {
	if st.Tier == model.TierPro {
		return true
	}
	return st.GenerationsUsed < limitOf(st)
}

// Remaining returns the generations left this cycle, or nil for unlimited.
func Remaining(st *model.SubscriptionStatus) *int {
	if st.Tier == model.TierPro {
		return nil
	}
	left := limitOf(st) - st.GenerationsUsed
	if left < 0 {
		left = 0
	}
	return &left
}

// UsagePercentage returns generation usage as a percentage of the limit,
// capped at 100. Unlimited tiers are always 0.
func UsagePercentage(st *model.SubscriptionStatus) int {
	if st.Tier == model.TierPro {
		return 0
	}
	limit := limitOf(st)
	if limit <= 0 {
		return 0
	}
	pct := int(math.Round(float64(st.GenerationsUsed) / float64(limit) * 100))
	if pct > 100 {
		return 100
	}
	return pct
}

// ShouldPromptUpgrade reports whether a free user is close enough to the
// quota that the upgrade prompt should show.
func ShouldPromptUpgrade(st *model.SubscriptionStatus) bool {
	if st.Tier != model.TierFree {
		return false
	}
	return UsagePercentage(st) >= upgradePromptThreshold
}

// ResetMonthlyUsage rolls the cycle over when the reset instant has passed:
// usage is zeroed and the reset date advances to the first instant of the
// following calendar month. Idempotent and safe to call on every read.
// Returns true when a rollover happened.
func ResetMonthlyUsage(st *model.SubscriptionStatus, now time.Time) bool {
	if now.Before(st.ResetDate) {
		return false
	}
	st.GenerationsUsed = 0
	st.ResetDate = nextMonthStart(now)
	return true
}

// limitOf returns the stored generation limit, defaulting to the free quota
// when unset.
func limitOf(st *model.SubscriptionStatus) int {
	if st.GenerationsLimit == nil {
		return FreeGenerationsPerMonth
	}
	return *st.GenerationsLimit
}

func nextMonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
}
