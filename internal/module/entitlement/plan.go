package entitlement

import (
	"github.com/lumastudio/server/internal/model"
)

// Free tier quota constants.
const (
	FreeGenerationsPerMonth = 10
	FreeReferenceImages     = 3
	ProReferenceImages      = 5
)

// Unlimited is the sentinel for an uncapped quota.
const Unlimited = -1

var tierEntitlements = map[model.Tier]model.Entitlement{
	model.TierFree: {
		GenerationsPerMonth: FreeGenerationsPerMonth,
		MaxReferenceImages:  FreeReferenceImages,
	},
	model.TierPro: {
		GenerationsPerMonth: Unlimited,
		MaxReferenceImages:  ProReferenceImages,
		VideoGeneration:     true,
		HDExport:            true,
		BackgroundRemoval:   true,
		AdvancedEditing:     true,
		ProFilters:          true,
	},
}

// ForTier returns the fixed entitlement for a tier. Unknown tiers map to free.
func ForTier(tier model.Tier) model.Entitlement {
	if e, ok := tierEntitlements[tier]; ok {
		return e
	}
	return tierEntitlements[model.TierFree]
}
