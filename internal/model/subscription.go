package model

import (
	"time"
)

// Tier represents the entitlement class of a user.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// String returns the string representation of the tier.
func (t Tier) String() string {
	return string(t)
}

// IsValid checks if the tier is valid.
func (t Tier) IsValid() bool {
	return t == TierFree || t == TierPro
}

// SubscriptionState represents the provider-side status of a subscription.
type SubscriptionState string

const (
	SubscriptionStateActive     SubscriptionState = "active"
	SubscriptionStateCanceled   SubscriptionState = "canceled"
	SubscriptionStatePastDue    SubscriptionState = "past_due"
	SubscriptionStateTrialing   SubscriptionState = "trialing"
	SubscriptionStateIncomplete SubscriptionState = "incomplete"
)

// String returns the string representation of the state.
func (s SubscriptionState) String() string {
	return string(s)
}

// IsValid checks if the state is valid.
func (s SubscriptionState) IsValid() bool {
	switch s {
	case SubscriptionStateActive, SubscriptionStateCanceled, SubscriptionStatePastDue,
		SubscriptionStateTrialing, SubscriptionStateIncomplete:
		return true
	}
	return false
}

// IsEntitled returns true if the state grants paid entitlement.
func (s SubscriptionState) IsEntitled() bool {
	return s == SubscriptionStateActive || s == SubscriptionStateTrialing
}

// SubscriptionStatus is the usage-facing view of a user's subscription:
// tier, generation usage for the current cycle, and the rollover instant.
// GenerationsLimit nil means unlimited; pro is always treated as unlimited
// regardless of the stored value.
type SubscriptionStatus struct {
	Tier             Tier      `json:"tier"`
	GenerationsUsed  int       `json:"generations_used"`
	GenerationsLimit *int      `json:"generations_limit,omitempty"`
	ResetDate        time.Time `json:"reset_date"`
}

// Subscription is the billing-provider view of a customer's subscription.
// One record per paying customer, superseded wholesale on every billing event.
type Subscription struct {
	ID                string            `json:"id"`
	Status            SubscriptionState `json:"status"`
	CurrentPeriodEnd  time.Time         `json:"current_period_end"`
	CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
	PriceID           string            `json:"price_id"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Entitlement is the derived set of quota and feature flags for a tier.
// GenerationsPerMonth -1 means unlimited.
type Entitlement struct {
	GenerationsPerMonth int  `json:"generations_per_month"`
	MaxReferenceImages  int  `json:"max_reference_images"`
	VideoGeneration     bool `json:"video_generation"`
	HDExport            bool `json:"hd_export"`
	BackgroundRemoval   bool `json:"background_removal"`
	AdvancedEditing     bool `json:"advanced_editing"`
	ProFilters          bool `json:"pro_filters"`
}

// IsUnlimitedGenerations returns true if the entitlement has no generation cap.
func (e Entitlement) IsUnlimitedGenerations() bool {
	return e.GenerationsPerMonth == -1
}
