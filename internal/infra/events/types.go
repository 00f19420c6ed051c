package events

import (
	"github.com/google/uuid"
	"github.com/lumastudio/server/internal/model"
)

// Domain event type constants.
const (
	SpendingAlertFiredType      = "SpendingAlertFired"
	SubscriptionTierChangedType = "SubscriptionTierChanged"
)

// SpendingAlertFiredEvent is emitted when a spending alert's threshold and
// throttle both allow it to fire during a transaction.
type SpendingAlertFiredEvent struct {
	BaseEvent

	// AlertID is the identifier of the alert that fired.
	AlertID uuid.UUID `json:"alert_id"`

	// AlertName is the alert's human label.
	AlertName string `json:"alert_name"`

	// Amount is the spend amount (cents) that triggered the evaluation.
	Amount int64 `json:"amount"`

	// Channels is the delivery channel set configured on the alert.
	Channels []string `json:"channels"`
}

// NewSpendingAlertFiredEvent creates a new SpendingAlertFiredEvent.
func NewSpendingAlertFiredEvent(userID string, alert model.SpendingAlert, amount int64) *SpendingAlertFiredEvent {
	return &SpendingAlertFiredEvent{
		BaseEvent: NewBaseEvent(SpendingAlertFiredType, userID),
		AlertID:   alert.ID,
		AlertName: alert.Name,
		Amount:    amount,
		Channels:  alert.Channels,
	}
}

// SubscriptionTierChangedEvent is emitted when a billing event moves a user
// to a different entitlement tier.
type SubscriptionTierChangedEvent struct {
	BaseEvent

	// OldTier is the tier before the change.
	OldTier model.Tier `json:"old_tier"`

	// NewTier is the tier after the change.
	NewTier model.Tier `json:"new_tier"`
}

// NewSubscriptionTierChangedEvent creates a new SubscriptionTierChangedEvent.
func NewSubscriptionTierChangedEvent(userID string, oldTier, newTier model.Tier) *SubscriptionTierChangedEvent {
	return &SubscriptionTierChangedEvent{
		BaseEvent: NewBaseEvent(SubscriptionTierChangedType, userID),
		OldTier:   oldTier,
		NewTier:   newTier,
	}
}
