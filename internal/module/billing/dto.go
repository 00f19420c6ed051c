package billing

import "github.com/lumastudio/server/internal/model"

// CheckoutRequest starts a simulated checkout for a price.
type CheckoutRequest struct {
	PriceID string `json:"price_id" binding:"required"`
}

// CheckoutResponse is the API view of a started checkout.
type CheckoutResponse struct {
	SessionID    string              `json:"session_id"`
	URL          string              `json:"url"`
	Subscription *model.Subscription `json:"subscription,omitempty"`
}

// SubscriptionResponse wraps the stored subscription record.
type SubscriptionResponse struct {
	Subscription *model.Subscription `json:"subscription"`
}
