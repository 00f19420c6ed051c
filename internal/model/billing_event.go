package model

import (
	"time"
)

// BillingEventType identifies the kind of inbound billing event.
type BillingEventType string

const (
	EventCheckoutCompleted      BillingEventType = "checkout.session.completed"
	EventSubscriptionCreated    BillingEventType = "customer.subscription.created"
	EventSubscriptionUpdated    BillingEventType = "customer.subscription.updated"
	EventSubscriptionDeleted    BillingEventType = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded BillingEventType = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    BillingEventType = "invoice.payment_failed"
)

// String returns the string representation of the event type.
func (t BillingEventType) String() string {
	return string(t)
}

// CheckoutSessionPayload carries the fields of a completed checkout session
// that the processor needs. Provider fields outside this set are dropped at
// the boundary.
type CheckoutSessionPayload struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
	SubscriptionID    string            `json:"subscription"`
	PriceID           string            `json:"price_id"`
}

// SubscriptionPayload carries the provider view of a subscription as shipped
// inside subscription lifecycle events. CurrentPeriodEnd is epoch seconds.
type SubscriptionPayload struct {
	ID                string            `json:"id"`
	Metadata          map[string]string `json:"metadata"`
	Status            string            `json:"status"`
	CurrentPeriodEnd  int64             `json:"current_period_end"`
	CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
	PriceID           string            `json:"price_id"`
}

// InvoicePayload carries the fields of an invoice event.
type InvoicePayload struct {
	ID             string            `json:"id"`
	Metadata       map[string]string `json:"metadata"`
	SubscriptionID string            `json:"subscription"`
	AmountDue      int64             `json:"amount_due"`
}

// BillingEvent is a closed tagged union over the billing events this system
// understands. Exactly one payload field is set, matching Type; events are
// transient inputs and never stored.
type BillingEvent struct {
	ID      string           `json:"id"`
	Type    BillingEventType `json:"type"`
	Created int64            `json:"created"`

	Checkout     *CheckoutSessionPayload `json:"checkout,omitempty"`
	Subscription *SubscriptionPayload    `json:"subscription,omitempty"`
	Invoice      *InvoicePayload         `json:"invoice,omitempty"`
}

// SubscriptionPatch is the target subscription state derived from a billing
// event. Applying the same patch twice yields the same stored record.
type SubscriptionPatch struct {
	SubscriptionID    string            `json:"subscription_id"`
	Status            SubscriptionState `json:"status"`
	CurrentPeriodEnd  time.Time         `json:"current_period_end"`
	CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
	PriceID           string            `json:"price_id"`
}
