package billing

import (
	"fmt"
	"time"

	"github.com/lumastudio/server/internal/model"
	"go.uber.org/zap"
)

// checkoutPeriod is the provisional subscription period granted on checkout
// completion, before the first subscription.updated event arrives with the
// provider's authoritative period end.
const checkoutPeriod = 30 * 24 * time.Hour

// Decision is the outcome of processing one billing event: which user it
// targets and the target subscription state, if any. A nil Patch means the
// event was understood but requires no subscription change.
type Decision struct {
	UserID string
	Patch  *model.SubscriptionPatch
}

// Processor derives subscription patches from billing events. It owns no
// storage: re-processing the same event with the same payload always yields
// the same decision.
type Processor struct {
	logger *zap.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewProcessor creates a new billing event processor.
func NewProcessor(logger *zap.Logger) *Processor {
	return &Processor{
		logger: logger,
		now:    time.Now,
	}
}

// Process maps a billing event to a decision. Events that need a user
// reference and lack one fail with ErrMissingUserID.
func (p *Processor) Process(evt *model.BillingEvent) (*Decision, error) {
	switch evt.Type {
	case model.EventCheckoutCompleted:
		return p.processCheckout(evt)
	case model.EventSubscriptionCreated, model.EventSubscriptionUpdated:
		return p.processSubscriptionChange(evt)
	case model.EventSubscriptionDeleted:
		return p.processSubscriptionDeleted(evt)
	case model.EventInvoicePaymentFailed:
		return p.processInvoiceFailed(evt)
	case model.EventInvoicePaymentSucceeded:
		if evt.Invoice != nil {
			p.logger.Info("invoice paid",
				zap.String("invoice_id", evt.Invoice.ID),
				zap.Int64("amount_due", evt.Invoice.AmountDue),
			)
		}
		return &Decision{}, nil
	default:
		p.logger.Debug("unhandled billing event type", zap.String("type", evt.Type.String()))
		return &Decision{}, nil
	}
}

func (p *Processor) processCheckout(evt *model.BillingEvent) (*Decision, error) {
	session := evt.Checkout
	if session == nil {
		return nil, fmt.Errorf("event %s: missing checkout payload", evt.ID)
	}

	userID := session.ClientReferenceID
	if userID == "" {
		userID = session.Metadata["userId"]
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: checkout session %s has no client reference or metadata.userId", ErrMissingUserID, session.ID)
	}

	return &Decision{
		UserID: userID,
		Patch: &model.SubscriptionPatch{
			SubscriptionID:    session.SubscriptionID,
			Status:            model.SubscriptionStateActive,
			CurrentPeriodEnd:  p.now().Add(checkoutPeriod),
			CancelAtPeriodEnd: false,
			PriceID:           session.PriceID,
		},
	}, nil
}

func (p *Processor) processSubscriptionChange(evt *model.BillingEvent) (*Decision, error) {
	sub := evt.Subscription
	if sub == nil {
		return nil, fmt.Errorf("event %s: missing subscription payload", evt.ID)
	}

	userID := sub.Metadata["userId"]
	if userID == "" {
		return nil, fmt.Errorf("%w: subscription %s has no metadata.userId", ErrMissingUserID, sub.ID)
	}

	return &Decision{
		UserID: userID,
		Patch: &model.SubscriptionPatch{
			SubscriptionID:    sub.ID,
			Status:            mapProviderStatus(sub.Status),
			CurrentPeriodEnd:  time.Unix(sub.CurrentPeriodEnd, 0),
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
			PriceID:           sub.PriceID,
		},
	}, nil
}

func (p *Processor) processSubscriptionDeleted(evt *model.BillingEvent) (*Decision, error) {
	sub := evt.Subscription
	if sub == nil {
		return nil, fmt.Errorf("event %s: missing subscription payload", evt.ID)
	}

	userID := sub.Metadata["userId"]
	if userID == "" {
		return nil, fmt.Errorf("%w: subscription %s has no metadata.userId", ErrMissingUserID, sub.ID)
	}

	// Access runs until the period end the provider reported; the canceled
	// status is what revokes the paid tier once entitlement is re-derived.
	return &Decision{
		UserID: userID,
		Patch: &model.SubscriptionPatch{
			SubscriptionID:    sub.ID,
			Status:            model.SubscriptionStateCanceled,
			CurrentPeriodEnd:  time.Unix(sub.CurrentPeriodEnd, 0),
			CancelAtPeriodEnd: true,
			PriceID:           sub.PriceID,
		},
	}, nil
}

// processInvoiceFailed moves the subscription to past_due so entitlement
// drops on a failed renewal instead of silently staying paid. Invoices
// without a user reference are logged and skipped rather than failed, since
// one-off invoices legitimately carry no subscription metadata.
func (p *Processor) processInvoiceFailed(evt *model.BillingEvent) (*Decision, error) {
	inv := evt.Invoice
	if inv == nil {
		return nil, fmt.Errorf("event %s: missing invoice payload", evt.ID)
	}

	userID := inv.Metadata["userId"]
	if userID == "" || inv.SubscriptionID == "" {
		p.logger.Warn("invoice payment failed without subscription context",
			zap.String("invoice_id", inv.ID),
			zap.Int64("amount_due", inv.AmountDue),
		)
		return &Decision{}, nil
	}

	// CurrentPeriodEnd is left zero; applying the patch carries the stored
	// period end forward since the invoice does not report one.
	return &Decision{
		UserID: userID,
		Patch: &model.SubscriptionPatch{
			SubscriptionID: inv.SubscriptionID,
			Status:         model.SubscriptionStatePastDue,
		},
	}, nil
}

// mapProviderStatus maps a provider status string onto the closed state set.
// Unknown statuses land on incomplete, the non-entitled catch-all.
func mapProviderStatus(status string) model.SubscriptionState {
	s := model.SubscriptionState(status)
	if !s.IsValid() {
		return model.SubscriptionStateIncomplete
	}
	return s
}
