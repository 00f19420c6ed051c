package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumastudio/server/internal/model"
)

func newTestProcessor(now time.Time) *Processor {
	p := NewProcessor(zap.NewNop())
	p.now = func() time.Time { return now }
	return p
}

func TestProcessCheckoutCompleted(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	p := newTestProcessor(now)

	t.Run("user id from client reference", func(t *testing.T) {
		decision, err := p.Process(&model.BillingEvent{
			ID:   "evt_1",
			Type: model.EventCheckoutCompleted,
			Checkout: &model.CheckoutSessionPayload{
				ID:                "cs_1",
				ClientReferenceID: "user-1",
				SubscriptionID:    "sub_1",
				PriceID:           "price_pro",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "user-1", decision.UserID)
		require.NotNil(t, decision.Patch)
		assert.Equal(t, "sub_1", decision.Patch.SubscriptionID)
		assert.Equal(t, model.SubscriptionStateActive, decision.Patch.Status)
		assert.Equal(t, "price_pro", decision.Patch.PriceID)
		assert.False(t, decision.Patch.CancelAtPeriodEnd)
		// Provisional period until the provider's own subscription event lands.
		assert.Equal(t, now.Add(30*24*time.Hour), decision.Patch.CurrentPeriodEnd)
	})

	t.Run("user id falls back to metadata", func(t *testing.T) {
		decision, err := p.Process(&model.BillingEvent{
			ID:   "evt_2",
			Type: model.EventCheckoutCompleted,
			Checkout: &model.CheckoutSessionPayload{
				ID:       "cs_2",
				Metadata: map[string]string{"userId": "user-2"},
				PriceID:  "price_pro",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "user-2", decision.UserID)
	})

	t.Run("no user reference fails", func(t *testing.T) {
		_, err := p.Process(&model.BillingEvent{
			ID:       "evt_3",
			Type:     model.EventCheckoutCompleted,
			Checkout: &model.CheckoutSessionPayload{ID: "cs_3"},
		})
		assert.ErrorIs(t, err, ErrMissingUserID)
	})

	t.Run("missing payload fails", func(t *testing.T) {
		_, err := p.Process(&model.BillingEvent{ID: "evt_4", Type: model.EventCheckoutCompleted})
		assert.Error(t, err)
	})
}

func TestProcessSubscriptionUpdated(t *testing.T) {
	p := newTestProcessor(time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC))
	periodEnd := int64(1714521600) // 2024-05-01T00:00:00Z

	decision, err := p.Process(&model.BillingEvent{
		ID:   "evt_5",
		Type: model.EventSubscriptionUpdated,
		Subscription: &model.SubscriptionPayload{
			ID:               "sub_1",
			Metadata:         map[string]string{"userId": "user-1"},
			Status:           "past_due",
			CurrentPeriodEnd: periodEnd,
			PriceID:          "price_pro",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", decision.UserID)
	require.NotNil(t, decision.Patch)
	assert.Equal(t, model.SubscriptionStatePastDue, decision.Patch.Status)
	assert.Equal(t, time.Unix(periodEnd, 0), decision.Patch.CurrentPeriodEnd)
}

func TestProcessSubscriptionUpdatedUnknownStatus(t *testing.T) {
	p := newTestProcessor(time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC))

	decision, err := p.Process(&model.BillingEvent{
		ID:   "evt_6",
		Type: model.EventSubscriptionCreated,
		Subscription: &model.SubscriptionPayload{
			ID:       "sub_1",
			Metadata: map[string]string{"userId": "user-1"},
			Status:   "paused",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionStateIncomplete, decision.Patch.Status)
}

// Scenario: a deletion event cancels the subscription but preserves access
// until the provider-reported period end.
func TestProcessSubscriptionDeleted(t *testing.T) {
	p := newTestProcessor(time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC))
	periodEnd := int64(1711929600)

	decision, err := p.Process(&model.BillingEvent{
		ID:   "evt_7",
		Type: model.EventSubscriptionDeleted,
		Subscription: &model.SubscriptionPayload{
			ID:               "sub_1",
			Metadata:         map[string]string{"userId": "u1"},
			Status:           "active",
			CurrentPeriodEnd: periodEnd,
			PriceID:          "price_pro",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", decision.UserID)
	require.NotNil(t, decision.Patch)
	assert.Equal(t, model.SubscriptionStateCanceled, decision.Patch.Status)
	assert.True(t, decision.Patch.CancelAtPeriodEnd)
	assert.Equal(t, time.Unix(periodEnd, 0), decision.Patch.CurrentPeriodEnd)
}

func TestProcessSubscriptionDeletedMissingUserID(t *testing.T) {
	p := newTestProcessor(time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC))

	decision, err := p.Process(&model.BillingEvent{
		ID:   "evt_8",
		Type: model.EventSubscriptionDeleted,
		Subscription: &model.SubscriptionPayload{
			ID:               "sub_1",
			Status:           "active",
			CurrentPeriodEnd: 1711929600,
		},
	})
	require.ErrorIs(t, err, ErrMissingUserID)
	assert.Nil(t, decision)
}

func TestProcessInvoicePaymentFailed(t *testing.T) {
	p := newTestProcessor(time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC))

	t.Run("with subscription context moves to past_due", func(t *testing.T) {
		decision, err := p.Process(&model.BillingEvent{
			ID:   "evt_9",
			Type: model.EventInvoicePaymentFailed,
			Invoice: &model.InvoicePayload{
				ID:             "inv_1",
				Metadata:       map[string]string{"userId": "user-1"},
				SubscriptionID: "sub_1",
				AmountDue:      2900,
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "user-1", decision.UserID)
		require.NotNil(t, decision.Patch)
		assert.Equal(t, model.SubscriptionStatePastDue, decision.Patch.Status)
		// The invoice reports no period end; the applier carries the
		// stored one forward.
		assert.True(t, decision.Patch.CurrentPeriodEnd.IsZero())
	})

	t.Run("one-off invoice without context is skipped", func(t *testing.T) {
		decision, err := p.Process(&model.BillingEvent{
			ID:      "evt_10",
			Type:    model.EventInvoicePaymentFailed,
			Invoice: &model.InvoicePayload{ID: "inv_2", AmountDue: 500},
		})
		require.NoError(t, err)
		assert.Nil(t, decision.Patch)
	})
}

func TestProcessInvoicePaymentSucceededIsNoop(t *testing.T) {
	p := newTestProcessor(time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC))

	decision, err := p.Process(&model.BillingEvent{
		ID:      "evt_11",
		Type:    model.EventInvoicePaymentSucceeded,
		Invoice: &model.InvoicePayload{ID: "inv_3", AmountDue: 2900},
	})
	require.NoError(t, err)
	assert.Empty(t, decision.UserID)
	assert.Nil(t, decision.Patch)
}

func TestProcessUnknownEventTypeIsNoop(t *testing.T) {
	p := newTestProcessor(time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC))

	decision, err := p.Process(&model.BillingEvent{
		ID:   "evt_12",
		Type: model.BillingEventType("charge.refunded"),
	})
	require.NoError(t, err)
	assert.Nil(t, decision.Patch)
}

// Re-processing the same event must yield the same decision; the processor
// holds no state between calls.
func TestProcessIsDeterministic(t *testing.T) {
	p := newTestProcessor(time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC))
	evt := &model.BillingEvent{
		ID:   "evt_13",
		Type: model.EventSubscriptionUpdated,
		Subscription: &model.SubscriptionPayload{
			ID:               "sub_1",
			Metadata:         map[string]string{"userId": "user-1"},
			Status:           "active",
			CurrentPeriodEnd: 1714521600,
			PriceID:          "price_pro",
		},
	}

	first, err := p.Process(evt)
	require.NoError(t, err)
	second, err := p.Process(evt)
	require.NoError(t, err)

	assert.Equal(t, first.UserID, second.UserID)
	assert.Equal(t, *first.Patch, *second.Patch)
}
