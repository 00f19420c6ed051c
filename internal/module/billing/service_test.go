package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumastudio/server/internal/infra/events"
	"github.com/lumastudio/server/internal/model"
)

// fakeRepository keeps subscriptions and the webhook event log in maps.
type fakeRepository struct {
	subs     map[string]*model.Subscription
	webhooks map[string]*model.WebhookEvent
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		subs:     make(map[string]*model.Subscription),
		webhooks: make(map[string]*model.WebhookEvent),
	}
}

func (r *fakeRepository) GetSubscription(_ context.Context, userID string) (*model.Subscription, error) {
	sub, ok := r.subs[userID]
	if !ok {
		return nil, nil
	}
	copied := *sub
	return &copied, nil
}

func (r *fakeRepository) SaveSubscription(_ context.Context, userID string, sub *model.Subscription) error {
	copied := *sub
	r.subs[userID] = &copied
	return nil
}

func (r *fakeRepository) WebhookEventExists(_ context.Context, eventID string) (bool, error) {
	_, ok := r.webhooks[eventID]
	return ok, nil
}

func (r *fakeRepository) CreateWebhookEvent(_ context.Context, eventID, eventType, payload string) error {
	r.webhooks[eventID] = &model.WebhookEvent{ID: eventID, Type: eventType, Payload: payload}
	return nil
}

func (r *fakeRepository) MarkWebhookEventProcessed(_ context.Context, eventID string, processErr error) error {
	evt, ok := r.webhooks[eventID]
	if !ok {
		return nil
	}
	now := time.Now()
	evt.ProcessedAt = &now
	if processErr != nil {
		evt.Error = processErr.Error()
	}
	return nil
}

type capturingPublisher struct {
	published []events.Event
}

func (p *capturingPublisher) Publish(event events.Event) {
	p.published = append(p.published, event)
}

func newTestBillingService(t *testing.T, now time.Time) (*Service, *fakeRepository, *capturingPublisher) {
	t.Helper()
	repo := newFakeRepository()
	bus := &capturingPublisher{}
	processor := NewProcessor(zap.NewNop())
	processor.now = func() time.Time { return now }
	svc := NewService(repo, processor, bus, zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc, repo, bus
}

func checkoutEvent(id, userID string) *model.BillingEvent {
	return &model.BillingEvent{
		ID:   id,
		Type: model.EventCheckoutCompleted,
		Checkout: &model.CheckoutSessionPayload{
			ID:                "cs_" + id,
			ClientReferenceID: userID,
			SubscriptionID:    "sub_1",
			PriceID:           "price_pro",
		},
	}
}

func TestProcessEventCheckoutUpgradesTier(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	svc, repo, bus := newTestBillingService(t, now)
	ctx := context.Background()

	require.NoError(t, svc.ProcessEvent(ctx, checkoutEvent("evt_1", "user-1")))

	sub := repo.subs["user-1"]
	require.NotNil(t, sub)
	assert.Equal(t, "sub_1", sub.ID)
	assert.Equal(t, model.SubscriptionStateActive, sub.Status)
	assert.Equal(t, "price_pro", sub.PriceID)

	require.Len(t, bus.published, 1)
	changed, ok := bus.published[0].(*events.SubscriptionTierChangedEvent)
	require.True(t, ok)
	assert.Equal(t, "user-1", changed.UserID())
	assert.Equal(t, model.TierFree, changed.OldTier)
	assert.Equal(t, model.TierPro, changed.NewTier)
}

func TestProcessEventReplayConverges(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	svc, repo, bus := newTestBillingService(t, now)
	ctx := context.Background()

	require.NoError(t, svc.ProcessEvent(ctx, checkoutEvent("evt_1", "user-1")))
	first := *repo.subs["user-1"]

	// The replay lands on the same record and announces no tier change.
	require.NoError(t, svc.ProcessEvent(ctx, checkoutEvent("evt_1", "user-1")))
	assert.Equal(t, first, *repo.subs["user-1"])
	assert.Len(t, bus.published, 1)
}

func TestProcessEventCancellation(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	svc, repo, bus := newTestBillingService(t, now)
	ctx := context.Background()

	require.NoError(t, svc.ProcessEvent(ctx, checkoutEvent("evt_1", "user-1")))

	periodEnd := now.Add(20 * 24 * time.Hour)
	require.NoError(t, svc.ProcessEvent(ctx, &model.BillingEvent{
		ID:   "evt_2",
		Type: model.EventSubscriptionDeleted,
		Subscription: &model.SubscriptionPayload{
			ID:               "sub_1",
			Metadata:         map[string]string{"userId": "user-1"},
			Status:           "active",
			CurrentPeriodEnd: periodEnd.Unix(),
			PriceID:          "price_pro",
		},
	}))

	sub := repo.subs["user-1"]
	assert.Equal(t, model.SubscriptionStateCanceled, sub.Status)
	assert.True(t, sub.CancelAtPeriodEnd)

	require.Len(t, bus.published, 2)
	changed := bus.published[1].(*events.SubscriptionTierChangedEvent)
	assert.Equal(t, model.TierPro, changed.OldTier)
	assert.Equal(t, model.TierFree, changed.NewTier)
}

// An invoice-driven patch only knows the new status; the stored period end,
// subscription id, and price must survive the apply.
func TestProcessEventPaymentFailureCarriesStoredFields(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	svc, repo, bus := newTestBillingService(t, now)
	ctx := context.Background()

	require.NoError(t, svc.ProcessEvent(ctx, checkoutEvent("evt_1", "user-1")))
	stored := *repo.subs["user-1"]

	require.NoError(t, svc.ProcessEvent(ctx, &model.BillingEvent{
		ID:   "evt_2",
		Type: model.EventInvoicePaymentFailed,
		Invoice: &model.InvoicePayload{
			ID:             "inv_1",
			Metadata:       map[string]string{"userId": "user-1"},
			SubscriptionID: "sub_1",
			AmountDue:      2900,
		},
	}))

	sub := repo.subs["user-1"]
	assert.Equal(t, model.SubscriptionStatePastDue, sub.Status)
	assert.Equal(t, stored.CurrentPeriodEnd, sub.CurrentPeriodEnd)
	assert.Equal(t, stored.PriceID, sub.PriceID)
	assert.Equal(t, stored.ID, sub.ID)

	// past_due is not entitled, so the tier dropped.
	require.Len(t, bus.published, 2)
	changed := bus.published[1].(*events.SubscriptionTierChangedEvent)
	assert.Equal(t, model.TierFree, changed.NewTier)
}

func TestProcessEventMissingUserIDFails(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	svc, repo, _ := newTestBillingService(t, now)

	err := svc.ProcessEvent(context.Background(), &model.BillingEvent{
		ID:       "evt_1",
		Type:     model.EventCheckoutCompleted,
		Checkout: &model.CheckoutSessionPayload{ID: "cs_1"},
	})
	require.ErrorIs(t, err, ErrMissingUserID)
	assert.Empty(t, repo.subs)
}

func TestGetSubscription(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	svc, _, _ := newTestBillingService(t, now)
	ctx := context.Background()

	sub, err := svc.GetSubscription(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, sub)

	require.NoError(t, svc.ProcessEvent(ctx, checkoutEvent("evt_1", "user-1")))

	sub, err = svc.GetSubscription(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "sub_1", sub.ID)
}

func TestWebhookEventLog(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	svc, repo, _ := newTestBillingService(t, now)
	ctx := context.Background()

	exists, err := svc.WebhookEventExists(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, svc.RecordWebhookEvent(ctx, "evt_1", "checkout.session.completed", "{}"))

	exists, err = svc.WebhookEventExists(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, svc.MarkWebhookEventProcessed(ctx, "evt_1", nil))
	require.NotNil(t, repo.webhooks["evt_1"].ProcessedAt)
	assert.Empty(t, repo.webhooks["evt_1"].Error)
}

func TestTierOf(t *testing.T) {
	assert.Equal(t, model.TierFree, tierOf(nil))
	assert.Equal(t, model.TierPro, tierOf(&model.Subscription{
		Status:  model.SubscriptionStateActive,
		PriceID: "price_pro",
	}))
	assert.Equal(t, model.TierPro, tierOf(&model.Subscription{
		Status:  model.SubscriptionStateTrialing,
		PriceID: "price_pro",
	}))
	// Entitled status without a price is not a paid tier.
	assert.Equal(t, model.TierFree, tierOf(&model.Subscription{
		Status: model.SubscriptionStateActive,
	}))
	assert.Equal(t, model.TierFree, tierOf(&model.Subscription{
		Status:  model.SubscriptionStateCanceled,
		PriceID: "price_pro",
	}))
}
