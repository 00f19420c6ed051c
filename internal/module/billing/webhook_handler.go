package billing

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lumastudio/server/internal/model"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

// WebhookHandler receives provider-shaped billing events. In production this
// would sit behind Stripe signature verification; the simulated integration
// authenticates with a shared secret header instead.
type WebhookHandler struct {
	service ServiceInterface
	secret  string
	logger  *zap.Logger
}

// NewWebhookHandler creates a new billing webhook handler.
func NewWebhookHandler(service ServiceInterface, secret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		secret:  secret,
		logger:  logger,
	}
}

// RegisterRoutes registers the webhook routes.
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/billing", h.HandleBillingWebhook)
}

// HandleBillingWebhook handles an inbound billing event.
func (h *WebhookHandler) HandleBillingWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	secret := c.GetHeader("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.secret)) != 1 {
		h.logger.Warn("webhook rejected: bad secret")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
		return
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("failed to parse webhook event", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event"})
		return
	}

	ctx := c.Request.Context()

	exists, err := h.service.WebhookEventExists(ctx, event.ID)
	if err != nil {
		h.logger.Error("failed to check event existence", zap.Error(err))
		// Continue processing - better to process twice than miss
	}
	if exists {
		h.logger.Info("webhook event already processed", zap.String("event_id", event.ID))
		c.JSON(http.StatusOK, gin.H{"status": "already_processed"})
		return
	}

	if err := h.service.RecordWebhookEvent(ctx, event.ID, string(event.Type), string(payload)); err != nil {
		h.logger.Error("failed to store webhook event", zap.Error(err))
	}

	billingEvent, mapErr := mapStripeEvent(&event)
	var processErr error
	if mapErr != nil {
		processErr = mapErr
	} else {
		processErr = h.service.ProcessEvent(ctx, billingEvent)
	}

	if err := h.service.MarkWebhookEventProcessed(ctx, event.ID, processErr); err != nil {
		h.logger.Error("failed to mark event processed", zap.Error(err))
	}

	if processErr != nil {
		h.logger.Error("failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Error(processErr),
		)
		if errors.Is(processErr, ErrMissingUserID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing user id", "code": "MISSING_USER_ID"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

// mapStripeEvent narrows a provider event to the closed billing event union.
// Fields outside the union are dropped here at the boundary.
func mapStripeEvent(event *stripe.Event) (*model.BillingEvent, error) {
	out := &model.BillingEvent{
		ID:      event.ID,
		Type:    model.BillingEventType(event.Type),
		Created: event.Created,
	}

	switch out.Type {
	case model.EventCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("unmarshal checkout session: %w", err)
		}
		payload := &model.CheckoutSessionPayload{
			ID:                session.ID,
			ClientReferenceID: session.ClientReferenceID,
			Metadata:          session.Metadata,
			PriceID:           session.Metadata["priceId"],
		}
		if session.Subscription != nil {
			payload.SubscriptionID = session.Subscription.ID
		}
		out.Checkout = payload

	case model.EventSubscriptionCreated, model.EventSubscriptionUpdated, model.EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("unmarshal subscription: %w", err)
		}
		payload := &model.SubscriptionPayload{
			ID:                sub.ID,
			Metadata:          sub.Metadata,
			Status:            string(sub.Status),
			CurrentPeriodEnd:  sub.CurrentPeriodEnd,
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		}
		if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
			payload.PriceID = sub.Items.Data[0].Price.ID
		}
		if payload.PriceID == "" {
			payload.PriceID = sub.Metadata["priceId"]
		}
		out.Subscription = payload

	case model.EventInvoicePaymentSucceeded, model.EventInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("unmarshal invoice: %w", err)
		}
		payload := &model.InvoicePayload{
			ID:        inv.ID,
			Metadata:  inv.Metadata,
			AmountDue: inv.AmountDue,
		}
		if inv.Subscription != nil {
			payload.SubscriptionID = inv.Subscription.ID
		}
		out.Invoice = payload
	}

	return out, nil
}
