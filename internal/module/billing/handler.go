package billing

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lumastudio/server/internal/model"
	"github.com/lumastudio/server/internal/shared/response"
	"go.uber.org/zap"
)

// Handler exposes the simulated billing flows. Checkout and cancel call the
// simulated provider, then feed the events a real provider would deliver by
// webhook straight into the processing pipeline.
type Handler struct {
	service  ServiceInterface
	provider Provider
	logger   *zap.Logger
}

// NewHandler creates a new billing handler.
func NewHandler(service ServiceInterface, provider Provider, logger *zap.Logger) *Handler {
	return &Handler{
		service:  service,
		provider: provider,
		logger:   logger,
	}
}

// RegisterRoutes registers the billing routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/subscription", h.GetSubscription)
	r.POST("/checkout", h.Checkout)
	r.POST("/cancel", h.Cancel)
}

// GetSubscription returns the user's billing-provider subscription record.
func (h *Handler) GetSubscription(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Unauthorized(c, "")
		return
	}

	sub, err := h.service.GetSubscription(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, "failed to load subscription")
		return
	}
	if sub == nil {
		response.NotFound(c, "no subscription on record")
		return
	}

	c.JSON(http.StatusOK, SubscriptionResponse{Subscription: sub})
}

// Checkout runs a simulated checkout and processes the completion event the
// provider would otherwise deliver asynchronously.
func (h *Handler) Checkout(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Unauthorized(c, "")
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	session, err := h.provider.CreateCheckoutSession(ctx, userID, req.PriceID)
	if err != nil {
		h.logger.Error("checkout session failed", zap.String("user_id", userID), zap.Error(err))
		response.ErrorWithCode(c, http.StatusBadGateway, "PROVIDER_UNAVAILABLE", "payment provider unavailable")
		return
	}

	evt := &model.BillingEvent{
		ID:      "evt_sim_" + uuid.NewString(),
		Type:    model.EventCheckoutCompleted,
		Created: time.Now().Unix(),
		Checkout: &model.CheckoutSessionPayload{
			ID:                session.ID,
			ClientReferenceID: session.ClientReferenceID,
			Metadata:          session.Metadata,
			PriceID:           req.PriceID,
		},
	}
	if session.Subscription != nil {
		evt.Checkout.SubscriptionID = session.Subscription.ID
	}

	if err := h.service.ProcessEvent(ctx, evt); err != nil {
		h.logger.Error("checkout event processing failed", zap.String("user_id", userID), zap.Error(err))
		response.InternalError(c, "failed to process checkout")
		return
	}

	sub, err := h.service.GetSubscription(ctx, userID)
	if err != nil {
		response.InternalError(c, "failed to load subscription")
		return
	}

	c.JSON(http.StatusOK, CheckoutResponse{
		SessionID:    session.ID,
		URL:          session.URL,
		Subscription: sub,
	})
}

// Cancel cancels the user's subscription at period end via the simulated
// provider, then processes the deletion event.
func (h *Handler) Cancel(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Unauthorized(c, "")
		return
	}

	ctx := c.Request.Context()
	sub, err := h.service.GetSubscription(ctx, userID)
	if err != nil {
		response.InternalError(c, "failed to load subscription")
		return
	}
	if sub == nil {
		response.NotFound(c, "no subscription on record")
		return
	}

	canceled, err := h.provider.CancelSubscription(ctx, sub.ID)
	if err != nil {
		h.logger.Error("provider cancel failed", zap.String("user_id", userID), zap.Error(err))
		response.ErrorWithCode(c, http.StatusBadGateway, "PROVIDER_UNAVAILABLE", "payment provider unavailable")
		return
	}

	evt := &model.BillingEvent{
		ID:      "evt_sim_" + uuid.NewString(),
		Type:    model.EventSubscriptionDeleted,
		Created: time.Now().Unix(),
		Subscription: &model.SubscriptionPayload{
			ID:                canceled.ID,
			Metadata:          map[string]string{"userId": userID},
			Status:            string(canceled.Status),
			CurrentPeriodEnd:  sub.CurrentPeriodEnd.Unix(),
			CancelAtPeriodEnd: true,
			PriceID:           sub.PriceID,
		},
	}

	if err := h.service.ProcessEvent(ctx, evt); err != nil {
		h.logger.Error("cancel event processing failed", zap.String("user_id", userID), zap.Error(err))
		response.InternalError(c, "failed to process cancellation")
		return
	}

	updated, err := h.service.GetSubscription(ctx, userID)
	if err != nil {
		response.InternalError(c, "failed to load subscription")
		return
	}

	c.JSON(http.StatusOK, SubscriptionResponse{Subscription: updated})
}
