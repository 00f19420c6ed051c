package entitlement

import (
	"context"

	"github.com/lumastudio/server/internal/infra/events"
	"go.uber.org/zap"
)

// EventHandler applies tier changes coming out of the billing pipeline.
type EventHandler struct {
	service ServiceInterface
	logger  *zap.Logger
}

// NewEventHandler creates a new entitlement event handler.
func NewEventHandler(service ServiceInterface, logger *zap.Logger) *EventHandler {
	return &EventHandler{service: service, logger: logger}
}

// Handles returns the event types this handler subscribes to.
func (h *EventHandler) Handles() []string {
	return []string{events.SubscriptionTierChangedType}
}

// Handle processes the given event.
func (h *EventHandler) Handle(event events.Event) error {
	changed, ok := event.(*events.SubscriptionTierChangedEvent)
	if !ok {
		h.logger.Warn("unexpected event type", zap.String("event_type", event.EventType()))
		return nil
	}

	if err := h.service.SetTier(context.Background(), changed.UserID(), changed.NewTier); err != nil {
		h.logger.Error("failed to apply tier change",
			zap.String("user_id", changed.UserID()),
			zap.String("tier", changed.NewTier.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Compile-time check that EventHandler implements events.Handler.
var _ events.Handler = (*EventHandler)(nil)
