package spending

import (
	"time"

	"github.com/google/uuid"
	"github.com/lumastudio/server/internal/infra/events"
	"github.com/lumastudio/server/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier consumes fired-alert events and writes notification outbox rows.
// Actual delivery (email/push) is performed by an external collaborator
// draining the outbox.
type Notifier struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewNotifier creates a new notifier.
func NewNotifier(db *gorm.DB, logger *zap.Logger) *Notifier {
	return &Notifier{db: db, logger: logger}
}

// Handles returns the event types this handler subscribes to.
func (n *Notifier) Handles() []string {
	return []string{events.SpendingAlertFiredType}
}

// Handle processes the given event.
func (n *Notifier) Handle(event events.Event) error {
	fired, ok := event.(*events.SpendingAlertFiredEvent)
	if !ok {
		n.logger.Warn("unexpected event type", zap.String("event_type", event.EventType()))
		return nil
	}

	record := &model.NotificationRecord{
		ID:        uuid.New(),
		UserID:    fired.UserID(),
		AlertID:   fired.AlertID,
		AlertName: fired.AlertName,
		Amount:    fired.Amount,
		Channels:  fired.Channels,
		CreatedAt: time.Now(),
	}

	if err := n.db.Create(record).Error; err != nil {
		return err
	}

	n.logger.Info("spending alert notification queued",
		zap.String("user_id", fired.UserID()),
		zap.String("alert", fired.AlertName),
		zap.Strings("channels", fired.Channels),
	)
	return nil
}

// Compile-time check that Notifier implements events.Handler.
var _ events.Handler = (*Notifier)(nil)
