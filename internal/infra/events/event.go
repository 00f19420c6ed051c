package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is the interface all domain events implement.
type Event interface {
	// EventID returns the unique identifier for this event instance.
	EventID() uuid.UUID

	// EventType returns the type name of the event (e.g., "SpendingAlertFired").
	EventType() string

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// UserID returns the id of the user the event concerns.
	UserID() string
}

// BaseEvent provides the common fields of a domain event. Embed it in
// concrete event types.
type BaseEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user_id"`
}

// EventID returns the unique identifier for this event instance.
func (e BaseEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type name of the event.
func (e BaseEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// UserID returns the id of the user the event concerns.
func (e BaseEvent) UserID() string {
	return e.User
}

// NewBaseEvent creates a BaseEvent for the given type and user.
func NewBaseEvent(eventType, userID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now(),
		User:      userID,
	}
}
