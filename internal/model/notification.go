package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// NotificationRecord is an outbox row written when a spending alert fires.
// Actual delivery (email/push) is an external collaborator reading this table.
type NotificationRecord struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    string         `json:"user_id" gorm:"not null;index"`
	AlertID   uuid.UUID      `json:"alert_id" gorm:"type:uuid;not null"`
	AlertName string         `json:"alert_name" gorm:"not null"`
	Amount    int64          `json:"amount" gorm:"not null"`
	Channels  pq.StringArray `json:"channels" gorm:"type:text[]"`
	Delivered bool           `json:"delivered" gorm:"default:false"`
	CreatedAt time.Time      `json:"created_at"`
}

// TableName returns the database table name.
func (NotificationRecord) TableName() string {
	return "notifications"
}

// WebhookEvent records a processed billing event for idempotency.
type WebhookEvent struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	Type        string     `json:"type" gorm:"not null"`
	Payload     string     `json:"payload" gorm:"type:text"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TableName returns the database table name.
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
