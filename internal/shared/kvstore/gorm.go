package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AggregateRow is a single JSON-encoded aggregate stored as a row.
type AggregateRow struct {
	Key       string    `gorm:"primaryKey"`
	Value     []byte    `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

// TableName returns the database table name.
func (AggregateRow) TableName() string {
	return "aggregates"
}

// GormStore backs the aggregate store with a relational JSON-row table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GORM-backed store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Get returns the stored value and whether the key exists.
func (s *GormStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var row AggregateRow
	err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get aggregate %s: %w", key, err)
	}
	return row.Value, true, nil
}

// Set replaces the full value for the key.
func (s *GormStore) Set(ctx context.Context, key string, value []byte) error {
	row := AggregateRow{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("set aggregate %s: %w", key, err)
	}
	return nil
}

// Delete removes the key.
func (s *GormStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&AggregateRow{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("delete aggregate %s: %w", key, err)
	}
	return nil
}
