package model

import (
	"time"

	"github.com/google/uuid"
)

// LimitPeriod represents the recurrence period of a spending limit.
type LimitPeriod string

const (
	LimitPeriodDaily   LimitPeriod = "daily"
	LimitPeriodWeekly  LimitPeriod = "weekly"
	LimitPeriodMonthly LimitPeriod = "monthly"
	LimitPeriodYearly  LimitPeriod = "yearly"
)

// String returns the string representation of the period.
func (p LimitPeriod) String() string {
	return string(p)
}

// IsValid checks if the period is valid.
func (p LimitPeriod) IsValid() bool {
	switch p {
	case LimitPeriodDaily, LimitPeriodWeekly, LimitPeriodMonthly, LimitPeriodYearly:
		return true
	}
	return false
}

// AlertFrequency represents how often an alert may fire once its threshold holds.
type AlertFrequency string

const (
	AlertFrequencyOnce   AlertFrequency = "once"
	AlertFrequencyDaily  AlertFrequency = "daily"
	AlertFrequencyWeekly AlertFrequency = "weekly"
	AlertFrequencyAlways AlertFrequency = "always"
)

// String returns the string representation of the frequency.
func (f AlertFrequency) String() string {
	return string(f)
}

// IsValid checks if the frequency is valid.
func (f AlertFrequency) IsValid() bool {
	switch f {
	case AlertFrequencyOnce, AlertFrequencyDaily, AlertFrequencyWeekly, AlertFrequencyAlways:
		return true
	}
	return false
}

// SpendCategory classifies a spend event.
type SpendCategory string

const (
	SpendCategorySubscription SpendCategory = "subscription"
	SpendCategoryGeneration   SpendCategory = "generation"
	SpendCategoryAddon        SpendCategory = "addon"
	SpendCategoryOverage      SpendCategory = "overage"
)

// IsValid checks if the category is valid.
func (c SpendCategory) IsValid() bool {
	switch c {
	case SpendCategorySubscription, SpendCategoryGeneration, SpendCategoryAddon, SpendCategoryOverage:
		return true
	}
	return false
}

// SpendingAlert is a threshold-triggered notification rule, attached to a
// limit or to the config globally. Threshold (cents) and Percentage are
// mutually optional; when both a Percentage and a cap are available the
// percentage comparison wins.
type SpendingAlert struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Threshold     *int64         `json:"threshold,omitempty"`
	Percentage    *int           `json:"percentage,omitempty"`
	Frequency     AlertFrequency `json:"frequency"`
	Channels      []string       `json:"channels"`
	Enabled       bool           `json:"enabled"`
	LastTriggered *time.Time     `json:"last_triggered,omitempty"`
	TriggerCount  int            `json:"trigger_count"`
}

// SpendingLimit is a capped spending budget over a recurring period.
// Amounts are in cents. CurrentSpend is monotone within [StartDate, ResetDate)
// and zeroed exactly when the window rolls over.
type SpendingLimit struct {
	ID            uuid.UUID       `json:"id"`
	Amount        int64           `json:"amount"`
	Period        LimitPeriod     `json:"period"`
	CurrentSpend  int64           `json:"current_spend"`
	StartDate     time.Time       `json:"start_date"`
	ResetDate     time.Time       `json:"reset_date"`
	Enabled       bool            `json:"enabled"`
	BlockOnExceed bool            `json:"block_on_exceed"`
	Alerts        []SpendingAlert `json:"alerts"`
}

// SpendingHistoryEntry is an immutable record of a single spend event.
type SpendingHistoryEntry struct {
	ID          uuid.UUID     `json:"id"`
	Amount      int64         `json:"amount"`
	Description string        `json:"description"`
	Category    SpendCategory `json:"category"`
	Completed   bool          `json:"completed"`
	CreatedAt   time.Time     `json:"created_at"`
}

// SpendingLimitsConfig is the aggregate root for a user's spending controls.
// It is read and written whole through the key-value store; History is
// newest-first and append-only.
type SpendingLimitsConfig struct {
	Limits               []SpendingLimit        `json:"limits"`
	GlobalAlerts         []SpendingAlert        `json:"global_alerts"`
	History              []SpendingHistoryEntry `json:"history"`
	MonthTotal           int64                  `json:"month_total"`
	YearTotal            int64                  `json:"year_total"`
	MonthKey             string                 `json:"month_key"`
	YearKey              int                    `json:"year_key"`
	NotificationsEnabled bool                   `json:"notifications_enabled"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// NewSpendingLimitsConfig returns an empty config for first use.
func NewSpendingLimitsConfig(now time.Time) *SpendingLimitsConfig {
	return &SpendingLimitsConfig{
		Limits:               []SpendingLimit{},
		GlobalAlerts:         []SpendingAlert{},
		History:              []SpendingHistoryEntry{},
		MonthKey:             now.Format("2006-01"),
		YearKey:              now.Year(),
		NotificationsEnabled: true,
		UpdatedAt:            now,
	}
}

// SpendingLimitResponse represents a limit for API responses, with the
// derived percentage and state included.
type SpendingLimitResponse struct {
	ID            uuid.UUID       `json:"id"`
	Amount        int64           `json:"amount"`
	Period        string          `json:"period"`
	CurrentSpend  int64           `json:"current_spend"`
	Percentage    int             `json:"percentage"`
	Exceeded      bool            `json:"exceeded"`
	Approaching   bool            `json:"approaching"`
	StartDate     time.Time       `json:"start_date"`
	ResetDate     time.Time       `json:"reset_date"`
	Enabled       bool            `json:"enabled"`
	BlockOnExceed bool            `json:"block_on_exceed"`
	Alerts        []SpendingAlert `json:"alerts"`
}
