package spending

import (
	"github.com/lumastudio/server/internal/model"
)

// CreateLimitRequest is the request body for creating a limit.
type CreateLimitRequest struct {
	Amount        int64  `json:"amount" binding:"required,gt=0"`
	Period        string `json:"period" binding:"required"`
	BlockOnExceed bool   `json:"block_on_exceed"`
}

// UpdateLimitRequest is the request body for toggling a limit.
type UpdateLimitRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// CreateAlertRequest is the request body for attaching an alert.
type CreateAlertRequest struct {
	Name       string   `json:"name" binding:"required"`
	Threshold  *int64   `json:"threshold,omitempty"`
	Percentage *int     `json:"percentage,omitempty"`
	Frequency  string   `json:"frequency"`
	Channels   []string `json:"channels"`
}

// AddTransactionRequest is the request body for recording a spend event.
type AddTransactionRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required"`
}

// CheckSpendRequest is the request body for the pre-spend check.
type CheckSpendRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// NotificationsRequest toggles the config-wide notification switch.
type NotificationsRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// ConfigResponse is the API view of the spending config.
type ConfigResponse struct {
	Limits               []*model.SpendingLimitResponse `json:"limits"`
	GlobalAlerts         []model.SpendingAlert          `json:"global_alerts"`
	MonthTotal           int64                          `json:"month_total"`
	YearTotal            int64                          `json:"year_total"`
	NotificationsEnabled bool                           `json:"notifications_enabled"`
}

// TransactionResponse is returned after a spend event is recorded.
type TransactionResponse struct {
	Config          *ConfigResponse       `json:"config"`
	TriggeredAlerts []model.SpendingAlert `json:"triggered_alerts"`
}

func toConfigResponse(cfg *model.SpendingLimitsConfig, approachThreshold int) *ConfigResponse {
	limits := make([]*model.SpendingLimitResponse, len(cfg.Limits))
	for i := range cfg.Limits {
		limits[i] = LimitResponse(&cfg.Limits[i], approachThreshold)
	}
	return &ConfigResponse{
		Limits:               limits,
		GlobalAlerts:         cfg.GlobalAlerts,
		MonthTotal:           cfg.MonthTotal,
		YearTotal:            cfg.YearTotal,
		NotificationsEnabled: cfg.NotificationsEnabled,
	}
}
