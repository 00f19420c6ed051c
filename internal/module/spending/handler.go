package spending

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lumastudio/server/internal/model"
	"github.com/lumastudio/server/internal/shared/response"
)

// Handler handles HTTP requests for spending limits.
type Handler struct {
	service           ServiceInterface
	approachThreshold int
}

// NewHandler creates a new spending handler.
func NewHandler(service ServiceInterface, approachThreshold int) *Handler {
	if approachThreshold <= 0 {
		approachThreshold = DefaultApproachThreshold
	}
	return &Handler{service: service, approachThreshold: approachThreshold}
}

// RegisterRoutes registers the spending routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	spending := r.Group("/spending")
	{
		spending.GET("", h.GetConfig)
		spending.GET("/history", h.GetHistory)
		spending.POST("/limits", h.CreateLimit)
		spending.PATCH("/limits/:id", h.UpdateLimit)
		spending.POST("/limits/:id/alerts", h.AddLimitAlert)
		spending.POST("/alerts", h.AddGlobalAlert)
		spending.POST("/transactions", h.AddTransaction)
		spending.POST("/check", h.CheckSpend)
		spending.PUT("/notifications", h.SetNotifications)
	}
}

func getUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

// GetConfig returns the user's spending config.
func (h *Handler) GetConfig(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		response.Unauthorized(c, "")
		return
	}

	cfg, err := h.service.GetConfig(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, "failed to load spending config")
		return
	}

	c.JSON(http.StatusOK, toConfigResponse(cfg, h.approachThreshold))
}

// GetHistory returns the spend ledger, newest first.
func (h *Handler) GetHistory(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		response.Unauthorized(c, "")
		return
	}

	cfg, err := h.service.GetConfig(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, "failed to load spending history")
		return
	}

	limit := len(cfg.History)
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 && n < limit {
			limit = n
		}
	}

	c.JSON(http.StatusOK, gin.H{"history": cfg.History[:limit]})
}

// CreateLimit creates a new spending limit.
func (h *Handler) CreateLimit(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		response.Unauthorized(c, "")
		return
	}

	var req CreateLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	period := model.LimitPeriod(req.Period)
	limit, err := h.service.CreateLimit(c.Request.Context(), userID, req.Amount, period, req.BlockOnExceed)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, LimitResponse(limit, h.approachThreshold))
}

// UpdateLimit enables or disables a limit.
func (h *Handler) UpdateLimit(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		response.Unauthorized(c, "")
		return
	}

	limitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid limit id")
		return
	}

	var req UpdateLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if err := h.service.SetLimitEnabled(c.Request.Context(), userID, limitID, *req.Enabled); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddLimitAlert attaches an alert to a limit.
func (h *Handler) AddLimitAlert(c *gin.Context) {
	limitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid limit id")
		return
	}
	h.addAlert(c, &limitID)
}

// AddGlobalAlert attaches a cap-less alert to the config.
func (h *Handler) AddGlobalAlert(c *gin.Context) {
	h.addAlert(c, nil)
}

func (h *Handler) addAlert(c *gin.Context, limitID *uuid.UUID) {
	userID := getUserID(c)
	if userID == "" {
		response.Unauthorized(c, "")
		return
	}

	var req CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.Threshold == nil && req.Percentage == nil {
		response.BadRequest(c, "alert needs a threshold or a percentage")
		return
	}

	alert := model.SpendingAlert{
		Name:       req.Name,
		Threshold:  req.Threshold,
		Percentage: req.Percentage,
		Frequency:  model.AlertFrequency(req.Frequency),
		Channels:   req.Channels,
		Enabled:    true,
	}

	created, err := h.service.AddAlert(c.Request.Context(), userID, limitID, alert)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// AddTransaction records a spend event.
func (h *Handler) AddTransaction(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		response.Unauthorized(c, "")
		return
	}

	var req AddTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	cfg, fired, err := h.service.AddTransaction(c.Request.Context(), userID, req.Amount, req.Description, model.SpendCategory(req.Category))
	if err != nil {
		h.handleError(c, err)
		return
	}

	if fired == nil {
		fired = []model.SpendingAlert{}
	}
	c.JSON(http.StatusOK, TransactionResponse{
		Config:          toConfigResponse(cfg, h.approachThreshold),
		TriggeredAlerts: fired,
	})
}

// CheckSpend runs the pre-spend check without recording anything.
func (h *Handler) CheckSpend(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		response.Unauthorized(c, "")
		return
	}

	var req CheckSpendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	check, err := h.service.CanSpend(c.Request.Context(), userID, req.Amount)
	if err != nil {
		response.InternalError(c, "failed to check spending limits")
		return
	}

	c.JSON(http.StatusOK, check)
}

// SetNotifications toggles alert notifications for the user.
func (h *Handler) SetNotifications(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		response.Unauthorized(c, "")
		return
	}

	var req NotificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if err := h.service.SetNotificationsEnabled(c.Request.Context(), userID, *req.Enabled); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrLimitBlocked):
		response.ErrorWithCode(c, http.StatusPaymentRequired, "LIMIT_BLOCKED", err.Error())
	case errors.Is(err, ErrLimitNotFound):
		response.NotFound(c, "spending limit not found")
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidPeriod), errors.Is(err, ErrInvalidCategory):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, "")
	}
}
