package entitlement

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lumastudio/server/internal/model"
	"github.com/lumastudio/server/internal/shared/response"
)

// Handler handles HTTP requests for entitlement queries.
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new entitlement handler.
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the entitlement routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/entitlement", h.GetEntitlement)
	r.POST("/generations", h.ConsumeGeneration)
}

// StatusResponse is the API view of a subscription status plus derived
// entitlement queries.
type StatusResponse struct {
	Status              *model.SubscriptionStatus `json:"status"`
	Entitlement         model.Entitlement         `json:"entitlement"`
	CanGenerate         bool                      `json:"can_generate"`
	Remaining           *int                      `json:"remaining"`
	ShouldPromptUpgrade bool                      `json:"should_prompt_upgrade"`
}

func toStatusResponse(st *model.SubscriptionStatus) *StatusResponse {
	return &StatusResponse{
		Status:              st,
		Entitlement:         ForTier(st.Tier),
		CanGenerate:         CanGenerate(st),
		Remaining:           Remaining(st),
		ShouldPromptUpgrade: ShouldPromptUpgrade(st),
	}
}

// GetEntitlement returns the user's tier, quota, and feature flags.
func (h *Handler) GetEntitlement(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Unauthorized(c, "")
		return
	}

	st, err := h.service.GetStatus(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, "failed to load subscription status")
		return
	}

	c.JSON(http.StatusOK, toStatusResponse(st))
}

// ConsumeGeneration records one generation against the user's quota.
func (h *Handler) ConsumeGeneration(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Unauthorized(c, "")
		return
	}

	st, err := h.service.ConsumeGeneration(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrGenerationLimitReached) {
			response.ErrorWithCode(c, http.StatusPaymentRequired, "QUOTA_EXCEEDED", "monthly generation limit reached")
			return
		}
		response.InternalError(c, "failed to record generation")
		return
	}

	c.JSON(http.StatusOK, toStatusResponse(st))
}
