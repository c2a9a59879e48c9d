package alerts

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/cardshield/pkg/common"
	"github.com/richxcame/cardshield/pkg/config"
	"github.com/richxcame/cardshield/pkg/jwtkeys"
	"github.com/richxcame/cardshield/pkg/middleware"
	"github.com/richxcame/cardshield/pkg/models"
	"github.com/richxcame/cardshield/pkg/pagination"
	"github.com/richxcame/cardshield/pkg/ratelimit"
	ws "github.com/richxcame/cardshield/pkg/websocket"
)

// Handler exposes the alert investigation API and the live alert feed.
type Handler struct {
	service *Service
	hub     *ws.Hub
}

// NewHandler creates a new alerts handler.
func NewHandler(service *Service, hub *ws.Hub) *Handler {
	return &Handler{service: service, hub: hub}
}

// RegisterRoutes registers alert routes. Reads are open to analysts and
// admins; investigation actions require either role as well since analysts
// work the queue.
func (h *Handler) RegisterRoutes(router *gin.Engine, jwtProvider jwtkeys.KeyProvider, limiter *ratelimit.Limiter, rateLimitCfg config.RateLimitConfig) {
	// Browser WebSocket clients cannot send an Authorization header, so the
	// live feed authenticates its own token (query param or header) instead
	// of going through the auth middleware group.
	router.GET("/api/v1/alerts/ws", func(c *gin.Context) {
		if h.hub == nil {
			common.ErrorResponse(c, http.StatusServiceUnavailable, "live feed unavailable")
			return
		}
		ws.HandleWebSocket(c, h.hub, jwtProvider, ChannelAlerts)
	})

	api := router.Group("/api/v1/alerts")
	api.Use(middleware.AuthMiddlewareWithProvider(jwtProvider))
	api.Use(middleware.RateLimit(limiter, rateLimitCfg))
	api.Use(middleware.RequireRole(models.RoleAdmin, models.RoleAnalyst))
	{
		api.GET("", h.ListOpenAlerts)
		api.GET("/statistics", h.GetStatistics)
		api.GET("/:id", h.GetAlert)
		api.PUT("/:id/investigate", h.InvestigateAlert)
		api.PUT("/:id/resolve", h.ResolveAlert)
		api.GET("/users/:id", h.GetUserAlerts)
	}
}

// ListOpenAlerts returns alerts awaiting investigation, most severe first.
func (h *Handler) ListOpenAlerts(c *gin.Context) {
	params := pagination.ParseParams(c)

	alerts, total, err := h.service.ListOpenAlerts(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []*Alert{}
	}

	common.SuccessResponseWithMeta(c, alerts, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// GetAlert returns a single alert by ID.
func (h *Handler) GetAlert(c *gin.Context) {
	alertID, ok := common.ParseUUIDParam(c, "id", "alert ID")
	if !ok {
		return
	}

	alert, err := h.service.GetAlert(c.Request.Context(), alertID)
	if err != nil {
		if err == ErrAlertNotFound {
			common.ErrorResponse(c, http.StatusNotFound, "alert not found")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to get alert")
		return
	}

	common.SuccessResponse(c, alert)
}

// InvestigateAlert assigns a pending alert to the calling analyst.
func (h *Handler) InvestigateAlert(c *gin.Context) {
	alertID, ok := common.ParseUUIDParam(c, "id", "alert ID")
	if !ok {
		return
	}

	analystID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "invalid user ID")
		return
	}

	if err := h.service.Investigate(c.Request.Context(), alertID, analystID); err != nil {
		if err == ErrAlertNotFound {
			common.ErrorResponse(c, http.StatusNotFound, "alert not found or already under investigation")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to investigate alert")
		return
	}

	common.SuccessResponse(c, gin.H{"message": "alert marked as investigating"})
}

// ResolveAlertRequest carries an analyst's conclusion for an alert.
type ResolveAlertRequest struct {
	Status      string `json:"status" binding:"required,oneof=confirmed false_positive resolved"`
	Notes       string `json:"notes"`
	ActionTaken string `json:"action_taken"`
}

// ResolveAlert closes an alert with the analyst's conclusion.
func (h *Handler) ResolveAlert(c *gin.Context) {
	alertID, ok := common.ParseUUIDParam(c, "id", "alert ID")
	if !ok {
		return
	}

	var req ResolveAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Resolve(c.Request.Context(), alertID, AlertStatus(req.Status), req.Notes, req.ActionTaken); err != nil {
		if err == ErrAlertNotFound {
			common.ErrorResponse(c, http.StatusNotFound, "alert not found or already closed")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to resolve alert")
		return
	}

	common.SuccessResponse(c, gin.H{"message": "alert resolved"})
}

// GetUserAlerts returns the alert history for a user.
func (h *Handler) GetUserAlerts(c *gin.Context) {
	userID, ok := common.ParseUUIDParam(c, "id", "user ID")
	if !ok {
		return
	}
	params := pagination.ParseParams(c)

	alerts, total, err := h.service.ListUserAlerts(c.Request.Context(), userID, params.Limit, params.Offset)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []*Alert{}
	}

	common.SuccessResponseWithMeta(c, alerts, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// GetStatistics summarizes alert volume over the requested window (default 24h).
func (h *Handler) GetStatistics(c *gin.Context) {
	window := 24 * time.Hour
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid window duration")
			return
		}
		window = parsed
	}

	stats, err := h.service.Statistics(c.Request.Context(), time.Now().UTC().Add(-window))
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to get statistics")
		return
	}

	common.SuccessResponse(c, stats)
}

