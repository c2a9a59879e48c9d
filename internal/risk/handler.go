package risk

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/richxcame/cardshield/internal/card"
	"github.com/richxcame/cardshield/pkg/common"
	"github.com/richxcame/cardshield/pkg/config"
	"github.com/richxcame/cardshield/pkg/jwtkeys"
	"github.com/richxcame/cardshield/pkg/middleware"
	"github.com/richxcame/cardshield/pkg/pagination"
	"github.com/richxcame/cardshield/pkg/ratelimit"
	"github.com/richxcame/cardshield/pkg/validation"
)

// Handler handles HTTP requests for fraud risk scoring
type Handler struct {
	service  *Service
	repo     *Repository
	denyList *card.DenyListRepository
	zones    *ZoneRepository
}

// NewHandler creates a new risk handler
func NewHandler(service *Service, repo *Repository, denyList *card.DenyListRepository, zones *ZoneRepository) *Handler {
	return &Handler{service: service, repo: repo, denyList: denyList, zones: zones}
}

// RegisterRoutes registers scoring routes. The analyze endpoint is
// service-to-service and sits behind the request gate, which carries its own
// per-key rate limit; configuration and list management are dashboard
// operations behind JWT admin auth plus the HTTP rate limiter.
func (h *Handler) RegisterRoutes(router *gin.Engine, jwtProvider jwtkeys.KeyProvider, gate gin.HandlerFunc, limiter *ratelimit.Limiter, rateLimitCfg config.RateLimitConfig) {
	api := router.Group("/api/v1/risk")

	scoring := api.Group("")
	if gate != nil {
		scoring.Use(gate)
	}
	{
		scoring.POST("/analyze", h.AnalyzeTransaction)
	}

	admin := api.Group("")
	admin.Use(middleware.AuthMiddlewareWithProvider(jwtProvider))
	admin.Use(middleware.RateLimit(limiter, rateLimitCfg))
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/config", h.GetConfig)
		admin.PUT("/config", h.UpdateConfig)

		admin.GET("/assessments/:id", h.GetAssessment)
		admin.GET("/users/:id/assessments", h.GetUserAssessments)

		admin.GET("/denylist", h.ListDenyList)
		admin.POST("/denylist", h.AddDenyListEntry)
		admin.DELETE("/denylist/:fingerprint", h.RemoveDenyListEntry)

		admin.GET("/zones", h.ListZones)
		admin.POST("/zones", h.CreateZone)
		admin.DELETE("/zones/:id", h.DeleteZone)
	}
}

// AnalyzeTransaction scores a transaction
func (h *Handler) AnalyzeTransaction(c *gin.Context) {
	var req validation.ScoreTransactionRequest
	if !common.BindJSON(c, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid user ID")
		return
	}

	payment := PaymentContext{
		UserID:          userID,
		Amount:          req.Amount,
		Currency:        req.Currency,
		CardFingerprint: strings.ToLower(req.CardFingerprint),
		DeviceID:        req.DeviceID,
		Timestamp:       time.Now().UTC(),
	}
	if req.TokenID != "" {
		payment.MethodToken = req.TokenID
	}
	if req.Latitude != nil && req.Longitude != nil {
		payment.Location = &Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	risk, err := h.service.AnalyzeRisk(c.Request.Context(), payment)
	if err != nil {
		if errors.Is(err, ErrDependencyUnavailable) {
			common.ErrorResponse(c, http.StatusServiceUnavailable, "risk analysis temporarily unavailable")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to analyze transaction")
		return
	}

	common.SuccessResponse(c, risk)
}

// GetConfig returns the active scoring configuration
func (h *Handler) GetConfig(c *gin.Context) {
	common.SuccessResponse(c, h.service.Configuration())
}

// UpdateConfig swaps in a new scoring configuration
func (h *Handler) UpdateConfig(c *gin.Context) {
	var req validation.UpdateRiskConfigRequest
	if !common.BindJSON(c, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	current := h.service.Configuration()

	next := &Configuration{
		Enabled:     current.Enabled,
		Sensitivity: Sensitivity(req.Sensitivity),
		Thresholds:  current.Thresholds,
	}
	if req.Enabled != nil {
		next.Enabled = *req.Enabled
	}
	if len(req.EnabledRules) == 0 {
		next.EnabledRules = current.EnabledRules
	} else {
		for _, rule := range req.EnabledRules {
			next.EnabledRules = append(next.EnabledRules, FactorType(rule))
		}
	}
	if claims, err := middleware.GetUserID(c); err == nil {
		next.UpdatedBy = claims.String()
	}

	if err := h.service.UpdateConfiguration(c.Request.Context(), next); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	common.SuccessResponse(c, next)
}

// GetAssessment retrieves a past assessment
func (h *Handler) GetAssessment(c *gin.Context) {
	assessmentID, ok := common.ParseUUIDParam(c, "id", "assessment ID")
	if !ok {
		return
	}

	risk, err := h.repo.GetAssessment(c.Request.Context(), assessmentID)
	if err != nil {
		common.ErrorResponse(c, http.StatusNotFound, "assessment not found")
		return
	}

	common.SuccessResponse(c, risk)
}

// GetUserAssessments lists a user's assessment history
func (h *Handler) GetUserAssessments(c *gin.Context) {
	userID, ok := common.ParseUUIDParam(c, "id", "user ID")
	if !ok {
		return
	}
	params := pagination.ParseParams(c)

	assessments, total, err := h.repo.ListAssessmentsByUser(c.Request.Context(), userID, params.Limit, params.Offset)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list assessments")
		return
	}

	meta := pagination.BuildMeta(params.Limit, params.Offset, total)
	common.SuccessResponseWithMeta(c, assessments, meta)
}

// ListDenyList lists deny-list entries
func (h *Handler) ListDenyList(c *gin.Context) {
	params := pagination.ParseParams(c)

	entries, err := h.denyList.List(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list deny list")
		return
	}

	common.SuccessResponse(c, entries)
}

// AddDenyListEntry adds a card fingerprint to the deny list
func (h *Handler) AddDenyListEntry(c *gin.Context) {
	var req validation.DenyListEntryRequest
	if !common.BindJSON(c, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	entry := &card.DenyListEntry{
		Fingerprint: req.Fingerprint,
		Reason:      req.Reason,
		AddedAt:     time.Now().UTC(),
	}
	if userID, err := middleware.GetUserID(c); err == nil {
		entry.AddedBy = userID.String()
	}

	if err := h.denyList.Add(c.Request.Context(), entry); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to add deny list entry")
		return
	}

	common.CreatedResponse(c, entry)
}

// RemoveDenyListEntry removes a fingerprint from the deny list
func (h *Handler) RemoveDenyListEntry(c *gin.Context) {
	fingerprint := c.Param("fingerprint")
	if len(fingerprint) != 64 {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid fingerprint")
		return
	}

	if err := h.denyList.Remove(c.Request.Context(), fingerprint); err != nil {
		if card.IsNotFound(err) {
			common.ErrorResponse(c, http.StatusNotFound, "fingerprint not on deny list")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to remove deny list entry")
		return
	}

	common.SuccessResponse(c, gin.H{"removed": fingerprint})
}

// ListZones lists high-risk zones
func (h *Handler) ListZones(c *gin.Context) {
	zones, err := h.zones.ListZones(c.Request.Context())
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list risk zones")
		return
	}

	common.SuccessResponse(c, zones)
}

// CreateZone defines a new high-risk zone
func (h *Handler) CreateZone(c *gin.Context) {
	var req validation.RiskZoneRequest
	if !common.BindJSON(c, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	zone := &RiskZone{
		ID:        uuid.New(),
		Label:     req.Label,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		RadiusKm:  req.RadiusKm,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.zones.CreateZone(c.Request.Context(), zone); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to create risk zone")
		return
	}

	common.CreatedResponse(c, zone)
}

// DeleteZone removes a high-risk zone
func (h *Handler) DeleteZone(c *gin.Context) {
	zoneID, ok := common.ParseUUIDParam(c, "id", "zone ID")
	if !ok {
		return
	}

	if err := h.zones.DeleteZone(c.Request.Context(), zoneID); err != nil {
		common.ErrorResponse(c, http.StatusNotFound, "risk zone not found")
		return
	}

	common.SuccessResponse(c, gin.H{"deleted": zoneID})
}
