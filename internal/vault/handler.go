package vault

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/richxcame/cardshield/internal/card"
	"github.com/richxcame/cardshield/pkg/common"
	"github.com/richxcame/cardshield/pkg/middleware"
	"github.com/richxcame/cardshield/pkg/pagination"
	"github.com/richxcame/cardshield/pkg/validation"
)

// Handler exposes the vault HTTP API
type Handler struct {
	service *Service
}

// NewHandler creates a vault handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the card and token endpoints. Everything is
// service-to-service, so the whole surface sits behind the internal API key;
// decrypt additionally never leaves the internal group.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	api.Use(middleware.InternalAPIKey())
	{
		cards := api.Group("/cards")
		{
			cards.POST("/validate", h.ValidateCard)
			cards.POST("/encrypt", h.EncryptCard)
			cards.POST("/decrypt", h.DecryptCard)
			cards.POST("/tokenize", h.TokenizeCard)
		}

		tokens := api.Group("/tokens")
		{
			tokens.GET("", h.ListTokens)
			tokens.GET("/:id", h.GetToken)
			tokens.GET("/:id/decrypt", h.DecryptToken)
			tokens.DELETE("/:id", h.RevokeToken)
		}
	}
}

// ValidateCard runs structural validation on a card
func (h *Handler) ValidateCard(c *gin.Context) {
	var req validation.ValidateCardRequest
	if !common.BindJSON(c, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	userID, ok := common.ParseUUIDQuery(c, "user_id", "user ID", true)
	if !ok {
		return
	}

	data := card.CardData{
		Number:         req.CardNumber,
		ExpiryMonth:    req.ExpiryMonth,
		ExpiryYear:     req.ExpiryYear,
		CVV:            req.CVV,
		CardholderName: req.HolderName,
	}

	if err := h.service.ValidateCard(c.Request.Context(), userID, data); err != nil {
		respondCardError(c, err)
		return
	}

	common.SuccessResponse(c, gin.H{
		"valid":     true,
		"brand":     data.Brand(),
		"last_four": data.LastFour(),
	})
}

// encryptedPayload is the wire form of EncryptedCardData
type encryptedPayload struct {
	Ciphertext string    `json:"ciphertext" binding:"required"`
	Nonce      string    `json:"nonce" binding:"required"`
	CreatedAt  time.Time `json:"created_at"`
	Version    int       `json:"version"`
}

func (p encryptedPayload) decode() (*EncryptedCardData, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(p.Ciphertext)
	if err != nil {
		return nil, err
	}
	nonce, err := base64.StdEncoding.DecodeString(p.Nonce)
	if err != nil {
		return nil, err
	}
	return &EncryptedCardData{
		Ciphertext: ciphertext,
		Nonce:      nonce,
		CreatedAt:  p.CreatedAt,
		Version:    p.Version,
	}, nil
}

func encodePayload(enc *EncryptedCardData) encryptedPayload {
	return encryptedPayload{
		Ciphertext: base64.StdEncoding.EncodeToString(enc.Ciphertext),
		Nonce:      base64.StdEncoding.EncodeToString(enc.Nonce),
		CreatedAt:  enc.CreatedAt,
		Version:    enc.Version,
	}
}

// EncryptCard validates and encrypts a card payload
func (h *Handler) EncryptCard(c *gin.Context) {
	var req validation.ValidateCardRequest
	if !common.BindJSON(c, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	data := card.CardData{
		Number:         req.CardNumber,
		ExpiryMonth:    req.ExpiryMonth,
		ExpiryYear:     req.ExpiryYear,
		CVV:            req.CVV,
		CardholderName: req.HolderName,
	}

	enc, err := h.service.Encrypt(c.Request.Context(), data)
	if err != nil {
		respondCardError(c, err)
		return
	}

	common.SuccessResponse(c, encodePayload(enc))
}

// DecryptCard opens an encrypted card payload
func (h *Handler) DecryptCard(c *gin.Context) {
	var req encryptedPayload
	if !common.BindJSON(c, &req) {
		return
	}

	enc, err := req.decode()
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "ciphertext and nonce must be base64")
		return
	}

	data, err := h.service.Decrypt(c.Request.Context(), enc)
	if err != nil {
		respondCardError(c, err)
		return
	}

	common.SuccessResponse(c, data)
}

// TokenizeCard validates a card and stores it in the vault
func (h *Handler) TokenizeCard(c *gin.Context) {
	var req validation.TokenizeCardRequest
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

	data := card.CardData{
		Number:         req.CardNumber,
		ExpiryMonth:    req.ExpiryMonth,
		ExpiryYear:     req.ExpiryYear,
		CVV:            req.CVV,
		CardholderName: req.HolderName,
	}

	token, err := h.service.Tokenize(c.Request.Context(), userID, data)
	if err != nil {
		respondCardError(c, err)
		return
	}

	common.CreatedResponse(c, token)
}

// GetToken retrieves token metadata
func (h *Handler) GetToken(c *gin.Context) {
	tokenID, ok := common.ParseUUIDParam(c, "id", "token ID")
	if !ok {
		return
	}

	token, err := h.service.GetToken(c.Request.Context(), tokenID)
	if err != nil {
		respondCardError(c, err)
		return
	}

	common.SuccessResponse(c, token)
}

// ListTokens lists tokens for a user
func (h *Handler) ListTokens(c *gin.Context) {
	userID, ok := common.ParseUUIDQuery(c, "user_id", "user ID", true)
	if !ok {
		return
	}

	params := pagination.ParseParams(c)

	tokens, err := h.service.ListTokens(c.Request.Context(), userID, params.Limit, params.Offset)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list tokens")
		return
	}

	if tokens == nil {
		tokens = []*CardToken{}
	}
	common.SuccessResponse(c, tokens)
}

// DecryptToken opens the stored payload behind a token
func (h *Handler) DecryptToken(c *gin.Context) {
	tokenID, ok := common.ParseUUIDParam(c, "id", "token ID")
	if !ok {
		return
	}

	data, err := h.service.DecryptToken(c.Request.Context(), tokenID)
	if err != nil {
		respondCardError(c, err)
		return
	}

	common.SuccessResponse(c, data)
}

// RevokeTokenRequest carries the optional revocation reason
type RevokeTokenRequest struct {
	Reason string `json:"reason"`
}

// RevokeToken deactivates a token
func (h *Handler) RevokeToken(c *gin.Context) {
	tokenID, ok := common.ParseUUIDParam(c, "id", "token ID")
	if !ok {
		return
	}

	var req RevokeTokenRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.service.Revoke(c.Request.Context(), tokenID, req.Reason); err != nil {
		respondCardError(c, err)
		return
	}

	common.SuccessResponse(c, gin.H{"message": "token revoked"})
}

// respondCardError maps domain errors onto HTTP responses
func respondCardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, card.ErrInvalidCardNumber),
		errors.Is(err, card.ErrInvalidExpiryDate),
		errors.Is(err, card.ErrInvalidCVV):
		common.ErrorResponse(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, card.ErrFraudulentCard):
		common.ErrorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrTokenNotFound):
		common.ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrTokenRevoked):
		common.ErrorResponse(c, http.StatusGone, err.Error())
	case errors.Is(err, ErrEncryptionFailed), errors.Is(err, ErrDecryptionFailed):
		common.ErrorResponse(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, common.ErrDependencyDown):
		common.ErrorResponse(c, http.StatusServiceUnavailable, "a dependency is unavailable, retry later")
	default:
		common.ErrorResponse(c, http.StatusInternalServerError, "internal error")
	}
}
