package gate

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/richxcame/cardshield/pkg/common"
)

const (
	headerKeyID     = "X-API-Key-ID"
	headerAPIKey    = "X-API-Key"
	headerSignature = "X-Signature"
)

// Middleware runs the gate in front of a route group. The body is read for
// the signature check and restored for downstream handlers.
func Middleware(validator *Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body []byte
		if c.Request.Body != nil {
			var err error
			body, err = io.ReadAll(c.Request.Body)
			if err != nil {
				common.ErrorResponse(c, http.StatusBadRequest, "unreadable request body")
				c.Abort()
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		meta := RequestMeta{
			KeyID:     c.GetHeader(headerKeyID),
			APIKey:    c.GetHeader(headerAPIKey),
			Signature: c.GetHeader(headerSignature),
			Body:      body,
			Endpoint:  c.FullPath(),
			ClientIP:  c.ClientIP(),
			Timestamp: time.Now().UTC(),
		}

		if err := validator.ValidateRequest(c.Request.Context(), meta); err != nil {
			switch {
			case errors.Is(err, ErrAuthenticationFailed):
				common.ErrorResponse(c, http.StatusUnauthorized, "authentication failed")
			case errors.Is(err, ErrInvalidSignature):
				common.ErrorResponse(c, http.StatusForbidden, "invalid request signature")
			case errors.Is(err, ErrRateLimitExceeded):
				common.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
			default:
				common.ErrorResponse(c, http.StatusServiceUnavailable, "request validation unavailable")
			}
			c.Abort()
			return
		}

		c.Next()
	}
}
