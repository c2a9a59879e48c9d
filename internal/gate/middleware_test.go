package gate

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGateRouter(t *testing.T, validator *Validator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/api/v1/risk/analyze", Middleware(validator), func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.JSON(http.StatusOK, gin.H{"body_len": len(body)})
	})
	return router
}

func TestMiddleware_AllowsSignedRequest(t *testing.T) {
	credential := testCredential()
	router := newGateRouter(t, NewValidator(NewStaticCredentialStore(credential), nil))

	body := []byte(`{"amount":50}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/analyze", bytes.NewReader(body))
	req.Header.Set(headerKeyID, credential.KeyID)
	req.Header.Set(headerAPIKey, credential.APIKey)
	req.Header.Set(headerSignature, SignPayload(credential.SigningSecret, body))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	// The body must be restored for the downstream handler.
	assert.Contains(t, w.Body.String(), `"body_len":13`)
}

func TestMiddleware_RejectsMissingCredentials(t *testing.T) {
	router := newGateRouter(t, NewValidator(NewStaticCredentialStore(testCredential()), nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/analyze", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_RejectsBadSignature(t *testing.T) {
	credential := testCredential()
	router := newGateRouter(t, NewValidator(NewStaticCredentialStore(credential), nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/analyze", bytes.NewReader([]byte(`{"amount":50}`)))
	req.Header.Set(headerKeyID, credential.KeyID)
	req.Header.Set(headerAPIKey, credential.APIKey)
	req.Header.Set(headerSignature, SignPayload(credential.SigningSecret, []byte(`{"amount":1}`)))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
