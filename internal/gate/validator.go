package gate

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/richxcame/cardshield/pkg/ratelimit"
)

// CredentialStore looks up registered API credentials by key id. A nil
// credential means the key id is unknown.
type CredentialStore interface {
	CredentialFor(ctx context.Context, keyID string) (*Credential, error)
}

// Validator is the request security gate: API-key authentication, payload
// signature verification and a per-key token-bucket rate limit. It is a
// pure gatekeeping check; its only side effect is the rate-limit counter.
type Validator struct {
	credentials CredentialStore
	limiter     *ratelimit.Limiter
}

// NewValidator creates the gate. limiter may be nil to disable rate
// limiting (tests, internal deployments behind another limiter).
func NewValidator(credentials CredentialStore, limiter *ratelimit.Limiter) *Validator {
	return &Validator{credentials: credentials, limiter: limiter}
}

// ValidateRequest runs the three checks in order: credential, signature,
// rate limit. Auth and signature failures are terminal; a rate-limit
// rejection is retryable after backoff.
func (v *Validator) ValidateRequest(ctx context.Context, meta RequestMeta) error {
	credential, err := v.credentials.CredentialFor(ctx, meta.KeyID)
	if err != nil {
		return fmt.Errorf("credential lookup: %w", err)
	}
	if credential == nil || !credential.Active {
		return ErrAuthenticationFailed
	}

	if subtle.ConstantTimeCompare([]byte(credential.APIKey), []byte(meta.APIKey)) != 1 {
		return ErrAuthenticationFailed
	}

	if credential.SigningSecret != "" {
		if !verifySignature(credential.SigningSecret, meta.Body, meta.Signature) {
			return ErrInvalidSignature
		}
	}

	if v.limiter != nil {
		endpoint := "POST:" + meta.Endpoint
		rule := v.limiter.RuleFor(endpoint, ratelimit.IdentityAuthenticated)
		if rule.Limit > 0 {
			result, err := v.limiter.Allow(ctx, endpoint, credential.KeyID, rule, ratelimit.IdentityAuthenticated)
			if err != nil {
				// The limiter failing open mirrors the HTTP middleware;
				// a Redis outage must not block all payments.
				return nil
			}
			if !result.Allowed {
				return fmt.Errorf("%w: retry after %s", ErrRateLimitExceeded, result.RetryAfter)
			}
		}
	}

	return nil
}

// SignPayload computes the hex HMAC-SHA256 a caller attaches to a request.
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifySignature(secret string, body []byte, signature string) bool {
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}
