//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/cardshield/internal/gate"
	"github.com/richxcame/cardshield/test/helpers"
)

func TestGate_PostgresCredentials(t *testing.T) {
	pool := helpers.SetupTestDatabase(t)
	helpers.ResetTables(t, pool, "api_keys")
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO api_keys (key_id, api_key, signing_secret, active)
		VALUES ($1, $2, $3, TRUE)
	`, "checkout-service", "test-api-key", "test-signing-secret")
	require.NoError(t, err)

	validator := gate.NewValidator(gate.NewPostgresCredentialStore(pool), nil)

	body := []byte(`{"amount": 42.50}`)
	meta := gate.RequestMeta{
		KeyID:     "checkout-service",
		APIKey:    "test-api-key",
		Signature: gate.SignPayload("test-signing-secret", body),
		Body:      body,
		Endpoint:  "/api/v1/risk/analyze",
	}

	require.NoError(t, validator.ValidateRequest(ctx, meta))

	// Wrong API key
	bad := meta
	bad.APIKey = "wrong"
	assert.ErrorIs(t, validator.ValidateRequest(ctx, bad), gate.ErrAuthenticationFailed)

	// Tampered body invalidates the signature
	tampered := meta
	tampered.Body = []byte(`{"amount": 999999}`)
	assert.ErrorIs(t, validator.ValidateRequest(ctx, tampered), gate.ErrInvalidSignature)

	// Unknown key id
	unknown := meta
	unknown.KeyID = "nobody"
	assert.ErrorIs(t, validator.ValidateRequest(ctx, unknown), gate.ErrAuthenticationFailed)
}
