package vault

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/cardshield/internal/card"
)

var (
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrTokenNotFound    = errors.New("token not found")
	ErrTokenRevoked     = errors.New("token is revoked")
)

// FormatVersion identifies the ciphertext layout. Bump when the payload
// serialization or cipher changes.
const FormatVersion = 1

// EncryptedCardData is the authenticated ciphertext form of a card payload.
// Decryption requires the same key that produced it.
type EncryptedCardData struct {
	Ciphertext []byte    `json:"ciphertext"`
	Nonce      []byte    `json:"nonce"`
	CreatedAt  time.Time `json:"created_at"`
	Version    int       `json:"version"`
}

// CardToken is the non-reversible reference handed back to callers after
// tokenization. It carries only displayable card metadata; the PAN lives in
// the vault as ciphertext keyed by the token id.
type CardToken struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	LastFour    string     `json:"last_four"`
	Brand       card.Brand `json:"brand"`
	ExpiryMonth int        `json:"expiry_month"`
	ExpiryYear  int        `json:"expiry_year"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}
