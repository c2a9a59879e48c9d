package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/richxcame/cardshield/internal/card"
)

// Cipher encrypts card payloads with XChaCha20-Poly1305. A fresh random
// nonce is generated per call; the 24-byte nonce space makes random nonces
// safe for any realistic call volume under a single key.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates a cipher from a 32-byte key
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("cipher key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals a card payload into authenticated ciphertext
func (c *Cipher) Encrypt(data card.CardData) (*EncryptedCardData, error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: nonce generation: %v", ErrEncryptionFailed, err)
	}

	return &EncryptedCardData{
		Ciphertext: c.aead.Seal(nil, nonce, plaintext, nil),
		Nonce:      nonce,
		CreatedAt:  time.Now().UTC(),
		Version:    FormatVersion,
	}, nil
}

// Decrypt opens authenticated ciphertext back into the card payload. It
// fails when the authentication tag does not verify, which covers both
// tampered data and a wrong key.
func (c *Cipher) Decrypt(enc *EncryptedCardData) (card.CardData, error) {
	if enc == nil || len(enc.Ciphertext) == 0 {
		return card.CardData{}, fmt.Errorf("%w: empty payload", ErrDecryptionFailed)
	}
	if len(enc.Nonce) != c.aead.NonceSize() {
		return card.CardData{}, fmt.Errorf("%w: bad nonce length", ErrDecryptionFailed)
	}

	plaintext, err := c.aead.Open(nil, enc.Nonce, enc.Ciphertext, nil)
	if err != nil {
		return card.CardData{}, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	var data card.CardData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return card.CardData{}, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	return data, nil
}
