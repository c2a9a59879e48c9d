package card

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Brand represents a detected card network
type Brand string

const (
	BrandVisa       Brand = "visa"
	BrandMastercard Brand = "mastercard"
	BrandAmex       Brand = "amex"
	BrandDiscover   Brand = "discover"
	BrandUnknown    Brand = "unknown"
)

// CardData is the plaintext card payload. It is never persisted as-is;
// storage always goes through the vault as ciphertext or a token.
type CardData struct {
	Number         string `json:"number"`
	ExpiryMonth    int    `json:"expiry_month"`
	ExpiryYear     int    `json:"expiry_year"`
	CVV            string `json:"cvv"`
	CardholderName string `json:"cardholder_name,omitempty"`
}

// Normalized returns the card number with spaces and dashes stripped
func (c CardData) Normalized() string {
	var b strings.Builder
	b.Grow(len(c.Number))
	for _, r := range c.Number {
		if r != ' ' && r != '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LastFour returns the literal last four characters of the card number
func (c CardData) LastFour() string {
	number := c.Normalized()
	if len(number) < 4 {
		return number
	}
	return number[len(number)-4:]
}

// Brand detects the card network from the number prefix
func (c CardData) Brand() Brand {
	return DetectBrand(c.Normalized())
}

// Fingerprint returns the SHA-256 hex digest of the normalized card number.
// Deny-list entries and cache keys use fingerprints so the PAN itself never
// leaves the request path.
func (c CardData) Fingerprint() string {
	return Fingerprint(c.Normalized())
}

// Fingerprint hashes a normalized card number for deny-list lookups
func Fingerprint(number string) string {
	sum := sha256.Sum256([]byte(number))
	return hex.EncodeToString(sum[:])
}

// DetectBrand detects the card network from a normalized number prefix.
// Prefix 4 is visa, 5 mastercard, 34/37 amex, 6 discover, anything else unknown.
func DetectBrand(number string) Brand {
	if number == "" {
		return BrandUnknown
	}

	switch number[0] {
	case '4':
		return BrandVisa
	case '5':
		return BrandMastercard
	case '3':
		if len(number) >= 2 && (number[1] == '4' || number[1] == '7') {
			return BrandAmex
		}
		return BrandUnknown
	case '6':
		return BrandDiscover
	default:
		return BrandUnknown
	}
}

// CVVLength returns the expected CVV length for a brand
func CVVLength(brand Brand) int {
	if brand == BrandAmex {
		return 4
	}
	return 3
}
