package card

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/richxcame/cardshield/pkg/common"
)

// Validation failures, one per check. The first failing check wins.
var (
	ErrInvalidCardNumber = errors.New("invalid card number")
	ErrInvalidExpiryDate = errors.New("invalid expiry date")
	ErrInvalidCVV        = errors.New("invalid cvv")
	ErrFraudulentCard    = errors.New("card is on the deny list")
)

const (
	minPANLength = 13
	maxPANLength = 19
)

// DenyList looks up known-fraudulent card fingerprints
type DenyList interface {
	Contains(ctx context.Context, fingerprint string) (bool, error)
}

// Validator checks card data before it may be tokenized, encrypted or scored.
// Checks run in a fixed order: number format, Luhn, expiry, CVV length by
// brand, deny-list lookup.
type Validator struct {
	denyList DenyList
	now      func() time.Time
}

// NewValidator creates a card validator. denyList may be nil, in which case
// the deny-list check is skipped.
func NewValidator(denyList DenyList) *Validator {
	return &Validator{
		denyList: denyList,
		now:      time.Now,
	}
}

// WithNow overrides the clock, used by tests
func (v *Validator) WithNow(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate runs all checks against the card. It returns the first failure
// as one of the typed validation errors; a deny-list lookup failure surfaces
// as a dependency error so the caller can retry.
func (v *Validator) Validate(ctx context.Context, data CardData) error {
	number := data.Normalized()

	if len(number) < minPANLength || len(number) > maxPANLength {
		return ErrInvalidCardNumber
	}
	for i := 0; i < len(number); i++ {
		if number[i] < '0' || number[i] > '9' {
			return ErrInvalidCardNumber
		}
	}

	if !Luhn(number) {
		return ErrInvalidCardNumber
	}

	if err := v.validateExpiry(data.ExpiryMonth, data.ExpiryYear); err != nil {
		return err
	}

	brand := DetectBrand(number)
	if err := validateCVV(data.CVV, brand); err != nil {
		return err
	}

	if v.denyList != nil {
		denied, err := v.denyList.Contains(ctx, Fingerprint(number))
		if err != nil {
			return fmt.Errorf("%w: deny list lookup: %v", common.ErrDependencyDown, err)
		}
		if denied {
			return ErrFraudulentCard
		}
	}

	return nil
}

func (v *Validator) validateExpiry(month, year int) error {
	if month < 1 || month > 12 {
		return ErrInvalidExpiryDate
	}

	now := v.now()
	if year < now.Year() {
		return ErrInvalidExpiryDate
	}
	if year == now.Year() && month < int(now.Month()) {
		return ErrInvalidExpiryDate
	}

	return nil
}

func validateCVV(cvv string, brand Brand) error {
	if len(cvv) != CVVLength(brand) {
		return ErrInvalidCVV
	}
	for i := 0; i < len(cvv); i++ {
		if cvv[i] < '0' || cvv[i] > '9' {
			return ErrInvalidCVV
		}
	}
	return nil
}
