package validation

import "time"

// Common validation rules and request structs shared across services.

// ValidateCardRequest is the payload for structural card validation.
type ValidateCardRequest struct {
	CardNumber  string `json:"card_number" validate:"required,card_number"`
	CVV         string `json:"cvv" validate:"required,cvv"`
	ExpiryMonth int    `json:"expiry_month" validate:"required,expiry_month"`
	ExpiryYear  int    `json:"expiry_year" validate:"required,gte=2000,lte=2100"`
	HolderName  string `json:"holder_name" validate:"omitempty,min=2,max=100"`
}

// TokenizeCardRequest is the payload for vault tokenization.
type TokenizeCardRequest struct {
	CardNumber  string `json:"card_number" validate:"required,card_number"`
	CVV         string `json:"cvv" validate:"required,cvv"`
	ExpiryMonth int    `json:"expiry_month" validate:"required,expiry_month"`
	ExpiryYear  int    `json:"expiry_year" validate:"required,gte=2000,lte=2100"`
	HolderName  string `json:"holder_name" validate:"omitempty,min=2,max=100"`
	UserID      string `json:"user_id" validate:"required,uuid"`
}

// ScoreTransactionRequest is the payload for a risk assessment. Raw card
// numbers never cross this API; callers that want deny-list screening send
// the card's SHA-256 fingerprint instead.
type ScoreTransactionRequest struct {
	UserID          string   `json:"user_id" validate:"required,uuid"`
	TokenID         string   `json:"token_id" validate:"omitempty,uuid"`
	Amount          float64  `json:"amount" validate:"required,gt=0"`
	Currency        string   `json:"currency" validate:"required,len=3,alpha"`
	CardFingerprint string   `json:"card_fingerprint" validate:"omitempty,len=64,hexadecimal"`
	DeviceID        string   `json:"device_id" validate:"omitempty,max=255"`
	Latitude        *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude       *float64 `json:"longitude" validate:"omitempty,longitude"`
}

// UpdateRiskConfigRequest changes the runtime scoring configuration.
type UpdateRiskConfigRequest struct {
	Sensitivity  string   `json:"sensitivity" validate:"required,sensitivity"`
	EnabledRules []string `json:"enabled_rules" validate:"omitempty,dive,risk_rule"`
	Enabled      *bool    `json:"enabled" validate:"omitempty"`
}

// DenyListEntryRequest adds a card fingerprint to the deny list.
type DenyListEntryRequest struct {
	Fingerprint string `json:"fingerprint" validate:"required,len=64,hexadecimal"`
	Reason      string `json:"reason" validate:"required,min=3,max=500"`
}

// RiskZoneRequest defines a geographic high-risk zone.
type RiskZoneRequest struct {
	Latitude  float64 `json:"latitude" validate:"required,latitude"`
	Longitude float64 `json:"longitude" validate:"required,longitude"`
	RadiusKm  float64 `json:"radius_km" validate:"required,gt=0,lte=100"`
	Label     string  `json:"label" validate:"required,min=2,max=200"`
}

// PaginationRequest represents common pagination parameters
type PaginationRequest struct {
	Limit   int    `json:"limit" validate:"omitempty,gte=1,lte=100"`
	Offset  int    `json:"offset" validate:"omitempty,gte=0"`
	SortBy  string `json:"sort_by" validate:"omitempty,alpha"`
	SortDir string `json:"sort_dir" validate:"omitempty,oneof=asc desc"`
}

// ValidateExpiry checks that a card expiry is not in the past. The card is
// considered valid through the last day of its expiry month.
func ValidateExpiry(month, year int, now time.Time) error {
	ve := &ValidationError{}
	if month < 1 || month > 12 {
		ve.AddError("expiry_month", "month must be between 1 and 12")
	}
	if ve.HasErrors() {
		return ve
	}

	endOfMonth := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, 0).Add(-time.Nanosecond)
	if now.After(endOfMonth) {
		ve.AddError("expiry", "card is expired")
		return ve
	}
	return nil
}

// ValidateDateRange validates that end date is after start date
func ValidateDateRange(start, end time.Time) error {
	if end.Before(start) {
		return &ValidationError{
			Errors: map[string]string{
				"date_range": "End date must be after start date",
			},
		}
	}
	return nil
}
