package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// CardValidatedData is emitted after a card passes structural validation.
// Only masked card data ever crosses the bus.
type CardValidatedData struct {
	UserID      uuid.UUID `json:"user_id"`
	MaskedPAN   string    `json:"masked_pan"`
	Brand       string    `json:"brand"`
	ValidatedAt time.Time `json:"validated_at"`
}

// CardValidationFailedData is emitted when a card fails validation.
type CardValidationFailedData struct {
	UserID   uuid.UUID `json:"user_id"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// CardTokenizedData is emitted when a card is stored in the vault.
type CardTokenizedData struct {
	TokenID     uuid.UUID `json:"token_id"`
	UserID      uuid.UUID `json:"user_id"`
	MaskedPAN   string    `json:"masked_pan"`
	Brand       string    `json:"brand"`
	TokenizedAt time.Time `json:"tokenized_at"`
}

// TokenRevokedData is emitted when a vault token is revoked.
type TokenRevokedData struct {
	TokenID   uuid.UUID `json:"token_id"`
	UserID    uuid.UUID `json:"user_id"`
	Reason    string    `json:"reason"`
	RevokedAt time.Time `json:"revoked_at"`
}

// RiskAssessedData is emitted for every completed risk assessment.
type RiskAssessedData struct {
	AssessmentID uuid.UUID `json:"assessment_id"`
	UserID       uuid.UUID `json:"user_id"`
	Score        float64   `json:"score"`
	Level        string    `json:"level"`
	Factors      []string  `json:"factors"`
	AssessedAt   time.Time `json:"assessed_at"`
}

// FraudDetectedData is emitted when an assessment lands at high or
// critical risk. The alerts service fans this out to on-call staff.
type FraudDetectedData struct {
	AssessmentID uuid.UUID `json:"assessment_id"`
	UserID       uuid.UUID `json:"user_id"`
	Score        float64   `json:"score"`
	Level        string    `json:"level"`
	Factors      []string  `json:"factors"`
	Details      string    `json:"details"`
	DetectedAt   time.Time `json:"detected_at"`
}

// ConfigUpdatedData is emitted when the runtime risk configuration changes
// so every scoring instance can refresh its snapshot.
type ConfigUpdatedData struct {
	Sensitivity  string    `json:"sensitivity"`
	EnabledRules []string  `json:"enabled_rules"`
	UpdatedBy    string    `json:"updated_by"`
	UpdatedAt    time.Time `json:"updated_at"`
}
