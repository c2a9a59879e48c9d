package risk

import (
	"time"

	"github.com/google/uuid"

	"github.com/richxcame/cardshield/internal/card"
	"github.com/richxcame/cardshield/pkg/common"
)

// ErrDependencyUnavailable reports that a collaborator the analysis depends
// on could not be reached. It fails only the request that hit it; callers
// may retry with backoff. Missing data is not a dependency failure.
var ErrDependencyUnavailable = common.ErrDependencyDown

// FactorType identifies which analyzer produced a factor. The names double
// as the rule identifiers in the runtime configuration.
type FactorType string

const (
	FactorVelocity    FactorType = "velocity"
	FactorGeolocation FactorType = "geolocation"
	FactorDevice      FactorType = "device"
	FactorBehavior    FactorType = "behavior"
	FactorCardPattern FactorType = "card_pattern"
	FactorAmount      FactorType = "amount"
)

// AllFactorTypes lists every analyzer rule in a stable order.
var AllFactorTypes = []FactorType{
	FactorVelocity,
	FactorGeolocation,
	FactorDevice,
	FactorBehavior,
	FactorCardPattern,
	FactorAmount,
}

// FraudFactor is a single weighted fraud signal. Weight is fixed per signal
// kind; severity is computed per observation. Both sit in [0,1].
type FraudFactor struct {
	Type        FactorType `json:"type"`
	Weight      float64    `json:"weight"`
	Severity    float64    `json:"severity"`
	Description string     `json:"description"`
}

// Contribution is the factor's share of the aggregate score before clamping.
func (f FraudFactor) Contribution() float64 {
	return f.Weight * f.Severity * 100
}

// RiskLevel is the categorical outcome of an assessment.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// FraudRisk is a completed assessment.
type FraudRisk struct {
	ID         uuid.UUID     `json:"id"`
	UserID     uuid.UUID     `json:"user_id"`
	Score      float64       `json:"score"`
	Level      RiskLevel     `json:"level"`
	Factors    []FraudFactor `json:"factors"`
	AssessedAt time.Time     `json:"assessed_at"`
}

// FactorTypes returns the distinct factor types present, in factor order.
func (r *FraudRisk) FactorTypes() []string {
	seen := make(map[FactorType]struct{}, len(r.Factors))
	var types []string
	for _, f := range r.Factors {
		if _, ok := seen[f.Type]; ok {
			continue
		}
		seen[f.Type] = struct{}{}
		types = append(types, string(f.Type))
	}
	return types
}

// Location is a WGS84 point.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PaymentContext carries everything known about a transaction at scoring
// time. CardData is present only for raw-PAN flows; tokenized flows carry
// the vault token instead, plus an optional SHA-256 card fingerprint so the
// deny list can still be consulted without raw card data crossing the wire.
type PaymentContext struct {
	UserID          uuid.UUID
	Amount          float64
	Currency        string
	MethodToken     string
	CardData        *card.CardData
	CardFingerprint string
	DeviceID        string
	Location        *Location
	Timestamp       time.Time
}

// TransactionStats summarizes a customer's recent transaction window.
type TransactionStats struct {
	Count int64
	Total float64
}

// LocationRecord is a customer's last observed transaction location.
type LocationRecord struct {
	Latitude   float64
	Longitude  float64
	RecordedAt time.Time
}

// DeviceProfile is the reputation record for a device fingerprint.
type DeviceProfile struct {
	DeviceID     string
	Fraudulent   bool
	Inconsistent bool
	Suspicious   bool
}

// BehaviorProfile summarizes a customer's historical behavior signals.
type BehaviorProfile struct {
	UnusualPattern     bool
	VelocityViolations int
	GeoAnomaly         bool
}
