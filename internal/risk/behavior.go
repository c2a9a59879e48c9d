package risk

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// BehaviorHistory looks up a customer's behavioral profile. A nil profile
// means the customer has no recorded history.
type BehaviorHistory interface {
	Profile(ctx context.Context, userID uuid.UUID) (*BehaviorProfile, error)
}

// BehaviorAnalyzer flags customers whose transaction history shows unusual
// patterns, repeated velocity violations or geographic anomalies.
type BehaviorAnalyzer struct {
	history BehaviorHistory
}

// NewBehaviorAnalyzer creates the analyzer.
func NewBehaviorAnalyzer(history BehaviorHistory) *BehaviorAnalyzer {
	return &BehaviorAnalyzer{history: history}
}

func (a *BehaviorAnalyzer) Type() FactorType { return FactorBehavior }

func (a *BehaviorAnalyzer) Analyze(ctx context.Context, payment PaymentContext) ([]FraudFactor, error) {
	profile, err := a.history.Profile(ctx, payment.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: behavior history: %v", ErrDependencyUnavailable, err)
	}
	if profile == nil {
		return nil, nil
	}

	var factors []FraudFactor

	if profile.UnusualPattern {
		factors = append(factors, FraudFactor{
			Type:        FactorBehavior,
			Weight:      weightUnusualBehavior,
			Severity:    0.8,
			Description: "transaction deviates from the customer's usual pattern",
		})
	}
	if profile.VelocityViolations > 0 {
		factors = append(factors, FraudFactor{
			Type:        FactorBehavior,
			Weight:      weightVelocityHistory,
			Severity:    clampSeverity(float64(profile.VelocityViolations) / 10),
			Description: fmt.Sprintf("%d prior velocity violations", profile.VelocityViolations),
		})
	}
	if profile.GeoAnomaly {
		factors = append(factors, FraudFactor{
			Type:        FactorBehavior,
			Weight:      weightGeoAnomaly,
			Severity:    0.7,
			Description: "historic geographic anomaly on this account",
		})
	}

	return factors, nil
}
