package risk

import "context"

// Analyzer produces zero or more weighted fraud factors from a payment
// context. Analyzers are stateless over their inputs and safe to run
// concurrently; data lookups go through injected collaborators.
//
// An analyzer returns an error only when a collaborator it depends on is
// unreachable. Absent history is a normal zero-factor outcome, never an
// error.
type Analyzer interface {
	Type() FactorType
	Analyze(ctx context.Context, payment PaymentContext) ([]FraudFactor, error)
}

// Factor weights are fixed per signal kind. Severity is computed per
// observation by the analyzer that raises the factor.
const (
	weightVelocityCount    = 0.7
	weightVelocityAmount   = 0.8
	weightImpossibleTravel = 0.9
	weightHighRiskZone     = 0.6
	weightFraudulentDevice = 0.8
	weightInconsistentDev  = 0.6
	weightSuspiciousDevice = 0.7
	weightUnusualBehavior  = 0.7
	weightVelocityHistory  = 0.8
	weightGeoAnomaly       = 0.6
	weightDenyListedCard   = 1.0
	weightSuspiciousDigits = 0.7
	weightAmountBounds     = 0.6
	weightRoundAmount      = 0.5
)
