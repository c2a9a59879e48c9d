package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	velocityCountLimit  = 5
	velocityAmountLimit = 1000.0
)

// TransactionHistory looks up a customer's recent transaction window.
type TransactionHistory interface {
	RecentActivity(ctx context.Context, userID uuid.UUID, window time.Duration) (TransactionStats, error)
}

// VelocityAnalyzer flags customers transacting unusually often or moving
// unusually large cumulative amounts inside a short window.
type VelocityAnalyzer struct {
	history TransactionHistory
	window  time.Duration
}

// NewVelocityAnalyzer creates the analyzer. window defaults to one hour.
func NewVelocityAnalyzer(history TransactionHistory, window time.Duration) *VelocityAnalyzer {
	if window <= 0 {
		window = time.Hour
	}
	return &VelocityAnalyzer{history: history, window: window}
}

func (a *VelocityAnalyzer) Type() FactorType { return FactorVelocity }

func (a *VelocityAnalyzer) Analyze(ctx context.Context, payment PaymentContext) ([]FraudFactor, error) {
	stats, err := a.history.RecentActivity(ctx, payment.UserID, a.window)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction history: %v", ErrDependencyUnavailable, err)
	}

	var factors []FraudFactor

	if stats.Count > velocityCountLimit {
		factors = append(factors, FraudFactor{
			Type:        FactorVelocity,
			Weight:      weightVelocityCount,
			Severity:    clampSeverity(float64(stats.Count) / 10),
			Description: fmt.Sprintf("%d transactions in the last %s", stats.Count, a.window),
		})
	}

	if stats.Total > velocityAmountLimit {
		factors = append(factors, FraudFactor{
			Type:        FactorVelocity,
			Weight:      weightVelocityAmount,
			Severity:    clampSeverity(stats.Total / 5000),
			Description: fmt.Sprintf("%.2f moved in the last %s", stats.Total, a.window),
		})
	}

	return factors, nil
}

func clampSeverity(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
