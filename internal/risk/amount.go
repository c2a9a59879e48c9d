package risk

import (
	"context"
	"fmt"
	"math"
)

const (
	amountUpperBound = 10000.0
	amountLowerBound = 0.01
)

// AmountAnalyzer flags out-of-bounds amounts and exactly-round amounts, a
// heuristic for card-testing transactions. It needs no collaborators and
// never fails.
type AmountAnalyzer struct{}

// NewAmountAnalyzer creates the analyzer.
func NewAmountAnalyzer() *AmountAnalyzer {
	return &AmountAnalyzer{}
}

func (a *AmountAnalyzer) Type() FactorType { return FactorAmount }

func (a *AmountAnalyzer) Analyze(_ context.Context, payment PaymentContext) ([]FraudFactor, error) {
	var factors []FraudFactor

	if payment.Amount >= amountUpperBound || payment.Amount < amountLowerBound {
		factors = append(factors, FraudFactor{
			Type:        FactorAmount,
			Weight:      weightAmountBounds,
			Severity:    0.7,
			Description: fmt.Sprintf("amount %.2f outside expected bounds", payment.Amount),
		})
	}

	if isRoundAmount(payment.Amount) {
		factors = append(factors, FraudFactor{
			Type:        FactorAmount,
			Weight:      weightRoundAmount,
			Severity:    0.6,
			Description: "exactly round amount",
		})
	}

	return factors, nil
}

// isRoundAmount reports amounts with no fractional part, like 100.00.
func isRoundAmount(amount float64) bool {
	if amount <= 0 {
		return false
	}
	return math.Mod(amount, 1.0) == 0
}
