package risk

import (
	"context"
	"fmt"
	"strings"

	"github.com/richxcame/cardshield/internal/card"
)

// CardPatternAnalyzer flags deny-listed cards and card numbers with digit
// sequences typical of generated or test PANs. The deny list is consulted
// whenever a fingerprint is available, from raw card data or supplied
// directly; the digit-sequence check needs the raw PAN.
type CardPatternAnalyzer struct {
	denyList card.DenyList
}

// NewCardPatternAnalyzer creates the analyzer.
func NewCardPatternAnalyzer(denyList card.DenyList) *CardPatternAnalyzer {
	return &CardPatternAnalyzer{denyList: denyList}
}

func (a *CardPatternAnalyzer) Type() FactorType { return FactorCardPattern }

func (a *CardPatternAnalyzer) Analyze(ctx context.Context, payment PaymentContext) ([]FraudFactor, error) {
	fingerprint := payment.CardFingerprint
	if payment.CardData != nil {
		fingerprint = payment.CardData.Fingerprint()
	}
	if fingerprint == "" {
		return nil, nil
	}

	var factors []FraudFactor

	if a.denyList != nil {
		denied, err := a.denyList.Contains(ctx, fingerprint)
		if err != nil {
			return nil, fmt.Errorf("%w: deny list: %v", ErrDependencyUnavailable, err)
		}
		if denied {
			factors = append(factors, FraudFactor{
				Type:        FactorCardPattern,
				Weight:      weightDenyListedCard,
				Severity:    1.0,
				Description: "card is on the deny list",
			})
		}
	}

	if payment.CardData != nil && hasSuspiciousSequence(payment.CardData.Normalized()) {
		factors = append(factors, FraudFactor{
			Type:        FactorCardPattern,
			Weight:      weightSuspiciousDigits,
			Severity:    0.8,
			Description: "card number contains a suspicious digit sequence",
		})
	}

	return factors, nil
}

// hasSuspiciousSequence reports runs of four or more repeated digits, or
// the ascending sequences "1234"/"5678".
func hasSuspiciousSequence(number string) bool {
	if strings.Contains(number, "1234") || strings.Contains(number, "5678") {
		return true
	}

	run := 1
	for i := 1; i < len(number); i++ {
		if number[i] == number[i-1] {
			run++
			if run >= 4 {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
