package risk

// Score aggregates factors into a single score on [0,100] and resolves it
// against the threshold table. Scoring never fails: an empty factor set is
// a valid zero-score, low-risk outcome. Fraud scoring is available by
// default; an empty verdict must not block a payment.
func Score(factors []FraudFactor, thresholds ThresholdTable) (float64, RiskLevel) {
	var score float64
	for _, f := range factors {
		score += f.Contribution()
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return score, thresholds.Level(score)
}
