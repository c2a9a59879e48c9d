package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_EmptyFactorsIsLowRisk(t *testing.T) {
	score, level := Score(nil, DefaultThresholds[SensitivityMedium])
	assert.Equal(t, 0.0, score)
	assert.Equal(t, RiskLevelLow, level)
}

func TestScore_SumsWeightedSeverities(t *testing.T) {
	factors := []FraudFactor{
		{Type: FactorAmount, Weight: 0.5, Severity: 0.6},
		{Type: FactorVelocity, Weight: 0.7, Severity: 0.5},
	}

	score, _ := Score(factors, DefaultThresholds[SensitivityMedium])
	assert.InDelta(t, 65.0, score, 1e-9)
}

func TestScore_ClampsToHundred(t *testing.T) {
	factors := []FraudFactor{
		{Type: FactorCardPattern, Weight: 1.0, Severity: 1.0},
		{Type: FactorDevice, Weight: 0.8, Severity: 1.0},
	}

	score, level := Score(factors, DefaultThresholds[SensitivityMedium])
	assert.Equal(t, 100.0, score)
	assert.Equal(t, RiskLevelCritical, level)
}

func TestScore_Monotonic(t *testing.T) {
	base := []FraudFactor{{Type: FactorAmount, Weight: 0.5, Severity: 0.6}}
	baseScore, _ := Score(base, DefaultThresholds[SensitivityMedium])

	extended := append(append([]FraudFactor{}, base...), FraudFactor{
		Type: FactorVelocity, Weight: 0.1, Severity: 0.1,
	})
	extendedScore, _ := Score(extended, DefaultThresholds[SensitivityMedium])

	assert.GreaterOrEqual(t, extendedScore, baseScore)
}

func TestThresholdTable_Level(t *testing.T) {
	tests := []struct {
		name        string
		sensitivity Sensitivity
		score       float64
		want        RiskLevel
	}{
		{"zero is low", SensitivityMedium, 0, RiskLevelLow},
		{"below medium boundary", SensitivityMedium, 49.99, RiskLevelLow},
		{"exact medium boundary", SensitivityMedium, 50, RiskLevelMedium},
		{"exact high boundary lands high", SensitivityMedium, 70, RiskLevelHigh},
		{"just below critical", SensitivityMedium, 84.99, RiskLevelHigh},
		{"exact critical boundary", SensitivityMedium, 85, RiskLevelCritical},
		{"hundred is critical", SensitivityMedium, 100, RiskLevelCritical},
		{"low sensitivity is lenient", SensitivityLow, 55, RiskLevelLow},
		{"high sensitivity is strict", SensitivityHigh, 55, RiskLevelMedium},
		{"high sensitivity critical", SensitivityHigh, 80, RiskLevelCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := DefaultThresholds[tt.sensitivity]
			assert.Equal(t, tt.want, table.Level(tt.score))
		})
	}
}

func TestThresholdTable_LevelIsDeterministic(t *testing.T) {
	table := DefaultThresholds[SensitivityMedium]
	for i := 0; i < 100; i++ {
		assert.Equal(t, RiskLevelHigh, table.Level(70))
	}
}
