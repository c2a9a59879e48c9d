package risk

import (
	"context"
	"fmt"
)

// DeviceReputation looks up the reputation record for a device
// fingerprint. A nil profile means the device has no history.
type DeviceReputation interface {
	Lookup(ctx context.Context, deviceID string) (*DeviceProfile, error)
}

// DeviceAnalyzer flags transactions from devices with a bad reputation.
type DeviceAnalyzer struct {
	reputation DeviceReputation
}

// NewDeviceAnalyzer creates the analyzer.
func NewDeviceAnalyzer(reputation DeviceReputation) *DeviceAnalyzer {
	return &DeviceAnalyzer{reputation: reputation}
}

func (a *DeviceAnalyzer) Type() FactorType { return FactorDevice }

func (a *DeviceAnalyzer) Analyze(ctx context.Context, payment PaymentContext) ([]FraudFactor, error) {
	if payment.DeviceID == "" {
		return nil, nil
	}

	profile, err := a.reputation.Lookup(ctx, payment.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: device reputation: %v", ErrDependencyUnavailable, err)
	}
	if profile == nil {
		return nil, nil
	}

	var factors []FraudFactor

	if profile.Fraudulent {
		factors = append(factors, FraudFactor{
			Type:        FactorDevice,
			Weight:      weightFraudulentDevice,
			Severity:    1.0,
			Description: "device fingerprint linked to confirmed fraud",
		})
	}
	if profile.Inconsistent {
		factors = append(factors, FraudFactor{
			Type:        FactorDevice,
			Weight:      weightInconsistentDev,
			Severity:    0.8,
			Description: "device fingerprint inconsistent with prior sessions",
		})
	}
	if profile.Suspicious {
		factors = append(factors, FraudFactor{
			Type:        FactorDevice,
			Weight:      weightSuspiciousDevice,
			Severity:    0.9,
			Description: "device matches a suspicious usage pattern",
		})
	}

	return factors, nil
}
