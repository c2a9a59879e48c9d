package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/cardshield/internal/card"
)

type MockTransactionHistory struct {
	mock.Mock
}

func (m *MockTransactionHistory) RecentActivity(ctx context.Context, userID uuid.UUID, window time.Duration) (TransactionStats, error) {
	args := m.Called(ctx, userID, window)
	return args.Get(0).(TransactionStats), args.Error(1)
}

type MockLocationHistory struct {
	mock.Mock
}

func (m *MockLocationHistory) LastKnown(ctx context.Context, userID uuid.UUID) (*LocationRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LocationRecord), args.Error(1)
}

type MockRiskZones struct {
	mock.Mock
}

func (m *MockRiskZones) Contains(ctx context.Context, lat, lng float64) (bool, string, error) {
	args := m.Called(ctx, lat, lng)
	return args.Bool(0), args.String(1), args.Error(2)
}

type MockDeviceReputation struct {
	mock.Mock
}

func (m *MockDeviceReputation) Lookup(ctx context.Context, deviceID string) (*DeviceProfile, error) {
	args := m.Called(ctx, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DeviceProfile), args.Error(1)
}

type MockBehaviorHistory struct {
	mock.Mock
}

func (m *MockBehaviorHistory) Profile(ctx context.Context, userID uuid.UUID) (*BehaviorProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BehaviorProfile), args.Error(1)
}

type MockDenyList struct {
	mock.Mock
}

func (m *MockDenyList) Contains(ctx context.Context, fingerprint string) (bool, error) {
	args := m.Called(ctx, fingerprint)
	return args.Bool(0), args.Error(1)
}

func basePayment() PaymentContext {
	return PaymentContext{
		UserID:    uuid.New(),
		Amount:    50,
		Currency:  "USD",
		Timestamp: time.Now().UTC(),
	}
}

func TestVelocityAnalyzer(t *testing.T) {
	tests := []struct {
		name         string
		stats        TransactionStats
		wantFactors  int
		wantSeverity []float64
	}{
		{"quiet window", TransactionStats{Count: 2, Total: 100}, 0, nil},
		{"count just over limit", TransactionStats{Count: 6, Total: 100}, 1, []float64{0.6}},
		{"count severity capped", TransactionStats{Count: 50, Total: 100}, 1, []float64{1.0}},
		{"amount over limit", TransactionStats{Count: 2, Total: 2500}, 1, []float64{0.5}},
		{"both over limit", TransactionStats{Count: 8, Total: 10000}, 2, []float64{0.8, 1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := new(MockTransactionHistory)
			analyzer := NewVelocityAnalyzer(history, time.Hour)
			payment := basePayment()

			history.On("RecentActivity", mock.Anything, payment.UserID, time.Hour).Return(tt.stats, nil)

			factors, err := analyzer.Analyze(context.Background(), payment)
			require.NoError(t, err)
			require.Len(t, factors, tt.wantFactors)
			for i, severity := range tt.wantSeverity {
				assert.InDelta(t, severity, factors[i].Severity, 1e-9)
				assert.Equal(t, FactorVelocity, factors[i].Type)
			}
		})
	}
}

func TestVelocityAnalyzer_DependencyFailure(t *testing.T) {
	history := new(MockTransactionHistory)
	analyzer := NewVelocityAnalyzer(history, time.Hour)

	history.On("RecentActivity", mock.Anything, mock.Anything, mock.Anything).
		Return(TransactionStats{}, errors.New("redis down"))

	_, err := analyzer.Analyze(context.Background(), basePayment())
	assert.ErrorIs(t, err, ErrDependencyUnavailable)
}

func TestGeoAnalyzer_ImpossibleTravel(t *testing.T) {
	history := new(MockLocationHistory)
	zones := new(MockRiskZones)
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	analyzer := NewGeoAnalyzer(history, zones).WithNow(func() time.Time { return now })

	payment := basePayment()
	payment.Timestamp = now
	// London now, New York ten minutes ago: several thousand km/h.
	payment.Location = &Location{Latitude: 51.5074, Longitude: -0.1278}
	history.On("LastKnown", mock.Anything, payment.UserID).Return(&LocationRecord{
		Latitude: 40.7128, Longitude: -74.0060, RecordedAt: now.Add(-10 * time.Minute),
	}, nil)
	zones.On("Contains", mock.Anything, payment.Location.Latitude, payment.Location.Longitude).
		Return(false, "", nil)

	factors, err := analyzer.Analyze(context.Background(), payment)
	require.NoError(t, err)
	require.Len(t, factors, 1)
	assert.Equal(t, weightImpossibleTravel, factors[0].Weight)
	assert.Equal(t, 1.0, factors[0].Severity)
}

func TestGeoAnalyzer_PlausibleTravel(t *testing.T) {
	history := new(MockLocationHistory)
	zones := new(MockRiskZones)
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	analyzer := NewGeoAnalyzer(history, zones).WithNow(func() time.Time { return now })

	payment := basePayment()
	payment.Timestamp = now
	payment.Location = &Location{Latitude: 51.5074, Longitude: -0.1278}
	// Same city a day earlier.
	history.On("LastKnown", mock.Anything, payment.UserID).Return(&LocationRecord{
		Latitude: 51.5155, Longitude: -0.0922, RecordedAt: now.Add(-24 * time.Hour),
	}, nil)
	zones.On("Contains", mock.Anything, mock.Anything, mock.Anything).Return(false, "", nil)

	factors, err := analyzer.Analyze(context.Background(), payment)
	require.NoError(t, err)
	assert.Empty(t, factors)
}

func TestGeoAnalyzer_HighRiskZone(t *testing.T) {
	history := new(MockLocationHistory)
	zones := new(MockRiskZones)
	analyzer := NewGeoAnalyzer(history, zones)

	payment := basePayment()
	payment.Location = &Location{Latitude: 4.60, Longitude: -74.08}
	history.On("LastKnown", mock.Anything, payment.UserID).Return(nil, nil)
	zones.On("Contains", mock.Anything, payment.Location.Latitude, payment.Location.Longitude).
		Return(true, "downtown-test-zone", nil)

	factors, err := analyzer.Analyze(context.Background(), payment)
	require.NoError(t, err)
	require.Len(t, factors, 1)
	assert.Equal(t, weightHighRiskZone, factors[0].Weight)
	assert.InDelta(t, 0.8, factors[0].Severity, 1e-9)
	assert.Contains(t, factors[0].Description, "downtown-test-zone")
}

func TestGeoAnalyzer_NoLocationNoFactors(t *testing.T) {
	history := new(MockLocationHistory)
	zones := new(MockRiskZones)
	analyzer := NewGeoAnalyzer(history, zones)

	factors, err := analyzer.Analyze(context.Background(), basePayment())
	require.NoError(t, err)
	assert.Empty(t, factors)
	history.AssertNotCalled(t, "LastKnown", mock.Anything, mock.Anything)
}

func TestDeviceAnalyzer(t *testing.T) {
	tests := []struct {
		name        string
		profile     *DeviceProfile
		wantWeights []float64
	}{
		{"unknown device", nil, nil},
		{"clean device", &DeviceProfile{DeviceID: "dev-1"}, nil},
		{"fraudulent", &DeviceProfile{DeviceID: "dev-1", Fraudulent: true}, []float64{0.8}},
		{"inconsistent", &DeviceProfile{DeviceID: "dev-1", Inconsistent: true}, []float64{0.6}},
		{"suspicious", &DeviceProfile{DeviceID: "dev-1", Suspicious: true}, []float64{0.7}},
		{"all flags", &DeviceProfile{DeviceID: "dev-1", Fraudulent: true, Inconsistent: true, Suspicious: true}, []float64{0.8, 0.6, 0.7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reputation := new(MockDeviceReputation)
			analyzer := NewDeviceAnalyzer(reputation)
			payment := basePayment()
			payment.DeviceID = "dev-1"

			reputation.On("Lookup", mock.Anything, "dev-1").Return(tt.profile, nil)

			factors, err := analyzer.Analyze(context.Background(), payment)
			require.NoError(t, err)
			require.Len(t, factors, len(tt.wantWeights))
			for i, w := range tt.wantWeights {
				assert.Equal(t, w, factors[i].Weight)
			}
		})
	}
}

func TestDeviceAnalyzer_NoDeviceID(t *testing.T) {
	reputation := new(MockDeviceReputation)
	analyzer := NewDeviceAnalyzer(reputation)

	factors, err := analyzer.Analyze(context.Background(), basePayment())
	require.NoError(t, err)
	assert.Empty(t, factors)
	reputation.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
}

func TestBehaviorAnalyzer(t *testing.T) {
	history := new(MockBehaviorHistory)
	analyzer := NewBehaviorAnalyzer(history)
	payment := basePayment()

	history.On("Profile", mock.Anything, payment.UserID).Return(&BehaviorProfile{
		UnusualPattern:     true,
		VelocityViolations: 4,
		GeoAnomaly:         true,
	}, nil)

	factors, err := analyzer.Analyze(context.Background(), payment)
	require.NoError(t, err)
	require.Len(t, factors, 3)
	assert.Equal(t, weightUnusualBehavior, factors[0].Weight)
	assert.InDelta(t, 0.4, factors[1].Severity, 1e-9)
	assert.Equal(t, weightGeoAnomaly, factors[2].Weight)
}

func TestBehaviorAnalyzer_NoHistory(t *testing.T) {
	history := new(MockBehaviorHistory)
	analyzer := NewBehaviorAnalyzer(history)
	payment := basePayment()

	history.On("Profile", mock.Anything, payment.UserID).Return(nil, nil)

	factors, err := analyzer.Analyze(context.Background(), payment)
	require.NoError(t, err)
	assert.Empty(t, factors)
}

func TestCardPatternAnalyzer_DenyListed(t *testing.T) {
	denyList := new(MockDenyList)
	analyzer := NewCardPatternAnalyzer(denyList)

	payment := basePayment()
	payment.CardData = &card.CardData{Number: "4000000000000002", ExpiryMonth: 12, ExpiryYear: 2030, CVV: "123"}

	denyList.On("Contains", mock.Anything, payment.CardData.Fingerprint()).Return(true, nil)

	factors, err := analyzer.Analyze(context.Background(), payment)
	require.NoError(t, err)
	require.NotEmpty(t, factors)
	assert.Equal(t, 1.0, factors[0].Weight)
	assert.Equal(t, 1.0, factors[0].Severity)
}

func TestCardPatternAnalyzer_SuspiciousSequences(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   bool
	}{
		{"ascending 1234", "4012340000000000", true},
		{"ascending 5678", "4056780000000000", true},
		{"four repeated digits", "4111111111111111", true},
		{"clean number", "4539578763621486", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasSuspiciousSequence(tt.number))
		})
	}
}

func TestCardPatternAnalyzer_NoCardData(t *testing.T) {
	denyList := new(MockDenyList)
	analyzer := NewCardPatternAnalyzer(denyList)

	factors, err := analyzer.Analyze(context.Background(), basePayment())
	require.NoError(t, err)
	assert.Empty(t, factors)
	denyList.AssertNotCalled(t, "Contains", mock.Anything, mock.Anything)
}

// Tokenized flows carry no raw PAN but can still screen the deny list by
// sending the card fingerprint alone.
func TestCardPatternAnalyzer_FingerprintOnly(t *testing.T) {
	denyList := new(MockDenyList)
	analyzer := NewCardPatternAnalyzer(denyList)

	fingerprint := card.Fingerprint("4000000000000002")
	payment := basePayment()
	payment.CardFingerprint = fingerprint

	denyList.On("Contains", mock.Anything, fingerprint).Return(true, nil)

	factors, err := analyzer.Analyze(context.Background(), payment)
	require.NoError(t, err)
	require.Len(t, factors, 1)
	assert.Equal(t, weightDenyListedCard, factors[0].Weight)
	assert.Equal(t, 1.0, factors[0].Severity)
}

func TestCardPatternAnalyzer_FingerprintNotDenied(t *testing.T) {
	denyList := new(MockDenyList)
	analyzer := NewCardPatternAnalyzer(denyList)

	fingerprint := card.Fingerprint("4539578763621486")
	payment := basePayment()
	payment.CardFingerprint = fingerprint

	denyList.On("Contains", mock.Anything, fingerprint).Return(false, nil)

	factors, err := analyzer.Analyze(context.Background(), payment)
	require.NoError(t, err)
	assert.Empty(t, factors)
}

func TestAmountAnalyzer(t *testing.T) {
	tests := []struct {
		name        string
		amount      float64
		wantWeights []float64
	}{
		{"typical amount", 49.99, nil},
		{"over upper bound", 10000.01, []float64{weightAmountBounds}},
		{"ten thousand exactly hits both", 10000.00, []float64{weightAmountBounds, weightRoundAmount}},
		{"below lower bound", 0.001, []float64{weightAmountBounds}},
		{"round amount", 500.00, []float64{weightRoundAmount}},
		{"huge round amount", 50000, []float64{weightAmountBounds, weightRoundAmount}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := NewAmountAnalyzer()
			payment := basePayment()
			payment.Amount = tt.amount

			factors, err := analyzer.Analyze(context.Background(), payment)
			require.NoError(t, err)
			require.Len(t, factors, len(tt.wantWeights))
			for i, w := range tt.wantWeights {
				assert.Equal(t, w, factors[i].Weight)
			}
		})
	}
}

// A round in-bounds amount like 50.00 raises exactly one flag. The
// round-amount factor alone contributes 0.5 * 0.6 * 100 = 30, which sits
// below the medium boundary at every sensitivity, so the verdict stays low.
func TestAmountAnalyzer_SmallRoundAmountStaysLowRisk(t *testing.T) {
	analyzer := NewAmountAnalyzer()
	payment := basePayment()
	payment.Amount = 50

	factors, err := analyzer.Analyze(context.Background(), payment)
	require.NoError(t, err)
	require.Len(t, factors, 1)
	assert.Equal(t, weightRoundAmount, factors[0].Weight)

	for sensitivity, table := range DefaultThresholds {
		score, level := Score(factors, table)
		assert.InDelta(t, 30.0, score, 1e-9, "sensitivity %s", sensitivity)
		assert.Equal(t, RiskLevelLow, level, "sensitivity %s", sensitivity)
	}
}
