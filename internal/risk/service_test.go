package risk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/cardshield/internal/card"
)

type stubAnalyzer struct {
	factorType FactorType
	factors    []FraudFactor
	err        error
	delay      time.Duration
	calls      int
	mu         sync.Mutex
}

func (s *stubAnalyzer) Type() FactorType { return s.factorType }

func (s *stubAnalyzer) Analyze(ctx context.Context, payment PaymentContext) ([]FraudFactor, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.factors, s.err
}

func (s *stubAnalyzer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newStubService(t *testing.T, analyzers ...Analyzer) *Service {
	t.Helper()
	store, err := NewConfigStore(testConfiguration())
	require.NoError(t, err)
	return NewService(analyzers, store, nil, nil)
}

func TestAnalyzeRisk_JoinsAllAnalyzers(t *testing.T) {
	a := &stubAnalyzer{factorType: FactorAmount, factors: []FraudFactor{
		{Type: FactorAmount, Weight: 0.5, Severity: 0.6},
	}}
	b := &stubAnalyzer{factorType: FactorVelocity, delay: 20 * time.Millisecond, factors: []FraudFactor{
		{Type: FactorVelocity, Weight: 0.7, Severity: 0.5},
	}}
	service := newStubService(t, a, b)

	risk, err := service.AnalyzeRisk(context.Background(), basePayment())
	require.NoError(t, err)

	assert.Equal(t, 1, a.callCount())
	assert.Equal(t, 1, b.callCount())
	assert.Len(t, risk.Factors, 2)
	assert.InDelta(t, 65.0, risk.Score, 1e-9)
}

func TestAnalyzeRisk_DependencyFailureFailsRequest(t *testing.T) {
	healthy := &stubAnalyzer{factorType: FactorAmount}
	broken := &stubAnalyzer{factorType: FactorVelocity, err: ErrDependencyUnavailable}
	service := newStubService(t, healthy, broken)

	risk, err := service.AnalyzeRisk(context.Background(), basePayment())
	assert.ErrorIs(t, err, ErrDependencyUnavailable)
	assert.Nil(t, risk)
}

func TestAnalyzeRisk_DisabledConfigSkipsAnalyzers(t *testing.T) {
	a := &stubAnalyzer{factorType: FactorAmount, factors: []FraudFactor{
		{Type: FactorAmount, Weight: 1.0, Severity: 1.0},
	}}
	store, err := NewConfigStore(testConfiguration())
	require.NoError(t, err)
	service := NewService([]Analyzer{a}, store, nil, nil)

	disabled := testConfiguration()
	disabled.Enabled = false
	require.NoError(t, store.Update(disabled))

	risk, err := service.AnalyzeRisk(context.Background(), basePayment())
	require.NoError(t, err)
	assert.Equal(t, 0, a.callCount())
	assert.Equal(t, 0.0, risk.Score)
	assert.Equal(t, RiskLevelLow, risk.Level)
}

func TestAnalyzeRisk_DisabledRuleContributesNothing(t *testing.T) {
	velocity := &stubAnalyzer{factorType: FactorVelocity, factors: []FraudFactor{
		{Type: FactorVelocity, Weight: 0.8, Severity: 1.0},
	}}
	amount := &stubAnalyzer{factorType: FactorAmount, factors: []FraudFactor{
		{Type: FactorAmount, Weight: 0.5, Severity: 0.6},
	}}

	store, err := NewConfigStore(testConfiguration())
	require.NoError(t, err)
	service := NewService([]Analyzer{velocity, amount}, store, nil, nil)

	onlyAmount := testConfiguration()
	onlyAmount.EnabledRules = []FactorType{FactorAmount}
	require.NoError(t, store.Update(onlyAmount))

	risk, err := service.AnalyzeRisk(context.Background(), basePayment())
	require.NoError(t, err)
	assert.Equal(t, 0, velocity.callCount())
	assert.Equal(t, 1, amount.callCount())
	assert.InDelta(t, 30.0, risk.Score, 1e-9)
}

// Low-amount transaction with no suspicious context scores low.
func TestAnalyzeRisk_CleanTransaction(t *testing.T) {
	history := new(MockTransactionHistory)
	history.On("RecentActivity", mock.Anything, mock.Anything, mock.Anything).
		Return(TransactionStats{Count: 1, Total: 50}, nil)
	behavior := new(MockBehaviorHistory)
	behavior.On("Profile", mock.Anything, mock.Anything).Return(nil, nil)

	service := newStubService(t,
		NewVelocityAnalyzer(history, time.Hour),
		NewBehaviorAnalyzer(behavior),
		NewAmountAnalyzer(),
	)

	payment := basePayment()
	payment.Amount = 50.25

	risk, err := service.AnalyzeRisk(context.Background(), payment)
	require.NoError(t, err)
	assert.Equal(t, RiskLevelLow, risk.Level)
	assert.Less(t, risk.Score, 30.0)
	assert.Empty(t, risk.Factors)
}

// A boundary amount fires the amount analyzer and pushes the score up.
func TestAnalyzeRisk_LargeAmount(t *testing.T) {
	service := newStubService(t, NewAmountAnalyzer())

	payment := basePayment()
	payment.Amount = 10000

	risk, err := service.AnalyzeRisk(context.Background(), payment)
	require.NoError(t, err)
	assert.Greater(t, risk.Score, 30.0)
	assert.NotEmpty(t, risk.Factors)
}

// A deny-listed card is critical no matter what else the context says.
func TestAnalyzeRisk_DenyListedCardIsCritical(t *testing.T) {
	denyList := new(MockDenyList)
	denyList.On("Contains", mock.Anything, mock.Anything).Return(true, nil)

	service := newStubService(t, NewCardPatternAnalyzer(denyList), NewAmountAnalyzer())

	payment := basePayment()
	payment.Amount = 25.50
	payment.CardData = &card.CardData{Number: "4000000000000002", ExpiryMonth: 12, ExpiryYear: 2030, CVV: "123"}

	risk, err := service.AnalyzeRisk(context.Background(), payment)
	require.NoError(t, err)
	assert.Equal(t, RiskLevelCritical, risk.Level)
	assert.Equal(t, 100.0, risk.Score)
}

// Callers without raw card data reach the same verdict through the card
// fingerprint alone.
func TestAnalyzeRisk_DenyListedFingerprintIsCritical(t *testing.T) {
	fingerprint := card.Fingerprint("4000000000000002")

	denyList := new(MockDenyList)
	denyList.On("Contains", mock.Anything, fingerprint).Return(true, nil)

	service := newStubService(t, NewCardPatternAnalyzer(denyList), NewAmountAnalyzer())

	payment := basePayment()
	payment.Amount = 25.50
	payment.CardFingerprint = fingerprint

	risk, err := service.AnalyzeRisk(context.Background(), payment)
	require.NoError(t, err)
	assert.Equal(t, RiskLevelCritical, risk.Level)
	assert.Equal(t, 100.0, risk.Score)
}

func TestAnalyzeRisk_VerdictSurvivesStoreFailure(t *testing.T) {
	store, err := NewConfigStore(testConfiguration())
	require.NoError(t, err)

	failing := &failingAssessmentStore{}
	service := NewService([]Analyzer{NewAmountAnalyzer()}, store, failing, nil)

	risk, err := service.AnalyzeRisk(context.Background(), basePayment())
	require.NoError(t, err)
	assert.NotNil(t, risk)
	assert.True(t, failing.called)
}

type failingAssessmentStore struct {
	called bool
}

func (f *failingAssessmentStore) SaveAssessment(ctx context.Context, risk *FraudRisk) error {
	f.called = true
	return errors.New("database down")
}

// Requests racing a configuration update each see one coherent snapshot.
func TestAnalyzeRisk_ConfigUpdateIsolation(t *testing.T) {
	store, err := NewConfigStore(testConfiguration())
	require.NoError(t, err)

	analyzer := &stubAnalyzer{factorType: FactorAmount, factors: []FraudFactor{
		{Type: FactorAmount, Weight: 0.6, Severity: 0.9},
	}}
	service := NewService([]Analyzer{analyzer}, store, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				risk, err := service.AnalyzeRisk(context.Background(), basePayment())
				assert.NoError(t, err)
				// Score 54 resolves to a defined level under every default
				// table; a torn snapshot would produce neither.
				switch risk.Level {
				case RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical:
				default:
					t.Errorf("undefined level %q", risk.Level)
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		next := testConfiguration()
		if i%2 == 0 {
			next.Sensitivity = SensitivityHigh
		} else {
			next.Sensitivity = SensitivityLow
		}
		require.NoError(t, store.Update(next))
	}
	wg.Wait()
}

func TestUpdateConfiguration_RejectsBadConfig(t *testing.T) {
	service := newStubService(t)

	bad := testConfiguration()
	bad.Sensitivity = "extreme"

	err := service.UpdateConfiguration(context.Background(), bad)
	assert.Error(t, err)
	assert.Equal(t, SensitivityMedium, service.Configuration().Sensitivity)
}
