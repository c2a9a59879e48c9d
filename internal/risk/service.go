package risk

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/cardshield/pkg/async"
	"github.com/richxcame/cardshield/pkg/eventbus"
	"github.com/richxcame/cardshield/pkg/logger"
	"github.com/richxcame/cardshield/pkg/tracing"
)

// AssessmentStore persists completed assessments for investigation and
// model tuning.
type AssessmentStore interface {
	SaveAssessment(ctx context.Context, risk *FraudRisk) error
}

// TransactionRecorder feeds scored payments back into the history the
// analyzers read, such as velocity windows and the location log.
type TransactionRecorder interface {
	RecordTransaction(ctx context.Context, payment PaymentContext) error
}

// Service runs the scoring pipeline: fan the enabled analyzers out, join,
// score against the active threshold snapshot. Each request is scored
// against the configuration snapshot taken at its start; a concurrent
// config update affects later requests only.
type Service struct {
	analyzers []Analyzer
	config    *ConfigStore
	store     AssessmentStore
	bus       *eventbus.Bus
	recorders []TransactionRecorder
}

// NewService creates the scoring service. store and bus may be nil; the
// verdict does not depend on either.
func NewService(analyzers []Analyzer, config *ConfigStore, store AssessmentStore, bus *eventbus.Bus) *Service {
	return &Service{
		analyzers: analyzers,
		config:    config,
		store:     store,
		bus:       bus,
	}
}

// WithRecorders registers sinks that receive every scored payment.
func (s *Service) WithRecorders(recorders ...TransactionRecorder) *Service {
	s.recorders = append(s.recorders, recorders...)
	return s
}

type analyzerResult struct {
	analyzer FactorType
	factors  []FraudFactor
	err      error
}

// AnalyzeRisk scores a payment. A collaborator failure fails this request
// alone with ErrDependencyUnavailable; absence of history is not failure.
func (s *Service) AnalyzeRisk(ctx context.Context, payment PaymentContext) (*FraudRisk, error) {
	started := time.Now()

	ctx, span := tracing.StartSpan(ctx, "scoring-service", "AnalyzeRisk")
	defer span.End()
	tracing.AddSpanAttributes(ctx,
		tracing.PaymentAttributes(payment.UserID.String(), payment.Currency, payment.Amount)...)

	cfg := s.config.Snapshot()

	var factors []FraudFactor
	if cfg.Enabled {
		collected, err := s.runAnalyzers(ctx, cfg, payment)
		if err != nil {
			tracing.RecordError(ctx, err)
			return nil, err
		}
		factors = collected
	}

	score, level := Score(factors, cfg.ActiveThresholds())

	risk := &FraudRisk{
		ID:         uuid.New(),
		UserID:     payment.UserID,
		Score:      score,
		Level:      level,
		Factors:    factors,
		AssessedAt: time.Now().UTC(),
	}

	assessmentsTotal.WithLabelValues(string(level)).Inc()
	assessmentDuration.Observe(time.Since(started).Seconds())
	tracing.AddSpanAttributes(ctx,
		tracing.AssessmentAttributes(risk.ID.String(), payment.UserID.String(), score, string(level))...)

	// The verdict stands even when persistence or publication fail;
	// scoring must stay available.
	if s.store != nil {
		if err := s.store.SaveAssessment(ctx, risk); err != nil {
			logger.Get().Warn("failed to persist assessment",
				zap.String("assessment_id", risk.ID.String()), zap.Error(err))
		}
	}

	s.publishVerdict(ctx, risk)
	s.recordTransaction(ctx, payment)

	return risk, nil
}

// recordTransaction feeds the payment into the history sinks off the
// request path. The verdict never waits on history writes.
func (s *Service) recordTransaction(ctx context.Context, payment PaymentContext) {
	for _, recorder := range s.recorders {
		recorder := recorder
		async.Go(ctx, "record-transaction", func(ctx context.Context) {
			if err := recorder.RecordTransaction(ctx, payment); err != nil {
				logger.Get().Warn("failed to record transaction history",
					zap.String("user_id", payment.UserID.String()), zap.Error(err))
			}
		})
	}
}

func (s *Service) runAnalyzers(ctx context.Context, cfg *Configuration, payment PaymentContext) ([]FraudFactor, error) {
	enabled := make([]Analyzer, 0, len(s.analyzers))
	for _, a := range s.analyzers {
		if cfg.RuleEnabled(a.Type()) {
			enabled = append(enabled, a)
		}
	}
	if len(enabled) == 0 {
		return nil, nil
	}

	results := make(chan analyzerResult, len(enabled))
	var wg sync.WaitGroup

	for _, a := range enabled {
		wg.Add(1)
		go func(a Analyzer) {
			defer wg.Done()
			factors, err := a.Analyze(ctx, payment)
			results <- analyzerResult{analyzer: a.Type(), factors: factors, err: err}
		}(a)
	}

	wg.Wait()
	close(results)

	var factors []FraudFactor
	for result := range results {
		if result.err != nil {
			analyzerFailures.WithLabelValues(string(result.analyzer)).Inc()
			return nil, fmt.Errorf("%s analyzer: %w", result.analyzer, result.err)
		}
		factors = append(factors, result.factors...)
	}

	// Join order is scheduler-dependent; sort for a stable verdict.
	sort.SliceStable(factors, func(i, j int) bool {
		if factors[i].Type != factors[j].Type {
			return factors[i].Type < factors[j].Type
		}
		return factors[i].Contribution() > factors[j].Contribution()
	})

	return factors, nil
}

func (s *Service) publishVerdict(ctx context.Context, risk *FraudRisk) {
	if s.bus == nil {
		return
	}

	s.publish(ctx, eventbus.SubjectRiskAssessed, eventbus.RiskAssessedData{
		AssessmentID: risk.ID,
		UserID:       risk.UserID,
		Score:        risk.Score,
		Level:        string(risk.Level),
		Factors:      risk.FactorTypes(),
		AssessedAt:   risk.AssessedAt,
	})

	if risk.Level == RiskLevelHigh || risk.Level == RiskLevelCritical {
		details := ""
		if len(risk.Factors) > 0 {
			details = risk.Factors[0].Description
		}
		s.publish(ctx, eventbus.SubjectFraudDetected, eventbus.FraudDetectedData{
			AssessmentID: risk.ID,
			UserID:       risk.UserID,
			Score:        risk.Score,
			Level:        string(risk.Level),
			Factors:      risk.FactorTypes(),
			Details:      details,
			DetectedAt:   risk.AssessedAt,
		})
	}
}

// Configuration returns the active configuration snapshot.
func (s *Service) Configuration() *Configuration {
	return s.config.Snapshot()
}

// UpdateConfiguration validates and atomically applies a new
// configuration. Last writer wins; in-flight assessments are unaffected.
func (s *Service) UpdateConfiguration(ctx context.Context, cfg *Configuration) error {
	if err := s.config.Update(cfg); err != nil {
		return err
	}

	rules := make([]string, len(cfg.EnabledRules))
	for i, r := range cfg.EnabledRules {
		rules[i] = string(r)
	}
	s.publish(ctx, eventbus.SubjectConfigUpdated, eventbus.ConfigUpdatedData{
		Sensitivity:  string(cfg.Sensitivity),
		EnabledRules: rules,
		UpdatedBy:    cfg.UpdatedBy,
		UpdatedAt:    time.Now().UTC(),
	})

	return nil
}

func (s *Service) publish(ctx context.Context, subject string, data interface{}) {
	if s.bus == nil {
		return
	}

	event, err := eventbus.NewEvent(subject, "scoring", data)
	if err != nil {
		logger.Get().Warn("failed to build event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := s.bus.Publish(ctx, subject, event); err != nil {
		logger.Get().Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
