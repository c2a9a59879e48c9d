package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/richxcame/cardshield/pkg/geo"
)

const impossibleTravelKmh = 1000.0

// LocationHistory looks up where a customer last transacted. A nil record
// means no prior location is known.
type LocationHistory interface {
	LastKnown(ctx context.Context, userID uuid.UUID) (*LocationRecord, error)
}

// RiskZones answers whether a coordinate falls inside a designated
// high-risk zone.
type RiskZones interface {
	Contains(ctx context.Context, lat, lng float64) (bool, string, error)
}

// GeoAnalyzer flags physically impossible travel between consecutive
// transactions and transactions originating inside high-risk zones.
type GeoAnalyzer struct {
	history LocationHistory
	zones   RiskZones
	now     func() time.Time
}

// NewGeoAnalyzer creates the analyzer.
func NewGeoAnalyzer(history LocationHistory, zones RiskZones) *GeoAnalyzer {
	return &GeoAnalyzer{history: history, zones: zones, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (a *GeoAnalyzer) WithNow(now func() time.Time) *GeoAnalyzer {
	a.now = now
	return a
}

func (a *GeoAnalyzer) Type() FactorType { return FactorGeolocation }

func (a *GeoAnalyzer) Analyze(ctx context.Context, payment PaymentContext) ([]FraudFactor, error) {
	if payment.Location == nil {
		return nil, nil
	}

	var factors []FraudFactor

	last, err := a.history.LastKnown(ctx, payment.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: location history: %v", ErrDependencyUnavailable, err)
	}

	if last != nil {
		at := payment.Timestamp
		if at.IsZero() {
			at = a.now()
		}
		speed := geo.ImpliedSpeedKmh(
			last.Latitude, last.Longitude,
			payment.Location.Latitude, payment.Location.Longitude,
			at.Sub(last.RecordedAt),
		)
		if speed > impossibleTravelKmh {
			factors = append(factors, FraudFactor{
				Type:        FactorGeolocation,
				Weight:      weightImpossibleTravel,
				Severity:    1.0,
				Description: fmt.Sprintf("implied travel speed %.0f km/h since last transaction", speed),
			})
		}
	}

	inZone, label, err := a.zones.Contains(ctx, payment.Location.Latitude, payment.Location.Longitude)
	if err != nil {
		return nil, fmt.Errorf("%w: risk zones: %v", ErrDependencyUnavailable, err)
	}
	if inZone {
		factors = append(factors, FraudFactor{
			Type:        FactorGeolocation,
			Weight:      weightHighRiskZone,
			Severity:    0.8,
			Description: fmt.Sprintf("transaction inside high-risk zone %s", label),
		})
	}

	return factors, nil
}
