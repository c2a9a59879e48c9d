package risk

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/richxcame/cardshield/pkg/cache"
)

// Repository handles risk data operations
type Repository struct {
	db    *pgxpool.Pool
	cache *cache.Manager
}

// NewRepository creates a new risk repository. cache may be nil.
func NewRepository(db *pgxpool.Pool, cacheManager *cache.Manager) *Repository {
	return &Repository{db: db, cache: cacheManager}
}

// SaveAssessment records a completed assessment
func (r *Repository) SaveAssessment(ctx context.Context, risk *FraudRisk) error {
	factorsJSON, err := json.Marshal(risk.Factors)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO risk_assessments (id, user_id, score, level, factors, assessed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.Exec(ctx, query,
		risk.ID,
		risk.UserID,
		risk.Score,
		risk.Level,
		factorsJSON,
		risk.AssessedAt,
	)

	return err
}

// GetAssessment retrieves a past assessment by id
func (r *Repository) GetAssessment(ctx context.Context, assessmentID uuid.UUID) (*FraudRisk, error) {
	query := `
		SELECT id, user_id, score, level, factors, assessed_at
		FROM risk_assessments
		WHERE id = $1
	`

	var risk FraudRisk
	var factorsJSON []byte

	err := r.db.QueryRow(ctx, query, assessmentID).Scan(
		&risk.ID,
		&risk.UserID,
		&risk.Score,
		&risk.Level,
		&factorsJSON,
		&risk.AssessedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(factorsJSON, &risk.Factors); err != nil {
		return nil, err
	}

	return &risk, nil
}

// ListAssessmentsByUser returns a user's assessments newest first
func (r *Repository) ListAssessmentsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*FraudRisk, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM risk_assessments WHERE user_id = $1`
	if err := r.db.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, user_id, score, level, factors, assessed_at
		FROM risk_assessments
		WHERE user_id = $1
		ORDER BY assessed_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var assessments []*FraudRisk
	for rows.Next() {
		var risk FraudRisk
		var factorsJSON []byte

		if err := rows.Scan(
			&risk.ID,
			&risk.UserID,
			&risk.Score,
			&risk.Level,
			&factorsJSON,
			&risk.AssessedAt,
		); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(factorsJSON, &risk.Factors); err != nil {
			return nil, 0, err
		}
		assessments = append(assessments, &risk)
	}

	return assessments, total, rows.Err()
}

// RecordTransaction logs a scored transaction. The log backs the location
// history lookup and offline behavior profiling.
func (r *Repository) RecordTransaction(ctx context.Context, payment PaymentContext) error {
	query := `
		INSERT INTO transactions (id, user_id, amount, currency, device_id, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
	`

	var lat, lng *float64
	if payment.Location != nil {
		lat = &payment.Location.Latitude
		lng = &payment.Location.Longitude
	}

	at := payment.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx, query,
		uuid.New(),
		payment.UserID,
		payment.Amount,
		payment.Currency,
		payment.DeviceID,
		lat,
		lng,
		at,
	)

	return err
}

// RecentActivity counts and sums a user's transactions inside the window.
// Backs the velocity analyzer when Redis is not in front of it.
func (r *Repository) RecentActivity(ctx context.Context, userID uuid.UUID, window time.Duration) (TransactionStats, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND created_at > $2
	`

	var stats TransactionStats
	err := r.db.QueryRow(ctx, query, userID, time.Now().UTC().Add(-window)).Scan(&stats.Count, &stats.Total)
	return stats, err
}

// LastKnown returns the user's most recent transaction location, or nil
// when none is recorded.
func (r *Repository) LastKnown(ctx context.Context, userID uuid.UUID) (*LocationRecord, error) {
	query := `
		SELECT latitude, longitude, created_at
		FROM transactions
		WHERE user_id = $1 AND latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY created_at DESC
		LIMIT 1
	`

	var record LocationRecord
	err := r.db.QueryRow(ctx, query, userID).Scan(&record.Latitude, &record.Longitude, &record.RecordedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &record, nil
}

// Profile returns the customer's behavior profile, or nil when the account
// has no history yet. Profiles are maintained by the offline analytics job.
func (r *Repository) Profile(ctx context.Context, userID uuid.UUID) (*BehaviorProfile, error) {
	query := `
		SELECT unusual_pattern, velocity_violations, geo_anomaly
		FROM behavior_profiles
		WHERE user_id = $1
	`

	var profile BehaviorProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.UnusualPattern,
		&profile.VelocityViolations,
		&profile.GeoAnomaly,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &profile, nil
}

// Lookup returns the reputation record for a device, or nil for an unknown
// device. Results are cached; reputation changes rarely.
func (r *Repository) Lookup(ctx context.Context, deviceID string) (*DeviceProfile, error) {
	fetch := func() (*DeviceProfile, error) {
		query := `
			SELECT device_id, fraudulent, inconsistent, suspicious
			FROM device_profiles
			WHERE device_id = $1
		`

		var profile DeviceProfile
		err := r.db.QueryRow(ctx, query, deviceID).Scan(
			&profile.DeviceID,
			&profile.Fraudulent,
			&profile.Inconsistent,
			&profile.Suspicious,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil
			}
			return nil, err
		}
		return &profile, nil
	}

	if r.cache == nil {
		return fetch()
	}

	var cached DeviceProfile
	key := cache.Keys.DeviceProfile(deviceID)
	err := r.cache.GetOrSet(ctx, key, cache.TTL.Medium(), &cached, func() (interface{}, error) {
		profile, err := fetch()
		if err != nil {
			return nil, err
		}
		if profile == nil {
			// Unknown devices are cached as a zero profile.
			return &DeviceProfile{DeviceID: deviceID}, nil
		}
		return profile, nil
	})
	if err != nil {
		return nil, err
	}

	if !cached.Fraudulent && !cached.Inconsistent && !cached.Suspicious {
		return nil, nil
	}
	return &cached, nil
}

// MarkDevice upserts a device reputation record and drops its cache entry.
func (r *Repository) MarkDevice(ctx context.Context, profile *DeviceProfile) error {
	query := `
		INSERT INTO device_profiles (device_id, fraudulent, inconsistent, suspicious, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (device_id) DO UPDATE
		SET fraudulent = EXCLUDED.fraudulent,
		    inconsistent = EXCLUDED.inconsistent,
		    suspicious = EXCLUDED.suspicious,
		    updated_at = NOW()
	`

	_, err := r.db.Exec(ctx, query,
		profile.DeviceID,
		profile.Fraudulent,
		profile.Inconsistent,
		profile.Suspicious,
	)
	if err != nil {
		return err
	}

	if r.cache != nil {
		_ = r.cache.Delete(ctx, cache.Keys.DeviceProfile(profile.DeviceID))
	}
	return nil
}
