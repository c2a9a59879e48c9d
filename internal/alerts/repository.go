package alerts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists fraud alerts and their investigation trail.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new alerts repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const alertColumns = `id, assessment_id, user_id, level, status, score, description,
       details, detected_at, investigated_at, investigated_by, resolved_at, notes, action_taken`

// CreateAlert inserts a new alert.
func (r *Repository) CreateAlert(ctx context.Context, alert *Alert) error {
	detailsJSON, err := json.Marshal(alert.Details)
	if err != nil {
		return fmt.Errorf("marshal alert details: %w", err)
	}

	query := `
		INSERT INTO fraud_alerts (
			id, assessment_id, user_id, level, status, score, description,
			details, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.Exec(ctx, query,
		alert.ID,
		alert.AssessmentID,
		alert.UserID,
		alert.Level,
		alert.Status,
		alert.Score,
		alert.Description,
		detailsJSON,
		alert.DetectedAt,
	)
	return err
}

// GetAlertByID retrieves a single alert.
func (r *Repository) GetAlertByID(ctx context.Context, alertID uuid.UUID) (*Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM fraud_alerts WHERE id = $1`

	alert, err := scanAlert(r.db.QueryRow(ctx, query, alertID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return alert, nil
}

// ListOpenAlerts retrieves pending and investigating alerts, most severe first.
func (r *Repository) ListOpenAlerts(ctx context.Context, limit, offset int) ([]*Alert, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM fraud_alerts WHERE status IN ('pending', 'investigating')`
	if err := r.db.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + alertColumns + `
		FROM fraud_alerts
		WHERE status IN ('pending', 'investigating')
		ORDER BY score DESC, detected_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	alerts, err := collectAlerts(rows)
	return alerts, total, err
}

// ListAlertsByUser retrieves all alerts raised against a user.
func (r *Repository) ListAlertsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Alert, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM fraud_alerts WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + alertColumns + `
		FROM fraud_alerts
		WHERE user_id = $1
		ORDER BY detected_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	alerts, err := collectAlerts(rows)
	return alerts, total, err
}

// StartInvestigation marks an alert as under investigation by the given analyst.
func (r *Repository) StartInvestigation(ctx context.Context, alertID, analystID uuid.UUID) error {
	query := `
		UPDATE fraud_alerts
		SET status = 'investigating', investigated_at = $1, investigated_by = $2
		WHERE id = $3 AND status = 'pending'
	`

	tag, err := r.db.Exec(ctx, query, time.Now().UTC(), analystID, alertID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// ResolveAlert closes an alert with the analyst's conclusion.
func (r *Repository) ResolveAlert(ctx context.Context, alertID uuid.UUID, status AlertStatus, notes, actionTaken string) error {
	if !validResolutions[status] {
		return fmt.Errorf("invalid resolution status: %s", status)
	}

	query := `
		UPDATE fraud_alerts
		SET status = $1, resolved_at = $2, notes = $3, action_taken = $4
		WHERE id = $5 AND status IN ('pending', 'investigating')
	`

	tag, err := r.db.Exec(ctx, query, status, time.Now().UTC(), notes, actionTaken, alertID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// CountOpenByUser returns how many alerts are currently open against a user.
func (r *Repository) CountOpenByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM fraud_alerts WHERE user_id = $1 AND status IN ('pending', 'investigating')`
	err := r.db.QueryRow(ctx, query, userID).Scan(&count)
	return count, err
}

// Statistics summarizes alert volume over a time window.
type Statistics struct {
	Total      int64            `json:"total"`
	Open       int64            `json:"open"`
	ByLevel    map[string]int64 `json:"by_level"`
	WindowFrom time.Time        `json:"window_from"`
}

// GetStatistics aggregates alert counts since the given time.
func (r *Repository) GetStatistics(ctx context.Context, since time.Time) (*Statistics, error) {
	stats := &Statistics{ByLevel: make(map[string]int64), WindowFrom: since}

	query := `
		SELECT level, COUNT(*),
		       COUNT(*) FILTER (WHERE status IN ('pending', 'investigating'))
		FROM fraud_alerts
		WHERE detected_at >= $1
		GROUP BY level
	`

	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var level string
		var count, open int64
		if err := rows.Scan(&level, &count, &open); err != nil {
			return nil, err
		}
		stats.ByLevel[level] = count
		stats.Total += count
		stats.Open += open
	}

	return stats, rows.Err()
}

func collectAlerts(rows pgx.Rows) ([]*Alert, error) {
	var alerts []*Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func scanAlert(row pgx.Row) (*Alert, error) {
	var alert Alert
	var detailsJSON []byte
	var investigatedAt, resolvedAt sql.NullTime
	var investigatedBy sql.NullString
	var notes, actionTaken sql.NullString

	err := row.Scan(
		&alert.ID,
		&alert.AssessmentID,
		&alert.UserID,
		&alert.Level,
		&alert.Status,
		&alert.Score,
		&alert.Description,
		&detailsJSON,
		&alert.DetectedAt,
		&investigatedAt,
		&investigatedBy,
		&resolvedAt,
		&notes,
		&actionTaken,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(detailsJSON, &alert.Details); err != nil {
		alert.Details = make(map[string]interface{})
	}
	if investigatedAt.Valid {
		alert.InvestigatedAt = &investigatedAt.Time
	}
	if investigatedBy.Valid {
		id, err := uuid.Parse(investigatedBy.String)
		if err == nil {
			alert.InvestigatedBy = &id
		}
	}
	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}
	if notes.Valid {
		alert.Notes = notes.String
	}
	if actionTaken.Valid {
		alert.ActionTaken = actionTaken.String
	}

	return &alert, nil
}
