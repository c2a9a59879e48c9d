package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/richxcame/cardshield/pkg/config"
)

// Repository is the token backing store. Tokens and their ciphertext live in
// one row so a revoke or purge can never orphan key material.
type Repository struct {
	db *sql.DB
}

// NewRepository wraps an open database handle
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Open connects to Postgres with the lib/pq driver
func Open(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping token store: %w", err)
	}

	return db, nil
}

// CreateToken persists a token together with its encrypted card payload
func (r *Repository) CreateToken(ctx context.Context, token *CardToken, enc *EncryptedCardData) error {
	query := `
		INSERT INTO card_tokens (
			id, user_id, last_four, brand, expiry_month, expiry_year,
			active, ciphertext, nonce, format_version, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.LastFour,
		token.Brand,
		token.ExpiryMonth,
		token.ExpiryYear,
		token.Active,
		enc.Ciphertext,
		enc.Nonce,
		enc.Version,
		token.CreatedAt,
	)

	return err
}

// GetToken retrieves token metadata by id
func (r *Repository) GetToken(ctx context.Context, tokenID uuid.UUID) (*CardToken, error) {
	query := `
		SELECT id, user_id, last_four, brand, expiry_month, expiry_year,
		       active, created_at, revoked_at
		FROM card_tokens
		WHERE id = $1
	`

	var token CardToken
	var revokedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, tokenID).Scan(
		&token.ID,
		&token.UserID,
		&token.LastFour,
		&token.Brand,
		&token.ExpiryMonth,
		&token.ExpiryYear,
		&token.Active,
		&token.CreatedAt,
		&revokedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	if revokedAt.Valid {
		token.RevokedAt = &revokedAt.Time
	}

	return &token, nil
}

// GetCiphertext retrieves the encrypted payload for an active token
func (r *Repository) GetCiphertext(ctx context.Context, tokenID uuid.UUID) (*EncryptedCardData, error) {
	query := `
		SELECT ciphertext, nonce, format_version, created_at, active
		FROM card_tokens
		WHERE id = $1
	`

	var enc EncryptedCardData
	var active bool

	err := r.db.QueryRowContext(ctx, query, tokenID).Scan(
		&enc.Ciphertext,
		&enc.Nonce,
		&enc.Version,
		&enc.CreatedAt,
		&active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	if !active {
		return nil, ErrTokenRevoked
	}

	return &enc, nil
}

// RevokeToken marks a token inactive. Revoking an already revoked or
// missing token reports ErrTokenNotFound.
func (r *Repository) RevokeToken(ctx context.Context, tokenID uuid.UUID, revokedAt time.Time) error {
	query := `
		UPDATE card_tokens
		SET active = FALSE, revoked_at = $2
		WHERE id = $1 AND active = TRUE
	`

	result, err := r.db.ExecContext(ctx, query, tokenID, revokedAt)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTokenNotFound
	}

	return nil
}

// ListTokensByUser returns a user's tokens newest first
func (r *Repository) ListTokensByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*CardToken, error) {
	query := `
		SELECT id, user_id, last_four, brand, expiry_month, expiry_year,
		       active, created_at, revoked_at
		FROM card_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*CardToken
	for rows.Next() {
		var token CardToken
		var revokedAt sql.NullTime

		if err := rows.Scan(
			&token.ID,
			&token.UserID,
			&token.LastFour,
			&token.Brand,
			&token.ExpiryMonth,
			&token.ExpiryYear,
			&token.Active,
			&token.CreatedAt,
			&revokedAt,
		); err != nil {
			return nil, err
		}

		if revokedAt.Valid {
			token.RevokedAt = &revokedAt.Time
		}
		tokens = append(tokens, &token)
	}

	return tokens, rows.Err()
}
