package card

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/cardshield/pkg/cache"
)

// DenyListEntry is a deny-listed card fingerprint with audit metadata
type DenyListEntry struct {
	Fingerprint string    `json:"fingerprint"`
	Reason      string    `json:"reason"`
	AddedBy     string    `json:"added_by,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

// DenyListRepository stores deny-listed card fingerprints in Postgres with a
// Redis read-through cache in front of the membership check.
type DenyListRepository struct {
	db    *pgxpool.Pool
	cache *cache.Manager
}

// NewDenyListRepository creates a deny-list repository. cacheManager may be
// nil to disable caching.
func NewDenyListRepository(db *pgxpool.Pool, cacheManager *cache.Manager) *DenyListRepository {
	return &DenyListRepository{db: db, cache: cacheManager}
}

// Contains reports whether a card fingerprint is deny-listed
func (r *DenyListRepository) Contains(ctx context.Context, fingerprint string) (bool, error) {
	if r.cache != nil {
		var cached bool
		if err := r.cache.Get(ctx, cache.Keys.CardFingerprint(fingerprint), &cached); err == nil {
			return cached, nil
		}
	}

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM card_deny_list WHERE fingerprint = $1)`
	if err := r.db.QueryRow(ctx, query, fingerprint).Scan(&exists); err != nil {
		return false, err
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, cache.Keys.CardFingerprint(fingerprint), exists, cache.TTL.Short())
	}

	return exists, nil
}

// Add inserts a fingerprint into the deny list
func (r *DenyListRepository) Add(ctx context.Context, entry *DenyListEntry) error {
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now()
	}

	query := `
		INSERT INTO card_deny_list (fingerprint, reason, added_by, added_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (fingerprint) DO UPDATE SET
			reason = EXCLUDED.reason,
			added_by = EXCLUDED.added_by,
			added_at = EXCLUDED.added_at
	`

	_, err := r.db.Exec(ctx, query, entry.Fingerprint, entry.Reason, entry.AddedBy, entry.AddedAt)
	if err != nil {
		return err
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, cache.Keys.CardFingerprint(entry.Fingerprint), true, cache.TTL.Short())
	}

	return nil
}

// Remove deletes a fingerprint from the deny list
func (r *DenyListRepository) Remove(ctx context.Context, fingerprint string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM card_deny_list WHERE fingerprint = $1`, fingerprint)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	if r.cache != nil {
		_ = r.cache.Delete(ctx, cache.Keys.CardFingerprint(fingerprint))
	}

	return nil
}

// List returns deny-list entries newest first
func (r *DenyListRepository) List(ctx context.Context, limit, offset int) ([]*DenyListEntry, error) {
	query := `
		SELECT fingerprint, reason, COALESCE(added_by, ''), added_at
		FROM card_deny_list
		ORDER BY added_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*DenyListEntry
	for rows.Next() {
		var entry DenyListEntry
		if err := rows.Scan(&entry.Fingerprint, &entry.Reason, &entry.AddedBy, &entry.AddedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// IsNotFound reports whether the error is a missing-row error
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
