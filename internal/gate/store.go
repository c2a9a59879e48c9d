package gate

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCredentialStore reads API credentials from the api_keys table.
type PostgresCredentialStore struct {
	db *pgxpool.Pool
}

// NewPostgresCredentialStore creates the store.
func NewPostgresCredentialStore(db *pgxpool.Pool) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: db}
}

func (s *PostgresCredentialStore) CredentialFor(ctx context.Context, keyID string) (*Credential, error) {
	query := `
		SELECT key_id, api_key, signing_secret, active
		FROM api_keys
		WHERE key_id = $1
	`

	var credential Credential
	err := s.db.QueryRow(ctx, query, keyID).Scan(
		&credential.KeyID,
		&credential.APIKey,
		&credential.SigningSecret,
		&credential.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &credential, nil
}

// StaticCredentialStore serves a fixed credential set. Used for single-key
// internal deployments and tests.
type StaticCredentialStore struct {
	mu          sync.RWMutex
	credentials map[string]Credential
}

// NewStaticCredentialStore creates a store over the given credentials.
func NewStaticCredentialStore(credentials ...Credential) *StaticCredentialStore {
	store := &StaticCredentialStore{credentials: make(map[string]Credential, len(credentials))}
	for _, c := range credentials {
		store.credentials[c.KeyID] = c
	}
	return store
}

func (s *StaticCredentialStore) CredentialFor(_ context.Context, keyID string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	credential, ok := s.credentials[keyID]
	if !ok {
		return nil, nil
	}
	return &credential, nil
}

// Add registers or replaces a credential.
func (s *StaticCredentialStore) Add(credential Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[credential.KeyID] = credential
}
