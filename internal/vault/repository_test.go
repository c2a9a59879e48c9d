package vault

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/cardshield/internal/card"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(db), mock
}

func TestRepository_CreateToken(t *testing.T) {
	repo, mock := newMockRepository(t)

	token := &CardToken{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		LastFour:    "1111",
		Brand:       card.BrandVisa,
		ExpiryMonth: 12,
		ExpiryYear:  2030,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	enc := &EncryptedCardData{
		Ciphertext: []byte{0xde, 0xad},
		Nonce:      make([]byte, 24),
		Version:    FormatVersion,
	}

	mock.ExpectExec(`INSERT INTO card_tokens`).
		WithArgs(token.ID, token.UserID, token.LastFour, token.Brand,
			token.ExpiryMonth, token.ExpiryYear, token.Active,
			enc.Ciphertext, enc.Nonce, enc.Version, token.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreateToken(context.Background(), token, enc)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetToken(t *testing.T) {
	repo, mock := newMockRepository(t)
	tokenID := uuid.New()
	userID := uuid.New()
	created := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "last_four", "brand", "expiry_month", "expiry_year",
		"active", "created_at", "revoked_at",
	}).AddRow(tokenID, userID, "1111", "visa", 12, 2030, true, created, nil)

	mock.ExpectQuery(`SELECT id, user_id, last_four, brand`).
		WithArgs(tokenID).
		WillReturnRows(rows)

	token, err := repo.GetToken(context.Background(), tokenID)
	require.NoError(t, err)
	assert.Equal(t, tokenID, token.ID)
	assert.Equal(t, userID, token.UserID)
	assert.Equal(t, "1111", token.LastFour)
	assert.True(t, token.Active)
	assert.Nil(t, token.RevokedAt)
}

func TestRepository_GetToken_Revoked(t *testing.T) {
	repo, mock := newMockRepository(t)
	tokenID := uuid.New()
	revoked := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "last_four", "brand", "expiry_month", "expiry_year",
		"active", "created_at", "revoked_at",
	}).AddRow(tokenID, uuid.New(), "1111", "visa", 12, 2030, false, revoked.Add(-time.Hour), revoked)

	mock.ExpectQuery(`SELECT id, user_id, last_four, brand`).
		WithArgs(tokenID).
		WillReturnRows(rows)

	token, err := repo.GetToken(context.Background(), tokenID)
	require.NoError(t, err)
	assert.False(t, token.Active)
	require.NotNil(t, token.RevokedAt)
	assert.WithinDuration(t, revoked, *token.RevokedAt, time.Second)
}

func TestRepository_GetToken_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	tokenID := uuid.New()

	mock.ExpectQuery(`SELECT id, user_id, last_four, brand`).
		WithArgs(tokenID).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetToken(context.Background(), tokenID)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRepository_GetCiphertext_Active(t *testing.T) {
	repo, mock := newMockRepository(t)
	tokenID := uuid.New()

	rows := sqlmock.NewRows([]string{"ciphertext", "nonce", "format_version", "created_at", "active"}).
		AddRow([]byte{1, 2, 3}, make([]byte, 24), FormatVersion, time.Now().UTC(), true)

	mock.ExpectQuery(`SELECT ciphertext, nonce, format_version`).
		WithArgs(tokenID).
		WillReturnRows(rows)

	enc, err := repo.GetCiphertext(context.Background(), tokenID)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, enc.Ciphertext)
	assert.Equal(t, FormatVersion, enc.Version)
}

func TestRepository_GetCiphertext_Revoked(t *testing.T) {
	repo, mock := newMockRepository(t)
	tokenID := uuid.New()

	rows := sqlmock.NewRows([]string{"ciphertext", "nonce", "format_version", "created_at", "active"}).
		AddRow([]byte{1, 2, 3}, make([]byte, 24), FormatVersion, time.Now().UTC(), false)

	mock.ExpectQuery(`SELECT ciphertext, nonce, format_version`).
		WithArgs(tokenID).
		WillReturnRows(rows)

	_, err := repo.GetCiphertext(context.Background(), tokenID)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRepository_RevokeToken(t *testing.T) {
	repo, mock := newMockRepository(t)
	tokenID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE card_tokens`).
		WithArgs(tokenID, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RevokeToken(context.Background(), tokenID, now)
	assert.NoError(t, err)
}

func TestRepository_RevokeToken_AlreadyRevoked(t *testing.T) {
	repo, mock := newMockRepository(t)
	tokenID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE card_tokens`).
		WithArgs(tokenID, now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RevokeToken(context.Background(), tokenID, now)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRepository_ListTokensByUser(t *testing.T) {
	repo, mock := newMockRepository(t)
	userID := uuid.New()
	created := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "last_four", "brand", "expiry_month", "expiry_year",
		"active", "created_at", "revoked_at",
	}).
		AddRow(uuid.New(), userID, "1111", "visa", 12, 2030, true, created, nil).
		AddRow(uuid.New(), userID, "0005", "amex", 6, 2028, false, created.Add(-time.Hour), created)

	mock.ExpectQuery(`SELECT id, user_id, last_four, brand`).
		WithArgs(userID, 20, 0).
		WillReturnRows(rows)

	tokens, err := repo.ListTokensByUser(context.Background(), userID, 20, 0)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "1111", tokens[0].LastFour)
	assert.False(t, tokens[1].Active)
	assert.NotNil(t, tokens[1].RevokedAt)
}
