package vault

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/cardshield/internal/card"
	"github.com/richxcame/cardshield/pkg/eventbus"
	"github.com/richxcame/cardshield/pkg/logger"
	"github.com/richxcame/cardshield/pkg/security"
)

// CardValidator checks a card before it may be encrypted or tokenized
type CardValidator interface {
	Validate(ctx context.Context, data card.CardData) error
}

// TokenStore persists tokens and their encrypted payloads
type TokenStore interface {
	CreateToken(ctx context.Context, token *CardToken, enc *EncryptedCardData) error
	GetToken(ctx context.Context, tokenID uuid.UUID) (*CardToken, error)
	GetCiphertext(ctx context.Context, tokenID uuid.UUID) (*EncryptedCardData, error)
	RevokeToken(ctx context.Context, tokenID uuid.UUID, revokedAt time.Time) error
	ListTokensByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*CardToken, error)
}

// Service implements card validation, encryption and tokenization. Every
// path through the service validates first; invalid cards never reach the
// cipher or the store.
type Service struct {
	validator CardValidator
	cipher    *Cipher
	store     TokenStore
	bus       *eventbus.Bus
}

// NewService creates the vault service. bus may be nil to disable event
// publication.
func NewService(validator CardValidator, cipher *Cipher, store TokenStore, bus *eventbus.Bus) *Service {
	return &Service{
		validator: validator,
		cipher:    cipher,
		store:     store,
		bus:       bus,
	}
}

// ValidateCard runs the full validation chain and reports the outcome on
// the event bus.
func (s *Service) ValidateCard(ctx context.Context, userID uuid.UUID, data card.CardData) error {
	if err := s.validator.Validate(ctx, data); err != nil {
		s.publish(ctx, eventbus.SubjectCardValidationFail, eventbus.CardValidationFailedData{
			UserID:   userID,
			Reason:   err.Error(),
			FailedAt: time.Now().UTC(),
		})
		return err
	}

	s.publish(ctx, eventbus.SubjectCardValidated, eventbus.CardValidatedData{
		UserID:      userID,
		MaskedPAN:   security.MaskCardNumber(data.Normalized()),
		Brand:       string(data.Brand()),
		ValidatedAt: time.Now().UTC(),
	})
	return nil
}

// Encrypt validates then seals a card payload
func (s *Service) Encrypt(ctx context.Context, data card.CardData) (*EncryptedCardData, error) {
	if err := s.validator.Validate(ctx, data); err != nil {
		return nil, err
	}
	return s.cipher.Encrypt(data)
}

// Decrypt opens an encrypted card payload
func (s *Service) Decrypt(ctx context.Context, enc *EncryptedCardData) (card.CardData, error) {
	return s.cipher.Decrypt(enc)
}

// Tokenize validates the card, mints a token and stores the encrypted
// payload keyed by the token id. The token never embeds the card number.
func (s *Service) Tokenize(ctx context.Context, userID uuid.UUID, data card.CardData) (*CardToken, error) {
	if err := s.validator.Validate(ctx, data); err != nil {
		return nil, err
	}

	enc, err := s.cipher.Encrypt(data)
	if err != nil {
		return nil, err
	}

	token := &CardToken{
		ID:          uuid.New(),
		UserID:      userID,
		LastFour:    data.LastFour(),
		Brand:       data.Brand(),
		ExpiryMonth: data.ExpiryMonth,
		ExpiryYear:  data.ExpiryYear,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.CreateToken(ctx, token, enc); err != nil {
		return nil, err
	}

	s.publish(ctx, eventbus.SubjectCardTokenized, eventbus.CardTokenizedData{
		TokenID:     token.ID,
		UserID:      userID,
		MaskedPAN:   security.MaskCardNumber(data.Normalized()),
		Brand:       string(token.Brand),
		TokenizedAt: token.CreatedAt,
	})

	return token, nil
}

// GetToken retrieves token metadata
func (s *Service) GetToken(ctx context.Context, tokenID uuid.UUID) (*CardToken, error) {
	return s.store.GetToken(ctx, tokenID)
}

// ListTokens returns a user's tokens
func (s *Service) ListTokens(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*CardToken, error) {
	return s.store.ListTokensByUser(ctx, userID, limit, offset)
}

// Revoke deactivates a token. The ciphertext stays in place for audit but
// is no longer decryptable through the API.
func (s *Service) Revoke(ctx context.Context, tokenID uuid.UUID, reason string) error {
	token, err := s.store.GetToken(ctx, tokenID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.store.RevokeToken(ctx, tokenID, now); err != nil {
		return err
	}

	s.publish(ctx, eventbus.SubjectTokenRevoked, eventbus.TokenRevokedData{
		TokenID:   tokenID,
		UserID:    token.UserID,
		Reason:    reason,
		RevokedAt: now,
	})

	return nil
}

// DecryptToken opens the stored payload for an active token. Exposed only
// on the internal API surface.
func (s *Service) DecryptToken(ctx context.Context, tokenID uuid.UUID) (card.CardData, error) {
	enc, err := s.store.GetCiphertext(ctx, tokenID)
	if err != nil {
		return card.CardData{}, err
	}
	return s.cipher.Decrypt(enc)
}

func (s *Service) publish(ctx context.Context, subject string, data interface{}) {
	if s.bus == nil {
		return
	}

	event, err := eventbus.NewEvent(subject, "vault", data)
	if err != nil {
		logger.Get().Warn("failed to build event", zap.String("subject", subject), zap.Error(err))
		return
	}

	if err := s.bus.Publish(ctx, subject, event); err != nil {
		logger.Get().Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
