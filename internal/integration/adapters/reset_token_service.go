package adapters

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/integration/persistence"
)

const resetTokenLifetime = time.Hour

var errUnknownResetToken = errors.New("invalid or expired reset token")

type resetTokenService struct {
	store persistence.TokenRepository
}

// NewPasswordResetTokenService issues single-use random reset tokens valid
// for one hour.
func NewPasswordResetTokenService(store persistence.TokenRepository) adapter.PasswordResetTokenService {
	return &resetTokenService{store: store}
}

func (s *resetTokenService) GenerateResetToken(ctx context.Context, userID uuid.UUID, email string) (*adapter.PasswordResetToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}

	reset := &adapter.PasswordResetToken{
		Token:     hex.EncodeToString(buf),
		UserID:    userID,
		Email:     email,
		ExpiresAt: time.Now().UTC().Add(resetTokenLifetime),
	}
	if err := s.store.SavePasswordResetToken(ctx, reset.Token, userID, email, reset.ExpiresAt); err != nil {
		return nil, fmt.Errorf("failed to store reset token: %w", err)
	}
	return reset, nil
}

func (s *resetTokenService) ValidateResetToken(ctx context.Context, token string) (*adapter.PasswordResetToken, error) {
	stored, err := s.store.GetPasswordResetToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to load reset token: %w", err)
	}
	if stored == nil {
		return nil, errUnknownResetToken
	}
	return &adapter.PasswordResetToken{
		Token:     stored.Token,
		UserID:    stored.UserID,
		Email:     stored.Email,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}

func (s *resetTokenService) InvalidateResetToken(ctx context.Context, token string) error {
	return s.store.InvalidatePasswordResetToken(ctx, token)
}
