package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/domain/entity"
)

// UserRepository stores accounts. Lookups of unknown users return an error
// wrapping domainerror.ErrUserNotFound.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	// FindByEmail expects an already normalized address.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// PasswordService hashes and checks account passwords.
type PasswordService interface {
	HashPassword(password string) (string, error)
	// VerifyPassword returns nil only when password matches hash.
	VerifyPassword(hash, password string) error
	ValidatePasswordStrength(password string) error
}

// ErrTokenExpired is wrapped by validation errors for tokens past their expiry.
var ErrTokenExpired = errors.New("token expired")

// TokenPair is what a client receives on sign-in and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenClaims is the identity carried by a valid token.
type TokenClaims struct {
	UserID    uuid.UUID
	Email     string
	ExpiresAt time.Time
}

// TokenService issues and checks session tokens. Refresh tokens are
// revocable; access tokens live until they expire.
type TokenService interface {
	// GenerateTokenPair uses longer lifetimes when rememberMe is set.
	GenerateTokenPair(ctx context.Context, userID uuid.UUID, email string, rememberMe bool) (*TokenPair, error)
	ValidateAccessToken(ctx context.Context, token string) (*TokenClaims, error)
	ValidateRefreshToken(ctx context.Context, token string) (*TokenClaims, error)
	InvalidateRefreshToken(ctx context.Context, token string) error
	InvalidateAllUserTokens(ctx context.Context, userID uuid.UUID) error
	// IsRefreshTokenValid reports whether token is stored, unexpired and not revoked.
	IsRefreshTokenValid(ctx context.Context, token string) (bool, error)
}

// PasswordResetToken is a single-use credential mailed to the account owner.
type PasswordResetToken struct {
	Token     string
	UserID    uuid.UUID
	Email     string
	ExpiresAt time.Time
}

// PasswordResetTokenService manages reset tokens.
type PasswordResetTokenService interface {
	GenerateResetToken(ctx context.Context, userID uuid.UUID, email string) (*PasswordResetToken, error)
	// ValidateResetToken fails for unknown or already used tokens. Expiry is
	// left to the caller.
	ValidateResetToken(ctx context.Context, token string) (*PasswordResetToken, error)
	InvalidateResetToken(ctx context.Context, token string) error
}
