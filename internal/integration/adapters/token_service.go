// Package adapters implements the application adapters on top of third-party
// services.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/integration/persistence"
)

const (
	tokenIssuer      = "business-planner"
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenDurations sets token lifetimes. Zero values fall back to 15 minutes
// and 7 days, or 7 and 30 days when the user asked to be remembered.
type TokenDurations struct {
	Access            time.Duration
	Refresh           time.Duration
	RememberMeAccess  time.Duration
	RememberMeRefresh time.Duration
}

func (d TokenDurations) lifetimes(rememberMe bool) (access, refresh time.Duration) {
	if rememberMe {
		return orDefault(d.RememberMeAccess, 7*24*time.Hour), orDefault(d.RememberMeRefresh, 30*24*time.Hour)
	}
	return orDefault(d.Access, 15*time.Minute), orDefault(d.Refresh, 7*24*time.Hour)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// jwtClaims is the payload of both access and refresh tokens.
type jwtClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// jwtTokenService signs HS256 tokens. Refresh tokens are also stored so they
// can be revoked.
type jwtTokenService struct {
	secret    []byte
	durations TokenDurations
	store     persistence.TokenRepository
}

// NewTokenService creates a JWT-backed adapter.TokenService.
func NewTokenService(secret string, durations TokenDurations, store persistence.TokenRepository) adapter.TokenService {
	return &jwtTokenService{secret: []byte(secret), durations: durations, store: store}
}

func (s *jwtTokenService) GenerateTokenPair(ctx context.Context, userID uuid.UUID, email string, rememberMe bool) (*adapter.TokenPair, error) {
	accessTTL, refreshTTL := s.durations.lifetimes(rememberMe)
	now := time.Now().UTC()

	access, err := s.sign(userID, email, tokenTypeAccess, now, accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.sign(userID, email, tokenTypeRefresh, now, refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	if err := s.store.SaveRefreshToken(ctx, refresh, userID, now.Add(refreshTTL)); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return &adapter.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *jwtTokenService) ValidateAccessToken(ctx context.Context, token string) (*adapter.TokenClaims, error) {
	return s.verify(token, tokenTypeAccess)
}

func (s *jwtTokenService) ValidateRefreshToken(ctx context.Context, token string) (*adapter.TokenClaims, error) {
	return s.verify(token, tokenTypeRefresh)
}

func (s *jwtTokenService) InvalidateRefreshToken(ctx context.Context, token string) error {
	return s.store.InvalidateRefreshToken(ctx, token)
}

func (s *jwtTokenService) InvalidateAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	return s.store.InvalidateAllUserRefreshTokens(ctx, userID)
}

func (s *jwtTokenService) IsRefreshTokenValid(ctx context.Context, token string) (bool, error) {
	return s.store.IsRefreshTokenValid(ctx, token)
}

func (s *jwtTokenService) sign(userID uuid.UUID, email, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := jwtClaims{
		UserID:    userID.String(),
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			// Pairs issued within the same second must still differ.
			ID: uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *jwtTokenService) verify(raw, tokenType string) (*adapter.TokenClaims, error) {
	claims := &jwtClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %w", adapter.ErrTokenExpired, err)
	case err != nil:
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("expected a %s token, got %q", tokenType, claims.TokenType)
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id in token: %w", err)
	}

	return &adapter.TokenClaims{UserID: userID, Email: claims.Email, ExpiresAt: claims.ExpiresAt.Time}, nil
}
