package auth

import (
	"context"
	"fmt"

	"github.com/business-planner/backend/internal/application/adapter"
	domainerror "github.com/business-planner/backend/internal/domain/error"
)

// RefreshTokenInput carries the refresh token to rotate.
type RefreshTokenInput struct {
	RefreshToken string
}

// RefreshTokenOutput is the replacement token pair.
type RefreshTokenOutput struct {
	AccessToken  string
	RefreshToken string
}

// RefreshTokenUseCase rotates a refresh token. The presented token is revoked
// before the new pair is issued, so each refresh token works once.
type RefreshTokenUseCase struct {
	tokenService adapter.TokenService
}

func NewRefreshTokenUseCase(tokenService adapter.TokenService) *RefreshTokenUseCase {
	return &RefreshTokenUseCase{tokenService: tokenService}
}

func (uc *RefreshTokenUseCase) Execute(ctx context.Context, input RefreshTokenInput) (*RefreshTokenOutput, error) {
	claims, err := uc.tokenService.ValidateRefreshToken(ctx, input.RefreshToken)
	if err != nil {
		return nil, invalidRefreshToken("invalid or expired refresh token")
	}

	valid, err := uc.tokenService.IsRefreshTokenValid(ctx, input.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}
	if !valid {
		return nil, invalidRefreshToken("refresh token has been revoked")
	}

	if err := uc.tokenService.InvalidateRefreshToken(ctx, input.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	pair, err := uc.tokenService.GenerateTokenPair(ctx, claims.UserID, claims.Email, false)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	return &RefreshTokenOutput{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func invalidRefreshToken(message string) error {
	return domainerror.NewAuthError(domainerror.ErrCodeInvalidToken, message, domainerror.ErrInvalidToken)
}

// LogoutUserInput carries the refresh token to revoke.
type LogoutUserInput struct {
	RefreshToken string
}

type LogoutUserOutput struct {
	Message string
}

// LogoutUserUseCase revokes a refresh token. Unknown or already revoked
// tokens are not an error.
type LogoutUserUseCase struct {
	tokenService adapter.TokenService
}

func NewLogoutUserUseCase(tokenService adapter.TokenService) *LogoutUserUseCase {
	return &LogoutUserUseCase{tokenService: tokenService}
}

func (uc *LogoutUserUseCase) Execute(ctx context.Context, input LogoutUserInput) (*LogoutUserOutput, error) {
	_ = uc.tokenService.InvalidateRefreshToken(ctx, input.RefreshToken)
	return &LogoutUserOutput{Message: "Successfully logged out"}, nil
}
