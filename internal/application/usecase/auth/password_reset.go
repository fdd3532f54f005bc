package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/business-planner/backend/internal/application/adapter"
	domainerror "github.com/business-planner/backend/internal/domain/error"
)

const (
	forgotPasswordMessage = "If an account with that email exists, we have sent a password reset link"
	resetPasswordMessage  = "Password has been successfully reset"
	resetLinkLifetime     = "1 hour"
)

type ForgotPasswordInput struct {
	Email string
}

type ForgotPasswordOutput struct {
	Message string
}

// ForgotPasswordUseCase emails a reset link. Known and unknown addresses get
// the same answer so accounts cannot be enumerated.
type ForgotPasswordUseCase struct {
	users      adapter.UserRepository
	resets     adapter.PasswordResetTokenService
	emails     adapter.EmailService
	appBaseURL string
}

// NewForgotPasswordUseCase wires the use case. A nil emails logs the reset
// link instead of queueing it.
func NewForgotPasswordUseCase(
	users adapter.UserRepository,
	resets adapter.PasswordResetTokenService,
	emails adapter.EmailService,
	appBaseURL string,
) *ForgotPasswordUseCase {
	return &ForgotPasswordUseCase{users: users, resets: resets, emails: emails, appBaseURL: appBaseURL}
}

func (uc *ForgotPasswordUseCase) Execute(ctx context.Context, input ForgotPasswordInput) (*ForgotPasswordOutput, error) {
	email, ok := normalizeEmail(input.Email)
	if !ok {
		return nil, domainerror.NewAuthError(domainerror.ErrCodeInvalidEmail, "invalid email format", domainerror.ErrInvalidEmail)
	}

	done := &ForgotPasswordOutput{Message: forgotPasswordMessage}

	user, err := uc.users.FindByEmail(ctx, email)
	if err != nil {
		slog.Debug("Password reset requested for unknown email", "email", email)
		return done, nil
	}

	token, err := uc.resets.GenerateResetToken(ctx, user.ID, user.Email)
	if err != nil {
		slog.Error("Failed to generate reset token", "error", err, "userID", user.ID)
		return done, nil
	}

	link := uc.resetLink(token.Token)
	if uc.emails == nil {
		slog.Info("Email service not configured, reset link only logged", "userID", user.ID, "resetURL", link)
		return done, nil
	}

	err = uc.emails.QueuePasswordResetEmail(ctx, adapter.QueuePasswordResetInput{
		UserID:    user.ID.String(),
		UserEmail: user.Email,
		UserName:  user.Name,
		ResetURL:  link,
		ExpiresIn: resetLinkLifetime,
	})
	if err != nil {
		slog.Error("Failed to queue password reset email", "error", err, "userID", user.ID)
		return done, nil
	}

	slog.Info("Password reset email queued", "userID", user.ID)
	return done, nil
}

func (uc *ForgotPasswordUseCase) resetLink(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(uc.appBaseURL, "/"), url.QueryEscape(token))
}

type ResetPasswordInput struct {
	Token       string
	NewPassword string
}

type ResetPasswordOutput struct {
	Message string
}

// ResetPasswordUseCase sets a new password from a reset token and ends every
// session opened with the old one.
type ResetPasswordUseCase struct {
	users     adapter.UserRepository
	passwords adapter.PasswordService
	resets    adapter.PasswordResetTokenService
	tokens    adapter.TokenService
}

func NewResetPasswordUseCase(
	users adapter.UserRepository,
	passwords adapter.PasswordService,
	resets adapter.PasswordResetTokenService,
	tokens adapter.TokenService,
) *ResetPasswordUseCase {
	return &ResetPasswordUseCase{users: users, passwords: passwords, resets: resets, tokens: tokens}
}

func (uc *ResetPasswordUseCase) Execute(ctx context.Context, input ResetPasswordInput) (*ResetPasswordOutput, error) {
	reset, err := uc.resets.ValidateResetToken(ctx, input.Token)
	if err != nil {
		return nil, domainerror.NewAuthError(domainerror.ErrCodeInvalidResetToken,
			"invalid or expired password reset token", domainerror.ErrInvalidResetToken)
	}
	if !time.Now().UTC().Before(reset.ExpiresAt) {
		return nil, domainerror.NewAuthError(domainerror.ErrCodeExpiredResetToken,
			"password reset token has expired", domainerror.ErrInvalidResetToken)
	}
	if err := uc.passwords.ValidatePasswordStrength(input.NewPassword); err != nil {
		return nil, domainerror.NewAuthError(domainerror.ErrCodeWeakPassword,
			"password does not meet minimum requirements", domainerror.ErrWeakPassword)
	}

	user, err := uc.users.FindByID(ctx, reset.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	hash, err := uc.passwords.HashPassword(input.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now().UTC()
	if err := uc.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	// The password already changed, so cleanup failures are only logged.
	if err := uc.resets.InvalidateResetToken(ctx, input.Token); err != nil {
		slog.Warn("Failed to invalidate reset token", "error", err, "userID", user.ID)
	}
	if uc.tokens != nil {
		if err := uc.tokens.InvalidateAllUserTokens(ctx, user.ID); err != nil {
			slog.Warn("Failed to revoke sessions after password reset", "error", err, "userID", user.ID)
		}
	}

	return &ResetPasswordOutput{Message: resetPasswordMessage}, nil
}
