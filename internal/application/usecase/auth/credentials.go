// Package auth holds the account use cases: sign-up, sign-in, token
// rotation, password reset and account removal.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
)

// maxNameLength matches the users.name column.
const maxNameLength = 100

// SessionOutput is a freshly issued token pair for a user.
type SessionOutput struct {
	AccessToken  string
	RefreshToken string
	User         *entity.User
}

type (
	RegisterUserOutput = SessionOutput
	LoginUserOutput    = SessionOutput
)

// accounts bundles the ports shared by sign-up and sign-in.
type accounts struct {
	users     adapter.UserRepository
	passwords adapter.PasswordService
	tokens    adapter.TokenService
}

func (a accounts) session(ctx context.Context, user *entity.User, rememberMe bool) (*SessionOutput, error) {
	pair, err := a.tokens.GenerateTokenPair(ctx, user.ID, user.Email, rememberMe)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	return &SessionOutput{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, User: user}, nil
}

type RegisterUserInput struct {
	Email         string
	Name          string
	Password      string
	TermsAccepted bool
}

// RegisterUserUseCase creates an account and signs the new user in.
type RegisterUserUseCase struct{ accounts }

func NewRegisterUserUseCase(users adapter.UserRepository, passwords adapter.PasswordService, tokens adapter.TokenService) *RegisterUserUseCase {
	return &RegisterUserUseCase{accounts{users: users, passwords: passwords, tokens: tokens}}
}

func (uc *RegisterUserUseCase) Execute(ctx context.Context, input RegisterUserInput) (*RegisterUserOutput, error) {
	email, name, err := uc.validate(input)
	if err != nil {
		return nil, err
	}

	taken, err := uc.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if taken {
		return nil, domainerror.NewAuthError(domainerror.ErrCodeEmailExists, "email already exists", domainerror.ErrEmailAlreadyExists)
	}

	hash, err := uc.passwords.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := entity.NewUser(email, name, hash, time.Now().UTC())
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return uc.session(ctx, user, false)
}

// validate returns the normalized email and trimmed name.
func (uc *RegisterUserUseCase) validate(input RegisterUserInput) (string, string, error) {
	if !input.TermsAccepted {
		return "", "", domainerror.NewAuthError(domainerror.ErrCodeTermsNotAccepted,
			"terms of service must be accepted", domainerror.ErrTermsNotAccepted)
	}
	email, ok := normalizeEmail(input.Email)
	if !ok {
		return "", "", domainerror.NewAuthError(domainerror.ErrCodeInvalidEmail,
			"invalid email format", domainerror.ErrInvalidEmail)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", "", domainerror.NewAuthError(domainerror.ErrCodeMissingFields,
			fmt.Sprintf("name is required and must be at most %d characters", maxNameLength), nil)
	}
	if uc.passwords.ValidatePasswordStrength(input.Password) != nil {
		return "", "", domainerror.NewAuthError(domainerror.ErrCodeWeakPassword,
			"password does not meet minimum requirements", domainerror.ErrWeakPassword)
	}
	return email, name, nil
}

type LoginUserInput struct {
	Email      string
	Password   string
	RememberMe bool
}

// LoginUserUseCase exchanges credentials for a session. RememberMe selects
// the long-lived token durations.
type LoginUserUseCase struct{ accounts }

func NewLoginUserUseCase(users adapter.UserRepository, passwords adapter.PasswordService, tokens adapter.TokenService) *LoginUserUseCase {
	return &LoginUserUseCase{accounts{users: users, passwords: passwords, tokens: tokens}}
}

// Execute answers every failure the same way so unknown emails and wrong
// passwords are indistinguishable.
func (uc *LoginUserUseCase) Execute(ctx context.Context, input LoginUserInput) (*LoginUserOutput, error) {
	email, ok := normalizeEmail(input.Email)
	if !ok {
		return nil, invalidCredentials()
	}
	user, err := uc.users.FindByEmail(ctx, email)
	if err != nil || uc.passwords.VerifyPassword(user.PasswordHash, input.Password) != nil {
		return nil, invalidCredentials()
	}
	return uc.session(ctx, user, input.RememberMe)
}

func invalidCredentials() error {
	return domainerror.NewAuthError(domainerror.ErrCodeInvalidCredentials,
		"invalid email or password", domainerror.ErrInvalidCredentials)
}
