package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/application/planstate"
	domainerror "github.com/business-planner/backend/internal/domain/error"
)

// deleteConfirmation is the word the client must echo back, when it sends one.
const deleteConfirmation = "DELETE"

type DeleteAccountInput struct {
	UserID       uuid.UUID
	Password     string
	Confirmation string
}

type DeleteAccountOutput struct {
	Success      bool
	PlansDeleted int
}

// DeleteAccountUseCase removes a user together with every plan they own.
// Open plan stores are evicted first so no pending save recreates a plan.
type DeleteAccountUseCase struct {
	users     adapter.UserRepository
	passwords adapter.PasswordService
	tokens    adapter.TokenService
	plans     adapter.PlanRepository
	registry  *planstate.Registry
}

func NewDeleteAccountUseCase(
	users adapter.UserRepository,
	passwords adapter.PasswordService,
	tokens adapter.TokenService,
	plans adapter.PlanRepository,
	registry *planstate.Registry,
) *DeleteAccountUseCase {
	return &DeleteAccountUseCase{users: users, passwords: passwords, tokens: tokens, plans: plans, registry: registry}
}

func (uc *DeleteAccountUseCase) Execute(ctx context.Context, input DeleteAccountInput) (*DeleteAccountOutput, error) {
	if input.Confirmation != "" && input.Confirmation != deleteConfirmation {
		return nil, domainerror.NewAuthError(domainerror.ErrCodeInvalidConfirmation,
			"confirmation must be exactly 'DELETE'", nil)
	}

	user, err := uc.users.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, domainerror.NewAuthError(domainerror.ErrCodeUserNotFound, "user not found", err)
	}
	if err := uc.passwords.VerifyPassword(user.PasswordHash, input.Password); err != nil {
		return nil, domainerror.NewAuthError(domainerror.ErrCodeInvalidCredentials,
			"invalid password", domainerror.ErrInvalidCredentials)
	}

	if err := uc.tokens.InvalidateAllUserTokens(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to revoke sessions: %w", err)
	}

	deleted, err := uc.deletePlans(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if err := uc.users.Delete(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("Account deleted", "userID", user.ID, "plans", deleted)
	return &DeleteAccountOutput{Success: true, PlansDeleted: deleted}, nil
}

func (uc *DeleteAccountUseCase) deletePlans(ctx context.Context, ownerID uuid.UUID) (int, error) {
	plans, err := uc.plans.ListByOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to list plans: %w", err)
	}
	for _, p := range plans {
		remove := func(ctx context.Context) error {
			return uc.plans.Delete(ctx, p.ID)
		}
		var err error
		if uc.registry != nil {
			err = uc.registry.Delete(ctx, p.ID, remove)
		} else {
			err = remove(ctx)
		}
		if err != nil {
			return 0, fmt.Errorf("failed to delete plan %s: %w", p.ID, err)
		}
	}
	return len(plans), nil
}
