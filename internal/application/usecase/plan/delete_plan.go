package plan

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/application/planstate"
	domainerror "github.com/business-planner/backend/internal/domain/error"
)

// DeletePlanInput represents the input for plan deletion.
type DeletePlanInput struct {
	PlanID string
	UserID uuid.UUID
}

// DeletePlanUseCase handles plan deletion. All versions go with the plan.
type DeletePlanUseCase struct {
	planRepo adapter.PlanRepository
	registry *planstate.Registry
}

// NewDeletePlanUseCase creates a new DeletePlanUseCase instance.
func NewDeletePlanUseCase(planRepo adapter.PlanRepository, registry *planstate.Registry) *DeletePlanUseCase {
	return &DeletePlanUseCase{
		planRepo: planRepo,
		registry: registry,
	}
}

// Execute deletes the plan.
func (uc *DeletePlanUseCase) Execute(ctx context.Context, input DeletePlanInput) error {
	if _, err := OpenOwnedStore(ctx, uc.registry, input.PlanID, input.UserID); err != nil {
		return err
	}

	// The working copy stays open with its unsaved edits if the delete fails
	err := uc.registry.Delete(ctx, input.PlanID, func(ctx context.Context) error {
		return uc.planRepo.Delete(ctx, input.PlanID)
	})
	if err != nil {
		if errors.Is(err, domainerror.ErrPlanNotFound) {
			return domainerror.NewPlanError(
				domainerror.ErrCodePlanNotFound,
				"plan not found",
				domainerror.ErrPlanNotFound,
			)
		}
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	return nil
}
