package plan

import (
	"context"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/planstate"
)

// GetPlanInput represents the input for retrieving a plan.
type GetPlanInput struct {
	PlanID string
	UserID uuid.UUID
}

// GetPlanUseCase returns the current working copy of a plan.
type GetPlanUseCase struct {
	registry *planstate.Registry
}

// NewGetPlanUseCase creates a new GetPlanUseCase instance.
func NewGetPlanUseCase(registry *planstate.Registry) *GetPlanUseCase {
	return &GetPlanUseCase{
		registry: registry,
	}
}

// Execute retrieves the plan.
func (uc *GetPlanUseCase) Execute(ctx context.Context, input GetPlanInput) (*PlanOutput, error) {
	store, err := OpenOwnedStore(ctx, uc.registry, input.PlanID, input.UserID)
	if err != nil {
		return nil, err
	}
	return newPlanOutput(store, store.Current(), nil), nil
}
