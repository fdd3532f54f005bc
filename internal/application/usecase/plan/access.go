// Package plan contains business plan use cases.
package plan

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/planstate"
	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
)

// PlanOutput is the common result of use cases that return the working copy.
type PlanOutput struct {
	Plan     *entity.BusinessPlanDocument
	State    planstate.State
	Warnings []string
}

func newPlanOutput(store *planstate.Store, doc *entity.BusinessPlanDocument, warnings []string) *PlanOutput {
	return &PlanOutput{
		Plan:     doc,
		State:    store.State(),
		Warnings: warnings,
	}
}

// OpenOwnedStore returns the state store of a plan owned by userID. Plans
// owned by someone else are never loaded.
func OpenOwnedStore(ctx context.Context, registry *planstate.Registry, planID string, userID uuid.UUID) (*planstate.Store, error) {
	store, err := registry.GetOwned(ctx, planID, userID)
	switch {
	case err == nil:
		return store, nil
	case errors.Is(err, planstate.ErrNotOwner):
		return nil, domainerror.NewPlanError(
			domainerror.ErrCodeUnauthorizedPlanAccess,
			"not authorized to access this plan",
			domainerror.ErrUnauthorizedPlanAccess,
		)
	case errors.Is(err, domainerror.ErrPlanNotFound):
		return nil, domainerror.NewPlanError(
			domainerror.ErrCodePlanNotFound,
			"plan not found",
			domainerror.ErrPlanNotFound,
		)
	default:
		return nil, fmt.Errorf("failed to open plan: %w", err)
	}
}

// StoreClosedError maps an edit rejected by a store closed under it, as
// happens when the plan is deleted mid-request, to plan not found.
func StoreClosedError(err error) error {
	if errors.Is(err, planstate.ErrStoreClosed) {
		return domainerror.NewPlanError(
			domainerror.ErrCodePlanNotFound,
			"plan was closed",
			domainerror.ErrPlanNotFound,
		)
	}
	return err
}
