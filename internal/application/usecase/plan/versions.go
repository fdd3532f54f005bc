package plan

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/application/planstate"
	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/domain/plandata"
	"github.com/business-planner/backend/internal/domain/projection"
)

// ListVersionsInput represents the input for listing plan versions.
type ListVersionsInput struct {
	PlanID string
	UserID uuid.UUID
	Limit  int
}

// RestoreVersionInput represents the input for restoring a plan version.
type RestoreVersionInput struct {
	PlanID    string
	UserID    uuid.UUID
	VersionID uuid.UUID
}

// VersionsUseCase lists and restores stored plan versions.
type VersionsUseCase struct {
	planRepo adapter.PlanRepository
	registry *planstate.Registry
}

// NewVersionsUseCase creates a new VersionsUseCase instance.
func NewVersionsUseCase(planRepo adapter.PlanRepository, registry *planstate.Registry) *VersionsUseCase {
	return &VersionsUseCase{
		planRepo: planRepo,
		registry: registry,
	}
}

// List returns the newest versions of a plan.
func (uc *VersionsUseCase) List(ctx context.Context, input ListVersionsInput) ([]*entity.BusinessPlanVersion, error) {
	if _, err := OpenOwnedStore(ctx, uc.registry, input.PlanID, input.UserID); err != nil {
		return nil, err
	}
	versions, err := uc.planRepo.ListVersions(ctx, input.PlanID, input.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	return versions, nil
}

// Restore commits a stored version as a new edit, so the restore itself can
// be undone.
func (uc *VersionsUseCase) Restore(ctx context.Context, input RestoreVersionInput) (*PlanOutput, error) {
	store, err := OpenOwnedStore(ctx, uc.registry, input.PlanID, input.UserID)
	if err != nil {
		return nil, err
	}

	version, err := uc.planRepo.FindVersion(ctx, input.PlanID, input.VersionID)
	if err != nil {
		if errors.Is(err, domainerror.ErrPlanVersionNotFound) {
			return nil, domainerror.NewPlanError(
				domainerror.ErrCodePlanVersionNotFound,
				"plan version not found",
				domainerror.ErrPlanVersionNotFound,
			)
		}
		return nil, fmt.Errorf("failed to find version: %w", err)
	}

	doc, err := store.Mutate(func(current *entity.BusinessPlanDocument) error {
		restored := version.Document.Clone()
		restored.ID = current.ID
		restored.OwnerID = current.OwnerID
		restored.LastEditedBy = input.UserID
		plandata.Migrate(restored)
		restored.MonthlyProjections, _ = projection.Reconcile(restored.MonthlyProjections)
		restored.YearlyProjections, _ = projection.Reconcile(restored.YearlyProjections)
		*current = *restored
		return nil
	})
	if err != nil {
		return nil, StoreClosedError(err)
	}
	return newPlanOutput(store, doc, nil), nil
}
