package plan

import (
	"context"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/planstate"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/domain/projection"
)

// ProjectionSummaryInput represents the input for summarizing a schedule.
type ProjectionSummaryInput struct {
	PlanID   string
	UserID   uuid.UUID
	Schedule Schedule
}

// ProjectionSummaryUseCase totals a plan's projections.
type ProjectionSummaryUseCase struct {
	registry *planstate.Registry
}

// NewProjectionSummaryUseCase creates a new ProjectionSummaryUseCase instance.
func NewProjectionSummaryUseCase(registry *planstate.Registry) *ProjectionSummaryUseCase {
	return &ProjectionSummaryUseCase{
		registry: registry,
	}
}

// Execute summarizes the selected schedule. The one-time server cost is the
// initial investment break-even is measured against.
func (uc *ProjectionSummaryUseCase) Execute(ctx context.Context, input ProjectionSummaryInput) (*projection.Summary, error) {
	store, err := OpenOwnedStore(ctx, uc.registry, input.PlanID, input.UserID)
	if err != nil {
		return nil, err
	}

	doc := store.Current()
	summary, err := projection.Summarize(*input.Schedule.rows(doc), doc.Pricing.OneTimeServerCost)
	if err != nil {
		return nil, domainerror.NewPlanError(domainerror.ErrCodeInvalidNumber, "projections cannot be summarized", err)
	}
	return &summary, nil
}
