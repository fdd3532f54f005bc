package plan

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/planstate"
	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/domain/plandata"
	"github.com/business-planner/backend/internal/domain/projection"
)

// UpdatePlanInput represents a whole-document edit from a section editor.
type UpdatePlanInput struct {
	PlanID   string
	UserID   uuid.UUID
	Document *entity.BusinessPlanDocument
}

// UpdatePlanUseCase commits an edited document to the plan's state store.
type UpdatePlanUseCase struct {
	registry   *planstate.Registry
	validation plandata.ValidationOptions
}

// NewUpdatePlanUseCase creates a new UpdatePlanUseCase instance.
func NewUpdatePlanUseCase(registry *planstate.Registry, validation plandata.ValidationOptions) *UpdatePlanUseCase {
	return &UpdatePlanUseCase{
		registry:   registry,
		validation: validation,
	}
}

// Execute validates and commits the document. When only pricing changed the
// yearly schedule is rebuilt from the new prices.
func (uc *UpdatePlanUseCase) Execute(ctx context.Context, input UpdatePlanInput) (*PlanOutput, error) {
	if input.Document == nil {
		return nil, domainerror.NewPlanError(
			domainerror.ErrCodeMissingPlanField,
			"document is required",
			nil,
		)
	}

	store, err := OpenOwnedStore(ctx, uc.registry, input.PlanID, input.UserID)
	if err != nil {
		return nil, err
	}

	var warnings []string
	doc, err := store.Mutate(func(current *entity.BusinessPlanDocument) error {
		next := input.Document.Clone()
		next.ID = current.ID
		next.OwnerID = current.OwnerID
		next.LastEditedBy = input.UserID
		plandata.Migrate(next)

		if next.Pricing != current.Pricing && reflect.DeepEqual(next.YearlyProjections, current.YearlyProjections) {
			next.YearlyProjections = rebuildYearly(next.Pricing, current.YearlyProjections)
		}

		w, err := plandata.Validate(next, uc.validation)
		if err != nil {
			return err
		}
		warnings = w
		*current = *next
		return nil
	})
	if err != nil {
		return nil, StoreClosedError(err)
	}

	for _, w := range warnings {
		slog.Warn("Plan accepted with warning", "plan_id", input.PlanID, "warning", w)
	}

	return newPlanOutput(store, doc, warnings), nil
}

// rebuildYearly recomputes a yearly schedule for new prices, keeping the
// client counts of the existing rows.
func rebuildYearly(pricing entity.PricingParams, rows []entity.ProjectionRow) []entity.ProjectionRow {
	if len(rows) == 0 {
		return rows
	}
	growth := make([]int, len(rows))
	for i, row := range rows {
		growth[i] = row.ClientCount
	}
	return projection.RecalculateFullSchedule(projection.ScheduleParamsFromPricing(pricing, false), growth)
}
