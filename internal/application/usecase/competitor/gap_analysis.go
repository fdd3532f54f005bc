package competitor

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/planstate"
	planuc "github.com/business-planner/backend/internal/application/usecase/plan"
	"github.com/business-planner/backend/internal/domain/competitor"
	"github.com/business-planner/backend/internal/domain/entity"
)

// GapAnalysisInput represents the input for a feature gap analysis.
type GapAnalysisInput struct {
	PlanID string
	UserID uuid.UUID
	// AddToRoadmap appends each gap to the roadmap as an idea.
	AddToRoadmap bool
}

// GapAnalysisOutput lists the features competitors offer that the plan lacks.
type GapAnalysisOutput struct {
	planuc.PlanOutput
	Gaps         []competitor.Gap
	RoadmapAdded int
}

// GapAnalysisUseCase compares competitor features with the plan's own.
type GapAnalysisUseCase struct {
	registry *planstate.Registry
}

// NewGapAnalysisUseCase creates a new GapAnalysisUseCase instance.
func NewGapAnalysisUseCase(registry *planstate.Registry) *GapAnalysisUseCase {
	return &GapAnalysisUseCase{
		registry: registry,
	}
}

// Execute finds the gaps and optionally records them on the roadmap.
func (uc *GapAnalysisUseCase) Execute(ctx context.Context, input GapAnalysisInput) (*GapAnalysisOutput, error) {
	store, err := planuc.OpenOwnedStore(ctx, uc.registry, input.PlanID, input.UserID)
	if err != nil {
		return nil, err
	}

	doc := store.Current()
	gaps := competitor.FindGaps(doc.Competitors, competitor.OurFeatures(doc))
	out := &GapAnalysisOutput{Gaps: gaps}

	if !input.AddToRoadmap || len(gaps) == 0 {
		out.PlanOutput = planuc.PlanOutput{Plan: doc, State: store.State()}
		return out, nil
	}

	updated, err := store.Mutate(func(current *entity.BusinessPlanDocument) error {
		// Recompute against the working copy in case it moved on.
		fresh := competitor.FindGaps(current.Competitors, competitor.OurFeatures(current))
		current.ProductRoadmap, out.RoadmapAdded = competitor.GapsToRoadmap(current.ProductRoadmap, fresh)
		current.LastEditedBy = input.UserID
		return nil
	})
	if err != nil {
		return nil, planuc.StoreClosedError(err)
	}

	slog.Info("Feature gaps added to roadmap", "planID", input.PlanID, "added", out.RoadmapAdded)
	out.PlanOutput = planuc.PlanOutput{Plan: updated, State: store.State()}
	return out, nil
}
