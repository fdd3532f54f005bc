package plan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/domain/entity"
	"github.com/business-planner/backend/internal/domain/plandata"
)

// CreatePlanInput represents the input for plan creation.
type CreatePlanInput struct {
	UserID uuid.UUID
	Title  string
	// Document optionally imports an existing plan body instead of the defaults.
	Document *entity.BusinessPlanDocument
}

// CreatePlanOutput represents the output of plan creation.
type CreatePlanOutput struct {
	Plan     *entity.BusinessPlanDocument
	Warnings []string
}

// CreatePlanUseCase handles plan creation logic.
type CreatePlanUseCase struct {
	planRepo   adapter.PlanRepository
	validation plandata.ValidationOptions
}

// NewCreatePlanUseCase creates a new CreatePlanUseCase instance.
func NewCreatePlanUseCase(planRepo adapter.PlanRepository, validation plandata.ValidationOptions) *CreatePlanUseCase {
	return &CreatePlanUseCase{
		planRepo:   planRepo,
		validation: validation,
	}
}

// Execute creates a plan, either from defaults or from an imported document.
func (uc *CreatePlanUseCase) Execute(ctx context.Context, input CreatePlanInput) (*CreatePlanOutput, error) {
	doc := plandata.Default(input.UserID, input.Title)

	if input.Document != nil {
		imported := input.Document.Clone()
		imported.ID = doc.ID
		imported.OwnerID = input.UserID
		imported.LastEditedBy = input.UserID
		imported.UpdatedAt = doc.UpdatedAt
		if input.Title != "" {
			imported.Title = input.Title
		}
		if imported.Title == "" {
			imported.Title = doc.Title
		}
		plandata.Migrate(imported)
		doc = imported
	}

	warnings, err := plandata.Validate(doc, uc.validation)
	if err != nil {
		return nil, err
	}

	if err := uc.planRepo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}

	slog.Info("Plan created", "plan_id", doc.ID, "owner_id", input.UserID)

	return &CreatePlanOutput{
		Plan:     doc,
		Warnings: warnings,
	}, nil
}
