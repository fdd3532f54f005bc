// Package adapter declares the ports the use cases depend on. The integration
// layer implements them.
package adapter

import (
	"context"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/domain/entity"
)

// PlanPersistence is the storage collaborator of the plan state store.
// Save must be idempotent: writing the same document twice leaves the same
// stored state.
type PlanPersistence interface {
	// Load fetches the stored document for a plan.
	Load(ctx context.Context, planID string) (*entity.BusinessPlanDocument, error)

	// Save stores the document for a plan and records a version snapshot.
	Save(ctx context.Context, planID string, doc *entity.BusinessPlanDocument) error
}

// PlanOwnerLookup resolves who owns a plan without loading its document.
type PlanOwnerLookup interface {
	Owner(ctx context.Context, planID string) (uuid.UUID, error)
}

// PlanRepository defines the interface for plan persistence operations.
type PlanRepository interface {
	PlanPersistence
	PlanOwnerLookup

	// Create stores a new plan and its first version.
	Create(ctx context.Context, doc *entity.BusinessPlanDocument) error

	// ListByOwner retrieves summaries of all plans owned by a user, newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entity.PlanSummary, error)

	// Delete removes a plan and all of its versions.
	Delete(ctx context.Context, planID string) error

	// ListVersions retrieves the newest versions of a plan, newest first.
	ListVersions(ctx context.Context, planID string, limit int) ([]*entity.BusinessPlanVersion, error)

	// FindVersion retrieves a single version of a plan.
	FindVersion(ctx context.Context, planID string, versionID uuid.UUID) (*entity.BusinessPlanVersion, error)
}
