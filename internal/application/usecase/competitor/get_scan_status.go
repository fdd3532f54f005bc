package competitor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/application/planstate"
	planuc "github.com/business-planner/backend/internal/application/usecase/plan"
)

// GetScanStatusInput represents the input for reading a scan status.
type GetScanStatusInput struct {
	PlanID string
	UserID uuid.UUID
}

// GetScanStatusUseCase returns the last known market scan state of a plan.
type GetScanStatusUseCase struct {
	registry *planstate.Registry
	tracker  adapter.ScanTracker
}

// NewGetScanStatusUseCase creates a new GetScanStatusUseCase instance.
func NewGetScanStatusUseCase(registry *planstate.Registry, tracker adapter.ScanTracker) *GetScanStatusUseCase {
	return &GetScanStatusUseCase{
		registry: registry,
		tracker:  tracker,
	}
}

// Execute retrieves the scan status.
func (uc *GetScanStatusUseCase) Execute(ctx context.Context, input GetScanStatusInput) (*adapter.ScanStatus, error) {
	if _, err := planuc.OpenOwnedStore(ctx, uc.registry, input.PlanID, input.UserID); err != nil {
		return nil, err
	}

	status, err := uc.tracker.Status(ctx, input.PlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan status: %w", err)
	}
	return status, nil
}
