package plan

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/planstate"
	domainerror "github.com/business-planner/backend/internal/domain/error"
)

// HistoryInput identifies the plan a history operation applies to.
type HistoryInput struct {
	PlanID string
	UserID uuid.UUID
}

// ShortcutInput is a key press forwarded from an editor.
type ShortcutInput struct {
	PlanID string
	UserID uuid.UUID
	Event  planstate.KeyEvent
}

// HistoryOutput reports the plan after a history operation and whether the
// operation moved the history pointer.
type HistoryOutput struct {
	PlanOutput
	Applied  bool
	Shortcut *planstate.ShortcutResult
}

// HistoryUseCase exposes undo, redo, keyboard shortcuts, save state and
// manual flush of a plan's working copy.
type HistoryUseCase struct {
	registry *planstate.Registry
}

// NewHistoryUseCase creates a new HistoryUseCase instance.
func NewHistoryUseCase(registry *planstate.Registry) *HistoryUseCase {
	return &HistoryUseCase{
		registry: registry,
	}
}

// Undo restores the previous snapshot. At the start of history it is a no-op.
func (uc *HistoryUseCase) Undo(ctx context.Context, input HistoryInput) (*HistoryOutput, error) {
	store, err := OpenOwnedStore(ctx, uc.registry, input.PlanID, input.UserID)
	if err != nil {
		return nil, err
	}
	doc, applied := store.Undo()
	return &HistoryOutput{PlanOutput: *newPlanOutput(store, doc, nil), Applied: applied}, nil
}

// Redo re-applies the next snapshot. At the end of history it is a no-op.
func (uc *HistoryUseCase) Redo(ctx context.Context, input HistoryInput) (*HistoryOutput, error) {
	store, err := OpenOwnedStore(ctx, uc.registry, input.PlanID, input.UserID)
	if err != nil {
		return nil, err
	}
	doc, applied := store.Redo()
	return &HistoryOutput{PlanOutput: *newPlanOutput(store, doc, nil), Applied: applied}, nil
}

// Shortcut resolves a key press and performs the bound history action.
func (uc *HistoryUseCase) Shortcut(ctx context.Context, input ShortcutInput) (*HistoryOutput, error) {
	store, err := OpenOwnedStore(ctx, uc.registry, input.PlanID, input.UserID)
	if err != nil {
		return nil, err
	}

	before := store.State().Position
	result := store.Apply(input.Event)
	state := store.State()

	return &HistoryOutput{
		PlanOutput: PlanOutput{Plan: store.Current(), State: state},
		Applied:    state.Position != before,
		Shortcut:   &result,
	}, nil
}

// State returns the save and history state of a plan.
func (uc *HistoryUseCase) State(ctx context.Context, input HistoryInput) (*planstate.State, error) {
	store, err := OpenOwnedStore(ctx, uc.registry, input.PlanID, input.UserID)
	if err != nil {
		return nil, err
	}
	state := store.State()
	return &state, nil
}

// Flush saves unsaved changes synchronously.
func (uc *HistoryUseCase) Flush(ctx context.Context, input HistoryInput) (*planstate.State, error) {
	store, err := OpenOwnedStore(ctx, uc.registry, input.PlanID, input.UserID)
	if err != nil {
		return nil, err
	}
	if err := store.Flush(ctx); err != nil {
		var planErr *domainerror.PlanError
		if errors.As(err, &planErr) {
			return nil, planErr
		}
		return nil, domainerror.NewPlanError(domainerror.ErrCodePlanPersistence, "failed to save plan", err)
	}
	state := store.State()
	return &state, nil
}
