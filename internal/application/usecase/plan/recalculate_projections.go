package plan

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/planstate"
	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/domain/projection"
)

// Schedule selects which projection table an edit applies to.
type Schedule string

const (
	ScheduleMonthly Schedule = "monthly"
	ScheduleYearly  Schedule = "yearly"
)

func (s Schedule) rows(doc *entity.BusinessPlanDocument) *[]entity.ProjectionRow {
	if s == ScheduleYearly {
		return &doc.YearlyProjections
	}
	return &doc.MonthlyProjections
}

// ChangeClientCountInput represents a client count edit on one row.
type ChangeClientCountInput struct {
	PlanID      string
	UserID      uuid.UUID
	Schedule    Schedule
	Index       int
	ClientCount int
}

// ChangeMarginInput represents a margin edit on one row.
type ChangeMarginInput struct {
	PlanID        string
	UserID        uuid.UUID
	Schedule      Schedule
	Index         int
	MarginPercent float64
}

// RebuildScheduleInput represents a request to regenerate a whole schedule.
type RebuildScheduleInput struct {
	PlanID       string
	UserID       uuid.UUID
	Schedule     Schedule
	StartClients int
	EndClients   int
	Periods      int
	// Params overrides the parameters derived from the plan's pricing.
	Params *projection.ScheduleParams
}

// RecalculateProjectionsUseCase applies projection edits through the
// plan's state store so they are undoable and autosaved like any edit.
type RecalculateProjectionsUseCase struct {
	registry *planstate.Registry
}

// NewRecalculateProjectionsUseCase creates a new RecalculateProjectionsUseCase instance.
func NewRecalculateProjectionsUseCase(registry *planstate.Registry) *RecalculateProjectionsUseCase {
	return &RecalculateProjectionsUseCase{
		registry: registry,
	}
}

// ChangeClientCount scales one row's revenue to a new client count, keeping
// its margin.
func (uc *RecalculateProjectionsUseCase) ChangeClientCount(ctx context.Context, input ChangeClientCountInput) (*PlanOutput, error) {
	if input.ClientCount < 0 {
		return nil, domainerror.NewPlanError(
			domainerror.ErrCodeNegativeValue,
			"client count must not be negative",
			domainerror.ErrNegativeValue,
		)
	}

	return uc.apply(ctx, input.PlanID, input.UserID, func(doc *entity.BusinessPlanDocument) error {
		rows := input.Schedule.rows(doc)
		if err := checkIndex(*rows, input.Index); err != nil {
			return err
		}
		*rows = projection.RecalculateOnClientCountChange(*rows, input.Index, input.ClientCount)
		return nil
	})
}

// ChangeMargin re-splits one row's revenue into profit and expenses.
func (uc *RecalculateProjectionsUseCase) ChangeMargin(ctx context.Context, input ChangeMarginInput) (*PlanOutput, error) {
	if math.IsNaN(input.MarginPercent) || math.IsInf(input.MarginPercent, 0) {
		return nil, domainerror.NewPlanError(
			domainerror.ErrCodeInvalidNumber,
			"margin must be a finite number",
			domainerror.ErrInvalidNumber,
		)
	}

	return uc.apply(ctx, input.PlanID, input.UserID, func(doc *entity.BusinessPlanDocument) error {
		rows := input.Schedule.rows(doc)
		if err := checkIndex(*rows, input.Index); err != nil {
			return err
		}
		*rows = projection.RecalculateOnMarginChange(*rows, input.Index, input.MarginPercent)
		return nil
	})
}

// RebuildSchedule regenerates a whole schedule from a growth curve.
func (uc *RecalculateProjectionsUseCase) RebuildSchedule(ctx context.Context, input RebuildScheduleInput) (*PlanOutput, error) {
	if input.Periods <= 0 || input.Periods > 120 {
		return nil, domainerror.NewPlanError(
			domainerror.ErrCodeInvalidNumber,
			"periods must be between 1 and 120",
			domainerror.ErrInvalidNumber,
		)
	}

	return uc.apply(ctx, input.PlanID, input.UserID, func(doc *entity.BusinessPlanDocument) error {
		monthly := input.Schedule != ScheduleYearly
		params := projection.ScheduleParamsFromPricing(doc.Pricing, monthly)
		if input.Params != nil {
			params = *input.Params
			params.Monthly = monthly
			if err := checkScheduleParams(params); err != nil {
				return err
			}
		}
		growth := projection.ComputeExponentialGrowth(input.StartClients, input.EndClients, input.Periods)
		*input.Schedule.rows(doc) = projection.RecalculateFullSchedule(params, growth)
		return nil
	})
}

func (uc *RecalculateProjectionsUseCase) apply(ctx context.Context, planID string, userID uuid.UUID, edit func(*entity.BusinessPlanDocument) error) (*PlanOutput, error) {
	store, err := OpenOwnedStore(ctx, uc.registry, planID, userID)
	if err != nil {
		return nil, err
	}

	doc, err := store.Mutate(func(doc *entity.BusinessPlanDocument) error {
		if err := edit(doc); err != nil {
			return err
		}
		doc.LastEditedBy = userID
		return nil
	})
	if err != nil {
		return nil, StoreClosedError(err)
	}
	return newPlanOutput(store, doc, nil), nil
}

func checkIndex(rows []entity.ProjectionRow, index int) error {
	if index < 0 || index >= len(rows) {
		return domainerror.NewPlanError(
			domainerror.ErrCodeInvalidRowIndex,
			fmt.Sprintf("row index %d is outside 0..%d", index, len(rows)-1),
			domainerror.ErrInvalidRowIndex,
		)
	}
	return nil
}

func checkScheduleParams(p projection.ScheduleParams) error {
	values := []float64{
		p.SubscriptionPrice, p.UpsellRate, p.UpsellMarkup,
		p.ReferralConversionRate, p.AvgReferralValue, p.AvgWhiteLabelPrice,
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return domainerror.NewPlanError(
				domainerror.ErrCodeInvalidNumber,
				"schedule parameters must be finite numbers",
				domainerror.ErrInvalidNumber,
			)
		}
		if v < 0 {
			return domainerror.NewPlanError(
				domainerror.ErrCodeNegativeValue,
				"schedule parameters must not be negative",
				domainerror.ErrNegativeValue,
			)
		}
	}
	if p.WhiteLabelCap < 0 {
		return domainerror.NewPlanError(
			domainerror.ErrCodeNegativeValue,
			"white label cap must not be negative",
			domainerror.ErrNegativeValue,
		)
	}
	return nil
}
