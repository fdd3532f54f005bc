package competitor

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/application/planstate"
	planuc "github.com/business-planner/backend/internal/application/usecase/plan"
	"github.com/business-planner/backend/internal/domain/competitor"
	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
)

const (
	// DeepDiveTimeout bounds a single competitor analysis.
	DeepDiveTimeout = 60 * time.Second

	// MaxConcurrentDeepDives limits parallel AI calls in a bulk deep dive.
	MaxConcurrentDeepDives = 3
)

// DeepDiveInput represents the input for analysing one competitor.
type DeepDiveInput struct {
	PlanID string
	UserID uuid.UUID
	Name   string
	// Force re-runs the analysis even when a usable one is cached.
	Force bool
}

// DeepDiveOutput represents the result of a single deep dive.
type DeepDiveOutput struct {
	planuc.PlanOutput
	Competitor *entity.Competitor
	Skipped    bool
}

// DeepDiveAllInput represents the input for analysing every competitor that
// lacks a usable analysis.
type DeepDiveAllInput struct {
	PlanID string
	UserID uuid.UUID
	Force  bool
}

// DeepDiveAllOutput reports which competitors were analysed.
type DeepDiveAllOutput struct {
	planuc.PlanOutput
	Analyzed []string
	Skipped  []string
	Failed   map[string]*adapter.ScanFailure
}

// DeepDiveUseCase produces detailed competitor analyses and caches them on
// the plan.
type DeepDiveUseCase struct {
	registry  *planstate.Registry
	aiService adapter.AIAnalysisService
}

// NewDeepDiveUseCase creates a new DeepDiveUseCase instance.
func NewDeepDiveUseCase(registry *planstate.Registry, aiService adapter.AIAnalysisService) *DeepDiveUseCase {
	return &DeepDiveUseCase{
		registry:  registry,
		aiService: aiService,
	}
}

// Execute analyses one competitor. A cached analysis longer than
// competitor.DeepDiveThreshold characters is kept unless Force is set.
func (uc *DeepDiveUseCase) Execute(ctx context.Context, input DeepDiveInput) (*DeepDiveOutput, error) {
	store, err := planuc.OpenOwnedStore(ctx, uc.registry, input.PlanID, input.UserID)
	if err != nil {
		return nil, err
	}

	doc := store.Current()
	i := competitor.Find(doc.Competitors, input.Name)
	if i < 0 {
		return nil, competitorNotFound()
	}
	target := doc.Competitors[i]

	if !input.Force && !competitor.NeedsDeepDive(target) {
		return &DeepDiveOutput{
			PlanOutput: planuc.PlanOutput{Plan: doc, State: store.State()},
			Competitor: &target,
			Skipped:    true,
		}, nil
	}

	if err := uc.checkAvailable(); err != nil {
		return nil, err
	}

	dive, err := uc.analyse(ctx, doc, target)
	if err != nil {
		failure := classifyError(err)
		slog.Error("Competitor deep dive failed",
			"planID", input.PlanID,
			"competitor", target.Name,
			"error", err.Error(),
			"code", failure.Code,
		)
		return nil, domainerror.NewPlanError(domainerror.ErrCodeAnalysisFailed, failure.Message, err)
	}

	var found bool
	updated, err := store.Mutate(func(current *entity.BusinessPlanDocument) error {
		current.Competitors, found = competitor.ApplyDeepDive(current.Competitors, target.Name, dive)
		if !found {
			return competitorNotFound()
		}
		current.LastEditedBy = input.UserID
		return nil
	})
	if err != nil {
		return nil, planuc.StoreClosedError(err)
	}

	j := competitor.Find(updated.Competitors, target.Name)
	result := updated.Competitors[j]
	return &DeepDiveOutput{
		PlanOutput: planuc.PlanOutput{Plan: updated, State: store.State()},
		Competitor: &result,
	}, nil
}

// ExecuteAll analyses every competitor that needs it, at most
// MaxConcurrentDeepDives at a time, and applies all results as one edit.
// A failed analysis does not stop the others.
func (uc *DeepDiveUseCase) ExecuteAll(ctx context.Context, input DeepDiveAllInput) (*DeepDiveAllOutput, error) {
	store, err := planuc.OpenOwnedStore(ctx, uc.registry, input.PlanID, input.UserID)
	if err != nil {
		return nil, err
	}

	doc := store.Current()
	out := &DeepDiveAllOutput{
		Analyzed: []string{},
		Skipped:  []string{},
		Failed:   map[string]*adapter.ScanFailure{},
	}

	var targets []entity.Competitor
	for _, c := range doc.Competitors {
		if input.Force || competitor.NeedsDeepDive(c) {
			targets = append(targets, c)
		} else {
			out.Skipped = append(out.Skipped, c.Name)
		}
	}

	if len(targets) > 0 {
		if err := uc.checkAvailable(); err != nil {
			return nil, err
		}
	}

	var mu sync.Mutex
	dives := make(map[string]competitor.DeepDive, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentDeepDives)
	for _, target := range targets {
		g.Go(func() error {
			dive, err := uc.analyse(gctx, doc, target)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Failed[target.Name] = classifyError(err)
				slog.Warn("Competitor deep dive failed",
					"planID", input.PlanID,
					"competitor", target.Name,
					"error", err.Error(),
				)
				return nil
			}
			dives[target.Name] = dive
			return nil
		})
	}
	_ = g.Wait()

	if len(dives) == 0 {
		out.PlanOutput = planuc.PlanOutput{Plan: doc, State: store.State()}
		return out, nil
	}

	updated, err := store.Mutate(func(current *entity.BusinessPlanDocument) error {
		for name, dive := range dives {
			var found bool
			current.Competitors, found = competitor.ApplyDeepDive(current.Competitors, name, dive)
			if found {
				out.Analyzed = append(out.Analyzed, name)
			}
		}
		current.LastEditedBy = input.UserID
		return nil
	})
	if err != nil {
		return nil, planuc.StoreClosedError(err)
	}
	sort.Strings(out.Analyzed)

	out.PlanOutput = planuc.PlanOutput{Plan: updated, State: store.State()}
	return out, nil
}

func (uc *DeepDiveUseCase) checkAvailable() error {
	if uc.aiService == nil || !uc.aiService.IsAvailable() {
		return domainerror.NewPlanError(
			domainerror.ErrCodeAIUnavailable,
			"AI analysis is not configured",
			nil,
		)
	}
	return nil
}

func (uc *DeepDiveUseCase) analyse(ctx context.Context, doc *entity.BusinessPlanDocument, target entity.Competitor) (competitor.DeepDive, error) {
	ctx, cancel := context.WithTimeout(ctx, DeepDiveTimeout)
	defer cancel()

	result, err := uc.aiService.CompetitorDeepDive(ctx, &adapter.DeepDiveRequest{
		PlanID:       doc.ID,
		BusinessName: doc.Title,
		Solution:     doc.Solution,
		Competitor:   target,
	})
	if err != nil {
		return competitor.DeepDive{}, err
	}
	return competitor.DeepDive{
		Analysis:   result.Analysis,
		Features:   result.Features,
		Weaknesses: result.Weaknesses,
	}, nil
}

func competitorNotFound() error {
	return domainerror.NewPlanError(
		domainerror.ErrCodeCompetitorNotFound,
		"competitor not found",
		domainerror.ErrCompetitorNotFound,
	)
}
