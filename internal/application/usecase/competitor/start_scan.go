package competitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/application/planstate"
	planuc "github.com/business-planner/backend/internal/application/usecase/plan"
	"github.com/business-planner/backend/internal/domain/competitor"
	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
)

// ScanTimeout bounds a single market scan request to the AI service.
const ScanTimeout = 2 * time.Minute

// StartMarketScanInput represents the input for starting a market scan.
type StartMarketScanInput struct {
	PlanID string
	UserID uuid.UUID
}

// StartMarketScanOutput represents the output of starting a market scan.
type StartMarketScanOutput struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// StartMarketScanUseCase starts a background market scan and merges its
// results into the plan when it finishes.
type StartMarketScanUseCase struct {
	registry  *planstate.Registry
	aiService adapter.AIAnalysisService
	tracker   adapter.ScanTracker

	wg sync.WaitGroup
}

// NewStartMarketScanUseCase creates a new StartMarketScanUseCase instance.
func NewStartMarketScanUseCase(
	registry *planstate.Registry,
	aiService adapter.AIAnalysisService,
	tracker adapter.ScanTracker,
) *StartMarketScanUseCase {
	return &StartMarketScanUseCase{
		registry:  registry,
		aiService: aiService,
		tracker:   tracker,
	}
}

// Execute starts the scan. Only one scan runs per plan at a time.
func (uc *StartMarketScanUseCase) Execute(ctx context.Context, input StartMarketScanInput) (*StartMarketScanOutput, error) {
	store, err := planuc.OpenOwnedStore(ctx, uc.registry, input.PlanID, input.UserID)
	if err != nil {
		return nil, err
	}

	if uc.aiService == nil || !uc.aiService.IsAvailable() {
		return nil, domainerror.NewPlanError(
			domainerror.ErrCodeAIUnavailable,
			"AI analysis is not configured",
			nil,
		)
	}

	jobID := uuid.NewString()
	started, err := uc.tracker.Start(ctx, input.PlanID, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to start market scan: %w", err)
	}
	if !started {
		return nil, domainerror.NewPlanError(
			domainerror.ErrCodeScanInProgress,
			"a market scan is already running for this plan",
			nil,
		)
	}

	request := scanRequest(store.Current())

	uc.wg.Add(1)
	go func() {
		defer uc.wg.Done()
		uc.runScan(context.Background(), jobID, request)
	}()

	return &StartMarketScanOutput{
		JobID:   jobID,
		Message: fmt.Sprintf("Market scan started for %q", request.BusinessName),
	}, nil
}

// Wait blocks until every scan started by this use case has finished.
func (uc *StartMarketScanUseCase) Wait() {
	uc.wg.Wait()
}

func scanRequest(doc *entity.BusinessPlanDocument) *adapter.MarketScanRequest {
	known := make([]string, 0, len(doc.Competitors))
	for _, c := range doc.Competitors {
		known = append(known, c.Name)
	}
	return &adapter.MarketScanRequest{
		PlanID:         doc.ID,
		BusinessName:   doc.Title,
		Mission:        doc.MissionStatement,
		Problem:        doc.Problem,
		Solution:       doc.Solution,
		TargetAudience: doc.TargetAudience,
		Known:          known,
	}
}

func (uc *StartMarketScanUseCase) runScan(ctx context.Context, jobID string, request *adapter.MarketScanRequest) {
	startTime := time.Now()
	logger := slog.Default().With("jobID", jobID, "planID", request.PlanID)
	logger.Info("Starting market scan")

	scanCtx, cancel := context.WithTimeout(ctx, ScanTimeout)
	result, err := uc.aiService.MarketScan(scanCtx, request)
	cancel()
	if err != nil {
		failure := classifyError(err)
		logger.Error("Market scan failed", "error", err.Error(), "code", failure.Code)
		uc.fail(ctx, logger, request.PlanID, failure)
		return
	}

	// The plan may have been edited while the scan ran; merge against the
	// current working copy.
	store, err := uc.registry.Get(ctx, request.PlanID)
	if err != nil {
		logger.Warn("Plan no longer available for scan results", "error", err.Error())
		uc.fail(ctx, logger, request.PlanID, newFailure(ErrCodePlanUnavailable, false))
		return
	}

	var added, updated int
	_, err = store.Mutate(func(doc *entity.BusinessPlanDocument) error {
		added, updated = countChanges(doc.Competitors, result.Competitors)
		doc.Competitors = competitor.MergeMarketScan(doc.Competitors, result.Competitors)
		doc.FeatureComparison = competitor.MergeFeatureComparison(doc.FeatureComparison, result.FeatureComparison)
		return nil
	})
	if err != nil {
		logger.Warn("Failed to merge scan results", "error", err.Error())
		uc.fail(ctx, logger, request.PlanID, newFailure(ErrCodePlanUnavailable, false))
		return
	}

	if err := uc.tracker.Complete(ctx, request.PlanID, added, updated); err != nil {
		logger.Error("Failed to record scan completion", "error", err.Error())
	}
	logger.Info("Market scan completed",
		"added", added,
		"updated", updated,
		"duration", time.Since(startTime).String(),
	)
}

func (uc *StartMarketScanUseCase) fail(ctx context.Context, logger *slog.Logger, planID string, failure *adapter.ScanFailure) {
	if err := uc.tracker.Fail(ctx, planID, failure); err != nil {
		logger.Error("Failed to record scan failure", "error", err.Error())
	}
}

// countChanges reports how many scanned competitors are new and how many
// match an existing one.
func countChanges(existing, scanned []entity.Competitor) (added, updated int) {
	seen := make(map[string]struct{}, len(scanned))
	for _, c := range scanned {
		key := competitor.Key(c.Name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if competitor.Find(existing, c.Name) >= 0 {
			updated++
		} else {
			added++
		}
	}
	return added, updated
}
