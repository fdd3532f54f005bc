package competitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/adapter"
	planuc "github.com/business-planner/backend/internal/application/usecase/plan"
	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/domain/plandata"
)

func planErrorCode(t *testing.T, err error) domainerror.PlanErrorCode {
	t.Helper()
	var planErr *domainerror.PlanError
	if !errors.As(err, &planErr) {
		t.Fatalf("expected *PlanError, got %v", err)
	}
	return planErr.Code
}

func competitorIndex(doc *entity.BusinessPlanDocument, name string) int {
	for i, c := range doc.Competitors {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode string
		expectRetry  bool
	}{
		{"context deadline exceeded", context.DeadlineExceeded, ErrCodeAITimeout, true},
		{"wrapped cancellation", fmt.Errorf("scan: %w", context.Canceled), ErrCodeAITimeout, true},
		{"rate limit", errors.New("rate limit exceeded"), ErrCodeAIRateLimited, true},
		{"resource exhausted", errRateLimited, ErrCodeAIRateLimited, true},
		{"invalid api key", errors.New("Invalid API key provided"), ErrCodeAIAuthError, false},
		{"connection refused", errors.New("dial tcp: connection refused"), ErrCodeAIServiceUnavailable, true},
		{"bad json", errors.New("failed to unmarshal response"), ErrCodeAIParseError, true},
		{"unknown", errors.New("something odd"), ErrCodeAIUnknownError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(tt.err)
			if got.Code != tt.expectedCode {
				t.Errorf("code = %s, want %s", got.Code, tt.expectedCode)
			}
			if got.Retryable != tt.expectRetry {
				t.Errorf("retryable = %v, want %v", got.Retryable, tt.expectRetry)
			}
			if got.Message == "" {
				t.Error("expected a user-facing message")
			}
		})
	}
}

func TestInMemoryScanTracker(t *testing.T) {
	ctx := context.Background()
	tracker := NewInMemoryScanTracker()

	status, _ := tracker.Status(ctx, "plan-1")
	if status.State != adapter.ScanStateIdle {
		t.Errorf("expected idle, got %s", status.State)
	}

	if ok, _ := tracker.Start(ctx, "plan-1", "job-1"); !ok {
		t.Fatal("first start should succeed")
	}
	if ok, _ := tracker.Start(ctx, "plan-1", "job-2"); ok {
		t.Error("second start should be rejected while running")
	}

	_ = tracker.Fail(ctx, "plan-1", newFailure(ErrCodeAITimeout, true))
	status, _ = tracker.Status(ctx, "plan-1")
	if status.State != adapter.ScanStateFailed || status.Failure.Code != ErrCodeAITimeout {
		t.Errorf("unexpected status: %+v", status)
	}

	if ok, _ := tracker.Start(ctx, "plan-1", "job-3"); !ok {
		t.Fatal("start after failure should succeed")
	}
	_ = tracker.Complete(ctx, "plan-1", 2, 1)
	status, _ = tracker.Status(ctx, "plan-1")
	if status.State != adapter.ScanStateCompleted || status.Added != 2 || status.Updated != 1 || status.Failure != nil {
		t.Errorf("unexpected status: %+v", status)
	}
	if status.JobID != "job-3" || status.FinishedAt == nil {
		t.Errorf("expected job-3 with finish time, got %+v", status)
	}
}

func TestStartMarketScanUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("merges results into plan", func(t *testing.T) {
		f := newFixture(entity.Competitor{Name: "Acme Books", DetailedAnalysis: "kept analysis"})
		defer f.close()
		ai := &fakeAI{available: true, scan: &adapter.MarketScanResult{
			Competitors: []entity.Competitor{
				{Name: "acme books", ThreatLevel: 4},
				{Name: "LedgerLy", MarketPosition: entity.MarketPositionEmerging},
			},
			FeatureComparison: []entity.FeatureComparison{{Feature: "Payroll", Competitors: []string{"LedgerLy"}}},
		}}
		tracker := NewInMemoryScanTracker()
		uc := NewStartMarketScanUseCase(f.registry, ai, tracker)

		out, err := uc.Execute(ctx, StartMarketScanInput{PlanID: f.planID, UserID: f.owner})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		uc.Wait()

		status, _ := NewGetScanStatusUseCase(f.registry, tracker).Execute(ctx, GetScanStatusInput{PlanID: f.planID, UserID: f.owner})
		if status.State != adapter.ScanStateCompleted || status.JobID != out.JobID {
			t.Fatalf("unexpected status: %+v", status)
		}
		if status.Added != 1 || status.Updated != 1 {
			t.Errorf("added/updated = %d/%d, want 1/1", status.Added, status.Updated)
		}

		doc := f.current()
		if len(doc.Competitors) != 2 {
			t.Fatalf("expected 2 competitors, got %d", len(doc.Competitors))
		}
		if doc.Competitors[0].Name != "Acme Books" || doc.Competitors[0].DetailedAnalysis != "kept analysis" {
			t.Errorf("existing competitor lost its casing or analysis: %+v", doc.Competitors[0])
		}
		if doc.Competitors[0].ThreatLevel != 4 {
			t.Errorf("existing competitor should be updated, got %+v", doc.Competitors[0])
		}
		if len(doc.FeatureComparison) != 1 {
			t.Errorf("expected feature comparison to be merged")
		}
	})

	t.Run("rejects concurrent scan", func(t *testing.T) {
		f := newFixture()
		defer f.close()
		ai := &fakeAI{available: true, scan: &adapter.MarketScanResult{}, gate: make(chan struct{})}
		uc := NewStartMarketScanUseCase(f.registry, ai, NewInMemoryScanTracker())

		if _, err := uc.Execute(ctx, StartMarketScanInput{PlanID: f.planID, UserID: f.owner}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err := uc.Execute(ctx, StartMarketScanInput{PlanID: f.planID, UserID: f.owner})
		if code := planErrorCode(t, err); code != domainerror.ErrCodeScanInProgress {
			t.Errorf("expected %s, got %s", domainerror.ErrCodeScanInProgress, code)
		}
		close(ai.gate)
		uc.Wait()
	})

	t.Run("merges into edits made while the scan ran", func(t *testing.T) {
		f := newFixture(entity.Competitor{Name: "Acme Books"})
		defer f.close()
		ai := &fakeAI{
			available: true,
			scan:      &adapter.MarketScanResult{Competitors: []entity.Competitor{{Name: "LedgerLy"}}},
			gate:      make(chan struct{}),
			started:   make(chan struct{}, 1),
		}
		tracker := NewInMemoryScanTracker()
		uc := NewStartMarketScanUseCase(f.registry, ai, tracker)

		if _, err := uc.Execute(ctx, StartMarketScanInput{PlanID: f.planID, UserID: f.owner}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		<-ai.started

		edited := f.current()
		edited.Solution = "Edited while scanning"
		update := planuc.NewUpdatePlanUseCase(f.registry, plandata.ValidationOptions{})
		if _, err := update.Execute(ctx, planuc.UpdatePlanInput{PlanID: f.planID, UserID: f.owner, Document: edited}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		close(ai.gate)
		uc.Wait()

		doc := f.current()
		if doc.Solution != "Edited while scanning" {
			t.Errorf("scan results overwrote a concurrent edit, solution = %q", doc.Solution)
		}
		if len(doc.Competitors) != 2 || competitorIndex(doc, "LedgerLy") < 0 {
			t.Errorf("expected scanned competitor merged, got %+v", doc.Competitors)
		}
	})

	t.Run("records classified failure", func(t *testing.T) {
		f := newFixture()
		defer f.close()
		tracker := NewInMemoryScanTracker()
		uc := NewStartMarketScanUseCase(f.registry, &fakeAI{available: true, scanErr: errRateLimited}, tracker)

		if _, err := uc.Execute(ctx, StartMarketScanInput{PlanID: f.planID, UserID: f.owner}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		uc.Wait()

		status, _ := tracker.Status(ctx, f.planID)
		if status.State != adapter.ScanStateFailed || status.Failure.Code != ErrCodeAIRateLimited {
			t.Errorf("unexpected status: %+v", status)
		}
		if len(f.current().Competitors) != 0 {
			t.Errorf("failed scan must not touch the plan")
		}
	})

	t.Run("ai not configured", func(t *testing.T) {
		f := newFixture()
		defer f.close()
		uc := NewStartMarketScanUseCase(f.registry, &fakeAI{}, NewInMemoryScanTracker())

		_, err := uc.Execute(ctx, StartMarketScanInput{PlanID: f.planID, UserID: f.owner})
		if code := planErrorCode(t, err); code != domainerror.ErrCodeAIUnavailable {
			t.Errorf("expected %s, got %s", domainerror.ErrCodeAIUnavailable, code)
		}
	})

	t.Run("other user", func(t *testing.T) {
		f := newFixture()
		defer f.close()
		uc := NewStartMarketScanUseCase(f.registry, &fakeAI{available: true}, NewInMemoryScanTracker())

		_, err := uc.Execute(ctx, StartMarketScanInput{PlanID: f.planID, UserID: uuid.New()})
		if code := planErrorCode(t, err); code != domainerror.ErrCodeUnauthorizedPlanAccess {
			t.Errorf("expected %s, got %s", domainerror.ErrCodeUnauthorizedPlanAccess, code)
		}
	})
}

func TestDeepDiveUseCase(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		analysis    string
		force       bool
		wantSkipped bool
	}{
		{"missing analysis", "", false, false},
		{"49 characters", strings.Repeat("a", 49), false, false},
		{"50 characters", strings.Repeat("a", 50), false, false},
		{"51 characters", strings.Repeat("a", 51), false, true},
		{"forced", strings.Repeat("a", 200), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(entity.Competitor{Name: "Acme", DetailedAnalysis: tt.analysis})
			defer f.close()
			ai := &fakeAI{available: true}
			uc := NewDeepDiveUseCase(f.registry, ai)

			out, err := uc.Execute(ctx, DeepDiveInput{PlanID: f.planID, UserID: f.owner, Name: "ACME", Force: tt.force})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Skipped != tt.wantSkipped {
				t.Errorf("skipped = %v, want %v", out.Skipped, tt.wantSkipped)
			}
			if tt.wantSkipped {
				if ai.calls.Load() != 0 {
					t.Errorf("AI should not be called for a cached analysis")
				}
				return
			}
			if !strings.HasPrefix(out.Competitor.DetailedAnalysis, "A detailed look at Acme") {
				t.Errorf("analysis not stored: %q", out.Competitor.DetailedAnalysis)
			}
			if len(out.Competitor.Features) != 1 || out.Competitor.Weaknesses != "Slow support" {
				t.Errorf("unexpected competitor: %+v", out.Competitor)
			}
		})
	}

	t.Run("applies to edits made while analysing", func(t *testing.T) {
		f := newFixture(entity.Competitor{Name: "Acme"})
		defer f.close()
		ai := &fakeAI{available: true, gate: make(chan struct{}), started: make(chan struct{}, 1)}
		uc := NewDeepDiveUseCase(f.registry, ai)

		type result struct {
			out *DeepDiveOutput
			err error
		}
		done := make(chan result, 1)
		go func() {
			out, err := uc.Execute(ctx, DeepDiveInput{PlanID: f.planID, UserID: f.owner, Name: "Acme"})
			done <- result{out, err}
		}()
		<-ai.started

		edited := f.current()
		edited.Solution = "Edited while analysing"
		edited.Competitors = append(edited.Competitors, entity.Competitor{Name: "Added meanwhile"})
		update := planuc.NewUpdatePlanUseCase(f.registry, plandata.ValidationOptions{})
		if _, err := update.Execute(ctx, planuc.UpdatePlanInput{PlanID: f.planID, UserID: f.owner, Document: edited}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		close(ai.gate)
		r := <-done
		if r.err != nil {
			t.Fatalf("unexpected error: %v", r.err)
		}

		doc := f.current()
		if doc.Solution != "Edited while analysing" || competitorIndex(doc, "Added meanwhile") < 0 {
			t.Errorf("deep dive overwrote a concurrent edit: %+v", doc)
		}
		i := competitorIndex(doc, "Acme")
		if i < 0 || !strings.HasPrefix(doc.Competitors[i].DetailedAnalysis, "A detailed look at Acme") {
			t.Errorf("expected analysis applied to the live plan, got %+v", doc.Competitors)
		}
	})

	t.Run("plan deleted while analysing", func(t *testing.T) {
		f := newFixture(entity.Competitor{Name: "Acme"})
		defer f.close()
		ai := &fakeAI{available: true, gate: make(chan struct{}), started: make(chan struct{}, 1)}
		uc := NewDeepDiveUseCase(f.registry, ai)

		done := make(chan error, 1)
		go func() {
			_, err := uc.Execute(ctx, DeepDiveInput{PlanID: f.planID, UserID: f.owner, Name: "Acme"})
			done <- err
		}()
		<-ai.started

		err := f.registry.Delete(ctx, f.planID, func(ctx context.Context) error { return nil })
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		close(ai.gate)

		if code := planErrorCode(t, <-done); code != domainerror.ErrCodePlanNotFound {
			t.Errorf("expected %s, got %s", domainerror.ErrCodePlanNotFound, code)
		}
	})

	t.Run("unknown competitor", func(t *testing.T) {
		f := newFixture()
		defer f.close()
		_, err := NewDeepDiveUseCase(f.registry, &fakeAI{available: true}).
			Execute(ctx, DeepDiveInput{PlanID: f.planID, UserID: f.owner, Name: "Nobody"})
		if code := planErrorCode(t, err); code != domainerror.ErrCodeCompetitorNotFound {
			t.Errorf("expected %s, got %s", domainerror.ErrCodeCompetitorNotFound, code)
		}
	})

	t.Run("analysis failure", func(t *testing.T) {
		f := newFixture(entity.Competitor{Name: "Acme"})
		defer f.close()
		ai := &fakeAI{available: true, diveErr: map[string]error{"Acme": errRateLimited}}
		_, err := NewDeepDiveUseCase(f.registry, ai).
			Execute(ctx, DeepDiveInput{PlanID: f.planID, UserID: f.owner, Name: "Acme"})
		if code := planErrorCode(t, err); code != domainerror.ErrCodeAnalysisFailed {
			t.Errorf("expected %s, got %s", domainerror.ErrCodeAnalysisFailed, code)
		}
		if f.current().Competitors[0].DetailedAnalysis != "" {
			t.Errorf("failed analysis must not change the plan")
		}
	})
}

func TestDeepDiveUseCase_ExecuteAll(t *testing.T) {
	ctx := context.Background()
	competitors := []entity.Competitor{
		{Name: "Cached", DetailedAnalysis: strings.Repeat("x", 80)},
		{Name: "Broken"},
	}
	for i := 0; i < 6; i++ {
		competitors = append(competitors, entity.Competitor{Name: fmt.Sprintf("Rival %d", i)})
	}
	f := newFixture(competitors...)
	defer f.close()

	ai := &fakeAI{available: true, diveErr: map[string]error{"Broken": errors.New("connection reset")}}
	out, err := NewDeepDiveUseCase(f.registry, ai).ExecuteAll(ctx, DeepDiveAllInput{PlanID: f.planID, UserID: f.owner})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(out.Analyzed) != 6 {
		t.Errorf("expected 6 analysed, got %v", out.Analyzed)
	}
	if len(out.Skipped) != 1 || out.Skipped[0] != "Cached" {
		t.Errorf("expected Cached to be skipped, got %v", out.Skipped)
	}
	if failure, ok := out.Failed["Broken"]; !ok || failure.Code != ErrCodeAIServiceUnavailable {
		t.Errorf("expected Broken to fail as unavailable, got %+v", out.Failed)
	}
	if got := ai.maxSeen.Load(); got > MaxConcurrentDeepDives {
		t.Errorf("saw %d concurrent calls, limit is %d", got, MaxConcurrentDeepDives)
	}
	if !out.State.CanUndo || out.State.HistoryLength != 2 {
		t.Errorf("bulk deep dive should be a single undoable edit, got %+v", out.State)
	}
}

func TestGapAnalysisUseCase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(
		entity.Competitor{Name: "Acme", Features: []string{"Automated invoicing", "Mobile app"}},
		entity.Competitor{Name: "LedgerLy", Features: []string{"mobile app"}},
	)
	defer f.close()

	store, _ := f.registry.Get(ctx, f.planID)
	_, _ = store.Mutate(func(doc *entity.BusinessPlanDocument) error {
		doc.FeatureComparison = []entity.FeatureComparison{{Feature: "Invoice automation", WeHaveIt: true}}
		return nil
	})

	uc := NewGapAnalysisUseCase(f.registry)

	out, err := uc.Execute(ctx, GapAnalysisInput{PlanID: f.planID, UserID: f.owner})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Gaps) != 1 || out.Gaps[0].Feature != "Mobile app" {
		t.Fatalf("expected only the mobile app gap, got %+v", out.Gaps)
	}
	if len(out.Gaps[0].Competitors) != 2 {
		t.Errorf("both competitors offer a mobile app, got %v", out.Gaps[0].Competitors)
	}

	out, err = uc.Execute(ctx, GapAnalysisInput{PlanID: f.planID, UserID: f.owner, AddToRoadmap: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.RoadmapAdded != 1 {
		t.Errorf("expected 1 roadmap item, got %d", out.RoadmapAdded)
	}
	items := out.Plan.ProductRoadmap.Items()
	if len(items) != 1 || items[0].Source != entity.RoadmapSourceGapAnalysis || items[0].Status != entity.RoadmapStatusIdea {
		t.Errorf("unexpected roadmap: %+v", items)
	}

	out, err = uc.Execute(ctx, GapAnalysisInput{PlanID: f.planID, UserID: f.owner, AddToRoadmap: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Gaps) != 0 || out.RoadmapAdded != 0 {
		t.Errorf("roadmap items should close the gap, got %+v added %d", out.Gaps, out.RoadmapAdded)
	}
}
