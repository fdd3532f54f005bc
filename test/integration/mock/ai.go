package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/domain/entity"
)

// AIService is a scripted AI collaborator. It answers market scans with a
// fixed competitor set unless a failure has been configured.
type AIService struct {
	mu          sync.Mutex
	competitors []entity.Competitor
	features    []entity.FeatureComparison
	failWith    error
	scans       int
	deepDives   map[string]int
}

func NewAIService() *AIService {
	a := &AIService{}
	a.Reset()
	return a
}

// Reset restores the default answers and clears the call counters.
func (a *AIService) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.competitors = []entity.Competitor{
		{
			Name:           "Acme Planner",
			MarketPosition: entity.MarketPositionLeader,
			ThreatLevel:    4,
			Strengths:      "Large template library",
			Weaknesses:     "Dated interface",
			TargetMarket:   "Small agencies",
			OurAdvantage:   "Live financial projections",
			Features:       []string{"Team workspaces", "Investor export"},
		},
		{
			Name:           "PitchPal",
			MarketPosition: entity.MarketPositionEmerging,
			ThreatLevel:    2,
			Strengths:      "Polished pitch decks",
			Weaknesses:     "No financial model",
			TargetMarket:   "First-time founders",
			OurAdvantage:   "Integrated projections",
			Features:       []string{"Pitch deck builder"},
		},
	}
	a.features = []entity.FeatureComparison{
		{Feature: "Team workspaces", Competitors: []string{"Acme Planner"}},
	}
	a.failWith = nil
	a.scans = 0
	a.deepDives = map[string]int{}
}

// FailWith makes every following call return err.
func (a *AIService) FailWith(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failWith = err
}

// Scans returns how many market scans were requested.
func (a *AIService) Scans() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scans
}

// DeepDives returns how many deep dives were requested for a competitor.
func (a *AIService) DeepDives(name string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deepDives[name]
}

func (a *AIService) MarketScan(ctx context.Context, request *adapter.MarketScanRequest) (*adapter.MarketScanResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.scans++
	if a.failWith != nil {
		return nil, a.failWith
	}
	return &adapter.MarketScanResult{
		Competitors:       entity.CloneCompetitors(a.competitors),
		FeatureComparison: append([]entity.FeatureComparison(nil), a.features...),
	}, nil
}

func (a *AIService) CompetitorDeepDive(ctx context.Context, request *adapter.DeepDiveRequest) (*adapter.DeepDiveResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if request == nil {
		return nil, errors.New("missing deep dive request")
	}
	a.deepDives[request.Competitor.Name]++
	if a.failWith != nil {
		return nil, a.failWith
	}
	return &adapter.DeepDiveResult{
		Analysis: request.Competitor.Name + " wins on brand recognition but its onboarding takes weeks and " +
			"its pricing leaves no room for solo founders.",
		Features:   []string{"Scenario planning"},
		Weaknesses: []string{"Slow onboarding", "Expensive seats"},
	}, nil
}

func (a *AIService) IsAvailable() bool {
	return true
}
