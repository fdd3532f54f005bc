package adapter

import (
	"context"

	"github.com/business-planner/backend/internal/domain/entity"
)

// MarketScanRequest describes the business whose market is scanned.
type MarketScanRequest struct {
	PlanID         string
	BusinessName   string
	Mission        string
	Problem        string
	Solution       string
	TargetAudience string
	Known          []string // names of competitors already in the plan
}

// MarketScanResult holds the competitors and feature matrix found by a scan.
type MarketScanResult struct {
	Competitors       []entity.Competitor
	FeatureComparison []entity.FeatureComparison
}

// DeepDiveRequest asks for a detailed analysis of one competitor.
type DeepDiveRequest struct {
	PlanID       string
	BusinessName string
	Solution     string
	Competitor   entity.Competitor
}

// DeepDiveResult holds a detailed competitor analysis.
type DeepDiveResult struct {
	Analysis   string
	Features   []string
	Weaknesses []string
}

// AIAnalysisService defines the interface for AI market research operations.
type AIAnalysisService interface {
	// MarketScan finds competitors for the described business.
	MarketScan(ctx context.Context, request *MarketScanRequest) (*MarketScanResult, error)

	// CompetitorDeepDive produces a detailed analysis of a single competitor.
	CompetitorDeepDive(ctx context.Context, request *DeepDiveRequest) (*DeepDiveResult, error)

	// IsAvailable checks if the AI service is available and properly configured.
	IsAvailable() bool
}
