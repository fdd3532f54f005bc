package dto

import (
	"sort"

	"github.com/business-planner/backend/internal/application/adapter"
	competitoruc "github.com/business-planner/backend/internal/application/usecase/competitor"
	"github.com/business-planner/backend/internal/domain/competitor"
	"github.com/business-planner/backend/internal/domain/entity"
)

// StartScanResponse represents the response for an accepted market scan.
type StartScanResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// DeepDiveRequest represents the optional body of a deep dive request.
type DeepDiveRequest struct {
	Force bool `json:"force"`
}

// DeepDiveResponse represents the result of a single competitor deep dive.
type DeepDiveResponse struct {
	PlanResponse
	Competitor *entity.Competitor `json:"competitor"`
	Skipped    bool               `json:"skipped"`
}

// DeepDiveFailure represents a competitor whose analysis failed.
type DeepDiveFailure struct {
	Name  string               `json:"name"`
	Error *adapter.ScanFailure `json:"error"`
}

// DeepDiveAllResponse represents the result of a bulk deep dive.
type DeepDiveAllResponse struct {
	PlanResponse
	Analyzed []string          `json:"analyzed"`
	Skipped  []string          `json:"skipped"`
	Failed   []DeepDiveFailure `json:"failed"`
}

// GapAnalysisRequest represents the optional body of a gap analysis request.
type GapAnalysisRequest struct {
	AddToRoadmap bool `json:"add_to_roadmap"`
}

// GapResponse represents one feature the plan is missing.
type GapResponse struct {
	Feature     string   `json:"feature"`
	Competitors []string `json:"competitors"`
}

// GapAnalysisResponse represents the result of a gap analysis.
type GapAnalysisResponse struct {
	PlanResponse
	Gaps         []GapResponse `json:"gaps"`
	RoadmapAdded int           `json:"roadmap_added"`
}

// ToDeepDiveAllResponse converts a bulk deep dive result to its DTO.
func ToDeepDiveAllResponse(out *competitoruc.DeepDiveAllOutput) DeepDiveAllResponse {
	return DeepDiveAllResponse{
		PlanResponse: ToPlanResponse(&out.PlanOutput),
		Analyzed:     nonNil(out.Analyzed),
		Skipped:      nonNil(out.Skipped),
		Failed:       toDeepDiveFailures(out.Failed),
	}
}

// toDeepDiveFailures flattens a failure map into a name-ordered list.
func toDeepDiveFailures(failed map[string]*adapter.ScanFailure) []DeepDiveFailure {
	out := make([]DeepDiveFailure, 0, len(failed))
	for name, failure := range failed {
		out = append(out, DeepDiveFailure{Name: name, Error: failure})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ToGapResponses converts domain gaps to their DTOs.
func ToGapResponses(gaps []competitor.Gap) []GapResponse {
	out := make([]GapResponse, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, GapResponse{Feature: g.Feature, Competitors: g.Competitors})
	}
	return out
}

// nonNil keeps empty lists encoded as [] instead of null.
func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
