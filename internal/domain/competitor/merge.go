// Package competitor holds the rules for folding AI market research into a
// plan's competitor list.
package competitor

import (
	"strings"
	"unicode/utf8"

	"github.com/business-planner/backend/internal/domain/entity"
)

// DeepDiveThreshold is the analysis length at or below which a cached deep
// dive is treated as missing and regenerated.
const DeepDiveThreshold = 50

// Key normalizes a competitor name for comparisons.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Find returns the index of the competitor with the given name, or -1.
func Find(competitors []entity.Competitor, name string) int {
	key := Key(name)
	for i, c := range competitors {
		if Key(c.Name) == key {
			return i
		}
	}
	return -1
}

// MergeMarketScan folds scanned competitors into the existing list.
// Known names are updated in place, keeping their original casing and any
// cached DetailedAnalysis; unknown names are appended in scan order.
// Merging the same scan twice yields the same list.
func MergeMarketScan(existing, scanned []entity.Competitor) []entity.Competitor {
	merged := entity.CloneCompetitors(existing)
	if merged == nil {
		merged = []entity.Competitor{}
	}

	for _, incoming := range scanned {
		if Key(incoming.Name) == "" {
			continue
		}
		if i := Find(merged, incoming.Name); i >= 0 {
			merged[i] = updateCompetitor(merged[i], incoming)
			continue
		}
		added := incoming
		added.Name = strings.TrimSpace(incoming.Name)
		added.Features = append([]string(nil), incoming.Features...)
		merged = append(merged, added)
	}
	return merged
}

func updateCompetitor(current, incoming entity.Competitor) entity.Competitor {
	if incoming.MarketPosition.IsValid() {
		current.MarketPosition = incoming.MarketPosition
	}
	if incoming.ThreatLevel >= 1 && incoming.ThreatLevel <= 5 {
		current.ThreatLevel = incoming.ThreatLevel
	}
	setIfPresent(&current.Strengths, incoming.Strengths)
	setIfPresent(&current.Weaknesses, incoming.Weaknesses)
	setIfPresent(&current.TargetMarket, incoming.TargetMarket)
	setIfPresent(&current.OurAdvantage, incoming.OurAdvantage)
	setIfPresent(&current.Pricing, incoming.Pricing)
	setIfPresent(&current.Website, incoming.Website)
	if len(incoming.Features) > 0 {
		current.Features = mergeStrings(current.Features, incoming.Features)
	}
	return current
}

func setIfPresent(dst *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dst = value
	}
}

// MergeFeatureComparison merges scanned comparison rows by feature name.
// Competitor lists are unioned and WeHaveIt keeps the existing answer.
func MergeFeatureComparison(existing, scanned []entity.FeatureComparison) []entity.FeatureComparison {
	merged := make([]entity.FeatureComparison, 0, len(existing)+len(scanned))
	index := make(map[string]int, len(existing)+len(scanned))
	for _, fc := range existing {
		fc.Competitors = append([]string(nil), fc.Competitors...)
		index[Key(fc.Feature)] = len(merged)
		merged = append(merged, fc)
	}

	for _, fc := range scanned {
		key := Key(fc.Feature)
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			merged[i].Competitors = mergeStrings(merged[i].Competitors, fc.Competitors)
			continue
		}
		fc.Competitors = mergeStrings(nil, fc.Competitors)
		index[key] = len(merged)
		merged = append(merged, fc)
	}
	return merged
}

// mergeStrings appends values not already present, comparing case-insensitively.
func mergeStrings(dst, values []string) []string {
	seen := make(map[string]struct{}, len(dst)+len(values))
	out := make([]string, 0, len(dst)+len(values))
	for _, v := range dst {
		seen[Key(v)] = struct{}{}
		out = append(out, v)
	}
	for _, v := range values {
		k := Key(v)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, strings.TrimSpace(v))
	}
	return out
}

// NeedsDeepDive reports whether a competitor's cached analysis is missing or
// too short to be useful.
func NeedsDeepDive(c entity.Competitor) bool {
	return utf8.RuneCountInString(strings.TrimSpace(c.DetailedAnalysis)) <= DeepDiveThreshold
}

// DeepDive is the outcome of a detailed competitor analysis.
type DeepDive struct {
	Analysis   string
	Features   []string
	Weaknesses []string
}

// ApplyDeepDive stores a deep dive on the named competitor. It returns false
// when the competitor is no longer part of the list.
func ApplyDeepDive(competitors []entity.Competitor, name string, dive DeepDive) ([]entity.Competitor, bool) {
	out := entity.CloneCompetitors(competitors)
	i := Find(out, name)
	if i < 0 {
		return out, false
	}
	out[i].DetailedAnalysis = strings.TrimSpace(dive.Analysis)
	if len(dive.Features) > 0 {
		out[i].Features = mergeStrings(out[i].Features, dive.Features)
	}
	if len(dive.Weaknesses) > 0 {
		out[i].Weaknesses = strings.Join(dive.Weaknesses, "; ")
	}
	return out, true
}
