package competitor

import (
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/domain/entity"
)

const (
	minTokenLength = 3
	minStemLength  = 5
)

// Gap is a feature offered by competitors that the plan does not cover.
type Gap struct {
	Feature     string
	Competitors []string
}

// tokenize lowercases s and splits it on anything that is not a letter or
// digit, dropping tokens shorter than three characters.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= minTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// FeatureMatches reports whether a competitor feature is covered by one of
// ours. At least half of the competitor feature's tokens must match a token
// of our feature, either as a substring in either direction or by sharing a
// stem of five or more leading characters.
func FeatureMatches(theirs, ours string) bool {
	theirTokens := tokenize(theirs)
	ourTokens := tokenize(ours)
	if len(theirTokens) == 0 || len(ourTokens) == 0 {
		return Key(theirs) != "" && Key(theirs) == Key(ours)
	}

	hits := 0
	for _, t := range theirTokens {
		for _, o := range ourTokens {
			if tokensMatch(t, o) {
				hits++
				break
			}
		}
	}
	return hits*2 >= len(theirTokens)
}

func tokensMatch(a, b string) bool {
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	ra, rb := []rune(a), []rune(b)
	n := 0
	for n < len(ra) && n < len(rb) && ra[n] == rb[n] {
		n++
	}
	return n >= minStemLength
}

// FindGaps lists competitor features that none of ours match, grouped by
// feature name and sorted by how many competitors offer them.
func FindGaps(competitors []entity.Competitor, ourFeatures []string) []Gap {
	byKey := make(map[string]*Gap)
	var order []string

	for _, c := range competitors {
		for _, feature := range c.Features {
			key := Key(feature)
			if key == "" || coveredBy(feature, ourFeatures) {
				continue
			}
			gap, ok := byKey[key]
			if !ok {
				gap = &Gap{Feature: strings.TrimSpace(feature)}
				byKey[key] = gap
				order = append(order, key)
			}
			gap.Competitors = mergeStrings(gap.Competitors, []string{c.Name})
		}
	}

	gaps := make([]Gap, 0, len(order))
	for _, key := range order {
		gaps = append(gaps, *byKey[key])
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		return len(gaps[i].Competitors) > len(gaps[j].Competitors)
	})
	return gaps
}

func coveredBy(feature string, ours []string) bool {
	for _, o := range ours {
		if FeatureMatches(feature, o) {
			return true
		}
	}
	return false
}

// OurFeatures collects the features the plan already claims: comparison rows
// marked WeHaveIt and every roadmap item.
func OurFeatures(doc *entity.BusinessPlanDocument) []string {
	var features []string
	for _, fc := range doc.FeatureComparison {
		if fc.WeHaveIt {
			features = append(features, fc.Feature)
		}
	}
	for _, item := range doc.ProductRoadmap.Items() {
		features = append(features, item.Feature)
	}
	return features
}

// GapsToRoadmap appends each gap as an idea on the roadmap unless a roadmap
// item with the same feature name already exists.
func GapsToRoadmap(roadmap entity.Roadmap, gaps []Gap) (entity.Roadmap, int) {
	items := roadmap.Items()
	existing := make(map[string]struct{}, len(items))
	for _, item := range items {
		existing[Key(item.Feature)] = struct{}{}
	}

	added := 0
	for _, gap := range gaps {
		key := Key(gap.Feature)
		if _, ok := existing[key]; ok {
			continue
		}
		existing[key] = struct{}{}
		items = append(items, entity.RoadmapItem{
			ID:          uuid.NewString(),
			Feature:     gap.Feature,
			Status:      entity.RoadmapStatusIdea,
			Description: "Offered by " + strings.Join(gap.Competitors, ", "),
			Source:      entity.RoadmapSourceGapAnalysis,
		})
		added++
	}
	if items == nil {
		items = []entity.RoadmapItem{}
	}
	return entity.StructuredRoadmap(items), added
}
