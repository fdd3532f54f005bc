package plandata

import (
	"reflect"

	"github.com/business-planner/backend/internal/domain/entity"
)

// Plan section names used in version history.
const (
	SectionNarrative     = "narrative"
	SectionPricing       = "pricing"
	SectionProjections   = "projections"
	SectionCompetitors   = "competitors"
	SectionRoadmap       = "roadmap"
	SectionLegal         = "legal"
	SectionLocations     = "locations"
	SectionBuildOut      = "buildOut"
	SectionSoftwareStack = "softwareStack"
)

// ChangedSections lists the sections that differ between two documents.
// A nil prev means every section is new.
func ChangedSections(prev, next *entity.BusinessPlanDocument) []string {
	if next == nil {
		return nil
	}
	if prev == nil {
		prev = &entity.BusinessPlanDocument{}
	}
	prev, next = normalize(prev), normalize(next)

	checks := []struct {
		name string
		a, b any
	}{
		{SectionNarrative, narrative(prev), narrative(next)},
		{SectionPricing, prev.Pricing, next.Pricing},
		{SectionProjections,
			[][]entity.ProjectionRow{prev.MonthlyProjections, prev.YearlyProjections},
			[][]entity.ProjectionRow{next.MonthlyProjections, next.YearlyProjections}},
		{SectionCompetitors,
			struct {
				C []entity.Competitor
				F []entity.FeatureComparison
			}{prev.Competitors, prev.FeatureComparison},
			struct {
				C []entity.Competitor
				F []entity.FeatureComparison
			}{next.Competitors, next.FeatureComparison}},
		{SectionRoadmap, prev.ProductRoadmap, next.ProductRoadmap},
		{SectionLegal, prev.Legal, next.Legal},
		{SectionLocations, prev.Locations, next.Locations},
		{SectionBuildOut, prev.BuildOut, next.BuildOut},
		{SectionSoftwareStack, prev.SoftwareStack, next.SoftwareStack},
	}

	var sections []string
	for _, c := range checks {
		if !reflect.DeepEqual(c.a, c.b) {
			sections = append(sections, c.name)
		}
	}
	return sections
}

func narrative(d *entity.BusinessPlanDocument) [7]string {
	return [7]string{
		d.Title, d.MissionStatement, d.Problem, d.Solution,
		d.TargetAudience, d.MonetizationSummary, d.RevenueStrategy,
	}
}

// normalize returns a copy in which empty lists are nil, so documents that
// went through a JSON round trip compare equal to their in-memory originals.
func normalize(d *entity.BusinessPlanDocument) *entity.BusinessPlanDocument {
	out := d.Clone()
	out.MonthlyProjections = nilIfEmpty(out.MonthlyProjections)
	out.YearlyProjections = nilIfEmpty(out.YearlyProjections)
	out.Competitors = nilIfEmpty(out.Competitors)
	for i := range out.Competitors {
		out.Competitors[i].Features = nilIfEmpty(out.Competitors[i].Features)
	}
	out.FeatureComparison = nilIfEmpty(out.FeatureComparison)
	for i := range out.FeatureComparison {
		out.FeatureComparison[i].Competitors = nilIfEmpty(out.FeatureComparison[i].Competitors)
	}
	if !out.ProductRoadmap.IsLegacy() && out.ProductRoadmap.Len() == 0 {
		out.ProductRoadmap = entity.Roadmap{}
	}
	out.Legal = nilIfEmpty(out.Legal)
	out.Locations = nilIfEmpty(out.Locations)
	out.BuildOut = nilIfEmpty(out.BuildOut)
	out.SoftwareStack = nilIfEmpty(out.SoftwareStack)
	return out
}

func nilIfEmpty[T any](in []T) []T {
	if len(in) == 0 {
		return nil
	}
	return in
}
