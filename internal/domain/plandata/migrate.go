package plandata

import (
	"strings"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/domain/entity"
)

// LegacyRoadmapFeature names the single item a free-text roadmap becomes.
const LegacyRoadmapFeature = "Product roadmap"

// Migrate upgrades a loaded document in place to the current shape and
// reports whether anything changed. A free-text roadmap becomes a one-item
// structured roadmap (or an empty one when the text is blank) and missing
// monthly projections are filled with the defaults. A missing competitor
// list is set to an empty one without counting as a change.
func Migrate(doc *entity.BusinessPlanDocument) bool {
	if doc == nil {
		return false
	}
	changed := false

	if doc.ProductRoadmap.IsLegacy() {
		doc.ProductRoadmap = migrateRoadmap(doc.ProductRoadmap.LegacyText())
		changed = true
	}

	if doc.MonthlyProjections == nil {
		doc.MonthlyProjections = DefaultMonthlyProjections()
		changed = true
	}

	if doc.Competitors == nil {
		doc.Competitors = []entity.Competitor{}
	}

	return changed
}

func migrateRoadmap(text string) entity.Roadmap {
	text = strings.TrimSpace(text)
	if text == "" {
		return entity.StructuredRoadmap([]entity.RoadmapItem{})
	}
	return entity.StructuredRoadmap([]entity.RoadmapItem{{
		ID:          uuid.NewString(),
		Feature:     LegacyRoadmapFeature,
		Status:      entity.RoadmapStatusPlanned,
		Description: text,
		Source:      entity.RoadmapSourceManual,
	}})
}
