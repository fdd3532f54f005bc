// Package plandata provides the default plan document and the rules applied
// to every document before it reaches the state store: migration of older
// shapes, validation and section-level diffing.
package plandata

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/domain/entity"
	"github.com/business-planner/backend/internal/domain/projection"
)

const (
	defaultMonths           = 60
	defaultStartClients     = 5
	defaultEndClients       = 70
	defaultRevenuePerClient = 2000
	defaultExpenseRatio     = 0.6
	defaultYears            = 5
)

// DefaultPricing returns the pricing a new plan starts with.
func DefaultPricing() entity.PricingParams {
	return entity.PricingParams{
		BasePriceLow:         1500,
		BasePriceHigh:        2500,
		FeaturePriceLow:      500,
		FeaturePriceHigh:     1500,
		HourlyRate:           150,
		ClientsPerDeveloper:  10,
		DeveloperMonthlyCost: 8000,
		HostingCost:          500,
		OneTimeServerCost:    5000,
	}
}

// DefaultMonthlyProjections returns sixty months of projections following the
// default 5 to 70 client growth curve at 2000 revenue per client.
func DefaultMonthlyProjections() []entity.ProjectionRow {
	growth := projection.ComputeExponentialGrowth(defaultStartClients, defaultEndClients, defaultMonths)
	rows := make([]entity.ProjectionRow, len(growth))
	for i, clients := range growth {
		revenue := float64(clients * defaultRevenuePerClient)
		expenses := math.Round(revenue * defaultExpenseRatio)
		rows[i] = entity.ProjectionRow{
			Month:           i + 1,
			ClientCount:     clients,
			Revenue:         revenue,
			Expenses:        expenses,
			Profit:          revenue - expenses,
			UpgradeAdoption: 20,
		}
	}
	return rows
}

// Default returns a new plan document populated with starter content.
func Default(ownerID uuid.UUID, title string) *entity.BusinessPlanDocument {
	pricing := DefaultPricing()
	yearly := projection.RecalculateFullSchedule(
		projection.ScheduleParamsFromPricing(pricing, false),
		projection.ComputeExponentialGrowth(defaultStartClients, defaultEndClients, defaultYears),
	)

	if title == "" {
		title = "Untitled business plan"
	}

	return &entity.BusinessPlanDocument{
		ID:                  uuid.NewString(),
		OwnerID:             ownerID,
		Title:               title,
		LastEditedBy:        ownerID,
		MissionStatement:    "Describe why the business exists and who it serves.",
		Problem:             "What problem do your customers have today?",
		Solution:            "How does your product solve it better than the alternatives?",
		TargetAudience:      "Who buys first, and who pays?",
		MonetizationSummary: "Subscription with premium feature upgrades.",
		RevenueStrategy:     "Monthly subscriptions, premium upsells, referrals and white-label partnerships.",
		Pricing:             pricing,
		MonthlyProjections:  DefaultMonthlyProjections(),
		YearlyProjections:   yearly,
		Competitors:         []entity.Competitor{},
		FeatureComparison:   []entity.FeatureComparison{},
		ProductRoadmap:      entity.StructuredRoadmap([]entity.RoadmapItem{}),
		Legal: []entity.LegalItem{
			{ID: uuid.NewString(), Name: "Business registration", Status: entity.LegalStatusPending, Cost: 500},
			{ID: uuid.NewString(), Name: "Terms of service and privacy policy", Status: entity.LegalStatusPending, Cost: 1500},
		},
		Locations: []entity.LocationItem{},
		BuildOut:  []entity.BuildOutItem{},
		SoftwareStack: []entity.SoftwareItem{
			{ID: uuid.NewString(), Name: "Cloud hosting", Category: "Infrastructure", Status: entity.SoftwareStatusEvaluating, MonthlyCost: pricing.HostingCost},
		},
		UpdatedAt: time.Now().UTC(),
	}
}
