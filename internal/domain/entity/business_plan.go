// Package entity holds the business plan document, its versions and the account entities.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// MarketPosition describes where a competitor sits in the market.
type MarketPosition string

const (
	MarketPositionLeader     MarketPosition = "leader"
	MarketPositionChallenger MarketPosition = "challenger"
	MarketPositionNiche      MarketPosition = "niche"
	MarketPositionEmerging   MarketPosition = "emerging"
)

// IsValid reports whether the position is one of the known values.
func (p MarketPosition) IsValid() bool {
	switch p {
	case MarketPositionLeader, MarketPositionChallenger, MarketPositionNiche, MarketPositionEmerging:
		return true
	}
	return false
}

// LegalStatus tracks progress on a legal or licensing requirement.
type LegalStatus string

const (
	LegalStatusPending     LegalStatus = "pending"
	LegalStatusInProgress  LegalStatus = "in-progress"
	LegalStatusCompleted   LegalStatus = "completed"
	LegalStatusNotRequired LegalStatus = "not-required"
)

// IsValid reports whether the status is one of the known values.
func (s LegalStatus) IsValid() bool {
	switch s {
	case LegalStatusPending, LegalStatusInProgress, LegalStatusCompleted, LegalStatusNotRequired:
		return true
	}
	return false
}

// LocationStatus tracks progress on securing a physical location.
type LocationStatus string

const (
	LocationStatusScouting    LocationStatus = "scouting"
	LocationStatusNegotiating LocationStatus = "negotiating"
	LocationStatusSecured     LocationStatus = "secured"
)

// IsValid reports whether the status is one of the known values.
func (s LocationStatus) IsValid() bool {
	return s == LocationStatusScouting || s == LocationStatusNegotiating || s == LocationStatusSecured
}

// BuildOutStatus tracks progress on a build-out task.
type BuildOutStatus string

const (
	BuildOutStatusPlanned    BuildOutStatus = "planned"
	BuildOutStatusInProgress BuildOutStatus = "in-progress"
	BuildOutStatusCompleted  BuildOutStatus = "completed"
)

// IsValid reports whether the status is one of the known values.
func (s BuildOutStatus) IsValid() bool {
	return s == BuildOutStatusPlanned || s == BuildOutStatusInProgress || s == BuildOutStatusCompleted
}

// SoftwareStatus tracks adoption of a tool in the software stack.
type SoftwareStatus string

const (
	SoftwareStatusEvaluating SoftwareStatus = "evaluating"
	SoftwareStatusSelected   SoftwareStatus = "selected"
	SoftwareStatusIntegrated SoftwareStatus = "integrated"
)

// IsValid reports whether the status is one of the known values.
func (s SoftwareStatus) IsValid() bool {
	return s == SoftwareStatusEvaluating || s == SoftwareStatusSelected || s == SoftwareStatusIntegrated
}

// PricingParams holds the pricing inputs the financial projections derive from.
type PricingParams struct {
	BasePriceLow         float64 `json:"basePriceLow"`
	BasePriceHigh        float64 `json:"basePriceHigh"`
	FeaturePriceLow      float64 `json:"featurePriceLow"`
	FeaturePriceHigh     float64 `json:"featurePriceHigh"`
	HourlyRate           float64 `json:"hourlyRate"`
	ClientsPerDeveloper  float64 `json:"clientsPerDeveloper"`
	DeveloperMonthlyCost float64 `json:"developerMonthlyCost"`
	HostingCost          float64 `json:"hostingCost"`
	OneTimeServerCost    float64 `json:"oneTimeServerCost"`
}

// ProjectionRow is one period of a financial projection.
// Month is set for monthly schedules and Year for yearly ones.
type ProjectionRow struct {
	Month           int     `json:"month,omitempty"`
	Year            int     `json:"year,omitempty"`
	ClientCount     int     `json:"clientCount"`
	Revenue         float64 `json:"revenue"`
	Expenses        float64 `json:"expenses"`
	Profit          float64 `json:"profit"`
	UpgradeAdoption float64 `json:"upgradeAdoption"`
}

// Period returns the month number, or the year number for yearly rows.
func (r ProjectionRow) Period() int {
	if r.Month > 0 {
		return r.Month
	}
	return r.Year
}

// Competitor is a competing business, keyed by case-insensitive name.
type Competitor struct {
	Name             string         `json:"name"`
	MarketPosition   MarketPosition `json:"marketPosition"`
	ThreatLevel      int            `json:"threatLevel"`
	Strengths        string         `json:"strengths"`
	Weaknesses       string         `json:"weaknesses"`
	TargetMarket     string         `json:"targetMarket"`
	OurAdvantage     string         `json:"ourAdvantage"`
	Pricing          string         `json:"pricing,omitempty"`
	Website          string         `json:"website,omitempty"`
	DetailedAnalysis string         `json:"detailedAnalysis,omitempty"`
	Features         []string       `json:"features,omitempty"`
}

// FeatureComparison records which competitors offer a given feature.
type FeatureComparison struct {
	Feature     string   `json:"feature"`
	WeHaveIt    bool     `json:"weHaveIt"`
	Competitors []string `json:"competitors"`
}

// LegalItem is a legal or licensing requirement.
type LegalItem struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Status      LegalStatus `json:"status"`
	Cost        float64     `json:"cost"`
	Description string      `json:"description,omitempty"`
}

// LocationItem is a candidate physical location.
type LocationItem struct {
	ID          string         `json:"id"`
	Address     string         `json:"address"`
	Status      LocationStatus `json:"status"`
	MonthlyRent float64        `json:"monthlyRent"`
	Notes       string         `json:"notes,omitempty"`
}

// BuildOutItem is a build-out task with its estimated cost.
type BuildOutItem struct {
	ID     string         `json:"id"`
	Task   string         `json:"task"`
	Status BuildOutStatus `json:"status"`
	Cost   float64        `json:"cost"`
}

// SoftwareItem is a tool in the software stack.
type SoftwareItem struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Category    string         `json:"category"`
	Status      SoftwareStatus `json:"status"`
	MonthlyCost float64        `json:"monthlyCost"`
}

// BusinessPlanDocument is the root aggregate for one business plan.
type BusinessPlanDocument struct {
	ID           string    `json:"id"`
	OwnerID      uuid.UUID `json:"ownerId"`
	Title        string    `json:"title"`
	LastEditedBy uuid.UUID `json:"lastEditedBy"`

	MissionStatement    string `json:"missionStatement"`
	Problem             string `json:"problem"`
	Solution            string `json:"solution"`
	TargetAudience      string `json:"targetAudience"`
	MonetizationSummary string `json:"monetizationSummary"`
	RevenueStrategy     string `json:"revenueStrategy"`

	Pricing            PricingParams   `json:"pricing"`
	MonthlyProjections []ProjectionRow `json:"monthlyProjections,omitempty"`
	YearlyProjections  []ProjectionRow `json:"yearlyProjections,omitempty"`

	Competitors       []Competitor        `json:"competitors"`
	FeatureComparison []FeatureComparison `json:"featureComparison,omitempty"`
	ProductRoadmap    Roadmap             `json:"productRoadmap"`

	Legal         []LegalItem    `json:"legal,omitempty"`
	Locations     []LocationItem `json:"locations,omitempty"`
	BuildOut      []BuildOutItem `json:"buildOut,omitempty"`
	SoftwareStack []SoftwareItem `json:"softwareStack,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the document.
func (d *BusinessPlanDocument) Clone() *BusinessPlanDocument {
	if d == nil {
		return nil
	}
	out := *d
	out.MonthlyProjections = cloneSlice(d.MonthlyProjections)
	out.YearlyProjections = cloneSlice(d.YearlyProjections)
	out.Competitors = CloneCompetitors(d.Competitors)
	if d.FeatureComparison != nil {
		out.FeatureComparison = make([]FeatureComparison, len(d.FeatureComparison))
		for i, fc := range d.FeatureComparison {
			fc.Competitors = cloneSlice(fc.Competitors)
			out.FeatureComparison[i] = fc
		}
	}
	out.ProductRoadmap = d.ProductRoadmap.clone()
	out.Legal = cloneSlice(d.Legal)
	out.Locations = cloneSlice(d.Locations)
	out.BuildOut = cloneSlice(d.BuildOut)
	out.SoftwareStack = cloneSlice(d.SoftwareStack)
	return &out
}

// CloneCompetitors deep-copies a competitor list.
func CloneCompetitors(in []Competitor) []Competitor {
	if in == nil {
		return nil
	}
	out := make([]Competitor, len(in))
	for i, c := range in {
		c.Features = cloneSlice(c.Features)
		out[i] = c
	}
	return out
}

// cloneSlice copies a slice of values, keeping nil and empty distinct.
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// PlanSummary is the list view of a plan.
type PlanSummary struct {
	ID        string
	OwnerID   uuid.UUID
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
