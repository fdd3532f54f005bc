package plandata

import (
	"fmt"
	"math"

	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
)

// ValidationOptions controls the policy decisions of Validate.
type ValidationOptions struct {
	// StrictPriceRanges rejects low > high price ranges instead of only
	// reporting them as warnings.
	StrictPriceRanges bool
}

// Validate checks a candidate document before it is committed. Hard failures
// are returned as a *PlanError; soft findings come back as warnings.
func Validate(doc *entity.BusinessPlanDocument, opts ValidationOptions) ([]string, error) {
	if doc == nil {
		return nil, domainerror.NewPlanError(domainerror.ErrCodeMissingPlanField, "document is required", nil)
	}
	if doc.ID == "" {
		return nil, domainerror.NewPlanError(domainerror.ErrCodeMissingPlanField, "document id is required", nil)
	}

	if err := validatePricing(doc.Pricing); err != nil {
		return nil, err
	}

	var warnings []string
	for _, r := range []struct {
		name      string
		low, high float64
	}{
		{"base price", doc.Pricing.BasePriceLow, doc.Pricing.BasePriceHigh},
		{"feature price", doc.Pricing.FeaturePriceLow, doc.Pricing.FeaturePriceHigh},
	} {
		if r.low <= r.high {
			continue
		}
		msg := fmt.Sprintf("%s range is inverted: %.2f > %.2f", r.name, r.low, r.high)
		if opts.StrictPriceRanges {
			return nil, domainerror.NewPlanError(domainerror.ErrCodeInvertedRange, msg, domainerror.ErrInvertedRange)
		}
		warnings = append(warnings, msg)
	}

	if err := validateRows("monthlyProjections", doc.MonthlyProjections); err != nil {
		return nil, err
	}
	if err := validateRows("yearlyProjections", doc.YearlyProjections); err != nil {
		return nil, err
	}
	if err := validateCompetitors(doc.Competitors); err != nil {
		return nil, err
	}
	if err := validateLists(doc); err != nil {
		return nil, err
	}

	return warnings, nil
}

func validatePricing(p entity.PricingParams) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"basePriceLow", p.BasePriceLow},
		{"basePriceHigh", p.BasePriceHigh},
		{"featurePriceLow", p.FeaturePriceLow},
		{"featurePriceHigh", p.FeaturePriceHigh},
		{"hourlyRate", p.HourlyRate},
		{"clientsPerDeveloper", p.ClientsPerDeveloper},
		{"developerMonthlyCost", p.DeveloperMonthlyCost},
		{"hostingCost", p.HostingCost},
		{"oneTimeServerCost", p.OneTimeServerCost},
	}
	for _, f := range fields {
		if err := checkFinite("pricing."+f.name, f.value); err != nil {
			return err
		}
		if f.value < 0 {
			return domainerror.NewPlanError(domainerror.ErrCodeNegativeValue,
				fmt.Sprintf("pricing.%s must not be negative", f.name), domainerror.ErrNegativeValue)
		}
	}
	return nil
}

func validateRows(section string, rows []entity.ProjectionRow) error {
	for i, row := range rows {
		for _, v := range []float64{row.Revenue, row.Expenses, row.Profit, row.UpgradeAdoption} {
			if err := checkFinite(fmt.Sprintf("%s[%d]", section, i), v); err != nil {
				return err
			}
		}
		if row.ClientCount < 0 {
			return domainerror.NewPlanError(domainerror.ErrCodeNegativeValue,
				fmt.Sprintf("%s[%d].clientCount must not be negative", section, i), domainerror.ErrNegativeValue)
		}
		if row.UpgradeAdoption < 0 || row.UpgradeAdoption > 100 {
			return domainerror.NewPlanError(domainerror.ErrCodeInvalidNumber,
				fmt.Sprintf("%s[%d].upgradeAdoption must be between 0 and 100", section, i), domainerror.ErrInvalidNumber)
		}
	}
	return nil
}

// validateCompetitors accepts a threat level of 0 as unset; anything else must
// be on the 1 to 5 scale.
func validateCompetitors(competitors []entity.Competitor) error {
	for i, c := range competitors {
		if c.MarketPosition != "" && !c.MarketPosition.IsValid() {
			return invalidEnum(fmt.Sprintf("competitors[%d].marketPosition", i), string(c.MarketPosition))
		}
		if c.ThreatLevel < 0 || c.ThreatLevel > 5 {
			return domainerror.NewPlanError(domainerror.ErrCodeInvalidNumber,
				fmt.Sprintf("competitors[%d].threatLevel must be between 1 and 5", i), domainerror.ErrInvalidNumber)
		}
	}
	return nil
}

func validateLists(doc *entity.BusinessPlanDocument) error {
	for i, item := range doc.ProductRoadmap.Items() {
		if !item.Status.IsValid() {
			return invalidEnum(fmt.Sprintf("productRoadmap[%d].status", i), string(item.Status))
		}
	}
	for i, item := range doc.Legal {
		if !item.Status.IsValid() {
			return invalidEnum(fmt.Sprintf("legal[%d].status", i), string(item.Status))
		}
		if err := checkCost(fmt.Sprintf("legal[%d].cost", i), item.Cost); err != nil {
			return err
		}
	}
	for i, item := range doc.Locations {
		if !item.Status.IsValid() {
			return invalidEnum(fmt.Sprintf("locations[%d].status", i), string(item.Status))
		}
		if err := checkCost(fmt.Sprintf("locations[%d].monthlyRent", i), item.MonthlyRent); err != nil {
			return err
		}
	}
	for i, item := range doc.BuildOut {
		if !item.Status.IsValid() {
			return invalidEnum(fmt.Sprintf("buildOut[%d].status", i), string(item.Status))
		}
		if err := checkCost(fmt.Sprintf("buildOut[%d].cost", i), item.Cost); err != nil {
			return err
		}
	}
	for i, item := range doc.SoftwareStack {
		if !item.Status.IsValid() {
			return invalidEnum(fmt.Sprintf("softwareStack[%d].status", i), string(item.Status))
		}
		if err := checkCost(fmt.Sprintf("softwareStack[%d].monthlyCost", i), item.MonthlyCost); err != nil {
			return err
		}
	}
	return nil
}

func checkFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return domainerror.NewPlanError(domainerror.ErrCodeInvalidNumber,
			field+" must be a finite number", domainerror.ErrInvalidNumber)
	}
	return nil
}

func checkCost(field string, v float64) error {
	if err := checkFinite(field, v); err != nil {
		return err
	}
	if v < 0 {
		return domainerror.NewPlanError(domainerror.ErrCodeNegativeValue,
			field+" must not be negative", domainerror.ErrNegativeValue)
	}
	return nil
}

func invalidEnum(field, value string) error {
	return domainerror.NewPlanError(domainerror.ErrCodeInvalidEnum,
		fmt.Sprintf("%s has unknown value %q", field, value), domainerror.ErrInvalidEnum)
}
