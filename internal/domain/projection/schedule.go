package projection

import (
	"math"

	"github.com/business-planner/backend/internal/domain/entity"
)

const (
	baseExpenseRatio   = 0.7
	expenseRatioStep   = 0.08
	minimumExpenseRate = 0.3
)

// ScheduleParams are the revenue stream inputs for a full schedule.
type ScheduleParams struct {
	// Monthly selects month rows (one period each) instead of year rows
	// (twelve periods each).
	Monthly bool

	SubscriptionPrice      float64
	UpsellRate             float64
	UpsellMarkup           float64
	ReferralConversionRate float64
	AvgReferralValue       float64
	WhiteLabelCap          int
	AvgWhiteLabelPrice     float64
}

// ScheduleParamsFromPricing derives schedule inputs from a plan's pricing.
// The subscription price is the midpoint of the base price range and the
// upsell markup is the feature price midpoint relative to it.
func ScheduleParamsFromPricing(p entity.PricingParams, monthly bool) ScheduleParams {
	base := (p.BasePriceLow + p.BasePriceHigh) / 2
	feature := (p.FeaturePriceLow + p.FeaturePriceHigh) / 2
	return ScheduleParams{
		Monthly:                monthly,
		SubscriptionPrice:      base,
		UpsellRate:             0.2,
		UpsellMarkup:           ratio(feature, base),
		ReferralConversionRate: 0.05,
		AvgReferralValue:       p.HourlyRate * 10,
		WhiteLabelCap:          5,
		AvgWhiteLabelPrice:     base * 0.5,
	}
}

// ExpenseRatio returns the share of revenue consumed by expenses in the given
// year. It falls by eight points a year down to a floor of thirty percent.
func ExpenseRatio(year int) float64 {
	return math.Max(minimumExpenseRate, baseExpenseRatio-expenseRatioStep*float64(year))
}

// RecalculateFullSchedule builds one row per growth point. Revenue is the sum
// of base subscription, premium upsell, referral and white-label streams;
// values are rounded only when stored on the row.
func RecalculateFullSchedule(params ScheduleParams, growth []int) []entity.ProjectionRow {
	periodsPerRow := 12.0
	if params.Monthly {
		periodsPerRow = 1
	}

	upgradeAdoption := math.Min(100, math.Max(0, params.UpsellRate*100))

	rows := make([]entity.ProjectionRow, 0, len(growth))
	for i, clients := range growth {
		period := i + 1
		year := period
		if params.Monthly {
			year = (period-1)/12 + 1
		}

		subscription := params.SubscriptionPrice * periodsPerRow * float64(clients)
		upsell := subscription * params.UpsellRate * params.UpsellMarkup
		referral := float64(clients) * params.ReferralConversionRate * params.AvgReferralValue
		whiteLabel := float64(min(period, params.WhiteLabelCap)) * params.AvgWhiteLabelPrice * periodsPerRow

		revenue := subscription + upsell + referral + whiteLabel
		profit := math.Round(revenue * (1 - ExpenseRatio(year)))
		stored := math.Round(revenue)

		row := entity.ProjectionRow{
			ClientCount:     clients,
			Revenue:         stored,
			Profit:          profit,
			Expenses:        stored - profit,
			UpgradeAdoption: upgradeAdoption,
		}
		if params.Monthly {
			row.Month = period
		} else {
			row.Year = period
		}
		rows = append(rows, row)
	}
	return rows
}
