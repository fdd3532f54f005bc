package projection

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/business-planner/backend/internal/domain/entity"
)

// Summary aggregates a projection schedule.
type Summary struct {
	Periods        int
	TotalRevenue   decimal.Decimal
	TotalExpenses  decimal.Decimal
	TotalProfit    decimal.Decimal
	AverageMargin  decimal.Decimal // percent, two decimal places
	FinalClients   int
	BreakEvenAfter int // period in which cumulative profit first covers the initial investment, 0 if never
}

// Summarize totals a schedule. Cumulative profit starts at -initialInvestment
// when looking for the break-even period.
func Summarize(rows []entity.ProjectionRow, initialInvestment float64) (Summary, error) {
	if math.IsNaN(initialInvestment) || math.IsInf(initialInvestment, 0) {
		return Summary{}, fmt.Errorf("initial investment is not a finite number")
	}

	summary := Summary{
		Periods:       len(rows),
		TotalRevenue:  decimal.Zero,
		TotalExpenses: decimal.Zero,
		TotalProfit:   decimal.Zero,
		AverageMargin: decimal.Zero,
	}

	cumulative := decimal.NewFromFloat(initialInvestment).Neg()
	marginSum := decimal.Zero
	marginRows := 0

	for i, row := range rows {
		for _, v := range []float64{row.Revenue, row.Expenses, row.Profit} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Summary{}, fmt.Errorf("row %d holds a non-finite value", i)
			}
		}

		revenue := decimal.NewFromFloat(row.Revenue)
		profit := decimal.NewFromFloat(row.Profit)

		summary.TotalRevenue = summary.TotalRevenue.Add(revenue)
		summary.TotalExpenses = summary.TotalExpenses.Add(decimal.NewFromFloat(row.Expenses))
		summary.TotalProfit = summary.TotalProfit.Add(profit)
		summary.FinalClients = row.ClientCount

		if !revenue.IsZero() {
			marginSum = marginSum.Add(profit.Div(revenue))
			marginRows++
		}

		cumulative = cumulative.Add(profit)
		if summary.BreakEvenAfter == 0 && !cumulative.IsNegative() {
			summary.BreakEvenAfter = i + 1
		}
	}

	if marginRows > 0 {
		summary.AverageMargin = marginSum.
			Div(decimal.NewFromInt(int64(marginRows))).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	return summary, nil
}
