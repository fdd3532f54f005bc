// Package projection derives financial projection rows from pricing inputs
// and client growth curves. Every function here is pure: inputs are never
// modified and a fresh slice is returned.
package projection

import (
	"math"

	"github.com/business-planner/backend/internal/domain/entity"
)

// RecalculateOnClientCountChange sets the client count of one row and scales
// its revenue by the row's revenue per client while holding its margin fixed.
// An out-of-range index returns an unchanged copy.
func RecalculateOnClientCountChange(rows []entity.ProjectionRow, index, newClientCount int) []entity.ProjectionRow {
	out := copyRows(rows)
	if index < 0 || index >= len(out) {
		return out
	}

	row := out[index]
	revenuePerClient := ratio(row.Revenue, float64(row.ClientCount))
	margin := ratio(row.Profit, row.Revenue)

	revenue := math.Round(revenuePerClient * float64(newClientCount))
	profit := math.Round(revenue * margin)

	row.ClientCount = newClientCount
	row.Revenue = revenue
	row.Profit = profit
	row.Expenses = revenue - profit
	out[index] = row
	return out
}

// RecalculateOnMarginChange holds a row's revenue fixed and splits it into
// profit and expenses according to the new margin percentage.
func RecalculateOnMarginChange(rows []entity.ProjectionRow, index int, newMarginPercent float64) []entity.ProjectionRow {
	out := copyRows(rows)
	if index < 0 || index >= len(out) {
		return out
	}

	row := out[index]
	profit := math.Round(row.Revenue * newMarginPercent / 100)
	row.Profit = profit
	row.Expenses = row.Revenue - profit
	out[index] = row
	return out
}

// Reconcile restores revenue == expenses + profit on rows that drifted more
// than one unit, recomputing profit from revenue and expenses.
func Reconcile(rows []entity.ProjectionRow) ([]entity.ProjectionRow, bool) {
	out := copyRows(rows)
	changed := false
	for i, row := range out {
		if math.Abs(row.Revenue-row.Expenses-row.Profit) > 1 {
			out[i].Profit = row.Revenue - row.Expenses
			changed = true
		}
	}
	return out, changed
}

// ratio divides a by b, yielding 0 when b is zero.
func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func copyRows(rows []entity.ProjectionRow) []entity.ProjectionRow {
	if rows == nil {
		return nil
	}
	out := make([]entity.ProjectionRow, len(rows))
	copy(out, rows)
	return out
}
