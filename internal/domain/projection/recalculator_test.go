package projection

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/business-planner/backend/internal/domain/entity"
)

func assertProfitIdentity(t *testing.T, rows []entity.ProjectionRow) {
	t.Helper()
	for i, row := range rows {
		if math.Abs(row.Revenue-row.Expenses-row.Profit) > 1 {
			t.Errorf("row %d: revenue %.2f != expenses %.2f + profit %.2f", i, row.Revenue, row.Expenses, row.Profit)
		}
	}
}

func TestComputeExponentialGrowth(t *testing.T) {
	t.Run("default curve is monotone with exact endpoints", func(t *testing.T) {
		curve := ComputeExponentialGrowth(5, 70, 60)

		if len(curve) != 60 {
			t.Fatalf("expected 60 points, got %d", len(curve))
		}
		if curve[0] != 5 {
			t.Errorf("expected first point 5, got %d", curve[0])
		}
		if curve[59] != 70 {
			t.Errorf("expected last point 70, got %d", curve[59])
		}
		for i := 1; i < len(curve); i++ {
			if curve[i] < curve[i-1] {
				t.Errorf("curve decreases at %d: %d -> %d", i, curve[i-1], curve[i])
			}
		}
	})

	tests := []struct {
		name     string
		start    int
		end      int
		steps    int
		expected []int
	}{
		{name: "single step returns end", start: 5, end: 70, steps: 1, expected: []int{70}},
		{name: "zero steps returns end", start: 5, end: 70, steps: 0, expected: []int{70}},
		{name: "non-positive start clamps to one", start: 0, end: 4, steps: 3, expected: []int{1, 2, 4}},
		{name: "non-positive end clamps to one", start: 1, end: -3, steps: 2, expected: []int{1, 1}},
		{name: "doubling", start: 1, end: 8, steps: 4, expected: []int{1, 2, 4, 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeExponentialGrowth(tt.start, tt.end, tt.steps)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("expected %v, got %v", tt.expected, got)
					break
				}
			}
		})
	}
}

func TestRecalculateOnClientCountChange(t *testing.T) {
	rows := []entity.ProjectionRow{
		{Month: 1, ClientCount: 10, Revenue: 1000, Expenses: 600, Profit: 400},
		{Month: 2, ClientCount: 12, Revenue: 1200, Expenses: 700, Profit: 500},
	}

	t.Run("doubling clients preserves margin", func(t *testing.T) {
		got := RecalculateOnClientCountChange(rows, 0, 20)

		if got[0].Revenue != 2000 {
			t.Errorf("expected revenue 2000, got %.2f", got[0].Revenue)
		}
		if got[0].Profit != 800 {
			t.Errorf("expected profit 800, got %.2f", got[0].Profit)
		}
		if got[0].Expenses != 1200 {
			t.Errorf("expected expenses 1200, got %.2f", got[0].Expenses)
		}
		if got[0].ClientCount != 20 {
			t.Errorf("expected client count 20, got %d", got[0].ClientCount)
		}
		assertProfitIdentity(t, got)
	})

	t.Run("input rows are not modified", func(t *testing.T) {
		_ = RecalculateOnClientCountChange(rows, 1, 3)
		if rows[1].ClientCount != 12 || rows[1].Revenue != 1200 {
			t.Errorf("input row mutated: %+v", rows[1])
		}
	})

	t.Run("zero client count yields zero revenue", func(t *testing.T) {
		zero := []entity.ProjectionRow{{Month: 1, ClientCount: 0, Revenue: 500, Expenses: 200, Profit: 300}}
		got := RecalculateOnClientCountChange(zero, 0, 7)
		if got[0].Revenue != 0 || got[0].Profit != 0 || got[0].Expenses != 0 {
			t.Errorf("expected zeroed row, got %+v", got[0])
		}
	})

	t.Run("out of range index returns a copy", func(t *testing.T) {
		got := RecalculateOnClientCountChange(rows, 5, 99)
		if len(got) != len(rows) || got[0] != rows[0] || got[1] != rows[1] {
			t.Errorf("expected unchanged rows, got %+v", got)
		}
	})
}

func TestRecalculateOnMarginChange(t *testing.T) {
	rows := []entity.ProjectionRow{{Month: 1, ClientCount: 5, Revenue: 10000, Expenses: 6000, Profit: 4000}}

	got := RecalculateOnMarginChange(rows, 0, 70)

	if got[0].Revenue != 10000 {
		t.Errorf("expected revenue to stay 10000, got %.2f", got[0].Revenue)
	}
	if got[0].Profit != 7000 {
		t.Errorf("expected profit 7000, got %.2f", got[0].Profit)
	}
	if got[0].Expenses != 3000 {
		t.Errorf("expected expenses 3000, got %.2f", got[0].Expenses)
	}

	t.Run("negative margin is allowed", func(t *testing.T) {
		loss := RecalculateOnMarginChange(rows, 0, -10)
		if loss[0].Profit != -1000 || loss[0].Expenses != 11000 {
			t.Errorf("expected a loss row, got %+v", loss[0])
		}
	})
}

func TestExpenseRatio(t *testing.T) {
	if got := ExpenseRatio(0); got != 0.7 {
		t.Errorf("expected 0.7 for year 0, got %v", got)
	}
	if got := ExpenseRatio(8); got != 0.3 {
		t.Errorf("expected floor 0.3 for year 8, got %v", got)
	}
	for year := 1; year <= 20; year++ {
		if ExpenseRatio(year) > ExpenseRatio(year-1) {
			t.Errorf("expense ratio increased from year %d to %d", year-1, year)
		}
	}
}

func TestRecalculateFullSchedule(t *testing.T) {
	t.Run("yearly subscription only", func(t *testing.T) {
		params := ScheduleParams{SubscriptionPrice: 100}
		got := RecalculateFullSchedule(params, []int{10, 20})

		if len(got) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(got))
		}
		if got[0].Year != 1 || got[1].Year != 2 {
			t.Errorf("expected years 1 and 2, got %d and %d", got[0].Year, got[1].Year)
		}
		if got[0].Revenue != 12000 {
			t.Errorf("expected revenue 12000, got %.2f", got[0].Revenue)
		}
		if got[0].Profit != 4560 {
			t.Errorf("expected profit 4560, got %.2f", got[0].Profit)
		}
		assertProfitIdentity(t, got)
	})

	t.Run("white label revenue is capped", func(t *testing.T) {
		params := ScheduleParams{Monthly: true, WhiteLabelCap: 2, AvgWhiteLabelPrice: 100}
		got := RecalculateFullSchedule(params, []int{0, 0, 0})

		expected := []float64{100, 200, 200}
		for i, row := range got {
			if row.Revenue != expected[i] {
				t.Errorf("month %d: expected revenue %.0f, got %.0f", i+1, expected[i], row.Revenue)
			}
		}
	})

	t.Run("monthly rows carry month numbers and improve yearly", func(t *testing.T) {
		params := ScheduleParamsFromPricing(entity.PricingParams{
			BasePriceLow: 1500, BasePriceHigh: 2500, FeaturePriceLow: 500, FeaturePriceHigh: 1500, HourlyRate: 150,
		}, true)
		got := RecalculateFullSchedule(params, ComputeExponentialGrowth(5, 70, 24))

		if got[0].Month != 1 || got[23].Month != 24 {
			t.Errorf("unexpected month numbering: %d..%d", got[0].Month, got[23].Month)
		}
		firstYearMargin := got[11].Profit / got[11].Revenue
		secondYearMargin := got[12].Profit / got[12].Revenue
		if secondYearMargin <= firstYearMargin {
			t.Errorf("expected margin to improve in year 2: %.3f <= %.3f", secondYearMargin, firstYearMargin)
		}
		for _, row := range got {
			if row.UpgradeAdoption < 0 || row.UpgradeAdoption > 100 {
				t.Errorf("upgrade adoption out of range: %.2f", row.UpgradeAdoption)
			}
		}
		assertProfitIdentity(t, got)
	})
}

func TestReconcile(t *testing.T) {
	rows := []entity.ProjectionRow{
		{Month: 1, Revenue: 1000, Expenses: 600, Profit: 100},
		{Month: 2, Revenue: 1000, Expenses: 600, Profit: 401},
	}

	got, changed := Reconcile(rows)

	if !changed {
		t.Fatal("expected reconcile to report a change")
	}
	if got[0].Profit != 400 {
		t.Errorf("expected profit 400, got %.2f", got[0].Profit)
	}
	if got[1].Profit != 401 {
		t.Errorf("expected rounding drift within one unit to be kept, got %.2f", got[1].Profit)
	}
	if rows[0].Profit != 100 {
		t.Error("input rows were modified")
	}

	if _, changed := Reconcile(got); changed {
		t.Error("expected reconciled rows to be stable")
	}
}

func TestSummarize(t *testing.T) {
	rows := []entity.ProjectionRow{
		{Month: 1, ClientCount: 5, Revenue: 1000, Expenses: 600, Profit: 400},
		{Month: 2, ClientCount: 6, Revenue: 1000, Expenses: 500, Profit: 500},
	}

	summary, err := Summarize(rows, 800)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !summary.TotalRevenue.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected total revenue 2000, got %s", summary.TotalRevenue)
	}
	if !summary.TotalExpenses.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("expected total expenses 1100, got %s", summary.TotalExpenses)
	}
	if !summary.TotalProfit.Equal(decimal.NewFromInt(900)) {
		t.Errorf("expected total profit 900, got %s", summary.TotalProfit)
	}
	if !summary.AverageMargin.Equal(decimal.NewFromInt(45)) {
		t.Errorf("expected average margin 45, got %s", summary.AverageMargin)
	}
	if summary.BreakEvenAfter != 2 {
		t.Errorf("expected break-even in period 2, got %d", summary.BreakEvenAfter)
	}
	if summary.FinalClients != 6 {
		t.Errorf("expected final clients 6, got %d", summary.FinalClients)
	}

	t.Run("never breaking even reports zero", func(t *testing.T) {
		summary, err := Summarize(rows, 10000)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.BreakEvenAfter != 0 {
			t.Errorf("expected no break-even, got %d", summary.BreakEvenAfter)
		}
	})

	t.Run("non-finite values are rejected", func(t *testing.T) {
		bad := []entity.ProjectionRow{{Month: 1, Revenue: math.NaN()}}
		if _, err := Summarize(bad, 0); err == nil {
			t.Error("expected error for NaN revenue")
		}
		if _, err := Summarize(rows, math.Inf(1)); err == nil {
			t.Error("expected error for infinite investment")
		}
	})
}
