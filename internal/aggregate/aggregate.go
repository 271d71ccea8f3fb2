// Package aggregate computes derived views over a ledger snapshot.
//
// Every function here is pure: it reads the records it is given and never
// touches persistence. Sums are accumulated as exact decimals and converted
// back to float64 only for the result, so 0.1 + 0.2 totals 0.3. No rounding
// to cents is applied.
package aggregate

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"tracker/internal/core"
)

// MonthsPerYear is the length of a yearly trend.
const MonthsPerYear = 12

// Balance is the count and sum of the records falling in one month.
type Balance struct {
	Label   string  `json:"month"`
	Count   int     `json:"totalTransactions"`
	Balance float64 `json:"balance"`
}

// Trend holds twelve monthly totals and their least-squares fit.
type Trend struct {
	Year          int       `json:"year"`
	MonthlyTotals []float64 `json:"monthlyTotals"`
	TrendLine     []float64 `json:"trendLine"`
}

// Summary totals a whole ledger.
type Summary struct {
	Count    int     `json:"count"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Net      float64 `json:"net"`
}

// CategoryTotals sums amounts per category. Records without a category are
// grouped under core.UncategorizedLabel; the records themselves are not
// modified. An empty ledger yields an empty, non-nil map.
func CategoryTotals(ledger []core.Transaction) map[string]float64 {
	sums := make(map[string]decimal.Decimal)
	for _, tx := range ledger {
		cat := tx.CategoryOrDefault()
		sums[cat] = sums[cat].Add(decimal.NewFromFloat(tx.Amount))
	}

	out := make(map[string]float64, len(sums))
	for cat, sum := range sums {
		out[cat] = sum.InexactFloat64()
	}
	return out
}

// MonthlyBalance counts and sums the records dated in the given month.
// No match is a valid result with zero count and zero balance.
func MonthlyBalance(ledger []core.Transaction, year, month int) (Balance, error) {
	if month < 1 || month > MonthsPerYear {
		return Balance{}, &core.ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}

	sum := decimal.Zero
	count := 0
	for _, tx := range ledger {
		y, m, ok := tx.Period()
		if !ok || y != year || m != month {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(tx.Amount))
		count++
	}

	return Balance{
		Label:   PeriodLabel(year, month),
		Count:   count,
		Balance: sum.InexactFloat64(),
	}, nil
}

// YearlyTrend buckets a year's amounts by month and fits a line through the
// twelve totals against month index 0..11.
func YearlyTrend(ledger []core.Transaction, year int) (Trend, error) {
	buckets := make([]decimal.Decimal, MonthsPerYear)
	for _, tx := range ledger {
		y, m, ok := tx.Period()
		if !ok || y != year {
			continue
		}
		buckets[m-1] = buckets[m-1].Add(decimal.NewFromFloat(tx.Amount))
	}

	totals := make([]float64, MonthsPerYear)
	for i, b := range buckets {
		totals[i] = b.InexactFloat64()
	}

	line, err := Regression(totals)
	if err != nil {
		return Trend{}, fmt.Errorf("fit trend for %d: %w", year, err)
	}

	return Trend{
		Year:          year,
		MonthlyTotals: totals,
		TrendLine:     line.Points(len(totals)),
	}, nil
}

// Summarize reports count, income, expenses and net over the whole ledger.
func Summarize(ledger []core.Transaction) Summary {
	income := decimal.Zero
	expenses := decimal.Zero
	for _, tx := range ledger {
		amt := decimal.NewFromFloat(tx.Amount)
		if amt.IsNegative() {
			expenses = expenses.Add(amt)
		} else {
			income = income.Add(amt)
		}
	}
	return Summary{
		Count:    len(ledger),
		Income:   income.InexactFloat64(),
		Expenses: expenses.InexactFloat64(),
		Net:      income.Add(expenses).InexactFloat64(),
	}
}

// PeriodLabel formats year and month as "{year}-{month}" without padding.
func PeriodLabel(year, month int) string {
	return strconv.Itoa(year) + "-" + strconv.Itoa(month)
}
