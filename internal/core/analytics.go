package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Health score heuristic. Penalties are applied in this order and the result
// is clamped to [0, 100].
const (
	healthScoreStart    = 100
	overBudgetPenalty   = 30
	risingTrendPenalty  = 20
	highSpendingPenalty = 10

	// TrendMonths is the length of the monthly trend series.
	TrendMonths = 6
)

var (
	risingTrendThreshold = decimal.NewFromInt(10)
	// HighSpendingThreshold is the monthly expense total above which the
	// health score is penalized.
	HighSpendingThreshold = MoneyFromCents(300000)
)

type (
	FinancialHealth struct {
		Score           int     `json:"score"`
		MonthlySpending Money   `json:"monthlySpending"`
		BudgetRemaining Money   `json:"budgetRemaining"`
		SpendingTrend   float64 `json:"spendingTrend"`
	}

	MonthlyPoint struct {
		Month  string `json:"month"`
		Key    Month  `json:"monthKey"`
		Amount Money  `json:"amount"`
	}

	CategorySpend struct {
		Category string `json:"category"`
		Amount   Money  `json:"amount"`
		Color    string `json:"color"`
	}

	BudgetProgress struct {
		ID         string  `json:"id"`
		Category   string  `json:"category"`
		Spent      Money   `json:"spent"`
		Limit      Money   `json:"limit"`
		Percentage float64 `json:"percentage"`
	}

	SpendingAnalytics struct {
		MonthlyTrend      []MonthlyPoint   `json:"monthlyTrend"`
		CategoryBreakdown []CategorySpend  `json:"categoryBreakdown"`
		BudgetProgress    []BudgetProgress `json:"budgetProgress"`
	}

	// Snapshot is the read-only input of every analytics computation.
	// Now carries the location used to bucket dates into months.
	Snapshot struct {
		Transactions []Transaction
		Budgets      []Budget
		Categories   []Category
		Now          time.Time
	}
)

func (s Snapshot) loc() *time.Location {
	return s.Now.Location()
}

// CurrentMonth is the month containing Now.
func (s Snapshot) CurrentMonth() Month {
	return MonthOf(s.Now)
}

// ExpenseTotal sums expense amounts dated within month.
func ExpenseTotal(txs []Transaction, month Month, loc *time.Location) Money {
	total := Zero
	for _, t := range txs {
		if t.IsExpense() && month.Contains(t.Date, loc) {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// SpendingTrend is the month-over-month change in percent. It is zero when
// the previous month had no spending.
func SpendingTrend(current, previous Money) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Decimal().Sub(previous.Decimal()).Div(previous.Decimal()).Mul(hundred)
}

// ComputeFinancialHealth derives the health score for the snapshot's
// current month.
func ComputeFinancialHealth(s Snapshot) FinancialHealth {
	loc := s.loc()
	cur := s.CurrentMonth()

	spending := ExpenseTotal(s.Transactions, cur, loc)
	previous := ExpenseTotal(s.Transactions, cur.AddMonths(-1), loc)
	trend := SpendingTrend(spending, previous)

	remaining := Zero
	for _, b := range s.Budgets {
		if b.Month == cur {
			remaining = remaining.Add(b.Remaining())
		}
	}

	score := healthScoreStart
	if remaining.IsNegative() {
		score -= overBudgetPenalty
	}
	if trend.GreaterThan(risingTrendThreshold) {
		score -= risingTrendPenalty
	}
	if spending.Cmp(HighSpendingThreshold) > 0 {
		score -= highSpendingPenalty
	}
	score = max(0, min(100, score))

	return FinancialHealth{
		Score:           score,
		MonthlySpending: spending,
		BudgetRemaining: remaining,
		SpendingTrend:   trend.Round(2).InexactFloat64(),
	}
}

// ComputeSpendingAnalytics derives the trend series, category breakdown and
// budget progress for the snapshot's current month.
func ComputeSpendingAnalytics(s Snapshot) SpendingAnalytics {
	return SpendingAnalytics{
		MonthlyTrend:      MonthlyTrend(s),
		CategoryBreakdown: CategoryBreakdown(s),
		BudgetProgress:    BudgetProgressList(s),
	}
}

// MonthlyTrend returns expense totals for the last TrendMonths months ending
// with the current one, oldest first.
func MonthlyTrend(s Snapshot) []MonthlyPoint {
	loc := s.loc()
	cur := s.CurrentMonth()
	points := make([]MonthlyPoint, 0, TrendMonths)
	for i := TrendMonths - 1; i >= 0; i-- {
		m := cur.AddMonths(-i)
		points = append(points, MonthlyPoint{
			Month:  m.ShortName(),
			Key:    m,
			Amount: ExpenseTotal(s.Transactions, m, loc),
		})
	}
	return points
}

// CategoryBreakdown groups current-month expenses by category. Categories
// with no spending are omitted; the largest amount comes first.
func CategoryBreakdown(s Snapshot) []CategorySpend {
	loc := s.loc()
	cur := s.CurrentMonth()
	colors := CategoryColors(s.Categories)

	totals := make(map[string]Money)
	for _, t := range s.Transactions {
		if t.IsExpense() && cur.Contains(t.Date, loc) {
			totals[t.Category] = totals[t.Category].Add(t.Amount)
		}
	}

	out := make([]CategorySpend, 0, len(totals))
	for name, amount := range totals {
		if !amount.IsPositive() {
			continue
		}
		color, ok := colors[name]
		if !ok || color == "" {
			color = DefaultCategoryColor
		}
		out = append(out, CategorySpend{Category: name, Amount: amount, Color: color})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// BudgetProgressList reports spent against limit for every current-month
// budget. A zero limit yields a zero percentage.
func BudgetProgressList(s Snapshot) []BudgetProgress {
	cur := s.CurrentMonth()
	out := make([]BudgetProgress, 0, len(s.Budgets))
	for _, b := range s.Budgets {
		if b.Month != cur {
			continue
		}
		out = append(out, BudgetProgress{
			ID:         b.ID,
			Category:   b.Category,
			Spent:      b.Spent,
			Limit:      b.Limit,
			Percentage: Percentage(b.Spent, b.Limit),
		})
	}
	return out
}

// Percentage returns part/whole*100 rounded to two decimals, or 0 when whole
// is zero.
func Percentage(part, whole Money) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Decimal().Div(whole.Decimal()).Mul(hundred).Round(2).InexactFloat64()
}
