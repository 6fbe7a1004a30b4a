package tracking

import "github.com/shopspring/decimal"

// BudgetSummary is the result of folding tracker budgets over a row-set
// against a target budget.
type BudgetSummary struct {
	TotalBudget     decimal.Decimal `json:"total_budget"`
	RemainingBudget decimal.Decimal `json:"remaining_budget"`
}

// AccumulateBudget sums the budget column of the visible entries and
// reports what is left of the target. Entries without a budget contribute
// zero. A target smaller than the total yields a negative remainder.
func AccumulateBudget(entries []Entry, target decimal.Decimal) BudgetSummary {
	total := decimal.Zero
	for _, e := range entries {
		if e.Budget != nil {
			total = total.Add(*e.Budget)
		}
	}
	return BudgetSummary{
		TotalBudget:     total,
		RemainingBudget: target.Sub(total),
	}
}
