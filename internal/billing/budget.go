package billing

import (
	"strings"

	"github.com/samber/lo"

	"github.com/janekbaraniewski/copilotspend/internal/parsers"
)

var budgetAmountFields = []string{"budget_amount", "budgetAmount", "amount"}

// Budget is the entry chosen from a budgets listing.
type Budget struct {
	Amount *float64
	Label  string
	Raw    string
}

// ExtractBudget picks the budget entry matching filter, or the first entry.
// A payload without a budgets array yields a zero Budget; that is routine for
// accounts without budgets and is not an error.
func ExtractBudget(payload parsers.Value, filter string) Budget {
	entries, ok := payload.ArrayField("budgets")
	if !ok || len(entries) == 0 {
		return Budget{}
	}

	filter = normalizeFilter(filter)
	chosen, found := lo.Find(entries, func(entry parsers.Value) bool {
		return filter != "" && strings.Contains(strings.ToLower(entry.JSON()), filter)
	})
	if !found {
		chosen = entries[0]
	}

	b := Budget{
		Label: budgetLabel(chosen),
		Raw:   chosen.JSON(),
	}
	if amount, ok := parsers.FirstAmount(chosen, budgetAmountFields...); ok {
		b.Amount = &amount
	}
	return b
}

func budgetLabel(entry parsers.Value) string {
	if skus, ok := entry.ArrayField("budget_product_skus"); ok {
		labels := lo.FilterMap(skus, func(v parsers.Value, _ int) (string, bool) {
			s, ok := v.Text()
			s = strings.TrimSpace(s)
			return s, ok && s != ""
		})
		if len(labels) > 0 {
			return strings.Join(labels, ", ")
		}
	}
	if sku := entry.TextField("budget_product_sku"); sku != "" {
		return sku
	}
	return entry.TextField("budget_scope")
}
