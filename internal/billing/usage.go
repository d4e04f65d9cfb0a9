package billing

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/janekbaraniewski/copilotspend/internal/parsers"
)

// productFamily always counts as a match, whatever the configured filter.
const productFamily = "copilot"

const (
	unknownProduct = "Unknown"
	otherProduct   = "Other"
)

var (
	usageItemsFields = []string{"usageItems", "usage_items"}
	// Order is a compatibility contract with GitHub's historical field names.
	itemAmountFields = []string{"netAmount", "grossAmount", "net_amount", "gross_amount"}
)

type ExtractOptions struct {
	// IncludeAll sums every item; otherwise only items matching Filter or the
	// product family contribute.
	IncludeAll bool
	Filter     string
}

// Extraction is the outcome of ExtractUsage. A nil Total means the payload was
// not a usage listing at all, which is different from a zero total.
type Extraction struct {
	Total     *float64
	Breakdown []ProductAmount
}

// ExtractUsage totals the usage items in payload.
func ExtractUsage(payload parsers.Value, opts ExtractOptions) Extraction {
	items, ok := payload.ArrayField(usageItemsFields...)
	if !ok {
		return Extraction{}
	}

	filter := normalizeFilter(opts.Filter)
	total := 0.0
	var order []string
	sums := make(map[string]float64)

	for _, item := range items {
		if !item.IsObject() {
			continue
		}
		matched := itemMatches(item, filter)
		if !opts.IncludeAll && !matched {
			continue
		}
		amount, ok := parsers.FirstAmount(item, itemAmountFields...)
		if !ok {
			continue
		}
		if amount < 0 {
			amount = 0
		}
		total += amount

		label := itemLabel(item)
		if !matched {
			label = otherProduct
		}
		if _, seen := sums[label]; !seen {
			order = append(order, label)
		}
		sums[label] += amount
	}

	return Extraction{
		Total:     &total,
		Breakdown: buildBreakdown(order, sums),
	}
}

func itemMatches(item parsers.Value, filter string) bool {
	text := strings.ToLower(strings.Join([]string{
		item.TextField("product"),
		item.TextField("sku"),
		item.TextField("unitType"),
	}, " "))
	if filter != "" && strings.Contains(text, filter) {
		return true
	}
	return strings.Contains(text, productFamily)
}

func itemLabel(item parsers.Value) string {
	if p := item.TextField("product"); p != "" {
		return p
	}
	if s := item.TextField("sku"); s != "" {
		return s
	}
	return unknownProduct
}

func buildBreakdown(order []string, sums map[string]float64) []ProductAmount {
	rows := lo.FilterMap(order, func(label string, _ int) (ProductAmount, bool) {
		amount := sums[label]
		return ProductAmount{Product: label, Amount: amount}, amount > 0
	})
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Amount > rows[j].Amount
	})
	return rows
}

// BreakdownTotal sums a breakdown.
func BreakdownTotal(rows []ProductAmount) float64 {
	return lo.SumBy(rows, func(r ProductAmount) float64 { return r.Amount })
}

func normalizeFilter(filter string) string {
	return strings.ToLower(strings.TrimSpace(filter))
}
