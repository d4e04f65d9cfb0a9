package billing

import (
	"strings"

	"github.com/janekbaraniewski/copilotspend/internal/parsers"
)

var fallbackAmountFields = []string{
	"spent",
	"total_spend",
	"totalSpent",
	"netAmount",
	"grossAmount",
	"net_amount",
	"gross_amount",
	"usage_cost",
	"cost",
	"amount",
}

// ExtractFallback digs a spend figure out of a payload of unknown shape.
//
// It is best-effort only: every object node in the tree is checked for the
// candidate fields, nodes whose JSON mentions the filter are preferred, and
// otherwise the first numeric hit anywhere wins. That can pick an unrelated
// number from a deeply nested object; callers must not depend on it for
// correctness. Returns nil when nothing numeric is found.
func ExtractFallback(payload parsers.Value, filter string) *float64 {
	filter = normalizeFilter(filter)

	var first *float64
	var preferred *float64
	parsers.Walk(payload, func(node parsers.Value) bool {
		if !node.IsObject() {
			return true
		}
		amount, ok := parsers.FirstAmount(node, fallbackAmountFields...)
		if !ok {
			return true
		}
		if filter != "" && strings.Contains(strings.ToLower(node.JSON()), filter) {
			preferred = &amount
			return false
		}
		if first == nil {
			first = &amount
		}
		return true
	})

	if preferred != nil {
		return preferred
	}
	return first
}
