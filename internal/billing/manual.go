package billing

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrManualParse is returned when pasted text does not carry two dollar amounts.
var ErrManualParse = errors.New("expected two dollar amounts, e.g. \"$95.86 spent $150.00 budget\"")

// ErrManualGrouped is returned for amounts written with thousands separators,
// which ParseManual would read as decimals.
var ErrManualGrouped = errors.New("write amounts without thousands separators, e.g. \"$1234.56\" not \"$1,234.56\"")

var (
	dollarAmount  = regexp.MustCompile(`\$\s*(\d+(?:[.,]\d+)?)`)
	groupedAmount = regexp.MustCompile(`\$\s*\d{1,3}(?:,\d{3})+(?:\.\d+)?\b`)
)

// ManualAmounts are figures the operator copied from the billing page.
type ManualAmounts struct {
	Spent  float64 `json:"spent"`
	Budget float64 `json:"budget"`
}

// ParseManual reads "spent" and "budget" from free text. The first dollar
// amount is spent, the second is the budget; "," is accepted as the decimal
// separator.
func ParseManual(text string) (ManualAmounts, bool) {
	matches := dollarAmount.FindAllStringSubmatch(text, -1)
	if len(matches) < 2 {
		return ManualAmounts{}, false
	}
	spent, ok := parseManualAmount(matches[0][1])
	if !ok {
		return ManualAmounts{}, false
	}
	budget, ok := parseManualAmount(matches[1][1])
	if !ok {
		return ManualAmounts{}, false
	}
	return ManualAmounts{Spent: spent, Budget: budget}, true
}

// ParseManualInput is ParseManual for operator input: it refuses amounts
// grouped with thousands separators instead of misreading them.
func ParseManualInput(text string) (ManualAmounts, error) {
	if groupedAmount.MatchString(text) {
		return ManualAmounts{}, ErrManualGrouped
	}
	amounts, ok := ParseManual(text)
	if !ok {
		return ManualAmounts{}, ErrManualParse
	}
	return amounts, nil
}

func parseManualAmount(raw string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
