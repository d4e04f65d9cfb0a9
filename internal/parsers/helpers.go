package parsers

import (
	"math"
	"net/http"
	"strconv"
	"strings"
)

var amountNoise = strings.NewReplacer(
	"$", "",
	"€", "",
	"£", "",
	"¥", "",
	" ", "",
	"\u00a0", "",
)

// ParseFloat parses a money-ish string such as "42", " $1,204.50 ", "€3" or
// "12,50". Currency symbols are ignored. A single comma followed by one or two
// digits is a decimal separator; any other comma groups thousands.
func ParseFloat(val string) *float64 {
	val = normalizeSeparators(amountNoise.Replace(strings.TrimSpace(val)))
	if val == "" {
		return nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func normalizeSeparators(val string) string {
	if strings.Count(val, ",") == 1 && !strings.Contains(val, ".") {
		_, frac, _ := strings.Cut(val, ",")
		if n := len(frac); n >= 1 && n <= 2 {
			return strings.Replace(val, ",", ".", 1)
		}
	}
	return strings.ReplaceAll(val, ",", "")
}

// Amount coerces a JSON number or numeric string into a float.
func Amount(v Value) (float64, bool) {
	switch v.Kind() {
	case KindNumber:
		n, _ := v.Number()
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case KindString:
		s, _ := v.Text()
		if f := ParseFloat(s); f != nil {
			return *f, true
		}
	}
	return 0, false
}

// FirstAmount returns the first coercible amount among keys, tried in order.
func FirstAmount(obj Value, keys ...string) (float64, bool) {
	for _, key := range keys {
		f, ok := obj.Field(key)
		if !ok {
			continue
		}
		if n, ok := Amount(f); ok {
			return n, true
		}
	}
	return 0, false
}

func RedactHeaders(headers http.Header, sensitiveKeys ...string) map[string]string {
	sensitive := map[string]bool{
		"authorization": true,
		"x-api-key":     true,
		"cookie":        true,
	}
	for _, k := range sensitiveKeys {
		sensitive[strings.ToLower(k)] = true
	}

	out := make(map[string]string)
	for k, vals := range headers {
		key := strings.ToLower(k)
		val := strings.Join(vals, ", ")
		if sensitive[key] {
			val = RedactToken(val)
		}
		out[k] = val
	}
	return out
}

// RedactToken keeps the first and last four characters of long secrets.
func RedactToken(val string) string {
	if len(val) > 8 {
		return val[:4] + "..." + val[len(val)-4:]
	}
	return "****"
}
