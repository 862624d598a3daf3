package market

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// SafeFloat is the safe-numeric step: it converts an upstream value to float64
// and reports whether the conversion succeeded. nil, "", non-numeric strings and
// non-finite numbers yield (0, false). It never panics.
func SafeFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(val)
	case float32:
		return finite(float64(val))
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	case *float64:
		if val == nil {
			return 0, false
		}
		return finite(*val)
	case json.Number:
		return parseDecimal(string(val))
	case string:
		return parseDecimal(val)
	case decimal.Decimal:
		return finite(val.InexactFloat64())
	case gjson.Result:
		switch val.Type {
		case gjson.Number:
			return finite(val.Num)
		case gjson.String:
			return parseDecimal(val.Str)
		default:
			return 0, false
		}
	default:
		return 0, false
	}
}

// SafeFloatOr returns SafeFloat(v) or fallback when coercion fails.
func SafeFloatOr(v any, fallback float64) float64 {
	if f, ok := SafeFloat(v); ok {
		return f
	}
	return fallback
}

func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return finite(d.InexactFloat64())
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// isAbsent distinguishes a missing upstream value from an unparsable one.
func isAbsent(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case *float64:
		return val == nil
	case gjson.Result:
		return !val.Exists() || val.Type == gjson.Null
	default:
		return false
	}
}

// PercentChange returns (current/previous - 1) * 100. It fails when either
// value is not numeric or previous is not positive.
func PercentChange(current, previous any) (float64, bool) {
	cur, ok := SafeFloat(current)
	if !ok {
		return 0, false
	}
	prev, ok := SafeFloat(previous)
	if !ok || prev <= 0 {
		return 0, false
	}
	return (cur/prev - 1) * 100, true
}
