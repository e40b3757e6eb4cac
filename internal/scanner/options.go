package scanner

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// BoolOption reads a boolean task option, falling back to def when the key is
// missing or holds something that is not a boolean.
func BoolOption(t Task, key string, def bool) bool {
	v, ok := t.Option(key)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// IntOption reads an integer task option.
func IntOption(t Task, key string, def int) int {
	v, ok := t.Option(key)
	if !ok {
		return def
	}
	f, ok := Number(v)
	if !ok {
		return def
	}
	return int(f)
}

// FloatOption reads a numeric task option.
func FloatOption(t Task, key string, def float64) float64 {
	v, ok := t.Option(key)
	if !ok {
		return def
	}
	f, ok := Number(v)
	if !ok {
		return def
	}
	return f
}

// SecondsOption reads a numeric task option holding a number of seconds,
// fractions included. Missing, non-numeric or non-positive values give zero.
func SecondsOption(t Task, key string) time.Duration {
	f := FloatOption(t, key, 0)
	if f <= 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

// Number converts the numeric shapes a summary or option value can take
// (native Go integers and floats, or json.Number after decoding) to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
