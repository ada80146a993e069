package forms

import (
	"fmt"
	"strconv"
	"strings"
)

// Values maps field names to their current value: a string, an int or a
// float64 depending on the field kind.
type Values map[string]any

// Clone returns a shallow copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// String returns the value formatted as text.
func (v Values) String(name string) string {
	switch val := v[name].(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []string:
		return strings.Join(val, ",")
	default:
		return fmt.Sprint(val)
	}
}

// Int returns the value as an int, or 0 when it is not numeric.
func (v Values) Int(name string) int {
	switch val := v[name].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	default:
		return 0
	}
}

// Float returns the value as a float64, or 0 when it is not numeric.
func (v Values) Float(name string) float64 {
	switch val := v[name].(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case float64:
		return val
	default:
		return 0
	}
}

// Truthy reports whether the named value is non-empty.
func (v Values) Truthy(name string) bool {
	return truthy(v[name])
}

func truthy(value any) bool {
	switch val := value.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	case bool:
		return val
	case []string:
		return len(val) > 0
	case []any:
		return len(val) > 0
	default:
		return true
	}
}
