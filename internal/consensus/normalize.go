// Package consensus compares two independent field extractions and gates
// catalog construction on unanimous agreement.
package consensus

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Normalize returns the comparison key for a selected value: its string form,
// lowercased. Nil becomes the empty string. Numbers keep their literal form
// ("12.50" and "12.5" differ), lists and objects render as compact JSON.
func Normalize(v any) string {
	return strings.ToLower(stringify(v))
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case fmt.Stringer:
		return x.String()
	case []any, map[string]any, []string:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}
