package rules

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Text coerces a raw request value to its text form. Nil becomes "".
// Floats use the shortest representation that round-trips.
func Text(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// isBlank reports whether text carries no content. Whitespace-only values
// count as blank.
func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
