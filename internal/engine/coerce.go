package engine

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/datatool/internal/table"
)

// toFloat converts a request scalar to a number.
// Numeric strings are accepted; booleans are not.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := table.ParseNumber(n)
		return f, err == nil
	default:
		return 0, false
	}
}

// toText converts a request scalar to its string form.
func toText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

// toDate converts a request scalar to a calendar day.
func toDate(v any) (table.Date, error) {
	s, ok := v.(string)
	if !ok {
		return table.Date{}, fmt.Errorf("date must be a string, got %v", v)
	}
	t, err := table.ParseDate(s)
	if err != nil {
		return table.Date{}, err
	}
	return table.NewDate(t), nil
}
