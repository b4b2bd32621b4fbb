package queryir

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Reserved top-level request keys. Any other top-level key is treated as a
// filter (legacy shape).
const (
	KeyFilters           = "filters"
	KeyAdditionalFilters = "additional_filters"
	KeyRanges            = "ranges"
	KeySort              = "sort"
	KeySortBy            = "sort_by"
	KeySortOrder         = "sort_order"
	KeyLimit             = "limit"
	KeyOffset            = "offset"
	KeySearch            = "search"
)

var reservedKeys = map[string]bool{
	KeyFilters:           true,
	KeyAdditionalFilters: true,
	KeyRanges:            true,
	KeySort:              true,
	KeySortBy:            true,
	KeySortOrder:         true,
	KeyLimit:             true,
	KeyOffset:            true,
	KeySearch:            true,
}

// Sort prefix tokens accepted on bare sort strings.
const (
	AscPrefix  = "+"
	DescPrefix = "-"
)

// RequestError reports a request body that cannot be normalized.
type RequestError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid request field %q: %s", e.Field, e.Message)
	}
	return "invalid request: " + e.Message
}

func requestErr(field, format string, args ...any) *RequestError {
	return &RequestError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NormalizeJSON decodes a JSON request body and normalizes it.
// An empty body or a JSON null is the empty query.
func NormalizeJSON(data []byte) (Query, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return Query{}, nil
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return Query{}, &RequestError{Message: fmt.Sprintf("body is not a JSON object: %v", err)}
	}
	return Normalize(raw)
}

// Normalize folds every accepted request shape into one canonical Query.
//
// Precedence when shapes overlap:
//   - keys under "filters" win over the same key at the top level or in
//     "additional_filters"
//   - "sort" wins over "sort_by" / "sort_order"
//
// Normalize never consults table columns; unknown names are reported by the
// engine.
func Normalize(raw map[string]any) (Query, error) {
	var q Query

	filters := make(map[string]FilterValue)

	// Lowest precedence first so later sources overwrite.
	if extra, ok := raw[KeyAdditionalFilters]; ok && extra != nil {
		obj, ok := extra.(map[string]any)
		if !ok {
			return Query{}, requestErr(KeyAdditionalFilters, "must be an object")
		}
		if err := collectFilters(filters, obj, KeyAdditionalFilters); err != nil {
			return Query{}, err
		}
	}

	topLevel := make(map[string]any)
	for key, val := range raw {
		if !reservedKeys[key] {
			topLevel[key] = val
		}
	}
	if err := collectFilters(filters, topLevel, ""); err != nil {
		return Query{}, err
	}

	if nested, ok := raw[KeyFilters]; ok && nested != nil {
		obj, ok := nested.(map[string]any)
		if !ok {
			return Query{}, requestErr(KeyFilters, "must be an object")
		}
		if err := collectFilters(filters, obj, KeyFilters); err != nil {
			return Query{}, err
		}
	}
	if len(filters) > 0 {
		q.Filters = filters
	}

	ranges, err := normalizeRanges(raw[KeyRanges])
	if err != nil {
		return Query{}, err
	}
	q.Ranges = ranges

	sort, err := normalizeSort(raw)
	if err != nil {
		return Query{}, err
	}
	q.Sort = sort

	if q.Limit, err = normalizeInt(raw, KeyLimit); err != nil {
		return Query{}, err
	}
	if q.Limit < 0 {
		q.Limit = 0
	}
	if q.Offset, err = normalizeInt(raw, KeyOffset); err != nil {
		return Query{}, err
	}
	if q.Offset < 0 {
		return Query{}, requestErr(KeyOffset, "must be non-negative, got %d", q.Offset)
	}

	if s, ok := raw[KeySearch]; ok && s != nil {
		str, ok := s.(string)
		if !ok {
			return Query{}, requestErr(KeySearch, "must be a string")
		}
		q.Search = strings.TrimSpace(str)
	}

	return q, nil
}

// collectFilters converts raw filter entries into FilterValues.
// Null entries are ignored.
func collectFilters(dst map[string]FilterValue, src map[string]any, parent string) error {
	for key, val := range src {
		field := key
		if parent != "" {
			field = parent + "." + key
		}
		switch v := val.(type) {
		case nil:
			continue
		case []any:
			members := make([]any, 0, len(v))
			for i, m := range v {
				if !isScalar(m) {
					return requestErr(field, "set member %d must be a scalar", i)
				}
				if m != nil {
					members = append(members, m)
				}
			}
			dst[key] = Set(members...)
		default:
			if !isScalar(v) {
				return requestErr(field, "must be a scalar or an array of scalars")
			}
			dst[key] = Scalar(v)
		}
	}
	return nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, float64, float32, int, int64, json.Number:
		return true
	}
	return false
}

func normalizeRanges(raw any) (map[string]RangeSpec, error) {
	if raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, requestErr(KeyRanges, "must be an object")
	}
	if len(obj) == 0 {
		return nil, nil
	}

	out := make(map[string]RangeSpec, len(obj))
	for column, specRaw := range obj {
		if specRaw == nil {
			continue
		}
		specObj, ok := specRaw.(map[string]any)
		if !ok {
			return nil, requestErr(KeyRanges+"."+column, "must be an object of operator to bound")
		}
		spec := make(RangeSpec, len(specObj))
		for op, bound := range specObj {
			if bound == nil {
				continue
			}
			if !isScalar(bound) {
				return nil, requestErr(KeyRanges+"."+column+"."+op, "bound must be a scalar")
			}
			spec[RangeOp(strings.ToLower(strings.TrimSpace(op)))] = bound
		}
		if len(spec) > 0 {
			out[column] = spec
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func normalizeSort(raw map[string]any) (*Sort, error) {
	if s, ok := raw[KeySort]; ok && s != nil {
		switch v := s.(type) {
		case string:
			return parseSortString(v), nil
		case map[string]any:
			field, _ := v["field"].(string)
			if field == "" {
				return nil, requestErr(KeySort+".field", "must be a non-empty string")
			}
			order := Asc
			if o, ok := v["order"]; ok && o != nil {
				str, ok := o.(string)
				if !ok {
					return nil, requestErr(KeySort+".order", "must be a string")
				}
				order = SortOrder(strings.ToLower(strings.TrimSpace(str)))
			}
			return &Sort{Field: field, Order: order}, nil
		default:
			return nil, requestErr(KeySort, "must be a column name or {field, order}")
		}
	}

	by, ok := raw[KeySortBy]
	if !ok || by == nil {
		return nil, nil
	}
	field, ok := by.(string)
	if !ok || strings.TrimSpace(field) == "" {
		return nil, requestErr(KeySortBy, "must be a non-empty string")
	}
	order := Asc
	if o, ok := raw[KeySortOrder]; ok && o != nil {
		str, ok := o.(string)
		if !ok {
			return nil, requestErr(KeySortOrder, "must be a string")
		}
		order = SortOrder(strings.ToLower(strings.TrimSpace(str)))
	}
	return &Sort{Field: strings.TrimSpace(field), Order: order}, nil
}

// parseSortString handles "column", "+column" and "-column".
func parseSortString(s string) *Sort {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	switch {
	case strings.HasPrefix(s, DescPrefix):
		return &Sort{Field: strings.TrimPrefix(s, DescPrefix), Order: Desc}
	case strings.HasPrefix(s, AscPrefix):
		return &Sort{Field: strings.TrimPrefix(s, AscPrefix), Order: Asc}
	default:
		return &Sort{Field: s, Order: Asc}
	}
}

// normalizeInt reads an optional integer field given as a JSON number or a
// numeric string.
func normalizeInt(raw map[string]any, key string) (int, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return 0, nil
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, requestErr(key, "must be an integer")
		}
		f = parsed
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, requestErr(key, "must be an integer, got %q", n)
		}
		return parsed, nil
	default:
		return 0, requestErr(key, "must be an integer")
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, requestErr(key, "must be an integer, got %v", f)
	}
	// Out-of-range values saturate; an offset past every row is an empty page.
	switch {
	case f >= math.MaxInt:
		return math.MaxInt, nil
	case f <= math.MinInt:
		return math.MinInt, nil
	}
	return int(f), nil
}
