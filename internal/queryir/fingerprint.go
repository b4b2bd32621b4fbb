package queryir

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// DomainQuery prefixes fingerprint input. The version suffix allows the
// encoding to change without colliding with older fingerprints.
const DomainQuery = "datatool/query/v1"

// Fingerprint identifies a normalized query by content. Two request bodies
// that normalize to the same Query (whatever shape they used, in any key
// order) share a fingerprint, so log lines for equivalent queries group
// together.
//
// Format: hex(SHA256(DomainQuery + 0x00 + CanonicalJSON(q)))
func Fingerprint(q Query) (string, error) {
	data, err := CanonicalJSON(q)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(DomainQuery))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CanonicalJSON encodes q deterministically: object keys in UTF-16 code
// unit order, NFC strings without HTML escaping, numbers in shortest form
// and set members sorted. Empty clauses are omitted, so the zero Query
// encodes as {}.
func CanonicalJSON(q Query) ([]byte, error) {
	obj := map[string]any{}

	if len(q.Filters) > 0 {
		filters := make(map[string]any, len(q.Filters))
		for name, fv := range q.Filters {
			filters[name] = map[string]any{"set": fv.Set, "values": fv.Values}
		}
		obj["filters"] = filters
	}
	if len(q.Ranges) > 0 {
		ranges := make(map[string]any, len(q.Ranges))
		for name, spec := range q.Ranges {
			bounds := make(map[string]any, len(spec))
			for op, bound := range spec {
				bounds[string(op)] = bound
			}
			ranges[name] = bounds
		}
		obj["ranges"] = ranges
	}
	if q.Sort != nil {
		obj["sort"] = map[string]any{"field": q.Sort.Field, "order": string(q.Sort.Order)}
	}
	if q.Limit > 0 {
		obj["limit"] = q.Limit
	}
	if q.Offset > 0 {
		obj["offset"] = q.Offset
	}
	if q.Search != "" {
		obj["search"] = q.Search
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, obj, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeCanonical appends v. Set members (the "values" of a set filter) are
// order-insensitive and written sorted when unordered is true.
func writeCanonical(buf *bytes.Buffer, v any, unordered bool) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case string:
		return writeCanonicalString(buf, val)
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case float32:
		return writeCanonicalFloat(buf, float64(val))
	case float64:
		return writeCanonicalFloat(buf, val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return fmt.Errorf("number %q: %w", val, err)
		}
		return writeCanonicalFloat(buf, f)
	case []any:
		return writeCanonicalArray(buf, val, unordered)
	case map[string]any:
		return writeCanonicalObject(buf, val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func writeCanonicalFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite number %v", f)
	}
	if f == 0 {
		f = 0 // folds -0
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	return nil
}

// writeCanonicalString NFC-normalizes s. Only quote, backslash and control
// characters are escaped.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))
	// encoding/json escapes U+2028 and U+2029 for JavaScript; canonical form
	// keeps them literal. A preceding odd run of backslashes means the
	// sequence is escaped text, not an escape.
	for i := 0; i < len(out); i++ {
		if out[i] == '\\' && i+5 < len(out) && bytes.Equal(out[i+1:i+5], []byte("u202")) &&
			(out[i+5] == '8' || out[i+5] == '9') {
			if out[i+5] == '8' {
				buf.WriteString("\u2028")
			} else {
				buf.WriteString("\u2029")
			}
			i += 5
			continue
		}
		if out[i] == '\\' && i+1 < len(out) {
			buf.WriteByte(out[i])
			buf.WriteByte(out[i+1])
			i++
			continue
		}
		buf.WriteByte(out[i])
	}
	return nil
}

func writeCanonicalArray(buf *bytes.Buffer, arr []any, unordered bool) error {
	elems := make([][]byte, len(arr))
	for i, elem := range arr {
		var eb bytes.Buffer
		if err := writeCanonical(&eb, elem, false); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
		elems[i] = eb.Bytes()
	}
	if unordered {
		sort.Slice(elems, func(i, j int) bool { return bytes.Compare(elems[i], elems[j]) < 0 })
	}

	buf.WriteByte('[')
	for i, eb := range elems {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(eb)
	}
	buf.WriteByte(']')
	return nil
}

func writeCanonicalObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessUTF16(keys[i], keys[j]) })

	// A set filter is {"set": true, "values": [...]}.
	set, _ := obj["set"].(bool)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := writeCanonical(buf, obj[k], set && k == "values"); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// lessUTF16 orders strings by UTF-16 code units rather than UTF-8 bytes.
func lessUTF16(a, b string) bool {
	ua := utf16.Encode([]rune(norm.NFC.String(a)))
	ub := utf16.Encode([]rune(norm.NFC.String(b)))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}
