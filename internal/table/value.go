package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical rendering for date cells.
const DateLayout = "2006-01-02"

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"2006-01",
}

// ColumnType is the inferred logical type of a column.
type ColumnType string

const (
	TypeString ColumnType = "string"
	TypeNumber ColumnType = "number"
	TypeDate   ColumnType = "date"
)

// Valid reports whether t is one of the known column types.
func (t ColumnType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeDate:
		return true
	}
	return false
}

// Value is a sealed interface for typed cell values.
// Only Null, String, Number and Date implement it.
type Value interface {
	cellValue() // Sealed - only these types implement it
}

// Null is a missing or empty cell.
type Null struct{}

func (Null) cellValue() {}

// String is a text cell. The raw value is kept; folding happens at
// comparison time.
type String string

func (String) cellValue() {}

// Number is a numeric cell.
type Number float64

func (Number) cellValue() {}

// Date is a calendar-day cell, normalised to midnight UTC.
type Date time.Time

func (Date) cellValue() {}

// Time returns the underlying time.Time.
func (d Date) Time() time.Time {
	return time.Time(d)
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return time.Time(d).Format(DateLayout)
}

// NewDate builds a Date from t, dropping the wall-clock part.
func NewDate(t time.Time) Date {
	y, m, day := t.Date()
	return Date(time.Date(y, m, day, 0, 0, 0, 0, time.UTC))
}

// IsNull reports whether v is a Null (or a nil interface).
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// ParseDate parses s using the accepted date layouts.
// Surrounding whitespace is ignored. A value with a UTC offset keeps it, so
// NewDate takes the calendar day as written.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// ParseNumber parses s as a finite float64.
func ParseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return f, nil
}

// ParseValue converts raw cell text into a Value of the given column type.
// Empty text becomes Null. Text that does not parse as the column type
// also becomes Null so a single bad cell cannot poison the column.
func ParseValue(raw string, typ ColumnType) Value {
	if strings.TrimSpace(raw) == "" {
		return Null{}
	}
	switch typ {
	case TypeNumber:
		f, err := ParseNumber(raw)
		if err != nil {
			return Null{}
		}
		return Number(f)
	case TypeDate:
		t, err := ParseDate(raw)
		if err != nil {
			return Null{}
		}
		return NewDate(t)
	default:
		return String(raw)
	}
}

// Compare orders two non-null values of the same kind.
// Returns -1, 0 or 1. Mixed kinds fall back to comparing their text form
// so the ordering stays total.
func Compare(a, b Value) int {
	switch av := a.(type) {
	case Number:
		if bv, ok := b.(Number); ok {
			return compareFloat(float64(av), float64(bv))
		}
	case Date:
		if bv, ok := b.(Date); ok {
			return av.Time().Compare(bv.Time())
		}
	case String:
		if bv, ok := b.(String); ok {
			return strings.Compare(string(av), string(bv))
		}
	}
	return strings.Compare(Text(a), Text(b))
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Text renders a value as plain text. Null renders as "".
func Text(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Number:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	case Date:
		return val.String()
	default:
		return ""
	}
}

// Render converts a value into its JSON-friendly Go form.
// Dates become YYYY-MM-DD strings, integral numbers become int64 and
// Null becomes nil.
func Render(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Number:
		f := float64(val)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case Date:
		return val.String()
	default:
		return nil
	}
}
