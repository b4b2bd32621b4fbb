package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/datatool/internal/table"
)

// AssertionError describes one unmet expectation.
type AssertionError struct {
	Step     string // step name
	Check    string // expectation key, e.g. "total_count"
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "step %q: %s\n", e.Step, e.Check)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// checkStep evaluates a step's expectations and returns one message per
// failure.
func checkStep(step Step, got StepResult) []string {
	var errs []string
	fail := func(check, expected, actual string) {
		errs = append(errs, (&AssertionError{
			Step:     step.Name,
			Check:    check,
			Expected: expected,
			Actual:   actual,
		}).Error())
	}
	e := step.Expect

	if e.Error != "" || got.Error != "" {
		if e.Error != got.Error {
			fail("error", orNone(e.Error), orNone(got.Error))
		}
		return errs
	}

	if e.TotalCount != nil && *e.TotalCount != got.TotalCount {
		fail("total_count", fmt.Sprint(*e.TotalCount), fmt.Sprint(got.TotalCount))
	}
	if e.Count != nil && *e.Count != len(got.Rows) {
		fail("count", fmt.Sprint(*e.Count), fmt.Sprint(len(got.Rows)))
	}

	if e.Column != "" {
		actual, err := columnValues(got.Rows, e.Column)
		if err != nil {
			fail("values", fmt.Sprint(e.Values), err.Error())
		} else if !sameValues(e.Values, actual) {
			fail("values", fmt.Sprintf("%s = %v", e.Column, e.Values), fmt.Sprintf("%s = %v", e.Column, actual))
		}
	}

	for _, want := range e.Contains {
		if !slices.ContainsFunc(got.Rows, func(r table.Record) bool { return matchRecord(r, want) }) {
			fail("contains", fmt.Sprint(want), fmt.Sprintf("no matching row among %d", len(got.Rows)))
		}
	}

	if e.Warnings != nil && !slices.Equal(e.Warnings, got.Warnings) {
		fail("warnings", fmt.Sprint(e.Warnings), fmt.Sprint(got.Warnings))
	}
	return errs
}

func orNone(code string) string {
	if code == "" {
		return "no error"
	}
	return code
}

func columnValues(rows []table.Record, column string) ([]any, error) {
	out := make([]any, len(rows))
	for i, r := range rows {
		v, ok := r.Get(column)
		if !ok {
			return nil, fmt.Errorf("column %q not in result", column)
		}
		out[i] = v
	}
	return out, nil
}

func sameValues(want, got []any) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if !valuesEqual(want[i], got[i]) {
			return false
		}
	}
	return true
}

// matchRecord reports whether r has every field of want (subset match).
func matchRecord(r table.Record, want map[string]any) bool {
	for k, wv := range want {
		gv, ok := r.Get(k)
		if !ok || !valuesEqual(wv, gv) {
			return false
		}
	}
	return true
}

// valuesEqual compares a YAML-decoded expectation with a rendered cell.
// Numbers compare numerically whatever their Go type; everything else
// compares by its text.
func valuesEqual(want, got any) bool {
	if want == nil || got == nil {
		return want == nil && got == nil
	}
	wf, wok := asFloat(want)
	gf, gok := asFloat(got)
	if wok && gok {
		return math.Abs(wf-gf) < 1e-9
	}
	if wok != gok {
		return false
	}
	return fmt.Sprint(want) == fmt.Sprint(got)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
