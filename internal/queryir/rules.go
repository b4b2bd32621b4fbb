package queryir

import "strings"

// MatchStrategy selects how a filter value is compared against a string
// cell.
type MatchStrategy string

const (
	// MatchExact is case-insensitive equality.
	MatchExact MatchStrategy = "exact"

	// MatchVariants is case-insensitive substring containment, OR-ed with
	// equality against each variant template.
	MatchVariants MatchStrategy = "variants"
)

// ValuePlaceholder is replaced by the filter value in variant templates.
const ValuePlaceholder = "{value}"

// ColumnRule describes how filters on one column are matched.
type ColumnRule struct {
	Match    MatchStrategy
	Variants []string // templates such as "{value} manager"
}

// Expand returns the variant strings for a filter value.
func (r ColumnRule) Expand(value string) []string {
	out := make([]string, 0, len(r.Variants))
	for _, tmpl := range r.Variants {
		out = append(out, strings.ReplaceAll(tmpl, ValuePlaceholder, value))
	}
	return out
}

// Alias rewrites a convenience filter key into a range operator on a real
// column, e.g. join_date_after → join_date.after.
type Alias struct {
	Column string
	Op     RangeOp
}

// Rules is the declarative table of field-specific behaviour.
//
// New special cases are added as entries, not as code.
type Rules struct {
	Columns map[string]ColumnRule
	Aliases map[string]Alias
}

// DefaultRules returns the built-in rule set:
//   - role matches partially, plus the manager/executive/specialist variants
//   - join_date_after / join_date_before become join_date ranges
func DefaultRules() Rules {
	return Rules{
		Columns: map[string]ColumnRule{
			"role": {
				Match: MatchVariants,
				Variants: []string{
					"{value}",
					"{value} manager",
					"{value} executive",
					"{value} specialist",
				},
			},
		},
		Aliases: map[string]Alias{
			"join_date_after":  {Column: "join_date", Op: OpAfter},
			"join_date_before": {Column: "join_date", Op: OpBefore},
		},
	}
}

// ColumnRule returns the rule for a column, defaulting to MatchExact.
func (r Rules) ColumnRule(column string) ColumnRule {
	if rule, ok := r.Columns[column]; ok {
		return rule
	}
	return ColumnRule{Match: MatchExact}
}

// Rewrite moves alias keys out of the filter map and into ranges.
//
// The input query is not modified. When a range already sets the same
// operator on the target column, the explicit range wins and the alias is
// dropped. A set-valued alias uses its first member.
func (r Rules) Rewrite(q Query) Query {
	if len(r.Aliases) == 0 || len(q.Filters) == 0 {
		return q
	}

	var hit bool
	for key := range q.Filters {
		if _, ok := r.Aliases[key]; ok {
			hit = true
			break
		}
	}
	if !hit {
		return q
	}

	out := q.Clone()
	for _, key := range q.SortedFilterKeys() {
		alias, ok := r.Aliases[key]
		if !ok {
			continue
		}
		fv := out.Filters[key]
		delete(out.Filters, key)
		if len(fv.Values) == 0 || fv.Values[0] == nil {
			continue
		}

		if out.Ranges == nil {
			out.Ranges = make(map[string]RangeSpec)
		}
		spec := out.Ranges[alias.Column]
		if spec == nil {
			spec = make(RangeSpec)
			out.Ranges[alias.Column] = spec
		}
		if _, explicit := spec[alias.Op]; explicit {
			continue
		}
		spec[alias.Op] = fv.Values[0]
	}
	return out
}
