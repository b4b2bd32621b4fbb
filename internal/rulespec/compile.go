package rulespec

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/datatool/internal/queryir"
)

//go:embed schema.cue
var schemaCUE string

// CompileRules turns a CUE value into queryir.Rules.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is unified with #Rules first, so defaults are filled in and
// invalid fields are rejected:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`columns: title: match: "variants"`)
//	rules, err := CompileRules(v)
func CompileRules(v cue.Value) (queryir.Rules, error) {
	if err := v.Err(); err != nil {
		return queryir.Rules{}, formatCUEError(err)
	}

	schema := v.Context().CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return queryir.Rules{}, fmt.Errorf("compile rules schema: %w", err)
	}

	v = schema.LookupPath(cue.ParsePath("#Rules")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return queryir.Rules{}, formatCUEError(err)
	}

	rules := queryir.Rules{
		Columns: map[string]queryir.ColumnRule{},
		Aliases: map[string]queryir.Alias{},
	}

	inherit, err := v.LookupPath(cue.ParsePath("inherit_defaults")).Bool()
	if err != nil {
		return queryir.Rules{}, formatCUEError(err)
	}
	if inherit {
		defaults := queryir.DefaultRules()
		for k, r := range defaults.Columns {
			rules.Columns[k] = r
		}
		for k, a := range defaults.Aliases {
			rules.Aliases[k] = a
		}
	}

	if err := parseColumns(v, rules.Columns); err != nil {
		return queryir.Rules{}, err
	}
	if err := parseAliases(v, rules.Aliases); err != nil {
		return queryir.Rules{}, err
	}

	return rules, nil
}

// parseColumns parses the columns struct into dst.
func parseColumns(v cue.Value, dst map[string]queryir.ColumnRule) error {
	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return nil
	}

	iter, err := colsVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Label()
		ruleVal := iter.Value()

		match, err := ruleVal.LookupPath(cue.ParsePath("match")).String()
		if err != nil {
			return formatCUEError(err)
		}
		rule := queryir.ColumnRule{Match: queryir.MatchStrategy(match)}

		variantsVal := ruleVal.LookupPath(cue.ParsePath("variants"))
		if variantsVal.Exists() {
			if rule.Match != queryir.MatchVariants {
				return &CompileError{
					Field:   "columns." + name + ".variants",
					Message: "variants require match: \"variants\"",
					Pos:     variantsVal.Pos(),
				}
			}
			list, err := variantsVal.List()
			if err != nil {
				return formatCUEError(err)
			}
			for list.Next() {
				tmpl, err := list.Value().String()
				if err != nil {
					return formatCUEError(err)
				}
				if !strings.Contains(tmpl, queryir.ValuePlaceholder) {
					return &CompileError{
						Field:   "columns." + name + ".variants",
						Message: fmt.Sprintf("template %q must contain %s", tmpl, queryir.ValuePlaceholder),
						Pos:     list.Value().Pos(),
					}
				}
				rule.Variants = append(rule.Variants, tmpl)
			}
		}

		dst[name] = rule
	}

	return nil
}

// parseAliases parses the aliases struct into dst.
func parseAliases(v cue.Value, dst map[string]queryir.Alias) error {
	aliasesVal := v.LookupPath(cue.ParsePath("aliases"))
	if !aliasesVal.Exists() {
		return nil
	}

	iter, err := aliasesVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}

	for iter.Next() {
		key := iter.Label()
		aliasVal := iter.Value()

		column, err := aliasVal.LookupPath(cue.ParsePath("column")).String()
		if err != nil {
			return formatCUEError(err)
		}
		op, err := aliasVal.LookupPath(cue.ParsePath("op")).String()
		if err != nil {
			return formatCUEError(err)
		}
		if key == column {
			return &CompileError{
				Field:   "aliases." + key,
				Message: "an alias cannot rewrite onto itself",
				Pos:     aliasVal.Pos(),
			}
		}

		dst[key] = queryir.Alias{Column: column, Op: queryir.RangeOp(op)}
	}

	return nil
}
