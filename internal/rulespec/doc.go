// Package rulespec compiles CUE rule files into queryir.Rules.
//
// A rule file declares field-specific matching behaviour so that new special
// cases are added as data, not code:
//
//	columns: role: {
//		match: "variants"
//		variants: ["{value}", "{value} manager", "{value} lead"]
//	}
//	aliases: hired_after: {column: "join_date", op: "after"}
//
// Files are unified with an embedded #Rules schema before compilation, so
// type errors (an unknown match strategy, a misspelt operator) are reported
// with their CUE source position.
//
// By default the built-in rules (queryir.DefaultRules) are kept and the
// file's entries override them key by key. Set inherit_defaults: false to
// start from an empty rule set.
package rulespec
