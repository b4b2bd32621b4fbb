// Package harness runs YAML query scenarios against the query engine.
//
// A scenario names a data source (a file or inline CSV), optional rule
// file, and a list of steps. Each step sends one request body through the
// same normalization the HTTP server uses and checks the outcome.
//
// # Scenario Format
//
//	name: role_partial_match
//	description: "role filters match titles containing the value"
//	csv: |
//	  id,role
//	  1,Engineering Manager
//	  2,Software Engineer
//	rules: rules.cue          # optional, relative to the scenario file
//	inclusive_after_before: false
//	steps:
//	  - name: managers
//	    query: {filters: {role: manager}, sort: id}
//	    expect:
//	      total_count: 1
//	      column: id
//	      values: [1]
//	  - name: bad column
//	    query: {filters: {salary: 1}}
//	    expect:
//	      error: UNKNOWN_COLUMN
//
// # Expectations
//
//   - total_count: matches before pagination
//   - count: rows on the returned page
//   - column + values: the column's values in returned order
//   - contains: rows that must appear (subset match on the given fields)
//   - warnings: warning codes, in order
//   - error: the query error code; no other expectation may be combined
//
// # Golden Files
//
// RunWithGolden compares the full step output (rows included) against
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
