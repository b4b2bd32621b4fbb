package engine

import (
	"io"
	"log/slog"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/text/cases"

	"github.com/roach88/datatool/internal/queryir"
	"github.com/roach88/datatool/internal/table"
)

// Options configures an Engine.
type Options struct {
	// Rules holds field-specific matching behaviour.
	// The zero value means queryir.DefaultRules().
	Rules queryir.Rules

	// InclusiveAfterBefore treats after/before as >=/<= instead of the
	// default strict >/<.
	InclusiveAfterBefore bool

	// Logger receives warnings for skipped operators. Nil discards them.
	Logger *slog.Logger
}

// Engine evaluates queries. It is safe for concurrent use; all per-query
// state lives in the evaluation call.
type Engine struct {
	rules     queryir.Rules
	inclusive bool
	logger    *slog.Logger
}

// New creates an Engine with the given options.
func New(opts Options) *Engine {
	rules := opts.Rules
	if rules.Columns == nil && rules.Aliases == nil {
		rules = queryir.DefaultRules()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		rules:     rules,
		inclusive: opts.InclusiveAfterBefore,
		logger:    logger,
	}
}

// Evaluate runs q against tbl with default options.
func Evaluate(tbl *table.Table, q queryir.Query) (*Result, error) {
	return New(Options{}).Evaluate(tbl, q)
}

// Result holds the rows selected by a query.
type Result struct {
	// Rows is the requested page, in result order.
	Rows []table.Row

	// TotalCount is the number of rows matching filters, ranges and search
	// before pagination.
	TotalCount int

	// Warnings lists recoverable problems (skipped operators etc.).
	Warnings []Warning

	// Note carries the table's loader diagnostic, if any.
	Note string

	tbl *table.Table
}

// Columns returns the columns of the queried table.
func (r *Result) Columns() []table.Column {
	return r.tbl.Columns()
}

// Records renders the page for output: column order is preserved and date
// cells become YYYY-MM-DD strings.
func (r *Result) Records() []table.Record {
	out := make([]table.Record, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = r.tbl.Record(row)
	}
	return out
}

// Validate reports whether q is acceptable for tbl without evaluating it.
// Aliases are rewritten first, exactly as Evaluate does.
func (e *Engine) Validate(tbl *table.Table, q queryir.Query) error {
	return validate(tbl, e.rules.Rewrite(q))
}

// Evaluate filters, sorts and paginates tbl according to q.
//
// Returns a QueryError when q references unknown columns or uses an invalid
// sort direction or range operator. Against a table with no rows the result
// is always empty and no error is returned.
func (e *Engine) Evaluate(tbl *table.Table, q queryir.Query) (*Result, error) {
	if tbl == nil {
		tbl = table.Empty()
	}
	res := &Result{Rows: []table.Row{}, Note: tbl.Note(), tbl: tbl}

	if tbl.Len() == 0 {
		return res, nil
	}

	q = e.rules.Rewrite(q)
	if err := validate(tbl, q); err != nil {
		return nil, err
	}

	ev := &evaluation{
		engine: e,
		tbl:    tbl,
		fold:   cases.Fold(),
	}

	candidates := roaring.New()
	candidates.AddRange(0, uint64(tbl.Len()))

	candidates = ev.applyFilters(candidates, q)
	candidates = ev.applyRanges(candidates, q)
	candidates = ev.applySearch(candidates, q.Search)

	rows := ev.materialize(candidates)
	ev.sortRows(rows, q.Sort)

	res.TotalCount = len(rows)
	res.Rows = paginate(rows, q.Offset, q.Limit)
	res.Warnings = ev.warnings
	return res, nil
}

// evaluation holds per-call state. It is never shared between goroutines;
// the Caser in particular is stateful.
type evaluation struct {
	engine   *Engine
	tbl      *table.Table
	fold     cases.Caser
	warnings []Warning
}

// predicate tests a single cell.
type predicate func(table.Value) bool

// columnCheck binds a predicate to a column position.
type columnCheck struct {
	col   int
	match predicate
}

// narrow keeps the candidate rows for which every check passes.
// One pass over the candidates regardless of the number of checks.
func (ev *evaluation) narrow(candidates *roaring.Bitmap, checks []columnCheck) *roaring.Bitmap {
	if len(checks) == 0 {
		return candidates
	}
	out := roaring.New()
	it := candidates.Iterator()
	for it.HasNext() {
		id := it.Next()
		row := ev.tbl.Row(int(id))
		keep := true
		for _, c := range checks {
			if !c.match(row[c.col]) {
				keep = false
				break
			}
		}
		if keep {
			out.Add(id)
		}
	}
	return out
}

// materialize returns copies of the candidate rows in load order. The table
// is shared by concurrent queries and is never handed out for writing.
func (ev *evaluation) materialize(candidates *roaring.Bitmap) []table.Row {
	rows := make([]table.Row, 0, candidates.GetCardinality())
	it := candidates.Iterator()
	for it.HasNext() {
		rows = append(rows, slices.Clone(ev.tbl.Row(int(it.Next()))))
	}
	return rows
}

// warn records a warning and logs it.
func (ev *evaluation) warn(w Warning) {
	ev.warnings = append(ev.warnings, w)
	ev.engine.logger.Warn(w.Message,
		"code", string(w.Code),
		"column", w.Column,
		"op", w.Op,
	)
}
