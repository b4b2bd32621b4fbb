package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/datatool/internal/engine"
	"github.com/roach88/datatool/internal/loader"
	"github.com/roach88/datatool/internal/queryir"
	"github.com/roach88/datatool/internal/rulespec"
	"github.com/roach88/datatool/internal/table"
)

// Harness executes scenario steps against one table.
type Harness struct {
	table  *table.Table
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// An error is returned only when the scenario cannot be set up (data or
// rules fail to load). Unmet expectations are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tbl, err := loadData(ctx, scenario, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	rules := queryir.DefaultRules()
	if scenario.Rules != "" {
		rules, err = rulespec.LoadFile(scenario.Rules)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}
	}

	h := &Harness{
		table: tbl,
		engine: engine.New(engine.Options{
			Rules:                rules,
			InclusiveAfterBefore: scenario.InclusiveAfterBefore,
			Logger:               logger,
		}),
		logger: logger,
	}

	result := NewResult()
	for _, step := range scenario.Steps {
		got, err := h.execute(step)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", step.Name, err)
		}
		result.Steps = append(result.Steps, got)
		for _, msg := range checkStep(step, got) {
			result.AddError(msg)
		}
	}
	return result, nil
}

func loadData(ctx context.Context, s *Scenario, logger *slog.Logger) (*table.Table, error) {
	if s.CSV != "" {
		return loader.ReadCSV(strings.NewReader(s.CSV), s.Name+".csv")
	}
	return loader.Load(ctx, s.Data, loader.Options{Table: s.Table, Logger: logger})
}

// execute runs one step. The query is round-tripped through JSON so it
// takes exactly the path of an HTTP request body.
func (h *Harness) execute(step Step) (StepResult, error) {
	got := StepResult{Name: step.Name, Rows: []table.Record{}}

	body, err := json.Marshal(step.Query)
	if err != nil {
		return got, fmt.Errorf("encoding query: %w", err)
	}

	q, err := queryir.NormalizeJSON(body)
	if err != nil {
		var reqErr *queryir.RequestError
		if errors.As(err, &reqErr) {
			got.Error = "INVALID_REQUEST"
			return got, nil
		}
		return got, err
	}

	res, err := h.engine.Evaluate(h.table, q)
	if err != nil {
		code := engine.CodeOf(err)
		if code == "" {
			return got, err
		}
		got.Error = string(code)
		return got, nil
	}

	got.TotalCount = res.TotalCount
	got.Rows = res.Records()
	for _, w := range res.Warnings {
		got.Warnings = append(got.Warnings, string(w.Code))
	}
	h.logger.Debug("step executed", "step", step.Name, "total_count", res.TotalCount)
	return got, nil
}
