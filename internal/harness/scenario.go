package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a query conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Data is the path of a CSV or SQLite source. Relative paths are
	// resolved against the scenario file's directory.
	Data string `yaml:"data,omitempty"`

	// Table selects the table inside a SQLite source.
	Table string `yaml:"table,omitempty"`

	// CSV is an inline CSV source, used instead of Data.
	CSV string `yaml:"csv,omitempty"`

	// Rules is an optional CUE rule file replacing the default rules.
	Rules string `yaml:"rules,omitempty"`

	// InclusiveAfterBefore makes after/before behave like gte/lte.
	InclusiveAfterBefore bool `yaml:"inclusive_after_before,omitempty"`

	// Steps are executed in order against the same table.
	Steps []Step `yaml:"steps"`
}

// Step is one request and its expected outcome.
type Step struct {
	Name string `yaml:"name"`

	// Query is the request body, in any shape POST /query accepts.
	Query map[string]any `yaml:"query"`

	Expect Expect `yaml:"expect"`
}

// Expect lists the checks applied to a step. Unset fields are not checked.
type Expect struct {
	TotalCount *int             `yaml:"total_count,omitempty"`
	Count      *int             `yaml:"count,omitempty"`
	Column     string           `yaml:"column,omitempty"`
	Values     []any            `yaml:"values,omitempty"`
	Contains   []map[string]any `yaml:"contains,omitempty"`
	Warnings   []string         `yaml:"warnings,omitempty"`
	Error      string           `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
//
// Unknown fields are rejected so typos fail loudly. Data and rules paths
// are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	if scenario.Data != "" && !filepath.IsAbs(scenario.Data) {
		scenario.Data = filepath.Join(base, scenario.Data)
	}
	if scenario.Rules != "" && !filepath.IsAbs(scenario.Rules) {
		scenario.Rules = filepath.Join(base, scenario.Rules)
	}

	if err := validatePaths(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Data == "" && s.CSV == "":
		return fmt.Errorf("one of data or csv is required")
	case s.Data != "" && s.CSV != "":
		return fmt.Errorf("data and csv are mutually exclusive")
	case s.Table != "" && s.Data == "":
		return fmt.Errorf("table requires data")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Steps))
	for i, step := range s.Steps {
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		if seen[step.Name] {
			return fmt.Errorf("steps[%d]: duplicate step name %q", i, step.Name)
		}
		seen[step.Name] = true

		if err := validateExpect(i, step.Expect); err != nil {
			return err
		}
	}
	return nil
}

func validateExpect(index int, e Expect) error {
	if e.Values != nil && e.Column == "" {
		return fmt.Errorf("steps[%d].expect: values requires column", index)
	}
	if e.Column != "" && e.Values == nil {
		return fmt.Errorf("steps[%d].expect: column requires values", index)
	}
	if e.Error != "" {
		if e.TotalCount != nil || e.Count != nil || e.Values != nil || e.Contains != nil || e.Warnings != nil {
			return fmt.Errorf("steps[%d].expect: error cannot be combined with other expectations", index)
		}
	}
	if e.TotalCount != nil && *e.TotalCount < 0 {
		return fmt.Errorf("steps[%d].expect: total_count must be non-negative", index)
	}
	if e.Count != nil && *e.Count < 0 {
		return fmt.Errorf("steps[%d].expect: count must be non-negative", index)
	}
	return nil
}

func validatePaths(s *Scenario) error {
	if s.Data != "" {
		if _, err := os.Stat(s.Data); os.IsNotExist(err) {
			return fmt.Errorf("data file not found: %s", s.Data)
		}
	}
	if s.Rules != "" {
		if _, err := os.Stat(s.Rules); os.IsNotExist(err) {
			return fmt.Errorf("rules file not found: %s", s.Rules)
		}
	}
	return nil
}
