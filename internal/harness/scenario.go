package harness

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
)

// Scenario defines a conformance test scenario.
// A scenario loads a schema, invokes its functions through the reference
// backends and asserts on the outcomes and the resulting call records.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is a CUE schema directory or a .json IR document.
	// Relative paths are resolved against the scenario file's directory.
	Schema string `yaml:"schema"`

	// Overrides is the client-level override context (function to variant)
	// applied to every step.
	Overrides map[string]string `yaml:"overrides,omitempty"`

	// Env is passed to every backend request.
	Env map[string]string `yaml:"env,omitempty"`

	// Timeout bounds every step that does not set its own.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Flow is the ordered list of invocations.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the call records left by the flow.
	// Supported types: trace_contains, trace_order, trace_count, record_counts
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// FlowStep is one invocation.
type FlowStep struct {
	// Invoke is the function name.
	Invoke string `yaml:"invoke"`

	// Args are the call arguments, converted with ir.FromGo.
	Args map[string]interface{} `yaml:"args"`

	// Variant explicitly selects an implementation.
	Variant string `yaml:"variant,omitempty"`

	// Overrides are merged over the scenario overrides for this step only.
	Overrides map[string]string `yaml:"overrides,omitempty"`

	// Timeout bounds this step.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, no validation is performed and a failure is not an error.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected invocation behavior.
type ExpectClause struct {
	// Outcome is "completed" or "failed". Defaults to "failed" when
	// ErrorKind is set and "completed" otherwise.
	Outcome string `yaml:"outcome,omitempty"`

	// Output is the expected output value.
	// Objects match as subsets, everything else must be equal.
	Output interface{} `yaml:"output,omitempty"`

	// ErrorKind is the expected failure kind, e.g. "UNKNOWN_VARIANT".
	ErrorKind string `yaml:"error_kind,omitempty"`

	// Variant is the variant the call must have resolved to.
	Variant string `yaml:"variant,omitempty"`

	// Source is the precedence rule that chose the variant, e.g. "override".
	Source string `yaml:"source,omitempty"`
}

// expectedOutcome returns the outcome the clause asks for.
func (e *ExpectClause) expectedOutcome() string {
	if e.Outcome != "" {
		return e.Outcome
	}
	if e.ErrorKind != "" {
		return ir.OutcomeFailed
	}
	return ir.OutcomeCompleted
}

// Assertion validates the call records of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a record for Function (and Variant/Outcome if set) exists
	// - "trace_order": Functions appear in order
	// - "trace_count": Function was called exactly Count times
	// - "record_counts": the persisted per-outcome counts for Function equal Expect
	Type string `yaml:"type"`

	// Function is the function name (trace_contains, trace_count, record_counts).
	// Empty means all functions for record_counts.
	Function string `yaml:"function,omitempty"`

	// Variant narrows trace_contains.
	Variant string `yaml:"variant,omitempty"`

	// Outcome narrows trace_contains.
	Outcome string `yaml:"outcome,omitempty"`

	// ErrorKind narrows trace_contains.
	ErrorKind string `yaml:"error_kind,omitempty"`

	// Count is the expected number of calls (trace_count).
	Count int `yaml:"count,omitempty"`

	// Functions is the expected call order (trace_order).
	Functions []string `yaml:"functions,omitempty"`

	// Expect maps outcome to count (record_counts).
	Expect map[string]int `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertRecordCounts  = "record_counts"
)

// LoadScenario reads and parses a scenario YAML file.
// The schema path is resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the schema path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read scenario file")
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML")
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, errors.Wrap(err, "invalid scenario")
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file directly in dir, sorted by
// file name. A non-empty filter is a filepath.Match pattern on scenario names.
func LoadScenarios(dir, filter string) ([]*Scenario, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, errors.Wrapf(err, "invalid filter %q", filter)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read scenario directory")
	}

	var paths []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	scenarios := []*Scenario{}
	seen := make(map[string]string)
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", p)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, errors.Newf("%s: scenario name %q already used by %s", p, s.Name, prev)
		}
		seen[s.Name] = p
		if filter != "" {
			if ok, _ := filepath.Match(filter, s.Name); !ok {
				continue
			}
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}

	if s.Description == "" {
		return errors.New("description is required")
	}

	if s.Schema == "" {
		return errors.New("schema is required")
	}
	if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
		return errors.Newf("schema not found: %s", s.Schema)
	}

	if len(s.Flow) == 0 {
		return errors.New("flow list is required and must be non-empty")
	}

	if s.Timeout < 0 {
		return errors.New("timeout must be non-negative")
	}

	for i, step := range s.Flow {
		if step.Invoke == "" {
			return errors.Newf("flow[%d]: invoke is required", i)
		}
		if step.Args == nil {
			return errors.Newf("flow[%d]: args is required (use empty map if no args)", i)
		}
		if step.Timeout < 0 {
			return errors.Newf("flow[%d]: timeout must be non-negative", i)
		}
		if step.Expect != nil {
			if err := validateExpect(i, step.Expect); err != nil {
				return err
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateExpect(index int, e *ExpectClause) error {
	switch e.Outcome {
	case "", ir.OutcomeCompleted, ir.OutcomeFailed:
	default:
		return errors.Newf("flow[%d].expect: outcome must be %q or %q, got %q", index, ir.OutcomeCompleted, ir.OutcomeFailed, e.Outcome)
	}
	outcome := e.expectedOutcome()
	if e.ErrorKind != "" && outcome != ir.OutcomeFailed {
		return errors.Newf("flow[%d].expect: error_kind requires outcome %q", index, ir.OutcomeFailed)
	}
	if e.Output != nil && outcome != ir.OutcomeCompleted {
		return errors.Newf("flow[%d].expect: output requires outcome %q", index, ir.OutcomeCompleted)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return errors.Newf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Function == "" {
			return errors.Newf("assertions[%d]: function is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Functions) == 0 {
			return errors.Newf("assertions[%d]: functions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Function == "" {
			return errors.Newf("assertions[%d]: function is required for trace_count", index)
		}
		if a.Count < 0 {
			return errors.Newf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertRecordCounts:
		if len(a.Expect) == 0 {
			return errors.Newf("assertions[%d]: expect is required for record_counts", index)
		}
	default:
		return errors.Newf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
