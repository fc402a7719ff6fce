package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update   bool   // regenerate golden files
	Filter   string // scenario filter (glob pattern on scenario names)
	Parallel int    // scenarios run at once (0 = unbounded)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Calls  int      `json:"calls"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run YAML conformance scenarios against their schemas.

Each scenario invokes functions through the reference backends on a
fresh runtime with deterministic ids and clocks, checks per-step
expectations, then evaluates its assertions against the call log.

When <scenarios-dir>/golden/<name>.golden exists the trace must match
it byte for byte; --update rewrites golden files from the current run.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, unloadable scenario, etc.)

Examples:
  typefn test ./scenarios
  typefn test ./scenarios --filter "classify*"
  typefn test ./scenarios --update
  typefn test ./scenarios --parallel 4 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 1, "scenarios to run at once (0 = unbounded)")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if info, err := os.Stat(scenariosDir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	scenarios, err := harness.LoadScenarios(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}

	if len(scenarios) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	results, err := harness.RunAll(ctx, scenarios, opts.Parallel, harness.WithLogger(opts.logger()))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenarios", err)
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		w = io.Discard
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(results)),
		Total:     len(results),
	}
	for _, res := range results {
		scenResult := checkScenario(opts, scenariosDir, res, w)
		result.Scenarios = append(result.Scenarios, scenResult)
		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// checkScenario folds the golden comparison into a harness result and
// reports it on w.
func checkScenario(opts *TestOptions, scenariosDir string, res *harness.Result, w io.Writer) ScenarioResult {
	scenResult := ScenarioResult{
		Name:   res.Scenario,
		Pass:   res.Pass,
		Calls:  len(res.Records),
		Errors: res.Errors,
	}
	fail := func(msg string) {
		scenResult.Pass = false
		scenResult.Errors = append(scenResult.Errors, msg)
	}

	g := goldenTrace{path: goldenFilePath(scenariosDir, res.Scenario)}
	if opts.Update {
		if err := g.write(res); err != nil {
			fail(fmt.Sprintf("failed to update golden file: %v", err))
		}
	} else if diff, err := g.diff(res); err != nil {
		fail(fmt.Sprintf("golden comparison failed: %v", err))
	} else if diff != "" {
		fail("trace does not match golden file (run with --update to regenerate):\n" + diff)
	}

	switch {
	case !scenResult.Pass:
		fmt.Fprintf(w, "✗ %s\n", scenResult.Name)
		for _, e := range scenResult.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	case opts.Update:
		fmt.Fprintf(w, "✓ %s (golden updated)\n", scenResult.Name)
	default:
		fmt.Fprintf(w, "✓ %s\n", scenResult.Name)
	}
	return scenResult
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenariosDir, name string) string {
	return filepath.Join(scenariosDir, "golden", name+".golden")
}

// goldenTrace is the recorded trace snapshot of one scenario.
type goldenTrace struct {
	path string
}

func (g goldenTrace) write(res *harness.Result) error {
	data, err := harness.MarshalSnapshot(res)
	if err != nil {
		return errors.Wrap(err, "marshal trace")
	}
	if err := os.MkdirAll(filepath.Dir(g.path), 0755); err != nil {
		return errors.Wrap(err, "create golden directory")
	}
	return errors.Wrap(os.WriteFile(g.path, data, 0644), "write golden file")
}

// diff returns a line diff between the golden file and the trace of res,
// or "" when they match or no golden file exists.
func (g goldenTrace) diff(res *harness.Result) (string, error) {
	want, err := os.ReadFile(g.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "read golden file")
	}
	got, err := harness.MarshalSnapshot(res)
	if err != nil {
		return "", errors.Wrap(err, "marshal trace")
	}
	if bytes.Equal(want, got) {
		return "", nil
	}
	return cmp.Diff(strings.Split(string(want), "\n"), strings.Split(string(got), "\n")), nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	if err := writeJSON(cmd.OutOrStdout(), response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test summary as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
