// Package harness provides conformance testing for typefn schemas.
//
// The harness loads a schema, invokes its functions through the reference
// backends (see package backend) and validates outcomes and call records
// against a YAML scenario.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema: ../schema/chat          # CUE directory or .json IR
//	overrides: { Classify: b }      # optional client-level overrides
//	env: { USER_NAME: ada }         # optional backend environment
//	timeout: 1s                     # optional default per-call bound
//	flow:
//	  - invoke: Classify
//	    args: { msg: { sender: USER, text: hi } }
//	    variant: a                  # optional explicit selection
//	    expect:
//	      outcome: completed
//	      output: USER
//	      variant: a
//	      source: explicit
//	  - invoke: Classify
//	    args: {}
//	    expect:
//	      error_kind: ARGUMENT_MISMATCH
//	assertions:
//	  - type: trace_count
//	    function: Classify
//	    count: 2
//	  - type: record_counts
//	    function: Classify
//	    expect: { completed: 1, failed: 1 }
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - trace_contains: a call of function exists, optionally narrowed by variant, outcome and error_kind
//   - trace_order: functions were first called in the given order
//   - trace_count: function was called exactly N times
//   - record_counts: per-outcome counts in the persisted call log
//
// # Deterministic Testing
//
// Every scenario runs on a fresh runtime with:
//   - A logical clock starting at 1 (runtime.NewClock)
//   - Sequential record ids "call-0001", "call-0002", ... (testutil.SequenceGenerator)
//   - A wall clock starting at testutil.Epoch and advancing 1ms per reading
//   - An in-memory SQLite call log (isolated per run)
//
// This ensures identical traces across runs for golden file comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/classify.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
