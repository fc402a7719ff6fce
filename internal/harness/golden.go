package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/typefn/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toIRObject converts the snapshot to an IRObject so it serializes with
// sorted keys. Outputs may contain floats and nulls, so this is not
// canonical JSON.
func (s *TraceSnapshot) toIRObject() ir.IRObject {
	trace := make(ir.IRArray, len(s.Trace))
	for i, event := range s.Trace {
		states := make(ir.IRArray, len(event.States))
		for j, st := range event.States {
			states[j] = ir.IRString(st)
		}
		args := event.Args
		if args == nil {
			args = ir.IRObject{}
		}
		obj := ir.IRObject{
			"step":      ir.IRInt(event.Step),
			"function":  ir.IRString(event.Function),
			"args":      args,
			"states":    states,
			"outcome":   ir.IRString(event.Outcome),
			"record_id": ir.IRString(event.RecordID),
			"seq":       ir.IRInt(event.Seq),
		}
		if event.Variant != "" {
			obj["variant"] = ir.IRString(event.Variant)
		}
		if event.Source != "" {
			obj["source"] = ir.IRString(event.Source)
		}
		if event.Output != nil {
			obj["output"] = event.Output
		}
		if event.ErrorKind != "" {
			obj["error_kind"] = ir.IRString(event.ErrorKind)
		}
		trace[i] = obj
	}

	return ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"trace":         trace,
	}
}

// MarshalSnapshot renders the trace of result as indented JSON with sorted
// keys, the format of golden files.
func MarshalSnapshot(result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: result.Scenario,
		Trace:        result.Trace,
	}
	compact, err := ir.MarshalIRValue(snapshot.toIRObject())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalSnapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)

	return nil
}
