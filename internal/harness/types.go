package harness

import (
	"github.com/roach88/typefn/internal/ir"
)

// TraceEvent is one invocation as seen by the harness: what was asked and
// what the runtime answered.
type TraceEvent struct {
	Step      int         `json:"step"`
	Function  string      `json:"function"`
	Args      ir.IRObject `json:"args"`
	Variant   string      `json:"variant,omitempty"`
	Source    string      `json:"source,omitempty"`
	States    []string    `json:"states"`
	Outcome   string      `json:"outcome"`
	Output    ir.IRValue  `json:"output,omitempty"`
	ErrorKind string      `json:"error_kind,omitempty"`
	RecordID  string      `json:"record_id"`
	Seq       int64       `json:"seq"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Scenario is the scenario name.
	Scenario string `json:"scenario"`

	// Pass indicates overall test success.
	// True if all expect clauses and assertions hold.
	Pass bool `json:"pass"`

	// Trace contains one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Records are the call records persisted by the run, ordered by seq.
	Records []ir.CallRecord `json:"records,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event to the trace.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
