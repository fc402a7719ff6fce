package runtime

import (
	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
	"github.com/roach88/typefn/internal/resolve"
)

// State is a step of the invocation state machine.
type State string

const (
	StateReceived        State = "received"
	StateArgsValidated   State = "args_validated"
	StateResolved        State = "resolved"
	StateDispatched      State = "dispatched"
	StateOutputValidated State = "output_validated"
	StateCompleted       State = "completed"
	StateFailed          State = "failed"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Outcome describes one invocation.
//
// Invoke returns an Outcome for failed calls too, so callers can see how far
// the call got. Output is set only when the call completed.
type Outcome struct {
	Function string         `json:"function"`
	Variant  string         `json:"variant,omitempty"`
	Source   resolve.Source `json:"source,omitempty"`
	Output   ir.IRValue     `json:"output,omitempty"`
	States   []State        `json:"states"`
	Err      error          `json:"-"`
	Record   ir.CallRecord  `json:"record"`
}

// Final returns the terminal state of the call.
func (o *Outcome) Final() State {
	if len(o.States) == 0 {
		return StateReceived
	}
	return o.States[len(o.States)-1]
}

// ErrorKind returns the failure kind, or "" for a completed call.
func (o *Outcome) ErrorKind() errors.Kind {
	return errors.KindOf(o.Err)
}

func (o *Outcome) advance(s State) {
	o.States = append(o.States, s)
}
