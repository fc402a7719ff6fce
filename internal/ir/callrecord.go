package ir

import "time"

// Outcome values for CallRecord.Outcome.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// CallRecord is the append-only observability entry emitted once per
// invocation, whatever its outcome.
//
// Variant is empty when the call failed before resolution. ErrorKind is empty
// for completed calls.
type CallRecord struct {
	ID             string    `json:"id"`  // UUIDv7
	Seq            int64     `json:"seq"` // Logical clock, unique per runtime
	Function       string    `json:"function"`
	Variant        string    `json:"variant,omitempty"`
	Outcome        string    `json:"outcome"`
	ErrorKind      string    `json:"error_kind,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	DurationMicros int64     `json:"duration_micros"`
}

// Succeeded reports whether the call completed.
func (r CallRecord) Succeeded() bool {
	return r.Outcome == OutcomeCompleted
}
