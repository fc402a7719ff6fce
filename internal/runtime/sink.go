package runtime

import (
	"context"
	"sync"

	"github.com/roach88/typefn/internal/ir"
)

// Sink receives one CallRecord per invocation.
//
// Implementations must be safe for concurrent use. An error is logged by the
// façade and never changes the call outcome.
type Sink interface {
	Append(ctx context.Context, rec ir.CallRecord) error
}

// MemorySink keeps records in memory, in append order.
type MemorySink struct {
	mu      sync.Mutex
	records []ir.CallRecord
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append implements Sink.
func (s *MemorySink) Append(_ context.Context, rec ir.CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of the appended records.
func (s *MemorySink) Records() []ir.CallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ir.CallRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of appended records.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
