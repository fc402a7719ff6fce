package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/typefn/internal/ir"
)

// createTestStore creates a new store in a per-test temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testStart = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// createTestRecord creates a call record with minimal required fields.
func createTestRecord(id, function, variant string, seq int64) ir.CallRecord {
	return ir.CallRecord{
		ID:             id,
		Seq:            seq,
		Function:       function,
		Variant:        variant,
		Outcome:        ir.OutcomeCompleted,
		StartedAt:      testStart.Add(time.Duration(seq) * time.Millisecond),
		DurationMicros: 250,
	}
}
