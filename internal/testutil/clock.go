package testutil

import (
	"sync"
	"time"
)

// Epoch is the fixed start time used by deterministic test fixtures.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicTime is a wall-clock source that advances by a fixed step on
// every reading, so CallRecord timestamps and durations are reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicTime struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewDeterministicTime creates a source whose first reading is start.
func NewDeterministicTime(start time.Time, step time.Duration) *DeterministicTime {
	return &DeterministicTime{now: start, step: step}
}

// Now returns the current reading and advances by step.
// Pass the method value (dt.Now) to runtime.WithTimeSource.
func (d *DeterministicTime) Now() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := d.now
	d.now = d.now.Add(d.step)
	return t
}

// Reset rewinds the source to start.
func (d *DeterministicTime) Reset(start time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = start
}
