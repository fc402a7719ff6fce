package store

import (
	"context"
	"time"

	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
)

// timeLayout is fixed-width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Append inserts a call record. It implements runtime.Sink.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are
// silently ignored. Other constraint violations still return errors.
func (s *Store) Append(ctx context.Context, rec ir.CallRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO call_records
		(id, seq, function, variant, outcome, error_kind, started_at, duration_micros)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Seq,
		rec.Function,
		rec.Variant,
		rec.Outcome,
		rec.ErrorKind,
		rec.StartedAt.UTC().Format(timeLayout),
		rec.DurationMicros,
	)
	if err != nil {
		return errors.Wrap(err, "append call record")
	}
	return nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse started_at %q", s)
	}
	return t, nil
}
