package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
)

// Filter narrows ReadCalls. Zero values match everything.
type Filter struct {
	Function string
	Outcome  string // ir.OutcomeCompleted or ir.OutcomeFailed
	AfterSeq int64  // Only records with seq > AfterSeq
	Limit    int
}

// ReadCalls returns call records matching f.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadCalls(ctx context.Context, f Filter) ([]ir.CallRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Function != "" {
		where = append(where, "function = ?")
		args = append(args, f.Function)
	}
	if f.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, f.Outcome)
	}
	if f.AfterSeq > 0 {
		where = append(where, "seq > ?")
		args = append(args, f.AfterSeq)
	}

	query := `
		SELECT id, seq, function, variant, outcome, error_kind, started_at, duration_micros
		FROM call_records`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY seq ASC, id COLLATE BINARY ASC"
	if f.Limit > 0 {
		query += "\n\t\tLIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query call records")
	}
	defer rows.Close()

	records := []ir.CallRecord{}
	for rows.Next() {
		rec, err := scanCallRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate call records")
	}
	return records, nil
}

// LastSeq returns the highest persisted seq, or 0 for an empty log.
// A runtime reopening the log resumes its clock with runtime.NewClockAt(LastSeq).
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(seq) FROM call_records").Scan(&seq); err != nil {
		return 0, errors.Wrap(err, "query last seq")
	}
	return seq.Int64, nil
}

// Counts returns the number of records per outcome for function, or for all
// functions when function is empty.
func (s *Store) Counts(ctx context.Context, function string) (map[string]int, error) {
	query := "SELECT outcome, COUNT(*) FROM call_records"
	var args []any
	if function != "" {
		query += " WHERE function = ?"
		args = append(args, function)
	}
	query += " GROUP BY outcome"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query counts")
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, errors.Wrap(err, "scan counts")
		}
		counts[outcome] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate counts")
	}
	return counts, nil
}

func scanCallRecord(rows *sql.Rows) (ir.CallRecord, error) {
	var (
		rec     ir.CallRecord
		started string
	)
	err := rows.Scan(
		&rec.ID,
		&rec.Seq,
		&rec.Function,
		&rec.Variant,
		&rec.Outcome,
		&rec.ErrorKind,
		&started,
		&rec.DurationMicros,
	)
	if err != nil {
		return ir.CallRecord{}, errors.Wrap(err, "scan call record")
	}
	rec.StartedAt, err = parseTime(started)
	if err != nil {
		return ir.CallRecord{}, err
	}
	return rec, nil
}
