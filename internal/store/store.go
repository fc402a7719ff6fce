package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/typefn/internal/errors"
)

//go:embed schema.sql
var schemaSQL string

// migration upgrades a log created by an older typefn. migrations[i] moves
// user_version from i to i+1; every statement must be idempotent because
// schema.sql may already have created the object on a fresh database.
type migration struct {
	name  string
	stmts []string
}

var migrations = []migration{
	{
		name: "function index for `typefn log --function`",
		stmts: []string{
			`CREATE INDEX IF NOT EXISTS idx_call_records_function ON call_records(function, seq)`,
		},
	},
	{
		name: "outcome index for per-function counts",
		stmts: []string{
			`CREATE INDEX IF NOT EXISTS idx_call_records_outcome ON call_records(function, outcome)`,
		},
	},
}

var currentSchemaVersion = len(migrations)

// pragma is a connection setting and the value PRAGMA reports once applied.
type pragma struct {
	name, value, reported string
}

var pragmas = []pragma{
	{"journal_mode", "WAL", "wal"},
	{"synchronous", "NORMAL", "1"},
	{"busy_timeout", "5000", "5000"},
}

// Store is the durable call log. It holds a single connection, so appends
// from concurrent invocations are serialized by database/sql.
type Store struct {
	db *sql.DB
}

// Open opens or creates the call log at path (":memory:" for a private
// in-memory log) and brings its schema up to date. Opening an existing log
// is safe and leaves its records untouched.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open call log %s", path)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initialize(db); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "open call log %s", path)
	}
	return &Store{db: db}, nil
}

func initialize(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return errors.Wrap(err, "connect")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return errors.Wrapf(err, "pragma %s", p.name)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return errors.Wrap(err, "apply schema")
	}
	return migrate(db)
}

// migrate runs every migration past the stored user_version, each in its
// own transaction together with the version bump.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.Wrap(err, "read user_version")
	}
	if version > currentSchemaVersion {
		return errors.WithHint(
			errors.Newf("call log schema version %d is newer than supported version %d", version, currentSchemaVersion),
			"upgrade typefn or point --db at another file",
		)
	}

	for v := version; v < currentSchemaVersion; v++ {
		m := migrations[v]
		tx, err := db.Begin()
		if err != nil {
			return errors.Wrapf(err, "migrate to v%d", v+1)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return errors.Wrapf(err, "migrate to v%d (%s)", v+1, m.name)
			}
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "migrate to v%d", v+1)
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "migrate to v%d", v+1)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the connection for tests and ad hoc inspection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// verifyPragma checks that a pragma reports the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return errors.Wrapf(err, "query %s", name)
	}
	if value != expected {
		return errors.Newf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
