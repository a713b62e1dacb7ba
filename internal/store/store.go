// Package store provides the SQLite-backed persistence for oafund.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite" // register sqlite driver
)

var (
	// ErrNotFound is returned when a keyed row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert collides with an existing key.
	ErrDuplicate = errors.New("duplicate key")
)

// querier is the subset of *sql.DB and *sql.Tx the store needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store provides access to requests, the budget ledger, and uploads.
// A Store returned by WithTx is bound to that transaction.
type Store struct {
	db *sql.DB
	q  querier
}

// Open opens or creates the database at the given path and applies the schema.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite has a single writer; serialize at the pool.
	db.SetMaxOpenConns(1)

	s := New(db)
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already-open database handle. The schema is not applied.
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// Migrate creates any missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a transaction. The transaction commits if fn
// returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if _, nested := s.q.(*sql.Tx); nested {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// VacuumInto writes a consistent copy of the database to path.
func (s *Store) VacuumInto(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("vacuum into %s: %w", path, err)
	}
	return nil
}

// parseAmount reads a TEXT money column. Empty values are zero.
func parseAmount(col, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s %q: %w", col, raw, err)
	}
	return d, nil
}
