/*
Package sqlite provides a SQLite-backed implementation of payment.Store.

PURPOSE:
  Persists clients, contracts, payments and contacts. In production the
  same patterns apply to PostgreSQL with minor SQL dialect differences.

KEY TABLES:
  clients:   employers whose plans pay advisory fees
  contracts: fee terms; at most one active row per client
  payments:  applied periods stored as quarters, amounts as decimal text
  contacts:  client contacts, unrelated to fee tracking

CONSTRAINTS:
  - idx_contracts_one_active: one active contract per client
  - payments CHECK: start ordinal <= end ordinal
  - Amounts are TEXT so decimals round-trip exactly

MIGRATION:
  Versioned migrations live in migrations/ and are embedded in the binary.
  New applies them with golang-migrate; `fee-engine migrate` does the same
  without starting the server.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. An in-memory database is limited to
  one connection so every call sees the same database.

USAGE:
  store, err := sqlite.New("./fee-engine.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := payment.NewEngine(store)

SEE ALSO:
  - payment/store.go: Interface definitions
  - payment/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/fee-engine/payment"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements payment.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ payment.Store = (*Store)(nil)

// New opens the database at dbPath and migrates it to the latest schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	store := &Store{db: db}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Open opens the database without migrating it.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Migrate applies every pending embedded migration.
func Migrate(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// SchemaVersion reports the applied migration version and whether the
// last migration failed halfway.
func SchemaVersion(db *sql.DB) (uint, bool, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return 0, false, err
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return 0, false, err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a database transaction. The caller holds s.mu.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, payment.ErrNotFound)
}

func count(ctx context.Context, db execer, query string, args ...any) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}
