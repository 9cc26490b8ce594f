// Package sqlite implements the work-item store on top of SQLite via the
// pure-Go github.com/ncruces/go-sqlite3 driver (no cgo), following the
// connection-setup and transaction conventions of the teacher's
// internal/storage/sqlite package: foreign keys on, WAL journal mode, a
// busy timeout so concurrent clients queue instead of failing, and a single
// writer connection since ncruces/go-sqlite3's BeginTx always runs DEFERRED.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/jpicklyk/task-orchestrator/internal/storage"
)

// busyTimeout matches spec.md §5: SQLite busy_timeout=5s prevents indefinite
// blocking; callers see DATABASE_ERROR on exhaustion rather than hanging.
const busyTimeout = 5 * time.Second

// Store is the SQLite-backed implementation of storage.Store. A Store value
// may wrap either the top-level *sql.DB or a *sql.Tx (see WithTx); both
// satisfy the dbtx interface used internally by every query method.
type Store struct {
	db   *sql.DB // nil when this Store is scoped to a transaction
	conn dbtx
	log  *slog.Logger
}

// dbtx is the subset of *sql.DB / *sql.Tx every repository method needs.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Options configures Open.
type Options struct {
	MaxConnections int // pool size when above 1; readers and writers share the one pool
	ShowSQL        bool
	Logger         *slog.Logger
}

// Open opens (creating if absent) the SQLite database at path, applies
// PRAGMAs, runs pending migrations, and returns a ready Store.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, storage.NewError(storage.KindDatabase, "open database", err)
	}

	// The writer path must be serialized: ncruces/go-sqlite3's BeginTx always
	// opens a DEFERRED transaction, so concurrent writers racing to upgrade
	// to a write lock can deadlock against SQLITE_BUSY. A single connection
	// plus busy_timeout turns concurrent writers into a queue instead.
	// MaxConnections above 1 widens this same pool, so writers are then no
	// longer serialized; there is no separate read pool.
	db.SetMaxOpenConns(1)
	if opts.MaxConnections > 1 {
		db.SetMaxOpenConns(opts.MaxConnections)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, storage.NewError(storage.KindDatabase, "apply pragma: "+pragma, err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, storage.NewError(storage.KindDatabase, "run migrations", err)
	}

	return &Store{db: db, conn: db, log: logger}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WithTx runs fn inside a single SERIALIZABLE-isolated transaction (SQLite's
// own default isolation under a single writer connection already gives
// serializable semantics; BeginTx is called without overriding isolation so
// the driver's DEFERRED default applies, matching the teacher's comment that
// "modernc.org/sqlite's BeginTx always uses DEFERRED mode"). A Store scoped
// to the transaction is handed to fn so nested repository calls see a
// consistent snapshot and roll back together on error.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	if s.db == nil {
		// Already inside a transaction: run fn against this same scope
		// rather than nesting BEGIN statements, which SQLite disallows.
		return fn(ctx, s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.NewError(storage.KindDatabase, "begin transaction", err)
	}
	scoped := &Store{conn: tx, log: s.log}
	if err := fn(ctx, scoped); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return storage.NewError(storage.KindDatabase, "commit transaction", err)
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
