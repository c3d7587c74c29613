// Package sqlstore implements the annotation and metadata datastores on
// SQLite.
//
// Each level lives in its own table, lvl_<levelID>, with fixed key columns
// (annotation_id, speaker_id, item_no), the element position (t_min/t_max in
// nanoseconds, or index_from/index_to for sequences and relations), the
// label column xtext and one column per declared attribute. The level and
// attribute declarations themselves are kept in annotation_levels and
// annotation_attributes.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"annotcore/internal/corpuserr"
	"annotcore/internal/datastore"
	"annotcore/internal/logging"
	"annotcore/internal/sqlitedriver"
	"annotcore/internal/structure"
)

// Store is the SQLite annotation datastore. It is not safe for concurrent
// use.
type Store struct {
	db        *sql.DB
	path      string
	structure *structure.AnnotationStructure
	logger    *slog.Logger
}

var _ datastore.AnnotationDatastore = (*Store)(nil)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// Open creates or opens the database at path and loads the stored
// annotation structure.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	logger = logging.NewComponentLogger(logger, "sqlstore")
	db, err := openDB(ctx, path, logger)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, path: path, logger: logger}
	st, err := s.readStructure(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.structure = st
	s.logger.Debug("annotation datastore opened",
		logging.String("path", path),
		logging.String("driver", sqlitedriver.DriverType()),
		logging.Int("levels", len(st.Levels())),
	)
	return s, nil
}

func openDB(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, corpuserr.IO("create datastore directory", err)
		}
	}
	db, err := sqlitedriver.Open(path)
	if err != nil {
		return nil, corpuserr.IO("open datastore", err)
	}
	// One connection keeps the per-connection pragmas in force and matches
	// the single-caller contract.
	db.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, corpuserr.IO(fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}
	applied, err := applyMigrations(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, corpuserr.WithOp("migrate datastore", err)
	}
	for _, version := range applied {
		logger.Info("schema migration applied",
			logging.String("migration", version),
			logging.String("path", path),
		)
	}
	return db, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return corpuserr.IO("close datastore", err)
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Structure returns a copy of the structure the store currently knows.
func (s *Store) Structure() *structure.AnnotationStructure { return s.structure.Clone() }

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in a transaction. Errors returned by fn keep their kind;
// driver failures become IO errors tagged with op.
func withTx(ctx context.Context, db *sql.DB, op string, fn func(tx *sql.Tx) error) error {
	ctx = ensureContext(ctx)
	var tx *sql.Tx
	if err := retryOnBusy(ctx, func() error {
		var beginErr error
		tx, beginErr = db.BeginTx(ctx, nil)
		return beginErr
	}); err != nil {
		return corpuserr.IO(op, fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return corpuserr.WithOp(op, err)
	}
	if err := tx.Commit(); err != nil {
		return corpuserr.IO(op, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// mutateStructure runs fn against a copy of the cached structure inside a
// transaction and swaps the copy in only after the commit succeeded.
func (s *Store) mutateStructure(ctx context.Context, op string, fn func(tx *sql.Tx, st *structure.AnnotationStructure) error) error {
	next := s.structure.Clone()
	if err := withTx(ctx, s.db, op, func(tx *sql.Tx) error {
		return fn(tx, next)
	}); err != nil {
		return err
	}
	s.structure = next
	return nil
}

func (s *Store) level(levelID string) (*structure.Level, error) {
	return s.structure.RequireLevel(levelID)
}
