// Package storage provides the SQLite-backed pattern store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/marwick/invoice-triage/internal/common"
	"github.com/marwick/invoice-triage/internal/service"
)

// Compile-time check that the store satisfies the pipeline contract.
var _ service.PatternStore = (*SQLiteStore)(nil)

// queryable abstracts over *sql.DB and *sql.Tx so read helpers work in both.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLiteStore implements service.PatternStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite pattern store instance.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetCounts returns per-entity-type record counts.
func (s *SQLiteStore) GetCounts(ctx context.Context) (*service.Counts, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	counts := &service.Counts{}
	queries := []struct {
		dest  *int
		table string
	}{
		{&counts.VendorPatterns, "vendor_patterns"},
		{&counts.CorrectionPatterns, "correction_patterns"},
		{&counts.ResolutionOutcomes, "resolution_outcomes"},
		{&counts.AuditEntries, "audit_entries"},
	}

	for _, q := range queries {
		err := s.db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT COUNT(*) FROM %s", q.table)).Scan(q.dest)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", q.table, err)
		}
	}

	return counts, nil
}

// txRetryOptions backs the write-path retry. The driver already waits on the
// busy timeout; this covers lock contention that outlasts it.
var txRetryOptions = service.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: 50 * time.Millisecond,
	MaxDelay:     time.Second,
	Multiplier:   2.0,
}

// withTx runs fn inside a transaction, committing on success. Every write
// path goes through here so each store/update call is atomic. Transient
// SQLITE_BUSY failures are retried with backoff; everything else returns
// immediately.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return common.WithRetry(ctx, func() error {
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		return &common.RetryableError{Err: err, Retryable: isBusy(err)}
	}, txRetryOptions)
}

func (s *SQLiteStore) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// isBusy reports whether the error is a transient lock-contention failure.
func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// execAffected runs a write expected to touch exactly one row on the given
// db or tx handle, converting a zero-row result into notFound.
func execAffected(ctx context.Context, q queryable, notFound error, query string, args ...any) error {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireRowAffected(result, notFound)
}

// requireRowAffected converts a zero-row UPDATE into a not-found error.
func requireRowAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
