package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mattn/go-sqlite3"
)

// newTestStore creates an in-memory store with migrations applied.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return store
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// Running migrations again against an up-to-date schema must be a no-op.
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	var version int
	err := store.db.QueryRowContext(ctx,
		"SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		t.Fatalf("failed to read schema version: %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, ExpectedSchemaVersion)
	}
}

func TestGetCountsEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	counts, err := store.GetCounts(ctx)
	if err != nil {
		t.Fatalf("GetCounts() error = %v", err)
	}
	if counts.VendorPatterns != 0 || counts.CorrectionPatterns != 0 ||
		counts.ResolutionOutcomes != 0 || counts.AuditEntries != 0 {
		t.Errorf("GetCounts() on empty store = %+v, want all zero", counts)
	}
}

func TestIsBusyClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"locked", sqlite3.Error{Code: sqlite3.ErrLocked}, true},
		{"wrapped busy", fmt.Errorf("tx: %w", sqlite3.Error{Code: sqlite3.ErrBusy}), true},
		{"constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"plain error", errors.New("disk gone"), false},
		{"not found sentinel", ErrVendorPatternNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBusy(tt.err); got != tt.want {
				t.Errorf("isBusy(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestValidateContextRejectsNil(t *testing.T) {
	store := newTestStore(t)

	//nolint:staticcheck // deliberately passing nil context
	if _, err := store.GetVendorPatterns(nil, "Acme"); err == nil {
		t.Error("GetVendorPatterns(nil ctx) error = nil, want error")
	}
}
