// Package testutil provides shared test helpers for the invoice-triage
// project.
package testutil

import (
	"context"
	"testing"

	"github.com/marwick/invoice-triage/internal/storage"
)

// SetupTestStore creates a new in-memory pattern store with migrations
// applied. Cleanup is registered automatically.
func SetupTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()

	store, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return store
}
