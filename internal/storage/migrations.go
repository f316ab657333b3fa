package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: vendor and correction patterns",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS vendor_patterns (
					id TEXT PRIMARY KEY,
					vendor_name TEXT NOT NULL,
					field_mappings TEXT NOT NULL DEFAULT '{}',
					rules TEXT NOT NULL DEFAULT '[]',
					confidence REAL NOT NULL DEFAULT 0,
					use_count INTEGER NOT NULL DEFAULT 0,
					last_used DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_vendor_patterns_vendor ON vendor_patterns(vendor_name)`,
				`CREATE INDEX idx_vendor_patterns_confidence ON vendor_patterns(confidence DESC)`,

				`CREATE TABLE IF NOT EXISTS correction_patterns (
					id TEXT PRIMARY KEY,
					field TEXT NOT NULL,
					original_value TEXT NOT NULL,
					corrected_value TEXT NOT NULL,
					vendor_name TEXT,
					confidence REAL NOT NULL DEFAULT 0,
					approval_count INTEGER NOT NULL DEFAULT 0,
					rejection_count INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_correction_patterns_field ON correction_patterns(field)`,
				`CREATE INDEX idx_correction_patterns_vendor ON correction_patterns(vendor_name)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Resolution outcomes",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS resolution_outcomes (
					id TEXT PRIMARY KEY,
					pattern_key TEXT NOT NULL,
					action TEXT NOT NULL,
					confidence REAL NOT NULL DEFAULT 0,
					successful INTEGER NOT NULL DEFAULT 0,
					reasoning TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_resolution_outcomes_key ON resolution_outcomes(pattern_key)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Append-only audit log",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS audit_entries (
					id TEXT PRIMARY KEY,
					operation TEXT NOT NULL,
					entity_type TEXT NOT NULL,
					entity_id TEXT,
					before_state TEXT,
					after_state TEXT,
					reasoning TEXT,
					confidence REAL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_audit_entries_entity ON audit_entries(entity_type, entity_id)`,
				`CREATE INDEX idx_audit_entries_operation ON audit_entries(operation)`,
				`CREATE INDEX idx_audit_entries_created ON audit_entries(created_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending schema migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("Applying migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec(
			`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			migration.Version, migration.Description); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
