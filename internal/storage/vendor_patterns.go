package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marwick/invoice-triage/internal/model"
)

// StoreVendorPattern saves or updates a vendor pattern in one transaction.
func (s *SQLiteStore) StoreVendorPattern(ctx context.Context, pattern *model.VendorPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if pattern == nil {
		return fmt.Errorf("%w: pattern", ErrNilParameter)
	}
	if err := pattern.Validate(); err != nil {
		return fmt.Errorf("invalid vendor pattern: %w", err)
	}

	if pattern.ID == "" {
		pattern.ID = uuid.NewString()
	}
	if pattern.CreatedAt.IsZero() {
		pattern.CreatedAt = time.Now().UTC()
	}
	if pattern.LastUsed.IsZero() {
		pattern.LastUsed = pattern.CreatedAt
	}
	pattern.Confidence = model.ClampConfidence(pattern.Confidence)

	mappings, err := json.Marshal(pattern.FieldMappings)
	if err != nil {
		return fmt.Errorf("failed to marshal field mappings: %w", err)
	}
	rules, err := json.Marshal(pattern.Rules)
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vendor_patterns
				(id, vendor_name, field_mappings, rules, confidence, use_count, last_used, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				vendor_name = excluded.vendor_name,
				field_mappings = excluded.field_mappings,
				rules = excluded.rules,
				confidence = excluded.confidence,
				use_count = excluded.use_count,
				last_used = excluded.last_used
		`, pattern.ID, pattern.VendorName, string(mappings), string(rules),
			pattern.Confidence, pattern.UseCount, pattern.LastUsed, pattern.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save vendor pattern: %w", err)
		}
		return nil
	})
}

// GetVendorPatterns retrieves all patterns for a vendor, ordered by
// confidence descending with most-recently-used breaking ties.
func (s *SQLiteStore) GetVendorPatterns(ctx context.Context, vendorName string) ([]model.VendorPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(vendorName, "vendorName"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vendor_name, field_mappings, rules, confidence, use_count, last_used, created_at
		FROM vendor_patterns
		WHERE vendor_name = ?
		ORDER BY confidence DESC, last_used DESC
	`, vendorName)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendor patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.VendorPattern
	for rows.Next() {
		pattern, err := scanVendorPattern(rows)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, *pattern)
	}

	return patterns, rows.Err()
}

func scanVendorPattern(rows *sql.Rows) (*model.VendorPattern, error) {
	var pattern model.VendorPattern
	var mappings, rules string
	var lastUsed sql.NullTime

	err := rows.Scan(&pattern.ID, &pattern.VendorName, &mappings, &rules,
		&pattern.Confidence, &pattern.UseCount, &lastUsed, &pattern.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan vendor pattern: %w", err)
	}

	if err := json.Unmarshal([]byte(mappings), &pattern.FieldMappings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal field mappings: %w", err)
	}
	if err := json.Unmarshal([]byte(rules), &pattern.Rules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules: %w", err)
	}
	if lastUsed.Valid {
		pattern.LastUsed = lastUsed.Time
	}

	return &pattern, nil
}

// IncrementVendorUsage bumps a pattern's use count and last-used timestamp.
func (s *SQLiteStore) IncrementVendorUsage(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return execAffected(ctx, tx, ErrVendorPatternNotFound, `
			UPDATE vendor_patterns
			SET use_count = use_count + 1, last_used = ?
			WHERE id = ?
		`, time.Now().UTC(), id)
	})
}

// AdjustVendorConfidence applies a signed confidence delta to a vendor
// pattern, clamped to [0, 1] in SQL so the invariant holds even under
// concurrent adjustments. Negative deltas decay the pattern toward zero;
// patterns are never deleted.
func (s *SQLiteStore) AdjustVendorConfidence(ctx context.Context, id string, delta float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return execAffected(ctx, tx, ErrVendorPatternNotFound, `
			UPDATE vendor_patterns
			SET confidence = MAX(0.0, MIN(1.0, confidence + ?))
			WHERE id = ?
		`, delta, id)
	})
}
