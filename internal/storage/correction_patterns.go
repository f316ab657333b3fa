package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marwick/invoice-triage/internal/model"
)

// Reinforcement deltas applied by UpdateCorrectionFeedback. Rejection costs
// more than approval earns: trust is earned slower than it is lost.
const (
	CorrectionApprovalDelta  = 0.1
	CorrectionRejectionDelta = 0.15
)

// StoreCorrectionPattern saves or updates a correction pattern in one
// transaction. An empty vendor name is stored as NULL (unscoped correction).
func (s *SQLiteStore) StoreCorrectionPattern(ctx context.Context, pattern *model.CorrectionPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if pattern == nil {
		return fmt.Errorf("%w: pattern", ErrNilParameter)
	}
	if err := pattern.Validate(); err != nil {
		return fmt.Errorf("invalid correction pattern: %w", err)
	}

	if pattern.ID == "" {
		pattern.ID = uuid.NewString()
	}
	if pattern.CreatedAt.IsZero() {
		pattern.CreatedAt = time.Now().UTC()
	}
	pattern.Confidence = model.ClampConfidence(pattern.Confidence)

	var vendor sql.NullString
	if pattern.VendorName != "" {
		vendor = sql.NullString{String: pattern.VendorName, Valid: true}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO correction_patterns
				(id, field, original_value, corrected_value, vendor_name,
				 confidence, approval_count, rejection_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				field = excluded.field,
				original_value = excluded.original_value,
				corrected_value = excluded.corrected_value,
				vendor_name = excluded.vendor_name,
				confidence = excluded.confidence,
				approval_count = excluded.approval_count,
				rejection_count = excluded.rejection_count
		`, pattern.ID, pattern.Field, pattern.OriginalValue, pattern.CorrectedValue,
			vendor, pattern.Confidence, pattern.ApprovalCount, pattern.RejectionCount,
			pattern.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save correction pattern: %w", err)
		}
		return nil
	})
}

// GetCorrectionPatterns retrieves correction patterns for a field. When a
// vendor name is given, vendor-scoped and unscoped (NULL) patterns are both
// returned; the list stays in non-increasing confidence order, with
// vendor-scoped entries first among equals.
func (s *SQLiteStore) GetCorrectionPatterns(ctx context.Context, field, vendorName string) ([]model.CorrectionPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(field, "field"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, field, original_value, corrected_value, vendor_name,
		       confidence, approval_count, rejection_count, created_at
		FROM correction_patterns
		WHERE field = ? AND (vendor_name IS NULL OR vendor_name = ?)
		ORDER BY confidence DESC,
		         CASE WHEN vendor_name IS NULL THEN 1 ELSE 0 END,
		         created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, field, vendorName)
	if err != nil {
		return nil, fmt.Errorf("failed to query correction patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.CorrectionPattern
	for rows.Next() {
		var pattern model.CorrectionPattern
		var vendor sql.NullString

		err := rows.Scan(&pattern.ID, &pattern.Field, &pattern.OriginalValue,
			&pattern.CorrectedValue, &vendor, &pattern.Confidence,
			&pattern.ApprovalCount, &pattern.RejectionCount, &pattern.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan correction pattern: %w", err)
		}
		if vendor.Valid {
			pattern.VendorName = vendor.String
		}
		patterns = append(patterns, pattern)
	}

	return patterns, rows.Err()
}

// GetCorrectionPattern retrieves a single correction pattern by id.
func (s *SQLiteStore) GetCorrectionPattern(ctx context.Context, id string) (*model.CorrectionPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	return queryCorrectionPattern(ctx, s.db, id)
}

// queryCorrectionPattern reads one correction pattern on the given db or tx
// handle.
func queryCorrectionPattern(ctx context.Context, q queryable, id string) (*model.CorrectionPattern, error) {
	var pattern model.CorrectionPattern
	var vendor sql.NullString

	err := q.QueryRowContext(ctx, `
		SELECT id, field, original_value, corrected_value, vendor_name,
		       confidence, approval_count, rejection_count, created_at
		FROM correction_patterns
		WHERE id = ?
	`, id).Scan(&pattern.ID, &pattern.Field, &pattern.OriginalValue,
		&pattern.CorrectedValue, &vendor, &pattern.Confidence,
		&pattern.ApprovalCount, &pattern.RejectionCount, &pattern.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCorrectionPatternNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get correction pattern: %w", err)
	}
	if vendor.Valid {
		pattern.VendorName = vendor.String
	}

	return &pattern, nil
}

// UpdateCorrectionFeedback applies one approval or rejection atomically:
// confidence moves by the reinforcement delta (clamped in SQL) and the
// matching counter increments, all in a single transaction.
func (s *SQLiteStore) UpdateCorrectionFeedback(ctx context.Context, id string, approved bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if approved {
			return execAffected(ctx, tx, ErrCorrectionPatternNotFound, `
				UPDATE correction_patterns
				SET confidence = MIN(1.0, confidence + ?),
				    approval_count = approval_count + 1
				WHERE id = ?
			`, CorrectionApprovalDelta, id)
		}
		return execAffected(ctx, tx, ErrCorrectionPatternNotFound, `
			UPDATE correction_patterns
			SET confidence = MAX(0.0, confidence - ?),
			    rejection_count = rejection_count + 1
			WHERE id = ?
		`, CorrectionRejectionDelta, id)
	})
}
