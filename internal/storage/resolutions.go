package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/marwick/invoice-triage/internal/common"
	"github.com/marwick/invoice-triage/internal/model"
)

// StoreResolutionOutcome records a decision outcome. Outcomes are write-once;
// a conflicting id is rejected rather than silently overwritten.
func (s *SQLiteStore) StoreResolutionOutcome(ctx context.Context, outcome *model.ResolutionOutcome) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if outcome == nil {
		return fmt.Errorf("%w: outcome", ErrNilParameter)
	}
	if err := outcome.Validate(); err != nil {
		return fmt.Errorf("invalid resolution outcome: %w", err)
	}

	if outcome.ID == "" {
		outcome.ID = uuid.NewString()
	}
	if outcome.CreatedAt.IsZero() {
		outcome.CreatedAt = time.Now().UTC()
	}
	outcome.Confidence = model.ClampConfidence(outcome.Confidence)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO resolution_outcomes
				(id, pattern_key, action, confidence, successful, reasoning, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, outcome.ID, outcome.PatternKey, string(outcome.Action),
			outcome.Confidence, outcome.Successful, outcome.Reasoning, outcome.CreatedAt)
		if err != nil {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
				return fmt.Errorf("%w: resolution outcome %s", common.ErrDuplicateEntry, outcome.ID)
			}
			return fmt.Errorf("failed to save resolution outcome: %w", err)
		}
		return nil
	})
}

// GetResolutionOutcomes retrieves outcomes whose stored pattern key contains
// the given key, ordered by confidence descending. Substring matching keeps
// recall loose across minor shape differences; exact filtering is the
// caller's policy decision.
func (s *SQLiteStore) GetResolutionOutcomes(ctx context.Context, patternKey string) ([]model.ResolutionOutcome, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(patternKey, "patternKey"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pattern_key, action, confidence, successful, reasoning, created_at
		FROM resolution_outcomes
		WHERE instr(pattern_key, ?) > 0 OR instr(?, pattern_key) > 0
		ORDER BY confidence DESC, created_at DESC
	`, patternKey, patternKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolution outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var outcomes []model.ResolutionOutcome
	for rows.Next() {
		var outcome model.ResolutionOutcome
		var action string

		err := rows.Scan(&outcome.ID, &outcome.PatternKey, &action,
			&outcome.Confidence, &outcome.Successful, &outcome.Reasoning,
			&outcome.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolution outcome: %w", err)
		}
		outcome.Action = model.Action(action)
		outcomes = append(outcomes, outcome)
	}

	return outcomes, rows.Err()
}
