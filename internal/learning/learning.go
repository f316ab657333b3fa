// Package learning updates pattern confidence from human feedback and
// records new patterns from human-supplied corrections.
package learning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marwick/invoice-triage/internal/common"
	"github.com/marwick/invoice-triage/internal/model"
	"github.com/marwick/invoice-triage/internal/service"
	"github.com/marwick/invoice-triage/internal/storage"
)

// Reinforcement deltas. Vendor patterns move in smaller steps than
// correction patterns, and rejection always costs more than approval earns.
const (
	VendorApprovalDelta  = 0.05
	VendorRejectionDelta = 0.1

	// InitialCorrectionConfidence is the starting score for a pattern
	// created from a human correction: trusted, but not fully.
	InitialCorrectionConfidence = 0.7

	// initialVendorConfidence seeds a vendor pattern created on first
	// human-guided processing of a vendor.
	initialVendorConfidence = 0.5
)

// Learner applies feedback to stored patterns. The learned-document set and
// event log are owned by the instance, not process-global, so tests get a
// fresh learner each time. Safe for concurrent use.
type Learner struct {
	store   service.PatternStore
	learned map[string]bool
	events  []event
	mu      sync.Mutex
}

// New creates a learner backed by the given pattern store.
func New(store service.PatternStore) *Learner {
	return &Learner{
		store:   store,
		learned: make(map[string]bool),
	}
}

// reserve marks a document as learned. Returns false if it already was.
func (l *Learner) reserve(documentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.learned[documentID] {
		return false
	}
	l.learned[documentID] = true
	return true
}

// release undoes a reservation after a failed learning attempt so the
// feedback can be retried.
func (l *Learner) release(documentID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.learned, documentID)
}

// auditSkip records that a duplicate learning attempt was ignored. The skip
// itself is traceable even though nothing changed.
func (l *Learner) auditSkip(ctx context.Context, documentID string) {
	entry := &model.AuditEntry{
		Operation:  "learning_skipped",
		EntityType: model.EntityDocument,
		EntityID:   documentID,
		Reasoning:  "document already used for learning; duplicate feedback ignored",
	}
	if err := l.store.AppendAuditEntry(ctx, entry); err != nil {
		slog.Warn("Failed to record learning skip", "document_id", documentID, "error", err)
	}
}

// ProcessFeedback applies one approval or rejection to the referenced
// memory entities. A second call for the same document id is a no-op that
// still produces one audit entry documenting the skip. Store failures
// propagate as typed learning errors; entries already written stay written.
func (l *Learner) ProcessFeedback(ctx context.Context, feedback model.Feedback) error {
	if feedback.DocumentID == "" {
		return common.NewLearningError("", fmt.Errorf("document id is required"))
	}

	if !l.reserve(feedback.DocumentID) {
		l.auditSkip(ctx, feedback.DocumentID)
		return nil
	}

	if err := l.applyFeedback(ctx, feedback); err != nil {
		l.release(feedback.DocumentID)
		return common.NewLearningError(feedback.DocumentID, err)
	}

	l.recordEvent(event{
		kind:       eventReinforcement,
		documentID: feedback.DocumentID,
		at:         time.Now(),
	})

	return nil
}

func (l *Learner) applyFeedback(ctx context.Context, feedback model.Feedback) error {
	if feedback.CorrectionID != "" {
		if err := l.reinforceCorrection(ctx, feedback); err != nil {
			return err
		}
	}
	if feedback.VendorPatternID != "" {
		if err := l.reinforceVendor(ctx, feedback); err != nil {
			return err
		}
	}
	return nil
}

func (l *Learner) reinforceCorrection(ctx context.Context, feedback model.Feedback) error {
	before, err := l.store.GetCorrectionPattern(ctx, feedback.CorrectionID)
	if err != nil {
		return fmt.Errorf("correction pattern %s: %w", feedback.CorrectionID, err)
	}

	if err := l.store.UpdateCorrectionFeedback(ctx, feedback.CorrectionID, feedback.Approved); err != nil {
		return fmt.Errorf("failed to update correction feedback: %w", err)
	}

	after, err := l.store.GetCorrectionPattern(ctx, feedback.CorrectionID)
	if err != nil {
		return fmt.Errorf("correction pattern %s after update: %w", feedback.CorrectionID, err)
	}

	l.recordEvent(event{
		kind:       reinforcementKind(feedback.Approved),
		memoryType: model.EntityCorrectionPattern,
		delta:      after.Confidence - before.Confidence,
		documentID: feedback.DocumentID,
		at:         time.Now(),
	})

	return l.auditChange(ctx, "correction_feedback", model.EntityCorrectionPattern,
		feedback.CorrectionID, before, after, feedbackReason(feedback), after.Confidence)
}

func (l *Learner) reinforceVendor(ctx context.Context, feedback model.Feedback) error {
	delta := VendorApprovalDelta
	if !feedback.Approved {
		delta = -VendorRejectionDelta
	}

	err := l.store.AdjustVendorConfidence(ctx, feedback.VendorPatternID, delta)
	if err != nil {
		return fmt.Errorf("vendor pattern %s: %w", feedback.VendorPatternID, err)
	}

	l.recordEvent(event{
		kind:       reinforcementKind(feedback.Approved),
		memoryType: model.EntityVendorPattern,
		delta:      delta,
		documentID: feedback.DocumentID,
		at:         time.Now(),
	})

	return l.auditChange(ctx, "vendor_feedback", model.EntityVendorPattern,
		feedback.VendorPatternID, nil, nil, feedbackReason(feedback), 0)
}

// LearnFromCorrections records the patterns a human correction teaches us:
// one new correction pattern per corrected field and one resolution outcome
// capturing the final decision context. Duplicate document ids are skipped
// with an audit entry.
func (l *Learner) LearnFromCorrections(ctx context.Context, invoice *model.Invoice, corrections []model.Correction, dec *model.Decision) error {
	if invoice == nil || invoice.ID == "" {
		return common.NewLearningError("", fmt.Errorf("invoice with id is required"))
	}

	if !l.reserve(invoice.ID) {
		l.auditSkip(ctx, invoice.ID)
		return nil
	}

	if err := l.learnCorrections(ctx, invoice, corrections, dec); err != nil {
		l.release(invoice.ID)
		return common.NewLearningError(invoice.ID, err)
	}

	return nil
}

func (l *Learner) learnCorrections(ctx context.Context, invoice *model.Invoice, corrections []model.Correction, dec *model.Decision) error {
	if err := l.ensureVendorPattern(ctx, invoice.VendorName); err != nil {
		return err
	}

	for _, correction := range corrections {
		pattern := &model.CorrectionPattern{
			Field:          correction.Field,
			OriginalValue:  correction.OriginalValue,
			CorrectedValue: correction.CorrectedValue,
			VendorName:     invoice.VendorName,
			Confidence:     InitialCorrectionConfidence,
			ApprovalCount:  1,
		}
		if err := l.store.StoreCorrectionPattern(ctx, pattern); err != nil {
			return fmt.Errorf("failed to store correction pattern for field %q: %w",
				correction.Field, err)
		}

		l.recordEvent(event{
			kind:       eventNewPattern,
			memoryType: model.EntityCorrectionPattern,
			delta:      InitialCorrectionConfidence,
			documentID: invoice.ID,
			at:         time.Now(),
		})

		if err := l.auditChange(ctx, "correction_learned", model.EntityCorrectionPattern,
			pattern.ID, nil, pattern,
			fmt.Sprintf("human corrected %q from %q to %q on document %s",
				correction.Field, correction.OriginalValue, correction.CorrectedValue, invoice.ID),
			pattern.Confidence); err != nil {
			return err
		}
	}

	outcome := &model.ResolutionOutcome{
		PatternKey: invoice.ShapeKey(),
		Action:     outcomeAction(dec),
		Confidence: outcomeConfidence(dec),
		Successful: true,
		Reasoning:  fmt.Sprintf("human-reviewed resolution of document %s", invoice.ID),
	}
	if err := l.store.StoreResolutionOutcome(ctx, outcome); err != nil {
		return fmt.Errorf("failed to store resolution outcome: %w", err)
	}

	l.recordEvent(event{
		kind:       eventNewPattern,
		memoryType: model.EntityResolutionOutcome,
		delta:      outcome.Confidence,
		documentID: invoice.ID,
		at:         time.Now(),
	})

	return l.auditChange(ctx, "resolution_learned", model.EntityResolutionOutcome,
		outcome.ID, nil, outcome, outcome.Reasoning, outcome.Confidence)
}

// ensureVendorPattern creates an empty vendor pattern the first time a
// vendor goes through human-guided processing.
func (l *Learner) ensureVendorPattern(ctx context.Context, vendorName string) error {
	existing, err := l.store.GetVendorPatterns(ctx, vendorName)
	if err != nil {
		return fmt.Errorf("failed to check vendor patterns: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	pattern := &model.VendorPattern{
		VendorName: vendorName,
		Confidence: initialVendorConfidence,
	}
	if err := l.store.StoreVendorPattern(ctx, pattern); err != nil {
		return fmt.Errorf("failed to create vendor pattern: %w", err)
	}

	l.recordEvent(event{
		kind:       eventNewPattern,
		memoryType: model.EntityVendorPattern,
		delta:      initialVendorConfidence,
		at:         time.Now(),
	})

	return l.auditChange(ctx, "vendor_pattern_created", model.EntityVendorPattern,
		pattern.ID, nil, pattern,
		fmt.Sprintf("first human-guided processing for vendor %q", vendorName),
		pattern.Confidence)
}

// auditChange writes one audit entry with optional before/after snapshots.
func (l *Learner) auditChange(ctx context.Context, operation, entityType, entityID string, before, after any, reasoning string, confidence float64) error {
	entry := &model.AuditEntry{
		Operation:  operation,
		EntityType: entityType,
		EntityID:   entityID,
		Reasoning:  reasoning,
	}
	if confidence > 0 {
		c := model.ClampConfidence(confidence)
		entry.Confidence = &c
	}
	if before != nil {
		if data, err := json.Marshal(before); err == nil {
			entry.Before = string(data)
		}
	}
	if after != nil {
		if data, err := json.Marshal(after); err == nil {
			entry.After = string(data)
		}
	}

	if err := l.store.AppendAuditEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func feedbackReason(feedback model.Feedback) string {
	verdict := "approved"
	if !feedback.Approved {
		verdict = "rejected"
	}
	if feedback.Reasoning != "" {
		return fmt.Sprintf("%s by reviewer: %s", verdict, feedback.Reasoning)
	}
	return verdict + " by reviewer"
}

func outcomeAction(dec *model.Decision) model.Action {
	if dec == nil || !dec.Action.Valid() {
		return model.ActionHumanReview
	}
	return dec.Action
}

func outcomeConfidence(dec *model.Decision) float64 {
	if dec == nil {
		return InitialCorrectionConfidence
	}
	return model.ClampConfidence(dec.Confidence)
}

// IsCorrectionNotFound reports whether a learning error stems from a missing
// correction pattern.
func IsCorrectionNotFound(err error) bool {
	return errors.Is(err, storage.ErrCorrectionPatternNotFound)
}
