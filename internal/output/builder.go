// Package output converts internal decisions into the externally published
// result contract. The contract shape is never broken: any validation
// failure or internal error yields a standard error-shaped result.
package output

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/marwick/invoice-triage/internal/common"
	"github.com/marwick/invoice-triage/internal/model"
	"github.com/marwick/invoice-triage/internal/recall"
)

// Build constructs the published result from a decision, the memory snapshot
// that informed it, and the recent audit entries for its trail. Every field
// is validated against the contract; a failure anywhere falls back to the
// error-shaped result instead of propagating.
func Build(documentID string, dec *model.Decision, snapshot *recall.Snapshot, audit []model.AuditEntry) (result *model.ProcessingResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Result construction failed", "document_id", documentID, "panic", r)
			result = ErrorResult(documentID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	built, err := build(documentID, dec, snapshot, audit)
	if err != nil {
		common.LogError(err, "Result validation failed", common.Fields{
			"document_id": documentID,
		})
		return ErrorResult(documentID, err.Error())
	}
	return built
}

func build(documentID string, dec *model.Decision, snapshot *recall.Snapshot, audit []model.AuditEntry) (*model.ProcessingResult, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document id is empty")
	}
	if dec == nil {
		return nil, fmt.Errorf("decision is nil")
	}
	if !dec.Action.Valid() {
		return nil, fmt.Errorf("invalid action %q", dec.Action)
	}
	if !model.ValidConfidence(dec.Confidence) {
		return nil, fmt.Errorf("confidence %v out of range", dec.Confidence)
	}
	if dec.Reasoning == "" {
		return nil, fmt.Errorf("reasoning is empty")
	}
	if snapshot == nil {
		return nil, fmt.Errorf("memory snapshot is nil")
	}

	corrections := make([]model.Correction, 0, len(dec.Corrections))
	for _, c := range dec.Corrections {
		if c.Field == "" {
			return nil, fmt.Errorf("correction with empty field")
		}
		if !model.ValidConfidence(c.Confidence) {
			return nil, fmt.Errorf("correction on %q has confidence %v out of range", c.Field, c.Confidence)
		}
		corrections = append(corrections, c)
	}

	trail := make([]model.AuditRecord, 0, len(audit))
	for _, entry := range audit {
		record, err := auditRecord(entry)
		if err != nil {
			return nil, err
		}
		trail = append(trail, record)
	}

	return &model.ProcessingResult{
		DocumentID:         documentID,
		Decision:           dec.Action,
		ConfidenceScore:    dec.Confidence,
		Reasoning:          dec.Reasoning,
		AppliedCorrections: corrections,
		MemoryInsights:     insights(dec, snapshot),
		AuditTrail:         trail,
	}, nil
}

func auditRecord(entry model.AuditEntry) (model.AuditRecord, error) {
	if entry.ID == "" {
		return model.AuditRecord{}, fmt.Errorf("audit entry missing id")
	}
	if entry.CreatedAt.IsZero() {
		return model.AuditRecord{}, fmt.Errorf("audit entry %s missing timestamp", entry.ID)
	}

	reasoning := entry.Reasoning
	if reasoning == "" {
		reasoning = entry.Operation
	}

	return model.AuditRecord{
		OperationID: entry.ID,
		Timestamp:   entry.CreatedAt.UTC().Format(time.RFC3339),
		Reasoning:   reasoning,
	}, nil
}

// insights summarizes memory usage. Historical accuracy is the success rate
// of the recalled resolution outcomes; zero when there is no history.
func insights(dec *model.Decision, snapshot *recall.Snapshot) model.MemoryInsights {
	accuracy := 0.0
	if len(snapshot.ResolutionOutcomes) > 0 {
		successful := 0
		for _, o := range snapshot.ResolutionOutcomes {
			if o.Successful {
				successful++
			}
		}
		accuracy = float64(successful) / float64(len(snapshot.ResolutionOutcomes))
	}

	return model.MemoryInsights{
		VendorPatternsUsed: len(snapshot.VendorPatterns),
		CorrectionsApplied: len(dec.Corrections),
		HistoricalAccuracy: accuracy,
	}
}

// ErrorResult is the standard error-shaped result: human review, zero
// confidence, no corrections, and a single audit record describing the
// failure.
func ErrorResult(documentID, reason string) *model.ProcessingResult {
	if documentID == "" {
		documentID = "unknown"
	}

	return &model.ProcessingResult{
		DocumentID:         documentID,
		Decision:           model.ActionHumanReview,
		ConfidenceScore:    0.0,
		Reasoning:          fmt.Sprintf("result construction failed: %s; routed to human review", reason),
		AppliedCorrections: []model.Correction{},
		MemoryInsights:     model.MemoryInsights{},
		AuditTrail: []model.AuditRecord{{
			OperationID: uuid.NewString(),
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
			Reasoning:   fmt.Sprintf("output failure: %s", reason),
		}},
	}
}
