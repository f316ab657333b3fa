package apply

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/marwick/invoice-triage/internal/model"
	"github.com/marwick/invoice-triage/internal/recall"
)

// Proposal thresholds.
const (
	// MinProposalConfidence filters correction patterns too weak to propose.
	MinProposalConfidence = 0.5
	// AutoApplyThreshold is the confidence needed for unattended application.
	AutoApplyThreshold = 0.85
)

// ProposeCorrections matches each field value against the recalled
// correction patterns and keeps the single highest-confidence proposal per
// field. A later candidate replaces the kept one only when strictly more
// confident.
func (a *Applier) ProposeCorrections(fields []Field, snapshot *recall.Snapshot) []model.Correction {
	best := make(map[string]model.Correction)

	for _, field := range fields {
		for _, pattern := range snapshot.CorrectionPatterns {
			if pattern.Field != field.Name {
				continue
			}
			if pattern.Confidence < MinProposalConfidence {
				continue
			}
			if !Similar(pattern.OriginalValue, field.Value) {
				continue
			}
			if pattern.CorrectedValue == field.Value {
				continue
			}

			kept, exists := best[field.Name]
			if exists && pattern.Confidence <= kept.Confidence {
				continue
			}

			best[field.Name] = model.Correction{
				Field:          field.Name,
				OriginalValue:  field.Value,
				CorrectedValue: pattern.CorrectedValue,
				Confidence:     pattern.Confidence,
				PatternID:      pattern.ID,
				Reason: fmt.Sprintf(
					"value matches historical correction %q -> %q (%d approvals, %d rejections)",
					pattern.OriginalValue, pattern.CorrectedValue,
					pattern.ApprovalCount, pattern.RejectionCount),
			}
		}
	}

	proposals := make([]model.Correction, 0, len(best))
	for _, c := range best {
		proposals = append(proposals, c)
	}
	sort.Slice(proposals, func(i, j int) bool {
		if proposals[i].Confidence != proposals[j].Confidence {
			return proposals[i].Confidence > proposals[j].Confidence
		}
		return proposals[i].Field < proposals[j].Field
	})

	return proposals
}

// AutoApply filters proposals to those safe for unattended application:
// at or above the auto-apply threshold and never on a protected field.
// Each applied correction emits one audit-style log event.
func (a *Applier) AutoApply(documentID string, proposals []model.Correction) []model.Correction {
	applied := make([]model.Correction, 0, len(proposals))

	for _, proposal := range proposals {
		if proposal.Confidence < AutoApplyThreshold {
			continue
		}
		if model.IsProtectedField(proposal.Field) {
			slog.Debug("Skipping auto-apply on protected field",
				"document_id", documentID,
				"field", proposal.Field,
				"confidence", proposal.Confidence)
			continue
		}

		applied = append(applied, proposal)
		slog.Info("Auto-applied correction",
			"document_id", documentID,
			"field", proposal.Field,
			"original", proposal.OriginalValue,
			"corrected", proposal.CorrectedValue,
			"confidence", proposal.Confidence)
	}

	return applied
}
