// Package decision selects the terminal processing action for a document
// from its memory confidence and proposed corrections, with safety
// constraints that always take precedence over raw confidence.
package decision

import (
	"log/slog"

	"github.com/marwick/invoice-triage/internal/model"
	"github.com/marwick/invoice-triage/internal/recall"
)

// Fixed decision thresholds.
const (
	// AutoAcceptThreshold is the minimum confidence for unattended acceptance.
	AutoAcceptThreshold = 0.85
	// AutoCorrectThreshold is the minimum confidence for unattended
	// correction; below it the document goes to a human.
	AutoCorrectThreshold = 0.65
)

// Input carries everything the decider needs for one document.
type Input struct {
	Invoice   *model.Invoice
	Snapshot  *recall.Snapshot
	Proposals []model.Correction
}

// Decider computes decisions. It is stateless and safe for concurrent use.
type Decider struct{}

// New creates a decider.
func New() *Decider {
	return &Decider{}
}

// Decide evaluates thresholds and safety constraints and returns one of the
// three actions with full reasoning. It never panics past this boundary: any
// internal failure degrades to a human-review fallback so the pipeline
// always terminates in a valid state.
func (d *Decider) Decide(input Input) (dec *model.Decision) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Decision computation failed, falling back to human review",
				"panic", r)
			dec = errorFallback()
		}
	}()

	if input.Snapshot == nil {
		return errorFallback()
	}

	confidence := model.ClampConfidence(input.Snapshot.OverallConfidence)
	check := evaluateSafety(confidence, input.Proposals)

	analysis := model.ThresholdAnalysis{
		Confidence:        confidence,
		AutoAcceptCutoff:  AutoAcceptThreshold,
		AutoCorrectCutoff: AutoCorrectThreshold,
		MeetsAutoAccept:   confidence >= AutoAcceptThreshold,
		MeetsAutoCorrect:  confidence >= AutoCorrectThreshold,
	}

	action := selectAction(analysis, check, input.Proposals)

	dec = &model.Decision{
		Action:      action,
		Confidence:  confidence,
		Corrections: filterCorrections(action, input.Proposals),
		SafetyFlags: check.flags,
		Thresholds:  analysis,
		MemoryIDs:   input.Snapshot.MemoryIDs(),
	}
	dec.Reasoning = buildReasoning(dec, input.Snapshot)

	return dec
}

// selectAction applies the precedence order: forcing safety flags first,
// then the confidence thresholds.
func selectAction(analysis model.ThresholdAnalysis, check safetyCheck, proposals []model.Correction) model.Action {
	if check.forcing {
		return model.ActionHumanReview
	}

	if analysis.MeetsAutoAccept && acceptableProposals(proposals) {
		return model.ActionAutoAccept
	}
	if analysis.MeetsAutoCorrect {
		return model.ActionAutoCorrect
	}
	return model.ActionHumanReview
}

// acceptableProposals reports whether the proposal set permits auto-accept:
// either no proposals exist, or at least one is both strong and on an
// unprotected field.
func acceptableProposals(proposals []model.Correction) bool {
	if len(proposals) == 0 {
		return true
	}
	for _, p := range proposals {
		if p.Confidence >= AutoAcceptThreshold && !model.IsProtectedField(p.Field) {
			return true
		}
	}
	return false
}

// filterCorrections re-filters the proposals for the chosen action.
func filterCorrections(action model.Action, proposals []model.Correction) []model.Correction {
	var kept []model.Correction

	switch action {
	case model.ActionAutoAccept:
		for _, p := range proposals {
			if p.Confidence >= AutoAcceptThreshold && !model.IsProtectedField(p.Field) {
				kept = append(kept, p)
			}
		}
	case model.ActionAutoCorrect:
		for _, p := range proposals {
			if p.Confidence < AutoCorrectThreshold {
				continue
			}
			if model.IsProtectedField(p.Field) && p.Confidence < AutoAcceptThreshold {
				continue
			}
			if isLargeValueChange(p) {
				continue
			}
			kept = append(kept, p)
		}
	case model.ActionHumanReview:
		// A human reviews the document from scratch; no machine corrections
		// ride along.
	}

	return kept
}

// errorFallback is the valid terminal state for any internal failure.
func errorFallback() *model.Decision {
	dec := &model.Decision{
		Action:      model.ActionHumanReview,
		Confidence:  0,
		SafetyFlags: []model.SafetyFlag{model.FlagErrorFallback},
		Thresholds: model.ThresholdAnalysis{
			AutoAcceptCutoff:  AutoAcceptThreshold,
			AutoCorrectCutoff: AutoCorrectThreshold,
		},
	}
	dec.Reasoning = fallbackReasoning()
	return dec
}
