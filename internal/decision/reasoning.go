package decision

import (
	"fmt"
	"strings"

	"github.com/marwick/invoice-triage/internal/model"
	"github.com/marwick/invoice-triage/internal/recall"
)

// The reasoning builders are pure functions from decision context to text so
// they can be unit-tested in isolation. Output is fully deterministic.

// buildReasoning assembles the multi-part reasoning string for a decision:
// confidence summary, memory summary, threshold comparison, safety
// constraints, per-action explanation, and the recall rationale trail.
func buildReasoning(dec *model.Decision, snapshot *recall.Snapshot) string {
	parts := []string{
		confidenceSummary(dec.Confidence),
		memorySummary(snapshot),
		thresholdComparison(dec.Thresholds),
	}

	if flags := safetySummary(dec.SafetyFlags); flags != "" {
		parts = append(parts, flags)
	}

	parts = append(parts, actionExplanation(dec.Action, len(dec.Corrections)))

	if trail := rationaleTrail(snapshot); trail != "" {
		parts = append(parts, trail)
	}

	return strings.Join(parts, " | ")
}

func confidenceSummary(confidence float64) string {
	return fmt.Sprintf("overall confidence %.2f", confidence)
}

func memorySummary(snapshot *recall.Snapshot) string {
	if snapshot.Empty() {
		return "no historical memory for this document"
	}
	return fmt.Sprintf("memory: %d vendor patterns, %d correction patterns, %d resolution outcomes",
		len(snapshot.VendorPatterns),
		len(snapshot.CorrectionPatterns),
		len(snapshot.ResolutionOutcomes))
}

func thresholdComparison(t model.ThresholdAnalysis) string {
	switch {
	case t.MeetsAutoAccept:
		return fmt.Sprintf("confidence %.2f meets auto-accept threshold %.2f",
			t.Confidence, t.AutoAcceptCutoff)
	case t.MeetsAutoCorrect:
		return fmt.Sprintf("confidence %.2f meets auto-correct threshold %.2f but not auto-accept threshold %.2f",
			t.Confidence, t.AutoCorrectCutoff, t.AutoAcceptCutoff)
	default:
		return fmt.Sprintf("confidence %.2f below auto-correct threshold %.2f",
			t.Confidence, t.AutoCorrectCutoff)
	}
}

func safetySummary(flags []model.SafetyFlag) string {
	if len(flags) == 0 {
		return ""
	}
	names := make([]string, len(flags))
	for i, f := range flags {
		names[i] = string(f)
	}
	return "safety constraints: " + strings.Join(names, ", ")
}

func actionExplanation(action model.Action, corrections int) string {
	switch action {
	case model.ActionAutoAccept:
		return fmt.Sprintf("auto-accepting with %d corrections applied", corrections)
	case model.ActionAutoCorrect:
		return fmt.Sprintf("auto-correcting %d fields before acceptance", corrections)
	default:
		return "routing to human review"
	}
}

func rationaleTrail(snapshot *recall.Snapshot) string {
	if len(snapshot.Rationale) == 0 {
		return ""
	}
	return "memory rationale: " + strings.Join(snapshot.Rationale, "; ")
}

func fallbackReasoning() string {
	return "internal error during decision computation; routing to human review with zero confidence"
}
