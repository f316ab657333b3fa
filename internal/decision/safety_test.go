package decision

import (
	"testing"

	"github.com/marwick/invoice-triage/internal/model"
)

func TestEvaluateSafetyNoProposals(t *testing.T) {
	check := evaluateSafety(0.9, nil)
	if len(check.flags) != 0 || check.forcing {
		t.Errorf("evaluateSafety(0.9, nil) = %+v, want no flags", check)
	}
}

func TestEvaluateSafetyLowConfidenceBlockedDoesNotForce(t *testing.T) {
	proposals := []model.Correction{
		{Field: "description", OriginalValue: "a", CorrectedValue: "b", Confidence: 0.5},
	}

	check := evaluateSafety(0.9, proposals)
	if !check.has(model.FlagLowConfidenceBlocked) {
		t.Error("weak proposal did not raise low-confidence-corrections-blocked")
	}
	if check.forcing {
		t.Error("low-confidence-corrections-blocked must not force human review")
	}
}

func TestEvaluateSafetyTooManyCorrections(t *testing.T) {
	strong := func(n int) []model.Correction {
		proposals := make([]model.Correction, n)
		for i := range proposals {
			proposals[i] = model.Correction{
				Field: "description", OriginalValue: "a", CorrectedValue: "b",
				Confidence: 0.9,
			}
		}
		return proposals
	}

	atCap := evaluateSafety(0.9, strong(MaxHighConfidenceCorrections))
	if atCap.has(model.FlagTooManyCorrections) {
		t.Errorf("%d strong proposals raised the flag, want raised only above the cap",
			MaxHighConfidenceCorrections)
	}

	overCap := evaluateSafety(0.9, strong(MaxHighConfidenceCorrections+1))
	if !overCap.has(model.FlagTooManyCorrections) || !overCap.forcing {
		t.Error("proposals above the cap must raise a forcing too-many-corrections flag")
	}
}

func TestEvaluateSafetyCriticalField(t *testing.T) {
	weak := []model.Correction{
		{Field: "invoice_number", OriginalValue: "1", CorrectedValue: "2", Confidence: 0.8},
	}
	check := evaluateSafety(0.9, weak)
	if !check.has(model.FlagCriticalField) || !check.forcing {
		t.Error("sub-0.85 correction on a protected field must force critical-field-protection")
	}

	strong := []model.Correction{
		{Field: "invoice_number", OriginalValue: "1", CorrectedValue: "2", Confidence: 0.85},
	}
	check = evaluateSafety(0.9, strong)
	if check.has(model.FlagCriticalField) {
		t.Error("0.85 correction on a protected field should not raise critical-field-protection")
	}
}

func TestEvaluateSafetyOverallLowConfidence(t *testing.T) {
	check := evaluateSafety(0.64, nil)
	if !check.has(model.FlagOverallLowConfidence) || !check.forcing {
		t.Error("confidence below 0.65 must force overall-low-confidence")
	}

	check = evaluateSafety(0.65, nil)
	if check.has(model.FlagOverallLowConfidence) {
		t.Error("confidence at 0.65 should not raise overall-low-confidence")
	}
}

func TestIsLargeValueChange(t *testing.T) {
	tests := []struct {
		name       string
		correction model.Correction
		want       bool
	}{
		{
			"non-amount field never flags",
			model.Correction{Field: "description", OriginalValue: "a", CorrectedValue: "zzzzzz"},
			false,
		},
		{
			"within ratio",
			model.Correction{Field: "amount", OriginalValue: "100.00", CorrectedValue: "119.00"},
			false,
		},
		{
			"at ratio boundary",
			model.Correction{Field: "amount", OriginalValue: "100.00", CorrectedValue: "120.00"},
			false,
		},
		{
			"beyond ratio",
			model.Correction{Field: "amount", OriginalValue: "100.00", CorrectedValue: "121.00"},
			true,
		},
		{
			"formatted amounts",
			model.Correction{Field: "amount", OriginalValue: "$1,000.00", CorrectedValue: "$1,100.00"},
			false,
		},
		{
			"unparseable original",
			model.Correction{Field: "amount", OriginalValue: "n/a", CorrectedValue: "100"},
			true,
		},
		{
			"zero to nonzero",
			model.Correction{Field: "amount", OriginalValue: "0", CorrectedValue: "1"},
			true,
		},
		{
			"zero to zero",
			model.Correction{Field: "amount", OriginalValue: "0", CorrectedValue: "0.00"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isLargeValueChange(tt.correction); got != tt.want {
				t.Errorf("isLargeValueChange(%+v) = %v, want %v", tt.correction, got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"100", 100, true},
		{"$1,250.00", 1250, true},
		{" $ 99.50 ", 99.5, true},
		{"1,000,000", 1000000, true},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseAmount(tt.in)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("parseAmount(%q) = (%v, %v), want (%v, %v)",
				tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
