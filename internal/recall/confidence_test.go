package recall

import (
	"math"
	"testing"

	"github.com/marwick/invoice-triage/internal/model"
)

func TestOverallConfidenceNoMemory(t *testing.T) {
	got := OverallConfidence(&Snapshot{})
	if got != NoMemoryFloor {
		t.Errorf("OverallConfidence(empty) = %v, want %v", got, NoMemoryFloor)
	}
}

func TestOverallConfidenceAllSources(t *testing.T) {
	snapshot := &Snapshot{
		VendorPatterns: []model.VendorPattern{
			{Confidence: 0.8, UseCount: 3},
			{Confidence: 0.4, UseCount: 1},
		},
		CorrectionPatterns: []model.CorrectionPattern{
			{Confidence: 0.6},
			{Confidence: 0.8},
		},
		ResolutionOutcomes: []model.ResolutionOutcome{
			{Confidence: 0.5},
		},
	}

	// vendor: (0.8*3 + 0.4*1) / 4 = 0.7; correction: 0.7; resolution: 0.5
	want := 0.5*0.7 + 0.3*0.7 + 0.2*0.5
	got := OverallConfidence(snapshot)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("OverallConfidence() = %v, want %v", got, want)
	}
}

func TestOverallConfidenceRenormalizes(t *testing.T) {
	t.Run("vendor only", func(t *testing.T) {
		snapshot := &Snapshot{
			VendorPatterns: []model.VendorPattern{{Confidence: 0.6, UseCount: 5}},
		}
		got := OverallConfidence(snapshot)
		if math.Abs(got-0.6) > 1e-9 {
			t.Errorf("OverallConfidence() = %v, want 0.6 when only one source", got)
		}
	})

	t.Run("corrections and resolutions", func(t *testing.T) {
		snapshot := &Snapshot{
			CorrectionPatterns: []model.CorrectionPattern{{Confidence: 0.9}},
			ResolutionOutcomes: []model.ResolutionOutcome{{Confidence: 0.4}},
		}
		// (0.3*0.9 + 0.2*0.4) / 0.5
		want := (0.3*0.9 + 0.2*0.4) / 0.5
		got := OverallConfidence(snapshot)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("OverallConfidence() = %v, want %v", got, want)
		}
	})
}

func TestVendorConfidenceWeighting(t *testing.T) {
	// The heavily used pattern dominates the unused one.
	patterns := []model.VendorPattern{
		{Confidence: 0.9, UseCount: 99},
		{Confidence: 0.1, UseCount: 0},
	}
	got := vendorConfidence(patterns)
	want := (0.9*99 + 0.1*1) / 100
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("vendorConfidence() = %v, want %v", got, want)
	}
}

func TestOverallConfidenceNeverExceedsOne(t *testing.T) {
	snapshot := &Snapshot{
		VendorPatterns:     []model.VendorPattern{{Confidence: 1.0, UseCount: 50}},
		CorrectionPatterns: []model.CorrectionPattern{{Confidence: 1.0}},
		ResolutionOutcomes: []model.ResolutionOutcome{{Confidence: 1.0}},
	}
	if got := OverallConfidence(snapshot); got > 1.0 {
		t.Errorf("OverallConfidence() = %v, want <= 1.0", got)
	}
}
