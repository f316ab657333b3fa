package learning

import (
	"context"
	"math"
	"testing"

	"github.com/marwick/invoice-triage/internal/model"
	"github.com/marwick/invoice-triage/internal/service"
	"github.com/marwick/invoice-triage/internal/storage"
	"github.com/marwick/invoice-triage/internal/testutil"
)

func storeCorrectionPattern(t *testing.T, store *storage.SQLiteStore, confidence float64) *model.CorrectionPattern {
	t.Helper()

	pattern := &model.CorrectionPattern{
		Field:          "vendor_name",
		OriginalValue:  "Acme Corp",
		CorrectedValue: "ACME Corporation",
		Confidence:     confidence,
	}
	if err := store.StoreCorrectionPattern(context.Background(), pattern); err != nil {
		t.Fatalf("StoreCorrectionPattern() error = %v", err)
	}
	return pattern
}

func TestProcessFeedbackApproval(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)
	learner := New(store)
	pattern := storeCorrectionPattern(t, store, 0.5)

	err := learner.ProcessFeedback(ctx, model.Feedback{
		DocumentID:   "inv-1",
		CorrectionID: pattern.ID,
		Approved:     true,
	})
	if err != nil {
		t.Fatalf("ProcessFeedback() error = %v", err)
	}

	got, err := store.GetCorrectionPattern(ctx, pattern.ID)
	if err != nil {
		t.Fatalf("GetCorrectionPattern() error = %v", err)
	}
	if math.Abs(got.Confidence-0.6) > 1e-9 {
		t.Errorf("confidence = %v, want 0.6", got.Confidence)
	}
	if got.ApprovalCount != 1 {
		t.Errorf("approval count = %d, want 1", got.ApprovalCount)
	}
}

func TestProcessFeedbackRejection(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)
	learner := New(store)
	pattern := storeCorrectionPattern(t, store, 0.5)

	err := learner.ProcessFeedback(ctx, model.Feedback{
		DocumentID:   "inv-1",
		CorrectionID: pattern.ID,
		Approved:     false,
	})
	if err != nil {
		t.Fatalf("ProcessFeedback() error = %v", err)
	}

	got, err := store.GetCorrectionPattern(ctx, pattern.ID)
	if err != nil {
		t.Fatalf("GetCorrectionPattern() error = %v", err)
	}
	if math.Abs(got.Confidence-0.35) > 1e-9 {
		t.Errorf("confidence = %v, want 0.35", got.Confidence)
	}
	if got.RejectionCount != 1 {
		t.Errorf("rejection count = %d, want 1", got.RejectionCount)
	}
}

func TestProcessFeedbackVendorPattern(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)
	learner := New(store)

	vendor := &model.VendorPattern{VendorName: "Acme", Confidence: 0.5}
	if err := store.StoreVendorPattern(ctx, vendor); err != nil {
		t.Fatalf("StoreVendorPattern() error = %v", err)
	}

	t.Run("approval", func(t *testing.T) {
		err := learner.ProcessFeedback(ctx, model.Feedback{
			DocumentID:      "inv-1",
			VendorPatternID: vendor.ID,
			Approved:        true,
		})
		if err != nil {
			t.Fatalf("ProcessFeedback() error = %v", err)
		}

		patterns, err := store.GetVendorPatterns(ctx, "Acme")
		if err != nil {
			t.Fatalf("GetVendorPatterns() error = %v", err)
		}
		if math.Abs(patterns[0].Confidence-0.55) > 1e-9 {
			t.Errorf("confidence = %v, want 0.55", patterns[0].Confidence)
		}
	})

	t.Run("rejection", func(t *testing.T) {
		err := learner.ProcessFeedback(ctx, model.Feedback{
			DocumentID:      "inv-2",
			VendorPatternID: vendor.ID,
			Approved:        false,
		})
		if err != nil {
			t.Fatalf("ProcessFeedback() error = %v", err)
		}

		patterns, err := store.GetVendorPatterns(ctx, "Acme")
		if err != nil {
			t.Fatalf("GetVendorPatterns() error = %v", err)
		}
		if math.Abs(patterns[0].Confidence-0.45) > 1e-9 {
			t.Errorf("confidence = %v, want 0.45", patterns[0].Confidence)
		}
	})
}

func TestProcessFeedbackIdempotent(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)
	learner := New(store)
	pattern := storeCorrectionPattern(t, store, 0.5)

	feedback := model.Feedback{
		DocumentID:   "inv-1",
		CorrectionID: pattern.ID,
		Approved:     true,
	}

	if err := learner.ProcessFeedback(ctx, feedback); err != nil {
		t.Fatalf("first ProcessFeedback() error = %v", err)
	}
	if err := learner.ProcessFeedback(ctx, feedback); err != nil {
		t.Fatalf("duplicate ProcessFeedback() error = %v", err)
	}

	// The second call changed nothing.
	got, err := store.GetCorrectionPattern(ctx, pattern.ID)
	if err != nil {
		t.Fatalf("GetCorrectionPattern() error = %v", err)
	}
	if math.Abs(got.Confidence-0.6) > 1e-9 {
		t.Errorf("confidence = %v, want 0.6 after duplicate feedback", got.Confidence)
	}
	if got.ApprovalCount != 1 {
		t.Errorf("approval count = %d, want 1", got.ApprovalCount)
	}

	// But the skip itself left a trace.
	entries, err := store.QueryAuditEntries(ctx, service.AuditFilter{
		Operation: "learning_skipped",
		EntityID:  "inv-1",
	})
	if err != nil {
		t.Fatalf("QueryAuditEntries() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("skip audit entries = %d, want 1", len(entries))
	}
}

func TestProcessFeedbackFailureAllowsRetry(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)
	learner := New(store)

	// First attempt references a missing pattern and fails.
	err := learner.ProcessFeedback(ctx, model.Feedback{
		DocumentID:   "inv-1",
		CorrectionID: "no-such-id",
		Approved:     true,
	})
	if err == nil {
		t.Fatal("ProcessFeedback() with missing pattern error = nil, want error")
	}
	if !IsCorrectionNotFound(err) {
		t.Errorf("error = %v, want correction-not-found", err)
	}

	// The failed document id is not burned; a corrected retry succeeds.
	pattern := storeCorrectionPattern(t, store, 0.5)
	err = learner.ProcessFeedback(ctx, model.Feedback{
		DocumentID:   "inv-1",
		CorrectionID: pattern.ID,
		Approved:     true,
	})
	if err != nil {
		t.Fatalf("retry ProcessFeedback() error = %v", err)
	}
}

func TestProcessFeedbackRequiresDocumentID(t *testing.T) {
	store := testutil.SetupTestStore(t)
	learner := New(store)

	err := learner.ProcessFeedback(context.Background(), model.Feedback{Approved: true})
	if err == nil {
		t.Error("ProcessFeedback() without document id error = nil, want error")
	}
}

func TestLearnFromCorrections(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)
	learner := New(store)

	invoice := &model.Invoice{
		ID:         "inv-1",
		VendorName: "Acme Corp",
		Amount:     250,
		RawFields:  map[string]string{"vendor_name": "Acme Corp"},
	}
	corrections := []model.Correction{
		{Field: "vendor_name", OriginalValue: "Acme Corp", CorrectedValue: "ACME Corporation"},
	}
	dec := &model.Decision{Action: model.ActionHumanReview, Confidence: 0.4}

	if err := learner.LearnFromCorrections(ctx, invoice, corrections, dec); err != nil {
		t.Fatalf("LearnFromCorrections() error = %v", err)
	}

	// New correction pattern starts at the initial confidence.
	patterns, err := store.GetCorrectionPatterns(ctx, "vendor_name", "Acme Corp")
	if err != nil {
		t.Fatalf("GetCorrectionPatterns() error = %v", err)
	}
	if len(patterns) != 1 {
		t.Fatalf("correction patterns = %d, want 1", len(patterns))
	}
	if patterns[0].Confidence != InitialCorrectionConfidence {
		t.Errorf("confidence = %v, want %v", patterns[0].Confidence, InitialCorrectionConfidence)
	}
	if patterns[0].ApprovalCount != 1 {
		t.Errorf("approval count = %d, want 1", patterns[0].ApprovalCount)
	}

	// The resolution outcome captures the invoice shape.
	outcomes, err := store.GetResolutionOutcomes(ctx, invoice.ShapeKey())
	if err != nil {
		t.Fatalf("GetResolutionOutcomes() error = %v", err)
	}
	if len(outcomes) != 1 || !outcomes[0].Successful {
		t.Errorf("outcomes = %+v, want one successful outcome", outcomes)
	}

	// A vendor pattern was seeded for the previously unknown vendor.
	vendors, err := store.GetVendorPatterns(ctx, "Acme Corp")
	if err != nil {
		t.Fatalf("GetVendorPatterns() error = %v", err)
	}
	if len(vendors) != 1 {
		t.Fatalf("vendor patterns = %d, want 1", len(vendors))
	}
	if vendors[0].Confidence != 0.5 {
		t.Errorf("seeded vendor confidence = %v, want 0.5", vendors[0].Confidence)
	}
}

func TestLearnFromCorrectionsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)
	learner := New(store)

	invoice := &model.Invoice{ID: "inv-1", VendorName: "Acme", Amount: 10}
	corrections := []model.Correction{
		{Field: "po_number", OriginalValue: "PO 1", CorrectedValue: "PO-1"},
	}

	if err := learner.LearnFromCorrections(ctx, invoice, corrections, nil); err != nil {
		t.Fatalf("first LearnFromCorrections() error = %v", err)
	}
	if err := learner.LearnFromCorrections(ctx, invoice, corrections, nil); err != nil {
		t.Fatalf("duplicate LearnFromCorrections() error = %v", err)
	}

	patterns, err := store.GetCorrectionPatterns(ctx, "po_number", "Acme")
	if err != nil {
		t.Fatalf("GetCorrectionPatterns() error = %v", err)
	}
	if len(patterns) != 1 {
		t.Errorf("correction patterns = %d, want 1 after duplicate learning", len(patterns))
	}
}

func TestLearnFromCorrectionsKeepsExistingVendorPattern(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)
	learner := New(store)

	existing := &model.VendorPattern{VendorName: "Acme", Confidence: 0.9}
	if err := store.StoreVendorPattern(ctx, existing); err != nil {
		t.Fatalf("StoreVendorPattern() error = %v", err)
	}

	invoice := &model.Invoice{ID: "inv-1", VendorName: "Acme", Amount: 10}
	if err := learner.LearnFromCorrections(ctx, invoice, nil, nil); err != nil {
		t.Fatalf("LearnFromCorrections() error = %v", err)
	}

	vendors, err := store.GetVendorPatterns(ctx, "Acme")
	if err != nil {
		t.Fatalf("GetVendorPatterns() error = %v", err)
	}
	if len(vendors) != 1 || vendors[0].Confidence != 0.9 {
		t.Errorf("vendors = %+v, want the existing pattern untouched", vendors)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)
	learner := New(store)

	approved := storeCorrectionPattern(t, store, 0.5)
	if err := learner.ProcessFeedback(ctx, model.Feedback{
		DocumentID: "inv-1", CorrectionID: approved.ID, Approved: true,
	}); err != nil {
		t.Fatalf("ProcessFeedback() error = %v", err)
	}

	invoice := &model.Invoice{ID: "inv-2", VendorName: "Globex", Amount: 10}
	if err := learner.LearnFromCorrections(ctx, invoice, []model.Correction{
		{Field: "po_number", OriginalValue: "PO 1", CorrectedValue: "PO-1"},
	}, nil); err != nil {
		t.Fatalf("LearnFromCorrections() error = %v", err)
	}

	stats := learner.Stats()
	if stats.Positive != 1 {
		t.Errorf("positive events = %d, want 1", stats.Positive)
	}
	if stats.Negative != 0 {
		t.Errorf("negative events = %d, want 0", stats.Negative)
	}
	// One correction pattern, one resolution outcome, one seeded vendor.
	if stats.NewPatterns != 3 {
		t.Errorf("new patterns = %d, want 3", stats.NewPatterns)
	}
	if stats.DocumentsLearned != 2 {
		t.Errorf("documents learned = %d, want 2", stats.DocumentsLearned)
	}
	delta := stats.AvgConfidenceDelta[model.EntityCorrectionPattern]
	if delta <= 0 {
		t.Errorf("avg correction delta = %v, want positive", delta)
	}
}
