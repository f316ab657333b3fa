// Package recall retrieves historical patterns relevant to a document and
// condenses them into a single confidence-scored memory snapshot.
package recall

import (
	"context"
	"fmt"

	"github.com/marwick/invoice-triage/internal/common"
	"github.com/marwick/invoice-triage/internal/model"
	"github.com/marwick/invoice-triage/internal/service"
)

// Config holds recall tuning knobs.
type Config struct {
	// MinCorrectionConfidence filters correction patterns below this score.
	MinCorrectionConfidence float64
	// MinResolutionConfidence keeps unsuccessful outcomes only at or above
	// this score.
	MinResolutionConfidence float64
	// ExactShapeMatch requires resolution outcomes to match the invoice
	// shape key exactly instead of by substring containment.
	ExactShapeMatch bool
}

// DefaultConfig returns the default recall configuration.
func DefaultConfig() Config {
	return Config{
		MinCorrectionConfidence: 0.3,
		MinResolutionConfidence: 0.5,
		ExactShapeMatch:         false,
	}
}

// Recaller queries the pattern store for memory relevant to a document.
// It only reads; the single side effect is the usage-count increment the
// store performs on every vendor pattern access.
type Recaller struct {
	store service.PatternStore
	cfg   Config
}

// New creates a recaller with the default configuration.
func New(store service.PatternStore) *Recaller {
	return NewWithConfig(store, DefaultConfig())
}

// NewWithConfig creates a recaller with a custom configuration.
func NewWithConfig(store service.PatternStore, cfg Config) *Recaller {
	return &Recaller{store: store, cfg: cfg}
}

// Snapshot is everything recall knows about one document: the three memory
// lists, a human-readable rationale trail, and the blended confidence.
type Snapshot struct {
	VendorPatterns     []model.VendorPattern
	CorrectionPatterns []model.CorrectionPattern
	ResolutionOutcomes []model.ResolutionOutcome
	Rationale          []string
	OverallConfidence  float64
}

// Empty reports whether no memory of any kind was found.
func (s *Snapshot) Empty() bool {
	return len(s.VendorPatterns) == 0 &&
		len(s.CorrectionPatterns) == 0 &&
		len(s.ResolutionOutcomes) == 0
}

// MemoryIDs returns the identifiers of every memory entity in the snapshot.
func (s *Snapshot) MemoryIDs() []string {
	ids := make([]string, 0,
		len(s.VendorPatterns)+len(s.CorrectionPatterns)+len(s.ResolutionOutcomes))
	for _, p := range s.VendorPatterns {
		ids = append(ids, p.ID)
	}
	for _, p := range s.CorrectionPatterns {
		ids = append(ids, p.ID)
	}
	for _, o := range s.ResolutionOutcomes {
		ids = append(ids, o.ID)
	}
	return ids
}

// VendorPatterns retrieves the patterns for a vendor, confidence-desc with
// most-recently-used breaking ties. Each access increments the pattern's
// usage counter and the batch is recorded as one audit entry.
func (r *Recaller) VendorPatterns(ctx context.Context, vendorName string) ([]model.VendorPattern, error) {
	patterns, err := r.store.GetVendorPatterns(ctx, vendorName)
	if err != nil {
		return nil, common.NewRetrievalError("vendor patterns", err)
	}

	for _, p := range patterns {
		if err := r.store.IncrementVendorUsage(ctx, p.ID); err != nil {
			return nil, common.NewRetrievalError("vendor patterns", err)
		}
	}

	if len(patterns) > 0 {
		r.audit(ctx, "recall_vendor_patterns", model.EntityVendorPattern,
			fmt.Sprintf("retrieved %d vendor patterns for %q", len(patterns), vendorName))
	}

	return patterns, nil
}

// CorrectionPatterns retrieves correction patterns for a field, filtered to
// the minimum confidence and deduplicated by (field, original, corrected).
// Vendor-scoped patterns win over unscoped ones carrying the same triple.
func (r *Recaller) CorrectionPatterns(ctx context.Context, field, vendorName string) ([]model.CorrectionPattern, error) {
	patterns, err := r.store.GetCorrectionPatterns(ctx, field, vendorName)
	if err != nil {
		return nil, common.NewRetrievalError("correction patterns", err)
	}

	// The store orders confidence-desc with vendor-scoped first among
	// equals, so keep-first dedupe prefers the scoped entry.
	seen := make(map[string]bool)
	kept := patterns[:0]
	for _, p := range patterns {
		if p.Confidence < r.cfg.MinCorrectionConfidence {
			continue
		}
		key := p.DedupeKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, p)
	}

	if len(kept) > 0 {
		r.audit(ctx, "recall_correction_patterns", model.EntityCorrectionPattern,
			fmt.Sprintf("retrieved %d correction patterns for field %q", len(kept), field))
	}

	return kept, nil
}

// ResolutionOutcomes retrieves past outcomes matching the invoice's shape,
// keeping those that either succeeded or carry enough confidence.
func (r *Recaller) ResolutionOutcomes(ctx context.Context, invoice *model.Invoice) ([]model.ResolutionOutcome, error) {
	key := invoice.ShapeKey()
	outcomes, err := r.store.GetResolutionOutcomes(ctx, key)
	if err != nil {
		return nil, common.NewRetrievalError("resolution outcomes", err)
	}

	kept := outcomes[:0]
	for _, o := range outcomes {
		if r.cfg.ExactShapeMatch && o.PatternKey != key {
			continue
		}
		if !o.Successful && o.Confidence < r.cfg.MinResolutionConfidence {
			continue
		}
		kept = append(kept, o)
	}

	if len(kept) > 0 {
		r.audit(ctx, "recall_resolution_outcomes", model.EntityResolutionOutcome,
			fmt.Sprintf("retrieved %d resolution outcomes for shape %q", len(kept), key))
	}

	return kept, nil
}

// ExtendCorrections merges correction patterns for additional field names
// into an existing snapshot. Normalization can rename fields, and corrections
// learned from the pipeline's own proposals are stored under those canonical
// names; without this second pass they would be unreachable for any invoice
// whose raw names differ. The overall confidence is recomputed when anything
// new arrives.
func (r *Recaller) ExtendCorrections(ctx context.Context, s *Snapshot, vendorName string, fields []string) error {
	seen := make(map[string]bool)
	for _, c := range s.CorrectionPatterns {
		seen[c.DedupeKey()] = true
	}

	added := 0
	for _, field := range fields {
		corrections, err := r.CorrectionPatterns(ctx, field, vendorName)
		if err != nil {
			return err
		}
		for _, c := range corrections {
			key := c.DedupeKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			s.CorrectionPatterns = append(s.CorrectionPatterns, c)
			added++
		}
	}

	if added > 0 {
		s.OverallConfidence = OverallConfidence(s)
		s.Rationale = append(s.Rationale,
			fmt.Sprintf("found %d correction patterns for normalized field names; memory confidence now %.2f",
				added, s.OverallConfidence))
	}

	return nil
}

// Snapshot assembles the full memory picture for one invoice.
func (r *Recaller) Snapshot(ctx context.Context, invoice *model.Invoice) (*Snapshot, error) {
	if err := invoice.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInvoice, err)
	}

	snapshot := &Snapshot{}

	vendors, err := r.VendorPatterns(ctx, invoice.VendorName)
	if err != nil {
		return nil, err
	}
	snapshot.VendorPatterns = vendors
	if len(vendors) > 0 {
		snapshot.Rationale = append(snapshot.Rationale,
			fmt.Sprintf("found %d vendor patterns for %q (best confidence %.2f)",
				len(vendors), invoice.VendorName, vendors[0].Confidence))
	}

	seen := make(map[string]bool)
	for _, field := range invoice.FieldNames() {
		corrections, err := r.CorrectionPatterns(ctx, field, invoice.VendorName)
		if err != nil {
			return nil, err
		}
		for _, c := range corrections {
			key := c.DedupeKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			snapshot.CorrectionPatterns = append(snapshot.CorrectionPatterns, c)
		}
	}
	if len(snapshot.CorrectionPatterns) > 0 {
		snapshot.Rationale = append(snapshot.Rationale,
			fmt.Sprintf("found %d applicable correction patterns", len(snapshot.CorrectionPatterns)))
	}

	outcomes, err := r.ResolutionOutcomes(ctx, invoice)
	if err != nil {
		return nil, err
	}
	snapshot.ResolutionOutcomes = outcomes
	if len(outcomes) > 0 {
		snapshot.Rationale = append(snapshot.Rationale,
			fmt.Sprintf("found %d resolution outcomes for similar invoices", len(outcomes)))
	}

	snapshot.OverallConfidence = OverallConfidence(snapshot)
	if snapshot.Empty() {
		snapshot.Rationale = append(snapshot.Rationale,
			fmt.Sprintf("no memory for this document; confidence floored at %.2f", NoMemoryFloor))
	} else {
		snapshot.Rationale = append(snapshot.Rationale,
			fmt.Sprintf("blended memory confidence %.2f", snapshot.OverallConfidence))
	}

	return snapshot, nil
}

// audit records a memory-read batch. A failed audit write never fails the
// read that triggered it.
func (r *Recaller) audit(ctx context.Context, operation, entityType, reasoning string) {
	entry := &model.AuditEntry{
		Operation:  operation,
		EntityType: entityType,
		Reasoning:  reasoning,
	}
	if err := r.store.AppendAuditEntry(ctx, entry); err != nil {
		common.LogWarn("Failed to record recall audit entry", common.Fields{
			"operation": operation,
			"error":     err,
		})
	}
}
