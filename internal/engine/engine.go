// Package engine orchestrates the document pipeline: recall, apply,
// decision, output. Learning runs outside this flow, triggered by feedback.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/marwick/invoice-triage/internal/apply"
	"github.com/marwick/invoice-triage/internal/common"
	"github.com/marwick/invoice-triage/internal/decision"
	"github.com/marwick/invoice-triage/internal/model"
	"github.com/marwick/invoice-triage/internal/output"
	"github.com/marwick/invoice-triage/internal/recall"
	"github.com/marwick/invoice-triage/internal/service"
)

// Config holds configuration options for the pipeline engine.
type Config struct {
	Recall          recall.Config
	Workers         int
	AuditTrailLimit int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Recall:          recall.DefaultConfig(),
		Workers:         4,
		AuditTrailLimit: 10,
	}
}

// Engine runs documents through the confidence-weighted decision pipeline.
// Each document is processed end-to-end by a single task; tasks share only
// the pattern store.
type Engine struct {
	store    service.PatternStore
	recaller *recall.Recaller
	applier  *apply.Applier
	decider  *decision.Decider
	cfg      Config
}

// New creates an engine with the default configuration.
func New(store service.PatternStore) *Engine {
	return NewWithConfig(store, DefaultConfig())
}

// NewWithConfig creates an engine with a custom configuration.
func NewWithConfig(store service.PatternStore, cfg Config) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Engine{
		store:    store,
		recaller: recall.NewWithConfig(store, cfg.Recall),
		applier:  apply.New(),
		decider:  decision.New(),
		cfg:      cfg,
	}
}

// ProcessInvoice runs one document through recall, apply, decision and
// output. Retrieval failures surface to the caller; everything downstream
// degrades to a valid human-review result instead of failing.
func (e *Engine) ProcessInvoice(ctx context.Context, invoice *model.Invoice) (*model.ProcessingResult, error) {
	if invoice == nil {
		return nil, fmt.Errorf("invoice is nil")
	}

	common.LogDebug("Processing invoice", common.Fields{
		"document_id": invoice.ID,
		"vendor":      invoice.VendorName,
		"amount":      invoice.Amount,
	})

	snapshot, err := e.recaller.Snapshot(ctx, invoice)
	if err != nil {
		return nil, fmt.Errorf("recall failed for document %s: %w", invoice.ID, err)
	}

	fields := e.applier.Normalize(ctx, invoice, snapshot)

	// Corrections learned from the pipeline's own output are stored under
	// canonical field names. When normalization renamed a field, recall them
	// under the canonical name too so they stay reachable.
	if mapped := mappedNames(fields); len(mapped) > 0 {
		if err := e.recaller.ExtendCorrections(ctx, snapshot, invoice.VendorName, mapped); err != nil {
			return nil, fmt.Errorf("recall failed for document %s: %w", invoice.ID, err)
		}
	}

	proposals := e.applier.ProposeCorrections(fields, snapshot)

	dec := e.decider.Decide(decision.Input{
		Invoice:   invoice,
		Snapshot:  snapshot,
		Proposals: proposals,
	})

	trail := e.recentAudit(ctx, invoice.ID)
	result := output.Build(invoice.ID, dec, snapshot, trail)

	common.LogInfo("Processed invoice", common.Fields{
		"document_id": invoice.ID,
		"decision":    result.Decision,
		"confidence":  result.ConfidenceScore,
		"corrections": len(result.AppliedCorrections),
	})

	return result, nil
}

// mappedNames collects the canonical names of fields whose raw name was
// rewritten by a vendor field mapping.
func mappedNames(fields []apply.Field) []string {
	var names []string
	seen := make(map[string]bool)
	for _, f := range fields {
		if f.Name == f.RawName || seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		names = append(names, f.Name)
	}
	return names
}

// recentAudit fetches the latest audit entries for the result trail. A trail
// read failure degrades to an empty trail rather than failing the document.
func (e *Engine) recentAudit(ctx context.Context, documentID string) []model.AuditEntry {
	entries, err := e.store.QueryAuditEntries(ctx, service.AuditFilter{
		Limit: e.cfg.AuditTrailLimit,
	})
	if err != nil {
		common.LogWarn("Failed to load audit trail", common.Fields{
			"document_id": documentID,
			"error":       err,
		})
		return nil
	}
	return entries
}

// BatchResult pairs one invoice with its outcome.
type BatchResult struct {
	Result *model.ProcessingResult
	Err    error
	Index  int
}

// ProcessBatch processes invoices concurrently with a bounded worker pool
// and returns results in input order. Individual failures do not stop the
// batch. When onResult is non-nil it is invoked once per document as each
// finishes, from worker goroutines; it must be safe for concurrent use.
func (e *Engine) ProcessBatch(ctx context.Context, invoices []*model.Invoice, onResult func(BatchResult)) []BatchResult {
	results := make([]BatchResult, len(invoices))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < e.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				result, err := e.ProcessInvoice(ctx, invoices[i])
				results[i] = BatchResult{Index: i, Result: result, Err: err}
				if onResult != nil {
					onResult(results[i])
				}
			}
		}()
	}

	for i := range invoices {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			for j := i; j < len(invoices); j++ {
				if results[j].Result == nil && results[j].Err == nil {
					results[j] = BatchResult{Index: j, Err: ctx.Err()}
				}
			}
			return results
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return results
}
