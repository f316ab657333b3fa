// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/marwick/invoice-triage/internal/model"
)

// AuditFilter defines filtering options for audit entry queries. Zero-valued
// fields are unconstrained.
type AuditFilter struct {
	StartTime  *time.Time
	EndTime    *time.Time
	EntityType string
	EntityID   string
	Operation  string
	Limit      int
}

// Counts holds per-entity-type record counts.
type Counts struct {
	VendorPatterns     int
	CorrectionPatterns int
	ResolutionOutcomes int
	AuditEntries       int
}

// PatternStore is the contract the pipeline requires from the persistence
// layer. Every write is atomic (one transaction per call); every list read
// comes back in non-increasing confidence order.
type PatternStore interface {
	// Vendor pattern operations
	StoreVendorPattern(ctx context.Context, pattern *model.VendorPattern) error
	GetVendorPatterns(ctx context.Context, vendorName string) ([]model.VendorPattern, error)
	IncrementVendorUsage(ctx context.Context, id string) error
	AdjustVendorConfidence(ctx context.Context, id string, delta float64) error

	// Correction pattern operations
	StoreCorrectionPattern(ctx context.Context, pattern *model.CorrectionPattern) error
	GetCorrectionPatterns(ctx context.Context, field, vendorName string) ([]model.CorrectionPattern, error)
	GetCorrectionPattern(ctx context.Context, id string) (*model.CorrectionPattern, error)
	UpdateCorrectionFeedback(ctx context.Context, id string, approved bool) error

	// Resolution outcome operations
	StoreResolutionOutcome(ctx context.Context, outcome *model.ResolutionOutcome) error
	GetResolutionOutcomes(ctx context.Context, patternKey string) ([]model.ResolutionOutcome, error)

	// Audit operations
	AppendAuditEntry(ctx context.Context, entry *model.AuditEntry) error
	QueryAuditEntries(ctx context.Context, filter AuditFilter) ([]model.AuditEntry, error)

	// GetCounts returns per-entity-type record counts.
	GetCounts(ctx context.Context) (*Counts, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for store-layer operations. The
// pipeline itself never retries; retry policy belongs to the store.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
