package model

import (
	"fmt"
	"strings"
	"time"
)

// Entity type names used in audit entries and store counts.
const (
	EntityVendorPattern     = "vendor_pattern"
	EntityCorrectionPattern = "correction_pattern"
	EntityResolutionOutcome = "resolution_outcome"
	EntityDocument          = "document"
)

// AuditEntry is one append-only record of a state-changing or memory-read
// operation. Before and After hold optional JSON snapshots of the entity.
type AuditEntry struct {
	CreatedAt  time.Time
	Confidence *float64
	ID         string
	Operation  string
	EntityType string
	EntityID   string
	Before     string
	After      string
	Reasoning  string
}

// Validate ensures the entry has valid data before storage.
func (e *AuditEntry) Validate() error {
	if strings.TrimSpace(e.Operation) == "" {
		return fmt.Errorf("operation is required")
	}
	if strings.TrimSpace(e.EntityType) == "" {
		return fmt.Errorf("entity type is required")
	}
	if e.Confidence != nil && !ValidConfidence(*e.Confidence) {
		return fmt.Errorf("confidence must be between 0 and 1, got %v", *e.Confidence)
	}
	return nil
}
