package model

import "time"

// MemoryInsights summarizes how much accumulated memory informed a result.
type MemoryInsights struct {
	VendorPatternsUsed int     `json:"vendorPatternsUsed"`
	CorrectionsApplied int     `json:"correctionsApplied"`
	HistoricalAccuracy float64 `json:"historicalAccuracy"`
}

// AuditRecord is one entry of a published result's audit trail. Timestamp is
// an ISO-8601 string so the contract survives serialization unchanged.
type AuditRecord struct {
	OperationID string `json:"operationId"`
	Timestamp   string `json:"timestamp"`
	Reasoning   string `json:"reasoning"`
}

// ProcessingResult is the externally published result contract. This shape is
// the system's API boundary; it must round-trip through JSON without loss.
type ProcessingResult struct {
	DocumentID         string         `json:"documentId"`
	Decision           Action         `json:"decision"`
	Reasoning          string         `json:"reasoning"`
	AppliedCorrections []Correction   `json:"appliedCorrections"`
	AuditTrail         []AuditRecord  `json:"auditTrail"`
	MemoryInsights     MemoryInsights `json:"memoryInsights"`
	ConfidenceScore    float64        `json:"confidenceScore"`
}

// Feedback is a human judgment on a previously processed document, consumed
// by the learning component.
type Feedback struct {
	Timestamp           time.Time `json:"timestamp"`
	DocumentID          string    `json:"documentId"`
	CorrectionID        string    `json:"correctionId,omitempty"`
	VendorPatternID     string    `json:"vendorPatternId,omitempty"`
	ResolutionOutcomeID string    `json:"resolutionOutcomeId,omitempty"`
	Reasoning           string    `json:"reasoning,omitempty"`
	Approved            bool      `json:"approved"`
}
