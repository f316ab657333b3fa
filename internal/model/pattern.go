package model

import (
	"fmt"
	"strings"
	"time"
)

// NormalizationRule is a data-driven transformation applied to one field.
// Pattern is a regular expression supplied at learning time; rules are
// compiled lazily and a rule that fails to compile is skipped, not fatal.
type NormalizationRule struct {
	Field       string  `json:"field"`
	Pattern     string  `json:"pattern"`
	Replacement string  `json:"replacement"`
	Confidence  float64 `json:"confidence"`
}

// VendorPattern holds the accumulated field-mapping and normalization
// knowledge for a single vendor. Confidence is always kept in [0, 1];
// patterns are never deleted, only decayed toward zero.
type VendorPattern struct {
	LastUsed      time.Time
	CreatedAt     time.Time
	FieldMappings map[string]string
	ID            string
	VendorName    string
	Rules         []NormalizationRule
	Confidence    float64
	UseCount      int
}

// Validate ensures the pattern has valid data before storage.
func (p *VendorPattern) Validate() error {
	if strings.TrimSpace(p.VendorName) == "" {
		return fmt.Errorf("vendor name is required")
	}
	if !ValidConfidence(p.Confidence) {
		return fmt.Errorf("confidence must be between 0 and 1, got %v", p.Confidence)
	}
	for i, rule := range p.Rules {
		if rule.Field == "" {
			return fmt.Errorf("rule at index %d: target field is required", i)
		}
		if !ValidConfidence(rule.Confidence) {
			return fmt.Errorf("rule at index %d: confidence must be between 0 and 1", i)
		}
	}
	return nil
}

// CorrectionPattern records one historically observed value correction for a
// field, with its approval/rejection history. VendorName is empty for
// corrections that apply regardless of vendor.
type CorrectionPattern struct {
	CreatedAt      time.Time
	ID             string
	Field          string
	OriginalValue  string
	CorrectedValue string
	VendorName     string
	Confidence     float64
	ApprovalCount  int
	RejectionCount int
}

// Validate ensures the correction pattern has valid data before storage.
func (p *CorrectionPattern) Validate() error {
	if strings.TrimSpace(p.Field) == "" {
		return fmt.Errorf("field is required")
	}
	if p.OriginalValue == "" {
		return fmt.Errorf("original value is required")
	}
	if p.CorrectedValue == "" {
		return fmt.Errorf("corrected value is required")
	}
	if p.OriginalValue == p.CorrectedValue {
		return fmt.Errorf("correction must change the value")
	}
	if !ValidConfidence(p.Confidence) {
		return fmt.Errorf("confidence must be between 0 and 1, got %v", p.Confidence)
	}
	if p.ApprovalCount < 0 || p.RejectionCount < 0 {
		return fmt.Errorf("feedback counters must not be negative")
	}
	return nil
}

// DedupeKey identifies a correction across vendor scopes: two patterns with
// the same field and value pair are the same correction.
func (p *CorrectionPattern) DedupeKey() string {
	return p.Field + "\x00" + p.OriginalValue + "\x00" + p.CorrectedValue
}
