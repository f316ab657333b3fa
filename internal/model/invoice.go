// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// Invoice is the unit of work flowing through the pipeline. RawFields holds
// the document's fields exactly as extracted; normalization never mutates it.
type Invoice struct {
	RawFields    map[string]string
	ID           string
	VendorName   string
	Amount       float64
	HasLineItems bool
}

// FieldNames returns the raw field names in sorted order so that every pass
// over an invoice visits fields deterministically.
func (inv *Invoice) FieldNames() []string {
	names := make([]string, 0, len(inv.RawFields))
	for name := range inv.RawFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ShapeKey derives the resolution-outcome pattern key for this invoice:
// vendor, amount bucket, field count and line-item presence.
func (inv *Invoice) ShapeKey() string {
	return fmt.Sprintf("vendor=%s|amount=%s|fields=%d|lineitems=%t",
		strings.ToLower(strings.TrimSpace(inv.VendorName)),
		AmountBucket(inv.Amount),
		len(inv.RawFields),
		inv.HasLineItems)
}

// AmountBucket maps a monetary amount onto a coarse size bucket.
func AmountBucket(amount float64) string {
	switch {
	case amount < 100:
		return "small"
	case amount < 1000:
		return "medium"
	case amount < 10000:
		return "large"
	default:
		return "xlarge"
	}
}

// Validate ensures the invoice carries enough data to process.
func (inv *Invoice) Validate() error {
	if strings.TrimSpace(inv.ID) == "" {
		return fmt.Errorf("invoice id is required")
	}
	if strings.TrimSpace(inv.VendorName) == "" {
		return fmt.Errorf("vendor name is required")
	}
	if inv.Amount < 0 {
		return fmt.Errorf("amount must not be negative")
	}
	return nil
}
