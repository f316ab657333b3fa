// Package apply turns recalled memory into concrete work on a document:
// canonical field normalization and proposed value corrections.
package apply

import (
	"context"
	"log/slog"
	"regexp"
	"sync"

	"github.com/marwick/invoice-triage/internal/model"
	"github.com/marwick/invoice-triage/internal/recall"
)

// Field mapping weight parameters: pattern confidence dominates, usage adds
// up to 0.3 on top, saturating at 100 uses.
const (
	mappingConfidenceWeight = 0.7
	mappingUsageCap         = 0.3
	mappingUsageScale       = 100.0
)

// Field is one normalized field. The raw name and value are always retained
// unchanged; normalization is additive, never destructive.
type Field struct {
	Name      string
	RawName   string
	RawValue  string
	Value     string
	MappedBy  string
	RuleMatch bool
}

// Applier normalizes raw fields and proposes corrections from memory. It
// holds a cache of compiled normalization rules; rules are compiled lazily
// and a rule that fails to compile is skipped, never fatal. Safe for
// concurrent use.
type Applier struct {
	compiled map[string]*regexp.Regexp
	bad      map[string]bool
	mu       sync.Mutex
}

// New creates an applier.
func New() *Applier {
	return &Applier{
		compiled: make(map[string]*regexp.Regexp),
		bad:      make(map[string]bool),
	}
}

// Normalize maps every raw field onto its canonical name using the
// highest-weighted vendor field mapping, then applies the best matching
// normalization rule per field. Fields come back in sorted raw-name order.
func (a *Applier) Normalize(ctx context.Context, invoice *model.Invoice, snapshot *recall.Snapshot) []Field {
	fields := make([]Field, 0, len(invoice.RawFields))

	for _, rawName := range invoice.FieldNames() {
		rawValue := invoice.RawFields[rawName]

		field := Field{
			Name:     rawName,
			RawName:  rawName,
			RawValue: rawValue,
			Value:    rawValue,
		}

		if canonical, patternID, ok := bestMapping(rawName, snapshot.VendorPatterns); ok {
			field.Name = canonical
			field.MappedBy = patternID
		}

		if value, ok := a.applyBestRule(field.Name, field.Value, snapshot.VendorPatterns); ok {
			field.Value = value
			field.RuleMatch = true
		}

		select {
		case <-ctx.Done():
			return fields
		default:
		}

		fields = append(fields, field)
	}

	return fields
}

// bestMapping picks the canonical name for a raw field from the
// highest-weighted vendor pattern that maps it.
func bestMapping(rawName string, patterns []model.VendorPattern) (canonical, patternID string, ok bool) {
	best := -1.0
	for _, p := range patterns {
		target, mapped := p.FieldMappings[rawName]
		if !mapped {
			continue
		}
		w := mappingWeight(&p)
		if w > best {
			best = w
			canonical = target
			patternID = p.ID
			ok = true
		}
	}
	return canonical, patternID, ok
}

// mappingWeight scores a vendor pattern's mappings for selection.
func mappingWeight(p *model.VendorPattern) float64 {
	usage := float64(p.UseCount) / mappingUsageScale
	if usage > mappingUsageCap {
		usage = mappingUsageCap
	}
	return mappingConfidenceWeight*p.Confidence + usage
}

// applyBestRule applies the highest-confidence normalization rule targeting
// the field whose pattern compiles and matches the value. Malformed rules
// are logged once and skipped.
func (a *Applier) applyBestRule(field, value string, patterns []model.VendorPattern) (string, bool) {
	var best *model.NormalizationRule
	for _, p := range patterns {
		for i := range p.Rules {
			rule := &p.Rules[i]
			if rule.Field != field {
				continue
			}
			if best == nil || rule.Confidence > best.Confidence {
				re := a.compile(rule)
				if re == nil || !re.MatchString(value) {
					continue
				}
				best = rule
			}
		}
	}

	if best == nil {
		return value, false
	}

	re := a.compile(best)
	return re.ReplaceAllString(value, best.Replacement), true
}

// compile returns the cached compiled regex for a rule, or nil if the rule's
// pattern is invalid.
func (a *Applier) compile(rule *model.NormalizationRule) *regexp.Regexp {
	a.mu.Lock()
	defer a.mu.Unlock()

	if re, ok := a.compiled[rule.Pattern]; ok {
		return re
	}
	if a.bad[rule.Pattern] {
		return nil
	}

	re, err := regexp.Compile(rule.Pattern)
	if err != nil {
		a.bad[rule.Pattern] = true
		slog.Warn("Skipping malformed normalization rule",
			"field", rule.Field,
			"pattern", rule.Pattern,
			"error", err)
		return nil
	}

	a.compiled[rule.Pattern] = re
	return re
}
