package model

import (
	"fmt"
	"strings"
	"time"
)

// ResolutionOutcome records a past decision for a given invoice shape and
// whether it was later judged successful. Outcomes are write-once; Learning
// creates them and nothing ever mutates them.
type ResolutionOutcome struct {
	CreatedAt  time.Time
	ID         string
	PatternKey string
	Action     Action
	Reasoning  string
	Confidence float64
	Successful bool
}

// Validate ensures the outcome has valid data before storage.
func (o *ResolutionOutcome) Validate() error {
	if strings.TrimSpace(o.PatternKey) == "" {
		return fmt.Errorf("pattern key is required")
	}
	if !o.Action.Valid() {
		return fmt.Errorf("invalid action %q", o.Action)
	}
	if !ValidConfidence(o.Confidence) {
		return fmt.Errorf("confidence must be between 0 and 1, got %v", o.Confidence)
	}
	return nil
}
