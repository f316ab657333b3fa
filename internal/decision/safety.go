package decision

import (
	"math"
	"strconv"
	"strings"

	"github.com/marwick/invoice-triage/internal/model"
)

// Safety constraint parameters.
const (
	// MaxHighConfidenceCorrections caps how many strong proposals a single
	// document may carry before it goes to a human anyway.
	MaxHighConfidenceCorrections = 5
	// LargeValueChangeRatio flags amount corrections moving the value by
	// more than this fraction.
	LargeValueChangeRatio = 0.2
)

// safetyCheck is the outcome of evaluating all safety constraints. Forcing
// flags override any threshold-derived action.
type safetyCheck struct {
	flags   []model.SafetyFlag
	forcing bool
}

func (c *safetyCheck) add(flag model.SafetyFlag, forces bool) {
	c.flags = append(c.flags, flag)
	if forces {
		c.forcing = true
	}
}

func (c *safetyCheck) has(flag model.SafetyFlag) bool {
	for _, f := range c.flags {
		if f == flag {
			return true
		}
	}
	return false
}

// evaluateSafety computes all safety flags independently of the threshold
// check. The caller uses the result to override threshold-derived actions.
func evaluateSafety(confidence float64, proposals []model.Correction) safetyCheck {
	var check safetyCheck

	lowConfidence := false
	highConfidence := 0
	criticalField := false
	largeChange := false

	for _, p := range proposals {
		if p.Confidence < AutoCorrectThreshold {
			lowConfidence = true
		}
		if p.Confidence >= AutoAcceptThreshold {
			highConfidence++
		}
		if model.IsProtectedField(p.Field) && p.Confidence < AutoAcceptThreshold {
			criticalField = true
		}
		if isLargeValueChange(p) {
			largeChange = true
		}
	}

	// Blocks only the weak corrections themselves, not the whole decision.
	if lowConfidence {
		check.add(model.FlagLowConfidenceBlocked, false)
	}
	if highConfidence > MaxHighConfidenceCorrections {
		check.add(model.FlagTooManyCorrections, true)
	}
	if criticalField {
		check.add(model.FlagCriticalField, true)
	}
	if largeChange {
		check.add(model.FlagLargeValueChange, true)
	}
	if confidence < AutoCorrectThreshold {
		check.add(model.FlagOverallLowConfidence, true)
	}

	return check
}

// isLargeValueChange reports whether an amount correction moves the value by
// more than the allowed ratio. Unparseable amounts are treated as large
// changes; a correction we cannot quantify should not slip through.
func isLargeValueChange(p model.Correction) bool {
	if p.Field != "amount" {
		return false
	}

	original, okOriginal := parseAmount(p.OriginalValue)
	corrected, okCorrected := parseAmount(p.CorrectedValue)
	if !okOriginal || !okCorrected {
		return true
	}
	if original == 0 {
		return corrected != 0
	}

	return math.Abs(corrected-original)/math.Abs(original) > LargeValueChangeRatio
}

// parseAmount extracts a numeric amount from a formatted value like
// "$1,250.00".
func parseAmount(s string) (float64, bool) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
