package model

// Action is the terminal processing action for a document.
type Action string

// The three terminal actions.
const (
	ActionAutoAccept  Action = "auto-accept"
	ActionAutoCorrect Action = "auto-correct"
	ActionHumanReview Action = "human-review"
)

// Valid reports whether the action is one of the three known values.
func (a Action) Valid() bool {
	switch a {
	case ActionAutoAccept, ActionAutoCorrect, ActionHumanReview:
		return true
	}
	return false
}

// SafetyFlag identifies a safety constraint raised during decision making.
type SafetyFlag string

// Safety flags. The forcing flags override any threshold-derived action.
const (
	FlagLowConfidenceBlocked SafetyFlag = "low-confidence-corrections-blocked"
	FlagTooManyCorrections   SafetyFlag = "too-many-corrections"
	FlagCriticalField        SafetyFlag = "critical-field-protection"
	FlagLargeValueChange     SafetyFlag = "large-value-change"
	FlagOverallLowConfidence SafetyFlag = "overall-low-confidence"
	FlagErrorFallback        SafetyFlag = "error-fallback"
)

// Protected fields always require at least auto-correct-level review, no
// matter how confident a correction is.
var protectedFields = map[string]bool{
	"amount":         true,
	"vendor_name":    true,
	"invoice_number": true,
}

// IsProtectedField reports whether corrections to the field are restricted.
func IsProtectedField(field string) bool {
	return protectedFields[field]
}

// Correction is a proposed field correction derived from memory.
type Correction struct {
	Field          string  `json:"field"`
	OriginalValue  string  `json:"originalValue"`
	CorrectedValue string  `json:"correctedValue"`
	PatternID      string  `json:"-"`
	Reason         string  `json:"-"`
	Confidence     float64 `json:"confidence"`
}

// ThresholdAnalysis captures how the overall confidence compared against the
// fixed decision thresholds.
type ThresholdAnalysis struct {
	Confidence        float64
	AutoAcceptCutoff  float64
	AutoCorrectCutoff float64
	MeetsAutoAccept   bool
	MeetsAutoCorrect  bool
}

// Decision is the full outcome of the decision component for one document.
type Decision struct {
	Action      Action
	Reasoning   string
	Corrections []Correction
	SafetyFlags []SafetyFlag
	MemoryIDs   []string
	Thresholds  ThresholdAnalysis
	Confidence  float64
}

// HasFlag reports whether the decision raised the given safety flag.
func (d *Decision) HasFlag(flag SafetyFlag) bool {
	for _, f := range d.SafetyFlags {
		if f == flag {
			return true
		}
	}
	return false
}
