package model

import "math"

// Confidence bounds shared across the pipeline.
const (
	MinConfidence = 0.0
	MaxConfidence = 1.0
)

// ClampConfidence bounds a confidence score to [0, 1]. NaN collapses to 0 so
// a bad division upstream can never leak into a stored score.
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return MinConfidence
	}
	if c < MinConfidence {
		return MinConfidence
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}

// ValidConfidence reports whether c is a usable confidence score.
func ValidConfidence(c float64) bool {
	return !math.IsNaN(c) && c >= MinConfidence && c <= MaxConfidence
}
