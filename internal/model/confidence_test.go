package model

import (
	"math"
	"testing"
)

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"in range", 0.5, 0.5},
		{"zero", 0, 0},
		{"one", 1, 1},
		{"below range", -0.3, 0},
		{"above range", 1.7, 1},
		{"NaN collapses to zero", math.NaN(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampConfidence(tt.in); got != tt.want {
				t.Errorf("ClampConfidence(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidConfidence(t *testing.T) {
	if ValidConfidence(math.NaN()) {
		t.Error("ValidConfidence(NaN) = true, want false")
	}
	if ValidConfidence(1.01) {
		t.Error("ValidConfidence(1.01) = true, want false")
	}
	if !ValidConfidence(0) || !ValidConfidence(1) || !ValidConfidence(0.42) {
		t.Error("ValidConfidence rejected an in-range value")
	}
}
