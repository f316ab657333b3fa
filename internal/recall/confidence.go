package recall

import "github.com/marwick/invoice-triage/internal/model"

// NoMemoryFloor is the overall confidence reported when no memory exists.
// It is deliberately above zero: "no data" is not "certainly wrong".
const NoMemoryFloor = 0.1

// Blend weights for the three memory sources. Weights are renormalized over
// the sources that actually returned results.
const (
	vendorWeight     = 0.5
	correctionWeight = 0.3
	resolutionWeight = 0.2
)

// OverallConfidence blends the three sub-confidences of a snapshot into a
// single score: usage-weighted vendor mean at weight 0.5, correction mean at
// 0.3, resolution mean at 0.2, renormalized over non-empty sources and
// clamped to [0, 1].
func OverallConfidence(s *Snapshot) float64 {
	var weighted, totalWeight float64

	if len(s.VendorPatterns) > 0 {
		weighted += vendorWeight * vendorConfidence(s.VendorPatterns)
		totalWeight += vendorWeight
	}
	if len(s.CorrectionPatterns) > 0 {
		weighted += correctionWeight * correctionConfidence(s.CorrectionPatterns)
		totalWeight += correctionWeight
	}
	if len(s.ResolutionOutcomes) > 0 {
		weighted += resolutionWeight * resolutionConfidence(s.ResolutionOutcomes)
		totalWeight += resolutionWeight
	}

	if totalWeight == 0 {
		return NoMemoryFloor
	}

	return model.ClampConfidence(weighted / totalWeight)
}

// vendorConfidence is the usage-weighted mean of vendor pattern confidences.
// Patterns that have never been used count with weight one so a fresh
// pattern still contributes.
func vendorConfidence(patterns []model.VendorPattern) float64 {
	var sum, weights float64
	for _, p := range patterns {
		w := float64(p.UseCount)
		if w < 1 {
			w = 1
		}
		sum += p.Confidence * w
		weights += w
	}
	return sum / weights
}

func correctionConfidence(patterns []model.CorrectionPattern) float64 {
	var sum float64
	for _, p := range patterns {
		sum += p.Confidence
	}
	return sum / float64(len(patterns))
}

func resolutionConfidence(outcomes []model.ResolutionOutcome) float64 {
	var sum float64
	for _, o := range outcomes {
		sum += o.Confidence
	}
	return sum / float64(len(outcomes))
}
