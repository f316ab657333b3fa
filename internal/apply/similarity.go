package apply

import "strings"

// SimilarityThreshold is the minimum normalized edit similarity for two
// values to be considered a match.
const SimilarityThreshold = 0.8

// Similar reports whether two field values are close enough for a historical
// correction to apply: exact, case-insensitive, or at least the similarity
// threshold by normalized edit distance.
func Similar(a, b string) bool {
	if a == b {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return true
	}
	return Similarity(a, b) >= SimilarityThreshold
}

// Similarity returns the normalized edit similarity of two strings in
// [0, 1]: 1 minus the Levenshtein distance divided by the longer length.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes the edit distance between two strings using the
// two-row dynamic programming form.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}
