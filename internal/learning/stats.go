package learning

import "time"

// Event kinds tracked by the in-process log. The log backs on-demand
// statistics only; it is not durable across restarts.
const (
	eventReinforcement = "reinforcement"
	eventApproval      = "approval"
	eventRejection     = "rejection"
	eventNewPattern    = "new_pattern"
)

type event struct {
	at         time.Time
	kind       string
	memoryType string
	documentID string
	delta      float64
}

// Stats summarizes the learner's activity since construction.
type Stats struct {
	AvgConfidenceDelta map[string]float64
	TotalEvents        int
	Positive           int
	Negative           int
	NewPatterns        int
	DocumentsLearned   int
}

func reinforcementKind(approved bool) string {
	if approved {
		return eventApproval
	}
	return eventRejection
}

func (l *Learner) recordEvent(e event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// Stats computes running statistics from the in-process event log.
func (l *Learner) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := Stats{
		AvgConfidenceDelta: make(map[string]float64),
		TotalEvents:        len(l.events),
		DocumentsLearned:   len(l.learned),
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, e := range l.events {
		switch e.kind {
		case eventApproval:
			stats.Positive++
		case eventRejection:
			stats.Negative++
		case eventNewPattern:
			stats.NewPatterns++
		}
		if e.memoryType != "" {
			sums[e.memoryType] += e.delta
			counts[e.memoryType]++
		}
	}

	for memoryType, sum := range sums {
		stats.AvgConfidenceDelta[memoryType] = sum / float64(counts[memoryType])
	}

	return stats
}
