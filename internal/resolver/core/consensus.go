package core

import (
	"fmt"
	"math"
	"strings"
)

const (
	medianMaxIterations = 100
	medianTolerance     = 1e-6
	medianEpsilon       = 1e-9
)

// Aggregate partitions non-skipped agent results by outcome, picks the
// majority label, and computes a geometric-median confidence over the
// majority group only. Ties between equal vote groups resolve in the
// documented enumeration order YES, NO, AMBIGUOUS.
func Aggregate(results []AgentResult) ConsensusResult {
	votes := map[Outcome]int{OutcomeYes: 0, OutcomeNo: 0, OutcomeAmbiguous: 0}
	groups := make(map[Outcome][]AgentResult)
	for _, r := range results {
		if r.Skipped {
			continue
		}
		votes[r.Outcome]++
		groups[r.Outcome] = append(groups[r.Outcome], r)
	}

	winner := OutcomeAmbiguous
	best := -1
	for _, o := range outcomeOrder {
		if votes[o] > best {
			best = votes[o]
			winner = o
		}
	}

	majority := groups[winner]
	confidences := make([]float64, len(majority))
	var rationales []string
	seen := make(map[string]struct{})
	var sources []string
	for i, r := range majority {
		confidences[i] = float64(r.Confidence)
		if r.Rationale != "" {
			rationales = append(rationales, fmt.Sprintf("[%s] %s", r.Agent, r.Rationale))
		}
		for _, s := range r.Sources {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			sources = append(sources, s)
		}
	}

	return ConsensusResult{
		Outcome:    winner,
		Confidence: geometricMedian(confidences),
		Rationale:  strings.Join(rationales, "\n\n"),
		Sources:    sources,
		AgentVotes: votes,
	}
}

// geometricMedian computes the one-dimensional geometric median of the given
// confidences via Weiszfeld iteration: start at the arithmetic mean and
// repeatedly re-weight each point by the inverse of its distance to the
// current iterate. More robust to a single outlying agent than a plain mean.
//
// Degenerate cases: an empty set yields a neutral 50 (cannot normally occur,
// the majority group is non-empty by construction); a single point is its
// own median.
func geometricMedian(points []float64) float64 {
	switch len(points) {
	case 0:
		return 50
	case 1:
		return points[0]
	}

	var sum float64
	for _, p := range points {
		sum += p
	}
	current := sum / float64(len(points))

	for i := 0; i < medianMaxIterations; i++ {
		var num, den float64
		for _, p := range points {
			w := 1.0 / (math.Abs(p-current) + medianEpsilon)
			num += p * w
			den += w
		}
		next := num / den
		if math.Abs(next-current) < medianTolerance {
			return next
		}
		current = next
	}
	return current
}
