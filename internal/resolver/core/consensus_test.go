package core

import (
	"math"
	"strings"
	"testing"
)

func vote(agent string, outcome Outcome, confidence int) AgentResult {
	return AgentResult{Agent: agent, Outcome: outcome, Confidence: confidence, Rationale: agent + " reasoning"}
}

func TestAggregateMajorityWins(t *testing.T) {
	res := Aggregate([]AgentResult{
		vote(AgentResearch, OutcomeYes, 80),
		vote(AgentFactChecker, OutcomeYes, 90),
		vote(AgentSkeptic, OutcomeNo, 70),
		vote(AgentInvestigator, OutcomeAmbiguous, 40),
	})
	if res.Outcome != OutcomeYes {
		t.Fatalf("outcome = %s, want YES", res.Outcome)
	}
	if res.AgentVotes[OutcomeYes] != 2 || res.AgentVotes[OutcomeNo] != 1 || res.AgentVotes[OutcomeAmbiguous] != 1 {
		t.Fatalf("votes = %v", res.AgentVotes)
	}
	// Two-point geometric median stays at the midpoint.
	if math.Abs(res.Confidence-85) > 0.01 {
		t.Fatalf("confidence = %f, want 85", res.Confidence)
	}
	// Rationale only carries the majority group.
	if strings.Contains(res.Rationale, AgentSkeptic) {
		t.Fatalf("rationale includes minority agent: %q", res.Rationale)
	}
}

func TestAggregateTieBreakOrder(t *testing.T) {
	res := Aggregate([]AgentResult{
		vote(AgentResearch, OutcomeNo, 80),
		vote(AgentSkeptic, OutcomeYes, 80),
	})
	if res.Outcome != OutcomeYes {
		t.Fatalf("tie broke to %s, want YES", res.Outcome)
	}

	res = Aggregate([]AgentResult{
		vote(AgentResearch, OutcomeNo, 80),
		vote(AgentSkeptic, OutcomeAmbiguous, 80),
	})
	if res.Outcome != OutcomeNo {
		t.Fatalf("tie broke to %s, want NO", res.Outcome)
	}
}

func TestAggregateSkippedExcluded(t *testing.T) {
	res := Aggregate([]AgentResult{
		{Agent: AgentInvestigator, Outcome: OutcomeAmbiguous, Skipped: true},
		vote(AgentResearch, OutcomeNo, 75),
	})
	if res.Outcome != OutcomeNo {
		t.Fatalf("outcome = %s, want NO", res.Outcome)
	}
	if res.AgentVotes[OutcomeAmbiguous] != 0 {
		t.Fatalf("skipped result was counted: %v", res.AgentVotes)
	}
}

func TestAggregateEmpty(t *testing.T) {
	res := Aggregate(nil)
	if res.Outcome != OutcomeAmbiguous {
		t.Fatalf("outcome = %s, want AMBIGUOUS", res.Outcome)
	}
	if res.Confidence != 50 {
		t.Fatalf("confidence = %f, want neutral 50", res.Confidence)
	}
}

func TestAggregateSourceUnion(t *testing.T) {
	a := vote(AgentResearch, OutcomeYes, 80)
	a.Sources = []string{"https://example.com/x", "https://example.com/y"}
	b := vote(AgentFactChecker, OutcomeYes, 70)
	b.Sources = []string{"https://example.com/y", "https://example.com/z"}
	res := Aggregate([]AgentResult{a, b})
	if len(res.Sources) != 3 {
		t.Fatalf("sources = %v, want 3 unique", res.Sources)
	}
}

func TestAggregateCrossCheckScenario(t *testing.T) {
	// Research YES/88, blind skeptic YES/70, fact checker AMBIGUOUS/45,
	// cross-check skeptic YES/75: consensus is YES at the geometric median
	// of the majority group's confidences.
	results := []AgentResult{
		vote(AgentResearch, OutcomeYes, 88),
		vote(AgentSkeptic, OutcomeYes, 70),
		vote(AgentFactChecker, OutcomeAmbiguous, 45),
		vote(AgentSkeptic, OutcomeYes, 75),
	}
	res := Aggregate(results)
	if res.Outcome != OutcomeYes {
		t.Fatalf("outcome = %s, want YES", res.Outcome)
	}
	want := geometricMedian([]float64{88, 70, 75})
	if math.Abs(res.Confidence-want) > medianTolerance {
		t.Fatalf("confidence = %f, want %f", res.Confidence, want)
	}
}

func TestGeometricMedianSingleton(t *testing.T) {
	if got := geometricMedian([]float64{73}); got != 73 {
		t.Fatalf("median = %f, want 73", got)
	}
}

func TestGeometricMedianIdenticalPoints(t *testing.T) {
	if got := geometricMedian([]float64{50, 50, 50}); math.Abs(got-50) > medianTolerance {
		t.Fatalf("median = %f, want 50", got)
	}
}

func TestGeometricMedianPullsTowardMiddle(t *testing.T) {
	// In one dimension the geometric median converges on the middle value,
	// shrugging off the outlier more than a mean would.
	got := geometricMedian([]float64{88, 70, 75})
	if math.Abs(got-75) > 1.0 {
		t.Fatalf("median = %f, want about 75", got)
	}
}
