package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Jaden-Nix/swarmverify/config"
)

var testWeights = config.ScoreWeights{Factual: 0.45, Consistency: 0.25, Timestamp: 0.20, Sentiment: 0.10}

// fixedLLM returns the same text for every call.
type fixedLLM struct {
	text string
	err  error
}

func (f *fixedLLM) Generate(_ context.Context, _, _ string, _ GenerateOptions) (string, error) {
	return f.text, f.err
}

func TestTimestampScoreTiers(t *testing.T) {
	s := NewScorer(nil, testWeights, nil)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	cases := []struct {
		date time.Time
		want float64
	}{
		{now.AddDate(0, 0, -10), 100},
		{now, 100},
		{now.AddDate(0, 0, 3), 70},
		{now.AddDate(0, 0, 7), 70},
		{now.AddDate(0, 0, 30), 30},
	}
	for _, c := range cases {
		got := s.timestampScore(Market{ResolutionDate: c.date})
		if got != c.want {
			t.Fatalf("timestampScore(%s) = %f, want %f", c.date, got, c.want)
		}
	}
}

func TestSentimentScorePenalizesAbsolutism(t *testing.T) {
	s := NewScorer(nil, testWeights, nil)
	got := s.sentimentScore(ConsensusResult{Rationale: "This obviously happened and is definitely true."})
	if got != 70 {
		t.Fatalf("sentimentScore = %f, want 70", got)
	}
	got = s.sentimentScore(ConsensusResult{Rationale: "The filings suggest the event occurred."})
	if got != 100 {
		t.Fatalf("clean rationale scored %f, want 100", got)
	}
}

func TestConsistencyScoreContradictions(t *testing.T) {
	s := NewScorer(nil, testWeights, nil)
	c := ConsensusResult{
		Outcome:    OutcomeYes,
		Rationale:  "There is no evidence this happened and the launch failed.",
		AgentVotes: map[Outcome]int{OutcomeYes: 1},
	}
	if got := s.consistencyScore(c); got != 84 {
		t.Fatalf("consistencyScore = %f, want 84", got)
	}

	c.AgentVotes[OutcomeYes] = 2
	if got := s.consistencyScore(c); got != 94 {
		t.Fatalf("consistencyScore with agreement bonus = %f, want 94", got)
	}
}

func TestFactualScoreDegradesOnError(t *testing.T) {
	s := NewScorer(&fixedLLM{err: errors.New("backend down")}, testWeights, nil)
	got := s.factualScore(context.Background(), Market{Title: "q"}, ConsensusResult{Rationale: "r"})
	if got != factualDefaultScore {
		t.Fatalf("factualScore = %f, want default %d", got, factualDefaultScore)
	}

	s = NewScorer(&fixedLLM{text: "not a number"}, testWeights, nil)
	got = s.factualScore(context.Background(), Market{Title: "q"}, ConsensusResult{Rationale: "r"})
	if got != factualDefaultScore {
		t.Fatalf("factualScore on unparsable reply = %f, want default %d", got, factualDefaultScore)
	}
}

func TestScoreBlendsWeightedDimensions(t *testing.T) {
	s := NewScorer(&fixedLLM{text: "90"}, testWeights, nil)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	res := s.Score(context.Background(), Market{
		Title:          "Did the rocket launch succeed?",
		ResolutionDate: now.AddDate(0, 0, -1),
	}, ConsensusResult{
		Outcome:    OutcomeYes,
		Rationale:  "Multiple filings show the launch occurred on schedule.",
		AgentVotes: map[Outcome]int{OutcomeYes: 3},
	})

	if res.Factual != 90 || res.Consistency != 100 || res.Timestamp != 100 || res.Sentiment != 100 {
		t.Fatalf("dimensions = %+v", res)
	}
	// 0.45*90 + 0.25*100 + 0.20*100 + 0.10*100 = 95.5
	if res.FinalConfidence != 96 {
		t.Fatalf("final confidence = %d, want 96", res.FinalConfidence)
	}
}
