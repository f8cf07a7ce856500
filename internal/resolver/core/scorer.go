package core

import (
	"context"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Jaden-Nix/swarmverify/config"
)

const (
	factualDefaultScore     = 75
	consistencyPenalty      = 8
	consistencyAgreeBonus   = 10
	sentimentPenalty        = 15
	timestampNearFutureDays = 7
)

// Keywords that contradict the consensus outcome, counted in the rationale.
var (
	yesContradictions = []string{"not ", "no evidence", "never", "unlikely", "false", "didn't", "won't", "failed"}
	noContradictions  = []string{"confirmed", "succeeded", "definitely happened", "did occur", "was achieved"}
)

// Absolutist language penalized as a proxy for overconfident reasoning.
var absolutistWords = []string{"obviously", "definitely", "always", "never", "certainly", "undeniably", "without a doubt"}

var scoreRe = regexp.MustCompile(`\d{1,3}`)

// Scorer computes the four quality dimensions over a consensus and blends
// them into the final confidence that drives routing.
type Scorer struct {
	llm     LLMProvider
	weights config.ScoreWeights
	logger  *log.Logger
	now     func() time.Time
}

func NewScorer(llm LLMProvider, weights config.ScoreWeights, logger *log.Logger) *Scorer {
	return &Scorer{llm: llm, weights: weights, logger: logger, now: time.Now}
}

// Score evaluates the consensus. Per-dimension failures degrade to fixed
// defaults; Score itself never fails.
func (s *Scorer) Score(ctx context.Context, market Market, consensus ConsensusResult) ScoringResult {
	res := ScoringResult{
		Factual:     s.factualScore(ctx, market, consensus),
		Consistency: s.consistencyScore(consensus),
		Timestamp:   s.timestampScore(market),
		Sentiment:   s.sentimentScore(consensus),
	}
	blend := s.weights.Factual*res.Factual +
		s.weights.Consistency*res.Consistency +
		s.weights.Timestamp*res.Timestamp +
		s.weights.Sentiment*res.Sentiment
	res.FinalConfidence = clampInt(int(math.Round(blend)), 0, 100)
	return res
}

// factualScore asks the reasoning backend to rate the consensus rationale's
// factual accuracy. Any failure degrades to a fixed default.
func (s *Scorer) factualScore(ctx context.Context, market Market, consensus ConsensusResult) float64 {
	if s.llm == nil {
		return factualDefaultScore
	}
	title, _ := sanitizeMarket(market)
	system := "You are a fact-checking grader. Rate reasoning for factual accuracy."
	user := "Rate the factual accuracy of the following reasoning about the market question \"" + title +
		"\" on a scale of 0 to 100. Respond with only the number.\n\nReasoning:\n" +
		truncateRunes(consensus.Rationale, 2000)

	text, err := s.llm.Generate(ctx, system, user, GenerateOptions{Temperature: 0, MaxTokens: 16})
	if err != nil {
		if s.logger != nil {
			s.logger.Printf("factual scoring degraded: %v", err)
		}
		return factualDefaultScore
	}
	m := scoreRe.FindString(text)
	if m == "" {
		return factualDefaultScore
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return factualDefaultScore
	}
	return float64(clampInt(v, 0, 100))
}

// consistencyScore starts at 100 and subtracts for each keyword in the
// rationale that contradicts the consensus outcome, with a bonus when more
// than one agent agreed on the majority label.
func (s *Scorer) consistencyScore(consensus ConsensusResult) float64 {
	score := 100.0
	lower := strings.ToLower(consensus.Rationale)

	var contradictions []string
	switch consensus.Outcome {
	case OutcomeYes:
		contradictions = yesContradictions
	case OutcomeNo:
		contradictions = noContradictions
	}
	for _, kw := range contradictions {
		score -= float64(consistencyPenalty * strings.Count(lower, kw))
	}
	if consensus.AgentVotes[consensus.Outcome] > 1 {
		score += consistencyAgreeBonus
	}
	return clampFloat(score, 0, 100)
}

// timestampScore reflects that resolving a market before its stated
// resolution date is inherently less certain.
func (s *Scorer) timestampScore(market Market) float64 {
	now := s.now()
	if !market.ResolutionDate.After(now) {
		return 100
	}
	if market.ResolutionDate.Sub(now) <= timestampNearFutureDays*24*time.Hour {
		return 70
	}
	return 30
}

// sentimentScore penalizes absolutist, poorly-hedged language.
func (s *Scorer) sentimentScore(consensus ConsensusResult) float64 {
	score := 100.0
	lower := strings.ToLower(consensus.Rationale)
	for _, w := range absolutistWords {
		score -= float64(sentimentPenalty * strings.Count(lower, w))
	}
	return clampFloat(score, 0, 100)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
