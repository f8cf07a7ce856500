package core

import (
	"context"
	"time"
)

// Outcome is the label an agent (or the consensus) assigns to a market.
type Outcome string

const (
	OutcomeYes       Outcome = "YES"
	OutcomeNo        Outcome = "NO"
	OutcomeAmbiguous Outcome = "AMBIGUOUS"
)

// outcomeOrder is the documented tie-break order for equal vote groups.
var outcomeOrder = []Outcome{OutcomeYes, OutcomeNo, OutcomeAmbiguous}

// ResolutionPath is the terminal state of the confidence router.
type ResolutionPath string

const (
	PathAutoResolve  ResolutionPath = "auto-resolve"
	PathSecondPass   ResolutionPath = "second-pass"
	PathManualReview ResolutionPath = "manual-review"
)

// Market is the read-only view of a prediction-market question. Free-text
// fields are sanitized and truncated before they reach any prompt.
type Market struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	ResolutionDate time.Time `json:"resolution_date"`
}

// AgentResult is the normalized output of a single agent invocation.
// Outcome is always one of the three labels; a parse failure or agent error
// produces OutcomeAmbiguous with low fixed confidence, never an unset value.
type AgentResult struct {
	Agent      string    `json:"agent"`
	Outcome    Outcome   `json:"outcome"`
	Confidence int       `json:"confidence"` // 0..100
	Rationale  string    `json:"rationale"`
	Sources    []string  `json:"sources,omitempty"` // opportunistic, unverified, ≤3
	Skipped    bool      `json:"skipped,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ConsensusResult is the majority-vote aggregate over agent results.
type ConsensusResult struct {
	Outcome    Outcome         `json:"outcome"`
	Confidence float64         `json:"confidence"`
	Rationale  string          `json:"rationale"`
	Sources    []string        `json:"sources,omitempty"`
	AgentVotes map[Outcome]int `json:"agent_votes"`
}

// ScoringResult holds the four quality dimensions and their weighted blend.
type ScoringResult struct {
	Factual         float64 `json:"factual"`
	Consistency     float64 `json:"consistency"`
	Timestamp       float64 `json:"timestamp"`
	Sentiment       float64 `json:"sentiment"`
	FinalConfidence int     `json:"final_confidence"`
}

// AgentVote is the per-agent summary embedded in a Resolution.
type AgentVote struct {
	Agent      string  `json:"agent"`
	Outcome    Outcome `json:"outcome"`
	Confidence int     `json:"confidence"`
}

// Resolution is the final output of one resolution call. It is immutable
// once returned; persistence is the caller's responsibility.
type Resolution struct {
	ID         string          `json:"id"`
	MarketID   string          `json:"market_id"`
	Outcome    Outcome         `json:"outcome"`
	Confidence int             `json:"confidence"`
	Rationale  string          `json:"rationale"`
	Sources    []string        `json:"sources,omitempty"`
	AgentVotes map[Outcome]int `json:"agent_votes"`
	Scoring    ScoringResult   `json:"scoring_details"`
	Agents     []AgentVote     `json:"agents"`
	Path       ResolutionPath  `json:"path"`
	Timestamp  time.Time       `json:"timestamp"`
}

// SecondPassResult is the output of the independent re-verification call
// triggered for the middle confidence band. It never replaces the first-pass
// Resolution; the caller persists it as a separate evidence record.
type SecondPassResult struct {
	Outcome             Outcome `json:"outcome"`
	Confidence          int     `json:"confidence"`
	Rationale           string  `json:"rationale"`
	IsSecondPass        bool    `json:"is_second_pass"`
	FirstPassConfidence int     `json:"first_pass_confidence"`
}

// GenerateOptions carries per-call sampling settings for the LLM backend.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// LLMProvider is the reasoning-backend capability the engine consumes:
// submit a system-instruction/user-prompt pair, receive free-form text.
// Any vendor satisfying this shape is acceptable.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts GenerateOptions) (string, error)
}

// Searcher is the optional keyless search capability used by the
// web-fact-checker agent. Its absence degrades that agent, never the engine.
type Searcher interface {
	AbstractText(ctx context.Context, query string) (string, error)
}

// Agent is one independent reasoning or heuristic procedure producing an
// outcome vote plus confidence for a market. Blind agents ignore prior.
type Agent interface {
	Name() string
	Execute(ctx context.Context, market Market, prior []AgentResult) (AgentResult, error)
}
