package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Agent names as they appear in votes and persisted resolutions.
const (
	AgentResearch     = "research"
	AgentSkeptic      = "skeptic"
	AgentFactChecker  = "web-fact-checker"
	AgentInvestigator = "investigator"
)

// Default confidences per role when the reply carries no CONFIDENCE field.
const (
	researchDefaultConfidence     = 50
	skepticDefaultConfidence      = 65
	investigatorDefaultConfidence = 45
	degradedConfidence            = 40
	factCheckerNeutralConfidence  = 45
)

// Sanitization bounds applied to market free text before it reaches any
// prompt. Market titles and descriptions are attacker-controlled.
const (
	maxTitleChars       = 200
	maxDescriptionChars = 300
	maxSeededRationale  = 300
)

const answerFormat = `Respond in exactly this format:
OUTCOME: YES, NO, or AMBIGUOUS
CONFIDENCE: an integer from 0 to 100
RATIONALE: a short explanation
SOURCES: up to three URLs, one per line (omit if none)`

// sanitizeMarket returns prompt-safe copies of the market's free-text
// fields: length-truncated and with quote characters escaped.
func sanitizeMarket(m Market) (title, description string) {
	return sanitizeField(m.Title, maxTitleChars), sanitizeField(m.Description, maxDescriptionChars)
}

func sanitizeField(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) > max {
		s = string(runes[:max])
	}
	r := strings.NewReplacer(`"`, `\"`, "`", "'", "\r", " ")
	return r.Replace(s)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// ResearchAgent issues a neutral, evidence-seeking prompt.
type ResearchAgent struct {
	llm LLMProvider
}

func NewResearchAgent(llm LLMProvider) *ResearchAgent {
	return &ResearchAgent{llm: llm}
}

func (a *ResearchAgent) Name() string { return AgentResearch }

func (a *ResearchAgent) Execute(ctx context.Context, market Market, _ []AgentResult) (AgentResult, error) {
	title, description := sanitizeMarket(market)
	system := "You are a research analyst verifying the real-world outcome of a prediction-market question. " +
		"Weigh the evidence neutrally and cite sources where you can."
	user := fmt.Sprintf(`Determine whether the following market question has resolved YES or NO. If the evidence is insufficient or contradictory, answer AMBIGUOUS.

Question: "%s"
Details: "%s"
Category: %s
Resolution date: %s

%s`, title, description, market.Category, market.ResolutionDate.Format("2006-01-02"), answerFormat)

	text, err := a.llm.Generate(ctx, system, user, GenerateOptions{Temperature: 0.2})
	if err != nil {
		return AgentResult{}, fmt.Errorf("research agent: %w", err)
	}
	outcome, confidence, rationale, sources := ParseAgentResponse(text, ParseDefaults{
		Outcome:    OutcomeAmbiguous,
		Confidence: researchDefaultConfidence,
	})
	return AgentResult{
		Agent:      a.Name(),
		Outcome:    outcome,
		Confidence: confidence,
		Rationale:  rationale,
		Sources:    sources,
		Timestamp:  time.Now(),
	}, nil
}

// SkepticAgent defaults to AMBIGUOUS absent overwhelming evidence. It runs
// twice per resolution: blind in phase 1, then seeded with the other agents'
// findings in phase 2 to challenge them.
type SkepticAgent struct {
	llm LLMProvider
}

func NewSkepticAgent(llm LLMProvider) *SkepticAgent {
	return &SkepticAgent{llm: llm}
}

func (a *SkepticAgent) Name() string { return AgentSkeptic }

func (a *SkepticAgent) Execute(ctx context.Context, market Market, prior []AgentResult) (AgentResult, error) {
	title, description := sanitizeMarket(market)
	system := "You are a professional skeptic reviewing prediction-market resolutions. " +
		"Default to AMBIGUOUS unless the evidence for YES or NO is overwhelming. " +
		"Your job is to find reasons the obvious answer might be wrong."

	var user string
	if len(prior) == 0 {
		user = fmt.Sprintf(`Challenge this market question. What would have to be true for it to resolve YES? For NO? Is the evidence actually conclusive?

Question: "%s"
Details: "%s"
Resolution date: %s

%s`, title, description, market.ResolutionDate.Format("2006-01-02"), answerFormat)
	} else {
		user = fmt.Sprintf(`Other verification agents reached the findings below for this market question. Challenge them: look for contradictions, stale evidence, and alternative interpretations, then give your own verdict.

Question: "%s"
Details: "%s"

Findings:
%s

%s`, title, description, summarizeFindings(prior), answerFormat)
	}

	text, err := a.llm.Generate(ctx, system, user, GenerateOptions{Temperature: 0.3})
	if err != nil {
		return AgentResult{}, fmt.Errorf("skeptic agent: %w", err)
	}
	outcome, confidence, rationale, sources := ParseAgentResponse(text, ParseDefaults{
		Outcome:    OutcomeAmbiguous,
		Confidence: skepticDefaultConfidence,
	})
	return AgentResult{
		Agent:      a.Name(),
		Outcome:    outcome,
		Confidence: confidence,
		Rationale:  rationale,
		Sources:    sources,
		Timestamp:  time.Now(),
	}, nil
}

// summarizeFindings renders a bounded-length summary of each prior result so
// the cross-check prompt cannot grow without limit.
func summarizeFindings(prior []AgentResult) string {
	var b strings.Builder
	for _, r := range prior {
		if r.Skipped {
			continue
		}
		fmt.Fprintf(&b, "- %s voted %s (confidence %d): %s\n",
			r.Agent, r.Outcome, r.Confidence, truncateRunes(r.Rationale, maxSeededRationale))
	}
	return b.String()
}

// Polarity keywords counted by the fact checker against search abstracts.
var (
	affirmativeKeywords = []string{"confirmed", "won", "passed", "approved", "succeeded", "achieved", "completed", "announced", "launched"}
	negativeKeywords    = []string{"denied", "failed", "rejected", "lost", "cancelled", "canceled", "postponed", "delayed", "abandoned"}
)

// FactCheckerAgent is a purely heuristic, non-LLM agent: it queries a keyless
// instant-answer search endpoint and scores the outcome by counting polarity
// keyword hits in the abstract. Cheap and fast, it contributes an
// independent, differently-biased signal.
type FactCheckerAgent struct {
	search Searcher
}

func NewFactCheckerAgent(search Searcher) *FactCheckerAgent {
	return &FactCheckerAgent{search: search}
}

func (a *FactCheckerAgent) Name() string { return AgentFactChecker }

func (a *FactCheckerAgent) Execute(ctx context.Context, market Market, _ []AgentResult) (AgentResult, error) {
	if a.search == nil {
		return AgentResult{
			Agent:      a.Name(),
			Outcome:    OutcomeAmbiguous,
			Confidence: factCheckerNeutralConfidence,
			Rationale:  "search backend not configured",
			Timestamp:  time.Now(),
		}, nil
	}

	title, _ := sanitizeMarket(market)
	abstract, err := a.search.AbstractText(ctx, title)
	if err != nil {
		return AgentResult{}, fmt.Errorf("fact checker: %w", err)
	}
	if strings.TrimSpace(abstract) == "" {
		return AgentResult{
			Agent:      a.Name(),
			Outcome:    OutcomeAmbiguous,
			Confidence: factCheckerNeutralConfidence,
			Rationale:  "no search abstract available for this question",
			Timestamp:  time.Now(),
		}, nil
	}

	lower := strings.ToLower(abstract)
	pos := countKeywordHits(lower, affirmativeKeywords)
	neg := countKeywordHits(lower, negativeKeywords)

	outcome := OutcomeAmbiguous
	confidence := factCheckerNeutralConfidence
	switch {
	case pos > neg:
		outcome = OutcomeYes
		confidence = clampInt(50+8*pos, 0, 85)
	case neg > pos:
		outcome = OutcomeNo
		confidence = clampInt(50+8*neg, 0, 85)
	}

	return AgentResult{
		Agent:      a.Name(),
		Outcome:    outcome,
		Confidence: confidence,
		Rationale:  fmt.Sprintf("search abstract polarity: %d affirmative vs %d negative keyword hits", pos, neg),
		Timestamp:  time.Now(),
	}, nil
}

func countKeywordHits(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		n += strings.Count(text, kw)
	}
	return n
}

// InvestigatorAgent performs a deeper evidence dive. It is capability-gated:
// when its backend key is unconfigured it returns a skipped result, which the
// aggregator excludes from vote grouping entirely (a zero-weight vote would
// still count toward the majority).
type InvestigatorAgent struct {
	llm     LLMProvider
	enabled bool
}

func NewInvestigatorAgent(llm LLMProvider, enabled bool) *InvestigatorAgent {
	return &InvestigatorAgent{llm: llm, enabled: enabled}
}

func (a *InvestigatorAgent) Name() string { return AgentInvestigator }

func (a *InvestigatorAgent) Execute(ctx context.Context, market Market, _ []AgentResult) (AgentResult, error) {
	if !a.enabled {
		return AgentResult{
			Agent:     a.Name(),
			Outcome:   OutcomeAmbiguous,
			Skipped:   true,
			Rationale: "investigator backend not configured",
			Timestamp: time.Now(),
		}, nil
	}

	title, description := sanitizeMarket(market)
	system := "You are an investigative researcher. Dig into the specifics of the question: " +
		"primary sources, official records, dates, and named entities. Be precise about what is verifiable."
	user := fmt.Sprintf(`Investigate whether this market question has resolved YES or NO. Focus on concrete, dated evidence.

Question: "%s"
Details: "%s"
Resolution date: %s

%s`, title, description, market.ResolutionDate.Format("2006-01-02"), answerFormat)

	text, err := a.llm.Generate(ctx, system, user, GenerateOptions{Temperature: 0.2})
	if err != nil {
		return AgentResult{}, fmt.Errorf("investigator agent: %w", err)
	}
	outcome, confidence, rationale, sources := ParseAgentResponse(text, ParseDefaults{
		Outcome:    OutcomeAmbiguous,
		Confidence: investigatorDefaultConfidence,
	})
	return AgentResult{
		Agent:      a.Name(),
		Outcome:    outcome,
		Confidence: confidence,
		Rationale:  rationale,
		Sources:    sources,
		Timestamp:  time.Now(),
	}, nil
}
