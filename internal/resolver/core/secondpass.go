package core

import (
	"context"
	"fmt"
	"log"
)

// SecondPassReviewer independently re-verifies a first-pass resolution that
// landed in the middle confidence band. It is told the first pass's verdict
// and asked to look for contradictions or alternative interpretations.
type SecondPassReviewer struct {
	llm     LLMProvider
	penalty int
	logger  *log.Logger
}

func NewSecondPassReviewer(llm LLMProvider, penalty int, logger *log.Logger) *SecondPassReviewer {
	return &SecondPassReviewer{llm: llm, penalty: penalty, logger: logger}
}

// Review issues one additional reasoning-backend call. On failure it degrades
// to the first pass's outcome with a fixed confidence penalty reflecting the
// unverifiable second check; it never fails.
func (r *SecondPassReviewer) Review(ctx context.Context, market Market, first Resolution) SecondPassResult {
	fallback := SecondPassResult{
		Outcome:             first.Outcome,
		Confidence:          clampInt(first.Confidence-r.penalty, 0, 100),
		Rationale:           "second-pass verification unavailable; first-pass outcome retained with confidence penalty",
		IsSecondPass:        true,
		FirstPassConfidence: first.Confidence,
	}
	if r.llm == nil {
		return fallback
	}

	title, description := sanitizeMarket(market)
	system := "You are an independent reviewer re-verifying a prediction-market resolution. " +
		"Look specifically for contradictions, overlooked evidence, and alternative interpretations."
	user := fmt.Sprintf(`A first verification pass resolved this market question as %s with confidence %d, reasoning:
%s

Re-verify independently. Do you agree? If anything contradicts the first pass, say so.

Question: "%s"
Details: "%s"

%s`, first.Outcome, first.Confidence, truncateRunes(first.Rationale, 1500), title, description, answerFormat)

	text, err := r.llm.Generate(ctx, system, user, GenerateOptions{Temperature: 0.2})
	if err != nil {
		if r.logger != nil {
			r.logger.Printf("second pass degraded for market %s: %v", market.ID, err)
		}
		return fallback
	}

	outcome, confidence, rationale, _ := ParseAgentResponse(text, ParseDefaults{
		Outcome:    first.Outcome,
		Confidence: clampInt(first.Confidence-r.penalty, 0, 100),
	})
	return SecondPassResult{
		Outcome:             outcome,
		Confidence:          confidence,
		Rationale:           rationale,
		IsSecondPass:        true,
		FirstPassConfidence: first.Confidence,
	}
}
