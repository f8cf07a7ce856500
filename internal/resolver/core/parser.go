package core

import (
	"regexp"
	"strconv"
	"strings"
)

// maxExtractedSources bounds the payload size carried downstream.
const maxExtractedSources = 3

// ParseDefaults are the fallback values used when a field is missing or
// malformed. Each agent role supplies its own default confidence.
type ParseDefaults struct {
	Outcome    Outcome
	Confidence int
}

var (
	outcomeRe    = regexp.MustCompile(`(?i)OUTCOME\s*[:\-]\s*\**\s*(YES|NO|AMBIGUOUS)`)
	confidenceRe = regexp.MustCompile(`(?i)CONFIDENCE\s*[:\-]\s*\**\s*(\d{1,3})`)
	rationaleRe  = regexp.MustCompile(`(?is)RATIONALE\s*[:\-]\s*\**\s*(.+?)(?:\n\s*(?:OUTCOME|CONFIDENCE|SOURCES)\s*[:\-]|\z)`)
	sourceRe     = regexp.MustCompile(`https?://[^\s"'<>\)\]]+`)
)

// ParseAgentResponse extracts the structured fields of an agent reply from
// free-form text. It never fails: missing or malformed fields fall back to
// the supplied defaults, so a parser miss is indistinguishable from an agent
// that honestly reported AMBIGUOUS.
func ParseAgentResponse(text string, defaults ParseDefaults) (Outcome, int, string, []string) {
	outcome := defaults.Outcome
	if outcome == "" {
		outcome = OutcomeAmbiguous
	}
	if m := outcomeRe.FindStringSubmatch(text); m != nil {
		outcome = Outcome(strings.ToUpper(m[1]))
	}

	confidence := defaults.Confidence
	if m := confidenceRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			confidence = clampInt(v, 0, 100)
		}
	}

	rationale := ""
	if m := rationaleRe.FindStringSubmatch(text); m != nil {
		rationale = strings.TrimSpace(m[1])
	}

	return outcome, confidence, rationale, extractSources(text)
}

// extractSources opportunistically pulls URLs out of the reply. The URLs are
// not verified and the list is capped at maxExtractedSources.
func extractSources(text string) []string {
	matches := sourceRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;")
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
		if len(out) == maxExtractedSources {
			break
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
