package core

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Jaden-Nix/swarmverify/config"
	"github.com/Jaden-Nix/swarmverify/internal/resolver/telemetry"
)

// Orchestrator runs the four-phase swarm-verify pipeline: parallel research,
// skeptic cross-check, consensus, scoring. The active agent set is fixed at
// construction from the configured capabilities.
//
// Failure semantics: only an unavailable reasoning backend is fatal, and it
// is detected once at construction. Every per-agent and per-scorer failure
// is absorbed as a degraded low-confidence signal — partial evidence lowers
// confidence, it does not crash resolution.
type Orchestrator struct {
	cfg       *config.Config
	logger    *log.Logger
	telemetry *telemetry.Telemetry

	llm      LLMProvider
	agents   []Agent
	skeptic  *SkepticAgent
	scorer   *Scorer
	router   *Router
	reviewer *SecondPassReviewer

	agentTimeout time.Duration
}

// NewOrchestrator wires the pipeline. It fails only when the reasoning
// backend is entirely unconfigured; the optional search and investigator
// capabilities merely shrink the active agent set's reach.
func NewOrchestrator(cfg *config.Config, logger *log.Logger, tele *telemetry.Telemetry, search Searcher) (*Orchestrator, error) {
	llm, err := NewLLMProvider(cfg.LLM)
	if err != nil {
		return nil, err
	}
	return newOrchestratorWith(cfg, logger, tele, llm, search), nil
}

// newOrchestratorWith accepts an already-built provider; tests use it to
// inject stubs.
func newOrchestratorWith(cfg *config.Config, logger *log.Logger, tele *telemetry.Telemetry, llm LLMProvider, search Searcher) *Orchestrator {
	skeptic := NewSkepticAgent(llm)
	agents := []Agent{
		NewResearchAgent(llm),
		skeptic,
		NewFactCheckerAgent(search),
		NewInvestigatorAgent(llm, cfg.Resolver.InvestigatorAPIKey != ""),
	}
	timeout := cfg.Resolver.AgentTimeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Orchestrator{
		cfg:          cfg,
		logger:       logger,
		telemetry:    tele,
		llm:          llm,
		agents:       agents,
		skeptic:      skeptic,
		scorer:       NewScorer(llm, cfg.Resolver.Weights, logger),
		router:       NewRouter(cfg.Resolver.AutoResolveThreshold, cfg.Resolver.SecondPassThreshold),
		reviewer:     NewSecondPassReviewer(llm, cfg.Resolver.SecondPassPenalty, logger),
		agentTimeout: timeout,
	}
}

// Resolve runs a full resolution for one market and returns the immutable
// Resolution record. The caller persists it and, for the second-pass path,
// invokes SecondPass.
func (o *Orchestrator) Resolve(ctx context.Context, market Market) (Resolution, error) {
	if o.llm == nil {
		return Resolution{}, ErrProviderUnavailable
	}
	start := time.Now()
	o.logger.Printf("resolving market %s: %q", market.ID, market.Title)

	// Phase 1: parallel research. Each agent races its own timeout; the
	// phase completes once every slot has settled, never aborting early on
	// a single failure.
	phase1 := make([]AgentResult, len(o.agents))
	var wg sync.WaitGroup
	for i, ag := range o.agents {
		wg.Add(1)
		go func(slot int, ag Agent) {
			defer wg.Done()
			phase1[slot] = o.runAgent(ctx, ag, market, nil)
		}(i, ag)
	}
	wg.Wait()

	// Phase 2: skeptic cross-check, seeded with everyone else's findings.
	var seed []AgentResult
	for _, r := range phase1 {
		if r.Agent == o.skeptic.Name() {
			continue
		}
		seed = append(seed, r)
	}
	crossCheck := o.runAgent(ctx, o.skeptic, market, seed)

	all := append(append([]AgentResult{}, phase1...), crossCheck)

	// Phase 3: consensus.
	consensus := Aggregate(all)

	// Phase 4: scoring. Dimension failures degrade inside the scorer; a
	// wholly unusable scorer falls back to the raw consensus confidence.
	scoring, err := o.safeScore(ctx, market, consensus)
	if err != nil {
		o.logger.Printf("scoring degraded for market %s: %v", market.ID, err)
		scoring = ScoringResult{
			Factual:         factualDefaultScore,
			Consistency:     factualDefaultScore,
			Timestamp:       factualDefaultScore,
			Sentiment:       factualDefaultScore,
			FinalConfidence: clampInt(int(math.Round(consensus.Confidence)), 0, 100),
		}
	}

	path := o.router.Route(scoring.FinalConfidence)

	votes := make([]AgentVote, 0, len(all))
	for _, r := range all {
		if r.Skipped {
			continue
		}
		votes = append(votes, AgentVote{Agent: r.Agent, Outcome: r.Outcome, Confidence: r.Confidence})
	}

	res := Resolution{
		ID:         uuid.NewString(),
		MarketID:   market.ID,
		Outcome:    consensus.Outcome,
		Confidence: scoring.FinalConfidence,
		Rationale:  consensus.Rationale,
		Sources:    consensus.Sources,
		AgentVotes: consensus.AgentVotes,
		Scoring:    scoring,
		Agents:     votes,
		Path:       path,
		Timestamp:  time.Now(),
	}

	o.telemetry.RecordResolutionEvent(telemetry.ResolutionEvent{
		MarketID:   market.ID,
		Path:       string(path),
		Confidence: scoring.FinalConfidence,
		Duration:   time.Since(start),
	})
	o.logger.Printf("market %s resolved %s (confidence %d, path %s) in %v",
		market.ID, res.Outcome, res.Confidence, res.Path, time.Since(start))
	return res, nil
}

// SecondPass runs the independent re-verification for a first-pass result
// that landed in the middle confidence band. It never fails.
func (o *Orchestrator) SecondPass(ctx context.Context, market Market, first Resolution) SecondPassResult {
	o.telemetry.RecordSecondPass()
	return o.reviewer.Review(ctx, market, first)
}

// safeScore shields resolution from an unexpected scorer fault; individual
// dimension failures are already absorbed inside the scorer itself.
func (o *Orchestrator) safeScore(ctx context.Context, market Market, consensus ConsensusResult) (res ScoringResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scorer panic: %v", r)
		}
	}()
	if o.scorer == nil {
		return ScoringResult{}, fmt.Errorf("scorer unavailable")
	}
	return o.scorer.Score(ctx, market, consensus), nil
}

// runAgent executes one agent under the per-agent timeout, converting
// timeouts, errors, and panics into degraded AMBIGUOUS results. The timeout
// is logical — the result channel is buffered so an orphaned in-flight call
// can still complete and be discarded — but the deadline is also propagated
// through the context so a well-behaved HTTP client gives up early.
func (o *Orchestrator) runAgent(ctx context.Context, ag Agent, market Market, prior []AgentResult) AgentResult {
	start := time.Now()
	actx, cancel := context.WithTimeout(ctx, o.agentTimeout)
	defer cancel()

	type settled struct {
		res AgentResult
		err error
	}
	ch := make(chan settled, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- settled{err: fmt.Errorf("agent panic: %v", r)}
			}
		}()
		res, err := ag.Execute(actx, market, prior)
		ch <- settled{res: res, err: err}
	}()

	var result AgentResult
	degraded := false
	select {
	case s := <-ch:
		if s.err != nil {
			o.logger.Printf("agent %s degraded for market %s: %v", ag.Name(), market.ID, s.err)
			result = degradedResult(ag.Name(), s.err.Error())
			degraded = true
		} else {
			result = s.res
		}
	case <-actx.Done():
		o.logger.Printf("agent %s timed out for market %s after %v", ag.Name(), market.ID, o.agentTimeout)
		result = degradedResult(ag.Name(), "timeout after "+o.agentTimeout.String())
		degraded = true
	}

	o.telemetry.RecordAgentEvent(telemetry.AgentEvent{
		Agent:    ag.Name(),
		Duration: time.Since(start),
		Degraded: degraded,
		Skipped:  result.Skipped,
	})
	return result
}

// degradedResult stands in for a failed or timed-out agent: a valid vote,
// just a low-confidence ambiguous one. It is included in vote grouping, not
// skipped.
func degradedResult(agent, errMsg string) AgentResult {
	return AgentResult{
		Agent:      agent,
		Outcome:    OutcomeAmbiguous,
		Confidence: degradedConfidence,
		Rationale:  "agent unavailable; treated as ambiguous evidence",
		Error:      errMsg,
		Timestamp:  time.Now(),
	}
}
