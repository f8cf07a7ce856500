package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Jaden-Nix/swarmverify/config"
)

// Telemetry records resolution and agent events, both into prometheus
// collectors (exposed on /metrics) and into an in-process aggregate that the
// ops endpoints can report without scraping.
type Telemetry struct {
	config   config.TelemetryConfig
	logger   *log.Logger
	registry *prometheus.Registry
	mu       sync.RWMutex
	metrics  Metrics

	resolutionsTotal *prometheus.CounterVec
	agentFailures    *prometheus.CounterVec
	agentDuration    *prometheus.HistogramVec
	finalConfidence  prometheus.Histogram
}

// Metrics holds aggregate counters since process start. Paths are keyed by
// their string label to keep this package free of engine types.
type Metrics struct {
	Resolutions       int64            `json:"resolutions"`
	ResolutionsByPath map[string]int64 `json:"resolutions_by_path"`
	AgentRuns         map[string]int64 `json:"agent_runs"`
	AgentFailures     map[string]int64 `json:"agent_failures"`
	SecondPasses      int64            `json:"second_passes"`
}

// AgentEvent captures one agent invocation.
type AgentEvent struct {
	Agent    string
	Duration time.Duration
	Degraded bool
	Skipped  bool
}

// ResolutionEvent captures one completed resolution call.
type ResolutionEvent struct {
	MarketID   string
	Path       string
	Confidence int
	Duration   time.Duration
}

// NewTelemetry creates a telemetry instance with its own prometheus
// registry; the server exposes it on /metrics.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Telemetry{
		config:   cfg,
		logger:   log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		registry: registry,
		metrics: Metrics{
			ResolutionsByPath: make(map[string]int64),
			AgentRuns:         make(map[string]int64),
			AgentFailures:     make(map[string]int64),
		},
		resolutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "swarmverify_resolutions_total",
			Help: "Completed resolution calls by routing path.",
		}, []string{"path"}),
		agentFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "swarmverify_agent_failures_total",
			Help: "Agent invocations degraded by error or timeout.",
		}, []string{"agent"}),
		agentDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swarmverify_agent_duration_seconds",
			Help:    "Wall time of individual agent invocations.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"agent"}),
		finalConfidence: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "swarmverify_final_confidence",
			Help:    "Final blended confidence of completed resolutions.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}
}

// Registry exposes the prometheus registry for the /metrics handler.
func (t *Telemetry) Registry() *prometheus.Registry {
	return t.registry
}

// RecordAgentEvent records one agent invocation.
func (t *Telemetry) RecordAgentEvent(ev AgentEvent) {
	if t == nil || !t.config.Enabled {
		return
	}
	t.agentDuration.WithLabelValues(ev.Agent).Observe(ev.Duration.Seconds())
	if ev.Degraded {
		t.agentFailures.WithLabelValues(ev.Agent).Inc()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.AgentRuns[ev.Agent]++
	if ev.Degraded {
		t.metrics.AgentFailures[ev.Agent]++
	}
}

// RecordResolutionEvent records one completed resolution.
func (t *Telemetry) RecordResolutionEvent(ev ResolutionEvent) {
	if t == nil || !t.config.Enabled {
		return
	}
	t.resolutionsTotal.WithLabelValues(ev.Path).Inc()
	t.finalConfidence.Observe(float64(ev.Confidence))

	t.mu.Lock()
	t.metrics.Resolutions++
	t.metrics.ResolutionsByPath[ev.Path]++
	t.mu.Unlock()

	if t.config.PeriodicLogs {
		t.logger.Printf("resolved market %s path=%s confidence=%d in %v", ev.MarketID, ev.Path, ev.Confidence, ev.Duration)
	}
}

// RecordSecondPass counts a second-pass review.
func (t *Telemetry) RecordSecondPass() {
	if t == nil || !t.config.Enabled {
		return
	}
	t.mu.Lock()
	t.metrics.SecondPasses++
	t.mu.Unlock()
}

// GetMetrics returns a copy of the aggregate counters.
func (t *Telemetry) GetMetrics() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := Metrics{
		Resolutions:       t.metrics.Resolutions,
		SecondPasses:      t.metrics.SecondPasses,
		ResolutionsByPath: make(map[string]int64, len(t.metrics.ResolutionsByPath)),
		AgentRuns:         make(map[string]int64, len(t.metrics.AgentRuns)),
		AgentFailures:     make(map[string]int64, len(t.metrics.AgentFailures)),
	}
	for k, v := range t.metrics.ResolutionsByPath {
		out.ResolutionsByPath[k] = v
	}
	for k, v := range t.metrics.AgentRuns {
		out.AgentRuns[k] = v
	}
	for k, v := range t.metrics.AgentFailures {
		out.AgentFailures[k] = v
	}
	return out
}
