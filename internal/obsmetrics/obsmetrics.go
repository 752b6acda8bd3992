// Package obsmetrics exposes sdlctl's Prometheus metrics: tool-call
// outcomes, policy decisions, slice-build cost, and cache effectiveness.
// The /metrics endpoint itself is optional and off by default (spec §7,
// config.ObservabilityConfig), following the metrics-addr flag pattern
// vjache-cie/cmd/cie/index.go uses to start a promhttp.Handler on a
// background goroutine only when an address is configured.
package obsmetrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sdlctl/sdlctl/internal/logging"
)

// Registry groups every metric sdlctl records, registered against its own
// prometheus.Registry rather than the global default so tests can spin up
// isolated instances.
type Registry struct {
	registry *prometheus.Registry

	ToolCalls          *prometheus.CounterVec
	PolicyDecisions    *prometheus.CounterVec
	SliceBuildSeconds  prometheus.Histogram
	SliceCardsAdmitted prometheus.Histogram
	CardCacheResults   *prometheus.CounterVec
	IndexRunSeconds    prometheus.Histogram
	IndexSymbolsTotal  *prometheus.GaugeVec
}

// New builds a Registry with every metric registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		registry: reg,
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sdlctl", Name: "tool_calls_total",
			Help: "MCP/CLI tool invocations by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		PolicyDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sdlctl", Name: "policy_decisions_total",
			Help: "Policy engine decisions by rule name and effect.",
		}, []string{"rule", "effect"}),
		SliceBuildSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sdlctl", Name: "slice_build_seconds",
			Help:    "Wall time spent building one context slice.",
			Buckets: prometheus.DefBuckets,
		}),
		SliceCardsAdmitted: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sdlctl", Name: "slice_cards_admitted",
			Help:    "Number of SymbolCards admitted into a context slice.",
			Buckets: []float64{1, 2, 5, 10, 20, 40, 60, 100},
		}),
		CardCacheResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sdlctl", Name: "card_cache_results_total",
			Help: "Card cache lookups by result (hit/miss).",
		}, []string{"result"}),
		IndexRunSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sdlctl", Name: "index_run_seconds",
			Help:    "Wall time spent on one full index run.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		IndexSymbolsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sdlctl", Name: "index_symbols_total",
			Help: "Symbol count of the most recent complete index version, per repo.",
		}, []string{"repo_id"}),
	}

	reg.MustRegister(
		m.ToolCalls, m.PolicyDecisions, m.SliceBuildSeconds, m.SliceCardsAdmitted,
		m.CardCacheResults, m.IndexRunSeconds, m.IndexSymbolsTotal,
	)
	return m
}

// ObserveCardCache records one cache lookup outcome.
func (m *Registry) ObserveCardCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CardCacheResults.WithLabelValues(result).Inc()
}

// ObserveToolCall records one tool invocation's outcome.
func (m *Registry) ObserveToolCall(tool, outcome string) {
	m.ToolCalls.WithLabelValues(tool, outcome).Inc()
}

// ObservePolicyDecision records one policy rule's effect.
func (m *Registry) ObservePolicyDecision(rule, effect string) {
	m.PolicyDecisions.WithLabelValues(rule, effect).Inc()
}

// Server wraps an http.Server serving /metrics, started only when
// config.ObservabilityConfig.MetricsEnabled is set.
type Server struct {
	httpServer *http.Server
	logger     *logging.Logger
}

// NewServer builds (without starting) a metrics HTTP server on addr.
func NewServer(addr string, reg *Registry, logger *logging.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.registry, promhttp.HandlerOpts{}))
	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second},
		logger:     logger,
	}
}

// Start runs the metrics server on a background goroutine. Listen errors
// other than a clean Shutdown are logged, never propagated — the metrics
// endpoint is diagnostics, not a load-bearing dependency of indexing or
// serving slices.
func (s *Server) Start() {
	go func() {
		s.logger.Info("metrics server starting", map[string]interface{}{"addr": s.httpServer.Addr})
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server stopped", map[string]interface{}{"error": err.Error()})
		}
	}()
}

// Shutdown gracefully stops the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
