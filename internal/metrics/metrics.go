// Package metrics exposes prometheus collectors for visibility runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/visibility-cli/internal/model"
)

// Metrics holds the run collectors and the registry they are registered on.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal    *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	AnswerCalls  *prometheus.CounterVec
	LLMTokens    *prometheus.CounterVec
	LLMCost      *prometheus.CounterVec
	Coverage     prometheus.Histogram
	Confidence   prometheus.Histogram
	MaskedTerms  prometheus.Counter
	PhaseLatency *prometheus.HistogramVec
}

var scoreBuckets = []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}

// New creates a Metrics with collectors registered on a fresh registry
// alongside the go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "visibility_runs_total",
				Help: "Total number of visibility runs by final status",
			},
			[]string{"status", "mode"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "visibility_run_duration_seconds",
				Help:    "Visibility run duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 180},
			},
			[]string{"mode"},
		),
		AnswerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "visibility_answer_calls_total",
				Help: "Total answer source provider calls",
			},
			[]string{"provider", "status"},
		),
		LLMTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "visibility_llm_tokens_total",
				Help: "Total LLM tokens used",
			},
			[]string{"provider", "type"},
		),
		LLMCost: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "visibility_llm_cost_usd_total",
				Help: "Estimated LLM API cost in USD",
			},
			[]string{"provider"},
		),
		Coverage: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "visibility_coverage",
				Help:    "Share of answers that inferred the masked provider",
				Buckets: scoreBuckets,
			},
		),
		Confidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "visibility_confidence",
				Help:    "Visibility confidence score per run",
				Buckets: scoreBuckets,
			},
		),
		MaskedTerms: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "visibility_masked_terms_total",
				Help: "Total provider alias occurrences masked",
			},
		),
		PhaseLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "visibility_phase_duration_seconds",
				Help:    "Pipeline phase duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"phase", "status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RunsTotal,
		m.RunDuration,
		m.AnswerCalls,
		m.LLMTokens,
		m.LLMCost,
		m.Coverage,
		m.Confidence,
		m.MaskedTerms,
		m.PhaseLatency,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCall records one provider call sequence. It satisfies answer.Observer.
func (m *Metrics) ObserveCall(provider, status string, usage model.TokenUsage) {
	if m == nil {
		return
	}
	m.AnswerCalls.WithLabelValues(provider, status).Inc()
	if usage.InputTokens > 0 {
		m.LLMTokens.WithLabelValues(provider, "input").Add(float64(usage.InputTokens))
	}
	if usage.OutputTokens > 0 {
		m.LLMTokens.WithLabelValues(provider, "output").Add(float64(usage.OutputTokens))
	}
	if usage.Cost > 0 {
		m.LLMCost.WithLabelValues(provider).Add(usage.Cost)
	}
}

// ObservePhase records the duration of one pipeline phase.
func (m *Metrics) ObservePhase(phase string, status model.PhaseStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseLatency.WithLabelValues(phase, string(status)).Observe(d.Seconds())
}

// ObserveRun records a finished run. scores is nil for failed runs.
func (m *Metrics) ObserveRun(mode model.Mode, status model.RunStatus, d time.Duration, scores *model.VisibilityScorecard) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(string(status), string(mode)).Inc()
	m.RunDuration.WithLabelValues(string(mode)).Observe(d.Seconds())
	if scores != nil {
		m.Coverage.Observe(scores.Coverage)
		m.Confidence.Observe(scores.Confidence)
	}
}

// ObserveMasked adds n masked alias occurrences.
func (m *Metrics) ObserveMasked(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.MaskedTerms.Add(float64(n))
}
