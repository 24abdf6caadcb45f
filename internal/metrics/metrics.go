// Package metrics exposes turn and matching counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Match outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeExact    = "exact"
	OutcomeClarify  = "clarify"
	OutcomeNoMatch  = "no_match"
	OutcomeError    = "error"
)

// Recorder receives turn events. The orchestrator only depends on this interface.
type Recorder interface {
	ObserveTurn(stage, intent string, elapsed time.Duration)
	TurnError(kind string)
	MatchOutcome(outcome string)
	OrderFinalized()
}

// Nop discards every event.
type Nop struct{}

// ObserveTurn implements Recorder.
func (Nop) ObserveTurn(string, string, time.Duration) {}

// TurnError implements Recorder.
func (Nop) TurnError(string) {}

// MatchOutcome implements Recorder.
func (Nop) MatchOutcome(string) {}

// OrderFinalized implements Recorder.
func (Nop) OrderFinalized() {}

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	turns         *prometheus.CounterVec
	turnDuration  prometheus.Histogram
	turnErrors    *prometheus.CounterVec
	matchOutcomes *prometheus.CounterVec
	finalized     prometheus.Counter
}

// New registers the tableside collectors plus the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tableside_turns_total",
				Help: "Dialog turns handled, by resulting stage and classified intent",
			},
			[]string{"stage", "intent"},
		),
		turnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tableside_turn_duration_seconds",
				Help:    "Time taken to handle one dialog turn",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
			},
		),
		turnErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tableside_turn_errors_total",
				Help: "Turns that hit an error, by error kind",
			},
			[]string{"kind"},
		),
		matchOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tableside_match_outcomes_total",
				Help: "Catalog match results by outcome",
			},
			[]string{"outcome"},
		),
		finalized: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tableside_orders_finalized_total",
				Help: "Orders confirmed and persisted",
			},
		),
	}

	m.registry.MustRegister(
		m.turns,
		m.turnDuration,
		m.turnErrors,
		m.matchOutcomes,
		m.finalized,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveTurn implements Recorder.
func (m *Metrics) ObserveTurn(stage, intent string, elapsed time.Duration) {
	m.turns.WithLabelValues(stage, intent).Inc()
	m.turnDuration.Observe(elapsed.Seconds())
}

// TurnError implements Recorder.
func (m *Metrics) TurnError(kind string) {
	m.turnErrors.WithLabelValues(kind).Inc()
}

// MatchOutcome implements Recorder.
func (m *Metrics) MatchOutcome(outcome string) {
	m.matchOutcomes.WithLabelValues(outcome).Inc()
}

// OrderFinalized implements Recorder.
func (m *Metrics) OrderFinalized() {
	m.finalized.Inc()
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
