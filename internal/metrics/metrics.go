// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

// Namespace prefixes every metric.
const Namespace = "newsingestor"

// Metrics holds the pipeline collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	SourcesTotal            *prometheus.CounterVec
	CandidatesTotal         *prometheus.CounterVec
	ItemsWrittenTotal       *prometheus.CounterVec
	SummarizeAttemptsTotal  *prometheus.CounterVec
	RunDurationSeconds      prometheus.Histogram
	LastRunTimestampSeconds prometheus.Gauge
}

var _ ports.RunRecorder = (*Metrics)(nil)

// New registers all collectors on a fresh registry, alongside the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		SourcesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sources_total",
			Help:      "Sources processed, by result.",
		}, []string{"result"}),
		CandidatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "candidates_total",
			Help:      "Candidates that reached a terminal state, by outcome.",
		}, []string{"outcome"}),
		ItemsWrittenTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "items_written_total",
			Help:      "News items upserted, by kind.",
		}, []string{"kind"}),
		SummarizeAttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "summarize_attempts_total",
			Help:      "Generation provider calls, by result.",
		}, []string{"result"}),
		RunDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a pipeline run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}),
		LastRunTimestampSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SourceFinished(failed bool) {
	result := "ok"
	if failed {
		result = "failed"
	}
	m.SourcesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) CandidateFinished(outcome domain.Outcome) {
	if outcome.State == domain.StateSkipped {
		m.CandidatesTotal.WithLabelValues(string(outcome.Reason)).Inc()
		return
	}
	m.CandidatesTotal.WithLabelValues("written").Inc()
	m.ItemsWrittenTotal.WithLabelValues(string(outcome.Result)).Inc()
}

func (m *Metrics) RunFinished(summary domain.RunSummary) {
	m.RunDurationSeconds.Observe(summary.Duration().Seconds())
	if !summary.FinishedAt.IsZero() {
		m.LastRunTimestampSeconds.Set(float64(summary.FinishedAt.Unix()))
	}
}

// SummarizeAttempt counts one provider call.
func (m *Metrics) SummarizeAttempt(result string) {
	m.SummarizeAttemptsTotal.WithLabelValues(result).Inc()
}
