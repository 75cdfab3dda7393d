// Package metrics holds the Prometheus instruments of the job search
// service. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jobsearch"

// Metrics holds all instruments, registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	SourceCandidates  *prometheus.CounterVec
	SourceFailures    *prometheus.CounterVec
	StageListings     *prometheus.HistogramVec
	FreshnessOutcomes *prometheus.CounterVec
	SearchDuration    prometheus.Histogram
	TaskTransitions   *prometheus.CounterVec
}

// New creates and registers all metrics, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		SourceCandidates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_candidates_total",
			Help:      "Listings returned by each upstream source",
		}, []string{"source"}),
		SourceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Upstream source calls that returned an error or panicked",
		}, []string{"source"}),
		StageListings: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_listings",
			Help:      "Listings surviving each pipeline stage",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"stage"}),
		FreshnessOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "freshness_outcomes_total",
			Help:      "Freshness classification per listing",
		}, []string{"outcome"}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end pipeline search duration",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		TaskTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_transitions_total",
			Help:      "Search task status transitions",
		}, []string{"status"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSource counts the candidates one source returned and whether it failed.
func (m *Metrics) ObserveSource(source string, candidates int, failed bool) {
	if m == nil {
		return
	}
	m.SourceCandidates.WithLabelValues(source).Add(float64(candidates))
	if failed {
		m.SourceFailures.WithLabelValues(source).Inc()
	}
}

// ObserveStage records how many listings survived a pipeline stage.
func (m *Metrics) ObserveStage(stage string, n int) {
	if m == nil {
		return
	}
	m.StageListings.WithLabelValues(stage).Observe(float64(n))
}

// ObserveFreshness counts one freshness check by outcome.
func (m *Metrics) ObserveFreshness(outcome string) {
	if m == nil {
		return
	}
	m.FreshnessOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveSearch records the wall time of one search.
func (m *Metrics) ObserveSearch(d time.Duration) {
	if m == nil {
		return
	}
	m.SearchDuration.Observe(d.Seconds())
}

// ObserveTransition counts a task entering status. Safe on a nil *Metrics,
// like every Observe method.
func (m *Metrics) ObserveTransition(status string) {
	if m == nil {
		return
	}
	m.TaskTransitions.WithLabelValues(status).Inc()
}
