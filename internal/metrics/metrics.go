// Package metrics defines the prometheus collectors of the service.
// All recording methods are safe to call on a nil *Metrics.
package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "knowledge"

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid_input"
	OutcomeConfig  = "configuration_error"
	OutcomeRemote  = "remote_error"
	OutcomeStore   = "persistence_error"
)

// Metrics groups the service collectors
type Metrics struct {
	AnalysesTotal   *prometheus.CounterVec
	InsightDuration *prometheus.HistogramVec
	SearchResults   prometheus.Histogram
	JobsEnqueued    prometheus.Counter

	registerer prometheus.Registerer
}

// New creates the collectors and registers them on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analysis requests by outcome.",
		}, []string{"outcome"}),
		InsightDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "insight_duration_seconds",
			Help:      "Duration of remote insight extraction calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		}, []string{"provider", "outcome"}),
		SearchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of records returned per search.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		JobsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_enqueued_total",
			Help:      "Asynchronous analysis jobs enqueued.",
		}),
		registerer: reg,
	}

	reg.MustRegister(m.AnalysesTotal, m.InsightDuration, m.SearchResults, m.JobsEnqueued)
	return m
}

// RegisterDB exports connection pool statistics for db
func (m *Metrics) RegisterDB(db *sql.DB, name string) error {
	if m == nil {
		return nil
	}
	return m.registerer.Register(collectors.NewDBStatsCollector(db, name))
}

// ObserveAnalysis counts one analysis request
func (m *Metrics) ObserveAnalysis(outcome string) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
}

// ObserveInsight records one remote call
func (m *Metrics) ObserveInsight(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.InsightDuration.WithLabelValues(provider, outcome).Observe(d.Seconds())
}

// ObserveSearch records the size of a search result
func (m *Metrics) ObserveSearch(results int) {
	if m == nil {
		return
	}
	m.SearchResults.Observe(float64(results))
}

// ObserveEnqueue counts one enqueued job
func (m *Metrics) ObserveEnqueue() {
	if m == nil {
		return
	}
	m.JobsEnqueued.Inc()
}
