package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for the timesheet endpoints. Each instance owns
// its own registry so routers built in tests never collide.
type Metrics struct {
	registry           *prometheus.Registry
	submissions        *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	diffFallbacks      prometheus.Counter
	saveDuration       prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timesheet",
			Subsystem: "week",
			Name:      "submissions_total",
			Help:      "Week submissions by outcome (saved, unchanged, rejected, failed).",
		}, []string{"outcome"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timesheet",
			Subsystem: "week",
			Name:      "validation_failures_total",
			Help:      "Rejected submissions by the first rule they violated.",
		}, []string{"rule"}),
		diffFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "timesheet",
			Subsystem: "week",
			Name:      "diff_fallbacks_total",
			Help:      "Saves where change detection failed and the fallback message was recorded.",
		}),
		saveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "timesheet",
			Subsystem: "week",
			Name:      "save_duration_seconds",
			Help:      "Time spent in the save transaction.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.submissions,
		m.validationFailures,
		m.diffFallbacks,
		m.saveDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) recordSubmission(outcome string) {
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordValidationFailure(rule string) {
	m.validationFailures.WithLabelValues(rule).Inc()
	m.submissions.WithLabelValues("rejected").Inc()
}

func (m *Metrics) recordDiffFallback() {
	m.diffFallbacks.Inc()
}

func (m *Metrics) observeSave(start time.Time) {
	m.saveDuration.Observe(time.Since(start).Seconds())
}
