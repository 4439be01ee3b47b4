package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nholik/bq-sentinel/internal/testconn"
)

// Metrics wraps Prometheus collectors for bq-sentinel.
type Metrics struct {
	registry               *prometheus.Registry
	runDurationSeconds     prometheus.Histogram
	stepOutcomesTotal      *prometheus.CounterVec
	stepStatus             *prometheus.GaugeVec
	connectionErrorsTotal  prometheus.Counter
	reportErrorsTotal      prometheus.Counter
	lastSuccessfulRunGauge prometheus.Gauge
}

// New initializes a Metrics registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		runDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bq_sentinel_run_duration_seconds",
			Help:    "Duration of test connection runs in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		stepOutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bq_sentinel_step_outcomes_total",
			Help: "Total step outcomes by service type, step and status.",
		}, []string{"service_type", "step", "status"}),
		stepStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bq_sentinel_step_status",
			Help: "Latest step outcome: 1 for the current status, 0 otherwise.",
		}, []string{"service_type", "step", "status"}),
		connectionErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bq_sentinel_connection_errors_total",
			Help: "Total failures to open a BigQuery connection.",
		}),
		reportErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bq_sentinel_report_errors_total",
			Help: "Total failures to deliver or persist a report.",
		}),
		lastSuccessfulRunGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bq_sentinel_last_successful_run_timestamp",
			Help: "Unix timestamp of the last run without failed steps.",
		}),
	}

	registry.MustRegister(
		m.runDurationSeconds,
		m.stepOutcomesTotal,
		m.stepStatus,
		m.connectionErrorsTotal,
		m.reportErrorsTotal,
		m.lastSuccessfulRunGauge,
	)

	return m
}

// Handler returns a Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStep implements testconn.Observer.
func (m *Metrics) ObserveStep(serviceType string, result testconn.StepResult) {
	if m == nil {
		return
	}
	m.stepOutcomesTotal.WithLabelValues(serviceType, result.Name, string(result.Status)).Inc()
	for _, status := range []testconn.Status{testconn.StatusPassed, testconn.StatusFailed, testconn.StatusSkipped} {
		value := 0.0
		if status == result.Status {
			value = 1
		}
		m.stepStatus.WithLabelValues(serviceType, result.Name, string(status)).Set(value)
	}
}

// ObserveRunDuration records the duration of a completed run.
func (m *Metrics) ObserveRunDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.runDurationSeconds.Observe(duration.Seconds())
}

// IncConnectionErrors increments the connection error counter.
func (m *Metrics) IncConnectionErrors() {
	if m == nil {
		return
	}
	m.connectionErrorsTotal.Inc()
}

// IncReportErrors increments the report error counter.
func (m *Metrics) IncReportErrors() {
	if m == nil {
		return
	}
	m.reportErrorsTotal.Inc()
}

// SetLastSuccessfulRunTimestamp sets the last successful run time.
func (m *Metrics) SetLastSuccessfulRunTimestamp(t time.Time) {
	if m == nil {
		return
	}
	m.lastSuccessfulRunGauge.Set(float64(t.Unix()))
}
