package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks dispatcher behavior for the /metrics endpoint.
type Metrics struct {
	registry         prometheus.Registerer
	dispatchesTotal  *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	claimedBatchSize prometheus.Histogram
	dueLag           prometheus.Histogram
	jobsActive       prometheus.Gauge
}

// InitMetrics registers dispatcher metrics under the herald namespace.
// A nil registerer falls back to the default one.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		registry: reg,
		dispatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "herald",
				Name:      "dispatches_total",
				Help:      "Job dispatches by outcome",
			},
			[]string{"outcome"},
		),
		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "herald",
				Name:      "dispatch_duration_seconds",
				Help:      "Duration of job dispatches including in-cycle retries",
				Buckets:   []float64{.05, .1, .5, 1, 5, 15, 30, 60, 120},
			},
			[]string{"outcome"},
		),
		claimedBatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "herald",
				Name:      "claimed_batch_size",
				Help:      "Jobs claimed per dispatch cycle",
				Buckets:   []float64{1, 2, 5, 10, 25, 50},
			},
		),
		dueLag: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "herald",
				Name:      "due_lag_seconds",
				Help:      "How far past next_run_at jobs are when claimed",
				Buckets:   []float64{1, 5, 15, 30, 60, 300, 900, 3600, 21600, 86400},
			},
		),
		jobsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "herald",
				Name:      "jobs_active",
				Help:      "Scheduled jobs currently in active status",
			},
		),
	}

	reg.MustRegister(
		m.dispatchesTotal,
		m.dispatchDuration,
		m.claimedBatchSize,
		m.dueLag,
		m.jobsActive,
	)

	return m
}

// RecordDispatch counts one finished dispatch.
func (m *Metrics) RecordDispatch(outcome string, duration time.Duration) {
	m.dispatchesTotal.WithLabelValues(outcome).Inc()
	m.dispatchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordBatch notes how many jobs one cycle claimed.
func (m *Metrics) RecordBatch(size int) {
	m.claimedBatchSize.Observe(float64(size))
}

// RecordDueLag notes how late a job was when claimed.
func (m *Metrics) RecordDueLag(lag time.Duration) {
	if lag < 0 {
		lag = 0
	}
	m.dueLag.Observe(lag.Seconds())
}

// SetJobsActive updates the active-jobs gauge.
func (m *Metrics) SetJobsActive(n int) {
	m.jobsActive.Set(float64(n))
}
