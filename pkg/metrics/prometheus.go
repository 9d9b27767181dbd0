package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	pagesFetched *prometheus.CounterVec
	pageSize     *prometheus.HistogramVec
	fetchErrors  *prometheus.CounterVec
	bioLookups   *prometheus.CounterVec
	notices      prometheus.Counter
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		pagesFetched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsefeed_pages_fetched_total",
				Help: "Total number of signature pages fetched",
			},
			[]string{"mode"},
		),
		pageSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulsefeed_page_size",
				Help:    "Number of signatures per fetched page",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
			[]string{"mode"},
		),
		fetchErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsefeed_fetch_errors_total",
				Help: "Total number of page fetch failures by kind",
			},
			[]string{"kind"},
		),
		bioLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsefeed_biometric_lookups_total",
				Help: "Biometric window resolutions by outcome",
			},
			[]string{"outcome"},
		),
		notices: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pulsefeed_ledger_notices_total",
				Help: "Account activity notifications received over the websocket stream",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulsefeed_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordPage records a successfully fetched page and its size.
func (r *Recorder) RecordPage(mode string, size int) {
	r.pagesFetched.WithLabelValues(mode).Inc()
	r.pageSize.WithLabelValues(mode).Observe(float64(size))
}

// RecordFetchError records a page fetch failure.
func (r *Recorder) RecordFetchError(kind string) {
	r.fetchErrors.WithLabelValues(kind).Inc()
}

// RecordBiometric records the outcome of one window resolution.
func (r *Recorder) RecordBiometric(outcome string) {
	r.bioLookups.WithLabelValues(outcome).Inc()
}

// RecordNotice records one ledger stream notification.
func (r *Recorder) RecordNotice() {
	r.notices.Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
