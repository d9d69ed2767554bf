package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pv_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard session.
type Metrics struct {
	// Forecast service transport.
	APIRequests *prometheus.CounterVec   // labels: endpoint, outcome={success,http_error,unreachable,decode_error}
	APIDuration *prometheus.HistogramVec // labels: endpoint
	ServiceUp   prometheus.Gauge

	// Location validation cache.
	LocationCache *prometheus.CounterVec // labels: result={hit,miss}

	// Validation and session state.
	ValidationFailures *prometheus.CounterVec // labels: kind
	SessionPopulated   prometheus.Gauge
	PredictionDays     prometheus.Histogram
	StaleResponses     prometheus.Counter

	// Export round trips.
	Exports     *prometheus.CounterVec // labels: outcome={saved,empty,transport_error,save_error}
	ExportBytes prometheus.Histogram

	// Run event publishing.
	RunEvents *prometheus.CounterVec // labels: kind, outcome={published,error}
}

func newMetrics() *Metrics {
	return &Metrics{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_api_requests_total",
			Help:      "Forecast service requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_api_duration_seconds",
			Help:      "Forecast service request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"endpoint"}),
		ServiceUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "forecast_service_up",
			Help:      "1 when the last health poll found the service up with its model loaded.",
		}),
		LocationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_cache_total",
			Help:      "Location validation cache lookups by result.",
		}, []string{"result"}),
		ValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Requests rejected locally before reaching the forecast service, by kind.",
		}, []string{"kind"}),
		SessionPopulated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_populated",
			Help:      "1 when the session holds predictions, 0 when empty.",
		}),
		PredictionDays: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_days",
			Help:      "Number of daily records per accepted prediction run.",
			Buckets:   []float64{1, 7, 14, 31, 62, 92, 183, 274, 366},
		}),
		StaleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_total",
			Help:      "Prediction outcomes discarded because a newer request or a clear superseded them.",
		}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Export round trips by outcome.",
		}, []string{"outcome"}),
		ExportBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_bytes",
			Help:      "Size of saved export workbooks in bytes.",
			Buckets:   prometheus.ExponentialBuckets(4096, 2, 10),
		}),
		RunEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_events_total",
			Help:      "Run events sent to Kafka by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.APIRequests,
		m.APIDuration,
		m.ServiceUp,
		m.LocationCache,
		m.ValidationFailures,
		m.SessionPopulated,
		m.PredictionDays,
		m.StaleResponses,
		m.Exports,
		m.ExportBytes,
		m.RunEvents,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
