// Package telemetry holds the process-wide Prometheus collectors.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OracleEvaluations counts solar model evaluations by operation
	// (elevation, azimuth, extremum, crossing).
	OracleEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suntrack_oracle_evaluations_total",
			Help: "Total number of solar oracle evaluations.",
		},
		[]string{"op"},
	)

	// RootFindIterations observes how many secant iterations a crossing took.
	RootFindIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "suntrack_root_find_iterations",
			Help:    "Secant iterations per crossing search.",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16, 24, 32, 64},
		},
	)

	// RootFindFailures counts crossing searches that gave up, by reason.
	RootFindFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suntrack_root_find_failures_total",
			Help: "Total number of crossing searches that failed.",
		},
		[]string{"reason"},
	)

	// TimerFires counts one-shot timer callbacks by sensor.
	TimerFires = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suntrack_timer_fires_total",
			Help: "Total number of sensor wake-ups.",
		},
		[]string{"sensor"},
	)

	// StateChanges counts published state changes by sensor.
	StateChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suntrack_state_changes_total",
			Help: "Total number of sensor state changes.",
		},
		[]string{"sensor"},
	)

	// NextChangeSeconds is the distance from now to each sensor's next wake.
	NextChangeSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "suntrack_next_change_seconds",
			Help: "Seconds until the sensor's next scheduled update.",
		},
		[]string{"sensor"},
	)

	// APIRequestsTotal counts HTTP API requests.
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suntrack_api_requests_total",
			Help: "Total number of HTTP API requests.",
		},
		[]string{"method", "endpoint", "code"},
	)

	// EventsDropped counts bus events a full subscriber could not take.
	EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suntrack_events_dropped_total",
			Help: "Total number of bus events dropped on a full subscriber.",
		},
		[]string{"event_type"},
	)

	// APIRequestDuration observes HTTP API latency.
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "suntrack_api_request_duration_seconds",
			Help:    "HTTP API request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "code"},
	)
)

func init() {
	prometheus.MustRegister(
		OracleEvaluations,
		RootFindIterations,
		RootFindFailures,
		TimerFires,
		StateChanges,
		NextChangeSeconds,
		EventsDropped,
		APIRequestsTotal,
		APIRequestDuration,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
