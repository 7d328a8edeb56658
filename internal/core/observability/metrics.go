// Package observability holds the Prometheus collectors shared by the service.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream", "status"},
	)

	occurrencePagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "occurrence_pages_total",
			Help: "Occurrence search pages fetched.",
		},
	)

	occurrenceRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "occurrence_rows_total",
			Help: "Occurrence rows accumulated across pages.",
		},
	)

	geometryDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geometry_rows_dropped_total",
			Help: "Rows dropped for lacking usable coordinates.",
		},
	)

	pipelineResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_results_total",
			Help: "Fetch pipeline runs by outcome.",
		},
		[]string{"outcome"},
	)

	sessionOpTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_op_total",
			Help: "Session store operations by driver, op and result.",
		},
		[]string{"driver", "op", "result"},
	)

	sessionOpDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "session_op_duration_seconds",
			Help:    "Session store operation latency in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"driver", "op"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// status is 0 when the call failed before a response arrived
func ObserveUpstreamLatency(upstream string, status int, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream, strconv.Itoa(status)).Observe(durationSeconds)
}

func AddOccurrencePage(rows int) {
	occurrencePagesTotal.Inc()
	if rows > 0 {
		occurrenceRowsTotal.Add(float64(rows))
	}
}

func AddGeometryDropped(n int) {
	if n > 0 {
		geometryDroppedTotal.Add(float64(n))
	}
}

func IncPipelineResult(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	pipelineResults.WithLabelValues(outcome).Inc()
}

func ObserveSessionOp(driver, op string, err error, durationSeconds float64) {
	res := "ok"
	if err != nil {
		res = "error"
	}
	sessionOpTotal.WithLabelValues(driver, op, res).Inc()
	sessionOpDurationSeconds.WithLabelValues(driver, op).Observe(durationSeconds)
}
