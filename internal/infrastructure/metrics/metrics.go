package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Video-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birdreel",
			Subsystem: "video_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "birdreel",
			Subsystem: "video_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// Operation poll outcomes
	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birdreel",
			Subsystem: "video_api",
			Name:      "operation_polls_total",
			Help:      "Operation poll results by outcome",
		},
		[]string{"outcome"},
	)

	// Sweep results
	SweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "birdreel",
			Subsystem: "video_api",
			Name:      "sweeps_total",
			Help:      "Total reconciliation sweep invocations",
		},
	)

	SweepProcessedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "birdreel",
			Subsystem: "video_api",
			Name:      "sweep_processed_total",
			Help:      "Terminal polls observed across all sweeps",
		},
	)

	// Durable copy outcomes
	CopiesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birdreel",
			Subsystem: "video_api",
			Name:      "durable_copies_total",
			Help:      "Durable copy attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Finished operations with no recognizable result URL. Alert on this:
	// such records sit in place until someone looks at them.
	ExtractionFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "birdreel",
			Subsystem: "video_api",
			Name:      "extraction_failures_total",
			Help:      "Finished operations whose result URL could not be extracted",
		},
	)

	// Queue deliveries
	QueueMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birdreel",
			Subsystem: "video_api",
			Name:      "queue_messages_total",
			Help:      "Queue message deliveries by outcome",
		},
		[]string{"outcome"},
	)

	// Streamed bytes
	StreamBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "birdreel",
			Subsystem: "video_api",
			Name:      "stream_bytes_total",
			Help:      "Total bytes served from durable storage",
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordPoll records one operation poll outcome
func RecordPoll(outcome string) {
	PollsTotal.WithLabelValues(outcome).Inc()
}

// RecordSweep records one sweep invocation
func RecordSweep(processed int) {
	SweepsTotal.Inc()
	SweepProcessedTotal.Add(float64(processed))
}

// RecordCopy records one durable copy attempt
func RecordCopy(outcome string) {
	CopiesTotal.WithLabelValues(outcome).Inc()
}

// RecordExtractionFailure records a finished operation with no result URL
func RecordExtractionFailure() {
	ExtractionFailuresTotal.Inc()
}

// RecordQueueMessage records one queue delivery outcome
func RecordQueueMessage(outcome string) {
	QueueMessagesTotal.WithLabelValues(outcome).Inc()
}
