package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zolo_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zolo_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	dealTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zolo_deal_transitions_total",
		Help: "Count of deal status changes by target status and result",
	}, []string{"status", "result"})

	messagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zolo_messages_sent_total",
		Help: "Count of messages appended to deal threads",
	}, []string{"kind"})

	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zolo_realtime_events_total",
		Help: "Count of realtime events fanned out to local clients",
	}, []string{"type"})

	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zolo_realtime_connections",
		Help: "Number of open realtime connections",
	})

	taskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zolo_task_runs_total",
		Help: "Count of background task runs by type and result",
	}, []string{"type", "result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveDealTransition records an accept or decline attempt.
func ObserveDealTransition(status, result string) {
	dealTransitions.WithLabelValues(status, result).Inc()
}

// ObserveMessages counts n messages of the given kind (chat, offer, notice, broadcast).
func ObserveMessages(kind string, n int) {
	messagesSent.WithLabelValues(kind).Add(float64(n))
}

func ObserveEvent(eventType string) {
	eventsPublished.WithLabelValues(eventType).Inc()
}

func IncrementConnections() {
	activeConnections.Inc()
}

func DecrementConnections() {
	activeConnections.Dec()
}

// ObserveTask records the outcome of a background task.
func ObserveTask(taskType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	taskRuns.WithLabelValues(taskType, result).Inc()
}
