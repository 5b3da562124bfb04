// Package metrics exposes Prometheus instrumentation for token refreshes
// and Microsoft Graph calls.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokenRefreshTotal counts refresh attempts per credential scope kind.
	TokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphmail_token_refresh_total",
			Help: "Total number of OAuth token refreshes",
		},
		[]string{"scope", "status"}, // scope: single, session; status: success, failed
	)

	// GraphRequestsTotal counts Graph calls by method and response status.
	GraphRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphmail_graph_requests_total",
			Help: "Total number of Microsoft Graph requests",
		},
		[]string{"method", "status"},
	)

	// GraphRequestDuration observes Graph call latency.
	GraphRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphmail_graph_request_duration_seconds",
			Help:    "Microsoft Graph request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"method"},
	)

	// AttachmentsSkippedTotal counts attachments dropped during compilation.
	AttachmentsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graphmail_attachments_skipped_total",
			Help: "Total number of attachments skipped because they could not be read",
		},
	)
)

// RecordTokenRefresh records a refresh attempt.
func RecordTokenRefresh(scope string, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	TokenRefreshTotal.WithLabelValues(scope, status).Inc()
}

// RecordGraphRequest records a completed Graph call. A zero status means
// the request failed before a response was received.
func RecordGraphRequest(method string, statusCode int, duration time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	GraphRequestsTotal.WithLabelValues(method, status).Inc()
	GraphRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordAttachmentSkipped records an attachment dropped from a message.
func RecordAttachmentSkipped() {
	AttachmentsSkippedTotal.Inc()
}
