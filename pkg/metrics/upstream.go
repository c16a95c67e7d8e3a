package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics records calls made to the commerce backend.
type UpstreamMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// NewUpstreamMetrics registers the backend call metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewUpstreamMetrics(reg prometheus.Registerer) *UpstreamMetrics {
	if reg == nil {
		return &UpstreamMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Duration of commerce backend requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "method"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Commerce backend requests by resulting status.",
	}, []string{"endpoint", "method", "status"})
	reg.MustRegister(duration, requests)
	return &UpstreamMetrics{duration: duration, requests: requests}
}

// Observe records one finished backend call. status 0 means no response was received.
func (u *UpstreamMetrics) Observe(endpoint, method string, status int, elapsed time.Duration) {
	if u == nil || u.duration == nil {
		return
	}
	endpoint = normalizeLabel(endpoint)
	method = normalizeLabel(method)
	u.duration.WithLabelValues(endpoint, method).Observe(elapsed.Seconds())
	statusLabel := "transport_error"
	if status > 0 {
		statusLabel = strconv.Itoa(status)
	}
	u.requests.WithLabelValues(endpoint, method, statusLabel).Inc()
}
