package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTP records request latency and counts per route pattern.
type HTTP struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

func NewHTTP(reg prometheus.Registerer) *HTTP {
	if reg == nil {
		return &HTTP{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})
	reg.MustRegister(duration, requests)
	return &HTTP{duration: duration, requests: requests}
}

func (h *HTTP) Observe(route, method string, status int, elapsed time.Duration) {
	if h == nil || h.duration == nil {
		return
	}
	route = normalizeLabel(route)
	h.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
	h.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}
