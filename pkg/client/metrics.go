package client

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts API requests per endpoint and status.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the client collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "byway_admin",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Byway API requests by method, endpoint and status code.",
		}, []string{"method", "endpoint", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "byway_admin",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Byway API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// observe is a no-op on a nil receiver. status 0 means the request never got
// a response.
func (m *Metrics) observe(method, endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(method, endpoint, code).Inc()
	m.duration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// endpointLabel drops the query and replaces numeric path segments with {id}
// to keep label cardinality bounded.
func endpointLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if _, err := strconv.Atoi(s); err == nil {
			segs[i] = "{id}"
		}
	}
	return strings.Join(segs, "/")
}
