package httppresentation

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	durations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	if reg != nil {
		reg.MustRegister(requests, durations)
	}
	return &Metrics{requests: requests, durations: durations}
}

func (m *Metrics) Observe(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, status).Inc()
	m.durations.WithLabelValues(method, route).Observe(seconds)
}
