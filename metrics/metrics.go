// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Operations   *prometheus.CounterVec
	OpDuration   *prometheus.HistogramVec
	HTTPRequests *prometheus.CounterVec
	CacheLookups *prometheus.CounterVec
}

// New registers every collector on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tkj",
			Subsystem: "lending",
			Name:      "operations_total",
			Help:      "Borrowing operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tkj",
			Subsystem: "lending",
			Name:      "operation_duration_seconds",
			Help:      "Time spent in a borrowing operation, transaction included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tkj",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tkj",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Statistics cache lookups by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.Operations, m.OpDuration, m.HTTPRequests, m.CacheLookups)
	return m
}
