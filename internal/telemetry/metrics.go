// Package telemetry provides observability primitives for silverbook.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	RequestsTotal        *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
	ActiveRequests       prometheus.Gauge
	CacheHits            prometheus.Counter
	CacheMisses          prometheus.Counter
	CacheStaleRefreshes  prometheus.Counter
	CacheRefreshFailures prometheus.Counter
	CacheInvalidations   *prometheus.CounterVec
	CacheFetchDuration   prometheus.Histogram
	BackendBreakerState  prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "silverbook",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "silverbook",
			Name:                            "request_duration_seconds",
			Help:                            "HTTP request duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "silverbook",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "silverbook",
			Name:      "cache_hits_total",
			Help:      "Total read-through cache hits.",
		}),

		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "silverbook",
			Name:      "cache_misses_total",
			Help:      "Total read-through cache misses.",
		}),

		CacheStaleRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "silverbook",
			Name:      "cache_stale_refreshes_total",
			Help:      "Background refreshes started for aging entries.",
		}),

		CacheRefreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "silverbook",
			Name:      "cache_refresh_failures_total",
			Help:      "Background refreshes that failed and kept the cached value.",
		}),

		CacheInvalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "silverbook",
			Name:      "cache_invalidations_total",
			Help:      "Cache invalidation calls by kind.",
		}, []string{"kind"}),

		CacheFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:                       "silverbook",
			Name:                            "cache_fetch_duration_seconds",
			Help:                            "Backend fetch duration behind the cache in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}),

		BackendBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "silverbook",
			Name:      "backend_breaker_state",
			Help:      "Backend circuit breaker state (0=closed, 1=open, 2=half_open).",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.CacheHits,
		m.CacheMisses,
		m.CacheStaleRefreshes,
		m.CacheRefreshFailures,
		m.CacheInvalidations,
		m.CacheFetchDuration,
		m.BackendBreakerState,
	)

	return m
}
