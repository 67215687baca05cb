package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by info type.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlproxy_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"type"},
	)

	// CacheMisses tracks cache misses by info type.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlproxy_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"type"},
	)

	// CacheEntries tracks the current number of entries by backend.
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hlproxy_cache_entries",
			Help: "Current number of cache entries",
		},
		[]string{"backend"}, // "memory", "redis"
	)

	// CacheInvalidations tracks removed entries by reason.
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlproxy_cache_invalidations_total",
			Help: "Total number of cache entries invalidated",
		},
		[]string{"reason"}, // "user", "category", "type", "all", "expired"
	)

	// CacheErrors tracks cache operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlproxy_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "put", "invalidate"
	)
)
