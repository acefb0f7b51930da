package httpcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dynaform_cache_hits_total",
		Help: "Number of API responses served from the cache.",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dynaform_cache_misses_total",
		Help: "Number of cacheable API requests that missed the cache.",
	})

	cacheStores = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dynaform_cache_stores_total",
		Help: "Number of API responses written to the cache.",
	})

	cacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dynaform_cache_invalidated_keys_total",
		Help: "Number of cached entries removed by post-mutation sweeps.",
	})
)
