package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts windows served from Redis
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coingecko_cache_hits_total",
		Help: "Total number of range windows served from the cache",
	})

	// CacheMisses counts lookups that found nothing
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coingecko_cache_misses_total",
		Help: "Total number of range window cache misses",
	})

	// CacheWrittenBytes counts encoded bytes saved to Redis
	CacheWrittenBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coingecko_cache_written_bytes_total",
		Help: "Total bytes of encoded entries written to the cache",
	})

	// CacheErrors counts failed cache operations
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coingecko_cache_errors_total",
		Help: "Total number of cache operation errors",
	}, []string{"operation"}) // "load", "save", "forget"
)
