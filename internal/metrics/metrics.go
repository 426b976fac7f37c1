package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolver, cache, metadata and RPC counters, partitioned by network where
// it matters for dashboards.

var (
	// Resolver
	ResolverRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xns",
		Subsystem: "resolver",
		Name:      "requests_total",
		Help:      "Total resolve and reverse lookup calls by outcome",
	}, []string{"network", "op", "result"})

	ResolverLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "xns",
		Subsystem: "resolver",
		Name:      "duration_seconds",
		Help:      "Resolve and reverse lookup duration, cache hits included",
		Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"network", "op"})

	ResolverNFTsScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xns",
		Subsystem: "resolver",
		Name:      "nfts_scanned_total",
		Help:      "NFTs handed to the metadata parser",
	}, []string{"network", "service"})

	// Cache
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xns",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Cache lookups answered from a live entry",
	}, []string{"keyspace"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xns",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Cache lookups that found no live entry",
	}, []string{"keyspace"})

	CacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xns",
		Subsystem: "cache",
		Name:      "evictions_total",
		Help:      "Entries removed by capacity eviction or expiry",
	}, []string{"keyspace", "reason"})

	CacheEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "xns",
		Subsystem: "cache",
		Name:      "entries",
		Help:      "Entries currently held, including expired ones not yet removed",
	}, []string{"keyspace"})

	// Metadata
	MetadataFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xns",
		Subsystem: "metadata",
		Name:      "fetch_total",
		Help:      "Metadata fetch attempts by source kind and outcome",
	}, []string{"source", "result"})

	MetadataFetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "xns",
		Subsystem: "metadata",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of a single metadata fetch attempt",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"source"})

	MetadataParseFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xns",
		Subsystem: "metadata",
		Name:      "parse_failures_total",
		Help:      "NFTs skipped because their metadata could not be turned into a domain record",
	}, []string{"reason"})

	// RPC
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xns",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total ledger RPC calls by method and status",
	}, []string{"network", "method", "status"})

	RPCRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xns",
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "Total times RPC calls waited for rate limiter",
	}, []string{"network"})

	RPCCircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "xns",
		Subsystem: "rpc",
		Name:      "circuit_state",
		Help:      "Ledger RPC circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"network"})

	// HTTP API
	HTTPRateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xns",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-client rate limiter",
	}, []string{"route"})

	// Alerts
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xns",
		Subsystem: "alert",
		Name:      "sent_total",
		Help:      "Alerts delivered per channel",
	}, []string{"channel", "type"})

	AlertsCooldownSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xns",
		Subsystem: "alert",
		Name:      "cooldown_skipped_total",
		Help:      "Alerts suppressed by the per-type cooldown",
	}, []string{"channel", "type"})
)
