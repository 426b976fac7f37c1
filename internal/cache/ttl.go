package cache

import (
	"sync"
	"time"

	"github.com/emperorhan/xns-resolver/internal/metrics"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultCapacity = 1000
	DefaultTTL      = 5 * time.Minute
)

// Cache is the interface the resolver depends on.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Put(key K, value V)
	Len() int
	Stats() (hits, misses int64)
	Purge()
}

// Compile-time check that TTL satisfies Cache.
var _ Cache[string, int] = (*TTL[string, int])(nil)

// TTL is a bounded cache whose entries expire a fixed duration after they
// were written. When full it evicts the entry with the oldest insertion
// time; reads never change eviction order.
type TTL[K comparable, V any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	items    *simplelru.LRU[K, entry[V]]
	nowFn    func() time.Time

	hits   int64
	misses int64

	hitCounter      prometheus.Counter
	missCounter     prometheus.Counter
	capacityEvicted prometheus.Counter
	expired         prometheus.Counter
	entries         prometheus.Gauge
}

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// Option configures a TTL cache.
type Option func(*options)

type options struct {
	keyspace string
	nowFn    func() time.Time
}

// WithKeyspace labels the cache's metrics.
func WithKeyspace(name string) Option {
	return func(o *options) { o.keyspace = name }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.nowFn = now }
}

// NewTTL creates a cache holding at most capacity entries for ttl each.
// Non-positive arguments fall back to DefaultCapacity and DefaultTTL.
func NewTTL[K comparable, V any](capacity int, ttl time.Duration, opts ...Option) *TTL[K, V] {
	o := options{keyspace: "default", nowFn: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	// simplelru only rejects non-positive sizes, which were replaced above.
	items, _ := simplelru.NewLRU[K, entry[V]](capacity, nil)

	return &TTL[K, V]{
		ttl:             ttl,
		capacity:        capacity,
		items:           items,
		nowFn:           o.nowFn,
		hitCounter:      metrics.CacheHits.WithLabelValues(o.keyspace),
		missCounter:     metrics.CacheMisses.WithLabelValues(o.keyspace),
		capacityEvicted: metrics.CacheEvictions.WithLabelValues(o.keyspace, "capacity"),
		expired:         metrics.CacheEvictions.WithLabelValues(o.keyspace, "expired"),
		entries:         metrics.CacheEntries.WithLabelValues(o.keyspace),
	}
}

// Get returns the value for key if it was written no more than ttl ago.
// An expired entry is removed on the spot.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items.Peek(key)
	if !ok {
		c.miss()
		var zero V
		return zero, false
	}

	if c.nowFn().Sub(e.insertedAt) > c.ttl {
		c.items.Remove(key)
		c.expired.Inc()
		c.entries.Set(float64(c.items.Len()))
		c.miss()
		var zero V
		return zero, false
	}

	c.hits++
	c.hitCounter.Inc()
	return e.value, true
}

// Put inserts or overwrites key. Overwriting restarts the entry's ttl and
// makes it the newest entry for eviction purposes.
func (c *TTL[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if evicted := c.items.Add(key, entry[V]{value: value, insertedAt: c.nowFn()}); evicted {
		c.capacityEvicted.Inc()
	}
	c.entries.Set(float64(c.items.Len()))
}

// Len returns the number of items in the cache (including expired but not yet removed).
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Len()
}

// Capacity returns the configured bound.
func (c *TTL[K, V]) Capacity() int {
	return c.capacity
}

// Stats returns cache hit and miss counts.
func (c *TTL[K, V]) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Purge drops every entry. Hit and miss counts are kept.
func (c *TTL[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Purge()
	c.entries.Set(0)
}

func (c *TTL[K, V]) miss() {
	c.misses++
	c.missCounter.Inc()
}
