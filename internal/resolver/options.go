package resolver

import (
	"log/slog"
	"time"

	"github.com/emperorhan/xns-resolver/internal/cache"
)

const DefaultParseConcurrency = 8

type Option func(*options)

type options struct {
	cacheCapacity    int
	cacheTTL         time.Duration
	parseConcurrency int
	logger           *slog.Logger
	nowFn            func() time.Time
}

func defaultOptions() options {
	return options{
		cacheCapacity:    cache.DefaultCapacity,
		cacheTTL:         cache.DefaultTTL,
		parseConcurrency: DefaultParseConcurrency,
		logger:           slog.Default(),
		nowFn:            time.Now,
	}
}

// WithCacheCapacity bounds each cache keyspace. Non-positive values keep
// the default.
func WithCacheCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cacheCapacity = n
		}
	}
}

// WithCacheTTL sets how long resolved records stay cached.
func WithCacheTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.cacheTTL = d
		}
	}
}

// WithParseConcurrency bounds parallel metadata parsing in ReverseLookup.
func WithParseConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.parseConcurrency = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces the cache clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.nowFn = now
		}
	}
}
