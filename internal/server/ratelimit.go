package server

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/emperorhan/xns-resolver/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	DefaultRPS   = 20
	DefaultBurst = 40

	// staleLimiterTTL is how long a per-IP limiter can be idle before cleanup.
	staleLimiterTTL = 10 * time.Minute

	cleanupInterval = 1 * time.Minute
)

// limiterEntry wraps a rate.Limiter with a last-accessed timestamp for TTL-based eviction.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type routeRule struct {
	method string // "" matches any
	prefix string
	route  string // metrics label
	rps    rate.Limit
	burst  int
}

// RateLimitMiddleware provides per-route, per-IP rate limiting. Health and
// metrics endpoints are never limited.
type RateLimitMiddleware struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry // key: "route|clientIP"
	rules    []routeRule
	trusted  []netip.Prefix
	logger   *slog.Logger
	nowFunc  func() time.Time
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimitMiddleware builds the limiter. Lookups get rps/burst per
// client IP; cache purges are held to one per minute. Forwarding headers
// are honored only on connections from trustedProxies.
// Call Stop() to release the background cleanup goroutine.
func NewRateLimitMiddleware(rps float64, burst int, logger *slog.Logger, trustedProxies ...netip.Prefix) *RateLimitMiddleware {
	if rps <= 0 {
		rps = DefaultRPS
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	rl := &RateLimitMiddleware{
		limiters: make(map[string]*limiterEntry),
		trusted:  trustedProxies,
		logger:   logger,
		nowFunc:  time.Now,
		stopCh:   make(chan struct{}),
		rules: []routeRule{
			{method: http.MethodPost, prefix: "/v1/cache/purge", route: "cache_purge", rps: rate.Limit(1.0 / 60), burst: 1},
			{prefix: "/v1/resolve/", route: "resolve", rps: rate.Limit(rps), burst: burst},
			{prefix: "/v1/reverse/", route: "reverse", rps: rate.Limit(rps), burst: burst},
			{prefix: "/v1/", route: "v1", rps: rate.Limit(rps), burst: burst},
		},
	}

	go rl.cleanupLoop()
	return rl
}

// Stop shuts down the background cleanup goroutine. Safe to call multiple times.
func (rl *RateLimitMiddleware) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

func (rl *RateLimitMiddleware) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.evictStale()
		}
	}
}

// evictStale removes limiter entries that have not been accessed within the TTL.
func (rl *RateLimitMiddleware) evictStale() {
	now := rl.nowFunc()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > staleLimiterTTL {
			delete(rl.limiters, key)
		}
	}
}

// LimiterCount returns the number of active limiter entries.
func (rl *RateLimitMiddleware) LimiterCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Wrap returns an http.Handler that applies per-IP rate limiting before delegating to next.
func (rl *RateLimitMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rule, ok := rl.match(r.Method, r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := rl.clientIP(r)
		if !rl.limiterFor(rule, clientIP).Allow() {
			metrics.HTTPRateLimited.WithLabelValues(rule.route).Inc()
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			rl.logger.Warn("rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", clientIP,
			)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP determines the client's address. X-Forwarded-For and X-Real-IP
// are only believed when the connection comes from a trusted proxy; the
// forwarded chain is walked right to left and the first hop that is not
// itself a trusted proxy is the client.
func (rl *RateLimitMiddleware) clientIP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	if !rl.isTrusted(peer) {
		return peer
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !rl.isTrusted(hop) || i == 0 {
				return hop
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

func (rl *RateLimitMiddleware) isTrusted(host string) bool {
	if len(rl.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range rl.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func (rl *RateLimitMiddleware) match(method, path string) (routeRule, bool) {
	for _, rule := range rl.rules {
		if rule.method != "" && !strings.EqualFold(rule.method, method) {
			continue
		}
		if strings.HasPrefix(path, rule.prefix) {
			return rule, true
		}
	}
	return routeRule{}, false
}

func (rl *RateLimitMiddleware) limiterFor(rule routeRule, clientIP string) *rate.Limiter {
	key := rule.route + "|" + clientIP
	now := rl.nowFunc()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if entry, ok := rl.limiters[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	limiter := rate.NewLimiter(rule.rps, rule.burst)
	rl.limiters[key] = &limiterEntry{limiter: limiter, lastSeen: now}
	return limiter
}
