package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/emperorhan/xns-resolver/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(method, path, remote string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remote
	return req
}

func TestRateLimit_BlocksAfterBurst(t *testing.T) {
	rl := NewRateLimitMiddleware(0.001, 2, slog.Default())
	t.Cleanup(rl.Stop)
	h := rl.Wrap(okHandler())
	before := testutil.ToFloat64(metrics.HTTPRateLimited.WithLabelValues("resolve"))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, requestFrom(http.MethodGet, "/v1/resolve/a.xrp", "10.0.0.1:1234"))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom(http.MethodGet, "/v1/resolve/a.xrp", "10.0.0.1:9999"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.HTTPRateLimited.WithLabelValues("resolve")))

	// Another client and another route keep their own buckets.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom(http.MethodGet, "/v1/resolve/a.xrp", "10.0.0.2:1234"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom(http.MethodGet, "/v1/reverse/rX", "10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_PurgeIsStrict(t *testing.T) {
	rl := NewRateLimitMiddleware(100, 100, slog.Default())
	t.Cleanup(rl.Stop)
	h := rl.Wrap(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom(http.MethodPost, "/v1/cache/purge", "10.0.0.1:1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom(http.MethodPost, "/v1/cache/purge", "10.0.0.1:1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimit_HealthNeverLimited(t *testing.T) {
	rl := NewRateLimitMiddleware(0.001, 1, slog.Default())
	t.Cleanup(rl.Stop)
	h := rl.Wrap(okHandler())

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, requestFrom(http.MethodGet, "/healthz", "10.0.0.1:1"))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Zero(t, rl.LimiterCount())
}

func TestRateLimit_EvictStale(t *testing.T) {
	rl := NewRateLimitMiddleware(10, 10, slog.Default())
	t.Cleanup(rl.Stop)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.nowFunc = func() time.Time { return now }

	h := rl.Wrap(okHandler())
	h.ServeHTTP(httptest.NewRecorder(), requestFrom(http.MethodGet, "/v1/resolve/a.xrp", "10.0.0.1:1"))
	h.ServeHTTP(httptest.NewRecorder(), requestFrom(http.MethodGet, "/v1/resolve/a.xrp", "10.0.0.2:1"))
	require.Equal(t, 2, rl.LimiterCount())

	now = now.Add(staleLimiterTTL / 2)
	h.ServeHTTP(httptest.NewRecorder(), requestFrom(http.MethodGet, "/v1/resolve/a.xrp", "10.0.0.2:1"))

	now = now.Add(staleLimiterTTL/2 + time.Second)
	rl.evictStale()
	assert.Equal(t, 1, rl.LimiterCount())
}

func TestRateLimit_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimitMiddleware(0, 0, slog.Default())
	rl.Stop()
	rl.Stop()
}

func TestRateLimit_SpoofedForwardedForFromUntrustedPeer(t *testing.T) {
	rl := NewRateLimitMiddleware(100, 100, slog.Default(), netip.MustParsePrefix("10.0.0.0/8"))
	t.Cleanup(rl.Stop)
	h := rl.Wrap(okHandler())

	accepted := 0
	for i := 0; i < 20; i++ {
		req := requestFrom(http.MethodPost, "/v1/cache/purge", "203.0.113.7:40000")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("192.0.2.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, rl.LimiterCount())
}

func TestRateLimit_ForwardedForFromTrustedProxy(t *testing.T) {
	rl := NewRateLimitMiddleware(100, 100, slog.Default(), netip.MustParsePrefix("10.0.0.0/8"))
	t.Cleanup(rl.Stop)
	h := rl.Wrap(okHandler())

	for _, client := range []string{"198.51.100.1", "198.51.100.2"} {
		req := requestFrom(http.MethodPost, "/v1/cache/purge", "10.1.2.3:5000")
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "client %s has its own bucket", client)
	}
}

func TestClientIP(t *testing.T) {
	rl := NewRateLimitMiddleware(0, 0, slog.Default(),
		netip.MustParsePrefix("10.0.0.0/8"), netip.MustParsePrefix("2001:db8::/32"))
	t.Cleanup(rl.Stop)

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "remote addr", remote: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "remote without port", remote: "192.0.2.1", want: "192.0.2.1"},
		{name: "untrusted peer ignores xff", headers: map[string]string{"X-Forwarded-For": "203.0.113.5"}, remote: "192.0.2.1:1", want: "192.0.2.1"},
		{name: "untrusted peer ignores x-real-ip", headers: map[string]string{"X-Real-IP": "203.0.113.5"}, remote: "192.0.2.1:1", want: "192.0.2.1"},
		{name: "trusted peer xff", headers: map[string]string{"X-Forwarded-For": "203.0.113.5"}, remote: "10.0.0.1:1", want: "203.0.113.5"},
		{name: "trusted chain skips inner proxies", headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.5, 10.9.9.9"}, remote: "10.0.0.1:1", want: "203.0.113.5"},
		{name: "all hops trusted", headers: map[string]string{"X-Forwarded-For": "10.3.3.3, 10.9.9.9"}, remote: "10.0.0.1:1", want: "10.3.3.3"},
		{name: "trusted peer x-real-ip", headers: map[string]string{"X-Real-IP": " 198.51.100.7 "}, remote: "10.0.0.1:1", want: "198.51.100.7"},
		{name: "trusted ipv6 peer", headers: map[string]string{"X-Forwarded-For": "203.0.113.9"}, remote: "[2001:db8::1]:443", want: "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestFrom(http.MethodGet, "/", tt.remote)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, rl.clientIP(req))
		})
	}
}

func TestClientIP_NoTrustedProxies(t *testing.T) {
	rl := NewRateLimitMiddleware(0, 0, slog.Default())
	t.Cleanup(rl.Stop)

	req := requestFrom(http.MethodGet, "/", "127.0.0.1:8080")
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	assert.Equal(t, "127.0.0.1", rl.clientIP(req))
}
