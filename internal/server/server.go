// Package server exposes the resolver over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emperorhan/xns-resolver/internal/domain/model"
	"github.com/emperorhan/xns-resolver/internal/resolver"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Resolver is the subset of *resolver.Resolver the API serves.
type Resolver interface {
	Resolve(ctx context.Context, name string) (model.DomainRecord, error)
	ReverseLookup(ctx context.Context, owner string) ([]model.DomainRecord, error)
	ClearCache()
	CacheStats() resolver.CacheStats
	Network() model.Network
}

var _ Resolver = (*resolver.Resolver)(nil)

// Server provides the public resolve/reverse API plus health and metrics.
type Server struct {
	resolver   Resolver
	limiter    *RateLimitMiddleware
	adminToken string
	baseLogger *slog.Logger
	logger     *slog.Logger
	startedAt  time.Time
}

// Option configures optional behaviour of the server.
type Option func(*Server)

// WithAdminToken enables POST /v1/cache/purge for callers presenting
// "Authorization: Bearer <token>". Without a token purges are refused.
func WithAdminToken(token string) Option {
	return func(s *Server) { s.adminToken = token }
}

// WithRateLimit replaces the default per-IP limiter.
func WithRateLimit(rl *RateLimitMiddleware) Option {
	return func(s *Server) { s.limiter = rl }
}

func New(r Resolver, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		resolver:   r,
		baseLogger: logger,
		logger:     logger.With("component", "http"),
		startedAt:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = NewRateLimitMiddleware(DefaultRPS, DefaultBurst, s.logger)
	}
	return s
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.limiter.Stop()
}

// Handler returns the full middleware-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/resolve/{name}", s.handleResolve)
	mux.HandleFunc("GET /v1/reverse/{address}", s.handleReverse)
	mux.HandleFunc("GET /v1/cache/stats", s.handleCacheStats)
	mux.HandleFunc("POST /v1/cache/purge", s.handleCachePurge)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = mux
	h = s.limiter.Wrap(h)
	h = RequestIDMiddleware(s.baseLogger, h)
	return otelhttp.NewHandler(h, "xnsd")
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("http server started", "addr", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

type reverseResponse struct {
	Owner   string               `json:"owner"`
	Domains []model.DomainRecord `json:"domains"`
}

type healthResponse struct {
	Status        string  `json:"status"`
	Network       string  `json:"network"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	rec, err := s.resolver.Resolve(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("address")
	recs, err := s.resolver.ReverseLookup(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reverseResponse{Owner: owner, Domains: recs})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.resolver.CacheStats())
}

func (s *Server) handleCachePurge(w http.ResponseWriter, r *http.Request) {
	if s.adminToken == "" {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "cache purge is disabled"})
		return
	}
	if !s.authorized(r) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="xnsd"`)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "admin token required"})
		s.logger.Warn("unauthorized cache purge", "remote_addr", r.RemoteAddr, "request_id", RequestIDFrom(r.Context()))
		return
	}
	s.resolver.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Network:       s.resolver.Network().String(),
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
	})
}

// writeError maps resolver errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, resolver.ErrInvalidFormat):
		status = http.StatusBadRequest
	case errors.Is(err, resolver.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// client went away; 499 is what nginx logs for this
		status = 499
	case errors.Is(err, resolver.ErrTransport):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", RequestIDFrom(r.Context()), "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeJSON writes v as JSON with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
