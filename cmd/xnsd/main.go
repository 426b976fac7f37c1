package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/emperorhan/xns-resolver/internal/alert"
	"github.com/emperorhan/xns-resolver/internal/config"
	"github.com/emperorhan/xns-resolver/internal/ledger/xrpl"
	"github.com/emperorhan/xns-resolver/internal/metadata"
	"github.com/emperorhan/xns-resolver/internal/resolver"
	"github.com/emperorhan/xns-resolver/internal/server"
	"github.com/emperorhan/xns-resolver/internal/tracing"
	"golang.org/x/sync/errgroup"
)

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildAlerter returns nil when no alert channel is configured.
func buildAlerter(cfg *config.Config, logger *slog.Logger) *alert.MultiAlerter {
	var channels []alert.Alerter
	if cfg.Alert.SlackWebhookURL != "" {
		channels = append(channels, alert.NewSlackAlerter(cfg.Alert.SlackWebhookURL))
	}
	if cfg.Alert.WebhookURL != "" {
		channels = append(channels, alert.NewWebhookAlerter(cfg.Alert.WebhookURL))
	}
	if len(channels) == 0 {
		return nil
	}
	return alert.NewMultiAlerter(cfg.Alert.Cooldown, logger, channels...)
}

func buildResolver(cfg *config.Config, logger *slog.Logger) *resolver.Resolver {
	ledgerCfg := xrpl.Config{
		Network:     cfg.XRPL.Network,
		RPCURL:      cfg.XRPL.RPCURL,
		ClioURL:     cfg.XRPL.ClioURL,
		Timeout:     cfg.XRPL.Timeout,
		RPS:         cfg.XRPL.RPS,
		Burst:       cfg.XRPL.Burst,
		MaxAttempts: cfg.XRPL.MaxAttempts,
	}
	if alerter := buildAlerter(cfg, logger); alerter != nil {
		ledgerCfg.OnBreakerChange = alert.BreakerHook(alerter, cfg.XRPL.Network.String(), logger)
		logger.Info("ledger alerts enabled", "channels", alerter.Len())
	}
	ledger := xrpl.NewAdapter(ledgerCfg, logger)

	parser := metadata.NewParser(metadata.Config{
		Gateways:     cfg.Metadata.Gateways,
		FetchTimeout: cfg.Metadata.FetchTimeout,
		Registry:     cfg.Registry,
		Logger:       logger,
	})

	return resolver.New(ledger, parser, cfg.Registry, cfg.XRPL.Network,
		resolver.WithCacheCapacity(cfg.Cache.Capacity),
		resolver.WithCacheTTL(cfg.Cache.TTL),
		resolver.WithParseConcurrency(cfg.Resolver.ParseConcurrency),
		resolver.WithLogger(logger),
	)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)}))
	slog.SetDefault(logger)

	logger.Info("starting xnsd",
		"network", cfg.XRPL.Network,
		"rpc_url", cfg.XRPL.RPCURL,
		"clio_url", cfg.XRPL.ClioURL,
		"gateways", cfg.Metadata.Gateways,
		"services", cfg.Registry.Services(),
		"cache_capacity", cfg.Cache.Capacity,
		"cache_ttl", cfg.Cache.TTL.String(),
		"http_port", cfg.Server.HTTPPort,
	)

	tracingEndpoint := ""
	if cfg.Tracing.Enabled {
		tracingEndpoint = cfg.Tracing.Endpoint
	}
	shutdownTracing, err := tracing.Init(context.Background(), tracing.Config{
		ServiceName: "xnsd",
		Endpoint:    tracingEndpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()
	if cfg.Tracing.Enabled {
		logger.Info("tracing enabled", "endpoint", cfg.Tracing.Endpoint)
	}

	res := buildResolver(cfg, logger)
	srv := server.New(res, logger,
		server.WithRateLimit(server.NewRateLimitMiddleware(
			cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger, cfg.Server.TrustedProxies...)),
		server.WithAdminToken(cfg.Server.AdminToken),
	)
	if cfg.Server.AdminToken == "" {
		logger.Info("cache purge endpoint disabled; set HTTP_ADMIN_TOKEN to enable")
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gCtx, fmt.Sprintf(":%d", cfg.Server.HTTPPort))
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("xnsd exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("xnsd shut down gracefully")
}
