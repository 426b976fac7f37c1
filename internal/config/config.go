package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emperorhan/xns-resolver/internal/domain/model"
	"github.com/emperorhan/xns-resolver/internal/metadata"
	"github.com/emperorhan/xns-resolver/internal/registry"
	"github.com/joho/godotenv"
)

type Config struct {
	XRPL     XRPLConfig
	Metadata MetadataConfig
	Cache    CacheConfig
	Resolver ResolverConfig
	Server   ServerConfig
	Log      LogConfig
	Tracing  TracingConfig
	Alert    AlertConfig

	// Registry is the built-in service table plus any rows from the
	// overlay file.
	Registry *registry.Registry
}

type XRPLConfig struct {
	Network     model.Network
	RPCURL      string
	ClioURL     string
	Timeout     time.Duration
	RPS         float64
	Burst       int
	MaxAttempts int
}

type MetadataConfig struct {
	Gateways     []string
	FetchTimeout time.Duration
}

type CacheConfig struct {
	Capacity int
	TTL      time.Duration
}

type ResolverConfig struct {
	ParseConcurrency int
}

type ServerConfig struct {
	HTTPPort       int
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustedProxies are the peers whose X-Forwarded-For is believed.
	TrustedProxies []netip.Prefix
	// AdminToken guards POST /v1/cache/purge; empty disables purging.
	AdminToken string
}

type LogConfig struct {
	Level string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

type AlertConfig struct {
	SlackWebhookURL string
	WebhookURL      string
	Cooldown        time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first if present; variables already set win.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	network, err := model.ParseNetwork(getEnv("XNS_NETWORK", "mainnet"))
	if err != nil {
		return nil, fmt.Errorf("XNS_NETWORK: %w", err)
	}

	cfg := &Config{
		XRPL: XRPLConfig{
			Network:     network,
			RPCURL:      getEnv("XNS_RPC_URL", ""),
			ClioURL:     getEnv("XNS_CLIO_URL", ""),
			Timeout:     time.Duration(getEnvInt("XNS_RPC_TIMEOUT_MS", 30000)) * time.Millisecond,
			RPS:         getEnvFloat("XNS_RPC_RPS", 10),
			Burst:       getEnvInt("XNS_RPC_BURST", 5),
			MaxAttempts: getEnvInt("XNS_RPC_MAX_ATTEMPTS", 3),
		},
		Metadata: MetadataConfig{
			Gateways:     getEnvList("XNS_IPFS_GATEWAYS"),
			FetchTimeout: time.Duration(getEnvInt("XNS_FETCH_TIMEOUT_MS", 10000)) * time.Millisecond,
		},
		Cache: CacheConfig{
			Capacity: getEnvInt("XNS_CACHE_CAPACITY", 1000),
			TTL:      time.Duration(getEnvInt("XNS_CACHE_TTL_SEC", 300)) * time.Second,
		},
		Resolver: ResolverConfig{
			ParseConcurrency: getEnvInt("XNS_PARSE_CONCURRENCY", 8),
		},
		Server: ServerConfig{
			HTTPPort:       getEnvInt("HTTP_PORT", 8080),
			RateLimitRPS:   getEnvFloat("HTTP_RATE_LIMIT_RPS", 20),
			RateLimitBurst: getEnvInt("HTTP_RATE_LIMIT_BURST", 40),
			AdminToken:     getEnv("HTTP_ADMIN_TOKEN", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", false),
			Endpoint:    getEnv("TRACING_ENDPOINT", "localhost:4317"),
			Insecure:    getEnvBool("TRACING_INSECURE", true),
			SampleRatio: getEnvFloat("TRACING_SAMPLE_RATIO", 1.0),
		},
		Alert: AlertConfig{
			SlackWebhookURL: getEnv("ALERT_SLACK_WEBHOOK_URL", ""),
			WebhookURL:      getEnv("ALERT_WEBHOOK_URL", ""),
			Cooldown:        time.Duration(getEnvInt("ALERT_COOLDOWN_SEC", 300)) * time.Second,
		},
		Registry: registry.Default(),
	}

	cfg.Server.TrustedProxies, err = parsePrefixes(getEnvList("HTTP_TRUSTED_PROXIES"))
	if err != nil {
		return nil, fmt.Errorf("HTTP_TRUSTED_PROXIES: %w", err)
	}

	if path := getEnv("XNS_CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if len(cfg.Metadata.Gateways) == 0 {
		cfg.Metadata.Gateways = append([]string(nil), metadata.DefaultGateways...)
	}
	if defaults, ok := model.DefaultEndpoints(cfg.XRPL.Network); ok {
		if cfg.XRPL.RPCURL == "" {
			cfg.XRPL.RPCURL = defaults.RPCURL
		}
		if cfg.XRPL.ClioURL == "" {
			cfg.XRPL.ClioURL = defaults.ClioURL
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.XRPL.RPCURL == "" {
		return fmt.Errorf("XNS_RPC_URL is required for network %s", c.XRPL.Network)
	}
	if c.XRPL.ClioURL == "" {
		return fmt.Errorf("XNS_CLIO_URL is required for network %s", c.XRPL.Network)
	}
	if len(c.Metadata.Gateways) == 0 {
		return fmt.Errorf("at least one IPFS gateway is required")
	}
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("XNS_CACHE_CAPACITY must be positive, got %d", c.Cache.Capacity)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("XNS_CACHE_TTL_SEC must be positive")
	}
	if c.Metadata.FetchTimeout <= 0 {
		return fmt.Errorf("XNS_FETCH_TIMEOUT_MS must be positive")
	}
	if c.XRPL.MaxAttempts <= 0 {
		return fmt.Errorf("XNS_RPC_MAX_ATTEMPTS must be positive, got %d", c.XRPL.MaxAttempts)
	}
	if c.Resolver.ParseConcurrency <= 0 {
		return fmt.Errorf("XNS_PARSE_CONCURRENCY must be positive, got %d", c.Resolver.ParseConcurrency)
	}
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT out of range: %d", c.Server.HTTPPort)
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("TRACING_ENDPOINT is required when tracing is enabled")
	}
	if c.Alert.Cooldown < 0 {
		return fmt.Errorf("ALERT_COOLDOWN_SEC must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parsePrefixes accepts CIDRs and bare addresses; a bare address becomes a
// single-host prefix.
func parsePrefixes(items []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range items {
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
