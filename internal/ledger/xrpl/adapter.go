// Package xrpl implements ledger.Ledger over rippled and Clio JSON-RPC.
package xrpl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emperorhan/xns-resolver/internal/circuitbreaker"
	"github.com/emperorhan/xns-resolver/internal/domain/model"
	"github.com/emperorhan/xns-resolver/internal/ledger"
	"github.com/emperorhan/xns-resolver/internal/ledger/ratelimit"
	"github.com/emperorhan/xns-resolver/internal/ledger/xrpl/rpc"
	"github.com/emperorhan/xns-resolver/internal/metrics"
	"github.com/emperorhan/xns-resolver/internal/retry"
)

const (
	maxPages = 1000

	defaultMaxAttempts  = 3
	defaultRetryBackoff = 250 * time.Millisecond
)

// Config selects the endpoints and transport limits for one network.
type Config struct {
	Network      model.Network
	RPCURL       string // rippled, serves account_nfts
	ClioURL      string // Clio, serves nfts_by_issuer
	Timeout      time.Duration
	RPS          float64
	Burst        int
	MaxAttempts  int
	RetryBackoff time.Duration

	// OnBreakerChange, if set, observes circuit breaker transitions. It runs
	// while the breaker holds its lock and must not block.
	OnBreakerChange func(from, to circuitbreaker.State)
}

type Adapter struct {
	network      string
	rippled      rpc.RPCClient
	clio         rpc.RPCClient
	limiter      *ratelimit.Limiter
	breaker      *circuitbreaker.Breaker
	maxAttempts  int
	retryBackoff time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
	logger       *slog.Logger
}

var _ ledger.Ledger = (*Adapter)(nil)

// NewAdapter builds an adapter with its own rippled and Clio clients.
// Empty URLs fall back to the network defaults.
func NewAdapter(cfg Config, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	defaults, _ := model.DefaultEndpoints(cfg.Network)
	if cfg.RPCURL == "" {
		cfg.RPCURL = defaults.RPCURL
	}
	if cfg.ClioURL == "" {
		cfg.ClioURL = defaults.ClioURL
	}
	return newAdapter(
		cfg,
		rpc.NewClient(cfg.RPCURL, cfg.Timeout, logger),
		rpc.NewClient(cfg.ClioURL, cfg.Timeout, logger),
		logger,
	)
}

func newAdapter(cfg Config, rippled, clio rpc.RPCClient, logger *slog.Logger) *Adapter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	network := cfg.Network.String()
	a := &Adapter{
		network:      network,
		rippled:      rippled,
		clio:         clio,
		limiter:      ratelimit.NewLimiter(cfg.RPS, cfg.Burst, network),
		maxAttempts:  cfg.MaxAttempts,
		retryBackoff: cfg.RetryBackoff,
		sleep:        sleepCtx,
		logger:       logger.With("component", "xrpl_ledger", "network", network),
	}
	a.breaker = circuitbreaker.New(circuitbreaker.Config{
		IsFailure: func(err error) bool {
			return err != nil && retry.Classify(err).IsTransient()
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			metrics.RPCCircuitState.WithLabelValues(network).Set(float64(to))
			a.logger.Warn("ledger circuit state changed", "from", from.String(), "to", to.String())
			if cfg.OnBreakerChange != nil {
				cfg.OnBreakerChange(from, to)
			}
		},
	})
	metrics.RPCCircuitState.WithLabelValues(network).Set(float64(circuitbreaker.StateClosed))
	return a
}

// NFTsByIssuer enumerates live NFTs minted by issuer through Clio.
func (a *Adapter) NFTsByIssuer(ctx context.Context, issuer string) ([]model.NftHandle, error) {
	var (
		out    []model.NftHandle
		marker json.RawMessage
	)
	for page := 0; page < maxPages; page++ {
		var res *rpc.NFTsByIssuerResult
		err := a.invoke(ctx, "nfts_by_issuer", func() error {
			var callErr error
			res, callErr = a.clio.NFTsByIssuer(ctx, issuer, marker)
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("enumerate nfts issued by %s: %w", issuer, err)
		}

		for _, nft := range res.NFTs {
			if nft.IsBurned {
				continue
			}
			h, ok := a.handle(nft.NFTokenID, nft.Owner, firstNonEmpty(nft.Issuer, issuer), nft.URI)
			if ok {
				out = append(out, h)
			}
		}

		next, done, err := advance(marker, res.Marker)
		if err != nil {
			return nil, fmt.Errorf("enumerate nfts issued by %s: %w", issuer, err)
		}
		if done {
			return out, nil
		}
		marker = next
	}
	return nil, fmt.Errorf("enumerate nfts issued by %s: exceeded %d pages", issuer, maxPages)
}

// NFTsByOwner enumerates NFTs held by owner through rippled. An account
// that does not exist yet holds nothing.
func (a *Adapter) NFTsByOwner(ctx context.Context, owner string) ([]model.NftHandle, error) {
	out := []model.NftHandle{}
	var marker json.RawMessage
	for page := 0; page < maxPages; page++ {
		var res *rpc.AccountNFTsResult
		err := a.invoke(ctx, "account_nfts", func() error {
			var callErr error
			res, callErr = a.rippled.AccountNFTs(ctx, owner, marker)
			return callErr
		})
		if err != nil {
			var rpcErr *rpc.RPCError
			if errors.As(err, &rpcErr) && rpcErr.Code == rpc.ErrCodeActNotFound {
				a.logger.Debug("owner account not found", "owner", owner)
				return []model.NftHandle{}, nil
			}
			return nil, fmt.Errorf("enumerate nfts owned by %s: %w", owner, err)
		}

		for _, nft := range res.NFTs {
			h, ok := a.handle(nft.NFTokenID, owner, nft.Issuer, nft.URI)
			if ok {
				out = append(out, h)
			}
		}

		next, done, err := advance(marker, res.Marker)
		if err != nil {
			return nil, fmt.Errorf("enumerate nfts owned by %s: %w", owner, err)
		}
		if done {
			return out, nil
		}
		marker = next
	}
	return nil, fmt.Errorf("enumerate nfts owned by %s: exceeded %d pages", owner, maxPages)
}

// invoke runs one RPC call through the limiter and breaker, retrying
// transient failures with linear backoff.
func (a *Adapter) invoke(ctx context.Context, method string, call func() error) error {
	for attempt := 1; ; attempt++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}
		err := a.breaker.Execute(call)
		ratelimit.RecordRPCCall(a.network, method, err)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		decision := retry.Classify(err)
		if !decision.IsTransient() {
			return err
		}
		if attempt >= a.maxAttempts {
			return fmt.Errorf("%s failed after %d attempts: %w", method, attempt, err)
		}

		a.logger.Warn("ledger rpc failed; retrying",
			"method", method,
			"classification_reason", decision.Reason,
			"attempt", attempt,
			"error", err,
		)
		if err := a.sleep(ctx, time.Duration(attempt)*a.retryBackoff); err != nil {
			return err
		}
	}
}

func (a *Adapter) handle(rawID, owner, issuer, uri string) (model.NftHandle, bool) {
	id, err := model.ParseTokenID(rawID)
	if err != nil {
		a.logger.Warn("skipping nft with malformed id", "nft_id", rawID, "error", err)
		return model.NftHandle{}, false
	}
	return model.NftHandle{
		ID:     id,
		Owner:  owner,
		Issuer: issuer,
		URI:    []byte(uri),
	}, true
}

// advance reports the marker for the next page, or done when the
// enumeration is complete. A marker that does not move is an error.
func advance(prev, next json.RawMessage) (json.RawMessage, bool, error) {
	trimmed := bytes.TrimSpace(next)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		return nil, true, nil
	}
	if prev != nil && bytes.Equal(trimmed, bytes.TrimSpace(prev)) {
		return nil, false, fmt.Errorf("pagination marker did not advance")
	}
	return append(json.RawMessage(nil), trimmed...), false, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
