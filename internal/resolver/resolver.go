// Package resolver answers forward (name -> owner) and reverse
// (owner -> names) queries against domain NFTs on the XRP Ledger.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/emperorhan/xns-resolver/internal/cache"
	"github.com/emperorhan/xns-resolver/internal/domain/model"
	"github.com/emperorhan/xns-resolver/internal/ledger"
	"github.com/emperorhan/xns-resolver/internal/metrics"
	"github.com/emperorhan/xns-resolver/internal/registry"
	"github.com/emperorhan/xns-resolver/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	opResolve = "resolve"
	opReverse = "reverse"

	keyspaceNames  = "names"
	keyspaceOwners = "owners"
)

// classic r-address: base58 with the ripple alphabet, 25-35 chars.
var classicAddress = regexp.MustCompile(`^r[1-9A-HJ-NP-Za-km-z]{24,34}$`)

// Parser turns an NFT into a domain record. *metadata.Parser satisfies it.
type Parser interface {
	Parse(ctx context.Context, nft model.NftHandle, service model.NamingService) (model.DomainRecord, error)
}

// Resolver is safe for concurrent use.
type Resolver struct {
	ledger           ledger.Ledger
	parser           Parser
	registry         *registry.Registry
	network          model.Network
	names            *cache.TTL[string, model.DomainRecord]
	owners           *cache.TTL[string, []model.DomainRecord]
	scans            singleflight.Group
	parseConcurrency int
	logger           *slog.Logger
	tracer           trace.Tracer
}

func New(l ledger.Ledger, p Parser, reg *registry.Registry, network model.Network, opts ...Option) *Resolver {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if reg == nil {
		reg = registry.Default()
	}
	return &Resolver{
		ledger:   l,
		parser:   p,
		registry: reg,
		network:  network,
		names: cache.NewTTL[string, model.DomainRecord](o.cacheCapacity, o.cacheTTL,
			cache.WithKeyspace(keyspaceNames), cache.WithClock(o.nowFn)),
		owners: cache.NewTTL[string, []model.DomainRecord](o.cacheCapacity, o.cacheTTL,
			cache.WithKeyspace(keyspaceOwners), cache.WithClock(o.nowFn)),
		parseConcurrency: o.parseConcurrency,
		logger:           o.logger.With("component", "resolver", "network", network.String()),
		tracer:           tracing.Tracer("xns/resolver"),
	}
}

// Network returns the network this resolver queries.
func (r *Resolver) Network() model.Network {
	return r.network
}

// Resolve finds the NFT-backed record for name. Services are scanned in
// registration order and the first record whose name matches wins.
func (r *Resolver) Resolve(ctx context.Context, name string) (rec model.DomainRecord, err error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "resolver.Resolve", trace.WithAttributes(attribute.String("name", name)))
	defer func() { r.finish(span, opResolve, start, err) }()

	normalized := model.NormalizeName(name)
	_, suffix, ok := model.SplitName(normalized)
	if !ok || !r.registry.KnownSuffix(suffix) {
		return model.DomainRecord{}, fmt.Errorf("%w: domain %q", ErrInvalidFormat, name)
	}

	if cached, ok := r.names.Get(normalized); ok {
		return cached.Clone(), nil
	}

	// Concurrent lookups of one name share a single scan. A follower whose
	// own context is still live starts over if the scan it joined ended
	// with another caller's context error.
	for {
		ran := false
		ch := r.scans.DoChan(normalized, func() (any, error) {
			ran = true
			return r.scan(ctx, normalized)
		})
		select {
		case <-ctx.Done():
			return model.DomainRecord{}, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				if !ran && isContextErr(res.Err) && ctx.Err() == nil {
					continue
				}
				return model.DomainRecord{}, res.Err
			}
			return res.Val.(model.DomainRecord).Clone(), nil
		}
	}
}

// scan enumerates every service's NFTs until one carries name, and caches
// the match.
func (r *Resolver) scan(ctx context.Context, name string) (model.DomainRecord, error) {
	for _, service := range r.registry.Services() {
		issuer, ok := r.registry.Issuer(service, r.network)
		if !ok {
			continue
		}

		nfts, err := r.ledger.NFTsByIssuer(ctx, issuer)
		if err != nil {
			return model.DomainRecord{}, fmt.Errorf("%w: %s issuer %s: %w", ErrTransport, service, issuer, err)
		}
		metrics.ResolverNFTsScanned.WithLabelValues(r.network.String(), service.String()).Add(float64(len(nfts)))

		for _, nft := range nfts {
			if err := ctx.Err(); err != nil {
				return model.DomainRecord{}, err
			}
			parsed, err := r.parser.Parse(ctx, nft, service)
			if err != nil {
				r.logger.Debug("skipping unparseable nft", "nft_id", nft.ID.String(), "service", service.String(), "error", err)
				continue
			}
			if parsed.Name == name {
				r.names.Put(name, parsed)
				return parsed, nil
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return model.DomainRecord{}, err
	}
	return model.DomainRecord{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// ReverseLookup returns every domain record held by owner, in ledger
// enumeration order. An owner with no domains gets an empty slice.
func (r *Resolver) ReverseLookup(ctx context.Context, owner string) (recs []model.DomainRecord, err error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "resolver.ReverseLookup", trace.WithAttributes(attribute.String("owner", owner)))
	defer func() { r.finish(span, opReverse, start, err) }()

	if !classicAddress.MatchString(owner) {
		return nil, fmt.Errorf("%w: address %q", ErrInvalidFormat, owner)
	}

	if cached, ok := r.owners.Get(owner); ok {
		return cloneRecords(cached), nil
	}

	nfts, err := r.ledger.NFTsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: owner %s: %w", ErrTransport, owner, err)
	}

	type candidate struct {
		nft     model.NftHandle
		service model.NamingService
	}
	candidates := make([]candidate, 0, len(nfts))
	for _, nft := range nfts {
		service, ok := r.registry.ServiceForIssuer(r.network, nft.Issuer)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{nft: nft, service: service})
		metrics.ResolverNFTsScanned.WithLabelValues(r.network.String(), service.String()).Inc()
	}

	slots := make([]*model.DomainRecord, len(candidates))
	var g errgroup.Group
	g.SetLimit(r.parseConcurrency)
	for i, c := range candidates {
		g.Go(func() error {
			parsed, err := r.parser.Parse(ctx, c.nft, c.service)
			if err != nil {
				r.logger.Debug("skipping unparseable nft", "nft_id", c.nft.ID.String(), "service", c.service.String(), "error", err)
				return nil
			}
			slots[i] = &parsed
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]model.DomainRecord, 0, len(slots))
	for _, rec := range slots {
		if rec != nil {
			out = append(out, *rec)
		}
	}
	r.owners.Put(owner, out)
	return cloneRecords(out), nil
}

// ClearCache drops every cached forward and reverse result.
func (r *Resolver) ClearCache() {
	r.names.Purge()
	r.owners.Purge()
	r.logger.Info("resolver cache cleared")
}

// KeyspaceStats describes one cache partition.
type KeyspaceStats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Entries  int   `json:"entries"`
	Capacity int   `json:"capacity"`
}

// CacheStats covers both cache partitions.
type CacheStats struct {
	Names  KeyspaceStats `json:"names"`
	Owners KeyspaceStats `json:"owners"`
}

func (r *Resolver) CacheStats() CacheStats {
	return CacheStats{
		Names:  keyspaceStats(r.names),
		Owners: keyspaceStats(r.owners),
	}
}

func keyspaceStats[V any](c *cache.TTL[string, V]) KeyspaceStats {
	hits, misses := c.Stats()
	return KeyspaceStats{Hits: hits, Misses: misses, Entries: c.Len(), Capacity: c.Capacity()}
}

func (r *Resolver) finish(span trace.Span, op string, start time.Time, err error) {
	network := r.network.String()
	metrics.ResolverRequestsTotal.WithLabelValues(network, op, resultLabel(err)).Inc()
	metrics.ResolverLatency.WithLabelValues(network, op).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, resultLabel(err))
	}
	span.End()
}

func cloneRecords(in []model.DomainRecord) []model.DomainRecord {
	out := make([]model.DomainRecord, len(in))
	for i, rec := range in {
		out[i] = rec.Clone()
	}
	return out
}
