// Package metadata turns an NFT's URI field into a domain record, fetching
// the metadata document from IPFS or HTTP when the URI points elsewhere.
package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emperorhan/xns-resolver/internal/domain/model"
	"github.com/emperorhan/xns-resolver/internal/metrics"
	"github.com/emperorhan/xns-resolver/internal/registry"
	"github.com/emperorhan/xns-resolver/internal/tracing"
	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultFetchTimeout = 10 * time.Second

// DefaultGateways are tried in order for ipfs:// URIs.
var DefaultGateways = []string{
	"https://ipfs.io/ipfs",
	"https://gateway.pinata.cloud/ipfs",
	"https://cloudflare-ipfs.com/ipfs",
}

// Config configures a Parser. Zero fields take defaults.
type Config struct {
	Gateways     []string
	FetchTimeout time.Duration
	Fetcher      Fetcher
	Registry     *registry.Registry
	// Extractors overrides document extraction per service; services not
	// listed use ExtractDefault.
	Extractors map[model.NamingService]Extractor
	Logger     *slog.Logger
}

// Parser is stateless between calls and safe for concurrent use.
type Parser struct {
	gateways     []string
	fetchTimeout time.Duration
	fetcher      Fetcher
	registry     *registry.Registry
	extractors   map[model.NamingService]Extractor
	logger       *slog.Logger
	tracer       trace.Tracer
}

func NewParser(cfg Config) *Parser {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if len(cfg.Gateways) == 0 {
		cfg.Gateways = DefaultGateways
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = NewHTTPFetcher(cfg.FetchTimeout)
	}
	if cfg.Registry == nil {
		cfg.Registry = registry.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	gateways := make([]string, 0, len(cfg.Gateways))
	for _, gw := range cfg.Gateways {
		if gw = strings.TrimRight(strings.TrimSpace(gw), "/"); gw != "" {
			gateways = append(gateways, gw)
		}
	}

	return &Parser{
		gateways:     gateways,
		fetchTimeout: cfg.FetchTimeout,
		fetcher:      cfg.Fetcher,
		registry:     cfg.Registry,
		extractors:   cfg.Extractors,
		logger:       cfg.Logger.With("component", "metadata"),
		tracer:       tracing.Tracer("xns/metadata"),
	}
}

// Parse decodes nft's URI, loads its metadata and extracts the domain name.
// Errors wrap ErrInvalidEncoding, ErrFetchFailed or ErrMissingField.
func (p *Parser) Parse(ctx context.Context, nft model.NftHandle, service model.NamingService) (rec model.DomainRecord, err error) {
	ctx, span := p.tracer.Start(ctx, "metadata.Parse", trace.WithAttributes(
		attribute.String("nft_id", nft.ID.String()),
		attribute.String("service", service.String()),
	))
	defer func() {
		if err != nil {
			metrics.MetadataParseFailures.WithLabelValues(Reason(err)).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, Reason(err))
		}
		span.End()
	}()

	uri, err := decodeURI(nft.URI)
	if err != nil {
		return model.DomainRecord{}, err
	}
	src, err := classify(uri)
	if err != nil {
		return model.DomainRecord{}, err
	}
	span.SetAttributes(attribute.String("source", src.kind.String()))

	doc := src.doc
	switch src.kind {
	case model.SourceIPFS:
		doc, err = p.fetchIPFS(ctx, src.target)
	case model.SourceHTTP:
		doc, err = p.fetchOnce(ctx, model.SourceHTTP, src.target)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrFetchFailed, err)
		}
	}
	if err != nil {
		return model.DomainRecord{}, err
	}

	fields, err := p.extractor(service)(doc, p.accept)
	if err != nil {
		return model.DomainRecord{}, err
	}

	return model.DomainRecord{
		Name:        fields.Name,
		Owner:       nft.Owner,
		Issuer:      nft.Issuer,
		NFTokenID:   nft.ID,
		Service:     service,
		Source:      src.kind,
		Addresses:   fields.Addresses,
		TextRecords: fields.TextRecords,
		ExpiresAt:   fields.ExpiresAt,
		Description: fields.Description,
		Image:       fields.Image,
	}, nil
}

// fetchIPFS tries every gateway in order and returns the first JSON object
// served with a 2xx status.
func (p *Parser) fetchIPFS(ctx context.Context, target string) (map[string]any, error) {
	var errs *multierror.Error
	for _, gw := range p.gateways {
		doc, err := p.fetchOnce(ctx, model.SourceIPFS, gw+"/"+target)
		if err == nil {
			return doc, nil
		}
		p.logger.Warn("ipfs gateway failed", "gateway", gw, "target", target, "error", err)
		errs = multierror.Append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if errs == nil {
		return nil, fmt.Errorf("%w: no ipfs gateways configured", ErrFetchFailed)
	}
	return nil, fmt.Errorf("%w: all ipfs gateways failed: %w", ErrFetchFailed, errs.ErrorOrNil())
}

// fetchOnce performs one bounded fetch attempt.
func (p *Parser) fetchOnce(ctx context.Context, kind model.SourceKind, url string) (map[string]any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	start := time.Now()
	body, err := p.fetcher.Fetch(attemptCtx, url)
	metrics.MetadataFetchLatency.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MetadataFetchTotal.WithLabelValues(kind.String(), "error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	doc, err := decodeDocument(body)
	if err != nil {
		metrics.MetadataFetchTotal.WithLabelValues(kind.String(), "bad_document").Inc()
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	metrics.MetadataFetchTotal.WithLabelValues(kind.String(), "ok").Inc()
	return doc, nil
}

func (p *Parser) extractor(service model.NamingService) Extractor {
	if ex, ok := p.extractors[service]; ok && ex != nil {
		return ex
	}
	return ExtractDefault
}

func (p *Parser) accept(name string) bool {
	_, suffix, ok := model.SplitName(name)
	return ok && p.registry.KnownSuffix(suffix)
}
