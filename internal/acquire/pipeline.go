// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire turns a DOI, arXiv ID or URL into PDF or HTML content.
// The Pipeline races open-access APIs first, then shadow-library mirrors and
// search scraping (validated against expected metadata), then direct
// publisher fetches with relaxed acceptance.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nayanlc19/journal-club-standalone/internal/cascade"
	"github.com/nayanlc19/journal-club-standalone/internal/httputil"
	"github.com/nayanlc19/journal-club-standalone/internal/logging"
	"github.com/nayanlc19/journal-club-standalone/internal/validate"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// Tier labels.
const (
	TierOpenAccess = "open-access"
	TierMirrors    = "mirrors-and-search"
	TierDirect     = "direct"
	TierURL        = "url"
)

// ErrUnknownIdentifier is returned for input that is neither a DOI, an arXiv
// ID nor an http(s) URL.
var ErrUnknownIdentifier = errors.New("unrecognized identifier format")

// Request threads one identifier and its expected metadata through the
// pipeline. It is created per Acquire call and never mutated by strategies.
type Request struct {
	ID       uuid.UUID
	Raw      string
	Type     IdentifierType
	DOI      string
	ArxivID  string
	URL      string
	Expected *types.Metadata
}

// Result is the accepted content of an acquisition.
type Result struct {
	RequestID uuid.UUID
	Content   types.Content
	Source    string
	Tier      string
	Attempts  []cascade.Attempt

	// Expected is the metadata the content was checked against, if any.
	Expected *types.Metadata
}

// MetadataLookup fetches expected bibliographic metadata for a DOI.
// *metadata.Client implements it.
type MetadataLookup interface {
	FetchMetadata(ctx context.Context, doi string) (*types.Metadata, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) Option { return func(p *Pipeline) { p.log = logging.OrNop(l) } }

// WithObserver reports every strategy attempt to o.
func WithObserver(o cascade.Observer) Option { return func(p *Pipeline) { p.observer = o } }

// WithMetadata makes Acquire look up expected metadata for DOIs when the
// caller passes none. A failed lookup leaves it nil and validation fails open.
func WithMetadata(m MetadataLookup) Option { return func(p *Pipeline) { p.lookup = m } }

// Pipeline is the acquisition cascade. Resolvers are built once per
// identifier type; every Acquire call is independent.
type Pipeline struct {
	cfg       types.AcquisitionConfig
	fetch     *fetcher
	validator *validate.Validator
	lookup    MetadataLookup
	log       *zap.Logger
	observer  cascade.Observer

	doi   *cascade.Resolver[Request, types.Content]
	arxiv *cascade.Resolver[Request, types.Content]
	url   *cascade.Resolver[Request, types.Content]
}

// NewPipeline builds the acquisition tiers from cfg. Strategies whose
// credentials are missing stay in their tier and report themselves skipped.
func NewPipeline(client *http.Client, cfg types.AcquisitionConfig, v *validate.Validator, opts ...Option) *Pipeline {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	p := &Pipeline{
		cfg: cfg,
		fetch: &fetcher{
			client:  client,
			cfg:     cfg,
			limiter: httputil.NewHostLimiter(cfg.HostRPS, 2),
		},
		validator: v,
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}

	copts := cascade.Options[Request, types.Content]{
		Accept:   p.accept,
		Validate: p.verify,
		Logger:   p.log,
		Observer: p.observer,
	}
	p.doi = cascade.New(cascade.KindAcquisition, p.doiTiers(), copts)
	p.arxiv = cascade.New(cascade.KindAcquisition, p.arxivTiers(), copts)
	p.url = cascade.New(cascade.KindAcquisition, p.urlTiers(), copts)
	return p
}

func (p *Pipeline) strategy(name string, timeout time.Duration, fn func(context.Context, Request) (types.Content, error)) cascade.Strategy[Request, types.Content] {
	return cascade.NewFunc(name, timeout, fn)
}

func (p *Pipeline) doiTiers() []cascade.Tier[Request, types.Content] {
	f, c := p.fetch, p.cfg
	trusted := []cascade.Strategy[Request, types.Content]{
		p.strategy("unpaywall", c.TrustedTimeout, f.unpaywall),
		p.strategy("openalex", c.TrustedTimeout, f.openAlex),
		p.strategy("europepmc", c.TrustedTimeout, f.europePMC),
		p.strategy("pmc", c.TrustedTimeout, f.pmc),
		p.strategy("semantic-scholar", c.TrustedTimeout, f.semanticScholar),
		p.strategy("preprint", c.TrustedTimeout, f.preprint),
		p.strategy("core", c.TrustedTimeout, f.core),
	}

	var untrusted []cascade.Strategy[Request, types.Content]
	for _, m := range c.Mirrors {
		untrusted = append(untrusted, p.strategy(mirrorName(m), c.MirrorTimeout, f.mirror(m)))
	}
	untrusted = append(untrusted, p.strategy("web-search", c.MirrorTimeout, f.webSearch))

	direct := []cascade.Strategy[Request, types.Content]{
		p.strategy("doi-redirect", c.DirectTimeout, f.doiRedirect),
		p.strategy("pmc-fulltext", c.DirectTimeout, f.pmcFullText),
		p.strategy("publisher-html", c.DirectTimeout, f.publisherHTML),
	}

	return []cascade.Tier[Request, types.Content]{
		{Label: TierOpenAccess, Strategies: trusted},
		{Label: TierMirrors, Strategies: untrusted, Validate: true},
		{Label: TierDirect, Strategies: direct},
	}
}

func (p *Pipeline) arxivTiers() []cascade.Tier[Request, types.Content] {
	return []cascade.Tier[Request, types.Content]{
		{Label: TierOpenAccess, Strategies: []cascade.Strategy[Request, types.Content]{
			p.strategy("preprint", p.cfg.TrustedTimeout, p.fetch.preprint),
		}},
	}
}

func (p *Pipeline) urlTiers() []cascade.Tier[Request, types.Content] {
	return []cascade.Tier[Request, types.Content]{
		{Label: TierURL, Sequential: true, Strategies: []cascade.Strategy[Request, types.Content]{
			p.strategy("direct-url", p.cfg.DirectTimeout, p.fetch.directURL),
			p.strategy("publisher-html", p.cfg.DirectTimeout, p.fetch.urlArticle),
		}},
	}
}

// TierInfo names a tier and its strategies.
type TierInfo struct {
	Label      string
	Strategies []string
	Validated  bool
}

// Tiers lists the tiers used for DOIs in escalation order.
func (p *Pipeline) Tiers() []TierInfo {
	var out []TierInfo
	for _, t := range p.doi.Tiers() {
		info := TierInfo{Label: t.Label, Validated: t.Validate}
		for _, s := range t.Strategies {
			info.Strategies = append(info.Strategies, s.Name())
		}
		out = append(out, info)
	}
	return out
}

// accept rejects empty payloads from any tier.
func (p *Pipeline) accept(_ context.Context, _ Request, c types.Content) error {
	if c.Len() == 0 {
		return fmt.Errorf("empty payload: %w", ErrNoFullText)
	}
	return nil
}

// verify checks untrusted content against the expected metadata.
func (p *Pipeline) verify(_ context.Context, req Request, c types.Content) error {
	if p.validator == nil {
		return nil
	}
	return p.validator.Verify(c, req.Expected)
}

// NewRequest classifies identifier and builds a request for it.
func NewRequest(identifier string, expected *types.Metadata) (Request, error) {
	idType, normalized := Classify(identifier)
	req := Request{ID: uuid.New(), Raw: identifier, Type: idType, Expected: expected}
	switch idType {
	case TypeDOI:
		req.DOI = normalized
		if m := arxivDOIPattern.FindStringSubmatch(normalized); m != nil {
			req.ArxivID = m[1]
		}
	case TypeArxiv:
		req.ArxivID = normalized
		req.DOI = "10.48550/arXiv." + normalized
	case TypeURL:
		req.URL = normalized
	default:
		return Request{}, fmt.Errorf("%w: %q", ErrUnknownIdentifier, identifier)
	}
	return req, nil
}

// fetchMetadata bounds the lookup by the trusted tier deadline so a slow
// bibliographic API degrades to fail-open validation.
func (p *Pipeline) fetchMetadata(ctx context.Context, doi string) (*types.Metadata, error) {
	if d := p.cfg.TrustedTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return p.lookup.FetchMetadata(ctx, doi)
}

// Acquire resolves identifier into PDF or HTML content. expected may be nil.
// The only error besides an unrecognized identifier is a
// *cascade.ExhaustedError listing every attempted source.
func (p *Pipeline) Acquire(ctx context.Context, identifier string, expected *types.Metadata) (Result, error) {
	req, err := NewRequest(identifier, expected)
	if err != nil {
		return Result{}, err
	}
	log, id := logging.ForRequest(p.log, identifier)
	req.ID = id
	log = log.With(zap.Stringer("type", req.Type))

	if req.Expected == nil && req.DOI != "" && p.lookup != nil {
		md, err := p.fetchMetadata(ctx, req.DOI)
		if err != nil {
			log.Warn("metadata lookup failed; validation will fail open", zap.Error(err))
		} else {
			req.Expected = md
		}
	}

	var r *cascade.Resolver[Request, types.Content]
	switch req.Type {
	case TypeArxiv:
		r = p.arxiv
	case TypeURL:
		r = p.url
	default:
		r = p.doi
	}

	log.Info("acquiring")
	out, err := r.Resolve(ctx, req)
	if err != nil {
		return Result{RequestID: req.ID, Expected: req.Expected}, err
	}
	log.Info("acquired",
		zap.String("source", out.Source),
		zap.String("tier", out.Tier),
		zap.String("kind", string(out.Payload.Kind)),
		zap.Int("bytes", out.Payload.Len()))
	return Result{
		RequestID: req.ID,
		Content:   out.Payload,
		Source:    out.Source,
		Tier:      out.Tier,
		Attempts:  out.Attempts,
		Expected:  req.Expected,
	}, nil
}
