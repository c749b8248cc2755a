// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render materializes client-rendered pages whose fetched markup is
// near-empty. Backends are tried in order (DOM emulation, a managed cloud
// API, a local headless browser) until one returns enough markup. When all
// of them fail the original markup is handed back unchanged.
package render

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nayanlc19/journal-club-standalone/internal/cascade"
	"github.com/nayanlc19/journal-club-standalone/internal/container"
	"github.com/nayanlc19/journal-club-standalone/internal/logging"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// Backend names.
const (
	BackendDOM     = "dom"
	BackendCloud   = "cloud"
	BackendBrowser = "browser"
)

const tierRender = "render"

// UsableChars is the extracted text length below which a page is treated as
// client-rendered and worth escalating.
const UsableChars = 500

// NeedsRendering reports whether extracted text is too short to be the
// article itself.
func NeedsRendering(text string) bool {
	return utf8.RuneCountInString(text) < UsableChars
}

// Page is the input to every backend: where the markup came from and the
// markup itself. Either may be empty, not both.
type Page struct {
	URL    string
	Markup []byte
}

// Backend renders a page into materialized markup.
type Backend = cascade.Strategy[Page, []byte]

// Result is the escalation outcome. Rendered is false when every backend
// failed and Markup is the original.
type Result struct {
	Markup   []byte
	Backend  string
	Rendered bool
	Attempts []cascade.Attempt
}

// Option configures an Escalation.
type Option func(*Escalation)

// WithLogger sets the escalation logger.
func WithLogger(l *zap.Logger) Option { return func(e *Escalation) { e.log = logging.OrNop(l) } }

// WithObserver reports backend attempts to o.
func WithObserver(o cascade.Observer) Option { return func(e *Escalation) { e.observer = o } }

// WithHTTPClient sets the client used by the cloud backend and the browser download.
func WithHTTPClient(c *http.Client) Option { return func(e *Escalation) { e.client = c } }

// WithRunner sets the process runner for the local browser backend.
func WithRunner(r container.Runner) Option { return func(e *Escalation) { e.runner = r } }

// WithBackends replaces the default backend order.
func WithBackends(b ...Backend) Option { return func(e *Escalation) { e.backends = b } }

// Escalation is the rendering cascade. It is safe for concurrent use.
type Escalation struct {
	cfg      types.RenderConfig
	client   *http.Client
	runner   container.Runner
	backends []Backend
	log      *zap.Logger
	observer cascade.Observer
	resolver *cascade.Resolver[Page, []byte]
}

// New builds the escalation from cfg. Without a cloud token the cloud
// backend is skipped; off the configured platform the browser is skipped.
func New(cfg types.RenderConfig, opts ...Option) *Escalation {
	cfg = withDefaults(cfg)
	e := &Escalation{cfg: cfg, log: zap.NewNop(), runner: container.Host{}}
	for _, o := range opts {
		o(e)
	}
	if e.client == nil {
		e.client = &http.Client{Timeout: cfg.Timeout}
	}
	if e.backends == nil {
		e.backends = []Backend{
			NewDOM(cfg),
			NewCloud(e.client, cfg),
			NewBrowser(e.client, e.runner, cfg),
		}
	}
	e.resolver = cascade.New(cascade.KindRendering,
		[]cascade.Tier[Page, []byte]{{Label: tierRender, Strategies: e.backends, Sequential: true}},
		cascade.Options[Page, []byte]{
			Accept:   e.accept,
			Logger:   e.log,
			Observer: e.observer,
		})
	return e
}

func withDefaults(cfg types.RenderConfig) types.RenderConfig {
	def := types.DefaultConfig().Render
	if cfg.MinChars <= 0 {
		cfg.MinChars = def.MinChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.SettleWindow <= 0 {
		cfg.SettleWindow = def.SettleWindow
	}
	if cfg.BrowserPlatform == "" {
		cfg.BrowserPlatform = def.BrowserPlatform
	}
	return cfg
}

// accept requires MinChars characters of rendered markup.
func (e *Escalation) accept(_ context.Context, _ Page, markup []byte) error {
	if n := utf8.RuneCount(markup); n < e.cfg.MinChars {
		return fmt.Errorf("rendered %d chars, need %d", n, e.cfg.MinChars)
	}
	return nil
}

// Backends lists the backend names in escalation order.
func (e *Escalation) Backends() []string {
	names := make([]string, len(e.backends))
	for i, b := range e.backends {
		names[i] = b.Name()
	}
	return names
}

// Render tries each backend in turn. It never fails: exhaustion returns the
// page's own markup with Rendered false and the attempt trail.
func (e *Escalation) Render(ctx context.Context, p Page) Result {
	out, err := e.resolver.Resolve(ctx, p)
	if err == nil {
		return Result{Markup: out.Payload, Backend: out.Source, Rendered: true, Attempts: out.Attempts}
	}

	res := Result{Markup: p.Markup}
	var ex *cascade.ExhaustedError
	if errors.As(err, &ex) {
		res.Attempts = ex.Attempts
	}
	e.log.Info("rendering exhausted, keeping original markup",
		zap.String("url", p.URL), zap.Int("bytes", len(p.Markup)), zap.Int("attempts", len(res.Attempts)))
	return res
}
