// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package figures extracts tables and figures from a PDF. Backends run in
// order (pdffigures2, chandra OCR, an in-process caption scan) until one
// returns a non-empty set. Extraction never fails: when every backend comes
// up empty, after retries, the result is the empty set.
package figures

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/nayanlc19/journal-club-standalone/internal/cascade"
	"github.com/nayanlc19/journal-club-standalone/internal/container"
	"github.com/nayanlc19/journal-club-standalone/internal/logging"
	"github.com/nayanlc19/journal-club-standalone/internal/resilience"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// Backend names.
const (
	BackendPDFFigures = "pdffigures2"
	BackendChandra    = "chandra"
	BackendCaptions   = "captions"
)

const tierFigures = "figures"

// ErrNoFigures rejects an empty set so the next backend is tried.
var ErrNoFigures = errors.New("no figures found")

// Backend turns a PDF path into a figure set.
type Backend = cascade.Strategy[string, types.FigureSet]

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the extractor logger.
func WithLogger(l *zap.Logger) Option { return func(e *Extractor) { e.log = logging.OrNop(l) } }

// WithObserver reports backend attempts to o.
func WithObserver(o cascade.Observer) Option { return func(e *Extractor) { e.observer = o } }

// WithRunner sets the process runner for the java and chandra backends.
func WithRunner(r container.Runner) Option { return func(e *Extractor) { e.runner = r } }

// WithBackends replaces the default backend order.
func WithBackends(b ...Backend) Option { return func(e *Extractor) { e.backends = b } }

// WithPolicy replaces the retry policy around the whole cascade.
func WithPolicy(p resilience.Policy) Option { return func(e *Extractor) { e.policy = p } }

// Extractor is the figure extraction cascade. It is safe for concurrent use.
type Extractor struct {
	runner   container.Runner
	backends []Backend
	policy   resilience.Policy
	log      *zap.Logger
	observer cascade.Observer
	resolver *cascade.Resolver[string, types.FigureSet]
}

// New builds the extractor from cfg. Backends without a configured binary
// are skipped.
func New(cfg types.FiguresConfig, opts ...Option) *Extractor {
	cfg = withDefaults(cfg)
	e := &Extractor{runner: container.Host{}, log: zap.NewNop(), policy: resilience.DefaultPolicy()}
	e.policy.MaxAttempts = cfg.MaxAttempts
	for _, o := range opts {
		o(e)
	}
	e.policy.Logger = e.log
	if e.backends == nil {
		e.backends = []Backend{
			NewPDFFigures(e.runner, cfg),
			NewChandra(e.runner, cfg),
			NewCaptions(cfg),
		}
	}
	e.resolver = cascade.New(cascade.KindExtraction,
		[]cascade.Tier[string, types.FigureSet]{{Label: tierFigures, Strategies: e.backends, Sequential: true}},
		cascade.Options[string, types.FigureSet]{
			Accept: func(_ context.Context, _ string, s types.FigureSet) error {
				if s.Empty() {
					return ErrNoFigures
				}
				return nil
			},
			Logger:   e.log,
			Observer: e.observer,
		})
	return e
}

func withDefaults(cfg types.FiguresConfig) types.FiguresConfig {
	def := types.DefaultConfig().Figures
	if cfg.JavaBin == "" {
		cfg.JavaBin = def.JavaBin
	}
	if cfg.PDFFiguresTimeout <= 0 {
		cfg.PDFFiguresTimeout = def.PDFFiguresTimeout
	}
	if cfg.ChandraTimeout <= 0 {
		cfg.ChandraTimeout = def.ChandraTimeout
	}
	if cfg.CaptionsTimeout <= 0 {
		cfg.CaptionsTimeout = def.CaptionsTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	return cfg
}

// ExtractFigures returns the first non-empty set any backend produces for
// the PDF at pdfPath, or the empty set.
func (e *Extractor) ExtractFigures(ctx context.Context, pdfPath string) types.FigureSet {
	set, _ := resilience.WithRetry(ctx,
		func(ctx context.Context) (types.FigureSet, error) {
			out, err := e.resolver.Resolve(ctx, pdfPath)
			if err != nil {
				if allSkipped(err) {
					return types.FigureSet{}, resilience.Permanent(err)
				}
				return types.FigureSet{}, err
			}
			set := out.Payload
			set.Source = out.Source
			return set, nil
		},
		func(_ context.Context, err error) (types.FigureSet, error) {
			e.log.Info("no figures extracted", zap.String("pdf", pdfPath), zap.Error(err))
			return types.FigureSet{}, nil
		},
		e.policy,
	)
	return set
}

// ExtractBytes stages pdf in a temp file for the external backends and
// removes it before returning.
func (e *Extractor) ExtractBytes(ctx context.Context, pdf []byte) types.FigureSet {
	path, cleanup, err := stage(pdf)
	if err != nil {
		e.log.Warn("staging PDF for figure extraction", zap.Error(err))
		return types.FigureSet{}
	}
	defer cleanup()
	return e.ExtractFigures(ctx, path)
}

// stage writes data to a private temp file. The cleanup func removes it.
func stage(data []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "figures-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("creating staging file: %w", err)
	}
	cleanup := func() { os.Remove(f.Name()) }
	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("writing staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing staging file: %w", err)
	}
	return f.Name(), cleanup, nil
}

// allSkipped reports an exhaustion where no backend was able to run, which
// a retry cannot change.
func allSkipped(err error) bool {
	var ex *cascade.ExhaustedError
	if !errors.As(err, &ex) || len(ex.Attempts) == 0 {
		return false
	}
	for _, a := range ex.Attempts {
		if a.Status != cascade.StatusSkipped {
			return false
		}
	}
	return true
}
