// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fulltext is the end-to-end resolver: it acquires content for an
// identifier, turns PDFs into text through the converter cascade and HTML
// into text through the extraction ladder, escalates thin HTML to the
// rendering backends, and returns the text handoff for appraisal.
package fulltext

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nayanlc19/journal-club-standalone/internal/acquire"
	"github.com/nayanlc19/journal-club-standalone/internal/convert"
	"github.com/nayanlc19/journal-club-standalone/internal/extract"
	"github.com/nayanlc19/journal-club-standalone/internal/logging"
	"github.com/nayanlc19/journal-club-standalone/internal/render"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// Handoff is what the appraisal collaborator receives.
type Handoff struct {
	Text      string `json:"text" yaml:"text"`
	SourceDOI string `json:"source_doi,omitempty" yaml:"source_doi,omitempty"`

	Kind   types.ContentKind `json:"kind" yaml:"kind"`
	Source string            `json:"source" yaml:"source"`
	URL    string            `json:"url,omitempty" yaml:"url,omitempty"`

	// Stage names the extraction stage or converter that produced Text.
	Stage string `json:"stage" yaml:"stage"`

	// Rendered is set when the text came from rendered markup.
	Rendered  bool   `json:"rendered" yaml:"rendered"`
	Publisher string `json:"publisher" yaml:"publisher"`

	// Figures is set for PDFs when figure extraction is enabled.
	Figures *types.FigureSet `json:"figures,omitempty" yaml:"figures,omitempty"`
}

// Acquirer fetches content for an identifier. *acquire.Pipeline implements it.
type Acquirer interface {
	Acquire(ctx context.Context, identifier string, expected *types.Metadata) (acquire.Result, error)
}

// TextExtractor turns markup into article text. *extract.Cascade implements it.
type TextExtractor interface {
	Extract(markup []byte) extract.Result
}

// Renderer runs the rendering escalation. *render.Escalation implements it.
type Renderer interface {
	Render(ctx context.Context, p render.Page) render.Result
}

// FigureExtractor finds tables and figures in a PDF. *figures.Extractor
// implements it.
type FigureExtractor interface {
	ExtractFigures(ctx context.Context, pdfPath string) types.FigureSet
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = logging.OrNop(l) } }

// WithRenderer enables rendering escalation for thin HTML.
func WithRenderer(r Renderer) Option { return func(s *Service) { s.renderer = r } }

// WithFigures runs figure extraction on acquired PDFs.
func WithFigures(f FigureExtractor) Option { return func(s *Service) { s.figures = f } }

// Service wires acquisition, conversion, extraction and rendering.
type Service struct {
	acquirer    Acquirer
	converter   convert.Converter
	extractor   TextExtractor
	renderer    Renderer
	figures     FigureExtractor
	renderBelow int
	log         *zap.Logger
}

// New returns a service. HTML whose extracted text is shorter than
// cfg.RenderBelowChars characters is rendered and extracted again.
func New(a Acquirer, c convert.Converter, x TextExtractor, cfg types.ExtractionConfig, opts ...Option) *Service {
	s := &Service{
		acquirer:    a,
		converter:   c,
		extractor:   x,
		renderBelow: cfg.RenderBelowChars,
		log:         zap.NewNop(),
	}
	if s.renderBelow <= 0 {
		s.renderBelow = render.UsableChars
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Resolve acquires identifier and returns its text. Acquisition exhaustion
// is returned as the pipeline's *cascade.ExhaustedError; a PDF that no
// converter can read is returned as a conversion error.
func (s *Service) Resolve(ctx context.Context, identifier string) (Handoff, error) {
	res, err := s.acquirer.Acquire(ctx, identifier, nil)
	if err != nil {
		return Handoff{}, err
	}
	doi := ""
	if res.Expected != nil {
		doi = res.Expected.DOI
	}
	if doi == "" {
		if t, normalized := acquire.Classify(identifier); t == acquire.TypeDOI {
			doi = normalized
		}
	}
	return s.handoff(ctx, res, doi)
}

// ResolveUpload runs the post-acquisition path on user-supplied bytes, as
// offered after the pipeline is exhausted. doi may be empty.
func (s *Service) ResolveUpload(ctx context.Context, name string, data []byte, doi string) (Handoff, error) {
	res, err := acquire.FromUpload(name, data)
	if err != nil {
		return Handoff{}, err
	}
	return s.handoff(ctx, res, doi)
}

func (s *Service) handoff(ctx context.Context, res acquire.Result, doi string) (Handoff, error) {
	log := s.log.With(zap.Stringer("request_id", res.RequestID), zap.String("source", res.Source))
	h := Handoff{SourceDOI: doi, Kind: res.Content.Kind, Source: res.Source, URL: res.Content.URL}

	switch res.Content.Kind {
	case types.KindPDF:
		if err := s.fromPDF(ctx, res.Content.Data, &h); err != nil {
			return Handoff{}, err
		}
	default:
		s.fromHTML(ctx, res, &h, log)
	}

	h.Publisher = extract.DetectPublisher(h.Text)
	log.Info("handoff ready",
		zap.String("kind", string(h.Kind)),
		zap.String("stage", h.Stage),
		zap.Bool("rendered", h.Rendered),
		zap.Int("chars", utf8.RuneCountInString(h.Text)))
	return h, nil
}

func (s *Service) fromPDF(ctx context.Context, pdf []byte, h *Handoff) error {
	f, err := os.CreateTemp("", "fulltext-*.pdf")
	if err != nil {
		return fmt.Errorf("staging PDF: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(pdf); err != nil {
		f.Close()
		return fmt.Errorf("staging PDF: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("staging PDF: %w", err)
	}

	text, err := s.converter.Convert(ctx, f.Name())
	if err != nil {
		return fmt.Errorf("converting PDF from %s: %w", h.Source, err)
	}
	h.Text = extract.Sanitize(text)
	h.Stage = s.converter.Name()

	if s.figures != nil {
		set := s.figures.ExtractFigures(ctx, f.Name())
		h.Figures = &set
	}
	return nil
}

func (s *Service) fromHTML(ctx context.Context, res acquire.Result, h *Handoff, log *zap.Logger) {
	best := s.extractor.Extract(res.Content.Data)
	h.Text, h.Stage = best.Text, best.Stage

	if best.Chars >= s.renderBelow || s.renderer == nil {
		return
	}

	page := render.Page{URL: res.Content.URL, Markup: res.Content.Data}
	if res.Source == acquire.SourceUpload {
		page.URL = ""
	}
	log.Debug("extracted text is thin; rendering", zap.Int("chars", best.Chars), zap.String("stage", best.Stage))
	rr := s.renderer.Render(ctx, page)
	if !rr.Rendered {
		return
	}
	again := s.extractor.Extract(rr.Markup)
	if again.Chars > best.Chars {
		h.Text, h.Stage, h.Rendered = again.Text, again.Stage, true
	}
}
