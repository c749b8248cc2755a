// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/nayanlc19/journal-club-standalone/internal/acquire"
	"github.com/nayanlc19/journal-club-standalone/internal/container"
	"github.com/nayanlc19/journal-club-standalone/internal/convert"
	"github.com/nayanlc19/journal-club-standalone/internal/extract"
	"github.com/nayanlc19/journal-club-standalone/internal/figures"
	"github.com/nayanlc19/journal-club-standalone/internal/fulltext"
	"github.com/nayanlc19/journal-club-standalone/internal/metadata"
	"github.com/nayanlc19/journal-club-standalone/internal/render"
	"github.com/nayanlc19/journal-club-standalone/internal/validate"
)

func httpClient() *http.Client {
	return &http.Client{Timeout: cfg.Acquisition.Timeout}
}

func newPipeline() *acquire.Pipeline {
	client := httpClient()
	return acquire.NewPipeline(client, cfg.Acquisition, validate.New(cfg.Validation),
		acquire.WithLogger(logger),
		acquire.WithObserver(collector),
		acquire.WithMetadata(metadata.NewClient(client, cfg.Acquisition, logger)),
	)
}

func newExtractor() *extract.Cascade {
	return extract.NewCascade(cfg.Extraction, extract.WithLogger(logger), extract.WithObserver(collector))
}

func newRenderer() *render.Escalation {
	return render.New(cfg.Render, render.WithLogger(logger), render.WithObserver(collector))
}

func newFigures() *figures.Extractor {
	return figures.New(cfg.Figures, figures.WithLogger(logger), figures.WithObserver(collector))
}

// newConverter prefers markitdown when a container runtime has the image
// and always falls back to the PDF text layer.
func newConverter(ctx context.Context) *convert.Cascade {
	var cs []convert.Converter
	if rt, err := container.DetectRuntime(ctx); err != nil {
		logger.Debug("no container runtime; markitdown disabled", zap.Error(err))
	} else if m, err := convert.NewMarkitdownConverter(ctx, rt); err != nil {
		logger.Debug("markitdown disabled", zap.Error(err))
	} else {
		cs = append(cs, m)
	}
	cs = append(cs, convert.TextConverter{})
	return convert.NewCascade(logger, cs...)
}

func newService(ctx context.Context, withFigures bool) *fulltext.Service {
	opts := []fulltext.Option{
		fulltext.WithLogger(logger),
		fulltext.WithRenderer(newRenderer()),
	}
	if withFigures {
		opts = append(opts, fulltext.WithFigures(newFigures()))
	}
	return fulltext.New(newPipeline(), newConverter(ctx), newExtractor(), cfg.Extraction, opts...)
}
