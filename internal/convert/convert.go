// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns acquired PDFs into plain text or Markdown. Backends
// implement Converter; a Cascade tries them in order and keeps the first
// non-empty result.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nayanlc19/journal-club-standalone/internal/logging"
)

// Converter transforms a PDF file into text. Different backends
// (markitdown, the in-process text layer) implement this interface.
type Converter interface {
	Name() string
	// Convert reads a PDF at pdfPath and returns its text content.
	Convert(ctx context.Context, pdfPath string) (string, error)
}

// ErrEmpty reports a converter that ran but produced no text.
var ErrEmpty = errors.New("converter produced no text")

// Cascade runs converters in order until one produces text.
type Cascade struct {
	converters []Converter
	log        *zap.Logger
}

// NewCascade returns a cascade over cs. A nil logger is replaced by a no-op.
func NewCascade(log *zap.Logger, cs ...Converter) *Cascade {
	return &Cascade{converters: cs, log: logging.OrNop(log)}
}

func (c *Cascade) Name() string {
	names := make([]string, 0, len(c.converters))
	for _, cv := range c.converters {
		names = append(names, cv.Name())
	}
	return strings.Join(names, ",")
}

// Convert returns the first non-blank conversion. When every converter
// fails the errors are joined.
func (c *Cascade) Convert(ctx context.Context, pdfPath string) (string, error) {
	if len(c.converters) == 0 {
		return "", errors.New("no converters configured")
	}
	var errs []error
	for _, cv := range c.converters {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := cv.Convert(ctx, pdfPath)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmpty
		}
		if err != nil {
			c.log.Debug("converter failed", zap.String("converter", cv.Name()), zap.String("pdf", pdfPath), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", cv.Name(), err))
			continue
		}
		c.log.Debug("converted", zap.String("converter", cv.Name()), zap.Int("bytes", len(text)))
		return text, nil
	}
	return "", errors.Join(errs...)
}

// Status is the outcome of converting one file in a batch.
type Status string

const (
	StatusConverted Status = "converted"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the total number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any file failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ConvertFile converts one PDF into outDir/<base>.md with a YAML
// frontmatter header. An existing output is left alone.
func ConvertFile(ctx context.Context, c Converter, pdfPath, outDir string, w io.Writer) Status {
	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	mdPath := filepath.Join(outDir, base+".md")

	if _, err := os.Stat(mdPath); err == nil {
		fmt.Fprintf(w, "skipped:   %s (already exists)\n", base)
		return StatusSkipped
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(w, "failed:    %s (%v)\n", base, err)
		return StatusFailed
	}

	text, err := c.Convert(ctx, pdfPath)
	if err != nil {
		fmt.Fprintf(w, "failed:    %s (%v)\n", base, err)
		return StatusFailed
	}
	if err := os.WriteFile(mdPath, []byte(frontmatter(pdfPath, c.Name(), text)), 0o644); err != nil {
		fmt.Fprintf(w, "failed:    %s (%v)\n", base, err)
		return StatusFailed
	}
	fmt.Fprintf(w, "converted: %s\n", base)
	return StatusConverted
}

// ConvertBatch converts every path and prints a summary line to w.
func ConvertBatch(ctx context.Context, c Converter, pdfPaths []string, outDir string, w io.Writer) BatchResult {
	var result BatchResult
	for _, p := range pdfPaths {
		switch ConvertFile(ctx, c, p, outDir, w) {
		case StatusConverted:
			result.Converted++
		case StatusSkipped:
			result.Skipped++
		case StatusFailed:
			result.Failed++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

func frontmatter(pdfPath, converter, body string) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "source_pdf: %q\n", pdfPath)
	fmt.Fprintf(&b, "converter: %q\n", converter)
	fmt.Fprintf(&b, "converted_at: %q\n", time.Now().UTC().Format(time.RFC3339))
	b.WriteString("---\n\n")
	b.WriteString(body)
	return b.String()
}
