// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nayanlc19/journal-club-standalone/internal/container"
)

// ImageMarkitdown is the container image the markitdown converter runs.
const ImageMarkitdown = "markitdown:latest"

// MarkitdownConverter runs the markitdown image with the PDF on stdin and
// reads Markdown from stdout.
type MarkitdownConverter struct {
	runtime container.Runtime
}

// NewMarkitdownConverter fails when the image is not present in rt.
func NewMarkitdownConverter(ctx context.Context, rt container.Runtime) (*MarkitdownConverter, error) {
	if err := rt.ImageExists(ctx, ImageMarkitdown); err != nil {
		return nil, fmt.Errorf("%s has no %s image: %w", rt.Name(), ImageMarkitdown, err)
	}
	return &MarkitdownConverter{runtime: rt}, nil
}

func (m *MarkitdownConverter) Name() string { return "markitdown" }

func (m *MarkitdownConverter) Convert(ctx context.Context, pdfPath string) (string, error) {
	in, err := os.Open(pdfPath)
	if err != nil {
		return "", err
	}
	defer in.Close()

	var md strings.Builder
	if err := m.runtime.Run(ctx, ImageMarkitdown, in, &md); err != nil {
		return "", fmt.Errorf("markitdown %s: %w", filepath.Base(pdfPath), err)
	}
	if strings.TrimSpace(md.String()) == "" {
		return "", fmt.Errorf("markitdown %s: %w", filepath.Base(pdfPath), ErrEmpty)
	}
	return md.String(), nil
}
