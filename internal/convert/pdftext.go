// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// spaceRun collapses horizontal whitespace left by the text layer.
var spaceRun = regexp.MustCompile(`[ \t]+`)

// TextConverter reads the PDF text layer in process. It needs no external
// tools but loses layout, and scanned PDFs yield nothing.
type TextConverter struct{}

func (TextConverter) Name() string { return "pdftext" }

func (TextConverter) Convert(ctx context.Context, pdfPath string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parsing %s: %v", pdfPath, r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	content, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	var b strings.Builder
	if _, err := io.Copy(&b, content); err != nil {
		return "", err
	}
	lines := strings.Split(b.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(l, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
