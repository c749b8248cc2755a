// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package figures

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// captionLine matches a caption label at the start of a text row:
// "Table 2", "FIGURE 3b", "Fig. 1", "Table IV", "Figure S1".
var captionLine = regexp.MustCompile(`^(Table|TABLE|Figure|FIGURE|Fig\.)\s+(S\d+|\d+[A-Za-z]?|[IVX]+)(?:[.:|]|\s|$)`)

// maxCaptionRows bounds how many rows a caption may span.
const maxCaptionRows = 3

type captionLabel struct {
	typ  types.FigureType
	name string
}

func parseCaption(s string) (captionLabel, bool) {
	m := captionLine.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return captionLabel{}, false
	}
	l := captionLabel{typ: types.FigureFigure, name: m[2]}
	if strings.EqualFold(m[1], "table") {
		l.typ = types.FigureTable
	}
	return l, true
}

// Captions scans the PDF text layer for caption labels. It finds no
// geometry and no images, only the labelled elements and their captions,
// which still lets a presentation reference every table and figure.
type Captions struct {
	timeout time.Duration
}

// NewCaptions returns the in-process caption backend.
func NewCaptions(cfg types.FiguresConfig) *Captions {
	return &Captions{timeout: cfg.CaptionsTimeout}
}

func (c *Captions) Name() string           { return BackendCaptions }
func (c *Captions) Timeout() time.Duration { return c.timeout }

func (c *Captions) Execute(ctx context.Context, pdfPath string) (set types.FigureSet, err error) {
	// The PDF parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			set, err = types.FigureSet{}, fmt.Errorf("parsing %s: %v", pdfPath, r)
		}
	}()

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return types.FigureSet{}, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	seen := map[captionLabel]bool{}
	var figs []types.Figure
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return types.FigureSet{}, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, w := range row.Content {
				words = append(words, w.S)
			}
			lines = append(lines, strings.Join(strings.Fields(strings.Join(words, " ")), " "))
		}
		for _, fig := range scanCaptions(lines, i) {
			key := captionLabel{typ: fig.Type, name: fig.Name}
			if seen[key] {
				continue
			}
			seen[key] = true
			figs = append(figs, fig)
		}
	}
	return types.FigureSet{Figures: figs}, nil
}

// scanCaptions finds captions among a page's text rows. A caption runs from
// its label row until a sentence end, another label or maxCaptionRows rows.
func scanCaptions(lines []string, page int) []types.Figure {
	var out []types.Figure
	for i := 0; i < len(lines); i++ {
		l, ok := parseCaption(lines[i])
		if !ok {
			continue
		}
		caption, start := lines[i], i
		for j := start + 1; j < len(lines) && j < start+maxCaptionRows; j++ {
			if strings.HasSuffix(caption, ".") || lines[j] == "" {
				break
			}
			if _, next := parseCaption(lines[j]); next {
				break
			}
			caption += " " + lines[j]
			i = j
		}
		out = append(out, types.Figure{Type: l.typ, Name: l.name, Page: page, Caption: caption})
	}
	return out
}
