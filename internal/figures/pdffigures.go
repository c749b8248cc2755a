// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package figures

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nayanlc19/journal-club-standalone/internal/cascade"
	"github.com/nayanlc19/journal-club-standalone/internal/container"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// PDFFigures runs AllenAI pdffigures2 on the JVM. It writes one JSON file
// per document under the data prefix and one image per figure under the
// image prefix.
type PDFFigures struct {
	runner  container.Runner
	java    string
	jar     string
	timeout time.Duration
}

// NewPDFFigures returns the pdffigures2 backend, disabled without a jar.
func NewPDFFigures(r container.Runner, cfg types.FiguresConfig) *PDFFigures {
	return &PDFFigures{runner: r, java: cfg.JavaBin, jar: cfg.PDFFiguresJar, timeout: cfg.PDFFiguresTimeout}
}

func (p *PDFFigures) Name() string           { return BackendPDFFigures }
func (p *PDFFigures) Timeout() time.Duration { return p.timeout }

func (p *PDFFigures) Execute(ctx context.Context, pdfPath string) (types.FigureSet, error) {
	if p.jar == "" {
		return types.FigureSet{}, fmt.Errorf("%w: no pdffigures2 jar configured", cascade.ErrDisabled)
	}
	if _, err := p.runner.LookPath(p.java); err != nil {
		return types.FigureSet{}, fmt.Errorf("%w: %s not found", cascade.ErrDisabled, p.java)
	}

	dir, err := os.MkdirTemp("", "pdffigures2-")
	if err != nil {
		return types.FigureSet{}, err
	}
	defer os.RemoveAll(dir)
	dataDir, imageDir := filepath.Join(dir, "data"), filepath.Join(dir, "images")
	for _, d := range []string{dataDir, imageDir} {
		if err := os.Mkdir(d, 0o755); err != nil {
			return types.FigureSet{}, err
		}
	}

	abs, err := filepath.Abs(pdfPath)
	if err != nil {
		return types.FigureSet{}, err
	}
	_, err = p.runner.Run(ctx, container.Command{
		Name: p.java,
		Args: []string{
			"-Dsun.java2d.cmm=sun.java2d.cmm.kcms.KcmsServiceProvider",
			"-jar", p.jar, abs,
			"-m", imageDir + string(filepath.Separator),
			"-d", dataDir + string(filepath.Separator),
			"-g",
		},
	})
	if err != nil {
		return types.FigureSet{}, fmt.Errorf("pdffigures2: %w", err)
	}

	outputs, _ := filepath.Glob(filepath.Join(dataDir, "*.json"))
	if len(outputs) == 0 {
		return types.FigureSet{}, errors.New("pdffigures2 wrote no JSON output")
	}
	data, err := os.ReadFile(outputs[0])
	if err != nil {
		return types.FigureSet{}, err
	}
	found, err := parsePDFFigures(data)
	if err != nil {
		return types.FigureSet{}, err
	}

	figs := make([]types.Figure, 0, len(found))
	for _, f := range found {
		figs = append(figs, f.figure(imageDir))
	}
	sort.SliceStable(figs, func(i, j int) bool { return figs[i].Page < figs[j].Page })
	return types.FigureSet{Figures: figs}, nil
}

type pfBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

type pfCaption struct {
	Text string `json:"text"`
}

type pfFigure struct {
	Caption         string     `json:"caption"`
	CaptionBoundary *pfCaption `json:"captionBoundary"`
	FigType         string     `json:"figType"`
	Name            string     `json:"name"`
	Page            int        `json:"page"`
	RegionBoundary  *pfBox     `json:"regionBoundary"`
	RenderURL       string     `json:"renderURL"`
}

// parsePDFFigures accepts both output shapes: a bare figure array, and the
// full-text document object (-g) with a figures field.
func parsePDFFigures(data []byte) ([]pfFigure, error) {
	data = bytes.TrimSpace(data)
	if bytes.HasPrefix(data, []byte("[")) {
		var figs []pfFigure
		if err := json.Unmarshal(data, &figs); err != nil {
			return nil, fmt.Errorf("decoding pdffigures2 output: %w", err)
		}
		return figs, nil
	}
	var doc struct {
		Figures []pfFigure `json:"figures"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding pdffigures2 output: %w", err)
	}
	return doc.Figures, nil
}

func (f pfFigure) figure(imageDir string) types.Figure {
	out := types.Figure{
		Type:    types.FigureFigure,
		Name:    f.Name,
		Page:    f.Page + 1,
		Caption: strings.TrimSpace(f.Caption),
	}
	if strings.EqualFold(f.FigType, "table") {
		out.Type = types.FigureTable
	}
	if out.Caption == "" && f.CaptionBoundary != nil {
		out.Caption = strings.TrimSpace(f.CaptionBoundary.Text)
	}
	if b := f.RegionBoundary; b != nil {
		out.BBox = &types.BBox{X1: b.X1, Y1: b.Y1, X2: b.X2, Y2: b.Y2}
	}
	if f.RenderURL != "" {
		// renderURL is absolute when pdffigures2 ran on this host; fall back
		// to the file name inside the image directory.
		for _, candidate := range []string{f.RenderURL, filepath.Join(imageDir, filepath.Base(f.RenderURL))} {
			if img, err := os.ReadFile(candidate); err == nil {
				out.Image = img
				break
			}
		}
	}
	return out
}
