// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package figures

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nayanlc19/journal-club-standalone/internal/cascade"
	"github.com/nayanlc19/journal-club-standalone/internal/container"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// pageInName finds a page number in OCR image file names such as
// "paper_page_3_img_1.png".
var pageInName = regexp.MustCompile(`(?i)page[_-]?(\d+)`)

// Chandra runs the chandra OCR CLI, which writes a markdown rendering of the
// document plus one image file per detected figure into an output directory.
type Chandra struct {
	runner  container.Runner
	bin     string
	timeout time.Duration
}

// NewChandra returns the chandra backend, disabled without a binary.
func NewChandra(r container.Runner, cfg types.FiguresConfig) *Chandra {
	return &Chandra{runner: r, bin: cfg.ChandraBin, timeout: cfg.ChandraTimeout}
}

func (c *Chandra) Name() string           { return BackendChandra }
func (c *Chandra) Timeout() time.Duration { return c.timeout }

func (c *Chandra) Execute(ctx context.Context, pdfPath string) (types.FigureSet, error) {
	if c.bin == "" {
		return types.FigureSet{}, fmt.Errorf("%w: no chandra binary configured", cascade.ErrDisabled)
	}
	if _, err := c.runner.LookPath(c.bin); err != nil {
		return types.FigureSet{}, fmt.Errorf("%w: %s not found", cascade.ErrDisabled, c.bin)
	}

	dir, err := os.MkdirTemp("", "chandra-")
	if err != nil {
		return types.FigureSet{}, err
	}
	defer os.RemoveAll(dir)

	if _, err := c.runner.Run(ctx, container.Command{
		Name: c.bin,
		Args: []string{pdfPath, dir, "--method", "hf"},
	}); err != nil {
		return types.FigureSet{}, fmt.Errorf("chandra: %w", err)
	}

	var images, markdown []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".png", ".jpg", ".jpeg":
			images = append(images, path)
		case ".md":
			markdown = append(markdown, path)
		}
		return nil
	})
	if err != nil {
		return types.FigureSet{}, err
	}
	if len(markdown) == 0 {
		return types.FigureSet{}, errors.New("chandra wrote no markdown output")
	}
	sort.Strings(images)

	captions := map[string]string{}
	for _, md := range markdown {
		if data, err := os.ReadFile(md); err == nil {
			for name, caption := range imageCaptions(data) {
				captions[name] = caption
			}
		}
	}

	var figs []types.Figure
	for i, path := range images {
		img, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		name := filepath.Base(path)
		f := types.Figure{Type: types.FigureFigure, Name: strconv.Itoa(i + 1), Caption: captions[name], Image: img}
		if m := pageInName.FindStringSubmatch(name); m != nil {
			f.Page, _ = strconv.Atoi(m[1])
		}
		if label, ok := parseCaption(f.Caption); ok {
			f.Type, f.Name = label.typ, label.name
		}
		figs = append(figs, f)
	}
	return types.FigureSet{Figures: figs}, nil
}

// markdownImage matches ![alt](target) image references.
var markdownImage = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)[^)]*\)`)

// imageCaptions maps image file names to the caption line that follows
// their markdown reference, when that line is a figure or table caption.
func imageCaptions(md []byte) map[string]string {
	out := map[string]string{}
	var pending []string
	sc := bufio.NewScanner(bytes.NewReader(md))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if refs := markdownImage.FindAllStringSubmatch(line, -1); refs != nil {
			pending = pending[:0]
			for _, r := range refs {
				pending = append(pending, filepath.Base(r[1]))
			}
			continue
		}
		if len(pending) > 0 {
			if _, ok := parseCaption(strings.TrimLeft(line, "*_ ")); ok {
				for _, name := range pending {
					out[name] = strings.Trim(line, "*_ ")
				}
			}
			pending = pending[:0]
		}
	}
	return out
}
