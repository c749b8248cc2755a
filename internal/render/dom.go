// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// DOM loads the fetched markup into a headless Chrome tab, waits for client
// scripts to hydrate it and reads the materialized tree back. Each call
// starts and tears down its own browser.
type DOM struct {
	settle    time.Duration
	timeout   time.Duration
	allocOpts []chromedp.ExecAllocatorOption
}

// NewDOM returns the DOM emulation backend.
func NewDOM(cfg types.RenderConfig) *DOM {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	return &DOM{settle: cfg.SettleWindow, timeout: cfg.Timeout, allocOpts: opts}
}

func (d *DOM) Name() string           { return BackendDOM }
func (d *DOM) Timeout() time.Duration { return d.timeout }

func (d *DOM) Execute(ctx context.Context, p Page) ([]byte, error) {
	if len(p.Markup) == 0 {
		return nil, errors.New("no markup to hydrate")
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, d.allocOpts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var out string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("frame tree: %w", err)
			}
			return page.SetDocumentContent(tree.Frame.ID, string(withBase(p.Markup, p.URL))).Do(ctx)
		}),
		chromedp.Sleep(d.settle),
		chromedp.OuterHTML("html", &out, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp run: %w", err)
	}
	return []byte(out), nil
}

// withBase inserts a <base> element so relative script and API paths in the
// markup resolve against the page's origin instead of about:blank.
func withBase(markup []byte, pageURL string) []byte {
	if pageURL == "" || bytes.Contains(bytes.ToLower(markup), []byte("<base ")) {
		return markup
	}
	tag := []byte(`<base href="` + html.EscapeString(pageURL) + `">`)

	lower := bytes.ToLower(markup)
	i := bytes.Index(lower, []byte("<head>"))
	if i < 0 {
		i = bytes.Index(lower, []byte("<head "))
	}
	if i >= 0 {
		if j := bytes.IndexByte(markup[i:], '>'); j >= 0 {
			at := i + j + 1
			out := make([]byte, 0, len(markup)+len(tag))
			out = append(out, markup[:at]...)
			out = append(out, tag...)
			return append(out, markup[at:]...)
		}
	}
	return append(tag, markup...)
}
