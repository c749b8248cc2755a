// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	goruntime "runtime"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nayanlc19/journal-club-standalone/internal/cascade"
	"github.com/nayanlc19/journal-club-standalone/internal/container"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// Browser runs a local headless browser binary in DOM dump mode. The binary
// is gated to one platform and downloaded on first use; concurrent first
// uses share a single download.
type Browser struct {
	client   *http.Client
	runner   container.Runner
	path     string
	url      string
	platform string
	goos     string
	timeout  time.Duration
	dlWait   time.Duration

	download singleflight.Group
}

// NewBrowser returns the local browser backend.
func NewBrowser(client *http.Client, runner container.Runner, cfg types.RenderConfig) *Browser {
	return &Browser{
		client:   client,
		runner:   runner,
		path:     cfg.BrowserPath,
		url:      cfg.BrowserURL,
		platform: cfg.BrowserPlatform,
		goos:     goruntime.GOOS,
		timeout:  cfg.Timeout,
		dlWait:   cfg.DownloadTimeout,
	}
}

func (b *Browser) Name() string           { return BackendBrowser }
func (b *Browser) Timeout() time.Duration { return b.timeout }

func (b *Browser) Execute(ctx context.Context, p Page) ([]byte, error) {
	if b.goos != b.platform {
		return nil, fmt.Errorf("%w: browser binary is %s-only, host is %s", cascade.ErrDisabled, b.platform, b.goos)
	}
	if b.path == "" {
		return nil, fmt.Errorf("%w: no browser path configured", cascade.ErrDisabled)
	}

	bin, err := b.ensure(ctx)
	if err != nil {
		return nil, err
	}

	target := p.URL
	if target == "" {
		staged, cleanup, err := stageMarkup(p.Markup)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		target = "file://" + staged
	}

	out, err := b.runner.Run(ctx, container.Command{
		Name: bin,
		Args: []string{"--headless", "--disable-gpu", "--no-sandbox", "--dump-dom", target},
	})
	if err != nil {
		return nil, fmt.Errorf("dump-dom: %w", err)
	}
	return out, nil
}

// ensure returns the binary path, downloading it when missing.
func (b *Browser) ensure(ctx context.Context) (string, error) {
	if info, err := os.Stat(b.path); err == nil && !info.IsDir() {
		return b.path, nil
	}
	if b.url == "" {
		return "", fmt.Errorf("%w: %s missing and no download URL configured", cascade.ErrDisabled, b.path)
	}

	// The shared download outlives any single caller; each caller abandons
	// only its own wait.
	ch := b.download.DoChan(b.path, func() (any, error) {
		if _, err := os.Stat(b.path); err == nil {
			return b.path, nil
		}
		dctx := context.WithoutCancel(ctx)
		if b.dlWait > 0 {
			var cancel context.CancelFunc
			dctx, cancel = context.WithTimeout(dctx, b.dlWait)
			defer cancel()
		}
		return b.path, b.fetch(dctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// fetch downloads the binary next to its final path, marks it executable
// and renames it into place.
func (b *Browser) fetch(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("creating browser directory: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url, nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading browser: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading browser: HTTP %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".browser-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("writing browser: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o755); err != nil {
		return fmt.Errorf("marking browser executable: %w", err)
	}
	return os.Rename(tmp.Name(), b.path)
}

// stageMarkup writes markup to a temp file for file:// rendering.
func stageMarkup(markup []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "render-*.html")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.Remove(f.Name()) }
	if _, err := f.Write(markup); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("staging markup: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}
