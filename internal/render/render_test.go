// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nayanlc19/journal-club-standalone/internal/cascade"
	"github.com/nayanlc19/journal-club-standalone/internal/container"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

func testConfig() types.RenderConfig {
	cfg := types.DefaultConfig().Render
	cfg.Timeout = 5 * time.Second
	cfg.SettleWindow = 10 * time.Millisecond
	return cfg
}

func staticBackend(name, markup string) Backend {
	return cascade.NewFunc(name, 0, func(context.Context, Page) ([]byte, error) {
		return []byte(markup), nil
	})
}

func bigMarkup() string {
	return "<html><body>" + strings.Repeat("<p>rendered paragraph</p>", 100) + "</body></html>"
}

// existingBinary creates a placeholder browser binary so no download happens.
func existingBinary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chrome-headless-shell")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func TestNeedsRendering(t *testing.T) {
	assert.True(t, NeedsRendering(""))
	assert.True(t, NeedsRendering(strings.Repeat("é", UsableChars-1)))
	assert.False(t, NeedsRendering(strings.Repeat("a", UsableChars)))
}

func TestRenderOffPlatformReturnsOriginal(t *testing.T) {
	cfg := testConfig()
	cfg.BrowserPath = existingBinary(t)
	browser := NewBrowser(http.DefaultClient, container.Func(func(context.Context, container.Command) ([]byte, error) {
		t.Error("browser must not run off its platform")
		return nil, nil
	}), cfg)
	browser.goos = "windows"

	original := []byte(`<html><body><div id="root"></div></body></html>`)
	e := New(cfg, WithBackends(
		staticBackend(BackendDOM, "<html><body>still empty</body></html>"),
		NewCloud(http.DefaultClient, cfg),
		browser,
	))

	res := e.Render(context.Background(), Page{URL: "https://journal.example/article/1", Markup: original})
	assert.False(t, res.Rendered)
	assert.Equal(t, original, res.Markup)
	assert.Empty(t, res.Backend)

	require.Len(t, res.Attempts, 3)
	assert.Equal(t, cascade.StatusRejected, res.Attempts[0].Status)
	assert.Equal(t, cascade.StatusSkipped, res.Attempts[1].Status)
	assert.Equal(t, cascade.StatusSkipped, res.Attempts[2].Status)
	assert.ErrorIs(t, res.Attempts[2].Err, cascade.ErrDisabled)
}

func TestRenderOnPlatformFallsThroughToBrowser(t *testing.T) {
	cfg := testConfig()
	cfg.BrowserPath = existingBinary(t)

	var got container.Command
	browser := NewBrowser(http.DefaultClient, container.Func(func(_ context.Context, cmd container.Command) ([]byte, error) {
		got = cmd
		return []byte(bigMarkup()), nil
	}), cfg)
	browser.goos = cfg.BrowserPlatform

	e := New(cfg, WithBackends(
		staticBackend(BackendDOM, "<html></html>"),
		NewCloud(http.DefaultClient, cfg),
		browser,
	))
	res := e.Render(context.Background(), Page{URL: "https://journal.example/article/1", Markup: []byte("<html></html>")})

	require.True(t, res.Rendered)
	assert.Equal(t, BackendBrowser, res.Backend)
	assert.Equal(t, bigMarkup(), string(res.Markup))
	assert.Equal(t, cfg.BrowserPath, got.Name)
	assert.Contains(t, got.Args, "--dump-dom")
	assert.Equal(t, "https://journal.example/article/1", got.Args[len(got.Args)-1])
}

func TestRenderFirstSufficientBackendWins(t *testing.T) {
	var later atomic.Int32
	e := New(testConfig(), WithBackends(
		staticBackend(BackendDOM, bigMarkup()),
		cascade.NewFunc(BackendCloud, 0, func(context.Context, Page) ([]byte, error) {
			later.Add(1)
			return nil, nil
		}),
	))
	res := e.Render(context.Background(), Page{Markup: []byte("<html></html>")})
	assert.True(t, res.Rendered)
	assert.Equal(t, BackendDOM, res.Backend)
	assert.Zero(t, later.Load())
}

func TestDefaultBackendOrder(t *testing.T) {
	assert.Equal(t, []string{BackendDOM, BackendCloud, BackendBrowser}, New(types.RenderConfig{}).Backends())
}

func TestCloud(t *testing.T) {
	var (
		gotToken string
		gotBody  cloudRequest
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.URL.Query().Get("token")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, bigMarkup())
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.CloudURL = ts.URL + "/content"
	cfg.CloudToken = "secret-token"
	out, err := NewCloud(ts.Client(), cfg).Execute(context.Background(), Page{URL: "https://journal.example/a", Markup: []byte("<html></html>")})
	require.NoError(t, err)
	assert.Equal(t, bigMarkup(), string(out))
	assert.Equal(t, "secret-token", gotToken)
	assert.Equal(t, "https://journal.example/a", gotBody.URL)
	assert.Empty(t, gotBody.HTML)
}

func TestCloudSendsMarkupWithoutURL(t *testing.T) {
	var gotBody cloudRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream timeout")
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.CloudURL = ts.URL
	cfg.CloudToken = "t"
	_, err := NewCloud(ts.Client(), cfg).Execute(context.Background(), Page{Markup: []byte("<p>upload</p>")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, "<p>upload</p>", gotBody.HTML)
}

func TestCloudDisabledWithoutToken(t *testing.T) {
	_, err := NewCloud(http.DefaultClient, testConfig()).Execute(context.Background(), Page{URL: "https://x.example"})
	assert.ErrorIs(t, err, cascade.ErrDisabled)
}

func TestBrowserDownloadsOnce(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(20 * time.Millisecond)
		fmt.Fprint(w, "#!/bin/sh\necho browser\n")
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.BrowserPath = filepath.Join(t.TempDir(), "bin", "chrome-headless-shell")
	cfg.BrowserURL = ts.URL + "/chrome"
	b := NewBrowser(ts.Client(), container.Func(func(context.Context, container.Command) ([]byte, error) {
		return []byte(bigMarkup()), nil
	}), cfg)
	b.goos = cfg.BrowserPlatform

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Execute(context.Background(), Page{URL: "https://journal.example/a"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	info, err := os.Stat(cfg.BrowserPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestBrowserDownloadSurvivesFirstCallerCancel(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, "#!/bin/sh\n")
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.BrowserPath = filepath.Join(t.TempDir(), "chrome-headless-shell")
	cfg.BrowserURL = ts.URL + "/chrome"
	b := NewBrowser(ts.Client(), container.Func(func(context.Context, container.Command) ([]byte, error) {
		return []byte(bigMarkup()), nil
	}), cfg)
	b.goos = cfg.BrowserPlatform

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	first := make(chan error, 1)
	go func() {
		_, err := b.Execute(short, Page{URL: "https://journal.example/a"})
		first <- err
	}()

	<-started
	out, err := b.Execute(context.Background(), Page{URL: "https://journal.example/b"})
	require.NoError(t, err)
	assert.Equal(t, bigMarkup(), string(out))
	assert.ErrorIs(t, <-first, context.DeadlineExceeded)

	_, err = os.Stat(cfg.BrowserPath)
	assert.NoError(t, err)
}

func TestBrowserStagesMarkupWithoutURL(t *testing.T) {
	cfg := testConfig()
	cfg.BrowserPath = existingBinary(t)
	var staged string
	b := NewBrowser(http.DefaultClient, container.Func(func(_ context.Context, cmd container.Command) ([]byte, error) {
		staged = strings.TrimPrefix(cmd.Args[len(cmd.Args)-1], "file://")
		data, err := os.ReadFile(staged)
		return data, err
	}), cfg)
	b.goos = cfg.BrowserPlatform

	out, err := b.Execute(context.Background(), Page{Markup: []byte("<p>uploaded</p>")})
	require.NoError(t, err)
	assert.Equal(t, "<p>uploaded</p>", string(out))
	_, err = os.Stat(staged)
	assert.True(t, os.IsNotExist(err), "staged markup must be removed")
}

func TestBrowserWithoutDownloadURL(t *testing.T) {
	cfg := testConfig()
	cfg.BrowserPath = filepath.Join(t.TempDir(), "missing")
	cfg.BrowserURL = ""
	b := NewBrowser(http.DefaultClient, container.Host{}, cfg)
	b.goos = cfg.BrowserPlatform
	_, err := b.Execute(context.Background(), Page{URL: "https://x.example"})
	assert.ErrorIs(t, err, cascade.ErrDisabled)
}

func TestDOMWithoutMarkup(t *testing.T) {
	_, err := NewDOM(testConfig()).Execute(context.Background(), Page{URL: "https://x.example"})
	assert.Error(t, err)
}

func TestWithBase(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		url    string
		want   string
	}{
		{"after head", `<html><head><title>x</title></head></html>`, "https://j.example/a?b=1&c=2", `<html><head><base href="https://j.example/a?b=1&amp;c=2"><title>x</title></head></html>`},
		{"no head", `<div>x</div>`, "https://j.example/", `<base href="https://j.example/"><div>x</div>`},
		{"existing base", `<head><base href="/"></head>`, "https://j.example/", `<head><base href="/"></head>`},
		{"no url", `<div>x</div>`, "", `<div>x</div>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(withBase([]byte(tt.markup), tt.url)))
		})
	}
}
