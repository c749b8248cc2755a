// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nayanlc19/journal-club-standalone/internal/httputil"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

var (
	// ErrNotPDF is returned when a URL expected to serve a PDF serves something else.
	ErrNotPDF = errors.New("response is not a PDF")

	// ErrTooLarge is returned when a download exceeds the configured size cap.
	ErrTooLarge = errors.New("download exceeds size limit")

	// ErrNoFullText is returned when a source knows the work but has no full text.
	ErrNoFullText = errors.New("no full text available")
)

const (
	acceptPDF  = "application/pdf,*/*;q=0.8"
	acceptHTML = "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8"

	// maxHTMLBytes caps landing pages and API responses.
	maxHTMLBytes = 10 << 20
)

// onclickURL extracts the target of buttons like
// onclick="location.href='//mirror.example/downloads/paper.pdf'".
var onclickURL = regexp.MustCompile(`location\.href\s*=\s*['"]([^'"]+)['"]`)

// IsPDF reports whether data starts with the PDF magic bytes. Some servers
// prepend whitespace or a BOM, so the first kilobyte is searched.
func IsPDF(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, []byte("%PDF-"))
}

// fetcher performs the HTTP work shared by every source strategy. It holds
// only immutable configuration and goroutine-safe collaborators.
type fetcher struct {
	client  *http.Client
	cfg     types.AcquisitionConfig
	limiter *httputil.HostLimiter
}

// page is a fetched HTTP body with the final URL after redirects.
type page struct {
	URL         string
	ContentType string
	Body        []byte
}

func (p page) isPDF() bool { return IsPDF(p.Body) }

// get issues a paced GET and returns the body, bounded by limit bytes.
func (f *fetcher) get(ctx context.Context, rawURL, accept string, limit int64, header http.Header) (page, error) {
	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return page{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return page{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", accept)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := httputil.DoWithRetry(ctx, f.client, req, f.cfg.MaxRetries)
	if err != nil {
		return page{}, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return page{}, fmt.Errorf("HTTP %d from %s", resp.StatusCode, redact(rawURL))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return page{}, fmt.Errorf("reading response: %w", err)
	}
	if int64(len(body)) > limit {
		return page{}, fmt.Errorf("%w: more than %d bytes from %s", ErrTooLarge, limit, redact(rawURL))
	}

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return page{URL: final, ContentType: resp.Header.Get("Content-Type"), Body: body}, nil
}

// getJSON fetches an API endpoint and decodes the response into v.
func (f *fetcher) getJSON(ctx context.Context, api, rawURL string, header http.Header, v any) error {
	p, err := f.get(ctx, rawURL, "application/json", maxHTMLBytes, header)
	if err != nil {
		return fmt.Errorf("%s API request: %w", api, err)
	}
	if err := json.Unmarshal(p.Body, v); err != nil {
		return fmt.Errorf("parsing %s response: %w", api, err)
	}
	return nil
}

// fetchPDF downloads rawURL and returns it as PDF content named source.
func (f *fetcher) fetchPDF(ctx context.Context, source, rawURL string) (types.Content, error) {
	p, err := f.get(ctx, rawURL, acceptPDF, f.maxPDF(), nil)
	if err != nil {
		return types.Content{}, err
	}
	if !p.isPDF() {
		return types.Content{}, fmt.Errorf("%w: %s served %q", ErrNotPDF, redact(p.URL), p.ContentType)
	}
	return types.Content{Kind: types.KindPDF, Data: p.Body, Source: source, URL: p.URL}, nil
}

// fetchFirstPDF tries candidate URLs in order and returns the first PDF.
func (f *fetcher) fetchFirstPDF(ctx context.Context, source string, candidates []string) (types.Content, error) {
	var errs []error
	for _, u := range dedupe(candidates) {
		if ctx.Err() != nil {
			return types.Content{}, ctx.Err()
		}
		c, err := f.fetchPDF(ctx, source, u)
		if err == nil {
			return c, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return types.Content{}, ErrNoFullText
	}
	return types.Content{}, errors.Join(errs...)
}

func (f *fetcher) maxPDF() int64 {
	if f.cfg.MaxPDFBytes > 0 {
		return f.cfg.MaxPDFBytes
	}
	return 50 << 20
}

// pdfLinks returns candidate PDF URLs on an HTML page, resolved against base,
// strongest signal first.
func pdfLinks(body []byte, base string) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	baseURL, _ := url.Parse(base)

	var out []string
	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "javascript:") || strings.HasPrefix(raw, "#") {
			return
		}
		if i := strings.IndexByte(raw, '#'); i > 0 {
			raw = raw[:i]
		}
		ref, err := url.Parse(raw)
		if err != nil {
			return
		}
		if baseURL != nil {
			ref = baseURL.ResolveReference(ref)
		}
		if ref.Scheme != "http" && ref.Scheme != "https" {
			return
		}
		out = append(out, ref.String())
	}

	doc.Find(`meta[name="citation_pdf_url"]`).Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("content", ""))
	})
	doc.Find(`embed[type="application/pdf"], embed#pdf, iframe#pdf, #pdf embed, #pdf iframe`).Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("src", ""))
	})
	doc.Find(`button[onclick]`).Each(func(_ int, s *goquery.Selection) {
		if m := onclickURL.FindStringSubmatch(s.AttrOr("onclick", "")); m != nil {
			add(m[1])
		}
	})
	doc.Find(`a[href]`).Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		lower := strings.ToLower(href)
		if strings.HasSuffix(lower, ".pdf") || strings.Contains(lower, "/pdf/") || strings.HasSuffix(lower, "/pdf") ||
			strings.Contains(strings.ToLower(s.Text()), "download pdf") {
			add(href)
		}
	})
	return dedupe(out)
}

// redact drops query strings so API keys and emails stay out of error text.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0:0]
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
