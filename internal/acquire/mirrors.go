// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/nayanlc19/journal-club-standalone/internal/cascade"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// maxSearchCandidates bounds how many result links the search strategy downloads.
const maxSearchCandidates = 3

// mirrorName labels a mirror strategy by host.
func mirrorName(base string) string {
	if u, err := url.Parse(base); err == nil && u.Host != "" {
		return "mirror:" + u.Host
	}
	return "mirror:" + base
}

// mirror fetches base/<doi> from a shadow-library mirror. The mirror either
// serves the PDF directly or an HTML page embedding it.
func (f *fetcher) mirror(base string) func(ctx context.Context, req Request) (types.Content, error) {
	name := mirrorName(base)
	return func(ctx context.Context, req Request) (types.Content, error) {
		target := strings.TrimRight(base, "/") + "/" + req.DOI
		p, err := f.get(ctx, target, acceptHTML, f.maxPDF(), nil)
		if err != nil {
			return types.Content{}, err
		}
		if p.isPDF() {
			return types.Content{Kind: types.KindPDF, Data: p.Body, Source: name, URL: p.URL}, nil
		}
		links := pdfLinks(p.Body, p.URL)
		if len(links) == 0 {
			return types.Content{}, fmt.Errorf("%s: no embedded PDF: %w", name, ErrNoFullText)
		}
		return f.fetchFirstPDF(ctx, name, links)
	}
}

// webSearch scrapes an HTML search endpoint for PDF links mentioning the DOI.
// Results are untrusted; the pipeline validates them.
func (f *fetcher) webSearch(ctx context.Context, req Request) (types.Content, error) {
	if f.cfg.SearchURL == "" {
		return types.Content{}, fmt.Errorf("web search needs acquisition.search_url: %w", cascade.ErrDisabled)
	}
	q := url.Values{}
	q.Set("q", fmt.Sprintf("%q filetype:pdf", req.DOI))
	searchURL := f.cfg.SearchURL
	if strings.Contains(searchURL, "?") {
		searchURL += "&" + q.Encode()
	} else {
		searchURL += "?" + q.Encode()
	}

	if err := f.limiter.Wait(ctx, searchURL); err != nil {
		return types.Content{}, err
	}
	links, err := f.collectLinks(ctx, searchURL)
	if err != nil {
		return types.Content{}, err
	}
	candidates := rankSearchLinks(links, req.DOI)
	if len(candidates) == 0 {
		return types.Content{}, fmt.Errorf("web search: no PDF results: %w", ErrNoFullText)
	}
	if len(candidates) > maxSearchCandidates {
		candidates = candidates[:maxSearchCandidates]
	}
	return f.fetchFirstPDF(ctx, "web-search", candidates)
}

// collectLinks visits pageURL with a colly collector and returns every
// absolute link on the page.
func (f *fetcher) collectLinks(ctx context.Context, pageURL string) ([]string, error) {
	c := colly.NewCollector(colly.UserAgent(f.cfg.UserAgent))
	// colly writes its request timeout into the client it is given, so it
	// gets a private copy sharing only the transport and cookie jar.
	c.SetClient(&http.Client{
		Transport:     f.client.Transport,
		Jar:           f.client.Jar,
		CheckRedirect: f.client.CheckRedirect,
		Timeout:       f.client.Timeout,
	})
	if deadline, ok := ctx.Deadline(); ok {
		c.SetRequestTimeout(time.Until(deadline))
	}

	var (
		links    []string
		fetchErr error
	)
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if abs := e.Request.AbsoluteURL(e.Attr("href")); abs != "" {
			links = append(links, abs)
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			err = fmt.Errorf("HTTP %d from search: %w", r.StatusCode, err)
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- c.Visit(pageURL)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("search scrape canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("search visit failed: %w", errors.Join(err, fetchErr))
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("search response failed: %w", fetchErr)
		}
		return links, nil
	}
}

// rankSearchLinks keeps PDF-looking links, those mentioning the DOI first.
// Search engines often wrap results as /url?q=<target>; the target is unwrapped.
func rankSearchLinks(links []string, doi string) []string {
	var withDOI, others []string
	lowerDOI := strings.ToLower(doi)
	for _, l := range links {
		if u, err := url.Parse(l); err == nil {
			if target := u.Query().Get("q"); strings.HasPrefix(target, "http") {
				l = target
			} else if target := u.Query().Get("uddg"); strings.HasPrefix(target, "http") {
				l = target
			}
		}
		lower := strings.ToLower(l)
		if !strings.Contains(lower, ".pdf") && !strings.Contains(lower, "/pdf") {
			continue
		}
		unescaped, _ := url.PathUnescape(lower)
		if strings.Contains(unescaped, lowerDOI) {
			withDOI = append(withDOI, l)
		} else {
			others = append(others, l)
		}
	}
	return dedupe(append(withDOI, others...))
}
