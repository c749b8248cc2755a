// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nayanlc19/journal-club-standalone/internal/extract"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

var (
	doiBase       = "https://doi.org/"
	pmcEFetchBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
)

// pageChrome is removed before counting article words.
const pageChrome = "script, style, nav, header, footer, aside, iframe, noscript"

// spaMarkers identify client-rendered application shells.
var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
	[]byte("ng-version"),
}

// doiRedirect follows doi.org to the publisher and probes the common PDF
// URL shapes derived from the landing page.
func (f *fetcher) doiRedirect(ctx context.Context, req Request) (types.Content, error) {
	p, err := f.get(ctx, doiBase+req.DOI, acceptHTML, f.maxPDF(), nil)
	if err != nil {
		return types.Content{}, err
	}
	if p.isPDF() {
		return types.Content{Kind: types.KindPDF, Data: p.Body, Source: "doi-redirect", URL: p.URL}, nil
	}

	landing := p.URL
	candidates := []string{
		strings.Replace(landing, "/full", "/pdf", 1),
		strings.Replace(landing, "/abstract", "/pdf", 1),
		strings.TrimRight(landing, "/") + ".pdf",
		strings.TrimRight(landing, "/") + "/pdf",
	}
	candidates = append(pdfLinks(p.Body, landing), candidates...)
	var out []string
	for _, c := range candidates {
		if c != landing {
			out = append(out, c)
		}
	}
	return f.fetchFirstPDF(ctx, "doi-redirect", out)
}

// pmcFullText pulls the PMC article XML through E-utilities and rebuilds it
// as a minimal HTML document without references, acknowledgments,
// footnotes or glossary.
func (f *fetcher) pmcFullText(ctx context.Context, req Request) (types.Content, error) {
	id, err := f.pmcID(ctx, req.DOI)
	if err != nil {
		return types.Content{}, err
	}
	target := fmt.Sprintf("%s?db=pmc&id=%s&rettype=xml&retmode=text", pmcEFetchBase, strings.TrimPrefix(id, "PMC"))
	p, err := f.get(ctx, target, "application/xml,text/xml", maxHTMLBytes, nil)
	if err != nil {
		return types.Content{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return types.Content{}, fmt.Errorf("parsing PMC XML: %w", err)
	}
	title := strings.TrimSpace(doc.Find("article-title").First().Text())
	doc.Find("ref-list, ack, fn-group, glossary").Remove()

	var paras []string
	doc.Find("title, p").Each(func(_ int, s *goquery.Selection) {
		if t := collapse(s.Text()); t != "" {
			paras = append(paras, t)
		}
	})
	if len(paras) == 0 {
		return types.Content{}, fmt.Errorf("PMC %s: %w", id, ErrNoFullText)
	}
	return types.Content{
		Kind:   types.KindHTML,
		Data:   articleHTML(title, paras),
		Source: "pmc-fulltext",
		URL:    pmcArticleBase + id + "/",
	}, nil
}

// publisherHTML accepts the publisher landing page when its article
// container carries at least MinHTMLWords words, or when the page is a
// client-rendered shell whose text only appears after rendering.
func (f *fetcher) publisherHTML(ctx context.Context, req Request) (types.Content, error) {
	return f.articlePage(ctx, "publisher-html", doiBase+req.DOI)
}

// directURL fetches a caller-supplied URL and keeps it as PDF or HTML.
func (f *fetcher) directURL(ctx context.Context, req Request) (types.Content, error) {
	p, err := f.get(ctx, req.URL, acceptHTML, f.maxPDF(), nil)
	if err != nil {
		return types.Content{}, err
	}
	if p.isPDF() {
		return types.Content{Kind: types.KindPDF, Data: p.Body, Source: "direct-url", URL: p.URL}, nil
	}
	if links := pdfLinks(p.Body, p.URL); len(links) > 0 {
		if c, err := f.fetchFirstPDF(ctx, "direct-url", links[:1]); err == nil {
			return c, nil
		}
	}
	return types.Content{Kind: types.KindHTML, Data: p.Body, Source: "direct-url", URL: p.URL}, nil
}

// urlArticle applies the publisher-html acceptance rule to a URL identifier.
func (f *fetcher) urlArticle(ctx context.Context, req Request) (types.Content, error) {
	return f.articlePage(ctx, "publisher-html", req.URL)
}

func (f *fetcher) articlePage(ctx context.Context, source, target string) (types.Content, error) {
	p, err := f.get(ctx, target, acceptHTML, maxHTMLBytes, nil)
	if err != nil {
		return types.Content{}, err
	}
	if p.isPDF() {
		return types.Content{Kind: types.KindPDF, Data: p.Body, Source: source, URL: p.URL}, nil
	}

	words := articleWords(p.Body)
	minWords := f.cfg.MinHTMLWords
	if minWords <= 0 {
		minWords = 800
	}
	if words < minWords && !scriptShell(p.Body) {
		return types.Content{}, fmt.Errorf("%s has %d words of article text, likely abstract only: %w", redact(p.URL), words, ErrNoFullText)
	}
	return types.Content{Kind: types.KindHTML, Data: p.Body, Source: source, URL: p.URL}, nil
}

// articleWords counts words in the first matching article container.
func articleWords(body []byte) int {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0
	}
	doc.Find(pageChrome).Remove()
	for _, sel := range extract.ContainerSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return len(strings.Fields(s.Text()))
		}
	}
	return 0
}

// scriptShell reports whether a page looks like a client-rendered app whose
// markup is mostly script.
func scriptShell(body []byte) bool {
	for _, m := range spaMarkers {
		if bytes.Contains(body, m) {
			return true
		}
	}
	return scriptCoverage(body) >= 25
}

// scriptCoverage returns the percentage of bytes inside <script> elements.
// An unclosed tag counts to the end of the document.
func scriptCoverage(body []byte) int {
	lower := bytes.ToLower(body)
	total := len(lower)
	if total == 0 {
		return 0
	}
	covered, pos := 0, 0
	for {
		rel := bytes.Index(lower[pos:], []byte("<script"))
		if rel < 0 {
			break
		}
		start := pos + rel
		end := bytes.Index(lower[start:], []byte("</script>"))
		if end < 0 {
			covered += total - start
			break
		}
		next := start + end + len("</script>")
		covered += next - start
		pos = next
	}
	return covered * 100 / total
}

// articleHTML wraps title and paragraphs in a minimal HTML document.
func articleHTML(title string, paras []string) []byte {
	if title == "" {
		title = "Research Article"
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"UTF-8\"><title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title></head>\n<body>\n<article>\n<h1>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</h1>\n")
	for _, p := range paras {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(p))
		b.WriteString("</p>\n")
	}
	b.WriteString("</article>\n</body>\n</html>\n")
	return []byte(b.String())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
