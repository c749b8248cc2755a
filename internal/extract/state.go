// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/json"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// stateAssignments are global variables server-rendered apps assign their
// serialized store to.
var stateAssignments = []string{
	"window.__INITIAL_STATE__",
	"window.__PRELOADED_STATE__",
	"window.__NUXT__",
}

// Field names recognized on an article object, in preference order.
var (
	titleKeys    = []string{"title", "headline", "articleTitle"}
	authorKeys   = []string{"authors", "author", "contributors"}
	abstractKeys = []string{"abstract", "abstractHtml", "description"}
	bodyKeys     = []string{"html", "bodyHtml", "body", "fullText", "articleBody", "content"}
)

// maxStateDepth bounds the walk over deeply nested stores.
const maxStateDepth = 48

// StateStage reconstructs article text from an embedded application-state
// blob: Next.js __NEXT_DATA__, window state assignments, or JSON-LD.
type StateStage struct{}

func (StateStage) Name() string { return StageState }

func (StateStage) Extract(markup []byte) (string, error) {
	doc, err := parse(markup)
	if err != nil {
		return "", err
	}

	var best *stateArticle
	for _, blob := range stateBlobs(doc) {
		if a := findArticle(blob, 0); a != nil && (best == nil || len(a.body) > len(best.body)) {
			best = a
		}
	}
	if best == nil {
		return "", ErrNotFound
	}
	return best.render(), nil
}

// stateBlobs decodes every serialized state document on the page.
func stateBlobs(doc *goquery.Document) []any {
	var blobs []any
	decode := func(src string) {
		var v any
		if err := json.NewDecoder(strings.NewReader(src)).Decode(&v); err == nil {
			blobs = append(blobs, v)
		}
	}

	doc.Find(`script#__NEXT_DATA__, script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		decode(s.Text())
	})
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		src := s.Text()
		for _, name := range stateAssignments {
			i := strings.Index(src, name)
			if i < 0 {
				continue
			}
			rest := strings.TrimLeft(src[i+len(name):], " \t\r\n")
			if !strings.HasPrefix(rest, "=") {
				continue
			}
			// The decoder stops after one value, so a trailing ";" is fine.
			decode(strings.TrimLeft(rest[1:], " \t\r\n"))
		}
	})
	return blobs
}

type stateArticle struct {
	title    string
	authors  []string
	abstract string
	body     string
}

// findArticle returns the object under v with the longest body field that
// also names a title or authors.
func findArticle(v any, depth int) *stateArticle {
	if depth > maxStateDepth {
		return nil
	}
	var best *stateArticle
	consider := func(a *stateArticle) {
		if a != nil && (best == nil || len(a.body) > len(best.body)) {
			best = a
		}
	}

	switch t := v.(type) {
	case map[string]any:
		if a := articleFrom(t); a != nil {
			consider(a)
		}
		for _, child := range t {
			consider(findArticle(child, depth+1))
		}
	case []any:
		for _, child := range t {
			consider(findArticle(child, depth+1))
		}
	}
	return best
}

func articleFrom(m map[string]any) *stateArticle {
	body := firstString(m, bodyKeys)
	if strings.TrimSpace(body) == "" {
		return nil
	}
	a := &stateArticle{
		title:    firstString(m, titleKeys),
		authors:  authorNames(m),
		abstract: firstString(m, abstractKeys),
		body:     body,
	}
	if a.title == "" && len(a.authors) == 0 {
		return nil
	}
	return a
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// authorNames accepts a list of strings, a list of objects carrying a name,
// or a single such object.
func authorNames(m map[string]any) []string {
	for _, k := range authorKeys {
		var items []any
		switch t := m[k].(type) {
		case []any:
			items = t
		case map[string]any, string:
			items = []any{t}
		default:
			continue
		}
		var names []string
		for _, it := range items {
			if n := authorName(it); n != "" {
				names = append(names, n)
			}
		}
		if len(names) > 0 {
			return names
		}
	}
	return nil
}

// authorName reads a raw JSON string, which may still carry HTML entities.
func authorName(v any) string {
	switch t := v.(type) {
	case string:
		return collapse(html.UnescapeString(t))
	case map[string]any:
		if n := firstString(t, []string{"name", "fullName", "displayName"}); n != "" {
			return collapse(html.UnescapeString(n))
		}
		given := firstString(t, []string{"givenName", "given", "firstName"})
		family := firstString(t, []string{"familyName", "family", "lastName", "surname"})
		return collapse(html.UnescapeString(given + " " + family))
	}
	return ""
}

// render lays out title, authors, abstract and body as plain text blocks.
// Body and abstract may be HTML or plain text.
func (a *stateArticle) render() string {
	var parts []string
	if a.title != "" {
		parts = append(parts, htmlText(a.title))
	}
	if len(a.authors) > 0 {
		parts = append(parts, strings.Join(a.authors, ", "))
	}
	if a.abstract != "" {
		parts = append(parts, "Abstract", htmlText(a.abstract))
	}
	parts = append(parts, htmlText(a.body))
	return strings.Join(parts, "\n\n")
}

func htmlText(fragment string) string {
	doc, err := parse([]byte(fragment))
	if err != nil {
		return collapse(html.UnescapeString(fragment))
	}
	doc.Find(chrome).Remove()
	return flatten(doc.Selection)
}
