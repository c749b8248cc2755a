// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate scores candidate content against the expected
// bibliographic record of the requested paper. It is applied only to
// candidates of untrusted provenance (mirrors, web search).
package validate

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

const (
	defaultWindow     = 5000
	defaultMinOverlap = 0.5
	minTitleWordLen   = 4
	minSurnameLen     = 3
)

// Result is computed fresh for every candidate.
type Result struct {
	Accepted     bool    `json:"accepted" yaml:"accepted"`
	TitleOverlap float64 `json:"title_overlap" yaml:"title_overlap"`
	AuthorHit    bool    `json:"author_hit" yaml:"author_hit"`

	// Unverified is set when no expected record was available and the
	// candidate was accepted without a check.
	Unverified bool `json:"unverified,omitempty" yaml:"unverified,omitempty"`
}

// MismatchError reports a rejected candidate.
type MismatchError struct {
	Result Result
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("content does not match expected paper (title overlap %.2f, author hit %v)",
		e.Result.TitleOverlap, e.Result.AuthorHit)
}

// Validator checks candidates against expected metadata.
type Validator struct {
	window     int
	minOverlap float64
}

// New returns a Validator using cfg, with zero values replaced by defaults.
func New(cfg types.ValidationConfig) *Validator {
	v := &Validator{window: cfg.WindowBytes, minOverlap: cfg.MinTitleOverlap}
	if v.window <= 0 {
		v.window = defaultWindow
	}
	if v.minOverlap <= 0 {
		v.minOverlap = defaultMinOverlap
	}
	return v
}

// Validate scores content. A nil expected record means the bibliographic
// lookup failed; the candidate is then accepted unverified.
func (v *Validator) Validate(c types.Content, expected *types.Metadata) Result {
	words := titleWords(expectedTitle(expected))
	surnames := longSurnames(expected)
	if expected == nil || (len(words) == 0 && len(surnames) == 0) {
		return Result{Accepted: true, Unverified: true}
	}

	text := strings.ToLower(v.Window(c))

	var res Result
	if len(words) > 0 {
		hits := 0
		for _, w := range words {
			if strings.Contains(text, w) {
				hits++
			}
		}
		res.TitleOverlap = float64(hits) / float64(len(words))
	}
	for _, s := range surnames {
		if strings.Contains(text, s) {
			res.AuthorHit = true
			break
		}
	}
	res.Accepted = res.TitleOverlap >= v.minOverlap || res.AuthorHit
	return res
}

// Verify is Validate returning a *MismatchError for rejected candidates.
func (v *Validator) Verify(c types.Content, expected *types.Metadata) error {
	res := v.Validate(c, expected)
	if !res.Accepted {
		return &MismatchError{Result: res}
	}
	return nil
}

// Window returns the leading text of the content, bounded to the window size.
func (v *Validator) Window(c types.Content) string {
	var text string
	switch c.Kind {
	case types.KindPDF:
		text = pdfText(c.Data, v.window)
	default:
		text = htmlText(c.Data)
	}
	return truncate(text, v.window)
}

func expectedTitle(m *types.Metadata) string {
	if m == nil {
		return ""
	}
	return m.Title
}

// titleWords splits a title into distinct lowercase words of at least four runes.
func titleWords(title string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if utf8.RuneCountInString(w) < minTitleWordLen || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

func longSurnames(m *types.Metadata) []string {
	var out []string
	for _, s := range m.Surnames() {
		if utf8.RuneCountInString(s) >= minSurnameLen {
			out = append(out, s)
		}
	}
	return out
}

// pdfText reads page text until limit bytes are collected. Unparseable PDFs
// fall back to printable runs of the raw bytes.
func pdfText(data []byte, limit int) (text string) {
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if recover() != nil {
			text = printable(data, limit*4)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return printable(data, limit*4)
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage() && b.Len() < limit; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(s)
		b.WriteByte(' ')
	}
	if b.Len() == 0 {
		return printable(data, limit*4)
	}
	return b.String()
}

// htmlText returns citation metadata and visible body text of a page.
func htmlText(data []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return string(data)
	}
	var b strings.Builder
	doc.Find(`meta[name="citation_title"], meta[name="citation_author"], meta[name="dc.title"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok {
			b.WriteString(v)
			b.WriteByte(' ')
		}
	})
	b.WriteString(doc.Find("title").First().Text())
	b.WriteByte(' ')
	doc.Find("script, style, noscript").Remove()
	b.WriteString(strings.Join(strings.Fields(doc.Find("body").Text()), " "))
	return b.String()
}

func printable(data []byte, limit int) string {
	if len(data) > limit {
		data = data[:limit]
	}
	var b strings.Builder
	for _, c := range data {
		switch {
		case c >= 0x20 && c < 0x7f:
			b.WriteByte(c)
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return strings.ToValidUTF8(s[:limit], "")
}
