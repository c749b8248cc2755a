// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// chrome is page furniture that never carries article text.
const chrome = "script, style, noscript, template, iframe, svg, button, nav, header, footer, form, aside"

// blockSelector matches the elements rendered as separate text blocks.
const blockSelector = "h1, h2, h3, h4, h5, h6, p, li, blockquote, pre, figcaption, td"

// blockRules filters blocks by minimum length. Zero keeps every non-empty block.
type blockRules struct {
	paragraph int
	listItem  int
	headings  bool
}

// keepAll renders every non-empty block, headings included.
var keepAll = blockRules{headings: true}

func parse(markup []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(markup))
}

// renderBlocks flattens sel into headings, paragraphs and list items in
// document order, one block per line group. Nested blocks are emitted once,
// by their innermost element.
func renderBlocks(sel *goquery.Selection, rules blockRules) string {
	var b strings.Builder
	sel.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		if s.Find(blockSelector).Length() > 0 && !isHeading(s) {
			return
		}
		text := collapse(s.Text())
		if text == "" {
			return
		}
		switch {
		case isHeading(s):
			if !rules.headings {
				return
			}
		case goquery.NodeName(s) == "li":
			if runeLen(text) < rules.listItem {
				return
			}
			text = "- " + text
		default:
			if runeLen(text) < rules.paragraph {
				return
			}
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	})
	return b.String()
}

func isHeading(s *goquery.Selection) bool {
	n := goquery.NodeName(s)
	return len(n) == 2 && n[0] == 'h' && n[1] >= '1' && n[1] <= '6'
}

// flatten renders sel as blocks, falling back to its collapsed text when it
// holds no block elements.
func flatten(sel *goquery.Selection) string {
	if text := renderBlocks(sel, keepAll); text != "" {
		return text
	}
	return collapse(sel.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
