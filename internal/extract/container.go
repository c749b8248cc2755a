// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import "github.com/PuerkitoBio/goquery"

// ContainerSelectors are article containers ranked from explicit publisher
// full-text bodies to generic content wrappers.
var ContainerSelectors = []string{
	"article.article-full-text",
	"div.article-full-text-body",
	"div#article-body",
	"div.article-body",
	"div.article-content",
	"article.c-article-body",
	"div.c-article-body",
	"div.c-article-section",
	"div.article-text",
	"div.fulltext-view",
	"div.article__body",
	"section.article-section",
	"div.jig-ncbiinpagenav",
	"[itemprop=articleBody]",
	"main article",
	"article",
	"[role=main]",
	"main",
	"div#main-content",
	"div#content",
	"div.content",
}

// ContainerStage scrapes the first ranked container holding at least
// MinChars characters of text.
type ContainerStage struct {
	MinChars int
}

func (ContainerStage) Name() string { return StageContainer }

func (c ContainerStage) Extract(markup []byte) (string, error) {
	doc, err := parse(markup)
	if err != nil {
		return "", err
	}
	doc.Find(chrome).Remove()

	var longest string
	for _, sel := range ContainerSelectors {
		found := false
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := flatten(s)
			if runeLen(text) > runeLen(longest) {
				longest = text
			}
			found = runeLen(text) >= c.MinChars
			return !found
		})
		if found {
			return longest, nil
		}
	}
	if longest == "" {
		return "", ErrNotFound
	}
	return longest, nil
}
