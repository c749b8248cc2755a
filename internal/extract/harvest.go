// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

// HarvestStage collects the title, subheadings, paragraphs and list items
// that clear their minimum lengths, in document order. It is the last stage
// and its output is accepted whatever its length.
type HarvestStage struct {
	ParagraphMinChars int
	ListItemMinChars  int
}

func (HarvestStage) Name() string { return StageHarvest }

func (h HarvestStage) Extract(markup []byte) (string, error) {
	doc, err := parse(markup)
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, template").Remove()
	return renderBlocks(doc.Selection, blockRules{
		paragraph: h.ParagraphMinChars,
		listItem:  h.ListItemMinChars,
		headings:  true,
	}), nil
}
