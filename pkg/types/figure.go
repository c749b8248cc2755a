// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// FigureType separates tables from figures.
type FigureType string

const (
	FigureTable  FigureType = "table"
	FigureFigure FigureType = "figure"
)

// BBox is a page-space bounding box in PDF points.
type BBox struct {
	X1 float64 `json:"x1" yaml:"x1"`
	Y1 float64 `json:"y1" yaml:"y1"`
	X2 float64 `json:"x2" yaml:"x2"`
	Y2 float64 `json:"y2" yaml:"y2"`
}

// Figure is a single table or figure extracted from a PDF.
type Figure struct {
	Type FigureType `json:"type" yaml:"type"`

	// Name is the label printed in the document ("1", "S2", "IV").
	Name string `json:"name" yaml:"name"`

	// Page is 1-based.
	Page int `json:"page" yaml:"page"`

	Caption string `json:"caption" yaml:"caption"`

	// BBox is nil when the backend does not report geometry.
	BBox *BBox `json:"bbox,omitempty" yaml:"bbox,omitempty"`

	// Image holds the rendered PNG or JPEG bytes when the backend produced one.
	Image []byte `json:"-" yaml:"-"`
}

// FigureSet is the result of visual-element extraction. An empty set is a
// valid terminal outcome.
type FigureSet struct {
	Figures []Figure `json:"figures" yaml:"figures"`

	// Source names the backend that produced the set, empty when nothing was found.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Empty reports whether the set contains no figures or tables.
func (s FigureSet) Empty() bool { return len(s.Figures) == 0 }

// Count returns the number of tables and figures in the set.
func (s FigureSet) Count() (tables, figures int) {
	for _, f := range s.Figures {
		if f.Type == FigureTable {
			tables++
		} else {
			figures++
		}
	}
	return tables, figures
}
