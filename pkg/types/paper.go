// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the journal-club full-text
// resolver: bibliographic metadata, acquired content, figure sets and the
// configuration consumed by every stage.
package types

import (
	"strings"
	"unicode"
)

// ContentKind tells whether acquired content is a PDF or HTML markup.
type ContentKind string

const (
	KindPDF  ContentKind = "pdf"
	KindHTML ContentKind = "html"
)

// Metadata holds the bibliographic record fetched independently of the
// content sources. It seeds validation of untrusted candidates and is
// read-only for the lifetime of a request.
type Metadata struct {
	// DOI is the bare DOI the record was fetched for.
	DOI string `json:"doi" yaml:"doi"`

	// Title is the work title.
	Title string `json:"title" yaml:"title"`

	// Authors lists author display names in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year, zero when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Source names the lookup that produced this record (crossref, openalex).
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Surnames returns the last word of each author name, lowercased.
func (m *Metadata) Surnames() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.Authors))
	for _, a := range m.Authors {
		fields := strings.FieldsFunc(a, func(r rune) bool {
			return unicode.IsSpace(r) || r == ','
		})
		if len(fields) == 0 {
			continue
		}
		// "Family, Given" keeps the family name first.
		name := fields[len(fields)-1]
		if strings.Contains(a, ",") {
			name = fields[0]
		}
		out = append(out, strings.ToLower(name))
	}
	return out
}

// Content is the payload produced by an acquisition strategy or a manual
// upload. Ownership passes to the caller; strategies never retain it.
type Content struct {
	// Kind is pdf or html.
	Kind ContentKind `json:"kind" yaml:"kind"`

	// Data holds the raw PDF bytes or HTML markup.
	Data []byte `json:"-" yaml:"-"`

	// Source names the strategy that produced the content (e.g. "unpaywall").
	Source string `json:"source" yaml:"source"`

	// URL is the location the content was fetched from, empty for uploads.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Len reports the payload size in bytes.
func (c Content) Len() int { return len(c.Data) }
