// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"errors"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType IdentifierType
		wantNorm string
	}{
		{"arxiv bare", "2301.07041", TypeArxiv, "2301.07041"},
		{"arxiv prefixed with version", "arXiv:2301.07041v2", TypeArxiv, "2301.07041v2"},
		{"arxiv lowercase prefix", "arxiv:2301.07041", TypeArxiv, "2301.07041"},
		{"doi bare", "10.1145/1234567.1234568", TypeDOI, "10.1145/1234567.1234568"},
		{"doi prefixed", "doi:10.1056/NEJMoa1607141", TypeDOI, "10.1056/NEJMoa1607141"},
		{"doi resolver URL", "https://doi.org/10.1056/NEJMoa1607141", TypeDOI, "10.1056/NEJMoa1607141"},
		{"doi legacy resolver URL", "http://dx.doi.org/10.1000/xyz123", TypeDOI, "10.1000/xyz123"},
		{"doi with whitespace", "  10.1000/xyz  ", TypeDOI, "10.1000/xyz"},
		{"publisher URL", "https://example.com/paper.pdf", TypeURL, "https://example.com/paper.pdf"},
		{"doi.org without DOI path", "https://doi.org/help", TypeURL, "https://doi.org/help"},
		{"unknown", "hello-world", TypeUnknown, "hello-world"},
		{"empty", "", TypeUnknown, ""},
		{"ftp URL", "ftp://example.com/paper.pdf", TypeUnknown, "ftp://example.com/paper.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotNorm := Classify(tt.input)
			if gotType != tt.wantType {
				t.Errorf("Classify(%q) type = %v, want %v", tt.input, gotType, tt.wantType)
			}
			if gotNorm != tt.wantNorm {
				t.Errorf("Classify(%q) norm = %q, want %q", tt.input, gotNorm, tt.wantNorm)
			}
		})
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		name   string
		idType IdentifierType
		norm   string
		want   string
	}{
		{"arxiv", TypeArxiv, "2301.07041", "2301.07041"},
		{"doi", TypeDOI, "10.1145/1234567.1234568", "10.1145-1234567.1234568"},
		{"url with file", TypeURL, "https://example.com/papers/attention.pdf", "attention"},
		{"unknown", TypeUnknown, "whatever", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slug(tt.idType, tt.norm); got != tt.want {
				t.Errorf("Slug(%v, %q) = %q, want %q", tt.idType, tt.norm, got, tt.want)
			}
		})
	}
}

func TestSlugURLWithoutPathUsesHash(t *testing.T) {
	got := Slug(TypeURL, "https://example.com/")
	if !strings.HasPrefix(got, "url-") {
		t.Errorf("Slug = %q, want url- prefix", got)
	}
	if again := Slug(TypeURL, "https://example.com/"); again != got {
		t.Errorf("Slug not stable: %q then %q", got, again)
	}
}

func TestNewRequest(t *testing.T) {
	t.Run("doi", func(t *testing.T) {
		req, err := NewRequest("https://doi.org/10.1056/NEJMoa1607141", nil)
		if err != nil {
			t.Fatalf("NewRequest: %v", err)
		}
		if req.Type != TypeDOI || req.DOI != "10.1056/NEJMoa1607141" {
			t.Errorf("got type %v doi %q", req.Type, req.DOI)
		}
		if req.Raw != "https://doi.org/10.1056/NEJMoa1607141" {
			t.Errorf("Raw = %q, identifier must be kept unchanged", req.Raw)
		}
	})

	t.Run("arxiv gets datacite doi", func(t *testing.T) {
		req, err := NewRequest("2301.07041", nil)
		if err != nil {
			t.Fatalf("NewRequest: %v", err)
		}
		if req.ArxivID != "2301.07041" || req.DOI != "10.48550/arXiv.2301.07041" {
			t.Errorf("got arxiv %q doi %q", req.ArxivID, req.DOI)
		}
	})

	t.Run("arxiv doi keeps arxiv id", func(t *testing.T) {
		req, err := NewRequest("10.48550/arXiv.2301.07041", nil)
		if err != nil {
			t.Fatalf("NewRequest: %v", err)
		}
		if req.Type != TypeDOI || req.ArxivID != "2301.07041" {
			t.Errorf("got type %v arxiv %q", req.Type, req.ArxivID)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewRequest("not an identifier", nil)
		if !errors.Is(err, ErrUnknownIdentifier) {
			t.Errorf("err = %v, want ErrUnknownIdentifier", err)
		}
	})
}
