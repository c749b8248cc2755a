// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// IdentifierType classifies an input identifier.
type IdentifierType int

const (
	TypeUnknown IdentifierType = iota
	TypeArxiv
	TypeDOI
	TypeURL
)

var typeNames = [...]string{
	TypeUnknown: "unknown",
	TypeArxiv:   "arxiv",
	TypeDOI:     "doi",
	TypeURL:     "url",
}

func (t IdentifierType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return typeNames[TypeUnknown]
	}
	return typeNames[t]
}

// arxivPattern matches arXiv IDs: "2301.07041", "arXiv:2301.07041", "2301.07041v2".
var arxivPattern = regexp.MustCompile(`^(?i:arxiv:)?(\d{4}\.\d{4,5}(?:v\d+)?)$`)

// doiPattern matches DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// arxivDOIPattern matches DataCite DOIs minted for arXiv preprints.
var arxivDOIPattern = regexp.MustCompile(`^(?i)10\.48550/arxiv\.(\d{4}\.\d{4,5}(?:v\d+)?)$`)

// doiHosts are resolver hosts whose path is a DOI.
var doiHosts = map[string]bool{
	"doi.org":        true,
	"dx.doi.org":     true,
	"www.doi.org":    true,
	"hdl.handle.net": false,
}

// Classify determines the identifier type and returns the normalized form.
// DOIs are accepted bare, with a "doi:" prefix, or as doi.org URLs; arXiv
// IDs lose their optional "arXiv:" prefix.
func Classify(identifier string) (IdentifierType, string) {
	identifier = strings.TrimSpace(identifier)

	if m := arxivPattern.FindStringSubmatch(identifier); m != nil {
		return TypeArxiv, m[1]
	}

	candidate := identifier
	if len(candidate) > 4 && strings.EqualFold(candidate[:4], "doi:") {
		candidate = strings.TrimSpace(candidate[4:])
	}
	if doiPattern.MatchString(candidate) {
		return TypeDOI, candidate
	}

	if u, err := url.Parse(identifier); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if doiHosts[strings.ToLower(u.Hostname())] {
			if p, err := url.PathUnescape(strings.TrimPrefix(u.Path, "/")); err == nil && doiPattern.MatchString(p) {
				return TypeDOI, p
			}
		}
		return TypeURL, identifier
	}

	return TypeUnknown, identifier
}

// doiSlugger maps DOI separators that are unsafe in file names.
var doiSlugger = strings.NewReplacer("/", "-", ":", "-")

// Slug returns a filesystem-safe filename stem for the identifier. URLs use
// the last path element without extension, or a stable hash when the path
// has none.
func Slug(idType IdentifierType, normalized string) string {
	switch idType {
	case TypeArxiv:
		return normalized
	case TypeDOI:
		return doiSlugger.Replace(normalized)
	case TypeURL:
		if stem := urlStem(normalized); stem != "" {
			return stem
		}
		sum := sha256.Sum256([]byte(normalized))
		return fmt.Sprintf("url-%x", sum[:8])
	}
	return typeNames[TypeUnknown]
}

func urlStem(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	stem := strings.TrimSuffix(path.Base(u.Path), path.Ext(u.Path))
	if stem == "." || stem == "/" {
		return ""
	}
	return stem
}
