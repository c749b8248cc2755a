// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// openAlexAPIBase is the OpenAlex works endpoint. Declared as a var so tests
// can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works/"

// openAlexResponse captures the fields we need from an OpenAlex work record.
type openAlexResponse struct {
	BestOALocation *openAlexLocation  `json:"best_oa_location"`
	Locations      []openAlexLocation `json:"locations"`
}

// openAlexLocation represents an open-access location in the OpenAlex response.
type openAlexLocation struct {
	PDFURL     string `json:"pdf_url"`
	LandingURL string `json:"landing_page_url"`
	IsOA       bool   `json:"is_oa"`
}

// openAlexPDFURLs queries OpenAlex for a DOI and returns its open-access PDF
// URLs, best location first.
func (f *fetcher) openAlexPDFURLs(ctx context.Context, doi string) ([]string, error) {
	apiURL := openAlexAPIBase + "https://doi.org/" + doi
	if f.cfg.Email != "" {
		apiURL += "?mailto=" + url.QueryEscape(f.cfg.Email)
	}

	var oa openAlexResponse
	if err := f.getJSON(ctx, "OpenAlex", apiURL, nil, &oa); err != nil {
		return nil, err
	}

	var urls []string
	if oa.BestOALocation != nil && oa.BestOALocation.PDFURL != "" {
		urls = append(urls, oa.BestOALocation.PDFURL)
	}
	for _, loc := range oa.Locations {
		if loc.IsOA && loc.PDFURL != "" {
			urls = append(urls, loc.PDFURL)
		}
	}
	return dedupe(urls), nil
}

// openAlex resolves the DOI through OpenAlex's open-access locations.
func (f *fetcher) openAlex(ctx context.Context, req Request) (types.Content, error) {
	urls, err := f.openAlexPDFURLs(ctx, req.DOI)
	if err != nil {
		return types.Content{}, err
	}
	if len(urls) == 0 {
		return types.Content{}, fmt.Errorf("OpenAlex: %w", ErrNoFullText)
	}
	return f.fetchFirstPDF(ctx, "openalex", urls)
}
