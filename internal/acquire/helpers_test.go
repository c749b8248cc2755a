// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"net/http"
	"time"

	"github.com/nayanlc19/journal-club-standalone/internal/httputil"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

const fakePDFContent = "%PDF-1.4 fake"

// overrideBaseURLs points every source base URL at the test server and
// returns a cleanup function that restores the originals.
func overrideBaseURLs(tsURL string) func() {
	bases := map[*string]string{
		&unpaywallAPIBase:    tsURL + "/unpaywall/",
		&europePMCSearchBase: tsURL + "/europepmc/search",
		&europePMCRenderBase: tsURL + "/europepmc/articles/",
		&pmcIDConvBase:       tsURL + "/idconv/",
		&pmcArticleBase:      tsURL + "/pmc/articles/",
		&semanticScholarBase: tsURL + "/s2/paper/",
		&coreAPIBase:         tsURL + "/core/",
		&arxivPDFBase:        tsURL + "/arxiv/pdf/",
		&openAlexAPIBase:     tsURL + "/openalex/",
		&doiBase:             tsURL + "/doi/",
		&pmcEFetchBase:       tsURL + "/efetch",
	}
	saved := make(map[*string]string, len(bases))
	for p, v := range bases {
		saved[p] = *p
		*p = v
	}
	origPreprints := preprintBases
	preprintBases = []string{tsURL + "/biorxiv/", tsURL + "/medrxiv/"}

	return func() {
		for p, v := range saved {
			*p = v
		}
		preprintBases = origPreprints
	}
}

func testConfig() types.AcquisitionConfig {
	return types.AcquisitionConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "journal-club-test/0.1",
		},
		MaxPDFBytes:    1 << 20,
		MinHTMLWords:   50,
		TrustedTimeout: 5 * time.Second,
		MirrorTimeout:  5 * time.Second,
		DirectTimeout:  5 * time.Second,
	}
}

func newTestFetcher(client *http.Client, cfg types.AcquisitionConfig) *fetcher {
	return &fetcher{client: client, cfg: cfg, limiter: httputil.NewHostLimiter(0, 1)}
}

func servePDF(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Write([]byte(fakePDFContent))
}
