// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/nayanlc19/journal-club-standalone/internal/cascade"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// Base URLs for the open-access sources. Declared as vars so tests can
// substitute httptest servers.
var (
	unpaywallAPIBase    = "https://api.unpaywall.org/v2/"
	europePMCSearchBase = "https://www.ebi.ac.uk/europepmc/webservices/rest/search"
	europePMCRenderBase = "https://europepmc.org/articles/"
	pmcIDConvBase       = "https://www.ncbi.nlm.nih.gov/pmc/utils/idconv/v1.0/"
	pmcArticleBase      = "https://www.ncbi.nlm.nih.gov/pmc/articles/"
	semanticScholarBase = "https://api.semanticscholar.org/graph/v1/paper/"
	coreAPIBase         = "https://api.core.ac.uk/v3/"
	arxivPDFBase        = "https://arxiv.org/pdf/"
	preprintBases       = []string{"https://www.biorxiv.org/", "https://www.medrxiv.org/"}
)

type unpaywallResponse struct {
	BestOALocation *unpaywallLocation  `json:"best_oa_location"`
	OALocations    []unpaywallLocation `json:"oa_locations"`
}

type unpaywallLocation struct {
	URLForPDF string `json:"url_for_pdf"`
}

// unpaywall asks Unpaywall for open-access copies. Unpaywall requires a
// contact email and is skipped without one.
func (f *fetcher) unpaywall(ctx context.Context, req Request) (types.Content, error) {
	if f.cfg.Email == "" {
		return types.Content{}, fmt.Errorf("unpaywall needs acquisition.email: %w", cascade.ErrDisabled)
	}
	apiURL := unpaywallAPIBase + req.DOI + "?email=" + url.QueryEscape(f.cfg.Email)

	var r unpaywallResponse
	if err := f.getJSON(ctx, "Unpaywall", apiURL, nil, &r); err != nil {
		return types.Content{}, err
	}
	var urls []string
	if r.BestOALocation != nil {
		urls = append(urls, r.BestOALocation.URLForPDF)
	}
	for _, loc := range r.OALocations {
		urls = append(urls, loc.URLForPDF)
	}
	if len(dedupe(urls)) == 0 {
		return types.Content{}, fmt.Errorf("Unpaywall: %w", ErrNoFullText)
	}
	return f.fetchFirstPDF(ctx, "unpaywall", urls)
}

type europePMCResponse struct {
	ResultList struct {
		Result []struct {
			PMCID           string `json:"pmcid"`
			IsOpenAccess    string `json:"isOpenAccess"`
			FullTextURLList struct {
				FullTextURL []struct {
					DocumentStyle    string `json:"documentStyle"`
					AvailabilityCode string `json:"availabilityCode"`
					URL              string `json:"url"`
				} `json:"fullTextUrl"`
			} `json:"fullTextUrlList"`
		} `json:"result"`
	} `json:"resultList"`
}

// europePMC searches Europe PMC for an open-access record of the DOI.
func (f *fetcher) europePMC(ctx context.Context, req Request) (types.Content, error) {
	q := url.Values{}
	q.Set("query", fmt.Sprintf("DOI:%q", req.DOI))
	q.Set("format", "json")
	q.Set("resultType", "core")

	var r europePMCResponse
	if err := f.getJSON(ctx, "Europe PMC", europePMCSearchBase+"?"+q.Encode(), nil, &r); err != nil {
		return types.Content{}, err
	}

	var urls []string
	for _, res := range r.ResultList.Result {
		for _, ft := range res.FullTextURLList.FullTextURL {
			if strings.EqualFold(ft.DocumentStyle, "pdf") && ft.AvailabilityCode != "S" {
				urls = append(urls, ft.URL)
			}
		}
		if res.IsOpenAccess == "Y" && res.PMCID != "" {
			urls = append(urls, europePMCRenderBase+res.PMCID+"?pdf=render")
		}
	}
	if len(urls) == 0 {
		return types.Content{}, fmt.Errorf("Europe PMC: %w", ErrNoFullText)
	}
	return f.fetchFirstPDF(ctx, "europepmc", urls)
}

type idConvResponse struct {
	Records []struct {
		PMCID  string `json:"pmcid"`
		Status string `json:"status"`
	} `json:"records"`
}

// pmcID maps a DOI to its PubMed Central ID through the NCBI ID converter.
func (f *fetcher) pmcID(ctx context.Context, doi string) (string, error) {
	q := url.Values{}
	q.Set("ids", doi)
	q.Set("format", "json")
	q.Set("tool", "journal-club")
	if f.cfg.Email != "" {
		q.Set("email", f.cfg.Email)
	}

	var r idConvResponse
	if err := f.getJSON(ctx, "NCBI ID converter", pmcIDConvBase+"?"+q.Encode(), nil, &r); err != nil {
		return "", err
	}
	for _, rec := range r.Records {
		if rec.PMCID != "" && rec.Status != "error" {
			return rec.PMCID, nil
		}
	}
	return "", fmt.Errorf("no PMC record for %s: %w", doi, ErrNoFullText)
}

// pmc downloads the PubMed Central PDF rendition.
func (f *fetcher) pmc(ctx context.Context, req Request) (types.Content, error) {
	id, err := f.pmcID(ctx, req.DOI)
	if err != nil {
		return types.Content{}, err
	}
	return f.fetchPDF(ctx, "pmc", pmcArticleBase+id+"/pdf/")
}

type semanticScholarPaper struct {
	OpenAccessPDF *struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
	ExternalIDs map[string]any `json:"externalIds"`
}

// semanticScholar uses the Semantic Scholar graph API's openAccessPdf field.
func (f *fetcher) semanticScholar(ctx context.Context, req Request) (types.Content, error) {
	apiURL := semanticScholarBase + "DOI:" + req.DOI + "?fields=openAccessPdf,externalIds"
	header := http.Header{}
	if f.cfg.SemanticScholarAPIKey != "" {
		header.Set("x-api-key", f.cfg.SemanticScholarAPIKey)
	}

	var p semanticScholarPaper
	if err := f.getJSON(ctx, "Semantic Scholar", apiURL, header, &p); err != nil {
		return types.Content{}, err
	}
	var urls []string
	if p.OpenAccessPDF != nil {
		urls = append(urls, p.OpenAccessPDF.URL)
	}
	if id, ok := p.ExternalIDs["ArXiv"].(string); ok && id != "" {
		urls = append(urls, arxivPDFBase+id)
	}
	if len(dedupe(urls)) == 0 {
		return types.Content{}, fmt.Errorf("Semantic Scholar: %w", ErrNoFullText)
	}
	return f.fetchFirstPDF(ctx, "semantic-scholar", urls)
}

// preprint derives PDF URLs from preprint-server DOI patterns: bioRxiv and
// medRxiv share the 10.1101 prefix, arXiv DOIs use 10.48550.
func (f *fetcher) preprint(ctx context.Context, req Request) (types.Content, error) {
	var urls []string
	switch {
	case req.Type == TypeArxiv:
		urls = append(urls, arxivPDFBase+req.ArxivID)
	case arxivDOIPattern.MatchString(req.DOI):
		urls = append(urls, arxivPDFBase+arxivDOIPattern.FindStringSubmatch(req.DOI)[1])
	case strings.HasPrefix(req.DOI, "10.1101/"):
		for _, base := range preprintBases {
			urls = append(urls, base+"content/"+req.DOI+".full.pdf")
		}
	default:
		return types.Content{}, fmt.Errorf("%s is not a bioRxiv, medRxiv or arXiv DOI: %w", req.DOI, cascade.ErrDisabled)
	}
	return f.fetchFirstPDF(ctx, "preprint", urls)
}

type coreSearchResponse struct {
	Results []struct {
		DownloadURL string `json:"downloadUrl"`
		DOI         string `json:"doi"`
	} `json:"results"`
}

// core queries the key-gated CORE aggregator.
func (f *fetcher) core(ctx context.Context, req Request) (types.Content, error) {
	if f.cfg.CoreAPIKey == "" {
		return types.Content{}, fmt.Errorf("CORE needs acquisition.core_api_key: %w", cascade.ErrDisabled)
	}
	q := url.Values{}
	q.Set("q", fmt.Sprintf("doi:%q", req.DOI))
	q.Set("limit", "3")
	header := http.Header{}
	header.Set("Authorization", "Bearer "+f.cfg.CoreAPIKey)

	var r coreSearchResponse
	if err := f.getJSON(ctx, "CORE", coreAPIBase+"search/works?"+q.Encode(), header, &r); err != nil {
		return types.Content{}, err
	}
	var urls []string
	for _, res := range r.Results {
		if res.DOI == "" || strings.EqualFold(res.DOI, req.DOI) {
			urls = append(urls, res.DownloadURL)
		}
	}
	if len(dedupe(urls)) == 0 {
		return types.Content{}, fmt.Errorf("CORE: %w", ErrNoFullText)
	}
	return f.fetchFirstPDF(ctx, "core", urls)
}
