// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metadata fetches the bibliographic record of a DOI. The record
// seeds validation of untrusted content candidates.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/nayanlc19/journal-club-standalone/internal/httputil"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// Base URLs for bibliographic lookups. Declared as vars so tests can
// substitute httptest servers.
var (
	crossrefAPIBase = "https://api.crossref.org/works/"
	openAlexAPIBase = "https://api.openalex.org/works/doi:"
)

// ErrNotFound is returned when neither lookup knows the DOI.
var ErrNotFound = errors.New("metadata not found")

// Client looks up DOI metadata on CrossRef, falling back to OpenAlex.
type Client struct {
	http    *http.Client
	cfg     types.AcquisitionConfig
	limiter *httputil.HostLimiter
	log     *zap.Logger
}

// NewClient returns a lookup client.
func NewClient(client *http.Client, cfg types.AcquisitionConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{http: client, cfg: cfg, limiter: httputil.NewHostLimiter(cfg.HostRPS, 1), log: log}
}

// FetchMetadata returns the title and authors of doi.
func (c *Client) FetchMetadata(ctx context.Context, doi string) (*types.Metadata, error) {
	m, crErr := c.fromCrossRef(ctx, doi)
	if crErr == nil {
		return m, nil
	}
	c.log.Debug("CrossRef lookup failed, trying OpenAlex", zap.String("doi", doi), zap.Error(crErr))

	m, oaErr := c.fromOpenAlex(ctx, doi)
	if oaErr == nil {
		return m, nil
	}
	return nil, fmt.Errorf("metadata for %s: %w", doi, errors.Join(crErr, oaErr))
}

// CrossRef API JSON structures.
type crossrefResponse struct {
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	Title   []string         `json:"title"`
	Author  []crossrefAuthor `json:"author"`
	Created crossrefDate     `json:"created"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

func (c *Client) fromCrossRef(ctx context.Context, doi string) (*types.Metadata, error) {
	apiURL := crossrefAPIBase + url.PathEscape(doi)
	if c.cfg.Email != "" {
		apiURL += "?mailto=" + url.QueryEscape(c.cfg.Email)
	}

	var cr crossrefResponse
	if err := c.getJSON(ctx, apiURL, "CrossRef", &cr); err != nil {
		return nil, err
	}
	if len(cr.Message.Title) == 0 {
		return nil, fmt.Errorf("CrossRef: %w", ErrNotFound)
	}

	m := &types.Metadata{DOI: doi, Title: strings.TrimSpace(cr.Message.Title[0]), Source: "crossref"}
	for _, a := range cr.Message.Author {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name == "" {
			name = strings.TrimSpace(a.Name)
		}
		if name != "" {
			m.Authors = append(m.Authors, name)
		}
	}
	if len(cr.Message.Created.DateParts) > 0 && len(cr.Message.Created.DateParts[0]) > 0 {
		m.Year = cr.Message.Created.DateParts[0][0]
	}
	return m, nil
}

type openAlexWork struct {
	Title           string `json:"title"`
	PublicationYear int    `json:"publication_year"`
	Authorships     []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
}

func (c *Client) fromOpenAlex(ctx context.Context, doi string) (*types.Metadata, error) {
	apiURL := openAlexAPIBase + doi
	if c.cfg.Email != "" {
		apiURL += "?mailto=" + url.QueryEscape(c.cfg.Email)
	}

	var w openAlexWork
	if err := c.getJSON(ctx, apiURL, "OpenAlex", &w); err != nil {
		return nil, err
	}
	if w.Title == "" {
		return nil, fmt.Errorf("OpenAlex: %w", ErrNotFound)
	}

	m := &types.Metadata{DOI: doi, Title: strings.TrimSpace(w.Title), Year: w.PublicationYear, Source: "openalex"}
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			m.Authors = append(m.Authors, a.Author.DisplayName)
		}
	}
	return m, nil
}

func (c *Client) getJSON(ctx context.Context, apiURL, api string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", api, err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	if err := c.limiter.Wait(ctx, apiURL); err != nil {
		return fmt.Errorf("%s: %w", api, err)
	}
	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.cfg.MaxRetries)
	if err != nil {
		return fmt.Errorf("%s API request: %w", api, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", api, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s API returned HTTP %d", api, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing %s response: %w", api, err)
	}
	return nil
}
