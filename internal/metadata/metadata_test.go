// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nayanlc19/journal-club-standalone/internal/httputil"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

const crossrefBody = `{
  "message": {
    "title": ["Semaglutide and Cardiovascular Outcomes in Obesity without Diabetes"],
    "author": [
      {"given": "A. Michael", "family": "Lincoff"},
      {"given": "Kirstine", "family": "Brown-Frandsen"},
      {"name": "SELECT Trial Investigators"}
    ],
    "created": {"date-parts": [[2023, 11, 11]]}
  }
}`

const openAlexBody = `{
  "title": "Semaglutide and Cardiovascular Outcomes in Obesity without Diabetes",
  "publication_year": 2023,
  "authorships": [{"author": {"display_name": "A. Michael Lincoff"}}]
}`

func swapBases(t *testing.T, crossref, openalex string) {
	t.Helper()
	oldCR, oldOA := crossrefAPIBase, openAlexAPIBase
	crossrefAPIBase, openAlexAPIBase = crossref, openalex
	t.Cleanup(func() { crossrefAPIBase, openAlexAPIBase = oldCR, oldOA })
}

func testConfig() types.AcquisitionConfig {
	return types.AcquisitionConfig{
		HTTPConfig: types.HTTPConfig{UserAgent: "journal-club-test/0.1", MaxRetries: 1},
		Email:      "test@example.com",
	}
}

func TestFetchMetadataCrossRef(t *testing.T) {
	var gotPath, gotMailto, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMailto = r.URL.Query().Get("mailto")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(crossrefBody))
	}))
	defer srv.Close()
	swapBases(t, srv.URL+"/works/", srv.URL+"/unused/")

	m, err := NewClient(srv.Client(), testConfig(), nil).FetchMetadata(context.Background(), "10.1056/NEJMoa2307563")
	require.NoError(t, err)

	assert.Equal(t, "/works/10.1056/NEJMoa2307563", gotPath)
	assert.Equal(t, "test@example.com", gotMailto)
	assert.Equal(t, "journal-club-test/0.1", gotUA)

	assert.Equal(t, "crossref", m.Source)
	assert.Equal(t, "Semaglutide and Cardiovascular Outcomes in Obesity without Diabetes", m.Title)
	assert.Equal(t, []string{"A. Michael Lincoff", "Kirstine Brown-Frandsen", "SELECT Trial Investigators"}, m.Authors)
	assert.Equal(t, 2023, m.Year)
	assert.Equal(t, []string{"lincoff", "brown-frandsen", "investigators"}, m.Surnames())
}

func TestFetchMetadataFallsBackToOpenAlex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/works/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Equal(t, "/openalex/doi:10.1056/NEJMoa2307563", r.URL.Path)
		w.Write([]byte(openAlexBody))
	}))
	defer srv.Close()
	swapBases(t, srv.URL+"/works/", srv.URL+"/openalex/doi:")

	m, err := NewClient(srv.Client(), testConfig(), nil).FetchMetadata(context.Background(), "10.1056/NEJMoa2307563")
	require.NoError(t, err)
	assert.Equal(t, "openalex", m.Source)
	assert.Equal(t, 2023, m.Year)
	assert.Equal(t, []string{"A. Michael Lincoff"}, m.Authors)
}

func TestFetchMetadataBothFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/works/") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	swapBases(t, srv.URL+"/works/", srv.URL+"/openalex/")

	_, err := NewClient(srv.Client(), testConfig(), nil).FetchMetadata(context.Background(), "10.9999/fake-nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "CrossRef API returned HTTP 500")
}

func TestFetchMetadataEmptyTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": {"title": []}}`))
	}))
	defer srv.Close()
	swapBases(t, srv.URL+"/works/", srv.URL+"/openalex/")

	_, err := NewClient(srv.Client(), testConfig(), nil).FetchMetadata(context.Background(), "10.1/x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchMetadataPacesRequestsPerHost(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	swapBases(t, srv.URL+"/works/", srv.URL+"/openalex/")

	cfg := testConfig()
	cfg.HostRPS = 0.001
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// CrossRef and OpenAlex share the test host, so the fallback must wait
	// far longer than ctx allows.
	_, err := NewClient(srv.Client(), cfg, nil).FetchMetadata(ctx, "10.1/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
	assert.Equal(t, int32(1), hits.Load())
}
