// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

func TestOpenAlexPDFURLs(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		statusCode int
		want       []string
		wantErr    bool
	}{
		{
			name:       "best location first then OA locations",
			response:   `{"best_oa_location":{"pdf_url":"https://example.com/best.pdf"},"locations":[{"pdf_url":"https://example.com/best.pdf","is_oa":true},{"pdf_url":"https://repo.example/copy.pdf","is_oa":true},{"pdf_url":"https://paywall.example/x.pdf","is_oa":false}]}`,
			statusCode: http.StatusOK,
			want:       []string{"https://example.com/best.pdf", "https://repo.example/copy.pdf"},
		},
		{
			name:       "no OA location",
			response:   `{"best_oa_location":null}`,
			statusCode: http.StatusOK,
		},
		{
			name:       "landing page only",
			response:   `{"best_oa_location":{"pdf_url":"","landing_page_url":"https://example.com/landing"}}`,
			statusCode: http.StatusOK,
		},
		{
			name:       "not found",
			response:   `{"error":"not found"}`,
			statusCode: http.StatusNotFound,
			wantErr:    true,
		},
		{
			name:       "malformed JSON",
			response:   `{not json`,
			statusCode: http.StatusOK,
			wantErr:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotQuery string
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
				w.WriteHeader(tt.statusCode)
				fmt.Fprint(w, tt.response)
			}))
			defer ts.Close()
			restore := overrideBaseURLs(ts.URL)
			defer restore()

			cfg := testConfig()
			cfg.Email = "reader@example.com"
			f := newTestFetcher(ts.Client(), cfg)

			got, err := f.openAlexPDFURLs(context.Background(), "10.1145/1234567.1234568")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("openAlexPDFURLs: %v", err)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("urls = %v, want %v", got, tt.want)
			}
			if !strings.HasSuffix(gotPath, "10.1145/1234567.1234568") {
				t.Errorf("path = %q, want DOI suffix", gotPath)
			}
			if !strings.Contains(gotQuery, "mailto=reader%40example.com") {
				t.Errorf("query = %q, want mailto", gotQuery)
			}
		})
	}
}

func TestOpenAlexStrategy(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/openalex/"):
			fmt.Fprintf(w, `{"best_oa_location":{"pdf_url":"http://%s/files/broken.pdf"},"locations":[{"pdf_url":"http://%s/files/paper.pdf","is_oa":true}]}`, r.Host, r.Host)
		case r.URL.Path == "/files/paper.pdf":
			servePDF(w)
		case r.URL.Path == "/files/broken.pdf":
			fmt.Fprint(w, "<html>login required</html>")
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()
	restore := overrideBaseURLs(ts.URL)
	defer restore()

	f := newTestFetcher(ts.Client(), testConfig())
	c, err := f.openAlex(context.Background(), Request{DOI: "10.1145/1234567.1234568"})
	if err != nil {
		t.Fatalf("openAlex: %v", err)
	}
	if c.Kind != types.KindPDF || c.Source != "openalex" {
		t.Errorf("got kind %q source %q", c.Kind, c.Source)
	}
	if !strings.HasSuffix(c.URL, "/files/paper.pdf") {
		t.Errorf("URL = %q, want the second candidate after the non-PDF one", c.URL)
	}
}

func TestOpenAlexStrategyNoFullText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"best_oa_location":null,"locations":[]}`)
	}))
	defer ts.Close()
	restore := overrideBaseURLs(ts.URL)
	defer restore()

	f := newTestFetcher(ts.Client(), testConfig())
	_, err := f.openAlex(context.Background(), Request{DOI: "10.1145/9999999"})
	if !errors.Is(err, ErrNoFullText) {
		t.Errorf("err = %v, want ErrNoFullText", err)
	}
}
