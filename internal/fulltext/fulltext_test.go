// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nayanlc19/journal-club-standalone/internal/acquire"
	"github.com/nayanlc19/journal-club-standalone/internal/cascade"
	"github.com/nayanlc19/journal-club-standalone/internal/extract"
	"github.com/nayanlc19/journal-club-standalone/internal/render"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

type fakeAcquirer struct {
	res acquire.Result
	err error
}

func (f *fakeAcquirer) Acquire(context.Context, string, *types.Metadata) (acquire.Result, error) {
	return f.res, f.err
}

type fakeConverter struct {
	text    string
	err     error
	content string
}

func (f *fakeConverter) Name() string { return "pdftext" }

func (f *fakeConverter) Convert(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	f.content = string(data)
	return f.text, f.err
}

type fakeRenderer struct {
	markup string
	ok     bool
	got    render.Page
	calls  int
}

func (f *fakeRenderer) Render(_ context.Context, p render.Page) render.Result {
	f.calls++
	f.got = p
	if !f.ok {
		return render.Result{Markup: p.Markup}
	}
	return render.Result{Markup: []byte(f.markup), Backend: render.BackendDOM, Rendered: true}
}

type fakeFigures struct{ path string }

func (f *fakeFigures) ExtractFigures(_ context.Context, path string) types.FigureSet {
	f.path = path
	return types.FigureSet{Figures: []types.Figure{{Type: types.FigureTable, Name: "1"}}, Source: "captions"}
}

func htmlResult(markup string) acquire.Result {
	return acquire.Result{
		RequestID: uuid.New(),
		Content:   types.Content{Kind: types.KindHTML, Data: []byte(markup), Source: "publisher-html", URL: "https://www.nejm.org/doi/full/10.1056/x"},
		Source:    "publisher-html",
		Expected:  &types.Metadata{DOI: "10.1056/NEJMoa2034577"},
	}
}

func paragraphs(n int) string {
	return strings.Repeat("<p>The trial enrolled adults with obesity across sites.</p>", n)
}

func newService(a Acquirer, c *fakeConverter, opts ...Option) *Service {
	cfg := types.DefaultConfig().Extraction
	return New(a, c, extract.NewCascade(cfg), cfg, opts...)
}

func TestResolvePDF(t *testing.T) {
	a := &fakeAcquirer{res: acquire.Result{
		RequestID: uuid.New(),
		Content:   types.Content{Kind: types.KindPDF, Data: []byte("%PDF-1.7 body"), Source: "unpaywall"},
		Source:    "unpaywall",
	}}
	conv := &fakeConverter{text: "N Engl J Med 2021\n\n\nResults \u2014 weight fell."}
	figs := &fakeFigures{}

	h, err := newService(a, conv, WithFigures(figs)).Resolve(context.Background(), "doi:10.1056/NEJMoa2034577")
	require.NoError(t, err)

	assert.Equal(t, "%PDF-1.7 body", conv.content)
	assert.Equal(t, "N Engl J Med 2021\n\nResults -- weight fell.", h.Text)
	assert.Equal(t, "10.1056/NEJMoa2034577", h.SourceDOI)
	assert.Equal(t, types.KindPDF, h.Kind)
	assert.Equal(t, "pdftext", h.Stage)
	assert.Equal(t, "nejm", h.Publisher)
	require.NotNil(t, h.Figures)
	assert.Equal(t, 1, len(h.Figures.Figures))

	_, err = os.Stat(figs.path)
	assert.True(t, os.IsNotExist(err), "staged PDF must be removed")
}

func TestResolvePDFConversionFails(t *testing.T) {
	a := &fakeAcquirer{res: acquire.Result{Content: types.Content{Kind: types.KindPDF, Data: []byte("%PDF")}, Source: "pmc"}}
	_, err := newService(a, &fakeConverter{err: errors.New("scanned")}).Resolve(context.Background(), "10.1/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanned")
}

func TestResolveAcquisitionExhausted(t *testing.T) {
	exhausted := &cascade.ExhaustedError{Kind: cascade.KindAcquisition}
	_, err := newService(&fakeAcquirer{err: exhausted}, &fakeConverter{}).Resolve(context.Background(), "10.1/x")
	var ex *cascade.ExhaustedError
	assert.True(t, errors.As(err, &ex))
}

func TestResolveHTMLWithoutRendering(t *testing.T) {
	r := &fakeRenderer{ok: true, markup: "<html></html>"}
	a := &fakeAcquirer{res: htmlResult("<html><body><article class=\"article-full-text\">" + paragraphs(12) + "</article></body></html>")}

	h, err := newService(a, &fakeConverter{}, WithRenderer(r)).Resolve(context.Background(), "10.1056/NEJMoa2034577")
	require.NoError(t, err)
	assert.Equal(t, extract.StageContainer, h.Stage)
	assert.False(t, h.Rendered)
	assert.Zero(t, r.calls)
	assert.Equal(t, "10.1056/NEJMoa2034577", h.SourceDOI)
}

func TestResolveThinHTMLIsRendered(t *testing.T) {
	r := &fakeRenderer{ok: true, markup: "<html><body><main>" + paragraphs(15) + "</main></body></html>"}
	a := &fakeAcquirer{res: htmlResult(`<html><body><div id="root"></div></body></html>`)}

	h, err := newService(a, &fakeConverter{}, WithRenderer(r)).Resolve(context.Background(), "10.1056/NEJMoa2034577")
	require.NoError(t, err)
	assert.True(t, h.Rendered)
	assert.Equal(t, "https://www.nejm.org/doi/full/10.1056/x", r.got.URL)
	assert.Contains(t, h.Text, "The trial enrolled adults")
}

func TestResolveKeepsLongerText(t *testing.T) {
	// The rendered page is no better than the original.
	r := &fakeRenderer{ok: true, markup: "<html><body><p>Sign in</p></body></html>"}
	a := &fakeAcquirer{res: htmlResult("<html><body><p>Short abstract text about the trial.</p></body></html>")}

	h, err := newService(a, &fakeConverter{}, WithRenderer(r)).Resolve(context.Background(), "10.1/x")
	require.NoError(t, err)
	assert.Equal(t, 1, r.calls)
	assert.False(t, h.Rendered)
	assert.Equal(t, "Short abstract text about the trial.", h.Text)
}

func TestResolveRenderingExhausted(t *testing.T) {
	r := &fakeRenderer{ok: false}
	a := &fakeAcquirer{res: htmlResult("<html><body><p>Short abstract text about the trial.</p></body></html>")}

	h, err := newService(a, &fakeConverter{}, WithRenderer(r)).Resolve(context.Background(), "10.1/x")
	require.NoError(t, err)
	assert.False(t, h.Rendered)
	assert.Equal(t, "Short abstract text about the trial.", h.Text)
}

func TestResolveUploadRendersWithoutURL(t *testing.T) {
	r := &fakeRenderer{ok: false}
	s := newService(&fakeAcquirer{}, &fakeConverter{}, WithRenderer(r))

	h, err := s.ResolveUpload(context.Background(), "paper.html", []byte("<html><body><p>Uploaded abstract of the paper.</p></body></html>"), "10.1/x")
	require.NoError(t, err)
	assert.Equal(t, acquire.SourceUpload, h.Source)
	assert.Equal(t, "10.1/x", h.SourceDOI)
	assert.Empty(t, r.got.URL)
	assert.NotEmpty(t, r.got.Markup)
}

func TestResolveUploadRejectsUnknown(t *testing.T) {
	_, err := newService(&fakeAcquirer{}, &fakeConverter{}).ResolveUpload(context.Background(), "notes.txt", []byte("plain"), "")
	assert.ErrorIs(t, err, acquire.ErrUnsupportedUpload)
}
