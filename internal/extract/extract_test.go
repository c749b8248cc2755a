// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nayanlc19/journal-club-standalone/internal/cascade"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// --- instrumented stages ---

type countingStage struct {
	Stage
	calls int
}

func (c *countingStage) Extract(markup []byte) (string, error) {
	c.calls++
	return c.Stage.Extract(markup)
}

type recordingObserver struct {
	mu       sync.Mutex
	attempts []cascade.Attempt
	kinds    []cascade.Kind
}

func (r *recordingObserver) ObserveAttempt(kind cascade.Kind, a cascade.Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	r.attempts = append(r.attempts, a)
}

func (r *recordingObserver) ObserveResolution(cascade.Kind, bool) {}

// instrumented returns the default ladder with every stage wrapped in a
// call counter.
func instrumented(cfg types.ExtractionConfig) ([]Step, []*countingStage) {
	steps := NewCascade(cfg).steps
	counters := make([]*countingStage, len(steps))
	for i := range steps {
		counters[i] = &countingStage{Stage: steps[i].Stage}
		steps[i].Stage = counters[i]
	}
	return steps, counters
}

func nextDataPage(t *testing.T, state any) []byte {
	t.Helper()
	blob, err := json.Marshal(state)
	require.NoError(t, err)
	return []byte(`<html><head><script id="__NEXT_DATA__" type="application/json">` +
		string(blob) + `</script></head><body><div id="__next"></div></body></html>`)
}

func TestStructuredStateStopsLadder(t *testing.T) {
	body := "<p>" + strings.Repeat("x", 593) + "</p>"
	require.Len(t, body, 600)
	page := nextDataPage(t, map[string]any{
		"props": map[string]any{"pageProps": map[string]any{
			"article": map[string]any{"title": "Semaglutide Trial", "html": body},
		}},
	})

	steps, counters := instrumented(types.DefaultConfig().Extraction)
	res := NewCascade(types.ExtractionConfig{}, WithSteps(steps...)).Extract(page)

	assert.Equal(t, StageState, res.Stage)
	assert.True(t, strings.HasPrefix(res.Text, "Semaglutide Trial\n\n"))
	assert.GreaterOrEqual(t, res.Chars, 500)
	assert.Equal(t, 1, counters[0].calls)
	for _, c := range counters[1:] {
		assert.Zero(t, c.calls, "%s must not run", c.Name())
	}
	assert.Len(t, res.Trials, 1)
}

func TestHarvestIsFinalFallback(t *testing.T) {
	page := []byte(`<html><body><div>
		<h1>Trial Title</h1>
		<p>Alpha paragraph text here</p>
		<p>tiny</p>
		<h2>Methods</h2>
		<p>Bravo paragraph text here</p>
		<ul>
			<li>first item</li>
			<li>second item</li>
			<li>no</li>
			<li>third item</li>
			<li>fourth item</li>
			<li>fifth item</li>
		</ul>
		<p>Delta paragraph text here</p>
	</div></body></html>`)

	steps, counters := instrumented(types.DefaultConfig().Extraction)
	res := NewCascade(types.ExtractionConfig{}, WithSteps(steps...)).Extract(page)

	want := strings.Join([]string{
		"Trial Title",
		"Alpha paragraph text here",
		"Methods",
		"Bravo paragraph text here",
		"- first item",
		"- second item",
		"- third item",
		"- fourth item",
		"- fifth item",
		"Delta paragraph text here",
	}, "\n\n")
	assert.Equal(t, StageHarvest, res.Stage)
	assert.Equal(t, want, res.Text)
	for _, c := range counters {
		assert.Equal(t, 1, c.calls, "%s should run once", c.Name())
	}
	require.Len(t, res.Trials, 4)
	for _, tr := range res.Trials[:3] {
		assert.Error(t, tr.Err, tr.Stage)
	}
	assert.NoError(t, res.Trials[3].Err)
}

func TestHarvestAcceptsEmpty(t *testing.T) {
	res := NewCascade(types.ExtractionConfig{}).Extract([]byte(`<html><body></body></html>`))
	assert.Equal(t, StageHarvest, res.Stage)
	assert.Empty(t, res.Text)
	assert.Zero(t, res.Chars)
}

func TestExtractDecodesEntitiesOnce(t *testing.T) {
	page := []byte(`<html><body><h1>Markup &amp; Methods</h1><p>Authors wrote &amp;lt;b&amp;gt; literally in the text.</p></body></html>`)
	res := NewCascade(types.ExtractionConfig{}).Extract(page)
	assert.Contains(t, res.Text, "Markup & Methods")
	assert.Contains(t, res.Text, "wrote &lt;b&gt; literally")
}

func TestContainerStage(t *testing.T) {
	long := strings.Repeat("Cardiovascular outcomes were measured. ", 20)
	tests := []struct {
		name    string
		page    string
		want    string
		wantErr error
	}{
		{
			name: "publisher container beats generic wrapper",
			page: `<html><body><main><p>site banner</p><div class="article-content"><p>` + long + `</p></div></main></body></html>`,
			want: strings.TrimSpace(long),
		},
		{
			name: "chrome inside container is dropped",
			page: `<html><body><article><nav>Home About</nav><p>` + long + `</p><script>var x = 1;</script></article></body></html>`,
			want: strings.TrimSpace(long),
		},
		{
			name:    "no container",
			page:    `<html><body><div><p>loose text</p></div></body></html>`,
			wantErr: ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ContainerStage{MinChars: 500}.Extract([]byte(tt.page))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContainerShortMatchReturnsLongest(t *testing.T) {
	page := `<html><body><article><p>short article text</p></article><main><p>main text that is a bit longer</p></main></body></html>`
	got, err := ContainerStage{MinChars: 500}.Extract([]byte(page))
	require.NoError(t, err)
	assert.Contains(t, got, "main text that is a bit longer")
}

func TestBodyStage(t *testing.T) {
	page := `<html><body><header>Journal Masthead</header><nav>Menu</nav>
		<div><p>First finding.</p><p>Second finding.</p></div>
		<footer>Copyright</footer><form><input name="q"></form></body></html>`
	got, err := BodyStage{}.Extract([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, "First finding.\n\nSecond finding.", got)
}

func TestStateStageVariants(t *testing.T) {
	tests := []struct {
		name  string
		page  string
		wants []string
	}{
		{
			name:  "window initial state",
			page:  `<html><head><script>window.__INITIAL_STATE__ = {"article":{"title":"Lipid Lowering","authors":[{"givenName":"Ada","familyName":"Byron"},{"name":"Alan Turing"}],"abstract":"<p>Short summary.</p>","bodyHtml":"<h2>Results</h2><p>LDL fell.</p><ul><li>secondary endpoint</li></ul>"}};</script></head><body></body></html>`,
			wants: []string{"Lipid Lowering", "Ada Byron, Alan Turing", "Abstract\n\nShort summary.", "Results\n\nLDL fell.\n\n- secondary endpoint"},
		},
		{
			name:  "json-ld article body",
			page:  `<html><head><script type="application/ld+json">{"@context":"https://schema.org","@type":"ScholarlyArticle","headline":"Statin Therapy","author":{"@type":"Person","name":"Grace Hopper"},"articleBody":"Plain body text of the article."}</script></head><body></body></html>`,
			wants: []string{"Statin Therapy", "Grace Hopper", "Plain body text of the article."},
		},
		{
			name:  "longest article wins",
			page:  `<html><head><script id="__NEXT_DATA__" type="application/json">{"related":[{"title":"Teaser","html":"<p>tiny</p>"}],"article":{"title":"Main Paper","html":"<p>the much longer main paper body</p>"}}</script></head><body></body></html>`,
			wants: []string{"Main Paper", "the much longer main paper body"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StateStage{}.Extract([]byte(tt.page))
			require.NoError(t, err)
			for _, w := range tt.wants {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestStateStageIgnoresUnrelatedBlobs(t *testing.T) {
	page := `<html><head>
		<script id="__NEXT_DATA__" type="application/json">{"props":{"locale":"en","content":"no title here"}}</script>
		<script>window.__PRELOADED_STATE__ = not json;</script>
	</head><body></body></html>`
	_, err := StateStage{}.Extract([]byte(page))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCascadeReportsAttempts(t *testing.T) {
	obs := &recordingObserver{}
	NewCascade(types.ExtractionConfig{}, WithObserver(obs)).Extract([]byte(`<html><body><p>hello world, this is text</p></body></html>`))

	require.Len(t, obs.attempts, 4)
	for i, a := range obs.attempts {
		assert.Equal(t, cascade.KindExtraction, obs.kinds[i])
		assert.NotEmpty(t, a.Strategy)
	}
	assert.Equal(t, StageHarvest, obs.attempts[3].Strategy)
	assert.Equal(t, cascade.StatusWon, obs.attempts[3].Status)
	assert.Equal(t, cascade.StatusFailed, obs.attempts[0].Status)
}

func TestNewCascadeDefaults(t *testing.T) {
	c := NewCascade(types.ExtractionConfig{StateMinChars: 42})
	require.Len(t, c.steps, 4)
	assert.Equal(t, 42, c.steps[0].MinChars)
	assert.Equal(t, 500, c.steps[1].MinChars)
	assert.Equal(t, 1000, c.steps[2].MinChars)
	assert.Zero(t, c.steps[3].MinChars)
}
