// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns fetched HTML into plain article text through a
// quality-descending ladder of stages. Stages run in order against the same
// markup; the first whose sanitized output reaches its threshold wins and
// later stages never run. The last stage is accepted at any length.
package extract

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nayanlc19/journal-club-standalone/internal/cascade"
	"github.com/nayanlc19/journal-club-standalone/internal/logging"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// Stage names.
const (
	StageState     = "structured-state"
	StageContainer = "semantic-container"
	StageBody      = "body-text"
	StageHarvest   = "harvest"
)

// ErrNotFound is returned by a stage that found nothing it recognizes.
var ErrNotFound = errors.New("no extractable content")

// Stage is one markup-to-text strategy. Stages must not retain markup.
type Stage interface {
	Name() string
	Extract(markup []byte) (string, error)
}

// Step gates a stage: its output is accepted when it has at least MinChars
// characters. A zero MinChars accepts any output.
type Step struct {
	Stage    Stage
	MinChars int
}

// Trial records one stage run.
type Trial struct {
	Stage string
	Chars int
	Err   error
}

// Result is the accepted text and the trail of stages that produced it.
type Result struct {
	Text   string
	Stage  string
	Chars  int
	Trials []Trial
}

// Option configures a Cascade.
type Option func(*Cascade)

// WithLogger sets the cascade logger.
func WithLogger(l *zap.Logger) Option { return func(c *Cascade) { c.log = logging.OrNop(l) } }

// WithObserver reports every stage run to o as an extraction attempt.
func WithObserver(o cascade.Observer) Option { return func(c *Cascade) { c.observer = o } }

// WithSteps replaces the default ladder.
func WithSteps(steps ...Step) Option { return func(c *Cascade) { c.steps = steps } }

// Cascade is the content extraction ladder. It holds no per-call state.
type Cascade struct {
	steps    []Step
	log      *zap.Logger
	observer cascade.Observer
}

// NewCascade builds the default ladder from cfg: structured state, semantic
// container, body text, heading and paragraph harvest.
func NewCascade(cfg types.ExtractionConfig, opts ...Option) *Cascade {
	cfg = withDefaults(cfg)
	c := &Cascade{
		steps: []Step{
			{Stage: StateStage{}, MinChars: cfg.StateMinChars},
			{Stage: ContainerStage{MinChars: cfg.ContainerMinChars}, MinChars: cfg.ContainerMinChars},
			{Stage: BodyStage{}, MinChars: cfg.BodyMinChars},
			{Stage: HarvestStage{ParagraphMinChars: cfg.ParagraphMinChars, ListItemMinChars: cfg.ListItemMinChars}},
		},
		log: zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func withDefaults(cfg types.ExtractionConfig) types.ExtractionConfig {
	def := types.DefaultConfig().Extraction
	if cfg.StateMinChars <= 0 {
		cfg.StateMinChars = def.StateMinChars
	}
	if cfg.ContainerMinChars <= 0 {
		cfg.ContainerMinChars = def.ContainerMinChars
	}
	if cfg.BodyMinChars <= 0 {
		cfg.BodyMinChars = def.BodyMinChars
	}
	if cfg.ParagraphMinChars <= 0 {
		cfg.ParagraphMinChars = def.ParagraphMinChars
	}
	if cfg.ListItemMinChars <= 0 {
		cfg.ListItemMinChars = def.ListItemMinChars
	}
	return cfg
}

// Extract runs the ladder over markup. It never fails: when every gated
// stage falls short, the last stage's output is returned, possibly empty.
func (c *Cascade) Extract(markup []byte) Result {
	var res Result
	for i, step := range c.steps {
		start := time.Now()
		raw, err := step.Stage.Extract(markup)
		text := Sanitize(raw)
		chars := utf8.RuneCountInString(text)
		last := i == len(c.steps)-1

		name := step.Stage.Name()
		if err == nil && chars < step.MinChars && !last {
			err = fmt.Errorf("%d chars below threshold %d", chars, step.MinChars)
		}
		res.Trials = append(res.Trials, Trial{Stage: name, Chars: chars, Err: err})
		c.observe(name, err, time.Since(start))

		if err == nil || last {
			res.Text, res.Stage, res.Chars = text, name, chars
			if err != nil {
				res.Text, res.Chars = "", 0
			}
			c.log.Debug("extracted", zap.String("stage", name), zap.Int("chars", res.Chars), zap.Int("stages_tried", i+1))
			if c.observer != nil {
				c.observer.ObserveResolution(cascade.KindExtraction, res.Chars > 0)
			}
			return res
		}
		c.log.Debug("stage fell short", zap.String("stage", name), zap.Int("chars", chars), zap.Error(err))
	}
	return res
}

func (c *Cascade) observe(name string, err error, d time.Duration) {
	if c.observer == nil {
		return
	}
	status := cascade.StatusWon
	if err != nil {
		status = cascade.StatusFailed
	}
	c.observer.ObserveAttempt(cascade.KindExtraction, cascade.Attempt{
		Tier: "markup", Strategy: name, Status: status, Err: err, Duration: d,
	})
}
