// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cascade implements cascading resolution with graceful degradation.
// A Resolver walks an ordered list of tiers. Strategies inside a tier race
// concurrently (or run in order for sequential tiers); the first successful
// and accepted result wins and its siblings are cancelled. A tier that yields
// no accepted result escalates to the next one. Only total exhaustion is
// reported to the caller, as an *ExhaustedError carrying every attempt.
package cascade

import (
	"context"
	"errors"
	"time"
)

// Kind classifies what a resolver produces.
type Kind string

const (
	KindAcquisition Kind = "acquisition"
	KindExtraction  Kind = "extraction"
	KindRendering   Kind = "rendering"
)

// ErrDisabled is returned by strategies that cannot run in the current
// configuration (missing credential, wrong platform). Attempts failing with
// it are recorded as skipped rather than failed.
var ErrDisabled = errors.New("strategy disabled")

// Strategy is one concrete way of producing a payload P from an input I.
// Implementations hold no state shared with other strategies and must honor
// ctx cancellation at every I/O boundary.
type Strategy[I, P any] interface {
	// Name identifies the strategy in logs, metrics and diagnostics.
	Name() string

	// Timeout is the per-invocation deadline. Zero means only the parent
	// context bounds the call.
	Timeout() time.Duration

	// Execute attempts to produce a payload.
	Execute(ctx context.Context, in I) (P, error)
}

// Func adapts a plain function into a Strategy.
type Func[I, P any] struct {
	Label    string
	Deadline time.Duration
	Fn       func(ctx context.Context, in I) (P, error)
}

// NewFunc returns a Strategy backed by fn.
func NewFunc[I, P any](name string, timeout time.Duration, fn func(ctx context.Context, in I) (P, error)) Func[I, P] {
	return Func[I, P]{Label: name, Deadline: timeout, Fn: fn}
}

func (f Func[I, P]) Name() string           { return f.Label }
func (f Func[I, P]) Timeout() time.Duration { return f.Deadline }

func (f Func[I, P]) Execute(ctx context.Context, in I) (P, error) {
	return f.Fn(ctx, in)
}

// Tier groups strategies of the same kind that are tried together before
// escalating.
type Tier[I, P any] struct {
	// Label is used only for logging and diagnostics.
	Label string

	Strategies []Strategy[I, P]

	// Sequential runs strategies one at a time in declared order instead of
	// racing them.
	Sequential bool

	// Validate marks untrusted provenance: successful payloads must also pass
	// the resolver's Validate hook.
	Validate bool
}
