// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cascade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Hook inspects a successful payload. A non-nil error rejects it.
type Hook[I, P any] func(ctx context.Context, in I, payload P) error

// Observer receives every settled attempt. internal/metrics implements it.
type Observer interface {
	ObserveAttempt(kind Kind, a Attempt)
	ObserveResolution(kind Kind, won bool)
}

// Options configures a Resolver.
type Options[I, P any] struct {
	// Accept gates every successful payload regardless of tier
	// (e.g. a minimum rendered length).
	Accept Hook[I, P]

	// Validate runs only for tiers flagged Validate.
	Validate Hook[I, P]

	Logger   *zap.Logger
	Observer Observer
}

// Outcome is the accepted result of a resolution.
type Outcome[P any] struct {
	Payload P

	// Source is the winning strategy name.
	Source string

	// Tier is the label of the tier that produced the winner.
	Tier string

	// Attempts lists every attempt made up to and including the winner.
	Attempts []Attempt
}

// Resolver runs tiers of strategies until one result is accepted.
// A Resolver holds no per-request state and is safe for concurrent use.
type Resolver[I, P any] struct {
	kind  Kind
	tiers []Tier[I, P]
	opts  Options[I, P]
	log   *zap.Logger
}

// New builds a resolver over tiers in escalation order.
func New[I, P any](kind Kind, tiers []Tier[I, P], opts Options[I, P]) *Resolver[I, P] {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver[I, P]{
		kind:  kind,
		tiers: tiers,
		opts:  opts,
		log:   log.With(zap.String("stage", string(kind))),
	}
}

// Tiers returns the configured tiers.
func (r *Resolver[I, P]) Tiers() []Tier[I, P] { return r.tiers }

// result is what a strategy goroutine reports back to the completion loop.
type result[P any] struct {
	name     string
	payload  P
	err      error
	status   Status
	duration time.Duration
}

// Resolve tries each tier in order. Within a raced tier the first outcome
// received by the completion loop that passes the hooks wins; order between
// near-simultaneous successes is not deterministic.
func (r *Resolver[I, P]) Resolve(ctx context.Context, in I) (Outcome[P], error) {
	var (
		attempts []Attempt
		labels   []string
	)
	for _, tier := range r.tiers {
		if err := ctx.Err(); err != nil {
			return Outcome[P]{}, r.exhausted(labels, attempts, err)
		}
		labels = append(labels, tier.Label)
		if len(tier.Strategies) == 0 {
			r.log.Debug("tier has no strategies", zap.String("tier", tier.Label))
			continue
		}

		r.log.Debug("tier started", zap.String("tier", tier.Label), zap.Int("strategies", len(tier.Strategies)))
		var (
			out   Outcome[P]
			tried []Attempt
			won   bool
		)
		if tier.Sequential {
			out, tried, won = r.runSequential(ctx, tier, in)
		} else {
			out, tried, won = r.race(ctx, tier, in)
		}
		attempts = append(attempts, tried...)
		if won {
			out.Attempts = attempts
			r.log.Info("resolved",
				zap.String("tier", out.Tier),
				zap.String("source", out.Source),
				zap.Int("attempts", len(attempts)))
			if r.opts.Observer != nil {
				r.opts.Observer.ObserveResolution(r.kind, true)
			}
			return out, nil
		}
		r.log.Info("escalating", zap.String("tier", tier.Label), zap.Error(ErrTierExhausted))
	}
	return Outcome[P]{}, r.exhausted(labels, attempts, ctx.Err())
}

func (r *Resolver[I, P]) exhausted(labels []string, attempts []Attempt, cause error) error {
	if r.opts.Observer != nil {
		r.opts.Observer.ObserveResolution(r.kind, false)
	}
	err := &ExhaustedError{Kind: r.kind, Tiers: labels, Attempts: attempts, Cause: cause}
	r.log.Warn("all tiers exhausted", zap.Int("attempts", len(attempts)), zap.Error(err))
	return err
}

// race launches every strategy of the tier at once. The loop below is the
// single decision point for the winner.
func (r *Resolver[I, P]) race(ctx context.Context, tier Tier[I, P], in I) (Outcome[P], []Attempt, bool) {
	tierCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan result[P], len(tier.Strategies))
	for _, s := range tier.Strategies {
		go func(s Strategy[I, P]) {
			results <- r.execute(tierCtx, s, in)
		}(s)
	}

	attempts := make([]Attempt, 0, len(tier.Strategies))
	pending := make(map[string]int, len(tier.Strategies))
	for _, s := range tier.Strategies {
		pending[s.Name()]++
	}

	for range tier.Strategies {
		var res result[P]
		select {
		case res = <-results:
		case <-ctx.Done():
			for name, n := range pending {
				for i := 0; i < n; i++ {
					attempts = append(attempts, r.record(tier, Attempt{Strategy: name, Status: StatusAbandoned, Err: ctx.Err()}))
				}
			}
			return Outcome[P]{}, attempts, false
		}
		pending[res.name]--

		a, ok := r.settle(tierCtx, tier, in, res)
		attempts = append(attempts, a)
		if !ok {
			continue
		}
		cancel()
		for name, n := range pending {
			for i := 0; i < n; i++ {
				attempts = append(attempts, r.record(tier, Attempt{Strategy: name, Status: StatusAbandoned}))
			}
		}
		return Outcome[P]{Payload: res.payload, Source: res.name, Tier: tier.Label}, attempts, true
	}
	return Outcome[P]{}, attempts, false
}

func (r *Resolver[I, P]) runSequential(ctx context.Context, tier Tier[I, P], in I) (Outcome[P], []Attempt, bool) {
	attempts := make([]Attempt, 0, len(tier.Strategies))
	for _, s := range tier.Strategies {
		if ctx.Err() != nil {
			attempts = append(attempts, r.record(tier, Attempt{Strategy: s.Name(), Status: StatusAbandoned, Err: ctx.Err()}))
			continue
		}
		res := r.execute(ctx, s, in)
		a, ok := r.settle(ctx, tier, in, res)
		attempts = append(attempts, a)
		if ok {
			return Outcome[P]{Payload: res.payload, Source: res.name, Tier: tier.Label}, attempts, true
		}
	}
	return Outcome[P]{}, attempts, false
}

// execute runs one strategy under its own deadline. A strategy that ignores
// cancellation is abandoned when the deadline fires; its eventual result
// lands in a buffered channel and is dropped.
func (r *Resolver[I, P]) execute(ctx context.Context, s Strategy[I, P], in I) result[P] {
	var (
		sctx   context.Context
		cancel context.CancelFunc
	)
	if d := s.Timeout(); d > 0 {
		sctx, cancel = context.WithTimeout(ctx, d)
	} else {
		sctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	start := time.Now()
	done := make(chan result[P], 1)
	go func() {
		p, err := s.Execute(sctx, in)
		done <- result[P]{payload: p, err: err}
	}()

	var res result[P]
	select {
	case res = <-done:
	case <-sctx.Done():
		res.err = sctx.Err()
	}
	res.name = s.Name()
	res.duration = time.Since(start)

	switch {
	case res.err == nil:
	case errors.Is(res.err, ErrDisabled):
		res.status = StatusSkipped
	case errors.Is(sctx.Err(), context.DeadlineExceeded) && errors.Is(res.err, context.DeadlineExceeded):
		res.status = StatusTimeout
		res.err = fmt.Errorf("timed out after %v: %w", s.Timeout(), res.err)
	case ctx.Err() != nil:
		res.status = StatusAbandoned
	default:
		res.status = StatusFailed
	}
	return res
}

// settle applies the hooks to a successful result and records the attempt.
func (r *Resolver[I, P]) settle(ctx context.Context, tier Tier[I, P], in I, res result[P]) (Attempt, bool) {
	a := Attempt{Strategy: res.name, Duration: res.duration, Err: res.err, Status: res.status}
	if res.err != nil {
		return r.record(tier, a), false
	}
	if r.opts.Accept != nil {
		if err := r.opts.Accept(ctx, in, res.payload); err != nil {
			a.Status, a.Err = StatusRejected, fmt.Errorf("%w: %w", ErrRejected, err)
			return r.record(tier, a), false
		}
	}
	if tier.Validate && r.opts.Validate != nil {
		if err := r.opts.Validate(ctx, in, res.payload); err != nil {
			a.Status, a.Err = StatusRejected, fmt.Errorf("%w: %w", ErrRejected, err)
			return r.record(tier, a), false
		}
	}
	a.Status = StatusWon
	return r.record(tier, a), true
}

func (r *Resolver[I, P]) record(tier Tier[I, P], a Attempt) Attempt {
	a.Tier = tier.Label
	fields := []zap.Field{
		zap.String("tier", a.Tier),
		zap.String("strategy", a.Strategy),
		zap.String("status", string(a.Status)),
		zap.Duration("duration", a.Duration),
	}
	if a.Err != nil {
		fields = append(fields, zap.Error(a.Err))
	}
	r.log.Debug("attempt settled", fields...)
	if r.opts.Observer != nil {
		r.opts.Observer.ObserveAttempt(r.kind, a)
	}
	return a
}
