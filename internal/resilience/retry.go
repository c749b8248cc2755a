// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resilience provides the retry-with-backoff-and-fallback executor
// downstream stages use to always produce a result.
package resilience

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry behavior.
type Policy struct {
	// MaxAttempts is the total number of action invocations (minimum 1).
	MaxAttempts int

	// BaseDelay is the wait before the second attempt; it doubles each time.
	BaseDelay time.Duration

	// MaxDelay caps a single wait.
	MaxDelay time.Duration

	// Jitter spreads each wait uniformly over [delay/2, delay).
	Jitter bool

	Logger *zap.Logger
}

// DefaultPolicy returns three attempts with jittered backoff from 250ms to 5s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Jitter:      true,
	}
}

// Backoff returns the wait after the given zero-based failed attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	if !p.Jitter {
		return time.Duration(delay)
	}
	half := time.Duration(delay / 2)
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

// RetryError is returned when every attempt failed and no fallback was given.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// WithRetry invokes action up to p.MaxAttempts times with exponential
// backoff between failures. When every attempt fails and fallback is non-nil
// its result is returned instead; otherwise the final error is returned as
// a *RetryError. Context cancellation stops further attempts.
func WithRetry[T any](
	ctx context.Context,
	action func(ctx context.Context) (T, error),
	fallback func(ctx context.Context, err error) (T, error),
	p Policy,
) (T, error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		lastErr error
		made    int
	)
loop:
	for i := 0; i < attempts; i++ {
		made++
		v, err := action(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		var perm permanentError
		if errors.As(err, &perm) || ctx.Err() != nil || i == attempts-1 {
			break
		}

		wait := p.Backoff(i)
		log.Debug("retrying", zap.Int("attempt", i+1), zap.Duration("backoff", wait), zap.Error(err))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			lastErr = errors.Join(lastErr, ctx.Err())
			break loop
		case <-timer.C:
		}
	}

	if fallback != nil {
		log.Info("retries exhausted, using fallback", zap.Int("attempts", made), zap.Error(lastErr))
		return fallback(ctx, lastErr)
	}
	var zero T
	return zero, &RetryError{Attempts: made, Err: lastErr}
}
