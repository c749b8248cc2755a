// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cascade

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrRejected marks a successful payload that failed validation or the
// acceptance gate. The resolver treats it like a strategy failure and keeps
// waiting for siblings.
var ErrRejected = errors.New("rejected")

// ErrTierExhausted is logged when every strategy of a tier failed, timed out
// or was rejected. It never reaches the caller on its own.
var ErrTierExhausted = errors.New("tier exhausted")

// Status is the settled state of one strategy attempt.
type Status string

const (
	StatusWon       Status = "won"
	StatusFailed    Status = "failed"
	StatusTimeout   Status = "timeout"
	StatusRejected  Status = "rejected"
	StatusSkipped   Status = "skipped"
	StatusAbandoned Status = "abandoned"
)

// Attempt records one strategy invocation for diagnostics.
type Attempt struct {
	Tier     string        `json:"tier" yaml:"tier"`
	Strategy string        `json:"strategy" yaml:"strategy"`
	Status   Status        `json:"status" yaml:"status"`
	Err      error         `json:"-" yaml:"-"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Reason returns the error text, or the status when there is no error.
func (a Attempt) Reason() string {
	if a.Err != nil {
		return a.Err.Error()
	}
	return string(a.Status)
}

// ExhaustedError is returned when every tier was exhausted without an
// accepted result. It enumerates every tier and strategy attempted.
type ExhaustedError struct {
	Kind     Kind
	Tiers    []string
	Attempts []Attempt

	// Cause is set when the parent context ended the resolution early.
	Cause error
}

func (e *ExhaustedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s exhausted after %d tier(s) and %d attempt(s)", e.Kind, len(e.Tiers), len(e.Attempts))
	if e.Cause != nil {
		fmt.Fprintf(&b, " (%v)", e.Cause)
	}
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "; [%s] %s: %s", a.Tier, a.Strategy, a.Reason())
	}
	return b.String()
}

func (e *ExhaustedError) Unwrap() error { return e.Cause }

// Sources lists every strategy name attempted, in attempt order.
func (e *ExhaustedError) Sources() []string {
	out := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		out = append(out, a.Strategy)
	}
	return out
}

// IsExhausted reports whether err is (or wraps) an *ExhaustedError.
func IsExhausted(err error) bool {
	var ex *ExhaustedError
	return errors.As(err, &ex)
}
