// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container runs external tools: host binaries (java, chandra, the
// headless browser) and container images (markitdown) under docker or
// podman. Every call is bounded by a context; cancelling it kills the
// process.
package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

const (
	// stderrTail bounds how much of a failing command's stderr is kept in the error.
	stderrTail = 512

	// waitDelay bounds the wait for output pipes after a cancelled process is killed.
	waitDelay = 2 * time.Second
)

// Command is one process invocation.
type Command struct {
	Name  string
	Args  []string
	Dir   string
	Stdin io.Reader

	// Stdout receives the process output. Nil collects it into the
	// value returned by Run.
	Stdout io.Writer
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes commands. Host is the production implementation; tests
// substitute fakes.
type Runner interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// Host runs commands as child processes of the current one.
type Host struct{}

func (Host) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Run starts cmd and waits for it. A non-zero exit is reported with the tail
// of stderr; a cancelled ctx is reported as ctx.Err().
func (Host) Run(ctx context.Context, cmd Command) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdin = cmd.Stdin
	c.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	if cmd.Stdout != nil {
		c.Stdout = cmd.Stdout
	}
	c.Stderr = &stderr

	if err := c.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", cmd.Name, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s exited %d: %s", cmd.Name, exitErr.ExitCode(), tail(stderr.String()))
		}
		return nil, fmt.Errorf("running %s: %w", cmd.Name, err)
	}
	return stdout.Bytes(), nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		s = "..." + s[len(s)-stderrTail:]
	}
	return s
}

// Func adapts a function into a Runner whose LookPath resolves every name.
type Func func(ctx context.Context, cmd Command) ([]byte, error)

func (f Func) LookPath(file string) (string, error) { return file, nil }

func (f Func) Run(ctx context.Context, cmd Command) ([]byte, error) { return f(ctx, cmd) }
