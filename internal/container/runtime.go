// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"context"
	"fmt"
	"io"
)

const (
	binDocker = "docker"
	binPodman = "podman"
)

// Runtime provides container operations: checking availability, verifying
// images, and running containers.
type Runtime interface {
	// Name returns the runtime name ("docker" or "podman").
	Name() string

	// Available reports whether the runtime binary exists on PATH and
	// responds to an info command.
	Available(ctx context.Context) bool

	// ImageExists returns nil when the named image is present locally.
	ImageExists(ctx context.Context, image string) error

	// Run executes image with stdin attached and its output written to stdout.
	Run(ctx context.Context, image string, stdin io.Reader, stdout io.Writer) error
}

// runtime implements Runtime for one container binary. Docker and Podman
// differ only in binary name and the image check subcommand.
type runtime struct {
	bin           string
	imageCheckCmd []string
	runner        Runner
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available(ctx context.Context) bool {
	if _, err := r.runner.LookPath(r.bin); err != nil {
		return false
	}
	_, err := r.runner.Run(ctx, Command{Name: r.bin, Args: []string{"info"}, Stdout: io.Discard})
	return err == nil
}

func (r *runtime) ImageExists(ctx context.Context, image string) error {
	args := append(append([]string{}, r.imageCheckCmd...), image)
	if _, err := r.runner.Run(ctx, Command{Name: r.bin, Args: args, Stdout: io.Discard}); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) Run(ctx context.Context, image string, stdin io.Reader, stdout io.Writer) error {
	cmd := Command{Name: r.bin, Args: []string{"run", "--rm", "-i", image}, Stdin: stdin, Stdout: stdout}
	if _, err := r.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("running %s container %s: %w", r.bin, image, err)
	}
	return nil
}

func newDockerRuntime(r Runner) *runtime {
	return &runtime{bin: binDocker, imageCheckCmd: []string{"image", "inspect"}, runner: r}
}

func newPodmanRuntime(r Runner) *runtime {
	return &runtime{bin: binPodman, imageCheckCmd: []string{"image", "exists"}, runner: r}
}

// DetectRuntime tries docker first and falls back to podman.
func DetectRuntime(ctx context.Context) (Runtime, error) {
	return detectRuntime(ctx, Host{})
}

func detectRuntime(ctx context.Context, r Runner) (Runtime, error) {
	for _, rt := range []*runtime{newDockerRuntime(r), newPodmanRuntime(r)} {
		if rt.Available(ctx) {
			return rt, nil
		}
	}
	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}
