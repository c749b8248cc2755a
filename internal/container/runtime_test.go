// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// fakeRunner resolves binaries from a set and succeeds only for listed
// command lines.
type fakeRunner struct {
	bins map[string]bool
	ok   map[string]bool
	pipe func(cmd Command) error
}

func (f *fakeRunner) LookPath(file string) (string, error) {
	if f.bins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (f *fakeRunner) Run(_ context.Context, cmd Command) ([]byte, error) {
	if f.pipe != nil && len(cmd.Args) > 0 && cmd.Args[0] == "run" {
		return nil, f.pipe(cmd)
	}
	if f.ok[cmd.String()] {
		return nil, nil
	}
	return nil, errors.New("command failed: " + cmd.String())
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		runner   *fakeRunner
		wantName string
		wantErr  bool
	}{
		{
			name:     "docker available",
			runner:   &fakeRunner{bins: map[string]bool{"docker": true}, ok: map[string]bool{"docker info": true}},
			wantName: "docker",
		},
		{
			name:     "podman fallback when docker missing",
			runner:   &fakeRunner{bins: map[string]bool{"podman": true}, ok: map[string]bool{"podman info": true}},
			wantName: "podman",
		},
		{
			name:    "neither available",
			runner:  &fakeRunner{},
			wantErr: true,
		},
		{
			name:     "docker on PATH but info fails",
			runner:   &fakeRunner{bins: map[string]bool{"docker": true, "podman": true}, ok: map[string]bool{"podman info": true}},
			wantName: "podman",
		},
		{
			name:     "both available, docker preferred",
			runner:   &fakeRunner{bins: map[string]bool{"docker": true, "podman": true}, ok: map[string]bool{"docker info": true, "podman info": true}},
			wantName: "docker",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(context.Background(), tt.runner)
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "no container runtime available") {
					t.Fatalf("err = %v, want no runtime available", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rt.Name() != tt.wantName {
				t.Errorf("got runtime %q, want %q", rt.Name(), tt.wantName)
			}
		})
	}
}

func TestImageExists(t *testing.T) {
	tests := []struct {
		name    string
		rt      func(Runner) *runtime
		ok      map[string]bool
		wantErr bool
	}{
		{"docker image exists", newDockerRuntime, map[string]bool{"docker image inspect markitdown:latest": true}, false},
		{"docker image missing", newDockerRuntime, nil, true},
		{"podman image exists", newPodmanRuntime, map[string]bool{"podman image exists markitdown:latest": true}, false},
		{"podman image missing", newPodmanRuntime, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rt(&fakeRunner{ok: tt.ok}).ImageExists(context.Background(), "markitdown:latest")
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "markitdown:latest") {
					t.Fatalf("err = %v, want one naming the image", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRuntimeRunPipes(t *testing.T) {
	var gotArgs []string
	runner := &fakeRunner{pipe: func(cmd Command) error {
		gotArgs = cmd.Args
		data, _ := io.ReadAll(cmd.Stdin)
		_, err := cmd.Stdout.Write([]byte("converted: " + string(data)))
		return err
	}}
	var out bytes.Buffer
	if err := newPodmanRuntime(runner).Run(context.Background(), "markitdown:latest", strings.NewReader("pdf content"), &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "converted: pdf content" {
		t.Errorf("output = %q", out.String())
	}
	if strings.Join(gotArgs, " ") != "run --rm -i markitdown:latest" {
		t.Errorf("args = %v", gotArgs)
	}
}

func TestRuntimeRunFailure(t *testing.T) {
	runner := &fakeRunner{pipe: func(Command) error { return errors.New("exit status 1") }}
	err := newDockerRuntime(runner).Run(context.Background(), "markitdown:latest", nil, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "running docker container markitdown:latest") {
		t.Errorf("err = %v", err)
	}
}
