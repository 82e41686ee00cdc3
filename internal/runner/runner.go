// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runner starts external tool processes (node running a bundler
// script) and collects their exit code and output.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// Command describes one process invocation.
type Command struct {
	// Args is the argument vector; Args[0] is the program.
	Args []string

	// Env is the complete process environment as KEY=VALUE pairs.
	Env []string

	// Dir is the working directory.
	Dir string
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// Result holds what a finished process produced.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports a zero exit code.
func (r Result) Success() bool { return r.ExitCode == 0 }

// Runner runs commands. A non-zero exit is reported in Result; the error
// is reserved for processes that could not be started.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
	LookPath(file string) (string, error)
}

// OS is the production Runner backed by os/exec.
type OS struct{}

// New returns the os/exec backed Runner.
func New() *OS { return &OS{} }

// LookPath searches PATH for file.
func (o *OS) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Run starts cmd, waits for it and returns its output.
func (o *OS) Run(ctx context.Context, cmd Command) (Result, error) {
	if len(cmd.Args) == 0 {
		return Result{}, errors.New("empty command")
	}

	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	default:
		return res, fmt.Errorf("running %s: %w", cmd.Args[0], err)
	}
}

// MergeEnv overlays extra onto base (KEY=VALUE pairs). Later keys win; the
// result is sorted for stable logs.
func MergeEnv(base []string, extra map[string]string) []string {
	merged := make(map[string]string, len(base)+len(extra))
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}

	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}
