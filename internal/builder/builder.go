// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package builder runs a Node.js tool (tsc, webpack, vite, next) for one
// workspace module and packs its output directories into the module's
// output archive.
//
// A build goes through two steps. Build materializes node_modules, restores
// the outputs of workspace dependencies, runs the tool and checks that the
// expected output directories exist. Bundle writes the output archive and
// its manifest pointer.
package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/pdiddy/nots-builder/internal/archive"
	"github.com/pdiddy/nots-builder/internal/extract"
	"github.com/pdiddy/nots-builder/internal/fsutil"
	"github.com/pdiddy/nots-builder/internal/logx"
	"github.com/pdiddy/nots-builder/internal/nodemodules"
	"github.com/pdiddy/nots-builder/internal/runner"
	"github.com/pdiddy/nots-builder/internal/workspace"
	"github.com/pdiddy/nots-builder/pkg/types"
)

// System bundles the side-effecting collaborators of a builder.
type System struct {
	FS     afero.Fs
	Runner runner.Runner
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultSystem uses the real filesystem, os/exec and the process streams.
func DefaultSystem() System {
	return System{
		FS:     afero.NewOsFs(),
		Runner: runner.New(),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// BuildError reports a failed tool run or a missing tool output.
type BuildError struct {
	Builder  string
	ExitCode int
	Stdout   string
	Stderr   string
	Message  string
}

func (e *BuildError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Builder, e.Message)
	}
	return fmt.Sprintf("%s: tool exited with code %d", e.Builder, e.ExitCode)
}

// tool describes the external program a builder runs.
type tool interface {
	// script returns the JavaScript entry point passed to node.
	script(fs afero.Fs, bindir string) (string, error)
	// args returns the arguments after the script.
	args() []string
	// outputMacro names the build macro that declares the output dirs.
	outputMacro() string
}

// Builder builds and bundles one module.
type Builder struct {
	name       string
	opts       types.BuilderOptions
	outputDirs []string
	sys        System
	tool       tool

	// overwritePackageJSON replaces bindir/package.json with the source copy.
	overwritePackageJSON bool

	beforeBundle func(ctx context.Context) error
	bundle       func(ctx context.Context) (archive.Bundle, error)
}

func newBuilder(name string, opts types.BuilderOptions, outputDirs []string, sys System, t tool) *Builder {
	if sys.Stdout == nil {
		sys.Stdout = io.Discard
	}
	if sys.Stderr == nil {
		sys.Stderr = io.Discard
	}
	return &Builder{
		name:       name,
		opts:       opts,
		outputDirs: outputDirs,
		sys:        sys,
		tool:       t,
	}
}

// Name returns the builder kind.
func (b *Builder) Name() string { return b.name }

// BinDir returns the module build directory.
func (b *Builder) BinDir() string { return b.opts.BinDir }

// OutputFile returns the absolute archive path written by Bundle.
func (b *Builder) OutputFile() string {
	out := b.opts.OutputFile
	if out == "" {
		out = types.DefaultOutputFile
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(b.opts.BinDir, out)
	}
	return out
}

// Build prepares the module directory and runs the tool.
func (b *Builder) Build(ctx context.Context) error {
	logger := logx.FromContext(ctx).With("builder", b.name)
	ctx = logx.WithLogger(ctx, logger)
	p := logx.Start(logger)

	if err := b.preparePackageJSON(ctx); err != nil {
		return err
	}
	if _, err := nodemodules.Create(ctx, b.sys.FS, b.opts.BinDir); err != nil {
		return err
	}

	walker := extract.NewWalker(b.sys.FS, workspace.NewProvider(b.sys.FS))
	if err := walker.ExtractDependencies(ctx, b.opts.BinDir, nil); err != nil {
		return fmt.Errorf("extracting dependency outputs: %w", err)
	}

	if b.tool == nil {
		p.Done("build finished")
		return nil
	}

	if err := b.runTool(ctx); err != nil {
		return err
	}
	if err := b.checkOutputs(); err != nil {
		return err
	}
	p.Done("build finished")
	return nil
}

// Bundle writes the output archive and its manifest pointer.
func (b *Builder) Bundle(ctx context.Context) (archive.Bundle, error) {
	if b.beforeBundle != nil {
		if err := b.beforeBundle(ctx); err != nil {
			return archive.Bundle{}, err
		}
	}
	if b.bundle != nil {
		return b.bundle(ctx)
	}
	return b.bundleDirs(ctx, b.outputDirs)
}

func (b *Builder) bundleDirs(ctx context.Context, dirs []string) (archive.Bundle, error) {
	logger := logx.FromContext(ctx)
	p := logx.Start(logger)

	bundle, err := archive.BundleDirs(b.sys.FS, dirs, b.opts.BinDir, b.OutputFile())
	if err != nil {
		return archive.Bundle{}, fmt.Errorf("%s: bundling: %w", b.name, err)
	}
	p.Done("bundled output", "archive", bundle.Path, "digest", bundle.Digest, "entries", bundle.Entries)
	return bundle, nil
}

func (b *Builder) preparePackageJSON(ctx context.Context) error {
	if b.opts.CurDir == "" {
		return nil
	}
	src := workspace.PackageJSONPath(b.opts.CurDir)
	dst := workspace.PackageJSONPath(b.opts.BinDir)
	if b.overwritePackageJSON {
		return fsutil.RecursiveCopy(ctx, b.sys.FS, src, dst, true)
	}
	return fsutil.CopyIfNotExists(ctx, b.sys.FS, src, dst)
}

func (b *Builder) runTool(ctx context.Context) error {
	logger := logx.FromContext(ctx)

	node := b.opts.NodePath
	if node == "" {
		found, err := b.sys.Runner.LookPath(types.DefaultNodeBinary)
		if err != nil {
			return fmt.Errorf("%s: locating node: %w", b.name, err)
		}
		node = found
	}

	script, err := b.tool.script(b.sys.FS, b.opts.BinDir)
	if err != nil {
		return fmt.Errorf("%s: resolving tool: %w", b.name, err)
	}

	cmd := runner.Command{
		Args: append([]string{node, script}, b.tool.args()...),
		Env:  runner.MergeEnv(os.Environ(), b.env()),
		Dir:  b.opts.BinDir,
	}
	logger.Debug("running tool", "cmd", cmd.String(), "dir", cmd.Dir, "env", FormatOptions(b.opts.Env))

	res, err := b.sys.Runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%s: %w", b.name, err)
	}

	stdout := SimplifyColors(res.Stdout)
	stderr := SimplifyColors(res.Stderr)
	// A broken output stream does not fail the build.
	_, _ = io.WriteString(b.sys.Stdout, stdout)
	_, _ = io.WriteString(b.sys.Stderr, stderr)

	if !res.Success() {
		return &BuildError{
			Builder:  b.name,
			ExitCode: res.ExitCode,
			Stdout:   stdout,
			Stderr:   stderr,
		}
	}
	return nil
}

func (b *Builder) env() map[string]string {
	env := map[string]string{
		"NODE_PATH": filepath.Join(b.opts.BinDir, workspace.NodeModulesDirname),
	}
	for k, v := range b.opts.Env {
		env[k] = v
	}
	return env
}

func (b *Builder) checkOutputs() error {
	var missing []string
	for _, d := range b.outputDirs {
		ok, err := afero.DirExists(b.sys.FS, filepath.Join(b.opts.BinDir, d))
		if err != nil {
			return err
		}
		if !ok {
			missing = append(missing, d)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &BuildError{
		Builder: b.name,
		Message: fmt.Sprintf("output directories not produced: %s (check %s)",
			strings.Join(missing, ", "), b.tool.outputMacro()),
	}
}
