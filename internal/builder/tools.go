// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package builder

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/pdiddy/nots-builder/internal/archive"
	"github.com/pdiddy/nots-builder/internal/fsutil"
	"github.com/pdiddy/nots-builder/internal/logx"
	"github.com/pdiddy/nots-builder/internal/workspace"
	"github.com/pdiddy/nots-builder/pkg/types"
)

// Builder kinds.
const (
	KindPackage = "package"
	KindTsc     = "tsc"
	KindWebpack = "webpack"
	KindVite    = "vite"
	KindNext    = "next"
)

const defaultTsConfig = "tsconfig.json"

// binTool runs the bin script of an installed npm package.
type binTool struct {
	pkg   string
	bin   string
	argv  []string
	macro string
}

func (t binTool) script(fs afero.Fs, bindir string) (string, error) {
	return workspace.ResolveBin(fs, bindir, t.pkg, t.bin)
}

func (t binTool) args() []string { return t.argv }

func (t binTool) outputMacro() string { return t.macro }

func withConfig(argv []string, config string) []string {
	if config == "" {
		return argv
	}
	return append(argv, "--config", config)
}

// NewPackage returns the builder for plain packages. It runs no tool: Build
// only prepares node_modules and dependency outputs, and Bundle packs the
// after-build directory or leaves an empty output file.
func NewPackage(opts types.PackageOptions, sys System) *Builder {
	b := newBuilder(KindPackage, opts.BuilderOptions, nil, sys, nil)
	b.overwritePackageJSON = true
	b.bundle = func(ctx context.Context) (archive.Bundle, error) {
		if opts.WithAfterBuild && opts.AfterBuildOutDir != "" {
			return b.bundleDirs(ctx, []string{opts.AfterBuildOutDir})
		}
		out := b.OutputFile()
		if err := fsutil.Touch(b.sys.FS, out); err != nil {
			return archive.Bundle{}, err
		}
		logx.FromContext(ctx).Debug("touched output", "file", out)
		return archive.Bundle{Path: out}, nil
	}
	return b
}

// NewTsc returns the builder that compiles a module with tsc.
func NewTsc(opts types.TscOptions, sys System) *Builder {
	tsconfig := opts.TsConfig
	if tsconfig == "" {
		tsconfig = defaultTsConfig
	}
	return newBuilder(KindTsc, opts.BuilderOptions, opts.OutputDirs, sys, binTool{
		pkg:   "typescript",
		bin:   "tsc",
		argv:  []string{"--project", tsconfig},
		macro: "TS_OUTPUT",
	})
}

// NewWebpack returns the webpack bundler builder.
func NewWebpack(opts types.BundlerOptions, sys System) *Builder {
	return newBuilder(KindWebpack, opts.BuilderOptions, opts.OutputDirs, sys, binTool{
		pkg:   "webpack",
		bin:   "webpack",
		argv:  withConfig(nil, opts.BundlerConfig),
		macro: "TS_WEBPACK_OUTPUT",
	})
}

// NewVite returns the vite bundler builder.
func NewVite(opts types.BundlerOptions, sys System) *Builder {
	return newBuilder(KindVite, opts.BuilderOptions, opts.OutputDirs, sys, binTool{
		pkg:   "vite",
		bin:   "vite",
		argv:  withConfig([]string{"build"}, opts.BundlerConfig),
		macro: "TS_VITE_OUTPUT",
	})
}

// NewNext returns the next.js builder. Before bundling, the cache and trace
// that next writes inside each output directory are moved next to it so
// they do not end up in the archive.
func NewNext(opts types.NextOptions, sys System) *Builder {
	command := opts.NextCommand
	if command == "" {
		command = types.DefaultNextCommand
	}
	b := newBuilder(KindNext, opts.BuilderOptions, opts.OutputDirs, sys, binTool{
		pkg:   "next",
		bin:   "next",
		argv:  []string{command},
		macro: "TS_NEXT_OUTPUT",
	})
	b.beforeBundle = func(ctx context.Context) error {
		logger := logx.FromContext(ctx)
		for _, d := range b.outputDirs {
			dir := filepath.Join(b.opts.BinDir, d)
			for _, sub := range []string{"cache", "trace"} {
				moved, err := fsutil.MoveAside(b.sys.FS, filepath.Join(dir, sub), dir+"."+sub)
				if err != nil {
					return err
				}
				if moved {
					logger.Debug("moved aside", "from", filepath.Join(dir, sub), "to", dir+"."+sub)
				}
			}
		}
		return nil
	}
	return b
}
