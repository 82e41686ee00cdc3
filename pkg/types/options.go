// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the option and record structures shared by the
// builders, the CLI, and the build history ledger.
package types

const (
	// DefaultOutputFile is the archive name used when no output file is given.
	DefaultOutputFile = "output.tar"

	// DefaultNextCommand is the next.js subcommand run by the next builder.
	DefaultNextCommand = "build"

	// DefaultNodeBinary is looked up on PATH when NodePath is empty.
	DefaultNodeBinary = "node"
)

// BaseOptions locates a module in the source tree and in the build tree.
type BaseOptions struct {
	// SourceRoot is the root of the source tree.
	SourceRoot string `json:"source_root" yaml:"source_root"`

	// BuildRoot is the root of the build tree.
	BuildRoot string `json:"build_root" yaml:"build_root"`

	// CurDir is the module directory in the source tree.
	CurDir string `json:"cur_dir" yaml:"cur_dir"`

	// BinDir is the module directory in the build tree. Dependency archives,
	// node_modules and the tool output all land here.
	BinDir string `json:"bin_dir" yaml:"bin_dir"`

	// NodePath is the node binary. Empty means "node" from PATH.
	NodePath string `json:"node_path,omitempty" yaml:"node_path,omitempty"`

	// Verbose enables debug logging.
	Verbose bool `json:"verbose" yaml:"verbose"`
}

// BuilderOptions configures any builder.
type BuilderOptions struct {
	BaseOptions `yaml:",inline"`

	// OutputFile is the tar archive written by Bundle (default "output.tar"
	// inside BinDir). Relative paths are resolved against BinDir.
	OutputFile string `json:"output_file" yaml:"output_file"`

	// Env holds extra environment variables for the tool process.
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// BundlerOptions configures the webpack, vite and next builders.
type BundlerOptions struct {
	BuilderOptions `yaml:",inline"`

	// BundlerConfig is the bundler config file, relative to BinDir.
	BundlerConfig string `json:"bundler_config" yaml:"bundler_config"`

	// OutputDirs are the tool output directories, relative to BinDir. They
	// are packed into OutputFile.
	OutputDirs []string `json:"output_dirs" yaml:"output_dirs"`
}

// TscOptions configures the tsc builder.
type TscOptions struct {
	BuilderOptions `yaml:",inline"`

	// TsConfig is the tsconfig file passed to --project, relative to BinDir
	// (default "tsconfig.json").
	TsConfig string `json:"ts_config" yaml:"ts_config"`

	// OutputDirs are the compiler output directories, relative to BinDir.
	OutputDirs []string `json:"output_dirs" yaml:"output_dirs"`
}

// NextOptions configures the next builder.
type NextOptions struct {
	BundlerOptions `yaml:",inline"`

	// NextCommand is the next subcommand (default "build").
	NextCommand string `json:"next_command" yaml:"next_command"`
}

// PackageOptions configures the package builder, which runs no tool and
// only packs an optional after-build directory.
type PackageOptions struct {
	BuilderOptions `yaml:",inline"`

	// WithAfterBuild enables packing AfterBuildOutDir.
	WithAfterBuild bool `json:"with_after_build" yaml:"with_after_build"`

	// AfterBuildOutDir is the directory produced by an after-build step,
	// relative to BinDir.
	AfterBuildOutDir string `json:"after_build_outdir,omitempty" yaml:"after_build_outdir,omitempty"`
}
