// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/nots-builder/internal/archive"
	"github.com/pdiddy/nots-builder/internal/builder"
	"github.com/pdiddy/nots-builder/internal/history"
	"github.com/pdiddy/nots-builder/internal/logx"
	"github.com/pdiddy/nots-builder/pkg/types"
)

// addBuilderFlags registers the flags every build-* command shares.
func addBuilderFlags(cmd *cobra.Command) {
	cmd.Flags().String("source-root", "", "root of the source tree")
	cmd.Flags().String("build-root", "", "root of the build tree")
	cmd.Flags().String("cur-dir", "", "module source directory (relative to --source-root)")
	cmd.Flags().String("bindir", "", "module build directory (relative to --build-root)")
	cmd.Flags().String("output-file", types.DefaultOutputFile, "output archive, relative to --bindir")
	cmd.Flags().StringArray("env", nil, "extra tool environment as KEY=VALUE (repeatable)")
	_ = cmd.MarkFlagRequired("bindir")
}

// addOutputDirFlag registers the tool output directories flag.
func addOutputDirFlag(cmd *cobra.Command) {
	cmd.Flags().StringSlice("output-dir", nil, "tool output directory, relative to --bindir (repeatable)")
}

func builderOptionsFromFlags(cmd *cobra.Command) (types.BuilderOptions, error) {
	sourceRoot, _ := cmd.Flags().GetString("source-root")
	buildRoot, _ := cmd.Flags().GetString("build-root")
	curDir, _ := cmd.Flags().GetString("cur-dir")
	binDir, _ := cmd.Flags().GetString("bindir")
	outputFile, _ := cmd.Flags().GetString("output-file")
	envPairs, _ := cmd.Flags().GetStringArray("env")

	env, err := builder.ParseOptions(envPairs)
	if err != nil {
		return types.BuilderOptions{}, err
	}

	return types.BuilderOptions{
		BaseOptions: types.BaseOptions{
			SourceRoot: sourceRoot,
			BuildRoot:  buildRoot,
			CurDir:     underRoot(sourceRoot, curDir),
			BinDir:     underRoot(buildRoot, binDir),
			NodePath:   viper.GetString("node"),
			Verbose:    viper.GetBool("verbose"),
		},
		OutputFile: outputFile,
		Env:        env,
	}, nil
}

// underRoot resolves a relative p against root.
func underRoot(root, p string) string {
	if p == "" || filepath.IsAbs(p) || root == "" {
		return p
	}
	return filepath.Join(root, p)
}

// runBuild builds and bundles one module, then records the run in the
// history database when one is configured.
func runBuild(cmd *cobra.Command, b *builder.Builder) error {
	ctx := cmd.Context()
	started := time.Now()

	bundle, err := buildAndBundle(ctx, b)

	rec := types.BuildRecord{
		Module:    b.BinDir(),
		Builder:   b.Name(),
		StartedAt: started,
		Duration:  time.Since(started),
		Status:    types.BuildSucceeded,
		Archive:   bundle.Path,
		Digest:    bundle.Digest,
	}
	if err != nil {
		rec.Status = types.BuildFailed
		rec.Error = err.Error()
		var buildErr *builder.BuildError
		if errors.As(err, &buildErr) {
			rec.ExitCode = buildErr.ExitCode
		}
	}
	if herr := recordHistory(ctx, rec); herr != nil {
		logx.FromContext(ctx).Warn("could not record build history", "err", herr)
	}
	return err
}

func buildAndBundle(ctx context.Context, b *builder.Builder) (archive.Bundle, error) {
	if err := b.Build(ctx); err != nil {
		return archive.Bundle{}, err
	}
	return b.Bundle(ctx)
}

func recordHistory(ctx context.Context, rec types.BuildRecord) error {
	dir := viper.GetString("history.dir")
	if dir == "" {
		return nil
	}
	store, err := history.NewStore(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err = store.Record(ctx, rec)
	if err != nil {
		return err
	}
	logx.FromContext(ctx).Debug("recorded build", "id", rec.ID, "status", rec.Status)
	return nil
}
