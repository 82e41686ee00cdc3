// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pdiddy/nots-builder/internal/extract"
	"github.com/pdiddy/nots-builder/internal/logx"
	"github.com/pdiddy/nots-builder/internal/workspace"
)

var extractDepsCmd = &cobra.Command{
	Use:   "extract-deps <module-dir>",
	Short: "Extract the output archives of a module's workspace dependencies",
	Long: `Extract-deps walks the workspace dependency graph of module-dir (declared
through workspace: and file: specs in package.json) and extracts each
dependency's output archive into the dependency's own directory. Every
module is extracted at most once.

The module's own archive is left alone unless --include-root is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		includeRoot, _ := cmd.Flags().GetBool("include-root")

		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		fs := afero.NewOsFs()
		walker := extract.NewWalker(fs, workspace.NewProvider(fs))
		visited := extract.NewVisited()
		p := logx.Start(logx.FromContext(ctx))

		if includeRoot {
			err = walker.ExtractAll(ctx, root, visited)
		} else {
			err = walker.ExtractDependencies(ctx, root, visited)
		}
		if err != nil {
			return err
		}
		p.Done("extracted dependency outputs", "module", root, "modules", len(visited))
		return nil
	},
}

func init() {
	extractDepsCmd.Flags().Bool("include-root", false, "also extract the module's own output archive")

	rootCmd.AddCommand(extractDepsCmd)
}
