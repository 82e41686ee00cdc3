// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/nots-builder/internal/builder"
	"github.com/pdiddy/nots-builder/pkg/types"
)

var buildTscCmd = &cobra.Command{
	Use:   "build-tsc",
	Short: "Compile a module with tsc and pack its output",
	Long: `Build-tsc runs "tsc --project <ts-config>" in the module build directory
after restoring node_modules and the outputs of workspace dependencies. The
compiler output directories are packed into the output archive.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := builderOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		tsConfig, _ := cmd.Flags().GetString("ts-config")
		outputDirs, _ := cmd.Flags().GetStringSlice("output-dir")

		b := builder.NewTsc(types.TscOptions{
			BuilderOptions: base,
			TsConfig:       tsConfig,
			OutputDirs:     outputDirs,
		}, builder.DefaultSystem())
		return runBuild(cmd, b)
	},
}

func init() {
	addBuilderFlags(buildTscCmd)
	addOutputDirFlag(buildTscCmd)
	buildTscCmd.Flags().String("ts-config", "tsconfig.json", "tsconfig passed to --project")

	rootCmd.AddCommand(buildTscCmd)
}
