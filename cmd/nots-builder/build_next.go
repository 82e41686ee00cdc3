// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/nots-builder/internal/builder"
	"github.com/pdiddy/nots-builder/pkg/types"
)

var buildNextCmd = &cobra.Command{
	Use:   "build-next",
	Short: "Build a next.js module and pack its output",
	Long: `Build-next runs "next <next-command>" in the module build directory. The
cache and trace directories next leaves inside each output directory are
moved beside it (<dir>.cache, <dir>.trace) before packing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := bundlerOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		nextCommand, _ := cmd.Flags().GetString("next-command")

		b := builder.NewNext(types.NextOptions{
			BundlerOptions: opts,
			NextCommand:    nextCommand,
		}, builder.DefaultSystem())
		return runBuild(cmd, b)
	},
}

func init() {
	addBundlerFlags(buildNextCmd)
	buildNextCmd.Flags().String("next-command", types.DefaultNextCommand, "next subcommand to run")

	rootCmd.AddCommand(buildNextCmd)
}
