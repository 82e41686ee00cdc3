// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/nots-builder/internal/builder"
	"github.com/pdiddy/nots-builder/pkg/types"
)

var buildWebpackCmd = &cobra.Command{
	Use:   "build-webpack",
	Short: "Bundle a module with webpack and pack its output",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := bundlerOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		return runBuild(cmd, builder.NewWebpack(opts, builder.DefaultSystem()))
	},
}

var buildViteCmd = &cobra.Command{
	Use:   "build-vite",
	Short: "Bundle a module with vite and pack its output",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := bundlerOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		return runBuild(cmd, builder.NewVite(opts, builder.DefaultSystem()))
	},
}

func bundlerOptionsFromFlags(cmd *cobra.Command) (types.BundlerOptions, error) {
	base, err := builderOptionsFromFlags(cmd)
	if err != nil {
		return types.BundlerOptions{}, err
	}
	config, _ := cmd.Flags().GetString("bundler-config")
	outputDirs, _ := cmd.Flags().GetStringSlice("output-dir")
	return types.BundlerOptions{
		BuilderOptions: base,
		BundlerConfig:  config,
		OutputDirs:     outputDirs,
	}, nil
}

func addBundlerFlags(cmd *cobra.Command) {
	addBuilderFlags(cmd)
	addOutputDirFlag(cmd)
	cmd.Flags().String("bundler-config", "", "bundler config file, relative to --bindir")
}

func init() {
	addBundlerFlags(buildWebpackCmd)
	addBundlerFlags(buildViteCmd)

	rootCmd.AddCommand(buildWebpackCmd)
	rootCmd.AddCommand(buildViteCmd)
}
