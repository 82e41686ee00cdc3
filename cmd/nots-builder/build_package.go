// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/nots-builder/internal/builder"
	"github.com/pdiddy/nots-builder/pkg/types"
)

var buildPackageCmd = &cobra.Command{
	Use:   "build-package",
	Short: "Prepare a plain package module without running a tool",
	Long: `Build-package copies package.json into the build directory, restores
node_modules and the outputs of workspace dependencies. With
--with-after-build the after-build directory is packed into the output
archive; otherwise an empty output file is left behind.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := builderOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		withAfterBuild, _ := cmd.Flags().GetBool("with-after-build")
		afterBuildOutDir, _ := cmd.Flags().GetString("after-build-outdir")

		b := builder.NewPackage(types.PackageOptions{
			BuilderOptions:   base,
			WithAfterBuild:   withAfterBuild,
			AfterBuildOutDir: afterBuildOutDir,
		}, builder.DefaultSystem())
		return runBuild(cmd, b)
	},
}

func init() {
	addBuilderFlags(buildPackageCmd)
	buildPackageCmd.Flags().Bool("with-after-build", false, "pack the after-build output directory")
	buildPackageCmd.Flags().String("after-build-outdir", "", "after-build output directory, relative to --bindir")

	rootCmd.AddCommand(buildPackageCmd)
}
