// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pdiddy/nots-builder/internal/nodemodules"
)

var nodeModulesCmd = &cobra.Command{
	Use:   "node-modules <bindir>",
	Short: "Unpack node_modules from the workspace bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := nodemodules.Create(cmd.Context(), afero.NewOsFs(), args[0])
		return err
	},
}

func init() {
	rootCmd.AddCommand(nodeModulesCmd)
}
