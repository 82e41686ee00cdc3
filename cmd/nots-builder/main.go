// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the nots-builder CLI. Each builder
// is a subcommand invoked by the build system for one module; the
// remaining subcommands expose the dependency extraction, node_modules
// and history steps on their own.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/nots-builder/internal/logx"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the nots-builder CLI.
var rootCmd = &cobra.Command{
	Use:   "nots-builder",
	Short: "Build TypeScript workspace modules",
	Long: `nots-builder runs the Node.js tool of one workspace module (tsc, webpack,
vite, next) inside its build directory and packs the result into an output
archive.

Before the tool runs, node_modules is unpacked from the workspace bundle and
the output archives of every workspace dependency are extracted, so the tool
sees its dependencies' build results in place.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger := logx.New(os.Stderr, viper.GetBool("verbose"))
		cmd.SetContext(logx.WithLogger(cmd.Context(), logger))
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./nots-builder.yaml or ~/.config/nots-builder/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("node", "", "node binary (default: node from PATH)")
	rootCmd.PersistentFlags().String("history-dir", "", "record builds in a history database under this directory")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("node", rootCmd.PersistentFlags().Lookup("node"))
	_ = viper.BindPFlag("history.dir", rootCmd.PersistentFlags().Lookup("history-dir"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("nots-builder")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "nots-builder"))
		}
	}

	viper.SetEnvPrefix("NOTS_BUILDER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
