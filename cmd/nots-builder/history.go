// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/nots-builder/internal/history"
	"github.com/pdiddy/nots-builder/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded builds (list, export)",
	Long: `History reads the build ledger written by the build-* commands when
--history-dir (or history.dir in the config file) is set.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded builds, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(cmd.Context(), historyQueryFromFlags(cmd))
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatHistory(cmd.OutOrStdout(), records, jsonOutput)
}

func formatHistory(w io.Writer, records []types.BuildRecord, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No builds recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-20s  %-8s  %-9s  %-10s  %s\n", "Started", "Builder", "Status", "Duration", "Module")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, r := range records {
		status := string(r.Status)
		if r.ExitCode != 0 {
			status = fmt.Sprintf("%s(%d)", status, r.ExitCode)
		}
		fmt.Fprintf(w, "%-20s  %-8s  %-9s  %-10s  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Builder, status,
			r.Duration.Round(10*time.Millisecond).String(), r.Module)
	}
	fmt.Fprintf(w, "\n%d builds\n", len(records))
	return nil
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded builds to YAML or JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		w := cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		q := historyQueryFromFlags(cmd)
		if q.Limit == 0 {
			q.Limit = -1
		}
		return store.Export(cmd.Context(), w, q, format)
	},
}

func openHistory() (*history.Store, error) {
	dir := viper.GetString("history.dir")
	if dir == "" {
		return nil, errors.New("no history directory: set --history-dir or history.dir")
	}
	return history.NewStore(dir)
}

func historyQueryFromFlags(cmd *cobra.Command) history.Query {
	module, _ := cmd.Flags().GetString("module")
	builderName, _ := cmd.Flags().GetString("builder")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	return history.Query{
		Module:  module,
		Builder: builderName,
		Status:  types.BuildStatus(status),
		Limit:   limit,
	}
}

func init() {
	// Filters shared by both subcommands.
	historyCmd.PersistentFlags().String("module", "", "filter by module build directory")
	historyCmd.PersistentFlags().String("builder", "", "filter by builder: package, tsc, webpack, vite, next")
	historyCmd.PersistentFlags().String("status", "", "filter by status: succeeded or failed")
	historyCmd.PersistentFlags().Int("limit", 0, "maximum records (0 = default)")

	historyListCmd.Flags().Bool("json", false, "output records as JSON")

	historyExportCmd.Flags().String("format", history.FormatYAML, "export format: yaml or json")
	historyExportCmd.Flags().String("output", "", "write to file instead of stdout")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}
