package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/bootstrap"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/spf13/cobra"
)

var pruneDays int

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and maintain the agent memory store",
}

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print memory statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(rt *bootstrap.Runtime) error {
			stats, err := rt.Memory.Statistics(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, stats)
		})
	},
}

var memoryExportCmd = &cobra.Command{
	Use:       "export <namespace>",
	Short:     "Print every record in a namespace as JSON",
	Args:      cobra.ExactArgs(1),
	ValidArgs: namespaceNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(rt *bootstrap.Runtime) error {
			records, err := rt.Memory.Export(cmd.Context(), domain.Namespace(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd, records)
		})
	},
}

var memoryPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete memory records older than --days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pruneDays < 0 {
			return fmt.Errorf("--days must not be negative")
		}
		return withStorage(cmd, func(rt *bootstrap.Runtime) error {
			removed, err := rt.Pruner.Prune(cmd.Context(), time.Duration(pruneDays)*24*time.Hour)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records\n", removed)
			return nil
		})
	},
}

func init() {
	memoryPruneCmd.Flags().IntVar(&pruneDays, "days", 0, "Retention in days (default: MEMORY_RETENTION_DAYS)")

	memoryCmd.AddCommand(memoryStatsCmd, memoryExportCmd, memoryPruneCmd)
	rootCmd.AddCommand(memoryCmd)
}

func withStorage(cmd *cobra.Command, fn func(rt *bootstrap.Runtime) error) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rt, err := bootstrap.OpenStorage(cmd.Context(), logger)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func namespaceNames() []string {
	out := make([]string, len(domain.Namespaces))
	for i, ns := range domain.Namespaces {
		out[i] = string(ns)
	}
	return out
}
