package cmd

import (
	"fmt"

	"github.com/lorios22/twitter-news-classifier/internal/buildconfig"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "classifier version %s\n", buildconfig.Version())
		fmt.Fprintf(cmd.OutOrStdout(), "  Git commit: %s\n", buildconfig.Commit())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
