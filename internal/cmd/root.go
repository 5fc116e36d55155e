// Package cmd implements the classifier command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/lorios22/twitter-news-classifier/internal/bootstrap"
	"github.com/lorios22/twitter-news-classifier/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "classifier",
	Short: "Score social posts with a panel of analysis agents",
	Long: `classifier runs each post through independent and dependent analysis
agents, consolidates their scores and keeps per-author and per-topic memory
between runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Load()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	logger, err := bootstrap.NewLogger(config.LogLevel())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
