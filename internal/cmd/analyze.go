package cmd

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/bootstrap"
	"github.com/lorios22/twitter-news-classifier/internal/config"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/lorios22/twitter-news-classifier/internal/service"
	"github.com/lorios22/twitter-news-classifier/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	analyzeInput      string
	analyzeOutput     string
	analyzeBatchSize  int
	analyzeMaxRetries int
	analyzeRetryDelay time.Duration
	analyzeFailFast   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a file of posts",
	Long: `Analyze every post in an input file and print a batch summary. The input
is a JSON array of posts or an object with a "tweets" array. Runs and the
batch report are written to the configured run store, or to --output.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeInput, "input", "i", "", "Path to the input JSON file")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Directory for run files (default: RUNS_DIR)")
	analyzeCmd.Flags().IntVar(&analyzeBatchSize, "batch-size", 0, "Items per sub-batch (default: BATCH_SIZE)")
	analyzeCmd.Flags().IntVar(&analyzeMaxRetries, "max-retries", -1, "Retries per failed item (default: MAX_RETRIES)")
	analyzeCmd.Flags().DurationVar(&analyzeRetryDelay, "retry-delay", -1, "Delay between retries (default: RETRY_DELAY)")
	analyzeCmd.Flags().BoolVar(&analyzeFailFast, "fail-fast", false, "Abort the batch on the first item that exhausts its retries")
	_ = analyzeCmd.MarkFlagRequired("input")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	items, err := loadItems(analyzeInput)
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Open(ctx, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	batches := rt.Batches
	if analyzeOutput != "" {
		batches = service.NewBatchManager(rt.Analyzer, store.NewFileRunRepository(analyzeOutput), logger)
	}

	policy := analyzePolicy(config.RetryPolicy())
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Analyzing %d items with %d agents\n", len(items), rt.Plan.Len())

	report, err := batches.ProcessBatch(ctx, items, policy)
	if report != nil {
		printReport(out, report)
	}
	if err != nil {
		if errors.Is(err, service.ErrBatchAborted) {
			logger.Warn("batch aborted", zap.Error(err))
		}
		return err
	}
	if report.Status == domain.RunFailed {
		return errors.New("every item failed")
	}
	return nil
}

func analyzePolicy(p domain.RetryPolicy) domain.RetryPolicy {
	if analyzeBatchSize > 0 {
		p.BatchSize = analyzeBatchSize
	}
	if analyzeMaxRetries >= 0 {
		p.MaxRetries = analyzeMaxRetries
	}
	if analyzeRetryDelay >= 0 {
		p.RetryDelay = analyzeRetryDelay
	}
	if analyzeFailFast {
		p.ContinueOnFailure = false
	}
	return p
}

func printReport(w io.Writer, r *domain.BatchReport) {
	fmt.Fprintf(w, "\nBatch %s: %s\n", r.BatchID, r.Status)
	fmt.Fprintf(w, "  Processed: %d  Succeeded: %d  Failed: %d  Retries: %d  Agent errors: %d\n",
		r.Stats.Processed, r.Stats.Succeeded, r.Stats.Failed, r.Stats.RetriesAttempted, r.Stats.APIErrors)
	if r.Aborted {
		fmt.Fprintln(w, "  Aborted after a failed item")
	}

	s := r.Summary
	if r.Stats.Succeeded > 0 {
		fmt.Fprintf(w, "  Average score: %.2f  (high %d, medium %d, low %d)\n",
			s.AverageScore, s.Distribution.High, s.Distribution.Medium, s.Distribution.Low)
		fmt.Fprintf(w, "  Escalations: %d  Average latency: %dms\n", s.Escalations, s.AverageLatencyMs)
	}

	for _, run := range r.Runs {
		fmt.Fprintf(w, "  %-22s %5.2f  %-9s %s\n", run.ContentItemID, run.FinalScore(), run.QualityLevel, run.OverallStatus)
	}
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  %-22s failed after %d attempts: %s\n", f.ItemID, f.Attempts, f.Error)
	}
	fmt.Fprintf(w, "  Duration: %s\n", r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond))
}
