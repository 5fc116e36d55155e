package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrBatchAborted = errors.New("batch aborted after item failure")

// ItemAnalyzer runs the pipeline for one item.
type ItemAnalyzer interface {
	Analyze(ctx context.Context, item *domain.ContentItem) (*domain.AnalysisRun, error)
}

// BatchManager processes items in sub-batches and retries structural
// failures. Degraded runs are successes; only load and validation errors
// are retried.
type BatchManager struct {
	analyzer ItemAnalyzer
	runs     domain.RunRepository
	logger   *zap.Logger
}

// NewBatchManager builds a manager. runs may be nil to skip persistence.
func NewBatchManager(analyzer ItemAnalyzer, runs domain.RunRepository, logger *zap.Logger) *BatchManager {
	return &BatchManager{analyzer: analyzer, runs: runs, logger: logger}
}

type itemResult struct {
	started bool
	run     *domain.AnalysisRun
	failure *domain.ItemFailure
	retries int
}

// ProcessBatch processes items under a fresh batch id.
func (m *BatchManager) ProcessBatch(ctx context.Context, items []domain.ItemSource, policy domain.RetryPolicy) (*domain.BatchReport, error) {
	return m.Process(ctx, uuid.New(), items, policy)
}

// Process always returns a report. The error is ErrBatchAborted when an
// exhausted item stopped the batch, or the context error when cancelled.
func (m *BatchManager) Process(ctx context.Context, batchID uuid.UUID, items []domain.ItemSource, policy domain.RetryPolicy) (*domain.BatchReport, error) {
	report := &domain.BatchReport{
		BatchID:   batchID,
		StartedAt: time.Now().UTC(),
		Policy:    policy,
		Runs:      []*domain.AnalysisRun{},
		Failures:  []domain.ItemFailure{},
	}

	size := policy.BatchSize
	if size <= 0 {
		size = len(items)
	}
	m.logger.Info("batch started",
		zap.String("batch_id", batchID.String()),
		zap.Int("items", len(items)),
		zap.Int("batch_size", size),
		zap.Int("max_retries", policy.MaxRetries))

	var batchErr error
	var aborted atomic.Bool
	for start := 0; start < len(items) && batchErr == nil; start += size {
		if start > 0 {
			if err := sleepCtx(ctx, policy.BatchPause); err != nil {
				batchErr = err
				break
			}
		}
		end := min(start+size, len(items))
		chunk := items[start:end]
		results := make([]itemResult, len(chunk))

		var g errgroup.Group
		g.SetLimit(max(1, policy.Concurrency))
		for i, src := range chunk {
			i, src := i, src
			g.Go(func() error {
				if aborted.Load() || ctx.Err() != nil {
					return nil
				}
				results[i] = m.processItem(ctx, batchID, src, policy)
				if results[i].failure != nil && !policy.ContinueOnFailure {
					aborted.Store(true)
				}
				return nil
			})
		}
		_ = g.Wait()

		for _, res := range results {
			if !res.started {
				continue
			}
			report.Stats.Processed++
			report.Stats.RetriesAttempted += res.retries
			if res.failure != nil {
				report.Stats.Failed++
				report.Failures = append(report.Failures, *res.failure)
				continue
			}
			report.Stats.Succeeded++
			report.Stats.APIErrors += failedOutcomes(res.run)
			report.Runs = append(report.Runs, res.run)
		}

		switch {
		case aborted.Load():
			batchErr = ErrBatchAborted
		case ctx.Err() != nil:
			batchErr = ctx.Err()
		}
	}

	report.Aborted = errors.Is(batchErr, ErrBatchAborted)
	report.CompletedAt = time.Now().UTC()
	report.Summary = summarize(report.Runs)
	report.Status = domain.RunFailed
	if report.Stats.Succeeded > 0 {
		report.Status = domain.RunSuccess
	}

	if m.runs != nil {
		// the report is saved even when the caller's context is gone
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		if err := m.runs.SaveReport(saveCtx, report); err != nil {
			m.logger.Error("failed to save batch report", zap.String("batch_id", batchID.String()), zap.Error(err))
		}
		cancel()
	}

	m.logger.Info("batch finished",
		zap.String("batch_id", batchID.String()),
		zap.Int("processed", report.Stats.Processed),
		zap.Int("succeeded", report.Stats.Succeeded),
		zap.Int("failed", report.Stats.Failed),
		zap.Bool("aborted", report.Aborted))
	return report, batchErr
}

// processItem makes 1+MaxRetries attempts, waiting RetryDelay between them.
func (m *BatchManager) processItem(ctx context.Context, batchID uuid.UUID, src domain.ItemSource, policy domain.RetryPolicy) itemResult {
	attempts := 1 + max(0, policy.MaxRetries)
	res := itemResult{started: true}

	var lastErr error
	attempt := 0
	for attempt < attempts {
		if attempt > 0 {
			if err := sleepCtx(ctx, policy.RetryDelay); err != nil {
				lastErr = err
				break
			}
			res.retries++
		}
		attempt++

		run, err := m.attempt(ctx, src)
		if err == nil {
			res.run = run
			if policy.SaveIntermediate && m.runs != nil {
				if err := m.runs.SaveRun(ctx, batchID, run); err != nil {
					m.logger.Warn("failed to save intermediate run",
						zap.String("item_id", src.ItemID()), zap.Error(err))
				}
			}
			return res
		}

		lastErr = err
		m.logger.Warn("item attempt failed",
			zap.String("item_id", src.ItemID()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}

	m.logger.Error("item failed after retries",
		zap.String("item_id", src.ItemID()), zap.Int("attempts", attempt), zap.Error(lastErr))
	res.failure = &domain.ItemFailure{
		ItemID:   src.ItemID(),
		Attempts: attempt,
		Error:    lastErr.Error(),
	}
	return res
}

func (m *BatchManager) attempt(ctx context.Context, src domain.ItemSource) (*domain.AnalysisRun, error) {
	item, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load item %s: %w", src.ItemID(), err)
	}
	return m.analyzer.Analyze(ctx, item)
}

func failedOutcomes(run *domain.AnalysisRun) int {
	n := 0
	for _, o := range run.Outcomes {
		if o.Status == domain.OutcomeFailed {
			n++
		}
	}
	return n
}

func summarize(runs []*domain.AnalysisRun) domain.BatchSummary {
	s := domain.BatchSummary{
		QualityLevels:   map[domain.QualityLevel]int{},
		ConfidenceTiers: map[domain.ConfidenceTier]int{},
	}
	if len(runs) == 0 {
		return s
	}

	var total float64
	var latency int64
	for _, r := range runs {
		score := r.FinalScore()
		total += score
		latency += r.TotalLatencyMs

		switch {
		case score >= 8:
			s.Distribution.High++
		case score >= 6:
			s.Distribution.Medium++
		default:
			s.Distribution.Low++
		}
		s.QualityLevels[domain.QualityLevelFor(score)]++
		if r.Consolidation != nil {
			s.ConfidenceTiers[r.Consolidation.ConfidenceTier]++
		}
		if r.EscalationRequired {
			s.Escalations++
		}
	}
	s.AverageScore = total / float64(len(runs))
	s.AverageLatencyMs = latency / int64(len(runs))
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
