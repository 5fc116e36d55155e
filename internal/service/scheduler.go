package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/agent"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/lorios22/twitter-news-classifier/internal/parser"
	"go.uber.org/zap"
)

const DefaultAggregateTimeout = 300 * time.Second

// Scheduler runs the independent agent set concurrently. Every task yields
// exactly one outcome: failures and timeouts become placeholder outcomes and
// never abort sibling tasks.
type Scheduler struct {
	aggregate time.Duration
	logger    *zap.Logger
}

func NewScheduler(aggregate time.Duration, logger *zap.Logger) *Scheduler {
	if aggregate <= 0 {
		aggregate = DefaultAggregateTimeout
	}
	return &Scheduler{aggregate: aggregate, logger: logger}
}

type taskResult struct {
	name    string
	outcome domain.AgentOutcome
}

// RunIndependent launches every task at once and collects their outcomes.
// When the aggregate deadline passes, tasks still running are force-completed
// with a timeout outcome and their invocations are cancelled.
func (s *Scheduler) RunIndependent(ctx context.Context, tasks []agent.Task, inv domain.Invocation) map[string]domain.AgentOutcome {
	ctx, cancel := context.WithTimeout(ctx, s.aggregate)
	defer cancel()

	inv.Outcomes = map[string]domain.AgentOutcome{}
	start := time.Now()
	results := make(chan taskResult, len(tasks))
	for _, t := range tasks {
		go func(t agent.Task) {
			results <- taskResult{name: t.Name, outcome: runTask(ctx, t, inv, s.logger)}
		}(t)
	}

	outcomes := make(map[string]domain.AgentOutcome, len(tasks))
	for len(outcomes) < len(tasks) {
		select {
		case r := <-results:
			outcomes[r.name] = r.outcome
		case <-ctx.Done():
			for _, t := range tasks {
				if _, ok := outcomes[t.Name]; ok {
					continue
				}
				s.logger.Warn("agent force-completed at aggregate deadline",
					zap.String("agent", t.Name), zap.Duration("aggregate", s.aggregate))
				outcomes[t.Name] = domain.TimeoutOutcome(t.Name, time.Since(start))
			}
			return outcomes
		}
	}

	s.logger.Debug("independent phase complete",
		zap.Int("agents", len(tasks)), zap.Duration("elapsed", time.Since(start)))
	return outcomes
}

type invokeReply struct {
	raw string
	err error
}

// runTask invokes one agent under its own timeout. The invocation runs in its
// own goroutine so an agent that ignores cancellation is abandoned rather
// than awaited; panics are recovered into failed outcomes.
func runTask(ctx context.Context, t agent.Task, inv domain.Invocation, logger *zap.Logger) domain.AgentOutcome {
	start := time.Now()
	tctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	replies := make(chan invokeReply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				replies <- invokeReply{err: fmt.Errorf("agent panicked: %v", r)}
			}
		}()
		raw, err := t.Invoker.Invoke(tctx, inv)
		replies <- invokeReply{raw: raw, err: err}
	}()

	select {
	case <-tctx.Done():
		logger.Warn("agent timed out", zap.String("agent", t.Name), zap.Duration("timeout", t.Timeout))
		return domain.TimeoutOutcome(t.Name, time.Since(start))
	case r := <-replies:
		elapsed := time.Since(start)
		if r.err != nil {
			if tctx.Err() != nil && errors.Is(r.err, context.DeadlineExceeded) {
				logger.Warn("agent timed out", zap.String("agent", t.Name), zap.Duration("timeout", t.Timeout))
				return domain.TimeoutOutcome(t.Name, elapsed)
			}
			logger.Warn("agent failed", zap.String("agent", t.Name), zap.Error(r.err))
			return domain.FailedOutcome(t.Name, elapsed, r.err)
		}
		return domain.AgentOutcome{
			AgentName:  t.Name,
			Status:     domain.OutcomeSuccess,
			Record:     parser.Parse(r.raw, t.Name),
			DurationMs: elapsed.Milliseconds(),
		}
	}
}
