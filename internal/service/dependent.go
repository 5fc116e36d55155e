package service

import (
	"context"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/agent"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"go.uber.org/zap"
)

// DependentExecutor runs meta-agents one at a time in registration order.
type DependentExecutor struct {
	logger *zap.Logger
}

func NewDependentExecutor(logger *zap.Logger) *DependentExecutor {
	return &DependentExecutor{logger: logger}
}

// RunDependent returns the dependent outcomes only. Each task sees a snapshot
// of prior plus every dependent outcome produced before it.
func (e *DependentExecutor) RunDependent(ctx context.Context, tasks []agent.Task, inv domain.Invocation, prior map[string]domain.AgentOutcome) map[string]domain.AgentOutcome {
	all := make(map[string]domain.AgentOutcome, len(prior)+len(tasks))
	for k, v := range prior {
		all[k] = v
	}

	start := time.Now()
	outcomes := make(map[string]domain.AgentOutcome, len(tasks))
	for _, t := range tasks {
		inv.Outcomes = snapshot(all)
		o := runTask(ctx, t, inv, e.logger)
		all[t.Name] = o
		outcomes[t.Name] = o
	}

	e.logger.Debug("dependent phase complete",
		zap.Int("agents", len(tasks)), zap.Duration("elapsed", time.Since(start)))
	return outcomes
}

func snapshot(m map[string]domain.AgentOutcome) map[string]domain.AgentOutcome {
	out := make(map[string]domain.AgentOutcome, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
