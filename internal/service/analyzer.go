package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lorios22/twitter-news-classifier/internal/agent"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/lorios22/twitter-news-classifier/internal/memory"
	"github.com/lorios22/twitter-news-classifier/internal/signal"
	"go.uber.org/zap"
)

var ErrInvalidItem = errors.New("invalid content item")

// Analyzer runs the full pipeline for one content item: priors, the
// independent and dependent phases, consolidation, escalation and memory.
type Analyzer struct {
	plan         *agent.Plan
	scheduler    *Scheduler
	dependent    *DependentExecutor
	consolidator *Consolidator
	memory       *memory.Store
	recorder     *Recorder
	logger       *zap.Logger
}

func NewAnalyzer(plan *agent.Plan, scheduler *Scheduler, dependent *DependentExecutor, consolidator *Consolidator, mem *memory.Store, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		plan:         plan,
		scheduler:    scheduler,
		dependent:    dependent,
		consolidator: consolidator,
		memory:       mem,
		recorder:     NewRecorder(mem, logger),
		logger:       logger,
	}
}

func (a *Analyzer) Plan() *agent.Plan {
	return a.plan
}

// Analyze always returns a well-formed run for a valid item. Only structural
// problems with the item itself are returned as errors.
func (a *Analyzer) Analyze(ctx context.Context, item *domain.ContentItem) (*domain.AnalysisRun, error) {
	if item == nil {
		return nil, fmt.Errorf("%w: nil item", ErrInvalidItem)
	}
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidItem, err)
	}

	start := time.Now()
	run := &domain.AnalysisRun{
		RunID:         uuid.New(),
		ContentItemID: item.ID,
		AuthorKey:     item.AuthorKey(),
		StartedAt:     start.UTC(),
	}

	priors := a.loadPriors(ctx, item)
	inv := domain.Invocation{
		Item:    item,
		Context: item.ContextBlob(),
		Priors:  priors,
	}

	outcomes := a.scheduler.RunIndependent(ctx, a.plan.Independent, inv)
	for name, o := range a.dependent.RunDependent(ctx, a.plan.Dependent, inv, outcomes) {
		outcomes[name] = o
	}
	run.Outcomes = outcomes

	run.Consolidation = a.consolidator.Consolidate(outcomes, a.plan.Weights(), priors)
	run.EscalationReasons = escalationReasons(outcomes)
	run.EscalationRequired = len(run.EscalationReasons) > 0
	run.OverallStatus = overallStatus(outcomes, run.Consolidation)
	run.QualityLevel = domain.QualityLevelFor(run.Consolidation.FinalScore)
	run.TotalLatencyMs = time.Since(start).Milliseconds()

	if err := a.recorder.Record(ctx, item, outcomes); err != nil {
		a.logger.Warn("memory recording incomplete", zap.String("item_id", item.ID), zap.Error(err))
	}

	a.logger.Info("analysis complete",
		zap.String("item_id", item.ID),
		zap.String("run_id", run.RunID.String()),
		zap.Float64("final_score", run.Consolidation.FinalScore),
		zap.String("status", string(run.OverallStatus)),
		zap.Bool("escalation", run.EscalationRequired),
		zap.Int64("latency_ms", run.TotalLatencyMs))
	return run, nil
}

// loadPriors snapshots the memory records agents may read. Reads never fail.
func (a *Analyzer) loadPriors(ctx context.Context, item *domain.ContentItem) domain.Priors {
	author := item.AuthorKey()
	priors := domain.Priors{
		domain.NamespaceSarcasm:  a.memory.Get(ctx, domain.NamespaceSarcasm, author),
		domain.NamespaceSlop:     a.memory.Get(ctx, domain.NamespaceSlop, author),
		domain.NamespaceBanTerms: a.memory.Get(ctx, domain.NamespaceBanTerms, author),
	}
	if topic := signal.Topic(item.Text); topic != "" {
		priors[domain.NamespaceEcho] = a.memory.Get(ctx, domain.NamespaceEcho, topic)
	}
	return priors
}

func escalationReasons(outcomes map[string]domain.AgentOutcome) []string {
	var reasons []string
	if rec, ok := signalRecord(outcomes, agent.LatencyGuard); ok && rec.Bool("repriced") {
		reasons = append(reasons, fmt.Sprintf("%s: %s moved %.2f%% %ds before publication",
			agent.LatencyGuard, rec.String("asset_symbol"), rec.FloatOr("price_change_pct", 0), int64(rec.FloatOr("delta_seconds", 0))))
	}
	if rec, ok := signalRecord(outcomes, agent.BannedPhraseSkeptic); ok && rec.Bool("escalate") {
		detail := strings.Join(rec.Strings("escalation_reasons"), ", ")
		if detail == "" {
			detail = "editorial review requested"
		}
		reasons = append(reasons, agent.BannedPhraseSkeptic+": "+detail)
	}
	return reasons
}

func overallStatus(outcomes map[string]domain.AgentOutcome, c *domain.ConsolidationResult) domain.RunStatus {
	ok := 0
	for _, o := range outcomes {
		if o.Succeeded() {
			ok++
		}
	}
	switch {
	case ok == 0:
		return domain.RunFailed
	case ok < len(outcomes) || c.HasFlag(domain.FlagConsolidationError):
		return domain.RunPartial
	default:
		return domain.RunSuccess
	}
}
