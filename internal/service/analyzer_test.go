package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/agent"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/lorios22/twitter-news-classifier/internal/memory"
	"github.com/lorios22/twitter-news-classifier/internal/signal"
	"github.com/lorios22/twitter-news-classifier/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func scripted(name string, weight float64, group domain.AgentGroup, fn func(context.Context, domain.Invocation) (string, error)) agent.Task {
	return agent.Task{Name: name, Weight: weight, Group: group, Timeout: time.Second, Invoker: domain.InvokerFunc(fn)}
}

func newTestAnalyzer(t *testing.T, tasks ...agent.Task) (*Analyzer, *memory.Store) {
	t.Helper()
	reg := agent.NewRegistry()
	for _, task := range tasks {
		require.NoError(t, reg.Register(task))
	}
	logger := zap.NewNop()
	mem := memory.NewStore(store.NewMemoryKV(), logger)
	a := NewAnalyzer(
		reg.Plan(),
		NewScheduler(5*time.Second, logger),
		NewDependentExecutor(logger),
		NewConsolidator(DefaultConsolidatorConfig(), logger),
		mem,
		logger,
	)
	return a, mem
}

func testItem() *domain.ContentItem {
	return &domain.ContentItem{
		ID:             "1790000000000000001",
		Text:           "Ethereum validators processed 1.2M deposits this week according to beaconcha.in data",
		AuthorID:       "42",
		AuthorUsername: "alice",
		CreatedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAnalyzer_Analyze(t *testing.T) {
	var mu sync.Mutex
	var dependentSaw []string
	a, mem := newTestAnalyzer(t,
		scripted("context_evaluator", 0.5, domain.GroupIndependent, replyWith(`{"agent_score": 8}`)),
		scripted("depth_analyzer", 0.5, domain.GroupIndependent, replyWith(`{"agent_score": 6}`)),
		agent.Task{Name: agent.SlopFilter, Weight: 0, Group: domain.GroupIndependent, Timeout: time.Second, Invoker: signal.Slop{}},
		scripted("validator", 0, domain.GroupDependent, func(_ context.Context, inv domain.Invocation) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			for name := range inv.Outcomes {
				dependentSaw = append(dependentSaw, name)
			}
			return `{"agent_score": 7}`, nil
		}),
	)

	run, err := a.Analyze(context.Background(), testItem())
	require.NoError(t, err)

	assert.Len(t, run.Outcomes, 4)
	assert.Len(t, dependentSaw, 3)
	assert.Equal(t, domain.RunSuccess, run.OverallStatus)
	assert.Equal(t, "1790000000000000001", run.ContentItemID)
	assert.Equal(t, "42", run.AuthorKey)
	assert.Equal(t, 7.0, run.Consolidation.BaseScore)
	assert.Equal(t, 2, run.Consolidation.ContributingAgents)
	assert.False(t, run.EscalationRequired)
	assert.Equal(t, domain.QualityLevelFor(run.Consolidation.FinalScore), run.QualityLevel)

	slop := mem.Get(context.Background(), domain.NamespaceSlop, "42")
	assert.True(t, slop.Exists(), "slop fingerprint should be recorded")
	assert.Equal(t, 1.0, slop.Fields.FloatOr("count", 0))
}

func TestAnalyzer_PriorsCarryAcrossRuns(t *testing.T) {
	var mu sync.Mutex
	var seen []float64
	a, _ := newTestAnalyzer(t,
		agent.Task{Name: agent.SlopFilter, Weight: 0.5, Group: domain.GroupIndependent, Timeout: time.Second, Invoker: signal.Slop{}},
		scripted("observer", 0.5, domain.GroupIndependent, func(_ context.Context, inv domain.Invocation) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, inv.Priors.Fields(domain.NamespaceSlop).FloatOr("count", 0))
			return `{"agent_score": 6}`, nil
		}),
	)

	for i := 0; i < 3; i++ {
		_, err := a.Analyze(context.Background(), testItem())
		require.NoError(t, err)
	}
	assert.Equal(t, []float64{0, 1, 2}, seen)
}

func TestAnalyzer_Escalation(t *testing.T) {
	a, mem := newTestAnalyzer(t,
		scripted("context_evaluator", 1, domain.GroupIndependent, replyWith(`{"agent_score": 6}`)),
		scripted(agent.LatencyGuard, 0, domain.GroupIndependent, replyWith(
			`{"asset_symbol": "BTC", "repriced": true, "delta_seconds": 300, "price_change_pct": 4.2, "agent_score": 3}`)),
		scripted(agent.BannedPhraseSkeptic, 0, domain.GroupIndependent, replyWith(
			`{"escalate": true, "escalation_reasons": ["inappropriate language"], "tone_penalty": 0.2, "violations": [], "agent_score": 8.4}`)),
	)

	run, err := a.Analyze(context.Background(), testItem())
	require.NoError(t, err)

	assert.True(t, run.EscalationRequired)
	assert.Equal(t, []string{
		"latency_guard: BTC moved 4.20% 300s before publication",
		"banned_phrase_skeptic: inappropriate language",
	}, run.EscalationReasons)
	assert.True(t, run.Consolidation.HasFlag(domain.FlagTemporalMisalignment))
	assert.Equal(t, 6.0, run.Consolidation.FinalScore, "escalation never short-circuits scoring")

	flags, err := mem.Query(context.Background(), domain.NamespaceLatency, nil)
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, "20250601_120000", flags[0].EntityKey)
	assert.Equal(t, "BTC", flags[0].Fields.String("asset"))
}

func TestAnalyzer_OverallStatus(t *testing.T) {
	failing := func(context.Context, domain.Invocation) (string, error) {
		return "", errors.New("provider down")
	}

	t.Run("partial", func(t *testing.T) {
		a, _ := newTestAnalyzer(t,
			scripted("a", 0.5, domain.GroupIndependent, replyWith(`{"agent_score": 6}`)),
			scripted("b", 0.5, domain.GroupIndependent, failing),
		)
		run, err := a.Analyze(context.Background(), testItem())
		require.NoError(t, err)
		assert.Equal(t, domain.RunPartial, run.OverallStatus)
		assert.Equal(t, 6.0, run.Consolidation.FinalScore)
	})

	t.Run("failed", func(t *testing.T) {
		a, _ := newTestAnalyzer(t,
			scripted("a", 0.5, domain.GroupIndependent, failing),
			scripted("b", 0.5, domain.GroupIndependent, failing),
		)
		run, err := a.Analyze(context.Background(), testItem())
		require.NoError(t, err, "a degraded run is still a result")
		assert.Equal(t, domain.RunFailed, run.OverallStatus)
		assert.Equal(t, domain.NeutralScore, run.Consolidation.FinalScore)
		assert.True(t, run.Consolidation.HasFlag(domain.FlagNoValidScores))
	})
}

func TestAnalyzer_InvalidItem(t *testing.T) {
	a, _ := newTestAnalyzer(t, scripted("a", 1, domain.GroupIndependent, replyWith(`{}`)))

	_, err := a.Analyze(context.Background(), &domain.ContentItem{ID: "1", Text: "   "})
	assert.ErrorIs(t, err, ErrInvalidItem)
	assert.ErrorIs(t, err, domain.ErrItemTextEmpty)

	_, err = a.Analyze(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidItem)
}
