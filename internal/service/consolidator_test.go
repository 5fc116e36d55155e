package service

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/lorios22/twitter-news-classifier/internal/agent"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/lorios22/twitter-news-classifier/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func succeeded(name string, rec domain.Record) domain.AgentOutcome {
	return domain.AgentOutcome{AgentName: name, Status: domain.OutcomeSuccess, Record: rec}
}

func newTestConsolidator() *Consolidator {
	return NewConsolidator(DefaultConsolidatorConfig(), zap.NewNop())
}

func TestConsolidate_WeightedAverage(t *testing.T) {
	outcomes := map[string]domain.AgentOutcome{
		"context_evaluator": succeeded("context_evaluator", domain.Record{"agent_score": 8.0}),
		"depth_analyzer":    succeeded("depth_analyzer", domain.Record{"agent_score": 6.0}),
	}
	weights := map[string]float64{"context_evaluator": 0.5, "depth_analyzer": 0.5}

	res := newTestConsolidator().Consolidate(outcomes, weights, nil)

	assert.Equal(t, 7.0, res.BaseScore)
	assert.Equal(t, 7.0, res.FinalScore)
	assert.Empty(t, res.Adjustments)
	assert.Empty(t, res.QualityFlags)
	assert.Equal(t, 2, res.ContributingAgents)
	assert.Equal(t, domain.ConfidenceHigh, res.ConfidenceTier)
	assert.Equal(t, "Base score: 7.00 (weighted average of 2 agents) | Final score: 7.00 + +0.00 = 7.00", res.Rationale)
}

func TestConsolidate_FailedAgentsDoNotContribute(t *testing.T) {
	outcomes := map[string]domain.AgentOutcome{
		"a": succeeded("a", domain.Record{"agent_score": 9.0}),
		"b": domain.FailedOutcome("b", 0, nil),
		"c": domain.TimeoutOutcome("c", 0),
	}
	weights := map[string]float64{"a": 0.2, "b": 0.4, "c": 0.4}

	res := newTestConsolidator().Consolidate(outcomes, weights, nil)

	assert.Equal(t, 9.0, res.FinalScore)
	assert.Equal(t, 1, res.ContributingAgents)
}

func TestConsolidate_UnparseableOutputContributesNeutral(t *testing.T) {
	outcomes := map[string]domain.AgentOutcome{
		"a": succeeded("a", parser.Parse("I refuse to answer in JSON", "a")),
		"b": succeeded("b", domain.Record{"agent_score": 9.0}),
	}
	weights := map[string]float64{"a": 0.5, "b": 0.5}

	res := newTestConsolidator().Consolidate(outcomes, weights, nil)

	assert.Equal(t, 7.0, res.FinalScore)
	assert.Equal(t, 2, res.ContributingAgents)
}

func TestConsolidate_NoValidScores(t *testing.T) {
	outcomes := map[string]domain.AgentOutcome{
		"a": domain.FailedOutcome("a", 0, nil),
		"b": domain.TimeoutOutcome("b", 0),
	}
	res := newTestConsolidator().Consolidate(outcomes, map[string]float64{"a": 0.5, "b": 0.5}, nil)

	assert.Equal(t, domain.NeutralScore, res.FinalScore)
	assert.Equal(t, 0, res.ContributingAgents)
	assert.True(t, res.HasFlag(domain.FlagNoValidScores))
	assert.Equal(t, domain.ConfidenceLow, res.ConfidenceTier)
}

func TestConsolidate_SarcasmProtection(t *testing.T) {
	outcomes := map[string]domain.AgentOutcome{
		agent.FactChecker:     succeeded(agent.FactChecker, domain.Record{"agent_score": 2.0}),
		"relevance_analyzer":  succeeded("relevance_analyzer", domain.Record{"agent_score": 6.0}),
		agent.SarcasmSentinel: succeeded(agent.SarcasmSentinel, domain.Record{"agent_score": 8.0, "is_sarcastic": true, "p_sarcasm": 0.9}),
	}
	weights := map[string]float64{agent.FactChecker: 0.5, "relevance_analyzer": 0.5}

	res := newTestConsolidator().Consolidate(outcomes, weights, nil)

	require.Len(t, res.Adjustments, 1)
	adj := res.Adjustments[0]
	assert.Equal(t, domain.AdjustmentBoost, adj.Kind)
	assert.InDelta(t, 1.8, adj.Magnitude, 1e-9)
	assert.Equal(t, 4.0, res.BaseScore)
	assert.Equal(t, 5.8, res.FinalScore)
	assert.GreaterOrEqual(t, res.FinalScore, res.BaseScore)
	assert.LessOrEqual(t, res.FinalScore, res.BaseScore+2)
	assert.True(t, res.HasFlag(domain.FlagSarcasmProtected))
	assert.True(t, res.HasFlag(domain.FlagSarcasticContent))
	assert.Contains(t, res.Rationale, "Signal integrity adjustments:")
	assert.Contains(t, res.Rationale, "p_sarcasm=0.90")
}

func TestConsolidate_SarcasmRequiresLowFactScore(t *testing.T) {
	tests := []struct {
		name string
		fact domain.AgentOutcome
		p    float64
	}{
		{"fact score not low", succeeded(agent.FactChecker, domain.Record{"agent_score": 6.0}), 0.9},
		{"fact checker failed", domain.FailedOutcome(agent.FactChecker, 0, nil), 0.9},
		{"probability below threshold", succeeded(agent.FactChecker, domain.Record{"agent_score": 2.0}), 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcomes := map[string]domain.AgentOutcome{
				agent.FactChecker:     tt.fact,
				agent.SarcasmSentinel: succeeded(agent.SarcasmSentinel, domain.Record{"is_sarcastic": true, "p_sarcasm": tt.p}),
			}
			res := newTestConsolidator().Consolidate(outcomes, map[string]float64{agent.FactChecker: 1}, nil)
			assert.False(t, res.HasFlag(domain.FlagSarcasmProtected))
			for _, a := range res.Adjustments {
				assert.NotEqual(t, agent.SarcasmSentinel, a.SourceAgent)
			}
		})
	}
}

func TestConsolidate_SignalAdjustments(t *testing.T) {
	outcomes := map[string]domain.AgentOutcome{
		"context_evaluator":       succeeded("context_evaluator", domain.Record{"agent_score": 6.0}),
		agent.EchoMapper:          succeeded(agent.EchoMapper, domain.Record{"echo_velocity": 0.9}),
		agent.SlopFilter:          succeeded(agent.SlopFilter, domain.Record{"slop_score": 0.9}),
		agent.BannedPhraseSkeptic: succeeded(agent.BannedPhraseSkeptic, domain.Record{"tone_penalty": 1.0, "banned_terms": []any{"moon", "wagmi"}}),
		agent.LatencyGuard:        succeeded(agent.LatencyGuard, domain.Record{"repriced": true}),
	}

	res := newTestConsolidator().Consolidate(outcomes, map[string]float64{"context_evaluator": 1}, nil)

	require.Len(t, res.Adjustments, 3)
	byAgent := map[string]domain.ScoreAdjustment{}
	for _, a := range res.Adjustments {
		byAgent[a.SourceAgent] = a
	}
	assert.InDelta(t, 0.8, byAgent[agent.EchoMapper].Signed(), 1e-9)
	assert.InDelta(t, -0.6, byAgent[agent.SlopFilter].Signed(), 1e-9)
	assert.InDelta(t, -1.75, byAgent[agent.BannedPhraseSkeptic].Signed(), 1e-9)
	assert.Contains(t, byAgent[agent.BannedPhraseSkeptic].Rationale, "2 banned terms")

	assert.Equal(t, 4.45, res.FinalScore)
	for _, flag := range []string{
		domain.FlagViralContent,
		domain.FlagLowContentQuality,
		domain.FlagEditorialViolations,
		domain.FlagTemporalMisalignment,
	} {
		assert.True(t, res.HasFlag(flag), flag)
	}
}

func TestConsolidate_SmallAdjustmentsDropped(t *testing.T) {
	outcomes := map[string]domain.AgentOutcome{
		"a":              succeeded("a", domain.Record{"agent_score": 6.0}),
		agent.EchoMapper: succeeded(agent.EchoMapper, domain.Record{"echo_velocity": 0.52}),
		agent.SlopFilter: succeeded(agent.SlopFilter, domain.Record{"slop_score": 0.72}),
	}
	res := newTestConsolidator().Consolidate(outcomes, map[string]float64{"a": 1}, nil)

	assert.Empty(t, res.Adjustments)
	assert.Equal(t, 6.0, res.FinalScore)
}

func TestConsolidate_ThresholdsAreStrict(t *testing.T) {
	outcomes := map[string]domain.AgentOutcome{
		"a":                       succeeded("a", domain.Record{"agent_score": 6.0}),
		agent.EchoMapper:          succeeded(agent.EchoMapper, domain.Record{"echo_velocity": 0.5}),
		agent.SlopFilter:          succeeded(agent.SlopFilter, domain.Record{"slop_score": 0.7}),
		agent.BannedPhraseSkeptic: succeeded(agent.BannedPhraseSkeptic, domain.Record{"tone_penalty": 0.3}),
	}
	res := newTestConsolidator().Consolidate(outcomes, map[string]float64{"a": 1}, nil)
	assert.Empty(t, res.Adjustments)
}

func TestConsolidate_DegradedSignalsIgnored(t *testing.T) {
	slop := parser.Fallback("oops", agent.SlopFilter)
	slop["slop_score"] = 1.0
	outcomes := map[string]domain.AgentOutcome{
		"a":              succeeded("a", domain.Record{"agent_score": 6.0}),
		agent.SlopFilter: succeeded(agent.SlopFilter, slop),
	}
	res := newTestConsolidator().Consolidate(outcomes, map[string]float64{"a": 1}, nil)
	assert.Empty(t, res.Adjustments)
}

func TestConsolidate_FinalScoreAlwaysBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	c := newTestConsolidator()
	extremes := []float64{-1e9, -3, 0, 0.31, 0.51, 0.71, 1, 7.5, 1e9}
	pick := func() float64 { return extremes[rng.Intn(len(extremes))] }

	for i := 0; i < 500; i++ {
		outcomes := map[string]domain.AgentOutcome{
			"a":                       succeeded("a", domain.Record{"agent_score": pick()}),
			"b":                       succeeded("b", domain.Record{"score": pick()}),
			agent.FactChecker:         succeeded(agent.FactChecker, domain.Record{"agent_score": pick()}),
			agent.SarcasmSentinel:     succeeded(agent.SarcasmSentinel, domain.Record{"is_sarcastic": true, "p_sarcasm": pick()}),
			agent.EchoMapper:          succeeded(agent.EchoMapper, domain.Record{"echo_velocity": pick()}),
			agent.SlopFilter:          succeeded(agent.SlopFilter, domain.Record{"slop_score": pick()}),
			agent.BannedPhraseSkeptic: succeeded(agent.BannedPhraseSkeptic, domain.Record{"tone_penalty": pick()}),
		}
		weights := map[string]float64{"a": rng.Float64(), "b": rng.Float64(), agent.FactChecker: rng.Float64()}

		res := c.Consolidate(outcomes, weights, nil)

		if res.FinalScore < 0.1 || res.FinalScore > 10 {
			t.Fatalf("iteration %d: final score %v out of bounds", i, res.FinalScore)
		}
		if cents := res.FinalScore * 100; math.Abs(cents-math.Round(cents)) > 1e-6 {
			t.Fatalf("iteration %d: final score %v not rounded to 2 decimals", i, res.FinalScore)
		}
		for _, a := range res.Adjustments {
			if a.Magnitude <= 0.1 || a.Magnitude > 2.5 {
				t.Fatalf("iteration %d: adjustment magnitude %v out of range", i, a.Magnitude)
			}
		}
	}
}

func TestConsolidate_ClampsToBounds(t *testing.T) {
	c := newTestConsolidator()

	high := c.Consolidate(map[string]domain.AgentOutcome{
		"a":              succeeded("a", domain.Record{"agent_score": 10.0}),
		agent.EchoMapper: succeeded(agent.EchoMapper, domain.Record{"echo_velocity": 1.0}),
	}, map[string]float64{"a": 1}, nil)
	assert.Equal(t, 10.0, high.FinalScore)

	low := c.Consolidate(map[string]domain.AgentOutcome{
		"a":                       succeeded("a", domain.Record{"agent_score": 0.0}),
		agent.SlopFilter:          succeeded(agent.SlopFilter, domain.Record{"slop_score": 1.0}),
		agent.BannedPhraseSkeptic: succeeded(agent.BannedPhraseSkeptic, domain.Record{"tone_penalty": 1.0}),
	}, map[string]float64{"a": 1}, nil)
	assert.Equal(t, 0.1, low.FinalScore)
}

func TestConsolidate_ChronicAuthorFlags(t *testing.T) {
	priors := domain.Priors{
		domain.NamespaceSlop:     {Fields: domain.Record{"count": 5.0, "avg_slop": 0.8}},
		domain.NamespaceBanTerms: {Fields: domain.Record{"count": 6.0, "avg_weight": 2.0}},
	}
	outcomes := map[string]domain.AgentOutcome{"a": succeeded("a", domain.Record{"agent_score": 6.0})}

	res := newTestConsolidator().Consolidate(outcomes, map[string]float64{"a": 1}, priors)

	assert.True(t, res.HasFlag(domain.FlagChronicLowQuality))
	assert.True(t, res.HasFlag(domain.FlagChronicEditorialAuthor))
	assert.Equal(t, 6.0, res.FinalScore, "priors never move the score")
}

func TestConsolidate_ConfidenceTiers(t *testing.T) {
	outcomes := map[string]domain.AgentOutcome{"ok": succeeded("ok", domain.Record{"agent_score": 6.0})}
	for _, name := range []string{"f1", "f2", "f3", "f4", "f5"} {
		outcomes[name] = domain.FailedOutcome(name, 0, nil)
	}
	res := newTestConsolidator().Consolidate(outcomes, map[string]float64{"ok": 1}, nil)
	assert.Equal(t, domain.ConfidenceLow, res.ConfidenceTier)

	delete(outcomes, "f5")
	delete(outcomes, "f4")
	delete(outcomes, "f3")
	res = newTestConsolidator().Consolidate(outcomes, map[string]float64{"ok": 1}, nil)
	assert.Equal(t, domain.ConfidenceMedium, res.ConfidenceTier)
}

func TestConsolidate_RationaleJoinsParts(t *testing.T) {
	outcomes := map[string]domain.AgentOutcome{
		"a":              succeeded("a", domain.Record{"agent_score": 6.0}),
		agent.EchoMapper: succeeded(agent.EchoMapper, domain.Record{"echo_velocity": 0.9}),
	}
	res := newTestConsolidator().Consolidate(outcomes, map[string]float64{"a": 1}, nil)

	parts := strings.Split(res.Rationale, " | ")
	require.Len(t, parts, 4)
	assert.Equal(t, "Signal integrity adjustments:", parts[1])
	assert.Equal(t, "  • Cross-platform viral boost: echo_velocity=0.90: +0.80", parts[2])
	assert.Equal(t, "Final score: 6.00 + +0.80 = 6.80", parts[3])
}
