package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/lorios22/twitter-news-classifier/internal/agent"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/lorios22/twitter-news-classifier/internal/signal"
	"go.uber.org/zap"
)

// ConsolidatorConfig names the signal agents and bounds their adjustments.
type ConsolidatorConfig struct {
	SarcasmAgent string
	FactAgent    string
	EchoAgent    string
	SlopAgent    string
	BannedAgent  string
	LatencyAgent string

	SarcasmThreshold     float64
	LowAccuracyThreshold float64
	MaxSarcasmBoost      float64

	EchoThreshold float64
	EchoScaling   float64
	MaxEchoBoost  float64

	SlopThreshold  float64
	SlopScaling    float64
	MaxSlopPenalty float64

	ToneThreshold  float64
	ToneScaling    float64
	MaxTonePenalty float64

	// MinAdjustment drops adjustments too small to matter.
	MinAdjustment float64
	MinScore      float64
	MaxScore      float64

	ChronicSlopAverage float64
}

func DefaultConsolidatorConfig() ConsolidatorConfig {
	return ConsolidatorConfig{
		SarcasmAgent: agent.SarcasmSentinel,
		FactAgent:    agent.FactChecker,
		EchoAgent:    agent.EchoMapper,
		SlopAgent:    agent.SlopFilter,
		BannedAgent:  agent.BannedPhraseSkeptic,
		LatencyAgent: agent.LatencyGuard,

		SarcasmThreshold:     0.5,
		LowAccuracyThreshold: 4.0,
		MaxSarcasmBoost:      2.0,

		EchoThreshold: 0.5,
		EchoScaling:   2.0,
		MaxEchoBoost:  1.5,

		SlopThreshold:  signal.SlopThreshold,
		SlopScaling:    3.0,
		MaxSlopPenalty: 2.5,

		ToneThreshold:  0.3,
		ToneScaling:    2.5,
		MaxTonePenalty: 2.0,

		MinAdjustment: 0.1,
		MinScore:      0.1,
		MaxScore:      10,

		ChronicSlopAverage: signal.SlopThreshold,
	}
}

// Consolidator folds agent outcomes into one bounded score.
type Consolidator struct {
	cfg    ConsolidatorConfig
	logger *zap.Logger
}

func NewConsolidator(cfg ConsolidatorConfig, logger *zap.Logger) *Consolidator {
	return &Consolidator{cfg: cfg, logger: logger}
}

// Consolidate never fails: a panic anywhere in the algorithm yields the
// neutral fallback result.
func (c *Consolidator) Consolidate(outcomes map[string]domain.AgentOutcome, weights map[string]float64, priors domain.Priors) (result *domain.ConsolidationResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("consolidation failed", zap.Any("panic", r))
			result = domain.FallbackConsolidation(fmt.Sprint(r))
		}
	}()

	base, contributors := c.baseScore(outcomes, weights)
	adjustments := c.adjustments(outcomes)

	var total float64
	for _, a := range adjustments {
		total += a.Signed()
	}
	final := math.Max(c.cfg.MinScore, math.Min(c.cfg.MaxScore, base+total))
	final = math.Round(final*100) / 100

	flags := c.flags(outcomes, adjustments, priors)
	if contributors == 0 {
		flags = append([]string{domain.FlagNoValidScores}, flags...)
	}

	result = &domain.ConsolidationResult{
		BaseScore:          math.Round(base*100) / 100,
		Adjustments:        adjustments,
		FinalScore:         final,
		QualityFlags:       flags,
		ConfidenceTier:     c.tier(outcomes, adjustments),
		Rationale:          rationale(base, contributors, adjustments, total, final),
		ContributingAgents: contributors,
	}
	c.logger.Debug("consolidated score",
		zap.Float64("base", base),
		zap.Float64("final", final),
		zap.Int("adjustments", len(adjustments)))
	return result
}

// baseScore is the weighted mean of successful contributing agents, or
// NeutralScore when none contributed.
func (c *Consolidator) baseScore(outcomes map[string]domain.AgentOutcome, weights map[string]float64) (float64, int) {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)

	var sum, total float64
	n := 0
	for _, name := range names {
		w := weights[name]
		if w <= 0 {
			continue
		}
		o, ok := outcomes[name]
		if !ok || !o.Succeeded() {
			continue
		}
		sum += o.Record.Score() * w
		total += w
		n++
	}
	if total == 0 {
		return domain.NeutralScore, 0
	}
	return sum / total, n
}

// signalRecord returns the record of a successful signal agent.
func signalRecord(outcomes map[string]domain.AgentOutcome, name string) (domain.Record, bool) {
	o, ok := outcomes[name]
	if !ok || !o.Succeeded() || o.Record.Degraded() {
		return nil, false
	}
	return o.Record, true
}

func (c *Consolidator) adjustments(outcomes map[string]domain.AgentOutcome) []domain.ScoreAdjustment {
	out := []domain.ScoreAdjustment{}
	add := func(a domain.ScoreAdjustment) {
		if a.Magnitude > c.cfg.MinAdjustment {
			out = append(out, a)
		}
	}

	if rec, ok := signalRecord(outcomes, c.cfg.SarcasmAgent); ok {
		p := rec.FloatOr("p_sarcasm", 0)
		fact, factOK := outcomes[c.cfg.FactAgent]
		if rec.Bool("is_sarcastic") && p >= c.cfg.SarcasmThreshold &&
			factOK && fact.Succeeded() && fact.Record.Score() < c.cfg.LowAccuracyThreshold {
			add(domain.ScoreAdjustment{
				SourceAgent: c.cfg.SarcasmAgent,
				Kind:        domain.AdjustmentBoost,
				Magnitude:   math.Min(c.cfg.MaxSarcasmBoost, p*c.cfg.MaxSarcasmBoost),
				Rationale:   fmt.Sprintf("Sarcasm protection: sarcasm likely caused unwarranted penalty (p_sarcasm=%.2f)", p),
				Confidence:  p,
			})
		}
	}

	if rec, ok := signalRecord(outcomes, c.cfg.EchoAgent); ok {
		v := rec.FloatOr("echo_velocity", 0)
		if v > c.cfg.EchoThreshold {
			add(domain.ScoreAdjustment{
				SourceAgent: c.cfg.EchoAgent,
				Kind:        domain.AdjustmentBoost,
				Magnitude:   math.Min(c.cfg.MaxEchoBoost, (v-c.cfg.EchoThreshold)*c.cfg.EchoScaling),
				Rationale:   fmt.Sprintf("Cross-platform viral boost: echo_velocity=%.2f", v),
				Confidence:  math.Min(1, v),
			})
		}
	}

	if rec, ok := signalRecord(outcomes, c.cfg.SlopAgent); ok {
		s := rec.FloatOr("slop_score", 0)
		if s > c.cfg.SlopThreshold {
			add(domain.ScoreAdjustment{
				SourceAgent: c.cfg.SlopAgent,
				Kind:        domain.AdjustmentPenalty,
				Magnitude:   math.Min(c.cfg.MaxSlopPenalty, (s-c.cfg.SlopThreshold)*c.cfg.SlopScaling),
				Rationale:   fmt.Sprintf("Content quality penalty: slop_score=%.2f", s),
				Confidence:  math.Min(1, s),
			})
		}
	}

	if rec, ok := signalRecord(outcomes, c.cfg.BannedAgent); ok {
		t := rec.FloatOr("tone_penalty", 0)
		if t > c.cfg.ToneThreshold {
			add(domain.ScoreAdjustment{
				SourceAgent: c.cfg.BannedAgent,
				Kind:        domain.AdjustmentPenalty,
				Magnitude:   math.Min(c.cfg.MaxTonePenalty, (t-c.cfg.ToneThreshold)*c.cfg.ToneScaling),
				Rationale:   fmt.Sprintf("Editorial tone penalty: %d banned terms", len(rec.Strings("banned_terms"))),
				Confidence:  math.Min(1, t),
			})
		}
	}
	return out
}

func (c *Consolidator) flags(outcomes map[string]domain.AgentOutcome, adjustments []domain.ScoreAdjustment, priors domain.Priors) []string {
	flags := []string{}
	for _, a := range adjustments {
		switch {
		case a.Kind == domain.AdjustmentPenalty && a.SourceAgent == c.cfg.SlopAgent:
			flags = append(flags, domain.FlagLowContentQuality)
		case a.Kind == domain.AdjustmentPenalty && a.SourceAgent == c.cfg.BannedAgent:
			flags = append(flags, domain.FlagEditorialViolations)
		case a.Kind == domain.AdjustmentBoost && a.SourceAgent == c.cfg.EchoAgent:
			flags = append(flags, domain.FlagViralContent)
		case a.Kind == domain.AdjustmentBoost && a.SourceAgent == c.cfg.SarcasmAgent:
			flags = append(flags, domain.FlagSarcasmProtected)
		}
	}
	if rec, ok := signalRecord(outcomes, c.cfg.SarcasmAgent); ok && rec.Bool("is_sarcastic") {
		flags = append(flags, domain.FlagSarcasticContent)
	}
	if rec, ok := signalRecord(outcomes, c.cfg.LatencyAgent); ok && rec.Bool("repriced") {
		flags = append(flags, domain.FlagTemporalMisalignment)
	}

	if slop := priors.Fields(domain.NamespaceSlop); slop.FloatOr("count", 0) >= signal.ChronicMinCount &&
		slop.FloatOr("avg_slop", 0) >= c.cfg.ChronicSlopAverage {
		flags = append(flags, domain.FlagChronicLowQuality)
	}
	if signal.ChronicViolator(priors.Fields(domain.NamespaceBanTerms)) {
		flags = append(flags, domain.FlagChronicEditorialAuthor)
	}
	return flags
}

// tier averages the success rate with the mean adjustment confidence.
func (c *Consolidator) tier(outcomes map[string]domain.AgentOutcome, adjustments []domain.ScoreAdjustment) domain.ConfidenceTier {
	var successRate float64
	if len(outcomes) > 0 {
		ok := 0
		for _, o := range outcomes {
			if o.Succeeded() {
				ok++
			}
		}
		successRate = float64(ok) / float64(len(outcomes))
	}

	adjConfidence := 1.0
	if len(adjustments) > 0 {
		var sum float64
		for _, a := range adjustments {
			sum += a.Confidence
		}
		adjConfidence = sum / float64(len(adjustments))
	}

	switch overall := (successRate + adjConfidence) / 2; {
	case overall >= 0.8:
		return domain.ConfidenceHigh
	case overall >= 0.6:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

func rationale(base float64, contributors int, adjustments []domain.ScoreAdjustment, total, final float64) string {
	parts := []string{fmt.Sprintf("Base score: %.2f (weighted average of %d agents)", base, contributors)}
	if len(adjustments) > 0 {
		parts = append(parts, "Signal integrity adjustments:")
		for _, a := range adjustments {
			parts = append(parts, fmt.Sprintf("  • %s: %+.2f", a.Rationale, a.Signed()))
		}
	}
	parts = append(parts, fmt.Sprintf("Final score: %.2f + %+.2f = %.2f", base, total, final))
	return strings.Join(parts, " | ")
}
