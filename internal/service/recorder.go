package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/lorios22/twitter-news-classifier/internal/agent"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/lorios22/twitter-news-classifier/internal/memory"
	"github.com/lorios22/twitter-news-classifier/internal/signal"
	"go.uber.org/zap"
)

const (
	confidenceHistoryLen = 20
	sarcasmExamplesLen   = 5
	sarcasmSnippetLen    = 100
	slopHistoryLen       = 10
	latencyTextLen       = 200
	latencyKeyLayout     = "20060102_150405"
)

// Recorder writes the per-entity rolling statistics derived from a finished
// run. Agents never write memory themselves.
type Recorder struct {
	memory *memory.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewRecorder(m *memory.Store, logger *zap.Logger) *Recorder {
	return &Recorder{memory: m, logger: logger, now: time.Now}
}

// Record updates every namespace a successful signal outcome feeds. It
// returns the joined write errors; callers treat them as non-fatal.
func (r *Recorder) Record(ctx context.Context, item *domain.ContentItem, outcomes map[string]domain.AgentOutcome) error {
	author := item.AuthorKey()
	var errs []error

	var sarcasm signal.SarcasmResult
	if decodeSignal(outcomes, agent.SarcasmSentinel, &sarcasm) {
		errs = append(errs, r.update(ctx, domain.NamespaceSarcasm, author, func(f domain.Record) error {
			total := f.FloatOr("total_tweets", 0) + 1
			sarcastic := f.FloatOr("sarcastic_tweets", 0)
			if sarcasm.IsSarcastic {
				sarcastic++
				f["examples"] = appendCapped(f["examples"], snippet(item.Text, sarcasmSnippetLen), sarcasmExamplesLen)
			}
			f["total_tweets"] = total
			f["sarcastic_tweets"] = sarcastic
			f["sarcasm_rate"] = sarcastic / total
			f["confidence_history"] = appendCapped(f["confidence_history"], sarcasm.PSarcasm, confidenceHistoryLen)
			return nil
		}))
	}

	var echo signal.EchoResult
	if decodeSignal(outcomes, agent.EchoMapper, &echo) && echo.Topic != "" {
		errs = append(errs, r.update(ctx, domain.NamespaceEcho, echo.Topic, func(f domain.Record) error {
			prev := f.FloatOr("echo_velocity", 0)
			f["previous_velocity"] = prev
			f["echo_velocity"] = echo.EchoVelocity
			f["velocity_change"] = echo.EchoVelocity - prev
			f["reddit_threads"] = echo.RedditThreads
			f["farcaster_refs"] = echo.FarcasterRefs
			f["discord_refs"] = echo.DiscordRefs
			f["total_mentions"] = echo.TotalMentions
			f["last_seen"] = r.now().UTC().Format(time.RFC3339)
			return nil
		}))
	}

	var slop signal.SlopResult
	if decodeSignal(outcomes, agent.SlopFilter, &slop) {
		errs = append(errs, r.update(ctx, domain.NamespaceSlop, author, func(f domain.Record) error {
			count := f.FloatOr("count", 0) + 1
			total := f.FloatOr("total_slop", 0) + slop.SlopScore
			f["count"] = count
			f["total_slop"] = total
			f["avg_slop"] = total / count
			f["last_scores"] = appendCapped(f["last_scores"], slop.SlopScore, slopHistoryLen)
			return nil
		}))
	}

	var banned signal.BannedResult
	if decodeSignal(outcomes, agent.BannedPhraseSkeptic, &banned) {
		errs = append(errs, r.update(ctx, domain.NamespaceBanTerms, author, func(f domain.Record) error {
			count := f.FloatOr("count", 0) + 1
			total := f.FloatOr("total_weight", 0) + banned.TotalWeight
			f["count"] = count
			f["total_weight"] = total
			f["avg_weight"] = total / count

			violations, _ := f["violations"].(map[string]any)
			if violations == nil {
				violations = map[string]any{}
			}
			counts := domain.Record(violations)
			for _, v := range banned.Violations {
				violations[v.Term] = counts.FloatOr(v.Term, 0) + 1
			}
			f["violations"] = violations
			return nil
		}))
	}

	var latency signal.LatencyResult
	if decodeSignal(outcomes, agent.LatencyGuard, &latency) && latency.Repriced {
		postedAt := item.CreatedAt
		if postedAt.IsZero() {
			postedAt = r.now()
		}
		postedAt = postedAt.UTC()
		errs = append(errs, r.update(ctx, domain.NamespaceLatency, postedAt.Format(latencyKeyLayout), func(f domain.Record) error {
			f["asset"] = latency.Asset
			f["price_change_pct"] = latency.PriceChangePct
			f["delta_seconds"] = latency.DeltaSeconds
			f["tweet_text"] = snippet(item.Text, latencyTextLen)
			f["tweet_time"] = postedAt.Format(time.RFC3339)
			f["flagged_at"] = r.now().UTC().Format(time.RFC3339)
			return nil
		}))
	}

	return errors.Join(errs...)
}

func (r *Recorder) update(ctx context.Context, ns domain.Namespace, entity string, fn memory.Updater) error {
	if _, err := r.memory.Update(ctx, ns, entity, fn); err != nil {
		r.logger.Warn("memory update failed",
			zap.String("namespace", string(ns)), zap.String("entity", entity), zap.Error(err))
		return err
	}
	return nil
}

// decodeSignal re-reads a successful, non-degraded signal record into its
// typed result.
func decodeSignal(outcomes map[string]domain.AgentOutcome, name string, v any) bool {
	o, ok := outcomes[name]
	if !ok || !o.Succeeded() || o.Record.Degraded() {
		return false
	}
	data, err := json.Marshal(o.Record)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func appendCapped(list any, v any, limit int) []any {
	items, _ := list.([]any)
	items = append(append([]any(nil), items...), v)
	if len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items
}

func snippet(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
