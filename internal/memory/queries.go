package memory

import (
	"context"
	"sort"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
)

type TrendingTopic struct {
	Topic          string    `json:"topic"`
	EchoVelocity   float64   `json:"echo_velocity"`
	TotalMentions  int       `json:"total_mentions"`
	LastSeen       time.Time `json:"last_seen"`
	VelocityChange float64   `json:"velocity_change"`
}

// TrendingTopics returns topics seen within window whose echo velocity is at
// least minVelocity, fastest first.
func (s *Store) TrendingTopics(ctx context.Context, window time.Duration, minVelocity float64) ([]TrendingTopic, error) {
	cutoff := s.now().Add(-window)
	recs, err := s.Query(ctx, domain.NamespaceEcho, nil)
	if err != nil {
		return nil, err
	}

	out := []TrendingTopic{}
	for _, r := range recs {
		seen, ok := timeField(r.Fields, "last_seen")
		if !ok || !seen.After(cutoff) {
			continue
		}
		v := r.Fields.FloatOr("echo_velocity", 0)
		if v < minVelocity {
			continue
		}
		out = append(out, TrendingTopic{
			Topic:          r.EntityKey,
			EchoVelocity:   v,
			TotalMentions:  int(r.Fields.FloatOr("total_mentions", 0)),
			LastSeen:       seen,
			VelocityChange: r.Fields.FloatOr("velocity_change", 0),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EchoVelocity > out[j].EchoVelocity })
	return out, nil
}

type ChronicAuthor struct {
	Author      string    `json:"author"`
	AvgSlop     float64   `json:"avg_slop"`
	Count       int       `json:"tweet_count"`
	RecentTrend []float64 `json:"recent_trend"`
}

// ChronicLowQualityAuthors returns authors with at least minCount analysed
// items and an average slop score of at least threshold, worst first.
func (s *Store) ChronicLowQualityAuthors(ctx context.Context, threshold float64, minCount int) ([]ChronicAuthor, error) {
	recs, err := s.Query(ctx, domain.NamespaceSlop, func(r domain.MemoryRecord) bool {
		return int(r.Fields.FloatOr("count", 0)) >= minCount && r.Fields.FloatOr("avg_slop", 0) >= threshold
	})
	if err != nil {
		return nil, err
	}

	out := make([]ChronicAuthor, 0, len(recs))
	for _, r := range recs {
		trend := floats(r.Fields["last_scores"])
		if len(trend) > 3 {
			trend = trend[len(trend)-3:]
		}
		out = append(out, ChronicAuthor{
			Author:      r.EntityKey,
			AvgSlop:     r.Fields.FloatOr("avg_slop", 0),
			Count:       int(r.Fields.FloatOr("count", 0)),
			RecentTrend: trend,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AvgSlop > out[j].AvgSlop })
	return out, nil
}

type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"violation_count"`
}

// MostViolatedTerms sums violation counts across all authors.
func (s *Store) MostViolatedTerms(ctx context.Context, topN int) ([]TermCount, error) {
	recs, err := s.Query(ctx, domain.NamespaceBanTerms, nil)
	if err != nil {
		return nil, err
	}

	totals := map[string]int{}
	for _, r := range recs {
		violations, _ := r.Fields["violations"].(map[string]any)
		for term, n := range violations {
			totals[term] += int(domain.Record{"n": n}.FloatOr("n", 0))
		}
	}

	out := make([]TermCount, 0, len(totals))
	for term, n := range totals {
		out = append(out, TermCount{Term: term, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

// RecentLatencyFlags returns latency flags raised within window, newest first.
func (s *Store) RecentLatencyFlags(ctx context.Context, window time.Duration) ([]domain.MemoryRecord, error) {
	cutoff := s.now().Add(-window)
	recs, err := s.Query(ctx, domain.NamespaceLatency, func(r domain.MemoryRecord) bool {
		t, ok := timeField(r.Fields, "flagged_at")
		return ok && t.After(cutoff)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool {
		ti, _ := timeField(recs[i].Fields, "flagged_at")
		tj, _ := timeField(recs[j].Fields, "flagged_at")
		return ti.After(tj)
	})
	return recs, nil
}

func floats(v any) []float64 {
	items, _ := v.([]any)
	out := make([]float64, 0, len(items))
	for _, item := range items {
		if f, ok := (domain.Record{"v": item}).Float("v"); ok {
			out = append(out, f)
		}
	}
	return out
}
