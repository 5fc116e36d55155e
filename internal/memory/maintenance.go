package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/lorios22/twitter-news-classifier/internal/store"
	"go.uber.org/zap"
)

type Stats struct {
	TotalEntries int            `json:"total_entries"`
	Namespaces   map[string]int `json:"namespaces"`
	OldestEntry  string         `json:"oldest_entry,omitempty"`
	NewestEntry  string         `json:"newest_entry,omitempty"`
	SizeEstimate int            `json:"total_size_estimate"`
}

var timestampFields = []string{"last_updated", "last_seen", "flagged_at"}

// Statistics summarizes every record across all namespaces.
func (s *Store) Statistics(ctx context.Context) (*Stats, error) {
	raw, err := s.kv.Scan(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("scan memory: %w", err)
	}

	stats := &Stats{Namespaces: map[string]int{}}
	var oldest, newest time.Time
	for key, data := range raw {
		stats.TotalEntries++
		stats.SizeEstimate += len(data)

		ns := "unknown"
		if n, _, ok := domain.SplitMemoryKey(key); ok {
			ns = string(n)
		}
		stats.Namespaces[ns]++

		rec, err := decodeRecord(key, data)
		if err != nil {
			continue
		}
		for _, f := range timestampFields {
			t, ok := timeField(rec.Fields, f)
			if !ok {
				continue
			}
			if oldest.IsZero() || t.Before(oldest) || (t.Equal(oldest) && key < stats.OldestEntry) {
				oldest, stats.OldestEntry = t, key
			}
			if newest.IsZero() || t.After(newest) || (t.Equal(newest) && key < stats.NewestEntry) {
				newest, stats.NewestEntry = t, key
			}
		}
	}
	return stats, nil
}

// Prune deletes records whose most recent timestamp is older than horizon and
// returns how many were removed. Records without any timestamp are kept.
func (s *Store) Prune(ctx context.Context, horizon time.Duration) (int, error) {
	cutoff := s.now().Add(-horizon)
	raw, err := s.kv.Scan(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("scan memory: %w", err)
	}

	removed := 0
	for key, data := range raw {
		rec, err := decodeRecord(key, data)
		if err != nil {
			continue
		}
		latest, ok := latestTimestamp(rec)
		if !ok || !latest.Before(cutoff) {
			continue
		}

		deleted, err := s.pruneKey(ctx, key, cutoff)
		if err != nil {
			return removed, err
		}
		if deleted {
			removed++
		}
	}

	s.logger.Info("pruned memory records",
		zap.Int("removed", removed), zap.Duration("horizon", horizon))
	return removed, nil
}

// pruneKey re-checks the record under its lock so a concurrent Update is not lost.
func (s *Store) pruneKey(ctx context.Context, key string, cutoff time.Time) (bool, error) {
	unlock := s.locks.Lock(key)
	defer unlock()

	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	rec, err := decodeRecord(key, data)
	if err != nil {
		return false, nil
	}
	if latest, ok := latestTimestamp(rec); !ok || !latest.Before(cutoff) {
		return false, nil
	}
	if err := s.kv.Delete(ctx, key); err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return true, nil
}

func latestTimestamp(rec domain.MemoryRecord) (time.Time, bool) {
	var latest time.Time
	if rec.Exists() {
		latest = rec.LastUpdated
	}
	for _, f := range timestampFields {
		if t, ok := timeField(rec.Fields, f); ok && t.After(latest) {
			latest = t
		}
	}
	return latest, !latest.IsZero()
}
