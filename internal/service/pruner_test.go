package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/lorios22/twitter-news-classifier/internal/memory"
	"github.com/lorios22/twitter-news-classifier/internal/store"
	"go.uber.org/zap"
)

func seedRecord(t *testing.T, kv *store.MemoryKV, ns domain.Namespace, entity string, updated time.Time) {
	t.Helper()
	rec := domain.MemoryRecord{
		Namespace:   ns,
		EntityKey:   entity,
		Fields:      domain.Record{"count": 1.0},
		LastUpdated: updated,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := kv.Put(context.Background(), rec.Key(), data); err != nil {
		t.Fatalf("put: %v", err)
	}
}

func TestMemoryPruner_Prune(t *testing.T) {
	kv := store.NewMemoryKV()
	mem := memory.NewStore(kv, zap.NewNop())
	now := time.Now().UTC()
	seedRecord(t, kv, domain.NamespaceSlop, "stale", now.Add(-45*24*time.Hour))
	seedRecord(t, kv, domain.NamespaceSlop, "recent", now.Add(-10*24*time.Hour))
	seedRecord(t, kv, domain.NamespaceSarcasm, "fresh", now)

	p := NewMemoryPruner(mem, 30*24*time.Hour, zap.NewNop())

	removed, err := p.Prune(context.Background(), 0)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 record removed with default retention, got %d", removed)
	}

	removed, err = p.Prune(context.Background(), 7*24*time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 record removed with a 7 day horizon, got %d", removed)
	}
	if !mem.Get(context.Background(), domain.NamespaceSarcasm, "fresh").Exists() {
		t.Error("fresh record should survive")
	}
}

func TestMemoryPruner_StartStop(t *testing.T) {
	kv := store.NewMemoryKV()
	mem := memory.NewStore(kv, zap.NewNop())
	seedRecord(t, kv, domain.NamespaceEcho, "old_topic", time.Now().Add(-90*24*time.Hour))

	p := NewMemoryPruner(mem, 0, zap.NewNop())
	p.SetInterval(10 * time.Millisecond)
	p.Start()

	deadline := time.Now().Add(2 * time.Second)
	for mem.Get(context.Background(), domain.NamespaceEcho, "old_topic").Exists() {
		if time.Now().After(deadline) {
			p.Stop()
			t.Fatal("pruner did not remove the stale record")
		}
		time.Sleep(5 * time.Millisecond)
	}
	p.Stop()
}
