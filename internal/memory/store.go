// Package memory implements the namespaced per-entity memory store. It is
// the only component that mutates memory records.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/lorios22/twitter-news-classifier/internal/store"
	"go.uber.org/zap"
)

var (
	ErrUnknownNamespace = errors.New("unknown memory namespace")
	ErrValidation       = errors.New("memory record failed validation")
	ErrEmptyEntity      = errors.New("memory entity key is empty")
)

// Updater mutates fields in place. Returning an error aborts the write.
type Updater func(fields domain.Record) error

type Store struct {
	kv     domain.KVStore
	logger *zap.Logger
	locks  *keyedMutex
	now    func() time.Time

	// RejectInvalid makes Update refuse writes that fail Validate instead of
	// logging the violations and writing anyway.
	RejectInvalid bool
}

func NewStore(kv domain.KVStore, logger *zap.Logger) *Store {
	return &Store{
		kv:     kv,
		logger: logger,
		locks:  newKeyedMutex(),
		now:    time.Now,
	}
}

// Get returns the record for (ns, entity), or the namespace default when it
// is absent or unreadable. It never fails.
func (s *Store) Get(ctx context.Context, ns domain.Namespace, entity string) domain.MemoryRecord {
	rec, err := s.load(ctx, ns, entity)
	if err != nil {
		s.logger.Warn("memory read failed, using default",
			zap.String("key", domain.MemoryKey(ns, entity)), zap.Error(err))
		return defaultRecord(ns, entity)
	}
	return rec
}

// Update applies an atomic read-modify-write to (ns, entity). Updates to the
// same key are serialized; different keys proceed in parallel.
func (s *Store) Update(ctx context.Context, ns domain.Namespace, entity string, fn Updater) (domain.MemoryRecord, error) {
	if !domain.ValidNamespace(string(ns)) {
		return domain.MemoryRecord{}, fmt.Errorf("%w: %s", ErrUnknownNamespace, ns)
	}
	if strings.TrimSpace(entity) == "" {
		return domain.MemoryRecord{}, ErrEmptyEntity
	}

	key := domain.MemoryKey(ns, entity)
	unlock := s.locks.Lock(key)
	defer unlock()

	rec, err := s.load(ctx, ns, entity)
	if err != nil {
		return domain.MemoryRecord{}, fmt.Errorf("read %s: %w", key, err)
	}

	if err := fn(rec.Fields); err != nil {
		return domain.MemoryRecord{}, err
	}

	now := s.now().UTC()
	rec.LastUpdated = now
	rec.Fields["last_updated"] = now.Format(time.RFC3339Nano)

	if violations := Validate(ns, rec.Fields); len(violations) > 0 {
		if s.RejectInvalid {
			return domain.MemoryRecord{}, fmt.Errorf("%w: %s", ErrValidation, strings.Join(violations, "; "))
		}
		s.logger.Warn("memory record has schema violations",
			zap.String("key", key), zap.Strings("violations", violations))
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return domain.MemoryRecord{}, fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Put(ctx, key, data); err != nil {
		return domain.MemoryRecord{}, fmt.Errorf("write %s: %w", key, err)
	}
	return rec, nil
}

// Query returns every record in ns accepted by pred, sorted by key. A nil
// predicate matches everything.
func (s *Store) Query(ctx context.Context, ns domain.Namespace, pred func(domain.MemoryRecord) bool) ([]domain.MemoryRecord, error) {
	if !domain.ValidNamespace(string(ns)) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNamespace, ns)
	}
	return s.scan(ctx, string(ns)+":", pred)
}

// Export returns the fields of every record in ns keyed by full memory key.
func (s *Store) Export(ctx context.Context, ns domain.Namespace) (map[string]domain.Record, error) {
	recs, err := s.Query(ctx, ns, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Record, len(recs))
	for _, r := range recs {
		out[r.Key()] = r.Fields
	}
	return out, nil
}

// Ping checks the backing store when it supports health checks.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.kv.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Store) load(ctx context.Context, ns domain.Namespace, entity string) (domain.MemoryRecord, error) {
	data, err := s.kv.Get(ctx, domain.MemoryKey(ns, entity))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return defaultRecord(ns, entity), nil
		}
		return domain.MemoryRecord{}, err
	}
	rec, err := decodeRecord(domain.MemoryKey(ns, entity), data)
	if err != nil {
		s.logger.Warn("discarding undecodable memory record",
			zap.String("key", domain.MemoryKey(ns, entity)), zap.Error(err))
		return defaultRecord(ns, entity), nil
	}
	return rec, nil
}

func (s *Store) scan(ctx context.Context, prefix string, pred func(domain.MemoryRecord) bool) ([]domain.MemoryRecord, error) {
	raw, err := s.kv.Scan(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("scan %q: %w", prefix, err)
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.MemoryRecord, 0, len(keys))
	for _, k := range keys {
		rec, err := decodeRecord(k, raw[k])
		if err != nil {
			s.logger.Warn("skipping undecodable memory record", zap.String("key", k), zap.Error(err))
			continue
		}
		if pred == nil || pred(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func defaultRecord(ns domain.Namespace, entity string) domain.MemoryRecord {
	return domain.MemoryRecord{
		Namespace: ns,
		EntityKey: entity,
		Fields:    Defaults(ns),
	}
}

func decodeRecord(key string, data []byte) (domain.MemoryRecord, error) {
	var rec domain.MemoryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.MemoryRecord{}, err
	}
	ns, entity, ok := domain.SplitMemoryKey(key)
	if !ok {
		return domain.MemoryRecord{}, fmt.Errorf("malformed key %q", key)
	}
	rec.Namespace, rec.EntityKey = ns, entity
	if rec.Fields == nil {
		rec.Fields = domain.Record{}
	}
	return rec, nil
}

// timeField reads an RFC 3339 timestamp field.
func timeField(fields domain.Record, key string) (time.Time, bool) {
	s := fields.String(key)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
