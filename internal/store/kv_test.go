package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kvBackends(t *testing.T) map[string]domain.KVStore {
	t.Helper()
	sqlite, err := OpenSQLiteKV(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]domain.KVStore{
		"memory": NewMemoryKV(),
		"sqlite": sqlite,
	}
}

func TestKV_GetPutDelete(t *testing.T) {
	for name, kv := range kvBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := kv.Get(ctx, "slop_fingerprint:alice")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Put(ctx, "slop_fingerprint:alice", []byte(`{"count":1}`)))
			got, err := kv.Get(ctx, "slop_fingerprint:alice")
			require.NoError(t, err)
			assert.JSONEq(t, `{"count":1}`, string(got))

			require.NoError(t, kv.Put(ctx, "slop_fingerprint:alice", []byte(`{"count":2}`)))
			got, err = kv.Get(ctx, "slop_fingerprint:alice")
			require.NoError(t, err)
			assert.JSONEq(t, `{"count":2}`, string(got))

			require.NoError(t, kv.Delete(ctx, "slop_fingerprint:alice"))
			_, err = kv.Get(ctx, "slop_fingerprint:alice")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestKV_ScanPrefix(t *testing.T) {
	for name, kv := range kvBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, kv.Put(ctx, "echo_map:btc", []byte(`{}`)))
			require.NoError(t, kv.Put(ctx, "echo_map:eth_defi", []byte(`{}`)))
			// "_" must not act as a wildcard
			require.NoError(t, kv.Put(ctx, "echoXmap:btc", []byte(`{}`)))
			require.NoError(t, kv.Put(ctx, "sarcasm_vector:bob", []byte(`{}`)))

			got, err := kv.Scan(ctx, "echo_map:")
			require.NoError(t, err)
			assert.Len(t, got, 2)
			assert.Contains(t, got, "echo_map:btc")
			assert.Contains(t, got, "echo_map:eth_defi")

			all, err := kv.Scan(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 4)
		})
	}
}

func TestMemoryKV_CopiesValues(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	value := []byte(`{"a":1}`)
	require.NoError(t, kv.Put(ctx, "k", value))
	value[2] = 'X'

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}
