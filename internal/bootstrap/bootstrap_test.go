package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lorios22/twitter-news-classifier/internal/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpen_MockProviderWithSQLite(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LLM_PROVIDER", "mock")
	t.Setenv("MEMORY_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "data", "memory.db"))
	t.Setenv("RUN_STORE", "file")
	t.Setenv("RUNS_DIR", filepath.Join(dir, "runs"))
	t.Setenv("AGENTS_FILE", "")

	rt, err := Open(context.Background(), zap.NewNop())
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, 17, rt.Plan.Len())
	require.NoError(t, rt.Memory.Ping(context.Background()))

	assert.Contains(t, rt.Plan.Weights(), agent.EchoMapper)
	assert.NotNil(t, rt.Analyzer)
	assert.NotNil(t, rt.Batches)
	assert.NotNil(t, rt.Pruner)
}

func TestOpen_UnknownBackends(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "mock")
	t.Setenv("MEMORY_BACKEND", "etcd")
	_, err := Open(context.Background(), zap.NewNop())
	assert.ErrorContains(t, err, "MEMORY_BACKEND")

	t.Setenv("MEMORY_BACKEND", "memory")
	t.Setenv("RUN_STORE", "s3")
	_, err = Open(context.Background(), zap.NewNop())
	assert.ErrorContains(t, err, "RUN_STORE")
}

func TestOpen_PostgresRequiresURL(t *testing.T) {
	t.Setenv("MEMORY_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	_, err := Open(context.Background(), zap.NewNop())
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestOpenStorage_SkipsLLM(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("MEMORY_BACKEND", "memory")
	t.Setenv("RUN_STORE", "file")
	t.Setenv("RUNS_DIR", t.TempDir())

	_, err := Open(context.Background(), zap.NewNop())
	assert.ErrorContains(t, err, "LLM client")

	rt, err := OpenStorage(context.Background(), zap.NewNop())
	require.NoError(t, err)
	defer rt.Close()

	assert.NotNil(t, rt.Memory)
	assert.NotNil(t, rt.Runs)
	assert.NotNil(t, rt.Pruner)
	assert.Nil(t, rt.Plan)
}

func TestSignals_CoversCatalog(t *testing.T) {
	signals := Signals(nil, zap.NewNop())
	for _, spec := range agent.DefaultCatalog() {
		if spec.Kind != agent.KindSignal {
			continue
		}
		assert.NotNil(t, signals[spec.Name], spec.Name)
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := NewLogger(level)
		require.NoError(t, err, level)
		assert.NotNil(t, logger)
	}

	_, err := NewLogger("loud")
	assert.Error(t, err)
}
