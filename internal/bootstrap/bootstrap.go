// Package bootstrap wires storage, external collaborators and the analysis
// pipeline from the environment configuration. Both binaries start here.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorios22/twitter-news-classifier/internal/agent"
	"github.com/lorios22/twitter-news-classifier/internal/config"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/lorios22/twitter-news-classifier/internal/feeds"
	"github.com/lorios22/twitter-news-classifier/internal/llm"
	"github.com/lorios22/twitter-news-classifier/internal/memory"
	"github.com/lorios22/twitter-news-classifier/internal/service"
	"github.com/lorios22/twitter-news-classifier/internal/signal"
	"github.com/lorios22/twitter-news-classifier/internal/store"
	"go.uber.org/zap"
)

// Runtime holds everything a binary needs to analyze content.
type Runtime struct {
	Memory   *memory.Store
	Runs     domain.RunRepository
	Plan     *agent.Plan
	Analyzer *service.Analyzer
	Batches  *service.BatchManager
	Pruner   *service.MemoryPruner

	closers []func()
}

// Open builds the runtime. Call Close when done.
func Open(ctx context.Context, logger *zap.Logger) (*Runtime, error) {
	rt := &Runtime{}
	ok := false
	defer func() {
		if !ok {
			rt.Close()
		}
	}()

	if err := rt.openStorage(ctx, logger); err != nil {
		return nil, err
	}

	provider := config.LLMProvider()
	llmClient, err := llm.NewClient(provider, config.LLMAPIKey())
	if err != nil {
		return nil, fmt.Errorf("init LLM client: %w", err)
	}
	logger.Info("LLM client initialized", zap.String("provider", provider))

	specs, err := config.LoadAgentCatalog(config.AgentsFile())
	if err != nil {
		return nil, err
	}
	reg, err := agent.BuildRegistry(specs, agent.Dependencies{
		LLM:                llmClient,
		Signals:            Signals(llmClient, logger),
		IndependentTimeout: config.AgentTimeout(),
		DependentTimeout:   config.DependentTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("build agent registry: %w", err)
	}
	rt.Plan = reg.Plan()
	logger.Info("agent plan ready",
		zap.Int("independent", len(rt.Plan.Independent)),
		zap.Int("dependent", len(rt.Plan.Dependent)))

	rt.Analyzer = service.NewAnalyzer(
		rt.Plan,
		service.NewScheduler(config.AggregateTimeout(), logger),
		service.NewDependentExecutor(logger),
		service.NewConsolidator(service.DefaultConsolidatorConfig(), logger),
		rt.Memory,
		logger,
	)
	rt.Batches = service.NewBatchManager(rt.Analyzer, rt.Runs, logger)

	ok = true
	return rt, nil
}

// OpenStorage builds only the memory store, run repository and pruner, for
// maintenance commands that never call an agent.
func OpenStorage(ctx context.Context, logger *zap.Logger) (*Runtime, error) {
	rt := &Runtime{}
	if err := rt.openStorage(ctx, logger); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) openStorage(ctx context.Context, logger *zap.Logger) error {
	var pool *pgxpool.Pool
	if config.MemoryBackend() == "postgres" || config.RunStore() == "postgres" {
		p, err := openPostgres(ctx, logger)
		if err != nil {
			return err
		}
		pool = p
		rt.closers = append(rt.closers, p.Close)
	}

	kv, err := rt.openKV(pool, logger)
	if err != nil {
		return err
	}
	rt.Memory = memory.NewStore(kv, logger)

	switch backend := config.RunStore(); backend {
	case "file":
		rt.Runs = store.NewFileRunRepository(config.RunsDir())
	case "postgres":
		rt.Runs = store.NewPostgresRunRepository(pool)
	default:
		return fmt.Errorf("unknown RUN_STORE %q (valid options: file, postgres)", backend)
	}

	rt.Pruner = service.NewMemoryPruner(rt.Memory, config.MemoryRetention(), logger)
	if interval := config.MemoryPruneInterval(); interval > 0 {
		rt.Pruner.SetInterval(interval)
	}
	return nil
}

// Signals builds the rule-based signal agents and their live collaborators.
func Signals(llmClient domain.LLMClient, logger *zap.Logger) map[string]domain.Invoker {
	reddit := feeds.NewRedditClient(config.RedditUserAgent(), config.RedditRPS(), logger)
	binance := feeds.NewBinanceClient(config.BinanceBaseURL())

	return map[string]domain.Invoker{
		agent.SarcasmSentinel:     signal.NewSarcasm(llmClient, logger),
		agent.EchoMapper:          signal.NewEcho([]domain.MentionSource{reddit}, logger),
		agent.LatencyGuard:        signal.NewLatency(binance, logger),
		agent.SlopFilter:          signal.Slop{},
		agent.BannedPhraseSkeptic: signal.NewBanned(logger),
	}
}

// Close releases storage handles in reverse order.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

func (rt *Runtime) openKV(pool *pgxpool.Pool, logger *zap.Logger) (domain.KVStore, error) {
	switch backend := config.MemoryBackend(); backend {
	case "memory":
		logger.Info("using in-process memory store")
		return store.NewMemoryKV(), nil
	case "sqlite":
		path := config.SQLitePath()
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		kv, err := store.OpenSQLiteKV(path)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() { _ = kv.Close() })
		logger.Info("using sqlite memory store", zap.String("path", path))
		return kv, nil
	case "postgres":
		logger.Info("using postgres memory store")
		return store.NewPostgresKV(pool), nil
	default:
		return nil, fmt.Errorf("unknown MEMORY_BACKEND %q (valid options: memory, sqlite, postgres)", backend)
	}
}

func openPostgres(ctx context.Context, logger *zap.Logger) (*pgxpool.Pool, error) {
	dbURL := config.DatabaseURL()
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
	}
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("connected to database")

	if err := store.Migrate(ctx, pool, config.MigrationsPath()); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
