package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lorios22/twitter-news-classifier/internal/agent"
	"github.com/lorios22/twitter-news-classifier/internal/api/handlers"
	mw "github.com/lorios22/twitter-news-classifier/internal/api/middleware"
	"github.com/lorios22/twitter-news-classifier/internal/buildconfig"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/lorios22/twitter-news-classifier/internal/memory"
	"github.com/lorios22/twitter-news-classifier/internal/service"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP surface is built on.
type Deps struct {
	Analyzer service.ItemAnalyzer
	Jobs     *service.BatchJobs
	Runs     domain.RunRepository
	Memory   *memory.Store
	Pruner   *service.MemoryPruner
	Plan     *agent.Plan
	Policy   domain.RetryPolicy

	APIKeys        []string
	RateLimitRPS   float64
	RateLimitBurst int
}

const rateLimitCleanupInterval = 10 * time.Minute

// App holds the router, request metrics and the rate limiter's cleanup worker.
type App struct {
	Router    *chi.Mux
	Metrics   *mw.Metrics
	limiter   *mw.RateLimiter
	startTime time.Time
}

func NewApp(deps Deps, logger *zap.Logger) *App {
	analyzeHandler := handlers.NewAnalyzeHandler(deps.Analyzer, deps.Runs, logger)
	batchHandler := handlers.NewBatchHandler(deps.Jobs, deps.Policy)
	runHandler := handlers.NewRunHandler(deps.Runs)
	agentHandler := handlers.NewAgentHandler(deps.Plan)
	memoryHandler := handlers.NewMemoryHandler(deps.Memory, deps.Pruner)
	reportHandler := handlers.NewReportHandler(deps.Memory)

	r := chi.NewRouter()
	app := &App{
		Router:    r,
		Metrics:   &mw.Metrics{},
		limiter:   mw.NewRateLimiter(deps.RateLimitRPS, deps.RateLimitBurst),
		startTime: time.Now(),
	}
	app.limiter.Start(rateLimitCleanupInterval)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.Metrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)

	// Health and metrics (no auth)
	r.Get("/health", healthHandler(deps.Memory))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(deps.APIKeys))
		r.Use(app.limiter.Middleware)

		r.Post("/analyze", analyzeHandler.Analyze)
		r.Get("/agents", agentHandler.List)

		r.Route("/batches", func(r chi.Router) {
			r.Post("/", batchHandler.Submit)
			r.Get("/{id}", batchHandler.Get)
		})

		r.Get("/runs/{id}", runHandler.GetByID)

		r.Route("/memory", func(r chi.Router) {
			r.Get("/stats", memoryHandler.Stats)
			r.Post("/prune", memoryHandler.Prune)
			r.Get("/{namespace}", memoryHandler.Export)
			r.Get("/{namespace}/{entity}", memoryHandler.Get)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/trending", reportHandler.Trending)
			r.Get("/low-quality-authors", reportHandler.LowQualityAuthors)
			r.Get("/violated-terms", reportHandler.ViolatedTerms)
			r.Get("/latency-flags", reportHandler.LatencyFlags)
		})
	})

	return app
}

// Close stops background work started by NewApp.
func (app *App) Close() {
	app.limiter.Stop()
}

func healthHandler(m *memory.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := m.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.Metrics.Requests.Load(),
			"error_count":    app.Metrics.Errors.Load(),
			"in_flight":      app.Metrics.InFlight.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"build":      buildconfig.VersionInfo(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}
