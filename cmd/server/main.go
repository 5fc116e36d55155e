package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/api"
	"github.com/lorios22/twitter-news-classifier/internal/bootstrap"
	"github.com/lorios22/twitter-news-classifier/internal/buildconfig"
	"github.com/lorios22/twitter-news-classifier/internal/config"
	"github.com/lorios22/twitter-news-classifier/internal/service"
	"go.uber.org/zap"
)

func main() {
	if err := config.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := bootstrap.NewLogger(config.LogLevel())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	rt, err := bootstrap.Open(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialize runtime", zap.Error(err))
	}
	defer rt.Close()

	jobs := service.NewBatchJobs(rt.Batches, logger)
	jobs.SetRetention(config.BatchJobRetention())

	keys := config.APIKeys()
	if len(keys) == 0 {
		logger.Warn("API_KEYS is empty, /v1 routes are unauthenticated")
	}

	app := api.NewApp(api.Deps{
		Analyzer:       rt.Analyzer,
		Jobs:           jobs,
		Runs:           rt.Runs,
		Memory:         rt.Memory,
		Pruner:         rt.Pruner,
		Plan:           rt.Plan,
		Policy:         config.RetryPolicy(),
		APIKeys:        keys,
		RateLimitRPS:   config.RateLimitRPS(),
		RateLimitBurst: config.RateLimitBurst(),
	}, logger)

	// Start background services
	prune := config.MemoryPruneInterval() > 0
	if prune {
		rt.Pruner.Start()
	}

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("version", buildconfig.Version()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Stop background services
	app.Close()
	jobs.Stop()
	if prune {
		rt.Pruner.Stop()
	}

	logger.Info("server stopped")
}
