package service

import (
	"context"
	"sync"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/memory"
	"go.uber.org/zap"
)

const (
	defaultPruneInterval = 24 * time.Hour
	DefaultRetention     = 30 * 24 * time.Hour
)

// MemoryPruner removes memory records older than the retention horizon.
// Pruning is on demand through Prune; Start adds an optional periodic schedule.
type MemoryPruner struct {
	memory    *memory.Store
	retention time.Duration
	logger    *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewMemoryPruner(m *memory.Store, retention time.Duration, logger *zap.Logger) *MemoryPruner {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &MemoryPruner{
		memory:    m,
		retention: retention,
		logger:    logger,
		interval:  defaultPruneInterval,
		stopCh:    make(chan struct{}),
	}
}

func (p *MemoryPruner) SetInterval(d time.Duration) {
	p.interval = d
}

// Prune removes records older than horizon, or the configured retention when
// horizon is zero.
func (p *MemoryPruner) Prune(ctx context.Context, horizon time.Duration) (int, error) {
	if horizon <= 0 {
		horizon = p.retention
	}
	return p.memory.Prune(ctx, horizon)
}

// Start runs the pruner on a periodic schedule in a background goroutine.
func (p *MemoryPruner) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.logger.Info("memory pruner started",
			zap.Duration("interval", p.interval), zap.Duration("retention", p.retention))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if _, err := p.Prune(ctx, 0); err != nil {
					p.logger.Error("failed to prune memory", zap.Error(err))
				}
				cancel()
			case <-p.stopCh:
				p.logger.Info("memory pruner stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the pruner.
func (p *MemoryPruner) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}
