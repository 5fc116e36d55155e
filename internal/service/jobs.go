package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrBatchNotFound = errors.New("batch not found")
	ErrJobsStopped   = errors.New("batch runner is shutting down")
)

// DefaultJobRetention is how long a finished job stays queryable. Its report
// is also persisted through the run repository.
const DefaultJobRetention = time.Hour

type JobState string

const (
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobAborted   JobState = "aborted"
	JobCancelled JobState = "cancelled"
)

type BatchJob struct {
	ID          uuid.UUID           `json:"batch_id"`
	State       JobState            `json:"state"`
	Items       int                 `json:"items"`
	SubmittedAt time.Time           `json:"submitted_at"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
	Report      *domain.BatchReport `json:"report,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// BatchJobs runs submitted batches in the background and keeps their status
// in memory. Finished jobs are evicted once older than the retention window.
type BatchJobs struct {
	manager   *BatchManager
	logger    *zap.Logger
	retention time.Duration
	now       func() time.Time

	mu   sync.Mutex
	jobs map[uuid.UUID]*BatchJob

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped bool
}

func NewBatchJobs(manager *BatchManager, logger *zap.Logger) *BatchJobs {
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchJobs{
		manager:   manager,
		logger:    logger,
		retention: DefaultJobRetention,
		now:       time.Now,
		jobs:      map[uuid.UUID]*BatchJob{},
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (j *BatchJobs) SetRetention(d time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.retention = d
}

// Submit starts a batch and returns its id immediately.
func (j *BatchJobs) Submit(items []domain.ItemSource, policy domain.RetryPolicy) (uuid.UUID, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopped {
		return uuid.Nil, ErrJobsStopped
	}
	j.evictLocked()

	id := uuid.New()
	j.jobs[id] = &BatchJob{
		ID:          id,
		State:       JobRunning,
		Items:       len(items),
		SubmittedAt: j.now().UTC(),
	}

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		report, err := j.manager.Process(j.ctx, id, items, policy)
		j.finish(id, report, err)
	}()
	return id, nil
}

func (j *BatchJobs) finish(id uuid.UUID, report *domain.BatchReport, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	job := j.jobs[id]
	now := j.now().UTC()
	job.FinishedAt = &now
	job.Report = report
	switch {
	case err == nil:
		job.State = JobCompleted
	case errors.Is(err, ErrBatchAborted):
		job.State = JobAborted
		job.Error = err.Error()
	default:
		job.State = JobCancelled
		job.Error = err.Error()
	}
	j.logger.Info("batch job finished", zap.String("batch_id", id.String()), zap.String("state", string(job.State)))
}

// Get returns a copy of the job's current status.
func (j *BatchJobs) Get(id uuid.UUID) (BatchJob, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.evictLocked()
	job, ok := j.jobs[id]
	if !ok {
		return BatchJob{}, ErrBatchNotFound
	}
	return *job, nil
}

// Evict drops finished jobs older than the retention window and returns how
// many were removed. Running jobs are never evicted.
func (j *BatchJobs) Evict() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.evictLocked()
}

func (j *BatchJobs) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.jobs)
}

func (j *BatchJobs) evictLocked() int {
	cutoff := j.now().Add(-j.retention)
	removed := 0
	for id, job := range j.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(j.jobs, id)
			removed++
		}
	}
	return removed
}

// Stop cancels running batches and waits for them to record their reports.
func (j *BatchJobs) Stop() {
	j.mu.Lock()
	j.stopped = true
	j.mu.Unlock()

	j.cancel()
	j.wg.Wait()
}
