package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/lorios22/twitter-news-classifier/internal/service"
)

const (
	maxBatchItems   = 1000
	maxDelaySeconds = 3600
)

type BatchHandler struct {
	jobs     *service.BatchJobs
	defaults domain.RetryPolicy
}

func NewBatchHandler(jobs *service.BatchJobs, defaults domain.RetryPolicy) *BatchHandler {
	return &BatchHandler{jobs: jobs, defaults: defaults}
}

// policyOverrides are optional per-batch changes to the default policy.
type policyOverrides struct {
	MaxRetries        *int     `json:"max_retries,omitempty"`
	RetryDelaySeconds *float64 `json:"retry_delay_seconds,omitempty"`
	BatchSize         *int     `json:"batch_size,omitempty"`
	BatchPauseSeconds *float64 `json:"batch_pause_seconds,omitempty"`
	Concurrency       *int     `json:"concurrency,omitempty"`
	ContinueOnFailure *bool    `json:"continue_on_failure,omitempty"`
	SaveIntermediate  *bool    `json:"save_intermediate,omitempty"`
}

type submitBatchRequest struct {
	Items  []domain.ContentItem `json:"items"`
	Policy *policyOverrides     `json:"policy,omitempty"`
}

type submitBatchResponse struct {
	BatchID uuid.UUID        `json:"batch_id"`
	State   service.JobState `json:"state"`
	Items   int              `json:"items"`
}

func (h *BatchHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitBatchRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items is required")
		return
	}
	if len(req.Items) > maxBatchItems {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d items per batch", maxBatchItems))
		return
	}

	policy, err := applyOverrides(h.defaults, req.Policy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.jobs.Submit(domain.StaticItems(req.Items), policy)
	if err != nil {
		if errors.Is(err, service.ErrJobsStopped) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to submit batch")
		return
	}
	writeJSON(w, http.StatusAccepted, submitBatchResponse{BatchID: id, State: service.JobRunning, Items: len(req.Items)})
}

func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch id")
		return
	}

	job, err := h.jobs.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrBatchNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get batch")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func applyOverrides(p domain.RetryPolicy, o *policyOverrides) (domain.RetryPolicy, error) {
	if o == nil {
		return p, nil
	}
	if o.MaxRetries != nil {
		if *o.MaxRetries < 0 || *o.MaxRetries > 10 {
			return p, errors.New("max_retries must be within [0, 10]")
		}
		p.MaxRetries = *o.MaxRetries
	}
	if o.RetryDelaySeconds != nil {
		d, err := delaySeconds("retry_delay_seconds", *o.RetryDelaySeconds)
		if err != nil {
			return p, err
		}
		p.RetryDelay = d
	}
	if o.BatchSize != nil {
		if *o.BatchSize <= 0 {
			return p, errors.New("batch_size must be positive")
		}
		p.BatchSize = *o.BatchSize
	}
	if o.BatchPauseSeconds != nil {
		d, err := delaySeconds("batch_pause_seconds", *o.BatchPauseSeconds)
		if err != nil {
			return p, err
		}
		p.BatchPause = d
	}
	if o.Concurrency != nil {
		if *o.Concurrency <= 0 {
			return p, errors.New("concurrency must be positive")
		}
		p.Concurrency = *o.Concurrency
	}
	if o.ContinueOnFailure != nil {
		p.ContinueOnFailure = *o.ContinueOnFailure
	}
	if o.SaveIntermediate != nil {
		p.SaveIntermediate = *o.SaveIntermediate
	}
	return p, nil
}

func delaySeconds(field string, secs float64) (time.Duration, error) {
	if math.IsNaN(secs) || secs < 0 || secs > maxDelaySeconds {
		return 0, fmt.Errorf("%s must be within [0, %d]", field, maxDelaySeconds)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
