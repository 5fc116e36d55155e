package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/lorios22/twitter-news-classifier/internal/service"
	"go.uber.org/zap"
)

type AnalyzeHandler struct {
	analyzer service.ItemAnalyzer
	runs     domain.RunRepository
	logger   *zap.Logger
}

// NewAnalyzeHandler builds the handler. runs may be nil to skip persistence.
func NewAnalyzeHandler(analyzer service.ItemAnalyzer, runs domain.RunRepository, logger *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: analyzer, runs: runs, logger: logger}
}

// Analyze scores one content item synchronously.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var item domain.ContentItem
	if err := decodeBody(w, r, &item, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	run, err := h.analyzer.Analyze(r.Context(), &item)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidItem):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, "analysis cancelled")
		default:
			writeError(w, http.StatusInternalServerError, "failed to analyze item")
		}
		return
	}

	if h.runs != nil {
		if err := h.runs.SaveRun(r.Context(), uuid.Nil, run); err != nil {
			h.logger.Warn("failed to save run", zap.String("run_id", run.RunID.String()), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, run)
}
