package handlers

import (
	"net/http"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/memory"
)

const defaultReportWindow = 24 * time.Hour

type ReportHandler struct {
	memory *memory.Store
}

func NewReportHandler(m *memory.Store) *ReportHandler {
	return &ReportHandler{memory: m}
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func list[T any](items []T) listResponse[T] {
	return listResponse[T]{Items: items, Count: len(items)}
}

func (h *ReportHandler) Trending(w http.ResponseWriter, r *http.Request) {
	window, ok := queryHours(r, "hours", defaultReportWindow)
	if !ok {
		writeError(w, http.StatusBadRequest, "hours must be a positive number")
		return
	}
	minVelocity, ok := queryFloat(r, "min_velocity", 0.5)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid min_velocity")
		return
	}

	topics, err := h.memory.TrendingTopics(r.Context(), window, minVelocity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query trending topics")
		return
	}
	writeJSON(w, http.StatusOK, list(topics))
}

func (h *ReportHandler) LowQualityAuthors(w http.ResponseWriter, r *http.Request) {
	threshold, ok := queryFloat(r, "threshold", 0.7)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid threshold")
		return
	}
	minCount, ok := queryInt(r, "min_count", 5)
	if !ok {
		writeError(w, http.StatusBadRequest, "min_count must be a positive integer")
		return
	}

	authors, err := h.memory.ChronicLowQualityAuthors(r.Context(), threshold, minCount)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query authors")
		return
	}
	writeJSON(w, http.StatusOK, list(authors))
}

func (h *ReportHandler) ViolatedTerms(w http.ResponseWriter, r *http.Request) {
	top, ok := queryInt(r, "top", 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "top must be a positive integer")
		return
	}

	terms, err := h.memory.MostViolatedTerms(r.Context(), top)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query violated terms")
		return
	}
	writeJSON(w, http.StatusOK, list(terms))
}

func (h *ReportHandler) LatencyFlags(w http.ResponseWriter, r *http.Request) {
	window, ok := queryHours(r, "hours", defaultReportWindow)
	if !ok {
		writeError(w, http.StatusBadRequest, "hours must be a positive number")
		return
	}

	flags, err := h.memory.RecentLatencyFlags(r.Context(), window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query latency flags")
		return
	}
	writeJSON(w, http.StatusOK, list(flags))
}
