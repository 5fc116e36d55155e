package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/lorios22/twitter-news-classifier/internal/memory"
	"github.com/lorios22/twitter-news-classifier/internal/service"
)

type MemoryHandler struct {
	memory *memory.Store
	pruner *service.MemoryPruner
}

func NewMemoryHandler(m *memory.Store, pruner *service.MemoryPruner) *MemoryHandler {
	return &MemoryHandler{memory: m, pruner: pruner}
}

func (h *MemoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.memory.Statistics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read memory statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type pruneRequest struct {
	Days int `json:"days"`
}

type pruneResponse struct {
	Removed int `json:"removed"`
	Days    int `json:"days,omitempty"`
}

// Prune removes records older than the requested number of days, or the
// configured retention when days is omitted.
func (h *MemoryHandler) Prune(w http.ResponseWriter, r *http.Request) {
	var req pruneRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Days < 0 {
		writeError(w, http.StatusBadRequest, "days must not be negative")
		return
	}

	removed, err := h.pruner.Prune(r.Context(), time.Duration(req.Days)*24*time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to prune memory")
		return
	}
	writeJSON(w, http.StatusOK, pruneResponse{Removed: removed, Days: req.Days})
}

// Export returns every record in a namespace.
func (h *MemoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	ns := domain.Namespace(chi.URLParam(r, "namespace"))
	records, err := h.memory.Export(r.Context(), ns)
	if err != nil {
		if errors.Is(err, memory.ErrUnknownNamespace) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to export memory")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"namespace": ns,
		"count":     len(records),
		"records":   records,
	})
}

// Get returns one record, or the namespace default when it was never written.
func (h *MemoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	ns := chi.URLParam(r, "namespace")
	if !domain.ValidNamespace(ns) {
		writeError(w, http.StatusBadRequest, memory.ErrUnknownNamespace.Error()+": "+ns)
		return
	}
	rec := h.memory.Get(r.Context(), domain.Namespace(ns), chi.URLParam(r, "entity"))
	writeJSON(w, http.StatusOK, map[string]any{
		"key":          rec.Key(),
		"exists":       rec.Exists(),
		"fields":       rec.Fields,
		"last_updated": rec.LastUpdated,
	})
}
