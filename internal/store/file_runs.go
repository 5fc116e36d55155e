package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
)

var _ domain.RunRepository = (*FileRunRepository)(nil)

// maxItemNameLen bounds the item id part of a run file name. Longer ids are
// cut and suffixed with a digest of the full id.
const maxItemNameLen = 64

// FileRunRepository writes runs and reports as indented JSON under dir:
//
//	<dir>/<batchID>/intermediate/<itemID>_<runID>.json
//	<dir>/<batchID>/report.json
type FileRunRepository struct {
	dir string

	mu    sync.RWMutex
	index map[uuid.UUID]string
}

func NewFileRunRepository(dir string) *FileRunRepository {
	return &FileRunRepository{dir: dir, index: make(map[uuid.UUID]string)}
}

func (r *FileRunRepository) SaveRun(ctx context.Context, batchID uuid.UUID, run *domain.AnalysisRun) error {
	dir := filepath.Join(r.dir, batchID.String(), "intermediate")
	name := fmt.Sprintf("%s_%s.json", safeName(run.ContentItemID), run.RunID)
	path := filepath.Join(dir, name)
	if err := writeJSONFile(dir, path, run); err != nil {
		return fmt.Errorf("save run %s: %w", run.RunID, err)
	}

	r.mu.Lock()
	r.index[run.RunID] = path
	r.mu.Unlock()
	return nil
}

func (r *FileRunRepository) SaveReport(ctx context.Context, report *domain.BatchReport) error {
	dir := filepath.Join(r.dir, report.BatchID.String())
	if err := writeJSONFile(dir, filepath.Join(dir, "report.json"), report); err != nil {
		return fmt.Errorf("save report %s: %w", report.BatchID, err)
	}
	return nil
}

// GetRun looks the run up in the in-process index first and falls back to
// matching the run id against the file layout for runs written by earlier
// processes.
func (r *FileRunRepository) GetRun(ctx context.Context, runID uuid.UUID) (*domain.AnalysisRun, error) {
	r.mu.RLock()
	path, ok := r.index[runID]
	r.mu.RUnlock()

	if !ok {
		// Runs live at <dir>/<batch>/intermediate/<item>_<run>.json.
		pattern := filepath.Join(globEscape(r.dir), "*", "intermediate", "*_"+runID.String()+".json")
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, ErrNotFound
		}
		path = matches[0]

		r.mu.Lock()
		r.index[runID] = path
		r.mu.Unlock()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var run domain.AnalysisRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &run, nil
}

func writeJSONFile(dir, path string, v any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func safeName(s string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ', '*', '?', '[', ']':
			return '_'
		}
		return r
	}, s)
	if len(name) <= maxItemNameLen {
		return name
	}

	sum := sha256.Sum256([]byte(s))
	digest := hex.EncodeToString(sum[:6])
	cut := maxItemNameLen - len(digest) - 1
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut] + "-" + digest
}

func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
