package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// KVStore is the persistence layer under the Memory Store. Get returns
// store.ErrNotFound for absent keys.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)
}

// RunRepository is the external persistence collaborator for analysis output.
type RunRepository interface {
	SaveRun(ctx context.Context, batchID uuid.UUID, run *AnalysisRun) error
	SaveReport(ctx context.Context, report *BatchReport) error
	GetRun(ctx context.Context, runID uuid.UUID) (*AnalysisRun, error)
}

// LLMClient completes a single system+user exchange and returns the raw text.
type LLMClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// PricePoint is one close price sample.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
}

// PriceFeed returns price samples for an asset in the window ending at `end`.
type PriceFeed interface {
	PriceHistory(ctx context.Context, asset string, end time.Time, window time.Duration) ([]PricePoint, error)
}

// MentionSource counts recent cross-platform mentions of a set of keywords.
type MentionSource interface {
	Platform() string
	CountMentions(ctx context.Context, keywords []string) (int, error)
}
