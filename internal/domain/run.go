package domain

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

type QualityLevel string

const (
	QualityExcellent QualityLevel = "excellent"
	QualityGood      QualityLevel = "good"
	QualityAverage   QualityLevel = "average"
	QualityPoor      QualityLevel = "poor"
	QualityVeryPoor  QualityLevel = "very_poor"
)

// QualityLevelFor buckets a final score.
func QualityLevelFor(score float64) QualityLevel {
	switch {
	case score >= 9:
		return QualityExcellent
	case score >= 7:
		return QualityGood
	case score >= 5:
		return QualityAverage
	case score >= 3:
		return QualityPoor
	default:
		return QualityVeryPoor
	}
}

type AnalysisRun struct {
	RunID              uuid.UUID               `json:"run_id"`
	ContentItemID      string                  `json:"content_item_id"`
	AuthorKey          string                  `json:"author_key,omitempty"`
	Outcomes           map[string]AgentOutcome `json:"outcomes"`
	Consolidation      *ConsolidationResult    `json:"consolidation"`
	TotalLatencyMs     int64                   `json:"total_latency_ms"`
	OverallStatus      RunStatus               `json:"overall_status"`
	EscalationRequired bool                    `json:"escalation_required"`
	EscalationReasons  []string                `json:"escalation_reasons,omitempty"`
	QualityLevel       QualityLevel            `json:"quality_level"`
	StartedAt          time.Time               `json:"started_at"`
}

// SuccessRate is the fraction of outcomes with status success.
func (r *AnalysisRun) SuccessRate() float64 {
	if len(r.Outcomes) == 0 {
		return 0
	}
	ok := 0
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			ok++
		}
	}
	return float64(ok) / float64(len(r.Outcomes))
}

// AverageAgentScore is the plain mean of successful agents' scores.
func (r *AnalysisRun) AverageAgentScore() float64 {
	var sum float64
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			sum += o.Record.Score()
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func (r *AnalysisRun) FinalScore() float64 {
	if r.Consolidation == nil {
		return NeutralScore
	}
	return r.Consolidation.FinalScore
}

type RetryPolicy struct {
	MaxRetries        int           `json:"max_retries"`
	RetryDelay        time.Duration `json:"retry_delay"`
	BatchSize         int           `json:"batch_size"`
	BatchPause        time.Duration `json:"batch_pause"`
	Concurrency       int           `json:"concurrency"`
	ContinueOnFailure bool          `json:"continue_on_failure"`
	SaveIntermediate  bool          `json:"save_intermediate"`
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		RetryDelay:        30 * time.Second,
		BatchSize:         5,
		BatchPause:        1 * time.Second,
		Concurrency:       1,
		ContinueOnFailure: true,
		SaveIntermediate:  true,
	}
}

type ItemFailure struct {
	ItemID   string `json:"item_id"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

type BatchStats struct {
	Processed        int `json:"processed"`
	Succeeded        int `json:"succeeded"`
	Failed           int `json:"failed"`
	RetriesAttempted int `json:"retries_attempted"`
	APIErrors        int `json:"api_errors"`
}

type ScoreDistribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

type BatchSummary struct {
	AverageScore     float64                `json:"average_score"`
	Distribution     ScoreDistribution      `json:"score_distribution"`
	QualityLevels    map[QualityLevel]int   `json:"quality_levels"`
	ConfidenceTiers  map[ConfidenceTier]int `json:"confidence_tiers"`
	Escalations      int                    `json:"escalations"`
	AverageLatencyMs int64                  `json:"average_latency_ms"`
}

type BatchReport struct {
	BatchID     uuid.UUID      `json:"batch_id"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	Policy      RetryPolicy    `json:"policy"`
	Runs        []*AnalysisRun `json:"runs"`
	Failures    []ItemFailure  `json:"failures"`
	Stats       BatchStats     `json:"stats"`
	Summary     BatchSummary   `json:"summary"`
	Status      RunStatus      `json:"status"`
	Aborted     bool           `json:"aborted"`
}
