package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
)

var _ domain.RunRepository = (*PostgresRunRepository)(nil)

type PostgresRunRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRunRepository(db *pgxpool.Pool) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

func (r *PostgresRunRepository) SaveRun(ctx context.Context, batchID uuid.UUID, run *domain.AnalysisRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	var batch *uuid.UUID
	if batchID != uuid.Nil {
		batch = &batchID
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO analysis_runs (run_id, batch_id, content_item_id, final_score, overall_status, escalation_required, payload, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (run_id) DO UPDATE SET payload = EXCLUDED.payload, final_score = EXCLUDED.final_score, overall_status = EXCLUDED.overall_status`,
		run.RunID, batch, run.ContentItemID, run.FinalScore(), string(run.OverallStatus), run.EscalationRequired, payload, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *PostgresRunRepository) SaveReport(ctx context.Context, report *domain.BatchReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO batch_reports (batch_id, status, processed, succeeded, failed, payload, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (batch_id) DO UPDATE SET status = EXCLUDED.status, payload = EXCLUDED.payload, completed_at = EXCLUDED.completed_at`,
		report.BatchID, string(report.Status), report.Stats.Processed, report.Stats.Succeeded, report.Stats.Failed,
		payload, report.StartedAt, report.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (r *PostgresRunRepository) GetRun(ctx context.Context, runID uuid.UUID) (*domain.AnalysisRun, error) {
	var payload []byte
	err := r.db.QueryRow(ctx,
		`SELECT payload FROM analysis_runs WHERE run_id = $1`, runID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var run domain.AnalysisRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &run, nil
}
