package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
)

var _ domain.KVStore = (*PostgresKV)(nil)

// PostgresKV stores memory records as JSONB rows in memory_records.
type PostgresKV struct {
	db *pgxpool.Pool
}

func NewPostgresKV(db *pgxpool.Pool) *PostgresKV {
	return &PostgresKV{db: db}
}

func (s *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(ctx,
		`SELECT value FROM memory_records WHERE key = $1`,
		key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (s *PostgresKV) Put(ctx context.Context, key string, value []byte) error {
	ns, _, _ := domain.SplitMemoryKey(key)
	_, err := s.db.Exec(ctx,
		`INSERT INTO memory_records (key, namespace, value, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, string(ns), value,
	)
	if err != nil {
		return fmt.Errorf("upsert memory record: %w", err)
	}
	return nil
}

func (s *PostgresKV) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM memory_records WHERE key = $1`, key)
	return err
}

func (s *PostgresKV) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	rows, err := s.db.Query(ctx,
		`SELECT key, value FROM memory_records WHERE starts_with(key, $1) ORDER BY key`,
		prefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, rows.Err()
}

func (s *PostgresKV) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
