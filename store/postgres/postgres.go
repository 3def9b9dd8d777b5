// Package postgres persists scan history in PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/use-agent/complyscan/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is a history store backed by a pgx connection pool.
type Store struct {
	Pool *pgxpool.Pool
}

// Connect opens a pool, verifies it with a ping and applies pending
// migrations.
func Connect(ctx context.Context, url string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, dbError("parse database URL", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, dbError("create pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, dbError("ping database", err)
	}

	s := &Store{Pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the embedded goose migrations.
func (s *Store) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.Pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return dbError("set migration dialect", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return dbError("apply migrations", err)
	}
	return nil
}

// Name identifies the backend in health output.
func (s *Store) Name() string { return "postgres" }

// Close closes the pool.
func (s *Store) Close() { s.Pool.Close() }

// Save inserts one scan result.
func (s *Store) Save(ctx context.Context, r *models.ScanResult) error {
	findings, err := json.Marshal(r.Findings)
	if err != nil {
		return fmt.Errorf("marshal findings: %w", err)
	}
	breakdown, err := json.Marshal(r.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}

	_, err = s.Pool.Exec(ctx, `
		INSERT INTO scan_results
			(id, target, final_url, total_score, grade, status, findings, breakdown, ai_summary, scanned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, r.ID, r.Target, r.FinalURL, r.Breakdown.Total, r.Breakdown.Grade, string(r.Breakdown.Status),
		findings, breakdown, r.AISummary, r.ScannedAt)
	if err != nil {
		return dbError("insert scan result", err)
	}
	return nil
}

// History returns up to limit results for target, newest first.
func (s *Store) History(ctx context.Context, target string, limit int) ([]*models.ScanResult, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id::text, target, final_url, findings, breakdown, ai_summary, scanned_at
		FROM scan_results
		WHERE target = $1
		ORDER BY scanned_at DESC
		LIMIT $2
	`, target, limit)
	if err != nil {
		return nil, dbError("query history", err)
	}
	defer rows.Close()

	results := []*models.ScanResult{}
	for rows.Next() {
		var (
			r                   models.ScanResult
			findings, breakdown []byte
		)
		if err := rows.Scan(&r.ID, &r.Target, &r.FinalURL, &findings, &breakdown, &r.AISummary, &r.ScannedAt); err != nil {
			return nil, dbError("scan history row", err)
		}
		if err := json.Unmarshal(findings, &r.Findings); err != nil {
			return nil, dbError("decode findings", err)
		}
		if err := json.Unmarshal(breakdown, &r.Breakdown); err != nil {
			return nil, dbError("decode breakdown", err)
		}
		r.ScannedAt = r.ScannedAt.UTC()
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate history", err)
	}
	return results, nil
}

func dbError(msg string, err error) error {
	return models.NewScanError(models.ErrKindDatabase, msg, err)
}
