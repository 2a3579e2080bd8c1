package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"immodex/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// InitSchema creates the tables the daemon needs. Safe to call on every
// startup.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS jobs (
			id UUID PRIMARY KEY,
			kind TEXT NOT NULL,
			lane INT NOT NULL DEFAULT 1,
			payload JSONB NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			started_at TIMESTAMPTZ,
			finished_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS jobs_pending_idx ON jobs (lane, created_at) WHERE status = 'pending';

		CREATE TABLE IF NOT EXISTS ingest_runs (
			id BIGSERIAL PRIMARY KEY,
			zone TEXT NOT NULL,
			catalog TEXT NOT NULL,
			created INT NOT NULL DEFAULT 0,
			updated INT NOT NULL DEFAULT 0,
			errors INT NOT NULL DEFAULT 0,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS error_reports (
			id BIGSERIAL PRIMARY KEY,
			catalog TEXT NOT NULL,
			items JSONB NOT NULL DEFAULT '[]',
			messages TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// =============================================================================
// Jobs
// =============================================================================

func (s *PostgresStore) EnqueueJob(ctx context.Context, j *models.Job) error {
	query := `
		INSERT INTO jobs (id, kind, lane, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		j.ID, j.Kind, j.Lane, j.Payload, j.Status, j.CreatedAt,
	)
	return err
}

// ClaimNextJob atomically takes the oldest pending job from the highest
// priority lane and marks it running. Concurrent dispatchers never claim
// the same job; SKIP LOCKED makes contenders move on to the next row.
// Returns (nil, nil) when the queue is empty.
func (s *PostgresStore) ClaimNextJob(ctx context.Context) (*models.Job, error) {
	query := `
		UPDATE jobs SET
			status = 'running', attempts = attempts + 1, started_at = NOW()
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = 'pending'
			ORDER BY lane, created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, kind, lane, payload, status, attempts, error, created_at, started_at, finished_at`

	var j models.Job
	err := s.pool.QueryRow(ctx, query).Scan(
		&j.ID, &j.Kind, &j.Lane, &j.Payload, &j.Status, &j.Attempts, &j.Error,
		&j.CreatedAt, &j.StartedAt, &j.FinishedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// CompleteJob records a job's outcome. A nil jobErr marks it done.
func (s *PostgresStore) CompleteJob(ctx context.Context, id uuid.UUID, jobErr error) error {
	status := models.JobStatusDone
	message := ""
	if jobErr != nil {
		status = models.JobStatusFailed
		message = jobErr.Error()
	}

	query := `UPDATE jobs SET status = $2, error = $3, finished_at = NOW() WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id, status, message)
	return err
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	query := `
		SELECT id, kind, lane, payload, status, attempts, error, created_at, started_at, finished_at
		FROM jobs WHERE id = $1`

	var j models.Job
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&j.ID, &j.Kind, &j.Lane, &j.Payload, &j.Status, &j.Attempts, &j.Error,
		&j.CreatedAt, &j.StartedAt, &j.FinishedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// =============================================================================
// Ingest Runs
// =============================================================================

func (s *PostgresStore) CreateIngestRun(ctx context.Context, run *models.IngestRun) error {
	query := `
		INSERT INTO ingest_runs (zone, catalog, created, updated, errors, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		run.Zone, run.Catalog, run.Created, run.Updated, run.Errors, run.StartedAt, run.FinishedAt,
	).Scan(&run.ID)
}

func (s *PostgresStore) ListRecentIngestRuns(ctx context.Context, zone string, limit int) ([]models.IngestRun, error) {
	query := `
		SELECT id, zone, catalog, created, updated, errors, started_at, finished_at
		FROM ingest_runs
		WHERE zone = $1
		ORDER BY finished_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, zone, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.IngestRun
	for rows.Next() {
		var run models.IngestRun
		if err := rows.Scan(
			&run.ID, &run.Zone, &run.Catalog, &run.Created, &run.Updated, &run.Errors,
			&run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// =============================================================================
// Error Reports
// =============================================================================

func (s *PostgresStore) CreateErrorReport(ctx context.Context, r *models.ErrorReport) error {
	query := `
		INSERT INTO error_reports (catalog, items, messages, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		r.Catalog, r.Items, r.Messages, r.CreatedAt,
	).Scan(&r.ID)
}

func (s *PostgresStore) ListRecentErrorReports(ctx context.Context, limit int) ([]models.ErrorReport, error) {
	query := `
		SELECT id, catalog, items, messages, created_at
		FROM error_reports
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []models.ErrorReport
	for rows.Next() {
		var r models.ErrorReport
		if err := rows.Scan(&r.ID, &r.Catalog, &r.Items, &r.Messages, &r.CreatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
