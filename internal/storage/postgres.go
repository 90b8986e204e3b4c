package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimezsa/jobcrawl/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS scraped_jobs (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	company          TEXT NOT NULL,
	location         TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	url              TEXT NOT NULL UNIQUE,
	salary           TEXT,
	source           TEXT NOT NULL,
	posted_at        TIMESTAMPTZ,
	scraped_at       TIMESTAMPTZ NOT NULL,
	tags             TEXT[] NOT NULL DEFAULT '{}',
	job_type         TEXT,
	experience_level TEXT
);
CREATE INDEX IF NOT EXISTS scraped_jobs_source_idx ON scraped_jobs (source, scraped_at DESC);`

const upsertSQL = `
INSERT INTO scraped_jobs
	(id, title, company, location, description, url, salary, source, posted_at, scraped_at, tags, job_type, experience_level)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (url) DO UPDATE SET
	title = EXCLUDED.title,
	company = EXCLUDED.company,
	location = EXCLUDED.location,
	description = EXCLUDED.description,
	salary = EXCLUDED.salary,
	source = EXCLUDED.source,
	posted_at = EXCLUDED.posted_at,
	scraped_at = EXCLUDED.scraped_at,
	tags = EXCLUDED.tags,
	job_type = EXCLUDED.job_type,
	experience_level = EXCLUDED.experience_level`

const listSQL = `
SELECT id, title, company, location, description, url, salary, source, posted_at, scraped_at, tags, job_type, experience_level
FROM scraped_jobs
WHERE ($1 = '' OR source = $1)
ORDER BY scraped_at DESC
LIMIT $2`

// PostgresStore writes to the scraped_jobs table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// UpsertBatch writes every row in one transaction or none of them.
func (s *PostgresStore) UpsertBatch(ctx context.Context, jobs []models.ScrapedJob) (int, error) {
	if len(jobs) == 0 {
		return 0, nil
	}
	if err := validate(jobs); err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, job := range jobs {
		batch.Queue(upsertSQL, upsertArgs(job)...)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range jobs {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("upsert row %d (%s): %w", i, jobs[i].URL, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(jobs), nil
}

func (s *PostgresStore) Upsert(ctx context.Context, job models.ScrapedJob) error {
	if err := validate([]models.ScrapedJob{job}); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, upsertSQL, upsertArgs(job)...); err != nil {
		return fmt.Errorf("upsert %s: %w", job.URL, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]models.ScrapedJob, error) {
	var limit any
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	rows, err := s.pool.Query(ctx, listSQL, string(filter.Source), limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.ScrapedJob
	for rows.Next() {
		var (
			job                              models.ScrapedJob
			source                           string
			salary, jobType, experienceLevel *string
		)
		if err := rows.Scan(&job.ID, &job.Title, &job.Company, &job.Location, &job.Description, &job.URL,
			&salary, &source, &job.PostedAt, &job.ScrapedAt, &job.Tags, &jobType, &experienceLevel); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		job.Source = models.Source(source)
		job.Salary = deref(salary)
		job.JobType = models.JobType(deref(jobType))
		job.ExperienceLevel = models.ExperienceLevel(deref(experienceLevel))
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func upsertArgs(job models.ScrapedJob) []any {
	tags := job.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{
		job.ID, job.Title, job.Company, job.Location, job.Description, job.URL,
		nullable(job.Salary), string(job.Source), job.PostedAt, job.ScrapedAt, tags,
		nullable(string(job.JobType)), nullable(string(job.ExperienceLevel)),
	}
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
