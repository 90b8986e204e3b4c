// Package storage persists scraped jobs keyed by URL.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/rs/zerolog"
)

const BatchSize = 50

var ErrNoStore = errors.New("no job store configured")

// Store upserts jobs by URL. Re-saving a URL updates the row and keeps its id.
type Store interface {
	UpsertBatch(ctx context.Context, jobs []models.ScrapedJob) (int, error)
	Upsert(ctx context.Context, job models.ScrapedJob) error
	List(ctx context.Context, filter Filter) ([]models.ScrapedJob, error)
	Close() error
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Source models.Source
	Limit  int
}

func (f Filter) match(job models.ScrapedJob) bool {
	return f.Source == "" || job.Source == f.Source
}

// SaveJobs writes jobs in batches. A failed batch is retried row by row;
// rows that still fail are logged and not counted.
func SaveJobs(ctx context.Context, store Store, jobs []models.ScrapedJob, logger zerolog.Logger) (int, error) {
	if len(jobs) == 0 {
		return 0, nil
	}
	if store == nil {
		return 0, ErrNoStore
	}

	saved := 0
	for start := 0; start < len(jobs); start += BatchSize {
		if err := ctx.Err(); err != nil {
			return saved, fmt.Errorf("save interrupted after %d jobs: %w", saved, err)
		}
		batch := jobs[start:min(start+BatchSize, len(jobs))]

		n, err := store.UpsertBatch(ctx, batch)
		if err == nil {
			saved += n
			continue
		}
		logger.Error().Err(err).Int("rows", len(batch)).Msg("batch upsert failed, saving rows individually")

		for _, job := range batch {
			if err := store.Upsert(ctx, job); err != nil {
				logger.Warn().Err(err).
					Str("title", job.Title).
					Str("company", job.Company).
					Str("url", job.URL).
					Msg("failed to upsert job")
				continue
			}
			saved++
		}
	}

	logger.Info().Int("saved", saved).Int("total", len(jobs)).Msg("upserted jobs")
	return saved, nil
}

func validate(jobs []models.ScrapedJob) error {
	for _, job := range jobs {
		if Key(job) == "" {
			return fmt.Errorf("job %q at %q has no url", job.Title, job.Company)
		}
	}
	return nil
}

// merge applies upserts to rows in place, keyed by URL. Stored ids survive.
func merge(rows []models.ScrapedJob, index map[string]int, jobs []models.ScrapedJob) []models.ScrapedJob {
	for _, job := range jobs {
		key := Key(job)
		if i, ok := index[key]; ok {
			if rows[i].ID != "" {
				job.ID = rows[i].ID
			}
			rows[i] = job
			continue
		}
		index[key] = len(rows)
		rows = append(rows, job)
	}
	return rows
}

func list(rows []models.ScrapedJob, filter Filter) []models.ScrapedJob {
	out := make([]models.ScrapedJob, 0, len(rows))
	for _, job := range rows {
		if !filter.match(job) {
			continue
		}
		out = append(out, job)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out
}
