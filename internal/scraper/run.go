package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jimezsa/jobcrawl/internal/config"
	"github.com/jimezsa/jobcrawl/internal/filter"
	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/jimezsa/jobcrawl/internal/network"
	"github.com/jimezsa/jobcrawl/internal/storage"
	"github.com/rs/zerolog"
)

// RunContext carries the per-run state a fetcher works with.
type RunContext struct {
	Source  models.Source
	HTTP    Client
	Targets config.Targets
	Logger  zerolog.Logger

	mu     sync.Mutex
	errors []models.ScraperError
	now    func() time.Time
}

func NewRunContext(source models.Source, client Client, targets config.Targets, logger zerolog.Logger) *RunContext {
	return &RunContext{
		Source:  source,
		HTTP:    client,
		Targets: targets,
		Logger:  logger.With().Str("source", string(source)).Logger(),
		now:     time.Now,
	}
}

// AddError records a diagnostic for this run.
func (rc *RunContext) AddError(message, url string, retryable bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.errors = append(rc.errors, models.ScraperError{
		Source:    rc.Source,
		Message:   message,
		URL:       url,
		Timestamp: rc.now(),
		Retryable: retryable,
	})
}

// Fail records err for one entity (a company, query or page).
func (rc *RunContext) Fail(what, url string, err error) {
	rc.Logger.Error().Err(err).Str("url", url).Msgf("failed to fetch %s", what)
	rc.AddError(fmt.Sprintf("failed to fetch %s: %v", what, err), url, network.Retryable(err))
}

func (rc *RunContext) Errors() []models.ScraperError {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]models.ScraperError, len(rc.errors))
	copy(out, rc.errors)
	return out
}

// Pause is the politeness sleep between entities.
func (rc *RunContext) Pause(ctx context.Context, min, max time.Duration) error {
	return rc.HTTP.Pause(ctx, min, max)
}

// Halted reports whether err means the run is being stopped rather than
// that one entity failed.
func (rc *RunContext) Halted(err error) bool {
	return errors.Is(err, network.ErrShuttingDown) || errors.Is(err, context.Canceled)
}

// Run fetches, filters, enriches and stores one source's jobs. It never
// fails: problems end up in the result's Errors.
func Run(ctx context.Context, fetcher Fetcher, rc *RunContext, rules *filter.Rules, store storage.Store) models.ScraperResult {
	log := rc.Logger
	start := time.Now()
	log.Info().Msg("starting scraper")

	result := models.ScraperResult{Source: fetcher.Source(), Jobs: []models.ScrapedJob{}}

	raw, err := fetcher.FetchJobs(ctx, rc)
	if err != nil {
		log.Error().Err(err).Msg("scraper failed")
		rc.AddError(err.Error(), "", false)
	} else {
		result.TotalFetched = len(raw)
		log.Info().Int("fetched", len(raw)).Msg("fetched raw jobs")

		now := time.Now()
		for _, job := range raw {
			if !rules.Relevant(job) {
				continue
			}
			result.Jobs = append(result.Jobs, rules.Enrich(job, now))
		}
		log.Info().Int("relevant", len(result.Jobs)).Int("fetched", len(raw)).Msg("filtered jobs")

		saved, err := storage.SaveJobs(context.WithoutCancel(ctx), store, result.Jobs, log)
		if err != nil {
			log.Error().Err(err).Msg("failed to save jobs")
			rc.AddError("failed to save jobs: "+err.Error(), "", false)
		}
		result.TotalSaved = saved
	}

	result.TotalFound = len(result.Jobs)
	result.Errors = rc.Errors()
	result.Duration = time.Since(start)
	log.Info().
		Int("found", result.TotalFound).
		Int("saved", result.TotalSaved).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("scraper completed")
	return result
}

// NewJob returns a job with the required fields set and everything else empty.
func NewJob(source models.Source, title, company, url string) models.ScrapedJob {
	return models.ScrapedJob{
		Title:   title,
		Company: company,
		URL:     url,
		Source:  source,
		Tags:    []string{},
	}
}
