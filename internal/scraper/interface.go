package scraper

import (
	"context"
	"time"

	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/jimezsa/jobcrawl/internal/network"
)

// Fetcher pulls raw postings for one source. Per-entity failures are
// recorded on the RunContext; a returned error means the whole source failed.
type Fetcher interface {
	Source() models.Source
	FetchJobs(ctx context.Context, rc *RunContext) ([]models.ScrapedJob, error)
}

// Client is the request surface a fetcher sees. *network.Requester implements it.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (*network.Response, error)
	PostJSON(ctx context.Context, url string, payload any, headers map[string]string) (*network.Response, error)
	Pause(ctx context.Context, min, max time.Duration) error
}

var _ Client = (*network.Requester)(nil)
