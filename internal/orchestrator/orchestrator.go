// Package orchestrator runs the selected sources one after another and
// coordinates graceful shutdown.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/jimezsa/jobcrawl/internal/ratelimit"
	"github.com/rs/zerolog"
)

// Scraper is one runnable source.
type Scraper interface {
	Scrape(ctx context.Context) models.ScraperResult
	Shutdown() error
}

// Limiter is the shared per-host limiter the run reports on and clears.
type Limiter interface {
	Stats() map[string]ratelimit.HostStats
	Clear()
}

type Options struct {
	Sources []models.Source
	Build   func(models.Source) (Scraper, error)
	Limiter Limiter
	Logger  zerolog.Logger
}

// Report is what a run produced, including a partial run cut short by shutdown.
type Report struct {
	Results     []models.ScraperResult         `json:"results"`
	Duration    time.Duration                  `json:"duration"`
	Interrupted bool                           `json:"interrupted"`
	Hosts       map[string]ratelimit.HostStats `json:"hosts"`
}

type Orchestrator struct {
	opts Options

	mu       sync.Mutex
	active   []Scraper
	hosts    map[string]ratelimit.HostStats
	stopping atomic.Bool
	stopped  chan struct{}
}

func New(opts Options) *Orchestrator {
	return &Orchestrator{opts: opts, stopped: make(chan struct{})}
}

// Run executes every source sequentially. Cancelling ctx starts a graceful
// shutdown: the running source returns what it has, later sources are skipped.
func (o *Orchestrator) Run(ctx context.Context) Report {
	start := time.Now()
	log := o.opts.Logger
	stop := context.AfterFunc(ctx, o.Shutdown)
	defer stop()

	// Requests already in flight finish; shutdown is signalled through the scrapers.
	runCtx := context.WithoutCancel(ctx)

	report := Report{Results: []models.ScraperResult{}}
	log.Info().Int("sources", len(o.opts.Sources)).Msg("crawl starting")
	for _, source := range o.opts.Sources {
		if o.stopping.Load() {
			break
		}
		result := o.runSource(runCtx, source)
		report.Results = append(report.Results, result)
		log.Info().
			Str("source", string(source)).
			Int("found", result.TotalFound).
			Int("saved", result.TotalSaved).
			Int("errors", len(result.Errors)).
			Dur("duration", result.Duration).
			Msg("source finished")
	}

	report.Interrupted = o.stopping.Load()
	if report.Interrupted {
		<-o.stopped
	}
	report.Duration = time.Since(start)
	o.drainLimiter()

	o.mu.Lock()
	report.Hosts = make(map[string]ratelimit.HostStats, len(o.hosts))
	for host, stats := range o.hosts {
		report.Hosts[host] = stats
	}
	o.mu.Unlock()
	return report
}

func (o *Orchestrator) runSource(ctx context.Context, source models.Source) (result models.ScraperResult) {
	defer func() {
		if r := recover(); r != nil {
			o.opts.Logger.Error().Str("source", string(source)).Interface("panic", r).Msg("fatal error in scraper")
			result = models.FailedResult(source, fmt.Errorf("panic: %v", r))
		}
	}()

	scraper, err := o.opts.Build(source)
	if err != nil {
		o.opts.Logger.Error().Err(err).Str("source", string(source)).Msg("fatal error in scraper")
		return models.FailedResult(source, err)
	}
	o.mu.Lock()
	o.active = append(o.active, scraper)
	o.mu.Unlock()

	// Shutdown may have begun between the loop check and registration.
	if o.stopping.Load() {
		_ = scraper.Shutdown()
	}

	o.opts.Logger.Info().Str("source", string(source)).Msg("running scraper")
	return scraper.Scrape(ctx)
}

// Shutdown stops every instantiated scraper. Only the first call has effect.
func (o *Orchestrator) Shutdown() {
	if !o.stopping.CompareAndSwap(false, true) {
		return
	}
	defer close(o.stopped)
	o.opts.Logger.Warn().Msg("shutting down gracefully")

	o.mu.Lock()
	active := append([]Scraper(nil), o.active...)
	o.mu.Unlock()

	for _, scraper := range active {
		if err := scraper.Shutdown(); err != nil {
			o.opts.Logger.Error().Err(err).Msg("error shutting down scraper")
		}
	}
	o.drainLimiter()
}

// drainLimiter snapshots host stats and clears the limiter, failing any task
// still queued. Stats gathered by earlier drains are kept.
func (o *Orchestrator) drainLimiter() {
	if o.opts.Limiter == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.hosts == nil {
		o.hosts = map[string]ratelimit.HostStats{}
	}
	for host, stats := range o.opts.Limiter.Stats() {
		prev := o.hosts[host]
		prev.Requests += stats.Requests
		prev.Pending, prev.Running = stats.Pending, stats.Running
		if stats.LastRequest.After(prev.LastRequest) {
			prev.LastRequest = stats.LastRequest
		}
		o.hosts[host] = prev
	}
	o.opts.Limiter.Clear()
}
