package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/jimezsa/jobcrawl/internal/cache"
	"github.com/jimezsa/jobcrawl/internal/config"
	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/jimezsa/jobcrawl/internal/network"
	"github.com/jimezsa/jobcrawl/internal/orchestrator"
	"github.com/jimezsa/jobcrawl/internal/ratelimit"
	"github.com/jimezsa/jobcrawl/internal/scraper"
	"github.com/jimezsa/jobcrawl/internal/storage"
	"github.com/rs/zerolog"
)

type RunCmd struct {
	Source  string `arg:"" optional:"" help:"Crawl only this source (lever, greenhouse, ashby, wellfound, naukri, linkedin, indeed)."`
	DryRun  bool   `name:"dry-run" help:"Crawl without persisting; jobs stay in memory."`
	Store   string `help:"JSON store path. Defaults to jobs.json in the config dir." type:"path"`
	Proxies string `help:"Comma-separated proxy URIs; overrides PROXY_LIST and proxies.txt."`
}

func (r *RunCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	sources, err := selectSources(cfg, r.Source)
	if err != nil {
		return err
	}

	targets, err := config.LoadTargets(cfg.TargetsPath)
	if err != nil {
		return err
	}

	rawProxies, err := config.LoadProxies(r.Proxies)
	if err != nil {
		return err
	}
	if err := config.ValidateProxies(rawProxies); err != nil {
		return err
	}
	proxies, err := network.NewProxyPool(rawProxies, network.DefaultBanDuration)
	if err != nil {
		return err
	}

	signal := ctx.context()
	store, err := openStore(signal, cfg, r.Store, r.DryRun)
	if err != nil {
		return err
	}
	defer store.Close()

	robotsStore, closeRobots := openRobotsStore(signal, cfg.RedisURL, ctx.Logger)
	defer closeRobots()

	limiter := ratelimit.New(ratelimit.Options{
		MaxConcurrent: cfg.MaxConcurrentPerDomain,
		MinDelay:      cfg.MinDelay(),
		MaxDelay:      cfg.MaxDelay(),
		Logger:        ctx.Logger,
	})
	deps := scraper.Deps{
		Config:   cfg,
		Targets:  targets,
		Limiter:  limiter,
		Proxies:  proxies,
		Sessions: network.NewSessionFactory(proxies),
		Robots:   network.NewRobotsChecker(robotsStore, ctx.Logger),
		Store:    store,
		Logger:   ctx.Logger,
	}

	ctx.Logger.Info().
		Strs("sources", sourceNames(sources)).
		Int("proxies", proxies.Len()).
		Bool("dry_run", r.DryRun).
		Msg("starting crawl")

	orch := orchestrator.New(orchestrator.Options{
		Sources: sources,
		Build:   buildScraper(deps),
		Limiter: limiter,
		Logger:  ctx.Logger,
	})
	report := orch.Run(signal)
	return writeReport(ctx, report, storeLabel(store, r.DryRun))
}

// selectSources resolves the explicit source, or every enabled one in run order.
func selectSources(cfg config.Config, name string) ([]models.Source, error) {
	if name != "" {
		source, err := models.ParseSource(name)
		if err != nil {
			return nil, err
		}
		return []models.Source{source}, nil
	}

	var sources []models.Source
	for _, source := range models.AllSources() {
		if cfg.SourceEnabled(string(source)) {
			sources = append(sources, source)
		}
	}
	if len(sources) == 0 {
		return nil, errors.New("no sources enabled; set ENABLE_<SOURCE>=true or pass a source name")
	}
	return sources, nil
}

// openStore picks the job store: memory for dry runs, Postgres when a database
// URL is configured, the JSON file otherwise.
func openStore(ctx context.Context, cfg config.Config, path string, dryRun bool) (storage.Store, error) {
	if dryRun {
		return storage.NewMemoryStore(), nil
	}
	if cfg.DatabaseURL != "" {
		pg, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return pg, nil
	}
	if path == "" {
		path = cfg.StorePath
	}
	return storage.NewFileStore(path)
}

// openRobotsStore connects the Redis robots.txt cache when configured. A
// failed connection only costs refetching robots.txt.
func openRobotsStore(ctx context.Context, redisURL string, logger zerolog.Logger) (network.RobotsStore, func()) {
	if redisURL == "" {
		return nil, func() {}
	}
	robots, err := cache.NewRobotsCache(ctx, redisURL, cache.DefaultRobotsTTL)
	if err != nil {
		logger.Warn().Err(err).Msg("robots.txt cache disabled")
		return nil, func() {}
	}
	return robots, func() { _ = robots.Close() }
}

func buildScraper(deps scraper.Deps) func(models.Source) (orchestrator.Scraper, error) {
	return func(source models.Source) (orchestrator.Scraper, error) {
		instance, err := scraper.New(source, deps)
		if err != nil {
			return nil, err
		}
		return instance, nil
	}
}

func writeReport(ctx *Context, report orchestrator.Report, label string) error {
	if ctx.JSONOutput {
		return writeJSON(ctx.Out, report)
	}
	if err := orchestrator.WriteSummary(ctx.Out, report); err != nil {
		return err
	}

	saved, failed := 0, 0
	for _, result := range report.Results {
		saved += result.TotalSaved
		failed += len(result.Errors)
	}
	ctx.UI.Statusf(failed == 0, "%d jobs saved to %s", saved, label)
	return nil
}

func storeLabel(store storage.Store, dryRun bool) string {
	switch s := store.(type) {
	case *storage.FileStore:
		return s.Path()
	case *storage.PostgresStore:
		return "postgres"
	}
	if dryRun {
		return "memory (dry run)"
	}
	return fmt.Sprintf("%T", store)
}

func sourceNames(sources []models.Source) []string {
	names := make([]string, 0, len(sources))
	for _, source := range sources {
		names = append(names, string(source))
	}
	return names
}
