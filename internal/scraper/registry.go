package scraper

import (
	"context"
	"fmt"

	"github.com/jimezsa/jobcrawl/internal/config"
	"github.com/jimezsa/jobcrawl/internal/filter"
	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/jimezsa/jobcrawl/internal/network"
	"github.com/jimezsa/jobcrawl/internal/storage"
	"github.com/rs/zerolog"
)

var fetchers = map[models.Source]func() Fetcher{
	models.SourceLever:      func() Fetcher { return &Lever{} },
	models.SourceGreenhouse: func() Fetcher { return &Greenhouse{} },
	models.SourceAshby:      func() Fetcher { return &Ashby{} },
	models.SourceWellfound:  func() Fetcher { return &Wellfound{} },
	models.SourceNaukri:     func() Fetcher { return &Naukri{} },
	models.SourceLinkedIn:   func() Fetcher { return &LinkedIn{} },
	models.SourceIndeed:     func() Fetcher { return &Indeed{} },
}

// Deps are the process-wide collaborators shared by every scraper instance.
type Deps struct {
	Config    config.Config
	Targets   config.Targets
	Limiter   network.Limiter
	Proxies   *network.ProxyPool
	Sessions  *network.SessionFactory
	Robots    *network.RobotsChecker
	Store     storage.Store
	Rules     *filter.Rules
	Logger    zerolog.Logger
	Transport network.TransportFactory
	Sleep     network.Sleeper
}

// Instance is one source bound to its own requester.
type Instance struct {
	Source    models.Source
	fetcher   Fetcher
	requester *network.Requester
	deps      Deps
}

func New(source models.Source, deps Deps) (*Instance, error) {
	build, ok := fetchers[source]
	if !ok {
		return nil, fmt.Errorf("no scraper registered for %q", source)
	}
	if deps.Rules == nil {
		deps.Rules = filter.NewRules(deps.Targets.Locations, deps.Targets.Keywords, deps.Targets.Skills)
	}

	requester, err := network.NewRequester(network.RequesterOptions{
		MaxRetries:      deps.Config.MaxRetries,
		SessionRotation: deps.Config.SessionRotation(),
		Sessions:        deps.Sessions,
		Proxies:         deps.Proxies,
		Limiter:         deps.Limiter,
		Robots:          deps.Robots,
		Transport:       deps.Transport,
		Sleep:           deps.Sleep,
		Logger:          deps.Logger.With().Str("source", string(source)).Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	return &Instance{Source: source, fetcher: build(), requester: requester, deps: deps}, nil
}

func (i *Instance) Scrape(ctx context.Context) models.ScraperResult {
	rc := NewRunContext(i.Source, i.requester, i.deps.Targets, i.deps.Logger)
	return Run(ctx, i.fetcher, rc, i.deps.Rules, i.deps.Store)
}

// Shutdown stops new requests; the running Scrape returns what it has.
func (i *Instance) Shutdown() error {
	i.deps.Logger.Info().Str("source", string(i.Source)).Msg("shutting down scraper")
	i.requester.Shutdown()
	return nil
}

// Registered reports whether a fetcher exists for source.
func Registered(source models.Source) bool {
	_, ok := fetchers[source]
	return ok
}
