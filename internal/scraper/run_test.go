package scraper

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/jimezsa/jobcrawl/internal/config"
	"github.com/jimezsa/jobcrawl/internal/filter"
	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/jimezsa/jobcrawl/internal/network"
	"github.com/jimezsa/jobcrawl/internal/storage"
	"github.com/rs/zerolog"
)

type stubFetcher struct {
	jobs []models.ScrapedJob
	err  error
}

func (s *stubFetcher) Source() models.Source { return models.SourceLever }

func (s *stubFetcher) FetchJobs(_ context.Context, rc *RunContext) ([]models.ScrapedJob, error) {
	rc.AddError("failed to fetch Beta: http 500", "https://api.lever.co/v0/postings/beta", true)
	return s.jobs, s.err
}

func testRules() *filter.Rules {
	return filter.NewRules([]string{"bangalore", "remote"}, []string{"frontend", "react"}, []string{"React", "TypeScript"})
}

func TestRunFiltersEnrichesAndSaves(t *testing.T) {
	relevant := NewJob(models.SourceLever, "Senior Frontend Engineer", "Acme", "https://jobs.lever.co/acme/1")
	relevant.Location = "Bangalore, India"
	relevant.Description = "Work with React   and TypeScript"
	wrongPlace := NewJob(models.SourceLever, "Frontend Engineer", "Acme", "https://jobs.lever.co/acme/2")
	wrongPlace.Location = "Berlin"
	wrongDomain := NewJob(models.SourceLever, "Accountant", "Acme", "https://jobs.lever.co/acme/3")
	wrongDomain.Location = "Bangalore"

	store := storage.NewMemoryStore()
	rc := newTestRun(models.SourceLever, newFakeClient(), config.Targets{})
	result := Run(context.Background(), &stubFetcher{jobs: []models.ScrapedJob{relevant, wrongPlace, wrongDomain}}, rc, testRules(), store)

	if result.Source != models.SourceLever {
		t.Fatalf("unexpected source %s", result.Source)
	}
	if result.TotalFetched != 3 || result.TotalFound != 1 || result.TotalSaved != 1 {
		t.Fatalf("unexpected counts fetched=%d found=%d saved=%d", result.TotalFetched, result.TotalFound, result.TotalSaved)
	}
	job := result.Jobs[0]
	if job.ID == "" || job.ScrapedAt.IsZero() {
		t.Fatalf("expected enrichment to fill id and scraped at: %+v", job)
	}
	if strings.Join(job.Tags, ",") != "React,TypeScript" {
		t.Fatalf("unexpected tags %v", job.Tags)
	}
	if job.ExperienceLevel != models.ExperienceSenior || job.JobType != models.JobTypeFullTime {
		t.Fatalf("unexpected detection %q %q", job.ExperienceLevel, job.JobType)
	}
	if job.Description != "Work with React and TypeScript" {
		t.Fatalf("expected cleaned description, got %q", job.Description)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 stored job, got %d", store.Len())
	}
	if len(result.Errors) != 1 || !result.Errors[0].Retryable {
		t.Fatalf("expected entity error carried into result, got %+v", result.Errors)
	}
	if result.Duration <= 0 {
		t.Fatalf("expected duration to be measured")
	}
}

func TestRunRecordsSaveFailure(t *testing.T) {
	job := NewJob(models.SourceLever, "React Developer", "Acme", "https://jobs.lever.co/acme/1")
	job.Location = "Remote"

	rc := newTestRun(models.SourceLever, newFakeClient(), config.Targets{})
	result := Run(context.Background(), &stubFetcher{jobs: []models.ScrapedJob{job}}, rc, testRules(), nil)

	if result.TotalFound != 1 || result.TotalSaved != 0 {
		t.Fatalf("unexpected counts found=%d saved=%d", result.TotalFound, result.TotalSaved)
	}
	last := result.Errors[len(result.Errors)-1]
	if last.Retryable || !strings.HasPrefix(last.Message, "failed to save jobs") {
		t.Fatalf("expected non-retryable save error, got %+v", last)
	}
}

func TestRunRecordsFetchFailure(t *testing.T) {
	rc := newTestRun(models.SourceLever, newFakeClient(), config.Targets{})
	result := Run(context.Background(), &stubFetcher{err: errors.New("unexpected response format")}, rc, testRules(), storage.NewMemoryStore())

	if result.Jobs == nil || len(result.Jobs) != 0 {
		t.Fatalf("expected empty non-nil jobs, got %v", result.Jobs)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected entity and fetch errors, got %+v", result.Errors)
	}
	if result.Errors[1].Retryable || result.Errors[1].Message != "unexpected response format" {
		t.Fatalf("unexpected fetch error %+v", result.Errors[1])
	}
}

func TestRunContextErrorsAreCopies(t *testing.T) {
	rc := newTestRun(models.SourceIndeed, newFakeClient(), config.Targets{})
	rc.AddError("one", "", false)
	errs := rc.Errors()
	errs[0].Message = "changed"
	if rc.Errors()[0].Message != "one" {
		t.Fatalf("expected Errors to return a copy")
	}
	if errs[0].Source != models.SourceIndeed || errs[0].Timestamp.IsZero() {
		t.Fatalf("expected source and timestamp, got %+v", errs[0])
	}
}

type leverDoer struct {
	mu    sync.Mutex
	calls []string
}

func (d *leverDoer) Do(req *fhttp.Request) (*fhttp.Response, error) {
	d.mu.Lock()
	d.calls = append(d.calls, req.URL.String())
	d.mu.Unlock()

	body := `[{"text":"Frontend Engineer","hostedUrl":"https://jobs.lever.co/acme/1","categories":{"location":"Remote","commitment":"Full-time"}}]`
	return &fhttp.Response{
		StatusCode: 200,
		Header:     fhttp.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}, nil
}

func testDeps(doer network.Doer, store storage.Store) Deps {
	targets := config.Targets{
		Lever:     acme(),
		Locations: []string{"remote"},
		Keywords:  []string{"frontend"},
		Skills:    []string{"React"},
	}
	return Deps{
		Config:    config.DefaultConfig(),
		Targets:   targets,
		Store:     store,
		Logger:    zerolog.Nop(),
		Transport: func(*network.Session) (network.Doer, error) { return doer, nil },
		Sleep:     func(context.Context, time.Duration, time.Duration) error { return nil },
	}
}

func TestInstanceScrapesThroughRequester(t *testing.T) {
	doer := &leverDoer{}
	store := storage.NewMemoryStore()

	instance, err := New(models.SourceLever, testDeps(doer, store))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result := instance.Scrape(context.Background())

	if result.TotalFound != 1 || result.TotalSaved != 1 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(doer.calls) != 1 || doer.calls[0] != "https://api.lever.co/v0/postings/acme?mode=json" {
		t.Fatalf("unexpected calls %v", doer.calls)
	}
	if result.Jobs[0].JobType != models.JobTypeFullTime {
		t.Fatalf("expected job type from commitment, got %q", result.Jobs[0].JobType)
	}
}

func TestInstanceShutdownReturnsEmptyResult(t *testing.T) {
	doer := &leverDoer{}
	instance, err := New(models.SourceLever, testDeps(doer, storage.NewMemoryStore()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := instance.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	result := instance.Scrape(context.Background())
	if len(doer.calls) != 0 {
		t.Fatalf("expected no requests after shutdown, got %v", doer.calls)
	}
	if result.TotalFound != 0 || len(result.Errors) != 0 {
		t.Fatalf("expected an empty clean result, got %+v", result)
	}
}

func TestNewRejectsUnknownSource(t *testing.T) {
	if _, err := New(models.Source("monster"), testDeps(&leverDoer{}, nil)); err == nil {
		t.Fatalf("expected error for unknown source")
	}
	for _, source := range models.AllSources() {
		if !Registered(source) {
			t.Fatalf("expected %s to be registered", source)
		}
	}
}
