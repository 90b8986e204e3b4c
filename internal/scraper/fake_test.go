package scraper

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jimezsa/jobcrawl/internal/config"
	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/jimezsa/jobcrawl/internal/network"
	"github.com/rs/zerolog"
)

type fakeRoute struct {
	status int
	body   string
	err    error
}

// fakeClient answers by exact URL first, then by the longest matching prefix.
// Unrouted URLs get a 404 StatusError, like the requester.
type fakeClient struct {
	mu       sync.Mutex
	routes   map[string]fakeRoute
	requests []string
	payloads []any
	headers  []map[string]string
	pauses   int
	pauseErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{routes: map[string]fakeRoute{}}
}

func (f *fakeClient) route(prefix string, status int, body string) *fakeClient {
	f.routes[prefix] = fakeRoute{status: status, body: body}
	return f
}

func (f *fakeClient) routeJSON(t *testing.T, prefix string, v any) *fakeClient {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return f.route(prefix, 200, string(raw))
}

func (f *fakeClient) fail(prefix string, err error) *fakeClient {
	f.routes[prefix] = fakeRoute{err: err}
	return f
}

func (f *fakeClient) Get(_ context.Context, url string, headers map[string]string) (*network.Response, error) {
	return f.respond(url, headers, nil)
}

func (f *fakeClient) PostJSON(_ context.Context, url string, payload any, headers map[string]string) (*network.Response, error) {
	return f.respond(url, headers, payload)
}

func (f *fakeClient) Pause(context.Context, time.Duration, time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return f.pauseErr
}

func (f *fakeClient) respond(url string, headers map[string]string, payload any) (*network.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, url)
	f.headers = append(f.headers, headers)
	if payload != nil {
		f.payloads = append(f.payloads, payload)
	}

	route, ok := f.routes[url]
	if !ok {
		best := ""
		for prefix, candidate := range f.routes {
			if strings.HasPrefix(url, prefix) && len(prefix) > len(best) {
				best, route, ok = prefix, candidate, true
			}
		}
	}
	if !ok {
		return nil, &network.StatusError{Code: 404, URL: url}
	}
	if route.err != nil {
		return nil, route.err
	}
	return &network.Response{Status: route.status, Body: []byte(route.body), URL: url}, nil
}

func (f *fakeClient) requested(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, url := range f.requests {
		if strings.HasPrefix(url, prefix) {
			n++
		}
	}
	return n
}

func newTestRun(source models.Source, client Client, targets config.Targets) *RunContext {
	return NewRunContext(source, client, targets, zerolog.Nop())
}

func acme() []config.Company {
	return []config.Company{{Slug: "acme", Name: "Acme"}}
}
