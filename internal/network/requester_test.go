package network

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/rs/zerolog"
)

type fakeResponse struct {
	status int
	body   string
	err    error
}

type fakeDoer struct {
	mu        sync.Mutex
	responses []fakeResponse
	robots    fakeResponse
	requests  []*fhttp.Request
	robotHits int
}

func (f *fakeDoer) Do(req *fhttp.Request) (*fhttp.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if req.URL.Path == "/robots.txt" {
		f.robotHits++
		if f.robots.err != nil {
			return nil, f.robots.err
		}
		status := f.robots.status
		if status == 0 {
			status = 404
		}
		return newFakeResponse(status, f.robots.body), nil
	}

	f.requests = append(f.requests, req)
	next := fakeResponse{status: 200, body: "{}"}
	if len(f.responses) > 0 {
		next = f.responses[0]
		if len(f.responses) > 1 {
			f.responses = f.responses[1:]
		}
	}
	if next.err != nil {
		return nil, next.err
	}
	return newFakeResponse(next.status, next.body), nil
}

func (f *fakeDoer) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newFakeResponse(status int, body string) *fhttp.Response {
	return &fhttp.Response{
		StatusCode: status,
		Header:     fhttp.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

type sleepCall struct {
	min, max time.Duration
}

type recordingSleeper struct {
	mu    sync.Mutex
	calls []sleepCall
}

func (s *recordingSleeper) Sleep(ctx context.Context, min, max time.Duration) error {
	s.mu.Lock()
	s.calls = append(s.calls, sleepCall{min, max})
	s.mu.Unlock()
	return ctx.Err()
}

type testRig struct {
	doer       *fakeDoer
	sleeper    *recordingSleeper
	transports int
	requester  *Requester
}

func newTestRig(t *testing.T, doer *fakeDoer, withRobots bool) *testRig {
	t.Helper()
	rig := &testRig{doer: doer, sleeper: &recordingSleeper{}}
	opts := RequesterOptions{
		MaxRetries:      3,
		SessionRotation: time.Hour,
		Transport: func(*Session) (Doer, error) {
			rig.transports++
			return doer, nil
		},
		Sleep:  rig.sleeper.Sleep,
		Logger: zerolog.Nop(),
	}
	if withRobots {
		opts.Robots = NewRobotsChecker(nil, zerolog.Nop())
	}
	requester, err := NewRequester(opts)
	if err != nil {
		t.Fatalf("NewRequester() error = %v", err)
	}
	rig.requester = requester
	return rig
}

func TestRequesterDoesNotRetry404(t *testing.T) {
	rig := newTestRig(t, &fakeDoer{responses: []fakeResponse{{status: 404}}}, false)

	_, err := rig.requester.Get(context.Background(), "https://api.example.com/jobs", nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != 404 {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	if got := rig.doer.attempts(); got != 1 {
		t.Fatalf("attempts = %d, want 1", got)
	}
	if len(rig.sleeper.calls) != 0 {
		t.Fatalf("404 must not sleep, got %v", rig.sleeper.calls)
	}
	if Retryable(err) {
		t.Fatalf("404 must be non-retryable")
	}
}

func TestRequesterRateLimitBackoffWindows(t *testing.T) {
	rig := newTestRig(t, &fakeDoer{responses: []fakeResponse{{status: 429}}}, false)

	_, err := rig.requester.Get(context.Background(), "https://api.example.com/jobs", nil)
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != 429 {
		t.Fatalf("expected last error to be 429, got %v", err)
	}
	if got := rig.doer.attempts(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}

	want := []sleepCall{
		{4 * time.Second, 6 * time.Second},
		{8 * time.Second, 12 * time.Second},
	}
	if len(rig.sleeper.calls) != len(want) {
		t.Fatalf("sleep calls = %v, want %v", rig.sleeper.calls, want)
	}
	for i, call := range rig.sleeper.calls {
		if call != want[i] {
			t.Fatalf("sleep %d = %v, want %v", i, call, want[i])
		}
	}
}

func TestBackoffSequences(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 1; attempt <= 3; attempt++ {
		b := RateLimitBackoff(attempt)
		if b <= prev {
			t.Fatalf("rate-limit backoff not increasing at attempt %d: %v <= %v", attempt, b, prev)
		}
		prev = b
	}
	if got := RateLimitBackoff(4); got != 30*time.Second {
		t.Fatalf("RateLimitBackoff(4) = %v, want 30s cap", got)
	}
	if got := RateLimitBackoff(12); got != 30*time.Second {
		t.Fatalf("RateLimitBackoff(12) = %v, want 30s cap", got)
	}
	if got := TransientBackoff(1); got != 2*time.Second {
		t.Fatalf("TransientBackoff(1) = %v, want 2s", got)
	}
	if got := TransientBackoff(5); got != 15*time.Second {
		t.Fatalf("TransientBackoff(5) = %v, want 15s cap", got)
	}

	min, max, rateLimited := backoffWindow(errors.New("reset"), 1)
	if rateLimited || min != time.Second || max != 3*time.Second {
		t.Fatalf("transient window = [%v, %v] (%v), want [1s, 3s]", min, max, rateLimited)
	}
}

func TestRequesterRetriesTransientThenSucceeds(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{
		{err: errors.New("connection reset")},
		{status: 502},
		{status: 200, body: `{"ok":true}`},
	}}
	rig := newTestRig(t, doer, false)

	resp, err := rig.requester.Get(context.Background(), "https://api.example.com/jobs", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	var payload struct {
		OK bool `json:"ok"`
	}
	if err := resp.JSON(&payload); err != nil || !payload.OK {
		t.Fatalf("unexpected payload: %+v %v", payload, err)
	}
	if got := doer.attempts(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
	// initial session plus one rotation after the second failure
	if rig.transports != 2 {
		t.Fatalf("transports built = %d, want 2", rig.transports)
	}
}

func TestRequesterReturnsOther4xxToCaller(t *testing.T) {
	rig := newTestRig(t, &fakeDoer{responses: []fakeResponse{{status: 403, body: "denied"}}}, false)

	resp, err := rig.requester.Get(context.Background(), "https://www.example.com/page", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.Status != 403 || resp.OK() {
		t.Fatalf("unexpected response status %d", resp.Status)
	}
	if resp.Err() == nil {
		t.Fatalf("expected Err() for 403")
	}
	if got := rig.doer.attempts(); got != 1 {
		t.Fatalf("attempts = %d, want 1", got)
	}
}

func TestRequesterCallerHeadersWin(t *testing.T) {
	doer := &fakeDoer{}
	rig := newTestRig(t, doer, false)

	_, err := rig.requester.Get(context.Background(), "https://api.example.com/jobs", map[string]string{
		"accept": "application/json",
		"appid":  "109",
	})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	req := doer.requests[0]
	if got := req.Header.Get("Accept"); got != "application/json" {
		t.Fatalf("Accept = %q, want caller value", got)
	}
	if got := req.Header.Get("appid"); got != "109" {
		t.Fatalf("appid = %q, want 109", got)
	}
	if got := req.Header.Get("User-Agent"); got != rig.requester.Session().UserAgent {
		t.Fatalf("User-Agent = %q, want session UA", got)
	}
}

func TestRequesterHonorsRobots(t *testing.T) {
	doer := &fakeDoer{robots: fakeResponse{status: 200, body: "User-agent: *\nDisallow: /private\n"}}
	rig := newTestRig(t, doer, true)

	_, err := rig.requester.Get(context.Background(), "https://www.example.com/private/jobs", nil)
	if !errors.Is(err, ErrRobotsDisallowed) {
		t.Fatalf("expected robots error, got %v", err)
	}
	if doer.attempts() != 0 {
		t.Fatalf("disallowed request must not be attempted")
	}
	if Retryable(err) {
		t.Fatalf("robots block must be non-retryable")
	}

	if _, err := rig.requester.Get(context.Background(), "https://www.example.com/jobs", nil); err != nil {
		t.Fatalf("allowed path failed: %v", err)
	}
	if doer.robotHits != 1 {
		t.Fatalf("robots.txt fetched %d times, want 1", doer.robotHits)
	}
}

func TestRequesterShutdown(t *testing.T) {
	rig := newTestRig(t, &fakeDoer{}, false)
	rig.requester.Shutdown()
	rig.requester.Shutdown()

	if _, err := rig.requester.Get(context.Background(), "https://api.example.com/jobs", nil); !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("expected ErrShuttingDown, got %v", err)
	}
	if err := rig.requester.Pause(context.Background(), time.Second, 2*time.Second); !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("Pause() = %v, want ErrShuttingDown", err)
	}
	if rig.doer.attempts() != 0 {
		t.Fatalf("no request should reach the transport after shutdown")
	}
}

func TestRequesterShutdownInterruptsBackoff(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{{status: 503}}}
	requester, err := NewRequester(RequesterOptions{
		MaxRetries: 3,
		Transport:  func(*Session) (Doer, error) { return doer, nil },
		Sleep:      HumanSleep,
		Logger:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewRequester() error = %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		requester.Shutdown()
	}()

	start := time.Now()
	_, err = requester.Get(context.Background(), "https://api.example.com/jobs", nil)
	if !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("expected ErrShuttingDown, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("backoff was not interrupted: %v", elapsed)
	}
	if doer.attempts() != 1 {
		t.Fatalf("attempts = %d, want 1", doer.attempts())
	}
}

func TestRequesterRotatesExpiredSession(t *testing.T) {
	now := time.Now()
	doer := &fakeDoer{}
	transports := 0
	requester, err := NewRequester(RequesterOptions{
		MaxRetries:      1,
		SessionRotation: time.Minute,
		Transport: func(*Session) (Doer, error) {
			transports++
			return doer, nil
		},
		Now:    func() time.Time { return now },
		Logger: zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewRequester() error = %v", err)
	}
	first := requester.Session().ID

	now = now.Add(2 * time.Minute)
	if _, err := requester.Get(context.Background(), "https://api.example.com/jobs", nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if requester.Session().ID == first {
		t.Fatalf("expected a new session after expiry")
	}
	if transports != 2 {
		t.Fatalf("transports = %d, want 2", transports)
	}
}

func TestRequesterPostJSON(t *testing.T) {
	doer := &fakeDoer{}
	rig := newTestRig(t, doer, false)

	_, err := rig.requester.PostJSON(context.Background(), "https://jobs.example.com/graphql", map[string]string{"q": "x"}, nil)
	if err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}
	req := doer.requests[0]
	if req.Method != fhttp.MethodPost {
		t.Fatalf("method = %s", req.Method)
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Fatalf("Content-Type = %q", got)
	}
	body, _ := io.ReadAll(req.Body)
	if string(body) != `{"q":"x"}` {
		t.Fatalf("body = %s", body)
	}
}
