package network

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/rs/zerolog"
)

// Limiter gates requests per destination host.
type Limiter interface {
	Do(ctx context.Context, rawURL string, task func() error) error
}

type RequesterOptions struct {
	MaxRetries      int
	SessionRotation time.Duration
	Sessions        *SessionFactory
	Proxies         *ProxyPool
	Limiter         Limiter
	Robots          *RobotsChecker
	Transport       TransportFactory
	Sleep           Sleeper
	Now             func() time.Time
	Logger          zerolog.Logger
}

type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Requester is the retrying HTTP layer owned by one scraper instance.
type Requester struct {
	opts RequesterOptions

	mu        sync.Mutex
	session   *Session
	transport Doer

	halt     context.Context
	haltStop context.CancelFunc
}

func NewRequester(opts RequesterOptions) (*Requester, error) {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.SessionRotation <= 0 {
		opts.SessionRotation = 15 * time.Minute
	}
	if opts.Sessions == nil {
		opts.Sessions = NewSessionFactory(opts.Proxies)
	}
	if opts.Transport == nil {
		opts.Transport = NewClient
	}
	if opts.Sleep == nil {
		opts.Sleep = HumanSleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := &Requester{opts: opts}
	r.halt, r.haltStop = context.WithCancel(context.Background())
	if err := r.rotate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Session returns the session currently in use.
func (r *Requester) Session() *Session {
	session, _ := r.current()
	return session
}

// Shutdown makes pending and future calls fail with ErrShuttingDown. Requests
// already on the wire complete normally.
func (r *Requester) Shutdown() {
	r.haltStop()
}

func (r *Requester) stopped() bool {
	return r.halt.Err() != nil
}

func (r *Requester) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return r.Do(ctx, Request{Method: fhttp.MethodGet, URL: url, Headers: headers})
}

func (r *Requester) PostJSON(ctx context.Context, url string, payload any, headers map[string]string) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload for %s: %w", url, err)
	}
	headers = MergeHeaders(map[string]string{"Content-Type": "application/json"}, headers)
	return r.Do(ctx, Request{Method: fhttp.MethodPost, URL: url, Headers: headers, Body: body})
}

// Do runs one logical request: session rotation, robots.txt, then up to
// MaxRetries attempts through the limiter with classified backoff.
func (r *Requester) Do(ctx context.Context, req Request) (*Response, error) {
	if r.stopped() {
		return nil, ErrShuttingDown
	}
	if req.Method == "" {
		req.Method = fhttp.MethodGet
	}
	log := r.opts.Logger.With().Str("url", req.URL).Logger()

	if r.Session().Expired(r.opts.SessionRotation, r.opts.Now()) {
		log.Debug().Msg("rotating expired session")
		if err := r.rotate(); err != nil {
			return nil, err
		}
	}

	if r.opts.Robots != nil {
		session, transport := r.current()
		if !r.opts.Robots.Allowed(ctx, transport, req.URL, session.UserAgent) {
			log.Warn().Msg("blocked by robots.txt")
			return nil, fmt.Errorf("%w: %s", ErrRobotsDisallowed, req.URL)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= r.opts.MaxRetries; attempt++ {
		if r.stopped() {
			return nil, ErrShuttingDown
		}

		resp, err := r.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if r.stopped() {
			return nil, ErrShuttingDown
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == 404 {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
		if attempt == r.opts.MaxRetries {
			break
		}

		min, max, rateLimited := backoffWindow(err, attempt)
		event := log.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", r.opts.MaxRetries).Dur("backoff", min)
		if rateLimited {
			event.Msg("rate limited")
		} else {
			event.Msg("request failed")
		}
		if err := r.pause(ctx, min, max); err != nil {
			return nil, err
		}

		if attempt >= 2 {
			log.Debug().Int("attempt", attempt).Msg("rotating session after repeated failure")
			if err := r.rotate(); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", r.opts.MaxRetries, lastErr)
}

// Pause is a politeness sleep between entities; it ends early on shutdown.
func (r *Requester) Pause(ctx context.Context, min, max time.Duration) error {
	if r.stopped() {
		return ErrShuttingDown
	}
	return r.pause(ctx, min, max)
}

func (r *Requester) pause(ctx context.Context, min, max time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(r.halt, cancel)
	defer stop()

	err := r.opts.Sleep(ctx, min, max)
	if r.stopped() {
		return ErrShuttingDown
	}
	return err
}

func (r *Requester) attempt(ctx context.Context, req Request) (*Response, error) {
	var resp *Response
	task := func() error {
		session, transport := r.current()
		httpReq, err := buildRequest(ctx, req, session)
		if err != nil {
			return err
		}
		raw, err := transport.Do(httpReq)
		if err != nil {
			return err
		}
		r.opts.Proxies.Report(session.Proxy, raw.StatusCode)
		resp, err = readResponse(raw, req.URL)
		return err
	}

	var err error
	if r.opts.Limiter != nil {
		err = r.opts.Limiter.Do(ctx, req.URL, task)
	} else {
		err = task()
	}
	if err != nil {
		return nil, err
	}

	if resp.Status == 404 || resp.Status == 429 || resp.Status >= 500 {
		return nil, &StatusError{Code: resp.Status, URL: req.URL}
	}
	return resp, nil
}

func (r *Requester) rotate() error {
	session := r.opts.Sessions.New()
	transport, err := r.opts.Transport(session)
	if err != nil {
		return fmt.Errorf("build transport: %w", err)
	}
	r.mu.Lock()
	r.session = session
	r.transport = transport
	r.mu.Unlock()
	return nil
}

func (r *Requester) current() (*Session, Doer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session, r.transport
}

func buildRequest(ctx context.Context, req Request, session *Session) (*fhttp.Request, error) {
	var body *bytes.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	var httpReq *fhttp.Request
	var err error
	if body != nil {
		httpReq, err = fhttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	} else {
		httpReq, err = fhttp.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	}
	if err != nil {
		return nil, err
	}

	for key, value := range MergeHeaders(session.Headers, req.Headers) {
		httpReq.Header.Set(key, value)
	}
	return httpReq, nil
}

// RateLimitBackoff is the base wait after a 429/503 on the given attempt.
func RateLimitBackoff(attempt int) time.Duration {
	return exponential(2*time.Second, attempt, 30*time.Second)
}

// TransientBackoff is the base wait after any other failure on the given attempt.
func TransientBackoff(attempt int) time.Duration {
	return exponential(time.Second, attempt, 15*time.Second)
}

func exponential(base time.Duration, attempt int, limit time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 30 {
		return limit
	}
	d := base * time.Duration(1<<attempt)
	if d > limit {
		return limit
	}
	return d
}

// backoffWindow returns the sleep bounds for a failed attempt:
// [b, 1.5b] when rate limited, [0.5b, 1.5b] otherwise.
func backoffWindow(err error, attempt int) (time.Duration, time.Duration, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RateLimited() {
		b := RateLimitBackoff(attempt)
		return b, b + b/2, true
	}
	b := TransientBackoff(attempt)
	return b / 2, b + b/2, false
}
