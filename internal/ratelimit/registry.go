package ratelimit

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jimezsa/jobcrawl/internal/network"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrCleared is returned to tasks still queued when Clear runs.
var ErrCleared = errors.New("rate limiter cleared")

const jitter = 500 * time.Millisecond

type Options struct {
	MaxConcurrent int
	MinDelay      time.Duration
	MaxDelay      time.Duration
	Sleep         network.Sleeper
	Logger        zerolog.Logger
}

// HostStats is a snapshot of one host's limiter.
type HostStats struct {
	Pending     int       `json:"pending"`
	Running     int       `json:"running"`
	Requests    int64     `json:"requests"`
	LastRequest time.Time `json:"last_request"`
}

// Registry owns one limiter per destination host. It is shared by every
// scraper in the process.
type Registry struct {
	opts Options

	mu    sync.Mutex
	hosts map[string]*hostLimiter
}

type hostLimiter struct {
	slots *semaphore.Weighted
	pacer *rate.Limiter
	pace  sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	pending  atomic.Int64
	running  atomic.Int64
	requests atomic.Int64
	last     atomic.Int64
}

func New(opts Options) *Registry {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	if opts.Sleep == nil {
		opts.Sleep = network.HumanSleep
	}
	return &Registry{opts: opts, hosts: map[string]*hostLimiter{}}
}

// Do runs task once a slot for the URL's host is free and the host's spacing
// rules are satisfied. The task's own error is returned unchanged.
func (r *Registry) Do(ctx context.Context, rawURL string, task func() error) error {
	name := Hostname(rawURL)
	h := r.host(name)

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(h.ctx, cancel)
	defer stop()

	h.pending.Add(1)
	err := h.slots.Acquire(waitCtx, 1)
	h.pending.Add(-1)
	if err != nil {
		return r.waitErr(h, err)
	}
	defer h.slots.Release(1)

	if err := r.pace(waitCtx, name, h); err != nil {
		return r.waitErr(h, err)
	}

	h.running.Add(1)
	defer h.running.Add(-1)
	return task()
}

func (r *Registry) pace(ctx context.Context, name string, h *hostLimiter) error {
	h.pace.Lock()
	defer h.pace.Unlock()

	now := time.Now()
	reservation := h.pacer.ReserveN(now, 1)
	if d := reservation.DelayFrom(now); d > 0 {
		r.opts.Logger.Debug().Str("host", name).Dur("wait", d).Msg("spacing requests")
		if err := r.opts.Sleep(ctx, d, d+jitter); err != nil {
			reservation.Cancel()
			return err
		}
	}
	if h.requests.Load() > 0 {
		if err := r.opts.Sleep(ctx, r.opts.MinDelay, r.opts.MaxDelay); err != nil {
			return err
		}
	}

	h.last.Store(time.Now().UnixNano())
	h.requests.Add(1)
	return nil
}

func (r *Registry) waitErr(h *hostLimiter, err error) error {
	if h.ctx.Err() != nil {
		return ErrCleared
	}
	return err
}

func (r *Registry) host(name string) *hostLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.hosts[name]; ok {
		return h
	}
	limit := rate.Inf
	if r.opts.MinDelay > 0 {
		limit = rate.Every(r.opts.MinDelay)
	}
	h := &hostLimiter{
		slots: semaphore.NewWeighted(int64(r.opts.MaxConcurrent)),
		pacer: rate.NewLimiter(limit, 1),
	}
	h.ctx, h.cancel = context.WithCancel(context.Background())
	r.hosts[name] = h
	return h
}

// Stats returns a snapshot keyed by host.
func (r *Registry) Stats() map[string]HostStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]HostStats, len(r.hosts))
	for name, h := range r.hosts {
		stats := HostStats{
			Pending:  int(h.pending.Load()),
			Running:  int(h.running.Load()),
			Requests: h.requests.Load(),
		}
		if last := h.last.Load(); last > 0 {
			stats.LastRequest = time.Unix(0, last)
		}
		out[name] = stats
	}
	return out
}

// Hosts returns the known hosts sorted by name.
func (r *Registry) Hosts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.hosts))
	for name := range r.hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear fails every queued task with ErrCleared and forgets all hosts.
// Tasks already running are left alone.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.hosts {
		h.cancel()
	}
	r.hosts = map[string]*hostLimiter{}
}

// Hostname extracts the host used as the limiter key.
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return u.Hostname()
}
