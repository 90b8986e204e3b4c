package network

import (
	"net/url"
	"sync/atomic"
	"time"
)

// Session is one rotation-scoped identity: headers plus an optional proxy.
type Session struct {
	ID        int64
	UserAgent string
	Headers   map[string]string
	Proxy     *url.URL
	CreatedAt time.Time
}

// Expired reports whether the session is at least rotation old.
func (s *Session) Expired(rotation time.Duration, now time.Time) bool {
	return now.Sub(s.CreatedAt) >= rotation
}

// SessionFactory creates sessions from a shared proxy pool and sequence counter.
type SessionFactory struct {
	pool    *ProxyPool
	counter atomic.Int64
	now     func() time.Time
}

func NewSessionFactory(pool *ProxyPool) *SessionFactory {
	return &SessionFactory{pool: pool, now: time.Now}
}

func (f *SessionFactory) New() *Session {
	headers := GenerateStealthHeaders(nil)
	return &Session{
		ID:        f.counter.Add(1),
		UserAgent: headers["User-Agent"],
		Headers:   headers,
		Proxy:     f.pool.Next(),
		CreatedAt: f.now(),
	}
}
