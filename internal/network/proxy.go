package network

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

const DefaultBanDuration = 10 * time.Minute

// ProxyPool hands out configured proxies round-robin. An empty pool means direct connections.
type ProxyPool struct {
	proxies     []*url.URL
	banDuration time.Duration
	bannedUntil map[string]time.Time
	index       int
	mu          sync.Mutex
}

func NewProxyPool(raw []string, banDuration time.Duration) (*ProxyPool, error) {
	pool := &ProxyPool{banDuration: banDuration}
	if err := pool.Load(raw); err != nil {
		return nil, err
	}
	return pool, nil
}

// Load replaces the pool contents. Calling it again re-parses from scratch.
func (p *ProxyPool) Load(raw []string) error {
	proxies := make([]*url.URL, 0, len(raw))
	for _, proxy := range raw {
		u, err := url.Parse(proxy)
		if err != nil {
			return fmt.Errorf("parse proxy %q: %w", proxy, err)
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return fmt.Errorf("parse proxy %q: unsupported scheme %q", proxy, u.Scheme)
		}
		proxies = append(proxies, u)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.proxies = proxies
	p.bannedUntil = map[string]time.Time{}
	p.index = 0
	return nil
}

func (p *ProxyPool) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proxies)
}

// Next returns the next usable proxy, or nil when the pool is empty.
// When every proxy is banned the plain round-robin choice is returned.
func (p *ProxyPool) Next() *url.URL {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return nil
	}

	start := p.index
	for {
		proxy := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		if !p.isBanned(proxy) {
			return proxy
		}
		if p.index == start {
			p.index = (start + 1) % len(p.proxies)
			return p.proxies[start]
		}
	}
}

// Report bans a proxy for the ban window after a 403 or 429.
func (p *ProxyPool) Report(proxy *url.URL, status int) {
	if p == nil || proxy == nil {
		return
	}
	if status != 403 && status != 429 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.bannedUntil[proxy.String()] = time.Now().Add(p.banDuration)
}

func (p *ProxyPool) isBanned(proxy *url.URL) bool {
	until, ok := p.bannedUntil[proxy.String()]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(p.bannedUntil, proxy.String())
		return false
	}
	return true
}
