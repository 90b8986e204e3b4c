package network

import (
	"context"
	"net/url"
	"sync"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

const RobotsTimeout = 5 * time.Second

// RobotsStore persists raw robots.txt bodies across runs.
type RobotsStore interface {
	Load(ctx context.Context, host string) ([]byte, bool)
	Save(ctx context.Context, host string, body []byte) error
}

// RobotsChecker answers allow/deny per URL and caches parsed robots.txt per host.
type RobotsChecker struct {
	mu     sync.RWMutex
	cache  map[string]*robotstxt.RobotsData
	group  singleflight.Group
	store  RobotsStore
	logger zerolog.Logger
}

func NewRobotsChecker(store RobotsStore, logger zerolog.Logger) *RobotsChecker {
	return &RobotsChecker{
		cache:  map[string]*robotstxt.RobotsData{},
		store:  store,
		logger: logger,
	}
}

// Allowed reports whether userAgent may fetch rawURL. Unreachable robots.txt allows everything.
func (c *RobotsChecker) Allowed(ctx context.Context, doer Doer, rawURL, userAgent string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	c.mu.RLock()
	data, ok := c.cache[u.Host]
	c.mu.RUnlock()

	if !ok {
		v, _, _ := c.group.Do(u.Host, func() (any, error) {
			return c.resolve(ctx, doer, u, userAgent), nil
		})
		data, _ = v.(*robotstxt.RobotsData)
	}
	if data == nil {
		return true
	}
	return data.TestAgent(robotsPath(u), userAgent)
}

func (c *RobotsChecker) resolve(ctx context.Context, doer Doer, u *url.URL, userAgent string) *robotstxt.RobotsData {
	if c.store != nil {
		if body, ok := c.store.Load(ctx, u.Host); ok {
			if data, err := robotstxt.FromBytes(body); err == nil {
				c.remember(u.Host, data)
				return data
			}
		}
	}

	status, body, err := fetchRobots(ctx, doer, u, userAgent)
	if err != nil {
		c.logger.Debug().Err(err).Str("host", u.Host).Msg("robots.txt unavailable, allowing")
		return nil
	}
	if status >= 500 || status < 200 || (status >= 300 && status < 400) {
		return nil
	}
	if status >= 400 {
		body = nil
	}

	data, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		c.logger.Debug().Err(err).Str("host", u.Host).Msg("robots.txt unparsable, allowing")
		return nil
	}
	c.remember(u.Host, data)
	if c.store != nil {
		if err := c.store.Save(ctx, u.Host, body); err != nil {
			c.logger.Debug().Err(err).Str("host", u.Host).Msg("robots.txt cache write failed")
		}
	}
	return data
}

func (c *RobotsChecker) remember(host string, data *robotstxt.RobotsData) {
	c.mu.Lock()
	c.cache[host] = data
	c.mu.Unlock()
}

func fetchRobots(ctx context.Context, doer Doer, u *url.URL, userAgent string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, RobotsTimeout)
	defer cancel()

	target := u.Scheme + "://" + u.Host + "/robots.txt"
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, target, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := doer.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := readBody(resp)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func robotsPath(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}
