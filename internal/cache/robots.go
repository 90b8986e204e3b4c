// Package cache keeps robots.txt bodies in Redis between runs.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRobotsTTL = 24 * time.Hour

// RobotsCache stores raw robots.txt bodies per host.
type RobotsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRobotsCache connects to Redis at redisURL, e.g. redis://localhost:6379/0.
func NewRobotsCache(ctx context.Context, redisURL string, ttl time.Duration) (*RobotsCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis URL: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultRobotsTTL
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}
	return &RobotsCache{client: client, ttl: ttl}, nil
}

// Load returns the stored body for host. An empty body means allow-all.
func (c *RobotsCache) Load(ctx context.Context, host string) ([]byte, bool) {
	data, err := c.client.Get(ctx, robotsKey(host)).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *RobotsCache) Save(ctx context.Context, host string, body []byte) error {
	if body == nil {
		body = []byte{}
	}
	return c.client.Set(ctx, robotsKey(host), body, c.ttl).Err()
}

func (c *RobotsCache) Close() error {
	return c.client.Close()
}

func robotsKey(host string) string {
	return "jobcrawl:robots:" + strings.ToLower(strings.TrimSpace(host))
}
