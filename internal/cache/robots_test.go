package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jimezsa/jobcrawl/internal/network"
)

var _ network.RobotsStore = (*RobotsCache)(nil)

func TestRobotsKey(t *testing.T) {
	if got := robotsKey(" WWW.LinkedIn.com "); got != "jobcrawl:robots:www.linkedin.com" {
		t.Fatalf("robotsKey() = %q", got)
	}
}

func TestNewRobotsCacheRejectsBadURL(t *testing.T) {
	if _, err := NewRobotsCache(context.Background(), "http://not-redis", time.Hour); err == nil {
		t.Fatalf("expected invalid URL error")
	}
}
