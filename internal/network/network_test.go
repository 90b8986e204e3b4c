package network

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/rs/zerolog"
)

func TestHumanDelayStaysInRange(t *testing.T) {
	min, max := 100*time.Millisecond, 300*time.Millisecond
	var sum time.Duration
	for i := 0; i < 2000; i++ {
		d := HumanDelay(min, max)
		if d < min || d > max {
			t.Fatalf("HumanDelay() = %v outside [%v, %v]", d, min, max)
		}
		sum += d
	}
	mean := sum / 2000
	if mean < 180*time.Millisecond || mean > 220*time.Millisecond {
		t.Fatalf("mean delay %v not centred", mean)
	}
	if got := HumanDelay(time.Second, time.Second); got != time.Second {
		t.Fatalf("HumanDelay(equal bounds) = %v", got)
	}
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep() = %v, want context.Canceled", err)
	}
}

func TestStealthHeadersAreConsistent(t *testing.T) {
	for i := 0; i < 200; i++ {
		headers := GenerateStealthHeaders(nil)
		ua := headers["User-Agent"]
		if ua == "" {
			t.Fatalf("missing User-Agent")
		}
		_, hasHint := headers["Sec-CH-UA"]
		if strings.Contains(ua, "Firefox") || (strings.Contains(ua, "Safari") && !strings.Contains(ua, "Chrome")) {
			if hasHint {
				t.Fatalf("client hints sent for non-Chromium UA %q", ua)
			}
			continue
		}
		if !hasHint {
			t.Fatalf("client hints missing for Chromium UA %q", ua)
		}
		if headers["Sec-CH-UA-Platform"] == `"Unknown"` {
			t.Fatalf("unresolved platform for %q", ua)
		}
	}
}

func TestStealthHeadersExtraOverrides(t *testing.T) {
	headers := GenerateStealthHeaders(map[string]string{"accept": "application/json", "X-Test": "1"})
	if headers["accept"] != "application/json" {
		t.Fatalf("override not applied: %v", headers)
	}
	if _, ok := headers["Accept"]; ok {
		t.Fatalf("case-insensitive duplicate left behind")
	}
	if headers["X-Test"] != "1" {
		t.Fatalf("extra header missing")
	}
}

func TestProxyPoolRoundRobinAndBans(t *testing.T) {
	pool, err := NewProxyPool([]string{"http://a:1", "http://b:2", "socks5://c:3"}, time.Minute)
	if err != nil {
		t.Fatalf("NewProxyPool() error = %v", err)
	}
	got := []string{pool.Next().Host, pool.Next().Host, pool.Next().Host, pool.Next().Host}
	want := []string{"a:1", "b:2", "c:3", "a:1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rotation = %v, want %v", got, want)
		}
	}

	// index now points at b; ban it
	b := pool.proxies[1]
	pool.Report(b, 429)
	if next := pool.Next(); next.Host != "c:3" {
		t.Fatalf("banned proxy returned: %v", next)
	}
	pool.Report(pool.proxies[0], 200)
	if next := pool.Next(); next.Host != "a:1" {
		t.Fatalf("non-ban status should not ban: %v", next)
	}
}

func TestProxyPoolAllBanned(t *testing.T) {
	pool, err := NewProxyPool([]string{"http://a:1", "http://b:2"}, time.Minute)
	if err != nil {
		t.Fatalf("NewProxyPool() error = %v", err)
	}
	for _, p := range pool.proxies {
		pool.Report(p, 403)
	}
	first, second := pool.Next(), pool.Next()
	if first == nil || second == nil || first.Host == second.Host {
		t.Fatalf("all-banned pool should keep rotating: %v %v", first, second)
	}
}

func TestProxyPoolEmptyAndInvalid(t *testing.T) {
	var nilPool *ProxyPool
	if nilPool.Next() != nil || nilPool.Len() != 0 {
		t.Fatalf("nil pool must behave as empty")
	}
	pool, err := NewProxyPool(nil, time.Minute)
	if err != nil || pool.Next() != nil {
		t.Fatalf("empty pool: %v %v", pool.Next(), err)
	}
	if _, err := NewProxyPool([]string{"ftp://x:1"}, time.Minute); err == nil {
		t.Fatalf("expected scheme error")
	}
	if err := pool.Load([]string{"http://z:9"}); err != nil || pool.Len() != 1 {
		t.Fatalf("reload failed: %v", err)
	}
}

func TestSessionFactory(t *testing.T) {
	pool, _ := NewProxyPool([]string{"http://a:1", "http://b:2"}, time.Minute)
	factory := NewSessionFactory(pool)
	s1, s2 := factory.New(), factory.New()
	if s2.ID != s1.ID+1 {
		t.Fatalf("ids = %d, %d", s1.ID, s2.ID)
	}
	if s1.Proxy.Host == s2.Proxy.Host {
		t.Fatalf("sessions should rotate proxies")
	}
	if s1.UserAgent != s1.Headers["User-Agent"] {
		t.Fatalf("session UA mismatch")
	}
	if s1.Expired(time.Minute, s1.CreatedAt.Add(30*time.Second)) {
		t.Fatalf("fresh session reported expired")
	}
	if !s1.Expired(time.Minute, s1.CreatedAt.Add(time.Minute)) {
		t.Fatalf("old session not expired")
	}
}

func TestRobotsCheckerCachesNotFound(t *testing.T) {
	doer := &fakeDoer{robots: fakeResponse{status: 404}}
	checker := NewRobotsChecker(nil, zerolog.Nop())
	for i := 0; i < 3; i++ {
		if !checker.Allowed(context.Background(), doer, "https://x.example.com/jobs", "test-agent") {
			t.Fatalf("404 robots should allow everything")
		}
	}
	if doer.robotHits != 1 {
		t.Fatalf("robots fetched %d times, want 1", doer.robotHits)
	}
}

func TestRobotsCheckerDoesNotCacheFailures(t *testing.T) {
	doer := &fakeDoer{robots: fakeResponse{err: errors.New("dial timeout")}}
	checker := NewRobotsChecker(nil, zerolog.Nop())
	for i := 0; i < 2; i++ {
		if !checker.Allowed(context.Background(), doer, "https://x.example.com/jobs", "test-agent") {
			t.Fatalf("unreachable robots should allow")
		}
	}
	if doer.robotHits != 2 {
		t.Fatalf("robots fetched %d times, want 2", doer.robotHits)
	}
}

type memoryRobots map[string][]byte

func (m memoryRobots) Load(_ context.Context, host string) ([]byte, bool) {
	body, ok := m[host]
	return body, ok
}

func (m memoryRobots) Save(_ context.Context, host string, body []byte) error {
	m[host] = body
	return nil
}

func TestRobotsCheckerUsesStore(t *testing.T) {
	store := memoryRobots{"x.example.com": []byte("User-agent: *\nDisallow: /admin\n")}
	doer := &fakeDoer{}
	checker := NewRobotsChecker(store, zerolog.Nop())
	if checker.Allowed(context.Background(), doer, "https://x.example.com/admin?x=1", "test-agent") {
		t.Fatalf("stored rules not applied")
	}
	if doer.robotHits != 0 {
		t.Fatalf("store hit should skip the network")
	}

	doer.robots = fakeResponse{status: 200, body: "User-agent: *\nAllow: /\n"}
	checker.Allowed(context.Background(), doer, "https://y.example.com/", "test-agent")
	if _, ok := store["y.example.com"]; !ok {
		t.Fatalf("fetched robots.txt not saved")
	}
}

func TestRedirectRequestSwitchesToGet(t *testing.T) {
	prev, _ := fhttp.NewRequest(fhttp.MethodPost, "https://a.example.com/start", strings.NewReader("x"))
	prev.Header.Set("Content-Type", "text/plain")
	prev.Header.Set("User-Agent", "ua")

	next, err := redirectRequest(prev, 302, "/landing")
	if err != nil {
		t.Fatalf("redirectRequest() error = %v", err)
	}
	if next.Method != fhttp.MethodGet || next.URL.String() != "https://a.example.com/landing" {
		t.Fatalf("unexpected redirect %s %s", next.Method, next.URL)
	}
	if next.Header.Get("Content-Type") != "" || next.Header.Get("User-Agent") != "ua" {
		t.Fatalf("headers not carried correctly: %v", next.Header)
	}

	kept, err := redirectRequest(prev, 307, "https://b.example.com/")
	if err != nil || kept.Method != fhttp.MethodPost || kept.Body == nil {
		t.Fatalf("307 should keep method and body: %v %v", kept, err)
	}
}

func TestRetryable(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":      {nil, false},
		"network":  {errors.New("reset"), true},
		"404":      {&StatusError{Code: 404}, false},
		"429":      {&StatusError{Code: 429}, true},
		"500":      {&StatusError{Code: 500}, true},
		"400":      {&StatusError{Code: 400}, false},
		"shutdown": {ErrShuttingDown, false},
	}
	for name, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Fatalf("%s: Retryable() = %v, want %v", name, got, tc.want)
		}
	}
}
