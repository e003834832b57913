package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, cfg *Config) (*Limiter, *fakeClock) {
	t.Helper()
	cfg.SweepInterval = 0
	l := NewLimiter(cfg)
	t.Cleanup(l.Stop)
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l.now = clock.Now
	return l, clock
}

func TestLimiter_DefaultLimit(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 3, DefaultWindow: time.Minute})

	for i := 0; i < 3; i++ {
		allowed, info := l.Allow("10.0.0.1", "/api/state", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 3, info.Limit)
		assert.Equal(t, 2-i, info.Remaining)
	}

	allowed, info := l.Allow("10.0.0.1", "/api/state", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.InDelta(t, 20, info.RetryAfter.Seconds(), 0.01)

	allowed, _ = l.Allow("10.0.0.2", "/api/state", "GET")
	assert.True(t, allowed, "other clients have their own bucket")
}

func TestLimiter_Refill(t *testing.T) {
	l, clock := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 2, DefaultWindow: 2 * time.Second})

	l.Allow("c", "/x", "GET")
	l.Allow("c", "/x", "GET")
	allowed, _ := l.Allow("c", "/x", "GET")
	require.False(t, allowed)

	clock.Advance(time.Second)
	allowed, _ = l.Allow("c", "/x", "GET")
	assert.True(t, allowed)
	allowed, _ = l.Allow("c", "/x", "GET")
	assert.False(t, allowed)
}

func TestLimiter_RuleBurst(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		Rules:         []Rule{{Method: "POST", Path: "/api/auth/signup", Limit: 5, Window: 10 * time.Minute, Burst: 2}},
	})

	for i := 0; i < 2; i++ {
		allowed, info := l.Allow("c", "/api/auth/signup", "POST")
		require.True(t, allowed)
		assert.Equal(t, 5, info.Limit)
	}
	allowed, _ := l.Allow("c", "/api/auth/signup", "POST")
	assert.False(t, allowed)

	allowed, _ = l.Allow("c", "/api/auth/verify", "POST")
	assert.True(t, allowed)
}

func TestLimiter_AllowDenyDisabled(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Allow:         map[string]bool{"ok": true},
		Deny:          map[string]bool{"bad": true},
	})
	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("ok", "/x", "GET")
		assert.True(t, allowed)
	}
	allowed, _ := l.Allow("bad", "/x", "GET")
	assert.False(t, allowed)

	off, _ := newTestLimiter(t, &Config{Enabled: false, DefaultLimit: 1, DefaultWindow: time.Minute})
	for i := 0; i < 5; i++ {
		allowed, _ := off.Allow("c", "/x", "GET")
		assert.True(t, allowed)
	}
}

func TestLimiter_UnlimitedRoutes(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute, Rules: DefaultRules()})
	for i := 0; i < 10; i++ {
		allowed, _ := l.Allow("c", "/health", "GET")
		assert.True(t, allowed)
		allowed, _ = l.Allow("c", "/api/events", "GET")
		assert.True(t, allowed)
	}
}

func TestLimiter_Sweep(t *testing.T) {
	l, clock := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 5, DefaultWindow: time.Minute, IdleTTL: time.Minute})

	l.Allow("a", "/x", "GET")
	clock.Advance(45 * time.Second)
	l.Allow("b", "/x", "GET")
	assert.Equal(t, 2, l.Sweep())

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, l.Sweep())
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("c", "/x", "GET"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestMatch(t *testing.T) {
	rules := []Rule{
		{Method: "POST", Path: "/api/jobs/", Limit: 1},
		{Method: "POST", Path: "/api/jobs/apply", Limit: 2},
	}
	tests := []struct {
		method, path string
		want         int
	}{
		{"POST", "/api/jobs/apply", 2},
		{"POST", "/api/jobs/select/3", 1},
		{"GET", "/api/jobs/apply", 0},
		{"POST", "/api/cv", 0},
	}
	for _, tt := range tests {
		got := Match(tt.method, tt.path, rules)
		if tt.want == 0 {
			assert.Nil(t, got, tt.path)
			continue
		}
		require.NotNil(t, got, tt.path)
		assert.Equal(t, tt.want, got.Limit)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "42")
	t.Setenv("RATE_LIMIT_WHITELIST", "127.0.0.1, ::1")

	cfg := LoadConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 42, cfg.DefaultLimit)
	assert.Equal(t, time.Minute, cfg.DefaultWindow)
	assert.True(t, cfg.Allow["::1"])
	assert.Empty(t, cfg.Deny)
	assert.NotEmpty(t, cfg.Rules)
}
