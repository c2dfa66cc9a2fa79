package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterRefills(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60)
	rl.now = func() time.Time { return now }

	for i := 0; i < 60; i++ {
		assert.True(t, rl.Allow("10.0.0.1"), "request %d", i)
	}
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "clients have separate buckets")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiterRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.reserve("a").OK())
	d := rl.reserve("a")
	assert.False(t, d.OK())
	assert.Equal(t, "60", d.RetryAfter())
}

func TestRateLimiterCleanup(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(10)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(2 * time.Hour)
	rl.Allow("new")
	rl.Cleanup(time.Hour)

	assert.Len(t, rl.clients, 1)
	assert.Contains(t, rl.clients, "new")
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.7:5555"
	assert.Equal(t, "192.0.2.7", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(r))
}

func TestSweepRunsUntilStopped(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(10)
	rl.Allow("idle")
	rl.now = func() time.Time { return now.Add(2 * time.Hour) }

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		sweep(rl, 10*time.Millisecond, stop)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		rl.mu.Lock()
		defer rl.mu.Unlock()
		return len(rl.clients) == 0
	}, time.Second, 5*time.Millisecond)

	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep kept running after stop")
	}
}
