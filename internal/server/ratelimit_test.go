package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// okHandler stands in for any downstream handler.
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func limitedRequest(remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/embedding/index", nil)
	req.RemoteAddr = remoteAddr
	return req
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	t.Parallel()

	rl := newRateLimiter(0.001, 3)
	h := rl.middleware(okHandler)

	for i := range 3 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, limitedRequest("10.0.0.1:9999"))
		require.Equal(t, http.StatusOK, w.Code, "request %d within burst", i)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, limitedRequest("10.0.0.1:9999"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")

	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retry, 1)
}

func TestRateLimiter_RejectionDoesNotConsumeTokens(t *testing.T) {
	t.Parallel()

	rl := newRateLimiter(1, 1)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.middleware(okHandler)

	serveAt := func() int {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, limitedRequest("10.0.0.2:1"))
		return w.Code
	}

	require.Equal(t, http.StatusOK, serveAt())
	for range 5 {
		require.Equal(t, http.StatusTooManyRequests, serveAt())
	}

	// One second refills exactly one token despite the rejected attempts.
	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, serveAt())
}

func TestRateLimiter_PerIPIsolation(t *testing.T) {
	t.Parallel()

	rl := newRateLimiter(0.001, 1)
	h := rl.middleware(okHandler)

	for range 3 {
		h.ServeHTTP(httptest.NewRecorder(), limitedRequest("192.168.1.1:1111"))
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, limitedRequest("192.168.1.2:2222"))
	assert.Equal(t, http.StatusOK, w.Code)

	// Same host, different source port: same bucket.
	w = httptest.NewRecorder()
	h.ServeHTTP(w, limitedRequest("192.168.1.1:3333"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimiter_EvictsIdleVisitors(t *testing.T) {
	t.Parallel()

	rl := newRateLimiter(10, 10)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.visitorFor("10.0.0.1")
	now = now.Add(limiterIdleTTL / 2)
	rl.visitorFor("10.0.0.2")
	require.Equal(t, 2, rl.size())

	now = now.Add(limiterIdleTTL/2 + time.Second)
	rl.evictIdle()
	assert.Equal(t, 1, rl.size(), "only the recently seen visitor survives")
}

func TestRateLimiter_RunEvictsUntilCancelled(t *testing.T) {
	t.Parallel()

	rl := newRateLimiter(10, 10)
	rl.evictEvery = time.Millisecond

	var mu sync.Mutex
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	rl.visitorFor("10.0.0.1")

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		rl.run(ctx)
		close(done)
	}()

	mu.Lock()
	now = now.Add(limiterIdleTTL + time.Second)
	mu.Unlock()
	require.Eventually(t, func() bool { return rl.size() == 0 }, 2*time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"127.0.0.1:54321", "127.0.0.1"},
		{"10.0.0.1:80", "10.0.0.1"},
		{"[::1]:8080", "::1"},
		{"[2001:db8::7]:443", "2001:db8::7"},
		{"noport", "noport"},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remoteAddr
		assert.Equal(t, tc.want, clientIP(req), "remoteAddr %q", tc.remoteAddr)
	}
}
