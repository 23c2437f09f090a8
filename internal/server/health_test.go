package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePinger is a Pinger test double. delay, when set, blocks Ping until it
// elapses or the probe context ends.
type fakePinger struct {
	name  string
	err   error
	delay time.Duration
}

func (f *fakePinger) Name() string { return f.name }

func (f *fakePinger) Ping(ctx context.Context) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func ready(t *testing.T, pingers ...Pinger) (int, readyResponse) {
	t.Helper()
	s := newTestServer()
	s.pingers = pingers

	w := httptest.NewRecorder()
	s.handleReady(w, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp readyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return w.Code, resp
}

func TestHandleHealth_OK(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	w := httptest.NewRecorder()
	s.handleHealth(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHandleReady_NoPingers(t *testing.T) {
	t.Parallel()

	code, resp := ready(t)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Ready)
	assert.Empty(t, resp.Checks)
}

func TestHandleReady_Outcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		pingers   []Pinger
		wantCode  int
		wantReady bool
		wantOK    []bool
	}{
		{
			name:      "all healthy",
			pingers:   []Pinger{&fakePinger{name: "sqlite"}, &fakePinger{name: "qdrant"}},
			wantCode:  http.StatusOK,
			wantReady: true,
			wantOK:    []bool{true, true},
		},
		{
			name:      "one failing",
			pingers:   []Pinger{&fakePinger{name: "sqlite"}, &fakePinger{name: "qdrant", err: errors.New("connection refused")}},
			wantCode:  http.StatusServiceUnavailable,
			wantReady: false,
			wantOK:    []bool{true, false},
		},
		{
			name:      "all failing",
			pingers:   []Pinger{&fakePinger{name: "sqlite", err: errors.New("locked")}, &fakePinger{name: "qdrant", err: errors.New("timeout")}},
			wantCode:  http.StatusServiceUnavailable,
			wantReady: false,
			wantOK:    []bool{false, false},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			code, resp := ready(t, tc.pingers...)
			assert.Equal(t, tc.wantCode, code)
			assert.Equal(t, tc.wantReady, resp.Ready)
			require.Len(t, resp.Checks, len(tc.wantOK))
			for i, c := range resp.Checks {
				assert.Equal(t, tc.pingers[i].Name(), c.Name, "checks keep registration order")
				assert.Equal(t, tc.wantOK[i], c.OK, c.Name)
				assert.Equal(t, !tc.wantOK[i], c.Error != "", c.Name)
			}
		})
	}
}

func TestHandleReady_ProbesRunConcurrently(t *testing.T) {
	t.Parallel()

	slow := 200 * time.Millisecond
	start := time.Now()
	code, resp := ready(t,
		&fakePinger{name: "a", delay: slow},
		&fakePinger{name: "b", delay: slow},
		&fakePinger{name: "c", delay: slow},
	)

	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Ready)
	assert.Less(t, time.Since(start), 3*slow, "three probes should overlap")
	for _, c := range resp.Checks {
		assert.GreaterOrEqual(t, c.LatencyMS, int64(150), c.Name)
	}
}
