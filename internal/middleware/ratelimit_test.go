package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ptts/sonuby-api/internal/logging"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, testLogger())
	handler := rl.Handler(okHandler())

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/sign", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	// Burst of 2 passes, third request in the same instant is rejected.
	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("statuses = %v, want first two 200", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("third status = %d, want 429", statuses[2])
	}
}

func TestRateLimiter_PerClientKeys(t *testing.T) {
	rl := NewRateLimiter(1, 1, testLogger())
	handler := rl.Handler(okHandler())

	for _, addr := range []string{"203.0.113.7:1234", "203.0.113.8:1234"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/sign", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status for %s = %d, want 200 (independent buckets)", addr, rec.Code)
		}
	}
}

func TestRateLimiter_CleanupStop(t *testing.T) {
	rl := NewRateLimiter(1, 1, testLogger())
	rl.StartCleanup(10 * time.Millisecond)

	// Grow the map past the reset threshold, then wait for a tick.
	for i := 0; i < 10001; i++ {
		rl.getLimiter(strconv.Itoa(i))
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rl.mu.RLock()
		size := len(rl.limiters)
		rl.mu.RUnlock()
		if size == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("limiter map not reset, still %d entries", size)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Stop is idempotent and leaves no goroutine behind.
	rl.Stop()
	rl.Stop()
}

func TestTracingMiddleware(t *testing.T) {
	m := NewTracingMiddleware(testLogger())

	var gotTraceID string
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTraceID = logging.GetTraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotTraceID == "" {
		t.Error("no trace ID in request context")
	}
	if got := rec.Header().Get("X-Trace-ID"); got != gotTraceID {
		t.Errorf("X-Trace-ID header = %q, want %q", got, gotTraceID)
	}
}

func TestTracingMiddleware_PropagatesIncomingTraceID(t *testing.T) {
	m := NewTracingMiddleware(testLogger())
	handler := m.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Trace-ID", "trace-abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Trace-ID"); got != "trace-abc-123" {
		t.Errorf("X-Trace-ID header = %q, want trace-abc-123", got)
	}
}
