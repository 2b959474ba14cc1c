package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wolfman30/homecare-booking/pkg/logging"
)

func TestRateLimiterBurstThenRefill(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatalf("expected burst of two to be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatalf("expected third request to be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatalf("other clients have their own bucket")
	}

	now = now.Add(time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Fatalf("expected a token after one second")
	}
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("10.0.0.1")
	now = now.Add(visitorIdleTTL + time.Minute)
	rl.Allow("10.0.0.2")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["10.0.0.1"]; ok {
		t.Fatalf("expected idle visitor to be evicted")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimit(NewRateLimiter(0.001, 1))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/booking", nil)
		req.Header.Set("X-Real-Ip", "203.0.113.9")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusNoContent {
		t.Fatalf("expected first request through, got %d", rec.Code)
	}
	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestClientIPStripsPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.4:51234"
	if got := clientIP(req); got != "198.51.100.4" {
		t.Fatalf("unexpected client ip %q", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Referrer-Policy", "Content-Security-Policy"} {
		if rec.Header().Get(h) == "" {
			t.Fatalf("expected %s header", h)
		}
	}
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithOptions(logging.Options{Level: "info", Output: &buf})
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/services", nil))

	out := buf.String()
	if !strings.Contains(out, `"status":418`) || !strings.Contains(out, `"path":"/services"`) {
		t.Fatalf("unexpected log output %s", out)
	}
}
