package http

import (
	"net/http"
	"testing"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := newRateLimiter(2)
	defer rl.Stop()

	if !rl.allow("10.0.0.1") {
		t.Fatal("first request should be allowed")
	}
	if !rl.allow("10.0.0.1") {
		t.Fatal("second request should be allowed")
	}
	if rl.allow("10.0.0.1") {
		t.Error("third request should be rejected")
	}
	if !rl.allow("10.0.0.2") {
		t.Error("other clients should not be affected")
	}
}

func TestRateLimitExceeded(t *testing.T) {
	s, _ := newTestServer(t)
	s.limiter.Stop()
	s.limiter = newRateLimiter(1)
	defer s.limiter.Stop()

	rec := get(t, s, "/api/entries?user=alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", rec.Code)
	}

	rec = get(t, s, "/api/entries?user=alice")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want %q", rec.Header().Get("Retry-After"), "60")
	}
}

func TestSecurityHeaders(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/api/entries?user=alice")

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", got, "nosniff")
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want %q", got, "DENY")
	}
}
