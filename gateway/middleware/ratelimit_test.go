package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiterEnforcesBurst(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerMinute: 60, Burst: 1}, nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := limiter.Middleware(next)

	req := httptest.NewRequest(http.MethodGet, "/v1/vesting/plans", nil)
	req.RemoteAddr = "192.0.2.10:5000"

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("first request = %d, want 200", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", recorder.Code)
	}
}

func TestClientIDPrefersForwardingHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5000"
	if got := clientID(req); got != "192.0.2.10" {
		t.Fatalf("clientID = %q, want remote host", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientID(req); got != "203.0.113.7" {
		t.Fatalf("clientID = %q, want first forwarded hop", got)
	}

	req.Header.Set("X-Real-IP", "198.51.100.4")
	if got := clientID(req); got != "198.51.100.4" {
		t.Fatalf("clientID = %q, want real ip", got)
	}
}
