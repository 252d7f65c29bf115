package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestInMemoryRateLimitStore(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	cfg := RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if allowed, _ := store.Allow(ctx, "key", cfg); !allowed {
			t.Fatalf("request %d blocked inside the limit", i+1)
		}
	}

	allowed, retryAfter := store.Allow(ctx, "key", cfg)
	if allowed {
		t.Fatal("fourth request allowed over the limit")
	}
	if retryAfter <= 0 || retryAfter > 60 {
		t.Errorf("retryAfter = %d", retryAfter)
	}

	// Independent keys do not share a bucket.
	if allowed, _ := store.Allow(ctx, "other", cfg); !allowed {
		t.Error("different key blocked")
	}
}

func TestRateLimiter_Returns429(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	cfg := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}
	limited := RateLimiter(store, cfg, IPKeyFunc(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest("POST", "/token", nil)
	r.RemoteAddr = "203.0.113.9:1234"

	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, r)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}

	// A different client IP is not affected.
	other := httptest.NewRequest("POST", "/token", nil)
	other.RemoteAddr = "198.51.100.7:1234"
	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rec.Code)
	}
}

func TestIPKeyFunc(t *testing.T) {
	key := IPKeyFunc()

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:5555"
	if got := key(r); got != "203.0.113.9" {
		t.Errorf("key = %q", got)
	}

	r.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	if got := key(r); got != "198.51.100.7" {
		t.Errorf("forwarded key = %q", got)
	}
}

func TestRateLimitConfigValidate(t *testing.T) {
	if err := (RateLimitConfig{RequestsPerWindow: 10, WindowDuration: time.Minute}).Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	if err := (RateLimitConfig{RequestsPerWindow: 0, WindowDuration: time.Minute}).Validate(); err == nil {
		t.Error("zero RequestsPerWindow accepted")
	}
	if err := (RateLimitConfig{RequestsPerWindow: 1}).Validate(); err == nil {
		t.Error("zero WindowDuration accepted")
	}
}
