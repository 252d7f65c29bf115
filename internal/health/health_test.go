package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubChecker struct {
	err error
}

func (s stubChecker) HealthCheck(ctx context.Context) error {
	return s.err
}

func TestHandlerHealthy(t *testing.T) {
	h := Handler(map[string]Checker{
		"database": stubChecker{},
		"redis":    stubChecker{},
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("status = %q", body.Status)
	}
	if body.Checks["database"] != "ok" {
		t.Errorf("database check = %q", body.Checks["database"])
	}
}

func TestHandlerUnhealthy(t *testing.T) {
	h := Handler(map[string]Checker{
		"database": stubChecker{err: errors.New("connection refused")},
		"redis":    stubChecker{},
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "unhealthy" {
		t.Errorf("status = %q", body.Status)
	}
	if body.Checks["database"] != "connection refused" {
		t.Errorf("database check = %q", body.Checks["database"])
	}
	if body.Checks["redis"] != "ok" {
		t.Errorf("redis check = %q", body.Checks["redis"])
	}
}
