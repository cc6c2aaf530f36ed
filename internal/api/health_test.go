package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/camdumpdb/internal/version"
)

type mockHealthChecker struct {
	status *HealthStatus
}

func (m *mockHealthChecker) CheckHealth() *HealthStatus {
	return m.status
}

func TestHealthHandler_WithChecker(t *testing.T) {
	s := &Server{}
	s.SetHealthChecker(&mockHealthChecker{
		status: &HealthStatus{
			Status:    "ok",
			Time:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Uptime:    "1h0m0s",
			UptimeSec: 3600,
			Version: version.BuildInfo{
				Version:   "1.0.0",
				GitCommit: "abc123",
				BuildTime: "2026-01-01",
			},
			Dumps: DumpsHealth{
				Dir:       "/srv/dumps",
				Available: 12,
				Loaded:    3,
			},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	s.HealthHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var result HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Status != "ok" {
		t.Errorf("expected status ok, got %s", result.Status)
	}
	if result.Version.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %s", result.Version.Version)
	}
	if result.UptimeSec != 3600 {
		t.Errorf("expected uptime 3600, got %f", result.UptimeSec)
	}
	if result.Dumps.Available != 12 || result.Dumps.Loaded != 3 {
		t.Errorf("expected 12 available and 3 loaded, got %+v", result.Dumps)
	}
}

func TestHealthHandler_Degraded(t *testing.T) {
	s := &Server{}
	s.SetHealthChecker(&mockHealthChecker{
		status: &HealthStatus{
			Status: "degraded",
			Time:   time.Now().UTC(),
			Dumps: DumpsHealth{
				Dir:   "/missing",
				Error: "open /missing: no such file or directory",
			},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	s.HealthHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 even for degraded, got %d", w.Code)
	}

	var result HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if result.Status != "degraded" {
		t.Errorf("expected degraded, got %s", result.Status)
	}
	if result.Dumps.Error == "" {
		t.Error("expected error message")
	}
}

func TestHealthHandler_WithoutChecker(t *testing.T) {
	s := &Server{}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	s.HealthHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var result map[string]any
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if result["status"] != "ok" {
		t.Errorf("expected ok, got %v", result["status"])
	}
	if _, ok := result["time"]; !ok {
		t.Error("expected time field in fallback response")
	}
}

func TestHealthHandler_OptionalCache(t *testing.T) {
	s := &Server{}
	s.SetHealthChecker(&mockHealthChecker{
		status: &HealthStatus{
			Status: "ok",
			Time:   time.Now().UTC(),
			Cache: &CacheHealth{
				Enabled: true,
				Keys:    1500,
				HitRate: 87.5,
			},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	s.HealthHandler(w, req)

	var result HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if result.Cache == nil {
		t.Fatal("expected cache info")
	}
	if result.Cache.Keys != 1500 {
		t.Errorf("expected 1500 cache keys, got %d", result.Cache.Keys)
	}
}
