package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthReportsHealthy(t *testing.T) {
	h := NewHealthHandler(HealthInfo{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if resp.Status != "healthy" {
		t.Fatalf("status = %q, want healthy", resp.Status)
	}
	if !resp.Services.Workflow || !resp.Services.SessionManager || !resp.Services.Framework {
		t.Fatalf("services = %+v, want all true with nil probes", resp.Services)
	}
	if resp.Timestamp == "" {
		t.Fatal("timestamp missing")
	}
}

func TestHealthReportsDegradedWhenProbeFails(t *testing.T) {
	h := NewHealthHandler(HealthInfo{SessionManager: func() bool { return false }})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if resp.Status != "degraded" || resp.Services.SessionManager {
		t.Fatalf("resp = %+v, want degraded with session_manager false", resp)
	}
}

func TestHealthRejectsNonGET(t *testing.T) {
	h := NewHealthHandler(HealthInfo{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
