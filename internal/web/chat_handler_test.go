package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/loanintake/intake-engine/internal/orchestrator"
)

func newChatFixture() *ChatHandler {
	store := orchestrator.NewStore(24*time.Hour, 0)
	service := &orchestrator.Service{Engine: &orchestrator.CoordinatorEngine{Store: store}}
	return NewChatHandler(service)
}

func TestChatRejectsMalformedBody(t *testing.T) {
	h := newChatFixture()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{broken`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChatRequiresUserMessage(t *testing.T) {
	h := newChatFixture()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"user_message":"  ","session_id":null}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChatRejectsNonPOST(t *testing.T) {
	h := newChatFixture()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
