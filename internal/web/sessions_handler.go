package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/loanintake/intake-engine/internal/orchestrator"
)

// SessionsHandler serves the session admin surface: listing,
// single-session inspection, deletion, and manual idle cleanup.
type SessionsHandler struct {
	service *orchestrator.Service
}

func NewSessionsHandler(service *orchestrator.Service) *SessionsHandler {
	return &SessionsHandler{service: service}
}

// ServeHTTP dispatches by method and path suffix. Routing is left to a
// bare http.ServeMux in server.go; this
// handler is registered at the "/api/sessions/" prefix and resolves the
// id or "cleanup" suffix itself.
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	rest = strings.Trim(rest, "/")

	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.list(w, r)
	case rest == "cleanup" && r.Method == http.MethodPost:
		h.cleanup(w, r)
	case rest != "" && r.Method == http.MethodGet:
		h.get(w, rest)
	case rest != "" && r.Method == http.MethodDelete:
		h.delete(w, rest)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *SessionsHandler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.List())
}

func (h *SessionsHandler) get(w http.ResponseWriter, id string) {
	snap, ok := h.service.Inspect(id)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SessionsHandler) delete(w http.ResponseWriter, id string) {
	if !h.service.Delete(id) {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cleanupRequest struct {
	MaxAgeHours int `json:"max_age_hours"`
}

type cleanupResponse struct {
	RemovedSessionIDs []string `json:"removed_session_ids"`
}

func (h *SessionsHandler) cleanup(w http.ResponseWriter, r *http.Request) {
	req := cleanupRequest{MaxAgeHours: 24}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
		if req.MaxAgeHours <= 0 {
			req.MaxAgeHours = 24
		}
	}
	removed := h.service.Cleanup(time.Duration(req.MaxAgeHours) * time.Hour)
	writeJSON(w, http.StatusOK, cleanupResponse{RemovedSessionIDs: removed})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
