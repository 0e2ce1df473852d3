package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/loanintake/intake-engine/internal/agent"
	"github.com/loanintake/intake-engine/internal/model"
	"github.com/loanintake/intake-engine/internal/orchestrator"
)

const (
	maxRequestBody = 1 << 20        // 1MB max request body
	chatTimeout    = 2 * time.Minute // global deadline for one chat turn, pipeline included
)

// chatRequest is the body of POST /api/chat.
type chatRequest struct {
	UserMessage string                        `json:"user_message"`
	SessionID   *string                       `json:"session_id"`
	CurrentData *model.PartialLoanApplication `json:"current_data"`
}

// ChatHandler serves POST /api/chat, streaming a coordinator_reply /
// pipeline_event / done SSE sequence and mirroring the final reply as a
// JSON trailer so a client that only reads "done" still gets a complete
// CoordinatorReply.
type ChatHandler struct {
	service *orchestrator.Service
}

func NewChatHandler(service *orchestrator.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	req.UserMessage = strings.TrimSpace(req.UserMessage)
	if req.UserMessage == "" {
		http.Error(w, "user_message is required", http.StatusBadRequest)
		return
	}
	var sessionID string
	if req.SessionID != nil {
		sessionID = strings.TrimSpace(*req.SessionID)
	}

	sse := newSSEWriter(w, r)
	if sse == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()

	reply, err := h.service.HandleChat(ctx, sessionID, req.UserMessage, req.CurrentData)
	if err != nil {
		log.Printf("[web] chat turn failed: %v", err)
		sse.Send("done", errorReply(err))
		return
	}

	sse.Send("coordinator_reply", reply)
	for _, ev := range reply.WorkflowEvents {
		sse.Send("pipeline_event", ev)
	}
	sse.Send("done", reply)
}

func errorReply(err error) *model.CoordinatorReply {
	return &model.CoordinatorReply{
		AgentName: agent.CoordinatorAgentName,
		Message:   "I ran into a problem and couldn't process that. Please try again.",
		Action:    model.ActionError,
	}
}
