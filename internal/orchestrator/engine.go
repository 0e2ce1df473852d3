package orchestrator

import (
	"context"
	"log"
	"time"

	"github.com/loanintake/intake-engine/internal/agent"
	"github.com/loanintake/intake-engine/internal/model"
	"github.com/loanintake/intake-engine/internal/util"
)

// coordinatorTimeout is the default per-turn deadline for the coordinator
// agent call.
const coordinatorTimeout = 30 * time.Second

// CoordinatorEngine runs one collection turn at a time against a session
// resolved from Store.
type CoordinatorEngine struct {
	Store       *Store
	Coordinator *agent.CoordinatorAgent
}

// HandleTurn resolves or creates the session named by sessionID, appends
// userMessage to its thread, invokes the coordinator agent, merges the
// result, and returns the reply. The session lock is held for the full
// duration of the turn and always released
// before returning, including on every error path. seed, when non-nil, is
// merged into the session's collected data before the turn runs — it lets
// a client that already holds partial data (current_data in the chat
// request body) hand it back in without re-asking every question, using
// the same never-overwrite-a-present-field-with-null merge policy as every
// other write to collected data.
func (e *CoordinatorEngine) HandleTurn(ctx context.Context, sessionID, userMessage string, seed *model.PartialLoanApplication) (*model.CoordinatorReply, error) {
	session := e.Store.GetOrCreate(sessionID)

	session.Lock()
	defer session.Unlock()

	if seed != nil {
		session.CollectedData.Merge(*seed)
	}

	now := time.Now()
	session.Thread.Append(model.RoleUser, userMessage, now)

	runCtx, cancel := context.WithTimeout(ctx, coordinatorTimeout)
	defer cancel()

	reply, err := e.Coordinator.Run(runCtx, session.Thread, session.CollectedData)
	if err != nil {
		detail := err.Error()
		// The raw user message is never logged — at step 4 it carries name,
		// email, and id digits.
		log.Printf("[Coordinator] session %s turn failed: %s",
			session.ID, util.TruncateRunes(detail, 200))
		session.MarkError(detail)
		return &model.CoordinatorReply{
			AgentName:            agent.CoordinatorAgentName,
			Message:              "I ran into a problem and couldn't process that. Please try again.",
			Action:               model.ActionError,
			CollectedData:        session.CollectedData,
			CompletionPercentage: session.Completion,
			SessionID:            session.ID,
		}, nil
	}

	// Shallow merge: new values replace old, a present
	// field is never overwritten with null. CollectedData already reflects
	// that merge policy (PartialLoanApplication.Merge), so the reply's
	// CollectedData — already merged against the session's prior state by
	// the coordinator agent — becomes the session's new state directly.
	session.CollectedData = reply.CollectedData
	session.Completion = reply.CompletionPercentage
	session.Touch(now)

	if reply.Action == model.ActionReadyForProcessing {
		session.Status = model.StatusReady
	}

	applicant := ""
	if reply.CollectedData.Email != nil {
		applicant = " applicant " + model.MaskEmail(*reply.CollectedData.Email)
	}
	log.Printf("[Coordinator] session %s action=%s completion=%d%%%s",
		session.ID, reply.Action, reply.CompletionPercentage, applicant)

	reply.SessionID = session.ID
	return reply, nil
}
