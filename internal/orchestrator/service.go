package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/loanintake/intake-engine/internal/model"
)

// Service is the single entry point transport handlers call: one turn of
// the coordinator state machine, immediately continuing into the
// specialist pipeline when that turn reaches ready_for_processing. Admin
// operations (Inspect/List/Delete/Cleanup) pass straight
// through to the Store.
type Service struct {
	Engine   *CoordinatorEngine
	Pipeline *Pipeline
}

// HandleChat runs one full turn. When the coordinator reply signals
// ready_for_processing, the pipeline runs synchronously in the same call:
// the session transitions ready -> processing -> completed (or -> error),
// every PipelineEvent is collected into the reply's WorkflowEvents in
// stage order, and the reply's action is upgraded to completed with
// completion 100. seed carries the request body's optional current_data
// object, merged into the session before the turn runs.
func (s *Service) HandleChat(ctx context.Context, sessionID, userMessage string, seed *model.PartialLoanApplication) (*model.CoordinatorReply, error) {
	reply, err := s.Engine.HandleTurn(ctx, sessionID, userMessage, seed)
	if err != nil {
		return nil, err
	}
	if reply.Action != model.ActionReadyForProcessing {
		return reply, nil
	}

	session, ok := s.Engine.Store.Get(reply.SessionID)
	if !ok {
		return reply, nil
	}

	session.Lock()
	app, convErr := session.CollectedData.ToApplication(uuid.NewString(), uuid.NewString())
	if convErr != nil {
		session.MarkError(convErr.Error())
		session.Unlock()
		reply.Action = model.ActionError
		reply.Message = "Your application could not be finalized for assessment."
		return reply, nil
	}
	session.Status = model.StatusProcessing
	thread := session.Thread
	session.Unlock()

	events, state := s.Pipeline.Run(ctx, thread, app)

	var collected []model.PipelineEvent
	for ev := range events {
		collected = append(collected, ev)
	}
	reply.WorkflowEvents = collected

	session.Lock()
	defer session.Unlock()

	if len(collected) > 0 && collected[len(collected)-1].Phase == model.PhaseError {
		detail := "cancelled"
		if ctx.Err() == nil {
			detail = collected[len(collected)-1].Message
		}
		session.MarkError(detail)
		reply.Action = model.ActionError
		reply.Message = "Your application was collected, but the assessment could not complete."
		return reply, nil
	}

	session.Status = model.StatusCompleted
	session.Application = state.Application
	session.Assessments = state.Assessments
	session.Touch(time.Now())

	if risk, ok := state.Assessment(model.PhaseDeciding); ok {
		rec := risk.Recommendation
		session.CollectedData.FinalRecommendation = &rec
		reply.CollectedData.FinalRecommendation = &rec
	}

	reply.Action = model.ActionCompleted
	reply.CompletionPercentage = 100
	return reply, nil
}

// Inspect returns a single session's admin-facing snapshot.
func (s *Service) Inspect(id string) (model.Snapshot, bool) {
	sess, ok := s.Engine.Store.Get(id)
	if !ok {
		return model.Snapshot{}, false
	}
	sess.Lock()
	defer sess.Unlock()
	return sess.ToSnapshot(), true
}

// List returns every session's admin-facing snapshot.
func (s *Service) List() []model.Snapshot {
	return s.Engine.Store.List()
}

// Delete removes a session, returning whether it existed.
func (s *Service) Delete(id string) bool {
	return s.Engine.Store.Delete(id)
}

// Cleanup evicts sessions idle longer than maxAge, returning the ids removed.
func (s *Service) Cleanup(maxAge time.Duration) []string {
	return s.Engine.Store.Cleanup(maxAge)
}
