package model

// PipelineEvent is one unit of lazily-streamed progress from a pipeline
// invocation. One is emitted per completed specialist stage, followed by a
// terminal event with phase complete or error.
type PipelineEvent struct {
	AgentName            string                `json:"agent_name"`
	Message              string                `json:"message"`
	Phase                Phase                 `json:"phase"`
	CompletionPercentage int                   `json:"completion_percentage"`
	Assessment           *SpecialistAssessment `json:"assessment,omitempty"`
	Action               CoordinatorAction     `json:"action,omitempty"`
}

// pipelinePhaseOrder is the fixed stage order: events have phases in this
// order, or a prefix of it followed by error.
var pipelinePhaseOrder = []Phase{PhaseValidating, PhaseCredit, PhaseIncome, PhaseDeciding, PhaseComplete}

// ValidatePipelineEventSequence checks the ordering and monotonicity
// invariant over an already-emitted sequence of events.
func ValidatePipelineEventSequence(events []PipelineEvent) error {
	lastCompletion := -1
	for i, e := range events {
		if e.CompletionPercentage < lastCompletion {
			return NewValidationError("pipeline events: completion regressed at index %d (%d < %d)", i, e.CompletionPercentage, lastCompletion)
		}
		lastCompletion = e.CompletionPercentage

		if e.Phase == PhaseError {
			if i != len(events)-1 {
				return NewValidationError("pipeline events: error phase at index %d is not terminal", i)
			}
			continue
		}
		if i >= len(pipelinePhaseOrder) || e.Phase != pipelinePhaseOrder[i] {
			return NewValidationError("pipeline events: phase %q at index %d out of order", string(e.Phase), i)
		}
	}
	return nil
}

// SharedState is the per-pipeline-invocation record threaded through the
// four specialist stages. Writes are append-only within a run;
// reads of a stage not yet populated return ok=false rather than a zero
// value, since early stages have no prior assessments.
type SharedState struct {
	Application   *LoanApplication
	Assessments   map[Phase]*SpecialistAssessment
	CurrentPhase  Phase
}

// NewSharedState starts a pipeline run for the given finalized application.
func NewSharedState(app *LoanApplication) *SharedState {
	return &SharedState{
		Application:  app,
		Assessments:  make(map[Phase]*SpecialistAssessment),
		CurrentPhase: PhaseValidating,
	}
}

// Assessment looks up a prior stage's assessment by phase.
func (s *SharedState) Assessment(phase Phase) (*SpecialistAssessment, bool) {
	a, ok := s.Assessments[phase]
	return a, ok
}

// Record appends a stage's assessment and advances the current phase.
func (s *SharedState) Record(phase Phase, a *SpecialistAssessment) {
	s.Assessments[phase] = a
	s.CurrentPhase = phase
}
