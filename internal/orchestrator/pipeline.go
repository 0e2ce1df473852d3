package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/loanintake/intake-engine/internal/agent"
	"github.com/loanintake/intake-engine/internal/core"
	"github.com/loanintake/intake-engine/internal/model"
	"github.com/loanintake/intake-engine/internal/persona"
	"github.com/loanintake/intake-engine/internal/toolhub"
)

// stageTimeouts are the default per-stage agent-run deadlines.
var stageTimeouts = map[model.Phase]time.Duration{
	model.PhaseValidating: 10 * time.Second,
	model.PhaseCredit:     90 * time.Second,
	model.PhaseIncome:     60 * time.Second,
	model.PhaseDeciding:   90 * time.Second,
}

// toolSession is the method set a specialist agent actually calls. A
// *toolhub.Session satisfies it structurally; declaring it locally lets the
// zero value stay a genuine nil interface when no tool connection was
// opened for a stage, rather than an interface wrapping a nil *Session.
type toolSession interface {
	CallTool(ctx context.Context, server, tool string, args map[string]any) (string, error)
}

// specialist is the common shape every stage's agent satisfies once bound
// to its own Run signature via a closure in Pipeline.Run.
type specialist struct {
	phase      model.Phase
	toolServer []string
	run        func(ctx context.Context, thread model.ConversationThread, app *model.LoanApplication, prior map[model.Phase]*model.SpecialistAssessment, tools toolSession) (*model.SpecialistAssessment, error)
}

// specialistPrep is produced by Prep and consumed by Exec. It carries
// everything Exec needs without touching *SharedState directly, since
// core.BaseNode.Exec only receives the prep result.
type specialistPrep struct {
	thread model.ConversationThread
	app    *model.LoanApplication
	prior  map[model.Phase]*model.SpecialistAssessment
}

// specialistResult is Exec's output, consumed by Post.
type specialistResult struct {
	assessment *model.SpecialistAssessment
	err        error
}

// specialistNode wraps one pipeline stage as a core.BaseNode. A fresh
// instance is built per pipeline run, so storing the thread and
// emitted-event sink on the node itself between Prep and Post is safe.
type specialistNode struct {
	spec    specialist
	thread  model.ConversationThread
	tools   *persona.ToolEndpoints
	opener  func(ctx context.Context, endpoints []persona.ToolEndpoint) (*toolhub.Session, error)
	events  chan<- model.PipelineEvent
	timeout time.Duration
}

func (n *specialistNode) Prep(state *model.SharedState) []specialistPrep {
	prior := make(map[model.Phase]*model.SpecialistAssessment, len(state.Assessments))
	for k, v := range state.Assessments {
		prior[k] = v
	}
	return []specialistPrep{{thread: n.thread, app: state.Application, prior: prior}}
}

func (n *specialistNode) Exec(ctx context.Context, prep specialistPrep) (specialistResult, error) {
	stageCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	var tools toolSession
	if len(n.spec.toolServer) > 0 && n.tools != nil {
		endpoints, err := n.tools.ResolveAll(n.spec.toolServer)
		if err == nil {
			opened, openErr := n.opener(stageCtx, endpoints)
			if openErr != nil {
				return specialistResult{}, openErr
			}
			defer opened.Close()
			tools = opened
		}
		// A missing tool endpoint configuration is tolerated here: the
		// specialist's persona is instructed to note the limitation and
		// continue rather than hard-fail on an unconfigured optional server.
	}

	assessment, err := n.spec.run(stageCtx, prep.thread, prep.app, prep.prior, tools)
	if err != nil {
		if stageCtx.Err() == context.DeadlineExceeded {
			return specialistResult{}, model.NewToolTimeout(string(n.spec.phase))
		}
		return specialistResult{}, err
	}
	return specialistResult{assessment: assessment}, nil
}

func (n *specialistNode) ExecFallback(err error) specialistResult {
	return specialistResult{err: err}
}

func (n *specialistNode) Post(state *model.SharedState, prep []specialistPrep, results ...specialistResult) core.Action {
	if len(results) == 0 {
		return core.ActionFailure
	}
	result := results[0]
	if result.err != nil {
		if n.events != nil {
			n.events <- model.PipelineEvent{
				AgentName:            stageAgentName(n.spec.phase),
				Message:              result.err.Error(),
				Phase:                model.PhaseError,
				CompletionPercentage: completionForPhase(state.CurrentPhase),
			}
		}
		return core.ActionFailure
	}

	state.Record(n.spec.phase, result.assessment)
	if n.events != nil {
		n.events <- model.PipelineEvent{
			AgentName:            stageAgentName(n.spec.phase),
			Message:              stageMessage(n.spec.phase, result.assessment),
			Phase:                n.spec.phase,
			CompletionPercentage: completionForPhase(n.spec.phase),
			Assessment:           result.assessment,
		}
	}
	return core.ActionContinue
}

func stageAgentName(phase model.Phase) string {
	switch phase {
	case model.PhaseValidating:
		return "intake-validator"
	case model.PhaseCredit:
		return "credit-estimator"
	case model.PhaseIncome:
		return "income-assessor"
	case model.PhaseDeciding:
		return "risk-decider"
	default:
		return string(phase)
	}
}

func stageMessage(phase model.Phase, a *model.SpecialistAssessment) string {
	return fmt.Sprintf("%s stage complete: category %s", phase, a.Category)
}

func completionForPhase(phase model.Phase) int {
	switch phase {
	case model.PhaseValidating:
		return 25
	case model.PhaseCredit:
		return 50
	case model.PhaseIncome:
		return 75
	case model.PhaseDeciding, model.PhaseComplete:
		return 100
	default:
		return 0
	}
}

// Pipeline runs the four specialist stages in sequence over a finalized
// application, emitting one PipelineEvent per completed stage. It is
// stateless and safe to share; every call to Run builds its
// own node graph and SharedState.
type Pipeline struct {
	Intake *agent.IntakeValidator
	Credit *agent.CreditEstimator
	Income *agent.IncomeAssessor
	Risk   *agent.RiskDecider
	Tools  *persona.ToolEndpoints
	Open   func(ctx context.Context, endpoints []persona.ToolEndpoint) (*toolhub.Session, error)
}

// Run executes the pipeline over app and thread, returning a channel of
// events the caller must drain to completion (or until ctx is canceled).
// The channel is closed when the pipeline ends, successfully or not. The
// returned final *model.SharedState reflects everything recorded before
// the run stopped, for the caller to fold into the session.
func (p *Pipeline) Run(ctx context.Context, thread model.ConversationThread, app *model.LoanApplication) (<-chan model.PipelineEvent, *model.SharedState) {
	events := make(chan model.PipelineEvent, 4)
	state := model.NewSharedState(app)

	specs := []specialist{
		{phase: model.PhaseValidating, toolServer: []string{persona.ApplicationVerification}, run: func(ctx context.Context, thread model.ConversationThread, app *model.LoanApplication, prior map[model.Phase]*model.SpecialistAssessment, tools toolSession) (*model.SpecialistAssessment, error) {
			return p.Intake.Run(ctx, thread, app, tools)
		}},
		{phase: model.PhaseCredit, toolServer: []string{persona.FinancialCalculations}, run: func(ctx context.Context, thread model.ConversationThread, app *model.LoanApplication, prior map[model.Phase]*model.SpecialistAssessment, tools toolSession) (*model.SpecialistAssessment, error) {
			return p.Credit.Run(ctx, thread, app, prior[model.PhaseValidating], tools)
		}},
		{phase: model.PhaseIncome, toolServer: []string{persona.FinancialCalculations}, run: func(ctx context.Context, thread model.ConversationThread, app *model.LoanApplication, prior map[model.Phase]*model.SpecialistAssessment, tools toolSession) (*model.SpecialistAssessment, error) {
			return p.Income.Run(ctx, thread, app, prior, tools)
		}},
		{phase: model.PhaseDeciding, run: func(ctx context.Context, thread model.ConversationThread, app *model.LoanApplication, prior map[model.Phase]*model.SpecialistAssessment, tools toolSession) (*model.SpecialistAssessment, error) {
			return p.Risk.Run(ctx, thread, app, prior)
		}},
	}

	nodes := make([]*specialistNode, len(specs))
	for i, sp := range specs {
		nodes[i] = &specialistNode{
			spec:    sp,
			thread:  thread,
			tools:   p.Tools,
			opener:  p.Open,
			events:  events,
			timeout: stageTimeouts[sp.phase],
		}
	}

	startNode := core.NewNode[model.SharedState, specialistPrep, specialistResult](nodes[0], 0)
	flow := core.NewFlow[model.SharedState](startNode)
	var prev core.Workflow[model.SharedState] = startNode
	for i := 1; i < len(nodes); i++ {
		next := core.NewNode[model.SharedState, specialistPrep, specialistResult](nodes[i], 0)
		prev.AddSuccessor(next, core.ActionContinue)
		prev = next
	}

	go func() {
		defer close(events)
		lastAction := flow.Run(ctx, state)

		if ctx.Err() != nil {
			events <- model.PipelineEvent{
				AgentName:            "pipeline",
				Message:              "cancelled",
				Phase:                model.PhaseError,
				CompletionPercentage: completionForPhase(state.CurrentPhase),
			}
			return
		}
		if lastAction == core.ActionFailure {
			// The failing node already emitted its own error event in Post.
			return
		}

		risk, _ := state.Assessment(model.PhaseDeciding)
		events <- model.PipelineEvent{
			AgentName:            "risk-decider",
			Message:              fmt.Sprintf("assessment complete: %s", risk.Recommendation),
			Phase:                model.PhaseComplete,
			CompletionPercentage: 100,
			Assessment:           risk,
		}
	}()

	return events, state
}
