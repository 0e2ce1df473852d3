package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/loanintake/intake-engine/internal/llm"
	"github.com/loanintake/intake-engine/internal/model"
)

// CoordinatorAgentName is the fixed persona name a CoordinatorReply always
// carries.
const CoordinatorAgentName = "Ada"

// step identifies which of the four intake-script steps is next, derived
// from the collected-data snapshot rather than stored explicitly.
type step int

const (
	stepLoanAmount step = iota
	stepDownPayment
	stepIncome
	stepIdentity
	stepDone
)

func nextStep(data model.PartialLoanApplication) step {
	switch {
	case data.LoanAmount == nil:
		return stepLoanAmount
	case data.DownPayment == nil:
		return stepDownPayment
	case data.AnnualIncome == nil:
		return stepIncome
	case data.Name == nil || data.Email == nil || data.IDLast4 == nil:
		return stepIdentity
	default:
		return stepDone
	}
}

func stepPrompt(s step) string {
	switch s {
	case stepLoanAmount:
		return "What loan amount are you requesting?"
	case stepDownPayment:
		return "What down payment percentage can you put down (5-25%)?"
	case stepIncome:
		return "What is your annual income?"
	case stepIdentity:
		return "Please share your name, email, and the last four digits of your government ID."
	default:
		return ""
	}
}

// quickReplies returns the domain-defined option set for steps 1-3 (five,
// five, four options respectively); step 4 is form-driven
// and never carries quick replies.
func quickReplies(s step) []model.QuickReplyOption {
	switch s {
	case stepLoanAmount:
		return []model.QuickReplyOption{
			{Label: "$200,000", Value: "200000"},
			{Label: "$300,000", Value: "300000"},
			{Label: "$400,000", Value: "400000"},
			{Label: "$500,000", Value: "500000"},
			{Label: "$750,000", Value: "750000"},
		}
	case stepDownPayment:
		return []model.QuickReplyOption{
			{Label: "5%", Value: "5"},
			{Label: "10%", Value: "10"},
			{Label: "15%", Value: "15"},
			{Label: "20%", Value: "20"},
			{Label: "25%", Value: "25"},
		}
	case stepIncome:
		return []model.QuickReplyOption{
			{Label: "$50,000", Value: "50000"},
			{Label: "$75,000", Value: "75000"},
			{Label: "$100,000", Value: "100000"},
			{Label: "$150,000", Value: "150000"},
		}
	default:
		return nil
	}
}

// CoordinatorAgent drives the fixed four-step intake script.
// Unlike the specialists it never opens a tool session: "The coordinator
// does not call tools. Its only external effect is producing a
// CoordinatorReply."
type CoordinatorAgent struct {
	Persona  string
	Provider llm.LLMProvider
}

// NewCoordinatorAgent builds a coordinator from its persona text and LLM
// client. persona must be non-empty; loading it is the caller's
// responsibility (persona.PersonaSet.Load never tolerates the coordinator
// key being absent).
func NewCoordinatorAgent(persona string, provider llm.LLMProvider) *CoordinatorAgent {
	return &CoordinatorAgent{Persona: persona, Provider: provider}
}

// coordinatorModelOutput is what the model is asked for each turn: whether
// the applicant's message is on-topic, and the reply text. Step advancement,
// completion percentage, quick replies, and field validation are all
// computed in Go so the CoordinatorReply invariants hold
// unconditionally, never depending on the model getting the control flow
// right.
type coordinatorModelOutput struct {
	OnTopic bool   `json:"on_topic"`
	Message string `json:"message"`
}

var coordinatorSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "on_topic": {"type": "boolean", "description": "false if the applicant's message does not answer the current step's question"},
    "message": {"type": "string", "description": "the reply shown to the applicant, in the coordinator persona's voice"}
  },
  "required": ["on_topic", "message"]
}`)

const coordinatorDescription = "Record whether the applicant's last message answered the current step, and the reply to show them."

// Run executes one coordinator turn: thread's last entry is the applicant's
// latest utterance (the caller appends it before invoking Run).
// collected is the session's collected-data snapshot
// before this turn.
func (a *CoordinatorAgent) Run(ctx context.Context, thread model.ConversationThread, collected model.PartialLoanApplication) (*model.CoordinatorReply, error) {
	cur := nextStep(collected)
	if cur == stepDone {
		return nil, model.NewValidationError("coordinator: called with an already-complete application")
	}

	userMessage := lastUserMessage(thread)
	delta, parseErr := extractStepValue(cur, collected, userMessage)

	var out coordinatorModelOutput
	messages := a.buildMessages(thread, cur, parseErr)
	if err := callStructured(ctx, a.Provider, "coordinator", messages, coordinatorSchema, coordinatorDescription, &out); err != nil {
		return nil, err
	}

	reply := &model.CoordinatorReply{
		AgentName: CoordinatorAgentName,
		Message:   out.Message,
	}

	if !out.OnTopic || parseErr != nil {
		reply.Action = model.ActionNeedClarification
		reply.CollectedData = collected
		reply.CompletionPercentage = collected.CompletionFraction()
		reply.NextStep = stepPrompt(cur)
		reply.QuickReplies = quickReplies(cur)
		if err := reply.Validate(); err != nil {
			return nil, err
		}
		return reply, nil
	}

	updated := collected
	updated.Merge(*delta)
	reply.CollectedData = updated
	reply.CompletionPercentage = updated.CompletionFraction()

	if updated.Complete() {
		reply.Action = model.ActionReadyForProcessing
	} else {
		reply.Action = model.ActionCollectInfo
		next := nextStep(updated)
		reply.NextStep = stepPrompt(next)
		reply.QuickReplies = quickReplies(next)
	}
	if err := reply.Validate(); err != nil {
		return nil, err
	}
	return reply, nil
}

func lastUserMessage(thread model.ConversationThread) string {
	for i := len(thread) - 1; i >= 0; i-- {
		if thread[i].Role == model.RoleUser {
			return thread[i].Content
		}
	}
	return ""
}

func (a *CoordinatorAgent) buildMessages(thread model.ConversationThread, cur step, parseErr error) []llm.Message {
	msgs := make([]llm.Message, 0, len(thread)+1)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: a.systemPrompt(cur, parseErr)})
	for _, m := range thread {
		role := llm.RoleUser
		if m.Role == model.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	return msgs
}

func (a *CoordinatorAgent) systemPrompt(cur step, parseErr error) string {
	var b strings.Builder
	b.WriteString(a.Persona)
	b.WriteString("\n\nCurrent step: ")
	b.WriteString(stepPrompt(cur))
	if parseErr != nil {
		fmt.Fprintf(&b, "\n\nThe applicant's last message did not parse as a valid answer to the current step (%s). Treat this as needing clarification: politely restate the requirement and do not claim the information was recorded.", parseErr.Error())
	}
	b.WriteString("\n\nAlways call emit_result with on_topic and message.")
	return b.String()
}

// extractStepValue parses the applicant's utterance for the current step's
// expected shape. A parse failure is returned as an
// error, never a panic or a silently-accepted zero value; the caller turns
// it into need_clarification without mutating collected-data.
func extractStepValue(s step, collected model.PartialLoanApplication, msg string) (*model.PartialLoanApplication, error) {
	switch s {
	case stepLoanAmount:
		amt, err := parseMoney(msg)
		if err != nil {
			return nil, err
		}
		return &model.PartialLoanApplication{LoanAmount: &amt}, nil

	case stepDownPayment:
		pct, err := parsePercent(msg)
		if err != nil {
			return nil, err
		}
		if pct < 5 || pct > 25 {
			return nil, model.NewValidationError("down payment percent %v is outside the expected 5-25 range", pct)
		}
		if collected.LoanAmount == nil {
			return nil, model.NewValidationError("coordinator: down payment step reached before loan amount was collected")
		}
		down := *collected.LoanAmount * pct / 100
		return &model.PartialLoanApplication{DownPayment: &down}, nil

	case stepIncome:
		inc, err := parseMoney(msg)
		if err != nil {
			return nil, err
		}
		return &model.PartialLoanApplication{AnnualIncome: &inc}, nil

	case stepIdentity:
		sub, err := parseIdentitySubmission(msg)
		if err != nil {
			return nil, err
		}
		trial := collected
		trial.Merge(*sub)
		if !trial.Complete() {
			return nil, model.NewValidationError("identity submission did not produce a complete, valid application")
		}
		return sub, nil

	default:
		return nil, model.NewValidationError("coordinator: no step expected a value")
	}
}

func parseMoney(msg string) (float64, error) {
	cleaned := strings.TrimSpace(msg)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, model.NewValidationError("%q is not a recognizable dollar amount", msg)
	}
	if v <= 0 {
		return 0, model.NewValidationError("amount %v must be positive", v)
	}
	return v, nil
}

func parsePercent(msg string) (float64, error) {
	cleaned := strings.TrimSpace(msg)
	cleaned = strings.TrimSuffix(cleaned, "%")
	cleaned = strings.TrimSpace(cleaned)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, model.NewValidationError("%q is not a recognizable percentage", msg)
	}
	return v, nil
}

// identitySubmission mirrors the step-4 wire shape:
// `{"name":...,"email":...,"idLast4":...}`, submitted as a single JSON
// object rather than free text since the client renders an inline form.
type identitySubmission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	IDLast4 string `json:"idLast4"`
}

func parseIdentitySubmission(msg string) (*model.PartialLoanApplication, error) {
	var sub identitySubmission
	if err := json.Unmarshal([]byte(strings.TrimSpace(msg)), &sub); err != nil {
		return nil, model.NewValidationError("identity submission must be a JSON object with name, email, idLast4: %v", err)
	}
	if sub.Name == "" || sub.Email == "" || sub.IDLast4 == "" {
		return nil, model.NewValidationError("identity submission is missing name, email, or idLast4")
	}
	return &model.PartialLoanApplication{Name: &sub.Name, Email: &sub.Email, IDLast4: &sub.IDLast4}, nil
}
