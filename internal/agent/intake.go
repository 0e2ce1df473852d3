package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/loanintake/intake-engine/internal/llm"
	"github.com/loanintake/intake-engine/internal/model"
	"github.com/loanintake/intake-engine/internal/persona"
)

// IntakeValidator is the first pipeline stage. It computes its
// RoutingTier deterministically from stated annual income and may
// cross-check basic parameters against the application_verification tool
// server. A tool error (outage, timeout, malformed result) is returned
// unchanged and fails the stage; a verification result containing
// "invalid" rejects the application with model.ValidationRejected.
type IntakeValidator struct {
	Persona  string
	Provider llm.LLMProvider
}

func NewIntakeValidator(persona string, provider llm.LLMProvider) *IntakeValidator {
	return &IntakeValidator{Persona: persona, Provider: provider}
}

// ToolServers names the MCP endpoints this stage may use, for the
// orchestrator to resolve and open before calling Run.
func (a *IntakeValidator) ToolServers() []string {
	return []string{persona.ApplicationVerification}
}

// Run validates app and assigns a routing tier. tools is nil when the
// endpoint could not be resolved or resolution was skipped; a non-nil tools
// session is always closed by the caller, never by Run.
func (a *IntakeValidator) Run(ctx context.Context, thread model.ConversationThread, app *model.LoanApplication, tools toolSession) (*model.SpecialistAssessment, error) {
	tier := model.RoutingTierFor(app.AnnualIncome)

	var toolNote string
	if tools != nil {
		result, err := tools.CallTool(ctx, persona.ApplicationVerification, "verify_application", map[string]any{
			"loan_amount":    app.LoanAmount,
			"annual_income":  app.AnnualIncome,
			"id_last_4":      app.IDLast4,
			"application_id": app.ApplicationID,
		})
		if err != nil {
			return nil, err
		}
		toolNote = result
		if strings.Contains(strings.ToLower(toolNote), "invalid") {
			return nil, model.NewValidationRejected(fmt.Sprintf("application_verification flagged the application invalid: %s", toolNote))
		}
	}

	var out factorsOutput
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: a.Persona + "\n\n" + factorsDescription},
		{Role: llm.RoleUser, Content: fmt.Sprintf(
			"Application: loan amount $%.2f, down payment $%.2f (%.1f%%), annual income $%.2f. Computed routing tier: %s. Verification note: %s",
			app.LoanAmount, app.DownPayment, app.DownPaymentPercent(), app.AnnualIncome, tier, toolNote)},
	}
	if err := callStructured(ctx, a.Provider, "intake", messages, factorsSchema, factorsDescription, &out); err != nil {
		return nil, err
	}

	assessment := &model.SpecialistAssessment{
		Stage:           model.PhaseValidating,
		Score:           1.0,
		Category:        string(model.ValidationComplete),
		Reasoning:       out.Reasoning,
		PositiveFactors: out.PositiveFactors,
		NegativeFactors: out.NegativeFactors,
		RoutingTier:     tier,
	}
	if toolNote != "" {
		assessment.Detail = map[string]any{"verification_note": toolNote}
	}
	if err := assessment.Validate(); err != nil {
		return nil, model.NewAgentSchemaError("intake", err)
	}
	return assessment, nil
}
