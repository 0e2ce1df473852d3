package agent

import (
	"context"
	"fmt"

	"github.com/loanintake/intake-engine/internal/llm"
	"github.com/loanintake/intake-engine/internal/model"
	"github.com/loanintake/intake-engine/internal/persona"
)

// otherDebtsFraction and propertyCostFraction are the indicative monthly
// estimates: other debts at 15% of monthly income,
// property costs at 0.125% of loan amount per month.
const (
	otherDebtsFraction   = 0.15
	propertyCostFraction = 0.00125
)

// IncomeAssessor is the third pipeline stage. It works from stated income
// alone — there is no employment or paystub verification in scope — and
// must say so explicitly in every assessment.
type IncomeAssessor struct {
	Persona  string
	Provider llm.LLMProvider
}

func NewIncomeAssessor(persona string, provider llm.LLMProvider) *IncomeAssessor {
	return &IncomeAssessor{Persona: persona, Provider: provider}
}

func (a *IncomeAssessor) ToolServers() []string {
	return []string{persona.FinancialCalculations}
}

func dtiConfidence(class model.DTIClass) float64 {
	switch class {
	case model.DTILow:
		return 0.85
	case model.DTIModerate:
		return 0.7
	case model.DTIHigher:
		return 0.5
	default:
		return 0.3
	}
}

func (a *IncomeAssessor) Run(ctx context.Context, thread model.ConversationThread, app *model.LoanApplication, prior map[model.Phase]*model.SpecialistAssessment, tools toolSession) (*model.SpecialistAssessment, error) {
	monthlyIncome := app.AnnualIncome / 12
	monthlyPayment := app.DefaultEstimatedMonthlyPayment()
	otherDebts := monthlyIncome * otherDebtsFraction
	propertyCosts := app.LoanAmount * propertyCostFraction
	totalObligations := monthlyPayment + otherDebts + propertyCosts
	dti := totalObligations / monthlyIncome
	class := model.DTIClassFor(dti)

	var paymentNote string
	if tools != nil {
		result, err := tools.CallTool(ctx, persona.FinancialCalculations, "amortize_payment", map[string]any{
			"principal":    app.LoanAmount - app.DownPayment,
			"term_months":  app.LoanTermMonths,
			"annual_rate":  0.07,
		})
		if err != nil {
			return nil, err
		}
		paymentNote = result
	}

	credit := prior[model.PhaseCredit]

	var out factorsOutput
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: a.Persona + "\n\n" + factorsDescription},
		{Role: llm.RoleUser, Content: fmt.Sprintf(
			"Stated annual income: $%.2f (unverified). Estimated monthly payment: $%.2f. Other debts: $%.2f. Property costs: $%.2f. Estimated DTI: %.1f%% (%s). Credit band: %s. Payment cross-check: %s",
			app.AnnualIncome, monthlyPayment, otherDebts, propertyCosts, dti*100, class, credit.Category, paymentNote)},
	}
	if err := callStructured(ctx, a.Provider, "income", messages, factorsSchema, factorsDescription, &out); err != nil {
		return nil, err
	}

	assessment := &model.SpecialistAssessment{
		Stage:           model.PhaseIncome,
		Score:           dtiConfidence(class),
		Category:        string(class),
		Reasoning:       out.Reasoning,
		PositiveFactors: out.PositiveFactors,
		NegativeFactors: out.NegativeFactors,
		EstimatedDTI:    dti,
		MonthlyObligations: &model.MonthlyObligations{
			EstimatedPayment: monthlyPayment,
			OtherDebts:       otherDebts,
			PropertyCosts:    propertyCosts,
		},
		Detail: map[string]any{
			"income_verification": "stated, unverified",
		},
	}
	if paymentNote != "" {
		assessment.Detail["payment_cross_check"] = paymentNote
	}
	if err := assessment.Validate(); err != nil {
		return nil, model.NewAgentSchemaError("income", err)
	}
	return assessment, nil
}
