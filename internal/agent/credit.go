package agent

import (
	"context"
	"fmt"

	"github.com/loanintake/intake-engine/internal/llm"
	"github.com/loanintake/intake-engine/internal/model"
	"github.com/loanintake/intake-engine/internal/persona"
)

// CreditEstimator is the second pipeline stage. No external
// credit bureau is consulted; it estimates a band from the income-to-loan
// ratio and down-payment percentage table, optionally cross-checking DTI via
// financial_calculations.
type CreditEstimator struct {
	Persona  string
	Provider llm.LLMProvider
}

func NewCreditEstimator(persona string, provider llm.LLMProvider) *CreditEstimator {
	return &CreditEstimator{Persona: persona, Provider: provider}
}

func (a *CreditEstimator) ToolServers() []string {
	return []string{persona.FinancialCalculations}
}

// bandConfidence maps a credit band to the assessment's confidence score;
// bands estimated from a wider, more favorable combination of ratios carry
// higher confidence that the band is not an underestimate.
func bandConfidence(band model.CreditBand) float64 {
	switch band {
	case model.BandVeryGood:
		return 0.9
	case model.BandGood:
		return 0.75
	case model.BandFair:
		return 0.6
	default:
		return 0.4
	}
}

func (a *CreditEstimator) Run(ctx context.Context, thread model.ConversationThread, app *model.LoanApplication, intake *model.SpecialistAssessment, tools toolSession) (*model.SpecialistAssessment, error) {
	incomeToLoan := app.IncomeToLoanRatio()
	downPct := app.DownPaymentPercent()
	band := model.CreditBandFor(incomeToLoan, downPct)
	low, high := band.Range()

	var dtiNote string
	if tools != nil {
		result, err := tools.CallTool(ctx, persona.FinancialCalculations, "estimate_dti", map[string]any{
			"loan_amount":   app.LoanAmount,
			"down_payment":  app.DownPayment,
			"annual_income": app.AnnualIncome,
			"term_months":   app.LoanTermMonths,
		})
		if err != nil {
			return nil, err
		}
		dtiNote = result
	}

	var out factorsOutput
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: a.Persona + "\n\n" + factorsDescription},
		{Role: llm.RoleUser, Content: fmt.Sprintf(
			"Income-to-loan ratio: %.2fx. Down payment: %.1f%%. Estimated band: %s (%d-%d). Routing tier from intake: %s. DTI cross-check: %s",
			incomeToLoan, downPct, band, low, high, intake.RoutingTier, dtiNote)},
	}
	if err := callStructured(ctx, a.Provider, "credit", messages, factorsSchema, factorsDescription, &out); err != nil {
		return nil, err
	}

	assessment := &model.SpecialistAssessment{
		Stage:              model.PhaseCredit,
		Score:              bandConfidence(band),
		Category:           string(band),
		Reasoning:          out.Reasoning,
		PositiveFactors:    out.PositiveFactors,
		NegativeFactors:    out.NegativeFactors,
		EstimatedScoreLow:  low,
		EstimatedScoreHigh: high,
		EstimationMethod:   "income-to-loan ratio and down-payment percentage table; no bureau pull",
		Detail: map[string]any{
			"income_to_loan_ratio": incomeToLoan,
			"down_payment_percent": downPct,
		},
	}
	if dtiNote != "" {
		assessment.Detail["dti_cross_check"] = dtiNote
	}
	if err := assessment.Validate(); err != nil {
		return nil, model.NewAgentSchemaError("credit", err)
	}
	return assessment, nil
}
