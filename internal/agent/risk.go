package agent

import (
	"context"
	"fmt"

	"github.com/loanintake/intake-engine/internal/llm"
	"github.com/loanintake/intake-engine/internal/model"
)

// manualReviewThreshold forces MANUAL_REVIEW regardless of how favorable
// the other figures look.
const manualReviewThreshold = 1_000_000

// indicativeRiskRate is the recommended rate attached to an approval or
// conditional approval; it mirrors the income assessor's indicative 7%
// annual rate since no real pricing engine is in scope.
const indicativeRiskRate = 0.07

// dataLimitationsNote is attached to every risk assessment unconditionally;
// the decision rests on stated, unverified income.
const dataLimitationsNote = "This assessment relies on stated, unverified income; no credit bureau pull or employment verification was performed."

// RiskDecider is the final pipeline stage. It must never penalize the
// application for any field outside the six required fields.
type RiskDecider struct {
	Persona  string
	Provider llm.LLMProvider
}

func NewRiskDecider(persona string, provider llm.LLMProvider) *RiskDecider {
	return &RiskDecider{Persona: persona, Provider: provider}
}

// decide applies the fixed decision table. annualPayment is the
// estimated monthly mortgage payment annualized (not the income assessor's
// full monthly-obligations total, which also carries other debts and
// property costs the table does not key off of).
func decide(app *model.LoanApplication, dti float64) model.Recommendation {
	if app.LoanAmount > manualReviewThreshold {
		return model.RecommendManualReview
	}

	annualPayment := app.DefaultEstimatedMonthlyPayment() * 12
	incomeToPayment := 0.0
	if annualPayment > 0 {
		incomeToPayment = app.AnnualIncome / annualPayment
	}
	downPct := app.DownPaymentPercent()

	switch {
	case incomeToPayment >= 3 && downPct >= 20 && dti <= 0.40:
		return model.RecommendApprove
	case incomeToPayment >= 2 && incomeToPayment < 3 && downPct >= 10 && downPct < 20 && dti > 0.40 && dti <= 0.45:
		return model.RecommendConditional
	case incomeToPayment < 2 && downPct < 10 && dti > 0.50:
		return model.RecommendDeny
	default:
		// The decision table doesn't cover every combination of
		// ratios; an application that falls between the named rows is
		// routed to manual review rather than guessed at.
		return model.RecommendManualReview
	}
}

func conditionsFor(rec model.Recommendation) []string {
	switch rec {
	case model.RecommendConditional:
		return []string{"Verify stated income with paystubs or tax returns", "Confirm source of down payment funds"}
	case model.RecommendManualReview:
		return []string{"Route to a human underwriter before any offer is issued"}
	default:
		return nil
	}
}

func approvedAmountFor(rec model.Recommendation, loanAmount float64) float64 {
	switch rec {
	case model.RecommendApprove, model.RecommendConditional:
		return loanAmount
	default:
		return 0
	}
}

func riskConfidence(rec model.Recommendation) float64 {
	switch rec {
	case model.RecommendApprove:
		return 0.85
	case model.RecommendConditional:
		return 0.6
	case model.RecommendDeny:
		return 0.8
	default:
		return 0.5
	}
}

func (a *RiskDecider) Run(ctx context.Context, thread model.ConversationThread, app *model.LoanApplication, prior map[model.Phase]*model.SpecialistAssessment) (*model.SpecialistAssessment, error) {
	income := prior[model.PhaseIncome]
	credit := prior[model.PhaseCredit]
	intake := prior[model.PhaseValidating]

	rec := decide(app, income.EstimatedDTI)

	var out factorsOutput
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: a.Persona + "\n\n" + factorsDescription + " Never list a missing optional field (anything outside loan amount, down payment, income, name, email, id-last-4) as a negative factor."},
		{Role: llm.RoleUser, Content: fmt.Sprintf(
			"Routing tier: %s. Credit band: %s. Estimated DTI: %.1f%%. Down payment: %.1f%%. Loan amount: $%.2f. Computed recommendation: %s.",
			intake.RoutingTier, credit.Category, income.EstimatedDTI*100, app.DownPaymentPercent(), app.LoanAmount, rec)},
	}
	if err := callStructured(ctx, a.Provider, "risk", messages, factorsSchema, factorsDescription, &out); err != nil {
		return nil, err
	}

	assessment := &model.SpecialistAssessment{
		Stage:                 model.PhaseDeciding,
		Score:                 riskConfidence(rec),
		Category:              string(rec),
		Reasoning:             out.Reasoning,
		PositiveFactors:       out.PositiveFactors,
		NegativeFactors:       out.NegativeFactors,
		Recommendation:        rec,
		ApprovedAmount:        approvedAmountFor(rec, app.LoanAmount),
		RecommendedRate:       indicativeRiskRate,
		RecommendedTermMonths: app.LoanTermMonths,
		Conditions:            conditionsFor(rec),
		DataLimitationsNote:   dataLimitationsNote,
	}
	if err := assessment.Validate(); err != nil {
		return nil, model.NewAgentSchemaError("risk", err)
	}
	return assessment, nil
}
