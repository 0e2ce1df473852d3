package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/loanintake/intake-engine/internal/model"
)

func buildApplication(t *testing.T, loanAmount, downPayment, income float64) *model.LoanApplication {
	t.Helper()
	name, email, id := "Tony Stark", "tony@stark.com", "1234"
	p := model.PartialLoanApplication{
		Name: &name, Email: &email, IDLast4: &id,
		LoanAmount: &loanAmount, DownPayment: &downPayment, AnnualIncome: &income,
	}
	app, err := p.ToApplication("app-1", "applicant-1")
	if err != nil {
		t.Fatalf("ToApplication: %v", err)
	}
	return app
}

func TestIntakeValidatorAssignsRoutingTier(t *testing.T) {
	provider := &fakeProvider{responses: []json.RawMessage{
		mustJSON(t, factorsOutput{Reasoning: "looks fine", PositiveFactors: []string{"strong income"}}),
	}}
	a := NewIntakeValidator("persona", provider)
	app := buildApplication(t, 500000, 100000, 175000)

	assessment, err := a.Run(context.Background(), nil, app, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if assessment.RoutingTier != model.TierFastTrack {
		t.Fatalf("routing tier = %v, want FAST_TRACK", assessment.RoutingTier)
	}
	if assessment.Category != string(model.ValidationComplete) {
		t.Fatalf("category = %q, want COMPLETE", assessment.Category)
	}
}

func TestIntakeValidatorToolInvalidRejectsApplication(t *testing.T) {
	provider := &fakeProvider{responses: []json.RawMessage{mustJSON(t, factorsOutput{Reasoning: "x"})}}
	a := NewIntakeValidator("persona", provider)
	app := buildApplication(t, 500000, 100000, 175000)

	_, err := a.Run(context.Background(), nil, app, &fakeTools{result: "application flagged INVALID: mismatched identifier"})
	if err == nil {
		t.Fatal("expected a validation-rejected error")
	}
	if kind, ok := model.KindOf(err); !ok || kind != model.KindValidationRejected {
		t.Fatalf("expected ValidationRejected, got %v", err)
	}
}

func TestIntakeValidatorPropagatesToolFailure(t *testing.T) {
	provider := &fakeProvider{responses: []json.RawMessage{mustJSON(t, factorsOutput{Reasoning: "x"})}}
	a := NewIntakeValidator("persona", provider)
	app := buildApplication(t, 500000, 100000, 175000)

	toolErr := model.NewToolUnavailable("application_verification", nil)
	_, err := a.Run(context.Background(), nil, app, &fakeTools{err: toolErr})
	if err == nil {
		t.Fatal("expected tool error to propagate")
	}
}

func TestCreditEstimatorBandsByRatioTable(t *testing.T) {
	cases := []struct {
		name               string
		loan, down, income float64
		want               model.CreditBand
	}{
		{"very good", 100000, 30000, 500000, model.BandVeryGood},  // 5x income, 30% down
		{"good", 200000, 45000, 700000, model.BandGood},           // 3.5x, 22.5%
		{"fair", 300000, 50000, 750000, model.BandFair},           // 2.5x, 16.7%
		{"below average", 400000, 20000, 400000, model.BandBelowAverage}, // 1x, 5%
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &fakeProvider{responses: []json.RawMessage{mustJSON(t, factorsOutput{Reasoning: "x"})}}
			a := NewCreditEstimator("persona", provider)
			app := buildApplication(t, tc.loan, tc.down, tc.income)
			intake := &model.SpecialistAssessment{Stage: model.PhaseValidating, Category: string(model.ValidationComplete), RoutingTier: model.TierStandard}

			assessment, err := a.Run(context.Background(), nil, app, intake, nil)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if model.CreditBand(assessment.Category) != tc.want {
				t.Fatalf("band = %v, want %v", assessment.Category, tc.want)
			}
		})
	}
}

func TestIncomeAssessorClassifiesDTI(t *testing.T) {
	provider := &fakeProvider{responses: []json.RawMessage{mustJSON(t, factorsOutput{Reasoning: "x"})}}
	a := NewIncomeAssessor("persona", provider)
	app := buildApplication(t, 500000, 100000, 175000)
	prior := map[model.Phase]*model.SpecialistAssessment{
		model.PhaseCredit: {Stage: model.PhaseCredit, Category: string(model.BandGood)},
	}

	assessment, err := a.Run(context.Background(), nil, app, prior, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if assessment.MonthlyObligations == nil {
		t.Fatal("expected monthly obligations breakdown")
	}
	if model.DTIClass(assessment.Category) != model.DTIClassFor(assessment.EstimatedDTI) {
		t.Fatalf("category %q inconsistent with DTI %v", assessment.Category, assessment.EstimatedDTI)
	}
}

func TestRiskDeciderApprovesStrongApplication(t *testing.T) {
	provider := &fakeProvider{responses: []json.RawMessage{mustJSON(t, factorsOutput{Reasoning: "x"})}}
	a := NewRiskDecider("persona", provider)
	app := buildApplication(t, 500000, 100000, 175000)

	income := &model.SpecialistAssessment{Stage: model.PhaseIncome, EstimatedDTI: 0.35}
	credit := &model.SpecialistAssessment{Stage: model.PhaseCredit, Category: string(model.BandGood)}
	intake := &model.SpecialistAssessment{Stage: model.PhaseValidating, RoutingTier: model.TierFastTrack}
	prior := map[model.Phase]*model.SpecialistAssessment{
		model.PhaseIncome: income, model.PhaseCredit: credit, model.PhaseValidating: intake,
	}

	assessment, err := a.Run(context.Background(), nil, app, prior)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if assessment.Recommendation != model.RecommendApprove {
		t.Fatalf("recommendation = %v, want APPROVE", assessment.Recommendation)
	}
	if assessment.DataLimitationsNote == "" {
		t.Fatal("expected a data-limitations note")
	}
}

func TestRiskDeciderForcesManualReviewAboveThreshold(t *testing.T) {
	provider := &fakeProvider{responses: []json.RawMessage{mustJSON(t, factorsOutput{Reasoning: "x"})}}
	a := NewRiskDecider("persona", provider)
	app := buildApplication(t, 1500000, 300000, 200000)

	income := &model.SpecialistAssessment{Stage: model.PhaseIncome, EstimatedDTI: 0.2}
	credit := &model.SpecialistAssessment{Stage: model.PhaseCredit, Category: string(model.BandVeryGood)}
	intake := &model.SpecialistAssessment{Stage: model.PhaseValidating, RoutingTier: model.TierFastTrack}
	prior := map[model.Phase]*model.SpecialistAssessment{
		model.PhaseIncome: income, model.PhaseCredit: credit, model.PhaseValidating: intake,
	}

	assessment, err := a.Run(context.Background(), nil, app, prior)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if assessment.Recommendation != model.RecommendManualReview {
		t.Fatalf("recommendation = %v, want MANUAL_REVIEW", assessment.Recommendation)
	}
	if assessment.ApprovedAmount != 0 {
		t.Fatalf("manual review should not carry an approved amount yet, got %v", assessment.ApprovedAmount)
	}
}
