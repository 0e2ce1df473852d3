package model

import (
	"bytes"
	"fmt"
)

// closedSet validates that raw unmarshals to one of values, returning a
// descriptive error otherwise. Every enum type in this file shares the
// pattern: unknown discriminants are rejected at the JSON boundary rather
// than silently accepted as a zero value.
func closedSet(typeName string, raw []byte, values ...string) (string, error) {
	var s string
	if err := unmarshalQuoted(raw, &s); err != nil {
		return "", fmt.Errorf("%s: %w", typeName, err)
	}
	for _, v := range values {
		if v == s {
			return s, nil
		}
	}
	return "", fmt.Errorf("%s: unknown value %q", typeName, s)
}

func unmarshalQuoted(raw []byte, out *string) error {
	b := bytes.TrimSpace(raw)
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("not a JSON string: %s", raw)
	}
	*out = string(b[1 : len(b)-1])
	return nil
}

// CoordinatorAction is the action signal a CoordinatorReply carries. The
// agent itself only ever emits the first three; completed and error are
// added by the orchestrator when it folds a same-turn pipeline run or a
// failure into the wire-level reply.
type CoordinatorAction string

const (
	ActionCollectInfo        CoordinatorAction = "collect_info"
	ActionReadyForProcessing CoordinatorAction = "ready_for_processing"
	ActionNeedClarification  CoordinatorAction = "need_clarification"
	ActionCompleted          CoordinatorAction = "completed"
	ActionError              CoordinatorAction = "error"
)

func (a CoordinatorAction) Valid() bool {
	switch a {
	case ActionCollectInfo, ActionReadyForProcessing, ActionNeedClarification, ActionCompleted, ActionError:
		return true
	}
	return false
}

func (a CoordinatorAction) MarshalJSON() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("CoordinatorAction: invalid value %q", string(a))
	}
	return []byte(`"` + string(a) + `"`), nil
}

func (a *CoordinatorAction) UnmarshalJSON(raw []byte) error {
	s, err := closedSet("CoordinatorAction", raw,
		string(ActionCollectInfo), string(ActionReadyForProcessing), string(ActionNeedClarification),
		string(ActionCompleted), string(ActionError))
	if err != nil {
		return err
	}
	*a = CoordinatorAction(s)
	return nil
}

// Phase is the PipelineEvent stage tag.
type Phase string

const (
	PhaseValidating Phase = "validating"
	PhaseCredit     Phase = "credit"
	PhaseIncome     Phase = "income"
	PhaseDeciding   Phase = "deciding"
	PhaseComplete   Phase = "complete"
	PhaseError      Phase = "error"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseValidating, PhaseCredit, PhaseIncome, PhaseDeciding, PhaseComplete, PhaseError:
		return true
	}
	return false
}

func (p Phase) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("Phase: invalid value %q", string(p))
	}
	return []byte(`"` + string(p) + `"`), nil
}

func (p *Phase) UnmarshalJSON(raw []byte) error {
	s, err := closedSet("Phase", raw,
		string(PhaseValidating), string(PhaseCredit), string(PhaseIncome),
		string(PhaseDeciding), string(PhaseComplete), string(PhaseError))
	if err != nil {
		return err
	}
	*p = Phase(s)
	return nil
}

// SessionStatus is the ConversationSession lifecycle tag.
type SessionStatus string

const (
	StatusCollecting SessionStatus = "collecting"
	StatusReady       SessionStatus = "ready"
	StatusProcessing SessionStatus = "processing"
	StatusCompleted  SessionStatus = "completed"
	StatusError      SessionStatus = "error"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case StatusCollecting, StatusReady, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

func (s SessionStatus) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("SessionStatus: invalid value %q", string(s))
	}
	return []byte(`"` + string(s) + `"`), nil
}

func (s *SessionStatus) UnmarshalJSON(raw []byte) error {
	v, err := closedSet("SessionStatus", raw,
		string(StatusCollecting), string(StatusReady), string(StatusProcessing),
		string(StatusCompleted), string(StatusError))
	if err != nil {
		return err
	}
	*s = SessionStatus(v)
	return nil
}

// LoanPurpose is the closed set of recognized purposes. Only HomePurchase is
// ever produced by the current coordinator script; Refinance and Investment
// exist so the model can carry a future intake path without a breaking
// change to the wire format.
type LoanPurpose string

const (
	PurposeHomePurchase LoanPurpose = "home_purchase"
	PurposeRefinance    LoanPurpose = "refinance"
	PurposeInvestment   LoanPurpose = "investment"
)

func (p LoanPurpose) Valid() bool {
	switch p {
	case PurposeHomePurchase, PurposeRefinance, PurposeInvestment:
		return true
	}
	return false
}

func (p LoanPurpose) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("LoanPurpose: invalid value %q", string(p))
	}
	return []byte(`"` + string(p) + `"`), nil
}

func (p *LoanPurpose) UnmarshalJSON(raw []byte) error {
	v, err := closedSet("LoanPurpose", raw,
		string(PurposeHomePurchase), string(PurposeRefinance), string(PurposeInvestment))
	if err != nil {
		return err
	}
	*p = LoanPurpose(v)
	return nil
}

// ValidationStatus is the intake validator's category label.
type ValidationStatus string

const (
	ValidationComplete   ValidationStatus = "COMPLETE"
	ValidationIncomplete ValidationStatus = "INCOMPLETE"
	ValidationInvalid    ValidationStatus = "INVALID"
)

func (v ValidationStatus) Valid() bool {
	switch v {
	case ValidationComplete, ValidationIncomplete, ValidationInvalid:
		return true
	}
	return false
}

// RoutingTier is the intake validator's routing decision.
type RoutingTier string

const (
	TierFastTrack RoutingTier = "FAST_TRACK"
	TierStandard  RoutingTier = "STANDARD"
	TierEnhanced  RoutingTier = "ENHANCED"
)

// RoutingTierFor maps stated annual income to a routing tier.
func RoutingTierFor(annualIncome float64) RoutingTier {
	switch {
	case annualIncome > 150000:
		return TierFastTrack
	case annualIncome >= 75000:
		return TierStandard
	default:
		return TierEnhanced
	}
}

// CreditBand is the credit estimator's category label, carrying both the
// human label and the indicative numeric range it stands for.
type CreditBand string

const (
	BandVeryGood     CreditBand = "VERY_GOOD"
	BandGood         CreditBand = "GOOD"
	BandFair         CreditBand = "FAIR"
	BandBelowAverage CreditBand = "BELOW_AVERAGE"
)

// Range returns the indicative low/high score bounds for the band.
func (b CreditBand) Range() (low, high int) {
	switch b {
	case BandVeryGood:
		return 740, 780
	case BandGood:
		return 680, 740
	case BandFair:
		return 620, 680
	default:
		return 580, 620
	}
}

// CreditBandFor applies the income-to-loan-ratio / down-payment-percent
// table. incomeToLoan is annualIncome/loanAmount; downPaymentPct
// is 0-100.
func CreditBandFor(incomeToLoan, downPaymentPct float64) CreditBand {
	switch {
	case incomeToLoan >= 4 && downPaymentPct >= 25:
		return BandVeryGood
	case incomeToLoan >= 3 && downPaymentPct >= 20:
		return BandGood
	case incomeToLoan >= 2 && downPaymentPct >= 15:
		return BandFair
	default:
		return BandBelowAverage
	}
}

// DTIClass is the income assessor's classification of estimated DTI.
type DTIClass string

const (
	DTILow      DTIClass = "LOW"
	DTIModerate DTIClass = "MODERATE"
	DTIHigher   DTIClass = "HIGHER"
	DTIHigh     DTIClass = "HIGH"
)

// DTIClassFor classifies a DTI ratio expressed as a fraction (0.30 = 30%).
func DTIClassFor(dti float64) DTIClass {
	switch {
	case dti <= 0.30:
		return DTILow
	case dti <= 0.40:
		return DTIModerate
	case dti <= 0.50:
		return DTIHigher
	default:
		return DTIHigh
	}
}

// Recommendation is the risk decider's closed-set final output.
type Recommendation string

const (
	RecommendApprove      Recommendation = "APPROVE"
	RecommendConditional  Recommendation = "CONDITIONAL_APPROVAL"
	RecommendDeny         Recommendation = "DENY"
	RecommendManualReview Recommendation = "MANUAL_REVIEW"
)

func (r Recommendation) Valid() bool {
	switch r {
	case RecommendApprove, RecommendConditional, RecommendDeny, RecommendManualReview:
		return true
	}
	return false
}

func (r Recommendation) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("Recommendation: invalid value %q", string(r))
	}
	return []byte(`"` + string(r) + `"`), nil
}

func (r *Recommendation) UnmarshalJSON(raw []byte) error {
	v, err := closedSet("Recommendation", raw,
		string(RecommendApprove), string(RecommendConditional), string(RecommendDeny), string(RecommendManualReview))
	if err != nil {
		return err
	}
	*r = Recommendation(v)
	return nil
}
