package model

import (
	"encoding/json"
	"math"
	"regexp"
)

const DefaultLoanTermMonths = 360

// indicativeAnnualRate is the fixed rate the income assessor uses to
// estimate a monthly payment when no market rate is available.
const indicativeAnnualRate = 0.07

var emailPattern = regexp.MustCompile(`^[^\s@"]+@[^\s@]+\.[^\s@]+$`)
var idLast4Pattern = regexp.MustCompile(`^[0-9]{4}$`)

func validateEmail(s string) error {
	if !emailPattern.MatchString(s) {
		return NewValidationError("email %q is not a valid address", s)
	}
	return nil
}

func validateIDLast4(s string) error {
	if !idLast4Pattern.MatchString(s) {
		return NewValidationError("id-last-4 must be exactly four decimal digits, got %q", s)
	}
	return nil
}

func validatePositive(name string, v float64) error {
	if v <= 0 {
		return NewValidationError("%s must be positive, got %v", name, v)
	}
	return nil
}

func validateNonNegative(name string, v float64) error {
	if v < 0 {
		return NewValidationError("%s must be non-negative, got %v", name, v)
	}
	return nil
}

// PartialLoanApplication is the collected-data mapping the coordinator
// assembles turn by turn. Every field is optional; presence is tracked by
// nil-ness rather than zero values so an explicit "0" down payment is
// distinguishable from "not yet collected".
type PartialLoanApplication struct {
	Name           *string
	Email          *string
	IDLast4        *string
	LoanAmount     *float64
	DownPayment    *float64
	AnnualIncome   *float64
	LoanPurpose    *LoanPurpose
	LoanTermMonths *int

	// FinalRecommendation is folded in by the orchestrator after a
	// same-turn pipeline run completes, so a client reading only the final
	// collected_data object still sees the outcome.
	// It is never set during collection and plays no part in completeness.
	FinalRecommendation *Recommendation
}

// Merge folds update into p: a non-nil field in update replaces p's value; a
// nil field in update leaves p unchanged. A present field is never
// overwritten with null.
func (p *PartialLoanApplication) Merge(update PartialLoanApplication) {
	if update.Name != nil {
		p.Name = update.Name
	}
	if update.Email != nil {
		p.Email = update.Email
	}
	if update.IDLast4 != nil {
		p.IDLast4 = update.IDLast4
	}
	if update.LoanAmount != nil {
		p.LoanAmount = update.LoanAmount
	}
	if update.DownPayment != nil {
		p.DownPayment = update.DownPayment
	}
	if update.AnnualIncome != nil {
		p.AnnualIncome = update.AnnualIncome
	}
	if update.LoanPurpose != nil {
		p.LoanPurpose = update.LoanPurpose
	}
	if update.LoanTermMonths != nil {
		p.LoanTermMonths = update.LoanTermMonths
	}
	if update.FinalRecommendation != nil {
		p.FinalRecommendation = update.FinalRecommendation
	}
}

// requiredPresent reports whether all six required fields have been set.
func (p *PartialLoanApplication) requiredPresent() bool {
	return p.Name != nil && p.Email != nil && p.IDLast4 != nil &&
		p.LoanAmount != nil && p.DownPayment != nil && p.AnnualIncome != nil
}

// validate checks every present field's invariant, independent of whether
// all required fields are present yet.
func (p *PartialLoanApplication) validate() error {
	if p.Email != nil {
		if err := validateEmail(*p.Email); err != nil {
			return err
		}
	}
	if p.IDLast4 != nil {
		if err := validateIDLast4(*p.IDLast4); err != nil {
			return err
		}
	}
	if p.LoanAmount != nil {
		if err := validatePositive("loan amount", *p.LoanAmount); err != nil {
			return err
		}
	}
	if p.DownPayment != nil {
		if err := validateNonNegative("down payment", *p.DownPayment); err != nil {
			return err
		}
	}
	if p.AnnualIncome != nil {
		if err := validatePositive("annual income", *p.AnnualIncome); err != nil {
			return err
		}
	}
	if p.LoanAmount != nil && p.DownPayment != nil && *p.DownPayment >= *p.LoanAmount {
		return NewValidationError("down payment %v must be less than loan amount %v", *p.DownPayment, *p.LoanAmount)
	}
	if p.LoanPurpose != nil && !p.LoanPurpose.Valid() {
		return NewValidationError("loan purpose %q is not recognized", string(*p.LoanPurpose))
	}
	return nil
}

// Complete reports whether all required fields are present and valid.
func (p *PartialLoanApplication) Complete() bool {
	return p.requiredPresent() && p.validate() == nil
}

// CompletionFraction maps the intake script's four steps onto the
// five-value completion ladder {0, 25, 50, 75, 100}: 25 points each for
// the loan amount, down payment, and income steps, and 25 for the identity
// trio collected as a single submission. It does not validate field
// contents, only presence.
func (p *PartialLoanApplication) CompletionFraction() int {
	pct := 0
	if p.LoanAmount != nil {
		pct += 25
	}
	if p.DownPayment != nil {
		pct += 25
	}
	if p.AnnualIncome != nil {
		pct += 25
	}
	if p.Name != nil && p.Email != nil && p.IDLast4 != nil {
		pct += 25
	}
	return pct
}

// ToApplication finalizes a complete partial application, applying defaults
// for loan purpose and term, and attaching the server-assigned identifiers.
func (p *PartialLoanApplication) ToApplication(applicationID, applicantID string) (*LoanApplication, error) {
	if !p.requiredPresent() {
		return nil, NewValidationError("application is missing required fields")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	purpose := PurposeHomePurchase
	if p.LoanPurpose != nil {
		purpose = *p.LoanPurpose
	}
	term := DefaultLoanTermMonths
	if p.LoanTermMonths != nil {
		term = *p.LoanTermMonths
	}
	return &LoanApplication{
		ApplicationID:  applicationID,
		ApplicantID:    applicantID,
		Name:           *p.Name,
		Email:          *p.Email,
		IDLast4:        *p.IDLast4,
		LoanAmount:     *p.LoanAmount,
		DownPayment:    *p.DownPayment,
		AnnualIncome:   *p.AnnualIncome,
		LoanPurpose:    purpose,
		LoanTermMonths: term,
	}, nil
}

// partialLoanApplicationWire mirrors PartialLoanApplication with only the
// fields actually present, so (un)marshaling produces the sparse mapping
// shape rather than a fixed-shape struct with nulls.
type partialLoanApplicationWire struct {
	Name           *string      `json:"name,omitempty"`
	Email          *string      `json:"email,omitempty"`
	IDLast4        *string      `json:"id_last_4,omitempty"`
	LoanAmount     *float64     `json:"loan_amount,omitempty"`
	DownPayment    *float64     `json:"down_payment,omitempty"`
	AnnualIncome   *float64     `json:"annual_income,omitempty"`
	LoanPurpose    *LoanPurpose `json:"loan_purpose,omitempty"`
	LoanTermMonths *int         `json:"loan_term_months,omitempty"`

	FinalRecommendation *Recommendation `json:"final_recommendation,omitempty"`
}

func (p PartialLoanApplication) MarshalJSON() ([]byte, error) {
	return json.Marshal(partialLoanApplicationWire{
		Name: p.Name, Email: p.Email, IDLast4: p.IDLast4,
		LoanAmount: p.LoanAmount, DownPayment: p.DownPayment, AnnualIncome: p.AnnualIncome,
		LoanPurpose: p.LoanPurpose, LoanTermMonths: p.LoanTermMonths,
		FinalRecommendation: p.FinalRecommendation,
	})
}

func (p *PartialLoanApplication) UnmarshalJSON(raw []byte) error {
	var w partialLoanApplicationWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return err
	}
	*p = PartialLoanApplication{
		Name: w.Name, Email: w.Email, IDLast4: w.IDLast4,
		LoanAmount: w.LoanAmount, DownPayment: w.DownPayment, AnnualIncome: w.AnnualIncome,
		LoanPurpose: w.LoanPurpose, LoanTermMonths: w.LoanTermMonths,
		FinalRecommendation: w.FinalRecommendation,
	}
	return nil
}

// LoanApplication is the canonical finalized shape, only reachable once a
// PartialLoanApplication is Complete. ApplicationID and ApplicantID are
// assigned by the orchestrator at the moment of finalization.
type LoanApplication struct {
	ApplicationID string
	ApplicantID   string

	Name           string
	Email          string
	IDLast4        string
	LoanAmount     float64
	DownPayment    float64
	AnnualIncome   float64
	LoanPurpose    LoanPurpose
	LoanTermMonths int
}

// DownPaymentPercent is the derived down-payment percentage (0-100).
func (a *LoanApplication) DownPaymentPercent() float64 {
	if a.LoanAmount == 0 {
		return 0
	}
	return a.DownPayment / a.LoanAmount * 100
}

// IncomeToLoanRatio is annual income divided by loan amount, the ratio the
// credit and risk decision tables key off of.
func (a *LoanApplication) IncomeToLoanRatio() float64 {
	if a.LoanAmount == 0 {
		return 0
	}
	return a.AnnualIncome / a.LoanAmount
}

// LoanToIncomeRatio is the reciprocal of IncomeToLoanRatio.
func (a *LoanApplication) LoanToIncomeRatio() float64 {
	if a.AnnualIncome == 0 {
		return 0
	}
	return a.LoanAmount / a.AnnualIncome
}

// EstimatedMonthlyPayment computes a standard fixed-rate amortized payment
// for the principal (loan amount minus down payment) at annualRate over
// termMonths.
func (a *LoanApplication) EstimatedMonthlyPayment(annualRate float64, termMonths int) float64 {
	principal := a.LoanAmount - a.DownPayment
	if termMonths <= 0 {
		return 0
	}
	monthlyRate := annualRate / 12
	if monthlyRate == 0 {
		return principal / float64(termMonths)
	}
	factor := math.Pow(1+monthlyRate, float64(termMonths))
	return principal * monthlyRate * factor / (factor - 1)
}

// DefaultEstimatedMonthlyPayment applies the income assessor's fixed
// indicative 7% annual rate over the application's term (falling back to
// the 360-month default).
func (a *LoanApplication) DefaultEstimatedMonthlyPayment() float64 {
	term := a.LoanTermMonths
	if term <= 0 {
		term = DefaultLoanTermMonths
	}
	return a.EstimatedMonthlyPayment(indicativeAnnualRate, term)
}
