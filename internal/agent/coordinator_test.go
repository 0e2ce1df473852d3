package agent

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/loanintake/intake-engine/internal/model"
)

func threadWith(userMsg string) model.ConversationThread {
	var t model.ConversationThread
	t.Append(model.RoleUser, userMsg, time.Now())
	return t
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestCoordinatorStep1CollectsLoanAmount(t *testing.T) {
	provider := &fakeProvider{responses: []json.RawMessage{
		mustJSON(t, coordinatorModelOutput{OnTopic: true, Message: "Got it, $300,000."}),
	}}
	a := NewCoordinatorAgent("persona text", provider)

	reply, err := a.Run(context.Background(), threadWith("300000"), model.PartialLoanApplication{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reply.Action != model.ActionCollectInfo {
		t.Fatalf("action = %v, want collect_info", reply.Action)
	}
	if reply.CompletionPercentage != 25 {
		t.Fatalf("completion = %d, want 25", reply.CompletionPercentage)
	}
	if reply.CollectedData.LoanAmount == nil || *reply.CollectedData.LoanAmount != 300000 {
		t.Fatalf("loan amount not recorded: %+v", reply.CollectedData)
	}
	if len(reply.QuickReplies) != 5 {
		t.Fatalf("quick replies = %d, want 5", len(reply.QuickReplies))
	}
}

func TestCoordinatorOffTopicDoesNotAdvance(t *testing.T) {
	provider := &fakeProvider{responses: []json.RawMessage{
		mustJSON(t, coordinatorModelOutput{OnTopic: false, Message: "Let's focus on your loan amount."}),
	}}
	a := NewCoordinatorAgent("persona text", provider)

	reply, err := a.Run(context.Background(), threadWith("I want to buy jungle book"), model.PartialLoanApplication{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reply.Action != model.ActionNeedClarification {
		t.Fatalf("action = %v, want need_clarification", reply.Action)
	}
	if reply.CompletionPercentage != 0 {
		t.Fatalf("completion = %d, want 0", reply.CompletionPercentage)
	}
	if reply.CollectedData.LoanAmount != nil {
		t.Fatalf("collected data should stay empty, got %+v", reply.CollectedData)
	}
}

func TestCoordinatorInvalidInputNeedsClarificationWithoutMutation(t *testing.T) {
	provider := &fakeProvider{responses: []json.RawMessage{
		mustJSON(t, coordinatorModelOutput{OnTopic: true, Message: "That doesn't look like a dollar amount."}),
	}}
	a := NewCoordinatorAgent("persona text", provider)

	reply, err := a.Run(context.Background(), threadWith("a lot of money"), model.PartialLoanApplication{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reply.Action != model.ActionNeedClarification {
		t.Fatalf("action = %v, want need_clarification", reply.Action)
	}
	if reply.CollectedData.LoanAmount != nil {
		t.Fatalf("collected data should not mutate on invalid input")
	}
}

func TestCoordinatorStep4CompletesApplication(t *testing.T) {
	provider := &fakeProvider{responses: []json.RawMessage{
		mustJSON(t, coordinatorModelOutput{OnTopic: true, Message: "Thanks, starting your assessment now."}),
	}}
	a := NewCoordinatorAgent("persona text", provider)

	loanAmount := 500000.0
	downPayment := 100000.0
	income := 175000.0
	collected := model.PartialLoanApplication{
		LoanAmount:   &loanAmount,
		DownPayment:  &downPayment,
		AnnualIncome: &income,
	}
	submission := `{"name":"Tony Stark","email":"tony@stark.com","idLast4":"1234"}`
	reply, err := a.Run(context.Background(), threadWith(submission), collected)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reply.Action != model.ActionReadyForProcessing {
		t.Fatalf("action = %v, want ready_for_processing", reply.Action)
	}
	if reply.CompletionPercentage != 100 {
		t.Fatalf("completion = %d, want 100", reply.CompletionPercentage)
	}
	if !reply.CollectedData.Complete() {
		t.Fatalf("collected data should be complete: %+v", reply.CollectedData)
	}
	if len(reply.QuickReplies) != 0 {
		t.Fatalf("step 4 must not carry quick replies, got %d", len(reply.QuickReplies))
	}
}

func TestCoordinatorStep4MalformedJSONNeedsClarification(t *testing.T) {
	provider := &fakeProvider{responses: []json.RawMessage{
		mustJSON(t, coordinatorModelOutput{OnTopic: true, Message: "I couldn't read that submission."}),
	}}
	a := NewCoordinatorAgent("persona text", provider)

	loanAmount, downPayment, income := 500000.0, 100000.0, 175000.0
	collected := model.PartialLoanApplication{LoanAmount: &loanAmount, DownPayment: &downPayment, AnnualIncome: &income}

	reply, err := a.Run(context.Background(), threadWith("not json"), collected)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reply.Action != model.ActionNeedClarification {
		t.Fatalf("action = %v, want need_clarification", reply.Action)
	}
	if reply.CollectedData.Name != nil {
		t.Fatalf("name should not be recorded on malformed submission")
	}
}

func TestCoordinatorDownPaymentComputedFromPercent(t *testing.T) {
	provider := &fakeProvider{responses: []json.RawMessage{
		mustJSON(t, coordinatorModelOutput{OnTopic: true, Message: "20% down, got it."}),
	}}
	a := NewCoordinatorAgent("persona text", provider)

	loanAmount := 500000.0
	collected := model.PartialLoanApplication{LoanAmount: &loanAmount}
	reply, err := a.Run(context.Background(), threadWith("20"), collected)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reply.CollectedData.DownPayment == nil || *reply.CollectedData.DownPayment != 100000 {
		t.Fatalf("down payment = %+v, want 100000", reply.CollectedData.DownPayment)
	}
	if reply.CompletionPercentage != 50 {
		t.Fatalf("completion = %d, want 50", reply.CompletionPercentage)
	}
}

func TestCoordinatorRejectsCallWithNoEmitResult(t *testing.T) {
	provider := &fakeProvider{noToolErr: true, responses: []json.RawMessage{mustJSON(t, map[string]any{})}}
	a := NewCoordinatorAgent("persona text", provider)

	_, err := a.Run(context.Background(), threadWith("300000"), model.PartialLoanApplication{})
	if err == nil {
		t.Fatal("expected an error when the model does not call emit_result")
	}
	if kind, ok := model.KindOf(err); !ok || kind != model.KindAgentSchemaError {
		t.Fatalf("expected AgentSchemaError, got %v", err)
	}
}
