package agent

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/loanintake/intake-engine/internal/llm"
)

// fakeProvider is a scripted llm.LLMProvider for agent tests: it returns
// one emit_result tool call whose arguments are the next entry in
// responses, in order, unless failNext (an error) or noToolErr (a reply
// with no tool call) is set. It never makes a network call.
type fakeProvider struct {
	responses []json.RawMessage
	calls     int
	failNext  bool
	noToolErr bool
}

func (f *fakeProvider) CallLLM(ctx context.Context, messages []llm.Message) (llm.Message, error) {
	return llm.Message{}, errors.New("fakeProvider: CallLLM not used by agents")
}

func (f *fakeProvider) CallLLMWithTools(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (llm.Message, error) {
	if f.failNext {
		return llm.Message{}, errors.New("fake upstream failure")
	}
	if f.calls >= len(f.responses) {
		return llm.Message{}, errors.New("fakeProvider: no more scripted responses")
	}
	args := f.responses[f.calls]
	f.calls++
	if f.noToolErr {
		return llm.Message{Role: llm.RoleAssistant, Content: "no tool call"}, nil
	}
	return llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{
			{ID: "1", Name: "emit_result", Arguments: args},
		},
	}, nil
}

func (f *fakeProvider) Name() string { return "fake" }

// fakeTools is a scripted toolSession.
type fakeTools struct {
	result string
	err    error
	calls  int
}

func (f *fakeTools) CallTool(ctx context.Context, server, tool string, args map[string]any) (string, error) {
	f.calls++
	return f.result, f.err
}
