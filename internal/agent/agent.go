// Package agent implements the five LLM-backed agents: the
// coordinator, which drives a deterministic four-step intake script, and
// four specialist assessors (intake validator, credit estimator, income
// assessor, risk decider). Authoritative numeric and classification output
// is always computed in Go from fixed decision tables; the model
// supplies only prose (reasoning text, factor lists, the user-facing
// message), extracted through a single emit_result function call per run.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/loanintake/intake-engine/internal/llm"
	"github.com/loanintake/intake-engine/internal/model"
)

// emitResultName is the single synthetic function every agent call offers
// the model. The model is instructed, in its system prompt, to always call
// it; its JSON Schema parameters are the agent's response shape for that
// call. There is no silent-empty-fallback path: a call that returns no tool
// invocation, or one whose arguments fail to unmarshal, is always a
// model.AgentSchemaError.
const emitResultName = "emit_result"

func emitResultTool(description string, schema json.RawMessage) llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        emitResultName,
		Description: description,
		Parameters:  schema,
	}
}

// callStructured issues one CallLLMWithTools call offering only
// emitResultTool and unmarshals the model's arguments into out. No tool
// choice is set on the request; a reply without the call is an error.
func callStructured(ctx context.Context, provider llm.LLMProvider, stage string, messages []llm.Message, schema json.RawMessage, description string, out any) error {
	resp, err := provider.CallLLMWithTools(ctx, messages, []llm.ToolDefinition{emitResultTool(description, schema)})
	if err != nil {
		return model.NewAgentSchemaError(stage, fmt.Errorf("llm call: %w", err))
	}
	if len(resp.ToolCalls) == 0 {
		return model.NewAgentSchemaError(stage, fmt.Errorf("model did not call %s", emitResultName))
	}
	if err := json.Unmarshal(resp.ToolCalls[0].Arguments, out); err != nil {
		return model.NewAgentSchemaError(stage, fmt.Errorf("unmarshal %s arguments: %w", emitResultName, err))
	}
	return nil
}

// factorsOutput is the narrative shape every specialist asks the model for:
// reasoning text plus positive/negative factor lists. The authoritative
// category, score, and stage-specific extension fields are always filled in
// by the caller from the deterministic tables, never from this struct.
type factorsOutput struct {
	Reasoning       string   `json:"reasoning"`
	PositiveFactors []string `json:"positive_factors"`
	NegativeFactors []string `json:"negative_factors"`
}

var factorsSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "reasoning": {"type": "string", "description": "free-text explanation of the assessment, in the persona's voice"},
    "positive_factors": {"type": "array", "items": {"type": "string"}},
    "negative_factors": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["reasoning", "positive_factors", "negative_factors"]
}`)

const factorsDescription = "Record the reasoning and supporting factors for this stage's assessment."

// toolSession is the subset of toolhub.Session specialists call through.
// Defined here, rather than importing toolhub directly, so agent package
// tests can supply a fake without depending on the MCP wire protocol.
type toolSession interface {
	CallTool(ctx context.Context, server, tool string, args map[string]any) (string, error)
}
