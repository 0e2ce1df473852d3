// Package llm defines the provider-agnostic chat/function-calling interface
// every agent talks to. internal/llm/openai supplies the only implementation
// currently wired, but agents depend only on this package.
package llm

import (
	"context"
	"encoding/json"
)

// Role constants for Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one chat turn, in either direction.
type Message struct {
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	ToolCallID string          `json:"tool_call_id,omitempty"` // set on role=tool messages
	Name       string          `json:"name,omitempty"`         // tool name, paired with ToolCallID
	ToolCalls  []ToolCall      `json:"tool_calls,omitempty"`   // set on role=assistant messages that invoke tools
}

// ToolDefinition is one function the model may call, expressed as a JSON
// Schema for its parameters object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ToolCall is one invocation the model requested.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// LLMProvider is the interface every agent calls through. Any
// OpenAI-compatible endpoint (Azure AI Foundry, litellm, vLLM, Ollama, ...)
// can implement it.
type LLMProvider interface {
	// CallLLM sends messages and returns the complete response.
	CallLLM(ctx context.Context, messages []Message) (Message, error)

	// CallLLMWithTools sends messages offering the given tool definitions.
	// The returned Message carries ToolCalls when the model invoked one.
	CallLLMWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (Message, error)

	// Name identifies the provider, for logging.
	Name() string
}
