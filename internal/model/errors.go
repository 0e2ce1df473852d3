// Package model defines the typed records exchanged between the coordinator,
// the pipeline, the specialist agents, and HTTP callers. It performs no I/O:
// every type validates itself at construction and carries no behavior beyond
// validation and the derived-quantity calculations that belong with it.
package model

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of error categories surfaced by the core
// engine. Callers branch on it with KindOf. The orchestrator turns agent,
// tool, and schema failures into error-shaped replies and pipeline events
// rather than returning them; internal/web does not map kinds to HTTP
// statuses.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation_error"
	KindMissingPersona    ErrorKind = "missing_persona"
	KindMissingToolConfig ErrorKind = "missing_tool_config"
	KindToolUnavailable   ErrorKind = "tool_unavailable"
	KindToolTimeout       ErrorKind = "tool_timeout"
	KindToolProtocolError ErrorKind = "tool_protocol_error"
	KindAgentSchemaError  ErrorKind = "agent_schema_error"
	KindValidationRejected ErrorKind = "validation_rejected"
	KindSessionNotFound   ErrorKind = "session_not_found"
	KindCancelled         ErrorKind = "cancelled"
)

// Error is the engine's single error type. Kind drives propagation policy;
// Stage and Tool are populated when the error originated inside a pipeline
// stage or a tool call, so callers can name the failing component without
// parsing the message text.
type Error struct {
	Kind  ErrorKind
	Stage string // non-empty for pipeline-stage errors ("intake", "credit", "income", "risk")
	Tool  string // non-empty for tool-layer errors
	Msg   string
	Err   error // wrapped cause, if any
}

func (e *Error) Error() string {
	switch {
	case e.Tool != "" && e.Stage != "":
		return fmt.Sprintf("%s: stage %s, tool %s: %s", e.Kind, e.Stage, e.Tool, e.Msg)
	case e.Tool != "":
		return fmt.Sprintf("%s: tool %s: %s", e.Kind, e.Tool, e.Msg)
	case e.Stage != "":
		return fmt.Sprintf("%s: stage %s: %s", e.Kind, e.Stage, e.Msg)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is(err, &model.Error{Kind: ...}) style matching on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	return true
}

func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NewMissingPersona(key string) *Error {
	return &Error{Kind: KindMissingPersona, Msg: fmt.Sprintf("persona %q not found", key)}
}

func NewMissingToolConfig(name string) *Error {
	return &Error{Kind: KindMissingToolConfig, Msg: fmt.Sprintf("tool endpoint %q not configured", name)}
}

func NewToolUnavailable(tool string, err error) *Error {
	return &Error{Kind: KindToolUnavailable, Tool: tool, Msg: "connect failed or dropped", Err: err}
}

func NewToolTimeout(tool string) *Error {
	return &Error{Kind: KindToolTimeout, Tool: tool, Msg: "call deadline exceeded"}
}

func NewToolProtocolError(tool string, err error) *Error {
	return &Error{Kind: KindToolProtocolError, Tool: tool, Msg: "malformed response", Err: err}
}

func NewAgentSchemaError(stage string, err error) *Error {
	return &Error{Kind: KindAgentSchemaError, Stage: stage, Msg: "response failed schema validation", Err: err}
}

// NewValidationRejected reports that the intake validator rejected the
// application because the verification tool flagged it invalid (surfaced
// as an error PipelineEvent, same path as a tool or schema failure).
func NewValidationRejected(reason string) *Error {
	return &Error{Kind: KindValidationRejected, Stage: "intake", Msg: reason}
}

func NewSessionNotFound(id string) *Error {
	return &Error{Kind: KindSessionNotFound, Msg: fmt.Sprintf("session %q not found", id)}
}

func NewCancelled(stage string) *Error {
	return &Error{Kind: KindCancelled, Stage: stage, Msg: "cancelled"}
}

// KindOf extracts the ErrorKind from err if it (or something it wraps) is a
// *model.Error. The zero value and false are returned otherwise.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
