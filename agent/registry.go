package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/martinemde/nanoagent/llm"
	"github.com/martinemde/nanoagent/sandbox"
)

// ErrorKind classifies a tool failure.
type ErrorKind string

const (
	// ErrUserInput marks malformed or undecodable tool arguments.
	ErrUserInput ErrorKind = "user_input"
	// ErrPrecondition marks a missing file or an absent/ambiguous search.
	ErrPrecondition ErrorKind = "precondition"
	// ErrTimeout marks a command that exceeded its deadline.
	ErrTimeout ErrorKind = "timeout"
)

// ToolError is a recoverable tool failure. It is surfaced to the model as
// the tool result text so the conversation can adapt; it never ends a run.
type ToolError struct {
	Kind    ErrorKind
	Message string
}

func (e *ToolError) Error() string { return e.Message }

// ToolOutcome is the structured result of one tool dispatch.
type ToolOutcome struct {
	Text string
	Err  *ToolError
}

// Render flattens the outcome to the text written into the conversation.
// Failures keep their literal messages; the convention is the message
// itself, not a wrapper.
func (o ToolOutcome) Render() string {
	if o.Err != nil {
		return o.Err.Message
	}
	return o.Text
}

// IsError reports whether the outcome carries a failure.
func (o ToolOutcome) IsError() bool { return o.Err != nil }

func ok(format string, args ...interface{}) ToolOutcome {
	return ToolOutcome{Text: fmt.Sprintf(format, args...)}
}

func fail(kind ErrorKind, format string, args ...interface{}) ToolOutcome {
	return ToolOutcome{Err: &ToolError{Kind: kind, Message: fmt.Sprintf(format, args...)}}
}

// Tool is one member of the closed tool set. Each variant validates its own
// typed arguments and runs against the sandbox.
type Tool interface {
	// Definition returns the schema handed to the model. It must match the
	// arguments Execute accepts exactly.
	Definition() llm.Tool

	// Execute runs the tool. Precondition failures and timeouts come back
	// inside the outcome, never as panics or run-fatal errors.
	Execute(ctx context.Context, args json.RawMessage, sb sandbox.Sandbox) ToolOutcome
}

// Registry holds the ordered tool set for a run.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry creates a registry with the given tools, preserving order.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) {
	name := t.Definition().Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Definitions returns the tool schemas in registration order.
func (r *Registry) Definitions() []llm.Tool {
	defs := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Names returns the registered tool names in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Dispatch routes one tool call by exact name. Unknown names and
// undecodable arguments produce text results so the conversation continues.
func (r *Registry) Dispatch(ctx context.Context, call llm.ToolCall, sb sandbox.Sandbox) ToolOutcome {
	tool, found := r.tools[call.Name]
	if !found {
		return fail(ErrUserInput, "Unknown tool: %s", call.Name)
	}

	args := call.Arguments
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if !json.Valid(args) {
		return fail(ErrUserInput, "Invalid JSON arguments")
	}
	return tool.Execute(ctx, args, sb)
}
