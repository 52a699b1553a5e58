// Package llm abstracts the model runtime behind a small interface so the
// pipeline can be tested with scripted fakes. The production implementation
// is Gemini; each pipeline stage is one Generate call, and the reasoning
// stage drives a tool session whose turns are either prose or a tool request.
package llm

import "context"

// ToolSpec declares a callable tool to the model. Params maps argument name
// to a short description; all arguments are strings.
type ToolSpec struct {
	Name        string
	Description string
	Params      map[string]string
}

// ToolCall is a model request to invoke a tool.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolResult feeds a tool's output (or error shape) back into the session.
type ToolResult struct {
	Name   string
	Output map[string]any
}

// Turn is a single model reply: prose text, or a tool call, never both.
type Turn struct {
	Text     string
	ToolCall *ToolCall
}

// IsToolCall reports whether the model asked for a tool this turn.
func (t Turn) IsToolCall() bool {
	return t.ToolCall != nil
}

// Model is the stage-call contract.
type Model interface {
	// Generate runs a single no-tools call with a role-scoped system
	// instruction.
	Generate(ctx context.Context, system, prompt string) (string, error)

	// StartToolSession opens a multi-turn session in which the model may
	// request tool calls.
	StartToolSession(ctx context.Context, system string, tools []ToolSpec) (ToolSession, error)
}

// ToolSession is one tool-enabled conversation.
type ToolSession interface {
	// Send delivers the user prompt and returns the model's first turn.
	Send(ctx context.Context, prompt string) (Turn, error)

	// Reply delivers a tool result and returns the model's next turn.
	Reply(ctx context.Context, result ToolResult) (Turn, error)
}
