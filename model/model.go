// Package model defines the vendor-neutral language model boundary consumed
// by the agent loop, plus a scripted in-memory implementation for tests.
package model

import (
	"context"

	"github.com/schedbot/schedbot/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the
// model. Parameters is a minimal JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the assembled model input for one inference turn. The
// ordering of Contents is significant and preserved by adapters: history
// (chronological), current user message, then scratchpad pseudo-turns.
type Request struct {
	Instructions string           `json:"instructions"` // System prompt
	Contents     []core.Content   `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the complete model output for one turn. It is either a final
// answer (no function calls) or a set of tool invocation requests; ToolCalls
// and Text give the two arms of that variant.
type Response struct {
	ID           string       `json:"id"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// ToolCalls returns the structured tool invocation requests contained in the
// response, preserving model emission order. Empty means final answer.
func (r *Response) ToolCalls() []core.FunctionCall {
	return r.Content.FunctionCalls()
}

// Text returns the concatenated plain-text content of the response.
func (r *Response) Text() string { return r.Content.Text() }

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation. Generate
// blocks until the provider returns a complete response; callers bound
// latency through ctx.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// ScriptedModel is a lightweight in-memory Model that replays a fixed
// sequence of responses. Useful for agent loop tests and examples.
type ScriptedModel struct {
	info      Info
	responses []Response
	calls     int

	// Requests records every request received, in order, for assertions.
	Requests []Request
}

// NewScriptedModel constructs a ScriptedModel that will return the given
// responses one per Generate call.
func NewScriptedModel(responses ...Response) *ScriptedModel {
	return &ScriptedModel{
		info:      Info{Name: "scripted", Provider: "test", SupportsTools: true},
		responses: responses,
	}
}

// TextResponse builds a final-answer response containing only text.
func TextResponse(text string) Response {
	return Response{
		Content:      core.NewTextContent(core.RoleAssistant, text),
		FinishReason: "stop",
	}
}

// ToolCallResponse builds a response requesting the given tool invocations.
func ToolCallResponse(calls ...core.FunctionCall) Response {
	parts := make([]core.Part, 0, len(calls))
	for _, c := range calls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: c})
	}
	return Response{
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: "tool_calls",
	}
}

// Generate implements Model; it replays the scripted responses in order and
// repeats the last one when exhausted.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.Requests = append(m.Requests, req)
	if len(m.responses) == 0 {
		resp := TextResponse("")
		return &resp, nil
	}
	idx := m.calls
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.calls++
	resp := m.responses[idx]
	return &resp, nil
}

// Info implements the Model interface.
func (m *ScriptedModel) Info() Info { return m.info }
