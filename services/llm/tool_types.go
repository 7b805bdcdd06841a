// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm defines the provider-agnostic model interface used by the
// analysis engine: tool definitions, chat messages with tool-call metadata,
// and the Anthropic client that speaks the Messages API.
package llm

import "encoding/json"

// ToolDef is the generic tool definition passed to ChatWithTools.
// Follows the OpenAI function-calling schema; the client converts it to the
// provider wire format (Anthropic input_schema).
//
// Thread Safety: ToolDef is immutable and safe for concurrent read access.
type ToolDef struct {
	// Type is always "function".
	Type string `json:"type"`

	// Function contains the function definition.
	Function ToolFunction `json:"function"`
}

// ToolFunction carries the function name, description, and parameter schema.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  ToolParameters `json:"parameters"`
}

// ToolParameters is the JSON Schema for a tool's parameters.
type ToolParameters struct {
	// Type is always "object".
	Type string `json:"type"`

	// Properties maps parameter names to their definitions.
	Properties map[string]ToolParamDef `json:"properties,omitempty"`

	// Required lists parameter names that must be provided.
	Required []string `json:"required,omitempty"`
}

// ToolParamDef defines a single parameter in JSON Schema form.
type ToolParamDef struct {
	// Type is the JSON Schema type (string, integer, number, boolean).
	Type string `json:"type"`

	Description string `json:"description,omitempty"`

	// Enum restricts values to a fixed set of options.
	Enum []any `json:"enum,omitempty"`

	// Default is the value used when the parameter is omitted.
	Default any `json:"default,omitempty"`
}

// ChatMessage is a conversation message that carries tool-call metadata.
//
// Regular messages use Role + Content. Assistant messages with tool calls
// populate ToolCalls; tool result messages populate ToolCallID and ToolName.
//
// Thread Safety: ChatMessage is safe for concurrent read access.
type ChatMessage struct {
	// Role is "system", "user", "assistant", or "tool".
	Role string `json:"role"`

	// Content is the text content of the message.
	Content string `json:"content,omitempty"`

	// ToolCalls contains tool invocations (assistant messages only).
	ToolCalls []ToolCallResponse `json:"tool_calls,omitempty"`

	// ToolCallID links a tool result message back to the originating call.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// ToolName is the tool name for tool result messages.
	ToolName string `json:"tool_name,omitempty"`
}

// ToolCallResponse is a single tool call requested by the model.
//
// Thread Safety: ToolCallResponse is safe for concurrent read access.
type ToolCallResponse struct {
	// ID is the provider-assigned identifier for this call. Tool results
	// must echo it back so the model can correlate them.
	ID string `json:"id"`

	// Name is the function name to call.
	Name string `json:"name"`

	// Arguments is the raw JSON arguments object.
	Arguments json.RawMessage `json:"arguments"`
}

// ArgumentsString returns the arguments as a JSON string.
//
// If Arguments is a JSON string value it is unquoted; objects and other
// values are returned as-is. Returns "{}" for nil or empty arguments.
func (t *ToolCallResponse) ArgumentsString() string {
	if len(t.Arguments) == 0 {
		return "{}"
	}
	if t.Arguments[0] == '"' {
		var s string
		if err := json.Unmarshal(t.Arguments, &s); err == nil {
			return s
		}
	}
	return string(t.Arguments)
}

// Usage counts tokens consumed by one or more model calls.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates another usage record into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Total returns input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// ChatWithToolsResult is the provider-agnostic result from ChatWithTools.
//
// Thread Safety: ChatWithToolsResult is safe for concurrent read access.
type ChatWithToolsResult struct {
	// Content is the text response. May be empty when only tool calls are
	// present.
	Content string

	// ToolCalls contains tool calls requested by the model.
	ToolCalls []ToolCallResponse

	// StopReason is "end" (normal completion) or "tool_use".
	StopReason string

	// Usage is the token accounting for this single call.
	Usage Usage
}

// Stop reasons returned in ChatWithToolsResult.StopReason.
const (
	StopEnd     = "end"
	StopToolUse = "tool_use"
)
