// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tools implements the analysis tool registry and executor: eight
// domain tools behind one schema-validated entry point, each with a live
// upstream tier and a deterministic mock tier.
//
// The executor never returns an error. Invalid arguments produce a
// validation-error result; upstream failures fall back to mock data inside
// the handler; the caller always receives a non-nil payload it can hand
// back to the model.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Result source labels.
const (
	SourceLive  = "live"
	SourceMock  = "mock"
	SourceCache = "cache"
)

// ToolError kinds.
const (
	ErrKindValidation = "validation"
	ErrKindUpstream   = "upstream"
)

// Invocation is one tool call to execute, carrying the model's call ID so
// the result can be attributed back.
type Invocation struct {
	// ID is the model-assigned tool call ID.
	ID string

	// ToolName is the registered tool to run.
	ToolName string

	// Arguments is the raw JSON arguments object from the model.
	Arguments json.RawMessage
}

// ToolError describes why a tool produced a degraded or failed result.
// It lives inside Result — tool failures are data, not control flow.
type ToolError struct {
	// Kind is ErrKindValidation or ErrKindUpstream.
	Kind string `json:"kind"`

	// Message is safe to show to the model.
	Message string `json:"message"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// newValidationError builds a ToolError for malformed arguments.
func newValidationError(format string, args ...any) *ToolError {
	return &ToolError{Kind: ErrKindValidation, Message: fmt.Sprintf(format, args...)}
}

// Result is the outcome of one tool execution.
//
// Payload is never nil: on validation failure it describes the problem so
// the model can correct its call, and on upstream failure it carries the
// mock fallback. Source records which tier produced the payload.
type Result struct {
	// CallID echoes Invocation.ID.
	CallID string

	// Tool is the tool name that ran.
	Tool string

	// Payload is the JSON-shaped result. Never nil.
	Payload map[string]any

	// Source is SourceLive, SourceMock, or SourceCache.
	Source string

	// Duration is wall time for the execution, including cache lookups.
	Duration time.Duration

	// Err is non-nil for validation failures and unknown tools. The
	// payload still describes the failure.
	Err *ToolError
}

// PayloadJSON renders the payload for a model tool_result block.
func (r *Result) PayloadJSON() string {
	raw, err := json.Marshal(r.Payload)
	if err != nil {
		return `{"success":false,"error":"result serialization failed"}`
	}
	return string(raw)
}

// Handler computes a tool payload from validated arguments. It returns the
// payload and its source label (SourceLive or SourceMock) and must not
// fail: upstream problems degrade to mock data inside the handler.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, string)

// toMap converts a JSON-marshalable value into the map shape payloads use.
func toMap(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{}
	}
	return m
}

// argString reads a string argument; returns "" when absent.
func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// argFloat reads a numeric argument; returns (0, false) when absent or
// non-numeric.
func argFloat(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
