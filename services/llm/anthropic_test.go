// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient points an AnthropicClient at a mock server.
func newTestClient(t *testing.T, handler http.HandlerFunc) *AnthropicClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAnthropicClientWithConfig("test-key", "test-model", srv.URL, nil)
}

func TestChatWithTools_TextOnly(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q, want test-key", got)
		}
		if got := r.Header.Get("anthropic-version"); got == "" {
			t.Error("missing anthropic-version header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant",
			"content": [{"type": "text", "text": "Downtown Dubai averages AED 2,200/sqft."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 120, "output_tokens": 34}
		}`))
	})

	result, err := client.ChatWithTools(context.Background(),
		[]ChatMessage{{Role: "user", Content: "what does downtown cost?"}},
		GenerationParams{}, nil)
	if err != nil {
		t.Fatalf("ChatWithTools: %v", err)
	}
	if result.StopReason != StopEnd {
		t.Errorf("StopReason = %q, want %q", result.StopReason, StopEnd)
	}
	if len(result.ToolCalls) != 0 {
		t.Errorf("expected no tool calls, got %d", len(result.ToolCalls))
	}
	if result.Content == "" {
		t.Error("expected non-empty content")
	}
	if result.Usage.InputTokens != 120 || result.Usage.OutputTokens != 34 {
		t.Errorf("usage = %+v, want {120 34}", result.Usage)
	}
}

func TestChatWithTools_ToolUse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_2", "type": "message", "role": "assistant",
			"content": [
				{"type": "text", "text": "Let me check listings."},
				{"type": "tool_use", "id": "toolu_01", "name": "search_listings",
				 "input": {"location": "dubai-marina", "purpose": "for-sale"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 200, "output_tokens": 50}
		}`))
	})

	result, err := client.ChatWithTools(context.Background(),
		[]ChatMessage{{Role: "user", Content: "find apartments in marina"}},
		GenerationParams{}, nil)
	if err != nil {
		t.Fatalf("ChatWithTools: %v", err)
	}
	if result.StopReason != StopToolUse {
		t.Errorf("StopReason = %q, want %q", result.StopReason, StopToolUse)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(result.ToolCalls))
	}
	tc := result.ToolCalls[0]
	if tc.ID != "toolu_01" || tc.Name != "search_listings" {
		t.Errorf("tool call = %+v", tc)
	}
	var args map[string]any
	if err := json.Unmarshal(tc.Arguments, &args); err != nil {
		t.Fatalf("unmarshal arguments: %v", err)
	}
	if args["location"] != "dubai-marina" {
		t.Errorf("location = %v", args["location"])
	}
}

func TestChatWithTools_ConvertsToolMessages(t *testing.T) {
	var captured struct {
		System   []map[string]any `json:"system"`
		Messages []map[string]any `json:"messages"`
		Tools    []map[string]any `json:"tools"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content": [{"type": "text", "text": "ok"}], "usage": {"input_tokens": 1, "output_tokens": 1}}`))
	})

	messages := []ChatMessage{
		{Role: "system", Content: "You are a real-estate analyst."},
		{Role: "user", Content: "analyze this"},
		{Role: "assistant", ToolCalls: []ToolCallResponse{
			{ID: "toolu_9", Name: "get_supply_pipeline", Arguments: json.RawMessage(`{"zone":"jvc"}`)},
		}},
		{Role: "tool", ToolCallID: "toolu_9", ToolName: "get_supply_pipeline", Content: `{"risk":"HIGH"}`},
	}
	tools := []ToolDef{{
		Type: "function",
		Function: ToolFunction{
			Name:       "get_supply_pipeline",
			Parameters: ToolParameters{Type: "object"},
		},
	}}

	if _, err := client.ChatWithTools(context.Background(), messages, GenerationParams{}, tools); err != nil {
		t.Fatalf("ChatWithTools: %v", err)
	}

	// System prompt goes top-level, not into messages.
	if len(captured.System) != 1 {
		t.Fatalf("system blocks = %d, want 1", len(captured.System))
	}
	if len(captured.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(captured.Messages))
	}

	// Assistant tool calls become tool_use blocks.
	asst := captured.Messages[1]
	blocks, ok := asst["content"].([]any)
	if !ok || len(blocks) != 1 {
		t.Fatalf("assistant content = %v", asst["content"])
	}
	block := blocks[0].(map[string]any)
	if block["type"] != "tool_use" || block["id"] != "toolu_9" {
		t.Errorf("assistant block = %v", block)
	}

	// Tool results become user messages with tool_result blocks.
	toolMsg := captured.Messages[2]
	if toolMsg["role"] != "user" {
		t.Errorf("tool result role = %v, want user", toolMsg["role"])
	}
	resBlocks := toolMsg["content"].([]any)
	resBlock := resBlocks[0].(map[string]any)
	if resBlock["type"] != "tool_result" || resBlock["tool_use_id"] != "toolu_9" {
		t.Errorf("tool_result block = %v", resBlock)
	}

	// Tool schema rides along as input_schema.
	if len(captured.Tools) != 1 || captured.Tools[0]["name"] != "get_supply_pipeline" {
		t.Errorf("tools = %v", captured.Tools)
	}
	if _, ok := captured.Tools[0]["input_schema"]; !ok {
		t.Error("missing input_schema in tool definition")
	}
}

func TestChatWithTools_ServerError_Transient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"overloaded_error","message":"Overloaded"}}`, http.StatusServiceUnavailable)
	})

	_, err := client.ChatWithTools(context.Background(),
		[]ChatMessage{{Role: "user", Content: "q"}}, GenerationParams{}, nil)
	if err == nil {
		t.Fatal("expected error on 503")
	}
	var me *ModelError
	if !errors.As(err, &me) {
		t.Fatalf("error type = %T, want *ModelError", err)
	}
	if me.Status != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", me.Status)
	}
	if !me.Transient {
		t.Error("503 should be transient")
	}
}

func TestChatWithTools_AuthError_NotTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"authentication_error","message":"invalid x-api-key"}}`, http.StatusUnauthorized)
	})

	_, err := client.ChatWithTools(context.Background(),
		[]ChatMessage{{Role: "user", Content: "q"}}, GenerationParams{}, nil)
	var me *ModelError
	if !errors.As(err, &me) {
		t.Fatalf("error type = %T, want *ModelError", err)
	}
	if me.Transient {
		t.Error("401 should not be transient")
	}
	if !IsModelUnavailable(err) {
		t.Error("IsModelUnavailable should report true")
	}
}

func TestChatWithTools_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content": [], "usage": {}}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ChatWithTools(ctx,
		[]ChatMessage{{Role: "user", Content: "q"}}, GenerationParams{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
