// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/truevalueai/truevalue/services/estate/tools"
	"github.com/truevalueai/truevalue/services/llm"
)

// scriptedClient replays canned model replies and records every
// conversation it was sent.
type scriptedClient struct {
	mu      sync.Mutex
	replies []*llm.ChatWithToolsResult
	errs    []error
	seen    [][]llm.ChatMessage
}

func (c *scriptedClient) ChatWithTools(ctx context.Context, messages []llm.ChatMessage,
	params llm.GenerationParams, defs []llm.ToolDef) (*llm.ChatWithToolsResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make([]llm.ChatMessage, len(messages))
	copy(snapshot, messages)
	c.seen = append(c.seen, snapshot)

	i := len(c.seen) - 1
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	if i >= len(c.replies) {
		// Keep replaying the last reply; used by the ceiling test.
		i = len(c.replies) - 1
	}
	return c.replies[i], nil
}

func newTestLoop(t *testing.T, client llm.ToolChatClient, cfg Config) *Loop {
	t.Helper()
	registry := tools.NewRegistry(tools.Deps{})
	executor := tools.NewExecutor(registry, nil, nil)
	return NewLoop(client, registry, executor, cfg)
}

func toolUseReply(usage llm.Usage, calls ...llm.ToolCallResponse) *llm.ChatWithToolsResult {
	return &llm.ChatWithToolsResult{
		StopReason: llm.StopToolUse,
		ToolCalls:  calls,
		Usage:      usage,
	}
}

func endReply(content string, usage llm.Usage) *llm.ChatWithToolsResult {
	return &llm.ChatWithToolsResult{
		Content:    content,
		StopReason: llm.StopEnd,
		Usage:      usage,
	}
}

func TestRun_ToolUseThenAnswer(t *testing.T) {
	client := &scriptedClient{
		replies: []*llm.ChatWithToolsResult{
			toolUseReply(llm.Usage{InputTokens: 900, OutputTokens: 80},
				llm.ToolCallResponse{
					ID:        "call_a",
					Name:      "calculate_chiller_cost",
					Arguments: json.RawMessage(`{"provider":"empower","area_sqft":1500}`),
				},
				llm.ToolCallResponse{
					ID:        "call_b",
					Name:      "get_supply_pipeline",
					Arguments: json.RawMessage(`{"zone":"dubai-marina"}`),
				},
			),
			endReply("**GO** — Marina unit scores well.", llm.Usage{InputTokens: 1400, OutputTokens: 300}),
		},
	}
	loop := newTestLoop(t, client, Config{})

	res, err := loop.Run(context.Background(), "is this marina unit a buy?", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != StateDone {
		t.Errorf("State = %v", res.State)
	}
	if res.Answer != "**GO** — Marina unit scores well." {
		t.Errorf("Answer = %q", res.Answer)
	}
	if res.Iterations != 2 {
		t.Errorf("Iterations = %d, want 2", res.Iterations)
	}
	want := []string{"calculate_chiller_cost", "get_supply_pipeline"}
	if len(res.ToolsUsed) != 2 || res.ToolsUsed[0] != want[0] || res.ToolsUsed[1] != want[1] {
		t.Errorf("ToolsUsed = %v, want %v (request order)", res.ToolsUsed, want)
	}
	if res.Usage.InputTokens != 2300 || res.Usage.OutputTokens != 380 {
		t.Errorf("Usage = %+v, want summed across iterations", res.Usage)
	}
	if res.Elapsed <= 0 {
		t.Error("Elapsed not recorded")
	}
}

func TestRun_ConversationShape(t *testing.T) {
	client := &scriptedClient{
		replies: []*llm.ChatWithToolsResult{
			toolUseReply(llm.Usage{},
				llm.ToolCallResponse{
					ID:        "call_1",
					Name:      "get_supply_pipeline",
					Arguments: json.RawMessage(`{"zone":"jvc"}`),
				},
			),
			endReply("done", llm.Usage{}),
		},
	}
	loop := newTestLoop(t, client, Config{})

	if _, err := loop.Run(context.Background(), "how risky is jvc?", ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(client.seen) != 2 {
		t.Fatalf("model called %d times, want 2", len(client.seen))
	}

	first := client.seen[0]
	if first[0].Role != "system" || !strings.Contains(first[0].Content, "TrueValue AI") {
		t.Errorf("first message should be the system prompt, got role %q", first[0].Role)
	}
	if first[1].Role != "user" || first[1].Content != "how risky is jvc?" {
		t.Errorf("second message = %+v", first[1])
	}

	second := client.seen[1]
	if len(second) != 4 {
		t.Fatalf("second call carried %d messages, want 4", len(second))
	}
	assistant := second[2]
	if assistant.Role != "assistant" || len(assistant.ToolCalls) != 1 {
		t.Errorf("assistant message = %+v", assistant)
	}
	toolMsg := second[3]
	if toolMsg.Role != "tool" || toolMsg.ToolCallID != "call_1" || toolMsg.ToolName != "get_supply_pipeline" {
		t.Errorf("tool message = %+v", toolMsg)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(toolMsg.Content), &payload); err != nil {
		t.Fatalf("tool message content not JSON: %v", err)
	}
	if payload["risk_level"] != "HIGH" {
		t.Errorf("tool payload = %v", payload)
	}
}

func TestRun_PriorContextInjected(t *testing.T) {
	client := &scriptedClient{
		replies: []*llm.ChatWithToolsResult{endReply("ok", llm.Usage{})},
	}
	loop := newTestLoop(t, client, Config{})

	prior := "Prior: 2br in marina → Score: 72/100, GOOD BUY"
	if _, err := loop.Run(context.Background(), "what about jbr?", prior); err != nil {
		t.Fatalf("Run: %v", err)
	}
	system := client.seen[0][0].Content
	if !strings.Contains(system, "PRIOR CONVERSATION CONTEXT") || !strings.Contains(system, prior) {
		t.Error("prior context missing from system prompt")
	}
}

func TestRun_IterationCeiling(t *testing.T) {
	client := &scriptedClient{
		replies: []*llm.ChatWithToolsResult{
			toolUseReply(llm.Usage{InputTokens: 100, OutputTokens: 10},
				llm.ToolCallResponse{
					ID:        "call_loop",
					Name:      "get_supply_pipeline",
					Arguments: json.RawMessage(`{"zone":"jvc"}`),
				},
			),
		},
	}
	loop := newTestLoop(t, client, Config{MaxIterations: 3})

	res, err := loop.Run(context.Background(), "loop forever", "")
	if !errors.Is(err, ErrIterationCeiling) {
		t.Fatalf("err = %v, want ErrIterationCeiling", err)
	}
	if res.State != StateAborted {
		t.Errorf("State = %v", res.State)
	}
	if res.Iterations != 3 {
		t.Errorf("Iterations = %d, want 3", res.Iterations)
	}
	// Usage from the wasted iterations is still accounted.
	if res.Usage.InputTokens != 300 {
		t.Errorf("Usage.InputTokens = %d, want 300", res.Usage.InputTokens)
	}
}

func TestRun_ModelErrorSurfaced(t *testing.T) {
	modelErr := &llm.ModelError{Status: 429, Transient: true, Message: "rate limited"}
	client := &scriptedClient{
		replies: []*llm.ChatWithToolsResult{nil},
		errs:    []error{modelErr},
	}
	loop := newTestLoop(t, client, Config{})

	res, err := loop.Run(context.Background(), "q", "")
	if !llm.IsModelUnavailable(err) {
		t.Fatalf("err = %v, want model unavailable", err)
	}
	if res.State != StateAborted {
		t.Errorf("State = %v", res.State)
	}
}

func TestRun_UnexpectedStopReason(t *testing.T) {
	client := &scriptedClient{
		replies: []*llm.ChatWithToolsResult{
			{StopReason: "max_tokens", Content: "trunca"},
		},
	}
	loop := newTestLoop(t, client, Config{})

	res, err := loop.Run(context.Background(), "q", "")
	if err == nil || !strings.Contains(err.Error(), "max_tokens") {
		t.Fatalf("err = %v, want unexpected stop reason", err)
	}
	if res.State != StateAborted {
		t.Errorf("State = %v", res.State)
	}
}

func TestRun_ToolUseWithoutCalls(t *testing.T) {
	client := &scriptedClient{
		replies: []*llm.ChatWithToolsResult{
			{StopReason: llm.StopToolUse},
		},
	}
	loop := newTestLoop(t, client, Config{})

	if _, err := loop.Run(context.Background(), "q", ""); err == nil {
		t.Fatal("want error for tool_use without tool calls")
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	client := &scriptedClient{
		replies: []*llm.ChatWithToolsResult{endReply("never", llm.Usage{})},
	}
	loop := newTestLoop(t, client, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := loop.Run(ctx, "q", "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res.State != StateAborted {
		t.Errorf("State = %v", res.State)
	}
	if len(client.seen) != 0 {
		t.Error("model should not be called after cancellation")
	}
}
