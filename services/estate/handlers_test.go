// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package estate

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/truevalueai/truevalue/services/llm"
)

// fakeModel replays canned replies and records every conversation sent.
type fakeModel struct {
	mu      sync.Mutex
	replies []*llm.ChatWithToolsResult
	err     error
	seen    [][]llm.ChatMessage
}

func (f *fakeModel) ChatWithTools(ctx context.Context, messages []llm.ChatMessage,
	params llm.GenerationParams, defs []llm.ToolDef) (*llm.ChatWithToolsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := make([]llm.ChatMessage, len(messages))
	copy(snapshot, messages)
	f.seen = append(f.seen, snapshot)

	if f.err != nil {
		return nil, f.err
	}
	i := len(f.seen) - 1
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	return f.replies[i], nil
}

func answerReply(text string) *llm.ChatWithToolsResult {
	return &llm.ChatWithToolsResult{
		Content:    text,
		StopReason: llm.StopEnd,
		Usage:      llm.Usage{InputTokens: 1000, OutputTokens: 200},
	}
}

func newTestRouter(t *testing.T, model llm.ToolChatClient) (*gin.Engine, *Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := NewEngine(Config{Client: model})
	t.Cleanup(engine.Close)

	router := gin.New()
	RegisterRoutes(router.Group("/v1"), NewHandlers(engine))
	return router, engine
}

func postQuery(t *testing.T, router *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/estate/query", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleQuery_OK(t *testing.T) {
	model := &fakeModel{replies: []*llm.ChatWithToolsResult{
		answerReply("**GO** — Marina looks solid."),
	}}
	router, _ := newTestRouter(t, model)

	w := postQuery(t, router, QueryRequest{Query: "is marina a buy?", UserID: "u1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	var resp QueryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "**GO** — Marina looks solid." {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if resp.Usage.Total() != 1200 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
	if resp.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}

func TestHandleQuery_FollowupGetsPriorContext(t *testing.T) {
	model := &fakeModel{replies: []*llm.ChatWithToolsResult{
		answerReply("Marina scores 72/100 — GOOD BUY."),
	}}
	router, _ := newTestRouter(t, model)

	if w := postQuery(t, router, QueryRequest{Query: "2br apartment in dubai marina under 2m", UserID: "u1"}); w.Code != http.StatusOK {
		t.Fatalf("first query: %d %s", w.Code, w.Body.String())
	}
	if w := postQuery(t, router, QueryRequest{Query: "what about business bay?", UserID: "u1"}); w.Code != http.StatusOK {
		t.Fatalf("second query: %d %s", w.Code, w.Body.String())
	}

	model.mu.Lock()
	defer model.mu.Unlock()
	if len(model.seen) != 2 {
		t.Fatalf("model called %d times", len(model.seen))
	}
	if strings.Contains(model.seen[0][0].Content, "PRIOR CONVERSATION CONTEXT") {
		t.Error("fresh query should not carry prior context")
	}
	if !strings.Contains(model.seen[1][0].Content, "PRIOR CONVERSATION CONTEXT") {
		t.Error("follow-up should carry prior context in the system prompt")
	}
	if !strings.Contains(model.seen[1][0].Content, "GOOD BUY") {
		t.Error("prior context should carry extracted facts")
	}
}

func TestHandleQuery_SessionsAreIsolatedPerUser(t *testing.T) {
	model := &fakeModel{replies: []*llm.ChatWithToolsResult{
		answerReply("Score: 60/100"),
	}}
	router, _ := newTestRouter(t, model)

	if w := postQuery(t, router, QueryRequest{Query: "2br apartment in dubai marina under 2m", UserID: "u1"}); w.Code != http.StatusOK {
		t.Fatal(w.Body.String())
	}
	// Different user asking a follow-up-shaped question has no session, so
	// no context is injected.
	if w := postQuery(t, router, QueryRequest{Query: "what about business bay?", UserID: "u2"}); w.Code != http.StatusOK {
		t.Fatal(w.Body.String())
	}

	model.mu.Lock()
	defer model.mu.Unlock()
	if strings.Contains(model.seen[1][0].Content, "PRIOR CONVERSATION CONTEXT") {
		t.Error("u2 must not inherit u1's session")
	}
}

func TestHandleQuery_BadRequests(t *testing.T) {
	model := &fakeModel{replies: []*llm.ChatWithToolsResult{answerReply("x")}}
	router, _ := newTestRouter(t, model)

	// Missing query field fails binding.
	w := postQuery(t, router, map[string]any{"user_id": "u1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing query: status = %d", w.Code)
	}
	var errResp ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &errResp)
	if errResp.Code != "INVALID_REQUEST" {
		t.Errorf("code = %q", errResp.Code)
	}

	// Whitespace-only query passes binding but fails engine validation.
	w = postQuery(t, router, QueryRequest{Query: "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank query: status = %d", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &errResp)
	if errResp.Code != "EMPTY_QUERY" {
		t.Errorf("code = %q", errResp.Code)
	}
}

func TestHandleQuery_ModelUnavailable(t *testing.T) {
	model := &fakeModel{err: &llm.ModelError{Status: 529, Transient: true, Message: "overloaded"}}
	router, _ := newTestRouter(t, model)

	w := postQuery(t, router, QueryRequest{Query: "is marina a buy?"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
	var errResp ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &errResp)
	if errResp.Code != "MODEL_UNAVAILABLE" {
		t.Errorf("code = %q", errResp.Code)
	}
}

func TestHandleQuery_AuthErrorIsBadGateway(t *testing.T) {
	model := &fakeModel{err: &llm.ModelError{Status: 401, Transient: false, Message: "bad key"}}
	router, _ := newTestRouter(t, model)

	w := postQuery(t, router, QueryRequest{Query: "is marina a buy?"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestHandleQuery_IterationCeiling(t *testing.T) {
	// The model asks for a tool on every turn and never answers.
	model := &fakeModel{replies: []*llm.ChatWithToolsResult{
		{
			StopReason: llm.StopToolUse,
			ToolCalls: []llm.ToolCallResponse{{
				ID:        "call_x",
				Name:      "get_supply_pipeline",
				Arguments: json.RawMessage(`{"zone":"jvc"}`),
			}},
		},
	}}
	router, _ := newTestRouter(t, model)

	w := postQuery(t, router, QueryRequest{Query: "loop"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var errResp ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &errResp)
	if errResp.Code != "ITERATION_CEILING" {
		t.Errorf("code = %q", errResp.Code)
	}
}

func TestHandleListTools(t *testing.T) {
	model := &fakeModel{replies: []*llm.ChatWithToolsResult{answerReply("x")}}
	router, _ := newTestRouter(t, model)

	req := httptest.NewRequest(http.MethodGet, "/v1/estate/tools", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body struct {
		Count int `json:"count"`
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 8 || len(body.Tools) != 8 {
		t.Errorf("count = %d, tools = %d, want 8", body.Count, len(body.Tools))
	}
	for _, tool := range body.Tools {
		if len(tool.Description) > maxToolDescriptionLen+3 {
			t.Errorf("%s: description not truncated (%d chars)", tool.Name, len(tool.Description))
		}
	}
}

func TestHandleZonePipeline(t *testing.T) {
	model := &fakeModel{replies: []*llm.ChatWithToolsResult{answerReply("x")}}
	router, _ := newTestRouter(t, model)

	req := httptest.NewRequest(http.MethodGet, "/v1/estate/zones/jvc/pipeline", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["slug"] != "jumeirah-village-circle" {
		t.Errorf("slug = %v", body["slug"])
	}
	if body["risk_level"] != "HIGH" {
		t.Errorf("risk_level = %v", body["risk_level"])
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/estate/zones/atlantis/pipeline", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown zone status = %d", w.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	model := &fakeModel{replies: []*llm.ChatWithToolsResult{answerReply("x")}}
	router, _ := newTestRouter(t, model)

	for _, path := range []string{"/v1/estate/health", "/v1/estate/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, w.Code)
		}
	}
}
