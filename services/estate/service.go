// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package estate wires the analysis engine together — tool registry, cache,
// orchestration loop, session memory — and exposes it over HTTP.
package estate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/truevalueai/truevalue/services/estate/agent"
	"github.com/truevalueai/truevalue/services/estate/cache"
	"github.com/truevalueai/truevalue/services/estate/conversation"
	"github.com/truevalueai/truevalue/services/estate/observability"
	"github.com/truevalueai/truevalue/services/estate/tools"
	"github.com/truevalueai/truevalue/services/estate/zones"
	"github.com/truevalueai/truevalue/services/llm"
)

// ErrEmptyQuery is returned for queries that are empty after trimming.
var ErrEmptyQuery = errors.New("estate: query must not be empty")

// anonymousUser is the session key used when the caller provides no user ID.
const anonymousUser = "anonymous"

// Config assembles an Engine.
type Config struct {
	// Client is the model client. Required.
	Client llm.ToolChatClient

	// ToolDeps configures the tool handlers (zone data, API keys, HTTP
	// client). Zero value serves every tool from its deterministic tier.
	ToolDeps tools.Deps

	// Cache is the tool result cache. Nil disables caching.
	Cache *cache.Layer

	// MaxIterations caps model round-trips per query. Zero means the agent
	// default.
	MaxIterations int

	Logger *slog.Logger
}

// Engine answers real-estate investment queries.
//
// # Thread Safety
//
// Safe for concurrent use.
type Engine struct {
	loop     *agent.Loop
	registry *tools.Registry
	sessions *conversation.Store
	zones    *zones.Registry
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewEngine wires the engine. Call Close when done to stop the session
// sweep.
func NewEngine(cfg Config) *Engine {
	if cfg.Client == nil {
		panic("estate: nil model client")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ToolDeps.Logger == nil {
		cfg.ToolDeps.Logger = logger
	}
	if cfg.ToolDeps.Zones == nil {
		cfg.ToolDeps.Zones = zones.Default()
	}

	registry := tools.NewRegistry(cfg.ToolDeps)
	executor := tools.NewExecutor(registry, cfg.Cache, logger)
	loop := agent.NewLoop(cfg.Client, registry, executor, agent.Config{
		MaxIterations: cfg.MaxIterations,
		Logger:        logger,
	})

	return &Engine{
		loop:     loop,
		registry: registry,
		sessions: conversation.NewStore(logger),
		zones:    cfg.ToolDeps.Zones,
		logger:   logger,
		tracer:   otel.Tracer("truevalue/estate"),
	}
}

// Close releases engine resources.
func (e *Engine) Close() {
	e.sessions.Close()
}

// Registry exposes the tool registry for discovery endpoints.
func (e *Engine) Registry() *tools.Registry {
	return e.registry
}

// Zones exposes the zone reference data.
func (e *Engine) Zones() *zones.Registry {
	return e.zones
}

// ActiveSessions reports live conversation sessions, for health output.
func (e *Engine) ActiveSessions() int {
	return e.sessions.ActiveSessions()
}

// QueryRequest is one natural-language analysis request.
type QueryRequest struct {
	// Query is the user's question. Required.
	Query string `json:"query" binding:"required"`

	// UserID keys the conversation session. Optional; anonymous callers
	// share no session continuity guarantees.
	UserID string `json:"user_id"`
}

// QueryResponse is the completed analysis.
type QueryResponse struct {
	Answer    string    `json:"answer"`
	ToolsUsed []string  `json:"tools_used"`
	Usage     llm.Usage `json:"usage"`
	ElapsedMS int64     `json:"elapsed_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// HandleQuery runs one query through the orchestration loop.
//
// # Description
//
// Follow-up messages (detected heuristically against the user's session)
// get the compressed conversation summary injected into the model context.
// Completed turns update the session. Failures are surfaced as-is:
// agent.ErrIterationCeiling, *llm.ModelError, context errors, or
// ErrEmptyQuery.
func (e *Engine) HandleQuery(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	userID := req.UserID
	if userID == "" {
		userID = anonymousUser
	}

	ctx, span := e.tracer.Start(ctx, "estate.handle_query",
		trace.WithAttributes(attribute.Int("query.length", len(query))))
	defer span.End()

	var prior string
	if conversation.IsFollowup(query, e.sessions.HasSession(userID)) {
		prior = e.sessions.Context(userID)
	}

	res, err := e.loop.Run(ctx, query, prior)
	outcome := "ok"
	if err != nil {
		switch {
		case errors.Is(err, agent.ErrIterationCeiling):
			outcome = "iteration_ceiling"
		case llm.IsModelUnavailable(err):
			outcome = "model_unavailable"
		default:
			outcome = "error"
		}
	}
	observability.RecordQuery(outcome, res.Iterations, res.Elapsed)
	span.SetAttributes(attribute.String("query.outcome", outcome))
	if err != nil {
		e.logger.Warn("query failed",
			slog.String("outcome", outcome),
			slog.Int("iterations", res.Iterations),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	e.sessions.Update(userID, query, res.Answer)

	return &QueryResponse{
		Answer:    res.Answer,
		ToolsUsed: res.ToolsUsed,
		Usage:     res.Usage,
		ElapsedMS: res.Elapsed.Milliseconds(),
		Timestamp: time.Now().UTC(),
	}, nil
}

// ResetSession clears a user's conversation memory.
func (e *Engine) ResetSession(userID string) {
	if userID == "" {
		userID = anonymousUser
	}
	e.sessions.Reset(userID)
}
