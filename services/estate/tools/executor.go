// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/truevalueai/truevalue/services/estate/cache"
	"github.com/truevalueai/truevalue/services/estate/observability"
)

// Executor runs tool invocations through validation and the cache layer.
//
// # Thread Safety
//
// Safe for concurrent use; the orchestration loop fans invocations out
// across goroutines.
type Executor struct {
	registry *Registry
	cache    *cache.Layer
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewExecutor creates an executor. cacheLayer may be nil, in which case
// every execution computes directly.
func NewExecutor(registry *Registry, cacheLayer *cache.Layer, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry: registry,
		cache:    cacheLayer,
		logger:   logger,
		tracer:   otel.Tracer("truevalue/tools"),
	}
}

// Execute runs one invocation and always returns a usable Result.
//
// # Description
//
// Unknown tools and schema violations produce a validation-error result
// whose payload tells the model what was wrong. Valid invocations go
// through the cache layer (for tools with a TTL) and the handler's
// live-then-mock tiers. The result's Source records which tier answered.
//
// The only failure that aborts an execution is context cancellation, which
// surfaces as an upstream-kind error result so callers can still append a
// tool_result for the model.
func (e *Executor) Execute(ctx context.Context, inv Invocation) Result {
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "tools.execute",
		trace.WithAttributes(attribute.String("tool.name", inv.ToolName)))
	defer span.End()

	def, ok := e.registry.Get(inv.ToolName)
	if !ok {
		res := e.failValidation(inv, start, newValidationError("unknown tool %q", inv.ToolName))
		span.SetAttributes(attribute.String("tool.outcome", "validation_error"))
		return res
	}

	args, verr := ValidateArgs(def.Schema, inv.Arguments)
	if verr != nil {
		e.logger.Warn("tool argument validation failed",
			slog.String("tool", inv.ToolName),
			slog.String("error", verr.Message),
		)
		res := e.failValidation(inv, start, verr)
		span.SetAttributes(attribute.String("tool.outcome", "validation_error"))
		return res
	}

	var payload map[string]any
	var source string
	var err error
	if e.cache != nil {
		payload, source, err = e.cache.GetOrCompute(ctx, def.Name, args,
			func(ctx context.Context) (map[string]any, string, error) {
				if err := ctx.Err(); err != nil {
					return nil, "", err
				}
				p, s := def.Handler(ctx, args)
				return p, s, nil
			})
	} else {
		err = ctx.Err()
		if err == nil {
			payload, source = def.Handler(ctx, args)
		}
	}

	elapsed := time.Since(start)
	if err != nil {
		// Context cancellation mid-query. The payload still explains the
		// situation so the conversation stays well-formed.
		observability.RecordToolExecution(def.Name, SourceMock, "upstream_error", elapsed)
		span.SetAttributes(attribute.String("tool.outcome", "cancelled"))
		return Result{
			CallID: inv.ID,
			Tool:   inv.ToolName,
			Payload: map[string]any{
				"success": false,
				"error":   "tool execution cancelled",
			},
			Source:   SourceMock,
			Duration: elapsed,
			Err:      &ToolError{Kind: ErrKindUpstream, Message: err.Error()},
		}
	}

	e.logger.Info("tool executed",
		slog.String("tool", def.Name),
		slog.String("source", source),
		slog.Duration("duration", elapsed),
	)
	observability.RecordToolExecution(def.Name, source, "ok", elapsed)
	span.SetAttributes(
		attribute.String("tool.source", source),
		attribute.String("tool.outcome", "ok"),
	)

	return Result{
		CallID:   inv.ID,
		Tool:     inv.ToolName,
		Payload:  payload,
		Source:   source,
		Duration: elapsed,
	}
}

func (e *Executor) failValidation(inv Invocation, start time.Time, verr *ToolError) Result {
	elapsed := time.Since(start)
	observability.RecordToolExecution(inv.ToolName, SourceMock, "validation_error", elapsed)
	return Result{
		CallID: inv.ID,
		Tool:   inv.ToolName,
		Payload: map[string]any{
			"success": false,
			"error":   verr.Message,
		},
		Source:   SourceMock,
		Duration: elapsed,
		Err:      verr,
	}
}
