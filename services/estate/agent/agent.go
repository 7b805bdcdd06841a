// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package agent runs the tool-use orchestration loop: model call, concurrent
// tool fan-out, results back to the model, until the model produces a final
// answer or the iteration ceiling is hit.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/truevalueai/truevalue/services/estate/observability"
	"github.com/truevalueai/truevalue/services/estate/tools"
	"github.com/truevalueai/truevalue/services/llm"
)

// DefaultMaxIterations bounds how many model round-trips one query may use.
// A thorough multi-property comparison runs 5–6 tools across 3–4 rounds;
// anything needing more is almost certainly the model looping.
const DefaultMaxIterations = 7

// ErrIterationCeiling is returned when a run exhausts its iteration budget
// without the model reaching a final answer. Callers may retry with a more
// specific query.
var ErrIterationCeiling = errors.New("agent: iteration ceiling reached before the model produced an answer")

// State is the loop's position in its lifecycle.
type State string

const (
	// StateAwaitingModel: a ChatWithTools call is in flight or about to be.
	StateAwaitingModel State = "awaiting_model"

	// StateExecutingTools: the model requested tools and they are running.
	StateExecutingTools State = "executing_tools"

	// StateDone: the model produced a final answer.
	StateDone State = "done"

	// StateAborted: the run stopped without an answer (ceiling, model
	// failure, or cancellation).
	StateAborted State = "aborted"
)

// RunResult is the outcome of one completed run.
type RunResult struct {
	// Answer is the model's final text. Empty when State != StateDone.
	Answer string

	// ToolsUsed lists tool names in execution order, repeats included.
	ToolsUsed []string

	// Usage is the cumulative token accounting across all iterations.
	Usage llm.Usage

	// Iterations counts model round-trips consumed.
	Iterations int

	// Elapsed is wall time for the whole run.
	Elapsed time.Duration

	// State is StateDone on success, StateAborted otherwise.
	State State
}

// Config tunes a Loop.
type Config struct {
	// MaxIterations caps model round-trips per run. Zero or negative means
	// DefaultMaxIterations.
	MaxIterations int

	Logger *slog.Logger
}

// Loop drives the model/tool conversation for one engine.
//
// # Thread Safety
//
// Safe for concurrent use; each Run owns its conversation.
type Loop struct {
	client   llm.ToolChatClient
	registry *tools.Registry
	executor *tools.Executor

	maxIterations int
	logger        *slog.Logger
	tracer        trace.Tracer
}

// NewLoop wires the orchestration loop. client, registry, and executor are
// required.
func NewLoop(client llm.ToolChatClient, registry *tools.Registry, executor *tools.Executor, cfg Config) *Loop {
	if client == nil {
		panic("agent: nil model client")
	}
	if registry == nil || executor == nil {
		panic("agent: nil tool registry or executor")
	}
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		client:        client,
		registry:      registry,
		executor:      executor,
		maxIterations: maxIter,
		logger:        logger,
		tracer:        otel.Tracer("truevalue/agent"),
	}
}

// Run answers one query.
//
// # Inputs
//
//   - ctx: Cancels the run between model calls and inside tool batches.
//   - query: The user's natural-language question.
//   - priorContext: Compressed summary of earlier turns, "" for a fresh
//     conversation. Injected into the system prompt, not the user message.
//
// # Outputs
//
//   - *RunResult: Always non-nil; State and partial accounting are filled in
//     even on failure.
//   - error: ErrIterationCeiling, *llm.ModelError, a context error, or an
//     unexpected-stop-reason error.
func (l *Loop) Run(ctx context.Context, query, priorContext string) (*RunResult, error) {
	start := time.Now()

	ctx, span := l.tracer.Start(ctx, "agent.run")
	defer span.End()

	system := systemPrompt
	if priorContext != "" {
		system += "\n\n## PRIOR CONVERSATION CONTEXT\n" + priorContext
	}
	conversation := []llm.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: query},
	}
	toolDefs := l.registry.Definitions()

	result := &RunResult{State: StateAwaitingModel}
	defer func() {
		result.Elapsed = time.Since(start)
		span.SetAttributes(
			attribute.Int("agent.iterations", result.Iterations),
			attribute.String("agent.state", string(result.State)),
			attribute.Int("agent.tokens_total", result.Usage.Total()),
		)
	}()

	for iteration := 1; iteration <= l.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			result.State = StateAborted
			return result, err
		}

		result.State = StateAwaitingModel
		result.Iterations = iteration

		reply, err := l.client.ChatWithTools(ctx, conversation, llm.GenerationParams{}, toolDefs)
		if err != nil {
			observability.RecordModelCall("error", 0, 0)
			result.State = StateAborted
			return result, fmt.Errorf("model call failed on iteration %d: %w", iteration, err)
		}
		result.Usage.Add(reply.Usage)
		observability.RecordModelCall("ok", reply.Usage.InputTokens, reply.Usage.OutputTokens)

		switch reply.StopReason {
		case llm.StopEnd:
			result.Answer = reply.Content
			result.State = StateDone
			l.logger.Info("query complete",
				slog.Int("iterations", iteration),
				slog.Any("tools_used", result.ToolsUsed),
				slog.Int("tokens", result.Usage.Total()),
			)
			return result, nil

		case llm.StopToolUse:
			if len(reply.ToolCalls) == 0 {
				result.State = StateAborted
				return result, fmt.Errorf("model signaled tool use on iteration %d but requested no tools", iteration)
			}
			result.State = StateExecutingTools

			toolResults, err := l.executeBatch(ctx, reply.ToolCalls)
			if err != nil {
				result.State = StateAborted
				return result, err
			}

			conversation = append(conversation, llm.ChatMessage{
				Role:      "assistant",
				Content:   reply.Content,
				ToolCalls: reply.ToolCalls,
			})
			for _, tr := range toolResults {
				result.ToolsUsed = append(result.ToolsUsed, tr.Tool)
				conversation = append(conversation, llm.ChatMessage{
					Role:       "tool",
					Content:    tr.PayloadJSON(),
					ToolCallID: tr.CallID,
					ToolName:   tr.Tool,
				})
			}

		default:
			result.State = StateAborted
			return result, fmt.Errorf("unexpected stop reason %q on iteration %d", reply.StopReason, iteration)
		}
	}

	l.logger.Warn("iteration ceiling reached",
		slog.Int("max_iterations", l.maxIterations),
		slog.Any("tools_used", result.ToolsUsed),
	)
	result.State = StateAborted
	return result, ErrIterationCeiling
}

// executeBatch runs one iteration's tool calls concurrently. Results come
// back in the model's request order regardless of completion order, so the
// tool_result messages line up with the tool_use blocks.
func (l *Loop) executeBatch(ctx context.Context, calls []llm.ToolCallResponse) ([]tools.Result, error) {
	results := make([]tools.Result, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			l.logger.Info("executing tool",
				slog.String("tool", call.Name),
				slog.String("call_id", call.ID),
			)
			results[i] = l.executor.Execute(gctx, tools.Invocation{
				ID:        call.ID,
				ToolName:  call.Name,
				Arguments: call.Arguments,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
