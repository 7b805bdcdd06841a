// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import "context"

// GenerationParams are optional sampling parameters for a model call.
// Nil pointers mean "use the provider default".
type GenerationParams struct {
	Temperature *float32
	TopP        *float32
	TopK        *int
	MaxTokens   *int
	Stop        []string
}

// ToolChatClient is the model interface consumed by the orchestration loop.
//
// # Description
//
// One implementation exists per provider. The loop only depends on this
// interface, so tests substitute a scripted fake and the engine can be
// pointed at a different provider without touching orchestration code.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type ToolChatClient interface {
	// ChatWithTools sends the conversation plus tool definitions and returns
	// the model's reply, which may contain tool calls.
	//
	// Failures that make the model unusable for this query (auth, quota,
	// transport, provider 5xx) are returned as *ModelError.
	ChatWithTools(ctx context.Context, messages []ChatMessage,
		params GenerationParams, tools []ToolDef) (*ChatWithToolsResult, error)
}
