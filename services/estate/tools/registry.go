// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/truevalueai/truevalue/services/estate/cache"
	"github.com/truevalueai/truevalue/services/estate/zones"
	"github.com/truevalueai/truevalue/services/llm"
)

// liveCallTimeout bounds each upstream HTTP call. Kept below the model
// loop's patience so a slow upstream degrades to mock instead of stalling
// the whole query.
const liveCallTimeout = 25 * time.Second

// Deps carries everything the tool handlers need. API keys left empty (or
// holding a placeholder like "demo") disable the live tier for that tool;
// the handler then serves its deterministic mock directly.
type Deps struct {
	Zones *zones.Registry

	// HTTPClient is used for all live upstream calls. Nil gets a client
	// with liveCallTimeout.
	HTTPClient *http.Client

	BayutAPIKey     string
	DubaiRESTAPIKey string

	// RedditUserAgent enables the live building-issues search when set.
	RedditUserAgent string

	Logger *slog.Logger
}

// Definition is one registered tool: its model-facing schema, its cache
// TTL (zero = never cached), and the handler that produces payloads.
type Definition struct {
	Name        string
	Description string
	Schema      llm.ToolParameters
	TTL         time.Duration
	Handler     Handler
}

// Registry holds the tool definitions in registration order.
//
// # Thread Safety
//
// Immutable after NewRegistry; safe for concurrent use.
type Registry struct {
	defs  map[string]*Definition
	order []string
}

// NewRegistry builds the registry with all eight analysis tools wired to
// the given dependencies.
func NewRegistry(deps Deps) *Registry {
	if deps.Zones == nil {
		deps.Zones = zones.Default()
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: liveCallTimeout}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	ts := &toolset{deps: deps}
	r := &Registry{defs: make(map[string]*Definition)}

	ttls := cache.DefaultTTLs()
	for _, def := range []Definition{
		ts.searchListingsTool(),
		ts.chillerCostTool(),
		ts.titleDeedTool(),
		ts.marketTrendsTool(),
		ts.buildingIssuesTool(),
		ts.analyzeInvestmentTool(),
		ts.supplyPipelineTool(),
		ts.comparePropertiesTool(),
	} {
		def.TTL = ttls[def.Name]
		r.register(def)
	}
	return r
}

func (r *Registry) register(def Definition) {
	if _, exists := r.defs[def.Name]; exists {
		panic(fmt.Sprintf("tools: duplicate registration of %q", def.Name))
	}
	d := def
	r.defs[def.Name] = &d
	r.order = append(r.order, def.Name)
}

// Get returns a tool definition by name.
func (r *Registry) Get(name string) (*Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Definitions returns the model-facing tool definitions in registration
// order, ready to pass to ChatWithTools.
func (r *Registry) Definitions() []llm.ToolDef {
	out := make([]llm.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		def := r.defs[name]
		out = append(out, llm.ToolDef{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Schema,
			},
		})
	}
	return out
}

// toolset binds the handlers to their dependencies.
type toolset struct {
	deps Deps
}

// liveKeyUsable reports whether an API key looks real rather than a
// placeholder left in a .env template.
func liveKeyUsable(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	return k != "" && k != "demo" && !strings.HasPrefix(k, "your_")
}

// LiveSourcesSummary names the live upstream tiers enabled by the given
// credentials, for startup logging. Returns "none (mock data)" when every
// tool will serve from its deterministic tier.
func LiveSourcesSummary(bayutKey, dubaiRESTKey, redditUserAgent string) string {
	var enabled []string
	if liveKeyUsable(bayutKey) {
		enabled = append(enabled, "bayut")
	}
	if liveKeyUsable(dubaiRESTKey) {
		enabled = append(enabled, "dubai_rest")
	}
	if liveKeyUsable(redditUserAgent) {
		enabled = append(enabled, "reddit")
	}
	if len(enabled) == 0 {
		return "none (mock data)"
	}
	return strings.Join(enabled, ", ")
}
