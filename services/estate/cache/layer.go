// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/truevalueai/truevalue/services/estate/observability"
)

// SourceCache is the result source label for payloads served from the
// cache. It replaces whatever source the original computation reported.
const SourceCache = "cache"

// Default per-tool TTLs. Listing and trend data moves intra-day; pipeline
// research and building issue reports shift over weeks. Tools absent from
// this table are never cached: chiller math is instant, the composite
// analysis tools must reflect their inputs, and title verification must
// always be live for legal freshness.
func DefaultTTLs() map[string]time.Duration {
	return map[string]time.Duration{
		"search_listings":        1 * time.Hour,
		"get_market_trends":      1 * time.Hour,
		"get_supply_pipeline":    24 * time.Hour,
		"search_building_issues": 24 * time.Hour,
	}
}

// ComputeFunc produces a tool payload and its source label ("live" or
// "mock"). It is invoked on cache miss, bypass, or store failure.
type ComputeFunc func(ctx context.Context) (map[string]any, string, error)

// Layer is the get-or-compute cache in front of tool handlers.
//
// # Description
//
// Behavior per lookup:
//   - Tool has no TTL, or no store is configured → bypass, compute directly.
//   - Store read fails → log a warning, compute directly. Never surfaced.
//   - Hit → decode and return with source re-tagged to "cache".
//   - Miss → compute; on success, write back with the tool's TTL. A failed
//     write is logged and ignored.
//
// The only error GetOrCompute returns is the compute function's own error
// (in practice: context cancellation). Writes happen strictly after compute
// completes, so a cancelled query never leaves a partial entry.
//
// # Thread Safety
//
// Safe for concurrent use. Concurrent misses for the same key compute
// independently; last write wins, which is harmless for deterministic
// payloads.
type Layer struct {
	store  Store
	ttls   map[string]time.Duration
	logger *slog.Logger
}

// NewLayer creates a cache layer. A nil store disables caching entirely
// (every lookup bypasses). A nil ttls map uses DefaultTTLs.
func NewLayer(store Store, ttls map[string]time.Duration, logger *slog.Logger) *Layer {
	if ttls == nil {
		ttls = DefaultTTLs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Layer{store: store, ttls: ttls, logger: logger}
}

// TTL returns the configured TTL for a tool; zero means never cached.
func (l *Layer) TTL(tool string) time.Duration {
	if l == nil {
		return 0
	}
	return l.ttls[tool]
}

// GetOrCompute serves a tool payload from cache or computes it.
//
// # Outputs
//
//   - map[string]any: The payload. Non-nil whenever error is nil.
//   - string: Source label — "cache" on a hit, otherwise whatever compute
//     reported.
//   - error: compute's error only. Store failures are swallowed.
func (l *Layer) GetOrCompute(ctx context.Context, tool string, args map[string]any,
	compute ComputeFunc) (map[string]any, string, error) {

	ttl := l.TTL(tool)
	if ttl <= 0 || l.store == nil {
		observability.RecordCacheOp(tool, observability.CacheBypass)
		return compute(ctx)
	}

	key, err := Key(tool, args)
	if err != nil {
		// Unserializable args cannot happen for schema-validated tool
		// arguments; treat as a bypass rather than failing the tool.
		l.logger.Warn("cache: key derivation failed, bypassing",
			slog.String("tool", tool),
			slog.String("error", err.Error()),
		)
		observability.RecordCacheOp(tool, observability.CacheError)
		return compute(ctx)
	}

	raw, err := l.store.Get(ctx, key)
	if err != nil {
		l.logger.Warn("cache: read failed, computing directly",
			slog.String("tool", tool),
			slog.String("key", shortKey(key)),
			slog.String("error", err.Error()),
		)
		observability.RecordCacheOp(tool, observability.CacheError)
		return compute(ctx)
	}
	if raw != nil {
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err == nil {
			l.logger.Debug("cache: hit",
				slog.String("tool", tool),
				slog.String("key", shortKey(key)),
			)
			observability.RecordCacheOp(tool, observability.CacheHit)
			return payload, SourceCache, nil
		}
		// Corrupt entry: fall through to recompute and overwrite.
		l.logger.Warn("cache: corrupt entry, recomputing",
			slog.String("tool", tool),
			slog.String("key", shortKey(key)),
		)
	}

	observability.RecordCacheOp(tool, observability.CacheMiss)
	payload, source, err := compute(ctx)
	if err != nil {
		return nil, "", err
	}

	if encoded, err := json.Marshal(payload); err == nil {
		if err := l.store.Set(ctx, key, encoded, ttl); err != nil {
			l.logger.Warn("cache: write failed",
				slog.String("tool", tool),
				slog.String("key", shortKey(key)),
				slog.String("error", err.Error()),
			)
		}
	}
	return payload, source, nil
}
