// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache is the get-or-compute layer between the tool executor and
// its handlers. Cacheable tool results are persisted in BadgerDB with
// per-tool TTLs; the store is strictly an accelerator — any store failure
// degrades to computing the result directly and is never surfaced to the
// caller.
package cache

import (
	"context"
	"time"
)

// Store persists raw tool payloads under deterministic keys.
//
// # Description
//
// Get returns (nil, nil) on a miss (key absent or TTL expired) and a non-nil
// error only on storage failure. Set applies the given TTL; a zero TTL means
// the entry never expires (callers avoid this — the Layer only writes
// entries for tools with a positive TTL).
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Set(ctx context.Context, key, value []byte, ttl time.Duration) error
}

// NoopStore is a Store that never hits and drops writes. Used when the
// service runs without a cache directory and by tests that exercise the
// bypass path.
type NoopStore struct{}

func (NoopStore) Get(ctx context.Context, key []byte) ([]byte, error) { return nil, nil }

func (NoopStore) Set(ctx context.Context, key, value []byte, ttl time.Duration) error { return nil }
