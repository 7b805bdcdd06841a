// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"

	badgerstore "github.com/truevalueai/truevalue/services/estate/storage/badger"
)

// errCacheMiss distinguishes "key not found" (a normal miss) from a genuine
// storage error inside the read transaction.
var errCacheMiss = errors.New("cache miss")

// BadgerStore implements Store backed by a BadgerDB instance.
//
// # Description
//
// TTL expiry is enforced by BadgerDB's native GC — no application-level
// sweep exists. Expired keys return ErrKeyNotFound, which this store treats
// as a miss. The DB is owned by the caller (opened in main) and must outlive
// the store.
//
// # Thread Safety
//
// Safe for concurrent use. BadgerDB transactions are per-goroutine.
type BadgerStore struct {
	db     *badgerstore.DB
	logger *slog.Logger
}

// NewBadgerStore creates a BadgerStore on an already-opened DB.
func NewBadgerStore(db *badgerstore.DB, logger *slog.Logger) *BadgerStore {
	if db == nil {
		panic("NewBadgerStore: db must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerStore{db: db, logger: logger}
}

// Get retrieves a cached payload. Returns (nil, nil) on miss.
func (s *BadgerStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	var raw []byte
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return errCacheMiss
		}
		if err != nil {
			return fmt.Errorf("get cache key: %w", err)
		}
		raw, err = item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copy value: %w", err)
		}
		return nil
	})

	if errors.Is(err, errCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache load: %w", err)
	}
	return raw, nil
}

// Set writes a payload with the given TTL in one transaction. Partial
// entries cannot exist: the write either commits fully or not at all.
func (s *BadgerStore) Set(ctx context.Context, key, value []byte, ttl time.Duration) error {
	err := s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		entry := dgbadger.NewEntry(key, value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("cache save: %w", err)
	}
	s.logger.Debug("cache: saved",
		slog.String("key", shortKey(key)),
		slog.Int("bytes", len(value)),
		slog.Duration("ttl", ttl),
	)
	return nil
}
