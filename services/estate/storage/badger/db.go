// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package badger wraps dgraph-io/badger/v4 behind a small transactional API.
//
// The wrapper exists so callers never hold a raw *badger.DB: transactions are
// always scoped to a callback, context cancellation is checked before any
// transaction starts, and the in-memory configuration used by tests lives in
// one place.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// ErrClosed is returned by transaction helpers after Close has been called.
var ErrClosed = errors.New("badger: db closed")

// Config describes how to open a DB.
type Config struct {
	// Dir is the on-disk directory for the value log and LSM tree.
	// Ignored when InMemory is true.
	Dir string

	// InMemory opens a fully in-memory instance. Used by tests and by
	// deployments that run without a cache directory.
	InMemory bool

	// Logger receives badger's internal messages. May be nil, in which case
	// badger's own logging is silenced.
	Logger *slog.Logger
}

// InMemoryConfig returns a Config for an in-memory instance.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// DiskConfig returns a Config for an on-disk instance rooted at dir.
func DiskConfig(dir string) Config {
	return Config{Dir: dir}
}

// DB is an opened BadgerDB instance.
//
// # Thread Safety
//
// Safe for concurrent use. BadgerDB transactions are per-goroutine; each
// WithTxn/WithReadTxn call creates its own transaction.
type DB struct {
	db *dgbadger.DB
}

// OpenDB opens a BadgerDB instance described by cfg.
//
// # Description
//
// The caller owns the returned DB and must call Close when done. Badger's
// internal logger is disabled; operational visibility comes from the callers'
// own slog output.
//
// # Outputs
//
//   - *DB: Opened instance. Nil on error.
//   - error: Non-nil if the directory cannot be opened or is locked by
//     another process.
func OpenDB(cfg Config) (*DB, error) {
	var opts dgbadger.Options
	if cfg.InMemory {
		opts = dgbadger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Dir == "" {
			return nil, errors.New("badger: Dir must be set for on-disk instances")
		}
		opts = dgbadger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithLogger(nil)

	db, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	if cfg.Logger != nil {
		cfg.Logger.Debug("badger opened",
			slog.String("dir", cfg.Dir),
			slog.Bool("in_memory", cfg.InMemory),
		)
	}
	return &DB{db: db}, nil
}

// WithTxn runs fn inside a read-write transaction and commits on success.
//
// Returns ctx.Err() without starting the transaction if ctx is already
// cancelled. Returns fn's error (transaction discarded) or the commit error.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if d == nil || d.db == nil {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.Update(fn)
}

// WithReadTxn runs fn inside a read-only transaction.
//
// Returns ctx.Err() without starting the transaction if ctx is already
// cancelled.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if d == nil || d.db == nil {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.View(fn)
}

// Close releases the underlying instance. Safe to call more than once.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	db := d.db
	d.db = nil
	return db.Close()
}
