// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// keyPrefix is prepended to the argument hash to form the store key.
// Versioned (v1) so a payload format change cannot collide with old entries.
const keyPrefix = "estate/tool/v1/"

// Key builds the deterministic store key for a tool invocation.
//
// # Description
//
// The key is SHA256 over the tool name and the canonical JSON encoding of
// the arguments. encoding/json marshals map keys in sorted order at every
// nesting level, so semantically identical argument maps produce identical
// keys regardless of the order the model emitted them in.
//
// # Thread Safety
//
// Stateless. Safe for concurrent use.
func Key(tool string, args map[string]any) ([]byte, error) {
	canonical, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("cache key: marshal args: %w", err)
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s\x00", tool)
	h.Write(canonical)

	return []byte(keyPrefix + hex.EncodeToString(h.Sum(nil))), nil
}

// shortKey returns a truncated key for log display.
func shortKey(key []byte) string {
	s := string(key)
	if len(s) > len(keyPrefix)+8 {
		return s[:len(keyPrefix)+8] + "..."
	}
	return s
}
