// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"encoding/json"
	"math"
	"reflect"

	"github.com/truevalueai/truevalue/services/llm"
)

// ValidateArgs checks raw model-provided arguments against a tool's
// parameter schema.
//
// # Description
//
// Enforced: every required parameter is present, every present parameter
// matches its declared JSON Schema type, and enum-constrained parameters
// hold one of the allowed values. Optional parameters with a schema default
// are filled in when absent. Parameters outside the schema are passed
// through untouched — models occasionally add extras and rejecting them
// would fail otherwise-correct calls.
//
// # Outputs
//
//   - map[string]any: Decoded arguments with defaults applied. Nil on error.
//   - *ToolError: Validation failure the model can act on. Nil on success.
//
// # Thread Safety
//
// Stateless. Safe for concurrent use.
func ValidateArgs(schema llm.ToolParameters, raw json.RawMessage) (map[string]any, *ToolError) {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}

	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, newValidationError("arguments are not a JSON object: %v", err)
	}
	if args == nil {
		args = map[string]any{}
	}

	for _, name := range schema.Required {
		if _, ok := args[name]; !ok {
			return nil, newValidationError("missing required parameter %q", name)
		}
	}

	for name, def := range schema.Properties {
		val, present := args[name]
		if !present {
			if def.Default != nil {
				args[name] = def.Default
			}
			continue
		}
		if err := checkType(name, def, val); err != nil {
			return nil, err
		}
	}

	return args, nil
}

// checkType verifies one present value against its parameter definition.
func checkType(name string, def llm.ToolParamDef, val any) *ToolError {
	switch def.Type {
	case "string":
		if _, ok := val.(string); !ok {
			return newValidationError("parameter %q must be a string, got %T", name, val)
		}
	case "number":
		if _, ok := val.(float64); !ok {
			return newValidationError("parameter %q must be a number, got %T", name, val)
		}
	case "integer":
		f, ok := val.(float64)
		if !ok || f != math.Trunc(f) {
			return newValidationError("parameter %q must be an integer", name)
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return newValidationError("parameter %q must be a boolean, got %T", name, val)
		}
	case "object":
		if _, ok := val.(map[string]any); !ok {
			return newValidationError("parameter %q must be an object, got %T", name, val)
		}
	}

	if len(def.Enum) > 0 {
		for _, allowed := range def.Enum {
			if reflect.DeepEqual(val, allowed) {
				return nil
			}
		}
		return newValidationError("parameter %q must be one of %v, got %v", name, def.Enum, val)
	}
	return nil
}
