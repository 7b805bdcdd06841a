// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"

	"github.com/truevalueai/truevalue/services/estate/scoring"
	"github.com/truevalueai/truevalue/services/llm"
)

func (ts *toolset) chillerCostTool() Definition {
	return Definition{
		Name: "calculate_chiller_cost",
		Description: "Calculate annual district cooling (chiller) costs. CRITICAL for Dubai analysis. " +
			"Empower has FIXED capacity charges that can cost AED 15,000–30,000/year " +
			"even when the unit is vacant — a major yield killer. " +
			"Always run this before recommending a purchase in any Empower-served building.",
		Schema: llm.ToolParameters{
			Type: "object",
			Properties: map[string]llm.ToolParamDef{
				"provider": {
					Type:        "string",
					Enum:        []any{"empower", "lootah"},
					Description: "Chiller provider name",
				},
				"area_sqft": {
					Type:        "number",
					Description: "Property area in square feet",
				},
			},
			Required: []string{"provider", "area_sqft"},
		},
		Handler: ts.chillerCost,
	}
}

// chillerCost is pure math over the tariff table. It has no upstream tier
// and is labeled live because nothing about it is mocked.
func (ts *toolset) chillerCost(ctx context.Context, args map[string]any) (map[string]any, string) {
	provider := argString(args, "provider")
	area, _ := argFloat(args, "area_sqft")

	cost, err := scoring.EstimateChillerCost(provider, area)
	if err != nil {
		return map[string]any{
			"success": false,
			"error":   err.Error(),
		}, SourceLive
	}

	payload := toMap(cost)
	payload["success"] = true
	return payload, SourceLive
}
