// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"fmt"
	"math"

	"github.com/truevalueai/truevalue/services/llm"
)

// compareMarginThreshold is the score gap below which neither property can
// be declared the winner.
const compareMarginThreshold = 5

func (ts *toolset) comparePropertiesTool() Definition {
	propertySchema := llm.ToolParamDef{
		Type: "object",
		Description: "Property details: price, area_sqft, annual_rent, location, " +
			"chiller_provider (empower or lootah), optional label",
	}
	return Definition{
		Name: "compare_properties",
		Description: "Side-by-side investment comparison of two properties. " +
			"Runs full analyze_investment on both and declares a winner with scoring rationale.",
		Schema: llm.ToolParameters{
			Type: "object",
			Properties: map[string]llm.ToolParamDef{
				"property_a": propertySchema,
				"property_b": propertySchema,
			},
			Required: []string{"property_a", "property_b"},
		},
		Handler: ts.compareProperties,
	}
}

// comparePropertyKeys are required inside each property object. The outer
// schema only enforces that both arguments are objects, so the handler
// validates the nested fields itself.
var comparePropertyKeys = []string{"price", "area_sqft", "annual_rent", "location", "chiller_provider"}

func (ts *toolset) compareProperties(ctx context.Context, args map[string]any) (map[string]any, string) {
	propA, _ := args["property_a"].(map[string]any)
	propB, _ := args["property_b"].(map[string]any)

	for label, prop := range map[string]map[string]any{"A": propA, "B": propB} {
		if missing := missingPropertyKeys(prop); len(missing) > 0 {
			return map[string]any{
				"success": false,
				"error":   fmt.Sprintf("Property %s missing fields: %v", label, missing),
			}, SourceLive
		}
	}

	analysisA := ts.runPropertyAnalysis(propA)
	analysisB := ts.runPropertyAnalysis(propB)

	scoreA := intField(analysisA, "investment_score")
	scoreB := intField(analysisB, "investment_score")

	winner := "A"
	if scoreB > scoreA {
		winner = "B"
	}
	margin := int(math.Abs(float64(scoreA - scoreB)))

	var verdict string
	switch {
	case margin <= compareMarginThreshold:
		verdict = "TOO CLOSE TO CALL — further due diligence required on both"
	case winner == "A":
		verdict = fmt.Sprintf("Property A wins by %d points — %v", margin, analysisA["recommendation"])
	default:
		verdict = fmt.Sprintf("Property B wins by %d points — %v", margin, analysisB["recommendation"])
	}

	return map[string]any{
		"success":       true,
		"winner":        winner,
		"verdict":       verdict,
		"margin_points": margin,
		"property_a":    compareSummary(analysisA),
		"property_b":    compareSummary(analysisB),
	}, SourceLive
}

func missingPropertyKeys(prop map[string]any) []string {
	var missing []string
	for _, key := range comparePropertyKeys {
		if _, ok := prop[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

func (ts *toolset) runPropertyAnalysis(prop map[string]any) map[string]any {
	price, _ := argFloat(prop, "price")
	area, _ := argFloat(prop, "area_sqft")
	rent, _ := argFloat(prop, "annual_rent")
	return ts.runAnalysis(price, area, rent,
		argString(prop, "location"), argString(prop, "chiller_provider"))
}

// compareSummary extracts the head-to-head fields from a full analysis.
func compareSummary(analysis map[string]any) map[string]any {
	fin, _ := analysis["financial_summary"].(map[string]any)
	return map[string]any{
		"score":               analysis["investment_score"],
		"recommendation":      analysis["recommendation"],
		"gross_yield_pct":     fin["gross_yield_pct"],
		"net_yield_pct":       fin["net_yield_pct"],
		"price_per_sqft":      fin["price_per_sqft_aed"],
		"annual_chiller_cost": fin["annual_chiller_cost_aed"],
		"red_flags":           analysis["red_flags"],
	}
}

func intField(m map[string]any, key string) int {
	if f, ok := m[key].(float64); ok {
		return int(f)
	}
	if i, ok := m[key].(int); ok {
		return i
	}
	return 0
}
