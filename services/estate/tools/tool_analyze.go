// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"log/slog"

	"github.com/truevalueai/truevalue/services/estate/scoring"
	"github.com/truevalueai/truevalue/services/llm"
)

func (ts *toolset) analyzeInvestmentTool() Definition {
	return Definition{
		Name: "analyze_investment",
		Description: "Run full investment analysis and generate a GO/NO-GO recommendation. " +
			"Scores the property 0–100 across Price, Yield, Liquidity, Quality, and Chiller pillars. " +
			"Returns net yield after all costs, red flags, and investment grade rating.",
		Schema: llm.ToolParameters{
			Type: "object",
			Properties: map[string]llm.ToolParamDef{
				"property_price": {
					Type:        "number",
					Description: "Total purchase price in AED",
				},
				"area_sqft": {
					Type:        "number",
					Description: "Property area in square feet",
				},
				"annual_rent": {
					Type:        "number",
					Description: "Expected annual rental income in AED",
				},
				"location": {
					Type:        "string",
					Description: "Zone name or slug (e.g. 'dubai-marina', 'business-bay')",
				},
				"chiller_provider": {
					Type:        "string",
					Enum:        []any{"empower", "lootah"},
					Description: "District cooling provider for the building",
				},
			},
			Required: []string{"property_price", "area_sqft", "annual_rent", "location", "chiller_provider"},
		},
		Handler: ts.analyzeInvestment,
	}
}

func (ts *toolset) analyzeInvestment(ctx context.Context, args map[string]any) (map[string]any, string) {
	price, _ := argFloat(args, "property_price")
	area, _ := argFloat(args, "area_sqft")
	rent, _ := argFloat(args, "annual_rent")
	location := argString(args, "location")
	provider := argString(args, "chiller_provider")

	return ts.runAnalysis(price, area, rent, location, provider), SourceLive
}

// runAnalysis is the shared scoring path for analyze_investment and
// compare_properties. A failed chiller estimate does not abort the analysis;
// the scorer treats a nil estimate as a MEDIUM warning with zero cost.
func (ts *toolset) runAnalysis(price, area, rent float64, location, provider string) map[string]any {
	profile := ts.deps.Zones.Resolve(location)

	chiller, err := scoring.EstimateChillerCost(provider, area)
	if err != nil {
		ts.deps.Logger.Warn("chiller estimate unavailable for analysis",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		chiller = nil
	}

	breakdown := scoring.Score(scoring.Input{
		Price:      price,
		AreaSqft:   area,
		AnnualRent: rent,
		Zone:       profile,
		Chiller:    chiller,
	})

	payload := toMap(breakdown)
	payload["success"] = true
	return payload
}
