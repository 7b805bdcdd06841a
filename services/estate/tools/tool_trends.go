// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"math"

	"github.com/truevalueai/truevalue/services/estate/zones"
	"github.com/truevalueai/truevalue/services/llm"
)

func (ts *toolset) marketTrendsTool() Definition {
	return Definition{
		Name: "get_market_trends",
		Description: "Get current market trends including average price per sqft, listing volumes, " +
			"estimated gross yield, and supply pipeline risk for a Dubai zone.",
		Schema: llm.ToolParameters{
			Type: "object",
			Properties: map[string]llm.ToolParamDef{
				"location": {
					Type:        "string",
					Description: "Zone slug or name (e.g. 'dubai-marina', 'business-bay')",
				},
				"purpose": {
					Type:        "string",
					Enum:        []any{"for-sale", "for-rent"},
					Description: "Sale or rental market",
				},
			},
			Required: []string{"location", "purpose"},
		},
		Handler: ts.marketTrends,
	}
}

// marketTrends aggregates over the same listing feed the search tool uses
// and enriches the result with zone yield and supply pipeline research.
func (ts *toolset) marketTrends(ctx context.Context, args map[string]any) (map[string]any, string) {
	location := argString(args, "location")
	purpose := argString(args, "purpose")

	listings, source := ts.searchListings(ctx, map[string]any{
		"location": location,
		"purpose":  purpose,
	})

	profile, known := ts.deps.Zones.Lookup(location)
	resolved := ts.deps.Zones.Normalize(location)

	props, _ := listings["properties"].([]any)
	var prices, areas []float64
	for _, p := range props {
		m, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if price, ok := m["price"].(float64); ok && price > 0 {
			prices = append(prices, price)
		}
		if area, ok := m["area"].(float64); ok && area > 0 {
			areas = append(areas, area)
		}
	}

	var avgPrice, avgArea, avgPsf float64
	priceRange := map[string]any{"min": 0.0, "max": 0.0}
	if len(prices) > 0 && len(areas) > 0 {
		avgPrice = mean(prices)
		avgArea = mean(areas)
		if avgArea > 0 {
			avgPsf = avgPrice / avgArea
		}
		lo, hi := prices[0], prices[0]
		for _, p := range prices[1:] {
			lo = math.Min(lo, p)
			hi = math.Max(hi, p)
		}
		priceRange = map[string]any{"min": lo, "max": hi}
	}

	// Yield is only meaningful against sale prices.
	var grossYieldEstimate any
	if purpose == "for-sale" && avgPrice > 0 {
		grossYieldEstimate = math.Round(profile.GrossYieldEstimate*100*100) / 100
	}

	activity := "Limited Listings"
	if len(props) >= 4 {
		activity = "Active"
	}

	var pipeline any
	if known && profile.Pipeline != nil {
		pipeline = pipelinePayload(profile)
	} else {
		pipeline = map[string]any{"note": "No pipeline data for this zone"}
	}

	return map[string]any{
		"success":                 true,
		"source":                  listings["source"],
		"location":                location,
		"location_resolved":       resolved,
		"purpose":                 purpose,
		"sample_count":            len(props),
		"avg_price_aed":           math.Round(avgPrice),
		"avg_area_sqft":           math.Round(avgArea),
		"avg_price_per_sqft_aed":  math.Round(avgPsf),
		"price_range_aed":         priceRange,
		"gross_yield_estimate_pct": grossYieldEstimate,
		"market_activity":         activity,
		"supply_pipeline":         pipeline,
	}, source
}

// pipelinePayload renders a zone's supply research block in the shape the
// pipeline and trends tools share.
func pipelinePayload(p *zones.Profile) map[string]any {
	out := map[string]any{
		"zone":           p.DisplayName,
		"risk_level":     p.SupplyRisk,
		"units_pipeline": p.Pipeline.UnitsPipeline,
		"current_supply": p.Pipeline.CurrentSupply,
		"notes":          p.Pipeline.Notes,
		"recommendation": p.Pipeline.Recommendation,
	}
	if p.Pipeline.RiskYear > 0 {
		out["risk_year"] = p.Pipeline.RiskYear
	} else {
		out["risk_year"] = nil
	}
	return out
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
