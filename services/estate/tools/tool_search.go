// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/truevalueai/truevalue/services/estate/zones"
	"github.com/truevalueai/truevalue/services/llm"
)

// bayutCategoryIDs maps property types to Bayut's category external IDs.
var bayutCategoryIDs = map[string]string{
	"apartment": "4",
	"villa":     "3",
	"townhouse": "18",
}

const bayutListURL = "https://bayut.p.rapidapi.com/properties/list"

// maxLiveListings caps how many upstream hits are forwarded to the model.
const maxLiveListings = 6

func (ts *toolset) searchListingsTool() Definition {
	return Definition{
		Name: "search_listings",
		Description: "Search Dubai property listings on Bayut (UAE's largest portal). " +
			"Returns properties with price, area, building name, chiller provider and key stats. " +
			"Use this to get current market listings for any Dubai zone.",
		Schema: llm.ToolParameters{
			Type: "object",
			Properties: map[string]llm.ToolParamDef{
				"location": {
					Type:        "string",
					Description: "Zone slug e.g. 'dubai-marina', 'business-bay', 'downtown-dubai', 'jumeirah-village-circle', 'jumeirah-beach-residence'",
				},
				"purpose": {
					Type:        "string",
					Enum:        []any{"for-sale", "for-rent"},
					Description: "Whether to search sale or rental listings",
				},
				"min_price": {
					Type:        "number",
					Description: "Minimum price in AED (optional)",
				},
				"max_price": {
					Type:        "number",
					Description: "Maximum price in AED (optional)",
				},
				"property_type": {
					Type:        "string",
					Enum:        []any{"apartment", "villa", "townhouse"},
					Description: "Property type filter (optional)",
				},
			},
			Required: []string{"location", "purpose"},
		},
		Handler: ts.searchListings,
	}
}

// searchListings is the handler for search_listings. It is also called by
// the market-trends tool, which aggregates over the same listing payload.
func (ts *toolset) searchListings(ctx context.Context, args map[string]any) (map[string]any, string) {
	location := argString(args, "location")
	purpose := argString(args, "purpose")

	if liveKeyUsable(ts.deps.BayutAPIKey) {
		if payload, ok := ts.searchListingsLive(ctx, args); ok {
			return payload, SourceLive
		}
	}

	ts.deps.Logger.Info("serving mock listings",
		slog.String("location", location),
		slog.String("purpose", purpose),
	)
	return ts.searchListingsMock(args), SourceMock
}

// searchListingsLive queries Bayut via RapidAPI. The false return means the
// caller should degrade to the mock tier.
func (ts *toolset) searchListingsLive(ctx context.Context, args map[string]any) (map[string]any, bool) {
	params := url.Values{}
	params.Set("locationExternalIDs", argString(args, "location"))
	params.Set("purpose", argString(args, "purpose"))
	params.Set("hitsPerPage", "10")
	params.Set("page", "0")
	params.Set("lang", "en")
	params.Set("sort", "date-desc")
	if v, ok := argFloat(args, "min_price"); ok && v > 0 {
		params.Set("priceMin", fmt.Sprintf("%.0f", v))
	}
	if v, ok := argFloat(args, "max_price"); ok && v > 0 {
		params.Set("priceMax", fmt.Sprintf("%.0f", v))
	}
	if pt := argString(args, "property_type"); pt != "" {
		id, ok := bayutCategoryIDs[strings.ToLower(pt)]
		if !ok {
			id = bayutCategoryIDs["apartment"]
		}
		params.Set("categoryExternalID", id)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bayutListURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("X-RapidAPI-Key", ts.deps.BayutAPIKey)
	req.Header.Set("X-RapidAPI-Host", "bayut.p.rapidapi.com")

	resp, err := ts.deps.HTTPClient.Do(req)
	if err != nil {
		ts.deps.Logger.Warn("listings upstream call failed, degrading to mock", slog.String("error", err.Error()))
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		ts.deps.Logger.Warn("listings upstream returned non-200, degrading to mock",
			slog.Int("status", resp.StatusCode))
		return nil, false
	}

	var body struct {
		NbHits int              `json:"nbHits"`
		Hits   []map[string]any `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		ts.deps.Logger.Warn("listings upstream response unparsable, degrading to mock",
			slog.String("error", err.Error()))
		return nil, false
	}

	hits := body.Hits
	if len(hits) > maxLiveListings {
		hits = hits[:maxLiveListings]
	}
	return map[string]any{
		"success":    true,
		"source":     "bayut_api",
		"total":      body.NbHits,
		"properties": hits,
	}, true
}

// searchListingsMock filters the deterministic zone pools. When the filters
// exclude everything, the unfiltered zone pool is returned so the model
// always has listings to reason over.
func (ts *toolset) searchListingsMock(args map[string]any) map[string]any {
	location := argString(args, "location")
	purpose := argString(args, "purpose")
	resolved := ts.deps.Zones.Normalize(location)

	pool := ts.deps.Zones.Listings(resolved)

	filtered := make([]zones.Listing, 0, len(pool))
	minPrice, hasMin := argFloat(args, "min_price")
	maxPrice, hasMax := argFloat(args, "max_price")
	propertyType := strings.ToLower(argString(args, "property_type"))
	for _, l := range pool {
		if l.Purpose != purpose {
			continue
		}
		if hasMin && float64(l.Price) < minPrice {
			continue
		}
		if hasMax && float64(l.Price) > maxPrice {
			continue
		}
		if propertyType != "" && strings.ToLower(l.PropertyType) != propertyType {
			continue
		}
		filtered = append(filtered, l)
	}
	if len(filtered) == 0 {
		filtered = pool
	}

	props := make([]any, len(filtered))
	for i, l := range filtered {
		props[i] = toMap(l)
	}
	return map[string]any{
		"success":           true,
		"source":            "mock_data",
		"note":              "Demo data — set BAYUT_API_KEY for live listings",
		"total":             len(filtered),
		"location_resolved": resolved,
		"properties":        props,
	}
}
