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
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/truevalueai/truevalue/services/llm"
)

const dubaiRESTDeedURL = "https://dubairest.gov.ae/api/property/title-deed/"

func (ts *toolset) titleDeedTool() Definition {
	return Definition{
		Name: "verify_title_deed",
		Description: "Verify property title deed authenticity and ownership status via Dubai DLD/REST API. " +
			"Essential for fraud prevention and legal due diligence before any transaction.",
		Schema: llm.ToolParameters{
			Type: "object",
			Properties: map[string]llm.ToolParamDef{
				"title_deed_number": {
					Type:        "string",
					Description: "The DLD title deed number from the property documents",
				},
			},
			Required: []string{"title_deed_number"},
		},
		Handler: ts.verifyTitleDeed,
	}
}

func (ts *toolset) verifyTitleDeed(ctx context.Context, args map[string]any) (map[string]any, string) {
	deedNumber := argString(args, "title_deed_number")

	if liveKeyUsable(ts.deps.DubaiRESTAPIKey) {
		if payload, ok := ts.verifyTitleDeedLive(ctx, deedNumber); ok {
			return payload, SourceLive
		}
	}

	ts.deps.Logger.Info("serving mock title deed verification", slog.String("deed", deedNumber))
	return titleDeedMock(deedNumber), SourceMock
}

func (ts *toolset) verifyTitleDeedLive(ctx context.Context, deedNumber string) (map[string]any, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		dubaiRESTDeedURL+url.PathEscape(deedNumber), nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("Authorization", "Bearer "+ts.deps.DubaiRESTAPIKey)

	resp, err := ts.deps.HTTPClient.Do(req)
	if err != nil {
		ts.deps.Logger.Warn("title deed upstream call failed, degrading to mock",
			slog.String("error", err.Error()))
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		ts.deps.Logger.Warn("title deed upstream returned non-200, degrading to mock",
			slog.Int("status", resp.StatusCode))
		return nil, false
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, false
	}
	return map[string]any{
		"success": true,
		"source":  "dubai_rest_api",
		"data":    data,
	}, true
}

// titleDeedMock simulates a clean verified deed.
func titleDeedMock(deedNumber string) map[string]any {
	ref := strings.ToUpper(deedNumber)
	if len(ref) > 6 {
		ref = ref[len(ref)-6:]
	}
	return map[string]any{
		"success":              true,
		"source":               "mock_data",
		"note":                 "Demo verification — set DUBAI_REST_API_KEY for live DLD data",
		"title_deed_number":    deedNumber,
		"status":               "VERIFIED",
		"ownership_type":       "Freehold",
		"encumbrances":         "None registered",
		"mortgages":            "No active mortgage",
		"area_sqft_registered": "Per unit floor plan",
		"dld_reference":        "DLD-" + ref,
		"last_transaction_year": 2022,
		"warnings":             []any{},
		"recommendation": "Title appears clean in mock verification. " +
			"Always obtain official DLD Oqood printout and NOC from developer before transfer.",
	}
}
