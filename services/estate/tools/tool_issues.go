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
	"time"

	"github.com/truevalueai/truevalue/services/llm"
)

const redditSearchURL = "https://www.reddit.com/r/dubai/search.json"

// redditIssueKeywords are OR'd into the search query to surface snagging
// and defect threads about a building.
var redditIssueKeywords = []string{
	"snagging", "defect", "leak", "maintenance", "issue", "problem", "mould", "mold",
}

func (ts *toolset) buildingIssuesTool() Definition {
	return Definition{
		Name: "search_building_issues",
		Description: "Search for reported snagging defects, maintenance issues, leaks, and resident complaints " +
			"about a specific building. Uses Reddit r/dubai data. " +
			"Run this as part of technical due diligence on any property under consideration.",
		Schema: llm.ToolParameters{
			Type: "object",
			Properties: map[string]llm.ToolParamDef{
				"building_name": {
					Type:        "string",
					Description: "Name of the building or development to search",
				},
			},
			Required: []string{"building_name"},
		},
		Handler: ts.buildingIssues,
	}
}

func (ts *toolset) buildingIssues(ctx context.Context, args map[string]any) (map[string]any, string) {
	building := argString(args, "building_name")

	if ts.deps.RedditUserAgent != "" {
		if payload, ok := ts.buildingIssuesLive(ctx, building); ok {
			return payload, SourceLive
		}
	}

	ts.deps.Logger.Info("serving mock building issue data", slog.String("building", building))
	return buildingIssuesMock(building), SourceMock
}

func (ts *toolset) buildingIssuesLive(ctx context.Context, building string) (map[string]any, bool) {
	query := fmt.Sprintf("%s (%s)", building, strings.Join(redditIssueKeywords, " OR "))
	params := url.Values{}
	params.Set("q", query)
	params.Set("restrict_sr", "1")
	params.Set("limit", "10")
	params.Set("t", "year")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, redditSearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("User-Agent", ts.deps.RedditUserAgent)

	resp, err := ts.deps.HTTPClient.Do(req)
	if err != nil {
		ts.deps.Logger.Warn("reddit search failed, degrading to mock", slog.String("error", err.Error()))
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		ts.deps.Logger.Warn("reddit search returned non-200, degrading to mock",
			slog.Int("status", resp.StatusCode))
		return nil, false
	}

	var body struct {
		Data struct {
			Children []struct {
				Data struct {
					Title       string  `json:"title"`
					Score       int     `json:"score"`
					Permalink   string  `json:"permalink"`
					CreatedUTC  float64 `json:"created_utc"`
					NumComments int     `json:"num_comments"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false
	}

	posts := make([]any, 0, len(body.Data.Children))
	for _, child := range body.Data.Children {
		d := child.Data
		posts = append(posts, map[string]any{
			"title":    d.Title,
			"score":    d.Score,
			"url":      "https://reddit.com" + d.Permalink,
			"date":     time.Unix(int64(d.CreatedUTC), 0).UTC().Format("2006-01-02"),
			"comments": d.NumComments,
		})
	}

	risk := "LOW"
	switch {
	case len(posts) >= 5:
		risk = "HIGH"
	case len(posts) >= 2:
		risk = "MEDIUM"
	}

	return map[string]any{
		"success":     true,
		"source":      "reddit_search",
		"building":    building,
		"posts_found": len(posts),
		"results":     posts,
		"risk_signal": risk,
	}, true
}

// buildingIssuesMock returns curated snagging profiles keyed by building
// name fragments. Unrecognized buildings report UNKNOWN rather than a
// fabricated clean bill.
func buildingIssuesMock(building string) map[string]any {
	nameLower := strings.ToLower(building)
	contains := func(fragments ...string) bool {
		for _, f := range fragments {
			if strings.Contains(nameLower, f) {
				return true
			}
		}
		return false
	}

	var issues []any
	var risk string
	switch {
	case contains("executive tower", "executive towers"):
		issues = []any{
			issueEntry("Water ingress reported on upper floors", "HIGH", 2023),
			issueEntry("Lift maintenance backlogs", "MEDIUM", 2023),
			issueEntry("Chiller billing disputes — residents contest Empower invoices", "HIGH", 2022),
		}
		risk = "HIGH"
	case contains("sadaf", "murjan", "rimal", "shams"):
		issues = []any{
			issueEntry("Aging plumbing — reports of leaks in bathrooms", "MEDIUM", 2023),
			issueEntry("Facade cracks noted — building 15+ years old", "MEDIUM", 2022),
			issueEntry("Elevated service charges — RERA cap disputes", "LOW", 2023),
		}
		risk = "MEDIUM"
	case contains("marina gate", "cayan"):
		issues = []any{
			issueEntry("Minor snagging in handover units", "LOW", 2022),
			issueEntry("Empower chiller billing disputes common", "MEDIUM", 2023),
		}
		risk = "LOW"
	case contains("binghatti", "prime residency", "ghalia", "belgravia"):
		issues = []any{
			issueEntry("Finishing quality complaints vs. brochure", "MEDIUM", 2023),
			issueEntry("Delays in handover snagging rectification", "MEDIUM", 2023),
		}
		risk = "MEDIUM"
	default:
		issues = []any{
			issueEntry("No significant community reports found in reference dataset", "UNKNOWN", 2024),
		}
		risk = "UNKNOWN"
	}

	return map[string]any{
		"success":      true,
		"source":       "mock_data",
		"note":         "Set REDDIT_USER_AGENT for live Reddit search",
		"building":     building,
		"issues_found": len(issues),
		"risk_signal":  risk,
		"issues":       issues,
		"recommendation": "Request RERA service charge history, developer snagging reports, " +
			"and building inspection records before completing purchase.",
	}
}

func issueEntry(issue, severity string, year int) map[string]any {
	return map[string]any{"issue": issue, "severity": severity, "year": year}
}
