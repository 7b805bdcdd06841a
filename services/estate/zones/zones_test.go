// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package zones

import "testing"

func TestLoad_EmbeddedData(t *testing.T) {
	r, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(r.Profiles()) < 7 {
		t.Errorf("profiles = %d, want >= 7", len(r.Profiles()))
	}
	if r.DefaultProfile() == nil {
		t.Fatal("missing default profile")
	}
}

func TestNormalize_Aliases(t *testing.T) {
	r := Default()
	tests := []struct {
		in   string
		want string
	}{
		{"marina", "dubai-marina"},
		{"Dubai Marina", "dubai-marina"},
		{"  DOWNTOWN  ", "downtown-dubai"},
		{"jbr", "jumeirah-beach-residence"},
		{"jumeirah beach residence", "jumeirah-beach-residence"},
		{"JVC", "jumeirah-village-circle"},
		{"business bay", "business-bay"},
		{"businessbay", "business-bay"},
		{"dubai-marina", "dubai-marina"},
		{"al barsha", "al barsha"}, // unknown passes through
	}
	for _, tt := range tests {
		if got := r.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLookup_UnknownZoneGetsDefault(t *testing.T) {
	r := Default()
	p, known := r.Lookup("international city")
	if known {
		t.Error("unknown zone reported as known")
	}
	if p == nil {
		t.Fatal("Lookup returned nil profile")
	}
	if p != r.DefaultProfile() {
		t.Error("unknown zone should resolve to the default profile")
	}
	if p.AvgPricePerSqft != 1500 || p.ServiceChargePerSqft != 16 {
		t.Errorf("default profile = %+v", p)
	}
	if p.SupplyRisk != SupplyRiskModerate {
		t.Errorf("default supply risk = %q, want MODERATE", p.SupplyRisk)
	}
}

func TestProfiles_AllFieldsPopulated(t *testing.T) {
	r := Default()
	for slug, p := range r.Profiles() {
		if p.DisplayName == "" {
			t.Errorf("%s: missing display name", slug)
		}
		if p.GrossYieldEstimate <= 0 || p.GrossYieldEstimate >= 0.20 {
			t.Errorf("%s: implausible yield estimate %v", slug, p.GrossYieldEstimate)
		}
		if p.AvgPricePerSqft <= 0 {
			t.Errorf("%s: missing avg price per sqft", slug)
		}
		if p.LiquidityIndex <= 0 || p.LiquidityIndex > 20 {
			t.Errorf("%s: liquidity index %d out of range", slug, p.LiquidityIndex)
		}
		if p.ServiceChargePerSqft <= 0 {
			t.Errorf("%s: missing service charge", slug)
		}
		switch p.SupplyRisk {
		case SupplyRiskLow, SupplyRiskModerate, SupplyRiskHigh, SupplyRiskVeryHigh:
		default:
			t.Errorf("%s: unknown supply risk %q", slug, p.SupplyRisk)
		}
		if p.Pipeline == nil {
			t.Errorf("%s: missing pipeline block", slug)
		}
	}
}

func TestProfiles_ResearchValues(t *testing.T) {
	r := Default()

	marina := r.Resolve("dubai-marina")
	if marina.AvgPricePerSqft != 1600 || marina.LiquidityIndex != 18 {
		t.Errorf("marina = %+v", marina)
	}
	if marina.Pipeline.UnitsPipeline != 4200 || marina.Pipeline.CurrentSupply != 38000 {
		t.Errorf("marina pipeline = %+v", marina.Pipeline)
	}

	jvc := r.Resolve("jvc")
	if jvc.SupplyRisk != SupplyRiskHigh || jvc.GrossYieldEstimate != 0.080 {
		t.Errorf("jvc = %+v", jvc)
	}

	south := r.Resolve("dubai south")
	if south.SupplyRisk != SupplyRiskVeryHigh || south.Pipeline.RiskYear != 2027 {
		t.Errorf("dubai-south = %+v", south)
	}

	downtown := r.Resolve("downtown")
	if downtown.LiquidityIndex != 20 || downtown.ServiceChargePerSqft != 25 {
		t.Errorf("downtown = %+v", downtown)
	}
}

func TestListings_PoolsAndFallback(t *testing.T) {
	r := Default()

	pool := r.Listings("marina")
	if len(pool) != 5 {
		t.Fatalf("marina pool = %d listings, want 5", len(pool))
	}
	for _, l := range pool {
		if l.ID == "" || l.Price <= 0 || l.Area <= 0 {
			t.Errorf("malformed listing %+v", l)
		}
		if l.Purpose != "for-sale" && l.Purpose != "for-rent" {
			t.Errorf("listing %s: bad purpose %q", l.ID, l.Purpose)
		}
	}

	// Unknown zones fall back to the marina pool.
	fallback := r.Listings("dubai-south")
	if len(fallback) == 0 {
		t.Fatal("fallback pool is empty")
	}
	if fallback[0].Location != "Dubai Marina" {
		t.Errorf("fallback pool from %q, want Dubai Marina", fallback[0].Location)
	}
	if r.HasListings("dubai-south") {
		t.Error("dubai-south should not have its own pool")
	}
	if !r.HasListings("jbr") {
		t.Error("jbr should have its own pool")
	}
}
