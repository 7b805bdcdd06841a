// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scoring

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/truevalueai/truevalue/services/estate/zones"
)

func marinaInput(t *testing.T) Input {
	t.Helper()
	chiller, err := EstimateChillerCost("empower", 1500)
	if err != nil {
		t.Fatalf("EstimateChillerCost: %v", err)
	}
	return Input{
		Price:      2_000_000,
		AreaSqft:   1500,
		AnnualRent: 120_000, // 6% gross
		Zone:       zones.Default().Resolve("dubai-marina"),
		Chiller:    chiller,
	}
}

func TestScore_WeightsSumTo100(t *testing.T) {
	if sum := MaxPriceScore + MaxYieldScore + MaxLiquidityScore + MaxQualityScore + MaxChillerScore; sum != 100 {
		t.Errorf("pillar maxima sum to %d, want 100", sum)
	}
}

func TestScore_Marina1500SqftSixPercent(t *testing.T) {
	b := Score(marinaInput(t))

	// psf 1333 vs 1600 avg → deep value 30; 6% gross → 18; marina
	// liquidity 18; MODERATE supply → 11; LOW chiller warning with the
	// Empower trap → 8.
	if b.Pillars.Price.Score != 30 {
		t.Errorf("price pillar = %d, want 30", b.Pillars.Price.Score)
	}
	if b.Pillars.Yield.Score != 18 {
		t.Errorf("yield pillar = %d, want 18", b.Pillars.Yield.Score)
	}
	if b.Pillars.Liquidity.Score != 18 {
		t.Errorf("liquidity pillar = %d, want 18", b.Pillars.Liquidity.Score)
	}
	if b.Pillars.Quality.Score != 11 {
		t.Errorf("quality pillar = %d, want 11", b.Pillars.Quality.Score)
	}
	if b.Pillars.Chiller.Score != 8 {
		t.Errorf("chiller pillar = %d, want 8", b.Pillars.Chiller.Score)
	}
	if b.Total != 85 {
		t.Errorf("total = %d, want 85", b.Total)
	}
	if b.Verdict != VerdictStrongBuy {
		t.Errorf("verdict = %q, want STRONG BUY", b.Verdict)
	}

	// Financials: net income = rent - chiller - service charge.
	f := b.Financials
	if f.AnnualServiceChargeAED != 27000 {
		t.Errorf("service charge = %v, want 27000", f.AnnualServiceChargeAED)
	}
	if f.AnnualNetIncomeAED != 87546 {
		t.Errorf("net income = %v, want 87546", f.AnnualNetIncomeAED)
	}
	if f.GrossYieldPct != 6.0 {
		t.Errorf("gross yield = %v, want 6.0", f.GrossYieldPct)
	}
	if f.NetYieldPct < 4.3 || f.NetYieldPct > 4.5 {
		t.Errorf("net yield = %v, want ~4.38", f.NetYieldPct)
	}

	// The Empower trap is the only expected red flag here.
	if len(b.RedFlags) != 1 || !strings.Contains(b.RedFlags[0], "Empower") {
		t.Errorf("red flags = %v", b.RedFlags)
	}
}

func TestScore_CleanPropertyHasEmptyRedFlagList(t *testing.T) {
	// Lootah, fair price, healthy yields: nothing fires. The list must
	// still serialize as [] — model payloads carry red_flags on every
	// analysis and null reads as "scoring failed", not "no concerns".
	chiller, err := EstimateChillerCost("lootah", 1500)
	if err != nil {
		t.Fatalf("EstimateChillerCost: %v", err)
	}
	in := marinaInput(t)
	in.Chiller = chiller
	b := Score(in)

	if b.RedFlags == nil {
		t.Fatal("RedFlags is nil, want empty list")
	}
	if len(b.RedFlags) != 0 {
		t.Fatalf("red flags = %v, want none", b.RedFlags)
	}
	raw, err := json.Marshal(b.RedFlags)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != "[]" {
		t.Errorf("red_flags serializes as %s, want []", raw)
	}
}

func TestScore_Deterministic(t *testing.T) {
	in := marinaInput(t)
	a := Score(in)
	b := Score(in)
	if !reflect.DeepEqual(a, b) {
		t.Error("identical inputs produced different breakdowns")
	}
}

func TestScore_YieldMonotonic(t *testing.T) {
	in := marinaInput(t)
	prev := -1
	for rent := 40_000.0; rent <= 200_000; rent += 10_000 {
		in.AnnualRent = rent
		total := Score(in).Total
		if total < prev {
			t.Fatalf("total dropped from %d to %d when rent rose to %.0f", prev, total, rent)
		}
		prev = total
	}
}

func TestScore_PriceMonotonic(t *testing.T) {
	in := marinaInput(t)
	in.AnnualRent = 0 // isolate the price pillar from yield coupling
	prev := 101
	for price := 1_000_000.0; price <= 4_000_000; price += 100_000 {
		in.Price = price
		total := Score(in).Total
		if total > prev {
			t.Fatalf("total rose from %d to %d when price rose to %.0f", prev, total, price)
		}
		prev = total
	}
}

func TestScore_VerdictBandsPartition(t *testing.T) {
	bands := map[string][2]int{
		VerdictDoNotBuy:  {0, 19},
		VerdictNegotiate: {20, 39},
		VerdictCaution:   {40, 59},
		VerdictGoodBuy:   {60, 79},
		VerdictStrongBuy: {80, 100},
	}
	for total := 0; total <= 100; total++ {
		verdict, _, _ := verdictFor(total)
		rng, ok := bands[verdict]
		if !ok {
			t.Fatalf("total %d mapped to unknown verdict %q", total, verdict)
		}
		if total < rng[0] || total > rng[1] {
			t.Errorf("total %d mapped to %q, outside [%d, %d]", total, verdict, rng[0], rng[1])
		}
	}
}

func TestScore_OversupplyZoneFlagged(t *testing.T) {
	chiller, _ := EstimateChillerCost("lootah", 650)
	b := Score(Input{
		Price:      580_000,
		AreaSqft:   650,
		AnnualRent: 46_400, // 8% gross — JVC headline yield
		Zone:       zones.Default().Resolve("jvc"),
		Chiller:    chiller,
	})

	// HIGH supply risk caps quality at 6 even with a strong yield.
	if b.Pillars.Quality.Score != 6 {
		t.Errorf("quality pillar = %d, want 6", b.Pillars.Quality.Score)
	}
	found := false
	for _, f := range b.RedFlags {
		if strings.Contains(f, "oversupply") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing oversupply red flag: %v", b.RedFlags)
	}
}

func TestScore_NilChillerDegradesGracefully(t *testing.T) {
	in := marinaInput(t)
	in.Chiller = nil
	b := Score(in)

	// No estimate → MEDIUM band without trap deduction, zero cost.
	if b.Pillars.Chiller.Score != 6 {
		t.Errorf("chiller pillar = %d, want 6", b.Pillars.Chiller.Score)
	}
	if b.Financials.AnnualChillerCostAED != 0 {
		t.Errorf("chiller cost = %v, want 0", b.Financials.AnnualChillerCostAED)
	}
}

func TestScore_UnknownZoneUsesDefaults(t *testing.T) {
	chiller, _ := EstimateChillerCost("empower", 1000)
	b := Score(Input{
		Price:      1_500_000,
		AreaSqft:   1000,
		AnnualRent: 90_000,
		Zone:       zones.Default().Resolve("al barsha"),
		Chiller:    chiller,
	})
	if b.Pillars.Liquidity.Score != 12 {
		t.Errorf("liquidity pillar = %d, want default 12", b.Pillars.Liquidity.Score)
	}
	if b.Pillars.Quality.Score != 11 {
		t.Errorf("quality pillar = %d, want MODERATE default 11", b.Pillars.Quality.Score)
	}
}

func TestScore_TotalClamped(t *testing.T) {
	// Worst case everything: tiny yield, overpriced, weak zone.
	chiller, _ := EstimateChillerCost("empower", 400)
	b := Score(Input{
		Price:      2_000_000,
		AreaSqft:   400,
		AnnualRent: 10_000,
		Zone:       zones.Default().Resolve("dubai south"),
		Chiller:    chiller,
	})
	if b.Total < 0 || b.Total > 100 {
		t.Errorf("total = %d, outside [0, 100]", b.Total)
	}
	if b.Verdict != VerdictDoNotBuy && b.Verdict != VerdictNegotiate {
		t.Errorf("verdict = %q for a terrible deal", b.Verdict)
	}
}
