// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package scoring is the deterministic investment analysis core: district
// cooling cost math and the five-pillar 0–100 scorer. It performs no I/O and
// never calls the model — identical inputs always produce identical output.
package scoring

import (
	"fmt"
	"math"

	"github.com/truevalueai/truevalue/services/estate/zones"
)

// Pillar weights. They sum to 100; TestWeightsSumTo100 enforces it.
const (
	MaxPriceScore     = 30
	MaxYieldScore     = 25
	MaxLiquidityScore = 20
	MaxQualityScore   = 15
	MaxChillerScore   = 10
)

// Verdict bands. Thresholds are lower bounds; together the bands partition
// every total in [0, 100] exactly once.
const (
	VerdictStrongBuy = "STRONG BUY"
	VerdictGoodBuy   = "GOOD BUY"
	VerdictCaution   = "CAUTION"
	VerdictNegotiate = "NEGOTIATE"
	VerdictDoNotBuy  = "DO NOT BUY"
)

// Input carries everything the scorer needs. Zone must not be nil — pass
// the registry's default profile for unknown zones. Chiller may be nil when
// the cooling estimate failed; the chiller pillar then scores as MEDIUM with
// no trap deduction and zero annual cost.
type Input struct {
	Price      float64
	AreaSqft   float64
	AnnualRent float64
	Zone       *zones.Profile
	Chiller    *ChillerCost
}

// PillarScore is one pillar's contribution with its ceiling and a short
// human-readable note.
type PillarScore struct {
	Score int    `json:"score"`
	Max   int    `json:"max"`
	Note  string `json:"note"`
}

// Pillars groups the five pillar scores.
type Pillars struct {
	Price     PillarScore `json:"price_score"`
	Yield     PillarScore `json:"yield_score"`
	Liquidity PillarScore `json:"liquidity_score"`
	Quality   PillarScore `json:"quality_score"`
	Chiller   PillarScore `json:"chiller_score"`
}

// Financials is the cost-adjusted income summary.
type Financials struct {
	PropertyPriceAED       float64 `json:"property_price_aed"`
	AreaSqft               float64 `json:"area_sqft"`
	PricePerSqftAED        float64 `json:"price_per_sqft_aed"`
	ZoneAvgPsfAED          float64 `json:"zone_avg_psf_aed"`
	AnnualGrossRentAED     float64 `json:"annual_gross_rent_aed"`
	AnnualChillerCostAED   float64 `json:"annual_chiller_cost_aed"`
	AnnualServiceChargeAED float64 `json:"annual_service_charge_aed"`
	AnnualNetIncomeAED     float64 `json:"annual_net_income_aed"`
	GrossYieldPct          float64 `json:"gross_yield_pct"`
	NetYieldPct            float64 `json:"net_yield_pct"`
	ServiceChargePsfAED    float64 `json:"estimated_service_charge_psf"`
}

// Breakdown is the complete scoring result.
type Breakdown struct {
	Total      int        `json:"investment_score"`
	Verdict    string     `json:"recommendation"`
	Signal     string     `json:"signal"`
	Summary    string     `json:"summary"`
	RedFlags   []string   `json:"red_flags"`
	Pillars    Pillars    `json:"score_breakdown"`
	Financials Financials `json:"financial_summary"`
}

// Score runs the five-pillar analysis.
//
// # Description
//
// Pillars: price vs zone average (30), gross yield (25), zone liquidity
// (20), supply-risk quality (15), chiller burden (10). The total is clamped
// to [0, 100] and mapped to exactly one verdict band. Monotonic by
// construction: improving one pillar's input while holding the others fixed
// never lowers the total.
//
// # Thread Safety
//
// Pure function. Safe for concurrent use.
func Score(in Input) Breakdown {
	zone := in.Zone

	var annualChiller float64
	chillerWarning := ChillerWarningMedium
	chillerTrap := false
	if in.Chiller != nil {
		annualChiller = in.Chiller.TotalAnnualAED
		chillerWarning = in.Chiller.WarningLevel
		chillerTrap = in.Chiller.TrapDetected
	}

	var pricePerSqft float64
	if in.AreaSqft > 0 {
		pricePerSqft = in.Price / in.AreaSqft
	}
	var grossYieldPct float64
	if in.Price > 0 {
		grossYieldPct = in.AnnualRent / in.Price * 100
	}

	annualServiceCharge := zone.ServiceChargePerSqft * in.AreaSqft
	netIncome := in.AnnualRent - annualChiller - annualServiceCharge
	var netYieldPct float64
	if in.Price > 0 {
		netYieldPct = netIncome / in.Price * 100
	}

	// Pillar 1: price vs zone average.
	psfRatio := 1.0
	if zone.AvgPricePerSqft > 0 {
		psfRatio = pricePerSqft / zone.AvgPricePerSqft
	}
	var priceScore int
	switch {
	case psfRatio <= 0.85:
		priceScore = 30 // deep value
	case psfRatio <= 0.95:
		priceScore = 25
	case psfRatio <= 1.05:
		priceScore = 20
	case psfRatio <= 1.15:
		priceScore = 12
	default:
		priceScore = 5 // overpriced
	}

	// Pillar 2: gross yield.
	var yieldScore int
	switch {
	case grossYieldPct >= 8.0:
		yieldScore = 25
	case grossYieldPct >= 7.0:
		yieldScore = 22
	case grossYieldPct >= 6.0:
		yieldScore = 18
	case grossYieldPct >= 5.0:
		yieldScore = 12
	case grossYieldPct >= 4.0:
		yieldScore = 7
	default:
		yieldScore = 2
	}

	// Pillar 3: zone liquidity, straight from the profile.
	liquidityScore := zone.LiquidityIndex

	// Pillar 4: supply-risk quality.
	var qualityScore int
	switch zone.SupplyRisk {
	case zones.SupplyRiskLow:
		qualityScore = 15
	case zones.SupplyRiskModerate:
		qualityScore = 11
	case zones.SupplyRiskHigh:
		qualityScore = 6
	case zones.SupplyRiskVeryHigh:
		qualityScore = 2
	default:
		qualityScore = 8
	}

	// Pillar 5: chiller burden, with the trap deduction.
	var chillerScore int
	switch chillerWarning {
	case ChillerWarningLow:
		chillerScore = 10
	case ChillerWarningHigh:
		chillerScore = 2
	default:
		chillerScore = 6
	}
	if chillerTrap {
		chillerScore = max(0, chillerScore-2)
	}

	total := priceScore + yieldScore + liquidityScore + qualityScore + chillerScore
	total = min(100, max(0, total))

	verdict, signal, summary := verdictFor(total)

	// Always a list, never null, so a clean property serializes as [].
	redFlags := []string{}
	if chillerTrap {
		redFlags = append(redFlags, "Empower fixed capacity charges will erode net yield significantly")
	}
	if zone.SupplyRisk == zones.SupplyRiskHigh || zone.SupplyRisk == zones.SupplyRiskVeryHigh {
		redFlags = append(redFlags, fmt.Sprintf("High oversupply risk in %s — rental and capital values at risk", zone.Slug))
	}
	if grossYieldPct < 5.0 {
		redFlags = append(redFlags, fmt.Sprintf("Gross yield of %.1f%% is below Dubai minimum threshold of 5%%", grossYieldPct))
	}
	if netYieldPct < 3.0 {
		redFlags = append(redFlags, fmt.Sprintf("Net yield of %.1f%% after costs is very weak", netYieldPct))
	}
	if psfRatio > 1.15 {
		redFlags = append(redFlags, fmt.Sprintf("Price per sqft (AED %.0f) is %.0f%% above zone average", pricePerSqft, (psfRatio-1)*100))
	}

	chillerProvider := "unknown"
	if in.Chiller != nil {
		chillerProvider = in.Chiller.Provider
	}

	return Breakdown{
		Total:    total,
		Verdict:  verdict,
		Signal:   signal,
		Summary:  summary,
		RedFlags: redFlags,
		Pillars: Pillars{
			Price: PillarScore{Score: priceScore, Max: MaxPriceScore,
				Note: fmt.Sprintf("AED %.0f/sqft vs zone avg AED %.0f/sqft", pricePerSqft, zone.AvgPricePerSqft)},
			Yield: PillarScore{Score: yieldScore, Max: MaxYieldScore,
				Note: fmt.Sprintf("Gross yield %.1f%%", grossYieldPct)},
			Liquidity: PillarScore{Score: liquidityScore, Max: MaxLiquidityScore,
				Note: fmt.Sprintf("Zone: %s", zone.Slug)},
			Quality: PillarScore{Score: qualityScore, Max: MaxQualityScore,
				Note: fmt.Sprintf("Supply risk: %s", zone.SupplyRisk)},
			Chiller: PillarScore{Score: chillerScore, Max: MaxChillerScore,
				Note: fmt.Sprintf("%s — %s warning", chillerProvider, chillerWarning)},
		},
		Financials: Financials{
			PropertyPriceAED:       in.Price,
			AreaSqft:               in.AreaSqft,
			PricePerSqftAED:        math.Round(pricePerSqft),
			ZoneAvgPsfAED:          zone.AvgPricePerSqft,
			AnnualGrossRentAED:     in.AnnualRent,
			AnnualChillerCostAED:   math.Round(annualChiller),
			AnnualServiceChargeAED: math.Round(annualServiceCharge),
			AnnualNetIncomeAED:     math.Round(netIncome),
			GrossYieldPct:          round2(grossYieldPct),
			NetYieldPct:            round2(netYieldPct),
			ServiceChargePsfAED:    zone.ServiceChargePerSqft,
		},
	}
}

// verdictFor maps a clamped total to its band. Bands are contiguous and
// cover [0, 100] with no gaps or overlaps.
func verdictFor(total int) (verdict, signal, summary string) {
	switch {
	case total >= 80:
		return VerdictStrongBuy, "GREEN LIGHT",
			"Exceptional opportunity. Strong fundamentals across all pillars. Act decisively."
	case total >= 60:
		return VerdictGoodBuy, "GREEN LIGHT",
			"Solid investment case. Minor concerns but fundamentals are positive."
	case total >= 40:
		return VerdictCaution, "YELLOW LIGHT",
			"Mixed signals. Address red flags before proceeding. Negotiate on price."
	case total >= 20:
		return VerdictNegotiate, "ORANGE LIGHT",
			"Significant concerns. Only proceed at a meaningful price discount."
	default:
		return VerdictDoNotBuy, "RED LIGHT",
			"Too many red flags. Walk away unless fundamentals change dramatically."
	}
}
