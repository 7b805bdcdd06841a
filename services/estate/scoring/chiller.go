// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scoring

import (
	"fmt"
	"math"
	"strings"
)

// District cooling rules of thumb for Dubai residential stock.
const (
	sqftPerTR      = 286.0 // 1 ton of refrigeration per ~286 sqft
	kwhPerSqftYear = 12.0  // ~12 kWh consumption per sqft per year

	// Cost-per-sqft warning thresholds, AED per sqft per year.
	chillerHighThreshold   = 15.0
	chillerMediumThreshold = 10.0
)

// Chiller warning levels.
const (
	ChillerWarningLow    = "LOW"
	ChillerWarningMedium = "MEDIUM"
	ChillerWarningHigh   = "HIGH"
)

// chillerRate describes one district cooling provider's tariff structure.
type chillerRate struct {
	consumptionFilsPerKWh float64
	capacityAEDPerTRMonth float64
	hasFixedCharges       bool
}

// chillerRates covers the two providers serving the zones in the reference
// data. Empower's fixed capacity charge is the "chiller trap": it accrues
// whether or not the unit is occupied.
var chillerRates = map[string]chillerRate{
	"empower": {
		consumptionFilsPerKWh: 0.58,
		capacityAEDPerTRMonth: 85.0,
		hasFixedCharges:       true,
	},
	"lootah": {
		consumptionFilsPerKWh: 0.52,
		capacityAEDPerTRMonth: 0.0,
		hasFixedCharges:       false,
	},
}

// ChillerCost is the annual district cooling cost estimate for one unit.
type ChillerCost struct {
	Provider string  `json:"provider"`
	AreaSqft float64 `json:"area_sqft"`

	EstimatedCapacityTR float64 `json:"estimated_capacity_tr"`
	AnnualKWh           float64 `json:"annual_kwh_estimated"`

	ConsumptionCostAED float64 `json:"annual_consumption_cost_aed"`
	CapacityCostAED    float64 `json:"annual_capacity_cost_aed"`
	TotalAnnualAED     float64 `json:"total_annual_cost_aed"`
	MonthlyAED         float64 `json:"monthly_cost_aed"`
	CostPerSqftYear    float64 `json:"cost_per_sqft_per_year_aed"`

	// WarningLevel is LOW, MEDIUM, or HIGH based on cost per sqft.
	WarningLevel string `json:"warning_level"`
	WarningNote  string `json:"warning_note"`

	// TrapDetected is true for providers with fixed capacity charges.
	TrapDetected    bool   `json:"chiller_trap_detected"`
	TrapExplanation string `json:"chiller_trap_explanation"`
}

// ErrUnknownProvider is returned for providers outside the tariff table.
type ErrUnknownProvider struct {
	Provider string
}

func (e *ErrUnknownProvider) Error() string {
	return fmt.Sprintf("unknown chiller provider %q (supported: empower, lootah)", e.Provider)
}

// EstimateChillerCost computes the annual cooling cost for a provider and
// unit area. Pure math — no I/O, fully deterministic.
//
// # Inputs
//
//   - provider: Provider name, case-insensitive ("Empower", "lootah").
//   - areaSqft: Unit area in sqft. Must be positive.
//
// # Outputs
//
//   - *ChillerCost: Full cost breakdown. Nil on error.
//   - error: *ErrUnknownProvider for unsupported providers, or a plain error
//     for a non-positive area.
func EstimateChillerCost(provider string, areaSqft float64) (*ChillerCost, error) {
	prov := strings.ToLower(strings.TrimSpace(provider))
	rate, ok := chillerRates[prov]
	if !ok {
		return nil, &ErrUnknownProvider{Provider: provider}
	}
	if areaSqft <= 0 {
		return nil, fmt.Errorf("area_sqft must be positive, got %v", areaSqft)
	}

	estimatedTR := areaSqft / sqftPerTR
	annualKWh := areaSqft * kwhPerSqftYear

	consumptionCost := annualKWh * (rate.consumptionFilsPerKWh / 100.0)
	capacityCost := estimatedTR * rate.capacityAEDPerTRMonth * 12.0
	totalAnnual := consumptionCost + capacityCost
	costPerSqft := totalAnnual / areaSqft

	cost := &ChillerCost{
		Provider:            prov,
		AreaSqft:            areaSqft,
		EstimatedCapacityTR: round2(estimatedTR),
		AnnualKWh:           math.Round(annualKWh),
		ConsumptionCostAED:  round2(consumptionCost),
		CapacityCostAED:     round2(capacityCost),
		TotalAnnualAED:      round2(totalAnnual),
		MonthlyAED:          round2(totalAnnual / 12),
		CostPerSqftYear:     round2(costPerSqft),
		TrapDetected:        rate.hasFixedCharges,
	}

	switch {
	case costPerSqft > chillerHighThreshold:
		cost.WarningLevel = ChillerWarningHigh
		cost.WarningNote = "CRITICAL: Chiller costs will significantly erode net yield. Model carefully before buying."
	case costPerSqft > chillerMediumThreshold:
		cost.WarningLevel = ChillerWarningMedium
		cost.WarningNote = "Moderate chiller burden. Factor into net yield calculation."
	default:
		cost.WarningLevel = ChillerWarningLow
		cost.WarningNote = "Acceptable chiller cost — no major concern."
	}

	if cost.TrapDetected {
		cost.TrapExplanation = "Empower charges a FIXED monthly capacity fee regardless of whether the unit " +
			"is occupied or the AC is used. This fee alone can cost AED 15,000–30,000/year " +
			"on a 1,500 sqft apartment, destroying rental yields for landlords."
	} else {
		cost.TrapExplanation = "No fixed capacity charges — you only pay for what you consume."
	}

	return cost, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
