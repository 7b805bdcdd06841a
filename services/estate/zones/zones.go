// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package zones holds the zone reference data the analysis tools run on:
// yield estimates, average pricing, liquidity ratings, service charges,
// supply pipeline research, and the deterministic listing pools used for
// mock results.
//
// The data ships embedded in the binary (zones.yaml, listings.yaml) so the
// service has no runtime file dependencies. Every zone record carries every
// field — there are no partial rows — and lookups for unknown zones return a
// shared default profile rather than an error.
package zones

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed zones.yaml
var zonesYAML []byte

//go:embed listings.yaml
var listingsYAML []byte

// Supply risk levels carried by Profile.SupplyRisk.
const (
	SupplyRiskLow      = "LOW"
	SupplyRiskModerate = "MODERATE"
	SupplyRiskHigh     = "HIGH"
	SupplyRiskVeryHigh = "VERY HIGH"
)

// Pipeline is the supply pipeline research block for a zone.
type Pipeline struct {
	// RiskYear is the year oversupply pressure is expected to peak.
	// Zero when no specific year applies.
	RiskYear int `yaml:"risk_year" json:"risk_year,omitempty"`

	UnitsPipeline int `yaml:"units_pipeline" json:"units_pipeline"`
	CurrentSupply int `yaml:"current_supply" json:"current_supply"`

	Notes          string `yaml:"notes" json:"notes"`
	Recommendation string `yaml:"recommendation" json:"recommendation"`
}

// Profile is the full reference record for one zone.
//
// Thread Safety: profiles are loaded once and never mutated; safe for
// concurrent read access.
type Profile struct {
	Slug        string   `yaml:"slug" json:"slug"`
	DisplayName string   `yaml:"display_name" json:"display_name"`
	Aliases     []string `yaml:"aliases" json:"-"`

	// GrossYieldEstimate is the analyst gross yield estimate as a fraction
	// (0.065 = 6.5%).
	GrossYieldEstimate float64 `yaml:"gross_yield_estimate" json:"gross_yield_estimate"`

	// AvgPricePerSqft is the zone average asking price, AED per sqft.
	AvgPricePerSqft float64 `yaml:"avg_price_per_sqft" json:"avg_price_per_sqft"`

	// LiquidityIndex is the resale liquidity rating on a 0–20 scale. It is
	// consumed directly as the liquidity pillar score.
	LiquidityIndex int `yaml:"liquidity_index" json:"liquidity_index"`

	// ServiceChargePerSqft is the estimated annual service charge, AED per
	// sqft.
	ServiceChargePerSqft float64 `yaml:"service_charge_per_sqft" json:"service_charge_per_sqft"`

	// SupplyRisk is one of the SupplyRisk* levels.
	SupplyRisk string `yaml:"supply_risk" json:"supply_risk"`

	// Pipeline is nil for zones without detailed pipeline research
	// (including the default profile).
	Pipeline *Pipeline `yaml:"pipeline" json:"pipeline,omitempty"`
}

// Listing is one mock listing from the deterministic pools.
type Listing struct {
	ID              string `yaml:"id" json:"id"`
	Title           string `yaml:"title" json:"title"`
	Location        string `yaml:"location" json:"location"`
	Building        string `yaml:"building" json:"building"`
	Bedrooms        int    `yaml:"bedrooms" json:"bedrooms"`
	Price           int    `yaml:"price" json:"price"`
	Area            int    `yaml:"area" json:"area"`
	PricePerSqft    int    `yaml:"price_per_sqft" json:"price_per_sqft"`
	Purpose         string `yaml:"purpose" json:"purpose"`
	PropertyType    string `yaml:"property_type" json:"property_type"`
	ChillerProvider string `yaml:"chiller_provider" json:"chiller_provider"`
	Floor           int    `yaml:"floor" json:"floor"`
	View            string `yaml:"view" json:"view"`
	CompletionYear  int    `yaml:"completion_year" json:"completion_year"`
}

// fallbackListingZone is the pool returned when neither the requested zone
// nor its filters produce anything. Marina is the most representative stock.
const fallbackListingZone = "dubai-marina"

// Registry resolves zone names to profiles and listing pools.
//
// # Thread Safety
//
// Immutable after Load; safe for concurrent use.
type Registry struct {
	defaultProfile *Profile
	bySlug         map[string]*Profile
	aliases        map[string]string
	listings       map[string][]Listing
}

type zonesFile struct {
	Default *Profile  `yaml:"default"`
	Zones   []Profile `yaml:"zones"`
}

type listingsFile struct {
	Listings map[string][]Listing `yaml:"listings"`
}

// Load parses the embedded reference data into a Registry.
//
// # Outputs
//
//   - *Registry: Ready-to-use registry. Nil on error.
//   - error: Non-nil if the embedded YAML is malformed or incomplete —
//     a build problem, not a runtime condition.
func Load() (*Registry, error) {
	var zf zonesFile
	if err := yaml.Unmarshal(zonesYAML, &zf); err != nil {
		return nil, fmt.Errorf("zones: parsing zones.yaml: %w", err)
	}
	if zf.Default == nil {
		return nil, fmt.Errorf("zones: zones.yaml missing default profile")
	}

	var lf listingsFile
	if err := yaml.Unmarshal(listingsYAML, &lf); err != nil {
		return nil, fmt.Errorf("zones: parsing listings.yaml: %w", err)
	}

	r := &Registry{
		defaultProfile: zf.Default,
		bySlug:         make(map[string]*Profile, len(zf.Zones)),
		aliases:        make(map[string]string),
		listings:       lf.Listings,
	}
	for i := range zf.Zones {
		p := &zf.Zones[i]
		if p.Slug == "" {
			return nil, fmt.Errorf("zones: zone %d has no slug", i)
		}
		if p.SupplyRisk == "" {
			return nil, fmt.Errorf("zones: zone %q has no supply_risk", p.Slug)
		}
		r.bySlug[p.Slug] = p
		r.aliases[p.Slug] = p.Slug
		for _, a := range p.Aliases {
			r.aliases[strings.ToLower(a)] = p.Slug
		}
	}
	return r, nil
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the shared registry built from the embedded data.
// Panics if the embedded YAML does not parse; that is a build defect caught
// by the package tests.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		r, err := Load()
		if err != nil {
			panic(err)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Normalize maps a free-form location string to a zone slug. Aliases
// ("marina", "downtown") resolve to their canonical slug; anything else is
// lowercased and trimmed as-is.
func (r *Registry) Normalize(location string) string {
	key := strings.ToLower(strings.TrimSpace(location))
	if slug, ok := r.aliases[key]; ok {
		return slug
	}
	return key
}

// Lookup resolves a location to its profile. The second return reports
// whether the zone is known.
func (r *Registry) Lookup(location string) (*Profile, bool) {
	p, ok := r.bySlug[r.Normalize(location)]
	if !ok {
		return r.DefaultProfile(), false
	}
	return p, true
}

// Resolve is Lookup without the found flag: unknown zones get the default
// profile, never an error.
func (r *Registry) Resolve(location string) *Profile {
	p, _ := r.Lookup(location)
	return p
}

// DefaultProfile returns the profile used for unknown zones.
func (r *Registry) DefaultProfile() *Profile {
	return r.defaultProfile
}

// Profiles returns all known zone profiles, keyed by slug.
func (r *Registry) Profiles() map[string]*Profile {
	return r.bySlug
}

// Listings returns the mock listing pool for a location. Resolution order:
// the resolved zone's pool, then the fallback zone's pool, so callers always
// receive a non-empty slice.
func (r *Registry) Listings(location string) []Listing {
	if pool, ok := r.listings[r.Normalize(location)]; ok && len(pool) > 0 {
		return pool
	}
	return r.listings[fallbackListingZone]
}

// HasListings reports whether the resolved zone has its own listing pool.
func (r *Registry) HasListings(location string) bool {
	pool, ok := r.listings[r.Normalize(location)]
	return ok && len(pool) > 0
}
