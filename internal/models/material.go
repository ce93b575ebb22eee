package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type Category string

const (
	CategoryPlastic     Category = "plastic"
	CategoryPaper       Category = "paper"
	CategoryGlass       Category = "glass"
	CategoryMetal       Category = "metal"
	CategoryElectronics Category = "electronics"
	CategoryOrganic     Category = "organic"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryPlastic, CategoryPaper, CategoryGlass, CategoryMetal, CategoryElectronics, CategoryOrganic:
		return true
	}
	return false
}

const (
	DefaultSensitivity = 1.0
	MinSensitivity     = 0.0
	MaxSensitivity     = 2.0
	DefaultSeasonal    = 1.0
)

// Impact holds environmental savings, either per kg (catalog coefficients)
// or absolute (pickup totals).
type Impact struct {
	CO2Reduced  float64 `json:"co2Reduced" bson:"co2Reduced"`
	WaterSaved  float64 `json:"waterSaved" bson:"waterSaved"`
	TreesSaved  float64 `json:"treesSaved" bson:"treesSaved"`
	EnergySaved float64 `json:"energySaved" bson:"energySaved"`
}

func (i Impact) Scale(quantity float64) Impact {
	return Impact{
		CO2Reduced:  i.CO2Reduced * quantity,
		WaterSaved:  i.WaterSaved * quantity,
		TreesSaved:  i.TreesSaved * quantity,
		EnergySaved: i.EnergySaved * quantity,
	}
}

func (i Impact) Add(other Impact) Impact {
	return Impact{
		CO2Reduced:  i.CO2Reduced + other.CO2Reduced,
		WaterSaved:  i.WaterSaved + other.WaterSaved,
		TreesSaved:  i.TreesSaved + other.TreesSaved,
		EnergySaved: i.EnergySaved + other.EnergySaved,
	}
}

func (i Impact) negative() bool {
	return i.CO2Reduced < 0 || i.WaterSaved < 0 || i.TreesSaved < 0 || i.EnergySaved < 0
}

// SeasonalTable maps a zero-based month index (January = 0) to a price multiplier.
type SeasonalTable map[int]float64

// Factor returns the multiplier for the given month, 1.0 when the month is absent.
func (s SeasonalTable) Factor(month time.Month) float64 {
	if f, ok := s[int(month)-1]; ok {
		return f
	}
	return DefaultSeasonal
}

func (s SeasonalTable) Clone() SeasonalTable {
	if s == nil {
		return nil
	}
	out := make(SeasonalTable, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

type MarketFactors struct {
	SeasonalAdjustments SeasonalTable `json:"seasonalAdjustments" gorm:"serializer:json"`
	SupplySensitivity   *float64      `json:"supplySensitivity"`
	DemandSensitivity   *float64      `json:"demandSensitivity"`
}

// Sensitivities returns the supply and demand sensitivities with defaults
// applied and values clamped into [MinSensitivity, MaxSensitivity]. adjusted
// reports whether any stored value was missing or out of range.
func (f MarketFactors) Sensitivities() (supply, demand float64, adjusted bool) {
	supply, a := normalizeSensitivity(f.SupplySensitivity)
	demand, b := normalizeSensitivity(f.DemandSensitivity)
	return supply, demand, a || b
}

func normalizeSensitivity(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) {
		return DefaultSensitivity, true
	}
	switch {
	case *v < MinSensitivity:
		return MinSensitivity, true
	case *v > MaxSensitivity:
		return MaxSensitivity, true
	}
	return *v, false
}

type Material struct {
	ID                  string        `json:"id" gorm:"primaryKey;size:36"`
	Name                string        `json:"name" gorm:"uniqueIndex;not null"`
	Category            Category      `json:"category" gorm:"index;not null"`
	PricePerKg          float64       `json:"pricePerKg" gorm:"not null"`
	EnvironmentalImpact Impact        `json:"environmentalImpact" gorm:"embedded;embeddedPrefix:impact_"`
	MarketFactors       MarketFactors `json:"marketFactors" gorm:"embedded;embeddedPrefix:market_"`
	Description         string        `json:"description"`
	Image               string        `json:"image"`
	IsActive            bool          `json:"isActive" gorm:"index;not null"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// Validate checks the admin-editable fields of a material.
func (m *Material) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidMaterial)
	}
	if !m.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidMaterial, m.Category)
	}
	if m.PricePerKg < 0 || math.IsNaN(m.PricePerKg) {
		return fmt.Errorf("%w: price per kg must be non-negative", ErrInvalidMaterial)
	}
	if m.EnvironmentalImpact.negative() {
		return fmt.Errorf("%w: environmental impact coefficients must be non-negative", ErrInvalidMaterial)
	}
	for _, s := range []*float64{m.MarketFactors.SupplySensitivity, m.MarketFactors.DemandSensitivity} {
		if s != nil && (*s < MinSensitivity || *s > MaxSensitivity) {
			return fmt.Errorf("%w: sensitivity %.2f outside [%.0f,%.0f]", ErrInvalidMaterial, *s, MinSensitivity, MaxSensitivity)
		}
	}
	for month, factor := range m.MarketFactors.SeasonalAdjustments {
		if month < 0 || month > 11 {
			return fmt.Errorf("%w: seasonal month index %d outside 0-11", ErrInvalidMaterial, month)
		}
		if factor < 0 {
			return fmt.Errorf("%w: seasonal factor for month %d is negative", ErrInvalidMaterial, month)
		}
	}
	return nil
}

func Float64(v float64) *float64 {
	return &v
}
