package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"recyclehub/server/internal/models"
)

// Catalog is the material reference data shipped with the server: the
// shared seasonal table and the materials seeded into an empty store.
type Catalog struct {
	// SeasonalAdjustments holds one factor per month, January first.
	SeasonalAdjustments []float64         `toml:"seasonal_adjustments"`
	Materials           []CatalogMaterial `toml:"materials"`
}

type CatalogMaterial struct {
	Name              string   `toml:"name"`
	Category          string   `toml:"category"`
	PricePerKg        float64  `toml:"price_per_kg"`
	CO2Reduced        float64  `toml:"co2_reduced"`
	WaterSaved        float64  `toml:"water_saved"`
	TreesSaved        float64  `toml:"trees_saved"`
	EnergySaved       float64  `toml:"energy_saved"`
	SupplySensitivity *float64 `toml:"supply_sensitivity"`
	DemandSensitivity *float64 `toml:"demand_sensitivity"`
	Description       string   `toml:"description"`
	Image             string   `toml:"image"`
}

// LoadCatalog reads the catalog TOML file at path
func LoadCatalog(path string) (*Catalog, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := toml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if n := len(catalog.SeasonalAdjustments); n != 0 && n != 12 {
		return nil, fmt.Errorf("seasonal_adjustments must have 12 entries, got %d", n)
	}
	return &catalog, nil
}

// SeasonalTable returns the shared seasonal factors keyed by month index.
func (c *Catalog) SeasonalTable() models.SeasonalTable {
	if c == nil || len(c.SeasonalAdjustments) == 0 {
		return nil
	}
	table := make(models.SeasonalTable, len(c.SeasonalAdjustments))
	for month, factor := range c.SeasonalAdjustments {
		table[month] = factor
	}
	return table
}

// SeedMaterials converts the catalog entries into active materials carrying
// the shared seasonal table.
func (c *Catalog) SeedMaterials() []models.Material {
	if c == nil {
		return nil
	}
	out := make([]models.Material, 0, len(c.Materials))
	for _, m := range c.Materials {
		out = append(out, models.Material{
			Name:       m.Name,
			Category:   models.Category(m.Category),
			PricePerKg: m.PricePerKg,
			EnvironmentalImpact: models.Impact{
				CO2Reduced:  m.CO2Reduced,
				WaterSaved:  m.WaterSaved,
				TreesSaved:  m.TreesSaved,
				EnergySaved: m.EnergySaved,
			},
			MarketFactors: models.MarketFactors{
				SeasonalAdjustments: c.SeasonalTable(),
				SupplySensitivity:   m.SupplySensitivity,
				DemandSensitivity:   m.DemandSensitivity,
			},
			Description: m.Description,
			Image:       m.Image,
			IsActive:    true,
		})
	}
	return out
}
