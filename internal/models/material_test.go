package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeasonalTable_Factor(t *testing.T) {
	table := SeasonalTable{0: 1.2, 6: 0.8}

	assert.Equal(t, 1.2, table.Factor(time.January))
	assert.Equal(t, 0.8, table.Factor(time.July))
	assert.Equal(t, DefaultSeasonal, table.Factor(time.March))
	assert.Equal(t, DefaultSeasonal, SeasonalTable(nil).Factor(time.December))
}

func TestMarketFactors_Sensitivities(t *testing.T) {
	tests := []struct {
		name         string
		factors      MarketFactors
		wantSupply   float64
		wantDemand   float64
		wantAdjusted bool
	}{
		{
			name:         "missing values default to one",
			factors:      MarketFactors{},
			wantSupply:   1.0,
			wantDemand:   1.0,
			wantAdjusted: true,
		},
		{
			name:       "in range values kept",
			factors:    MarketFactors{SupplySensitivity: Float64(0.5), DemandSensitivity: Float64(1.5)},
			wantSupply: 0.5,
			wantDemand: 1.5,
		},
		{
			name:         "out of range values clamped",
			factors:      MarketFactors{SupplySensitivity: Float64(-1), DemandSensitivity: Float64(7)},
			wantSupply:   0,
			wantDemand:   2,
			wantAdjusted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			supply, demand, adjusted := tt.factors.Sensitivities()
			assert.Equal(t, tt.wantSupply, supply)
			assert.Equal(t, tt.wantDemand, demand)
			assert.Equal(t, tt.wantAdjusted, adjusted)
		})
	}
}

func TestMaterial_Validate(t *testing.T) {
	valid := func() *Material {
		return &Material{
			Name:       "Clear Glass",
			Category:   CategoryGlass,
			PricePerKg: 0.8,
			MarketFactors: MarketFactors{
				SeasonalAdjustments: SeasonalTable{0: 1.2},
				SupplySensitivity:   Float64(1),
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(m *Material)
		wantErr bool
	}{
		{name: "valid", mutate: func(m *Material) {}},
		{name: "empty name", mutate: func(m *Material) { m.Name = " " }, wantErr: true},
		{name: "unknown category", mutate: func(m *Material) { m.Category = "wood" }, wantErr: true},
		{name: "negative price", mutate: func(m *Material) { m.PricePerKg = -1 }, wantErr: true},
		{name: "negative impact", mutate: func(m *Material) { m.EnvironmentalImpact.CO2Reduced = -1 }, wantErr: true},
		{name: "sensitivity above range", mutate: func(m *Material) { m.MarketFactors.DemandSensitivity = Float64(2.5) }, wantErr: true},
		{name: "month out of range", mutate: func(m *Material) { m.MarketFactors.SeasonalAdjustments[12] = 1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(m)
			err := m.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMaterial)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
