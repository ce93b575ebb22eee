package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"recyclehub/server/internal/models"
)

func TestSupplyLevel(t *testing.T) {
	tests := []struct {
		name    string
		samples []models.ActivitySample
		want    float64
	}{
		{name: "no activity", want: 0},
		{
			name:    "ten completed kg saturate to fifty",
			samples: []models.ActivitySample{{Quantity: 10, Status: models.StatusCompleted}},
			want:    50,
		},
		{
			name: "status weights",
			samples: []models.ActivitySample{
				{Quantity: 5, Status: models.StatusClaimed},        // 4
				{Quantity: 5, Status: models.StatusClaimRequested}, // 3
				{Quantity: 5, Status: models.StatusPending},        // 2
				{Quantity: 5, Status: models.StatusCancelled},      // 0
			},
			want: 45,
		},
		{
			name:    "clamped at one hundred",
			samples: []models.ActivitySample{{Quantity: 500, Status: models.StatusCompleted}},
			want:    100,
		},
		{
			name:    "cancelled only",
			samples: []models.ActivitySample{{Quantity: 10, Status: models.StatusCancelled}},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SupplyLevel(tt.samples), 1e-9)
		})
	}
}

func TestDemandLevel(t *testing.T) {
	tests := []struct {
		name    string
		samples []models.ActivitySample
		want    float64
	}{
		{name: "no activity reports floor", want: DemandFloor},
		{
			name:    "pending without claims reports floor",
			samples: []models.ActivitySample{{Quantity: 50, Status: models.StatusPending}},
			want:    DemandFloor,
		},
		{
			name:    "pending with claims earns bonus only",
			samples: []models.ActivitySample{{Quantity: 10, Status: models.StatusPending, HasClaimRequests: true}},
			want:    10,
		},
		{
			name:    "claim requested with bonus",
			samples: []models.ActivitySample{{Quantity: 10, Status: models.StatusClaimRequested, HasClaimRequests: true}},
			want:    40,
		},
		{
			name: "completed and claimed",
			samples: []models.ActivitySample{
				{Quantity: 10, Status: models.StatusCompleted},
				{Quantity: 5, Status: models.StatusClaimed},
			},
			want: 70,
		},
		{
			name:    "clamped at one hundred",
			samples: []models.ActivitySample{{Quantity: 1000, Status: models.StatusCompleted, HasClaimRequests: true}},
			want:    100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DemandLevel(tt.samples)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.NotZero(t, got)
		})
	}
}

func TestComputePrice(t *testing.T) {
	tests := []struct {
		name       string
		base       float64
		supply     float64
		demand     float64
		supplySens float64
		demandSens float64
		seasonal   float64
		want       float64
	}{
		{name: "balanced market", base: 100, supply: 50, demand: 50, supplySens: 1, demandSens: 1, seasonal: 1, want: 100},
		{name: "demand exceeds supply", base: 100, supply: 20, demand: 80, supplySens: 1, demandSens: 1, seasonal: 1, want: 160},
		{name: "no activity", base: 100, supply: 0, demand: DemandFloor, supplySens: 1, demandSens: 1, seasonal: 1, want: 110},
		{name: "seasonal multiplier", base: 2, supply: 50, demand: 50, supplySens: 1, demandSens: 1, seasonal: 1.2, want: 2.4},
		{name: "averaged sensitivities", base: 10, supply: 100, demand: 10, supplySens: 2, demandSens: 0, seasonal: 1, want: 1},
		{name: "insensitive material", base: 10, supply: 100, demand: 10, supplySens: 0, demandSens: 0, seasonal: 0.8, want: 8},
		{name: "can go negative before floor", base: 10, supply: 100, demand: 10, supplySens: 2, demandSens: 2, seasonal: 1, want: -8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputePrice(tt.base, tt.supply, tt.demand, tt.supplySens, tt.demandSens, tt.seasonal)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
