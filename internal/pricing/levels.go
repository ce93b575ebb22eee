package pricing

import (
	"math"

	"recyclehub/server/internal/models"
)

const (
	MinLevel = 0.0
	MaxLevel = 100.0

	// DemandFloor is reported when no demand was observed in the window.
	DemandFloor = 10.0

	// saturationQuantity of weighted kg maps to saturationLevel percent.
	saturationQuantity = 10.0
	saturationLevel    = 50.0

	claimRequestBonus = 0.2
)

var supplyWeights = map[models.PickupStatus]float64{
	models.StatusCompleted:      1.0,
	models.StatusClaimed:        0.8,
	models.StatusClaimRequested: 0.6,
	models.StatusPending:        0.4,
}

var demandWeights = map[models.PickupStatus]float64{
	models.StatusCompleted:      1.0,
	models.StatusClaimed:        0.8,
	models.StatusClaimRequested: 0.6,
	models.StatusPending:        0,
}

func WeightedSupply(samples []models.ActivitySample) float64 {
	var total float64
	for _, s := range samples {
		total += s.Quantity * supplyWeights[s.Status]
	}
	return total
}

// WeightedDemand adds the claim request bonus once per pickup that has at
// least one claim request, regardless of the pickup's own status weight.
func WeightedDemand(samples []models.ActivitySample) float64 {
	var total float64
	for _, s := range samples {
		total += s.Quantity * demandWeights[s.Status]
		if s.HasClaimRequests {
			total += s.Quantity * claimRequestBonus
		}
	}
	return total
}

func SupplyLevel(samples []models.ActivitySample) float64 {
	weighted := WeightedSupply(samples)
	if weighted <= 0 {
		return MinLevel
	}
	return toLevel(weighted)
}

func DemandLevel(samples []models.ActivitySample) float64 {
	weighted := WeightedDemand(samples)
	if weighted <= 0 {
		return DemandFloor
	}
	return toLevel(weighted)
}

func toLevel(weighted float64) float64 {
	return math.Max(MinLevel, math.Min(MaxLevel, weighted/saturationQuantity*saturationLevel))
}

// SupplyDemandFactor scales the gap between demand and supply by the mean of
// the two sensitivities.
func SupplyDemandFactor(supplyLevel, demandLevel, supplySensitivity, demandSensitivity float64) float64 {
	return 1 + ((demandLevel-supplyLevel)/100)*((demandSensitivity+supplySensitivity)/2)
}

func ComputePrice(basePrice, supplyLevel, demandLevel, supplySensitivity, demandSensitivity, seasonal float64) float64 {
	return basePrice * SupplyDemandFactor(supplyLevel, demandLevel, supplySensitivity, demandSensitivity) * seasonal
}
