package mongostore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"recyclehub/server/internal/models"
)

func TestSeasonalEncoding(t *testing.T) {
	table := models.SeasonalTable{0: 0.9, 5: 1.1, 11: 1.2}

	encoded := encodeSeasonal(table)
	assert.Equal(t, map[string]float64{"0": 0.9, "5": 1.1, "11": 1.2}, encoded)
	assert.Equal(t, table, decodeSeasonal(encoded))

	decoded := decodeSeasonal(map[string]float64{"1": 1.05, "12": 2, "june": 3, "-1": 4})
	assert.Equal(t, models.SeasonalTable{1: 1.05}, decoded)

	assert.Nil(t, encodeSeasonal(nil))
	assert.Nil(t, decodeSeasonal(nil))
}

func TestPriceRecordDocumentLayout(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	rec := &models.MarketPriceRecord{
		ID:           "r1",
		MaterialID:   "m1",
		BasePrice:    1.2,
		CurrentPrice: 1.32,
		SupplyLevel:  20,
		DemandLevel:  40,
		PriceHistory: []models.PricePoint{{
			Price:   1.32,
			Date:    now,
			Factors: models.PriceFactors{Supply: 20, Demand: 40, Seasonal: 1.1},
		}},
		LastUpdated: now,
		Version:     3,
	}

	raw, err := bson.Marshal(toPriceRecordDoc(rec))
	require.NoError(t, err)

	for _, key := range []string{"_id", "materialId", "basePrice", "currentPrice", "supplyLevel", "demandLevel", "priceHistory", "lastUpdated", "version"} {
		_, err := bson.Raw(raw).LookupErr(key)
		assert.NoError(t, err, key)
	}
	seasonal, err := bson.Raw(raw).LookupErr("priceHistory", "0", "factors", "seasonal")
	require.NoError(t, err)
	assert.Equal(t, 1.1, seasonal.Double())

	var doc priceRecordDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got := doc.model()
	assert.Equal(t, rec.MaterialID, got.MaterialID)
	assert.Equal(t, rec.Version, got.Version)
	require.Len(t, got.PriceHistory, 1)
	assert.True(t, now.Equal(got.PriceHistory[0].Date))
}

func TestPriceRecordDocumentEmptyHistory(t *testing.T) {
	doc := toPriceRecordDoc(&models.MarketPriceRecord{ID: "r1", MaterialID: "m1"})
	assert.NotNil(t, doc.PriceHistory)
	assert.NotNil(t, priceRecordDoc{}.model().PriceHistory)
}

func TestPickupDocumentRoundTrip(t *testing.T) {
	completed := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	pickup := &models.Pickup{
		ID:     "p1",
		UserID: "u1",
		Materials: []models.PickupMaterial{
			{MaterialID: "m1", Quantity: 2, PriceAtPickup: 1.5},
			{MaterialID: "m2", Quantity: 1, PriceAtPickup: 0.5},
		},
		Status:        models.StatusCompleted,
		ClaimRequests: []models.ClaimRequest{{ID: "c1", RecyclerID: "r1", Status: models.ClaimPending}},
		PickupTime:    "10:00:00",
		Location:      models.Location{Longitude: 4.9, Latitude: 52.37, Address: "Dam 1"},
		RecyclerID:    "r1",
		CompletedAt:   &completed,
	}

	doc := toPickupDoc(pickup)
	assert.Equal(t, "Point", doc.Location.Type)
	assert.Equal(t, []float64{4.9, 52.37}, doc.Location.Coordinates)

	got := doc.model()
	assert.Equal(t, pickup.Location, got.Location)
	require.Len(t, got.Materials, 2)
	assert.Equal(t, "p1", got.Materials[0].PickupID)
	require.Len(t, got.ClaimRequests, 1)
	assert.Equal(t, "r1", got.ClaimRequests[0].RecyclerID)
	assert.Equal(t, "p1", got.ClaimRequests[0].PickupID)
	assert.Equal(t, pickup.CompletedAt, got.CompletedAt)
}

func TestPickupDocumentActivity(t *testing.T) {
	doc := pickupDoc{
		ID:     "p1",
		Status: models.StatusClaimed,
		Materials: []pickupMaterialDoc{
			{MaterialID: "m1", Quantity: 2},
			{MaterialID: "m2", Quantity: 5},
			{MaterialID: "m1", Quantity: 3},
		},
		ClaimRequests: []claimRequestDoc{{ID: "c1"}},
	}

	sample, ok := doc.activity("m1")
	require.True(t, ok)
	assert.Equal(t, models.ActivitySample{
		PickupID:         "p1",
		Quantity:         5,
		Status:           models.StatusClaimed,
		HasClaimRequests: true,
	}, sample)

	_, ok = doc.activity("m3")
	assert.False(t, ok)
}

func TestMaterialDocumentRoundTrip(t *testing.T) {
	m := &models.Material{
		ID:         "m1",
		Name:       "PET Bottles",
		Category:   models.CategoryPlastic,
		PricePerKg: 0.5,
		MarketFactors: models.MarketFactors{
			SeasonalAdjustments: models.SeasonalTable{0: 0.9},
			SupplySensitivity:   models.Float64(1.2),
		},
		IsActive: true,
	}

	raw, err := bson.Marshal(toMaterialDoc(m))
	require.NoError(t, err)
	_, err = bson.Raw(raw).LookupErr("marketFactors", "demandSensitivity")
	assert.Error(t, err)

	var doc materialDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got := doc.model()
	assert.Equal(t, m.MarketFactors.SeasonalAdjustments, got.MarketFactors.SeasonalAdjustments)
	require.NotNil(t, got.MarketFactors.SupplySensitivity)
	assert.Equal(t, 1.2, *got.MarketFactors.SupplySensitivity)
	assert.Nil(t, got.MarketFactors.DemandSensitivity)
}
