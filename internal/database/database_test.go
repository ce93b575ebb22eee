package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"recyclehub/server/internal/models"
	"recyclehub/server/internal/pricing"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewMemoryDatabase(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedMaterial(t *testing.T, db *Database, name string, price float64) *models.Material {
	t.Helper()
	m := &models.Material{
		ID:         models.NewID(),
		Name:       name,
		Category:   models.CategoryPlastic,
		PricePerKg: price,
		IsActive:   true,
		MarketFactors: models.MarketFactors{
			SeasonalAdjustments: models.SeasonalTable{0: 1.2, 11: 1.1},
			SupplySensitivity:   models.Float64(1),
		},
	}
	require.NoError(t, db.CreateMaterial(context.Background(), m))
	return m
}

func seedPickup(t *testing.T, db *Database, status models.PickupStatus, createdAt time.Time, items ...models.PickupMaterial) *models.Pickup {
	t.Helper()
	p := &models.Pickup{
		ID:         models.NewID(),
		UserID:     "user-1",
		Status:     status,
		Materials:  items,
		PickupDate: createdAt,
		PickupTime: "10:00:00",
		Location:   models.Location{Longitude: 4.9, Latitude: 52.37, Address: "Dam 1"},
		CreatedAt:  createdAt,
	}
	require.NoError(t, db.CreatePickup(context.Background(), p))
	return p
}

func TestDatabase_MaterialRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := seedMaterial(t, db, "PET Plastic Bottles", 2.5)

	got, err := db.GetMaterial(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "PET Plastic Bottles", got.Name)
	assert.Equal(t, 2.5, got.PricePerKg)
	assert.Equal(t, models.SeasonalTable{0: 1.2, 11: 1.1}, got.MarketFactors.SeasonalAdjustments)
	require.NotNil(t, got.MarketFactors.SupplySensitivity)
	assert.Equal(t, 1.0, *got.MarketFactors.SupplySensitivity)
	assert.Nil(t, got.MarketFactors.DemandSensitivity)

	_, err = db.GetMaterial(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	dup := &models.Material{ID: models.NewID(), Name: "PET Plastic Bottles", Category: models.CategoryPlastic, IsActive: true}
	assert.ErrorIs(t, db.CreateMaterial(ctx, dup), models.ErrAlreadyExists)
}

func TestDatabase_UpdateMaterialKeepsPriceAndActiveFlag(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := seedMaterial(t, db, "Cardboard", 1.0)

	edit := *m
	edit.Description = "Flattened boxes"
	edit.PricePerKg = 99
	edit.IsActive = false
	require.NoError(t, db.UpdateMaterial(ctx, &edit))
	assert.Equal(t, 1.0, edit.PricePerKg)
	assert.True(t, edit.IsActive)

	got, err := db.GetMaterial(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Flattened boxes", got.Description)
	assert.Equal(t, 1.0, got.PricePerKg)
	assert.True(t, got.IsActive)

	missing := edit
	missing.ID = "missing"
	assert.ErrorIs(t, db.UpdateMaterial(ctx, &missing), models.ErrNotFound)
}

func TestDatabase_SoftDeleteAndListing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := seedMaterial(t, db, "Aluminum Cans", 3.0)
	b := seedMaterial(t, db, "Clear Glass", 0.8)

	require.NoError(t, db.SoftDeleteMaterial(ctx, b.ID))
	assert.ErrorIs(t, db.SoftDeleteMaterial(ctx, "missing"), models.ErrNotFound)

	active, err := db.ListMaterials(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)

	all, err := db.ListMaterials(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	ids, err := db.ListActiveMaterialIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, ids)

	n, err := db.CountMaterials(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestDatabase_PriceRecordRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := seedMaterial(t, db, "Mixed Paper", 1.2)
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	rec := models.NewMarketPriceRecord(m, now)
	rec.AppendHistory(models.PricePoint{Price: 1.3, Date: now, Factors: models.PriceFactors{Supply: 10, Demand: 20, Seasonal: 0.8}}, 30)
	rec.AppendHistory(models.PricePoint{Price: 1.4, Date: now.Add(time.Hour), Factors: models.PriceFactors{Supply: 15, Demand: 25, Seasonal: 0.8}}, 30)
	rec.SupplyLevel = 15
	rec.DemandLevel = 25
	require.NoError(t, db.CreatePriceRecord(ctx, rec))

	got, err := db.FindPriceRecord(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.CurrentPrice, got.CurrentPrice)
	assert.Equal(t, rec.SupplyLevel, got.SupplyLevel)
	assert.Equal(t, rec.DemandLevel, got.DemandLevel)
	require.Len(t, got.PriceHistory, 2)
	assert.Equal(t, 1.3, got.PriceHistory[0].Price)
	assert.Equal(t, 1.4, got.PriceHistory[1].Price)
	assert.True(t, got.PriceHistory[1].Date.Equal(now.Add(time.Hour)))
	assert.Equal(t, models.PriceFactors{Supply: 15, Demand: 25, Seasonal: 0.8}, got.PriceHistory[1].Factors)

	_, err = db.FindPriceRecord(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	again := models.NewMarketPriceRecord(m, now)
	assert.ErrorIs(t, db.CreatePriceRecord(ctx, again), models.ErrConcurrencyConflict)
}

func TestDatabase_UpdatePriceRecordVersionCheck(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := seedMaterial(t, db, "Food Waste", 0.5)

	rec := models.NewMarketPriceRecord(m, time.Now().UTC())
	require.NoError(t, db.CreatePriceRecord(ctx, rec))

	stale := rec.Clone()

	rec.AppendHistory(models.PricePoint{Price: 0.6, Date: time.Now().UTC()}, 30)
	require.NoError(t, db.UpdatePriceRecord(ctx, rec))
	assert.Equal(t, int64(2), rec.Version)

	stale.AppendHistory(models.PricePoint{Price: 0.7, Date: time.Now().UTC()}, 30)
	err := db.UpdatePriceRecord(ctx, stale)
	assert.ErrorIs(t, err, models.ErrConcurrencyConflict)

	got, err := db.FindPriceRecord(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.6, got.CurrentPrice)
	assert.Equal(t, 0.5, got.BasePrice)
}

func TestDatabase_WithinTransactionRollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := seedMaterial(t, db, "Mixed Plastics", 1.5)
	boom := errors.New("boom")

	err := db.WithinTransaction(ctx, func(ctx context.Context, tx pricing.Tx) error {
		require.NoError(t, tx.SetMaterialPrice(ctx, m.ID, 9.99))
		require.NoError(t, tx.CreatePriceRecord(ctx, models.NewMarketPriceRecord(m, time.Now().UTC())))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := db.GetMaterial(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.5, got.PricePerKg)
	_, err = db.FindPriceRecord(ctx, m.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDatabase_ActivitySamples(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	pet := seedMaterial(t, db, "PET", 2.5)
	glass := seedMaterial(t, db, "Glass", 0.8)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	since := now.AddDate(0, 0, -30)

	completed := seedPickup(t, db, models.StatusCompleted, now.Add(-time.Hour),
		models.PickupMaterial{MaterialID: pet.ID, Quantity: 4},
		models.PickupMaterial{MaterialID: pet.ID, Quantity: 6},
		models.PickupMaterial{MaterialID: glass.ID, Quantity: 3},
	)
	requested := seedPickup(t, db, models.StatusPending, now.AddDate(0, 0, -2),
		models.PickupMaterial{MaterialID: pet.ID, Quantity: 5},
	)
	require.NoError(t, db.AddClaimRequest(ctx, &models.ClaimRequest{
		ID: models.NewID(), PickupID: requested.ID, RecyclerID: "r1", Status: models.ClaimPending, CreatedAt: now,
	}, models.StatusClaimRequested))
	require.NoError(t, db.AddClaimRequest(ctx, &models.ClaimRequest{
		ID: models.NewID(), PickupID: requested.ID, RecyclerID: "r2", Status: models.ClaimPending, CreatedAt: now,
	}, models.StatusClaimRequested))
	seedPickup(t, db, models.StatusCompleted, now.AddDate(0, 0, -31),
		models.PickupMaterial{MaterialID: pet.ID, Quantity: 100},
	)

	samples, err := db.ActivitySamples(ctx, pet.ID, since)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	byPickup := map[string]models.ActivitySample{}
	for _, s := range samples {
		byPickup[s.PickupID] = s
	}
	assert.Equal(t, models.ActivitySample{PickupID: completed.ID, Quantity: 10, Status: models.StatusCompleted}, byPickup[completed.ID])
	assert.Equal(t, models.ActivitySample{PickupID: requested.ID, Quantity: 5, Status: models.StatusClaimRequested, HasClaimRequests: true}, byPickup[requested.ID])

	none, err := db.ActivitySamples(ctx, "unknown", since)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDatabase_PickupLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := seedMaterial(t, db, "Cans", 3)
	created := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	p := seedPickup(t, db, models.StatusPending, created, models.PickupMaterial{MaterialID: m.ID, Quantity: 2, PriceAtPickup: 3})

	done := created.Add(48 * time.Hour)
	require.NoError(t, db.UpdatePickupStatus(ctx, p.ID, models.StatusCompleted, "r1", &done))
	assert.ErrorIs(t, db.UpdatePickupStatus(ctx, "missing", models.StatusCompleted, "", nil), models.ErrNotFound)

	got, err := db.GetPickup(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, "r1", got.RecyclerID)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(done))
	require.Len(t, got.Materials, 1)
	assert.Equal(t, 3.0, got.Materials[0].PriceAtPickup)
	assert.Equal(t, "Dam 1", got.Location.Address)

	_, err = db.GetPickup(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = db.AddClaimRequest(ctx, &models.ClaimRequest{ID: models.NewID(), PickupID: "missing", RecyclerID: "r1"}, models.StatusClaimRequested)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "busy", err: sqlite3.Error{Code: sqlite3.ErrBusy}, want: models.ErrConcurrencyConflict},
		{name: "locked", err: fmt.Errorf("commit: %w", sqlite3.Error{Code: sqlite3.ErrLocked}), want: models.ErrConcurrencyConflict},
		{name: "not found", err: gorm.ErrRecordNotFound, want: models.ErrNotFound},
		{name: "duplicate", err: gorm.ErrDuplicatedKey, want: models.ErrAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translate(tt.err), tt.want)
		})
	}

	assert.NoError(t, translate(nil))
	other := errors.New("disk full")
	assert.Equal(t, other, translate(other))
}
