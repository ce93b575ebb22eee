package pricing

import (
	"context"
	"time"

	"recyclehub/server/internal/models"
)

// Tx is the set of storage operations a single pricing update runs inside
// one transaction.
type Tx interface {
	GetMaterial(ctx context.Context, id string) (*models.Material, error)
	// FindPriceRecord returns models.ErrNotFound when the material has no record yet.
	FindPriceRecord(ctx context.Context, materialID string) (*models.MarketPriceRecord, error)
	// CreatePriceRecord returns models.ErrConcurrencyConflict when another
	// record for the same material was inserted first.
	CreatePriceRecord(ctx context.Context, rec *models.MarketPriceRecord) error
	// UpdatePriceRecord writes rec if its Version still matches the stored one
	// and increments rec.Version, otherwise returns models.ErrConcurrencyConflict.
	UpdatePriceRecord(ctx context.Context, rec *models.MarketPriceRecord) error
	SetMaterialPrice(ctx context.Context, materialID string, price float64) error
	ActivitySamples(ctx context.Context, materialID string, since time.Time) ([]models.ActivitySample, error)
}

// Store is the pricing engine's view of persistence. The embedded Tx methods
// run outside any transaction.
type Store interface {
	Tx
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	ListPriceRecords(ctx context.Context) ([]models.MarketPriceRecord, error)
	ListActiveMaterialIDs(ctx context.Context) ([]string, error)
}
