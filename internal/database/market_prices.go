package database

import (
	"context"
	"errors"
	"fmt"

	"recyclehub/server/internal/models"
)

func (r *Repository) FindPriceRecord(ctx context.Context, materialID string) (*models.MarketPriceRecord, error) {
	var rec models.MarketPriceRecord
	if err := r.conn(ctx).First(&rec, "material_id = ?", materialID).Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func (r *Repository) ListPriceRecords(ctx context.Context) ([]models.MarketPriceRecord, error) {
	var records []models.MarketPriceRecord
	if err := r.conn(ctx).Order("material_id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list price records: %w", err)
	}
	return records, nil
}

func (r *Repository) CreatePriceRecord(ctx context.Context, rec *models.MarketPriceRecord) error {
	rec.Version = 1
	if err := r.conn(ctx).Create(rec).Error; err != nil {
		err = translate(err)
		if errors.Is(err, models.ErrAlreadyExists) {
			return fmt.Errorf("price record for material %s: %w", rec.MaterialID, models.ErrConcurrencyConflict)
		}
		return err
	}
	return nil
}

// UpdatePriceRecord is an optimistic update guarded by the version column.
func (r *Repository) UpdatePriceRecord(ctx context.Context, rec *models.MarketPriceRecord) error {
	next := rec.Clone()
	next.Version = rec.Version + 1

	res := r.conn(ctx).Model(&models.MarketPriceRecord{}).
		Where("id = ? AND version = ?", rec.ID, rec.Version).
		Select("current_price", "supply_level", "demand_level", "price_history", "last_updated", "version").
		Updates(next)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("price record for material %s: %w", rec.MaterialID, models.ErrConcurrencyConflict)
	}
	rec.Version = next.Version
	return nil
}
