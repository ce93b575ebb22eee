package database

import (
	"fmt"

	"recyclehub/server/internal/models"
)

func (d *Database) RunMigrations() error {
	if err := d.db.AutoMigrate(
		&models.Material{},
		&models.Pickup{},
		&models.PickupMaterial{},
		&models.ClaimRequest{},
		&models.MarketPriceRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Activity feed lookups filter line items by material and join on pickup.
	if err := d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_pickup_materials_material_pickup
		ON pickup_materials(material_id, pickup_id);
	`).Error; err != nil {
		return fmt.Errorf("failed to create activity index: %w", err)
	}

	return nil
}
