package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"recyclehub/server/internal/models"
)

func (r *Repository) CreateMaterial(ctx context.Context, m *models.Material) error {
	if err := r.conn(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create material %q: %w", m.Name, translate(err))
	}
	return nil
}

func (r *Repository) GetMaterial(ctx context.Context, id string) (*models.Material, error) {
	var m models.Material
	if err := r.conn(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *Repository) ListMaterials(ctx context.Context, activeOnly bool) ([]models.Material, error) {
	var materials []models.Material
	q := r.conn(ctx).Order("name")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&materials).Error; err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	return materials, nil
}

func (r *Repository) ListActiveMaterialIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.conn(ctx).Model(&models.Material{}).
		Where("is_active = ?", true).
		Order("name").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list material ids: %w", err)
	}
	return ids, nil
}

func (r *Repository) CountMaterials(ctx context.Context) (int64, error) {
	var n int64
	if err := r.conn(ctx).Model(&models.Material{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count materials: %w", err)
	}
	return n, nil
}

// UpdateMaterial writes the admin-editable fields of m. The stored price per kg,
// active flag and creation time are kept and copied back into m.
func (r *Repository) UpdateMaterial(ctx context.Context, m *models.Material) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Material
		if err := tx.First(&existing, "id = ?", m.ID).Error; err != nil {
			return translate(err)
		}
		m.PricePerKg = existing.PricePerKg
		m.IsActive = existing.IsActive
		m.CreatedAt = existing.CreatedAt
		if err := tx.Model(&existing).Select("*").Omit("id", "price_per_kg", "is_active", "created_at").Updates(m).Error; err != nil {
			return fmt.Errorf("failed to update material %s: %w", m.ID, translate(err))
		}
		return nil
	})
}

func (r *Repository) SoftDeleteMaterial(ctx context.Context, id string) error {
	res := r.conn(ctx).Model(&models.Material{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate material %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Repository) SetMaterialPrice(ctx context.Context, materialID string, price float64) error {
	res := r.conn(ctx).Model(&models.Material{}).Where("id = ?", materialID).Update("price_per_kg", price)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}
