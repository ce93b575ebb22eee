package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"recyclehub/server/internal/models"
)

// CreatePickup inserts the pickup together with its line items and claim requests.
func (r *Repository) CreatePickup(ctx context.Context, p *models.Pickup) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := r.conn(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create pickup: %w", translate(err))
	}
	return nil
}

func (r *Repository) GetPickup(ctx context.Context, id string) (*models.Pickup, error) {
	var p models.Pickup
	err := r.conn(ctx).
		Preload("Materials", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("ClaimRequests", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *Repository) UpdatePickupStatus(ctx context.Context, id string, status models.PickupStatus, recyclerID string, completedAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if recyclerID != "" {
		updates["recycler_id"] = recyclerID
	}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}
	res := r.conn(ctx).Model(&models.Pickup{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update pickup %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// AddClaimRequest stores the request and moves the pickup to status in one transaction.
func (r *Repository) AddClaimRequest(ctx context.Context, req *models.ClaimRequest, status models.PickupStatus) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Pickup{}).Where("id = ?", req.PickupID).Update("status", status)
		if res.Error != nil {
			return fmt.Errorf("failed to update pickup %s: %w", req.PickupID, res.Error)
		}
		if res.RowsAffected == 0 {
			return models.ErrNotFound
		}
		if err := tx.Create(req).Error; err != nil {
			return fmt.Errorf("failed to create claim request: %w", translate(err))
		}
		return nil
	})
}
