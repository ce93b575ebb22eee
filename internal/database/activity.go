package database

import (
	"context"
	"fmt"
	"time"

	"recyclehub/server/internal/models"
)

type activityRow struct {
	PickupID   string
	Status     models.PickupStatus
	Quantity   float64
	ClaimCount int64
}

// ActivitySamples returns one sample per pickup created since the given time
// that has line items for the material, with their quantities summed.
func (r *Repository) ActivitySamples(ctx context.Context, materialID string, since time.Time) ([]models.ActivitySample, error) {
	var rows []activityRow
	err := r.conn(ctx).
		Table("pickup_materials AS pm").
		Select(`pm.pickup_id AS pickup_id,
			p.status AS status,
			SUM(pm.quantity) AS quantity,
			(SELECT COUNT(*) FROM claim_requests cr WHERE cr.pickup_id = p.id) AS claim_count`).
		Joins("JOIN pickups p ON p.id = pm.pickup_id").
		Where("pm.material_id = ? AND p.created_at >= ?", materialID, since.UTC()).
		Group("pm.pickup_id, p.status, p.id").
		Order("pm.pickup_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}

	samples := make([]models.ActivitySample, 0, len(rows))
	for _, row := range rows {
		samples = append(samples, models.ActivitySample{
			PickupID:         row.PickupID,
			Quantity:         row.Quantity,
			Status:           row.Status,
			HasClaimRequests: row.ClaimCount > 0,
		})
	}
	return samples, nil
}
