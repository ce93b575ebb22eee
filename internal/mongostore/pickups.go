package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"recyclehub/server/internal/models"
)

func (s *Store) CreatePickup(ctx context.Context, p *models.Pickup) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if _, err := s.pickups().InsertOne(ctx, toPickupDoc(p)); err != nil {
		return fmt.Errorf("failed to create pickup: %w", translate(err))
	}
	return nil
}

func (s *Store) GetPickup(ctx context.Context, id string) (*models.Pickup, error) {
	var doc pickupDoc
	if err := s.pickups().FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.model(), nil
}

func (s *Store) UpdatePickupStatus(ctx context.Context, id string, status models.PickupStatus, recyclerID string, completedAt *time.Time) error {
	set := bson.M{"status": status, "updatedAt": time.Now().UTC()}
	if recyclerID != "" {
		set["recycler"] = recyclerID
	}
	if completedAt != nil {
		set["completedAt"] = *completedAt
	}
	res, err := s.pickups().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update pickup %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// AddClaimRequest appends the request and moves the pickup to status in a
// single document update.
func (s *Store) AddClaimRequest(ctx context.Context, req *models.ClaimRequest, status models.PickupStatus) error {
	res, err := s.pickups().UpdateOne(ctx, bson.M{"_id": req.PickupID}, bson.M{
		"$set":  bson.M{"status": status, "updatedAt": time.Now().UTC()},
		"$push": bson.M{"claimRequests": toClaimRequestDoc(req)},
	})
	if err != nil {
		return fmt.Errorf("failed to add claim request to pickup %s: %w", req.PickupID, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ActivitySamples returns one sample per pickup created since the given time
// that has line items for the material, with their quantities summed.
func (s *Store) ActivitySamples(ctx context.Context, materialID string, since time.Time) ([]models.ActivitySample, error) {
	filter := bson.M{
		"materials.material": materialID,
		"createdAt":          bson.M{"$gte": since.UTC()},
	}
	opts := options.Find().SetProjection(bson.M{
		"status":        1,
		"materials":     1,
		"claimRequests": 1,
	})
	cursor, err := s.pickups().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	var docs []pickupDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode activity: %w", err)
	}

	samples := make([]models.ActivitySample, 0, len(docs))
	for _, doc := range docs {
		if sample, ok := doc.activity(materialID); ok {
			samples = append(samples, sample)
		}
	}
	sortSamples(samples)
	return samples, nil
}
