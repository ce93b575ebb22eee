package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"recyclehub/server/internal/models"
)

func (s *Store) CreateMaterial(ctx context.Context, m *models.Material) error {
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	if _, err := s.materials().InsertOne(ctx, toMaterialDoc(m)); err != nil {
		return fmt.Errorf("failed to create material %q: %w", m.Name, translate(err))
	}
	return nil
}

func (s *Store) GetMaterial(ctx context.Context, id string) (*models.Material, error) {
	var doc materialDoc
	if err := s.materials().FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.model(), nil
}

func (s *Store) ListMaterials(ctx context.Context, activeOnly bool) ([]models.Material, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	cursor, err := s.materials().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	var docs []materialDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode materials: %w", err)
	}

	materials := make([]models.Material, 0, len(docs))
	for _, doc := range docs {
		materials = append(materials, *doc.model())
	}
	return materials, nil
}

func (s *Store) ListActiveMaterialIDs(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.materials().Find(ctx, bson.M{"isActive": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list material ids: %w", err)
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode material ids: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

func (s *Store) CountMaterials(ctx context.Context) (int64, error) {
	n, err := s.materials().CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count materials: %w", err)
	}
	return n, nil
}

// UpdateMaterial writes the admin-editable fields of m. The stored price per kg,
// active flag and creation time are kept and copied back into m.
func (s *Store) UpdateMaterial(ctx context.Context, m *models.Material) error {
	doc := toMaterialDoc(m)
	update := bson.M{"$set": bson.M{
		"name":                doc.Name,
		"category":            doc.Category,
		"environmentalImpact": doc.EnvironmentalImpact,
		"marketFactors":       doc.MarketFactors,
		"description":         doc.Description,
		"image":               doc.Image,
		"updatedAt":           time.Now().UTC(),
	}}

	var stored materialDoc
	err := s.materials().
		FindOneAndUpdate(ctx, bson.M{"_id": m.ID}, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).
		Decode(&stored)
	if err != nil {
		return fmt.Errorf("failed to update material %s: %w", m.ID, translate(err))
	}
	m.PricePerKg = stored.PricePerKg
	m.IsActive = stored.IsActive
	m.CreatedAt = stored.CreatedAt
	m.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *Store) SoftDeleteMaterial(ctx context.Context, id string) error {
	res, err := s.materials().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"isActive":  false,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("failed to deactivate material %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Store) SetMaterialPrice(ctx context.Context, materialID string, price float64) error {
	res, err := s.materials().UpdateOne(ctx, bson.M{"_id": materialID}, bson.M{"$set": bson.M{
		"pricePerKg": price,
		"updatedAt":  time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
