package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"recyclehub/server/internal/models"
)

func (s *Store) FindPriceRecord(ctx context.Context, materialID string) (*models.MarketPriceRecord, error) {
	var doc priceRecordDoc
	if err := s.marketPrices().FindOne(ctx, bson.M{"materialId": materialID}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.model(), nil
}

func (s *Store) ListPriceRecords(ctx context.Context) ([]models.MarketPriceRecord, error) {
	cursor, err := s.marketPrices().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "materialId", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list price records: %w", err)
	}
	var docs []priceRecordDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode price records: %w", err)
	}

	records := make([]models.MarketPriceRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, *doc.model())
	}
	return records, nil
}

func (s *Store) CreatePriceRecord(ctx context.Context, rec *models.MarketPriceRecord) error {
	rec.Version = 1
	if _, err := s.marketPrices().InsertOne(ctx, toPriceRecordDoc(rec)); err != nil {
		err = translate(err)
		if errors.Is(err, models.ErrAlreadyExists) {
			return fmt.Errorf("price record for material %s: %w", rec.MaterialID, models.ErrConcurrencyConflict)
		}
		return err
	}
	return nil
}

// UpdatePriceRecord replaces the mutable fields only if the stored version
// still matches rec.Version.
func (s *Store) UpdatePriceRecord(ctx context.Context, rec *models.MarketPriceRecord) error {
	doc := toPriceRecordDoc(rec)
	next := rec.Version + 1

	res, err := s.marketPrices().UpdateOne(ctx,
		bson.M{"_id": rec.ID, "version": rec.Version},
		bson.M{"$set": bson.M{
			"currentPrice": doc.CurrentPrice,
			"supplyLevel":  doc.SupplyLevel,
			"demandLevel":  doc.DemandLevel,
			"priceHistory": doc.PriceHistory,
			"lastUpdated":  doc.LastUpdated,
			"version":      next,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update price record for material %s: %w", rec.MaterialID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("price record for material %s: %w", rec.MaterialID, models.ErrConcurrencyConflict)
	}
	rec.Version = next
	return nil
}
