package mongostore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"recyclehub/server/internal/models"
	"recyclehub/server/internal/pricing"
)

const (
	materialsCollection    = "materials"
	pickupsCollection      = "pickups"
	marketPricesCollection = "marketprices"
)

var _ pricing.Store = (*Store)(nil)

// Store keeps materials, pickups and market prices in MongoDB. Multi-document
// transactions need a replica set.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *logrus.Logger
}

// Open connects to uri and pings the server within timeout.
func Open(ctx context.Context, uri, database string, timeout time.Duration, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.WithField("database", database).Info("Connected to MongoDB")
	return &Store{client: client, db: client.Database(database), logger: logger}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the queries and uniqueness rules rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		materialsCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "name", Value: 1}}},
		},
		pickupsCollection: {
			{Keys: bson.D{{Key: "materials.material", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		marketPricesCollection: {
			{Keys: bson.D{{Key: "materialId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for name, idx := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// WithinTransaction runs fn in a session transaction. The context handed to
// fn carries the session, so every store call made with it joins the
// transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx pricing.Tx) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s)
	})
	return translate(err)
}

func (s *Store) materials() *mongo.Collection {
	return s.db.Collection(materialsCollection)
}

func (s *Store) pickups() *mongo.Collection {
	return s.db.Collection(pickupsCollection)
}

func (s *Store) marketPrices() *mongo.Collection {
	return s.db.Collection(marketPricesCollection)
}

const (
	writeConflictCode    = 112
	driverTransientLabel = "TransientTransactionError"
)

func translate(err error) error {
	var serverErr mongo.ServerError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", models.ErrAlreadyExists, err)
	case errors.As(err, &serverErr) &&
		(serverErr.HasErrorLabel(driverTransientLabel) || serverErr.HasErrorCode(writeConflictCode)):
		return fmt.Errorf("%w: %v", models.ErrConcurrencyConflict, err)
	}
	return err
}
