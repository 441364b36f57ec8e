package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func (m *MongoRepository) GetCart(ctx context.Context, ownerKey string) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"owner_key": ownerKey}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

// CreateCart inserts a new cart at version 1. A second cart for the same owner
// is rejected by the unique owner_key index.
func (m *MongoRepository) CreateCart(ctx context.Context, cart *domain.Cart) error {
	now := m.now()
	cart.CreatedAt = now
	cart.UpdatedAt = now
	cart.Version = 1

	if _, err := m.collection.InsertOne(ctx, cart); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrCartExists
		}
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

// ReplaceCart writes the whole document if nobody else has written since
// cart.Version was read. On success cart.Version is advanced.
func (m *MongoRepository) ReplaceCart(ctx context.Context, cart *domain.Cart) error {
	expected := cart.Version

	next := *cart
	next.Version = expected + 1
	next.UpdatedAt = m.now()

	filter := bson.M{"owner_key": cart.OwnerKey, "version": expected}
	result, err := m.collection.ReplaceOne(ctx, filter, &next)
	if err != nil {
		return fmt.Errorf("failed to replace cart: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrVersionConflict
	}

	*cart = next
	return nil
}

func (m *MongoRepository) DeleteCart(ctx context.Context, ownerKey string) error {
	filter := bson.M{"owner_key": ownerKey}

	result, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}
