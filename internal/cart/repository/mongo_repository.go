package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/grocerly/storefront/internal/domain"
)

// Abandoned carts are reaped by a TTL index on expires_at. Guest carts get
// a shorter leash than user carts; every write pushes the deadline out.
const (
	userCartTTL  = 90 * 24 * time.Hour
	guestCartTTL = 30 * 24 * time.Hour
)

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) CartRepository {
	return &mongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *mongoRepository) GetCart(ctx context.Context, ownerKey string) (*domain.Cart, error) {
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

func (m *mongoRepository) UpsertCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	filter := bson.M{"owner_key": cart.OwnerKey}
	update := bson.M{"$set": bson.M{
		"owner_key":   cart.OwnerKey,
		"items":       cart.Items,
		"saved_items": cart.Saved,
		"coupon":      cart.Coupon,
		"created_at":  cart.CreatedAt,
		"updated_at":  cart.UpdatedAt,
		"expires_at":  now.Add(cartTTL(cart.OwnerKey)),
	}}
	opts := options.Update().SetUpsert(true)

	_, err := m.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}

	return nil
}

func (m *mongoRepository) DeleteCart(ctx context.Context, ownerKey string) error {
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

func cartTTL(ownerKey string) time.Duration {
	if domain.IsGuestKey(ownerKey) {
		return guestCartTTL
	}
	return userCartTTL
}

// CreateIndexes sets up the unique owner index and the abandonment TTL.
func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// expires_at already carries the per-owner deadline, so the
			// index expires documents the moment it passes.
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
