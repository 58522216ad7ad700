package coupon

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/grocerly/storefront/internal/domain"
)

var ErrCodeNotFound = errors.New("coupon code not found")

// Store looks up coupon rules by code.
type Store interface {
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
}

type mongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{
		collection: db.Collection("coupons"),
	}
}

func (m *mongoStore) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var c domain.Coupon

	filter := bson.M{"_id": code}
	err := m.collection.FindOne(ctx, filter).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}

	return &c, nil
}

// Upsert stores a coupon rule. Used by seeding and admin tooling.
func Upsert(ctx context.Context, db *mongo.Database, c *domain.Coupon) error {
	filter := bson.M{"_id": c.Code}
	update := bson.M{"$set": c}
	opts := options.Update().SetUpsert(true)

	_, err := db.Collection("coupons").UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert coupon: %w", err)
	}
	return nil
}
