package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/refurbly/storefront/internal/domain/catalog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type CatalogRepository struct {
	collection *mongo.Collection
}

func NewCatalogRepository(db *mongo.Database) *CatalogRepository {
	return &CatalogRepository{collection: db.Collection(productsCollection)}
}

func (r *CatalogRepository) FindByID(ctx context.Context, productID string) (*domain.Product, error) {
	var product domain.Product
	err := r.collection.FindOne(ctx, bson.M{"_id": productID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// ReserveStock is the single write that decides stock contention. The stock_count
// guard in the filter plus the pipeline update make the decrement conditional and
// atomic server-side: of two orders racing for the last unit, exactly one matches.
// The second pipeline stage recomputes the derived in_stock from the new count.
func (r *CatalogRepository) ReserveStock(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	filter := bson.M{"_id": productID, "stock_count": bson.M{"$gte": quantity}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"stock_count": bson.M{"$subtract": bson.A{"$stock_count", quantity}},
			"updated_at":  time.Now().UTC(),
		}}},
		{{Key: "$set", Value: bson.M{
			"in_stock": bson.M{"$gt": bson.A{"$stock_count", 0}},
		}}},
	}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	if res.MatchedCount == 0 {
		// Distinguish an unknown product from one that exists without enough stock.
		if _, findErr := r.FindByID(ctx, productID); findErr != nil {
			return findErr
		}
		return domain.ErrInsufficientStock
	}
	return nil
}

func (r *CatalogRepository) ReleaseStock(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"stock_count": bson.M{"$add": bson.A{"$stock_count", quantity}},
			"updated_at":  time.Now().UTC(),
		}}},
		{{Key: "$set", Value: bson.M{
			"in_stock": bson.M{"$gt": bson.A{"$stock_count", 0}},
		}}},
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": productID}, update)
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
