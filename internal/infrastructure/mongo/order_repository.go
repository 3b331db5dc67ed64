package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/refurbly/storefront/internal/domain/order"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{collection: db.Collection(ordersCollection)}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	if _, err := r.collection.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (r *OrderRepository) FindByUser(ctx context.Context, userID string, page, pageSize int) ([]*domain.Order, int64, error) {
	return r.findPage(ctx, bson.M{"user_id": userID}, page, pageSize)
}

func (r *OrderRepository) FindAll(ctx context.Context, status domain.Status, page, pageSize int) ([]*domain.Order, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return r.findPage(ctx, filter, page, pageSize)
}

func (r *OrderRepository) findPage(ctx context.Context, filter bson.M, page, pageSize int) ([]*domain.Order, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(page-1) * int64(pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]*domain.Order, 0, pageSize)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, total, nil
}

// MarkPaid applies the paid transition with is_paid:false in the filter, so only the
// first delivery for an order writes anything. A second delivery matches nothing and
// the stored order, original PaidAt included, is returned as-is.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, result domain.PaymentResult, at time.Time) (*domain.Order, bool, error) {
	update := bson.M{"$set": bson.M{
		"is_paid":        true,
		"paid_at":        at,
		"payment_result": result,
		"status":         domain.StatusProcessing,
		"updated_at":     at,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order domain.Order
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id, "is_paid": false}, update, opts).Decode(&order)
	if err == nil {
		return &order, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("failed to mark order paid: %w", err)
	}

	existing, findErr := r.FindByID(ctx, id)
	if findErr != nil {
		return nil, false, findErr
	}
	return existing, false, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.Status, trackingNumber string, at time.Time) (*domain.Order, error) {
	set := bson.M{
		"status":     status,
		"updated_at": at,
	}
	if trackingNumber != "" {
		set["tracking_number"] = trackingNumber
	}
	if status == domain.StatusDelivered {
		set["is_delivered"] = true
		set["delivered_at"] = at
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order domain.Order
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	return &order, nil
}
