package catalog

import "context"

type Repository interface {
	FindByID(ctx context.Context, productID string) (*Product, error)
	// ReserveStock atomically decrements stock by quantity. The conditional update is
	// the single authority on stock: two concurrent reservations of the last unit must
	// resolve to exactly one success and one ErrInsufficientStock.
	ReserveStock(ctx context.Context, productID string, quantity int) error
	// ReleaseStock returns previously reserved units (compensation path).
	ReleaseStock(ctx context.Context, productID string, quantity int) error
}
