package memory

import (
	"context"
	"sync"

	domain "github.com/refurbly/storefront/internal/domain/catalog"
)

type CatalogRepository struct {
	mu       sync.Mutex
	products map[string]*domain.Product
}

func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		products: make(map[string]*domain.Product),
	}
}

// Put seeds or replaces a product record.
func (r *CatalogRepository) Put(product *domain.Product) {
	if product == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *product
	clone.InStock = clone.StockCount > 0
	r.products[product.ID] = &clone
}

func (r *CatalogRepository) FindByID(ctx context.Context, productID string) (*domain.Product, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *product
	return &clone, nil
}

// ReserveStock holds the lock across check and decrement, giving the same
// exactly-one-winner guarantee the document store's conditional update provides.
func (r *CatalogRepository) ReserveStock(ctx context.Context, productID string, quantity int) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	return product.Deduct(quantity)
}

func (r *CatalogRepository) ReleaseStock(ctx context.Context, productID string, quantity int) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	return product.Restock(quantity)
}
