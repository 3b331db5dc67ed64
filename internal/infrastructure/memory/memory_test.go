package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	domcatalog "github.com/refurbly/storefront/internal/domain/catalog"
	domorder "github.com/refurbly/storefront/internal/domain/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(t *testing.T, id, userID string) *domorder.Order {
	t.Helper()
	o, err := domorder.New(id, userID,
		[]domorder.Item{{ProductID: "SKU1", Name: "Refurbished Phone", UnitPrice: 100, Quantity: 1}},
		domorder.ShippingAddress{}, "card", 100, 9.99, 8, 117.99)
	require.NoError(t, err)
	return o
}

func TestOrderRepositoryInsertConflict(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, newOrder(t, "order-1", "user-1")))
	assert.ErrorIs(t, repo.Insert(ctx, newOrder(t, "order-1", "user-1")), domorder.ErrConflict)
}

func TestOrderRepositoryFindByIDClones(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, newOrder(t, "order-1", "user-1")))

	got, err := repo.FindByID(ctx, "order-1")
	require.NoError(t, err)
	got.Items[0].Quantity = 99

	again, err := repo.FindByID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Items[0].Quantity)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domorder.ErrNotFound)
}

func TestOrderRepositoryMarkPaidSetOnce(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, newOrder(t, "order-1", "user-1")))

	first := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	order, applied, err := repo.MarkPaid(ctx, "order-1", domorder.PaymentResult{ProviderID: "pi_1"}, first)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, first, *order.PaidAt)

	order, applied, err = repo.MarkPaid(ctx, "order-1", domorder.PaymentResult{ProviderID: "pi_2"}, first.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, first, *order.PaidAt)
	assert.Equal(t, "pi_1", order.PaymentResult.ProviderID)

	_, _, err = repo.MarkPaid(ctx, "missing", domorder.PaymentResult{}, first)
	assert.ErrorIs(t, err, domorder.ErrNotFound)
}

func TestOrderRepositoryConcurrentMarkPaidAppliesOnce(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, newOrder(t, "order-1", "user-1")))

	const workers = 16
	var wg sync.WaitGroup
	appliedCount := make([]bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, applied, err := repo.MarkPaid(ctx, "order-1", domorder.PaymentResult{ProviderID: "pi_1"}, time.Now().UTC())
			require.NoError(t, err)
			appliedCount[n] = applied
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, a := range appliedCount {
		if a {
			applied++
		}
	}
	assert.Equal(t, 1, applied)
}

func TestCatalogRepositoryReserveReleaseRoundTrip(t *testing.T) {
	repo := NewCatalogRepository()
	ctx := context.Background()
	repo.Put(&domcatalog.Product{ID: "SKU1", Name: "SKU1", Price: 10, IsActive: true, StockCount: 3})

	require.NoError(t, repo.ReserveStock(ctx, "SKU1", 3))

	product, err := repo.FindByID(ctx, "SKU1")
	require.NoError(t, err)
	assert.Equal(t, 0, product.StockCount)
	assert.False(t, product.InStock)

	assert.ErrorIs(t, repo.ReserveStock(ctx, "SKU1", 1), domcatalog.ErrInsufficientStock)

	require.NoError(t, repo.ReleaseStock(ctx, "SKU1", 2))
	product, err = repo.FindByID(ctx, "SKU1")
	require.NoError(t, err)
	assert.Equal(t, 2, product.StockCount)
	assert.True(t, product.InStock)

	assert.ErrorIs(t, repo.ReserveStock(ctx, "missing", 1), domcatalog.ErrNotFound)
}

func TestCatalogRepositoryConcurrentReserveExactlyK(t *testing.T) {
	repo := NewCatalogRepository()
	ctx := context.Background()

	const stock = 7
	const competitors = 30
	repo.Put(&domcatalog.Product{ID: "SKU1", Name: "SKU1", Price: 10, IsActive: true, StockCount: stock})

	var wg sync.WaitGroup
	results := make([]error, competitors)
	for i := 0; i < competitors; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n] = repo.ReserveStock(ctx, "SKU1", 1)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domcatalog.ErrInsufficientStock)
		}
	}
	assert.Equal(t, stock, succeeded)

	product, err := repo.FindByID(ctx, "SKU1")
	require.NoError(t, err)
	assert.Equal(t, 0, product.StockCount)
}
