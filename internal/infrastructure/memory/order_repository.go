package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domain "github.com/refurbly/storefront/internal/domain/order"
)

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrConflict
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) FindByUser(ctx context.Context, userID string, page, pageSize int) ([]*domain.Order, int64, error) {
	_ = ctx
	return r.page(func(o *domain.Order) bool { return o.UserID == userID }, page, pageSize)
}

func (r *OrderRepository) FindAll(ctx context.Context, status domain.Status, page, pageSize int) ([]*domain.Order, int64, error) {
	_ = ctx
	return r.page(func(o *domain.Order) bool { return status == "" || o.Status == status }, page, pageSize)
}

func (r *OrderRepository) page(match func(*domain.Order) bool, page, pageSize int) ([]*domain.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if match(o) {
			matched = append(matched, o)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []*domain.Order{}, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]*domain.Order, 0, end-start)
	for _, o := range matched[start:end] {
		out = append(out, o.Clone())
	}
	return out, total, nil
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id string, result domain.PaymentResult, at time.Time) (*domain.Order, bool, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, false, domain.ErrNotFound
	}
	applied := order.MarkPaid(result, at)
	return order.Clone(), applied, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.Status, trackingNumber string, at time.Time) (*domain.Order, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := order.SetStatus(status, trackingNumber, at); err != nil {
		return nil, err
	}
	return order.Clone(), nil
}
