package catalog

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("catalog: product not found")
	ErrUnavailable       = errors.New("catalog: product unavailable")
	ErrInvalidQuantity   = errors.New("catalog: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
)

// Product is the inventory ledger record for one SKU. InStock is derived and must
// equal StockCount > 0 after every persist.
type Product struct {
	ID         string    `bson:"_id" json:"id"`
	Name       string    `bson:"name" json:"name"`
	Price      float64   `bson:"price" json:"price"`
	Image      string    `bson:"image,omitempty" json:"image,omitempty"`
	IsActive   bool      `bson:"is_active" json:"is_active"`
	StockCount int       `bson:"stock_count" json:"stock_count"`
	InStock    bool      `bson:"in_stock" json:"in_stock"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}

// Available reports whether the product can be ordered at all. Stock is checked
// separately so callers can tell the two rejections apart.
func (p *Product) Available() bool {
	return p != nil && p.IsActive
}

// Deduct removes quantity units, refusing to go negative, and recomputes InStock.
func (p *Product) Deduct(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > p.StockCount {
		return ErrInsufficientStock
	}
	p.StockCount -= quantity
	p.InStock = p.StockCount > 0
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Restock returns quantity units, recomputing InStock.
func (p *Product) Restock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	p.StockCount += quantity
	p.InStock = p.StockCount > 0
	p.UpdatedAt = time.Now().UTC()
	return nil
}
