package order

import (
	"context"
	"time"
)

type Repository interface {
	Insert(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	// FindByUser returns one page of the user's orders, newest first, plus the total count.
	FindByUser(ctx context.Context, userID string, page, pageSize int) ([]*Order, int64, error)
	// FindAll returns one page of all orders, optionally filtered by status ("" means no filter).
	FindAll(ctx context.Context, status Status, page, pageSize int) ([]*Order, int64, error)
	// MarkPaid applies the paid transition with an atomic set-once update. The boolean
	// reports whether this call performed the transition; a repeat call on an already
	// paid order returns the stored order unchanged with false.
	MarkPaid(ctx context.Context, id string, result PaymentResult, at time.Time) (*Order, bool, error)
	// UpdateStatus applies an administrative status change as a single atomic field
	// update, never read-modify-write, so racing transitions cannot lose updates.
	UpdateStatus(ctx context.Context, id string, status Status, trackingNumber string, at time.Time) (*Order, error)
}
