package order

import "time"

// OrderCreatedEvent is emitted after the order and its stock reservations are durable.
// It feeds best-effort work only (confirmation mail); handlers must never affect the order.
type OrderCreatedEvent struct {
	OrderID    string
	UserID     string
	UserEmail  string
	TotalPrice float64
	OccurredAt time.Time
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func NewOrderCreatedEvent(o *Order, userEmail string) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		UserEmail:  userEmail,
		TotalPrice: o.TotalPrice,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderPaidEvent is emitted the first time an order transitions to paid.
type OrderPaidEvent struct {
	OrderID    string
	UserID     string
	TotalPrice float64
	OccurredAt time.Time
}

func (OrderPaidEvent) EventName() string { return "order.paid" }

func NewOrderPaidEvent(o *Order) OrderPaidEvent {
	return OrderPaidEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalPrice: o.TotalPrice,
		OccurredAt: time.Now().UTC(),
	}
}
