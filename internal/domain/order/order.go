package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrConflict        = errors.New("order: already exists")
	ErrAccessDenied    = errors.New("order: access denied")
	ErrNoItems         = errors.New("order: at least one item is required")
	ErrInvalidQuantity = errors.New("order: quantity must be greater than zero")
	ErrInvalidStatus   = errors.New("order: invalid status")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a member of the status enum. Transition legality is
// deliberately not checked anywhere; any status may move to any other.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Item is a denormalized snapshot of the catalog record at order time. It is never
// re-read from the catalog after creation, so later price or name changes cannot
// affect what the customer is charged.
type Item struct {
	ProductID string  `bson:"product_id" json:"product_id"`
	Name      string  `bson:"name" json:"name"`
	UnitPrice float64 `bson:"unit_price" json:"unit_price"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	Image     string  `bson:"image,omitempty" json:"image,omitempty"`
}

type ShippingAddress struct {
	FullName   string `bson:"full_name" json:"full_name"`
	Line1      string `bson:"line1" json:"line1"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postal_code" json:"postal_code"`
	Country    string `bson:"country" json:"country"`
}

// PaymentResult is the reconciliation snapshot of the provider-side payment intent.
type PaymentResult struct {
	ProviderID     string `bson:"provider_id" json:"provider_id"`
	ProviderStatus string `bson:"provider_status" json:"provider_status"`
	UpdateTime     string `bson:"update_time,omitempty" json:"update_time,omitempty"`
	PayerEmail     string `bson:"payer_email,omitempty" json:"payer_email,omitempty"`
}

type Order struct {
	ID              string          `bson:"_id" json:"id"`
	UserID          string          `bson:"user_id" json:"user_id"`
	Items           []Item          `bson:"items" json:"items"`
	ShippingAddress ShippingAddress `bson:"shipping_address" json:"shipping_address"`
	PaymentMethod   string          `bson:"payment_method" json:"payment_method"`
	ItemsPrice      float64         `bson:"items_price" json:"items_price"`
	ShippingPrice   float64         `bson:"shipping_price" json:"shipping_price"`
	TaxPrice        float64         `bson:"tax_price" json:"tax_price"`
	TotalPrice      float64         `bson:"total_price" json:"total_price"`
	Status          Status          `bson:"status" json:"status"`
	IsPaid          bool            `bson:"is_paid" json:"is_paid"`
	PaidAt          *time.Time      `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	PaymentResult   *PaymentResult  `bson:"payment_result,omitempty" json:"payment_result,omitempty"`
	IsDelivered     bool            `bson:"is_delivered" json:"is_delivered"`
	DeliveredAt     *time.Time      `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	TrackingNumber  string          `bson:"tracking_number,omitempty" json:"tracking_number,omitempty"`
	CreatedAt       time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `bson:"updated_at" json:"updated_at"`
}

func New(id, userID string, items []Item, addr ShippingAddress, paymentMethod string,
	itemsPrice, shippingPrice, taxPrice, totalPrice float64,
) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	now := time.Now().UTC()
	return &Order{
		ID:              id,
		UserID:          userID,
		Items:           items,
		ShippingAddress: addr,
		PaymentMethod:   paymentMethod,
		ItemsPrice:      itemsPrice,
		ShippingPrice:   shippingPrice,
		TaxPrice:        taxPrice,
		TotalPrice:      totalPrice,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// MarkPaid applies the paid transition once. The second and later applications are
// skipped so that a duplicate provider webhook cannot move PaidAt.
func (o *Order) MarkPaid(result PaymentResult, at time.Time) bool {
	if o.IsPaid {
		return false
	}
	o.IsPaid = true
	o.PaidAt = &at
	o.PaymentResult = &result
	o.Status = StatusProcessing
	o.touch(at)
	return true
}

// SetStatus applies an administrative status change. Delivered additionally stamps
// the delivery flag and time.
func (o *Order) SetStatus(status Status, trackingNumber string, at time.Time) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	o.Status = status
	if trackingNumber != "" {
		o.TrackingNumber = trackingNumber
	}
	if status == StatusDelivered {
		o.IsDelivered = true
		o.DeliveredAt = &at
	}
	o.touch(at)
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	if o.PaidAt != nil {
		t := *o.PaidAt
		clone.PaidAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		clone.DeliveredAt = &t
	}
	if o.PaymentResult != nil {
		pr := *o.PaymentResult
		clone.PaymentResult = &pr
	}
	return &clone
}

func (o *Order) touch(at time.Time) {
	o.UpdatedAt = at
}
