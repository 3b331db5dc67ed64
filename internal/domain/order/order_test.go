package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItems() []Item {
	return []Item{{ProductID: "sku-1", Name: "Refurbished Phone", UnitPrice: 100, Quantity: 2}}
}

func TestNewValidation(t *testing.T) {
	_, err := New("o-1", "u-1", nil, ShippingAddress{}, "card", 0, 0, 0, 0)
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = New("o-1", "u-1", []Item{{ProductID: "sku-1", Quantity: 0}}, ShippingAddress{}, "card", 0, 0, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestNewStartsPending(t *testing.T) {
	o, err := New("o-1", "u-1", testItems(), ShippingAddress{}, "card", 200, 0, 16, 216)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.False(t, o.IsPaid)
	assert.Nil(t, o.PaidAt)
}

func TestMarkPaidIsSetOnce(t *testing.T) {
	o, err := New("o-1", "u-1", testItems(), ShippingAddress{}, "card", 200, 0, 16, 216)
	require.NoError(t, err)

	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	applied := o.MarkPaid(PaymentResult{ProviderID: "pi_1", ProviderStatus: "succeeded"}, first)
	require.True(t, applied)
	assert.True(t, o.IsPaid)
	assert.Equal(t, StatusProcessing, o.Status)
	require.NotNil(t, o.PaidAt)
	assert.Equal(t, first, *o.PaidAt)

	// A duplicate delivery must not move PaidAt or the payment snapshot.
	second := first.Add(time.Hour)
	applied = o.MarkPaid(PaymentResult{ProviderID: "pi_other"}, second)
	assert.False(t, applied)
	assert.Equal(t, first, *o.PaidAt)
	assert.Equal(t, "pi_1", o.PaymentResult.ProviderID)
}

func TestSetStatusDelivered(t *testing.T) {
	o, err := New("o-1", "u-1", testItems(), ShippingAddress{}, "card", 200, 0, 16, 216)
	require.NoError(t, err)

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, o.SetStatus(StatusDelivered, "TRACK-9", at))
	assert.Equal(t, StatusDelivered, o.Status)
	assert.True(t, o.IsDelivered)
	require.NotNil(t, o.DeliveredAt)
	assert.Equal(t, at, *o.DeliveredAt)
	assert.Equal(t, "TRACK-9", o.TrackingNumber)
}

func TestSetStatusAllowsAnyTransition(t *testing.T) {
	o, err := New("o-1", "u-1", testItems(), ShippingAddress{}, "card", 200, 0, 16, 216)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, o.SetStatus(StatusDelivered, "", now))
	// Backwards moves are intentionally permitted.
	require.NoError(t, o.SetStatus(StatusPending, "", now))
	assert.Equal(t, StatusPending, o.Status)
}

func TestSetStatusRejectsUnknown(t *testing.T) {
	o, err := New("o-1", "u-1", testItems(), ShippingAddress{}, "card", 200, 0, 16, 216)
	require.NoError(t, err)
	assert.ErrorIs(t, o.SetStatus(Status("refunded"), "", time.Now().UTC()), ErrInvalidStatus)
}

func TestCloneIsDeep(t *testing.T) {
	o, err := New("o-1", "u-1", testItems(), ShippingAddress{}, "card", 200, 0, 16, 216)
	require.NoError(t, err)
	o.MarkPaid(PaymentResult{ProviderID: "pi_1"}, time.Now().UTC())

	clone := o.Clone()
	clone.Items[0].Quantity = 99
	clone.PaymentResult.ProviderID = "pi_mutated"

	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, "pi_1", o.PaymentResult.ProviderID)
}
