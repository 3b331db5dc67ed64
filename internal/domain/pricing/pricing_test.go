package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateFreeShippingBoundary(t *testing.T) {
	cfg := DefaultConfig()

	below := Calculate(49.99, cfg)
	assert.Equal(t, 9.99, below.ShippingPrice)

	at := Calculate(50.00, cfg)
	assert.Equal(t, 0.0, at.ShippingPrice)

	above := Calculate(200.00, cfg)
	assert.Equal(t, 0.0, above.ShippingPrice)
}

func TestCalculateTaxAndTotal(t *testing.T) {
	cfg := DefaultConfig()

	quote := Calculate(200.00, cfg)
	assert.Equal(t, 200.00, quote.ItemsPrice)
	assert.Equal(t, 16.00, quote.TaxPrice)
	assert.Equal(t, 216.00, quote.TotalPrice)
}

func TestCalculateTaxRounding(t *testing.T) {
	cfg := DefaultConfig()

	// 19.99 * 0.08 = 1.5992, which must land on exactly 1.60.
	quote := Calculate(19.99, cfg)
	assert.Equal(t, 1.60, quote.TaxPrice)
	assert.Equal(t, 31.58, quote.TotalPrice)
}

func TestCalculateDeterminism(t *testing.T) {
	cfg := DefaultConfig()

	first := Calculate(73.42, cfg)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Calculate(73.42, cfg))
	}
}

func TestCalculateShippingIsBinary(t *testing.T) {
	cfg := DefaultConfig()

	for _, itemsPrice := range []float64{0.01, 9.99, 25.50, 49.99, 50.00, 50.01, 120.00, 9999.99} {
		quote := Calculate(itemsPrice, cfg)
		assert.Contains(t, []float64{0, cfg.FlatShippingRate}, quote.ShippingPrice, "items price %.2f", itemsPrice)
	}
}
