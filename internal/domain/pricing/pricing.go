// Package pricing computes order totals. It is pure: the same items price and
// configuration always produce the same quote, so server-side order creation and any
// client-side preview can never diverge.
package pricing

import "math"

type Config struct {
	FreeShippingThreshold float64
	FlatShippingRate      float64
	TaxRate               float64
}

func DefaultConfig() Config {
	return Config{
		FreeShippingThreshold: 50.00,
		FlatShippingRate:      9.99,
		TaxRate:               0.08,
	}
}

type Quote struct {
	ItemsPrice    float64
	ShippingPrice float64
	TaxPrice      float64
	TotalPrice    float64
}

// Calculate derives shipping, tax and total from an items subtotal. Shipping is free
// at or above the threshold, flat below it; tax is rounded to cents.
func Calculate(itemsPrice float64, cfg Config) Quote {
	shipping := cfg.FlatShippingRate
	if itemsPrice >= cfg.FreeShippingThreshold {
		shipping = 0
	}
	tax := Round2(itemsPrice * cfg.TaxRate)
	return Quote{
		ItemsPrice:    itemsPrice,
		ShippingPrice: shipping,
		TaxPrice:      tax,
		TotalPrice:    Round2(itemsPrice + shipping + tax),
	}
}

// Round2 rounds a monetary amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
