package config

import (
	"os"
	"strconv"
	"time"

	"github.com/refurbly/storefront/internal/domain/pricing"
)

// Config is the only place the environment is read. Services receive it (or its
// pieces) at construction time and never consult the environment themselves.
type Config struct {
	ServiceName string
	Env         string
	HTTPAddr    string

	MongoURI      string
	MongoDatabase string

	ProviderAPIKey        string
	ProviderWebhookSecret string
	ProviderBaseURL       string
	ProviderTimeout       time.Duration

	Pricing pricing.Config
}

func Load() Config {
	return Config{
		ServiceName: getenvDefault("SERVICE_NAME", "storefront"),
		Env:         getenvDefault("ENV", "dev"),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),

		MongoURI:      getenvDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getenvDefault("MONGO_DATABASE", "storefront"),

		ProviderAPIKey:        os.Getenv("PAYMENT_API_KEY"),
		ProviderWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		ProviderBaseURL:       os.Getenv("PAYMENT_BASE_URL"),
		ProviderTimeout:       getenvDuration("PAYMENT_TIMEOUT", 10*time.Second),

		Pricing: pricing.Config{
			FreeShippingThreshold: getenvFloat("FREE_SHIPPING_THRESHOLD", 50.00),
			FlatShippingRate:      getenvFloat("FLAT_SHIPPING_RATE", 9.99),
			TaxRate:               getenvFloat("TAX_RATE", 0.08),
		},
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
