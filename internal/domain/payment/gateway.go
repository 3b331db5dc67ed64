package payment

import (
	"context"
	"errors"
)

var (
	ErrAmountTooSmall   = errors.New("payment: amount below provider minimum")
	ErrSignatureInvalid = errors.New("payment: webhook signature invalid")
	ErrIncomplete       = errors.New("payment: not completed")
	ErrProvider         = errors.New("payment: provider error")
)

const (
	IntentStatusSucceeded = "succeeded"

	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

// Intent mirrors the provider-owned payment intent. The provider issues the id; we
// only reference it and read its status back.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64 // minor currency units
	Currency     string
	ReceiptEmail string
	Metadata     map[string]string
}

// Event is a provider webhook event. Unrecognized types carry a nil Intent and are
// accepted, not rejected, so new provider event types cannot break the webhook.
type Event struct {
	Type   string
	Intent *Intent
}

// Gateway is the outbound port wrapping the payment provider. It performs no
// ownership checks: callers must verify the order belongs to the requesting user
// before attaching an order id to intent metadata.
type Gateway interface {
	CreateIntent(ctx context.Context, amountMajor float64, currency string, metadata map[string]string) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
	// VerifySignature fails closed: any verification problem is ErrSignatureInvalid
	// and the payload must not be parsed.
	VerifySignature(payload []byte, signatureHeader string) error
	ParseEvent(payload []byte) (*Event, error)
}
