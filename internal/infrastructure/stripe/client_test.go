package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "github.com/refurbly/storefront/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		APIKey:        "sk_test_123",
		WebhookSecret: "whsec_test",
		BaseURL:       server.URL,
	})
}

func TestCreateIntentConvertsToMinorUnits(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "21600", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "true", r.PostForm.Get("automatic_payment_methods[enabled]"))
		assert.Equal(t, "order-1", r.PostForm.Get("metadata[order_id]"))
		assert.Equal(t, "user-1", r.PostForm.Get("metadata[user_id]"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "pi_123",
			"client_secret": "pi_123_secret",
			"status": "requires_payment_method",
			"amount": 21600,
			"currency": "usd",
			"metadata": {"order_id": "order-1", "user_id": "user-1"}
		}`)
	})

	intent, err := client.CreateIntent(context.Background(), 216.00, "USD",
		map[string]string{"order_id": "order-1", "user_id": "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret", intent.ClientSecret)
	assert.Equal(t, int64(21600), intent.Amount)
	assert.Equal(t, "order-1", intent.Metadata["order_id"])
}

func TestCreateIntentRoundsFractionalCents(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "1999", r.PostForm.Get("amount"))
		fmt.Fprint(w, `{"id": "pi_123", "status": "requires_payment_method", "amount": 1999}`)
	})

	// 19.99 * 100 is 1998.9999... in binary floating point; rounding must fix it.
	_, err := client.CreateIntent(context.Background(), 19.99, "usd", nil)
	require.NoError(t, err)
}

func TestCreateIntentRejectsBelowMinimum(t *testing.T) {
	client := NewClient(Config{APIKey: "sk_test_123"})

	_, err := client.CreateIntent(context.Background(), 0.49, "usd", nil)
	assert.ErrorIs(t, err, domain.ErrAmountTooSmall)
}

func TestRetrieveIntent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payment_intents/pi_123", r.URL.Path)
		fmt.Fprint(w, `{"id": "pi_123", "status": "succeeded", "amount": 21600, "receipt_email": "user@example.com"}`)
	})

	intent, err := client.RetrieveIntent(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", intent.Status)
	assert.Equal(t, "user@example.com", intent.ReceiptEmail)
}

func TestProviderErrorIsSurfaced(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error": {"type": "card_error", "message": "Your card was declined."}}`)
	})

	_, err := client.RetrieveIntent(context.Background(), "pi_123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "card was declined")
}

func signPayload(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignatureAcceptsValid(t *testing.T) {
	client := NewClient(Config{WebhookSecret: "whsec_test"})
	payload := []byte(`{"type":"payment_intent.succeeded"}`)

	header := signPayload("whsec_test", time.Now().Unix(), payload)
	assert.NoError(t, client.VerifySignature(payload, header))
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	client := NewClient(Config{WebhookSecret: "whsec_test"})
	payload := []byte(`{"type":"payment_intent.succeeded"}`)

	header := signPayload("whsec_other", time.Now().Unix(), payload)
	assert.ErrorIs(t, client.VerifySignature(payload, header), domain.ErrSignatureInvalid)
}

func TestVerifySignatureRejectsTamperedPayload(t *testing.T) {
	client := NewClient(Config{WebhookSecret: "whsec_test"})
	payload := []byte(`{"type":"payment_intent.succeeded"}`)

	header := signPayload("whsec_test", time.Now().Unix(), payload)
	tampered := []byte(`{"type":"payment_intent.succeeded","amount":1}`)
	assert.ErrorIs(t, client.VerifySignature(tampered, header), domain.ErrSignatureInvalid)
}

func TestVerifySignatureRejectsStaleTimestamp(t *testing.T) {
	client := NewClient(Config{WebhookSecret: "whsec_test"})
	payload := []byte(`{}`)

	stale := time.Now().Add(-time.Hour).Unix()
	header := signPayload("whsec_test", stale, payload)
	assert.ErrorIs(t, client.VerifySignature(payload, header), domain.ErrSignatureInvalid)
}

func TestVerifySignatureRejectsMalformedHeader(t *testing.T) {
	client := NewClient(Config{WebhookSecret: "whsec_test"})

	for _, header := range []string{"", "garbage", "t=abc,v1=ff", "v1=ff", "t=123"} {
		assert.ErrorIs(t, client.VerifySignature([]byte(`{}`), header), domain.ErrSignatureInvalid, "header %q", header)
	}
}

func TestVerifySignatureAcceptsSecondSignature(t *testing.T) {
	// During secret rotation the provider sends one v1 per active secret.
	client := NewClient(Config{WebhookSecret: "whsec_test"})
	payload := []byte(`{}`)

	ts := time.Now().Unix()
	valid := signPayload("whsec_test", ts, payload)
	stale := signPayload("whsec_old", ts, payload)
	combined := stale + valid[len(fmt.Sprintf("t=%d", ts)):]
	assert.NoError(t, client.VerifySignature(payload, combined))
}

func TestParseEventPaymentIntent(t *testing.T) {
	client := NewClient(Config{})

	ev, err := client.ParseEvent([]byte(`{
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_123", "status": "succeeded", "amount": 21600, "metadata": {"order_id": "order-1"}}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "payment_intent.succeeded", ev.Type)
	require.NotNil(t, ev.Intent)
	assert.Equal(t, "pi_123", ev.Intent.ID)
	assert.Equal(t, "order-1", ev.Intent.Metadata["order_id"])
}

func TestParseEventUnknownTypeIsNotAnError(t *testing.T) {
	client := NewClient(Config{})

	ev, err := client.ParseEvent([]byte(`{"type": "charge.refunded", "data": {"object": {"id": "ch_1"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "charge.refunded", ev.Type)
	assert.Nil(t, ev.Intent)
}

func TestParseEventMalformedPayload(t *testing.T) {
	client := NewClient(Config{})

	_, err := client.ParseEvent([]byte(`not json`))
	assert.Error(t, err)

	_, err = client.ParseEvent([]byte(`{}`))
	assert.Error(t, err)
}
