package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/refurbly/storefront/internal/domain/payment"
)

// VerifySignature checks the provider's webhook signature header against the raw
// payload. The header carries a unix timestamp and one or more HMAC-SHA256
// signatures of "<timestamp>.<payload>"; any malformed, stale or mismatched header
// fails closed with ErrSignatureInvalid.
func (c *Client) VerifySignature(payload []byte, signatureHeader string) error {
	if signatureHeader == "" {
		return domain.ErrSignatureInvalid
	}

	var timestamp string
	var signatures [][]byte
	for _, part := range strings.Split(signatureHeader, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			sig, err := hex.DecodeString(v)
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return domain.ErrSignatureInvalid
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return domain.ErrSignatureInvalid
	}
	age := c.now().Sub(time.Unix(ts, 0))
	if age > c.tolerance || age < -c.tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", domain.ErrSignatureInvalid)
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return domain.ErrSignatureInvalid
}

type eventDoc struct {
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes a verified webhook payload. Event types other than payment
// intents decode to an event with a nil Intent; unknown types are not an error.
func (c *Client) ParseEvent(payload []byte) (*domain.Event, error) {
	var doc eventDoc
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("stripe: parse event: %w", err)
	}
	if doc.Type == "" {
		return nil, fmt.Errorf("stripe: event type missing")
	}

	ev := &domain.Event{Type: doc.Type}
	if strings.HasPrefix(doc.Type, "payment_intent.") && len(doc.Data.Object) > 0 {
		var intent intentDoc
		if err := json.Unmarshal(doc.Data.Object, &intent); err != nil {
			return nil, fmt.Errorf("stripe: parse intent object: %w", err)
		}
		ev.Intent = toIntent(&intent)
	}
	return ev, nil
}
