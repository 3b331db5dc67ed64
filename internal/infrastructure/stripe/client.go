// Package stripe is a thin client for the payment provider's REST API: intent
// creation and retrieval plus webhook signature verification. It implements the
// payment.Gateway port.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domain "github.com/refurbly/storefront/internal/domain/payment"
)

const (
	defaultBaseURL   = "https://api.stripe.com"
	defaultTimeout   = 10 * time.Second
	defaultTolerance = 5 * time.Minute

	// minChargeMajor is the provider's minimum charge in major currency units.
	minChargeMajor = 0.50
)

type Config struct {
	APIKey        string
	WebhookSecret string
	BaseURL       string
	Timeout       time.Duration
	// Tolerance bounds the accepted age of a webhook signature timestamp.
	Tolerance time.Duration
}

type Client struct {
	apiKey        string
	webhookSecret string
	baseURL       string
	tolerance     time.Duration
	httpClient    *http.Client

	// now is swappable for signature-tolerance tests.
	now func() time.Time
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	return &Client{
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       strings.TrimRight(baseURL, "/"),
		tolerance:     tolerance,
		httpClient:    &http.Client{Timeout: timeout},
		now:           time.Now,
	}
}

// intentDoc is the provider's wire shape for a payment intent.
type intentDoc struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Status       string            `json:"status"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	ReceiptEmail string            `json:"receipt_email"`
	Metadata     map[string]string `json:"metadata"`
}

type errorDoc struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) CreateIntent(ctx context.Context, amountMajor float64, currency string, metadata map[string]string) (*domain.Intent, error) {
	if amountMajor < minChargeMajor {
		return nil, fmt.Errorf("%w: %.2f", domain.ErrAmountTooSmall, amountMajor)
	}
	amountMinor := int64(math.Round(amountMajor * 100))

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountMinor, 10))
	form.Set("currency", strings.ToLower(currency))
	form.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var doc intentDoc
	if err := c.do(ctx, http.MethodPost, "/v1/payment_intents", form, &doc); err != nil {
		return nil, err
	}
	return toIntent(&doc), nil
}

func (c *Client) RetrieveIntent(ctx context.Context, intentID string) (*domain.Intent, error) {
	if intentID == "" {
		return nil, fmt.Errorf("stripe: intent id is required")
	}
	var doc intentDoc
	if err := c.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(intentID), nil, &doc); err != nil {
		return nil, err
	}
	return toIntent(&doc), nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("stripe: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("stripe: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr errorDoc
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("stripe: %s (%d %s)", apiErr.Error.Message, resp.StatusCode, apiErr.Error.Type)
		}
		return fmt.Errorf("stripe: unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("stripe: decode response: %w", err)
	}
	return nil
}

func toIntent(doc *intentDoc) *domain.Intent {
	return &domain.Intent{
		ID:           doc.ID,
		ClientSecret: doc.ClientSecret,
		Status:       doc.Status,
		Amount:       doc.Amount,
		Currency:     doc.Currency,
		ReceiptEmail: doc.ReceiptEmail,
		Metadata:     doc.Metadata,
	}
}
