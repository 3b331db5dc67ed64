package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/refurbly/storefront/internal/domain/event"
	domorder "github.com/refurbly/storefront/internal/domain/order"
	domain "github.com/refurbly/storefront/internal/domain/payment"
	"github.com/refurbly/storefront/internal/pkg/logging"
)

const defaultCurrency = "usd"

// Service reconciles payment-provider outcomes into order state. Both entry points,
// the direct confirm call and the asynchronous webhook, converge on the same
// idempotent mark-paid transition.
type Service struct {
	orders    domorder.Repository
	gateway   domain.Gateway
	publisher event.Publisher
}

func NewService(orders domorder.Repository, gateway domain.Gateway, publisher event.Publisher) *Service {
	return &Service{
		orders:    orders,
		gateway:   gateway,
		publisher: publisher,
	}
}

type CreateIntentInput struct {
	Amount   float64
	Currency string
	OrderID  string
}

// CreateIntent asks the provider for a new payment intent. When the client ties the
// intent to an order, ownership is verified here before the order id reaches intent
// metadata; the gateway itself performs no ownership check.
func (s *Service) CreateIntent(ctx context.Context, userID string, in CreateIntentInput) (*domain.Intent, error) {
	logger := logging.FromContext(ctx).With("component", "payment_service")

	currency := in.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	metadata := map[string]string{"user_id": userID}
	if in.OrderID != "" {
		entity, err := s.orders.FindByID(ctx, in.OrderID)
		if err != nil {
			return nil, err
		}
		if entity.UserID != userID {
			return nil, domorder.ErrAccessDenied
		}
		metadata["order_id"] = in.OrderID
	}

	intent, err := s.gateway.CreateIntent(ctx, in.Amount, currency, metadata)
	if err != nil {
		if errors.Is(err, domain.ErrAmountTooSmall) {
			return nil, err
		}
		logger.Errorw("create_intent_failed", "order_id", in.OrderID, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrProvider, err)
	}

	logger.Infow("intent_created", "intent_id", intent.ID, "order_id", in.OrderID, "amount_minor", intent.Amount)
	return intent, nil
}

// ConfirmPayment is the direct confirmation path: the client reports a completed
// payment and we verify it with the provider before touching the order.
func (s *Service) ConfirmPayment(ctx context.Context, userID, intentID, orderID string) (*domorder.Order, error) {
	logger := logging.FromContext(ctx).With("component", "payment_service")

	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		logger.Errorw("retrieve_intent_failed", "intent_id", intentID, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrProvider, err)
	}
	if intent.Status != domain.IntentStatusSucceeded {
		return nil, domain.ErrIncomplete
	}

	entity, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if entity.UserID != userID {
		return nil, domorder.ErrAccessDenied
	}

	return s.markPaid(ctx, orderID, intent)
}

// HandleWebhook verifies and applies one provider event. Verification fails closed;
// nothing is parsed, let alone mutated, on a bad signature. Events we do not act on
// are acknowledged so the provider stops redelivering them.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	logger := logging.FromContext(ctx).With("component", "payment_service")

	if err := s.gateway.VerifySignature(payload, signatureHeader); err != nil {
		logger.Warnw("webhook_signature_rejected", "error", err)
		return domain.ErrSignatureInvalid
	}

	ev, err := s.gateway.ParseEvent(payload)
	if err != nil {
		logger.Warnw("webhook_parse_failed", "error", err)
		return fmt.Errorf("%w: %w", domain.ErrProvider, err)
	}

	switch ev.Type {
	case domain.EventIntentSucceeded:
		return s.onIntentSucceeded(ctx, ev.Intent)
	case domain.EventIntentFailed:
		// Deliberately no state change: whether a failed payment should cancel the
		// order or release stock is unresolved, so the event is only recorded.
		intentID := ""
		if ev.Intent != nil {
			intentID = ev.Intent.ID
		}
		logger.Infow("payment_intent_failed", "intent_id", intentID)
		return nil
	default:
		logger.Debugw("webhook_ignored", "type", ev.Type)
		return nil
	}
}

func (s *Service) onIntentSucceeded(ctx context.Context, intent *domain.Intent) error {
	logger := logging.FromContext(ctx).With("component", "payment_service")

	if intent == nil {
		logger.Warnw("webhook_succeeded_without_intent")
		return nil
	}
	orderID := intent.Metadata["order_id"]
	if orderID == "" {
		logger.Warnw("webhook_missing_order_id", "intent_id", intent.ID)
		return nil
	}

	_, err := s.markPaid(ctx, orderID, intent)
	if errors.Is(err, domorder.ErrNotFound) {
		// The provider will retry forever otherwise; an unknown order id cannot be
		// repaired by redelivery.
		logger.Warnw("webhook_order_not_found", "order_id", orderID, "intent_id", intent.ID)
		return nil
	}
	return err
}

// markPaid applies the set-once paid transition and emits order.paid on the first
// application only. Duplicate deliveries land on the already-paid order and keep the
// original PaidAt.
func (s *Service) markPaid(ctx context.Context, orderID string, intent *domain.Intent) (*domorder.Order, error) {
	logger := logging.FromContext(ctx).With("component", "payment_service")

	now := time.Now().UTC()
	result := domorder.PaymentResult{
		ProviderID:     intent.ID,
		ProviderStatus: intent.Status,
		UpdateTime:     now.Format(time.RFC3339),
		PayerEmail:     intent.ReceiptEmail,
	}

	entity, applied, err := s.orders.MarkPaid(ctx, orderID, result, now)
	if err != nil {
		logger.Errorw("mark_paid_failed", "order_id", orderID, "error", err)
		return nil, err
	}
	if !applied {
		logger.Infow("mark_paid_replayed", "order_id", orderID, "intent_id", intent.ID)
		return entity, nil
	}

	logger.Infow("order_marked_paid", "order_id", orderID, "intent_id", intent.ID)
	if s.publisher != nil {
		if pubErr := s.publisher.Publish(ctx, domorder.NewOrderPaidEvent(entity)); pubErr != nil {
			logger.Warnw("order_paid_publish_failed", "order_id", orderID, "error", pubErr)
		}
	}
	return entity, nil
}
