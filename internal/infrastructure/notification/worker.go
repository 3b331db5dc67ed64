package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/refurbly/storefront/internal/domain/event"
	domorder "github.com/refurbly/storefront/internal/domain/order"
	"go.uber.org/zap"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 500 * time.Millisecond
)

// Worker turns order events into confirmation mail. It runs entirely off the
// response path: a mail that never goes out is logged, not surfaced, and the order
// is unaffected.
type Worker struct {
	mailer   Mailer
	log      *zap.SugaredLogger
	attempts int
	backoff  time.Duration
}

func NewWorker(mailer Mailer, logger *zap.SugaredLogger) *Worker {
	return &Worker{
		mailer:   mailer,
		log:      logger.With("component", "notification_worker"),
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
	}
}

// Register subscribes the worker to the events it handles.
func (w *Worker) Register(sub event.Subscriber) {
	sub.Subscribe(domorder.OrderCreatedEvent{}.EventName(), w.onOrderCreated)
	sub.Subscribe(domorder.OrderPaidEvent{}.EventName(), w.onOrderPaid)
}

func (w *Worker) onOrderCreated(ctx context.Context, e event.Event) error {
	ev, ok := e.(domorder.OrderCreatedEvent)
	if !ok {
		return fmt.Errorf("notification: unexpected event %T", e)
	}
	if ev.UserEmail == "" {
		w.log.Debugw("order_confirmation_skipped_no_email", "order_id", ev.OrderID)
		return nil
	}
	subject := "Order received"
	body := fmt.Sprintf("Your order %s for $%.2f has been received and is awaiting payment.", ev.OrderID, ev.TotalPrice)
	w.sendWithRetry(ctx, ev.UserEmail, subject, body, ev.OrderID)
	return nil
}

func (w *Worker) onOrderPaid(ctx context.Context, e event.Event) error {
	ev, ok := e.(domorder.OrderPaidEvent)
	if !ok {
		return fmt.Errorf("notification: unexpected event %T", e)
	}
	w.log.Infow("order_paid_notification", "order_id", ev.OrderID, "user_id", ev.UserID)
	return nil
}

// sendWithRetry makes a bounded number of attempts with doubling backoff. The final
// failure is logged and dropped; callers never see it.
func (w *Worker) sendWithRetry(ctx context.Context, to, subject, body, orderID string) {
	delay := w.backoff
	var err error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		err = w.mailer.Send(ctx, to, subject, body)
		if err == nil {
			if attempt > 1 {
				w.log.Infow("mail_retry_succeeded", "order_id", orderID, "attempt", attempt)
			}
			return
		}
		if attempt == w.attempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			w.log.Warnw("mail_retry_aborted", "order_id", orderID, "error", ctx.Err())
			return
		}
		delay *= 2
	}
	w.log.Warnw("mail_send_failed", "order_id", orderID, "attempts", w.attempts, "error", err)
}
