package notification

import (
	"context"

	"go.uber.org/zap"
)

// Mailer is the outbound port for transactional mail. Delivery is best-effort
// everywhere it is used; implementations may fail without affecting any order.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer records the mail instead of delivering it. It stands in for a real
// provider integration in local and test environments.
type LogMailer struct {
	log *zap.SugaredLogger
}

func NewLogMailer(logger *zap.SugaredLogger) *LogMailer {
	return &LogMailer{log: logger.With("component", "mailer")}
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.log.Infow("mail_sent", "to", to, "subject", subject, "body", body)
	return nil
}
