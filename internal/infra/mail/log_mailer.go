// Package mail delivers transactional email. Only a logging transport ships
// with the service; production deployments plug a real Mailer in its place.
package mail

import (
	"context"
	"log/slog"

	deliverycontext "portal/internal/delivery/context"
	"portal/internal/domain/service"

	"github.com/pkg/errors"
)

// logMailer writes outgoing mail to the structured log.
type logMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a Mailer that logs every message instead of sending it.
func NewLogMailer(logger *slog.Logger) service.Mailer {
	return &logMailer{logger: logger}
}

// Send logs the message at info level.
func (m *logMailer) Send(ctx context.Context, mail service.Mail) error {
	if mail.To == "" {
		return errors.New("mail has no recipient")
	}

	deliverycontext.GetLoggerOrDefault(ctx, m.logger).InfoContext(ctx, "Outgoing mail",
		slog.String("to", mail.To),
		slog.String("subject", mail.Subject),
		slog.String("body", mail.Body),
	)

	return nil
}
