package email

import (
	"context"
	"log/slog"

	"hostelhunt/internal/app/policies"
)

// LogMailer writes messages to the log instead of sending them. Used when no
// provider is configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) Send(ctx context.Context, msg policies.Email) error {
	if m.Logger != nil {
		m.Logger.InfoContext(ctx, "email not sent, no provider configured", "to", msg.To, "subject", msg.Subject)
	}
	return nil
}

var _ policies.Mailer = LogMailer{}
