// Package email delivers rendered notifications.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"hostelhunt/internal/app/policies"
)

var ErrRejected = errors.New("email: message rejected by provider")

type SendGridConfig struct {
	APIKey   string
	From     string
	FromName string
	// Host overrides the API host, used by tests.
	Host string
}

// SendGrid sends mail through the SendGrid v3 API.
type SendGrid struct {
	client *sendgrid.Client
	from   *mail.Email
	logger *slog.Logger
}

func NewSendGrid(cfg SendGridConfig, logger *slog.Logger) (*SendGrid, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("email: sendgrid api key is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("email: sender address is required")
	}
	req := sendgrid.GetRequest(cfg.APIKey, "/v3/mail/send", cfg.Host)
	req.Method = "POST"
	return &SendGrid{
		client: &sendgrid.Client{Request: req},
		from:   mail.NewEmail(cfg.FromName, cfg.From),
		logger: logger,
	}, nil
}

func (s *SendGrid) Send(ctx context.Context, msg policies.Email) error {
	to := mail.NewEmail("", msg.To)
	body := mail.NewSingleEmail(s.from, msg.Subject, to, msg.Text, msg.HTML)
	resp, err := s.client.SendWithContext(ctx, body)
	if err != nil {
		return fmt.Errorf("email: sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	if s.logger != nil {
		s.logger.Debug("email sent", "to", msg.To, "subject", msg.Subject, "message_id", messageID(resp.Headers))
	}
	return nil
}

func messageID(headers map[string][]string) string {
	for _, key := range []string{"X-Message-Id", "X-Message-ID"} {
		if v := headers[key]; len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

var _ policies.Mailer = (*SendGrid)(nil)
