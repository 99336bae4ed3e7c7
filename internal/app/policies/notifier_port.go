package policies

import "context"

// Email is a rendered transactional message.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers email through an external transport.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}
